/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/suparena/deliverystore/datastore"
	"github.com/suparena/deliverystore/storagemodels"
)

// Physical key attribute names.
const (
	AttrPK = "PK"
	AttrSK = "SK"
)

// API is the subset of the DynamoDB client used by Table.
type API interface {
	GetItem(ctx context.Context, params *sdk.GetItemInput, optFns ...func(*sdk.Options)) (*sdk.GetItemOutput, error)
	PutItem(ctx context.Context, params *sdk.PutItemInput, optFns ...func(*sdk.Options)) (*sdk.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *sdk.UpdateItemInput, optFns ...func(*sdk.Options)) (*sdk.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *sdk.DeleteItemInput, optFns ...func(*sdk.Options)) (*sdk.DeleteItemOutput, error)
	Query(ctx context.Context, params *sdk.QueryInput, optFns ...func(*sdk.Options)) (*sdk.QueryOutput, error)
	Scan(ctx context.Context, params *sdk.ScanInput, optFns ...func(*sdk.Options)) (*sdk.ScanOutput, error)
	TransactWriteItems(ctx context.Context, params *sdk.TransactWriteItemsInput, optFns ...func(*sdk.Options)) (*sdk.TransactWriteItemsOutput, error)
	DescribeTable(ctx context.Context, params *sdk.DescribeTableInput, optFns ...func(*sdk.Options)) (*sdk.DescribeTableOutput, error)
	CreateTable(ctx context.Context, params *sdk.CreateTableInput, optFns ...func(*sdk.Options)) (*sdk.CreateTableOutput, error)
}

// KeySchema holds the templates that derive PK and SK from an item.
type KeySchema struct {
	PartitionKey string
	SortKey      string
}

// DefaultKeySchema maps PK and SK directly onto PartitionKey and RowKey.
var DefaultKeySchema = KeySchema{
	PartitionKey: "{" + storagemodels.AttrPartitionKey + "}",
	SortKey:      "{" + storagemodels.AttrRowKey + "}",
}

// Table implements datastore.Table by using AWS DynamoDB as the underlying store.
type Table struct {
	client    API
	tableName string
	keys      KeySchema
	clock     func() time.Time
}

var _ datastore.Table = (*Table)(nil)

// Option configures a Table.
type Option func(*Table)

// WithKeySchema sets the PK/SK templates.
func WithKeySchema(schema KeySchema) Option {
	return func(t *Table) {
		t.keys = schema
	}
}

// WithClock sets the clock used for store-assigned timestamps.
func WithClock(clock func() time.Time) Option {
	return func(t *Table) {
		t.clock = clock
	}
}

// NewDynamoDBClient initializes a DynamoDB client using static AWS credentials.
// A non-empty endpoint overrides the service endpoint (e.g. DynamoDB Local).
func NewDynamoDBClient(awsAccessKey, awsSecretKey, awsRegion, endpoint string) (*sdk.Client, error) {
	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(awsRegion),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(awsAccessKey, awsSecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	client := sdk.NewFromConfig(cfg, func(o *sdk.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	return client, nil
}

// NewTable constructs a Table over tableName.
func NewTable(client API, tableName string, opts ...Option) *Table {
	t := &Table{
		client:    client,
		tableName: tableName,
		keys:      DefaultKeySchema,
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Name returns the DynamoDB table name.
func (t *Table) Name() string {
	return t.tableName
}

// Get retrieves a single item. It returns nil when no item is found.
func (t *Table) Get(ctx context.Context, partitionKey, rowKey string) (datastore.Item, error) {
	key, err := t.key(partitionKey, rowKey)
	if err != nil {
		return nil, err
	}

	out, err := t.client.GetItem(ctx, &sdk.GetItemInput{
		TableName: &t.tableName,
		Key:       key,
	})
	if err != nil {
		return nil, fmt.Errorf("GetItem error: %w", err)
	}
	if out.Item == nil {
		return nil, nil
	}
	return stripKeys(out.Item), nil
}

// Upsert stores the item, either replacing it (PutItem) or merging the supplied
// attributes into it (UpdateItem).
func (t *Table) Upsert(ctx context.Context, item datastore.Item, mode datastore.WriteMode) error {
	if mode == datastore.Merge {
		input, err := t.mergeInput(item)
		if err != nil {
			return err
		}
		if _, err := t.client.UpdateItem(ctx, input); err != nil {
			return fmt.Errorf("UpdateItem failed: %w", err)
		}
		return nil
	}

	av, err := t.physicalItem(item)
	if err != nil {
		return err
	}
	if _, err := t.client.PutItem(ctx, &sdk.PutItemInput{
		TableName: &t.tableName,
		Item:      av,
	}); err != nil {
		return fmt.Errorf("PutItem failed: %w", err)
	}
	return nil
}

// Delete removes an item by key.
func (t *Table) Delete(ctx context.Context, partitionKey, rowKey string) error {
	key, err := t.key(partitionKey, rowKey)
	if err != nil {
		return fmt.Errorf("failed to build key for Delete: %w", err)
	}

	_, err = t.client.DeleteItem(ctx, &sdk.DeleteItemInput{
		TableName: &t.tableName,
		Key:       key,
	})
	if err != nil {
		return fmt.Errorf("failed to delete item in DynamoDB: %w", err)
	}
	return nil
}

// EnsureExists creates the table with a PK/SK key schema and on-demand billing
// when it does not exist yet, then waits for it to become active.
func (t *Table) EnsureExists(ctx context.Context) error {
	_, err := t.client.DescribeTable(ctx, &sdk.DescribeTableInput{TableName: &t.tableName})
	if err == nil {
		return nil
	}
	var notFound *types.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		return fmt.Errorf("DescribeTable error: %w", err)
	}

	_, err = t.client.CreateTable(ctx, &sdk.CreateTableInput{
		TableName: &t.tableName,
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(AttrPK), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String(AttrSK), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(AttrPK), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String(AttrSK), KeyType: types.KeyTypeRange},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		var inUse *types.ResourceInUseException
		if !errors.As(err, &inUse) {
			return fmt.Errorf("CreateTable error: %w", err)
		}
	}

	waiter := sdk.NewTableExistsWaiter(t.client)
	if err := waiter.Wait(ctx, &sdk.DescribeTableInput{TableName: &t.tableName}, 2*time.Minute); err != nil {
		return fmt.Errorf("table %s did not become active: %w", t.tableName, err)
	}
	return nil
}

var macroPattern = regexp.MustCompile(`{([^}]+)}`)

// expandMacros replaces every "{Field}" in template with the string form of
// the item's Field attribute.
func expandMacros(template string, item datastore.Item) string {
	return macroPattern.ReplaceAllStringFunc(template, func(macro string) string {
		key := strings.Trim(macro, "{}")

		val, ok := item[key]
		if !ok {
			return ""
		}

		switch tv := val.(type) {
		case *types.AttributeValueMemberS:
			return tv.Value
		case *types.AttributeValueMemberN:
			return tv.Value
		case *types.AttributeValueMemberBOOL:
			return fmt.Sprintf("%v", tv.Value)
		default:
			// binary, sets, NULL and documents have no key form
			return ""
		}
	})
}

// physicalKey builds the DynamoDB key of an item.
func (t *Table) physicalKey(item datastore.Item) (map[string]types.AttributeValue, error) {
	pk := expandMacros(t.keys.PartitionKey, item)
	sk := expandMacros(t.keys.SortKey, item)
	if pk == "" || sk == "" {
		return nil, fmt.Errorf("expanded key schema missing valid PK or SK")
	}
	return map[string]types.AttributeValue{
		AttrPK: &types.AttributeValueMemberS{Value: pk},
		AttrSK: &types.AttributeValueMemberS{Value: sk},
	}, nil
}

func (t *Table) key(partitionKey, rowKey string) (map[string]types.AttributeValue, error) {
	return t.physicalKey(datastore.Item{
		storagemodels.AttrPartitionKey: &types.AttributeValueMemberS{Value: partitionKey},
		storagemodels.AttrRowKey:       &types.AttributeValueMemberS{Value: rowKey},
	})
}

// partitionValue expands the PK template for a partition-only query.
func (t *Table) partitionValue(partition string) string {
	return expandMacros(t.keys.PartitionKey, datastore.Item{
		storagemodels.AttrPartitionKey: &types.AttributeValueMemberS{Value: partition},
	})
}

// physicalItem copies the item, stamps the timestamp and adds PK/SK.
func (t *Table) physicalItem(item datastore.Item) (map[string]types.AttributeValue, error) {
	key, err := t.physicalKey(item)
	if err != nil {
		return nil, err
	}
	av := make(map[string]types.AttributeValue, len(item)+3)
	for k, v := range item {
		av[k] = v
	}
	av[storagemodels.AttrTimestamp] = t.timestamp()
	for k, v := range key {
		av[k] = v
	}
	return av, nil
}

func (t *Table) timestamp() types.AttributeValue {
	return &types.AttributeValueMemberS{Value: storagemodels.FormatTimestamp(t.clock())}
}

func stripKeys(item map[string]types.AttributeValue) datastore.Item {
	out := make(datastore.Item, len(item))
	for k, v := range item {
		if k == AttrPK || k == AttrSK {
			continue
		}
		out[k] = v
	}
	return out
}
