/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/suparena/deliverystore/datastore"
	storeerrors "github.com/suparena/deliverystore/errors"
	"github.com/suparena/deliverystore/filter"
	"github.com/suparena/deliverystore/storagemodels"
)

// QuerySegment reads one segment. Filters that pin a partition run as a Query
// on the partition key; any other filter runs as a Scan. The complete filter is
// always sent as the FilterExpression.
func (t *Table) QuerySegment(ctx context.Context, q datastore.Query, cursor datastore.Cursor) (datastore.Segment, error) {
	builder := expression.NewBuilder()
	hasExpr := false

	cond, ok := conditionFor(q.Filter)
	if ok {
		builder = builder.WithFilter(cond)
		hasExpr = true
	}

	partition, pinned := q.Filter.Partition()
	if pinned {
		builder = builder.WithKeyCondition(
			expression.Key(AttrPK).Equal(expression.Value(t.partitionValue(partition))),
		)
		hasExpr = true
	}

	var expr expression.Expression
	if hasExpr {
		var err error
		expr, err = builder.Build()
		if err != nil {
			return datastore.Segment{}, fmt.Errorf("failed to build expression: %w", err)
		}
	}

	var limit *int32
	if q.Limit > 0 {
		limit = aws.Int32(q.Limit)
	}
	startKey := toStartKey(cursor)

	if pinned {
		out, err := t.client.Query(ctx, &sdk.QueryInput{
			TableName:                 &t.tableName,
			KeyConditionExpression:    expr.KeyCondition(),
			FilterExpression:          expr.Filter(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ExclusiveStartKey:         startKey,
			Limit:                     limit,
		})
		if err != nil {
			return datastore.Segment{}, fmt.Errorf("query failed: %w", err)
		}
		return segmentOf(out.Items, out.LastEvaluatedKey), nil
	}

	input := &sdk.ScanInput{
		TableName:         &t.tableName,
		ExclusiveStartKey: startKey,
		Limit:             limit,
	}
	if hasExpr {
		input.FilterExpression = expr.Filter()
		input.ExpressionAttributeNames = expr.Names()
		input.ExpressionAttributeValues = expr.Values()
	}
	out, err := t.client.Scan(ctx, input)
	if err != nil {
		return datastore.Segment{}, fmt.Errorf("scan failed: %w", err)
	}
	return segmentOf(out.Items, out.LastEvaluatedKey), nil
}

// ExecuteBatch submits the operations as one transaction.
func (t *Table) ExecuteBatch(ctx context.Context, ops []datastore.BatchOperation) error {
	if len(ops) == 0 || len(ops) > datastore.MaxBatchSize {
		return fmt.Errorf("batch must contain between 1 and %d operations, got %d", datastore.MaxBatchSize, len(ops))
	}

	// Deletes must hit a stored item; a missing key cancels the transaction.
	exists, err := expression.NewBuilder().
		WithCondition(expression.AttributeExists(expression.Name(AttrPK))).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build delete condition: %w", err)
	}

	items := make([]types.TransactWriteItem, 0, len(ops))
	for i, op := range ops {
		switch op.Action {
		case datastore.BatchInsertOrMerge:
			in, err := t.mergeInput(op.Item)
			if err != nil {
				return fmt.Errorf("batch operation %d: %w", i, err)
			}
			items = append(items, types.TransactWriteItem{Update: &types.Update{
				TableName:                 in.TableName,
				Key:                       in.Key,
				UpdateExpression:          in.UpdateExpression,
				ExpressionAttributeNames:  in.ExpressionAttributeNames,
				ExpressionAttributeValues: in.ExpressionAttributeValues,
			}})
		case datastore.BatchDelete:
			key, err := t.physicalKey(op.Item)
			if err != nil {
				return fmt.Errorf("batch operation %d: %w", i, err)
			}
			items = append(items, types.TransactWriteItem{Delete: &types.Delete{
				TableName:                &t.tableName,
				Key:                      key,
				ConditionExpression:      exists.Condition(),
				ExpressionAttributeNames: exists.Names(),
			}})
		default:
			return fmt.Errorf("batch operation %d: unknown action %d", i, op.Action)
		}
	}

	if _, err := t.client.TransactWriteItems(ctx, &sdk.TransactWriteItemsInput{TransactItems: items}); err != nil {
		if missing := t.missingDelete(err, ops); missing != nil {
			return missing
		}
		return fmt.Errorf("TransactWriteItems failed: %w", err)
	}
	return nil
}

// missingDelete maps a transaction cancelled by a failed delete condition to
// a NotFoundError for the first such operation.
func (t *Table) missingDelete(err error, ops []datastore.BatchOperation) error {
	var canceled *types.TransactionCanceledException
	if !errors.As(err, &canceled) {
		return nil
	}
	for i, reason := range canceled.CancellationReasons {
		if i >= len(ops) || ops[i].Action != datastore.BatchDelete {
			continue
		}
		if aws.ToString(reason.Code) == "ConditionalCheckFailed" {
			return storeerrors.NewNotFoundError(t.tableName,
				stringAttr(ops[i].Item, storagemodels.AttrPartitionKey),
				stringAttr(ops[i].Item, storagemodels.AttrRowKey))
		}
	}
	return nil
}

func stringAttr(item datastore.Item, name string) string {
	if v, ok := item[name].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

// mergeInput builds an UpdateItem request that SETs every supplied attribute
// and the store timestamp, leaving other attributes untouched.
func (t *Table) mergeInput(item datastore.Item) (*sdk.UpdateItemInput, error) {
	key, err := t.physicalKey(item)
	if err != nil {
		return nil, err
	}

	names := map[string]string{"#ts": storagemodels.AttrTimestamp}
	values := map[string]types.AttributeValue{":ts": t.timestamp()}
	clauses := []string{"#ts = :ts"}

	attrs := make([]string, 0, len(item))
	for k := range item {
		if k == AttrPK || k == AttrSK || k == storagemodels.AttrTimestamp {
			continue
		}
		attrs = append(attrs, k)
	}
	sort.Strings(attrs)

	for i, k := range attrs {
		n, v := fmt.Sprintf("#n%d", i), fmt.Sprintf(":v%d", i)
		names[n] = k
		values[v] = item[k]
		clauses = append(clauses, n+" = "+v)
	}

	return &sdk.UpdateItemInput{
		TableName:                 &t.tableName,
		Key:                       key,
		UpdateExpression:          aws.String("SET " + strings.Join(clauses, ", ")),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	}, nil
}

// conditionFor translates a filter tree into a condition expression.
func conditionFor(f filter.Filter) (expression.ConditionBuilder, bool) {
	return filter.Fold(f,
		func(field string, op filter.Op, v filter.Value) expression.ConditionBuilder {
			name := expression.Name(field)
			operand := expression.Value(v.Raw())
			switch op {
			case filter.NotEqual:
				return name.NotEqual(operand)
			case filter.LessThan:
				return name.LessThan(operand)
			case filter.LessOrEqual:
				return name.LessThanEqual(operand)
			case filter.GreaterThan:
				return name.GreaterThan(operand)
			case filter.GreaterOrEqual:
				return name.GreaterThanEqual(operand)
			default:
				return name.Equal(operand)
			}
		},
		func(l, r expression.ConditionBuilder) expression.ConditionBuilder { return l.And(r) },
		func(l, r expression.ConditionBuilder) expression.ConditionBuilder { return l.Or(r) },
	)
}

func toStartKey(cursor datastore.Cursor) map[string]types.AttributeValue {
	if len(cursor) == 0 {
		return nil
	}
	key := make(map[string]types.AttributeValue, len(cursor))
	for k, v := range cursor {
		key[k] = &types.AttributeValueMemberS{Value: v}
	}
	return key
}

func segmentOf(raw []map[string]types.AttributeValue, last map[string]types.AttributeValue) datastore.Segment {
	items := make([]datastore.Item, 0, len(raw))
	for _, item := range raw {
		items = append(items, stripKeys(item))
	}

	var next datastore.Cursor
	if len(last) > 0 {
		next = make(datastore.Cursor, len(last))
		for k, v := range last {
			if s, ok := v.(*types.AttributeValueMemberS); ok {
				next[k] = s.Value
			}
		}
	}
	return datastore.Segment{Items: items, Next: next}
}
