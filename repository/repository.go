/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package repository

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"

	"github.com/suparena/deliverystore/datastore"
	storeerrors "github.com/suparena/deliverystore/errors"
	"github.com/suparena/deliverystore/filter"
	"github.com/suparena/deliverystore/logging"
	"github.com/suparena/deliverystore/storagemodels"
)

// Repository provides paged and streamed access to the records of one table.
// It holds no mutable state besides its table handle and may be shared by
// concurrent callers.
type Repository[T storagemodels.Entity] struct {
	table            datastore.Table
	defaultPartition string
	logger           logging.Logger
}

// Page is the result of a single-segment read.
type Page[T storagemodels.Entity] struct {
	Items []T
	// Token resumes the read after the last item; nil when the query is exhausted.
	Token *storagemodels.ContinuationToken
}

// Option configures a Repository.
type Option func(*options)

type options struct {
	logger logging.Logger
}

// WithLogger sets the logger store failures are reported to.
func WithLogger(logger logging.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// New creates a repository over table. Operations that take an empty
// partition use defaultPartition.
func New[T storagemodels.Entity](table datastore.Table, defaultPartition string, opts ...Option) *Repository[T] {
	o := options{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Repository[T]{
		table:            table,
		defaultPartition: defaultPartition,
		logger:           o.logger,
	}
}

// Table returns the underlying table.
func (r *Repository[T]) Table() datastore.Table {
	return r.table
}

// DefaultPartition returns the partition used when none is given.
func (r *Repository[T]) DefaultPartition() string {
	return r.defaultPartition
}

// CreateOrUpdate writes the entity, replacing any stored version.
func (r *Repository[T]) CreateOrUpdate(ctx context.Context, entity T) error {
	return r.upsert(ctx, "CreateOrUpdate", entity, datastore.Replace)
}

// InsertOrMerge writes the entity, merging its attributes into any stored version.
func (r *Repository[T]) InsertOrMerge(ctx context.Context, entity T) error {
	return r.upsert(ctx, "InsertOrMerge", entity, datastore.Merge)
}

func (r *Repository[T]) upsert(ctx context.Context, op string, entity T, mode datastore.WriteMode) error {
	pk, _ := entity.Keys()
	item, err := r.marshal(entity)
	if err != nil {
		return r.fail(op, pk, err)
	}
	if err := r.table.Upsert(ctx, item, mode); err != nil {
		return r.fail(op, pk, err)
	}
	return nil
}

// Delete removes the entity after confirming it still exists. A vanished
// entity yields a NotFoundError and no mutation.
func (r *Repository[T]) Delete(ctx context.Context, entity T) error {
	pk, rk := entity.Keys()

	existing, err := r.table.Get(ctx, pk, rk)
	if err != nil {
		return r.fail("Delete", pk, err)
	}
	if existing == nil {
		err := storeerrors.NewNotFoundError(r.table.Name(), pk, rk)
		return r.fail("Delete", pk, err)
	}

	if err := r.table.Delete(ctx, pk, rk); err != nil {
		return r.fail("Delete", pk, err)
	}
	return nil
}

// Get returns the entity stored under the key, or nil when there is none.
func (r *Repository[T]) Get(ctx context.Context, partitionKey, rowKey string) (*T, error) {
	item, err := r.table.Get(ctx, partitionKey, rowKey)
	if err != nil {
		return nil, r.fail("Get", partitionKey, err)
	}
	if item == nil {
		return nil, nil
	}

	entity, err := r.unmarshal(item)
	if err != nil {
		return nil, r.fail("Get", partitionKey, err)
	}
	return &entity, nil
}

// GetWithFilter returns every entity of the partition that matches f.
func (r *Repository[T]) GetWithFilter(ctx context.Context, f filter.Filter, partition string) ([]T, error) {
	partition = r.partition(partition)
	query := datastore.Query{Filter: filter.And(filter.PartitionKey(partition), f)}
	return r.collect(ctx, "GetWithFilter", partition, query, 0)
}

// GetByRowKeys returns the entities of the partition whose row key is one of rowKeys.
func (r *Repository[T]) GetByRowKeys(ctx context.Context, partition string, rowKeys []string) ([]T, error) {
	if len(rowKeys) == 0 {
		return nil, nil
	}
	return r.GetWithFilter(ctx, filter.RowKeys(rowKeys), partition)
}

// GetAll returns the entities of the partition. A positive count caps the
// number of entities returned.
func (r *Repository[T]) GetAll(ctx context.Context, partition string, count int) ([]T, error) {
	partition = r.partition(partition)
	query := datastore.Query{Filter: filter.PartitionKey(partition)}
	return r.collect(ctx, "GetAll", partition, query, count)
}

// GetAllLessThanDateTime returns the entities of every partition last
// modified at or before t.
func (r *Repository[T]) GetAllLessThanDateTime(ctx context.Context, t time.Time) ([]T, error) {
	query := datastore.Query{
		Filter: filter.DateCondition(storagemodels.AttrTimestamp, filter.LessOrEqual, t),
	}
	return r.collect(ctx, "GetAllLessThanDateTime", "", query, 0)
}

// GetByCount reads one segment of at most count entities from the partition.
func (r *Repository[T]) GetByCount(ctx context.Context, partition string, count int) (Page[T], error) {
	partition = r.partition(partition)
	query := datastore.Query{Filter: filter.PartitionKey(partition), Limit: limit(count)}
	return r.page(ctx, "GetByCount", partition, query, nil)
}

// GetByToken reads one segment resuming at token. The token must have been
// issued for the same partition.
func (r *Repository[T]) GetByToken(ctx context.Context, token *storagemodels.ContinuationToken, partition string, count int) (Page[T], error) {
	partition = r.partition(partition)
	query := datastore.Query{Filter: filter.PartitionKey(partition), Limit: limit(count)}

	if token == nil {
		return Page[T]{}, storeerrors.NewValidationError("token", "continuation token is required")
	}
	if !token.Matches(query.Filter.String()) {
		return Page[T]{}, storeerrors.NewValidationError("token", "continuation token was issued for a different query")
	}
	return r.page(ctx, "GetByToken", partition, query, token.NextKey)
}

// GetStream returns a lazy stream over the partition's segments. A positive
// count sets the segment size.
func (r *Repository[T]) GetStream(partition string, count int) *Stream[T] {
	partition = r.partition(partition)
	return &Stream[T]{
		repo:      r,
		partition: partition,
		query:     datastore.Query{Filter: filter.PartitionKey(partition), Limit: limit(count)},
	}
}

// BatchInsertOrMerge merges the entities in groups of at most
// datastore.MaxBatchSize. Groups run in order and the first failing group
// stops the rest; groups already applied stay applied.
func (r *Repository[T]) BatchInsertOrMerge(ctx context.Context, entities []T) error {
	return r.batch(ctx, "BatchInsertOrMerge", datastore.BatchInsertOrMerge, entities)
}

// BatchDelete deletes the entities in groups of at most datastore.MaxBatchSize,
// with the same ordering and failure rules as BatchInsertOrMerge.
func (r *Repository[T]) BatchDelete(ctx context.Context, entities []T) error {
	return r.batch(ctx, "BatchDelete", datastore.BatchDelete, entities)
}

func (r *Repository[T]) batch(ctx context.Context, op string, action datastore.BatchAction, entities []T) error {
	for group := range slices.Chunk(entities, datastore.MaxBatchSize) {
		ops := make([]datastore.BatchOperation, 0, len(group))
		for _, entity := range group {
			item, err := r.marshal(entity)
			if err != nil {
				pk, _ := entity.Keys()
				return r.fail(op, pk, err)
			}
			ops = append(ops, datastore.BatchOperation{Action: action, Item: item})
		}

		if err := r.table.ExecuteBatch(ctx, ops); err != nil {
			pk, _ := group[0].Keys()
			return r.fail(op, pk, err)
		}
	}
	return nil
}

// collect drains the query. A positive count caps the result.
func (r *Repository[T]) collect(ctx context.Context, op, partition string, query datastore.Query, count int) ([]T, error) {
	var (
		result []T
		cursor datastore.Cursor
	)
	for {
		if count > 0 {
			query.Limit = limit(count - len(result))
		}
		seg, err := r.table.QuerySegment(ctx, query, cursor)
		if err != nil {
			return nil, r.fail(op, partition, err)
		}

		entities, err := r.decode(seg.Items)
		if err != nil {
			return nil, r.fail(op, partition, err)
		}
		result = append(result, entities...)

		if count > 0 && len(result) >= count {
			return result[:count], nil
		}
		if seg.Next == nil {
			return result, nil
		}
		cursor = seg.Next
	}
}

func (r *Repository[T]) page(ctx context.Context, op, partition string, query datastore.Query, cursor datastore.Cursor) (Page[T], error) {
	seg, err := r.table.QuerySegment(ctx, query, cursor)
	if err != nil {
		return Page[T]{}, r.fail(op, partition, err)
	}

	entities, err := r.decode(seg.Items)
	if err != nil {
		return Page[T]{}, r.fail(op, partition, err)
	}
	return Page[T]{
		Items: entities,
		Token: storagemodels.NewContinuationToken(seg.Next, query.Filter.String()),
	}, nil
}

func (r *Repository[T]) partition(partition string) string {
	if partition == "" {
		return r.defaultPartition
	}
	return partition
}

// fail logs err and returns it unchanged.
func (r *Repository[T]) fail(op, partition string, err error) error {
	r.logger.Error("store operation failed",
		"op", op,
		"table", r.table.Name(),
		"partition", partition,
		"error", err,
	)
	return err
}

func (r *Repository[T]) marshal(entity T) (datastore.Item, error) {
	item, err := attributevalue.MarshalMap(entity)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal entity: %w", err)
	}
	return item, nil
}

func (r *Repository[T]) unmarshal(item datastore.Item) (T, error) {
	var entity T
	if err := attributevalue.UnmarshalMap(item, &entity); err != nil {
		return entity, fmt.Errorf("failed to unmarshal item: %w", err)
	}
	return entity, nil
}

func (r *Repository[T]) decode(items []datastore.Item) ([]T, error) {
	entities := make([]T, 0, len(items))
	for _, item := range items {
		entity, err := r.unmarshal(item)
		if err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}
	return entities, nil
}

func limit(count int) int32 {
	if count <= 0 {
		return 0
	}
	return int32(min(count, 1<<31-1))
}
