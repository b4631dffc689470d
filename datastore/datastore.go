/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datastore

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/suparena/deliverystore/filter"
)

// MaxBatchSize is the largest number of operations a single batch may carry.
const MaxBatchSize = 100

// Item is a raw record as held by the store. Every item carries the
// PartitionKey and RowKey attributes; Timestamp is assigned by the store.
type Item = map[string]types.AttributeValue

// Cursor is a store-issued position. A nil cursor starts a query from the
// beginning when passed in and signals exhaustion when returned.
type Cursor = map[string]string

// Query selects records. A filter that pins a partition (see
// filter.Filter.Partition) is served from that partition only; any other filter
// is evaluated across the whole table.
type Query struct {
	Filter filter.Filter
	// Limit caps the number of records in one segment. Zero uses the store default.
	Limit int32
}

// Segment is one bounded page of a query.
type Segment struct {
	Items []Item
	Next  Cursor
}

// WriteMode selects upsert semantics.
type WriteMode int

const (
	// Replace overwrites the whole record.
	Replace WriteMode = iota
	// Merge updates the supplied attributes and keeps the others.
	Merge
)

// BatchAction is the kind of a batched operation.
type BatchAction int

const (
	BatchInsertOrMerge BatchAction = iota
	BatchDelete
)

// BatchOperation is one element of a batch.
type BatchOperation struct {
	Action BatchAction
	Item   Item
}

// Table is the partitioned key-value table the repository is layered on.
type Table interface {
	// Name returns the table name.
	Name() string
	// Get returns the item, or nil when it does not exist.
	Get(ctx context.Context, partitionKey, rowKey string) (Item, error)
	// Upsert writes an item with replace or merge semantics.
	Upsert(ctx context.Context, item Item, mode WriteMode) error
	// Delete removes an item by key.
	Delete(ctx context.Context, partitionKey, rowKey string) error
	// QuerySegment fetches one segment starting at cursor.
	QuerySegment(ctx context.Context, query Query, cursor Cursor) (Segment, error)
	// ExecuteBatch applies at most MaxBatchSize operations as one unit. A
	// delete of a missing item fails the whole batch with a NotFoundError.
	ExecuteBatch(ctx context.Context, ops []BatchOperation) error
}
