/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package mock provides an in-memory implementation of datastore.Table for
// testing and local runs.
package mock

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/suparena/deliverystore/datastore"
	"github.com/suparena/deliverystore/errors"
	"github.com/suparena/deliverystore/filter"
	"github.com/suparena/deliverystore/storagemodels"
)

// DefaultSegmentSize mirrors the page size of the hosted table services.
const DefaultSegmentSize = 1000

type key struct {
	pk, rk string
}

func compareKeys(a, b key) int {
	if c := cmp.Compare(a.pk, b.pk); c != 0 {
		return c
	}
	return cmp.Compare(a.rk, b.rk)
}

// Calls counts the operations a Table has served.
type Calls struct {
	Get     int
	Upsert  int
	Delete  int
	Query   int
	Batch   int
	Batched []int // size of every executed batch, in order
}

// Table is an in-memory datastore.Table. Items are kept in (PartitionKey,
// RowKey) order, which is also the order segments are served in.
type Table struct {
	mu          sync.Mutex
	name        string
	items       map[key]datastore.Item
	keys        []key
	sorted      bool
	segmentSize int
	clock       func() time.Time
	calls       Calls

	getError     error
	upsertError  error
	deleteError  error
	queryError   error
	queryErrorAt int
	batchError   error
	batchErrorAt int
}

var _ datastore.Table = (*Table)(nil)

// New creates an empty table.
func New(name string) *Table {
	return &Table{
		name:        name,
		items:       make(map[key]datastore.Item),
		sorted:      true,
		segmentSize: DefaultSegmentSize,
		clock:       time.Now,
	}
}

// WithSegmentSize sets the maximum number of items served per segment.
func (m *Table) WithSegmentSize(n int) *Table {
	m.segmentSize = n
	return m
}

// WithClock sets the clock used to stamp item timestamps.
func (m *Table) WithClock(clock func() time.Time) *Table {
	m.clock = clock
	return m
}

// WithGetError makes Get operations return an error
func (m *Table) WithGetError(err error) *Table {
	m.getError = err
	return m
}

// WithUpsertError makes Upsert operations return an error
func (m *Table) WithUpsertError(err error) *Table {
	m.upsertError = err
	return m
}

// WithDeleteError makes Delete operations return an error
func (m *Table) WithDeleteError(err error) *Table {
	m.deleteError = err
	return m
}

// WithQueryErrorAt makes the n-th QuerySegment call (1-based) and every later call fail.
func (m *Table) WithQueryErrorAt(n int, err error) *Table {
	m.queryErrorAt = n
	m.queryError = err
	return m
}

// WithBatchErrorAt makes the n-th ExecuteBatch call (1-based) fail without applying it.
func (m *Table) WithBatchErrorAt(n int, err error) *Table {
	m.batchErrorAt = n
	m.batchError = err
	return m
}

// Name returns the table name.
func (m *Table) Name() string {
	return m.name
}

// Get returns a copy of the item or nil.
func (m *Table) Get(ctx context.Context, partitionKey, rowKey string) (datastore.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Get++

	if m.getError != nil {
		return nil, m.getError
	}
	item, ok := m.items[key{partitionKey, rowKey}]
	if !ok {
		return nil, nil
	}
	return maps.Clone(item), nil
}

// Upsert replaces or merges an item.
func (m *Table) Upsert(ctx context.Context, item datastore.Item, mode datastore.WriteMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Upsert++

	if m.upsertError != nil {
		return m.upsertError
	}
	k, err := itemKey(item)
	if err != nil {
		return err
	}
	m.write(k, item, mode)
	return nil
}

// Delete removes an item. Deleting a missing item is not an error.
func (m *Table) Delete(ctx context.Context, partitionKey, rowKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Delete++

	if m.deleteError != nil {
		return m.deleteError
	}
	m.remove(key{partitionKey, rowKey})
	return nil
}

// QuerySegment serves one segment. Next is only set when another matching
// item exists after the segment.
func (m *Table) QuerySegment(ctx context.Context, query datastore.Query, cursor datastore.Cursor) (datastore.Segment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Query++

	if m.queryError != nil && m.calls.Query >= m.queryErrorAt {
		return datastore.Segment{}, m.queryError
	}
	if err := ctx.Err(); err != nil {
		return datastore.Segment{}, err
	}
	m.sort()

	limit := m.segmentSize
	if query.Limit > 0 && int(query.Limit) < limit {
		limit = int(query.Limit)
	}
	match := predicate(query.Filter)
	partition, pinned := query.Filter.Partition()

	start := 0
	switch {
	case cursor != nil:
		after := key{cursor[storagemodels.AttrPartitionKey], cursor[storagemodels.AttrRowKey]}
		start, _ = slices.BinarySearchFunc(m.keys, after, compareKeys)
		if start < len(m.keys) && m.keys[start] == after {
			start++
		}
	case pinned:
		start, _ = slices.BinarySearchFunc(m.keys, key{pk: partition}, compareKeys)
	}

	var seg datastore.Segment
	var last key
	for i := start; i < len(m.keys); i++ {
		k := m.keys[i]
		if pinned && k.pk != partition {
			break
		}
		item := m.items[k]
		if !match(item) {
			continue
		}
		if len(seg.Items) == limit {
			seg.Next = datastore.Cursor{
				storagemodels.AttrPartitionKey: last.pk,
				storagemodels.AttrRowKey:       last.rk,
			}
			break
		}
		seg.Items = append(seg.Items, maps.Clone(item))
		last = k
	}
	return seg, nil
}

// ExecuteBatch applies all operations or none.
func (m *Table) ExecuteBatch(ctx context.Context, ops []datastore.BatchOperation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Batch++

	if len(ops) == 0 || len(ops) > datastore.MaxBatchSize {
		return errors.NewValidationError("ops", fmt.Sprintf("batch must hold 1..%d operations, got %d", datastore.MaxBatchSize, len(ops)))
	}
	if m.batchError != nil && m.calls.Batch == m.batchErrorAt {
		return m.batchError
	}

	keys := make([]key, len(ops))
	for i, op := range ops {
		k, err := itemKey(op.Item)
		if err != nil {
			return err
		}
		if op.Action == datastore.BatchDelete {
			if _, ok := m.items[k]; !ok {
				return errors.NewNotFoundError(m.name, k.pk, k.rk)
			}
		}
		keys[i] = k
	}

	for i, op := range ops {
		switch op.Action {
		case datastore.BatchDelete:
			m.remove(keys[i])
		default:
			m.write(keys[i], op.Item, datastore.Merge)
		}
	}
	m.calls.Batched = append(m.calls.Batched, len(ops))
	return nil
}

// Seed inserts items directly, stamping a timestamp on those that lack one.
func (m *Table) Seed(items ...datastore.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, item := range items {
		k, err := itemKey(item)
		if err != nil {
			return err
		}
		stored := maps.Clone(item)
		if _, ok := stored[storagemodels.AttrTimestamp]; !ok {
			stored[storagemodels.AttrTimestamp] = m.now()
		}
		m.put(k, stored)
	}
	return nil
}

// Calls returns a snapshot of the operation counters.
func (m *Table) Calls() Calls {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.calls
	c.Batched = slices.Clone(m.calls.Batched)
	return c
}

// Items returns copies of all items in key order.
func (m *Table) Items() []datastore.Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sort()

	out := make([]datastore.Item, 0, len(m.keys))
	for _, k := range m.keys {
		out = append(out, maps.Clone(m.items[k]))
	}
	return out
}

// Count returns the number of stored items.
func (m *Table) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// Clear removes all data and resets the counters.
func (m *Table) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = make(map[key]datastore.Item)
	m.keys = nil
	m.sorted = true
	m.calls = Calls{}
}

func (m *Table) write(k key, item datastore.Item, mode datastore.WriteMode) {
	stored := maps.Clone(item)
	if existing, ok := m.items[k]; ok && mode == datastore.Merge {
		stored = maps.Clone(existing)
		maps.Copy(stored, item)
	}
	stored[storagemodels.AttrTimestamp] = m.now()
	m.put(k, stored)
}

func (m *Table) put(k key, item datastore.Item) {
	if _, exists := m.items[k]; !exists {
		m.keys = append(m.keys, k)
		m.sorted = false
	}
	m.items[k] = item
}

func (m *Table) remove(k key) {
	if _, ok := m.items[k]; !ok {
		return
	}
	delete(m.items, k)
	m.sort()
	if i, found := slices.BinarySearchFunc(m.keys, k, compareKeys); found {
		m.keys = slices.Delete(m.keys, i, i+1)
	}
}

func (m *Table) sort() {
	if m.sorted {
		return
	}
	slices.SortFunc(m.keys, compareKeys)
	m.sorted = true
}

func (m *Table) now() types.AttributeValue {
	return &types.AttributeValueMemberS{Value: storagemodels.FormatTimestamp(m.clock())}
}

func itemKey(item datastore.Item) (key, error) {
	pk, ok := stringAttr(item, storagemodels.AttrPartitionKey)
	if !ok || pk == "" {
		return key{}, errors.NewValidationError(storagemodels.AttrPartitionKey, "item has no partition key")
	}
	rk, ok := stringAttr(item, storagemodels.AttrRowKey)
	if !ok || rk == "" {
		return key{}, errors.NewValidationError(storagemodels.AttrRowKey, "item has no row key")
	}
	return key{pk, rk}, nil
}

func stringAttr(item datastore.Item, name string) (string, bool) {
	s, ok := item[name].(*types.AttributeValueMemberS)
	if !ok {
		return "", false
	}
	return s.Value, true
}

// predicate compiles a filter into a matcher over raw items.
func predicate(f filter.Filter) func(datastore.Item) bool {
	match, ok := filter.Fold(f,
		func(field string, op filter.Op, operand filter.Value) func(datastore.Item) bool {
			return func(item datastore.Item) bool {
				stored, ok := attrValue(item[field])
				if !ok {
					return false
				}
				return filter.Evaluate(op, stored, operand)
			}
		},
		func(l, r func(datastore.Item) bool) func(datastore.Item) bool {
			return func(item datastore.Item) bool { return l(item) && r(item) }
		},
		func(l, r func(datastore.Item) bool) func(datastore.Item) bool {
			return func(item datastore.Item) bool { return l(item) || r(item) }
		},
	)
	if !ok {
		return func(datastore.Item) bool { return true }
	}
	return match
}

func attrValue(av types.AttributeValue) (filter.Value, bool) {
	switch tv := av.(type) {
	case *types.AttributeValueMemberS:
		return filter.NewValue(tv.Value), true
	case *types.AttributeValueMemberBOOL:
		return filter.NewValue(tv.Value), true
	case *types.AttributeValueMemberN:
		if i, err := strconv.ParseInt(tv.Value, 10, 64); err == nil {
			return filter.NewValue(i), true
		}
		if f, err := strconv.ParseFloat(tv.Value, 64); err == nil {
			return filter.NewValue(f), true
		}
	}
	return filter.Value{}, false
}
