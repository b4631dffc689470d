/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package filter builds table query predicates: comparisons on record
// attributes combined with logical AND / OR. The zero Filter is the empty
// filter and matches every record.
package filter

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/suparena/deliverystore/storagemodels"
)

// Op is a comparison operator.
type Op string

const (
	Equal          Op = "eq"
	NotEqual       Op = "ne"
	LessThan       Op = "lt"
	LessOrEqual    Op = "le"
	GreaterThan    Op = "gt"
	GreaterOrEqual Op = "ge"
)

type nodeKind int

const (
	kindCondition nodeKind = iota
	kindAnd
	kindOr
)

type node struct {
	kind  nodeKind
	field string
	op    Op
	value Value
	left  *node
	right *node
}

// Filter is an immutable predicate tree.
type Filter struct {
	root *node
}

// IsEmpty reports whether the filter has no predicate.
func (f Filter) IsEmpty() bool {
	return f.root == nil
}

// Condition compares a record attribute with a value. Supported value types
// are string, signed integers, floats, bool and time.Time; anything else is
// compared by its fmt.Sprint text.
func Condition(field string, op Op, value any) Filter {
	return Filter{root: &node{kind: kindCondition, field: field, op: op, value: NewValue(value)}}
}

// Equals is shorthand for Condition(field, Equal, value).
func Equals(field string, value any) Filter {
	return Condition(field, Equal, value)
}

// DateCondition compares a timestamp attribute with t.
func DateCondition(field string, op Op, t time.Time) Filter {
	return Condition(field, op, t)
}

// PartitionKey matches records in the given partition.
func PartitionKey(partition string) Filter {
	return Equals(storagemodels.AttrPartitionKey, partition)
}

// RowKeys matches records whose row key is one of keys. An empty key list
// yields the empty filter.
func RowKeys(keys []string) Filter {
	var f Filter
	for _, key := range keys {
		f = Or(f, Equals(storagemodels.AttrRowKey, key))
	}
	return f
}

// And joins two filters. An empty operand yields the other operand unchanged.
func And(left, right Filter) Filter {
	return combine(kindAnd, left, right)
}

// Or works like And with logical OR.
func Or(left, right Filter) Filter {
	return combine(kindOr, left, right)
}

func combine(kind nodeKind, left, right Filter) Filter {
	switch {
	case left.IsEmpty():
		return right
	case right.IsEmpty():
		return left
	}
	return Filter{root: &node{kind: kind, left: left.root, right: right.root}}
}

// Partition returns the partition pinned by an equality on PartitionKey that
// is reachable through AND nodes only.
func (f Filter) Partition() (string, bool) {
	return partitionOf(f.root)
}

func partitionOf(n *node) (string, bool) {
	if n == nil {
		return "", false
	}
	switch n.kind {
	case kindCondition:
		if n.field == storagemodels.AttrPartitionKey && n.op == Equal {
			if s, ok := n.value.raw.(string); ok {
				return s, true
			}
		}
	case kindAnd:
		if p, ok := partitionOf(n.left); ok {
			return p, true
		}
		return partitionOf(n.right)
	}
	return "", false
}

// String renders the filter in OData form, e.g.
// (PartitionKey eq 'n1') and (Timestamp le datetime'2026-01-02T00:00:00.000Z').
// The empty filter renders as "".
func (f Filter) String() string {
	s, _ := Fold(f,
		func(field string, op Op, v Value) string {
			return fmt.Sprintf("%s %s %s", field, op, v)
		},
		func(l, r string) string { return "(" + l + ") and (" + r + ")" },
		func(l, r string) string { return "(" + l + ") or (" + r + ")" },
	)
	return s
}

// Fold reduces the filter bottom-up. ok is false for the empty filter.
func Fold[R any](f Filter, leaf func(field string, op Op, v Value) R, and, or func(l, r R) R) (result R, ok bool) {
	if f.root == nil {
		return result, false
	}
	return fold(f.root, leaf, and, or), true
}

func fold[R any](n *node, leaf func(string, Op, Value) R, and, or func(l, r R) R) R {
	switch n.kind {
	case kindAnd:
		return and(fold(n.left, leaf, and, or), fold(n.right, leaf, and, or))
	case kindOr:
		return or(fold(n.left, leaf, and, or), fold(n.right, leaf, and, or))
	default:
		return leaf(n.field, n.op, n.value)
	}
}

// Value is a normalized comparison operand.
type Value struct {
	raw  any
	date bool
}

// NewValue normalizes v: integers become int64, floats float64, and
// time.Time the fixed-width timestamp string used by the store.
func NewValue(v any) Value {
	switch tv := v.(type) {
	case string:
		return Value{raw: tv}
	case bool:
		return Value{raw: tv}
	case int:
		return Value{raw: int64(tv)}
	case int32:
		return Value{raw: int64(tv)}
	case int64:
		return Value{raw: tv}
	case float32:
		return Value{raw: float64(tv)}
	case float64:
		return Value{raw: tv}
	case time.Time:
		return Value{raw: storagemodels.FormatTimestamp(tv), date: true}
	default:
		return Value{raw: fmt.Sprint(v)}
	}
}

// Raw returns the normalized operand: string, int64, float64 or bool.
func (v Value) Raw() any {
	return v.raw
}

// IsDate reports whether the operand was built from a time.Time.
func (v Value) IsDate() bool {
	return v.date
}

func (v Value) String() string {
	switch tv := v.raw.(type) {
	case string:
		quoted := "'" + strings.ReplaceAll(tv, "'", "''") + "'"
		if v.date {
			return "datetime" + quoted
		}
		return quoted
	case int64:
		return strconv.FormatInt(tv, 10)
	case float64:
		return strconv.FormatFloat(tv, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(tv)
	default:
		return fmt.Sprint(tv)
	}
}

// Evaluate applies op to a stored value and an operand. Mismatched kinds never
// match; bools only support Equal and NotEqual.
func Evaluate(op Op, stored, operand Value) bool {
	cmp, ok := compare(stored.raw, operand.raw)
	if !ok {
		return false
	}
	switch op {
	case Equal:
		return cmp == 0
	case NotEqual:
		return cmp != 0
	}
	if _, isBool := stored.raw.(bool); isBool {
		return false
	}
	switch op {
	case LessThan:
		return cmp < 0
	case LessOrEqual:
		return cmp <= 0
	case GreaterThan:
		return cmp > 0
	case GreaterOrEqual:
		return cmp >= 0
	}
	return false
}

func compare(a, b any) (int, bool) {
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(av, bv), true
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 0, false
		}
		if av == bv {
			return 0, true
		}
		return 1, true
	}
	af, ok := number(a)
	if !ok {
		return 0, false
	}
	bf, ok := number(b)
	if !ok {
		return 0, false
	}
	switch {
	case af < bf:
		return -1, true
	case af > bf:
		return 1, true
	}
	return 0, true
}

func number(v any) (float64, bool) {
	switch tv := v.(type) {
	case int64:
		return float64(tv), true
	case float64:
		return tv, true
	}
	return 0, false
}
