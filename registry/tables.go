/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package registry

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// TableDefinition describes the table a record type is stored in.
type TableDefinition struct {
	// Name is the logical table name, before any deployment prefix.
	Name string
	// DefaultPartition is used when a repository is created without one.
	DefaultPartition string
	// PartitionKeyTemplate and SortKeyTemplate derive the physical key from
	// record attributes, e.g. "NOTIFICATION#{PartitionKey}". Empty means the
	// backend default.
	PartitionKeyTemplate string
	SortKeyTemplate      string
}

var (
	byType = make(map[reflect.Type]TableDefinition)
	byName = make(map[string]reflect.Type)
	mu     sync.RWMutex
)

// RegisterTable associates record type T with a table definition.
// It panics if the table name is already registered for a different type.
func RegisterTable[T any](def TableDefinition) {
	if def.Name == "" {
		panic("table registry: empty table name")
	}
	t := typeOf[T]()

	mu.Lock()
	defer mu.Unlock()
	if existing, ok := byName[def.Name]; ok && existing != t {
		panic(fmt.Sprintf("table registry: table %q already registered for %v", def.Name, existing))
	}
	if prev, ok := byType[t]; ok {
		delete(byName, prev.Name)
	}
	byType[t] = def
	byName[def.Name] = t
}

// TableFor returns the table definition for record type T, if any.
func TableFor[T any]() (TableDefinition, bool) {
	mu.RLock()
	defer mu.RUnlock()
	def, ok := byType[typeOf[T]()]
	return def, ok
}

// GetTable returns the definition registered under name.
func GetTable(name string) (TableDefinition, error) {
	mu.RLock()
	defer mu.RUnlock()
	t, ok := byName[name]
	if !ok {
		return TableDefinition{}, fmt.Errorf("table registry: no table registered as %q", name)
	}
	return byType[t], nil
}

// Tables returns every registered definition ordered by name.
func Tables() []TableDefinition {
	mu.RLock()
	defer mu.RUnlock()
	defs := make([]TableDefinition, 0, len(byType))
	for _, def := range byType {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
