/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package deliverystore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/suparena/deliverystore/datastore"
	"github.com/suparena/deliverystore/datastore/ddb"
	"github.com/suparena/deliverystore/datastore/mock"
	"github.com/suparena/deliverystore/logging"
	"github.com/suparena/deliverystore/notification"
	"github.com/suparena/deliverystore/registry"
	"github.com/suparena/deliverystore/repository"
)

// TableFactory opens the table described by def.
type TableFactory func(ctx context.Context, def registry.TableDefinition) (datastore.Table, error)

// MemoryTables returns a factory of in-memory tables.
func MemoryTables() TableFactory {
	return func(_ context.Context, def registry.TableDefinition) (datastore.Table, error) {
		return mock.New(def.Name), nil
	}
}

// DynamoDBTables returns a factory of DynamoDB tables named prefix+def.Name.
// Missing tables are created.
func DynamoDBTables(client ddb.API, prefix string) TableFactory {
	return func(ctx context.Context, def registry.TableDefinition) (datastore.Table, error) {
		var opts []ddb.Option
		if def.PartitionKeyTemplate != "" || def.SortKeyTemplate != "" {
			schema := ddb.DefaultKeySchema
			if def.PartitionKeyTemplate != "" {
				schema.PartitionKey = def.PartitionKeyTemplate
			}
			if def.SortKeyTemplate != "" {
				schema.SortKey = def.SortKeyTemplate
			}
			opts = append(opts, ddb.WithKeySchema(schema))
		}

		table := ddb.NewTable(client, prefix+def.Name, opts...)
		if err := table.EnsureExists(ctx); err != nil {
			return nil, err
		}
		return table, nil
	}
}

// Stores bundles the repositories of the delivery tables. It is safe for
// concurrent use.
type Stores struct {
	SentNotifications *notification.SentNotificationRepository
	Teams             *notification.TeamDataRepository
	Users             *notification.UserDataRepository
	UserTypes         *notification.UserTypeService

	mu     sync.RWMutex
	tables map[string]datastore.Table
}

// Open opens every delivery table through factory and builds the repositories.
func Open(ctx context.Context, factory TableFactory, logger logging.Logger) (*Stores, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Stores{tables: make(map[string]datastore.Table)}

	sent, err := open[notification.SentNotification](ctx, s, factory)
	if err != nil {
		return nil, err
	}
	teams, err := open[notification.TeamData](ctx, s, factory)
	if err != nil {
		return nil, err
	}
	users, err := open[notification.UserData](ctx, s, factory)
	if err != nil {
		return nil, err
	}

	opt := repository.WithLogger(logger)
	s.SentNotifications = notification.NewSentNotificationRepository(sent, opt)
	s.Teams = notification.NewTeamDataRepository(teams, opt)
	s.Users = notification.NewUserDataRepository(users, opt)
	s.UserTypes = notification.NewUserTypeService(s.Users)
	return s, nil
}

func open[T any](ctx context.Context, s *Stores, factory TableFactory) (datastore.Table, error) {
	def, ok := registry.TableFor[T]()
	if !ok {
		var zero T
		return nil, fmt.Errorf("no table registered for %T", zero)
	}
	table, err := factory(ctx, def)
	if err != nil {
		return nil, fmt.Errorf("failed to open table %s: %w", def.Name, err)
	}
	if err := s.register(def.Name, table); err != nil {
		return nil, err
	}
	return table, nil
}

func (s *Stores) register(name string, table datastore.Table) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tables[name]; exists {
		return fmt.Errorf("table %q already opened", name)
	}
	s.tables[name] = table
	return nil
}

// Table returns the opened table registered as name.
func (s *Stores) Table(name string) (datastore.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	table, exists := s.tables[name]
	if !exists {
		return nil, fmt.Errorf("table %q not found", name)
	}
	return table, nil
}

// TableNames lists the opened tables by logical name.
func (s *Stores) TableNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
