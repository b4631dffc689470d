/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package notification

import (
	"github.com/suparena/deliverystore/datastore"
	"github.com/suparena/deliverystore/registry"
	"github.com/suparena/deliverystore/repository"
	"github.com/suparena/deliverystore/storagemodels"
)

type (
	SentNotificationRepository = repository.Repository[SentNotification]
	TeamDataRepository         = repository.Repository[TeamData]
	UserDataRepository         = repository.Repository[UserData]
)

// NewSentNotificationRepository creates the repository of delivery outcomes.
func NewSentNotificationRepository(table datastore.Table, opts ...repository.Option) *SentNotificationRepository {
	return newRepository[SentNotification](table, opts...)
}

// NewTeamDataRepository creates the repository of installed teams.
func NewTeamDataRepository(table datastore.Table, opts ...repository.Option) *TeamDataRepository {
	return newRepository[TeamData](table, opts...)
}

// NewUserDataRepository creates the repository of cached users.
func NewUserDataRepository(table datastore.Table, opts ...repository.Option) *UserDataRepository {
	return newRepository[UserData](table, opts...)
}

func newRepository[T storagemodels.Entity](table datastore.Table, opts ...repository.Option) *repository.Repository[T] {
	def, _ := registry.TableFor[T]()
	return repository.New[T](table, def.DefaultPartition, opts...)
}
