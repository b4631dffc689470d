/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package notification

import (
	"strings"

	"github.com/suparena/deliverystore/registry"
	"github.com/suparena/deliverystore/storagemodels"
)

// Table names and fixed partitions.
const (
	SentNotificationTable     = "SentNotificationData"
	SentNotificationPartition = "default"

	TeamDataTable     = "TeamData"
	TeamDataPartition = "TeamData"

	UserDataTable     = "UserData"
	UserDataPartition = "UserData"
)

// Delivery statuses as stored in SentNotification.DeliveryStatus.
const (
	StatusQueued            = "Queued"
	StatusSucceeded         = "Succeeded"
	StatusFailed            = "Failed"
	StatusRecipientNotFound = "RecipientNotFound"
	StatusThrottled         = "Throttled"
	StatusRetrying          = "Retrying"
)

// Recipient kinds.
const (
	RecipientTypeUser = "User"
	RecipientTypeTeam = "Team"
)

// SentNotification is the delivery outcome of one notification for one
// recipient. PartitionKey is the notification id and RowKey the recipient id.
type SentNotification struct {
	storagemodels.Record
	RecipientType  string `dynamodbav:"RecipientType,omitempty" json:"recipientType,omitempty"`
	RecipientID    string `dynamodbav:"RecipientId,omitempty" json:"recipientId,omitempty"`
	DeliveryStatus string `dynamodbav:"DeliveryStatus,omitempty" json:"deliveryStatus,omitempty"`
	StatusCode     int    `dynamodbav:"StatusCode,omitempty" json:"statusCode,omitempty"`
	// ErrorMessage is free text or a JSON error document.
	ErrorMessage   string `dynamodbav:"ErrorMessage,omitempty" json:"errorMessage,omitempty"`
	UserType       string `dynamodbav:"UserType,omitempty" json:"userType,omitempty"`
	ConversationID string `dynamodbav:"ConversationId,omitempty" json:"conversationId,omitempty"`
	ServiceURL     string `dynamodbav:"ServiceUrl,omitempty" json:"serviceUrl,omitempty"`
	TenantID       string `dynamodbav:"TenantId,omitempty" json:"tenantId,omitempty"`
	UserID         string `dynamodbav:"UserId,omitempty" json:"userId,omitempty"`

	NumberOfSendAttempts         int  `dynamodbav:"NumberOfFunctionAttemptsToSend,omitempty" json:"numberOfSendAttempts,omitempty"`
	TotalNumberOfSendThrottles   int  `dynamodbav:"TotalNumberOfSendThrottles,omitempty" json:"totalNumberOfSendThrottles,omitempty"`
	StatusFromCreateConversation bool `dynamodbav:"IsStatusCodeFromCreateConversation,omitempty" json:"statusFromCreateConversation,omitempty"`
}

// IsRecipientNotFound reports whether the recipient was missing at send time.
// The comparison ignores case.
func (s SentNotification) IsRecipientNotFound() bool {
	return strings.EqualFold(s.DeliveryStatus, StatusRecipientNotFound)
}

// IsPending reports whether no conversation has been established yet.
func (s SentNotification) IsPending() bool {
	return s.ConversationID == ""
}

// TeamData is an installed team. RowKey is the team id.
type TeamData struct {
	storagemodels.Record
	Name       string `dynamodbav:"Name,omitempty" json:"name,omitempty"`
	ServiceURL string `dynamodbav:"ServiceUrl,omitempty" json:"serviceUrl,omitempty"`
	TenantID   string `dynamodbav:"TenantId,omitempty" json:"tenantId,omitempty"`
}

// UserData is a cached user. RowKey is the directory id.
type UserData struct {
	storagemodels.Record
	AadID          string `dynamodbav:"AadId,omitempty" json:"aadId,omitempty"`
	UserID         string `dynamodbav:"UserId,omitempty" json:"userId,omitempty"`
	Name           string `dynamodbav:"Name,omitempty" json:"name,omitempty"`
	Email          string `dynamodbav:"Email,omitempty" json:"email,omitempty"`
	UserType       string `dynamodbav:"UserType,omitempty" json:"userType,omitempty"`
	ConversationID string `dynamodbav:"ConversationId,omitempty" json:"conversationId,omitempty"`
	ServiceURL     string `dynamodbav:"ServiceUrl,omitempty" json:"serviceUrl,omitempty"`
	TenantID       string `dynamodbav:"TenantId,omitempty" json:"tenantId,omitempty"`
}

func init() {
	registry.RegisterTable[SentNotification](registry.TableDefinition{
		Name:             SentNotificationTable,
		DefaultPartition: SentNotificationPartition,
	})
	registry.RegisterTable[TeamData](registry.TableDefinition{
		Name:             TeamDataTable,
		DefaultPartition: TeamDataPartition,
	})
	registry.RegisterTable[UserData](registry.TableDefinition{
		Name:             UserDataTable,
		DefaultPartition: UserDataPartition,
	})
}
