/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

import (
	"time"

	"github.com/go-openapi/strfmt"
)

// Attribute names shared by every record.
const (
	AttrPartitionKey = "PartitionKey"
	AttrRowKey       = "RowKey"
	AttrTimestamp    = "Timestamp"
)

// Entity is the capability every repository type must provide: a fixed
// two-part key. The zero value of an Entity must be usable as a decode target.
type Entity interface {
	Keys() (partitionKey, rowKey string)
}

// Record is embedded by stored entities. Timestamp is assigned by the store on
// every write; values set by callers are overwritten.
type Record struct {
	PartitionKey string    `dynamodbav:"PartitionKey" json:"partitionKey"`
	RowKey       string    `dynamodbav:"RowKey" json:"rowKey"`
	Timestamp    time.Time `dynamodbav:"Timestamp" json:"timestamp"`
}

// Keys returns the partition and row key.
func (r Record) Keys() (string, string) {
	return r.PartitionKey, r.RowKey
}

// FormatTimestamp renders t in the fixed-width UTC form used for stored
// timestamps, so that string ordering matches time ordering.
func FormatTimestamp(t time.Time) string {
	return strfmt.DateTime(t.UTC()).String()
}

// ParseTimestamp is the inverse of FormatTimestamp.
func ParseTimestamp(s string) (time.Time, error) {
	dt, err := strfmt.ParseDateTime(s)
	if err != nil {
		return time.Time{}, err
	}
	return time.Time(dt).UTC(), nil
}
