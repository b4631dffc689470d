/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package directory

import (
	"context"
	"slices"
	"strings"
)

// DefaultGroupSize is the number of ids sent in one batch lookup.
const DefaultGroupSize = 15

// User types derived from directory records.
const (
	UserTypeMember = "Member"
	UserTypeGuest  = "Guest"
)

// guestMarker appears in the principal name of external accounts.
const guestMarker = "#ext#"

// User is a directory entry.
type User struct {
	ID                string `json:"id"`
	DisplayName       string `json:"displayName"`
	UserPrincipalName string `json:"userPrincipalName"`
}

// UserType classifies the user as Guest or Member from the principal name.
func (u User) UserType() string {
	if strings.Contains(strings.ToLower(u.UserPrincipalName), guestMarker) {
		return UserTypeGuest
	}
	return UserTypeMember
}

// BatchLookup resolves directory users by id. Ids without a directory entry
// are omitted from the result. Authorization denial is reported with an error
// satisfying errors.IsForbidden.
type BatchLookup interface {
	GetBatchByUserIDs(ctx context.Context, groups [][]string) ([]User, error)
}

// Groups splits ids into groups of at most size ids. A non-positive size
// uses DefaultGroupSize.
func Groups(ids []string, size int) [][]string {
	if size <= 0 {
		size = DefaultGroupSize
	}
	return slices.Collect(slices.Chunk(ids, size))
}

// Index maps users by id.
func Index(users []User) map[string]User {
	m := make(map[string]User, len(users))
	for _, u := range users {
		m[u.ID] = u
	}
	return m
}
