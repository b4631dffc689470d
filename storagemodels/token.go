/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"maps"

	"github.com/zeebo/xxh3"
)

// ContinuationToken marks where the next segmented read resumes.
// It is only valid against the query that produced it.
type ContinuationToken struct {
	// NextKey is the store-issued cursor.
	NextKey map[string]string `json:"k"`
	// Fingerprint identifies the query (partition + filter) the cursor belongs to.
	Fingerprint uint64 `json:"f"`
}

// QueryFingerprint hashes the canonical text of a query.
func QueryFingerprint(query string) uint64 {
	return xxh3.HashString(query)
}

// NewContinuationToken returns nil when cursor is empty, which signals exhaustion.
func NewContinuationToken(cursor map[string]string, query string) *ContinuationToken {
	if len(cursor) == 0 {
		return nil
	}
	return &ContinuationToken{
		NextKey:     maps.Clone(cursor),
		Fingerprint: QueryFingerprint(query),
	}
}

// Matches reports whether the token was issued for the given query.
func (t *ContinuationToken) Matches(query string) bool {
	return t != nil && t.Fingerprint == QueryFingerprint(query)
}

// Encode serializes the token into a URL-safe string.
func (t *ContinuationToken) Encode() (string, error) {
	if t == nil {
		return "", nil
	}
	raw, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("failed to encode continuation token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// DecodeContinuationToken parses a token produced by Encode.
// An empty string decodes to a nil token.
func DecodeContinuationToken(s string) (*ContinuationToken, error) {
	if s == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("malformed continuation token: %w", err)
	}
	var t ContinuationToken
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("malformed continuation token: %w", err)
	}
	if len(t.NextKey) == 0 {
		return nil, fmt.Errorf("malformed continuation token: empty cursor")
	}
	return &t, nil
}
