/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/suparena/deliverystore/directory"
	storeerrors "github.com/suparena/deliverystore/errors"
)

const serviceName = "directory"

// Client resolves users through the directory's JSON $batch endpoint.
// Authentication is the job of the supplied http.Client's transport.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

var _ directory.BatchLookup = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.httpClient = c
	}
}

// New creates a client for baseURL (e.g. "https://graph.microsoft.com/v1.0").
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type batchRequest struct {
	Requests []subRequest `json:"requests"`
}

type subRequest struct {
	ID     string `json:"id"`
	Method string `json:"method"`
	URL    string `json:"url"`
}

type batchResponse struct {
	Responses []subResponse `json:"responses"`
}

type subResponse struct {
	ID     string          `json:"id"`
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

// GetBatchByUserIDs issues one $batch call per group. Missing users are
// skipped; a 403 on the call or on any user yields a ForbiddenError.
func (c *Client) GetBatchByUserIDs(ctx context.Context, groups [][]string) ([]directory.User, error) {
	var users []directory.User
	for _, group := range groups {
		if len(group) == 0 {
			continue
		}
		resolved, err := c.lookup(ctx, group)
		if err != nil {
			return nil, err
		}
		users = append(users, resolved...)
	}
	return users, nil
}

func (c *Client) lookup(ctx context.Context, ids []string) ([]directory.User, error) {
	batch := batchRequest{Requests: make([]subRequest, len(ids))}
	for i, id := range ids {
		batch.Requests[i] = subRequest{
			ID:     strconv.Itoa(i),
			Method: http.MethodGet,
			URL:    "/users/" + url.PathEscape(id) + "?$select=id,displayName,userPrincipalName",
		}
	}

	body, err := json.Marshal(batch)
	if err != nil {
		return nil, fmt.Errorf("failed to encode batch request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/$batch", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create batch request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("client-request-id", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("batch request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden {
		msg, _ := io.ReadAll(resp.Body)
		return nil, storeerrors.NewForbiddenError(serviceName, string(msg))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("batch request returned status=%d, body=%s", resp.StatusCode, string(msg))
	}

	var out batchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode batch response: %w", err)
	}

	users := make([]directory.User, 0, len(out.Responses))
	for _, r := range out.Responses {
		switch {
		case r.Status == http.StatusNotFound:
			continue
		case r.Status == http.StatusForbidden:
			return nil, storeerrors.NewForbiddenError(serviceName, string(r.Body))
		case r.Status < 200 || r.Status >= 300:
			return nil, fmt.Errorf("lookup %s returned status=%d, body=%s", r.ID, r.Status, string(r.Body))
		}

		var u directory.User
		if err := json.Unmarshal(r.Body, &u); err != nil {
			return nil, fmt.Errorf("failed to decode user in response %s: %w", r.ID, err)
		}
		users = append(users, u)
	}
	return users, nil
}
