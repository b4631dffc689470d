/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package graph

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suparena/deliverystore/directory"
	storeerrors "github.com/suparena/deliverystore/errors"
)

// directoryServer answers $batch calls from a fixed user set. Ids listed in
// forbidden answer 403.
func directoryServer(t *testing.T, users map[string]directory.User, forbidden map[string]bool, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/$batch", r.URL.Path)
		_, err := uuid.Parse(r.Header.Get("client-request-id"))
		assert.NoError(t, err)

		var req batchRequest
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			return
		}

		var resp batchResponse
		for _, sub := range req.Requests {
			id := strings.TrimPrefix(strings.SplitN(sub.URL, "?", 2)[0], "/users/")
			switch u, ok := users[id]; {
			case forbidden[id]:
				resp.Responses = append(resp.Responses, subResponse{ID: sub.ID, Status: 403, Body: json.RawMessage(`{"error":{"code":"Authorization_RequestDenied"}}`)})
			case ok:
				body, _ := json.Marshal(u)
				resp.Responses = append(resp.Responses, subResponse{ID: sub.ID, Status: 200, Body: body})
			default:
				resp.Responses = append(resp.Responses, subResponse{ID: sub.ID, Status: 404, Body: json.RawMessage(`{}`)})
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestClient_GetBatchByUserIDs(t *testing.T) {
	var calls atomic.Int32
	srv := directoryServer(t, map[string]directory.User{
		"u1": {ID: "u1", DisplayName: "Ada", UserPrincipalName: "ada@contoso.com"},
		"u2": {ID: "u2", DisplayName: "Grace", UserPrincipalName: "grace_x.com#EXT#@contoso.com"},
	}, nil, &calls)
	defer srv.Close()

	client := New(srv.URL, WithHTTPClient(srv.Client()))
	users, err := client.GetBatchByUserIDs(context.Background(), [][]string{{"u1", "missing"}, {"u2"}, {}})
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "Ada", users[0].DisplayName)
	assert.Equal(t, directory.UserTypeGuest, users[1].UserType())
	assert.Equal(t, int32(2), calls.Load(), "empty groups are not sent")
}

func TestClient_ForbiddenPerUser(t *testing.T) {
	var calls atomic.Int32
	srv := directoryServer(t, map[string]directory.User{"u1": {ID: "u1"}}, map[string]bool{"u2": true}, &calls)
	defer srv.Close()

	_, err := New(srv.URL).GetBatchByUserIDs(context.Background(), [][]string{{"u1", "u2"}})
	require.Error(t, err)
	assert.True(t, storeerrors.IsForbidden(err))
}

func TestClient_StatusErrors(t *testing.T) {
	tests := []struct {
		status    int
		forbidden bool
	}{
		{http.StatusForbidden, true},
		{http.StatusInternalServerError, false},
		{http.StatusTooManyRequests, false},
	}
	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", tt.status)
		}))

		_, err := New(srv.URL).GetBatchByUserIDs(context.Background(), [][]string{{"u1"}})
		require.Error(t, err)
		assert.Equal(t, tt.forbidden, storeerrors.IsForbidden(err), "status %d", tt.status)
		srv.Close()
	}
}

func TestClient_MalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	_, err := New(srv.URL).GetBatchByUserIDs(context.Background(), [][]string{{"u1"}})
	require.Error(t, err)
	assert.False(t, storeerrors.IsForbidden(err))
}
