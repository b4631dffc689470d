/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package recipients

import (
	"context"

	storeerrors "github.com/suparena/deliverystore/errors"
	"github.com/suparena/deliverystore/logging"
	"github.com/suparena/deliverystore/notification"
	"github.com/suparena/deliverystore/storagemodels"
)

const (
	// DefaultPageSize is the number of records requested per segment.
	DefaultPageSize = 1000
	// DefaultMaxResultSize caps the records returned by one read.
	DefaultMaxResultSize = 100000
)

// Result is a bounded snapshot of a notification's recipients.
type Result struct {
	Recipients []notification.SentNotification
	// Token resumes the read after the last recipient; nil once all recipients were read.
	Token *storagemodels.ContinuationToken
}

// Reader reads the delivery records of one notification in bounded chunks.
type Reader struct {
	repo          *notification.SentNotificationRepository
	pageSize      int
	maxResultSize int
	logger        logging.Logger
}

// Option configures a Reader.
type Option func(*Reader)

// WithPageSize sets the segment size. Non-positive values are ignored.
func WithPageSize(n int) Option {
	return func(r *Reader) {
		if n > 0 {
			r.pageSize = n
		}
	}
}

// WithMaxResultSize sets the per-call ceiling. Non-positive values are ignored.
func WithMaxResultSize(n int) Option {
	return func(r *Reader) {
		if n > 0 {
			r.maxResultSize = n
		}
	}
}

// WithLogger sets the logger for progress messages.
func WithLogger(logger logging.Logger) Option {
	return func(r *Reader) {
		r.logger = logger
	}
}

// NewReader creates a Reader over the sent notification repository.
func NewReader(repo *notification.SentNotificationRepository, opts ...Option) *Reader {
	r := &Reader{
		repo:          repo,
		pageSize:      DefaultPageSize,
		maxResultSize: DefaultMaxResultSize,
		logger:        logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ReadRecipients reads the notification's recipients from the start, stopping
// at the ceiling or when the store is exhausted.
func (r *Reader) ReadRecipients(ctx context.Context, notificationID string) (Result, error) {
	if notificationID == "" {
		return Result{}, storeerrors.NewValidationError("notificationID", "notification id is required")
	}

	page, err := r.repo.GetByCount(ctx, notificationID, r.next(0))
	if err != nil {
		return Result{}, err
	}
	return r.accumulate(ctx, notificationID, page.Items, page.Token)
}

// ReadRecipientsByToken continues a previous read from token.
func (r *Reader) ReadRecipientsByToken(ctx context.Context, notificationID string, token *storagemodels.ContinuationToken) (Result, error) {
	if notificationID == "" {
		return Result{}, storeerrors.NewValidationError("notificationID", "notification id is required")
	}
	if token == nil {
		return Result{}, storeerrors.NewValidationError("token", "continuation token is required")
	}
	return r.accumulate(ctx, notificationID, nil, token)
}

// ReadPendingRecipients returns every recipient of the notification that has
// no conversation yet.
func (r *Reader) ReadPendingRecipients(ctx context.Context, notificationID string) ([]notification.SentNotification, error) {
	if notificationID == "" {
		return nil, storeerrors.NewValidationError("notificationID", "notification id is required")
	}

	all, err := r.repo.GetAll(ctx, notificationID, 0)
	if err != nil {
		return nil, err
	}

	pending := make([]notification.SentNotification, 0, len(all))
	for _, recipient := range all {
		if recipient.IsPending() {
			pending = append(pending, recipient)
		}
	}
	return pending, nil
}

func (r *Reader) accumulate(ctx context.Context, notificationID string, recipients []notification.SentNotification, token *storagemodels.ContinuationToken) (Result, error) {
	for token != nil && len(recipients) < r.maxResultSize {
		page, err := r.repo.GetByToken(ctx, token, notificationID, r.next(len(recipients)))
		if err != nil {
			return Result{}, err
		}
		recipients = append(recipients, page.Items...)
		token = page.Token

		r.logger.Debug("read recipients page",
			"op", "ReadRecipients",
			"partition", notificationID,
			"page", len(page.Items),
			"total", len(recipients),
		)
	}
	return Result{Recipients: recipients, Token: token}, nil
}

// next is the size of the following request given how many records are held.
func (r *Reader) next(held int) int {
	return min(r.pageSize, r.maxResultSize-held)
}
