/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package export

import (
	"context"
	"iter"

	"github.com/suparena/deliverystore/directory"
	storeerrors "github.com/suparena/deliverystore/errors"
	"github.com/suparena/deliverystore/localization"
	"github.com/suparena/deliverystore/logging"
	"github.com/suparena/deliverystore/notification"
	"github.com/suparena/deliverystore/repository"
)

// adminConsentError is the placeholder shown for redacted directory fields.
const adminConsentError = "AdminConsentError"

// UserRow is the export projection of one user delivery.
type UserRow struct {
	ID             string
	Name           string
	UPN            string
	UserType       string
	DeliveryStatus string
	StatusReason   string
}

// TeamRow is the export projection of one team delivery. Name is empty when
// the team is unknown.
type TeamRow struct {
	ID             string
	Name           string
	DeliveryStatus string
	StatusReason   string
}

// Dependencies are the collaborators of a Facade. All are required.
type Dependencies struct {
	SentNotifications *notification.SentNotificationRepository
	Teams             *notification.TeamDataRepository
	Users             *notification.UserDataRepository
	UserTypes         *notification.UserTypeService
	Directory         directory.BatchLookup
	Localizer         localization.Localizer
}

// Facade turns streams of delivery records into streams of export rows.
type Facade struct {
	deps      Dependencies
	groupSize int
	pageSize  int
	logger    logging.Logger
}

// Option configures a Facade.
type Option func(*Facade)

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) Option {
	return func(f *Facade) {
		f.logger = logger
	}
}

// WithGroupSize sets the number of ids per directory batch call.
func WithGroupSize(n int) Option {
	return func(f *Facade) {
		f.groupSize = n
	}
}

// WithPageSize sets the segment size of the underlying record stream.
// Zero uses the store default.
func WithPageSize(n int) Option {
	return func(f *Facade) {
		f.pageSize = n
	}
}

// NewFacade creates a Facade.
func NewFacade(deps Dependencies, opts ...Option) (*Facade, error) {
	switch {
	case deps.SentNotifications == nil:
		return nil, storeerrors.NewValidationError("SentNotifications", "repository is required")
	case deps.Teams == nil:
		return nil, storeerrors.NewValidationError("Teams", "repository is required")
	case deps.Users == nil:
		return nil, storeerrors.NewValidationError("Users", "repository is required")
	case deps.UserTypes == nil:
		return nil, storeerrors.NewValidationError("UserTypes", "service is required")
	case deps.Directory == nil:
		return nil, storeerrors.NewValidationError("Directory", "lookup is required")
	case deps.Localizer == nil:
		return nil, storeerrors.NewValidationError("Localizer", "localizer is required")
	}

	f := &Facade{
		deps:      deps,
		groupSize: directory.DefaultGroupSize,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// UserStream returns the user export stream of a notification.
func (f *Facade) UserStream(notificationID string) (*UserStream, error) {
	if notificationID == "" {
		return nil, storeerrors.NewValidationError("notificationID", "notification id is required")
	}
	return &UserStream{
		facade:         f,
		notificationID: notificationID,
		source:         f.deps.SentNotifications.GetStream(notificationID, f.pageSize),
	}, nil
}

// TeamStream returns the team export stream of a notification.
func (f *Facade) TeamStream(notificationID string) (*TeamStream, error) {
	if notificationID == "" {
		return nil, storeerrors.NewValidationError("notificationID", "notification id is required")
	}
	return &TeamStream{
		facade: f,
		source: f.deps.SentNotifications.GetStream(notificationID, f.pageSize),
	}, nil
}

// UserStream yields one page of user rows per stored segment.
//
// Once the directory denies access, every later row of the stream is
// redacted, even if a later lookup succeeds. A UserStream is single-pass and
// must not be shared between goroutines.
type UserStream struct {
	facade         *Facade
	notificationID string
	source         *repository.Stream[notification.SentNotification]
	forbidden      bool
	done           bool
}

// Forbidden reports whether the directory has denied access during this stream.
func (s *UserStream) Forbidden() bool {
	return s.forbidden
}

// Next returns the next page of rows. ok is false once the records are
// exhausted. An error ends the stream: later calls return ok == false.
func (s *UserStream) Next(ctx context.Context) (rows []UserRow, ok bool, err error) {
	if s.done {
		return nil, false, nil
	}
	rows, ok, err = s.next(ctx)
	if err != nil || !ok {
		s.done = true
		return nil, false, err
	}
	return rows, true, nil
}

func (s *UserStream) next(ctx context.Context) ([]UserRow, bool, error) {
	records, ok, err := s.source.Next(ctx)
	if err != nil || !ok {
		return nil, ok, err
	}

	users, err := s.resolve(ctx, records)
	if err != nil {
		return nil, false, err
	}

	rows := make([]UserRow, 0, len(records))
	for _, record := range records {
		row, err := s.row(ctx, record, users)
		if err != nil {
			return nil, false, err
		}
		rows = append(rows, row)
	}
	return rows, true, nil
}

// Pages adapts the stream to a range-over-func sequence.
func (s *UserStream) Pages(ctx context.Context) iter.Seq2[[]UserRow, error] {
	return pages(ctx, s.Next)
}

// resolve looks up the page's recipients in the directory, skipping those
// already known to be missing.
func (s *UserStream) resolve(ctx context.Context, records []notification.SentNotification) (map[string]directory.User, error) {
	ids := make([]string, 0, len(records))
	for _, record := range records {
		if !record.IsRecipientNotFound() {
			ids = append(ids, record.RowKey)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	users, err := s.facade.deps.Directory.GetBatchByUserIDs(ctx, directory.Groups(ids, s.facade.groupSize))
	if err != nil {
		if !storeerrors.IsForbidden(err) {
			return nil, err
		}
		if !s.forbidden {
			s.facade.logger.Warn("directory access denied, redacting export",
				"op", "UserStream",
				"partition", s.notificationID,
				"error", err,
			)
		}
		s.forbidden = true
		return nil, nil
	}
	return directory.Index(users), nil
}

func (s *UserStream) row(ctx context.Context, record notification.SentNotification, users map[string]directory.User) (UserRow, error) {
	l := s.facade.deps.Localizer
	user, found := users[record.RowKey]

	userType := record.UserType
	if userType == "" {
		var err error
		if userType, err = s.legacyUserType(ctx, record.RowKey, user, found); err != nil {
			return UserRow{}, err
		}
	}

	row := UserRow{
		ID:             record.RowKey,
		DeliveryStatus: l.Localize(record.DeliveryStatus),
		StatusReason:   StatusReason(l, record.ErrorMessage, record.StatusCode),
	}
	if s.forbidden {
		row.Name = l.Localize(adminConsentError)
		row.UPN = l.Localize(adminConsentError)
		if userType == "" {
			userType = adminConsentError
		}
		row.UserType = l.Localize(userType)
		return row, nil
	}

	row.Name = user.DisplayName
	row.UPN = user.UserPrincipalName
	row.UserType = userType
	return row, nil
}

// legacyUserType resolves the user type of records written before the type
// was stored with the delivery: the cached user first, then the directory
// entry, which is written back to the cache.
func (s *UserStream) legacyUserType(ctx context.Context, rowKey string, user directory.User, found bool) (string, error) {
	cached, err := s.facade.deps.Users.Get(ctx, notification.UserDataPartition, rowKey)
	if err != nil {
		return "", err
	}

	var userType string
	if cached != nil {
		userType = cached.UserType
	}
	if userType != "" || !found {
		return userType, nil
	}

	userType = user.UserType()
	if err := s.facade.deps.UserTypes.UpdateUserTypeForExistingUser(ctx, cached, userType); err != nil {
		return "", err
	}
	return userType, nil
}

// TeamStream yields one page of team rows per stored segment.
type TeamStream struct {
	facade *Facade
	source *repository.Stream[notification.SentNotification]
	done   bool
}

// Next returns the next page of rows. ok is false once the records are
// exhausted. An error ends the stream: later calls return ok == false.
func (s *TeamStream) Next(ctx context.Context) (rows []TeamRow, ok bool, err error) {
	if s.done {
		return nil, false, nil
	}
	rows, ok, err = s.next(ctx)
	if err != nil || !ok {
		s.done = true
		return nil, false, err
	}
	return rows, true, nil
}

func (s *TeamStream) next(ctx context.Context) ([]TeamRow, bool, error) {
	records, ok, err := s.source.Next(ctx)
	if err != nil || !ok {
		return nil, ok, err
	}

	l := s.facade.deps.Localizer
	rows := make([]TeamRow, 0, len(records))
	for _, record := range records {
		team, err := s.facade.deps.Teams.Get(ctx, notification.TeamDataPartition, record.RowKey)
		if err != nil {
			return nil, false, err
		}

		row := TeamRow{
			ID:             record.RowKey,
			DeliveryStatus: l.Localize(record.DeliveryStatus),
			StatusReason:   StatusReason(l, record.ErrorMessage, record.StatusCode),
		}
		if team != nil {
			row.Name = team.Name
		}
		rows = append(rows, row)
	}
	return rows, true, nil
}

// Pages adapts the stream to a range-over-func sequence.
func (s *TeamStream) Pages(ctx context.Context) iter.Seq2[[]TeamRow, error] {
	return pages(ctx, s.Next)
}

func pages[R any](ctx context.Context, next func(context.Context) ([]R, bool, error)) iter.Seq2[[]R, error] {
	return func(yield func([]R, error) bool) {
		for {
			rows, ok, err := next(ctx)
			if err != nil {
				yield(nil, err)
				return
			}
			if !ok || !yield(rows, nil) {
				return
			}
		}
	}
}
