/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package export_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/suparena/deliverystore/datastore/mock"
	"github.com/suparena/deliverystore/directory"
	storeerrors "github.com/suparena/deliverystore/errors"
	"github.com/suparena/deliverystore/export"
	"github.com/suparena/deliverystore/localization"
	"github.com/suparena/deliverystore/notification"
	"github.com/suparena/deliverystore/storagemodels"
)

// fakeDirectory answers from a user set. Calls listed in failAt return the
// mapped error instead (1-based).
type fakeDirectory struct {
	mu     sync.Mutex
	users  map[string]directory.User
	failAt map[int]error
	calls  [][]string
}

func (d *fakeDirectory) GetBatchByUserIDs(_ context.Context, groups [][]string) ([]directory.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var ids []string
	for _, g := range groups {
		ids = append(ids, g...)
	}
	d.calls = append(d.calls, ids)
	if err, ok := d.failAt[len(d.calls)]; ok {
		return nil, err
	}

	var out []directory.User
	for _, id := range ids {
		if u, ok := d.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

type warnLogger struct {
	mu    sync.Mutex
	warns int
}

func (l *warnLogger) Debug(string, ...any) {}
func (l *warnLogger) Info(string, ...any)  {}
func (l *warnLogger) Error(string, ...any) {}
func (l *warnLogger) Warn(string, ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns++
}

var testLocalizer = localization.NewCatalog(language.English, map[string]string{
	"OK":                "OK",
	"AdminConsentError": "Consent required",
	"Succeeded":         "Delivered",
	"Failed":            "Failed",
	"RecipientNotFound": "Not found",
	"Guest":             "Guest user",
	"Member":            "Member user",
})

type fixture struct {
	sent      *mock.Table
	teams     *mock.Table
	users     *mock.Table
	dir       *fakeDirectory
	logger    *warnLogger
	facade    *export.Facade
	sentRepo  *notification.SentNotificationRepository
	teamRepo  *notification.TeamDataRepository
	usersRepo *notification.UserDataRepository
}

func newFixture(t *testing.T, segmentSize int) *fixture {
	t.Helper()
	f := &fixture{
		sent:   mock.New(notification.SentNotificationTable).WithSegmentSize(segmentSize),
		teams:  mock.New(notification.TeamDataTable),
		users:  mock.New(notification.UserDataTable),
		dir:    &fakeDirectory{users: map[string]directory.User{}, failAt: map[int]error{}},
		logger: &warnLogger{},
	}
	f.sentRepo = notification.NewSentNotificationRepository(f.sent)
	f.teamRepo = notification.NewTeamDataRepository(f.teams)
	f.usersRepo = notification.NewUserDataRepository(f.users)

	facade, err := export.NewFacade(export.Dependencies{
		SentNotifications: f.sentRepo,
		Teams:             f.teamRepo,
		Users:             f.usersRepo,
		UserTypes:         notification.NewUserTypeService(f.usersRepo),
		Directory:         f.dir,
		Localizer:         testLocalizer,
	}, export.WithLogger(f.logger))
	require.NoError(t, err)
	f.facade = facade
	return f
}

func (f *fixture) deliver(t *testing.T, notificationID string, records ...notification.SentNotification) {
	t.Helper()
	for _, r := range records {
		r.PartitionKey = notificationID
		require.NoError(t, f.sentRepo.CreateOrUpdate(context.Background(), r))
	}
}

func (f *fixture) addUser(id, name, upn string) {
	f.dir.users[id] = directory.User{ID: id, DisplayName: name, UserPrincipalName: upn}
}

func sent(rowKey, status, userType string) notification.SentNotification {
	return notification.SentNotification{
		Record:         storagemodels.Record{RowKey: rowKey},
		DeliveryStatus: status,
		StatusCode:     201,
		UserType:       userType,
	}
}

func collectUsers(t *testing.T, stream *export.UserStream) [][]export.UserRow {
	t.Helper()
	var pages [][]export.UserRow
	for rows, err := range stream.Pages(context.Background()) {
		require.NoError(t, err)
		pages = append(pages, rows)
	}
	return pages
}

func TestStatusReason(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{"empty payload", "", "404 : OK"},
		{"error document", `{"error":{"message":"bad"}}`, "404 : bad"},
		{"plain text", "timeout", "404 : timeout"},
		{"mentions error but not json", "an error occurred", "404 : an error occurred"},
		{"json without message", `{"error":{"code":"x"}}`, `404 : {"error":{"code":"x"}}`},
		{"capitalised error is plain text", `{"Error":"boom"}`, `404 : {"Error":"boom"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, export.StatusReason(testLocalizer, tt.payload, 404))
		})
	}
}

func TestUserStream_EnrichesRows(t *testing.T) {
	f := newFixture(t, 10)
	f.addUser("u1", "Ada", "ada@contoso.com")
	f.addUser("u2", "Grace", "grace@contoso.com")

	failed := sent("u2", notification.StatusFailed, directory.UserTypeMember)
	failed.StatusCode = 403
	failed.ErrorMessage = `{"error":{"message":"Forbidden"}}`
	f.deliver(t, "n1", sent("u1", notification.StatusSucceeded, directory.UserTypeMember), failed)

	stream, err := f.facade.UserStream("n1")
	require.NoError(t, err)
	pages := collectUsers(t, stream)
	require.Len(t, pages, 1)

	assert.Equal(t, []export.UserRow{
		{ID: "u1", Name: "Ada", UPN: "ada@contoso.com", UserType: "Member", DeliveryStatus: "Delivered", StatusReason: "201 : OK"},
		{ID: "u2", Name: "Grace", UPN: "grace@contoso.com", UserType: "Member", DeliveryStatus: "Failed", StatusReason: "403 : Forbidden"},
	}, pages[0])
	assert.False(t, stream.Forbidden())
}

func TestUserStream_ForbiddenIsSticky(t *testing.T) {
	f := newFixture(t, 2)
	for i := 1; i <= 6; i++ {
		id := fmt.Sprintf("u%d", i)
		f.addUser(id, "User "+id, id+"@contoso.com")
		f.deliver(t, "n1", sent(id, notification.StatusSucceeded, directory.UserTypeMember))
	}
	f.dir.failAt[2] = storeerrors.NewForbiddenError("directory", "consent missing")

	stream, err := f.facade.UserStream("n1")
	require.NoError(t, err)
	pages := collectUsers(t, stream)
	require.Len(t, pages, 3)

	for _, row := range pages[0] {
		assert.Equal(t, "User "+row.ID, row.Name)
	}
	for _, page := range pages[1:] {
		for _, row := range page {
			assert.Equal(t, "Consent required", row.Name, "row %s", row.ID)
			assert.Equal(t, "Consent required", row.UPN)
			assert.Equal(t, "Member user", row.UserType)
			assert.Equal(t, "Delivered", row.DeliveryStatus)
		}
	}

	assert.Len(t, f.dir.calls, 3, "lookups continue after the denial")
	assert.True(t, stream.Forbidden())
	assert.Equal(t, 1, f.logger.warns)
}

func TestUserStream_RedactedUnknownUserType(t *testing.T) {
	f := newFixture(t, 10)
	f.deliver(t, "n1", sent("u1", notification.StatusSucceeded, ""))
	f.dir.failAt[1] = storeerrors.NewForbiddenError("directory", "denied")

	stream, err := f.facade.UserStream("n1")
	require.NoError(t, err)
	pages := collectUsers(t, stream)
	assert.Equal(t, "Consent required", pages[0][0].UserType)
}

func TestUserStream_StreamsAreIsolated(t *testing.T) {
	f := newFixture(t, 10)
	f.addUser("u1", "Ada", "ada@contoso.com")
	f.deliver(t, "n1", sent("u1", notification.StatusSucceeded, directory.UserTypeMember))
	f.dir.failAt[1] = storeerrors.NewForbiddenError("directory", "denied")

	denied, err := f.facade.UserStream("n1")
	require.NoError(t, err)
	collectUsers(t, denied)
	require.True(t, denied.Forbidden())

	fresh, err := f.facade.UserStream("n1")
	require.NoError(t, err)
	pages := collectUsers(t, fresh)
	assert.False(t, fresh.Forbidden())
	assert.Equal(t, "Ada", pages[0][0].Name)
}

func TestUserStream_SkipsRecipientsNotFound(t *testing.T) {
	f := newFixture(t, 3)
	f.addUser("u1", "Ada", "ada@contoso.com")
	f.addUser("u3", "Linus", "linus@contoso.com")
	f.deliver(t, "n1",
		sent("u1", notification.StatusSucceeded, directory.UserTypeMember),
		sent("u2", "recipientnotfound", directory.UserTypeMember),
		sent("u3", notification.StatusFailed, directory.UserTypeMember),
		sent("u4", notification.StatusRecipientNotFound, directory.UserTypeMember),
		sent("u5", "RECIPIENTNOTFOUND", directory.UserTypeMember),
	)

	stream, err := f.facade.UserStream("n1")
	require.NoError(t, err)
	pages := collectUsers(t, stream)
	require.Len(t, pages, 2)

	require.Len(t, f.dir.calls, 1, "a page of only missing recipients makes no lookup")
	assert.Equal(t, []string{"u1", "u3"}, f.dir.calls[0])

	var ids []string
	for _, page := range pages {
		for _, row := range page {
			ids = append(ids, row.ID)
		}
	}
	assert.Equal(t, []string{"u1", "u2", "u3", "u4", "u5"}, ids, "every record yields a row in order")
	assert.Empty(t, pages[0][1].Name)
}

func TestUserStream_DirectoryFailureEndsStream(t *testing.T) {
	f := newFixture(t, 1)
	f.deliver(t, "n1",
		sent("u1", notification.StatusSucceeded, directory.UserTypeMember),
		sent("u2", notification.StatusSucceeded, directory.UserTypeMember),
		sent("u3", notification.StatusSucceeded, directory.UserTypeMember),
	)
	boom := errors.New("directory unavailable")
	f.dir.failAt[2] = boom

	stream, err := f.facade.UserStream("n1")
	require.NoError(t, err)

	var pages int
	var errs []error
	for _, err := range stream.Pages(context.Background()) {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		pages++
	}
	assert.Equal(t, 1, pages)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], boom)
	assert.False(t, stream.Forbidden())
	assert.Len(t, f.dir.calls, 2)
}

func TestUserStream_NextAfterFailureReturnsNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 2)
	for i := 1; i <= 4; i++ {
		f.deliver(t, "n1", sent(fmt.Sprintf("u%d", i), notification.StatusSucceeded, directory.UserTypeMember))
	}
	boom := errors.New("directory unavailable")
	f.dir.failAt[1] = boom

	stream, err := f.facade.UserStream("n1")
	require.NoError(t, err)

	rows, ok, err := stream.Next(ctx)
	require.ErrorIs(t, err, boom)
	assert.False(t, ok)
	assert.Nil(t, rows)

	rows, ok, err = stream.Next(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, rows)
	assert.Len(t, f.dir.calls, 1)
	assert.Equal(t, 1, f.sent.Calls().Query)
}

func TestUserStream_LegacyUserType(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10)

	// cached type wins
	f.addUser("u1", "Ada", "ada@contoso.com")
	require.NoError(t, f.usersRepo.CreateOrUpdate(ctx, notification.UserData{
		Record:   storagemodels.Record{PartitionKey: notification.UserDataPartition, RowKey: "u1"},
		UserType: directory.UserTypeGuest,
	}))
	// cached without type, derived from directory and written back
	f.addUser("u2", "Grace", "grace_fabrikam.com#EXT#@contoso.com")
	require.NoError(t, f.usersRepo.CreateOrUpdate(ctx, notification.UserData{
		Record: storagemodels.Record{PartitionKey: notification.UserDataPartition, RowKey: "u2"},
		Name:   "Grace",
	}))
	// no cache entry, derived only
	f.addUser("u3", "Linus", "linus@contoso.com")
	// neither cache nor directory
	f.deliver(t, "n1",
		sent("u1", notification.StatusSucceeded, ""),
		sent("u2", notification.StatusSucceeded, ""),
		sent("u3", notification.StatusSucceeded, ""),
		sent("u4", notification.StatusSucceeded, ""),
	)
	writesBefore := f.users.Calls().Upsert

	stream, err := f.facade.UserStream("n1")
	require.NoError(t, err)
	rows := collectUsers(t, stream)[0]

	assert.Equal(t, directory.UserTypeGuest, rows[0].UserType)
	assert.Equal(t, directory.UserTypeGuest, rows[1].UserType)
	assert.Equal(t, directory.UserTypeMember, rows[2].UserType)
	assert.Empty(t, rows[3].UserType)

	cached, err := f.usersRepo.Get(ctx, notification.UserDataPartition, "u2")
	require.NoError(t, err)
	assert.Equal(t, directory.UserTypeGuest, cached.UserType)
	assert.Equal(t, "Grace", cached.Name)

	missing, err := f.usersRepo.Get(ctx, notification.UserDataPartition, "u3")
	require.NoError(t, err)
	assert.Nil(t, missing, "users without a cache entry are not created")

	assert.Equal(t, writesBefore+1, f.users.Calls().Upsert)
}

func TestUserStream_StoredUserTypeSkipsCache(t *testing.T) {
	f := newFixture(t, 10)
	f.deliver(t, "n1", sent("u1", notification.StatusSucceeded, directory.UserTypeMember))

	stream, err := f.facade.UserStream("n1")
	require.NoError(t, err)
	collectUsers(t, stream)
	assert.Equal(t, 0, f.users.Calls().Get)
}

func TestUserStream_CacheFailurePropagates(t *testing.T) {
	boom := errors.New("cache down")
	usersTable := mock.New(notification.UserDataTable).WithGetError(boom)
	sentTable := mock.New(notification.SentNotificationTable)
	sentRepo := notification.NewSentNotificationRepository(sentTable)
	usersRepo := notification.NewUserDataRepository(usersTable)

	r := sent("u1", notification.StatusSucceeded, "")
	r.PartitionKey = "n1"
	require.NoError(t, sentRepo.CreateOrUpdate(context.Background(), r))

	facade, err := export.NewFacade(export.Dependencies{
		SentNotifications: sentRepo,
		Teams:             notification.NewTeamDataRepository(mock.New(notification.TeamDataTable)),
		Users:             usersRepo,
		UserTypes:         notification.NewUserTypeService(usersRepo),
		Directory:         &fakeDirectory{},
		Localizer:         testLocalizer,
	})
	require.NoError(t, err)

	stream, err := facade.UserStream("n1")
	require.NoError(t, err)
	_, _, err = stream.Next(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestTeamStream(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 2)
	require.NoError(t, f.teamRepo.CreateOrUpdate(ctx, notification.TeamData{
		Record: storagemodels.Record{PartitionKey: notification.TeamDataPartition, RowKey: "t1"},
		Name:   "Platform",
	}))

	throttled := sent("t2", notification.StatusFailed, "")
	throttled.StatusCode = 429
	throttled.ErrorMessage = "throttled"
	f.deliver(t, "n1", sent("t1", notification.StatusSucceeded, ""), throttled, sent("t3", notification.StatusSucceeded, ""))

	stream, err := f.facade.TeamStream("n1")
	require.NoError(t, err)

	var pages [][]export.TeamRow
	for rows, err := range stream.Pages(ctx) {
		require.NoError(t, err)
		pages = append(pages, rows)
	}
	require.Len(t, pages, 2)
	assert.Equal(t, []export.TeamRow{
		{ID: "t1", Name: "Platform", DeliveryStatus: "Delivered", StatusReason: "201 : OK"},
		{ID: "t2", DeliveryStatus: "Failed", StatusReason: "429 : throttled"},
	}, pages[0])
	assert.Equal(t, "t3", pages[1][0].ID)
	assert.Empty(t, f.dir.calls, "team streams never consult the directory")
}

func TestTeamStream_NextAfterFailureReturnsNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 2)
	f.deliver(t, "n1",
		sent("t1", notification.StatusSucceeded, ""),
		sent("t2", notification.StatusSucceeded, ""),
		sent("t3", notification.StatusSucceeded, ""),
	)
	boom := errors.New("team table down")
	f.teams.WithGetError(boom)

	stream, err := f.facade.TeamStream("n1")
	require.NoError(t, err)

	_, ok, err := stream.Next(ctx)
	require.ErrorIs(t, err, boom)
	assert.False(t, ok)

	rows, ok, err := stream.Next(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, rows)
	assert.Equal(t, 1, f.sent.Calls().Query)
}

func TestFacade_Validation(t *testing.T) {
	f := newFixture(t, 10)

	_, err := f.facade.UserStream("")
	assert.True(t, storeerrors.IsValidationError(err))
	_, err = f.facade.TeamStream("")
	assert.True(t, storeerrors.IsValidationError(err))
	assert.Equal(t, 0, f.sent.Calls().Query)

	_, err = export.NewFacade(export.Dependencies{})
	assert.True(t, storeerrors.IsValidationError(err))
}
