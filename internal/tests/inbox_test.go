package tests

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parcelroute/internal/domain"
	"parcelroute/internal/repository"
	"parcelroute/internal/service"
)

// matchedTrip accepts traveler on a pending trip, which notifies the traveler.
func (e *env) matchedTrip(t *testing.T, id string) {
	t.Helper()
	e.withTraveler()
	e.pendingTrip(id)
	_, err := e.trip.AcceptMatch(context.Background(), shipper, id, traveler.UserID)
	require.NoError(t, err)
}

func TestInbox_KeepsEveryNotification(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e := newEnv(t, NewMockRouter(1000))
	e.matchedTrip(t, "trip-1")

	inbox, err := e.notifier.ListInbox(ctx, traveler, traveler.UserID, 0)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, service.NotificationMatchAccepted, inbox[0].Type)
	assert.Equal(t, "trip-1", inbox[0].Data["trip_id"])
	assert.False(t, inbox[0].Read)
	assert.Nil(t, inbox[0].ReadAt)
	assert.Len(t, e.push.Sent(service.NotificationMatchAccepted), 1)

	shipperInbox, err := e.notifier.ListInbox(ctx, shipper, shipper.UserID, 0)
	require.NoError(t, err)
	assert.Empty(t, shipperInbox)
}

func TestInbox_OwnerOrAdminReads(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e := newEnv(t, NewMockRouter(1000))
	e.matchedTrip(t, "trip-1")

	_, err := e.notifier.ListInbox(ctx, stranger, traveler.UserID, 0)
	assert.ErrorIs(t, err, service.ErrNotInboxOwner)

	inbox, err := e.notifier.ListInbox(ctx, admin, traveler.UserID, 0)
	require.NoError(t, err)
	assert.Len(t, inbox, 1)

	_, err = e.notifier.ListInbox(ctx, admin, "", 0)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestInbox_MarkReadKeepsFirstReadTime(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e := newEnv(t, NewMockRouter(1000))
	e.matchedTrip(t, "trip-1")

	inbox, err := e.notifier.ListInbox(ctx, traveler, traveler.UserID, 0)
	require.NoError(t, err)
	id := inbox[0].ID

	_, err = e.notifier.MarkRead(ctx, shipper, id)
	assert.ErrorIs(t, err, service.ErrNotInboxOwner)
	_, err = e.notifier.MarkRead(ctx, admin, id)
	assert.ErrorIs(t, err, service.ErrNotInboxOwner, "only the owner marks a notification read")

	first, err := e.notifier.MarkRead(ctx, traveler, id)
	require.NoError(t, err)
	assert.True(t, first.Read)
	require.NotNil(t, first.ReadAt)

	again, err := e.notifier.MarkRead(ctx, traveler, id)
	require.NoError(t, err)
	assert.Equal(t, *first.ReadAt, *again.ReadAt)

	_, err = e.notifier.MarkRead(ctx, traveler, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = e.notifier.MarkRead(ctx, traveler, "")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestInbox_StoreFailureStillPushes(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e := newEnv(t, NewMockRouter(1000))
	e.inbox.CreateError = errors.New("mongo unavailable")
	e.matchedTrip(t, "trip-1")

	assert.Len(t, e.push.Sent(service.NotificationMatchAccepted), 1)
	inbox, err := e.notifier.ListInbox(ctx, traveler, traveler.UserID, 0)
	require.NoError(t, err)
	assert.Empty(t, inbox)
}
