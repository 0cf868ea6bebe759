package tests

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parcelroute/internal/domain"
	"parcelroute/internal/repository"
	"parcelroute/internal/service"
)

var damageReport = service.ReportDisputeRequest{
	Type:        domain.DisputeTypeItemDamage,
	Description: "the box arrived crushed",
	Evidence:    []string{"https://img.example.com/box.jpg"},
}

// disputedTrip stores an in-transit trip and disputes it as reporter.
func (e *env) disputedTrip(t *testing.T, id string, reporter domain.Principal) *domain.Dispute {
	t.Helper()
	e.inTransitTrip(id)
	_, dispute, err := e.trip.DisputeTrip(context.Background(), reporter, id, damageReport)
	require.NoError(t, err)
	return dispute
}

// ──────────────────────────────────────────────
// 1. REPORTING
// ──────────────────────────────────────────────

func TestDispute_ReportValidation(t *testing.T) {
	t.Parallel()

	for name, req := range map[string]service.ReportDisputeRequest{
		"unknown type":      {Type: "lost_socks", Description: damageReport.Description},
		"short description": {Type: domain.DisputeTypeOther, Description: "  too short "},
		"non-http evidence": {Type: domain.DisputeTypeOther, Description: damageReport.Description, Evidence: []string{"ftp://files.example.com/a"}},
		"relative evidence": {Type: domain.DisputeTypeOther, Description: damageReport.Description, Evidence: []string{"photo.jpg"}},
		"too much evidence": {Type: domain.DisputeTypeOther, Description: damageReport.Description, Evidence: make([]string, 11)},
	} {
		t.Run(name, func(t *testing.T) {
			e := newEnv(t, NewMockRouter(1000))
			e.inTransitTrip("trip-1")

			_, _, err := e.trip.DisputeTrip(context.Background(), shipper, "trip-1", req)
			assert.ErrorIs(t, err, domain.ErrValidation)
			assert.Equal(t, 0, e.disputes.Count())
			assert.Equal(t, domain.TripStatusInTransit, e.trips.GetTrip("trip-1").Status)
		})
	}
}

func TestDispute_ReportIsStored(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e := newEnv(t, NewMockRouter(1000))
	e.inTransitTrip("trip-1")

	req := damageReport
	req.Description = "  " + damageReport.Description + "\n"
	trip, dispute, err := e.trip.DisputeTrip(ctx, traveler, "trip-1", req)
	require.NoError(t, err)
	assert.Equal(t, domain.TripStatusDisputed, trip.Status)

	stored, err := e.disputes.GetByID(ctx, dispute.ID)
	require.NoError(t, err)
	assert.Equal(t, "trip-1", stored.TripID)
	assert.Equal(t, traveler.UserID, stored.ReporterID)
	assert.Equal(t, domain.DisputeTypeItemDamage, stored.Type)
	assert.Equal(t, damageReport.Description, stored.Description)
	assert.Equal(t, damageReport.Evidence, stored.Evidence)
	assert.Equal(t, domain.DisputeStatusOpen, stored.Status)
	assert.Empty(t, stored.ResolvedBy)

	sent := e.push.Sent(service.NotificationTripDisputed)
	require.Len(t, sent, 2)
	assert.Equal(t, dispute.ID, sent[0].Data["dispute_id"])
}

func TestDispute_OnlyOneOpenPerTrip(t *testing.T) {
	t.Parallel()

	e := newEnv(t, NewMockRouter(1000))
	e.disputedTrip(t, "trip-1", shipper)

	_, _, err := e.trip.DisputeTrip(context.Background(), traveler, "trip-1", damageReport)
	assert.ErrorIs(t, err, service.ErrInvalidTransition)
	assert.Equal(t, 1, e.disputes.Count())
}

func TestDispute_RecordRemovedWhenTripCannotMove(t *testing.T) {
	t.Parallel()

	e := newEnv(t, NewMockRouter(1000))
	e.inTransitTrip("trip-1")
	e.trips.UpdateStatusError = errors.New("connection reset")

	_, _, err := e.trip.DisputeTrip(context.Background(), shipper, "trip-1", damageReport)
	require.Error(t, err)
	assert.Equal(t, 0, e.disputes.Count())
	assert.Empty(t, e.push.Sent(service.NotificationTripDisputed))
}

// ──────────────────────────────────────────────
// 2. RESOLUTION
// ──────────────────────────────────────────────

func TestDispute_ResolutionIsRecorded(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e := newEnv(t, NewMockRouter(1000))
	opened := e.disputedTrip(t, "trip-1", shipper)

	_, _, err := e.trip.ResolveDispute(ctx, admin, "trip-1", service.ResolveDisputeRequest{
		Outcome: domain.TripStatusCancelled,
		Details: "   ",
	})
	assert.ErrorIs(t, err, service.ErrResolutionDetails)
	assert.Equal(t, domain.TripStatusDisputed, e.trips.GetTrip("trip-1").Status)

	trip, resolved, err := e.trip.ResolveDispute(ctx, admin, "trip-1", service.ResolveDisputeRequest{
		Outcome: domain.TripStatusCancelled,
		Details: "refund issued after review",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TripStatusCancelled, trip.Status)
	assert.Equal(t, opened.ID, resolved.ID)

	stored, err := e.disputes.GetByID(ctx, opened.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DisputeStatusResolved, stored.Status)
	assert.Equal(t, domain.TripStatusCancelled, stored.Outcome)
	assert.Equal(t, admin.UserID, stored.ResolvedBy)
	assert.Equal(t, "refund issued after review", stored.ResolutionDetails)
	require.NotNil(t, stored.ResolvedAt)

	_, err = e.disputes.GetOpenByTrip(ctx, "trip-1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestDispute_RecordFailureDoesNotBlockResolution(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e := newEnv(t, NewMockRouter(1000))
	opened := e.disputedTrip(t, "trip-1", shipper)
	e.disputes.ResolveError = errors.New("write concern timeout")

	trip, dispute, err := e.trip.ResolveDispute(ctx, admin, "trip-1", service.ResolveDisputeRequest{
		Outcome: domain.TripStatusDelivered,
		Details: "tracking shows delivery",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TripStatusDelivered, trip.Status)
	assert.Equal(t, domain.DisputeStatusOpen, dispute.Status)

	stored, err := e.disputes.GetByID(ctx, opened.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DisputeStatusOpen, stored.Status)
}

// ──────────────────────────────────────────────
// 3. VISIBILITY
// ──────────────────────────────────────────────

func TestDispute_GetVisibility(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e := newEnv(t, NewMockRouter(1000))
	opened := e.disputedTrip(t, "trip-1", shipper)

	for _, p := range []domain.Principal{shipper, traveler, admin} {
		got, err := e.trip.GetDispute(ctx, p, opened.ID)
		require.NoError(t, err, p.UserID)
		assert.Equal(t, opened.ID, got.ID)
	}

	_, err := e.trip.GetDispute(ctx, stranger, opened.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = e.trip.GetDispute(ctx, admin, "")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = e.trip.GetDispute(ctx, admin, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestDispute_ListScopes(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e := newEnv(t, NewMockRouter(1000))
	first := e.disputedTrip(t, "trip-1", shipper)
	second := e.disputedTrip(t, "trip-2", traveler)

	cases := []struct {
		name string
		as   domain.Principal
		q    service.DisputeQuery
		want []string
	}{
		{"own reports", shipper, service.DisputeQuery{}, []string{first.ID}},
		{"trip participant", shipper, service.DisputeQuery{TripID: "trip-2"}, []string{second.ID}},
		{"admin sees all newest first", admin, service.DisputeQuery{}, []string{second.ID, first.ID}},
		{"admin by reporter", admin, service.DisputeQuery{ReporterID: traveler.UserID}, []string{second.ID}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := e.trip.ListDisputes(ctx, tc.as, tc.q)
			require.NoError(t, err)
			var ids []string
			for _, d := range got {
				ids = append(ids, d.ID)
			}
			assert.Equal(t, tc.want, ids)
		})
	}

	_, err := e.trip.ListDisputes(ctx, stranger, service.DisputeQuery{TripID: "trip-1"})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = e.trip.ListDisputes(ctx, stranger, service.DisputeQuery{ReporterID: shipper.UserID})
	assert.ErrorIs(t, err, service.ErrAdminOnly)

	got, err := e.trip.ListDisputes(ctx, stranger, service.DisputeQuery{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDispute_DescriptionCountsCharactersNotBytes(t *testing.T) {
	t.Parallel()

	e := newEnv(t, NewMockRouter(1000))
	e.inTransitTrip("trip-1")

	req := service.ReportDisputeRequest{Type: domain.DisputeTypeOther, Description: strings.Repeat("é", 9)}
	_, _, err := e.trip.DisputeTrip(context.Background(), shipper, "trip-1", req)
	assert.ErrorIs(t, err, service.ErrDisputeDescription)

	req.Description = strings.Repeat("é", 10)
	_, _, err = e.trip.DisputeTrip(context.Background(), shipper, "trip-1", req)
	assert.NoError(t, err)
}
