package tests

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parcelroute/internal/domain"
	"parcelroute/internal/georoute"
)

// ──────────────────────────────────────────────
// 1. RANKING
// ──────────────────────────────────────────────

func TestMatching_SingleEligibleCandidateRanksFirst(t *testing.T) {
	t.Parallel()

	e := newEnv(t, georoute.StraightLineRouter{})
	e.travelers.AddTraveler(idleTraveler("traveler-a", 4,
		domain.Location{Lat: 0, Lng: 0.5},
		domain.Location{Lat: 1, Lng: 0.5},
	))

	results, err := e.matching.FindMatches(context.Background(), matchRequest(2))
	require.NoError(t, err)
	require.Len(t, results, 1)

	r := results[0]
	assert.Equal(t, "traveler-a", r.TravelerID)
	assert.Equal(t, "journey-traveler-a", r.MatchingTripID)
	assert.Equal(t, 1, r.Rank)
	assert.GreaterOrEqual(t, r.EstimatedDetourDistance, 0.0)
	assert.GreaterOrEqual(t, r.EstimatedDetourDuration, 0.0)
	assert.GreaterOrEqual(t, r.EstimatedCost, r.EstimatedEarnings)
}

func TestMatching_DetourIsClampedAtZero(t *testing.T) {
	t.Parallel()

	router := NewMockRouter(10000)
	wp := domain.Location{Lat: 0.5, Lng: 0.5}
	// A route through the traveler's waypoint that is shorter than the
	// direct one must not produce a negative detour.
	router.SetDetour(wp, 9000)

	e := newEnv(t, router)
	e.travelers.AddTraveler(idleTraveler("traveler-a", 4, wp))

	results, err := e.matching.FindMatches(context.Background(), matchRequest(2))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 0.0, results[0].EstimatedDetourDistance)
	assert.Equal(t, 0.0, results[0].EstimatedDetourDuration)
	assert.Equal(t, 0.0, results[0].EstimatedCost)
}

func TestMatching_EqualDetourBrokenByReliability(t *testing.T) {
	t.Parallel()

	router := NewMockRouter(10000)
	low := domain.Location{Lat: 0.2, Lng: 0.2}
	high := domain.Location{Lat: 0.3, Lng: 0.3}
	router.SetDetour(low, 10500)
	router.SetDetour(high, 10500)

	e := newEnv(t, router)
	// IDs are chosen so the id tie-break alone would pick the wrong one.
	e.travelers.AddTraveler(idleTraveler("a-reliable-3", 3.0, low))
	e.travelers.AddTraveler(idleTraveler("b-reliable-45", 4.5, high))

	results, err := e.matching.FindMatches(context.Background(), matchRequest(2))
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "b-reliable-45", results[0].TravelerID)
	assert.Equal(t, 1, results[0].Rank)
	assert.Equal(t, "a-reliable-3", results[1].TravelerID)
	assert.Equal(t, 2, results[1].Rank)
	assert.InDelta(t, 500, results[0].EstimatedDetourDistance, 0.001)
}

func TestMatching_DetoursWithinEpsilonCountAsEqual(t *testing.T) {
	t.Parallel()

	router := NewMockRouter(10000)
	shorter := domain.Location{Lat: 0.2, Lng: 0.2}
	longer := domain.Location{Lat: 0.3, Lng: 0.3}
	router.SetDetour(shorter, 10500)
	router.SetDetour(longer, 10505)

	e := newEnv(t, router)
	e.travelers.AddTraveler(idleTraveler("shorter", 2.0, shorter))
	e.travelers.AddTraveler(idleTraveler("longer", 5.0, longer))

	results, err := e.matching.FindMatches(context.Background(), matchRequest(2))
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "longer", results[0].TravelerID, "5 m apart is a tie, reliability decides")
}

func TestMatching_ShorterDetourBeatsReliability(t *testing.T) {
	t.Parallel()

	router := NewMockRouter(10000)
	shorter := domain.Location{Lat: 0.2, Lng: 0.2}
	longer := domain.Location{Lat: 0.3, Lng: 0.3}
	router.SetDetour(shorter, 10500)
	router.SetDetour(longer, 10600)

	e := newEnv(t, router)
	e.travelers.AddTraveler(idleTraveler("shorter", 1.0, shorter))
	e.travelers.AddTraveler(idleTraveler("longer", 5.0, longer))

	results, err := e.matching.FindMatches(context.Background(), matchRequest(2))
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "shorter", results[0].TravelerID)
}

func TestMatching_FullTieOrderedByTravelerID(t *testing.T) {
	t.Parallel()

	router := NewMockRouter(10000)
	e := newEnv(t, router)
	for i, id := range []string{"charlie", "alpha", "bravo"} {
		wp := domain.Location{Lat: 0.1 * float64(i+1), Lng: 0.1}
		router.SetDetour(wp, 10200)
		e.travelers.AddTraveler(idleTraveler(id, 4, wp))
	}

	for run := 0; run < 3; run++ {
		results, err := e.matching.FindMatches(context.Background(), matchRequest(2))
		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.Equal(t, []string{"alpha", "bravo", "charlie"},
			[]string{results[0].TravelerID, results[1].TravelerID, results[2].TravelerID})
	}
}

func TestMatching_TruncatesToTopK(t *testing.T) {
	t.Parallel()

	router := NewMockRouter(10000)
	e := newEnv(t, router)
	for i := 0; i < 25; i++ {
		wp := domain.Location{Lat: 0.01 * float64(i+1), Lng: 0.5}
		router.SetDetour(wp, 10000+float64(i)*100)
		e.travelers.AddTraveler(idleTraveler(fmt.Sprintf("traveler-%02d", i), 4, wp))
	}

	results, err := e.matching.FindMatches(context.Background(), matchRequest(2))
	require.NoError(t, err)
	require.Len(t, results, 20)
	for i, r := range results {
		assert.Equal(t, i+1, r.Rank)
		assert.Equal(t, fmt.Sprintf("traveler-%02d", i), r.TravelerID)
	}
}

// ──────────────────────────────────────────────
// 2. EXCLUSIONS
// ──────────────────────────────────────────────

func TestMatching_ProviderFailureExcludesOnlyThatCandidate(t *testing.T) {
	t.Parallel()

	router := NewMockRouter(10000)
	ok := domain.Location{Lat: 0.2, Lng: 0.2}
	broken := domain.Location{Lat: 0.3, Lng: 0.3}
	router.SetDetour(ok, 10400)
	router.FailFor(broken)

	e := newEnv(t, router)
	e.travelers.AddTraveler(idleTraveler("ok", 4, ok))
	e.travelers.AddTraveler(idleTraveler("broken", 5, broken))

	results, err := e.matching.FindMatches(context.Background(), matchRequest(2))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "ok", results[0].TravelerID)
	assert.Equal(t, 1, results[0].Rank)
}

func TestMatching_BaselineFailureReturnsEmpty(t *testing.T) {
	t.Parallel()

	router := NewMockRouter(10000)
	router.FailBaseline = true
	wp := domain.Location{Lat: 0.2, Lng: 0.2}
	router.SetDetour(wp, 10400)

	e := newEnv(t, router)
	e.travelers.AddTraveler(idleTraveler("traveler-a", 4, wp))

	results, err := e.matching.FindMatches(context.Background(), matchRequest(2))
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestMatching_OverweightPackageNeverScored(t *testing.T) {
	t.Parallel()

	router := NewMockRouter(10000)
	wp := domain.Location{Lat: 0.2, Lng: 0.2}
	router.SetDetour(wp, 10400)

	e := newEnv(t, router)
	e.travelers.AddTraveler(idleTraveler("traveler-a", 4, wp))

	results, err := e.matching.FindMatches(context.Background(), matchRequest(6))
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, int32(0), router.CallCount, "no provider call when nobody is eligible")
}

func TestMatching_OverBudgetExcluded(t *testing.T) {
	t.Parallel()

	router := NewMockRouter(10000)
	cheap := domain.Location{Lat: 0.2, Lng: 0.2}
	pricey := domain.Location{Lat: 0.3, Lng: 0.3}
	router.SetDetour(cheap, 11000)  // 1 km, 100 s: 0.50 + 0.17
	router.SetDetour(pricey, 30000) // 20 km, 2000 s: 10.00 + 3.33

	e := newEnv(t, router)
	e.travelers.AddTraveler(idleTraveler("cheap", 3, cheap))
	e.travelers.AddTraveler(idleTraveler("pricey", 5, pricey))

	req := matchRequest(2)
	budget := 5.0
	req.MaxBudget = &budget

	results, err := e.matching.FindMatches(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "cheap", results[0].TravelerID)
	assert.InDelta(t, 0.67, results[0].EstimatedCost, 0.001)
}

func TestMatching_ActiveTravelerOutsideRegionSkipped(t *testing.T) {
	t.Parallel()

	router := NewMockRouter(10000)
	far := domain.Location{Lat: 48.85, Lng: 2.35}
	near := domain.Location{Lat: 0.5, Lng: 0.5}
	router.SetDetour(far, 12000000)
	router.SetDetour(near, 10300)

	e := newEnv(t, router)
	farAway := idleTraveler("far", 5, far)
	farAway.Status = domain.TravelerStatusActive
	e.travelers.AddTraveler(farAway)
	nearby := idleTraveler("near", 4, near)
	nearby.Status = domain.TravelerStatusActive
	e.travelers.AddTraveler(nearby)

	// With MaxStopsPerRoute 1 an active traveler must be empty-handed to
	// absorb another stop.
	results, err := e.matching.FindMatches(context.Background(), matchRequest(2))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "near", results[0].TravelerID)
}

func TestMatching_CompletedTravelerNeverListed(t *testing.T) {
	t.Parallel()

	router := NewMockRouter(10000)
	wp := domain.Location{Lat: 0.2, Lng: 0.2}
	router.SetDetour(wp, 10400)

	e := newEnv(t, router)
	done := idleTraveler("done", 5, wp)
	done.Status = domain.TravelerStatusCompleted
	e.travelers.AddTraveler(done)

	results, err := e.matching.FindMatches(context.Background(), matchRequest(2))
	require.NoError(t, err)
	assert.Empty(t, results)
}

// ──────────────────────────────────────────────
// 3. FAILURES
// ──────────────────────────────────────────────

func TestMatching_MalformedRequestFails(t *testing.T) {
	t.Parallel()

	e := newEnv(t, NewMockRouter(10000))

	cases := map[string]*domain.MatchRequest{
		"origin out of range": {
			Origin:      domain.Location{Lat: 91, Lng: 0},
			Destination: domain.Location{Lat: 1, Lng: 1},
			Package:     domain.PackageDetails{WeightKg: 1},
		},
		"zero weight": {
			Origin:      domain.Location{Lat: 0, Lng: 0},
			Destination: domain.Location{Lat: 1, Lng: 1},
		},
		"negative dimension": {
			Origin:      domain.Location{Lat: 0, Lng: 0},
			Destination: domain.Location{Lat: 1, Lng: 1},
			Package: domain.PackageDetails{
				WeightKg:   1,
				Dimensions: &domain.Dimensions{LengthCm: -1, WidthCm: 10, HeightCm: 10},
			},
		},
	}

	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := e.matching.FindMatches(context.Background(), req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrValidation), "got %v", err)
		})
	}
}

func TestMatching_StorageFailureSurfaces(t *testing.T) {
	t.Parallel()

	e := newEnv(t, NewMockRouter(10000))
	e.travelers.ListMatchableError = errors.New("connection refused")

	_, err := e.matching.FindMatches(context.Background(), matchRequest(2))
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrValidation))
}

func TestMatching_CancelledContext(t *testing.T) {
	t.Parallel()

	router := NewMockRouter(10000)
	wp := domain.Location{Lat: 0.2, Lng: 0.2}
	router.SetDetour(wp, 10400)

	e := newEnv(t, router)
	e.travelers.AddTraveler(idleTraveler("traveler-a", 4, wp))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.matching.FindMatches(ctx, matchRequest(2))
	require.ErrorIs(t, err, context.Canceled)
}
