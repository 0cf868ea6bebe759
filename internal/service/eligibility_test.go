package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"parcelroute/internal/domain"
)

func TestCheckEligibility(t *testing.T) {
	t.Parallel()

	noon := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	evening := time.Date(2026, 5, 1, 21, 0, 0, 0, time.UTC)
	window := domain.AvailabilityWindow{
		From: time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC),
		To:   time.Date(2026, 5, 1, 20, 0, 0, 0, time.UTC),
	}

	base := func() *domain.TravelerCandidate {
		return &domain.TravelerCandidate{
			TravelerID:   "t1",
			Capacity:     domain.Capacity{MaxWeightKg: 5, MaxVolumeCm3: 1000},
			Availability: window,
			Status:       domain.TravelerStatusIdle,
		}
	}
	box := func(l, w, h float64) *domain.Dimensions {
		return &domain.Dimensions{LengthCm: l, WidthCm: w, HeightCm: h}
	}

	tests := []struct {
		name    string
		mutate  func(c *domain.TravelerCandidate)
		pkg     domain.PackageDetails
		desired *time.Time
		policy  EligibilityPolicy
		reason  string
	}{
		{
			name:   "weight at capacity",
			pkg:    domain.PackageDetails{WeightKg: 5},
			reason: "",
		},
		{
			name:   "overweight",
			pkg:    domain.PackageDetails{WeightKg: 5.01},
			reason: ReasonOverweight,
		},
		{
			name:   "oversize",
			pkg:    domain.PackageDetails{WeightKg: 1, Dimensions: box(10, 10, 11)},
			reason: ReasonOversize,
		},
		{
			name:   "no dimensions skips volume",
			pkg:    domain.PackageDetails{WeightKg: 1},
			reason: "",
		},
		{
			name:   "completed traveler",
			mutate: func(c *domain.TravelerCandidate) { c.Status = domain.TravelerStatusCompleted },
			pkg:    domain.PackageDetails{WeightKg: 1},
			reason: ReasonStatus,
		},
		{
			name: "active traveler with a free stop",
			mutate: func(c *domain.TravelerCandidate) {
				c.Status = domain.TravelerStatusActive
				c.InFlightPackages = 1
			},
			pkg:    domain.PackageDetails{WeightKg: 1},
			policy: EligibilityPolicy{MaxStopsPerRoute: 2},
			reason: "",
		},
		{
			name: "active traveler at the default stop limit",
			mutate: func(c *domain.TravelerCandidate) {
				c.Status = domain.TravelerStatusActive
				c.InFlightPackages = 1
			},
			pkg:    domain.PackageDetails{WeightKg: 1},
			reason: ReasonRouteFull,
		},
		{
			name:    "desired time inside the window",
			pkg:     domain.PackageDetails{WeightKg: 1},
			desired: &noon,
			reason:  "",
		},
		{
			name:    "desired time after the window",
			pkg:     domain.PackageDetails{WeightKg: 1},
			desired: &evening,
			reason:  ReasonOutsideWindow,
		},
		{
			name:    "open window",
			mutate:  func(c *domain.TravelerCandidate) { c.Availability = domain.AvailabilityWindow{} },
			pkg:     domain.PackageDetails{WeightKg: 1},
			desired: &evening,
			reason:  "",
		},
		{
			// Weight is checked first.
			name:   "overweight and unavailable",
			mutate: func(c *domain.TravelerCandidate) { c.Status = domain.TravelerStatusCompleted },
			pkg:    domain.PackageDetails{WeightKg: 9},
			reason: ReasonOverweight,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := base()
			if tt.mutate != nil {
				tt.mutate(c)
			}

			got := CheckEligibility(c, tt.pkg, tt.desired, tt.policy)
			assert.Equal(t, tt.reason == "", got.Eligible)
			assert.Equal(t, tt.reason, got.Reason)
		})
	}
}

func TestCheckEligibility_IsPure(t *testing.T) {
	t.Parallel()

	desired := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	c := &domain.TravelerCandidate{
		TravelerID:       "t1",
		Route:            []domain.Location{{Lat: 1, Lng: 1}},
		Capacity:         domain.Capacity{MaxWeightKg: 5, MaxVolumeCm3: 1000},
		Status:           domain.TravelerStatusActive,
		InFlightPackages: 1,
		Availability: domain.AvailabilityWindow{
			From: time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC),
			To:   time.Date(2026, 5, 1, 20, 0, 0, 0, time.UTC),
		},
	}
	pkg := domain.PackageDetails{
		WeightKg:   2,
		Dimensions: &domain.Dimensions{LengthCm: 10, WidthCm: 10, HeightCm: 5},
	}
	policy := EligibilityPolicy{MaxStopsPerRoute: 2}

	candidateBefore := *c
	candidateBefore.Route = append([]domain.Location(nil), c.Route...)
	dimsBefore := *pkg.Dimensions
	desiredBefore := desired

	first := CheckEligibility(c, pkg, &desired, policy)
	second := CheckEligibility(c, pkg, &desired, policy)

	assert.Equal(t, first, second)
	assert.True(t, first.Eligible)
	assert.Equal(t, candidateBefore, *c)
	assert.Equal(t, dimsBefore, *pkg.Dimensions)
	assert.Equal(t, desiredBefore, desired)
}
