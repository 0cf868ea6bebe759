package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"parcelroute/internal/domain"
	"parcelroute/internal/georoute"
	"parcelroute/internal/observability"
)

const (
	// detourEpsilonMeters is the distance within which two detours count as
	// equal and reliability decides the order.
	detourEpsilonMeters = 10.0

	defaultTopK             = 20
	defaultMatchConcurrency = 8
	defaultCandidateTimeout = 5 * time.Second
)

// CandidateSource lists travelers the engine may consider.
type CandidateSource interface {
	ListMatchable(ctx context.Context) ([]*domain.TravelerCandidate, error)
}

// MatchingConfig tunes the ranking engine.
type MatchingConfig struct {
	TopK             int
	Concurrency      int
	CandidateTimeout time.Duration
	BBoxMarginKm     float64
	Policy           EligibilityPolicy
}

// MatchingService ranks travelers for a shipper's package.
type MatchingService struct {
	candidates CandidateSource
	scorer     *DetourScorer
	cfg        MatchingConfig
	logger     logrus.FieldLogger
}

// NewMatchingService creates a new MatchingService.
func NewMatchingService(candidates CandidateSource, scorer *DetourScorer, cfg MatchingConfig, logger logrus.FieldLogger) *MatchingService {
	if cfg.TopK <= 0 {
		cfg.TopK = defaultTopK
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultMatchConcurrency
	}
	if cfg.CandidateTimeout <= 0 {
		cfg.CandidateTimeout = defaultCandidateTimeout
	}
	return &MatchingService{
		candidates: candidates,
		scorer:     scorer,
		cfg:        cfg,
		logger:     logger,
	}
}

// ValidateMatchRequest rejects requests the engine cannot process.
func ValidateMatchRequest(req *domain.MatchRequest) error {
	if !req.Origin.Valid() {
		return ErrInvalidOrigin
	}
	if !req.Destination.Valid() {
		return ErrInvalidDestination
	}
	if req.Package.WeightKg <= 0 {
		return fmt.Errorf("%w: weight must be positive", ErrInvalidPackage)
	}
	if d := req.Package.Dimensions; d != nil && (d.LengthCm <= 0 || d.WidthCm <= 0 || d.HeightCm <= 0) {
		return fmt.Errorf("%w: dimensions must be positive", ErrInvalidPackage)
	}
	if req.MaxBudget != nil && *req.MaxBudget < 0 {
		return ErrInvalidBudget
	}
	return nil
}

// scored pairs a surviving candidate with its detour.
type scored struct {
	candidate *domain.TravelerCandidate
	score     DetourScore
}

// FindMatches runs a match request through prefilter, eligibility, detour
// scoring and ranking. Candidates whose scoring fails are dropped; only a
// malformed request or a storage failure returns an error.
func (s *MatchingService) FindMatches(ctx context.Context, req *domain.MatchRequest) ([]domain.MatchResult, error) {
	start := time.Now()
	log := s.logger.WithField("match_id", uuid.New().String())
	log.WithField("state", domain.MatchStateReceived).Debug("match request received")

	if err := ValidateMatchRequest(req); err != nil {
		log.WithError(err).WithField("state", domain.MatchStateFailed).Info("match request rejected")
		observability.MatchRequestsTotal.WithLabelValues(string(domain.MatchStateFailed)).Inc()
		return nil, err
	}

	all, err := s.candidates.ListMatchable(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}

	eligible := s.filter(log, req, all)
	log.WithFields(logrus.Fields{
		"state":      domain.MatchStateFiltered,
		"candidates": len(all),
		"eligible":   len(eligible),
	}).Debug("candidates filtered")

	var survivors []scored
	if len(eligible) > 0 {
		survivors, err = s.score(ctx, log, req, eligible)
		if err != nil {
			return nil, err
		}
	}
	log.WithFields(logrus.Fields{"state": domain.MatchStateScored, "scored": len(survivors)}).Debug("candidates scored")

	results := rank(survivors, s.cfg.TopK)
	log.WithFields(logrus.Fields{"state": domain.MatchStateRanked, "results": len(results)}).Debug("candidates ranked")

	observability.MatchRequestsTotal.WithLabelValues(string(domain.MatchStateReturned)).Inc()
	observability.MatchLatency.Observe(time.Since(start).Seconds())
	observability.MatchResults.Observe(float64(len(results)))
	log.WithFields(logrus.Fields{
		"state":       domain.MatchStateReturned,
		"results":     len(results),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("match request completed")

	return results, nil
}

// filter applies the regional prefilter and the eligibility check.
func (s *MatchingService) filter(log logrus.FieldLogger, req *domain.MatchRequest, all []*domain.TravelerCandidate) []*domain.TravelerCandidate {
	region, _ := georoute.BoundsOf(req.Origin, req.Destination)
	region = region.Expand(s.cfg.BBoxMarginKm)

	out := make([]*domain.TravelerCandidate, 0, len(all))
	for _, c := range all {
		if c.Status == domain.TravelerStatusActive {
			box, ok := georoute.BoundsOf(c.Route...)
			if !ok || !box.Intersects(region) {
				s.exclude(log, c, ReasonOutsideRegion, nil)
				continue
			}
		}

		if e := CheckEligibility(c, req.Package, req.DesiredDeliveryTime, s.cfg.Policy); !e.Eligible {
			s.exclude(log, c, e.Reason, nil)
			continue
		}
		out = append(out, c)
	}
	return out
}

// score computes detours with bounded concurrency. Each candidate gets its
// own timeout; cancelling ctx stops the remaining calls.
func (s *MatchingService) score(ctx context.Context, log logrus.FieldLogger, req *domain.MatchRequest, eligible []*domain.TravelerCandidate) ([]scored, error) {
	bctx, cancel := context.WithTimeout(ctx, s.cfg.CandidateTimeout)
	baseline, err := s.scorer.Baseline(bctx, req.Origin, req.Destination)
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !georoute.IsProviderError(err) {
			log.WithError(err).Error("baseline route failed")
		}
		for _, c := range eligible {
			s.exclude(log, c, ReasonUnscored, err)
		}
		return nil, nil
	}

	scores := make([]DetourScore, len(eligible))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for i, c := range eligible {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(gctx, s.cfg.CandidateTimeout)
			defer cancel()
			scores[i] = s.scorer.ScoreAgainst(cctx, baseline, req, c)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]scored, 0, len(eligible))
	for i, c := range eligible {
		sc := scores[i]
		if !sc.Scored {
			s.exclude(log, c, ReasonUnscored, sc.Err)
			continue
		}
		if req.MaxBudget != nil && sc.EstimatedCost > *req.MaxBudget {
			s.exclude(log, c, ReasonOverBudget, nil)
			continue
		}
		out = append(out, scored{candidate: c, score: sc})
	}
	return out, nil
}

func (s *MatchingService) exclude(log logrus.FieldLogger, c *domain.TravelerCandidate, reason string, err error) {
	observability.CandidatesExcluded.WithLabelValues(reason).Inc()
	entry := log.WithFields(logrus.Fields{"traveler_id": c.TravelerID, "reason": reason})
	if err != nil {
		entry.WithError(err).Warn("candidate excluded")
		return
	}
	entry.Debug("candidate excluded")
}

// byDetour orders by detour distance, then traveler id.
func byDetour(a, b domain.MatchResult) bool {
	if a.EstimatedDetourDistance != b.EstimatedDetourDistance {
		return a.EstimatedDetourDistance < b.EstimatedDetourDistance
	}
	return a.TravelerID < b.TravelerID
}

// byReliability orders by reliability descending, then traveler id.
func byReliability(a, b domain.MatchResult) bool {
	if a.Reliability != b.Reliability {
		return a.Reliability > b.Reliability
	}
	return a.TravelerID < b.TravelerID
}

// orderMatches sorts by detour, then reorders each run of results whose
// detour lies within detourEpsilonMeters of the run's first element by
// reliability. Runs are anchored on their first element so the grouping does
// not chain across gaps wider than the epsilon.
func orderMatches(results []domain.MatchResult) {
	sort.Slice(results, func(i, j int) bool {
		return byDetour(results[i], results[j])
	})

	for start := 0; start < len(results); {
		end := start + 1
		for end < len(results) &&
			results[end].EstimatedDetourDistance-results[start].EstimatedDetourDistance <= detourEpsilonMeters {
			end++
		}
		group := results[start:end]
		sort.Slice(group, func(i, j int) bool {
			return byReliability(group[i], group[j])
		})
		start = end
	}
}

// rank sorts, numbers from 1 and truncates to topK.
func rank(survivors []scored, topK int) []domain.MatchResult {
	results := make([]domain.MatchResult, 0, len(survivors))
	for _, sv := range survivors {
		results = append(results, domain.MatchResult{
			TravelerID:              sv.candidate.TravelerID,
			MatchingTripID:          sv.candidate.JourneyID,
			EstimatedDetourDistance: sv.score.DistanceMeters,
			EstimatedDetourDuration: sv.score.DurationSeconds,
			EstimatedCost:           sv.score.EstimatedCost,
			EstimatedEarnings:       sv.score.EstimatedEarnings,
			Reliability:             sv.candidate.Reliability,
		})
	}

	orderMatches(results)

	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	for i := range results {
		results[i].Rank = i + 1
	}
	return results
}
