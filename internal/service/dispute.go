package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"parcelroute/internal/domain"
	"parcelroute/internal/repository"
)

const (
	minDisputeDescription = 10
	maxDisputeEvidence    = 10
	defaultDisputeLimit   = 50
)

// ReportDisputeRequest is what a participant files against a trip.
type ReportDisputeRequest struct {
	Type        domain.DisputeType
	Description string
	Evidence    []string
}

// ResolveDisputeRequest is an admin's ruling on a disputed trip.
type ResolveDisputeRequest struct {
	Outcome domain.TripStatus
	Details string
}

// DisputeQuery selects the disputes to list.
type DisputeQuery struct {
	TripID     string
	ReporterID string
	Limit      int
}

func validateDisputeReport(req ReportDisputeRequest) error {
	if !req.Type.Valid() {
		return ErrInvalidDisputeType
	}
	if utf8.RuneCountInString(strings.TrimSpace(req.Description)) < minDisputeDescription {
		return ErrDisputeDescription
	}
	if len(req.Evidence) > maxDisputeEvidence {
		return fmt.Errorf("%w: at most %d items", ErrInvalidEvidence, maxDisputeEvidence)
	}
	for _, raw := range req.Evidence {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return ErrInvalidEvidence
		}
	}
	return nil
}

// DisputeTrip files a dispute and freezes the trip and its escrow until an
// admin resolves it. The record is stored before the trip moves so a disputed
// trip always has one; it is removed again if the trip cannot move.
func (s *TripService) DisputeTrip(ctx context.Context, p domain.Principal, tripID string, req ReportDisputeRequest) (*domain.Trip, *domain.Dispute, error) {
	if err := validateDisputeReport(req); err != nil {
		return nil, nil, err
	}

	trip, err := s.loadTrip(ctx, tripID)
	if err != nil {
		return nil, nil, err
	}
	if !p.IsAdmin() && !trip.IsParticipant(p.UserID) {
		return nil, nil, ErrNotTripParticipant
	}
	if !domain.CanTransition(trip.Status, domain.TripStatusDisputed) {
		return nil, nil, fmt.Errorf("%w: trip is %s", ErrInvalidTransition, trip.Status)
	}

	now := time.Now()
	dispute := &domain.Dispute{
		ID:          uuid.New().String(),
		TripID:      trip.ID,
		ReporterID:  p.UserID,
		Type:        req.Type,
		Description: strings.TrimSpace(req.Description),
		Evidence:    append([]string{}, req.Evidence...),
		Status:      domain.DisputeStatusOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.disputeRepo.Create(ctx, dispute); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, nil, fmt.Errorf("%w: trip already has an open dispute", ErrInvalidTransition)
		}
		return nil, nil, err
	}

	if err := s.transition(ctx, trip, domain.TripStatusDisputed, p.UserID, nil); err != nil {
		if derr := s.disputeRepo.Delete(context.WithoutCancel(ctx), dispute.ID); derr != nil {
			s.logger.WithError(derr).WithField("dispute_id", dispute.ID).Error("failed to remove dispute of unmoved trip")
		}
		return nil, nil, err
	}

	s.escrow.settleQuietly(ctx, tripID, s.escrow.MarkDisputed)
	s.notifier.NotifyTripDisputed(ctx, trip, dispute)

	return trip, dispute, nil
}

// ResolveDispute closes a disputed trip as delivered (fare captured) or
// cancelled (fare released) and records the ruling on its open dispute.
// Admin only.
func (s *TripService) ResolveDispute(ctx context.Context, p domain.Principal, tripID string, req ResolveDisputeRequest) (*domain.Trip, *domain.Dispute, error) {
	if !p.IsAdmin() {
		return nil, nil, ErrAdminOnly
	}
	if req.Outcome != domain.TripStatusDelivered && req.Outcome != domain.TripStatusCancelled {
		return nil, nil, ErrInvalidOutcome
	}
	details := strings.TrimSpace(req.Details)
	if details == "" {
		return nil, nil, ErrResolutionDetails
	}

	trip, err := s.loadTrip(ctx, tripID)
	if err != nil {
		return nil, nil, err
	}
	if trip.Status != domain.TripStatusDisputed {
		return nil, nil, fmt.Errorf("%w: trip is %s", ErrInvalidTransition, trip.Status)
	}

	dispute, err := s.disputeRepo.GetOpenByTrip(ctx, tripID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, nil, err
	}

	travelerID := trip.TravelerID
	var mutate func(*domain.Trip)
	if req.Outcome == domain.TripStatusCancelled {
		mutate = clearTraveler
	}
	if err := s.transition(ctx, trip, req.Outcome, p.UserID, mutate); err != nil {
		return nil, nil, err
	}

	if dispute != nil {
		s.recordResolution(ctx, dispute, repository.DisputeResolution{
			Outcome:    req.Outcome,
			ResolvedBy: p.UserID,
			Details:    details,
			ResolvedAt: trip.UpdatedAt,
		})
	} else {
		s.logger.WithField("trip_id", tripID).Warn("disputed trip has no open dispute record")
	}

	s.adjustInFlight(ctx, travelerID, -1)
	if req.Outcome == domain.TripStatusDelivered {
		s.escrow.settleQuietly(ctx, tripID, s.escrow.Capture)
		s.notifier.NotifyDelivered(ctx, trip)
	} else {
		s.escrow.settleQuietly(ctx, tripID, s.escrow.Release)
		s.notifier.NotifyTripCancelled(ctx, trip, travelerID, p.UserID)
	}

	return trip, dispute, nil
}

// recordResolution stores the ruling and mirrors it onto d. The trip has
// already moved, so a storage failure is logged rather than returned.
func (s *TripService) recordResolution(ctx context.Context, d *domain.Dispute, res repository.DisputeResolution) {
	if err := s.disputeRepo.Resolve(ctx, d.ID, res); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"dispute_id": d.ID,
			"trip_id":    d.TripID,
		}).Error("failed to record dispute resolution")
		return
	}
	resolvedAt := res.ResolvedAt
	d.Status = domain.DisputeStatusResolved
	d.Outcome = res.Outcome
	d.ResolvedBy = res.ResolvedBy
	d.ResolutionDetails = res.Details
	d.ResolvedAt = &resolvedAt
	d.UpdatedAt = resolvedAt
}

// GetDispute returns a dispute visible to the caller: its reporter, the
// participants of its trip, or an admin.
func (s *TripService) GetDispute(ctx context.Context, p domain.Principal, disputeID string) (*domain.Dispute, error) {
	if disputeID == "" {
		return nil, ErrInvalidDisputeID
	}

	dispute, err := s.disputeRepo.GetByID(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if p.IsAdmin() || dispute.ReporterID == p.UserID {
		return dispute, nil
	}

	trip, err := s.tripRepo.GetByID(ctx, dispute.TripID)
	if err != nil {
		return nil, err
	}
	if !trip.IsParticipant(p.UserID) {
		return nil, ErrNotTripParticipant
	}
	return dispute, nil
}

// ListDisputes lists disputes newest first. Admins may filter freely; other
// callers see the disputes of a trip they take part in, or their own reports.
func (s *TripService) ListDisputes(ctx context.Context, p domain.Principal, q DisputeQuery) ([]*domain.Dispute, error) {
	if q.Limit <= 0 || q.Limit > defaultDisputeLimit {
		q.Limit = defaultDisputeLimit
	}
	filter := repository.DisputeFilter{TripID: q.TripID, ReporterID: q.ReporterID, Limit: q.Limit}

	if !p.IsAdmin() {
		if q.ReporterID != "" && q.ReporterID != p.UserID {
			return nil, ErrAdminOnly
		}
		if q.TripID == "" {
			filter.ReporterID = p.UserID
		} else {
			trip, err := s.tripRepo.GetByID(ctx, q.TripID)
			if err != nil {
				return nil, err
			}
			if !trip.IsParticipant(p.UserID) {
				return nil, ErrNotTripParticipant
			}
		}
	}

	return s.disputeRepo.List(ctx, filter)
}
