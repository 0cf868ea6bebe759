package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"parcelroute/internal/domain"
	"parcelroute/internal/repository"
)

const defaultDisputeListLimit = 100

type disputeDocument struct {
	ID                string     `bson:"_id"`
	TripID            string     `bson:"trip_id"`
	ReporterID        string     `bson:"reporter_id"`
	Type              string     `bson:"type"`
	Description       string     `bson:"description"`
	Evidence          []string   `bson:"evidence"`
	Status            string     `bson:"status"`
	Outcome           string     `bson:"outcome,omitempty"`
	ResolvedBy        string     `bson:"resolved_by,omitempty"`
	ResolutionDetails string     `bson:"resolution_details,omitempty"`
	CreatedAt         time.Time  `bson:"created_at"`
	UpdatedAt         time.Time  `bson:"updated_at"`
	ResolvedAt        *time.Time `bson:"resolved_at,omitempty"`
}

func (d disputeDocument) toDomain() *domain.Dispute {
	return &domain.Dispute{
		ID:                d.ID,
		TripID:            d.TripID,
		ReporterID:        d.ReporterID,
		Type:              domain.DisputeType(d.Type),
		Description:       d.Description,
		Evidence:          d.Evidence,
		Status:            domain.DisputeStatus(d.Status),
		Outcome:           domain.TripStatus(d.Outcome),
		ResolvedBy:        d.ResolvedBy,
		ResolutionDetails: d.ResolutionDetails,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
		ResolvedAt:        d.ResolvedAt,
	}
}

// DisputeRepository stores dispute records in MongoDB.
type DisputeRepository struct {
	coll *mongo.Collection
}

// NewDisputeRepository creates a dispute repository on db.
func NewDisputeRepository(db *mongo.Database) *DisputeRepository {
	return &DisputeRepository{coll: db.Collection(DisputeCollection)}
}

// Create stores a new dispute.
func (r *DisputeRepository) Create(ctx context.Context, d *domain.Dispute) error {
	evidence := d.Evidence
	if evidence == nil {
		evidence = []string{}
	}
	doc := disputeDocument{
		ID:          d.ID,
		TripID:      d.TripID,
		ReporterID:  d.ReporterID,
		Type:        string(d.Type),
		Description: d.Description,
		Evidence:    evidence,
		Status:      string(d.Status),
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("failed to insert dispute: %w", err)
	}
	return nil
}

// GetByID retrieves a dispute by ID.
func (r *DisputeRepository) GetByID(ctx context.Context, id string) (*domain.Dispute, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

// GetOpenByTrip returns the open dispute of a trip.
func (r *DisputeRepository) GetOpenByTrip(ctx context.Context, tripID string) (*domain.Dispute, error) {
	return r.findOne(ctx, bson.M{"trip_id": tripID, "status": string(domain.DisputeStatusOpen)})
}

func (r *DisputeRepository) findOne(ctx context.Context, filter bson.M) (*domain.Dispute, error) {
	var doc disputeDocument
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return doc.toDomain(), nil
}

// List returns disputes matching filter, newest first.
func (r *DisputeRepository) List(ctx context.Context, filter repository.DisputeFilter) ([]*domain.Dispute, error) {
	query := bson.M{}
	if filter.TripID != "" {
		query["trip_id"] = filter.TripID
	}
	if filter.ReporterID != "" {
		query["reporter_id"] = filter.ReporterID
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultDisputeListLimit
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit))
	cursor, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []disputeDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	disputes := make([]*domain.Dispute, 0, len(docs))
	for _, d := range docs {
		disputes = append(disputes, d.toDomain())
	}
	return disputes, nil
}

// Resolve closes an open dispute.
func (r *DisputeRepository) Resolve(ctx context.Context, id string, res repository.DisputeResolution) error {
	resolvedAt := res.ResolvedAt
	result, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id, "status": string(domain.DisputeStatusOpen)},
		bson.M{"$set": bson.M{
			"status":             string(domain.DisputeStatusResolved),
			"outcome":            string(res.Outcome),
			"resolved_by":        res.ResolvedBy,
			"resolution_details": res.Details,
			"resolved_at":        &resolvedAt,
			"updated_at":         resolvedAt,
		}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return repository.ErrConflict
	}
	return nil
}

// Delete removes a dispute.
func (r *DisputeRepository) Delete(ctx context.Context, id string) error {
	result, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

var _ repository.DisputeRepository = (*DisputeRepository)(nil)
