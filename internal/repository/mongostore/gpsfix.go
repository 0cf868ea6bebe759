package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"parcelroute/internal/domain"
	"parcelroute/internal/repository"
)

// geoPoint is a GeoJSON point. Coordinates are [lng, lat].
type geoPoint struct {
	Type        string    `bson:"type"`
	Coordinates []float64 `bson:"coordinates"`
}

type gpsFixDocument struct {
	ID        string    `bson:"_id"`
	TripID    string    `bson:"trip_id"`
	UserID    string    `bson:"user_id"`
	Location  geoPoint  `bson:"location"`
	Accuracy  *float64  `bson:"accuracy,omitempty"`
	Speed     *float64  `bson:"speed,omitempty"`
	Altitude  *float64  `bson:"altitude,omitempty"`
	Timestamp time.Time `bson:"timestamp"`
}

// GPSFixRepository stores GPS fixes in MongoDB.
type GPSFixRepository struct {
	coll *mongo.Collection
}

// NewGPSFixRepository creates a GPS fix repository on db.
func NewGPSFixRepository(db *mongo.Database) *GPSFixRepository {
	return &GPSFixRepository{coll: db.Collection(GPSFixCollection)}
}

// Append stores a fix.
func (r *GPSFixRepository) Append(ctx context.Context, fix *domain.GPSFix) error {
	doc := gpsFixDocument{
		ID:     fix.ID,
		TripID: fix.TripID,
		UserID: fix.UserID,
		Location: geoPoint{
			Type:        "Point",
			Coordinates: []float64{fix.Lng, fix.Lat},
		},
		Accuracy:  fix.Accuracy,
		Speed:     fix.Speed,
		Altitude:  fix.Altitude,
		Timestamp: fix.Timestamp,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert gps fix: %w", err)
	}
	return nil
}

// ListByTrip returns a trip's fixes ordered by timestamp ascending.
func (r *GPSFixRepository) ListByTrip(ctx context.Context, tripID string) ([]*domain.GPSFix, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}})
	cursor, err := r.coll.Find(ctx, bson.M{"trip_id": tripID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []gpsFixDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	fixes := make([]*domain.GPSFix, 0, len(docs))
	for _, d := range docs {
		fix := &domain.GPSFix{
			ID:        d.ID,
			TripID:    d.TripID,
			UserID:    d.UserID,
			Accuracy:  d.Accuracy,
			Speed:     d.Speed,
			Altitude:  d.Altitude,
			Timestamp: d.Timestamp,
		}
		if len(d.Location.Coordinates) == 2 {
			fix.Lng = d.Location.Coordinates[0]
			fix.Lat = d.Location.Coordinates[1]
		}
		fixes = append(fixes, fix)
	}
	return fixes, nil
}

// CountByTrip returns how many fixes a trip has.
func (r *GPSFixRepository) CountByTrip(ctx context.Context, tripID string) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.M{"trip_id": tripID})
}

var _ repository.GPSFixRepository = (*GPSFixRepository)(nil)
