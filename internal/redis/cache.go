package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"parcelroute/internal/domain"
)

// CacheStore handles entity caching in Redis.
type CacheStore struct {
	client *redis.Client
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client) *CacheStore {
	return &CacheStore{client: client}
}

// TripCacheTTL bounds how stale a cached trip can be if an invalidation is lost.
const TripCacheTTL = 60 * time.Second

const tripCachePrefix = "cache:trip:"

// tripVersionSuffix names the key holding the lowest status version the
// cache may still accept for a trip.
const tripVersionSuffix = ":version"

// setTripScript fills the cache unless a newer status version was already
// seen. KEYS: data, version floor. ARGV: payload, status version, ttl ms.
var setTripScript = redis.NewScript(`
local floor = tonumber(redis.call("GET", KEYS[2]) or "-1")
if tonumber(ARGV[2]) < floor then
	return 0
end
redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[3])
redis.call("SET", KEYS[2], ARGV[2], "PX", ARGV[3])
return 1
`)

// advanceTripScript raises the version floor and drops the cached copy.
// KEYS: data, version floor. ARGV: status version, ttl ms.
var advanceTripScript = redis.NewScript(`
local floor = tonumber(redis.call("GET", KEYS[2]) or "-1")
if tonumber(ARGV[1]) > floor then
	redis.call("SET", KEYS[2], ARGV[1], "PX", ARGV[2])
end
redis.call("DEL", KEYS[1])
return 1
`)

// CachedTrip is the cached form of a trip.
type CachedTrip struct {
	ID                  string          `json:"id"`
	ShipperID           string          `json:"shipper_id"`
	TravelerID          string          `json:"traveler_id,omitempty"`
	Status              string          `json:"status"`
	Origin              cachedLocation  `json:"origin"`
	Destination         cachedLocation  `json:"destination"`
	Package             cachedPackage   `json:"package"`
	Fare                float64         `json:"fare"`
	CurrentLocation     *cachedLocation `json:"current_location,omitempty"`
	StatusVersion       int64           `json:"status_version"`
	EstimatedDeliveryAt time.Time       `json:"estimated_delivery_at"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

type cachedLocation struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address,omitempty"`
}

type cachedPackage struct {
	Description string             `json:"description,omitempty"`
	WeightKg    float64            `json:"weight_kg"`
	Dimensions  *domain.Dimensions `json:"dimensions,omitempty"`
	Type        string             `json:"type,omitempty"`
}

func toCachedLocation(l domain.Location) cachedLocation {
	return cachedLocation{Lat: l.Lat, Lng: l.Lng, Address: l.Address}
}

func (l cachedLocation) toDomain() domain.Location {
	return domain.Location{Lat: l.Lat, Lng: l.Lng, Address: l.Address}
}

// NewCachedTrip converts a trip to its cached form.
func NewCachedTrip(t *domain.Trip) *CachedTrip {
	ct := &CachedTrip{
		ID:          t.ID,
		ShipperID:   t.ShipperID,
		TravelerID:  t.TravelerID,
		Status:      string(t.Status),
		Origin:      toCachedLocation(t.Origin),
		Destination: toCachedLocation(t.Destination),
		Package: cachedPackage{
			Description: t.Package.Description,
			WeightKg:    t.Package.WeightKg,
			Dimensions:  t.Package.Dimensions,
			Type:        t.Package.Type,
		},
		Fare:                t.Fare,
		StatusVersion:       t.StatusVersion,
		EstimatedDeliveryAt: t.EstimatedDeliveryAt,
		CreatedAt:           t.CreatedAt,
		UpdatedAt:           t.UpdatedAt,
	}
	if t.CurrentLocation != nil {
		cur := toCachedLocation(*t.CurrentLocation)
		ct.CurrentLocation = &cur
	}
	return ct
}

// Trip converts the cached form back to a trip.
func (ct *CachedTrip) Trip() *domain.Trip {
	t := &domain.Trip{
		ID:          ct.ID,
		ShipperID:   ct.ShipperID,
		TravelerID:  ct.TravelerID,
		Status:      domain.TripStatus(ct.Status),
		Origin:      ct.Origin.toDomain(),
		Destination: ct.Destination.toDomain(),
		Package: domain.PackageDetails{
			Description: ct.Package.Description,
			WeightKg:    ct.Package.WeightKg,
			Dimensions:  ct.Package.Dimensions,
			Type:        ct.Package.Type,
		},
		Fare:                ct.Fare,
		StatusVersion:       ct.StatusVersion,
		EstimatedDeliveryAt: ct.EstimatedDeliveryAt,
		CreatedAt:           ct.CreatedAt,
		UpdatedAt:           ct.UpdatedAt,
	}
	if ct.CurrentLocation != nil {
		cur := ct.CurrentLocation.toDomain()
		t.CurrentLocation = &cur
	}
	return t
}

// GetTrip retrieves a trip from cache. A miss returns nil, nil.
func (s *CacheStore) GetTrip(ctx context.Context, tripID string) (*CachedTrip, error) {
	data, err := s.client.Get(ctx, tripCachePrefix+tripID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var trip CachedTrip
	if err := json.Unmarshal(data, &trip); err != nil {
		return nil, err
	}
	return &trip, nil
}

// SetTrip stores a trip in cache. A copy older than a status version the
// cache has already seen is discarded, so a read that raced a transition
// cannot put the old status back.
func (s *CacheStore) SetTrip(ctx context.Context, trip *CachedTrip) error {
	data, err := json.Marshal(trip)
	if err != nil {
		return err
	}
	keys := []string{tripCachePrefix + trip.ID, tripCachePrefix + trip.ID + tripVersionSuffix}
	return setTripScript.Run(ctx, s.client, keys, data, trip.StatusVersion, TripCacheTTL.Milliseconds()).Err()
}

// AdvanceTrip records that statusVersion is committed and drops the cached
// copy.
func (s *CacheStore) AdvanceTrip(ctx context.Context, tripID string, statusVersion int64) error {
	keys := []string{tripCachePrefix + tripID, tripCachePrefix + tripID + tripVersionSuffix}
	return advanceTripScript.Run(ctx, s.client, keys, statusVersion, TripCacheTTL.Milliseconds()).Err()
}

// InvalidateTrip removes a trip from cache.
func (s *CacheStore) InvalidateTrip(ctx context.Context, tripID string) error {
	return s.client.Del(ctx, tripCachePrefix+tripID).Err()
}
