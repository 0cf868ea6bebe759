package tests

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"parcelroute/internal/domain"
	"parcelroute/internal/georoute"
	"parcelroute/internal/notify"
	"parcelroute/internal/realtime"
	"parcelroute/internal/redis"
	"parcelroute/internal/repository"
)

// ──────────────────────────────────────────────
// MOCK TRIP REPOSITORY
// ──────────────────────────────────────────────

// MockTripRepository is a mock implementation of TripRepository with the same
// compare-and-set semantics as the PostgreSQL one.
type MockTripRepository struct {
	mu    sync.RWMutex
	trips map[string]*domain.Trip

	// Counters for verification
	CreateCallCount       int32
	UpdateStatusCallCount int32
	GetCurrentCallCount   int32

	// Error injection
	CreateError       error
	UpdateStatusError error
}

// NewMockTripRepository creates a new mock trip repository.
func NewMockTripRepository() *MockTripRepository {
	return &MockTripRepository{
		trips: make(map[string]*domain.Trip),
	}
}

// AddTrip adds a trip to the mock repository.
func (m *MockTripRepository) AddTrip(trip *domain.Trip) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *trip
	m.trips[trip.ID] = &copy
}

func (m *MockTripRepository) Create(ctx context.Context, trip *domain.Trip) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *trip
	m.trips[trip.ID] = &copy
	return nil
}

func (m *MockTripRepository) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	trip, ok := m.trips[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	// Return a copy to avoid mutation issues.
	copy := *trip
	return &copy, nil
}

func (m *MockTripRepository) GetCurrent(ctx context.Context, id string) (*domain.Trip, error) {
	atomic.AddInt32(&m.GetCurrentCallCount, 1)
	return m.GetByID(ctx, id)
}

func (m *MockTripRepository) ListByParticipant(ctx context.Context, userID string, limit int) ([]*domain.Trip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Trip, 0)
	for _, t := range m.trips {
		if t.IsParticipant(userID) {
			copy := *t
			result = append(result, &copy)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *MockTripRepository) UpdateStatus(ctx context.Context, trip *domain.Trip, expectedVersion int64) error {
	atomic.AddInt32(&m.UpdateStatusCallCount, 1)
	if m.UpdateStatusError != nil {
		return m.UpdateStatusError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.trips[trip.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if stored.StatusVersion != expectedVersion {
		return repository.ErrConflict
	}
	trip.StatusVersion = expectedVersion + 1
	copy := *trip
	m.trips[trip.ID] = &copy
	return nil
}

func (m *MockTripRepository) UpdateCurrentLocation(ctx context.Context, tripID string, loc domain.Location) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	trip, ok := m.trips[tripID]
	if !ok {
		return repository.ErrNotFound
	}
	trip.CurrentLocation = &loc
	return nil
}

// GetTrip returns trip for test assertions.
func (m *MockTripRepository) GetTrip(id string) *domain.Trip {
	m.mu.RLock()
	defer m.mu.RUnlock()
	trip, ok := m.trips[id]
	if !ok {
		return nil
	}
	copy := *trip
	return &copy
}

// BumpVersion simulates a concurrent writer moving the trip under a caller.
func (m *MockTripRepository) BumpVersion(id string, status domain.TripStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if trip, ok := m.trips[id]; ok {
		trip.Status = status
		trip.StatusVersion++
	}
}

// ──────────────────────────────────────────────
// MOCK TRAVELER REPOSITORY
// ──────────────────────────────────────────────

// MockTravelerRepository is a mock implementation of TravelerRepository.
type MockTravelerRepository struct {
	mu        sync.RWMutex
	travelers map[string]*domain.TravelerCandidate

	// Counters
	AdjustInFlightCallCount int32

	// Error injection
	ListMatchableError error
}

// NewMockTravelerRepository creates a new mock traveler repository.
func NewMockTravelerRepository() *MockTravelerRepository {
	return &MockTravelerRepository{
		travelers: make(map[string]*domain.TravelerCandidate),
	}
}

// AddTraveler adds a traveler to the mock repository.
func (m *MockTravelerRepository) AddTraveler(t *domain.TravelerCandidate) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *t
	m.travelers[t.TravelerID] = &copy
}

func (m *MockTravelerRepository) Upsert(ctx context.Context, t *domain.TravelerCandidate) error {
	m.AddTraveler(t)
	return nil
}

func (m *MockTravelerRepository) GetByID(ctx context.Context, id string) (*domain.TravelerCandidate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.travelers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *t
	return &copy, nil
}

func (m *MockTravelerRepository) ListMatchable(ctx context.Context) ([]*domain.TravelerCandidate, error) {
	if m.ListMatchableError != nil {
		return nil, m.ListMatchableError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.TravelerCandidate, 0, len(m.travelers))
	for _, t := range m.travelers {
		if t.Status == domain.TravelerStatusIdle || t.Status == domain.TravelerStatusActive {
			copy := *t
			result = append(result, &copy)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].TravelerID < result[j].TravelerID
	})
	return result, nil
}

func (m *MockTravelerRepository) AdjustInFlight(ctx context.Context, id string, delta int) error {
	atomic.AddInt32(&m.AdjustInFlightCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.travelers[id]
	if !ok || t.Status == domain.TravelerStatusCompleted {
		return repository.ErrNotFound
	}
	t.InFlightPackages += delta
	if t.InFlightPackages < 0 {
		t.InFlightPackages = 0
	}
	if t.InFlightPackages > 0 {
		t.Status = domain.TravelerStatusActive
	} else {
		t.Status = domain.TravelerStatusIdle
	}
	return nil
}

// GetTraveler returns traveler for test assertions.
func (m *MockTravelerRepository) GetTraveler(id string) *domain.TravelerCandidate {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.travelers[id]
	if !ok {
		return nil
	}
	copy := *t
	return &copy
}

// ──────────────────────────────────────────────
// MOCK PAYMENT REPOSITORY
// ──────────────────────────────────────────────

// MockPaymentRepository is a mock implementation of PaymentRepository.
type MockPaymentRepository struct {
	mu       sync.RWMutex
	payments map[string]*domain.Payment

	// Error injection
	CreateError error
}

// NewMockPaymentRepository creates a new mock payment repository.
func NewMockPaymentRepository() *MockPaymentRepository {
	return &MockPaymentRepository{
		payments: make(map[string]*domain.Payment),
	}
}

func (m *MockPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if p.IdempotencyKey == payment.IdempotencyKey {
			return repository.ErrConflict
		}
	}
	copy := *payment
	m.payments[payment.ID] = &copy
	return nil
}

func (m *MockPaymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.payments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *p
	return &copy, nil
}

func (m *MockPaymentRepository) GetByTripID(ctx context.Context, tripID string) (*domain.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.payments {
		if p.TripID == tripID {
			copy := *p
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockPaymentRepository) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.payments {
		if p.IdempotencyKey == key {
			copy := *p
			return &copy, nil
		}
	}
	return nil, nil
}

func (m *MockPaymentRepository) UpdateStatus(ctx context.Context, id string, status domain.PaymentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.Status = status
	p.UpdatedAt = time.Now()
	return nil
}

// TripPayment returns the trip's payment for test assertions.
func (m *MockPaymentRepository) TripPayment(tripID string) *domain.Payment {
	p, _ := m.GetByTripID(context.Background(), tripID)
	return p
}

// CountPayments returns the number of stored payments.
func (m *MockPaymentRepository) CountPayments() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.payments)
}

// ──────────────────────────────────────────────
// MOCK GPS FIX REPOSITORY
// ──────────────────────────────────────────────

// MockGPSFixRepository is an in-memory fix log.
type MockGPSFixRepository struct {
	mu    sync.RWMutex
	fixes []*domain.GPSFix

	// Error injection
	AppendError error
}

// NewMockGPSFixRepository creates a new mock fix repository.
func NewMockGPSFixRepository() *MockGPSFixRepository {
	return &MockGPSFixRepository{}
}

func (m *MockGPSFixRepository) Append(ctx context.Context, fix *domain.GPSFix) error {
	if m.AppendError != nil {
		return m.AppendError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *fix
	m.fixes = append(m.fixes, &copy)
	return nil
}

func (m *MockGPSFixRepository) ListByTrip(ctx context.Context, tripID string) ([]*domain.GPSFix, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.GPSFix, 0)
	for _, f := range m.fixes {
		if f.TripID == tripID {
			copy := *f
			result = append(result, &copy)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp.Before(result[j].Timestamp)
	})
	return result, nil
}

func (m *MockGPSFixRepository) CountByTrip(ctx context.Context, tripID string) (int64, error) {
	fixes, _ := m.ListByTrip(ctx, tripID)
	return int64(len(fixes)), nil
}

// ──────────────────────────────────────────────
// MOCK CHAT REPOSITORY
// ──────────────────────────────────────────────

// MockChatRepository is an in-memory message log.
type MockChatRepository struct {
	mu       sync.RWMutex
	messages []*domain.ChatMessage
}

// NewMockChatRepository creates a new mock chat repository.
func NewMockChatRepository() *MockChatRepository {
	return &MockChatRepository{}
}

func (m *MockChatRepository) Append(ctx context.Context, msg *domain.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *msg
	copy.ReadBy = append([]string{}, msg.ReadBy...)
	m.messages = append(m.messages, &copy)
	return nil
}

func (m *MockChatRepository) GetByID(ctx context.Context, id string) (*domain.ChatMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, msg := range m.messages {
		if msg.ID == id {
			copy := *msg
			copy.ReadBy = append([]string{}, msg.ReadBy...)
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockChatRepository) ListByTrip(ctx context.Context, tripID string, page repository.MessagePage) ([]*domain.ChatMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.ChatMessage, 0)
	for _, msg := range m.messages {
		if msg.TripID == tripID && !msg.Retracted() {
			copy := *msg
			copy.ReadBy = append([]string{}, msg.ReadBy...)
			result = append(result, &copy)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp.Before(result[j].Timestamp)
	})
	if page.Limit > 0 {
		p := page.Page
		if p < 1 {
			p = 1
		}
		start := (p - 1) * page.Limit
		if start >= len(result) {
			return []*domain.ChatMessage{}, nil
		}
		end := start + page.Limit
		if end > len(result) {
			end = len(result)
		}
		result = result[start:end]
	}
	return result, nil
}

func (m *MockChatRepository) MarkRead(ctx context.Context, messageID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.messages {
		if msg.ID == messageID {
			if !msg.ReadByUser(userID) {
				msg.ReadBy = append(msg.ReadBy, userID)
			}
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *MockChatRepository) Retract(ctx context.Context, messageID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.messages {
		if msg.ID == messageID {
			if msg.DeletedAt == nil {
				msg.DeletedAt = &at
			}
			return nil
		}
	}
	return repository.ErrNotFound
}

// CountMessages returns how many messages the log holds, retracted included.
func (m *MockChatRepository) CountMessages() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.messages)
}

// ──────────────────────────────────────────────
// MOCK DISPUTE REPOSITORY
// ──────────────────────────────────────────────

// MockDisputeRepository keeps disputes in memory and, like the MongoDB index,
// allows one open dispute per trip.
type MockDisputeRepository struct {
	mu       sync.RWMutex
	disputes map[string]*domain.Dispute
	order    []string

	// Error injection
	ResolveError error
}

// NewMockDisputeRepository creates a new mock dispute repository.
func NewMockDisputeRepository() *MockDisputeRepository {
	return &MockDisputeRepository{disputes: make(map[string]*domain.Dispute)}
}

func cloneDispute(d *domain.Dispute) *domain.Dispute {
	copy := *d
	copy.Evidence = append([]string{}, d.Evidence...)
	return &copy
}

func (m *MockDisputeRepository) Create(ctx context.Context, d *domain.Dispute) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.disputes {
		if existing.TripID == d.TripID && existing.Status == domain.DisputeStatusOpen {
			return repository.ErrConflict
		}
	}
	m.disputes[d.ID] = cloneDispute(d)
	m.order = append(m.order, d.ID)
	return nil
}

func (m *MockDisputeRepository) GetByID(ctx context.Context, id string) (*domain.Dispute, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.disputes[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneDispute(d), nil
}

func (m *MockDisputeRepository) GetOpenByTrip(ctx context.Context, tripID string) (*domain.Dispute, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, d := range m.disputes {
		if d.TripID == tripID && d.Status == domain.DisputeStatusOpen {
			return cloneDispute(d), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockDisputeRepository) List(ctx context.Context, filter repository.DisputeFilter) ([]*domain.Dispute, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Dispute, 0)
	for i := len(m.order) - 1; i >= 0; i-- {
		d, ok := m.disputes[m.order[i]]
		if !ok {
			continue
		}
		if filter.TripID != "" && d.TripID != filter.TripID {
			continue
		}
		if filter.ReporterID != "" && d.ReporterID != filter.ReporterID {
			continue
		}
		result = append(result, cloneDispute(d))
		if filter.Limit > 0 && len(result) == filter.Limit {
			break
		}
	}
	return result, nil
}

func (m *MockDisputeRepository) Resolve(ctx context.Context, id string, res repository.DisputeResolution) error {
	if m.ResolveError != nil {
		return m.ResolveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.disputes[id]
	if !ok {
		return repository.ErrNotFound
	}
	if d.Status != domain.DisputeStatusOpen {
		return repository.ErrConflict
	}
	at := res.ResolvedAt
	d.Status = domain.DisputeStatusResolved
	d.Outcome = res.Outcome
	d.ResolvedBy = res.ResolvedBy
	d.ResolutionDetails = res.Details
	d.ResolvedAt = &at
	d.UpdatedAt = at
	return nil
}

func (m *MockDisputeRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.disputes[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.disputes, id)
	return nil
}

// Count returns how many disputes are stored.
func (m *MockDisputeRepository) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.disputes)
}

// ──────────────────────────────────────────────
// MOCK NOTIFICATION REPOSITORY
// ──────────────────────────────────────────────

// MockNotificationRepository is an in-memory inbox.
type MockNotificationRepository struct {
	mu    sync.RWMutex
	items []*domain.Notification

	// Error injection
	CreateError error
}

// NewMockNotificationRepository creates a new mock notification repository.
func NewMockNotificationRepository() *MockNotificationRepository {
	return &MockNotificationRepository{}
}

func (m *MockNotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *n
	m.items = append(m.items, &copy)
	return nil
}

func (m *MockNotificationRepository) GetByID(ctx context.Context, id string) (*domain.Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, n := range m.items {
		if n.ID == id {
			copy := *n
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockNotificationRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Notification, 0)
	for i := len(m.items) - 1; i >= 0; i-- {
		if m.items[i].UserID != userID {
			continue
		}
		copy := *m.items[i]
		result = append(result, &copy)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

func (m *MockNotificationRepository) MarkRead(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.items {
		if n.ID == id {
			if !n.Read {
				n.Read = true
				n.ReadAt = &at
			}
			return nil
		}
	}
	return repository.ErrNotFound
}

// ──────────────────────────────────────────────
// MOCK ROUTER
// ──────────────────────────────────────────────

// ErrMockProvider is what MockRouter returns for failing routes.
var ErrMockProvider = fmt.Errorf("%w: simulated outage", domain.ErrProvider)

// MockRouter answers from fixed distances. The direct route has
// BaselineMeters; a route through waypoints has the distance registered for
// its first waypoint. Durations assume 10 m/s.
type MockRouter struct {
	mu        sync.RWMutex
	Baseline  float64
	augmented map[string]float64
	failing   map[string]bool

	// Counters
	CallCount int32

	// Error injection
	FailBaseline bool
}

// NewMockRouter creates a router with the given direct distance.
func NewMockRouter(baselineMeters float64) *MockRouter {
	return &MockRouter{
		Baseline:  baselineMeters,
		augmented: make(map[string]float64),
		failing:   make(map[string]bool),
	}
}

func pointKey(l domain.Location) string {
	return fmt.Sprintf("%.6f,%.6f", l.Lat, l.Lng)
}

// SetDetour registers the total distance of a route whose first waypoint is wp.
func (m *MockRouter) SetDetour(wp domain.Location, totalMeters float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.augmented[pointKey(wp)] = totalMeters
}

// FailFor makes routes through wp fail with a provider error.
func (m *MockRouter) FailFor(wp domain.Location) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failing[pointKey(wp)] = true
}

func (m *MockRouter) Route(ctx context.Context, req georoute.RouteRequest) (*georoute.Route, error) {
	atomic.AddInt32(&m.CallCount, 1)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrProvider, err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(req.Waypoints) == 0 {
		if m.FailBaseline {
			return nil, ErrMockProvider
		}
		return &georoute.Route{DistanceMeters: m.Baseline, DurationSeconds: m.Baseline / 10}, nil
	}

	key := pointKey(req.Waypoints[0])
	if m.failing[key] {
		return nil, ErrMockProvider
	}
	total, ok := m.augmented[key]
	if !ok {
		return nil, georoute.ErrNoRoute
	}
	return &georoute.Route{DistanceMeters: total, DurationSeconds: total / 10}, nil
}

// ──────────────────────────────────────────────
// MOCK LOCK STORE
// ──────────────────────────────────────────────

// MockLockStore is a mock implementation of LockStore.
type MockLockStore struct {
	mu    sync.Mutex
	locks map[string]mockLease
	seq   int

	// Counters
	AcquireCallCount int32
	ReleaseCallCount int32

	// Error injection
	AcquireError error
}

type mockLease struct {
	token  string
	expiry time.Time
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{
		locks: make(map[string]mockLease),
	}
}

func (m *MockLockStore) AcquireTravelerLock(ctx context.Context, travelerID string, ttl time.Duration) (string, bool, error) {
	atomic.AddInt32(&m.AcquireCallCount, 1)
	if m.AcquireError != nil {
		return "", false, m.AcquireError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, held := m.locks[travelerID]; held && time.Now().Before(l.expiry) {
		return "", false, nil
	}
	m.seq++
	token := fmt.Sprintf("lease-%d", m.seq)
	m.locks[travelerID] = mockLease{token: token, expiry: time.Now().Add(ttl)}
	return token, true, nil
}

func (m *MockLockStore) ReleaseTravelerLock(ctx context.Context, travelerID, token string) error {
	atomic.AddInt32(&m.ReleaseCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, held := m.locks[travelerID]; held && l.token == token {
		delete(m.locks, travelerID)
	}
	return nil
}

// Hold takes the lock as if another request owned it.
func (m *MockLockStore) Hold(travelerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locks[travelerID] = mockLease{token: "foreign", expiry: time.Now().Add(time.Hour)}
}

// IsLocked reports whether the traveler lock is held.
func (m *MockLockStore) IsLocked(travelerID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, held := m.locks[travelerID]
	return held
}

// ──────────────────────────────────────────────
// MOCK LOCATION STORE
// ──────────────────────────────────────────────

// MockLocationStore is a mock implementation of LocationStore.
type MockLocationStore struct {
	mu        sync.RWMutex
	locations map[string]redis.TravelerLocation

	// Counters
	UpdateLocationCallCount int32

	// Error injection
	UpdateLocationError error
}

// NewMockLocationStore creates a new mock location store.
func NewMockLocationStore() *MockLocationStore {
	return &MockLocationStore{
		locations: make(map[string]redis.TravelerLocation),
	}
}

func (m *MockLocationStore) UpdateLocation(ctx context.Context, travelerID string, lat, lng float64) error {
	atomic.AddInt32(&m.UpdateLocationCallCount, 1)
	if m.UpdateLocationError != nil {
		return m.UpdateLocationError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locations[travelerID] = redis.TravelerLocation{TravelerID: travelerID, Lat: lat, Lng: lng}
	return nil
}

// FindNearby returns every location within radiusKm by great-circle distance.
func (m *MockLocationStore) FindNearby(ctx context.Context, lat, lng, radiusKm float64) ([]redis.TravelerLocation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	center := domain.Location{Lat: lat, Lng: lng}
	result := make([]redis.TravelerLocation, 0)
	for _, loc := range m.locations {
		km := georoute.HaversineMeters(center, domain.Location{Lat: loc.Lat, Lng: loc.Lng}) / 1000
		if km <= radiusKm {
			loc.DistanceKm = km
			result = append(result, loc)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].DistanceKm < result[j].DistanceKm
	})
	return result, nil
}

func (m *MockLocationStore) RemoveLocation(ctx context.Context, travelerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locations, travelerID)
	return nil
}

// HasLocation checks if a traveler location exists.
func (m *MockLocationStore) HasLocation(travelerID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.locations[travelerID]
	return ok
}

// ──────────────────────────────────────────────
// MOCK ESCROW GATEWAY
// ──────────────────────────────────────────────

// ErrGatewayDeclined is what MockGateway returns when told to fail.
var ErrGatewayDeclined = errors.New("card declined")

// MockGateway is a mock escrow gateway.
type MockGateway struct {
	mu sync.Mutex

	// Control behavior
	FailHold    bool
	FailCapture bool

	// Tracking
	holds    map[string]int64 // ref -> amount in minor units
	captured map[string]bool
	canceled map[string]bool
	seq      int
}

// NewMockGateway creates a new mock gateway.
func NewMockGateway() *MockGateway {
	return &MockGateway{
		holds:    make(map[string]int64),
		captured: make(map[string]bool),
		canceled: make(map[string]bool),
	}
}

func (g *MockGateway) Hold(ctx context.Context, amountMinor int64, currency, idempotencyKey string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.FailHold {
		return "", ErrGatewayDeclined
	}
	g.seq++
	ref := fmt.Sprintf("hold-%d", g.seq)
	g.holds[ref] = amountMinor
	return ref, nil
}

func (g *MockGateway) Capture(ctx context.Context, ref string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.FailCapture {
		return ErrGatewayDeclined
	}
	g.captured[ref] = true
	return nil
}

func (g *MockGateway) Cancel(ctx context.Context, ref string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.canceled[ref] = true
	return nil
}

// HoldCount returns how many holds were placed.
func (g *MockGateway) HoldCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.holds)
}

// HeldAmount returns the minor units held under ref.
func (g *MockGateway) HeldAmount(ref string) int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.holds[ref]
}

// WasCaptured reports whether ref was captured.
func (g *MockGateway) WasCaptured(ref string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.captured[ref]
}

// WasCanceled reports whether ref was cancelled.
func (g *MockGateway) WasCanceled(ref string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.canceled[ref]
}

// ──────────────────────────────────────────────
// MOCK PUSH SENDER
// ──────────────────────────────────────────────

// MockPushSender records notifications instead of delivering them.
type MockPushSender struct {
	mu   sync.Mutex
	sent []notify.Notification

	// Error injection
	SendError error
}

func (m *MockPushSender) Send(ctx context.Context, n notify.Notification) error {
	if m.SendError != nil {
		return m.SendError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, n)
	return nil
}

// Sent returns the notifications of the given type.
func (m *MockPushSender) Sent(notificationType string) []notify.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []notify.Notification
	for _, n := range m.sent {
		if n.Type == notificationType {
			out = append(out, n)
		}
	}
	return out
}

// ──────────────────────────────────────────────
// MOCK CONNECTION HANDLE
// ──────────────────────────────────────────────

// MockHandle is a connected client that keeps what it was sent.
type MockHandle struct {
	id        string
	principal domain.Principal

	mu     sync.Mutex
	events []realtime.Event
}

// NewMockHandle creates a handle for userID.
func NewMockHandle(id, userID string, role domain.Role) *MockHandle {
	return &MockHandle{id: id, principal: domain.Principal{UserID: userID, Role: role}}
}

func (h *MockHandle) ID() string                  { return h.id }
func (h *MockHandle) Principal() domain.Principal { return h.principal }

func (h *MockHandle) Send(evt realtime.Event) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, evt)
	return true
}

// Events returns the events named name, in delivery order.
func (h *MockHandle) Events(name string) []realtime.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []realtime.Event
	for _, e := range h.events {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}
