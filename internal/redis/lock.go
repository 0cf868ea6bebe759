package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only while it still carries the caller's
// token. A lease that expired and was taken by someone else is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// LockStore hands out short leases on travelers so that two shippers cannot
// assign the same traveler at once.
type LockStore struct {
	client *redis.Client
}

// NewLockStore creates a new LockStore.
func NewLockStore(client *redis.Client) *LockStore {
	return &LockStore{client: client}
}

func travelerLockKey(travelerID string) string {
	return fmt.Sprintf("lock:traveler:%s", travelerID)
}

// AcquireTravelerLock takes the assignment lease for a traveler. It returns
// the owner token to pass to ReleaseTravelerLock, or ok=false when the lease
// is held elsewhere.
func (s *LockStore) AcquireTravelerLock(ctx context.Context, travelerID string, ttl time.Duration) (token string, ok bool, err error) {
	token = uuid.New().String()

	ok, err = s.client.SetNX(ctx, travelerLockKey(travelerID), token, ttl).Result()
	if err != nil || !ok {
		return "", false, err
	}
	return token, true, nil
}

// ReleaseTravelerLock gives the lease back if token still owns it.
func (s *LockStore) ReleaseTravelerLock(ctx context.Context, travelerID, token string) error {
	return releaseScript.Run(ctx, s.client, []string{travelerLockKey(travelerID)}, token).Err()
}
