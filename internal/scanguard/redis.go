package scanguard

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// claimScript: 0 = not found or foreign, 1 = claimed, 2 = already claimed.
// The claimed flag inherits the owner key's remaining TTL.
var claimScript = redis.NewScript(`
local owner = redis.call('GET', KEYS[1])
if (not owner) or owner ~= ARGV[1] then
  return 0
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl <= 0 then
  ttl = tonumber(ARGV[2])
end
if redis.call('SET', KEYS[2], '1', 'NX', 'PX', ttl) then
  return 1
end
return 2
`)

var closeScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1], KEYS[2])
end
return 0
`)

type Redis struct {
	rdb redis.UniversalClient
	ttl time.Duration
	now func() time.Time
}

func NewRedis(rdb redis.UniversalClient, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{rdb: rdb, ttl: ttl, now: time.Now}
}

func (r *Redis) Open(ctx context.Context, userID string) (Scan, error) {
	s := Scan{
		ID:        uuid.NewString(),
		UserID:    userID,
		ExpiresAt: r.now().Add(r.ttl).UTC(),
	}
	if err := r.rdb.Set(ctx, ownerKey(s.ID), userID, r.ttl).Err(); err != nil {
		return Scan{}, fmt.Errorf("open scan: %w", err)
	}
	return s, nil
}

func (r *Redis) Claim(ctx context.Context, scanID, userID string) error {
	res, err := claimScript.Run(ctx, r.rdb,
		[]string{ownerKey(scanID), claimedKey(scanID)},
		userID, r.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return fmt.Errorf("claim scan: %w", err)
	}

	switch res {
	case 1:
		return nil
	case 2:
		return ErrDuplicateDecode
	default:
		return ErrScanNotFound
	}
}

func (r *Redis) Close(ctx context.Context, scanID, userID string) error {
	if err := closeScript.Run(ctx, r.rdb,
		[]string{ownerKey(scanID), claimedKey(scanID)},
		userID,
	).Err(); err != nil {
		return fmt.Errorf("close scan: %w", err)
	}
	return nil
}
