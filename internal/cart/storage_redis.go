package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/modacart/modacart-backend/internal/discounts"
	"github.com/modacart/modacart-backend/internal/shipping"
	redisclient "github.com/modacart/modacart-backend/pkg/redis"
	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"
)

const (
	partItems    = "items"
	partSaved    = "saved"
	partShipping = "shipping"
	partDiscount = "discount"
)

// RedisStorage persists cart snapshots as four JSON blobs per session,
// one key per logical state part. Writes are last-write-wins; the in-memory
// store remains the source of truth for the active session.
type RedisStorage struct {
	client *redisclient.Client
	ttl    time.Duration
}

// NewRedisStorage wraps the shared redis client as cart snapshot storage.
func NewRedisStorage(client *redisclient.Client, ttl time.Duration) (*RedisStorage, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	return &RedisStorage{client: client, ttl: ttl}, nil
}

// Save writes all four state parts. Each part is attempted independently so
// one failing key does not block the rest; the errors are combined.
func (r *RedisStorage) Save(ctx context.Context, sessionID string, snap Snapshot) error {
	var err error
	err = multierr.Append(err, r.savePart(ctx, sessionID, partItems, snap.Items))
	err = multierr.Append(err, r.savePart(ctx, sessionID, partSaved, snap.Saved))
	err = multierr.Append(err, r.savePart(ctx, sessionID, partShipping, snap.Shipping))
	if snap.Discount == nil {
		err = multierr.Append(err, r.client.Del(ctx, r.client.CartStateKey(sessionID, partDiscount)))
	} else {
		err = multierr.Append(err, r.savePart(ctx, sessionID, partDiscount, snap.Discount))
	}
	return err
}

// Load reads whichever parts exist. Absent keys leave the corresponding
// zero values in place, so a first-run session loads cleanly.
func (r *RedisStorage) Load(ctx context.Context, sessionID string) (Snapshot, error) {
	snap := Snapshot{Shipping: shipping.Default()}

	if err := r.loadPart(ctx, sessionID, partItems, &snap.Items); err != nil {
		return Snapshot{}, err
	}
	if err := r.loadPart(ctx, sessionID, partSaved, &snap.Saved); err != nil {
		return Snapshot{}, err
	}
	if err := r.loadPart(ctx, sessionID, partShipping, &snap.Shipping); err != nil {
		return Snapshot{}, err
	}
	var applied *discounts.Applied
	if err := r.loadPart(ctx, sessionID, partDiscount, &applied); err != nil {
		return Snapshot{}, err
	}
	snap.Discount = applied
	return snap, nil
}

func (r *RedisStorage) savePart(ctx context.Context, sessionID, part string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cart %s: %w", part, err)
	}
	return r.client.Set(ctx, r.client.CartStateKey(sessionID, part), payload, r.ttl)
}

func (r *RedisStorage) loadPart(ctx context.Context, sessionID, part string, dest any) error {
	raw, err := r.client.Get(ctx, r.client.CartStateKey(sessionID, part))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("load cart %s: %w", part, err)
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return fmt.Errorf("decode cart %s: %w", part, err)
	}
	return nil
}
