package rediscart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	domain "github.com/grovemarket/marketplace-checkout/internal/domain/cart"
)

const defaultTTL = 14 * 24 * time.Hour

// Repository keeps cart sessions in Redis as JSON documents with a sliding
// TTL, so abandoned guest carts expire on their own. Checkout attempt state is
// transient and not persisted; a rehydrated basket always starts Pending.
type Repository struct {
	rdb *redis.Client
	ttl time.Duration
}

func New(rdb *redis.Client, ttl time.Duration) *Repository {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Repository{rdb: rdb, ttl: ttl}
}

func (r *Repository) Save(ctx context.Context, c *domain.Cart) error {
	if c == nil {
		return nil
	}
	payload, err := json.Marshal(c.Snapshot())
	if err != nil {
		return fmt.Errorf("rediscart: encode: %w", err)
	}
	if err := r.rdb.Set(ctx, key(c.ID), payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("rediscart: set: %w", err)
	}
	return nil
}

func (r *Repository) Find(ctx context.Context, id string) (*domain.Cart, error) {
	payload, err := r.rdb.Get(ctx, key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("rediscart: get: %w", err)
	}
	var snap domain.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("rediscart: decode: %w", err)
	}
	return domain.FromSnapshot(snap)
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	if err := r.rdb.Del(ctx, key(id)).Err(); err != nil {
		return fmt.Errorf("rediscart: del: %w", err)
	}
	return nil
}

func key(cartID string) string { return "cart:" + cartID }
