package memory

import (
	"context"
	"sync"

	domain "github.com/grovemarket/marketplace-checkout/internal/domain/cart"
)

// CartRepository stores live cart instances. Carts are mutated only by their
// owning principal's request, so the map lock guards the index, not the carts.
type CartRepository struct {
	mu    sync.RWMutex
	carts map[string]*domain.Cart
}

func NewCartRepository() *CartRepository {
	return &CartRepository{carts: make(map[string]*domain.Cart)}
}

func (r *CartRepository) Save(ctx context.Context, c *domain.Cart) error {
	_ = ctx
	if c == nil {
		return nil
	}
	r.mu.Lock()
	r.carts[c.ID] = c
	r.mu.Unlock()
	return nil
}

func (r *CartRepository) Find(ctx context.Context, id string) (*domain.Cart, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.carts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return c, nil
}

func (r *CartRepository) Delete(ctx context.Context, id string) error {
	_ = ctx
	r.mu.Lock()
	delete(r.carts, id)
	r.mu.Unlock()
	return nil
}
