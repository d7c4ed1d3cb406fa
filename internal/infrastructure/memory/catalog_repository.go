package memory

import (
	"context"
	"sync"

	domain "github.com/grovemarket/marketplace-checkout/internal/domain/catalog"
)

// CatalogRepository is an in-memory product/shop store. Unlike record stores it
// hands back the shared *Product instance: every checkout must reserve against
// the same stock counter, so products are never cloned.
type CatalogRepository struct {
	mu       sync.RWMutex
	shops    map[string]*domain.Shop
	products map[string]*domain.Product
}

func NewCatalogRepository() *CatalogRepository {
	return &CatalogRepository{
		shops:    make(map[string]*domain.Shop),
		products: make(map[string]*domain.Product),
	}
}

func (r *CatalogRepository) AddShop(s *domain.Shop) {
	if s == nil {
		return
	}
	r.mu.Lock()
	r.shops[s.ID] = s
	r.mu.Unlock()
}

func (r *CatalogRepository) AddProduct(p *domain.Product) {
	if p == nil {
		return
	}
	r.mu.Lock()
	r.products[p.ID] = p
	r.mu.Unlock()
}

func (r *CatalogRepository) Product(ctx context.Context, productID string) (*domain.Product, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.products[productID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

func (r *CatalogRepository) Shop(ctx context.Context, shopID string) (*domain.Shop, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.shops[shopID]
	if !ok {
		return nil, domain.ErrShopNotFound
	}
	return s, nil
}
