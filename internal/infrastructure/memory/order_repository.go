package memory

import (
	"context"
	"fmt"
	"sync"

	domain "github.com/grovemarket/marketplace-checkout/internal/domain/order"
)

type OrderRepository struct {
	mu         sync.RWMutex
	orders     map[string]*domain.Order
	shopOrders map[string][]*domain.ShopOrder
}

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{
		orders:     make(map[string]*domain.Order),
		shopOrders: make(map[string][]*domain.ShopOrder),
	}
}

func (r *OrderRepository) SaveOrder(ctx context.Context, o *domain.Order) error {
	_ = ctx
	if o == nil || o.ID == "" {
		return fmt.Errorf("order repository: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[o.ID]; exists {
		return domain.ErrConflict
	}
	r.orders[o.ID] = cloneOrder(o)
	return nil
}

func (r *OrderRepository) SaveShopOrder(ctx context.Context, so *domain.ShopOrder) error {
	_ = ctx
	if so == nil || so.ID == "" {
		return fmt.Errorf("order repository: shop order id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.shopOrders[so.ShopID] = append(r.shopOrders[so.ShopID], cloneShopOrder(so))
	return nil
}

func (r *OrderRepository) Order(ctx context.Context, id string) (*domain.Order, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneOrder(o), nil
}

func (r *OrderRepository) ShopOrders(ctx context.Context, shopID string) ([]*domain.ShopOrder, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	orders := r.shopOrders[shopID]
	out := make([]*domain.ShopOrder, 0, len(orders))
	for _, so := range orders {
		out = append(out, cloneShopOrder(so))
	}
	return out, nil
}

// OrderCount reports the number of recorded orders. Used by operational checks.
func (r *OrderRepository) OrderCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.orders)
}

func cloneOrder(o *domain.Order) *domain.Order {
	if o == nil {
		return nil
	}
	clone := *o
	clone.Baskets = append([]domain.BasketSnapshot(nil), o.Baskets...)
	return &clone
}

func cloneShopOrder(so *domain.ShopOrder) *domain.ShopOrder {
	if so == nil {
		return nil
	}
	clone := *so
	clone.Lines = append([]domain.LineSnapshot(nil), so.Lines...)
	return &clone
}
