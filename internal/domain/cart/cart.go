package cart

import (
	"errors"
	"sort"
	"time"

	"github.com/grovemarket/marketplace-checkout/internal/domain/basket"
)

var (
	ErrNotFound           = errors.New("cart: not found")
	ErrBasketNotFound     = errors.New("cart: no basket for shop")
	ErrBasketExists       = errors.New("cart: basket for shop already present")
	ErrEmptySelection     = errors.New("cart: selection is empty")
	ErrDuplicateSelection = errors.New("cart: shop selected more than once")
	ErrInvalidOwner       = errors.New("cart: owner id is required")
)

// Cart is a buyer-owned collection of baskets awaiting checkout, at most one
// basket per shop. The owner may be a registered user or a guest session; the
// cart survives login by re-parenting to the new owner. Cart state is mutated
// only by the owning principal's request, so no locking is needed here.
type Cart struct {
	ID        string
	OwnerID   string
	baskets   map[string]*basket.Basket
	CreatedAt time.Time
	UpdatedAt time.Time
}

func New(id, ownerID string) (*Cart, error) {
	if ownerID == "" {
		return nil, ErrInvalidOwner
	}
	now := time.Now().UTC()
	return &Cart{
		ID:        id,
		OwnerID:   ownerID,
		baskets:   make(map[string]*basket.Basket),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Basket returns the basket for the given shop, if present.
func (c *Cart) Basket(shopID string) (*basket.Basket, bool) {
	b, ok := c.baskets[shopID]
	return b, ok
}

// Attach adds a basket for a shop not yet represented in the cart.
func (c *Cart) Attach(b *basket.Basket) error {
	if _, exists := c.baskets[b.ShopID]; exists {
		return ErrBasketExists
	}
	c.baskets[b.ShopID] = b
	c.touch()
	return nil
}

// Detach removes the basket for the given shop, either because its last line
// was removed or because a successful purchase consumed it.
func (c *Cart) Detach(shopID string) {
	delete(c.baskets, shopID)
	c.touch()
}

// Baskets returns the carried baskets in ascending shop id order.
func (c *Cart) Baskets() []*basket.Basket {
	out := make([]*basket.Basket, 0, len(c.baskets))
	for _, b := range c.baskets {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ShopID < out[j].ShopID })
	return out
}

// Select resolves a purchase selection to baskets in ascending shop id order.
// Unknown or duplicated shops are a usage error, not a stock error.
func (c *Cart) Select(shopIDs []string) ([]*basket.Basket, error) {
	if len(shopIDs) == 0 {
		return nil, ErrEmptySelection
	}
	seen := make(map[string]struct{}, len(shopIDs))
	out := make([]*basket.Basket, 0, len(shopIDs))
	for _, shopID := range shopIDs {
		if _, dup := seen[shopID]; dup {
			return nil, ErrDuplicateSelection
		}
		seen[shopID] = struct{}{}
		b, ok := c.baskets[shopID]
		if !ok {
			return nil, ErrBasketNotFound
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ShopID < out[j].ShopID })
	return out, nil
}

// Reparent transfers ownership, e.g. when a guest session logs in.
func (c *Cart) Reparent(ownerID string) error {
	if ownerID == "" {
		return ErrInvalidOwner
	}
	c.OwnerID = ownerID
	c.touch()
	return nil
}

func (c *Cart) Empty() bool {
	return len(c.baskets) == 0
}

func (c *Cart) touch() {
	c.UpdatedAt = time.Now().UTC()
}
