package cart

import (
	"time"

	"github.com/grovemarket/marketplace-checkout/internal/domain/basket"
)

// Snapshot is the serializable view of a cart used by external cart stores.
type Snapshot struct {
	ID        string            `json:"id"`
	OwnerID   string            `json:"owner_id"`
	Baskets   []basket.Snapshot `json:"baskets"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

func (c *Cart) Snapshot() Snapshot {
	baskets := make([]basket.Snapshot, 0, len(c.baskets))
	for _, b := range c.Baskets() {
		baskets = append(baskets, b.Snapshot())
	}
	return Snapshot{
		ID:        c.ID,
		OwnerID:   c.OwnerID,
		Baskets:   baskets,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func FromSnapshot(s Snapshot) (*Cart, error) {
	c, err := New(s.ID, s.OwnerID)
	if err != nil {
		return nil, err
	}
	for _, bs := range s.Baskets {
		if err := c.Attach(basket.FromSnapshot(bs)); err != nil {
			return nil, err
		}
	}
	c.CreatedAt = s.CreatedAt
	c.UpdatedAt = s.UpdatedAt
	return c, nil
}
