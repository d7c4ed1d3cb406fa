package basket

// Snapshot is the serializable view of a basket used by cart stores. Checkout
// attempt state is transient and deliberately excluded: a rehydrated basket
// always starts Pending.
type Snapshot struct {
	ID     string `json:"id"`
	ShopID string `json:"shop_id"`
	Lines  []Line `json:"lines"`
}

func (b *Basket) Snapshot() Snapshot {
	return Snapshot{
		ID:     b.ID,
		ShopID: b.ShopID,
		Lines:  b.Lines(),
	}
}

func FromSnapshot(s Snapshot) *Basket {
	b := New(s.ID, s.ShopID)
	b.lines = make([]Line, len(s.Lines))
	copy(b.lines, s.Lines)
	return b
}
