package basket

import (
	"errors"
	"sort"
	"time"
)

var (
	ErrInvalidQuantity        = errors.New("basket: quantity must be greater than zero")
	ErrLineNotFound           = errors.New("basket: no line for product")
	ErrInvalidStateTransition = errors.New("basket: invalid state transition")
)

// State tracks a basket through a single checkout attempt.
// Pending → Reserved → {Committed | Released}. Released baskets are reset to
// Pending by the checkout engine so the owner may retry from a clean slate.
type State string

const (
	StatePending   State = "pending"
	StateReserved  State = "reserved"
	StateCommitted State = "committed"
	StateReleased  State = "released"
)

// Line is one (product, quantity) entry. The same product may appear in several
// lines; reservation accumulates them.
type Line struct {
	ProductID string
	Quantity  int
}

// Basket holds a single shop's line items within a cart. It is owned by exactly
// one cart and mutated only by the owning principal's request, so it carries no
// locking of its own.
type Basket struct {
	ID        string
	ShopID    string
	lines     []Line
	state     State
	CreatedAt time.Time
	UpdatedAt time.Time
}

func New(id, shopID string) *Basket {
	now := time.Now().UTC()
	return &Basket{
		ID:        id,
		ShopID:    shopID,
		state:     StatePending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Add appends a line. Lines are kept in insertion order; the reservation order
// is derived from Merged, not from this slice.
func (b *Basket) Add(productID string, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	b.lines = append(b.lines, Line{ProductID: productID, Quantity: quantity})
	b.touch()
	return nil
}

// Remove drops every line for the given product and reports whether the basket
// is now empty, in which case the owning cart destroys it.
func (b *Basket) Remove(productID string) (empty bool, err error) {
	kept := b.lines[:0]
	found := false
	for _, ln := range b.lines {
		if ln.ProductID == productID {
			found = true
			continue
		}
		kept = append(kept, ln)
	}
	if !found {
		return len(b.lines) == 0, ErrLineNotFound
	}
	b.lines = kept
	b.touch()
	return len(b.lines) == 0, nil
}

func (b *Basket) Lines() []Line {
	out := make([]Line, len(b.lines))
	copy(out, b.lines)
	return out
}

// Merged accumulates duplicate product lines and returns them sorted by
// ascending product id. This is the fixed reservation order that prevents
// circular waits when concurrent checkouts overlap on shared products.
func (b *Basket) Merged() []Line {
	totals := make(map[string]int, len(b.lines))
	for _, ln := range b.lines {
		totals[ln.ProductID] += ln.Quantity
	}
	out := make([]Line, 0, len(totals))
	for id, qty := range totals {
		out = append(out, Line{ProductID: id, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

func (b *Basket) Empty() bool {
	return len(b.lines) == 0
}

func (b *Basket) State() State {
	return b.state
}

// MarkReserved records that every line of this basket was reserved.
func (b *Basket) MarkReserved() error {
	if b.state != StatePending {
		return ErrInvalidStateTransition
	}
	b.state = StateReserved
	b.touch()
	return nil
}

// MarkCommitted records that the owning cart's payment and shipping stage
// succeeded and the reservation was consumed.
func (b *Basket) MarkCommitted() error {
	if b.state != StateReserved {
		return ErrInvalidStateTransition
	}
	b.state = StateCommitted
	b.touch()
	return nil
}

// MarkReleased records that the reservation was undone, either by the basket's
// own partial rollback or by cart-level compensation.
func (b *Basket) MarkReleased() error {
	if b.state != StatePending && b.state != StateReserved {
		return ErrInvalidStateTransition
	}
	b.state = StateReleased
	b.touch()
	return nil
}

// Reset returns a released basket to Pending so the next checkout attempt
// starts clean. Committed baskets are consumed and never reset.
func (b *Basket) Reset() error {
	if b.state == StateCommitted {
		return ErrInvalidStateTransition
	}
	b.state = StatePending
	b.touch()
	return nil
}

func (b *Basket) touch() {
	b.UpdatedAt = time.Now().UTC()
}
