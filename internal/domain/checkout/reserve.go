package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/grovemarket/marketplace-checkout/internal/domain/basket"
	"github.com/grovemarket/marketplace-checkout/internal/domain/catalog"
	"github.com/grovemarket/marketplace-checkout/internal/domain/policy"
)

// ReservedLine records one successful stock decrement together with the unit
// price frozen at reservation time. The counter reference lets compensation
// release exactly what was taken without another catalog lookup.
type ReservedLine struct {
	ProductID string
	Quantity  int
	UnitPrice int64
	stock     *catalog.StockCounter
}

// Reservation is the outcome of reserving every line of one basket. Its amount
// is frozen into the resulting order records and never recomputed.
type Reservation struct {
	Basket *basket.Basket
	Lines  []ReservedLine
	Amount int64
}

// Reserver owns the reserve/release protocol for basket lines against product
// stock counters. It holds no lock of its own; the only mutual exclusion is the
// per-product counter.
type Reserver struct {
	products catalog.Repository
	policy   policy.Validator
}

func NewReserver(products catalog.Repository, validator policy.Validator) *Reserver {
	return &Reserver{products: products, policy: validator}
}

// Reserve attempts to reserve every line of the basket in ascending product id
// order. On the first failing line it releases every line already reserved in
// this call (basket-scoped rollback) and returns the failure cause: an
// *OutOfStockError, a *policy.RejectedError, or a catalog lookup error.
func (r *Reserver) Reserve(ctx context.Context, b *basket.Basket) (*Reservation, error) {
	lines := b.Merged()
	if len(lines) == 0 {
		return nil, ErrEmptyBasket
	}

	if r.policy != nil {
		if err := r.policy.Validate(ctx, b.ShopID, lines); err != nil {
			var rejected *policy.RejectedError
			if errors.As(err, &rejected) {
				rollback(b, nil)
				return nil, err
			}
			return nil, fmt.Errorf("checkout: policy check for shop %s: %w", b.ShopID, err)
		}
	}

	reserved := make([]ReservedLine, 0, len(lines))
	for _, ln := range lines {
		p, err := r.products.Product(ctx, ln.ProductID)
		if err != nil {
			rollback(b, reserved)
			return nil, fmt.Errorf("checkout: resolve product %s: %w", ln.ProductID, err)
		}
		if !p.Stock().TryReserve(ln.Quantity) {
			rollback(b, reserved)
			return nil, &OutOfStockError{ProductID: ln.ProductID, Requested: ln.Quantity}
		}
		reserved = append(reserved, ReservedLine{
			ProductID: ln.ProductID,
			Quantity:  ln.Quantity,
			UnitPrice: p.Price(),
			stock:     p.Stock(),
		})
	}

	if err := b.MarkReserved(); err != nil {
		releaseLines(reserved)
		return nil, err
	}

	var amount int64
	for _, ln := range reserved {
		amount += ln.UnitPrice * int64(ln.Quantity)
	}
	return &Reservation{Basket: b, Lines: reserved, Amount: amount}, nil
}

// Cancel releases every line of the reservation unconditionally. The cart calls
// it once per reserved basket when a later stage of the same checkout fails.
// Releases on disjoint products proceed independently; shared counters are safe
// because Release is atomic per product.
func (r *Reserver) Cancel(res *Reservation) {
	if res == nil {
		return
	}
	releaseLines(res.Lines)
	_ = res.Basket.MarkReleased()
}

func releaseLines(lines []ReservedLine) {
	for _, ln := range lines {
		ln.stock.Release(ln.Quantity)
	}
}

// rollback undoes a partially reserved basket: the lines go back to stock and
// the basket walks Released then Reset, leaving it Pending and retryable.
func rollback(b *basket.Basket, reserved []ReservedLine) {
	releaseLines(reserved)
	_ = b.MarkReleased()
	_ = b.Reset()
}
