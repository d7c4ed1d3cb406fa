package policy

import (
	"context"
	"fmt"

	"github.com/grovemarket/marketplace-checkout/internal/domain/basket"
	dompolicy "github.com/grovemarket/marketplace-checkout/internal/domain/policy"
)

// AcceptAll is the default shop policy: every basket passes.
type AcceptAll struct{}

func (AcceptAll) Validate(ctx context.Context, shopID string, lines []basket.Line) error {
	_ = ctx
	_ = shopID
	_ = lines
	return nil
}

// LineLimit rejects baskets containing more than MaxUnitsPerLine units of a
// single product, a common anti-hoarding shop rule.
type LineLimit struct {
	MaxUnitsPerLine int
}

func (p LineLimit) Validate(ctx context.Context, shopID string, lines []basket.Line) error {
	_ = ctx
	if p.MaxUnitsPerLine <= 0 {
		return nil
	}
	for _, ln := range lines {
		if ln.Quantity > p.MaxUnitsPerLine {
			return dompolicy.Reject(shopID,
				fmt.Sprintf("product %s exceeds per-line limit of %d units", ln.ProductID, p.MaxUnitsPerLine))
		}
	}
	return nil
}
