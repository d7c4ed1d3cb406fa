package policy

import (
	"context"
	"fmt"

	"github.com/grovemarket/marketplace-checkout/internal/domain/basket"
)

// Validator is the shop/product policy collaborator, consulted once per basket
// before any stock is reserved. A rejection is equivalent to a reservation
// failure for that basket.
type Validator interface {
	Validate(ctx context.Context, shopID string, lines []basket.Line) error
}

// RejectedError reports that a shop policy refused the basket contents.
type RejectedError struct {
	ShopID string
	Reason string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("policy: shop %s rejected basket: %s", e.ShopID, e.Reason)
}

// Reject builds the rejection error returned by validator implementations.
func Reject(shopID, reason string) error {
	return &RejectedError{ShopID: shopID, Reason: reason}
}
