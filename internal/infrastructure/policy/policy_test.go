package policy

import (
	"context"
	"errors"
	"testing"

	"github.com/grovemarket/marketplace-checkout/internal/domain/basket"
	dompolicy "github.com/grovemarket/marketplace-checkout/internal/domain/policy"
)

func TestAcceptAll(t *testing.T) {
	lines := []basket.Line{{ProductID: "p1", Quantity: 1000}}
	if err := (AcceptAll{}).Validate(context.Background(), "shop1", lines); err != nil {
		t.Fatalf("AcceptAll rejected: %v", err)
	}
}

func TestLineLimit(t *testing.T) {
	p := LineLimit{MaxUnitsPerLine: 10}

	ok := []basket.Line{
		{ProductID: "p1", Quantity: 10},
		{ProductID: "p2", Quantity: 1},
	}
	if err := p.Validate(context.Background(), "shop1", ok); err != nil {
		t.Fatalf("within limit rejected: %v", err)
	}

	over := []basket.Line{
		{ProductID: "p1", Quantity: 2},
		{ProductID: "p2", Quantity: 11},
	}
	err := p.Validate(context.Background(), "shop1", over)
	var rejected *dompolicy.RejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("expected RejectedError, got %v", err)
	}
	if rejected.ShopID != "shop1" {
		t.Errorf("rejected shop = %s", rejected.ShopID)
	}
}
