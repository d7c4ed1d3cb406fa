package checkout

import (
	"context"
	"errors"
	"testing"

	"github.com/grovemarket/marketplace-checkout/internal/domain/basket"
	"github.com/grovemarket/marketplace-checkout/internal/domain/catalog"
	"github.com/grovemarket/marketplace-checkout/internal/domain/policy"
)

type stubCatalog struct {
	products map[string]*catalog.Product
}

func (s *stubCatalog) Product(ctx context.Context, id string) (*catalog.Product, error) {
	p, ok := s.products[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return p, nil
}

func (s *stubCatalog) Shop(ctx context.Context, id string) (*catalog.Shop, error) {
	return nil, catalog.ErrShopNotFound
}

func mustProduct(t *testing.T, id string, price int64, qty int) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct(id, "shop1", id, price, qty)
	if err != nil {
		t.Fatalf("NewProduct(%s): %v", id, err)
	}
	return p
}

type rejectAll struct{ reason string }

func (r rejectAll) Validate(ctx context.Context, shopID string, lines []basket.Line) error {
	return policy.Reject(shopID, r.reason)
}

func TestReserveFreezesPrices(t *testing.T) {
	p := mustProduct(t, "p1", 100, 10)
	r := NewReserver(&stubCatalog{products: map[string]*catalog.Product{"p1": p}}, nil)

	b := basket.New("b1", "shop1")
	_ = b.Add("p1", 2)

	res, err := r.Reserve(context.Background(), b)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}

	// A later price change must not affect the frozen amount.
	_ = p.SetPrice(999)

	if res.Amount != 200 {
		t.Errorf("amount = %d, want 200", res.Amount)
	}
	if res.Lines[0].UnitPrice != 100 {
		t.Errorf("unit price = %d, want 100", res.Lines[0].UnitPrice)
	}
	if b.State() != basket.StateReserved {
		t.Errorf("basket state = %s, want reserved", b.State())
	}
}

func TestReserveAccumulatesDuplicateLines(t *testing.T) {
	p := mustProduct(t, "p1", 50, 5)
	r := NewReserver(&stubCatalog{products: map[string]*catalog.Product{"p1": p}}, nil)

	b := basket.New("b1", "shop1")
	_ = b.Add("p1", 2)
	_ = b.Add("p1", 3)

	res, err := r.Reserve(context.Background(), b)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if len(res.Lines) != 1 || res.Lines[0].Quantity != 5 {
		t.Fatalf("lines = %+v, want single p1 x5", res.Lines)
	}
	if p.Stock().Quantity() != 0 {
		t.Errorf("stock = %d, want 0", p.Stock().Quantity())
	}

	// Six units split across lines against five in stock must fail whole.
	p2 := mustProduct(t, "p2", 50, 5)
	r2 := NewReserver(&stubCatalog{products: map[string]*catalog.Product{"p2": p2}}, nil)
	b2 := basket.New("b2", "shop1")
	_ = b2.Add("p2", 3)
	_ = b2.Add("p2", 3)

	_, err = r2.Reserve(context.Background(), b2)
	var oos *OutOfStockError
	if !errors.As(err, &oos) {
		t.Fatalf("expected OutOfStockError, got %v", err)
	}
	if p2.Stock().Quantity() != 5 {
		t.Errorf("stock = %d, want untouched 5", p2.Stock().Quantity())
	}
}

func TestReserveRollsBackOnPartialFailure(t *testing.T) {
	pa := mustProduct(t, "p-a", 10, 10)
	pb := mustProduct(t, "p-b", 10, 1)
	r := NewReserver(&stubCatalog{products: map[string]*catalog.Product{
		"p-a": pa,
		"p-b": pb,
	}}, nil)

	b := basket.New("b1", "shop1")
	_ = b.Add("p-a", 4)
	_ = b.Add("p-b", 2)

	_, err := r.Reserve(context.Background(), b)
	var oos *OutOfStockError
	if !errors.As(err, &oos) {
		t.Fatalf("expected OutOfStockError, got %v", err)
	}
	if oos.ProductID != "p-b" || oos.Requested != 2 {
		t.Errorf("failure = %+v, want p-b x2", oos)
	}
	if pa.Stock().Quantity() != 10 {
		t.Errorf("p-a stock = %d, want restored 10", pa.Stock().Quantity())
	}
	if b.State() != basket.StatePending {
		t.Errorf("basket state = %s, want pending", b.State())
	}
}

// A basket that failed to reserve walks back to Pending and can reserve again
// once stock returns, without any external reset.
func TestReserveFailureLeavesBasketRetryable(t *testing.T) {
	p := mustProduct(t, "p1", 10, 1)
	r := NewReserver(&stubCatalog{products: map[string]*catalog.Product{"p1": p}}, nil)

	b := basket.New("b1", "shop1")
	_ = b.Add("p1", 2)

	_, err := r.Reserve(context.Background(), b)
	var oos *OutOfStockError
	if !errors.As(err, &oos) {
		t.Fatalf("expected OutOfStockError, got %v", err)
	}
	if b.State() != basket.StatePending {
		t.Fatalf("basket state = %s, want pending after rollback", b.State())
	}

	// Restock and retry on the same basket instance.
	p.Stock().Release(1)
	res, err := r.Reserve(context.Background(), b)
	if err != nil {
		t.Fatalf("retry Reserve: %v", err)
	}
	if res.Amount != 20 {
		t.Errorf("amount = %d, want 20", res.Amount)
	}
	if b.State() != basket.StateReserved {
		t.Errorf("basket state = %s, want reserved", b.State())
	}
}

func TestReserveEmptyBasket(t *testing.T) {
	r := NewReserver(&stubCatalog{}, nil)
	_, err := r.Reserve(context.Background(), basket.New("b1", "shop1"))
	if !errors.Is(err, ErrEmptyBasket) {
		t.Fatalf("expected ErrEmptyBasket, got %v", err)
	}
}

func TestReservePolicyRejection(t *testing.T) {
	p := mustProduct(t, "p1", 10, 10)
	r := NewReserver(
		&stubCatalog{products: map[string]*catalog.Product{"p1": p}},
		rejectAll{reason: "shop suspended"},
	)

	b := basket.New("b1", "shop1")
	_ = b.Add("p1", 1)

	_, err := r.Reserve(context.Background(), b)
	var rejected *policy.RejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("expected RejectedError, got %v", err)
	}
	if rejected.ShopID != "shop1" {
		t.Errorf("rejected shop = %s", rejected.ShopID)
	}
	if p.Stock().Quantity() != 10 {
		t.Errorf("stock = %d, policy rejection must not touch stock", p.Stock().Quantity())
	}
}

func TestReserveUnknownProduct(t *testing.T) {
	r := NewReserver(&stubCatalog{}, nil)
	b := basket.New("b1", "shop1")
	_ = b.Add("p-ghost", 1)

	_, err := r.Reserve(context.Background(), b)
	if !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("expected wrapped ErrNotFound, got %v", err)
	}
}

func TestCancelRestoresStock(t *testing.T) {
	pa := mustProduct(t, "p-a", 10, 6)
	pb := mustProduct(t, "p-b", 20, 3)
	r := NewReserver(&stubCatalog{products: map[string]*catalog.Product{
		"p-a": pa,
		"p-b": pb,
	}}, nil)

	b := basket.New("b1", "shop1")
	_ = b.Add("p-a", 2)
	_ = b.Add("p-b", 3)

	res, err := r.Reserve(context.Background(), b)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	r.Cancel(res)

	if pa.Stock().Quantity() != 6 || pb.Stock().Quantity() != 3 {
		t.Errorf("stock = %d/%d, want 6/3", pa.Stock().Quantity(), pb.Stock().Quantity())
	}
	if b.State() != basket.StateReleased {
		t.Errorf("basket state = %s, want released", b.State())
	}
}
