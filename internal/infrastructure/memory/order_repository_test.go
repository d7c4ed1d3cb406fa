package memory

import (
	"context"
	"errors"
	"testing"

	domorder "github.com/grovemarket/marketplace-checkout/internal/domain/order"
)

func sampleOrder(id string) *domorder.Order {
	return domorder.New(id, "buyer-1", []domorder.BasketSnapshot{
		{
			BasketID: "b1",
			ShopID:   "shop-a",
			Lines:    []domorder.LineSnapshot{{ProductID: "p1", Quantity: 2, UnitPrice: 100}},
			Amount:   200,
		},
	}, "pay-1", "ship-1")
}

func TestOrderRepositorySaveAndFind(t *testing.T) {
	repo := NewOrderRepository()
	ctx := context.Background()
	o := sampleOrder("o1")

	if err := repo.SaveOrder(ctx, o); err != nil {
		t.Fatalf("SaveOrder: %v", err)
	}
	got, err := repo.Order(ctx, "o1")
	if err != nil {
		t.Fatalf("Order: %v", err)
	}
	if got.Total != 200 || len(got.Baskets) != 1 {
		t.Errorf("stored order = %+v", got)
	}

	// The stored record is a copy; mutating the returned value must not leak.
	got.Baskets[0].Amount = 999
	again, _ := repo.Order(ctx, "o1")
	if again.Baskets[0].Amount != 200 {
		t.Error("stored order mutated through a returned clone")
	}

	if _, err := repo.Order(ctx, "o-missing"); !errors.Is(err, domorder.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestOrderRepositoryDuplicateConflict(t *testing.T) {
	repo := NewOrderRepository()
	ctx := context.Background()

	if err := repo.SaveOrder(ctx, sampleOrder("o1")); err != nil {
		t.Fatalf("SaveOrder: %v", err)
	}
	if err := repo.SaveOrder(ctx, sampleOrder("o1")); !errors.Is(err, domorder.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if repo.OrderCount() != 1 {
		t.Errorf("order count = %d, want 1", repo.OrderCount())
	}
}

func TestShopOrdersGroupedByShop(t *testing.T) {
	repo := NewOrderRepository()
	ctx := context.Background()
	o := sampleOrder("o1")
	_ = repo.SaveOrder(ctx, o)

	soA := domorder.NewShopOrder("so1", o, o.Baskets[0])
	if err := repo.SaveShopOrder(ctx, soA); err != nil {
		t.Fatalf("SaveShopOrder: %v", err)
	}

	got, err := repo.ShopOrders(ctx, "shop-a")
	if err != nil || len(got) != 1 {
		t.Fatalf("ShopOrders(shop-a) = %d (%v), want 1", len(got), err)
	}
	if got[0].OrderID != "o1" {
		t.Errorf("shop order ref = %s", got[0].OrderID)
	}

	empty, err := repo.ShopOrders(ctx, "shop-z")
	if err != nil || len(empty) != 0 {
		t.Errorf("ShopOrders(shop-z) = %d (%v), want 0", len(empty), err)
	}
}
