package cart

import (
	"errors"
	"testing"

	"github.com/grovemarket/marketplace-checkout/internal/domain/basket"
)

func newCart(t *testing.T, shopIDs ...string) *Cart {
	t.Helper()
	c, err := New("c1", "user1")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for _, shopID := range shopIDs {
		if err := c.Attach(basket.New("b-"+shopID, shopID)); err != nil {
			t.Fatalf("Attach(%s): %v", shopID, err)
		}
	}
	return c
}

func TestNewRequiresOwner(t *testing.T) {
	if _, err := New("c1", ""); !errors.Is(err, ErrInvalidOwner) {
		t.Fatalf("expected ErrInvalidOwner, got %v", err)
	}
}

func TestAttachRejectsDuplicateShop(t *testing.T) {
	c := newCart(t, "shop1")
	err := c.Attach(basket.New("b2", "shop1"))
	if !errors.Is(err, ErrBasketExists) {
		t.Fatalf("expected ErrBasketExists, got %v", err)
	}
}

func TestBasketsSortedByShop(t *testing.T) {
	c := newCart(t, "shop-c", "shop-a", "shop-b")
	got := c.Baskets()
	want := []string{"shop-a", "shop-b", "shop-c"}
	if len(got) != len(want) {
		t.Fatalf("baskets = %d, want %d", len(got), len(want))
	}
	for i, b := range got {
		if b.ShopID != want[i] {
			t.Errorf("baskets[%d].ShopID = %s, want %s", i, b.ShopID, want[i])
		}
	}
}

func TestSelect(t *testing.T) {
	cases := []struct {
		name    string
		shops   []string
		wantErr error
		want    []string
	}{
		{"single", []string{"shop-b"}, nil, []string{"shop-b"}},
		{"multiple sorted", []string{"shop-c", "shop-a"}, nil, []string{"shop-a", "shop-c"}},
		{"empty", nil, ErrEmptySelection, nil},
		{"duplicate", []string{"shop-a", "shop-a"}, ErrDuplicateSelection, nil},
		{"unknown shop", []string{"shop-z"}, ErrBasketNotFound, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newCart(t, "shop-a", "shop-b", "shop-c")
			got, err := c.Select(tc.shops)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("error = %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("selected %d baskets, want %d", len(got), len(tc.want))
			}
			for i, b := range got {
				if b.ShopID != tc.want[i] {
					t.Errorf("selected[%d].ShopID = %s, want %s", i, b.ShopID, tc.want[i])
				}
			}
		})
	}
}

func TestDetach(t *testing.T) {
	c := newCart(t, "shop-a", "shop-b")
	c.Detach("shop-a")
	if _, ok := c.Basket("shop-a"); ok {
		t.Error("shop-a basket should be gone")
	}
	c.Detach("shop-b")
	if !c.Empty() {
		t.Error("cart should be empty")
	}
}

func TestReparent(t *testing.T) {
	c := newCart(t)
	if err := c.Reparent(""); !errors.Is(err, ErrInvalidOwner) {
		t.Fatalf("expected ErrInvalidOwner, got %v", err)
	}
	if err := c.Reparent("user2"); err != nil {
		t.Fatalf("Reparent: %v", err)
	}
	if c.OwnerID != "user2" {
		t.Errorf("owner = %s, want user2", c.OwnerID)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	c := newCart(t, "shop-a", "shop-b")
	b, _ := c.Basket("shop-a")
	_ = b.Add("p1", 3)

	restored, err := FromSnapshot(c.Snapshot())
	if err != nil {
		t.Fatalf("FromSnapshot: %v", err)
	}
	if restored.ID != c.ID || restored.OwnerID != c.OwnerID {
		t.Fatalf("restored identity = %s/%s", restored.ID, restored.OwnerID)
	}
	rb, ok := restored.Basket("shop-a")
	if !ok {
		t.Fatal("restored cart missing shop-a basket")
	}
	if lines := rb.Lines(); len(lines) != 1 || lines[0].Quantity != 3 {
		t.Errorf("restored lines = %+v", lines)
	}
}
