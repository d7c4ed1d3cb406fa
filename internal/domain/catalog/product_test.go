package catalog

import (
	"sync"
	"testing"
)

func TestStockCounterTryReserve(t *testing.T) {
	cases := []struct {
		name    string
		initial int
		amount  int
		want    bool
		left    int
	}{
		{"exact stock", 5, 5, true, 0},
		{"partial", 5, 3, true, 2},
		{"insufficient", 2, 3, false, 2},
		{"zero amount", 5, 0, false, 5},
		{"negative amount", 5, -1, false, 5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := NewStockCounter(tc.initial)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := c.TryReserve(tc.amount); got != tc.want {
				t.Errorf("TryReserve(%d) = %v, want %v", tc.amount, got, tc.want)
			}
			if c.Quantity() != tc.left {
				t.Errorf("quantity = %d, want %d", c.Quantity(), tc.left)
			}
		})
	}
}

func TestStockCounterNegativeInitial(t *testing.T) {
	if _, err := NewStockCounter(-1); err != ErrInvalidStock {
		t.Fatalf("expected ErrInvalidStock, got %v", err)
	}
}

func TestStockCounterReleaseRestores(t *testing.T) {
	c, _ := NewStockCounter(10)
	if !c.TryReserve(7) {
		t.Fatal("reserve should succeed")
	}
	c.Release(7)
	if c.Quantity() != 10 {
		t.Errorf("quantity = %d, want 10", c.Quantity())
	}
}

// Two goroutines race for the last unit; exactly one must win.
func TestStockCounterLastUnitSingleWinner(t *testing.T) {
	for i := 0; i < 100; i++ {
		c, _ := NewStockCounter(1)
		results := make(chan bool, 2)
		var wg sync.WaitGroup
		wg.Add(2)
		for j := 0; j < 2; j++ {
			go func() {
				defer wg.Done()
				results <- c.TryReserve(1)
			}()
		}
		wg.Wait()
		close(results)

		wins := 0
		for ok := range results {
			if ok {
				wins++
			}
		}
		if wins != 1 {
			t.Fatalf("iteration %d: %d winners for the last unit, want 1", i, wins)
		}
		if c.Quantity() != 0 {
			t.Fatalf("iteration %d: quantity = %d, want 0", i, c.Quantity())
		}
	}
}

// Units are conserved under a concurrent mix of reserves and releases and the
// counter never goes negative.
func TestStockCounterConservation(t *testing.T) {
	const (
		workers  = 16
		attempts = 200
		initial  = 50
	)
	c, _ := NewStockCounter(initial)

	var wg sync.WaitGroup
	reserved := make([]int, workers)
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(w int) {
			defer wg.Done()
			for i := 0; i < attempts; i++ {
				if c.TryReserve(2) {
					reserved[w] += 2
					if i%3 == 0 {
						c.Release(2)
						reserved[w] -= 2
					}
				}
			}
		}(w)
	}
	wg.Wait()

	held := 0
	for _, r := range reserved {
		held += r
	}
	if got := c.Quantity(); got+held != initial {
		t.Errorf("quantity %d + held %d != initial %d", got, held, initial)
	}
	if c.Quantity() < 0 {
		t.Errorf("quantity went negative: %d", c.Quantity())
	}
}

func TestProductPriceValidation(t *testing.T) {
	if _, err := NewProduct("p1", "s1", "Widget", -1, 10); err != ErrInvalidPrice {
		t.Fatalf("expected ErrInvalidPrice, got %v", err)
	}
	p, err := NewProduct("p1", "s1", "Widget", 100, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.SetPrice(-5); err != ErrInvalidPrice {
		t.Errorf("expected ErrInvalidPrice, got %v", err)
	}
	if err := p.SetPrice(250); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Price() != 250 {
		t.Errorf("price = %d, want 250", p.Price())
	}
}
