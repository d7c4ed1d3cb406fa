package basket

import (
	"errors"
	"testing"
)

func TestAddRejectsNonPositiveQuantity(t *testing.T) {
	b := New("b1", "shop1")
	for _, qty := range []int{0, -3} {
		if err := b.Add("p1", qty); !errors.Is(err, ErrInvalidQuantity) {
			t.Errorf("Add(%d): expected ErrInvalidQuantity, got %v", qty, err)
		}
	}
	if !b.Empty() {
		t.Error("basket should remain empty after rejected adds")
	}
}

func TestMergedAccumulatesAndSorts(t *testing.T) {
	b := New("b1", "shop1")
	_ = b.Add("p-zeta", 2)
	_ = b.Add("p-alpha", 1)
	_ = b.Add("p-zeta", 3)

	merged := b.Merged()
	if len(merged) != 2 {
		t.Fatalf("merged lines = %d, want 2", len(merged))
	}
	if merged[0].ProductID != "p-alpha" || merged[0].Quantity != 1 {
		t.Errorf("merged[0] = %+v, want p-alpha x1", merged[0])
	}
	if merged[1].ProductID != "p-zeta" || merged[1].Quantity != 5 {
		t.Errorf("merged[1] = %+v, want p-zeta x5", merged[1])
	}

	// Insertion order is preserved in the raw lines.
	lines := b.Lines()
	if len(lines) != 3 || lines[0].ProductID != "p-zeta" {
		t.Errorf("raw lines should keep insertion order, got %+v", lines)
	}
}

func TestRemoveDropsAllLinesForProduct(t *testing.T) {
	b := New("b1", "shop1")
	_ = b.Add("p1", 1)
	_ = b.Add("p2", 2)
	_ = b.Add("p1", 4)

	empty, err := b.Remove("p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if empty {
		t.Error("basket still holds p2, should not report empty")
	}
	if got := b.Lines(); len(got) != 1 || got[0].ProductID != "p2" {
		t.Errorf("lines after remove = %+v", got)
	}

	empty, err = b.Remove("p2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !empty {
		t.Error("basket should be empty after removing the last product")
	}

	if _, err := b.Remove("p-missing"); !errors.Is(err, ErrLineNotFound) {
		t.Errorf("expected ErrLineNotFound, got %v", err)
	}
}

func TestStateTransitions(t *testing.T) {
	t.Run("commit path", func(t *testing.T) {
		b := New("b1", "shop1")
		if err := b.MarkReserved(); err != nil {
			t.Fatalf("MarkReserved: %v", err)
		}
		if err := b.MarkCommitted(); err != nil {
			t.Fatalf("MarkCommitted: %v", err)
		}
		if b.State() != StateCommitted {
			t.Errorf("state = %s, want committed", b.State())
		}
		if err := b.Reset(); !errors.Is(err, ErrInvalidStateTransition) {
			t.Errorf("committed basket must not reset, got %v", err)
		}
	})

	t.Run("release and retry path", func(t *testing.T) {
		b := New("b1", "shop1")
		_ = b.MarkReserved()
		if err := b.MarkReleased(); err != nil {
			t.Fatalf("MarkReleased: %v", err)
		}
		if err := b.Reset(); err != nil {
			t.Fatalf("Reset: %v", err)
		}
		if b.State() != StatePending {
			t.Errorf("state = %s, want pending", b.State())
		}
		// The retried attempt can reserve again.
		if err := b.MarkReserved(); err != nil {
			t.Errorf("second MarkReserved after reset: %v", err)
		}
	})

	t.Run("invalid transitions", func(t *testing.T) {
		b := New("b1", "shop1")
		if err := b.MarkCommitted(); !errors.Is(err, ErrInvalidStateTransition) {
			t.Errorf("commit from pending: got %v", err)
		}
		_ = b.MarkReserved()
		if err := b.MarkReserved(); !errors.Is(err, ErrInvalidStateTransition) {
			t.Errorf("double reserve: got %v", err)
		}
	})
}

func TestSnapshotRoundTrip(t *testing.T) {
	b := New("b1", "shop1")
	_ = b.Add("p1", 2)
	_ = b.Add("p2", 1)

	restored := FromSnapshot(b.Snapshot())
	if restored.ID != "b1" || restored.ShopID != "shop1" {
		t.Fatalf("restored identity = %s/%s", restored.ID, restored.ShopID)
	}
	if got := restored.Lines(); len(got) != 2 {
		t.Errorf("restored lines = %+v", got)
	}
	if restored.State() != StatePending {
		t.Errorf("restored state = %s, want pending", restored.State())
	}
}
