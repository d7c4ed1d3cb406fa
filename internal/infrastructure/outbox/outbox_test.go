package outbox

import (
	"context"
	"sync"
	"testing"
	"time"

	domoutbox "github.com/grovemarket/marketplace-checkout/internal/domain/outbox"
)

type testEvent struct{ name string }

func (e testEvent) EventName() string { return e.name }

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestBusFanout(t *testing.T) {
	bus := NewBus(nil)
	bus.Start(context.Background())
	defer bus.Stop(context.Background())

	var mu sync.Mutex
	got := map[string]int{}
	record := func(key string) domoutbox.Handler {
		return func(ctx context.Context, e domoutbox.Event) error {
			mu.Lock()
			got[key]++
			mu.Unlock()
			return nil
		}
	}

	bus.Subscribe("order.placed", record("first"))
	bus.Subscribe("order.placed", record("second"))
	bus.Subscribe("order.unrecorded", record("other"))

	if err := bus.Publish(context.Background(), testEvent{name: "order.placed"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return got["first"] == 1 && got["second"] == 1
	})

	mu.Lock()
	defer mu.Unlock()
	if got["other"] != 0 {
		t.Errorf("unrelated subscriber invoked %d times", got["other"])
	}
}

func TestBusRecoversFromHandlerPanic(t *testing.T) {
	bus := NewBus(nil)
	bus.Start(context.Background())
	defer bus.Stop(context.Background())

	var mu sync.Mutex
	delivered := 0

	bus.Subscribe("checkout.stock_released", func(ctx context.Context, e domoutbox.Event) error {
		panic("boom")
	})
	bus.Subscribe("checkout.stock_released", func(ctx context.Context, e domoutbox.Event) error {
		mu.Lock()
		delivered++
		mu.Unlock()
		return nil
	})

	if err := bus.Publish(context.Background(), testEvent{name: "checkout.stock_released"}); err != nil {
		t.Fatalf("Publish first: %v", err)
	}
	if err := bus.Publish(context.Background(), testEvent{name: "checkout.stock_released"}); err != nil {
		t.Fatalf("Publish second: %v", err)
	}

	// Both events reach the healthy handler despite the panicking one.
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return delivered == 2
	})
}

func TestBusPublishNilEvent(t *testing.T) {
	bus := NewBus(nil)
	if err := bus.Publish(context.Background(), nil); err != nil {
		t.Fatalf("nil event should be ignored, got %v", err)
	}
}

func TestBusPublishAfterStop(t *testing.T) {
	bus := NewBus(nil)
	bus.Start(context.Background())
	bus.Stop(context.Background())

	// A publisher racing with shutdown gets an error, never a panic.
	if err := bus.Publish(context.Background(), testEvent{name: "order.placed"}); err != ErrBusClosed {
		t.Fatalf("Publish after Stop = %v, want ErrBusClosed", err)
	}
}

func TestBusStopDrainsQueuedEvents(t *testing.T) {
	bus := NewBus(nil)

	var mu sync.Mutex
	delivered := 0
	bus.Subscribe("order.placed", func(ctx context.Context, e domoutbox.Event) error {
		mu.Lock()
		delivered++
		mu.Unlock()
		return nil
	})

	// Enqueue before the loop runs so the events sit buffered at shutdown.
	for i := 0; i < 5; i++ {
		if err := bus.Publish(context.Background(), testEvent{name: "order.placed"}); err != nil {
			t.Fatalf("Publish %d: %v", i, err)
		}
	}

	bus.Start(context.Background())
	bus.Stop(context.Background())

	mu.Lock()
	defer mu.Unlock()
	if delivered != 5 {
		t.Fatalf("delivered = %d, want all 5 accepted events", delivered)
	}
}
