package reconcile

import (
	"context"

	domorder "github.com/grovemarket/marketplace-checkout/internal/domain/order"
	domoutbox "github.com/grovemarket/marketplace-checkout/internal/domain/outbox"
	"github.com/grovemarket/marketplace-checkout/internal/observability"
)

// Worker watches for purchases that committed payment and shipping but could
// not be recorded. Those must never be compensated; the worker surfaces them
// with the gateway transaction ids so an operator can reconcile by hand.
type Worker struct {
	subscriber domoutbox.Subscriber
	log        observability.Logger
}

func New(subscriber domoutbox.Subscriber, logger observability.Logger) *Worker {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Worker{
		subscriber: subscriber,
		log:        logger.With(observability.F("component", "reconcile_worker")),
	}
}

func (w *Worker) Start() {
	if w.subscriber == nil {
		return
	}
	w.subscriber.Subscribe(domorder.OrderUnrecordedEvent{}.EventName(), w.handleUnrecorded)
}

func (w *Worker) handleUnrecorded(ctx context.Context, e domoutbox.Event) error {
	_ = ctx
	evt, ok := e.(domorder.OrderUnrecordedEvent)
	if !ok {
		return nil
	}
	w.log.Error("order_requires_manual_reconciliation",
		observability.F("order_id", evt.OrderID),
		observability.F("buyer_id", evt.BuyerID),
		observability.F("total", evt.Total),
		observability.F("payment_tx", evt.PaymentTxID),
		observability.F("shipping_tx", evt.ShippingTxID),
		observability.F("reason", evt.Reason),
	)
	return nil
}
