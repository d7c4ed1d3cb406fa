package checkout

import (
	"context"
	"errors"
	"time"

	domcart "github.com/grovemarket/marketplace-checkout/internal/domain/cart"
	domcheckout "github.com/grovemarket/marketplace-checkout/internal/domain/checkout"
	domorder "github.com/grovemarket/marketplace-checkout/internal/domain/order"
	domoutbox "github.com/grovemarket/marketplace-checkout/internal/domain/outbox"
	dompayment "github.com/grovemarket/marketplace-checkout/internal/domain/payment"
	domshipping "github.com/grovemarket/marketplace-checkout/internal/domain/shipping"
	"github.com/grovemarket/marketplace-checkout/internal/observability"
	"github.com/grovemarket/marketplace-checkout/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	checkoutService = "checkout-engine"
	useCasePurchase = "checkout.purchase"
	spanPrefix      = "UC."
	publishPeer     = "outbox"
	publishTimeout  = 300 * time.Millisecond

	stageReserve  = "reserve"
	stagePayment  = "payment"
	stageShipping = "shipping"
)

// PurchaseInput selects baskets of one cart and supplies the gateway details.
type PurchaseInput struct {
	CartID   string
	ShopIDs  []string
	Payment  dompayment.Info
	Shipping domshipping.Info
}

type PurchaseResult struct {
	Order *domorder.Order
}

// PurchaseUseCase executes the all-or-nothing multi-basket purchase: reserve
// each selected basket, run the payment and shipping handshakes, record the
// order, and compensate every reservation taken in this attempt on any failure
// before the records exist.
type PurchaseUseCase struct {
	carts     domcart.Repository
	reserver  *domcheckout.Reserver
	orders    domorder.Repository
	payments  dompayment.Gateway
	shippings domshipping.Gateway
	ids       IDGenerator
	publisher domoutbox.Publisher
	tel       observability.Observability

	log          observability.Logger
	reqCounter   observability.Counter
	durHistogram observability.Histogram
	extCounter   observability.Counter
	extHistogram observability.Histogram
	conflicts    observability.Counter
	compensated  observability.Counter
	unrecorded   observability.Counter
}

func NewPurchaseUseCase(
	carts domcart.Repository,
	reserver *domcheckout.Reserver,
	orders domorder.Repository,
	payments dompayment.Gateway,
	shippings domshipping.Gateway,
	ids IDGenerator,
	publisher domoutbox.Publisher,
	tel observability.Observability,
) *PurchaseUseCase {
	if tel == nil {
		tel = observability.NopObservability()
	}
	baseLog := tel.Logger().With(observability.F("service", checkoutService))
	metricsProvider := tel.Metrics()

	return &PurchaseUseCase{
		carts:        carts,
		reserver:     reserver,
		orders:       orders,
		payments:     payments,
		shippings:    shippings,
		ids:          ids,
		publisher:    publisher,
		tel:          tel,
		log:          baseLog,
		reqCounter:   metricsProvider.Counter(observability.MUsecaseRequests),
		durHistogram: metricsProvider.Histogram(observability.MUsecaseDuration),
		extCounter:   metricsProvider.Counter(observability.MExternalRequests),
		extHistogram: metricsProvider.Histogram(observability.MExternalRequestDuration),
		conflicts:    metricsProvider.Counter(observability.MStockConflicts),
		compensated:  metricsProvider.Counter(observability.MCompensations),
		unrecorded:   metricsProvider.Counter(observability.MUnrecordedOrders),
	}
}

// Execute performs the purchase flow.
func (uc *PurchaseUseCase) Execute(ctx context.Context, cmd PurchaseInput) (_ *PurchaseResult, err error) {
	logger := logctx.FromOr(ctx, uc.log).With(
		observability.F("use_case", useCasePurchase),
		observability.F("cart_id", cmd.CartID),
	)

	ctx, span := uc.tel.Tracer().Start(ctx, spanPrefix+"Purchase",
		attribute.String("use_case", useCasePurchase),
		attribute.String("cart.id", cmd.CartID),
		attribute.Int("cart.selected_shops", len(cmd.ShopIDs)),
	)
	start := time.Now()
	outcome, statusText := "success", "OK"

	defer func() {
		lat := time.Since(start).Seconds()

		if span != nil {
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, statusText)
			} else {
				span.SetStatus(codes.Ok, statusText)
			}
			span.End()
		}

		uc.reqCounter.Add(1,
			observability.L("use_case", useCasePurchase),
			observability.L("outcome", outcome),
		)
		uc.durHistogram.Observe(lat,
			observability.L("use_case", useCasePurchase),
		)

		fields := []observability.Field{
			observability.F("outcome", outcome),
			observability.F("status", statusText),
			observability.F("latency_seconds", lat),
		}
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			fields = append(fields,
				observability.F("trace_id", sc.TraceID().String()),
				observability.F("span_id", sc.SpanID().String()),
			)
		}
		if err != nil {
			fields = append(fields, observability.F("error", err.Error()))
		}
		logger.Info("purchase_done", fields...)
	}()

	if cmd.CartID == "" {
		outcome, statusText = "error", "CART_ID_REQUIRED"
		return nil, errors.New("checkout: cart id is required")
	}

	crt, err := uc.carts.Find(ctx, cmd.CartID)
	if err != nil {
		outcome, statusText = "error", "CART_LOOKUP_FAILED"
		return nil, err
	}

	// Unknown or duplicate selections are usage errors, rejected before any
	// stock is touched.
	baskets, err := crt.Select(cmd.ShopIDs)
	if err != nil {
		outcome, statusText = "error", "SELECTION_INVALID"
		return nil, err
	}

	// Phase 1: sequential reservation in ascending shop id order; each basket
	// internally reserves in ascending product id order. On the first failure
	// every basket already reserved in this attempt is cancelled.
	reservations := make([]*domcheckout.Reservation, 0, len(baskets))
	for _, b := range baskets {
		res, rerr := uc.reserver.Reserve(ctx, b)
		if rerr != nil {
			uc.countStockConflict(rerr)
			uc.compensate(ctx, crt, reservations, stageReserve)
			outcome, statusText = "error", "RESERVATION_FAILED"
			err = rerr
			return nil, err
		}
		reservations = append(reservations, res)
		span.AddEvent("basket.reserved",
			trace.WithAttributes(
				attribute.String("basket.id", b.ID),
				attribute.String("shop.id", b.ShopID),
			),
		)
	}

	var total int64
	for _, res := range reservations {
		total += res.Amount
	}
	span.SetAttributes(attribute.Int64("purchase.total", total))

	// Phase 2: external gateways. No stock lock is held during these calls;
	// failure here is answered by compensation, not by a held lock.
	paymentTx, err := uc.pay(ctx, cmd.Payment, total)
	if err != nil {
		uc.compensate(ctx, crt, reservations, stagePayment)
		outcome, statusText = "error", "PAYMENT_FAILED"
		return nil, err
	}

	shippingTx, err := uc.ship(ctx, cmd.Shipping)
	if err != nil {
		uc.compensate(ctx, crt, reservations, stageShipping)
		outcome, statusText = "error", "SHIPPING_FAILED"
		return nil, err
	}

	// Phase 3: record. The smallest-blast-radius step runs last. From here on
	// stock was legitimately consumed: a persistence failure is surfaced as
	// succeeded-but-unrecorded and never releases stock again.
	snapshots := make([]domorder.BasketSnapshot, 0, len(reservations))
	for _, res := range reservations {
		snapshots = append(snapshots, snapshotOf(res))
	}

	ord := domorder.New(uc.ids.NewID(), crt.OwnerID, snapshots, paymentTx, shippingTx)

	if perr := uc.orders.SaveOrder(ctx, ord); perr != nil {
		outcome, statusText = "error", "ORDER_UNRECORDED"
		return nil, uc.reportUnrecorded(ctx, logger, ord, perr)
	}
	for _, snap := range snapshots {
		so := domorder.NewShopOrder(uc.ids.NewID(), ord, snap)
		if perr := uc.orders.SaveShopOrder(ctx, so); perr != nil {
			outcome, statusText = "error", "SHOP_ORDER_UNRECORDED"
			return nil, uc.reportUnrecorded(ctx, logger, ord, perr)
		}
	}

	// Consume the purchased baskets.
	for _, res := range reservations {
		_ = res.Basket.MarkCommitted()
		crt.Detach(res.Basket.ShopID)
	}
	if serr := uc.carts.Save(ctx, crt); serr != nil {
		logger.Warn("cart_save_after_purchase_failed",
			observability.F("order_id", ord.ID),
			observability.F("error", serr.Error()),
		)
	}

	uc.publish(ctx, domorder.NewOrderPlacedEvent(ord), "order.placed")

	span.AddEvent("order.placed",
		trace.WithAttributes(attribute.String("order.id", ord.ID)),
	)
	return &PurchaseResult{Order: ord}, nil
}

func (uc *PurchaseUseCase) pay(ctx context.Context, info dompayment.Info, total int64) (string, error) {
	if !uc.observeGateway(ctx, "payment", "handshake", func(ctx context.Context) (bool, error) {
		return uc.payments.Handshake(ctx), nil
	}) {
		return dompayment.NoTransaction, domcheckout.ErrPaymentUnavailable
	}

	var tx string
	ok := uc.observeGateway(ctx, "payment", "pay", func(ctx context.Context) (bool, error) {
		var err error
		tx, err = uc.payments.Pay(ctx, info, total)
		if err != nil {
			return false, err
		}
		return tx != dompayment.NoTransaction, nil
	})
	if !ok {
		return dompayment.NoTransaction, domcheckout.ErrPaymentFailed
	}
	return tx, nil
}

func (uc *PurchaseUseCase) ship(ctx context.Context, info domshipping.Info) (string, error) {
	if !uc.observeGateway(ctx, "shipping", "handshake", func(ctx context.Context) (bool, error) {
		return uc.shippings.Handshake(ctx), nil
	}) {
		return domshipping.NoTransaction, domcheckout.ErrShippingUnavailable
	}

	var tx string
	ok := uc.observeGateway(ctx, "shipping", "ship", func(ctx context.Context) (bool, error) {
		var err error
		tx, err = uc.shippings.Ship(ctx, info)
		if err != nil {
			return false, err
		}
		return tx != domshipping.NoTransaction, nil
	})
	if !ok {
		return domshipping.NoTransaction, domcheckout.ErrShippingFailed
	}
	return tx, nil
}

// observeGateway wraps one external call with the external-peer RED metrics.
func (uc *PurchaseUseCase) observeGateway(ctx context.Context, peer, endpoint string, call func(context.Context) (bool, error)) bool {
	start := time.Now()
	ok, err := call(ctx)
	outcome := "success"
	if err != nil || !ok {
		outcome = "error"
	}
	uc.extCounter.Add(1,
		observability.L("peer", peer),
		observability.L("endpoint", endpoint),
		observability.L("outcome", outcome),
	)
	uc.extHistogram.Observe(time.Since(start).Seconds(),
		observability.L("peer", peer),
		observability.L("endpoint", endpoint),
	)
	return err == nil && ok
}

// compensate releases every reserved basket of this attempt and resets the
// baskets so a retry starts from a clean, fully restocked state.
func (uc *PurchaseUseCase) compensate(ctx context.Context, crt *domcart.Cart, reservations []*domcheckout.Reservation, stage string) {
	if len(reservations) == 0 {
		return
	}
	shopIDs := make([]string, 0, len(reservations))
	for _, res := range reservations {
		uc.reserver.Cancel(res)
		_ = res.Basket.Reset()
		shopIDs = append(shopIDs, res.Basket.ShopID)
	}
	uc.compensated.Add(1, observability.L("stage", stage))

	logctx.FromOr(ctx, uc.log).Info("compensation_released",
		observability.F("cart_id", crt.ID),
		observability.F("stage", stage),
		observability.F("baskets", len(reservations)),
	)
	uc.publish(ctx, domcheckout.NewStockReleasedEvent(crt.ID, shopIDs, stage), "checkout.stock_released")
}

func (uc *PurchaseUseCase) countStockConflict(err error) {
	var oos *domcheckout.OutOfStockError
	if errors.As(err, &oos) {
		uc.conflicts.Add(1, observability.L("product_id", oos.ProductID))
	}
}

// reportUnrecorded handles the succeeded-but-unrecorded condition: log it,
// count it, publish it for manual reconciliation, and surface the typed error.
// Stock is deliberately not released.
func (uc *PurchaseUseCase) reportUnrecorded(ctx context.Context, logger observability.Logger, ord *domorder.Order, cause error) error {
	uc.unrecorded.Add(1)
	logger.Error("order_unrecorded",
		observability.F("order_id", ord.ID),
		observability.F("payment_tx", ord.PaymentTxID),
		observability.F("shipping_tx", ord.ShippingTxID),
		observability.F("error", cause.Error()),
	)
	uc.publish(ctx, domorder.NewOrderUnrecordedEvent(ord, cause.Error()), "order.unrecorded")
	return &domcheckout.UnrecordedError{
		OrderID:      ord.ID,
		PaymentTxID:  ord.PaymentTxID,
		ShippingTxID: ord.ShippingTxID,
		Cause:        cause,
	}
}

func (uc *PurchaseUseCase) publish(ctx context.Context, e domoutbox.Event, endpoint string) {
	if uc.publisher == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	start := time.Now()
	pubOutcome := "success"
	if perr := uc.publisher.Publish(pubCtx, e); perr != nil {
		pubOutcome = "error"
		logctx.FromOr(ctx, uc.log).Warn("event_publish_failed",
			observability.F("event", e.EventName()),
			observability.F("error", perr.Error()),
		)
	}
	uc.extCounter.Add(1,
		observability.L("peer", publishPeer),
		observability.L("endpoint", endpoint),
		observability.L("outcome", pubOutcome),
	)
	uc.extHistogram.Observe(time.Since(start).Seconds(),
		observability.L("peer", publishPeer),
		observability.L("endpoint", endpoint),
	)
}

func snapshotOf(res *domcheckout.Reservation) domorder.BasketSnapshot {
	lines := make([]domorder.LineSnapshot, 0, len(res.Lines))
	for _, ln := range res.Lines {
		lines = append(lines, domorder.LineSnapshot{
			ProductID: ln.ProductID,
			Quantity:  ln.Quantity,
			UnitPrice: ln.UnitPrice,
		})
	}
	return domorder.BasketSnapshot{
		BasketID: res.Basket.ID,
		ShopID:   res.Basket.ShopID,
		Lines:    lines,
		Amount:   res.Amount,
	}
}
