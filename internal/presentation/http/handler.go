package httppresentation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	appcart "github.com/grovemarket/marketplace-checkout/internal/application/cart"
	appcheckout "github.com/grovemarket/marketplace-checkout/internal/application/checkout"
	dombasket "github.com/grovemarket/marketplace-checkout/internal/domain/basket"
	domcart "github.com/grovemarket/marketplace-checkout/internal/domain/cart"
	domcatalog "github.com/grovemarket/marketplace-checkout/internal/domain/catalog"
	domcheckout "github.com/grovemarket/marketplace-checkout/internal/domain/checkout"
	domorder "github.com/grovemarket/marketplace-checkout/internal/domain/order"
	dompayment "github.com/grovemarket/marketplace-checkout/internal/domain/payment"
	dompolicy "github.com/grovemarket/marketplace-checkout/internal/domain/policy"
	domshipping "github.com/grovemarket/marketplace-checkout/internal/domain/shipping"
	"github.com/grovemarket/marketplace-checkout/internal/observability"
	"github.com/grovemarket/marketplace-checkout/internal/observability/logctx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	componentHTTPHandler = "http_server"
	headerRequestID      = "X-Request-ID"
	requestTimeout       = 15 * time.Second
)

// Handler is the thin API host around the checkout engine. The engine itself
// is transport-agnostic; nothing here participates in its guarantees.
type Handler struct {
	cartService *appcart.Service
	purchase    *appcheckout.PurchaseUseCase
	orders      domorder.Repository
	log         observability.Logger
	tel         observability.Observability
}

func NewHandler(
	cartService *appcart.Service,
	purchase *appcheckout.PurchaseUseCase,
	orders domorder.Repository,
	logger observability.Logger,
	tel observability.Observability,
) *Handler {
	if logger == nil {
		logger = observability.NopLogger()
	}
	if tel == nil {
		tel = observability.NopObservability()
	}
	return &Handler{
		cartService: cartService,
		purchase:    purchase,
		orders:      orders,
		log:         logger.With(observability.F("component", componentHTTPHandler)),
		tel:         tel,
	}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(h.withTrace)
	r.Use(ObservabilityMiddleware(
		h.log,
		func(r *http.Request) string { return r.Header.Get(headerRequestID) },
		h.tel,
	))
	r.Use(h.withAccessLog)

	r.Post("/carts", h.handleCreateCart)
	r.Get("/carts/{cartID}", h.handleGetCart)
	r.Post("/carts/{cartID}/items", h.handleAddItem)
	r.Delete("/carts/{cartID}/items", h.handleRemoveItem)
	r.Post("/carts/{cartID}/merge", h.handleMerge)
	r.Post("/carts/{cartID}/reparent", h.handleReparent)
	r.Post("/carts/{cartID}/checkout", h.handleCheckout)
	r.Get("/orders/{orderID}", h.handleGetOrder)
	r.Get("/shops/{shopID}/orders", h.handleShopOrders)
	r.Get("/healthz", h.handleHealth)

	return r
}

type createCartRequest struct {
	OwnerID string `json:"owner_id"`
}

type createCartResponse struct {
	CartID string `json:"cart_id"`
}

func (h *Handler) handleCreateCart(w http.ResponseWriter, r *http.Request) {
	var req createCartRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	c, err := h.cartService.Create(r.Context(), req.OwnerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createCartResponse{CartID: c.ID})
}

type cartResponse struct {
	CartID  string           `json:"cart_id"`
	OwnerID string           `json:"owner_id"`
	Baskets []basketResponse `json:"baskets"`
}

type basketResponse struct {
	BasketID string         `json:"basket_id"`
	ShopID   string         `json:"shop_id"`
	Lines    []dombasket.Line `json:"lines"`
}

func (h *Handler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.cartService.Get(r.Context(), chi.URLParam(r, "cartID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	resp := cartResponse{CartID: c.ID, OwnerID: c.OwnerID}
	for _, b := range c.Baskets() {
		resp.Baskets = append(resp.Baskets, basketResponse{
			BasketID: b.ID,
			ShopID:   b.ShopID,
			Lines:    b.Lines(),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

type addItemRequest struct {
	ShopID    string `json:"shop_id"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func (h *Handler) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	err := h.cartService.AddItem(r.Context(), chi.URLParam(r, "cartID"), req.ShopID, req.ProductID, req.Quantity)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type removeItemRequest struct {
	ShopID    string `json:"shop_id"`
	ProductID string `json:"product_id"`
}

func (h *Handler) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	var req removeItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	err := h.cartService.RemoveItem(r.Context(), chi.URLParam(r, "cartID"), req.ShopID, req.ProductID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type mergeRequest struct {
	GuestCartID string `json:"guest_cart_id"`
}

func (h *Handler) handleMerge(w http.ResponseWriter, r *http.Request) {
	var req mergeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	err := h.cartService.Merge(r.Context(), req.GuestCartID, chi.URLParam(r, "cartID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type reparentRequest struct {
	OwnerID string `json:"owner_id"`
}

func (h *Handler) handleReparent(w http.ResponseWriter, r *http.Request) {
	var req reparentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	err := h.cartService.Reparent(r.Context(), chi.URLParam(r, "cartID"), req.OwnerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type checkoutRequest struct {
	ShopIDs  []string         `json:"shop_ids"`
	Payment  dompayment.Info  `json:"payment"`
	Shipping domshipping.Info `json:"shipping"`
}

type checkoutResponse struct {
	OrderID      string `json:"order_id"`
	Total        int64  `json:"total"`
	PaymentTxID  string `json:"payment_tx_id"`
	ShippingTxID string `json:"shipping_tx_id"`
}

func (h *Handler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	result, err := h.purchase.Execute(r.Context(), appcheckout.PurchaseInput{
		CartID:   chi.URLParam(r, "cartID"),
		ShopIDs:  req.ShopIDs,
		Payment:  req.Payment,
		Shipping: req.Shipping,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, checkoutResponse{
		OrderID:      result.Order.ID,
		Total:        result.Order.Total,
		PaymentTxID:  result.Order.PaymentTxID,
		ShippingTxID: result.Order.ShippingTxID,
	})
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Order(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handler) handleShopOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ShopOrders(r.Context(), chi.URLParam(r, "shopID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// withAccessLog writes a single access log after the handler completes.
// It relies on the request-scoped logger already injected by ObservabilityMiddleware.
func (h *Handler) withAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(lrw, r)

		logctx.FromOr(r.Context(), h.log).Info("http_access",
			observability.F("method", r.Method),
			observability.F("route", routeFromContext(r.Context())),
			observability.F("path", r.URL.Path),
			observability.F("status", lrw.status),
			observability.F("latency_ms", time.Since(start).Milliseconds()),
		)
	})
}

// withTrace creates a server span for the request using OTel and W3C propagation.
// The span is renamed to the route template once routing has resolved it.
func (h *Handler) withTrace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tracer := otel.Tracer("marketplace.http")
		parentCtx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

		ctxWithSpan, span := tracer.Start(parentCtx,
			r.Method+" "+r.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.target", r.URL.Path),
				attribute.String("http.user_agent", r.UserAgent()),
			),
		)
		defer span.End()

		next.ServeHTTP(w, r.WithContext(ctxWithSpan))

		if route := routeFromContext(ctxWithSpan); route != "unknown" {
			span.SetName(r.Method + " " + route)
			span.SetAttributes(attribute.String("http.route", route))
		}
	})
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeDomainError(w http.ResponseWriter, err error) {
	var (
		outOfStock *domcheckout.OutOfStockError
		rejected   *dompolicy.RejectedError
		unrecorded *domcheckout.UnrecordedError
	)
	switch {
	case errors.As(err, &outOfStock), errors.As(err, &rejected):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, domcheckout.ErrPaymentFailed), errors.Is(err, domcheckout.ErrPaymentUnavailable):
		writeError(w, http.StatusPaymentRequired, err)
	case errors.Is(err, domcheckout.ErrShippingFailed), errors.Is(err, domcheckout.ErrShippingUnavailable):
		writeError(w, http.StatusBadGateway, err)
	case errors.As(err, &unrecorded):
		// Payment and shipping committed; flag for reconciliation instead of
		// reporting a generic failure.
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":          err.Error(),
			"unrecorded":     true,
			"order_id":       unrecorded.OrderID,
			"payment_tx_id":  unrecorded.PaymentTxID,
			"shipping_tx_id": unrecorded.ShippingTxID,
		})
	case errors.Is(err, domcart.ErrNotFound),
		errors.Is(err, domorder.ErrNotFound),
		errors.Is(err, domcatalog.ErrNotFound),
		errors.Is(err, domcatalog.ErrShopNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, domcart.ErrBasketNotFound),
		errors.Is(err, domcart.ErrEmptySelection),
		errors.Is(err, domcart.ErrDuplicateSelection),
		errors.Is(err, domcart.ErrInvalidOwner),
		errors.Is(err, dombasket.ErrInvalidQuantity),
		errors.Is(err, dombasket.ErrLineNotFound),
		errors.Is(err, domcheckout.ErrEmptyBasket),
		errors.Is(err, appcart.ErrShopMismatch):
		writeError(w, http.StatusBadRequest, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

// routeFromContext resolves the chi route template for low-cardinality labels.
// chi fills the route context in place during dispatch, so callers that run
// after the handler see the matched pattern.
func routeFromContext(ctx context.Context) string {
	if ctx == nil {
		return "unknown"
	}
	rctx := chi.RouteContext(ctx)
	if rctx == nil {
		return "unknown"
	}
	template := strings.TrimSuffix(rctx.RoutePattern(), "/")
	if template == "" {
		return "unknown"
	}
	return template
}
