package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/redis/go-redis/v9"

	appcart "github.com/grovemarket/marketplace-checkout/internal/application/cart"
	appcheckout "github.com/grovemarket/marketplace-checkout/internal/application/checkout"
	"github.com/grovemarket/marketplace-checkout/internal/config"
	domcart "github.com/grovemarket/marketplace-checkout/internal/domain/cart"
	domcatalog "github.com/grovemarket/marketplace-checkout/internal/domain/catalog"
	domcheckout "github.com/grovemarket/marketplace-checkout/internal/domain/checkout"
	domorder "github.com/grovemarket/marketplace-checkout/internal/domain/order"
	domoutbox "github.com/grovemarket/marketplace-checkout/internal/domain/outbox"
	dompolicy "github.com/grovemarket/marketplace-checkout/internal/domain/policy"
	"github.com/grovemarket/marketplace-checkout/internal/infrastructure/gateway"
	"github.com/grovemarket/marketplace-checkout/internal/infrastructure/id"
	"github.com/grovemarket/marketplace-checkout/internal/infrastructure/kafkabus"
	"github.com/grovemarket/marketplace-checkout/internal/infrastructure/memory"
	infraobs "github.com/grovemarket/marketplace-checkout/internal/infrastructure/observability"
	"github.com/grovemarket/marketplace-checkout/internal/infrastructure/observability/oteltrace"
	"github.com/grovemarket/marketplace-checkout/internal/infrastructure/observability/prometrics"
	"github.com/grovemarket/marketplace-checkout/internal/infrastructure/observability/zaplogger"
	"github.com/grovemarket/marketplace-checkout/internal/infrastructure/outbox"
	infrapolicy "github.com/grovemarket/marketplace-checkout/internal/infrastructure/policy"
	"github.com/grovemarket/marketplace-checkout/internal/infrastructure/postgres"
	"github.com/grovemarket/marketplace-checkout/internal/infrastructure/reconcile"
	"github.com/grovemarket/marketplace-checkout/internal/infrastructure/rediscart"
	"github.com/grovemarket/marketplace-checkout/internal/observability"
	"github.com/grovemarket/marketplace-checkout/internal/pkg/logging"
	httppresentation "github.com/grovemarket/marketplace-checkout/internal/presentation/http"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	baseLogger := logging.MustNewLogger(cfg.ServiceName, cfg.Env)
	defer func() { _ = baseLogger.Sync() }()
	zap.ReplaceGlobals(baseLogger)
	systemLogger := logging.WithTrace(baseLogger, logging.SystemTraceID, logging.SystemSpanID)

	obsLogger := zaplogger.New(
		observability.F("service", cfg.ServiceName),
		observability.F("env", cfg.Env),
	)
	tel := infraobs.New(
		oteltrace.New(cfg.ServiceName),
		obsLogger,
		registerCounters(),
		registerHistograms(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	catalogRepo := memory.NewCatalogRepository()
	if cfg.SeedDemoData {
		seedCatalog(catalogRepo, systemLogger)
	}

	var cartRepo domcart.Repository = memory.NewCartRepository()
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer func() { _ = rdb.Close() }()
		cartRepo = rediscart.New(rdb, cfg.CartTTL)
		systemLogger.Info("cart_store_redis", zap.String("addr", cfg.RedisAddr))
	}

	var orderRepo domorder.Repository = memory.NewOrderRepository()
	if cfg.PostgresDSN != "" {
		pool, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			systemLogger.Fatal("postgres_connect_failed", zap.Error(err))
		}
		defer pool.Close()
		orderRepo = postgres.NewOrderRepository(pool)
		systemLogger.Info("order_store_postgres")
	}

	bus := outbox.NewBus(obsLogger)
	bus.Start(context.Background())
	defer bus.Stop(context.Background())

	if len(cfg.KafkaBrokers) > 0 {
		relay := kafkabus.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer func() { _ = relay.Close() }()
		relayEvents(bus, relay,
			domorder.OrderPlacedEvent{}.EventName(),
			domorder.OrderUnrecordedEvent{}.EventName(),
			domcheckout.StockReleasedEvent{}.EventName(),
		)
		systemLogger.Info("kafka_relay_enabled",
			zap.Strings("brokers", cfg.KafkaBrokers),
			zap.String("topic", cfg.KafkaTopic),
		)
	}

	reconcile.New(bus, obsLogger).Start()

	paymentGateway := gateway.NewSimulatedPayment()
	paymentGateway.SetSuccessRate(cfg.PaymentSuccessRate)
	shippingGateway := gateway.NewSimulatedShipping()
	shippingGateway.SetSuccessRate(cfg.ShippingSuccessRate)

	var checkoutPolicy dompolicy.Validator = infrapolicy.AcceptAll{}
	if cfg.MaxUnitsPerLine > 0 {
		checkoutPolicy = infrapolicy.LineLimit{MaxUnitsPerLine: cfg.MaxUnitsPerLine}
	}

	ids := id.NewUUIDGenerator()
	reserver := domcheckout.NewReserver(catalogRepo, checkoutPolicy)
	cartService := appcart.NewService(cartRepo, catalogRepo, ids, obsLogger)
	purchase := appcheckout.NewPurchaseUseCase(
		cartRepo, reserver, orderRepo,
		paymentGateway, shippingGateway,
		ids, bus, tel,
	)

	handler := httppresentation.NewHandler(cartService, purchase, orderRepo, obsLogger, tel)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", handler.Router())

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		systemLogger.Info("http_server_start", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		systemLogger.Error("http_server_error", zap.Error(err))
		return
	}
	systemLogger.Info("http_server_stopped")
}

func registerCounters() map[observability.MetricKey]observability.Counter {
	reg := prometrics.New("", "")
	return map[observability.MetricKey]observability.Counter{
		observability.MUsecaseRequests: reg.Counter(
			string(observability.MUsecaseRequests),
			"Total number of use case invocations.",
			"use_case", "outcome",
		),
		observability.MHTTPRequests: reg.Counter(
			string(observability.MHTTPRequests),
			"Total number of HTTP requests.",
			"method", "route", "status",
		),
		observability.MExternalRequests: reg.Counter(
			string(observability.MExternalRequests),
			"Total number of calls to external peers.",
			"peer", "endpoint", "outcome",
		),
		observability.MStockConflicts: reg.Counter(
			string(observability.MStockConflicts),
			"Reservation attempts rejected for insufficient stock.",
			"product_id",
		),
		observability.MCompensations: reg.Counter(
			string(observability.MCompensations),
			"Checkout attempts that released previously reserved stock.",
			"stage",
		),
		observability.MUnrecordedOrders: reg.Counter(
			string(observability.MUnrecordedOrders),
			"Purchases that committed payment and shipping but could not be recorded.",
		),
	}
}

func registerHistograms() map[observability.MetricKey]observability.Histogram {
	reg := prometrics.New("", "")
	return map[observability.MetricKey]observability.Histogram{
		observability.MUsecaseDuration: reg.Histogram(
			string(observability.MUsecaseDuration),
			"Duration of use case execution in seconds.",
			prometheus.DefBuckets,
			"use_case",
		),
		observability.MHTTPRequestDuration: reg.Histogram(
			string(observability.MHTTPRequestDuration),
			"Duration of HTTP request handling in seconds.",
			prometheus.DefBuckets,
			"method", "route", "status",
		),
		observability.MExternalRequestDuration: reg.Histogram(
			string(observability.MExternalRequestDuration),
			"Duration of calls to external peers in seconds.",
			prometheus.DefBuckets,
			"peer", "endpoint",
		),
	}
}

func relayEvents(bus domoutbox.Subscriber, relay domoutbox.Publisher, eventNames ...string) {
	for _, name := range eventNames {
		bus.Subscribe(name, func(ctx context.Context, e domoutbox.Event) error {
			return relay.Publish(ctx, e)
		})
	}
}

func seedCatalog(repo *memory.CatalogRepository, logger *zap.Logger) {
	shops := []*domcatalog.Shop{
		{ID: "shop-espresso", Name: "Espresso Supply Co."},
		{ID: "shop-grind", Name: "Daily Grind Roasters"},
	}
	type seedProduct struct {
		id, shopID, name string
		price            int64
		quantity         int
	}
	products := []seedProduct{
		{"prod-kettle", "shop-espresso", "Gooseneck Kettle", 4500, 25},
		{"prod-scale", "shop-espresso", "Pour-Over Scale", 3200, 40},
		{"prod-beans-dark", "shop-grind", "Dark Roast 1kg", 1800, 120},
		{"prod-beans-single", "shop-grind", "Single Origin 250g", 1400, 8},
	}

	for _, s := range shops {
		repo.AddShop(s)
	}
	for _, p := range products {
		prod, err := domcatalog.NewProduct(p.id, p.shopID, p.name, p.price, p.quantity)
		if err != nil {
			logger.Warn("seed_product_invalid", zap.String("product_id", p.id), zap.Error(err))
			continue
		}
		repo.AddProduct(prod)
	}
	logger.Info("demo_catalog_seeded",
		zap.Int("shops", len(shops)),
		zap.Int("products", len(products)),
	)
}
