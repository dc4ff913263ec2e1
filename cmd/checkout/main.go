package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/fjod/go_cart/marketplace-checkout/internal/cart"
	"github.com/fjod/go_cart/marketplace-checkout/internal/catalog"
	"github.com/fjod/go_cart/marketplace-checkout/internal/checkout"
	"github.com/fjod/go_cart/marketplace-checkout/internal/commission"
	"github.com/fjod/go_cart/marketplace-checkout/internal/config"
	"github.com/fjod/go_cart/marketplace-checkout/internal/discount"
	h "github.com/fjod/go_cart/marketplace-checkout/internal/http"
	"github.com/fjod/go_cart/marketplace-checkout/internal/httpclient"
	"github.com/fjod/go_cart/marketplace-checkout/internal/logger"
	"github.com/fjod/go_cart/marketplace-checkout/internal/metrics"
	"github.com/fjod/go_cart/marketplace-checkout/internal/payment"
	"github.com/fjod/go_cart/marketplace-checkout/internal/publisher"
	"github.com/fjod/go_cart/marketplace-checkout/internal/repository"
	"github.com/fjod/go_cart/marketplace-checkout/internal/shipping"
	"github.com/fjod/go_cart/marketplace-checkout/internal/tax"
	"github.com/fjod/go_cart/marketplace-checkout/internal/telemetry"
)

func main() {
	app := &cli.App{
		Name:   "checkout",
		Usage:  "multi-vendor marketplace checkout service",
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run migrations and start the HTTP API and the outbox poller",
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "apply database migrations and exit",
				Action: migrate,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func credentials(cfg *config.Config) *repository.Credentials {
	return &repository.Credentials{
		Host:              cfg.Postgres.Host,
		Port:              cfg.Postgres.Port,
		User:              cfg.Postgres.User,
		Password:          cfg.Postgres.Password,
		DBName:            cfg.Postgres.DBName,
		MigrationsDirPath: cfg.Postgres.MigrationsPath,
	}
}

func migrate(*cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer log.Sync()

	creds := credentials(cfg)
	repo, err := repository.NewRepository(creds, log)
	if err != nil {
		return err
	}
	defer repo.Close()

	if err := repo.RunMigrations(creds); err != nil {
		return err
	}
	log.Info("database migrations completed")
	return nil
}

func serve(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer log.Sync()
	zap.ReplaceGlobals(log)

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Database
	creds := credentials(cfg)
	repo, err := repository.NewRepository(creds, log)
	if err != nil {
		return err
	}
	defer repo.Close()
	if err := repo.RunMigrations(creds); err != nil {
		return err
	}
	log.Info("database migrations completed")

	// Redis product cache
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}

	// Saved carts
	mongoDB, err := cart.ConnectMongoDB(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
	if err != nil {
		return err
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mongoDB.Client().Disconnect(disconnectCtx)
	}()
	cartRepo := cart.NewMongoRepository(mongoDB)
	if err := cartRepo.CreateIndexes(ctx); err != nil {
		return err
	}
	carts := cart.NewService(cartRepo, cart.NewRedisCache(redisClient), log)

	// External providers
	shippingClient := httpclient.New("shipping", cfg.Shipping.BaseURL, cfg.Shipping.Timeout, log,
		httpclient.WithAPIKey(cfg.Shipping.APIKey))
	taxClient := httpclient.New("tax", cfg.Tax.BaseURL, cfg.Tax.Timeout, log,
		httpclient.WithAPIKey(cfg.Tax.APIKey))
	paymentClient := httpclient.New("payment", cfg.Payment.BaseURL, cfg.Payment.Timeout, log,
		httpclient.WithAPIKey(cfg.Payment.APIKey))

	svc := checkout.NewService(checkout.Dependencies{
		Resolver: catalog.NewResolver(catalog.NewCachedCatalog(repo, redisClient, cfg.Redis.TTL, log)),
		Shipping: shipping.NewEstimator(shipping.NewHTTPRateProvider(shippingClient),
			cfg.Shipping.Timeout, cfg.ShippingConcurrency, log, m),
		Rates:     commission.NewRateResolver(repo, cfg.DefaultRate()),
		Discounts: discount.NewEngine(repo, cfg.Floor(), log, m),
		Tax:       tax.NewOrchestrator(tax.NewHTTPProvider(taxClient, cfg.Currency), repo, cfg.Tax.Timeout, log, m),
		Payment: payment.NewOrchestrator(payment.NewHTTPProcessor(paymentClient), repo,
			cfg.Payment.Timeout, cfg.Currency, log, m),
		Orders: repo,
		Carts:  carts,
	}, cfg.Currency, log, m)

	var wg sync.WaitGroup

	// Outbox poller
	poller := publisher.NewOutboxPoller(repo,
		publisher.NewKafkaWriter(cfg.Kafka.Topic, cfg.Kafka.Brokers...), svc, cfg.Kafka.Tick, log)
	pollerCtx, pollerCancel := context.WithCancel(context.Background())
	wg.Add(1)
	go func() {
		defer wg.Done()
		poller.Run(pollerCtx)
	}()

	router := h.NewRouter(h.RouterConfig{
		Checkout:           h.NewCheckoutHandler(svc, carts, cfg.RequestTimeout, log),
		Orders:             h.NewOrdersHandler(svc, cfg.RequestTimeout, log),
		JWTSecret:          []byte(cfg.JWTSecret),
		RequestTimeout:     cfg.RequestTimeout,
		MaxRequestBodySize: cfg.MaxRequestBodySize,
		Health:             repo,
		Metrics:            reg,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("checkout service starting", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err = <-serverErr:
		log.Error("server error", zap.Error(err))
	}

	// Graceful shutdown
	log.Info("shutting down checkout service")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	pollerCancel()
	doneChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(doneChan)
	}()
	select {
	case <-doneChan:
		log.Info("outbox poller stopped cleanly")
	case <-shutdownCtx.Done():
		log.Warn("outbox poller didn't stop in time")
	}
	if err := poller.Close(); err != nil {
		log.Warn("close kafka writer", zap.Error(err))
	}

	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warn("flush traces", zap.Error(err))
	}
	log.Info("checkout service stopped")
	return err
}
