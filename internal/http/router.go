package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type RouterConfig struct {
	Checkout           *CheckoutHandler
	Orders             *OrdersHandler
	JWTSecret          []byte
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
	Health             Pinger
	Metrics            prometheus.Gatherer
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	if cfg.MaxRequestBodySize > 0 {
		r.Use(middleware.RequestSize(cfg.MaxRequestBodySize))
	}

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		if cfg.Health != nil {
			if err := cfg.Health.Ping(req.Context()); err != nil {
				respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.Metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Metrics, promhttp.HandlerOpts{}))
	}

	r.Route("/checkout", func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.JWTSecret))

		r.Post("/calculate-totals", cfg.Checkout.CalculateTotals)
		r.Post("/create-payment-intent", cfg.Checkout.CreatePaymentIntent)
		r.Post("/confirm-payment", cfg.Checkout.ConfirmPayment)
		r.Get("/payment-status/{order_id}", cfg.Orders.PaymentStatus)
		r.Get("/order/{order_id}", cfg.Orders.GetOrder)
		r.Get("/orders/my", cfg.Orders.ListOrders)
	})

	return otelhttp.NewHandler(r, "checkout",
		otelhttp.WithSpanNameFormatter(func(_ string, req *http.Request) string {
			return req.Method + " " + req.URL.Path
		}))
}
