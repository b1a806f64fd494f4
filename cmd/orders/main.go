package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	_ "github.com/lib/pq"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"github.com/joao-fontenele/orderflow-realtime/internal/auth"
	"github.com/joao-fontenele/orderflow-realtime/internal/broadcast"
	"github.com/joao-fontenele/orderflow-realtime/internal/catalog"
	"github.com/joao-fontenele/orderflow-realtime/internal/config"
	"github.com/joao-fontenele/orderflow-realtime/internal/messaging"
	"github.com/joao-fontenele/orderflow-realtime/internal/orders"
	"github.com/joao-fontenele/orderflow-realtime/internal/telemetry"
)

const (
	serviceName    = "orders"
	serviceVersion = "1.0.0"
)

type menu interface {
	orders.Catalog
	catalog.Lister
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stderr, nil)).Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := telemetry.NewLogger(os.Stdout, cfg.LogLevel)

	if err := run(cfg, logger); err != nil {
		logger.Error("orders service failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, serviceName, serviceVersion, cfg.TracingEnabled)
	if err != nil {
		return err
	}
	defer shutdownWithTimeout(logger, "tracer provider", shutdownTracer)

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider(serviceName, serviceVersion)
	if err != nil {
		return err
	}
	defer shutdownWithTimeout(logger, "meter provider", shutdownMeter)

	metrics, err := telemetry.NewMetrics(otel.Meter(serviceName))
	if err != nil {
		return err
	}

	var (
		store orders.Store
		items menu
		db    *sql.DB
	)
	switch cfg.Store {
	case config.StorePostgres:
		db, err = telemetry.OpenDB("postgres", cfg.PostgresURL)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		if err := db.PingContext(ctx); err != nil {
			return err
		}
		store = orders.NewOrderRepository(db)
		items = catalog.NewMenuRepository(db)
	default:
		logger.Warn("using in-memory store, orders are lost on restart")
		store = orders.NewMemoryStore()
		items = catalog.NewMemoryCatalog(catalog.DemoMenu)
	}

	hubOpts := []broadcast.HubOption{broadcast.WithHubMetrics(metrics)}
	if cfg.KafkaEnabled() {
		producer := messaging.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer func() { _ = producer.Close() }()
		hubOpts = append(hubOpts, broadcast.WithSink(producer))
		logger.Info("relaying lifecycle events to kafka", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}
	hub := broadcast.NewHub(logger, hubOpts...)

	service := orders.NewService(store, items, hub, logger, orders.WithMetrics(metrics))

	orderHandler := orders.NewHandler(service, logger, cfg.CreateTimeout)
	menuHandler := catalog.NewHandler(items, logger)
	stream := broadcast.NewStreamHandler(hub, logger, broadcast.DefaultHeartbeat)
	gateway := broadcast.NewGateway(hub, logger)
	admin := auth.NewAdminGate(cfg.AdminID, cfg.AdminPassword, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /orders", telemetry.WithHTTPRoute(orderHandler.HandleCreate))
	mux.HandleFunc("GET /orders", telemetry.WithHTTPRoute(orderHandler.HandleList))
	mux.HandleFunc("GET /orders/admin", telemetry.WithHTTPRoute(orderHandler.HandleListAdmin))
	mux.HandleFunc("GET /orders/stream", telemetry.WithHTTPRoute(stream.ServeHTTP))
	mux.HandleFunc("GET /orders/{id}", telemetry.WithHTTPRoute(orderHandler.HandleGet))
	mux.HandleFunc("PATCH /orders/{id}/status", telemetry.WithHTTPRoute(admin.Require(orderHandler.HandleUpdateStatus)))
	mux.HandleFunc("GET /menu", telemetry.WithHTTPRoute(menuHandler.HandleList))
	mux.Handle("GET /ws", gateway)
	mux.HandleFunc("GET /ws/stats", telemetry.WithHTTPRoute(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, gateway.Stats())
	}))
	mux.Handle("GET /metrics", metricsHandler)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
		}
		writeJSON(w, map[string]string{"status": "ok"})
	})

	handler := otelhttp.NewHandler(mux, serviceName,
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			if r.Pattern != "" {
				return r.Pattern
			}
			return r.Method + " " + r.URL.Path
		}),
	)
	handler = middleware.RequestID(middleware.Recoverer(handler))

	// Read and write deadlines would cut /ws and /orders/stream. Streams end
	// with the base context on shutdown.
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting orders service", "port", cfg.Port, "store", cfg.Store)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return hub.Run(gctx)
	})

	if cfg.SimulatorEnabled {
		simulator := orders.NewStatusSimulator(service, cfg.SimulatorInterval, cfg.SimulatorBatchSize, logger)
		g.Go(func() error {
			return simulator.Start(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(data)
}

func shutdownWithTimeout(logger *slog.Logger, name string, shutdown func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		logger.Error("shutdown error", "component", name, "error", err)
	}
}
