package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/quickbite/orders-service/internal/api/rest/handler"
	"github.com/quickbite/orders-service/internal/api/rest/middleware"
	"github.com/quickbite/orders-service/internal/domain"
	"github.com/quickbite/orders-service/internal/events"
	"github.com/quickbite/orders-service/internal/repository/memory"
	"github.com/quickbite/orders-service/internal/repository/postgres"
	"github.com/quickbite/orders-service/internal/version"
)

const (
	DefaultPort = "8080"

	ShutdownTimeout       = 10 * time.Second
	JWTClockSkewTolerance = 5 * time.Minute
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger.Info("api_starting", "version", version.Version)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Order repository: Postgres when configured, otherwise the
	// volatile in-memory registry.
	repo, cleanup, err := initializeRepository(ctx, logger)
	if err != nil {
		logger.Error("repository_init_failed", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	broadcaster := events.NewBroadcaster(logger)

	// Create JWT middleware
	jwtMiddleware := middleware.NewJWTAuthMiddleware(middleware.JWTConfig{
		Secret:    []byte(os.Getenv("JWT_SECRET")),
		Issuer:    os.Getenv("JWT_ISSUER"),
		Audience:  os.Getenv("JWT_AUDIENCE"),
		ClockSkew: JWTClockSkewTolerance,
	})

	// REST handlers
	orderHandler := handler.NewOrderHandler(repo, broadcaster, logger)
	eventsHandler := handler.NewEventsHandler(broadcaster, logger)

	router := buildRouter(orderHandler, eventsHandler, jwtMiddleware)

	port := os.Getenv("PORT")
	if port == "" {
		port = DefaultPort
	}
	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// WriteTimeout stays 0: the event stream holds its response
		// open indefinitely.
		IdleTimeout: 60 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("api_listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("api_shutting_down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("api_serve_failed", "error", err)
		os.Exit(1)
	}
}

// initializeRepository selects the order repository implementation.
// POSTGRES_HOST switches to the pgx-backed store; the returned cleanup
// releases its pool.
func initializeRepository(ctx context.Context, logger *slog.Logger) (handler.OrderRepository, func(), error) {
	host := os.Getenv("POSTGRES_HOST")
	if host == "" {
		repo := memory.NewOrderRepository()
		if os.Getenv("SEED_DEMO_DATA") == "true" {
			repo.Seed(demoOrders())
			logger.Info("demo_data_seeded")
		}
		logger.Info("repository_ready", "driver", "memory")
		return repo, func() {}, nil
	}

	pool, err := pgxpool.New(ctx, fmt.Sprintf(
		"postgres://%s:%s@%s/%s?sslmode=%s",
		os.Getenv("POSTGRES_USER"),
		os.Getenv("POSTGRES_PASSWORD"),
		host,
		os.Getenv("POSTGRES_DB"),
		os.Getenv("POSTGRES_SSL"),
	))
	if err != nil {
		return nil, nil, fmt.Errorf("create_pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping_db: %w", err)
	}

	logger.Info("repository_ready", "driver", "postgres")
	return postgres.NewOrderRepository(pool), pool.Close, nil
}

// buildRouter wires routes; everything under /api/v1 requires a
// bearer token except the event stream, which tolerates anonymous
// listeners.
func buildRouter(
	orderHandler *handler.OrderHandler,
	eventsHandler *handler.EventsHandler,
	jwtMiddleware *middleware.JWTAuthMiddleware,
) *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/health", handleHealthCheck).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Handle("/events", jwtMiddleware.OptionalHandler(http.HandlerFunc(eventsHandler.Stream))).Methods(http.MethodGet)

	orders := api.PathPrefix("/orders").Subrouter()
	orders.Use(jwtMiddleware.Handler)
	orders.HandleFunc("", orderHandler.ListOrders).Methods(http.MethodGet)
	orders.HandleFunc("", orderHandler.CreateOrder).Methods(http.MethodPost)
	orders.HandleFunc("/available/list", orderHandler.ListAvailableOrders).Methods(http.MethodGet)
	orders.HandleFunc("/{id}", orderHandler.GetOrderByID).Methods(http.MethodGet)
	orders.HandleFunc("/{id}/status", orderHandler.UpdateStatus).Methods(http.MethodPut)
	orders.HandleFunc("/{id}/assign", orderHandler.AssignOrder).Methods(http.MethodPost)
	orders.HandleFunc("/{id}/accept-restaurant", orderHandler.AcceptOrder).Methods(http.MethodPost)

	return router
}

// handleHealthCheck returns a basic health status.
func handleHealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}

// demoOrders returns the pre-seeded orders used for local runs. Their
// ids sit below the generated-id baseline.
func demoOrders() []*domain.Order {
	drafts := []struct {
		id    string
		draft domain.OrderDraft
	}{
		{
			id: "ORD-1",
			draft: domain.OrderDraft{
				Items: []domain.OrderItem{
					{Name: "Margherita Pizza", Price: 299, Quantity: 1},
					{Name: "Garlic Bread", Price: 99, Quantity: 2},
				},
				DeliveryAddress: "221B Baker Street",
				PaymentMethod:   "cash",
				CustomerName:    "Demo Customer",
			},
		},
		{
			id: "ORD-2",
			draft: domain.OrderDraft{
				Items: []domain.OrderItem{
					{Name: "Veggie Burger", Price: 189, Quantity: 2},
				},
				DeliveryAddress: "7 Rose Avenue",
				PaymentMethod:   "electronic",
				CustomerName:    "Demo Customer",
			},
		},
		{
			id: "ORD-3",
			draft: domain.OrderDraft{
				Items: []domain.OrderItem{
					{Name: "Paneer Tikka", Price: 249, Quantity: 1},
					{Name: "Butter Naan", Price: 49, Quantity: 4},
				},
				DeliveryAddress: "14 Lakeview Road",
				PaymentMethod:   "cash",
				CustomerName:    "Demo Customer",
			},
		},
	}

	orders := make([]*domain.Order, 0, len(drafts))
	for _, d := range drafts {
		orders = append(orders, domain.NewOrder(d.id, &d.draft, nil, time.Now().UTC()))
	}
	return orders
}
