package server

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/irevive/storefront/internal/cart"
	"github.com/irevive/storefront/internal/catalog"
	"github.com/irevive/storefront/internal/checkout"
	"github.com/irevive/storefront/internal/config"
	"github.com/irevive/storefront/internal/inventory"
	"github.com/irevive/storefront/internal/kvstore"
	"github.com/irevive/storefront/internal/orders"
	"github.com/irevive/storefront/internal/saga"
)

// Options carries what the application needs besides its store. A nil
// Tracer or Meter falls back to the global providers.
type Options struct {
	ServiceName       string
	CheckoutMode      string
	DTMServer         string
	ServiceURL        string
	LowStockThreshold int
	Seed              bool

	Publisher orders.Publisher
	Barrier   *saga.Barrier
	Tracer    trace.Tracer
	Meter     metric.Meter
}

// App is the assembled storefront.
type App struct {
	Router    *gin.Engine
	Catalog   *catalog.Service
	Inventory *inventory.Reducer
	Orders    *orders.Service
	Sessions  *cart.Sessions
}

// New wires every service on top of store and mounts their handlers.
func New(ctx context.Context, store kvstore.Store, opts Options) (*App, error) {
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer(opts.ServiceName)
	}
	if opts.Meter == nil {
		opts.Meter = otel.Meter(opts.ServiceName)
	}

	catalogRepo := catalog.NewKVRepository(store)
	catalogService := catalog.NewService(catalogRepo)
	if opts.Seed {
		if _, err := catalogService.Seed(ctx); err != nil {
			return nil, fmt.Errorf("failed to seed catalog: %w", err)
		}
	}

	reducer, err := inventory.NewReducer(catalogRepo, inventory.NewKVMovementRepository(store), opts.Meter)
	if err != nil {
		return nil, err
	}
	orderService, err := orders.NewService(orders.NewKVRepository(store), opts.Publisher, opts.Meter)
	if err != nil {
		return nil, err
	}
	sessions := cart.NewSessions(store, reducer)

	orchestrator, err := newOrchestrator(opts, reducer, orderService)
	if err != nil {
		return nil, err
	}

	router := NewRouter(opts.ServiceName,
		catalog.NewHandler(catalogService, opts.Tracer),
		inventory.NewHandler(reducer, opts.Barrier, opts.Tracer, opts.LowStockThreshold),
		cart.NewHandler(sessions, catalogService, opts.Tracer),
		checkout.NewHandler(orchestrator, sessions, opts.Tracer),
		orders.NewHandler(orderService, opts.Barrier, opts.Tracer),
	)

	return &App{
		Router:    router,
		Catalog:   catalogService,
		Inventory: reducer,
		Orders:    orderService,
		Sessions:  sessions,
	}, nil
}

func newOrchestrator(opts Options, reducer *inventory.Reducer, orderService *orders.Service) (checkout.Orchestrator, error) {
	if opts.CheckoutMode == config.CheckoutDTM {
		zap.L().Info("🔀 checkout runs as a DTM saga",
			zap.String("dtm_server", opts.DTMServer),
			zap.String("service_url", opts.ServiceURL))
		return checkout.NewDTMOrchestrator(opts.DTMServer, opts.ServiceURL, reducer, orderService, opts.Meter)
	}
	return checkout.NewLocalOrchestrator(reducer, orderService, opts.Meter)
}
