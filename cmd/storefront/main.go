package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/irevive/storefront/internal/config"
	"github.com/irevive/storefront/internal/kvstore"
	"github.com/irevive/storefront/internal/orders"
	"github.com/irevive/storefront/internal/saga"
	"github.com/irevive/storefront/internal/server"
	"github.com/irevive/storefront/internal/telemetry"
)

func main() {
	// bootstrap logger so config loading can log; replaced once the level is known
	if _, err := telemetry.InitLogger("info", false); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("❌ failed to load config", zap.Error(err))
	}

	logger, err := telemetry.InitLogger(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		zap.L().Fatal("❌ failed to initialize logger", zap.Error(err))
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		zap.L().Fatal("❌ storefront stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	tp, err := telemetry.InitTracer(ctx, cfg.OTLPEndpoint, cfg.ServiceName)
	if err != nil {
		return fmt.Errorf("failed to initialize tracer: %w", err)
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			zap.L().Warn("⚠️ error shutting down tracer", zap.Error(err))
		}
	}()

	mp, err := telemetry.InitMetrics(ctx, cfg.OTLPEndpoint, cfg.ServiceName)
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	defer func() {
		if err := mp.Shutdown(context.Background()); err != nil {
			zap.L().Warn("⚠️ error shutting down meter", zap.Error(err))
		}
	}()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	publisher, closePublisher, err := openPublisher(cfg)
	if err != nil {
		return err
	}
	defer closePublisher()

	var barrier *saga.Barrier
	if cfg.BarrierDSN != "" {
		db, err := saga.OpenBarrierDB(ctx, cfg.BarrierDSN)
		if err != nil {
			return err
		}
		defer db.Close()
		barrier = saga.NewBarrier(db)
	}

	if !cfg.LogDevelopment {
		gin.SetMode(gin.ReleaseMode)
	}

	app, err := server.New(ctx, store, server.Options{
		ServiceName:       cfg.ServiceName,
		CheckoutMode:      cfg.CheckoutMode,
		DTMServer:         cfg.DTMServer,
		ServiceURL:        cfg.ServiceURL,
		LowStockThreshold: cfg.LowStockThreshold,
		Seed:              cfg.SeedCatalog,
		Publisher:         publisher,
		Barrier:           barrier,
		Tracer:            tp.Tracer(cfg.ServiceName),
		Meter:             mp.Meter(cfg.ServiceName),
	})
	if err != nil {
		return err
	}

	return server.Run(ctx, server.NewHTTPServer(cfg.Port, app.Router))
}

func openStore(ctx context.Context, cfg *config.Config) (kvstore.Store, func(), error) {
	noop := func() {}

	switch cfg.StoreBackend {
	case config.BackendPostgres:
		pool, err := kvstore.OpenPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, noop, err
		}
		store, err := kvstore.NewPostgresStore(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, noop, err
		}
		zap.L().Info("🐘 using postgres store")
		return store, pool.Close, nil

	case config.BackendMongo:
		client, err := kvstore.ConnectMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, noop, err
		}
		zap.L().Info("🍃 using mongo store", zap.String("database", cfg.MongoDB))
		store := kvstore.NewMongoStore(client.Database(cfg.MongoDB).Collection("kv"))
		return store, func() { _ = client.Disconnect(context.Background()) }, nil

	case config.BackendRedis:
		client, err := kvstore.OpenRedisPool(cfg.RedisAddr, cfg.RedisPoolSize)
		if err != nil {
			return nil, noop, err
		}
		zap.L().Info("🟥 using redis store", zap.String("addr", cfg.RedisAddr))
		return kvstore.NewRedisStore(client, cfg.ServiceName+":"), closer(client), nil

	default:
		zap.L().Info("💾 using in-memory store")
		return kvstore.NewMemoryStore(), noop, nil
	}
}

func openPublisher(cfg *config.Config) (orders.Publisher, func(), error) {
	if cfg.AMQPURL == "" {
		return orders.LogPublisher{}, func() {}, nil
	}

	conn, err := amqp.Dial(cfg.AMQPURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}
	publisher, err := orders.NewAMQPPublisher(conn, cfg.AMQPExchange)
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	zap.L().Info("🐇 publishing order events", zap.String("exchange", cfg.AMQPExchange))
	return publisher, func() { _ = conn.Close() }, nil
}

func closer(c io.Closer) func() {
	return func() { _ = c.Close() }
}
