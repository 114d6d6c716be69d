package main

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/config"
	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/application/eventhandler"
	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/application/gamification"
	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/shared"
	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/infrastructure/messaging"
	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/infrastructure/persistence/memory"
	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/infrastructure/persistence/postgres"
	redisstore "github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/infrastructure/persistence/redis"
	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/infrastructure/persistence/resilient"
)

// ══════════════════════════════════════════════════════════════════════════════
// WIRING
// ══════════════════════════════════════════════════════════════════════════════

// eventBus is what both bus implementations offer.
type eventBus interface {
	shared.EventBus
	Use(middleware ...messaging.Middleware)
	Metrics() *messaging.EventBusMetrics
	Close() error
}

// app owns every long-lived dependency of a command.
type app struct {
	cfg    *config.Config
	logger *zap.Logger

	pg     *postgres.Connection
	redis  *goredis.Client
	store  shared.Store
	engine *gamification.Engine
	bus    eventBus

	closers []func() error
}

// openApp connects the configured store, builds the engine over it and
// subscribes the event handlers on the configured bus.
func openApp(ctx context.Context, cfg *config.Config, logger *zap.Logger, clock shared.Clock) (_ *app, err error) {
	a := &app{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	if cfg.UsesRedis() {
		if a.redis, err = redisstore.Connect(ctx, redisConfig(cfg.Redis)); err != nil {
			return nil, err
		}
		a.closers = append(a.closers, a.redis.Close)
	}

	backend, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	a.store = resilient.New(backend, resilient.Config{
		FailureThreshold: cfg.Store.BreakerFailures,
		SuccessThreshold: cfg.Store.BreakerSuccesses,
		OpenTimeout:      cfg.Store.BreakerOpenTimeout,
		Logger:           logger,
	})

	a.engine = gamification.New(a.store, clock,
		gamification.WithLocation(cfg.App.Location),
		gamification.WithLogger(logger),
	)

	if a.bus, err = a.openBus(); err != nil {
		return nil, err
	}
	a.closers = append(a.closers, a.bus.Close)
	a.bus.Use(messaging.RecoveryMiddleware(logger), messaging.LoggingMiddleware(logger))

	handlers := eventhandler.New(a.engine, eventhandler.WithLogger(logger))
	if err := handlers.Register(a.bus); err != nil {
		return nil, err
	}

	logger.Info("engine ready",
		zap.String("store", string(cfg.Store.Driver)),
		zap.String("bus", string(cfg.Events.Bus)),
		zap.String("timezone", cfg.App.Location.String()),
	)
	return a, nil
}

func (a *app) openStore(ctx context.Context) (shared.Store, error) {
	switch a.cfg.Store.Driver {
	case config.StorePostgres:
		if err := a.openPostgres(ctx); err != nil {
			return nil, err
		}
		return postgres.NewStore(a.pg), nil
	case config.StoreRedis:
		return redisstore.NewStore(a.redis, a.cfg.Redis.KeyPrefix), nil
	case config.StoreMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", a.cfg.Store.Driver)
	}
}

func (a *app) openPostgres(ctx context.Context) error {
	if a.pg != nil {
		return nil
	}
	db := a.cfg.Database
	conn, err := postgres.Connect(ctx, db.URL, postgres.PoolConfig{
		MaxConns:          int32(db.MaxConns),
		MinConns:          int32(db.MinConns),
		MaxConnLifetime:   db.ConnMaxLifetime,
		MaxConnIdleTime:   db.ConnMaxIdleTime,
		HealthCheckPeriod: db.HealthCheckPeriod,
	})
	if err != nil {
		return err
	}
	a.pg = conn
	a.closers = append(a.closers, func() error {
		conn.Close()
		return nil
	})
	return nil
}

func (a *app) openBus() (eventBus, error) {
	local := messaging.InMemoryEventBusConfig{
		AsyncMode:      a.cfg.Events.Async,
		WorkerPoolSize: a.cfg.Events.Workers,
		Logger:         a.logger,
		EnableMetrics:  true,
	}
	if a.cfg.Events.Bus != config.BusRedis {
		return messaging.NewInMemoryEventBus(local), nil
	}
	bus, err := messaging.NewRedisEventBus(messaging.RedisEventBusConfig{
		Client:         messaging.NewGoRedisPubSub(a.redis),
		ChannelName:    a.cfg.Events.Channel,
		LocalBusConfig: local,
		Logger:         a.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("redis event bus: %w", err)
	}
	return bus, nil
}

// Close releases everything in reverse order of acquisition.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func redisConfig(c config.RedisConfig) redisstore.Config {
	return redisstore.Config{
		Host:         c.Host,
		Port:         c.Port,
		Password:     c.Password,
		DB:           c.DB,
		KeyPrefix:    c.KeyPrefix,
		PoolSize:     c.PoolSize,
		MaxRetries:   c.MaxRetries,
		DialTimeout:  c.DialTimeout,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
	}
}
