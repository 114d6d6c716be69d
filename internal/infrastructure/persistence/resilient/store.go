// Package resilient wraps a shared.Store with a circuit breaker. While the
// breaker is open calls fail fast with ErrStoreUnavailable instead of
// waiting on a dead backend.
package resilient

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/shared"
	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/pkg/circuitbreaker"
)

// Config holds breaker settings.
type Config struct {
	FailureThreshold int
	SuccessThreshold int
	OpenTimeout      time.Duration
	Logger           *zap.Logger
}

// Store is a circuit-breaking shared.Store decorator.
type Store struct {
	next    shared.Store
	breaker *circuitbreaker.CircuitBreaker
	logger  *zap.Logger
}

// Compile-time check.
var _ shared.Store = (*Store)(nil)

// New wraps next. Only ErrStoreUnavailable counts as a failure; a missing
// key is a normal answer.
func New(next shared.Store, cfg Config, opts ...circuitbreaker.Option) *Store {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("resilient_store")

	base := []circuitbreaker.Option{
		circuitbreaker.WithFailureThreshold(cfg.FailureThreshold),
		circuitbreaker.WithSuccessThreshold(cfg.SuccessThreshold),
		circuitbreaker.WithTimeout(cfg.OpenTimeout),
		circuitbreaker.WithIsFailure(shared.IsRetryable),
		circuitbreaker.WithOnStateChange(func(name string, from, to circuitbreaker.State) {
			logger.Warn("store circuit state changed",
				zap.String("breaker", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to),
			)
		}),
	}
	return &Store{
		next:    next,
		breaker: circuitbreaker.New("store", append(base, opts...)...),
		logger:  logger,
	}
}

// Breaker exposes the breaker for health reporting.
func (s *Store) Breaker() *circuitbreaker.CircuitBreaker {
	return s.breaker
}

func (s *Store) run(ctx context.Context, op string, fn func(context.Context) error) error {
	err := s.breaker.Execute(ctx, fn)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, circuitbreaker.ErrCircuitOpen), errors.Is(err, circuitbreaker.ErrTooManyRequests):
		return shared.Unavailable("resilient", op, err)
	case shared.IsRetryable(err):
		s.logger.Error("store backend failure", zap.String("op", op), zap.Error(err))
	}
	return err
}

// Get implements shared.Store.
func (s *Store) Get(ctx context.Context, collection, key string) ([]byte, error) {
	var out []byte
	err := s.run(ctx, "Get", func(ctx context.Context) error {
		var err error
		out, err = s.next.Get(ctx, collection, key)
		return err
	})
	return out, err
}

// List implements shared.Store.
func (s *Store) List(ctx context.Context, collection, prefix string) ([]shared.Record, error) {
	var out []shared.Record
	err := s.run(ctx, "List", func(ctx context.Context) error {
		var err error
		out, err = s.next.List(ctx, collection, prefix)
		return err
	})
	return out, err
}

// Put implements shared.Store.
func (s *Store) Put(ctx context.Context, collection, key string, value []byte) error {
	return s.run(ctx, "Put", func(ctx context.Context) error {
		return s.next.Put(ctx, collection, key, value)
	})
}

// Commit implements shared.Store.
func (s *Store) Commit(ctx context.Context, writes ...shared.Write) error {
	return s.run(ctx, "Commit", func(ctx context.Context) error {
		return s.next.Commit(ctx, writes...)
	})
}
