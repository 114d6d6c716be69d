package messaging

import (
	"context"
	"runtime/debug"
	"time"

	"go.uber.org/zap"

	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

// Middleware wraps handler execution.
type Middleware func(shared.EventHandler) shared.EventHandler

// chain wraps h so that middlewares[0] runs outermost.
func chain(h shared.EventHandler, middlewares []Middleware) shared.EventHandler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// RecoveryMiddleware turns a handler panic into an ErrHandlerPanic error.
func RecoveryMiddleware(logger *zap.Logger) Middleware {
	return func(next shared.EventHandler) shared.EventHandler {
		return func(ctx context.Context, event shared.Event) (err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("handler panic recovered",
						zap.String("event_type", string(event.EventType())),
						zap.Any("panic", r),
						zap.ByteString("stack", debug.Stack()),
					)
					err = panicError(r)
				}
			}()
			return next(ctx, event)
		}
	}
}

// LoggingMiddleware logs every handler run: failures at error level,
// successes at debug level.
func LoggingMiddleware(logger *zap.Logger) Middleware {
	return func(next shared.EventHandler) shared.EventHandler {
		return func(ctx context.Context, event shared.Event) error {
			start := time.Now()
			err := next(ctx, event)
			fields := []zap.Field{
				zap.String("event_type", string(event.EventType())),
				zap.String("user_id", event.AggregateID()),
				zap.Duration("duration", time.Since(start)),
			}
			if err != nil {
				logger.Error("handler failed", append(fields, zap.Error(err))...)
			} else {
				logger.Debug("handler completed", fields...)
			}
			return err
		}
	}
}

// TimeoutMiddleware bounds each handler run with a context deadline.
func TimeoutMiddleware(timeout time.Duration) Middleware {
	return func(next shared.EventHandler) shared.EventHandler {
		return func(ctx context.Context, event shared.Event) error {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			return next(ctx, event)
		}
	}
}
