package server

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"go.uber.org/zap"

	kilnerrors "kiln/errors"
	"kiln/logger"
	"kiln/metrics"
)

// backoffDelay computes D = min(maxDelay, randint(i², (i+1)²+1) seconds),
// exponential growth with uniform jitter inside each squared bucket, per
// attempt i (0-based).
func backoffDelay(i int, maxDelay time.Duration) time.Duration {
	lo := i * i
	hi := (i+1)*(i+1) + 1
	d := lo
	if hi > lo {
		d += rand.Intn(hi - lo)
	}
	delay := time.Duration(d) * time.Second
	if delay > maxDelay {
		return maxDelay
	}
	return delay
}

func logRetry(ctx context.Context, name string, attempt int, err error) {
	fields := []zap.Field{zap.String("process", name), zap.Int("attempt", attempt), zap.Error(err)}
	switch attempt {
	case 0:
		logger.Debug(ctx, "background process failed, retrying", fields...)
	case 1:
		logger.Info(ctx, "background process failed, retrying", fields...)
	case 2:
		logger.Warn(ctx, "background process failed, retrying", fields...)
	default:
		logger.Error(ctx, "background process failed, retrying", fields...)
	}
}

// automaticRetryTask wraps body so that it is retried, with the
// exponential-jitter backoff above, until it has run
// opts.MaxRetryAttempts times in all.
// A cancellation while shutdown is requested always rethrows immediately.
// onRetry, if non-nil, is called once per scheduled retry after logging
// and the metrics increment.
func automaticRetryTask(name string, opts Options, shutdownCtx context.Context, onRetry func(attempt int, err error), body func(ctx *Context) error) func(ctx *Context) error {
	return func(ctx *Context) error {
		for attempt := 0; ; attempt++ {
			err := kilnerrors.Recover(func() error { return body(ctx) })
			if err == nil {
				return nil
			}
			if errors.Is(err, context.Canceled) && isDone(shutdownCtx) {
				return err
			}
			if attempt >= opts.MaxRetryAttempts-1 {
				return err
			}

			logRetry(ctx, name, attempt, err)
			metrics.RetryAttempts.WithLabelValues(name).Inc()
			if onRetry != nil {
				onRetry(attempt, err)
			}

			delay := backoffDelay(attempt, opts.MaxRetryDelay)
			select {
			case <-time.After(delay):
				if isDone(shutdownCtx) {
					return err
				}
			case <-shutdownCtx.Done():
				return err
			}
		}
	}
}

// infiniteLoopTask repeats body while the stopping signal has not fired.
// If a retry-exhausted body returns a non-cancellation error, the loop
// is attempted again from a clean attempt count rather than dying
// permanently — the outer crash-restart layer is backgroundExecution,
// not this loop.
func infiniteLoopTask(stoppingCtx, shutdownCtx context.Context, body func(ctx *Context) error) func(ctx *Context) error {
	return func(ctx *Context) error {
		for {
			if isDone(stoppingCtx) {
				return nil
			}
			err := body(ctx)
			if err == nil {
				if isDone(stoppingCtx) {
					return nil
				}
				continue
			}
			if errors.Is(err, context.Canceled) && isDone(shutdownCtx) {
				return err
			}
			if isDone(stoppingCtx) {
				return nil
			}
			// Retries exhausted but no shutdown in progress: start a
			// fresh attempt cycle rather than exiting for good.
		}
	}
}

// backgroundExecution provides error-bounded restart around a
// goroutine's top-level body, mirroring how the supervisor restarts
// itself after restartDelay on crash.
func backgroundExecution(restartDelay time.Duration, shutdownCtx context.Context, fn func() error) {
	for {
		err := kilnerrors.Recover(fn)
		if err == nil || isDone(shutdownCtx) {
			return
		}
		select {
		case <-time.After(restartDelay):
		case <-shutdownCtx.Done():
			return
		}
	}
}

func isDone(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}
