package messaging

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryConfig bounds the pauses between attempts of a failing handler.
type RetryConfig struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.InitialInterval <= 0 {
		c.InitialInterval = 100 * time.Millisecond
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = 10 * time.Second
	}
	return c
}

// HandleWithRetry runs handler on payload until it succeeds or ctx is done.
// The message stays with its consumer meanwhile, so later messages of the
// channel wait behind it. A non-nil error means ctx ended first and the
// message is still unacknowledged.
func HandleWithRetry(ctx context.Context, cfg RetryConfig, log *slog.Logger, handler Handler, payload []byte) error {
	cfg = cfg.withDefaults()
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.InitialInterval
	b.MaxInterval = cfg.MaxInterval

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, handler(ctx, payload)
	}, backoff.WithBackOff(b), backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Warn("Retrying message", "err", err, "in", next)
		}))
	return err
}
