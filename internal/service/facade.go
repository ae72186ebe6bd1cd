package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/egannguyen/go-food-delivery/internal/entity"
	"github.com/egannguyen/go-food-delivery/internal/messaging"
	"github.com/egannguyen/go-food-delivery/internal/metrics"
	"github.com/egannguyen/go-food-delivery/internal/repository"
)

// FacadeConfig holds what both command facades share.
type FacadeConfig struct {
	Channel string
	// MaxAttempts bounds the retries of a command whose append lost a
	// version race.
	MaxAttempts     uint
	InitialInterval time.Duration
	Clock           func() time.Time
	Metrics         metrics.Recorder
	Logger          *slog.Logger
}

func (c FacadeConfig) withDefaults() FacadeConfig {
	if c.Channel == "" {
		c.Channel = "orders"
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 5
	}
	if c.InitialInterval <= 0 {
		c.InitialInterval = 50 * time.Millisecond
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
	if c.Metrics == nil {
		c.Metrics = metrics.NoOp{}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// decision is what a command resolves to against the entity's history. A nil
// event means there is nothing to record.
type decision struct {
	event    entity.Body
	append   bool
	rejected error
	// evolve folds event into the entity and reports the resulting status.
	// An event that does not fold is not recorded.
	evolve func(h entity.Header) (string, error)
}

func accept(ev entity.Body) decision {
	return decision{event: ev, append: true}
}

// commandRunner replays an entity log, lets a command decide, then appends and
// publishes the outcome. A lost version race restarts the whole cycle.
type commandRunner struct {
	eventLog  repository.EventLog
	publisher messaging.Publisher
	cfg       FacadeConfig
}

func newCommandRunner(eventLog repository.EventLog, publisher messaging.Publisher, cfg FacadeConfig) commandRunner {
	return commandRunner{eventLog: eventLog, publisher: publisher, cfg: cfg.withDefaults()}
}

func (r commandRunner) run(ctx context.Context, entityID string, inbound entity.Header, decide func(history []entity.Message) (decision, error)) error {
	log := r.cfg.Logger.With("order_id", entityID, "type", inbound.Type)

	attempt := func() (struct{}, error) {
		history, err := r.eventLog.ReadAll(ctx, entityID)
		if err != nil {
			return struct{}{}, backoff.Permanent(fmt.Errorf("failed to load history of %s: %w", entityID, err))
		}

		if prior, ok := entity.CausedBy(history, inbound.MessageID); ok {
			// already applied; publish again in case the first publish was lost
			log.Info("Message already handled, republishing outcome", "message_id", inbound.MessageID)
			return struct{}{}, stop(r.publish(ctx, prior))
		}

		d, err := decide(history)
		if err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		if d.event == nil {
			log.Debug("Nothing to record")
			return struct{}{}, nil
		}

		msg := entity.NewMessage(r.cfg.Channel, d.event, r.cfg.Clock(), inbound.MessageID)
		var status string
		if d.evolve != nil {
			if status, err = d.evolve(msg.Header); err != nil {
				return struct{}{}, backoff.Permanent(fmt.Errorf("failed to apply %s: %w", msg.Header.Type, err))
			}
		}
		if d.append {
			if _, err := r.eventLog.Append(ctx, entityID, int64(len(history)), msg); err != nil {
				if errors.Is(err, repository.ErrVersionConflict) {
					log.Warn("Lost append race, retrying", "err", err)
					return struct{}{}, err
				}
				return struct{}{}, backoff.Permanent(fmt.Errorf("failed to append %s: %w", msg.Header.Type, err))
			}
			r.cfg.Metrics.EventAppended(msg.Header.Type)
		}
		if d.rejected != nil {
			r.cfg.Metrics.ProcessingError(inbound.Type)
			log.Warn("Command rejected", "err", d.rejected)
		} else {
			log.Info("Event recorded", "event", msg.Header.Type, "status", status)
		}
		return struct{}{}, stop(r.publish(ctx, msg))
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.cfg.InitialInterval
	_, err := backoff.Retry(ctx, attempt,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(r.cfg.MaxAttempts),
	)
	return err
}

func (r commandRunner) publish(ctx context.Context, msg entity.Message) error {
	if err := r.publisher.Publish(ctx, r.cfg.Channel, msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", msg.Header.Type, err)
	}
	return nil
}

// stop ends the retry loop with err, which may be nil.
func stop(err error) error {
	if err == nil {
		return nil
	}
	return backoff.Permanent(err)
}
