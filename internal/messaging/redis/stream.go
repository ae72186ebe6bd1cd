package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/egannguyen/go-food-delivery/internal/entity"
	"github.com/egannguyen/go-food-delivery/internal/messaging"
)

const payloadField = "payload"

type Config struct {
	// StartFrom is the stream id a new group starts at: "$" for new
	// messages only, "0" for the whole stream.
	StartFrom   string
	PollTimeout time.Duration
	// ClaimMinIdle enables XAUTOCLAIM of entries other consumers left
	// pending for at least this long, e.g. after a crash. Zero disables
	// claiming.
	ClaimMinIdle time.Duration
	BatchSize    int64
	Retry        messaging.RetryConfig
}

// Stream is a channel on Redis Streams with consumer groups. A failing
// handler is retried in place, holding back the rest of the consumer's batch.
type Stream struct {
	client goredis.UniversalClient
	cfg    Config
	logger *slog.Logger
}

func NewStream(client goredis.UniversalClient, cfg Config, logger *slog.Logger) *Stream {
	if cfg.StartFrom == "" {
		cfg.StartFrom = "$"
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Stream{client: client, cfg: cfg, logger: logger}
}

func (s *Stream) Publish(ctx context.Context, channel string, msg entity.Message) error {
	data, err := entity.Encode(msg)
	if err != nil {
		return err
	}
	err = s.client.XAdd(ctx, &goredis.XAddArgs{
		Stream: channel,
		Values: map[string]any{payloadField: string(data)},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to publish %s to %s: %w", msg.Header.Type, channel, err)
	}
	return nil
}

func (s *Stream) EnsureGroup(ctx context.Context, channel, group string) error {
	err := s.client.XGroupCreateMkStream(ctx, channel, group, s.cfg.StartFrom).Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create group %s on %s: %w", group, channel, err)
	}
	return nil
}

func (s *Stream) Subscribe(ctx context.Context, sub messaging.Subscription, handler messaging.Handler) error {
	log := s.logger.With("channel", sub.Channel, "group", sub.Group, "consumer", sub.Consumer)

	if err := s.replayPending(ctx, log, sub, handler); err != nil {
		return err
	}

	for {
		if ctx.Err() != nil {
			log.Info("Consumer shutting down")
			return nil
		}

		if s.cfg.ClaimMinIdle > 0 {
			s.claimStale(ctx, log, sub, handler)
		}

		streams, err := s.client.XReadGroup(ctx, &goredis.XReadGroupArgs{
			Group:    sub.Group,
			Consumer: sub.Consumer,
			Streams:  []string{sub.Channel, ">"},
			Count:    s.cfg.BatchSize,
			Block:    s.cfg.PollTimeout,
		}).Result()
		if errors.Is(err, goredis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			log.Error("Error reading stream", "err", err)
			s.pause(ctx)
			continue
		}
		s.handleAll(ctx, log, sub, streams, handler)
	}
}

// replayPending walks the consumer's own pending entries once, oldest first.
func (s *Stream) replayPending(ctx context.Context, log *slog.Logger, sub messaging.Subscription, handler messaging.Handler) error {
	start := "0"
	for ctx.Err() == nil {
		streams, err := s.client.XReadGroup(ctx, &goredis.XReadGroupArgs{
			Group:    sub.Group,
			Consumer: sub.Consumer,
			Streams:  []string{sub.Channel, start},
			Count:    s.cfg.BatchSize,
			Block:    -1,
		}).Result()
		if errors.Is(err, goredis.Nil) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read pending entries of %s: %w", sub.Consumer, err)
		}
		if len(streams) == 0 || len(streams[0].Messages) == 0 {
			return nil
		}
		for _, entry := range streams[0].Messages {
			log.Info("Replaying pending message", "entry", entry.ID)
			if !s.handle(ctx, log, sub, entry, handler) {
				return nil
			}
			start = entry.ID
		}
	}
	return nil
}

func (s *Stream) claimStale(ctx context.Context, log *slog.Logger, sub messaging.Subscription, handler messaging.Handler) {
	entries, _, err := s.client.XAutoClaim(ctx, &goredis.XAutoClaimArgs{
		Stream:   sub.Channel,
		Group:    sub.Group,
		Consumer: sub.Consumer,
		MinIdle:  s.cfg.ClaimMinIdle,
		Start:    "0-0",
		Count:    s.cfg.BatchSize,
	}).Result()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			log.Warn("Failed to claim stale entries", "err", err)
		}
		return
	}
	for _, entry := range entries {
		log.Info("Claimed stale message", "entry", entry.ID)
		if !s.handle(ctx, log, sub, entry, handler) {
			return
		}
	}
}

func (s *Stream) handleAll(ctx context.Context, log *slog.Logger, sub messaging.Subscription, streams []goredis.XStream, handler messaging.Handler) {
	for _, stream := range streams {
		for _, entry := range stream.Messages {
			if !s.handle(ctx, log, sub, entry, handler) {
				return
			}
		}
	}
}

// handle reports false when ctx ended before the entry was handled; the
// entry then stays pending.
func (s *Stream) handle(ctx context.Context, log *slog.Logger, sub messaging.Subscription, entry goredis.XMessage, handler messaging.Handler) bool {
	if ctx.Err() != nil {
		return false
	}
	raw, ok := entry.Values[payloadField].(string)
	if !ok {
		log.Error("Dropping entry without payload", "entry", entry.ID)
		s.ack(ctx, log, sub, entry.ID)
		return true
	}
	if err := messaging.HandleWithRetry(ctx, s.cfg.Retry, log.With("entry", entry.ID), handler, []byte(raw)); err != nil {
		log.Warn("Message left pending", "entry", entry.ID, "err", err)
		return false
	}
	s.ack(ctx, log, sub, entry.ID)
	return true
}

func (s *Stream) ack(ctx context.Context, log *slog.Logger, sub messaging.Subscription, id string) {
	// a handled message is acknowledged even if the consumer is stopping
	if err := s.client.XAck(context.WithoutCancel(ctx), sub.Channel, sub.Group, id).Err(); err != nil {
		log.Error("Failed to acknowledge message", "entry", id, "err", err)
	}
}

func (s *Stream) pause(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(s.cfg.PollTimeout):
	}
}
