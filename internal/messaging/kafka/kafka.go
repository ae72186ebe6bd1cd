package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	kafkaGo "github.com/segmentio/kafka-go"

	"github.com/egannguyen/go-food-delivery/internal/entity"
	"github.com/egannguyen/go-food-delivery/internal/messaging"
)

type Config struct {
	Brokers     []string
	Partitions  int
	StartFrom   string // "$" starts new groups at the newest offset, anything else at the oldest
	PollTimeout time.Duration
	Retry       messaging.RetryConfig
}

type Broker struct {
	cfg    Config
	writer *kafkaGo.Writer
	logger *slog.Logger
}

// NewBroker creates a channel publisher and subscriber on Kafka. Messages
// are keyed by entity id so an entity's messages share a partition.
func NewBroker(cfg Config, logger *slog.Logger) *Broker {
	if cfg.Partitions <= 0 {
		cfg.Partitions = 3
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Broker{
		cfg: cfg,
		writer: &kafkaGo.Writer{
			Addr:                   kafkaGo.TCP(cfg.Brokers...),
			Balancer:               &kafkaGo.Hash{},
			RequiredAcks:           kafkaGo.RequireAll,
			AllowAutoTopicCreation: true,
		},
		logger: logger,
	}
}

var (
	_ messaging.Publisher  = (*Broker)(nil)
	_ messaging.Subscriber = (*Broker)(nil)
)

func (k *Broker) Publish(ctx context.Context, channel string, msg entity.Message) error {
	payload, err := entity.Encode(msg)
	if err != nil {
		return err
	}
	err = k.writer.WriteMessages(ctx, kafkaGo.Message{
		Topic: channel,
		Key:   []byte(msg.Header.EntityID),
		Value: payload,
		Headers: []kafkaGo.Header{
			{Key: "type", Value: []byte(msg.Header.Type)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to publish %s to %s: %w", msg.Header.Type, channel, err)
	}
	return nil
}

// EnsureGroup creates the channel topic. Kafka creates the group itself when
// its first member joins.
func (k *Broker) EnsureGroup(ctx context.Context, channel, group string) error {
	if len(k.cfg.Brokers) == 0 {
		return errors.New("no kafka brokers configured")
	}
	conn, err := kafkaGo.DialContext(ctx, "tcp", k.cfg.Brokers[0])
	if err != nil {
		return fmt.Errorf("failed to dial kafka: %w", err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("failed to find kafka controller: %w", err)
	}
	ctrl, err := kafkaGo.DialContext(ctx, "tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return fmt.Errorf("failed to dial kafka controller: %w", err)
	}
	defer ctrl.Close()

	err = ctrl.CreateTopics(kafkaGo.TopicConfig{
		Topic:             channel,
		NumPartitions:     k.cfg.Partitions,
		ReplicationFactor: 1,
	})
	if err != nil && !errors.Is(err, kafkaGo.TopicAlreadyExists) {
		return fmt.Errorf("failed to create topic %s for group %s: %w", channel, group, err)
	}
	return nil
}

// Subscribe commits an offset only after the handler succeeded. A failing
// message is retried with backoff, holding back its partition, until it
// succeeds or ctx is done; the group then redelivers it after a restart.
func (k *Broker) Subscribe(ctx context.Context, sub messaging.Subscription, handler messaging.Handler) error {
	startOffset := kafkaGo.FirstOffset
	if k.cfg.StartFrom == "$" {
		startOffset = kafkaGo.LastOffset
	}
	reader := kafkaGo.NewReader(kafkaGo.ReaderConfig{
		Brokers:     k.cfg.Brokers,
		Topic:       sub.Channel,
		GroupID:     sub.Group,
		StartOffset: startOffset,
		MaxWait:     k.cfg.PollTimeout,
	})
	defer reader.Close()

	log := k.logger.With("channel", sub.Channel, "group", sub.Group, "consumer", sub.Consumer)
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("Consumer shutting down")
				return nil
			}
			log.Error("Error reading message", "err", err)
			k.pause(ctx)
			continue
		}

		msgLog := log.With("partition", msg.Partition, "offset", msg.Offset)
		if err := messaging.HandleWithRetry(ctx, k.cfg.Retry, msgLog, handler, msg.Value); err != nil {
			log.Info("Consumer shutting down", "uncommitted_offset", msg.Offset)
			return nil
		}

		if err := reader.CommitMessages(context.WithoutCancel(ctx), msg); err != nil {
			log.Error("Failed to commit message", "offset", msg.Offset, "err", err)
		}
	}
}

func (k *Broker) pause(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(k.cfg.PollTimeout):
	}
}

func (k *Broker) Close() error {
	return k.writer.Close()
}
