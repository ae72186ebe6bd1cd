package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/egannguyen/go-food-delivery/internal/entity"
	"github.com/egannguyen/go-food-delivery/internal/messaging"
	"github.com/egannguyen/go-food-delivery/internal/metrics"
)

// RouteFunc hands a decoded message to the component that owns its type.
type RouteFunc func(ctx context.Context, msg entity.Message) error

// OrderingRoutes dispatches the messages the ordering service reacts to.
func OrderingRoutes(f *OrderingFacade) RouteFunc {
	return func(ctx context.Context, msg entity.Message) error {
		switch body := msg.Body.(type) {
		case entity.CreateOrder:
			return f.CreateOrder(ctx, msg.Header, body)
		case entity.CancelOrder:
			return f.CancelOrder(ctx, msg.Header, body)
		case entity.AddTip:
			return f.AddTip(ctx, msg.Header, body)
		case entity.FoodInPreparation:
			return f.FoodInPreparation(ctx, msg.Header, body)
		case entity.FoodDelivered:
			return f.FoodDelivered(ctx, msg.Header, body)
		}
		return nil
	}
}

// DeliveryRoutes dispatches the messages the delivery service reacts to.
func DeliveryRoutes(f *DeliveryFacade) RouteFunc {
	return func(ctx context.Context, msg entity.Message) error {
		switch body := msg.Body.(type) {
		case entity.OrderCreated:
			return f.OrderCreated(ctx, msg.Header, body)
		case entity.OrderCanceled:
			return f.OrderCanceled(ctx, msg.Header, body)
		case entity.TipAddedToOrder:
			return f.TipAddedToOrder(ctx, msg.Header, body)
		case entity.PrepareFood:
			return f.PrepareFood(ctx, msg.Header, body)
		case entity.AssignDeliveryMan:
			return f.AssignDeliveryMan(ctx, msg.Header, body)
		case entity.UnAssignDeliveryMan:
			return f.UnAssignDeliveryMan(ctx, msg.Header, body)
		case entity.FoodReady:
			return f.FoodReady(ctx, msg.Header, body)
		case entity.PickUpFood:
			return f.PickUpFood(ctx, msg.Header, body)
		case entity.DeliverFood:
			return f.DeliverFood(ctx, msg.Header, body)
		}
		return nil
	}
}

// ProjectorRoutes feeds delivery events to the read model.
func ProjectorRoutes(p *DeliveryViewProjector) RouteFunc {
	return p.Handle
}

type ConsumerConfig struct {
	Channel   string
	Group     string
	Consumers int
}

// Consumer reads the channel through the service's consumer group and runs
// each message on the keyed pool, so that messages of one entity are handled
// one at a time.
type Consumer struct {
	cfg        ConsumerConfig
	subscriber messaging.Subscriber
	registry   *entity.Registry
	pool       *messaging.KeyedPool
	route      RouteFunc
	metrics    metrics.Recorder
	logger     *slog.Logger
}

func NewConsumer(cfg ConsumerConfig, subscriber messaging.Subscriber, registry *entity.Registry, pool *messaging.KeyedPool, route RouteFunc, recorder metrics.Recorder, logger *slog.Logger) *Consumer {
	if cfg.Consumers <= 0 {
		cfg.Consumers = 1
	}
	if recorder == nil {
		recorder = metrics.NoOp{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{
		cfg:        cfg,
		subscriber: subscriber,
		registry:   registry,
		pool:       pool,
		route:      route,
		metrics:    recorder,
		logger:     logger.With("channel", cfg.Channel, "group", cfg.Group),
	}
}

// EnsureGroup creates the consumer group if needed.
func (c *Consumer) EnsureGroup(ctx context.Context) error {
	if err := c.subscriber.EnsureGroup(ctx, c.cfg.Channel, c.cfg.Group); err != nil {
		return fmt.Errorf("failed to ensure group %s: %w", c.cfg.Group, err)
	}
	return nil
}

// Run creates the group and consumes with <group>-<n> consumers until ctx is
// done.
func (c *Consumer) Run(ctx context.Context) error {
	if err := c.EnsureGroup(ctx); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	for i := 1; i <= c.cfg.Consumers; i++ {
		sub := messaging.Subscription{
			Channel:  c.cfg.Channel,
			Group:    c.cfg.Group,
			Consumer: fmt.Sprintf("%s-%d", c.cfg.Group, i),
		}
		g.Go(func() error {
			c.logger.Info("Consumer started", "consumer", sub.Consumer)
			return c.subscriber.Subscribe(ctx, sub, c.Handle)
		})
	}
	return g.Wait()
}

// Handle is the messaging.Handler of the consumer. Only transport failures
// are returned; poison messages are logged and acknowledged.
func (c *Consumer) Handle(ctx context.Context, payload []byte) error {
	start := time.Now()

	h, err := entity.DecodeHeader(payload)
	if err == nil && h.EntityID == "" {
		err = fmt.Errorf("%w: missing entity id", entity.ErrMalformedMessage)
	}
	if err != nil {
		c.logger.Error("Dropping malformed message", "err", err)
		c.metrics.MessageHandled("", metrics.OutcomeDropped, time.Since(start))
		return nil
	}
	log := c.logger.With("order_id", h.EntityID, "type", h.Type)

	if !c.registry.Knows(h.Type) {
		log.Debug("Ignoring message")
		c.metrics.MessageHandled(h.Type, metrics.OutcomeIgnored, time.Since(start))
		return nil
	}
	msg, err := c.registry.Decode(payload)
	if err != nil {
		log.Error("Dropping undecodable message", "err", err)
		c.metrics.MessageHandled(h.Type, metrics.OutcomeDropped, time.Since(start))
		return nil
	}

	err = c.pool.Do(ctx, h.EntityID, func(ctx context.Context) error {
		return c.route(ctx, msg)
	})
	switch {
	case err == nil:
		c.metrics.MessageHandled(h.Type, metrics.OutcomeHandled, time.Since(start))
		return nil
	case errors.Is(err, entity.ErrCorruptStream):
		log.Error("Dropping message for corrupt stream", "err", err)
		c.metrics.MessageHandled(h.Type, metrics.OutcomeDropped, time.Since(start))
		return nil
	default:
		log.Error("Failed to handle message", "err", err)
		c.metrics.MessageHandled(h.Type, metrics.OutcomeFailed, time.Since(start))
		return err
	}
}
