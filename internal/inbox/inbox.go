package inbox

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/google/uuid"

	"github.com/egannguyen/go-food-delivery/internal/entity"
	"github.com/egannguyen/go-food-delivery/internal/messaging"
)

// Inbox topics, one per service owning the commands.
const (
	OrderingTopic = "ordering-inbox"
	DeliveryTopic = "delivery-inbox"
)

const typeKey = "type"

type Config struct {
	Channel       string
	MaxRetries    int
	RetryInterval time.Duration
}

// Inbox stores client commands and forwards them to the orders channel.
type Inbox struct {
	cfg       Config
	publisher message.Publisher
	channel   messaging.Publisher
	registry  *entity.Registry
	router    *message.Router
	logger    *slog.Logger
}

func New(cfg Config, publisher message.Publisher, subscriber message.Subscriber, channel messaging.Publisher, logger *slog.Logger) (*Inbox, error) {
	if cfg.Channel == "" {
		cfg.Channel = "orders"
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 100 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}
	wmLogger := watermill.NewSlogLogger(logger)

	router, err := message.NewRouter(message.RouterConfig{}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create inbox router: %w", err)
	}
	router.AddMiddleware(
		middleware.Retry{
			MaxRetries:      cfg.MaxRetries,
			InitialInterval: cfg.RetryInterval,
			Logger:          wmLogger,
		}.Middleware,
		middleware.Recoverer,
	)

	in := &Inbox{
		cfg:       cfg,
		publisher: publisher,
		channel:   channel,
		registry:  entity.CommandRegistry(),
		router:    router,
		logger:    logger.With("component", "inbox"),
	}
	for _, topic := range []string{OrderingTopic, DeliveryTopic} {
		router.AddNoPublisherHandler(topic+"-forwarder", topic, subscriber, in.forward)
	}
	return in, nil
}

// TopicFor returns the inbox topic of the service that handles cmd.
func TopicFor(cmd entity.Body) string {
	switch cmd.(type) {
	case entity.CreateOrder, entity.CancelOrder, entity.AddTip:
		return OrderingTopic
	}
	return DeliveryTopic
}

// Submit stores cmd in the inbox.
func (in *Inbox) Submit(ctx context.Context, cmd entity.Body) error {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", cmd.MessageType(), err)
	}
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	msg := message.NewMessage(id.String(), payload)
	msg.Metadata.Set(typeKey, cmd.MessageType())
	msg.SetContext(ctx)

	if err := in.publisher.Publish(TopicFor(cmd), msg); err != nil {
		return fmt.Errorf("failed to store %s in inbox: %w", cmd.MessageType(), err)
	}
	in.logger.Info("Command accepted", "order_id", cmd.EntityID(), "type", cmd.MessageType())
	return nil
}

// forward publishes an inbox message on the channel. The inbox message id
// becomes the channel message id, so a redelivered request stays a duplicate.
func (in *Inbox) forward(msg *message.Message) error {
	cmdType := msg.Metadata.Get(typeKey)
	body, err := in.registry.DecodeBody(cmdType, msg.Payload)
	if err != nil {
		in.logger.Error("Dropping invalid inbox message", "uuid", msg.UUID, "type", cmdType, "err", err)
		return nil
	}

	out := entity.NewMessage(in.cfg.Channel, body, time.Now(), "")
	out.Header.MessageID = msg.UUID
	if err := in.channel.Publish(msg.Context(), in.cfg.Channel, out); err != nil {
		return fmt.Errorf("failed to forward %s: %w", cmdType, err)
	}
	return nil
}

// Run forwards inbox messages until ctx is done.
func (in *Inbox) Run(ctx context.Context) error {
	return in.router.Run(ctx)
}

// Running is closed once the router handlers are subscribed.
func (in *Inbox) Running() chan struct{} {
	return in.router.Running()
}

func (in *Inbox) Close() error {
	return in.router.Close()
}
