package messaging

import (
	"context"

	"github.com/egannguyen/go-food-delivery/internal/entity"
)

// Handler processes one raw wire message. A nil error acknowledges it; any
// error leaves it pending so the group redelivers it.
type Handler func(ctx context.Context, payload []byte) error

// Publisher appends messages to a shared channel.
type Publisher interface {
	Publish(ctx context.Context, channel string, msg entity.Message) error
}

// Subscription names one consumer of a consumer group on a channel.
type Subscription struct {
	Channel  string
	Group    string
	Consumer string
}

// Subscriber reads a channel through a consumer group. Each message is
// delivered to one consumer per group, and the group cursor is durable.
type Subscriber interface {
	// EnsureGroup creates the group if it does not exist yet.
	EnsureGroup(ctx context.Context, channel, group string) error
	// Subscribe first replays the consumer's own unacknowledged messages, then
	// consumes new ones until ctx is done.
	Subscribe(ctx context.Context, sub Subscription, handler Handler) error
}
