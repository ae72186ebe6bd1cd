package memory

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/egannguyen/go-food-delivery/internal/entity"
	"github.com/egannguyen/go-food-delivery/internal/messaging"
)

type group struct {
	cursor  int              // index of the next undelivered entry
	pending map[string][]int // consumer -> delivered, unacknowledged entry indexes
}

type channel struct {
	entries [][]byte
	groups  map[string]*group
}

// Broker is an in-process channel log with consumer groups. A new group
// starts at the end of its channel. A failing handler is retried in place, so
// a consumer hands out its entries strictly in channel order.
type Broker struct {
	mu          sync.Mutex
	channels    map[string]*channel
	notify      chan struct{}
	pollTimeout time.Duration
	logger      *slog.Logger
}

func NewBroker(pollTimeout time.Duration, logger *slog.Logger) *Broker {
	if pollTimeout <= 0 {
		pollTimeout = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Broker{
		channels:    make(map[string]*channel),
		notify:      make(chan struct{}),
		pollTimeout: pollTimeout,
		logger:      logger,
	}
}

func (b *Broker) channel(name string) *channel {
	ch, ok := b.channels[name]
	if !ok {
		ch = &channel{groups: make(map[string]*group)}
		b.channels[name] = ch
	}
	return ch
}

func (b *Broker) Publish(_ context.Context, channel string, msg entity.Message) error {
	data, err := entity.Encode(msg)
	if err != nil {
		return err
	}
	b.mu.Lock()
	ch := b.channel(channel)
	ch.entries = append(ch.entries, data)
	close(b.notify)
	b.notify = make(chan struct{})
	b.mu.Unlock()
	return nil
}

func (b *Broker) EnsureGroup(_ context.Context, channel, groupName string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := b.channel(channel)
	if _, ok := ch.groups[groupName]; !ok {
		ch.groups[groupName] = &group{cursor: len(ch.entries), pending: make(map[string][]int)}
	}
	return nil
}

func (b *Broker) Subscribe(ctx context.Context, sub messaging.Subscription, handler messaging.Handler) error {
	b.mu.Lock()
	ch, ok := b.channels[sub.Channel]
	var g *group
	if ok {
		g = ch.groups[sub.Group]
	}
	if g == nil {
		b.mu.Unlock()
		return fmt.Errorf("no group %s on channel %s", sub.Group, sub.Channel)
	}
	replay := slices.Clone(g.pending[sub.Consumer])
	b.mu.Unlock()

	log := b.logger.With("channel", sub.Channel, "group", sub.Group, "consumer", sub.Consumer)
	for _, idx := range replay {
		if !b.deliver(ctx, log, ch, g, sub.Consumer, idx, handler) {
			return nil
		}
	}

	for {
		b.mu.Lock()
		idx := -1
		if g.cursor < len(ch.entries) {
			idx = g.cursor
			g.cursor++
			g.pending[sub.Consumer] = append(g.pending[sub.Consumer], idx)
		}
		wait := b.notify
		b.mu.Unlock()

		if idx >= 0 {
			if !b.deliver(ctx, log, ch, g, sub.Consumer, idx, handler) {
				log.Info("Consumer shutting down")
				return nil
			}
			continue
		}

		select {
		case <-ctx.Done():
			log.Info("Consumer shutting down")
			return nil
		case <-wait:
		case <-time.After(b.pollTimeout):
		}
	}
}

// deliver reports false when ctx ended before the handler succeeded; the
// entry then stays pending for the consumer.
func (b *Broker) deliver(ctx context.Context, log *slog.Logger, ch *channel, g *group, consumer string, idx int, handler messaging.Handler) bool {
	if ctx.Err() != nil {
		return false
	}
	b.mu.Lock()
	payload := ch.entries[idx]
	b.mu.Unlock()

	if err := messaging.HandleWithRetry(ctx, messaging.RetryConfig{}, log.With("entry", idx), handler, payload); err != nil {
		log.Warn("Message left pending", "entry", idx, "err", err)
		return false
	}

	b.mu.Lock()
	g.pending[consumer] = slices.DeleteFunc(g.pending[consumer], func(i int) bool { return i == idx })
	b.mu.Unlock()
	return true
}

// Pending returns the number of unacknowledged messages of a group.
func (b *Broker) Pending(channel, groupName string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch, ok := b.channels[channel]
	if !ok || ch.groups[groupName] == nil {
		return 0
	}
	n := 0
	for _, p := range ch.groups[groupName].pending {
		n += len(p)
	}
	return n
}
