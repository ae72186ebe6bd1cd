package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/egannguyen/go-food-delivery/internal/entity"
	"github.com/egannguyen/go-food-delivery/internal/repository"
)

const payloadField = "payload"

// appendScript appends ARGV[2] to the stream KEYS[1] if its length equals
// ARGV[1] (or ARGV[1] is negative) and returns the new length.
var appendScript = goredis.NewScript(`
local expected = tonumber(ARGV[1])
local length = redis.call('XLEN', KEYS[1])
if expected >= 0 and length ~= expected then
	return redis.error_reply('VERSION_CONFLICT ' .. length)
end
redis.call('XADD', KEYS[1], '*', 'payload', ARGV[2])
return length + 1
`)

// EventLog stores each entity log as a Redis stream.
type EventLog struct {
	client   goredis.UniversalClient
	prefix   string
	registry *entity.Registry
}

func NewEventLog(client goredis.UniversalClient, prefix string, registry *entity.Registry) *EventLog {
	return &EventLog{client: client, prefix: prefix, registry: registry}
}

func (l *EventLog) Append(ctx context.Context, entityID string, expectedVersion int64, msg entity.Message) (repository.Position, error) {
	data, err := entity.Encode(msg)
	if err != nil {
		return 0, err
	}
	key := l.prefix + entityID
	length, err := appendScript.Run(ctx, l.client, []string{key}, expectedVersion, string(data)).Int64()
	if err != nil {
		if strings.Contains(err.Error(), "VERSION_CONFLICT") {
			return 0, fmt.Errorf("%w: stream %s expected %d, %s", repository.ErrVersionConflict, key, expectedVersion, err.Error())
		}
		return 0, fmt.Errorf("failed to append %s to %s: %w", msg.Header.Type, key, err)
	}
	return repository.Position(length), nil
}

func (l *EventLog) ReadAll(ctx context.Context, entityID string) ([]entity.Message, error) {
	key := l.prefix + entityID
	entries, err := l.client.XRange(ctx, key, "-", "+").Result()
	if err != nil && !errors.Is(err, goredis.Nil) {
		return nil, fmt.Errorf("failed to read stream %s: %w", key, err)
	}

	messages := make([]entity.Message, 0, len(entries))
	for _, entry := range entries {
		raw, ok := entry.Values[payloadField].(string)
		if !ok {
			return nil, fmt.Errorf("%w: stream %s entry %s has no payload", entity.ErrMalformedMessage, key, entry.ID)
		}
		msg, err := l.registry.Decode([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s entry %s: %w", key, entry.ID, err)
		}
		messages = append(messages, msg)
	}
	return messages, nil
}
