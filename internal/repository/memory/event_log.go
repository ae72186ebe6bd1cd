package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/egannguyen/go-food-delivery/internal/entity"
	"github.com/egannguyen/go-food-delivery/internal/repository"
)

// EventLog keeps encoded messages per stream in process memory.
type EventLog struct {
	mu       sync.RWMutex
	prefix   string
	registry *entity.Registry
	streams  map[string][][]byte
}

func NewEventLog(prefix string, registry *entity.Registry) *EventLog {
	return &EventLog{
		prefix:   prefix,
		registry: registry,
		streams:  make(map[string][][]byte),
	}
}

func (l *EventLog) Append(_ context.Context, entityID string, expectedVersion int64, msg entity.Message) (repository.Position, error) {
	data, err := entity.Encode(msg)
	if err != nil {
		return 0, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	key := l.prefix + entityID
	current := int64(len(l.streams[key]))
	if expectedVersion != repository.AnyVersion && current != expectedVersion {
		return 0, fmt.Errorf("%w: stream %s expected %d, got %d", repository.ErrVersionConflict, key, expectedVersion, current)
	}
	l.streams[key] = append(l.streams[key], data)
	return repository.Position(current + 1), nil
}

func (l *EventLog) ReadAll(_ context.Context, entityID string) ([]entity.Message, error) {
	l.mu.RLock()
	records := l.streams[l.prefix+entityID]
	l.mu.RUnlock()

	messages := make([]entity.Message, 0, len(records))
	for i, data := range records {
		msg, err := l.registry.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s%s at %d: %w", l.prefix, entityID, i, err)
		}
		messages = append(messages, msg)
	}
	return messages, nil
}
