package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/egannguyen/go-food-delivery/internal/entity"
	"github.com/egannguyen/go-food-delivery/internal/repository"
)

const uniqueViolation = "23505"

type eventLog struct {
	db       *sql.DB
	prefix   string
	registry *entity.Registry
}

// NewEventLog creates an EventLog backed by the events table. Streams are
// identified by <prefix><entity id>.
func NewEventLog(db *sql.DB, prefix string, registry *entity.Registry) repository.EventLog {
	return &eventLog{db: db, prefix: prefix, registry: registry}
}

func (s *eventLog) Append(ctx context.Context, entityID string, expectedVersion int64, msg entity.Message) (repository.Position, error) {
	streamID := s.prefix + entityID
	payload, err := entity.Encode(msg)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Check concurrency
	var currentVersion int64
	err = tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM events WHERE stream_id = $1", streamID).Scan(&currentVersion)
	if err != nil {
		return 0, fmt.Errorf("failed to get current stream version: %w", err)
	}
	if expectedVersion != repository.AnyVersion && currentVersion != expectedVersion {
		return 0, fmt.Errorf("%w: stream %s expected %d, got %d", repository.ErrVersionConflict, streamID, expectedVersion, currentVersion)
	}

	version := currentVersion + 1
	_, err = tx.ExecContext(ctx,
		"INSERT INTO events (id, stream_id, version, event_type, payload, created_at) VALUES ($1, $2, $3, $4, $5, $6)",
		msg.Header.MessageID, streamID, version, msg.Header.Type, string(payload), msg.Header.CreatedAt,
	)
	if err != nil {
		// a concurrent writer took the same version between count and insert
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return 0, fmt.Errorf("%w: stream %s version %d taken", repository.ErrVersionConflict, streamID, version)
		}
		return 0, fmt.Errorf("failed to insert event %s: %w", msg.Header.Type, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return repository.Position(version), nil
}

func (s *eventLog) ReadAll(ctx context.Context, entityID string) ([]entity.Message, error) {
	streamID := s.prefix + entityID
	rows, err := s.db.QueryContext(ctx, "SELECT payload FROM events WHERE stream_id = $1 ORDER BY version ASC", streamID)
	if err != nil {
		return nil, fmt.Errorf("failed to load events for stream %s: %w", streamID, err)
	}
	defer rows.Close()

	messages := []entity.Message{}
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan event record: %w", err)
		}
		msg, err := s.registry.Decode(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to decode event of stream %s: %w", streamID, err)
		}
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating event rows: %w", err)
	}
	return messages, nil
}
