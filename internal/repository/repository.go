package repository

import (
	"context"
	"errors"

	"github.com/egannguyen/go-food-delivery/internal/entity"
)

// Stream key prefixes; a log is stored under <prefix><entity id>.
const (
	OrderingStreamPrefix = "orders::"
	DeliveryStreamPrefix = "delivery::"
)

// AnyVersion disables the expected version check on Append.
const AnyVersion int64 = -1

// ErrVersionConflict is returned by Append when the log length differs from
// the expected version. Nothing is persisted in that case.
var ErrVersionConflict = errors.New("event log version conflict")

// Position is the 1-based index of a message within its entity log.
type Position int64

// EventLog is an append-only log per entity.
type EventLog interface {
	// Append adds msg at the end of the entity's log. expectedVersion is the
	// number of messages the caller read, or AnyVersion.
	Append(ctx context.Context, entityID string, expectedVersion int64, msg entity.Message) (Position, error)
	// ReadAll returns the log oldest first. A missing entity yields an empty slice.
	ReadAll(ctx context.Context, entityID string) ([]entity.Message, error)
}

// DeliveryViewRepository stores the delivery read model.
type DeliveryViewRepository interface {
	Get(ctx context.Context, orderID string) (entity.DeliveryView, bool, error)
	Save(ctx context.Context, view entity.DeliveryView) error
	All(ctx context.Context) ([]entity.DeliveryView, error)
}
