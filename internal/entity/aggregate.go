package entity

import (
	"time"

	"github.com/google/uuid"
)

// Header carries the routing and identity data of every message on a channel.
// EntityID is the aggregate the message concerns and the log/partition key.
type Header struct {
	MessageID   string    `json:"message_id"`
	Channel     string    `json:"channel"`
	Type        string    `json:"type"`
	EntityID    string    `json:"entity_id"`
	CreatedAt   time.Time `json:"created_at"`
	CausationID string    `json:"causation_id,omitempty"`
}

// Body is the payload of a Message. Its concrete type is recoverable only
// from Header.Type, see Registry.
type Body interface {
	MessageType() string
	EntityID() string
}

// Event is a Body that records a fact about an aggregate and can be folded.
type Event interface {
	Body
	Accept(v EventVisitor, h Header) error
}

// Message is the immutable (Header, Body) envelope.
type Message struct {
	Header Header `json:"header"`
	Body   Body   `json:"body"`
}

// NewMessage wraps body into a Message addressed to channel. causationID is the
// id of the inbound message this one results from, empty for origin messages.
func NewMessage(channel string, body Body, createdAt time.Time, causationID string) Message {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return Message{
		Header: Header{
			MessageID:   id.String(),
			Channel:     channel,
			Type:        body.MessageType(),
			EntityID:    body.EntityID(),
			CreatedAt:   createdAt.UTC(),
			CausationID: causationID,
		},
		Body: body,
	}
}

// AggregateBase holds identity and the number of events folded so far.
type AggregateBase struct {
	ID      string
	Version int64
}

// GetVersion is the length of the log the aggregate was rebuilt from. It is
// the expected version for the next append.
func (a *AggregateBase) GetVersion() int64 {
	return a.Version
}

// CausedBy returns the message of history that was produced in reaction to
// the message with the given id, if any.
func CausedBy(history []Message, messageID string) (Message, bool) {
	if messageID == "" {
		return Message{}, false
	}
	for _, msg := range history {
		if msg.Header.CausationID == messageID {
			return msg, true
		}
	}
	return Message{}, false
}
