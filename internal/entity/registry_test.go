package entity_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egannguyen/go-food-delivery/internal/entity"
)

func TestRegistry_Decode(t *testing.T) {
	original := entity.NewMessage("orders", entity.TipAddedToOrder{
		OrderID: "order-1",
		Tip:     decimal.RequireFromString("1.10"),
		Total:   decimal.RequireFromString("11.10"),
	}, t0, "cause-1")

	data, err := entity.Encode(original)
	require.NoError(t, err)
	decoded, err := entity.OrderLogRegistry().Decode(data)
	require.NoError(t, err)

	assert.Equal(t, original.Header, decoded.Header)
	body, ok := decoded.Body.(entity.TipAddedToOrder)
	require.True(t, ok)
	assert.True(t, body.Tip.Equal(decimal.RequireFromString("1.1")))
	assert.Equal(t, "cause-1", decoded.Header.CausationID)
}

func TestRegistry_UnknownType(t *testing.T) {
	data, err := entity.Encode(msg(entity.PrepareFood{OrderID: "order-1"}, t0))
	require.NoError(t, err)

	_, err = entity.OrderingRegistry().Decode(data)
	assert.ErrorIs(t, err, entity.ErrUnknownMessageType)

	decoded, err := entity.DeliveryRegistry().Decode(data)
	require.NoError(t, err)
	assert.Equal(t, entity.PrepareFood{OrderID: "order-1"}, decoded.Body)
}

func TestRegistry_Malformed(t *testing.T) {
	_, err := entity.DeliveryRegistry().Decode([]byte(`{"header":`))
	assert.ErrorIs(t, err, entity.ErrMalformedMessage)

	_, err = entity.DeliveryRegistry().Decode([]byte(`{"header":{"type":"PrepareFood"},"body":{"order_id":42}}`))
	assert.ErrorIs(t, err, entity.ErrMalformedMessage)

	_, err = entity.DecodeHeader([]byte(`{"header":{}}`))
	assert.ErrorIs(t, err, entity.ErrMalformedMessage)
}

func TestNewMessage_Header(t *testing.T) {
	m := entity.NewMessage("orders", entity.FoodReady{OrderID: "order-9"}, t0, "")

	assert.Equal(t, "orders", m.Header.Channel)
	assert.Equal(t, entity.TypeFoodReady, m.Header.Type)
	assert.Equal(t, "order-9", m.Header.EntityID)
	assert.NotEmpty(t, m.Header.MessageID)
	assert.Equal(t, t0, m.Header.CreatedAt)
}

func TestCausedBy(t *testing.T) {
	history := []entity.Message{
		entity.NewMessage("orders", entity.OrderInProgress{OrderID: "o"}, t0, "m-1"),
	}

	prior, ok := entity.CausedBy(history, "m-1")
	assert.True(t, ok)
	assert.Equal(t, history[0].Header.MessageID, prior.Header.MessageID)
	_, ok = entity.CausedBy(history, "m-2")
	assert.False(t, ok)
	_, ok = entity.CausedBy(history, "")
	assert.False(t, ok)
}
