package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egannguyen/go-food-delivery/internal/entity"
	"github.com/egannguyen/go-food-delivery/internal/repository"
	"github.com/egannguyen/go-food-delivery/internal/repository/redis"
)

func newClient(t *testing.T) (*miniredis.Miniredis, goredis.UniversalClient) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func orderCreated(id string) entity.Message {
	return entity.NewMessage("orders", entity.OrderCreated{
		OrderID:        id,
		CustomerID:     "customer-1",
		Items:          []entity.Item{{Name: "Soup", Amount: 1, PricePerItem: decimal.RequireFromString("4.20")}},
		DeliveryCharge: decimal.RequireFromString("1"),
		Total:          decimal.RequireFromString("5.20"),
	}, time.Now(), "")
}

func TestEventLog_AppendAndReadAll(t *testing.T) {
	mr, client := newClient(t)
	log := redis.NewEventLog(client, repository.OrderingStreamPrefix, entity.OrderLogRegistry())
	ctx := context.Background()

	pos, err := log.Append(ctx, "order-1", 0, orderCreated("order-1"))
	require.NoError(t, err)
	assert.Equal(t, repository.Position(1), pos)

	pos, err = log.Append(ctx, "order-1", 1, entity.NewMessage("orders", entity.OrderInProgress{OrderID: "order-1"}, time.Now(), ""))
	require.NoError(t, err)
	assert.Equal(t, repository.Position(2), pos)

	messages, err := log.ReadAll(ctx, "order-1")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, entity.TypeOrderCreated, messages[0].Header.Type)
	assert.Equal(t, entity.TypeOrderInProgress, messages[1].Header.Type)
	assert.True(t, mr.Exists("orders::order-1"))
}

func TestEventLog_VersionConflict(t *testing.T) {
	_, client := newClient(t)
	log := redis.NewEventLog(client, repository.OrderingStreamPrefix, entity.OrderLogRegistry())
	ctx := context.Background()

	_, err := log.Append(ctx, "order-1", 0, orderCreated("order-1"))
	require.NoError(t, err)

	_, err = log.Append(ctx, "order-1", 0, orderCreated("order-1"))
	assert.ErrorIs(t, err, repository.ErrVersionConflict)

	pos, err := log.Append(ctx, "order-1", repository.AnyVersion, entity.NewMessage("orders", entity.OrderCompleted{OrderID: "order-1"}, time.Now(), ""))
	require.NoError(t, err)
	assert.Equal(t, repository.Position(2), pos)

	messages, err := log.ReadAll(ctx, "order-1")
	require.NoError(t, err)
	assert.Len(t, messages, 2)
}

func TestEventLog_ReadMissing(t *testing.T) {
	_, client := newClient(t)
	log := redis.NewEventLog(client, repository.DeliveryStreamPrefix, entity.DeliveryLogRegistry())

	messages, err := log.ReadAll(context.Background(), "nope")

	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestEventLog_PerEntityOrder(t *testing.T) {
	_, client := newClient(t)
	log := redis.NewEventLog(client, repository.OrderingStreamPrefix, entity.OrderLogRegistry())
	ctx := context.Background()

	for _, id := range []string{"a", "b"} {
		_, err := log.Append(ctx, id, 0, orderCreated(id))
		require.NoError(t, err)
	}
	for i := 0; i < 3; i++ {
		tip := entity.TipAddedToOrder{OrderID: "a", Tip: decimal.NewFromInt(int64(i))}
		_, err := log.Append(ctx, "a", int64(i+1), entity.NewMessage("orders", tip, time.Now(), ""))
		require.NoError(t, err)
	}

	messages, err := log.ReadAll(ctx, "a")
	require.NoError(t, err)
	require.Len(t, messages, 4)
	for i, m := range messages[1:] {
		assert.True(t, decimal.NewFromInt(int64(i)).Equal(m.Body.(entity.TipAddedToOrder).Tip))
	}

	other, err := log.ReadAll(ctx, "b")
	require.NoError(t, err)
	assert.Len(t, other, 1)
}
