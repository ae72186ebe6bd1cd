package memory_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egannguyen/go-food-delivery/internal/entity"
	"github.com/egannguyen/go-food-delivery/internal/repository"
	"github.com/egannguyen/go-food-delivery/internal/repository/memory"
)

func deliveryMsg(body entity.Body) entity.Message {
	return entity.NewMessage("orders", body, time.Now(), "")
}

func TestEventLog_AppendAndReadAll(t *testing.T) {
	log := memory.NewEventLog(repository.DeliveryStreamPrefix, entity.DeliveryLogRegistry())
	ctx := context.Background()

	_, err := log.Append(ctx, "order-1", 0, deliveryMsg(entity.DeliveryCreated{OrderID: "order-1"}))
	require.NoError(t, err)
	pos, err := log.Append(ctx, "order-1", 1, deliveryMsg(entity.FoodInPreparation{OrderID: "order-1"}))
	require.NoError(t, err)
	assert.Equal(t, repository.Position(2), pos)

	messages, err := log.ReadAll(ctx, "order-1")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, entity.FoodInPreparation{OrderID: "order-1"}, messages[1].Body)

	empty, err := log.ReadAll(ctx, "order-2")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestEventLog_ConcurrentAppendsAtSameVersion(t *testing.T) {
	log := memory.NewEventLog(repository.DeliveryStreamPrefix, entity.DeliveryLogRegistry())
	ctx := context.Background()
	_, err := log.Append(ctx, "order-1", 0, deliveryMsg(entity.DeliveryCreated{OrderID: "order-1"}))
	require.NoError(t, err)

	var wins, conflicts atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := log.Append(ctx, "order-1", 1, deliveryMsg(entity.FoodIsReady{OrderID: "order-1"}))
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, repository.ErrVersionConflict):
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(15), conflicts.Load())
	messages, err := log.ReadAll(ctx, "order-1")
	require.NoError(t, err)
	assert.Len(t, messages, 2)
}
