package messaging_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egannguyen/go-food-delivery/internal/messaging"
)

func TestKeyedPool_SerializesPerKey(t *testing.T) {
	pool := messaging.NewKeyedPool(messaging.KeyedPoolConfig{WorkerCount: 4})
	defer pool.Stop()

	var (
		mu      sync.Mutex
		running = map[string]int{}
		overlap atomic.Bool
		order   = map[string][]int{}
		wg      sync.WaitGroup
	)
	for _, key := range []string{"a", "b", "c"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				err := pool.Do(context.Background(), key, func(context.Context) error {
					mu.Lock()
					running[key]++
					if running[key] > 1 {
						overlap.Store(true)
					}
					order[key] = append(order[key], i)
					mu.Unlock()

					time.Sleep(time.Millisecond)

					mu.Lock()
					running[key]--
					mu.Unlock()
					return nil
				})
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	assert.False(t, overlap.Load())
	for key, seq := range order {
		require.Len(t, seq, 20, key)
		for i, v := range seq {
			assert.Equal(t, i, v, key)
		}
	}
}

func TestKeyedPool_ReturnsHandlerError(t *testing.T) {
	pool := messaging.NewKeyedPool(messaging.KeyedPoolConfig{WorkerCount: 1})
	defer pool.Stop()
	boom := errors.New("boom")

	err := pool.Do(context.Background(), "k", func(context.Context) error { return boom })

	assert.ErrorIs(t, err, boom)
}

func TestKeyedPool_RequiresKey(t *testing.T) {
	pool := messaging.NewKeyedPool(messaging.KeyedPoolConfig{WorkerCount: 1})
	defer pool.Stop()

	assert.Error(t, pool.Do(context.Background(), "", func(context.Context) error { return nil }))
}

func TestKeyedPool_Stopped(t *testing.T) {
	pool := messaging.NewKeyedPool(messaging.KeyedPoolConfig{WorkerCount: 2, QueueSize: 1})
	pool.Stop()
	pool.Stop()

	err := pool.Do(context.Background(), "k", func(context.Context) error { return nil })

	assert.ErrorIs(t, err, messaging.ErrPoolStopped)
}

func TestKeyedPool_ContextCanceledWhileWaiting(t *testing.T) {
	pool := messaging.NewKeyedPool(messaging.KeyedPoolConfig{WorkerCount: 1})
	defer pool.Stop()
	release := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := pool.Do(ctx, "k", func(context.Context) error {
		<-release
		return nil
	})
	close(release)

	assert.ErrorIs(t, err, context.Canceled)
	assert.NoError(t, pool.Do(context.Background(), "k", func(context.Context) error { return nil }))
}
