package messaging

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"
	"time"
)

var (
	ErrWorkerQueueFull = errors.New("keyed worker queue full")
	ErrPoolStopped     = errors.New("keyed worker pool stopped")
)

const (
	DefaultKeyedWorkerCount = 64
	DefaultKeyedQueueSize   = 128
	DefaultKeyedWaitTimeout = 5 * time.Second
)

type KeyedPoolConfig struct {
	WorkerCount int           // number of workers
	QueueSize   int           // per-worker queue capacity
	WaitTimeout time.Duration // max time to wait when a queue is full
}

type keyedTask struct {
	ctx  context.Context
	fn   func(ctx context.Context) error
	done chan error
}

// KeyedPool runs tasks so that tasks sharing a key never overlap: the same key
// always hashes to the same worker and each worker runs its queue in order.
type KeyedPool struct {
	cfg     KeyedPoolConfig
	workers []chan keyedTask
	wg      sync.WaitGroup
	stopCh  chan struct{}
	once    sync.Once
}

func NewKeyedPool(cfg KeyedPoolConfig) *KeyedPool {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = DefaultKeyedWorkerCount
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultKeyedQueueSize
	}
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = DefaultKeyedWaitTimeout
	}

	p := &KeyedPool{
		cfg:     cfg,
		workers: make([]chan keyedTask, cfg.WorkerCount),
		stopCh:  make(chan struct{}),
	}
	for i := range p.workers {
		ch := make(chan keyedTask, cfg.QueueSize)
		p.workers[i] = ch
		p.wg.Add(1)
		go p.runWorker(ch)
	}
	return p
}

func (p *KeyedPool) runWorker(ch chan keyedTask) {
	defer p.wg.Done()
	for {
		select {
		case task := <-ch:
			task.done <- task.fn(task.ctx)
		case <-p.stopCh:
			return
		}
	}
}

// Do runs fn on the worker owning key and waits for its result.
func (p *KeyedPool) Do(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	if key == "" {
		return errors.New("key required for keyed worker pool")
	}
	task := keyedTask{ctx: ctx, fn: fn, done: make(chan error, 1)}
	ch := p.workers[p.hashToIndex(key)]

	select {
	case ch <- task:
	case <-p.stopCh:
		return ErrPoolStopped
	default:
		timer := time.NewTimer(p.cfg.WaitTimeout)
		defer timer.Stop()
		select {
		case ch <- task:
		case <-ctx.Done():
			return ctx.Err()
		case <-p.stopCh:
			return ErrPoolStopped
		case <-timer.C:
			return ErrWorkerQueueFull
		}
	}

	select {
	case err := <-task.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-p.stopCh:
		return ErrPoolStopped
	}
}

// Stop stops all workers. Queued tasks that have not started are dropped.
func (p *KeyedPool) Stop() {
	p.once.Do(func() {
		close(p.stopCh)
		p.wg.Wait()
	})
}

func (p *KeyedPool) hashToIndex(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(p.workers)))
}
