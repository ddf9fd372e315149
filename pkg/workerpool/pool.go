// Package workerpool runs named probes concurrently with a fixed number of
// workers. check and the development server use it to ping every database
// and cache at once instead of one after another.
//
//	results := workerpool.Probe(ctx, 4, dbs.Aliases(), func(ctx context.Context, alias string) error {
//	    return dbs.Ping(ctx, alias)
//	})
package workerpool

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrPoolClosed is returned by Submit after Shutdown has been called.
var ErrPoolClosed = errors.New("workerpool: pool is closed")

// Pool is a bounded goroutine pool.
type Pool struct {
	tasks  chan func()
	wg     sync.WaitGroup
	once   sync.Once
	mu     sync.RWMutex
	closed bool
}

// New creates a Pool with size workers. size below one means one.
func New(size int) *Pool {
	if size <= 0 {
		size = 1
	}
	p := &Pool{tasks: make(chan func(), size)}
	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Submit blocks until a worker accepts task. It returns ErrPoolClosed once
// Shutdown has been called.
func (p *Pool) Submit(task func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	p.tasks <- task
	return nil
}

// Shutdown stops accepting tasks and waits for the accepted ones. It is
// safe to call more than once.
func (p *Pool) Shutdown() {
	p.once.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.tasks)
		p.mu.Unlock()
		p.wg.Wait()
	})
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		task()
	}
}

// Probe calls fn once per key on at most size goroutines and returns the
// error for every key, nil included. A panicking fn reports an error for its
// key instead of crashing the process.
func Probe(ctx context.Context, size int, keys []string, fn func(ctx context.Context, key string) error) map[string]error {
	results := make(map[string]error, len(keys))
	if len(keys) == 0 {
		return results
	}
	if size > len(keys) {
		size = len(keys)
	}

	var mu sync.Mutex
	pool := New(size)
	for _, key := range keys {
		key := key // per-iteration copy; go.mod targets go 1.21 (pre-1.22 loop semantics)
		_ = pool.Submit(func() {
			err := safeCall(ctx, key, fn)
			mu.Lock()
			results[key] = err
			mu.Unlock()
		})
	}
	pool.Shutdown()
	return results
}

func safeCall(ctx context.Context, key string, fn func(context.Context, string) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("workerpool: %s panicked: %v", key, r)
		}
	}()
	return fn(ctx, key)
}
