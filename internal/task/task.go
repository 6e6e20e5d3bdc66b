// Package task implements the goroutine-backed handles behind the
// language's `spawn` and `parallel` constructs. A Handle is joinable with an
// optional timeout and cooperatively cancellable through context.Context,
// each goroutine running with its own cloned evaluator call stack.
package task

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/aml-lang/aml/internal/value"
)

type result struct {
	val value.Value
	err error
}

// Handle is the runtime backing for a value.Task.
type Handle struct {
	resultCh chan result
	cancel   context.CancelFunc
	done     atomic.Bool
	stored   atomic.Pointer[result]
}

// Spawn launches fn on its own goroutine under a child context derived from
// ctx, returning immediately with a Handle the caller can Join later.
func Spawn(ctx context.Context, fn func(ctx context.Context) (value.Value, error)) *Handle {
	childCtx, cancel := context.WithCancel(ctx)
	h := &Handle{resultCh: make(chan result, 1), cancel: cancel}
	go func() {
		v, err := fn(childCtx)
		r := result{val: v, err: err}
		// The result slot and done flag are visible before anyone can observe
		// completion through Join's channel receive.
		h.stored.Store(&r)
		h.done.Store(true)
		h.resultCh <- r
	}()
	return h
}

// Result returns the task's stored return value without blocking: null
// (reported via ok=false) until the task has finished.
func (h *Handle) Result() (value.Value, bool) {
	r := h.stored.Load()
	if r == nil {
		return nil, false
	}
	return r.val, r.err == nil
}

// LastError returns the task's stored failure without blocking, or nil if
// the task hasn't finished yet or finished without error.
func (h *Handle) LastError() error {
	r := h.stored.Load()
	if r == nil {
		return nil
	}
	return r.err
}

// Join blocks until the task completes or timeoutSeconds elapses (<= 0 means
// wait forever).
func (h *Handle) Join(timeoutSeconds float64) (value.Value, error) {
	if timeoutSeconds <= 0 {
		r := <-h.resultCh
		h.resultCh <- r // allow a later Join to observe the same result
		return r.val, r.err
	}
	select {
	case r := <-h.resultCh:
		h.resultCh <- r
		return r.val, r.err
	case <-time.After(time.Duration(timeoutSeconds * float64(time.Second))):
		return nil, fmt.Errorf("task join timed out after %.2fs", timeoutSeconds)
	}
}

// Cancel requests cooperative cancellation; the spawned goroutine observes
// this through its ctx.Done() channel at its next checkpoint.
func (h *Handle) Cancel() { h.cancel() }

// Done reports whether the task has finished running (successfully, with an
// error, or via cancellation).
func (h *Handle) Done() bool { return h.done.Load() }

// Parallel launches every fn concurrently and waits for all of them,
// silently discarding individual errors per the language's documented
// parallel-block semantics: a failing call inside `parallel { ... }` does
// not abort its siblings or propagate to the caller.
func Parallel(ctx context.Context, fns []func(ctx context.Context) (value.Value, error)) []value.Value {
	handles := make([]*Handle, len(fns))
	for i, fn := range fns {
		handles[i] = Spawn(ctx, fn)
	}
	results := make([]value.Value, len(fns))
	for i, h := range handles {
		v, err := h.Join(0)
		if err != nil {
			results[i] = value.NULL
			continue
		}
		results[i] = v
	}
	return results
}
