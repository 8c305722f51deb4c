package sched

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"
)

// StatusFunc receives human-readable state strings such as "glitch: echo".
type StatusFunc func(string)

// Status strings shared by the schedulers and the pipeline.
const (
	StatusListening = "playing back microphone"
	StatusStarting  = "starting..."
	StatusStopped   = "stopped"
)

// DefaultSpread is the random extra wait added to every scheduling interval.
const DefaultSpread = time.Second

// loop runs one cancellable scheduling goroutine. Starting it again cancels
// and waits for the previous goroutine first, so two loops never overlap.
type loop struct {
	mu     sync.Mutex
	parent context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func (l *loop) start(parent context.Context, run func(ctx context.Context)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stopLocked()

	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})
	l.parent = parent
	l.cancel = cancel
	l.done = done
	go func() {
		defer close(done)
		run(ctx)
	}()
}

// restart starts run again under the last parent context. It does nothing if
// the loop was never started or has been stopped.
func (l *loop) restart(run func(ctx context.Context)) bool {
	l.mu.Lock()
	parent := l.parent
	l.mu.Unlock()
	if parent == nil || parent.Err() != nil {
		return false
	}
	l.start(parent, run)
	return true
}

func (l *loop) stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stopLocked()
	l.parent = nil
}

func (l *loop) stopLocked() {
	if l.cancel == nil {
		return
	}
	l.cancel()
	<-l.done
	l.cancel = nil
	l.done = nil
}

// running reports whether the loop goroutine is still scheduling.
func (l *loop) running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.done == nil {
		return false
	}
	select {
	case <-l.done:
		return false
	default:
		return true
	}
}

// between returns a random duration in [lo, lo+spread).
func between(lo, spread time.Duration) time.Duration {
	if spread <= 0 {
		return lo
	}
	return lo + rand.N(spread)
}

// sleep waits for d and reports false if ctx ends first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
