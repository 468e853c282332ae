// Package clock is the suspend-for-duration capability the pipeline stages
// wait on.
package clock

import (
	"context"
	"sync"
	"time"
)

type Sleeper interface {
	// Sleep returns after d has elapsed, or early with ctx.Err().
	Sleep(ctx context.Context, d time.Duration) error
}

// Real sleeps on wall-clock timers.
type Real struct{}

func (Real) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Recorder returns immediately and remembers every requested duration.
// Hook, if set, runs on each call before returning.
type Recorder struct {
	mu    sync.Mutex
	Slept []time.Duration
	Hook  func(n int)
}

func (r *Recorder) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	r.Slept = append(r.Slept, d)
	n := len(r.Slept)
	hook := r.Hook
	r.mu.Unlock()
	if hook != nil {
		hook(n)
	}
	return ctx.Err()
}

// Calls returns how many times Sleep was called.
func (r *Recorder) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Slept)
}
