package scan

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrSuperseded is returned by Rescan when a newer scan started before it
// finished.
var ErrSuperseded = errors.New("scan superseded by a newer scan")

// Tracker holds the latest complete scan result. Readers see either the
// previous or the next complete result, never a partial one.
type Tracker struct {
	current atomic.Pointer[Result]

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

// Current returns the last committed result, or nil before the first scan
// completes.
func (t *Tracker) Current() *Result {
	return t.current.Load()
}

// Rescan cancels any scan in flight, runs a new one and commits its result.
func (t *Tracker) Rescan(ctx context.Context, opts Options) (*Result, error) {
	t.mu.Lock()
	if t.cancel != nil {
		t.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	t.gen++
	gen := t.gen
	t.cancel = cancel
	t.mu.Unlock()
	defer cancel()

	res, err := Run(ctx, opts)

	t.mu.Lock()
	defer t.mu.Unlock()
	if gen != t.gen {
		return nil, ErrSuperseded
	}
	t.cancel = nil
	if err != nil {
		return nil, err
	}
	t.current.Store(res)
	return res, nil
}
