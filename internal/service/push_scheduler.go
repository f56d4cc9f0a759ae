package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// PushScheduler debounces remote pushes: every local mutation restarts a
// quiescence window and only the state after the window elapses is pushed.
// Cancelling before the window elapses discards the pending push, which
// matters when the remote addressing is being reconfigured — a late push
// must not write stale data to the wrong document.
type PushScheduler struct {
	window time.Duration
	push   func(ctx context.Context)
	logger *zap.Logger

	mu    sync.Mutex
	timer *time.Timer
}

func NewPushScheduler(window time.Duration, push func(ctx context.Context), logger *zap.Logger) *PushScheduler {
	return &PushScheduler{
		window: window,
		push:   push,
		logger: logger,
	}
}

// Schedule arms (or re-arms) the debounce timer.
func (p *PushScheduler) Schedule() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.timer != nil {
		p.timer.Stop()
	}
	p.timer = time.AfterFunc(p.window, p.fire)
}

// Cancel discards any pending push.
func (p *PushScheduler) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

// Flush cancels the pending timer and pushes immediately. Used for
// explicit push requests and for graceful shutdown so buffered edits are
// not lost.
func (p *PushScheduler) Flush(ctx context.Context) {
	p.Cancel()
	p.push(ctx)
}

func (p *PushScheduler) fire() {
	p.mu.Lock()
	p.timer = nil
	p.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	p.push(ctx)
}
