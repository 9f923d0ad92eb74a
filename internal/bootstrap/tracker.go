package bootstrap

import (
	"context"
	"sync"

	"instauto_backend/internal/session"
	"instauto_backend/internal/shared"

	"go.uber.org/zap"
)

// Phase is the coarse state exposed to consumers.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseLoading  Phase = "loading"
	PhaseResolved Phase = "resolved"
	PhaseError    Phase = "error"
)

// Snapshot is one observable state of a Tracker. Seq increases by one on
// every change.
type Snapshot struct {
	Phase    Phase
	Status   Status
	Resolved *shared.ResolvedIdentity
	Err      error
	Seq      uint64
}

// Tracker holds the latest resolution for one session and re-resolves when
// auth-state events arrive. It is the per-mount consumer of a Resolver.
type Tracker struct {
	resolver Resolver
	events   session.Events
	logger   *zap.Logger

	mu          sync.Mutex
	state       Snapshot
	uid         string
	gen         uint64
	started     bool
	closed      bool
	ctx         context.Context
	cancel      context.CancelFunc
	cancelRun   context.CancelFunc
	unsubscribe func()
	updates     chan Snapshot
	wg          sync.WaitGroup
}

// NewTracker creates an idle tracker. events may be nil.
func NewTracker(resolver Resolver, events session.Events, logger *zap.Logger) *Tracker {
	return &Tracker{
		resolver: resolver,
		events:   events,
		logger:   logger.Named("Tracker"),
		state:    Snapshot{Phase: PhaseIdle},
		updates:  make(chan Snapshot, 1),
	}
}

// Start subscribes to auth events and runs the first resolution. ctx bounds
// every resolution. Calling Start twice or after Close is a no-op.
func (t *Tracker) Start(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started || t.closed {
		return
	}
	t.started = true
	t.ctx, t.cancel = context.WithCancel(ctx)
	if t.events != nil {
		t.unsubscribe = t.events.Subscribe(t.onEvent)
	}
	t.runLocked()
}

// State returns the current snapshot.
func (t *Tracker) State() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Updates delivers snapshots as they change. Slow readers only see the
// latest one. The channel is closed by Close.
func (t *Tracker) Updates() <-chan Snapshot {
	return t.updates
}

// Close cancels any in-flight resolution. No snapshot is produced after
// Close returns.
func (t *Tracker) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	if t.cancel != nil {
		t.cancel()
	}
	unsubscribe := t.unsubscribe
	t.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	t.wg.Wait()
	close(t.updates)
}

func (t *Tracker) onEvent(e session.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	if e.UID != "" && t.uid != "" && e.UID != t.uid {
		return
	}
	t.logger.Debug("Auth event, re-resolving", zap.String("type", string(e.Type)), zap.String("uid", e.UID))
	t.runLocked()
}

// runLocked supersedes any running resolution with a new one.
func (t *Tracker) runLocked() {
	if t.cancelRun != nil {
		t.cancelRun()
	}
	t.gen++
	gen := t.gen
	runCtx, cancel := context.WithCancel(t.ctx)
	t.cancelRun = cancel
	t.setLocked(Snapshot{Phase: PhaseLoading})

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer cancel()

		res := t.resolver.Resolve(runCtx)

		t.mu.Lock()
		defer t.mu.Unlock()
		if t.closed || gen != t.gen || res.Status == StatusCanceled {
			return
		}
		snap := Snapshot{Phase: PhaseError, Status: res.Status, Err: res.Err}
		t.uid = ""
		if res.Status == StatusResolved {
			snap = Snapshot{Phase: PhaseResolved, Status: res.Status, Resolved: res.Resolved}
			t.uid = res.Resolved.Identity.ID
		}
		t.setLocked(snap)
	}()
}

func (t *Tracker) setLocked(s Snapshot) {
	s.Seq = t.state.Seq + 1
	t.state = s
	select {
	case <-t.updates:
	default:
	}
	select {
	case t.updates <- s:
	default:
	}
}
