package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mythic3d/particle-drawer/internal/state"
)

const saveTimeout = 10 * time.Second

// Saver is the part of Repository the autosaver writes through.
type Saver interface {
	SaveSnapshot(ctx context.Context, projectID string, doc []byte) (Snapshot, error)
}

// SaveResult reports one autosave attempt. Seq is the change counter the saved state was
// taken at; compare it with Autosaver.Seq before marking the store clean.
type SaveResult struct {
	Seq      uint64
	Snapshot Snapshot
	Err      error
}

// Autosaver writes a snapshot once the store has been quiet for the configured delay.
// Every dirty notification restarts the timer. Results are delivered to the report
// callback from the timer goroutine; the autosaver never mutates the store itself.
type Autosaver struct {
	saver     Saver
	projectID string
	delay     time.Duration
	report    func(SaveResult)

	saveMu sync.Mutex // serializes writes

	mu      sync.Mutex
	timer   *time.Timer
	latest  state.State
	seq     uint64
	pending bool
	closed  bool
}

func NewAutosaver(saver Saver, projectID string, delay time.Duration, report func(SaveResult)) *Autosaver {
	if report == nil {
		report = func(SaveResult) {}
	}
	return &Autosaver{saver: saver, projectID: projectID, delay: delay, report: report}
}

// Attach subscribes to s. Unsubscribe with the returned id when the session ends.
func (a *Autosaver) Attach(s *state.Store) state.SubscriptionID {
	return s.Subscribe(a.Observe)
}

// Observe records a state snapshot. Clean snapshots (after a load or a save) are ignored.
func (a *Autosaver) Observe(st state.State) {
	if !st.HasUnsavedChanges {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.latest = st
	a.seq++
	a.pending = true
	if a.timer == nil {
		a.timer = time.AfterFunc(a.delay, a.fire)
	} else {
		a.timer.Reset(a.delay)
	}
}

// Seq returns the number of dirty snapshots observed so far.
func (a *Autosaver) Seq() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.seq
}

// Pending reports whether a change is waiting to be written.
func (a *Autosaver) Pending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pending
}

func (a *Autosaver) take() (state.State, uint64, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.pending {
		return state.State{}, 0, false
	}
	a.pending = false
	return a.latest, a.seq, true
}

func (a *Autosaver) fire() {
	st, seq, ok := a.take()
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	a.report(a.save(ctx, st, seq))
}

// Flush writes any pending change immediately. The result goes to the caller, not the
// report callback; ok is false when nothing was pending.
func (a *Autosaver) Flush(ctx context.Context) (res SaveResult, ok bool) {
	a.mu.Lock()
	if a.timer != nil {
		a.timer.Stop()
	}
	a.mu.Unlock()

	st, seq, ok := a.take()
	if !ok {
		return SaveResult{}, false
	}
	return a.save(ctx, st, seq), true
}

// Close stops the timer. A pending change is dropped; call Flush first to keep it.
func (a *Autosaver) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	a.pending = false
	if a.timer != nil {
		a.timer.Stop()
	}
}

func (a *Autosaver) save(ctx context.Context, st state.State, seq uint64) SaveResult {
	a.saveMu.Lock()
	defer a.saveMu.Unlock()

	p := st.Project()
	p.Normalize()
	doc, err := p.Marshal()
	if err != nil {
		return SaveResult{Seq: seq, Err: fmt.Errorf("marshal project: %w", err)}
	}
	snap, err := a.saver.SaveSnapshot(ctx, a.projectID, doc)
	if err != nil {
		slog.Warn("autosave failed", "project", a.projectID, "bytes", len(doc), "error", err)
		return SaveResult{Seq: seq, Err: err}
	}
	slog.Debug("autosaved", "project", a.projectID, "version", snap.Version, "bytes", len(doc))
	return SaveResult{Seq: seq, Snapshot: snap}
}
