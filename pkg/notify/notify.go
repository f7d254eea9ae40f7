// Package notify coalesces bursts of orchestrator notifications before they
// reach a presentation surface.
package notify

import (
	"sync"
	"time"

	"github.com/nstogner/diagrammer/pkg/domain"
	"github.com/nstogner/diagrammer/pkg/orchestrator"
)

// DefaultInterval is the quiet period used when none is given.
const DefaultInterval = 150 * time.Millisecond

// Debouncer runs the most recently triggered function once no trigger has
// arrived for the interval.
type Debouncer struct {
	interval time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	pending func()
	gen     uint64
	stopped bool
}

// NewDebouncer creates a Debouncer. A non-positive interval selects
// DefaultInterval.
func NewDebouncer(interval time.Duration) *Debouncer {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Debouncer{interval: interval}
}

// Trigger schedules fn, replacing any function still waiting.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.pending = fn
	d.timer = time.AfterFunc(d.interval, func() { d.fire(gen) })
}

// fire runs the pending function if no later trigger superseded gen.
func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || d.pending == nil {
		d.mu.Unlock()
		return
	}
	fn := d.pending
	d.pending = nil
	d.mu.Unlock()
	fn()
}

// Flush runs the pending function now, if any.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	fn := d.pending
	d.pending = nil
	d.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Stop drops the pending function and ignores later triggers.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	d.pending = nil
	d.stopped = true
}

// Listener debounces SessionChanged and ArtifactReady for next, delivering
// only the latest value of each. Errors and generation results are
// forwarded immediately.
type Listener struct {
	next orchestrator.Listener
	d    *Debouncer

	mu       sync.Mutex
	session  *domain.Session
	artifact *domain.Artifact
}

var (
	_ orchestrator.Listener       = (*Listener)(nil)
	_ orchestrator.ResultListener = (*Listener)(nil)
)

// NewListener wraps next.
func NewListener(next orchestrator.Listener, interval time.Duration) *Listener {
	return &Listener{next: next, d: NewDebouncer(interval)}
}

func (l *Listener) SessionChanged(s domain.Session) {
	l.mu.Lock()
	l.session = &s
	l.mu.Unlock()
	l.d.Trigger(l.deliver)
}

func (l *Listener) ArtifactReady(a domain.Artifact) {
	l.mu.Lock()
	l.artifact = &a
	l.mu.Unlock()
	l.d.Trigger(l.deliver)
}

func (l *Listener) Error(code, message string) {
	l.next.Error(code, message)
}

func (l *Listener) GenerationSettled(res domain.GenerationResult) {
	if rl, ok := l.next.(orchestrator.ResultListener); ok {
		rl.GenerationSettled(res)
	}
}

// Flush delivers anything still waiting.
func (l *Listener) Flush() { l.d.Flush() }

// Close drops anything still waiting.
func (l *Listener) Close() { l.d.Stop() }

func (l *Listener) deliver() {
	l.mu.Lock()
	s, a := l.session, l.artifact
	l.session, l.artifact = nil, nil
	l.mu.Unlock()

	if s != nil {
		l.next.SessionChanged(*s)
	}
	if a != nil {
		l.next.ArtifactReady(*a)
	}
}
