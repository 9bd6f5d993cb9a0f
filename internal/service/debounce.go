package service

import (
	"sync"
	"sync/atomic"
	"time"
)

// Debouncer coalesces calls made within a window; only the last one runs
type Debouncer struct {
	mu     sync.Mutex
	window time.Duration
	timer  *time.Timer
	seq    uint64
}

// NewDebouncer creates a debouncer with the given quiet window
func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{window: window}
}

// Trigger schedules fn after the window, replacing any pending call
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.seq++
	seq := d.seq
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, func() {
		d.mu.Lock()
		current := d.seq == seq
		d.mu.Unlock()
		// a timer that already fired before Stop still has to lose to newer triggers
		if current {
			fn()
		}
	})
}

// Stop drops the pending call, if any
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.seq++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// FetchGuard lets at most one fetch run at a time. Triggers arriving while
// a fetch is in flight are dropped, not queued.
type FetchGuard struct {
	busy atomic.Bool
}

// Run calls fn unless another call is in flight and reports whether fn ran
func (g *FetchGuard) Run(fn func()) bool {
	if !g.busy.CompareAndSwap(false, true) {
		return false
	}
	defer g.busy.Store(false)

	fn()
	return true
}

// InFlight reports whether a fetch is running
func (g *FetchGuard) InFlight() bool {
	return g.busy.Load()
}
