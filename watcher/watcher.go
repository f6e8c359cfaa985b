// Package watcher owns the scan timing state machine: the staggered
// initial scans after a page settles, the trailing debounce behind
// mutation bursts, and the settle delay after in-page navigation.
//
// The watcher holds timers and exposes their channels; the session loop
// selects on them and calls the On* methods when they fire. It runs no
// goroutine of its own and is not safe for concurrent use.
package watcher

import (
	"log/slog"
	"time"

	"github.com/redveil/redveil/config"
)

type Mode int

const (
	// Idle means the current page is not curated; all signals are ignored.
	Idle Mode = iota
	// Active means scans are scheduled and mutation signals are honored.
	Active
)

func (m Mode) String() string {
	if m == Active {
		return "active"
	}
	return "idle"
}

type Watcher struct {
	logger *slog.Logger

	mode          Mode
	initialDelays []time.Duration
	debounce      time.Duration
	navDelay      time.Duration

	initIdx   int
	initTimer *time.Timer
	initC     <-chan time.Time

	debTimer *time.Timer
	debC     <-chan time.Time

	navTimer *time.Timer
	navC     <-chan time.Time
}

func New(cfg *config.Config, logger *slog.Logger) *Watcher {
	return &Watcher{
		logger:        logger,
		mode:          Idle,
		initialDelays: cfg.Timeouts.InitialScans,
		debounce:      cfg.Timeouts.MutationDebounce,
		navDelay:      cfg.Timeouts.NavigationDelay,
	}
}

func (w *Watcher) Mode() Mode { return w.mode }

// Activate arms the staggered initial scans for a freshly settled page.
func (w *Watcher) Activate() {
	w.stopAll()
	w.mode = Active
	w.initIdx = 0
	w.armInitial()
}

// Pause stops all timers; signals are ignored until the next Activate.
// Used when the current page is not one we curate.
func (w *Watcher) Pause() {
	w.stopAll()
	w.mode = Idle
}

// InitialC fires for each of the staggered initial scans.
func (w *Watcher) InitialC() <-chan time.Time { return w.initC }

// OnInitial acknowledges a fired initial-scan timer and arms the next
// one, if any. Returns the zero-based index of the scan that fired.
func (w *Watcher) OnInitial() int {
	idx := w.initIdx
	w.initIdx++
	w.initTimer = nil
	w.initC = nil
	if w.initIdx < len(w.initialDelays) {
		w.armInitial()
	}
	return idx
}

func (w *Watcher) armInitial() {
	delay := w.initialDelays[w.initIdx]
	// Delays are absolute offsets from activation; convert to the gap
	// from the previous firing.
	if w.initIdx > 0 {
		delay -= w.initialDelays[w.initIdx-1]
	}
	if delay < 0 {
		delay = 0
	}
	w.initTimer = time.NewTimer(delay)
	w.initC = w.initTimer.C
}

// Dirty restarts the trailing debounce window. Repeated calls during a
// mutation burst keep pushing the deadline back, so one scan covers the
// whole burst. Ignored while idle.
func (w *Watcher) Dirty() {
	if w.mode != Active {
		return
	}
	if w.debTimer != nil {
		w.debTimer.Stop()
	}
	w.debTimer = time.NewTimer(w.debounce)
	w.debC = w.debTimer.C
}

// DebounceC fires when a mutation burst has gone quiet.
func (w *Watcher) DebounceC() <-chan time.Time { return w.debC }

// OnDebounce acknowledges a fired debounce timer.
func (w *Watcher) OnDebounce() {
	w.debTimer = nil
	w.debC = nil
}

// Navigated arms the settle delay after an in-page URL change. Pending
// scans for the old document are abandoned.
func (w *Watcher) Navigated() {
	w.stopAll()
	w.mode = Active
	w.navTimer = time.NewTimer(w.navDelay)
	w.navC = w.navTimer.C
}

// NavC fires when the new document has had time to settle.
func (w *Watcher) NavC() <-chan time.Time { return w.navC }

// OnNav acknowledges the settle timer and re-arms the staggered initial
// scans for the new document.
func (w *Watcher) OnNav() {
	w.navTimer = nil
	w.navC = nil
	w.initIdx = 0
	w.armInitial()
}

func (w *Watcher) stopAll() {
	if w.initTimer != nil {
		w.initTimer.Stop()
		w.initTimer = nil
		w.initC = nil
	}
	if w.debTimer != nil {
		w.debTimer.Stop()
		w.debTimer = nil
		w.debC = nil
	}
	if w.navTimer != nil {
		w.navTimer.Stop()
		w.navTimer = nil
		w.navC = nil
	}
}
