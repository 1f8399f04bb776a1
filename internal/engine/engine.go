// Package engine is the automation core: it reveals the full invitation list
// by scrolling, classifies entries, and drives the sequential withdraw loop
// against a page that mutates underneath it.
//
// The engine is single-flight: at most one run (withdrawal or scan) is active
// at a time, gated by one running flag. All waiting is explicit and
// cooperative; cancellation and pause take effect only at suspension points,
// never mid-action, and every post-wait read re-queries the live page instead
// of reusing prior references.
package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sweeplab/invitesweep/internal/invites"
	"github.com/sweeplab/invitesweep/internal/page"
	"github.com/sweeplab/invitesweep/internal/report"
	"github.com/sweeplab/invitesweep/internal/store"
)

// ErrRunActive is returned when a start request arrives while a run is in
// flight. Callers treat it as a no-op, not a failure.
var ErrRunActive = errors.New("a run is already active")

// Timings collects every wait and bound of the scroll and action loops.
// The defaults are normative; tests shrink nothing and instead stub the
// engine's sleep function.
type Timings struct {
	BaseWaitStart time.Duration // initial adaptive scroll-settle wait
	BaseWaitMin   time.Duration // adaptive wait floor
	BaseWaitMax   time.Duration // adaptive wait ceiling
	SpeedUp       time.Duration // subtracted on list growth
	SlowDown      time.Duration // added on stagnation

	JigglePx        int     // scroll-back distance to provoke lazy loading
	BottomProximity float64 // px from max scroll that counts as "at bottom"
	TotalSlack      int     // loaded-count distance from reported total that allows early stop
	StagnantForStop int     // consecutive stagnant cycles before any heuristic may fire
	StagnantFallbck int     // stagnant cycles for the at-bottom hard fallback
	MaxStagnant     int     // hard cap for withdrawal runs
	MaxStagnantScan int     // hard cap for the scan variant

	SettleWait  time.Duration // layout settle after scrolling an item into view
	ConfirmPoll time.Duration // dialog poll interval
	ConfirmBase time.Duration // dialog wait budget at retry 0
	ConfirmStep time.Duration // budget growth per prior retry
	MaxRetries  int           // confirmation failures before fatal stop
	ActionDelay time.Duration // fixed delay between successful actions
	RetryWait   time.Duration // delay before re-selecting after a failure
	PausePoll   time.Duration // poll interval while paused
}

// DefaultTimings returns the production constants.
func DefaultTimings() Timings {
	return Timings{
		BaseWaitStart:   600 * time.Millisecond,
		BaseWaitMin:     200 * time.Millisecond,
		BaseWaitMax:     1200 * time.Millisecond,
		SpeedUp:         30 * time.Millisecond,
		SlowDown:        80 * time.Millisecond,
		JigglePx:        400,
		BottomProximity: 50,
		TotalSlack:      30,
		StagnantForStop: 3,
		StagnantFallbck: 5,
		MaxStagnant:     30,
		MaxStagnantScan: 200,
		SettleWait:      150 * time.Millisecond,
		ConfirmPoll:     100 * time.Millisecond,
		ConfirmBase:     6 * time.Second,
		ConfirmStep:     1500 * time.Millisecond,
		MaxRetries:      5,
		ActionDelay:     600 * time.Millisecond,
		RetryWait:       800 * time.Millisecond,
		PausePoll:       500 * time.Millisecond,
	}
}

// HistoryWriter is the engine's write contract with the history store. A nil
// writer or a failing write never affects a run.
type HistoryWriter interface {
	AddWithdrawal(rec store.Record) error
}

// State is a point-in-time status snapshot, answerable without touching the
// page.
type State struct {
	IsRunning  bool   `json:"isRunning"`
	IsPaused   bool   `json:"isPaused"`
	StatusText string `json:"statusText"`
	Progress   int    `json:"progress"`
	Target     int    `json:"target"`
	Processed  int    `json:"processed"`
}

// Engine owns the run lifecycle.
type Engine struct {
	page         page.Page
	rep          report.Reporter
	hist         HistoryWriter
	log          *zap.Logger
	t            Timings
	assumedTotal int

	running atomic.Bool
	paused  atomic.Bool

	mu         sync.Mutex
	patterns   []string        // active message patterns, hot-swappable
	found      map[string]bool // message-mode match cache, keyed by person id
	statusText string
	progress   int
	target     int
	processed  int

	// sleep is the single suspension primitive; tests replace it.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates an engine around a page driver. rep and hist may be nil.
func New(p page.Page, rep report.Reporter, hist HistoryWriter, assumedTotal int, log *zap.Logger) *Engine {
	if rep == nil {
		rep = report.Nop()
	}
	if log == nil {
		log = zap.NewNop()
	}
	if assumedTotal <= 0 {
		assumedTotal = 1000
	}
	return &Engine{
		page:         p,
		rep:          rep,
		hist:         hist,
		log:          log,
		t:            DefaultTimings(),
		assumedTotal: assumedTotal,
		found:        make(map[string]bool),
		sleep:        defaultSleep,
	}
}

func defaultSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// runState is the mutable state of one run, owned by the loop goroutine.
type runState struct {
	id              string
	cfg             invites.RunConfig
	processed       int
	totalToWithdraw int
	oldestCleared   string
	retryCount      int
	baseWait        time.Duration
	loadedCount     int
	reportedTotal   int
	hasReported     bool
	skippedUnsafe   int
}

// AttachReporter adds another notification sink. Attach before the first
// run; the reporter set is not swapped mid-run.
func (e *Engine) AttachReporter(r report.Reporter) {
	e.rep = report.Multi(e.rep, r)
}

// Status returns the published snapshot.
func (e *Engine) Status() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return State{
		IsRunning:  e.running.Load(),
		IsPaused:   e.paused.Load(),
		StatusText: e.statusText,
		Progress:   e.progress,
		Target:     e.target,
		Processed:  e.processed,
	}
}

// Pause halts progress strictly between items.
func (e *Engine) Pause() {
	if e.running.Load() {
		e.paused.Store(true)
	}
}

// Resume clears the pause flag; the loop re-validates against the live page
// before acting again.
func (e *Engine) Resume() {
	e.paused.Store(false)
}

// Stop requests cooperative cancellation. It takes effect when the loop next
// enters Selecting; a started action always runs to its confirmation-or-
// timeout conclusion, including recording a confirmed outcome, first.
func (e *Engine) Stop() {
	e.running.Store(false)
	e.paused.Store(false)
}

// UpdateMessages hot-swaps the message patterns mid-run, clears the
// found-match cache, and unpauses.
func (e *Engine) UpdateMessages(patterns []string) {
	e.mu.Lock()
	e.patterns = append([]string(nil), patterns...)
	e.found = make(map[string]bool)
	e.mu.Unlock()
	e.paused.Store(false)
}

func (e *Engine) currentPatterns() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.patterns
}

// publish updates the reportable snapshot and emits a status event.
func (e *Engine) publish(text string, progress int, cleared *report.ClearedItem) {
	e.mu.Lock()
	e.statusText = text
	e.progress = progress
	e.mu.Unlock()
	e.rep.Status(report.Status{Text: text, Progress: progress, Cleared: cleared})
}

func (e *Engine) setCounters(processed, target int) {
	e.mu.Lock()
	e.processed = processed
	e.target = target
	e.mu.Unlock()
}

// PendingCount scrapes the displayed pending-invitation count without
// starting a run. While a run is active it reads the current document
// as-is: navigating would yank the DOM out from under the action loop.
func (e *Engine) PendingCount(ctx context.Context) (int, error) {
	if !e.running.Load() {
		if err := e.page.Load(ctx); err != nil {
			return 0, err
		}
	}
	return e.page.PendingCount(ctx)
}

// ShowConnection highlights the invitation matching key — a person id first,
// falling back to a content hash — without acting on it.
func (e *Engine) ShowConnection(ctx context.Context, key string) error {
	htmls, err := e.page.Snapshot(ctx)
	if err != nil {
		return err
	}
	items := parseItems(htmls)

	for _, it := range items {
		if it.PersonID == key {
			return e.page.Highlight(ctx, it.Index)
		}
	}
	for _, it := range items {
		if it.ContentHash == key {
			return e.page.Highlight(ctx, it.Index)
		}
	}
	return errors.New("no matching invitation found")
}

func newRunID() string { return uuid.NewString() }
