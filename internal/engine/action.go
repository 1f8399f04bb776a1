package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sweeplab/invitesweep/internal/invites"
	"github.com/sweeplab/invitesweep/internal/report"
	"github.com/sweeplab/invitesweep/internal/store"
)

// phase names the states of the per-run machine:
// Scrolling -> Selecting -> Acting -> Confirming -> Recording -> (Selecting | Paused | Completed).
type phase int

const (
	phaseSelecting phase = iota
	phaseActing
	phaseConfirming
	phaseRecording
	phasePaused
)

// Run executes one withdrawal run to its terminal Completed report. A second
// call while one is active returns ErrRunActive and does nothing.
func (e *Engine) Run(ctx context.Context, cfg invites.RunConfig) error {
	if !e.running.CompareAndSwap(false, true) {
		return ErrRunActive
	}
	defer e.running.Store(false)
	defer e.paused.Store(false)

	rs := &runState{id: newRunID(), cfg: cfg}
	e.UpdateMessages(cfg.MessagePatterns)
	e.setCounters(0, cfg.TargetCount)
	e.publish("Loading invitation list...", 0, nil)

	if err := e.page.Load(ctx); err != nil {
		e.complete(rs, fmt.Sprintf("Could not open the invitation list: %v", err))
		return err
	}

	rs.reportedTotal, rs.hasReported = e.page.ReportedTotal(ctx)

	// Scrolling
	loaded, err := e.revealAll(ctx, rs, false)
	if err != nil && ctx.Err() != nil {
		e.complete(rs, "Stopped by user")
		return nil
	}
	rs.loadedCount = loaded
	e.rep.ScrollComplete(loaded)

	rs.totalToWithdraw = e.estimateTotal(ctx, rs, loaded)
	e.setCounters(0, rs.totalToWithdraw)

	e.actionLoop(ctx, rs)
	return nil
}

// WithdrawSelected withdraws only items whose normalized-message hash is in
// hashes, oldest first; everything else is left untouched.
func (e *Engine) WithdrawSelected(ctx context.Context, hashes []string, safeMode bool, safeThreshold invites.Threshold) error {
	set := make(map[string]bool, len(hashes))
	for _, h := range hashes {
		set[h] = true
	}
	return e.Run(ctx, invites.RunConfig{
		Mode:           invites.ModeSelected,
		SelectedHashes: set,
		SafeMode:       safeMode,
		SafeThreshold:  safeThreshold,
	})
}

// estimateTotal derives the mode-dependent totalToWithdraw estimate after
// the list is fully revealed.
func (e *Engine) estimateTotal(ctx context.Context, rs *runState, loaded int) int {
	switch rs.cfg.Mode {
	case invites.ModeCount:
		if rs.cfg.TargetCount < loaded {
			return rs.cfg.TargetCount
		}
		return loaded
	case invites.ModeAge, invites.ModeMessage, invites.ModeSelected:
		if n := e.refreshMatches(ctx, rs); n > 0 {
			return n
		}
		return 0
	default:
		return loaded
	}
}

// actionLoop is the sequential controller. Each iteration re-fetches the
// live list: withdrawing an item removes or reorders its neighbors, so no
// item reference survives an action.
func (e *Engine) actionLoop(ctx context.Context, rs *runState) {
	ph := phaseSelecting
	var current invites.Item

	for {
		// Cancellation is honored only between items (Selecting) or while
		// parked (Paused). A started action always runs through Recording
		// first, so a confirmed withdrawal is never left uncounted.
		if ph == phaseSelecting || ph == phasePaused {
			if !e.running.Load() || ctx.Err() != nil {
				e.complete(rs, "Stopped by user")
				return
			}
		}

		switch ph {
		case phasePaused:
			if e.paused.Load() {
				_ = e.sleep(ctx, e.t.PausePoll)
				continue
			}
			// Re-validate against a possibly long-changed DOM.
			ph = phaseSelecting

		case phaseSelecting:
			if e.paused.Load() {
				ph = phasePaused
				continue
			}
			if rs.cfg.Mode == invites.ModeCount && rs.processed >= rs.cfg.TargetCount {
				e.complete(rs, fmt.Sprintf("Cleared %d invitation(s)", rs.processed))
				return
			}

			htmls, err := e.page.Snapshot(ctx)
			if err != nil {
				e.log.Warn("snapshot failed", zap.Error(err))
				if e.retryOrFail(ctx, rs) {
					return
				}
				continue
			}
			items := parseItems(htmls)
			rs.loadedCount = len(items)

			pick, stop := selectNext(items, rs, e.currentPatterns())
			if stop != nil {
				e.complete(rs, e.finishMessage(rs, stop))
				return
			}
			current = pick
			ph = phaseActing

		case phaseActing:
			if err := e.page.ScrollIntoView(ctx, current.Index); err != nil {
				e.log.Debug("scroll into view failed", zap.Error(err))
			}
			if e.sleep(ctx, e.t.SettleWait) != nil {
				// Nothing clicked yet; let the Selecting check end the run.
				ph = phaseSelecting
				continue
			}
			if err := e.page.ClickWithdraw(ctx, current.Index); err != nil {
				// Treat a missing control like a confirmation failure:
				// back off, re-fetch, re-pick.
				e.log.Warn("withdraw click failed", zap.Error(err))
				if e.retryOrFail(ctx, rs) {
					return
				}
				ph = phaseSelecting
				continue
			}
			ph = phaseConfirming

		case phaseConfirming:
			if e.waitConfirm(ctx, rs) {
				ph = phaseRecording
				continue
			}
			if e.retryOrFail(ctx, rs) {
				return
			}
			ph = phaseSelecting

		case phaseRecording:
			rs.processed++
			rs.retryCount = 0
			if current.Age != nil {
				rs.oldestCleared = current.Age.Display
			}
			e.recordHistory(rs, current)

			e.setCounters(rs.processed, rs.totalToWithdraw)
			e.publish(
				fmt.Sprintf("Withdrew invitation to %s (%d done)", current.DisplayName, rs.processed),
				e.runProgress(rs),
				&report.ClearedItem{
					Name:       current.DisplayName,
					ProfileURL: current.ProfileURL,
					Age:        ageDisplay(current),
				},
			)

			_ = e.sleep(ctx, e.t.ActionDelay)
			ph = phaseSelecting
		}
	}
}

// retryOrFail handles a failed attempt (missing dialog, missing control, or
// a failed snapshot) and reports whether the run is over. At MaxRetries the
// run ends fatally: repeated page errors mean the structure changed in a way
// the heuristics cannot recover from.
func (e *Engine) retryOrFail(ctx context.Context, rs *runState) (fatal bool) {
	rs.retryCount++
	if rs.retryCount >= e.t.MaxRetries {
		e.complete(rs, "Stopped: the page is not responding as expected - the layout may have changed and selectors may need updating")
		return true
	}
	e.log.Warn("attempt failed, retrying",
		zap.Int("retry", rs.retryCount),
		zap.Int("max", e.t.MaxRetries))
	_ = e.sleep(ctx, e.t.RetryWait)
	// Re-select from scratch; never re-click a stale element reference.
	return false
}

// waitConfirm polls for the confirmation dialog's accept button. The budget
// grows with the retry count so a slow page gets more room on later attempts.
func (e *Engine) waitConfirm(ctx context.Context, rs *runState) bool {
	budget := e.t.ConfirmBase + time.Duration(rs.retryCount)*e.t.ConfirmStep
	var waited time.Duration
	for waited < budget {
		if ok, err := e.page.ConfirmAttempt(ctx); err == nil && ok {
			return true
		}
		if e.sleep(ctx, e.t.ConfirmPoll) != nil {
			return false
		}
		waited += e.t.ConfirmPoll
	}
	return false
}

// recordHistory persists one withdrawal. A failed write is logged and
// swallowed: a missed history row is acceptable collateral, not a reason to
// abort an in-progress run.
func (e *Engine) recordHistory(rs *runState, item invites.Item) {
	if e.hist == nil {
		return
	}
	err := e.hist.AddWithdrawal(store.Record{
		Name:        item.DisplayName,
		ProfileURL:  item.ProfileURL,
		WithdrawnAt: time.Now(),
		Age:         ageDisplay(item),
		RunID:       rs.id,
	})
	if err != nil {
		e.log.Warn("failed to persist history record", zap.Error(err))
	}
}

func (e *Engine) runProgress(rs *runState) int {
	if rs.totalToWithdraw <= 0 {
		return 0
	}
	p := rs.processed * 100 / rs.totalToWithdraw
	if p > 100 {
		p = 100
	}
	return p
}

// finishMessage decorates a selection stop for the run's mode. Only a true
// exhaustion stop earns the count-mode "no more eligible" rewrite; safety and
// age stops keep their own terminal message.
func (e *Engine) finishMessage(rs *runState, stop *stopReason) string {
	if rs.cfg.Mode == invites.ModeSelected && rs.skippedUnsafe > 0 {
		return fmt.Sprintf("%s (%d selected item(s) skipped by the safety floor)", stop.message, rs.skippedUnsafe)
	}
	if rs.cfg.Mode == invites.ModeCount && stop.cause == causeExhausted &&
		rs.processed > 0 && rs.processed < rs.cfg.TargetCount {
		return fmt.Sprintf("Cleared %d of %d - no more eligible invitations", rs.processed, rs.cfg.TargetCount)
	}
	return stop.message
}

// complete is the single terminal transition: it computes the remaining
// count, preferring the page-reported total over the locally loaded count,
// and emits one final stats report.
func (e *Engine) complete(rs *runState, msg string) {
	remaining := rs.loadedCount - rs.processed
	if rs.hasReported {
		remaining = rs.reportedTotal - rs.processed
	}
	if remaining < 0 {
		remaining = 0
	}

	e.publish(msg, 100, nil)
	e.rep.Completed(report.Stats{
		RunID:     rs.id,
		Cleared:   rs.processed,
		Oldest:    rs.oldestCleared,
		Remaining: remaining,
		Target:    rs.totalToWithdraw,
	}, msg)
	e.log.Info("run completed",
		zap.String("run_id", rs.id),
		zap.Int("cleared", rs.processed),
		zap.String("message", msg))
}

func ageDisplay(item invites.Item) string {
	if item.Age == nil {
		return ""
	}
	return item.Age.Display
}
