package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sweeplab/invitesweep/internal/invites"
	"github.com/sweeplab/invitesweep/internal/report"
)

// revealAll incrementally loads the virtualized list: scroll to the bottom,
// wait an adaptive interval, compare counts, repeat. The true total is only
// approximately knowable, so termination rests on several independent
// bottom-of-list heuristics, each demanding a few consecutive stagnant
// cycles so a transient loading lag doesn't stop the reveal early.
//
// Returns the final loaded item count. Cancellation (running flag or ctx) is
// honored at every suspension point and returns whatever was loaded so far.
func (e *Engine) revealAll(ctx context.Context, rs *runState, scan bool) (int, error) {
	maxStagnant := e.t.MaxStagnant
	if scan {
		maxStagnant = e.t.MaxStagnantScan
	}

	estimate := e.assumedTotal
	if rs.hasReported {
		estimate = rs.reportedTotal
	}

	rs.baseWait = e.t.BaseWaitStart

	loaded, err := e.page.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read item count: %w", err)
	}

	stagnant := 0
	lastKey := ""
	keyStable := 0
	matches := 0

	for {
		if !e.running.Load() || ctx.Err() != nil {
			return loaded, ctx.Err()
		}

		if err := e.page.ScrollToBottom(ctx); err != nil {
			return loaded, fmt.Errorf("scroll failed: %w", err)
		}
		if err := e.sleep(ctx, rs.baseWait); err != nil {
			return loaded, err
		}

		count, err := e.page.Count(ctx)
		if err != nil {
			return loaded, fmt.Errorf("failed to read item count: %w", err)
		}

		if count > loaded {
			stagnant = 0
			rs.baseWait -= e.t.SpeedUp
			if rs.baseWait < e.t.BaseWaitMin {
				rs.baseWait = e.t.BaseWaitMin
			}
			matches = e.refreshMatches(ctx, rs)
		} else {
			stagnant++
			// Every second stagnant cycle, jiggle: scroll back up a
			// little and back down to provoke the lazy loader.
			if stagnant%2 == 0 {
				if err := e.jiggle(ctx, rs); err != nil {
					return loaded, err
				}
			}
			rs.baseWait += e.t.SlowDown
			if rs.baseWait > e.t.BaseWaitMax {
				rs.baseWait = e.t.BaseWaitMax
			}
		}
		loaded = count
		rs.loadedCount = loaded

		key, err := e.page.LastItemKey(ctx)
		if err == nil {
			if key != "" && key == lastKey {
				keyStable++
			} else {
				keyStable = 0
				lastKey = key
			}
		}

		e.reportScroll(loaded, estimate, matches, rs)

		atBottom := false
		if m, err := e.page.Metrics(ctx); err == nil {
			atBottom = m.Max-m.Top <= e.t.BottomProximity
		}

		if stagnant >= e.t.StagnantForStop {
			// Heuristic 1: pinned at the bottom with an unmoving tail.
			if atBottom && keyStable >= e.t.StagnantForStop {
				break
			}
			// Heuristic 2: close enough to the advisory total.
			if rs.hasReported && loaded >= rs.reportedTotal-e.t.TotalSlack {
				break
			}
			// Heuristic 3: hard fallback, stagnant for longer and at bottom.
			if stagnant >= e.t.StagnantFallbck && atBottom {
				break
			}
		}

		// Absolute cap: the page never signalled completion.
		if stagnant >= maxStagnant {
			e.log.Warn("scroll stagnation cap reached", zap.Int("loaded", loaded))
			break
		}
	}

	return loaded, nil
}

// jiggle scrolls back a fixed distance, waits, and returns to the bottom.
func (e *Engine) jiggle(ctx context.Context, rs *runState) error {
	if err := e.page.ScrollBy(ctx, -e.t.JigglePx); err != nil {
		return err
	}
	if err := e.sleep(ctx, rs.baseWait); err != nil {
		return err
	}
	return e.page.ScrollToBottom(ctx)
}

// refreshMatches recomputes the mode-dependent match count from a fresh
// snapshot. Only called on growth cycles to keep the loop light.
func (e *Engine) refreshMatches(ctx context.Context, rs *runState) int {
	if rs.cfg.Mode == "" || rs.cfg.Mode == invites.ModeCount {
		return 0
	}
	htmls, err := e.page.Snapshot(ctx)
	if err != nil {
		return 0
	}
	return e.countMatches(parseItems(htmls), rs)
}

func (e *Engine) reportScroll(loaded, estimate, matches int, rs *runState) {
	progress := 0
	if estimate > 0 {
		progress = loaded * 100 / estimate
		if progress > 99 {
			progress = 99
		}
	}
	text := fmt.Sprintf("Loading invitations... %d found", loaded)
	e.mu.Lock()
	e.statusText = text
	e.progress = progress
	e.mu.Unlock()
	e.rep.ScrollProgress(report.ScrollProgress{
		Progress:     progress,
		Found:        loaded,
		Total:        estimate,
		Text:         text,
		FoundMatches: matches,
	})
}
