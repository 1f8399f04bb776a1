package engine

import (
	"fmt"

	"github.com/sweeplab/invitesweep/internal/extract"
	"github.com/sweeplab/invitesweep/internal/invites"
	"github.com/sweeplab/invitesweep/internal/message"
)

// IsSafe applies the safety floor independently of mode. With safe mode off
// every item is safe. With it on, an item needs a parsed age at least as old
// as the threshold, both converted to months (week = quarter month). An
// unparseable age fails closed.
func IsSafe(item invites.Item, cfg invites.RunConfig) bool {
	if !cfg.SafeMode {
		return true
	}
	if item.Age == nil {
		return false
	}
	return item.Age.Months() >= cfg.SafeThreshold.Months()
}

// stopCause distinguishes why selection ended, so terminal messages stay
// truthful: only a genuine exhaustion stop may be rewritten as "no more
// eligible".
type stopCause int

const (
	causeExhausted  stopCause = iota // empty list, or nothing matched
	causeAge                         // age-threshold boundary reached
	causeSafety                      // safety floor reached
	causeUnreadable                  // oldest item's age unparseable
)

// stopReason is a distinct terminal condition of the selection step.
type stopReason struct {
	message string
	cause   stopCause
}

// selectNext picks the next eligible item from a fresh snapshot, or explains
// why the run is done.
//
// Precondition: the list is sorted newest to oldest, top to bottom. Count and
// age modes therefore always take the last (oldest) item, and age mode may
// stop at the first too-new one without scanning further. This ordering is
// assumed, not re-validated; if the page ever interleaves pinned entries the
// age modes will undercount silently.
func selectNext(items []invites.Item, rs *runState, patterns []string) (invites.Item, *stopReason) {
	if len(items) == 0 {
		return invites.Item{}, &stopReason{message: "No pending invitations found - the list is empty", cause: causeExhausted}
	}

	switch rs.cfg.Mode {
	case invites.ModeMessage:
		return selectByMessage(items, rs, patterns)
	case invites.ModeSelected:
		return selectBySelection(items, rs)
	default:
		return selectOldest(items, rs)
	}
}

// selectOldest serves count and age modes: the last rendered item is the
// oldest, and if it fails a gate, so does everything above it.
func selectOldest(items []invites.Item, rs *runState) (invites.Item, *stopReason) {
	oldest := items[len(items)-1]

	if rs.cfg.Mode == invites.ModeAge {
		if oldest.Age == nil {
			return invites.Item{}, &stopReason{
				message: "Stopped: could not read the age of the oldest invitation",
				cause:   causeUnreadable,
			}
		}
		if oldest.Age.Days() < rs.cfg.AgeThreshold.Days() {
			if rs.processed == 0 {
				return invites.Item{}, &stopReason{
					message: fmt.Sprintf("No invitations older than %d %s(s) found", rs.cfg.AgeThreshold.Value, rs.cfg.AgeThreshold.Unit),
					cause:   causeAge,
				}
			}
			return invites.Item{}, &stopReason{
				message: fmt.Sprintf("Done: oldest remaining invitation is only %s", oldest.Age.Display),
				cause:   causeAge,
			}
		}
	}

	if !IsSafe(oldest, rs.cfg) {
		return invites.Item{}, &stopReason{
			message: "Safety floor reached - remaining invitations are newer than the safe threshold",
			cause:   causeSafety,
		}
	}

	return oldest, nil
}

// selectByMessage scans from the oldest end for the first pattern match. No
// ordering short-circuit applies: matches can appear anywhere.
func selectByMessage(items []invites.Item, rs *runState, patterns []string) (invites.Item, *stopReason) {
	matched := false
	for i := len(items) - 1; i >= 0; i-- {
		it := items[i]
		if !message.Matches(it.RawMessage, it.NormalizedMessage, patterns) {
			continue
		}
		matched = true
		if !IsSafe(it, rs.cfg) {
			rs.skippedUnsafe++
			continue
		}
		return it, nil
	}
	if matched {
		return invites.Item{}, &stopReason{
			message: "Safety floor reached - all remaining matches are newer than the safe threshold",
			cause:   causeSafety,
		}
	}
	return invites.Item{}, &stopReason{
		message: "No invitations matched the configured message patterns",
		cause:   causeExhausted,
	}
}

// selectBySelection serves the withdraw-selected flow: only items whose
// content hash is in the requested set are acted on, oldest first; everything
// else is left untouched.
func selectBySelection(items []invites.Item, rs *runState) (invites.Item, *stopReason) {
	matched := false
	for i := len(items) - 1; i >= 0; i-- {
		it := items[i]
		if !rs.cfg.SelectedHashes[it.ContentHash] {
			continue
		}
		matched = true
		if !IsSafe(it, rs.cfg) {
			rs.skippedUnsafe++
			continue
		}
		return it, nil
	}
	if matched {
		return invites.Item{}, &stopReason{
			message: "Safety floor reached - remaining selected invitations are too recent",
			cause:   causeSafety,
		}
	}
	return invites.Item{}, &stopReason{
		message: "No invitations left matching the selected messages",
		cause:   causeExhausted,
	}
}

// countMatches reports how many currently loaded items a run would act on.
// Used for the totalToWithdraw estimate and scroll-time progress.
func (e *Engine) countMatches(items []invites.Item, rs *runState) int {
	switch rs.cfg.Mode {
	case invites.ModeAge:
		// Walk from the oldest end, stopping at the first too-new item
		// (same sort-order precondition as selection).
		n := 0
		for i := len(items) - 1; i >= 0; i-- {
			it := items[i]
			if it.Age == nil || it.Age.Days() < rs.cfg.AgeThreshold.Days() {
				break
			}
			n++
		}
		return n
	case invites.ModeMessage:
		patterns := e.currentPatterns()
		e.mu.Lock()
		for _, it := range items {
			if message.Matches(it.RawMessage, it.NormalizedMessage, patterns) {
				e.found[it.PersonID] = true
			}
		}
		n := len(e.found)
		e.mu.Unlock()
		return n
	case invites.ModeSelected:
		n := 0
		for _, it := range items {
			if rs.cfg.SelectedHashes[it.ContentHash] {
				n++
			}
		}
		return n
	default:
		return 0
	}
}

func parseItems(htmls []string) []invites.Item {
	return extract.Items(htmls)
}
