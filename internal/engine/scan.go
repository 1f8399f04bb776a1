package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/sweeplab/invitesweep/internal/invites"
)

// Scan reveals the full list and groups items by normalized-message hash
// instead of withdrawing. Groups are rebuilt from scratch on every scan.
// Scan shares the single-run gate with Run.
func (e *Engine) Scan(ctx context.Context) ([]invites.Group, int, error) {
	if !e.running.CompareAndSwap(false, true) {
		return nil, 0, ErrRunActive
	}
	defer e.running.Store(false)

	rs := &runState{id: newRunID(), cfg: invites.RunConfig{Mode: invites.ModeCount}}
	e.publish("Scanning invitations...", 0, nil)

	if err := e.page.Load(ctx); err != nil {
		return nil, 0, fmt.Errorf("failed to open invitation list: %w", err)
	}
	rs.reportedTotal, rs.hasReported = e.page.ReportedTotal(ctx)

	total, err := e.revealAll(ctx, rs, true)
	if err != nil && ctx.Err() != nil {
		return nil, 0, ctx.Err()
	}
	e.rep.ScrollComplete(total)

	htmls, err := e.page.Snapshot(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to snapshot invitations: %w", err)
	}
	items := parseItems(htmls)

	groups := GroupItems(items)
	e.rep.ScanComplete(groups, len(items))
	e.publish(fmt.Sprintf("Scan complete: %d invitation(s) in %d group(s)", len(items), len(groups)), 100, nil)

	return groups, len(items), nil
}

// GroupItems buckets a scan snapshot by content hash: one group per distinct
// hash, membership recomputed wholesale. Groups come back sorted most-recent
// first (smallest minimum age).
func GroupItems(items []invites.Item) []invites.Group {
	byHash := make(map[string]*invites.Group)
	order := make([]string, 0)

	for _, it := range items {
		g, ok := byHash[it.ContentHash]
		if !ok {
			g = &invites.Group{
				ContentHash:       it.ContentHash,
				NormalizedMessage: it.NormalizedMessage,
				FullMessageSample: it.RawMessage,
				MinAgeSeconds:     -1,
			}
			byHash[it.ContentHash] = g
			order = append(order, it.ContentHash)
		}

		g.Count++
		g.People = append(g.People, invites.Person{
			Name:       it.DisplayName,
			Age:        ageDisplay(it),
			ProfileURL: it.ProfileURL,
			PersonID:   it.PersonID,
		})
		if it.Age != nil {
			if secs := it.Age.Seconds(); g.MinAgeSeconds < 0 || secs < g.MinAgeSeconds {
				g.MinAgeSeconds = secs
			}
		}
	}

	groups := make([]invites.Group, 0, len(order))
	for _, h := range order {
		g := byHash[h]
		if g.MinAgeSeconds < 0 {
			g.MinAgeSeconds = 0
		}
		groups = append(groups, *g)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].MinAgeSeconds < groups[j].MinAgeSeconds
	})
	return groups
}
