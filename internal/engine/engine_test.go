package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sweeplab/invitesweep/internal/invites"
	"github.com/sweeplab/invitesweep/internal/message"
	"github.com/sweeplab/invitesweep/internal/page"
	"github.com/sweeplab/invitesweep/internal/report"
	"github.com/sweeplab/invitesweep/internal/store"
)

// fakeCard renders the minimal markup the extractor cares about.
type fakeCard struct {
	name string
	slug string
	age  string
	msg  string
}

func (c fakeCard) html() string {
	var b strings.Builder
	b.WriteString(`<li class="invitation-card">`)
	if c.name != "" {
		fmt.Fprintf(&b, `<div class="invitation-card__tvm-title"><a href="https://www.linkedin.com/in/%s">%s</a></div>`, c.slug, c.name)
	}
	if c.age != "" {
		fmt.Fprintf(&b, `<time class="time-badge">%s</time>`, c.age)
	}
	if c.msg != "" {
		fmt.Fprintf(&b, `<div class="invitation-card__custom-message">%s</div>`, c.msg)
	}
	b.WriteString(`</li>`)
	return b.String()
}

// fakePage scripts the sent-invitations page: cards render newest first, each
// ScrollToBottom reveals one queued batch, and a confirmed withdrawal removes
// the clicked card.
type fakePage struct {
	cards  []fakeCard
	queued [][]fakeCard

	total       int
	hasTotal    bool
	pending     int
	neverBottom bool

	noDialog     bool  // the confirmation dialog never appears
	confirmFails int   // confirmation attempts that miss before one lands
	snapshotErr  error // injected Snapshot failure
	armed        int   // clicked card awaiting confirmation, -1 when none

	withdrawn  []string
	loads      int
	scrolls    int
	clicks     int
	highlights []int
}

func newFakePage(cards ...fakeCard) *fakePage {
	return &fakePage{cards: cards, armed: -1}
}

func (f *fakePage) Load(context.Context) error {
	f.loads++
	return nil
}

func (f *fakePage) Snapshot(context.Context) ([]string, error) {
	if f.snapshotErr != nil {
		return nil, f.snapshotErr
	}
	htmls := make([]string, len(f.cards))
	for i, c := range f.cards {
		htmls[i] = c.html()
	}
	return htmls, nil
}

func (f *fakePage) Count(context.Context) (int, error) { return len(f.cards), nil }

func (f *fakePage) LastItemKey(context.Context) (string, error) {
	if len(f.cards) == 0 {
		return "", nil
	}
	last := f.cards[len(f.cards)-1]
	return last.slug + "|" + last.name, nil
}

func (f *fakePage) ScrollToBottom(context.Context) error {
	f.scrolls++
	if len(f.queued) > 0 {
		f.cards = append(f.cards, f.queued[0]...)
		f.queued = f.queued[1:]
	}
	return nil
}

func (f *fakePage) ScrollBy(context.Context, int) error { return nil }

func (f *fakePage) Metrics(context.Context) (page.Metrics, error) {
	if f.neverBottom || len(f.queued) > 0 {
		return page.Metrics{Top: 100, Max: 1000}, nil
	}
	return page.Metrics{Top: 1000, Max: 1000}, nil
}

func (f *fakePage) ReportedTotal(context.Context) (int, bool) { return f.total, f.hasTotal }

func (f *fakePage) PendingCount(context.Context) (int, error) { return f.pending, nil }

func (f *fakePage) ScrollIntoView(_ context.Context, index int) error {
	if index < 0 || index >= len(f.cards) {
		return fmt.Errorf("no card at index %d", index)
	}
	return nil
}

func (f *fakePage) ClickWithdraw(_ context.Context, index int) error {
	if index < 0 || index >= len(f.cards) {
		return fmt.Errorf("no card at index %d", index)
	}
	f.clicks++
	f.armed = index
	return nil
}

func (f *fakePage) ConfirmAttempt(context.Context) (bool, error) {
	if f.noDialog || f.armed < 0 {
		return false, nil
	}
	if f.confirmFails > 0 {
		f.confirmFails--
		return false, nil
	}
	idx := f.armed
	f.armed = -1
	f.withdrawn = append(f.withdrawn, f.cards[idx].name)
	f.cards = append(f.cards[:idx], f.cards[idx+1:]...)
	return true, nil
}

func (f *fakePage) Highlight(_ context.Context, index int) error {
	f.highlights = append(f.highlights, index)
	return nil
}

// recorder captures reporter traffic for assertions.
type recorder struct {
	scrolls      []report.ScrollProgress
	scrollDone   []int
	statuses     []report.Status
	scanGroups   []invites.Group
	scanTotal    int
	finalStats   []report.Stats
	finalMessage string
}

func (r *recorder) ScrollProgress(p report.ScrollProgress) { r.scrolls = append(r.scrolls, p) }
func (r *recorder) ScrollComplete(count int)               { r.scrollDone = append(r.scrollDone, count) }
func (r *recorder) Status(s report.Status)                 { r.statuses = append(r.statuses, s) }
func (r *recorder) ScanComplete(groups []invites.Group, total int) {
	r.scanGroups = groups
	r.scanTotal = total
}
func (r *recorder) Completed(stats report.Stats, msg string) {
	r.finalStats = append(r.finalStats, stats)
	r.finalMessage = msg
}

// newTestEngine wires an engine to a fake page with an instant sleep, so the
// production wait constants stay untouched while tests run in microseconds.
func newTestEngine(t *testing.T, p page.Page) (*Engine, *recorder) {
	t.Helper()
	rec := &recorder{}
	e := New(p, rec, nil, 0, zap.NewNop())
	e.sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	return e, rec
}

func contentHash(msg string) string { return message.Hash(message.Normalize(msg)) }

func TestRunCountModeClearsExactlyTarget(t *testing.T) {
	cards := make([]fakeCard, 0, 8)
	for i := 0; i < 8; i++ {
		cards = append(cards, fakeCard{
			name: fmt.Sprintf("Person %d", i),
			slug: fmt.Sprintf("person-%d", i),
			age:  fmt.Sprintf("Sent %d days ago", i+1),
		})
	}
	fp := newFakePage(cards...)
	fp.total, fp.hasTotal = 8, true

	e, rec := newTestEngine(t, fp)
	err := e.Run(context.Background(), invites.RunConfig{Mode: invites.ModeCount, TargetCount: 5})
	require.NoError(t, err)

	// Oldest five withdrawn, bottom up; the three newest untouched.
	assert.Equal(t, []string{"Person 7", "Person 6", "Person 5", "Person 4", "Person 3"}, fp.withdrawn)
	assert.Len(t, fp.cards, 3)

	require.Len(t, rec.finalStats, 1)
	assert.Equal(t, 5, rec.finalStats[0].Cleared)
	assert.Equal(t, 3, rec.finalStats[0].Remaining)
	assert.Equal(t, 5, rec.finalStats[0].Target)
	assert.Equal(t, "Sent 4 days ago", rec.finalStats[0].Oldest)
	assert.Equal(t, "Cleared 5 invitation(s)", rec.finalMessage)
	assert.False(t, e.Status().IsRunning)
}

func TestRunCountModeExhaustsList(t *testing.T) {
	fp := newFakePage(
		fakeCard{name: "Ana Ruiz", slug: "ana", age: "2 days ago"},
		fakeCard{name: "Bo Chen", slug: "bo", age: "1 week ago"},
		fakeCard{name: "Cy Park", slug: "cy", age: "3 weeks ago"},
	)
	e, rec := newTestEngine(t, fp)

	err := e.Run(context.Background(), invites.RunConfig{Mode: invites.ModeCount, TargetCount: 5})
	require.NoError(t, err)

	assert.Len(t, fp.withdrawn, 3)
	assert.Equal(t, "Cleared 3 of 5 - no more eligible invitations", rec.finalMessage)
	require.Len(t, rec.finalStats, 1)
	assert.Equal(t, 3, rec.finalStats[0].Cleared)
}

func TestRunAgeModeStopsAtFirstNewer(t *testing.T) {
	fp := newFakePage(
		fakeCard{name: "Newest", slug: "n", age: "Sent 2 days ago"},
		fakeCard{name: "Week", slug: "w", age: "Sent 1 week ago"},
		fakeCard{name: "Weeks", slug: "ws", age: "Sent 3 weeks ago"},
		fakeCard{name: "Months", slug: "m", age: "Sent 2 months ago"},
	)
	e, rec := newTestEngine(t, fp)

	err := e.Run(context.Background(), invites.RunConfig{
		Mode:         invites.ModeAge,
		AgeThreshold: invites.Threshold{Value: 1, Unit: invites.Week},
	})
	require.NoError(t, err)

	// Exactly-at-threshold is eligible; the 2-day item stops the run.
	assert.Equal(t, []string{"Months", "Weeks", "Week"}, fp.withdrawn)
	assert.Len(t, fp.cards, 1)
	assert.Equal(t, "Done: oldest remaining invitation is only Sent 2 days ago", rec.finalMessage)
}

func TestRunAgeModeNoEligible(t *testing.T) {
	fp := newFakePage(
		fakeCard{name: "Ana Ruiz", slug: "ana", age: "2 days ago"},
		fakeCard{name: "Bo Chen", slug: "bo", age: "5 days ago"},
	)
	e, rec := newTestEngine(t, fp)

	err := e.Run(context.Background(), invites.RunConfig{
		Mode:         invites.ModeAge,
		AgeThreshold: invites.Threshold{Value: 1, Unit: invites.Month},
	})
	require.NoError(t, err)

	assert.Empty(t, fp.withdrawn)
	assert.Equal(t, "No invitations older than 1 month(s) found", rec.finalMessage)
}

func TestRunAgeModeUnreadableOldestStops(t *testing.T) {
	fp := newFakePage(
		fakeCard{name: "Ana Ruiz", slug: "ana", age: "2 months ago"},
		fakeCard{name: "Bo Chen", slug: "bo"}, // no age badge
	)
	e, rec := newTestEngine(t, fp)

	err := e.Run(context.Background(), invites.RunConfig{
		Mode:         invites.ModeAge,
		AgeThreshold: invites.Threshold{Value: 1, Unit: invites.Week},
	})
	require.NoError(t, err)

	assert.Empty(t, fp.withdrawn)
	assert.Contains(t, rec.finalMessage, "could not read the age")
}

func TestRunSafetyFloorStopsCountMode(t *testing.T) {
	fp := newFakePage(
		fakeCard{name: "Ana Ruiz", slug: "ana", age: "2 weeks ago"},
		fakeCard{name: "Bo Chen", slug: "bo", age: "3 weeks ago"},
	)
	e, rec := newTestEngine(t, fp)

	err := e.Run(context.Background(), invites.RunConfig{
		Mode:          invites.ModeCount,
		TargetCount:   10,
		SafeMode:      true,
		SafeThreshold: invites.Threshold{Value: 1, Unit: invites.Month},
	})
	require.NoError(t, err)

	assert.Empty(t, fp.withdrawn)
	assert.Contains(t, rec.finalMessage, "Safety floor reached")
}

func TestRunMessageMode(t *testing.T) {
	fp := newFakePage(
		fakeCard{name: "Ana Ruiz", slug: "ana", age: "2 days ago", msg: "Hi Ana, I have $500 to invest"},
		fakeCard{name: "Bo Chen", slug: "bo", age: "1 week ago", msg: "Great talk last week"},
		fakeCard{name: "Cy Park", slug: "cy", age: "3 weeks ago", msg: "Hello Cy, I have $9,000 to invest"},
	)
	e, rec := newTestEngine(t, fp)

	err := e.Run(context.Background(), invites.RunConfig{
		Mode:            invites.ModeMessage,
		MessagePatterns: []string{"to invest"},
	})
	require.NoError(t, err)

	// Oldest match first, non-matching card untouched.
	assert.Equal(t, []string{"Cy Park", "Ana Ruiz"}, fp.withdrawn)
	require.Len(t, fp.cards, 1)
	assert.Equal(t, "Bo Chen", fp.cards[0].name)
	require.Len(t, rec.finalStats, 1)
	assert.Equal(t, 2, rec.finalStats[0].Cleared)
	assert.Equal(t, 2, rec.finalStats[0].Target)
}

func TestWithdrawSelectedTouchesOnlySelection(t *testing.T) {
	msgA := "Hi there, I have $100 to invest"
	msgB := "Loved your article on Go"
	fp := newFakePage(
		fakeCard{name: "Ana Ruiz", slug: "ana", age: "2 days ago", msg: msgA},
		fakeCard{name: "Bo Chen", slug: "bo", age: "1 week ago", msg: msgB},
		fakeCard{name: "Cy Park", slug: "cy", age: "3 weeks ago", msg: msgA},
	)
	e, rec := newTestEngine(t, fp)

	err := e.WithdrawSelected(context.Background(), []string{contentHash(msgA)}, false, invites.Threshold{})
	require.NoError(t, err)

	assert.Equal(t, []string{"Cy Park", "Ana Ruiz"}, fp.withdrawn)
	require.Len(t, fp.cards, 1)
	assert.Equal(t, "Bo Chen", fp.cards[0].name)
	assert.Equal(t, "No invitations left matching the selected messages", rec.finalMessage)
}

func TestWithdrawSelectedReportsSafetySkips(t *testing.T) {
	msgA := "Hi there, I have $100 to invest"
	fp := newFakePage(
		fakeCard{name: "Ana Ruiz", slug: "ana", age: "2 days ago", msg: msgA},
		fakeCard{name: "Bo Chen", slug: "bo", age: "1 week ago", msg: "unrelated"},
		fakeCard{name: "Cy Park", slug: "cy", age: "2 months ago", msg: msgA},
	)
	e, rec := newTestEngine(t, fp)

	err := e.WithdrawSelected(context.Background(), []string{contentHash(msgA)},
		true, invites.Threshold{Value: 1, Unit: invites.Month})
	require.NoError(t, err)

	// The old copy goes; the 2-day copy is under the floor and stays.
	assert.Equal(t, []string{"Cy Park"}, fp.withdrawn)
	assert.Len(t, fp.cards, 2)
	assert.Contains(t, rec.finalMessage, "Safety floor reached")
	assert.Contains(t, rec.finalMessage, "skipped by the safety floor")
}

func TestRunStopBetweenActions(t *testing.T) {
	fp := newFakePage(
		fakeCard{name: "Ana Ruiz", slug: "ana", age: "2 days ago"},
		fakeCard{name: "Bo Chen", slug: "bo", age: "1 week ago"},
		fakeCard{name: "Cy Park", slug: "cy", age: "3 weeks ago"},
	)
	e, rec := newTestEngine(t, fp)
	// The reveal phase also sleeps for 600ms intervals, so gate on the
	// first withdrawal having actually landed.
	e.sleep = func(ctx context.Context, d time.Duration) error {
		if d == e.t.ActionDelay && len(fp.withdrawn) == 1 {
			e.Stop()
		}
		return ctx.Err()
	}

	err := e.Run(context.Background(), invites.RunConfig{Mode: invites.ModeCount, TargetCount: 3})
	require.NoError(t, err)

	// The in-flight action completed; nothing after it started.
	assert.Equal(t, []string{"Cy Park"}, fp.withdrawn)
	assert.Equal(t, "Stopped by user", rec.finalMessage)
	require.Len(t, rec.finalStats, 1)
	assert.Equal(t, 1, rec.finalStats[0].Cleared)
}

func TestRunStopDuringConfirmationStillRecords(t *testing.T) {
	fp := newFakePage(
		fakeCard{name: "Ana Ruiz", slug: "ana", age: "2 days ago"},
		fakeCard{name: "Bo Chen", slug: "bo", age: "1 week ago"},
	)
	fp.confirmFails = 1
	hist := &memHistory{}
	rec := &recorder{}
	e := New(fp, rec, hist, 0, zap.NewNop())
	e.sleep = func(ctx context.Context, d time.Duration) error {
		// Stop lands while the confirmation dialog is being polled.
		if d == e.t.ConfirmPoll {
			e.Stop()
		}
		return ctx.Err()
	}

	err := e.Run(context.Background(), invites.RunConfig{Mode: invites.ModeCount, TargetCount: 2})
	require.NoError(t, err)

	// The page performed the withdrawal; counters, history, and stats must
	// all include it even though the run then stopped.
	assert.Equal(t, []string{"Bo Chen"}, fp.withdrawn)
	require.Len(t, hist.records, 1)
	assert.Equal(t, "Bo Chen", hist.records[0].Name)
	require.Len(t, rec.finalStats, 1)
	assert.Equal(t, 1, rec.finalStats[0].Cleared)
	assert.Equal(t, "Stopped by user", rec.finalMessage)
}

func TestRunCountModeSafetyStopAfterProgress(t *testing.T) {
	fp := newFakePage(
		fakeCard{name: "Ana Ruiz", slug: "ana", age: "2 days ago"},
		fakeCard{name: "Bo Chen", slug: "bo", age: "2 months ago"},
	)
	e, rec := newTestEngine(t, fp)

	err := e.Run(context.Background(), invites.RunConfig{
		Mode:          invites.ModeCount,
		TargetCount:   5,
		SafeMode:      true,
		SafeThreshold: invites.Threshold{Value: 1, Unit: invites.Month},
	})
	require.NoError(t, err)

	// Partial progress must not mask the real stop cause as exhaustion.
	assert.Equal(t, []string{"Bo Chen"}, fp.withdrawn)
	assert.Contains(t, rec.finalMessage, "Safety floor reached")
	assert.NotContains(t, rec.finalMessage, "no more eligible")
}

func TestRunPauseResumeNoSkipNoDouble(t *testing.T) {
	fp := newFakePage(
		fakeCard{name: "Ana Ruiz", slug: "ana", age: "2 days ago"},
		fakeCard{name: "Bo Chen", slug: "bo", age: "1 week ago"},
		fakeCard{name: "Cy Park", slug: "cy", age: "3 weeks ago"},
	)
	e, _ := newTestEngine(t, fp)

	pausedOnce := false
	pausePolls := 0
	e.sleep = func(ctx context.Context, d time.Duration) error {
		switch d {
		case e.t.ActionDelay:
			if len(fp.withdrawn) == 1 && !pausedOnce {
				pausedOnce = true
				e.Pause()
			}
		case e.t.PausePoll:
			pausePolls++
			if pausePolls == 3 {
				e.Resume()
			}
		}
		return ctx.Err()
	}

	err := e.Run(context.Background(), invites.RunConfig{Mode: invites.ModeCount, TargetCount: 3})
	require.NoError(t, err)

	assert.Equal(t, 3, pausePolls)
	assert.Equal(t, []string{"Cy Park", "Bo Chen", "Ana Ruiz"}, fp.withdrawn)
	assert.Empty(t, fp.cards)
}

func TestRunMissingDialogIsFatalAfterRetries(t *testing.T) {
	fp := newFakePage(
		fakeCard{name: "Ana Ruiz", slug: "ana", age: "2 days ago"},
	)
	fp.noDialog = true
	e, rec := newTestEngine(t, fp)

	err := e.Run(context.Background(), invites.RunConfig{Mode: invites.ModeCount, TargetCount: 1})
	require.NoError(t, err)

	assert.Equal(t, e.t.MaxRetries, fp.clicks)
	assert.Empty(t, fp.withdrawn)
	assert.Contains(t, rec.finalMessage, "selectors may need updating")
	require.Len(t, rec.finalStats, 1)
	assert.Equal(t, 0, rec.finalStats[0].Cleared)
}

func TestRunSnapshotFailuresAreFatalAfterRetries(t *testing.T) {
	fp := newFakePage(
		fakeCard{name: "Ana Ruiz", slug: "ana", age: "2 days ago"},
	)
	fp.snapshotErr = errors.New("evaluate failed")
	e, rec := newTestEngine(t, fp)

	err := e.Run(context.Background(), invites.RunConfig{Mode: invites.ModeCount, TargetCount: 1})
	require.NoError(t, err)

	assert.Zero(t, fp.clicks)
	assert.Contains(t, rec.finalMessage, "selectors may need updating")
}

func TestRunRejectsConcurrentStart(t *testing.T) {
	e, _ := newTestEngine(t, newFakePage())
	e.running.Store(true)
	defer e.running.Store(false)

	err := e.Run(context.Background(), invites.RunConfig{Mode: invites.ModeCount, TargetCount: 1})
	assert.ErrorIs(t, err, ErrRunActive)

	_, _, err = e.Scan(context.Background())
	assert.ErrorIs(t, err, ErrRunActive)
}

func TestRevealAllLoadsQueuedBatches(t *testing.T) {
	fp := newFakePage(
		fakeCard{name: "Card 0", slug: "c0", age: "1 day ago"},
		fakeCard{name: "Card 1", slug: "c1", age: "2 days ago"},
	)
	fp.queued = [][]fakeCard{
		{{name: "Card 2", slug: "c2", age: "3 days ago"}, {name: "Card 3", slug: "c3", age: "4 days ago"}},
		{{name: "Card 4", slug: "c4", age: "5 days ago"}},
	}
	e, rec := newTestEngine(t, fp)
	e.running.Store(true)
	defer e.running.Store(false)

	rs := &runState{cfg: invites.RunConfig{Mode: invites.ModeCount}}
	loaded, err := e.revealAll(context.Background(), rs, false)
	require.NoError(t, err)

	assert.Equal(t, 5, loaded)
	require.NotEmpty(t, rec.scrolls)
	last := rec.scrolls[len(rec.scrolls)-1]
	assert.Equal(t, 5, last.Found)
	assert.LessOrEqual(t, last.Progress, 99)
}

func TestRevealAllStagnationCap(t *testing.T) {
	// The page never reports being at the bottom and carries no advisory
	// total, so no heuristic can fire; the hard cap must end the loop.
	fp := newFakePage(fakeCard{name: "Only", slug: "o", age: "1 day ago"})
	fp.neverBottom = true
	e, _ := newTestEngine(t, fp)
	e.running.Store(true)
	defer e.running.Store(false)

	rs := &runState{cfg: invites.RunConfig{Mode: invites.ModeCount}}
	loaded, err := e.revealAll(context.Background(), rs, false)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded)

	// One scroll per cycle plus one extra per jiggle, bounded by the cap.
	assert.GreaterOrEqual(t, fp.scrolls, e.t.MaxStagnant)
	assert.LessOrEqual(t, fp.scrolls, e.t.MaxStagnant*2)
}

func TestScanGroupsInvitations(t *testing.T) {
	msgA := "Hi there, I have $100 to invest"
	fp := newFakePage(
		fakeCard{name: "Ana Ruiz", slug: "ana", age: "2 days ago", msg: msgA},
		fakeCard{name: "Bo Chen", slug: "bo", age: "1 week ago", msg: "Loved your article"},
		fakeCard{name: "Cy Park", slug: "cy", age: "3 weeks ago", msg: "Hello Cy, I have $25 to invest"},
	)
	e, rec := newTestEngine(t, fp)

	groups, total, err := e.Scan(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, total)
	require.Len(t, groups, 2)
	// Most recent group first.
	assert.Equal(t, contentHash(msgA), groups[0].ContentHash)
	assert.Equal(t, 2, groups[0].Count)
	assert.Equal(t, 1, groups[1].Count)
	assert.Equal(t, 3, rec.scanTotal)
	assert.False(t, e.Status().IsRunning)
}

func TestShowConnectionHighlights(t *testing.T) {
	msgA := "Hi there, I have $100 to invest"
	fp := newFakePage(
		fakeCard{name: "Ana Ruiz", slug: "ana", age: "2 days ago", msg: msgA},
		fakeCard{name: "Bo Chen", slug: "bo", age: "1 week ago", msg: "Other note"},
	)
	e, _ := newTestEngine(t, fp)

	// Content-hash fallback lands on the first card carrying the hash.
	require.NoError(t, e.ShowConnection(context.Background(), contentHash(msgA)))
	assert.Equal(t, []int{0}, fp.highlights)

	err := e.ShowConnection(context.Background(), "no-such-key")
	assert.Error(t, err)
}

func TestUpdateMessagesHotSwap(t *testing.T) {
	e, _ := newTestEngine(t, newFakePage())
	e.UpdateMessages([]string{"alpha", "beta"})
	assert.Equal(t, []string{"alpha", "beta"}, e.currentPatterns())

	e.paused.Store(true)
	e.UpdateMessages([]string{"gamma"})
	assert.Equal(t, []string{"gamma"}, e.currentPatterns())
	assert.False(t, e.paused.Load())
}

func TestIsSafe(t *testing.T) {
	threshold := invites.Threshold{Value: 1, Unit: invites.Month}
	on := invites.RunConfig{SafeMode: true, SafeThreshold: threshold}
	off := invites.RunConfig{SafeMode: false, SafeThreshold: threshold}

	withAge := func(v int, u invites.Unit) invites.Item {
		return invites.Item{Age: &invites.Age{Value: v, Unit: u}}
	}

	assert.True(t, IsSafe(withAge(2, invites.Day), off), "safe mode off admits everything")
	assert.False(t, IsSafe(invites.Item{}, on), "unparseable age fails closed")
	assert.False(t, IsSafe(withAge(2, invites.Week), on), "two weeks is half a month")
	assert.True(t, IsSafe(withAge(5, invites.Week), on), "five weeks exceeds a month")
	assert.True(t, IsSafe(withAge(1, invites.Month), on), "exactly at the floor is safe")
}

func TestGroupItems(t *testing.T) {
	mk := func(name, hash, norm string, age *invites.Age) invites.Item {
		return invites.Item{DisplayName: name, ContentHash: hash, NormalizedMessage: norm, Age: age, PersonID: name}
	}
	items := []invites.Item{
		mk("Old A", "hA", "note a", &invites.Age{Value: 2, Unit: invites.Month}),
		mk("New B", "hB", "note b", &invites.Age{Value: 1, Unit: invites.Day}),
		mk("New A", "hA", "note a", &invites.Age{Value: 3, Unit: invites.Day}),
		mk("No age", "hC", "note c", nil),
	}

	groups := GroupItems(items)
	require.Len(t, groups, 3)

	// Ascending minimum age: a group with no parsed age sorts as zero.
	assert.Equal(t, "hC", groups[0].ContentHash)
	assert.Equal(t, int64(0), groups[0].MinAgeSeconds)
	assert.Equal(t, "hB", groups[1].ContentHash)
	assert.Equal(t, "hA", groups[2].ContentHash)

	assert.Equal(t, 2, groups[2].Count)
	assert.Equal(t, int64(3*24*3600), groups[2].MinAgeSeconds)
	require.Len(t, groups[2].People, 2)
	assert.Equal(t, "Old A", groups[2].People[0].Name)
}

type memHistory struct {
	records []store.Record
}

func (m *memHistory) AddWithdrawal(rec store.Record) error {
	m.records = append(m.records, rec)
	return nil
}

func TestRunRecordsHistory(t *testing.T) {
	fp := newFakePage(
		fakeCard{name: "Ana Ruiz", slug: "ana", age: "2 days ago"},
		fakeCard{name: "Bo Chen", slug: "bo", age: "1 week ago"},
	)
	hist := &memHistory{}
	rec := &recorder{}
	e := New(fp, rec, hist, 0, zap.NewNop())
	e.sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }

	err := e.Run(context.Background(), invites.RunConfig{Mode: invites.ModeCount, TargetCount: 2})
	require.NoError(t, err)

	require.Len(t, hist.records, 2)
	assert.Equal(t, "Bo Chen", hist.records[0].Name)
	assert.Equal(t, "Ana Ruiz", hist.records[1].Name)
	assert.Equal(t, "https://www.linkedin.com/in/bo", hist.records[0].ProfileURL)
	assert.NotEmpty(t, hist.records[0].RunID)
	assert.Equal(t, hist.records[0].RunID, hist.records[1].RunID)
}

func TestPendingCount(t *testing.T) {
	fp := newFakePage()
	fp.pending = 42
	e, _ := newTestEngine(t, fp)

	n, err := e.PendingCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, n)
	assert.Equal(t, 1, fp.loads)
}

func TestPendingCountSkipsNavigationDuringRun(t *testing.T) {
	fp := newFakePage()
	fp.pending = 7
	e, _ := newTestEngine(t, fp)
	e.running.Store(true)
	defer e.running.Store(false)

	n, err := e.PendingCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.Zero(t, fp.loads, "an active run must keep its page")
}
