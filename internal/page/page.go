// Package page abstracts the live sent-invitations page behind a small
// interface. The production implementation drives Chrome; tests script a fake.
//
// Every method re-queries the live document. Callers must never hold results
// across a wait: the page is virtualized and mutates continuously, so an
// item index is only meaningful against the snapshot it came from.
package page

import "context"

// Metrics describes the scroll container's current position and extent.
type Metrics struct {
	Top float64 // current scroll offset
	Max float64 // maximum scrollable offset
}

// Page is the engine's view of the sent-invitations page.
type Page interface {
	// Load navigates to the invitation list and waits for it to render.
	Load(ctx context.Context) error

	// Snapshot returns the outer HTML of every currently rendered
	// invitation card, in document order (newest first).
	Snapshot(ctx context.Context) ([]string, error)

	// Count returns the number of currently rendered cards.
	Count(ctx context.Context) (int, error)

	// LastItemKey identifies the last rendered card (href plus text) so the
	// scroll driver can tell whether the tail moved between cycles.
	LastItemKey(ctx context.Context) (string, error)

	// ScrollToBottom scrolls the detected scroll container (or the
	// document) to its maximum extent.
	ScrollToBottom(ctx context.Context) error

	// ScrollBy scrolls vertically by px (negative scrolls up).
	ScrollBy(ctx context.Context, px int) error

	// Metrics reports the scroll container's position and extent.
	Metrics(ctx context.Context) (Metrics, error)

	// ReportedTotal parses the page header's advisory total ("People
	// (1,100)"). ok is false when the header is absent or unparseable.
	ReportedTotal(ctx context.Context) (total int, ok bool)

	// PendingCount scrapes the displayed pending-invitation count.
	PendingCount(ctx context.Context) (int, error)

	// ScrollIntoView brings the card at index into the viewport.
	ScrollIntoView(ctx context.Context, index int) error

	// ClickWithdraw clicks the withdraw control of the card at index.
	ClickWithdraw(ctx context.Context, index int) error

	// ConfirmAttempt makes one attempt to find and click the confirmation
	// dialog's accept button. It returns false when no dialog is present
	// yet; callers poll.
	ConfirmAttempt(ctx context.Context) (bool, error)

	// Highlight visually marks the card at index without acting on it.
	Highlight(ctx context.Context, index int) error
}
