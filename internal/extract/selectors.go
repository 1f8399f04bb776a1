package extract

// LinkedIn sent-invitations DOM selectors.
// These are isolated here because LinkedIn changes their DOM frequently.
// Update these when extraction breaks.

const (
	// List structure
	InvitationCard = `li.invitation-card, .invitation-card`
	CardList       = `.mn-invitation-list`

	// Per-card content
	ProfileTitleLink = `.invitation-card__tvm-title a, .invitation-card__title a`
	ProfileLink      = `a[href*="/in/"]`
	ProfilePicture   = `img.presence-entity__image, img.EntityPhoto-circle-3, .invitation-card img`
	ProfileFigure    = `figure[aria-label]`
	TimeBadge        = `time.time-badge, .invitation-card time, .time-badge`
	CustomMessage    = `.invitation-card__custom-message, .invitation-card__message`
	SeeMoreControl   = `.lt-line-clamp__more, button.invitation-card__see-more`

	// Action controls
	WithdrawButton = `button[data-view-name="sent-invitations-withdraw-single"], button.invitation-card__action-btn`

	// Confirmation dialog (primary selector plus fallback)
	ConfirmPrimary  = `.artdeco-modal__actionbar button.artdeco-button--primary`
	ConfirmFallback = `.artdeco-modal button[data-test-modal-close-btn] ~ div button:last-child, .artdeco-modal__confirm-dialog-btn`

	// Page chrome
	HeaderCount  = `.artdeco-tabs h1, .mn-invitation-manager__header h1, main h1`
	PendingBadge = `a[href*="invitation-manager/sent"] .artdeco-pill, .mn-invitation-manager__sent-count`
)
