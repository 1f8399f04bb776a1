package page

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/sweeplab/invitesweep/internal/browser"
	"github.com/sweeplab/invitesweep/internal/extract"
)

// Browser drives the real sent-invitations page over CDP. One Browser owns one
// Chrome tab for its whole lifetime; Open must be called before any Page
// method and Close when done.
type Browser struct {
	listURL  string
	headless bool
	cookies  []*network.Cookie
	log      *zap.Logger

	ctx     context.Context
	cancels []context.CancelFunc
}

var _ Page = (*Browser)(nil)

// NewBrowser creates an unopened browser page driver.
func NewBrowser(listURL string, headless bool, cookies []*network.Cookie, log *zap.Logger) *Browser {
	return &Browser{
		listURL:  listURL,
		headless: headless,
		cookies:  cookies,
		log:      log,
	}
}

// Open launches Chrome with the shared stealth options and injects the stored
// session cookies.
func (b *Browser) Open(ctx context.Context) error {
	opts := browser.Options(b.headless)

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	b.ctx = browserCtx
	b.cancels = []context.CancelFunc{browserCancel, allocCancel}

	if err := b.injectCookies(); err != nil {
		b.Close()
		return fmt.Errorf("failed to inject cookies: %w", err)
	}
	return nil
}

// Close tears down the browser.
func (b *Browser) Close() {
	for _, cancel := range b.cancels {
		cancel()
	}
	b.cancels = nil
}

func (b *Browser) injectCookies() error {
	return chromedp.Run(b.ctx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			for _, c := range b.cookies {
				err := network.SetCookie(c.Name, c.Value).
					WithDomain(c.Domain).
					WithPath(c.Path).
					WithSecure(c.Secure).
					WithHTTPOnly(c.HTTPOnly).
					WithSameSite(c.SameSite).
					Do(ctx)
				if err != nil {
					return err
				}
			}
			return nil
		}),
	)
}

// run executes actions on the browser tab, honoring the caller's context for
// cooperative cancellation checks.
func (b *Browser) run(ctx context.Context, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.ctx == nil {
		return fmt.Errorf("browser not opened")
	}
	return chromedp.Run(b.ctx, actions...)
}

// Load navigates to the invitation list and waits for the first card (or an
// empty-state container) to render.
func (b *Browser) Load(ctx context.Context) error {
	if err := b.run(ctx,
		chromedp.Navigate(b.listURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		// The list is rendered client-side after the document is ready.
		chromedp.Sleep(2*time.Second),
	); err != nil {
		return fmt.Errorf("failed to load invitation list: %w", err)
	}
	return nil
}

func (b *Browser) Snapshot(ctx context.Context) ([]string, error) {
	js := fmt.Sprintf(`
		(function() {
			return Array.from(document.querySelectorAll(%q)).map(el => el.outerHTML);
		})()
	`, extract.InvitationCard)

	var htmls []string
	if err := b.run(ctx, chromedp.Evaluate(js, &htmls)); err != nil {
		return nil, fmt.Errorf("failed to snapshot invitation cards: %w", err)
	}
	return htmls, nil
}

func (b *Browser) Count(ctx context.Context) (int, error) {
	js := fmt.Sprintf(`document.querySelectorAll(%q).length`, extract.InvitationCard)

	var n int
	if err := b.run(ctx, chromedp.Evaluate(js, &n)); err != nil {
		return 0, fmt.Errorf("failed to count invitation cards: %w", err)
	}
	return n, nil
}

func (b *Browser) LastItemKey(ctx context.Context) (string, error) {
	js := fmt.Sprintf(`
		(function() {
			const cards = document.querySelectorAll(%q);
			if (cards.length === 0) return "";
			const last = cards[cards.length - 1];
			const link = last.querySelector(%q);
			return (link ? link.getAttribute('href') : "") + "|" + last.innerText.slice(0, 80);
		})()
	`, extract.InvitationCard, extract.ProfileLink)

	var key string
	if err := b.run(ctx, chromedp.Evaluate(js, &key)); err != nil {
		return "", err
	}
	return key, nil
}

// scrollContainerJS locates the nearest scrollable ancestor of the card list,
// falling back to the document scroller.
const scrollContainerJS = `
	function __sweepScroller(cardSel) {
		let el = document.querySelector(cardSel);
		while (el && el !== document.body) {
			const st = getComputedStyle(el);
			if ((st.overflowY === 'auto' || st.overflowY === 'scroll') && el.scrollHeight > el.clientHeight + 1) {
				return el;
			}
			el = el.parentElement;
		}
		return document.scrollingElement || document.documentElement;
	}
`

func (b *Browser) ScrollToBottom(ctx context.Context) error {
	js := fmt.Sprintf(`
		(function() {
			%s
			const s = __sweepScroller(%q);
			s.scrollTop = s.scrollHeight;
			return true;
		})()
	`, scrollContainerJS, extract.InvitationCard)

	var ok bool
	return b.run(ctx, chromedp.Evaluate(js, &ok))
}

func (b *Browser) ScrollBy(ctx context.Context, px int) error {
	js := fmt.Sprintf(`
		(function() {
			%s
			const s = __sweepScroller(%q);
			s.scrollTop = s.scrollTop + (%d);
			return true;
		})()
	`, scrollContainerJS, extract.InvitationCard, px)

	var ok bool
	return b.run(ctx, chromedp.Evaluate(js, &ok))
}

func (b *Browser) Metrics(ctx context.Context) (Metrics, error) {
	js := fmt.Sprintf(`
		(function() {
			%s
			const s = __sweepScroller(%q);
			return { top: s.scrollTop, max: Math.max(0, s.scrollHeight - s.clientHeight) };
		})()
	`, scrollContainerJS, extract.InvitationCard)

	var m struct {
		Top float64 `json:"top"`
		Max float64 `json:"max"`
	}
	if err := b.run(ctx, chromedp.Evaluate(js, &m)); err != nil {
		return Metrics{}, err
	}
	return Metrics{Top: m.Top, Max: m.Max}, nil
}

func (b *Browser) ReportedTotal(ctx context.Context) (int, bool) {
	js := fmt.Sprintf(`
		(function() {
			const h = document.querySelector(%q);
			return h ? h.innerText : "";
		})()
	`, extract.HeaderCount)

	var text string
	if err := b.run(ctx, chromedp.Evaluate(js, &text)); err != nil {
		return 0, false
	}
	return extract.HeaderTotal(text)
}

func (b *Browser) PendingCount(ctx context.Context) (int, error) {
	js := fmt.Sprintf(`
		(function() {
			const badge = document.querySelector(%q);
			if (badge && badge.innerText.trim()) return badge.innerText;
			const h = document.querySelector(%q);
			return h ? h.innerText : "";
		})()
	`, extract.PendingBadge, extract.HeaderCount)

	var text string
	if err := b.run(ctx, chromedp.Evaluate(js, &text)); err != nil {
		return 0, fmt.Errorf("failed to read pending count: %w", err)
	}
	n, ok := extract.Count(text)
	if !ok {
		return 0, fmt.Errorf("no pending count found on page")
	}
	return n, nil
}

func (b *Browser) ScrollIntoView(ctx context.Context, index int) error {
	js := fmt.Sprintf(`
		(function() {
			const cards = document.querySelectorAll(%q);
			if (%d >= cards.length) return false;
			cards[%d].scrollIntoView({ block: 'center' });
			return true;
		})()
	`, extract.InvitationCard, index, index)

	var ok bool
	if err := b.run(ctx, chromedp.Evaluate(js, &ok)); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("card %d no longer present", index)
	}
	return nil
}

func (b *Browser) ClickWithdraw(ctx context.Context, index int) error {
	js := fmt.Sprintf(`
		(function() {
			const cards = document.querySelectorAll(%q);
			if (%d >= cards.length) return false;
			const btn = cards[%d].querySelector(%q);
			if (!btn) return false;
			btn.click();
			return true;
		})()
	`, extract.InvitationCard, index, index, extract.WithdrawButton)

	var ok bool
	if err := b.run(ctx, chromedp.Evaluate(js, &ok)); err != nil {
		return fmt.Errorf("failed to click withdraw: %w", err)
	}
	if !ok {
		return fmt.Errorf("withdraw control not found on card %d", index)
	}
	return nil
}

func (b *Browser) ConfirmAttempt(ctx context.Context) (bool, error) {
	js := fmt.Sprintf(`
		(function() {
			let btn = document.querySelector(%q);
			if (!btn) btn = document.querySelector(%q);
			if (!btn) return false;
			btn.click();
			return true;
		})()
	`, extract.ConfirmPrimary, extract.ConfirmFallback)

	var ok bool
	if err := b.run(ctx, chromedp.Evaluate(js, &ok)); err != nil {
		return false, err
	}
	return ok, nil
}

func (b *Browser) Highlight(ctx context.Context, index int) error {
	js := fmt.Sprintf(`
		(function() {
			const cards = document.querySelectorAll(%q);
			if (%d >= cards.length) return false;
			const card = cards[%d];
			card.scrollIntoView({ block: 'center' });
			card.style.outline = '3px solid #f5a623';
			card.style.transition = 'outline 0.3s';
			setTimeout(() => { card.style.outline = ''; }, 4000);
			return true;
		})()
	`, extract.InvitationCard, index, index)

	var ok bool
	if err := b.run(ctx, chromedp.Evaluate(js, &ok)); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("card %d no longer present", index)
	}
	b.log.Debug("highlighted card", zap.Int("index", index))
	return nil
}
