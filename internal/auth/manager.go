package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"

	"github.com/sweeplab/invitesweep/internal/browser"
)

const (
	loginURL      = "https://www.linkedin.com/login"
	loggedInPath  = "/feed"
	loginTimeout  = 5 * time.Minute
	loginPollRate = 2 * time.Second
)

// Manager handles LinkedIn authentication
type Manager struct {
	cookieStore *CookieStore
}

// NewManager creates a new auth manager
func NewManager(cookieStore *CookieStore) *Manager {
	return &Manager{cookieStore: cookieStore}
}

// IsAuthenticated checks if we have valid stored credentials
func (m *Manager) IsAuthenticated() bool {
	return m.cookieStore.IsValid()
}

// Login opens a visible browser window for the user to log in to LinkedIn and
// extracts session cookies once the feed loads.
func (m *Manager) Login(ctx context.Context) error {
	opts := browser.Options(false) // headful: the user drives the login form

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	err := chromedp.Run(browserCtx,
		chromedp.Navigate(loginURL),
	)
	if err != nil {
		return fmt.Errorf("failed to navigate to login page: %w", err)
	}

	if err := m.waitForLogin(browserCtx); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	cookies, err := m.extractCookies(browserCtx)
	if err != nil {
		return fmt.Errorf("failed to extract cookies: %w", err)
	}

	if err := m.cookieStore.Save(cookies); err != nil {
		return fmt.Errorf("failed to save cookies: %w", err)
	}

	return nil
}

// waitForLogin polls until the user has successfully logged in
func (m *Manager) waitForLogin(ctx context.Context) error {
	timeout := time.After(loginTimeout)
	ticker := time.NewTicker(loginPollRate)
	defer ticker.Stop()

	for {
		select {
		case <-timeout:
			return fmt.Errorf("login timeout exceeded")
		case <-ticker.C:
			var url string
			err := chromedp.Run(ctx,
				chromedp.Location(&url),
			)
			if err != nil {
				continue
			}

			// Landing on the feed indicates a successful login
			if strings.Contains(url, loggedInPath) {
				// Additional check: verify the session cookie exists
				cookies, err := m.extractCookies(ctx)
				if err != nil {
					continue
				}
				for _, c := range cookies {
					if c.Name == sessionCookie && c.Value != "" {
						return nil
					}
				}
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// extractCookies gets all cookies from the browser
func (m *Manager) extractCookies(ctx context.Context) ([]*network.Cookie, error) {
	var cookies []*network.Cookie

	err := chromedp.Run(ctx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			cookies, err = storage.GetCookies().Do(ctx)
			return err
		}),
	)

	return cookies, err
}

// Logout clears stored credentials
func (m *Manager) Logout() error {
	return m.cookieStore.Clear()
}

// GetCookies returns the stored cookies for use in scraping
func (m *Manager) GetCookies() ([]*network.Cookie, error) {
	return m.cookieStore.GetSessionCookies()
}
