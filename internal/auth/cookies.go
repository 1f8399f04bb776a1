package auth

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/network"

	"github.com/sweeplab/invitesweep/internal/config"
)

// Cookie names LinkedIn requires for an authenticated session.
const (
	sessionCookie = "li_at"
	csrfCookie    = "JSESSIONID"
)

// CookieStore handles storage of LinkedIn session cookies
type CookieStore struct {
	path string
}

// StoredCookies represents the persisted cookie data
type StoredCookies struct {
	Cookies    []*network.Cookie `json:"cookies"`
	CapturedAt time.Time         `json:"captured_at"`
	ExpiresAt  time.Time         `json:"expires_at"`
}

// NewCookieStore creates a cookie store at the given path
func NewCookieStore(path string) *CookieStore {
	return &CookieStore{path: path}
}

// DefaultCookieStorePath returns the default path for cookie storage
func DefaultCookieStorePath() (string, error) {
	configDir, err := config.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "cookies.json"), nil
}

// Save persists cookies to disk
// TODO: Encrypt cookies at rest
func (cs *CookieStore) Save(cookies []*network.Cookie) error {
	dir := filepath.Dir(cs.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	// Find the earliest expiration among auth-related cookies
	var earliestExpiry time.Time
	for _, c := range cookies {
		if c.Name == sessionCookie || c.Name == csrfCookie {
			exp := time.Unix(int64(c.Expires), 0)
			if earliestExpiry.IsZero() || exp.Before(earliestExpiry) {
				earliestExpiry = exp
			}
		}
	}

	stored := StoredCookies{
		Cookies:    cookies,
		CapturedAt: time.Now(),
		ExpiresAt:  earliestExpiry,
	}

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(cs.path, data, 0600)
}

// Load retrieves cookies from disk
func (cs *CookieStore) Load() (*StoredCookies, error) {
	data, err := os.ReadFile(cs.path)
	if err != nil {
		return nil, err
	}

	var stored StoredCookies
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, err
	}

	return &stored, nil
}

// IsValid checks if stored cookies are still valid
func (cs *CookieStore) IsValid() bool {
	stored, err := cs.Load()
	if err != nil {
		return false
	}

	// Check if cookies have expired
	if !stored.ExpiresAt.IsZero() && time.Now().After(stored.ExpiresAt) {
		return false
	}

	// Check for the session cookie
	for _, c := range stored.Cookies {
		if c.Name == sessionCookie && c.Value != "" {
			return true
		}
	}

	return false
}

// Clear removes stored cookies
func (cs *CookieStore) Clear() error {
	return os.Remove(cs.path)
}

// GetSessionCookies returns only the linkedin.com cookies for use in scraping
func (cs *CookieStore) GetSessionCookies() ([]*network.Cookie, error) {
	stored, err := cs.Load()
	if err != nil {
		return nil, err
	}

	var cookies []*network.Cookie
	for _, c := range stored.Cookies {
		if c.Domain == ".linkedin.com" || c.Domain == "linkedin.com" || c.Domain == ".www.linkedin.com" {
			cookies = append(cookies, c)
		}
	}

	return cookies, nil
}
