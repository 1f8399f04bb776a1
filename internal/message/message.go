// Package message normalizes invitation note text and hashes it into stable
// grouping keys, so two notes differing only in greeting name or dollar amount
// land in the same bucket.
package message

import (
	"regexp"
	"strconv"
	"strings"
)

// AmountPlaceholder replaces currency amounts during normalization.
const AmountPlaceholder = "[AMOUNT]"

var (
	// Leading greeting plus whatever it addresses, up to the first
	// delimiter: "Hi John," / "Dear Dr. Smith:" / "Good morning Ana!".
	greetingRe = regexp.MustCompile(`^(?i:hi|hello|hey|dear|good\s+morning|good\s+afternoon|good\s+evening)[^,:!]{0,40}[,:!]\s*`)

	// Dollar amounts with optional thousands separators and decimals.
	amountRe = regexp.MustCompile(`\$\d+(?:,\d{3})*(?:\.\d+)?`)
)

// Normalize strips a leading greeting and replaces every currency amount with
// a fixed placeholder.
func Normalize(text string) string {
	s := strings.TrimSpace(text)
	s = greetingRe.ReplaceAllString(s, "")
	s = amountRe.ReplaceAllString(s, AmountPlaceholder)
	return strings.TrimSpace(s)
}

// Hash computes a deterministic 32-bit rolling hash of text, rendered in
// decimal. It is a grouping convenience only: collisions are acceptable, and
// it carries no uniqueness or security guarantee.
func Hash(text string) string {
	var h int32
	for _, r := range text {
		h = h<<5 - h + int32(r)
	}
	return strconv.FormatInt(int64(h), 10)
}

// Matches reports whether a message matches any configured pattern. The
// normalized message is checked against normalized patterns, and the raw
// message against raw patterns, so patterns that are themselves greetings
// still match.
func Matches(raw, normalized string, patterns []string) bool {
	lowerRaw := strings.ToLower(raw)
	lowerNorm := strings.ToLower(normalized)
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if np := strings.ToLower(Normalize(p)); np != "" && strings.Contains(lowerNorm, np) {
			return true
		}
		if strings.Contains(lowerRaw, strings.ToLower(p)) {
			return true
		}
	}
	return false
}
