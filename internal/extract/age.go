package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/sweeplab/invitesweep/internal/invites"
)

var (
	yesterdayRe = regexp.MustCompile(`(?i)\bsent\s+yesterday\b|^yesterday\b`)
	agoRe       = regexp.MustCompile(`(?i)(?:sent\s+)?\b(\d+|an?)\s+(second|minute|hour|day|week|month|year)s?\s+ago\b`)
)

// ParseAge parses the free-text age badge of an invitation. "Sent yesterday"
// is a one-day special case; otherwise the text must look like
// "[sent] (<N>|a|an) <unit>[s] ago". Unrecognized text yields nil, which
// callers treat as unsafe and as a processing-stop signal.
func ParseAge(text string) *invites.Age {
	t := strings.TrimSpace(text)
	if t == "" {
		return nil
	}

	if yesterdayRe.MatchString(t) {
		return &invites.Age{Value: 1, Unit: invites.Day, Display: t}
	}

	m := agoRe.FindStringSubmatch(t)
	if m == nil {
		return nil
	}

	value := 1
	if q := strings.ToLower(m[1]); q != "a" && q != "an" {
		n, err := strconv.Atoi(q)
		if err != nil {
			return nil
		}
		value = n
	}

	return &invites.Age{
		Value:   value,
		Unit:    invites.Unit(strings.ToLower(m[2])),
		Display: t,
	}
}
