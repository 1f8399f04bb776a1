package extract

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	parenCountRe = regexp.MustCompile(`\(([\d,]+)\)`)
	bareCountRe  = regexp.MustCompile(`[\d,]+`)
)

// HeaderTotal parses an advisory total out of header text like
// "People (1,100)". The value is used for progress percentages and an
// early-stop heuristic only, never as an authoritative count.
func HeaderTotal(text string) (int, bool) {
	m := parenCountRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// Count parses a bare displayed count, tolerating thousands separators and
// surrounding text ("1,204 pending").
func Count(text string) (int, bool) {
	digits := bareCountRe.FindString(text)
	if digits == "" {
		return 0, false
	}
	n, err := strconv.Atoi(strings.ReplaceAll(digits, ",", ""))
	if err != nil {
		return 0, false
	}
	return n, true
}
