// Package extract derives structured invitation items from raw list-card HTML.
// Every function is a pure read over a fragment: a missing element is a soft
// miss that falls back to a default, never an error.
package extract

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/sweeplab/invitesweep/internal/invites"
	"github.com/sweeplab/invitesweep/internal/message"
)

const (
	minNameLen = 2
	maxNameLen = 49
)

var profilePictureAltRe = regexp.MustCompile(`^(.{1,100}?)['’]s profile picture`)

// nameStrategy is one way of digging a display name out of a card. Strategies
// are tried in order; the first non-empty, length-bounded result wins. New
// fallbacks are additive: append here when LinkedIn moves the name again.
type nameStrategy struct {
	name string
	fn   func(*goquery.Selection) string
}

var nameStrategies = []nameStrategy{
	{"title-link", func(s *goquery.Selection) string {
		return s.Find(ProfileTitleLink).First().Text()
	}},
	{"any-profile-link", func(s *goquery.Selection) string {
		return s.Find(ProfileLink).First().Text()
	}},
	{"image-alt", func(s *goquery.Selection) string {
		alt, _ := s.Find(ProfilePicture).First().Attr("alt")
		if m := profilePictureAltRe.FindStringSubmatch(alt); m != nil {
			return m[1]
		}
		return ""
	}},
	{"figure-aria", func(s *goquery.Selection) string {
		label, _ := s.Find(ProfileFigure).First().Attr("aria-label")
		if m := profilePictureAltRe.FindStringSubmatch(label); m != nil {
			return m[1]
		}
		return ""
	}},
}

// Item parses one invitation card's outer HTML into a domain item. index is
// the card's position in the snapshot the HTML came from.
func Item(index int, html string) invites.Item {
	item := invites.Item{Index: index, DisplayName: invites.UnknownName}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		item.ContentHash = message.Hash("")
		item.PersonID = message.Hash(invites.UnknownName)
		return item
	}
	root := doc.Selection

	item.DisplayName = extractName(root)
	item.ProfileURL = extractProfileURL(root)
	item.Age = ParseAge(root.Find(TimeBadge).First().Text())
	item.RawMessage = extractMessage(root)
	item.NormalizedMessage = message.Normalize(item.RawMessage)
	item.ContentHash = message.Hash(item.NormalizedMessage)
	item.PersonID = message.Hash(item.ProfileURL + item.DisplayName + item.NormalizedMessage)

	return item
}

func extractName(root *goquery.Selection) string {
	for _, strat := range nameStrategies {
		name := strings.TrimSpace(strat.fn(root))
		if len(name) >= minNameLen && len(name) <= maxNameLen {
			return name
		}
	}
	return invites.UnknownName
}

// extractProfileURL canonicalizes the first profile link to origin+path,
// dropping the query string and fragment.
func extractProfileURL(root *goquery.Selection) string {
	href, ok := root.Find(ProfileLink).First().Attr("href")
	if !ok {
		return ""
	}
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

// extractMessage pulls the custom note, dropping the embedded "see more"
// control text and a trailing ellipsis.
func extractMessage(root *goquery.Selection) string {
	sel := root.Find(CustomMessage).First()
	if sel.Length() == 0 {
		return ""
	}
	sel.Find(SeeMoreControl).Remove()

	text := strings.TrimSpace(sel.Text())
	text = strings.TrimSuffix(text, "…")
	text = strings.TrimSuffix(text, "...")
	return strings.TrimSpace(text)
}

// Items parses a full snapshot of card HTML fragments in order.
func Items(htmls []string) []invites.Item {
	items := make([]invites.Item, 0, len(htmls))
	for i, h := range htmls {
		items = append(items, Item(i, h))
	}
	return items
}
