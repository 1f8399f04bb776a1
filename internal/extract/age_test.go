package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeplab/invitesweep/internal/invites"
)

func TestParseAge(t *testing.T) {
	tests := []struct {
		in    string
		value int
		unit  invites.Unit
	}{
		{"Sent 3 weeks ago", 3, invites.Week},
		{"Sent 1 month ago", 1, invites.Month},
		{"Sent a month ago", 1, invites.Month},
		{"Sent an hour ago", 1, invites.Hour},
		{"2 days ago", 2, invites.Day},
		{"Sent yesterday", 1, invites.Day},
		{"Yesterday", 1, invites.Day},
		{"Sent 14 minutes ago", 14, invites.Minute},
		{"  Sent 1 year ago  ", 1, invites.Year},
		{"SENT 2 MONTHS AGO", 2, invites.Month},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			age := ParseAge(tt.in)
			require.NotNil(t, age)
			assert.Equal(t, tt.value, age.Value)
			assert.Equal(t, tt.unit, age.Unit)
		})
	}
}

func TestParseAgeUnrecognized(t *testing.T) {
	for _, in := range []string{"", "   ", "just now", "Sent recently", "ago", "3 fortnights ago"} {
		assert.Nil(t, ParseAge(in), "input %q", in)
	}
}

func TestParseAgeKeepsDisplay(t *testing.T) {
	age := ParseAge("Sent 3 weeks ago")
	require.NotNil(t, age)
	assert.Equal(t, "Sent 3 weeks ago", age.Display)
	assert.Equal(t, 21, age.Days())
}
