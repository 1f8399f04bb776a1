package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "greeting and amount",
			in:   "Hi John, thanks for connecting, I have $1,000 to invest",
			want: "thanks for connecting, I have [AMOUNT] to invest",
		},
		{
			name: "greeting with colon",
			in:   "Dear Dr. Smith: I enjoyed your talk",
			want: "I enjoyed your talk",
		},
		{
			name: "multi word greeting",
			in:   "Good morning Ana! Let's catch up",
			want: "Let's catch up",
		},
		{
			name: "no greeting",
			in:   "Would love to connect about the role",
			want: "Would love to connect about the role",
		},
		{
			name: "decimal amount",
			in:   "We raised $2,500,000.50 last round",
			want: "We raised [AMOUNT] last round",
		},
		{
			name: "greeting word mid sentence untouched",
			in:   "I wanted to say hi after the conference",
			want: "I wanted to say hi after the conference",
		},
		{
			name: "whitespace only",
			in:   "   ",
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalizeGroupsEquivalentNotes(t *testing.T) {
	a := Normalize("Hi John, I have $500 for your fund")
	b := Normalize("Hello Maria, I have $10,000 for your fund")
	assert.Equal(t, a, b)
	assert.Equal(t, Hash(a), Hash(b))
}

func TestHash(t *testing.T) {
	assert.Equal(t, "0", Hash(""))
	assert.Equal(t, Hash("same text"), Hash("same text"))
	assert.NotEqual(t, Hash("same text"), Hash("other text"))

	// Matches the JS-style (h<<5)-h+code rolling hash, including the
	// negative range of int32 overflow.
	assert.Equal(t, "99162322", Hash("hello"))
}

func TestMatches(t *testing.T) {
	raw := "Hi Sam, I'm hiring for a Backend Engineer role"
	norm := Normalize(raw)

	assert.True(t, Matches(raw, norm, []string{"backend engineer"}))
	assert.True(t, Matches(raw, norm, []string{"nope", "HIRING"}))
	assert.False(t, Matches(raw, norm, []string{"frontend"}))
	assert.False(t, Matches(raw, norm, nil))
	assert.False(t, Matches(raw, norm, []string{"", "   "}))

	// A pattern that is itself a greeting only matches against the raw text.
	assert.True(t, Matches(raw, norm, []string{"Hi Sam"}))
	assert.False(t, Matches("Hello Pat, good to meet you", Normalize("Hello Pat, good to meet you"), []string{"Hi Sam"}))
}
