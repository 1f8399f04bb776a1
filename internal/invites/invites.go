// Package invites holds the domain model for pending-invitation entries:
// list items derived from the live page, run configuration, and scan groups.
package invites

// UnknownName is the sentinel used when no extraction strategy yields a name.
const UnknownName = "Unknown"

// Unit is a time unit attached to an invitation age or a threshold.
type Unit string

const (
	Second Unit = "second"
	Minute Unit = "minute"
	Hour   Unit = "hour"
	Day    Unit = "day"
	Week   Unit = "week"
	Month  Unit = "month"
	Year   Unit = "year"
)

// unitDays maps each unit to whole days. Sub-day units count as zero days so
// that day-granularity threshold comparisons treat "5 hours ago" as today.
var unitDays = map[Unit]int{
	Year:   365,
	Month:  30,
	Week:   7,
	Day:    1,
	Hour:   0,
	Minute: 0,
	Second: 0,
}

// unitMonths maps each unit to months, with weeks approximated as a quarter
// month. Used by the safety floor.
var unitMonths = map[Unit]float64{
	Year:   12,
	Month:  1,
	Week:   0.25,
	Day:    1.0 / 30.0,
	Hour:   0,
	Minute: 0,
	Second: 0,
}

// unitSeconds maps each unit to seconds, for recency sorting of scan groups.
var unitSeconds = map[Unit]int64{
	Year:   365 * 24 * 3600,
	Month:  30 * 24 * 3600,
	Week:   7 * 24 * 3600,
	Day:    24 * 3600,
	Hour:   3600,
	Minute: 60,
	Second: 1,
}

// Age is how long ago an invitation was sent, as parsed from the page's
// free-text badge ("Sent 3 weeks ago").
type Age struct {
	Value   int    `json:"value"`
	Unit    Unit   `json:"unit"`
	Display string `json:"display"`
}

// Days converts the age to whole days.
func (a Age) Days() int { return a.Value * unitDays[a.Unit] }

// Months converts the age to fractional months.
func (a Age) Months() float64 { return float64(a.Value) * unitMonths[a.Unit] }

// Seconds converts the age to seconds.
func (a Age) Seconds() int64 { return int64(a.Value) * unitSeconds[a.Unit] }

// Threshold is a configured value+unit pair (age threshold or safe floor).
type Threshold struct {
	Value int  `json:"value"`
	Unit  Unit `json:"unit"`
}

// Days converts the threshold to whole days.
func (t Threshold) Days() int { return t.Value * unitDays[t.Unit] }

// Months converts the threshold to fractional months.
func (t Threshold) Months() float64 { return float64(t.Value) * unitMonths[t.Unit] }

// Item is one invitation entry re-derived from the live list on every polling
// cycle. It has no durable identity; Index is only valid against the snapshot
// it came from.
type Item struct {
	Index             int    `json:"index"`
	DisplayName       string `json:"display_name"`
	ProfileURL        string `json:"profile_url,omitempty"`
	Age               *Age   `json:"age,omitempty"`
	RawMessage        string `json:"raw_message,omitempty"`
	NormalizedMessage string `json:"normalized_message"`
	ContentHash       string `json:"content_hash"`
	PersonID          string `json:"person_id"`
}

// Mode selects which invitations a run targets.
type Mode string

const (
	ModeCount   Mode = "count"   // first N, oldest first
	ModeAge     Mode = "age"     // everything at least as old as a threshold
	ModeMessage Mode = "message" // everything whose message matches a pattern

	// ModeSelected is the internal mode of the withdraw-selected flow:
	// only items whose content hash is in RunConfig.SelectedHashes.
	ModeSelected Mode = "selected"
)

// RunConfig is fixed for the duration of one run. MessagePatterns is the one
// exception: it may be hot-swapped mid-run through the engine.
type RunConfig struct {
	Mode            Mode      `json:"mode"`
	TargetCount     int       `json:"target_count"`
	AgeThreshold    Threshold `json:"age_threshold"`
	MessagePatterns []string  `json:"message_patterns"`
	SafeMode        bool      `json:"safe_mode"`
	SafeThreshold   Threshold `json:"safe_threshold"`

	// SelectedHashes restricts a run to items whose content hash is in the
	// set. Used by the withdraw-selected flow; empty means no restriction.
	SelectedHashes map[string]bool `json:"-"`
}

// Person is one group member in a scan result.
type Person struct {
	Name       string `json:"name"`
	Age        string `json:"age"`
	ProfileURL string `json:"profile_url,omitempty"`
	PersonID   string `json:"person_id"`
}

// Group buckets items whose normalized message hashes identically. Groups are
// rebuilt from scratch on every scan, never patched incrementally.
type Group struct {
	ContentHash       string   `json:"content_hash"`
	NormalizedMessage string   `json:"normalized_message"`
	FullMessageSample string   `json:"full_message_sample"`
	Count             int      `json:"count"`
	MinAgeSeconds     int64    `json:"min_age_seconds"`
	People            []Person `json:"people"`
}
