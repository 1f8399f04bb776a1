// Package report carries progress and completion notifications out of the
// engine. Delivery is strictly best-effort: a reporter must never fail the
// run, so the interface has no error returns and implementations swallow
// their own delivery problems.
package report

import (
	"go.uber.org/zap"

	"github.com/sweeplab/invitesweep/internal/invites"
)

// ScrollProgress is emitted while the scroll driver loads the list.
type ScrollProgress struct {
	Progress     int    `json:"progress"` // 0-100
	Found        int    `json:"found"`    // items loaded so far
	Total        int    `json:"total"`    // advisory total estimate
	Text         string `json:"text"`
	FoundMatches int    `json:"foundMatches"` // mode-dependent match count
}

// ClearedItem describes the invitation most recently withdrawn.
type ClearedItem struct {
	Name       string `json:"name"`
	ProfileURL string `json:"profileUrl,omitempty"`
	Age        string `json:"age,omitempty"`
}

// Status is emitted after every state transition that changes observable
// progress.
type Status struct {
	Text           string          `json:"text"`
	Progress       int             `json:"progress"` // 0-100
	Cleared        *ClearedItem    `json:"clearedData,omitempty"`
	PartialResults []invites.Group `json:"partialResults,omitempty"`
}

// Stats summarizes a finished run.
type Stats struct {
	RunID     string `json:"runId"`
	Cleared   int    `json:"cleared"`
	Oldest    string `json:"oldest,omitempty"`
	Remaining int    `json:"remaining"`
	Target    int    `json:"target"`
}

// Reporter receives engine notifications. Implementations must be safe to
// call with no listener attached.
type Reporter interface {
	ScrollProgress(p ScrollProgress)
	ScrollComplete(count int)
	Status(s Status)
	ScanComplete(groups []invites.Group, totalScanned int)
	Completed(stats Stats, message string)
}

// Nop returns a reporter that drops everything.
func Nop() Reporter { return nopReporter{} }

type nopReporter struct{}

func (nopReporter) ScrollProgress(ScrollProgress)          {}
func (nopReporter) ScrollComplete(int)                     {}
func (nopReporter) Status(Status)                          {}
func (nopReporter) ScanComplete([]invites.Group, int)      {}
func (nopReporter) Completed(Stats, string)                {}

// Log returns a reporter that writes notifications to a zap logger.
func Log(l *zap.Logger) Reporter { return &logReporter{l: l} }

type logReporter struct {
	l *zap.Logger
}

func (r *logReporter) ScrollProgress(p ScrollProgress) {
	r.l.Debug("scroll progress",
		zap.Int("progress", p.Progress),
		zap.Int("found", p.Found),
		zap.Int("total", p.Total),
		zap.Int("found_matches", p.FoundMatches))
}

func (r *logReporter) ScrollComplete(count int) {
	r.l.Info("scroll complete", zap.Int("count", count))
}

func (r *logReporter) Status(s Status) {
	fields := []zap.Field{zap.Int("progress", s.Progress)}
	if s.Cleared != nil {
		fields = append(fields, zap.String("cleared", s.Cleared.Name))
	}
	r.l.Info(s.Text, fields...)
}

func (r *logReporter) ScanComplete(groups []invites.Group, totalScanned int) {
	r.l.Info("scan complete",
		zap.Int("groups", len(groups)),
		zap.Int("total_scanned", totalScanned))
}

func (r *logReporter) Completed(stats Stats, message string) {
	r.l.Info(message,
		zap.String("run_id", stats.RunID),
		zap.Int("cleared", stats.Cleared),
		zap.Int("remaining", stats.Remaining),
		zap.String("oldest", stats.Oldest))
}

// Multi fans notifications out to several reporters.
func Multi(reporters ...Reporter) Reporter { return multiReporter(reporters) }

type multiReporter []Reporter

func (m multiReporter) ScrollProgress(p ScrollProgress) {
	for _, r := range m {
		r.ScrollProgress(p)
	}
}

func (m multiReporter) ScrollComplete(count int) {
	for _, r := range m {
		r.ScrollComplete(count)
	}
}

func (m multiReporter) Status(s Status) {
	for _, r := range m {
		r.Status(s)
	}
}

func (m multiReporter) ScanComplete(groups []invites.Group, totalScanned int) {
	for _, r := range m {
		r.ScanComplete(groups, totalScanned)
	}
}

func (m multiReporter) Completed(stats Stats, message string) {
	for _, r := range m {
		r.Completed(stats, message)
	}
}
