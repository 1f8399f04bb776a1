package store

import "time"

// Record is one withdrawn invitation.
type Record struct {
	Name        string    `json:"name"`
	ProfileURL  string    `json:"profile_url,omitempty"`
	WithdrawnAt time.Time `json:"withdrawn_at"`
	Age         string    `json:"age,omitempty"`
	RunID       string    `json:"run_id,omitempty"`
}

// Session groups the withdrawals of one calendar day.
type Session struct {
	Date    string   `json:"date"`
	Records []Record `json:"records"`
}
