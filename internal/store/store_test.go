package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, maxSessions int) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "history.db"), maxSessions)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func day(offset int) time.Time {
	return time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
}

func TestSessionDate(t *testing.T) {
	assert.Equal(t, "2026-08-01", SessionDate(day(0)))
	assert.Equal(t, "2026-08-31", SessionDate(day(30)))
}

func TestAddWithdrawalMergesSameDay(t *testing.T) {
	s := newTestStore(t, 0)

	at := day(0)
	require.NoError(t, s.AddWithdrawal(Record{Name: "Ana Ruiz", WithdrawnAt: at, RunID: "r1"}))
	require.NoError(t, s.AddWithdrawal(Record{Name: "Bo Chen", WithdrawnAt: at.Add(2 * time.Hour), RunID: "r2"}))

	n, err := s.SessionCount()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	sessions, err := s.Sessions(0)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "2026-08-01", sessions[0].Date)
	require.Len(t, sessions[0].Records, 2)
	assert.Equal(t, "Ana Ruiz", sessions[0].Records[0].Name)
	assert.Equal(t, "Bo Chen", sessions[0].Records[1].Name)
	assert.Equal(t, "r2", sessions[0].Records[1].RunID)
}

func TestAddWithdrawalEvictsOldestSessions(t *testing.T) {
	s := newTestStore(t, 3)

	for i := 0; i < 5; i++ {
		require.NoError(t, s.AddWithdrawal(Record{Name: "Someone", WithdrawnAt: day(i)}))
	}

	n, err := s.SessionCount()
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	sessions, err := s.Sessions(0)
	require.NoError(t, err)
	require.Len(t, sessions, 3)
	assert.Equal(t, "2026-08-05", sessions[0].Date)
	assert.Equal(t, "2026-08-04", sessions[1].Date)
	assert.Equal(t, "2026-08-03", sessions[2].Date)

	// Evicted sessions take their withdrawal rows with them.
	for _, sess := range sessions {
		assert.Len(t, sess.Records, 1)
	}
}

func TestSessionsHonorsLimit(t *testing.T) {
	s := newTestStore(t, 10)

	for i := 0; i < 4; i++ {
		require.NoError(t, s.AddWithdrawal(Record{Name: "Someone", WithdrawnAt: day(i)}))
	}

	sessions, err := s.Sessions(2)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "2026-08-04", sessions[0].Date)
	assert.Equal(t, "2026-08-03", sessions[1].Date)
}

func TestAddWithdrawalDefaultsTimestamp(t *testing.T) {
	s := newTestStore(t, 0)

	require.NoError(t, s.AddWithdrawal(Record{Name: "Ana Ruiz"}))

	sessions, err := s.Sessions(0)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	require.Len(t, sessions[0].Records, 1)
	assert.False(t, sessions[0].Records[0].WithdrawnAt.IsZero())
	assert.Equal(t, SessionDate(time.Now()), sessions[0].Date)
}
