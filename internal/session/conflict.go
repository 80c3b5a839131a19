package session

import (
	"github.com/oneany574/eduflow-calendar-hub/internal/calendar"
)

// ConflictQuery describes a candidate slot to check against existing sessions.
type ConflictQuery struct {
	Date      calendar.Date
	Start     calendar.TimeOfDay
	End       calendar.TimeOfDay
	Room      string
	ExcludeID string
}

// Conflicts returns the sessions in ss that clash with q: same date, not
// cancelled, not q.ExcludeID, overlapping time and exactly the same room.
// The result keeps the order of ss.
//
// q must describe a non-empty interval (End after Start).
func Conflicts(ss []Session, q ConflictQuery) []Session {
	var out []Session
	for _, s := range ss {
		if s.Status == StatusCancelled || (q.ExcludeID != "" && s.ID == q.ExcludeID) {
			continue
		}
		if s.Room != q.Room {
			continue
		}
		if s.Overlaps(q.Date, q.Start, q.End) {
			out = append(out, s.clone())
		}
	}
	return out
}

// conflictWith is the display string stored on a session for its first conflict.
func conflictWith(cs []Session) string {
	if len(cs) == 0 {
		return ""
	}
	return cs[0].Title
}
