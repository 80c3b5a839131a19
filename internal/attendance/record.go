package attendance

import (
	"math"

	"github.com/oneany574/eduflow-calendar-hub/internal/calendar"
)

// Status is a student's presence for one session.
type Status string

const (
	Present Status = "present"
	Absent  Status = "absent"
	Late    Status = "late"
	Excused Status = "excused"
)

// Statuses lists every status in toggle order.
var Statuses = []Status{Present, Absent, Late, Excused}

func (s Status) Valid() bool {
	switch s {
	case Present, Absent, Late, Excused:
		return true
	}
	return false
}

// Next returns the status after s in toggle order, wrapping around.
func (s Status) Next() Status {
	for i, st := range Statuses {
		if st == s {
			return Statuses[(i+1)%len(Statuses)]
		}
	}
	return Present
}

// Entry is anything carrying an attendance status.
type Entry interface {
	AttendanceStatus() Status
}

// Record is a student's attendance for a session.
type Record struct {
	StudentID   string `json:"student_id" validate:"required"`
	StudentName string `json:"student_name"`
	Status      Status `json:"status" validate:"required,oneof=present absent late excused"`
}

func (r Record) AttendanceStatus() Status { return r.Status }

// DetailedRecord is the richer record shape with check-in details.
type DetailedRecord struct {
	Record
	CheckIn      *calendar.TimeOfDay `json:"check_in,omitempty"`
	CheckOut     *calendar.TimeOfDay `json:"check_out,omitempty"`
	MinutesLate  int                 `json:"minutes_late,omitempty" validate:"gte=0"`
	ExcuseReason string              `json:"excuse_reason,omitempty"`
}

// HistoryEntry is one day of a student's attendance history.
type HistoryEntry struct {
	Date      calendar.Date `json:"date"`
	Status    Status        `json:"status"`
	SessionID string        `json:"session_id"`
}

func (h HistoryEntry) AttendanceStatus() Status { return h.Status }

// Summary holds per-status counts and the attendance rate in percent.
type Summary struct {
	Present int `json:"present"`
	Absent  int `json:"absent"`
	Late    int `json:"late"`
	Excused int `json:"excused"`
	Total   int `json:"total"`
	Rate    int `json:"rate"`
}

// Summarize counts entries per status. Entries with an unknown status are ignored.
func Summarize[E Entry](entries []E) Summary {
	var sum Summary
	for _, e := range entries {
		switch e.AttendanceStatus() {
		case Present:
			sum.Present++
		case Absent:
			sum.Absent++
		case Late:
			sum.Late++
		case Excused:
			sum.Excused++
		default:
			continue
		}
		sum.Total++
	}
	sum.Rate = Rate(sum.Present, sum.Total)
	return sum
}

// Rate returns round(present/total*100), or 0 when total is 0.
func Rate(present, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(present) / float64(total) * 100))
}

// ByDate maps each day to its status, keeping the last entry per day.
// A non-empty filter other than "all" keeps only that status.
func ByDate(entries []HistoryEntry, filter string) map[calendar.Date]Status {
	out := make(map[calendar.Date]Status, len(entries))
	for _, e := range entries {
		if filter == "" || filter == "all" || Status(filter) == e.Status {
			out[e.Date] = e.Status
		}
	}
	return out
}

// MarkAll returns a copy of records with every status set to st.
func MarkAll(records []Record, st Status) []Record {
	out := make([]Record, len(records))
	for i, r := range records {
		r.Status = st
		out[i] = r
	}
	return out
}
