package session

import (
	"time"

	"github.com/pkg/errors"

	"github.com/oneany574/eduflow-calendar-hub/internal/calendar"
)

var (
	// errors
	ErrNotFound          = errors.New("session not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidInterval   = errors.New("end time must be after start time")
)

// Status is a session's lifecycle state.
type Status string

const (
	StatusScheduled   Status = "scheduled"
	StatusInProgress  Status = "in-progress"
	StatusCompleted   Status = "completed"
	StatusCancelled   Status = "cancelled"
	StatusRescheduled Status = "rescheduled"
)

// Level is the difficulty of a session.
type Level string

const (
	LevelBeginner     Level = "Beginner"
	LevelIntermediate Level = "Intermediate"
	LevelAdvanced     Level = "Advanced"
)

// transitions lists the statuses reachable from each status through start/end/cancel.
var transitions = map[Status][]Status{
	StatusScheduled:   {StatusInProgress, StatusCancelled},
	StatusRescheduled: {StatusInProgress, StatusCancelled},
	StatusInProgress:  {StatusCompleted, StatusCancelled},
}

// CanTransition reports whether a session in s may move to next.
func (s Status) CanTransition(next Status) bool {
	for _, st := range transitions[s] {
		if st == next {
			return true
		}
	}
	return false
}

// Reschedulable reports whether a session in s may be moved to another slot.
func (s Status) Reschedulable() bool {
	switch s {
	case StatusScheduled, StatusCancelled, StatusRescheduled:
		return true
	}
	return false
}

// Resource is a link attached to a session.
type Resource struct {
	Name string `json:"name" validate:"required"`
	URL  string `json:"url" validate:"required,url"`
}

// Session is a single scheduled class meeting.
type Session struct {
	ID           string             `json:"id"`
	Title        string             `json:"title"`
	Description  string             `json:"description"`
	Status       Status             `json:"status"`
	Date         calendar.Date      `json:"date"`
	StartTime    calendar.TimeOfDay `json:"start_time"`
	EndTime      calendar.TimeOfDay `json:"end_time"`
	Section      string             `json:"section"`
	Room         string             `json:"room"`
	Topic        string             `json:"topic"`
	StudentCount int                `json:"student_count"`
	Instructor   string             `json:"instructor"`
	Module       string             `json:"module"`
	Level        Level              `json:"level"`
	ConflictWith string             `json:"conflict_with,omitempty"` // display only
	Resources    []Resource         `json:"resources,omitempty"`
	CreatedAt    time.Time          `json:"created_at"` // UTC
	UpdatedAt    time.Time          `json:"updated_at"` // UTC
}

// Duration is the scheduled length of the session.
func (s Session) Duration() time.Duration {
	return s.EndTime.Sub(s.StartTime)
}

// Overlaps reports whether s is on date and its half-open interval
// [StartTime, EndTime) intersects [start, end).
func (s Session) Overlaps(date calendar.Date, start, end calendar.TimeOfDay) bool {
	return s.Date == date && start < s.EndTime && end > s.StartTime
}

// clone copies s so that callers cannot share the Resources backing array.
func (s Session) clone() Session {
	if s.Resources != nil {
		s.Resources = append([]Resource(nil), s.Resources...)
	}
	return s
}
