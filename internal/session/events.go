package session

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/oneany574/eduflow-calendar-hub/internal/attendance"
	"github.com/oneany574/eduflow-calendar-hub/internal/calendar"
	"github.com/oneany574/eduflow-calendar-hub/internal/queue"
)

// Event types published on the queue.
const (
	EventCreated         = "session.created"
	EventUpdated         = "session.updated"
	EventDeleted         = "session.deleted"
	EventStarted         = "session.started"
	EventEnded           = "session.ended"
	EventCancelled       = "session.cancelled"
	EventRescheduled     = "session.rescheduled"
	EventAttendanceSaved = "attendance.saved"
)

// SessionEvent is the body of every session.* message.
type SessionEvent struct {
	SessionID string        `json:"session_id"`
	Title     string        `json:"title"`
	Status    Status        `json:"status"`
	Date      calendar.Date `json:"date"`
	Room      string        `json:"room"`
	Conflicts int           `json:"conflicts"`
	At        time.Time     `json:"at"`
}

// AttendanceEvent is the body of attendance.saved messages.
type AttendanceEvent struct {
	SessionID string             `json:"session_id"`
	Summary   attendance.Summary `json:"summary"`
	At        time.Time          `json:"at"`
}

func newSessionEvent(s Session, conflicts int, at time.Time) SessionEvent {
	return SessionEvent{
		SessionID: s.ID,
		Title:     s.Title,
		Status:    s.Status,
		Date:      s.Date,
		Room:      s.Room,
		Conflicts: conflicts,
		At:        at.UTC(),
	}
}

// NewMessage encodes body as the payload of a typ message.
func NewMessage(typ string, body interface{}) (queue.Message, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return queue.Message{}, errors.Wrapf(err, "encoding %s", typ)
	}
	return queue.Message{Type: typ, Body: b}, nil
}
