package session

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/oneany574/eduflow-calendar-hub/internal/calendar"
	"github.com/oneany574/eduflow-calendar-hub/internal/validation"
)

// NewSession contains information needed to create a new Session.
type NewSession struct {
	Title        string     `json:"title" validate:"required"`
	Description  string     `json:"description"`
	Date         string     `json:"date" validate:"required,date"`
	StartTime    string     `json:"start_time" validate:"required,clock"`
	EndTime      string     `json:"end_time" validate:"required,clock"`
	Section      string     `json:"section"`
	Room         string     `json:"room" validate:"required"`
	Topic        string     `json:"topic"`
	StudentCount int        `json:"student_count" validate:"gte=0"`
	Instructor   string     `json:"instructor"`
	Module       string     `json:"module"`
	Level        Level      `json:"level" validate:"omitempty,oneof=Beginner Intermediate Advanced"`
	Resources    []Resource `json:"resources" validate:"omitempty,dive"`
}

func (ns *NewSession) clean() {
	ns.Title = strings.TrimSpace(ns.Title)
	ns.Room = strings.TrimSpace(ns.Room)
	ns.Date = strings.TrimSpace(ns.Date)
	ns.StartTime = strings.TrimSpace(ns.StartTime)
	ns.EndTime = strings.TrimSpace(ns.EndTime)
	if ns.Level == "" {
		ns.Level = LevelIntermediate
	}
}

// UpdateSession defines what information may be provided to modify an existing Session.
// Nil fields are left unchanged. Status changes go through the lifecycle actions instead.
type UpdateSession struct {
	Title        *string    `json:"title" validate:"omitempty,min=1"`
	Description  *string    `json:"description"`
	Date         *string    `json:"date" validate:"omitempty,date"`
	StartTime    *string    `json:"start_time" validate:"omitempty,clock"`
	EndTime      *string    `json:"end_time" validate:"omitempty,clock"`
	Section      *string    `json:"section"`
	Room         *string    `json:"room" validate:"omitempty,min=1"`
	Topic        *string    `json:"topic"`
	StudentCount *int       `json:"student_count" validate:"omitempty,gte=0"`
	Instructor   *string    `json:"instructor"`
	Module       *string    `json:"module"`
	Level        *Level     `json:"level" validate:"omitempty,oneof=Beginner Intermediate Advanced"`
	Resources    []Resource `json:"resources" validate:"omitempty,dive"` // nil: unchanged, empty: cleared
}

// clean trims the required text fields. The caller's strings are not modified.
func (uu *UpdateSession) clean() {
	for _, f := range []**string{&uu.Title, &uu.Room, &uu.Date, &uu.StartTime, &uu.EndTime} {
		if *f != nil {
			v := strings.TrimSpace(**f)
			*f = &v
		}
	}
}

// apply merges the set fields of uu into s. Inputs must already be cleaned and validated.
func (uu UpdateSession) apply(s *Session) {
	if uu.Title != nil {
		s.Title = *uu.Title
	}
	if uu.Description != nil {
		s.Description = *uu.Description
	}
	if uu.Date != nil {
		s.Date, _ = calendar.ParseDate(*uu.Date)
	}
	if uu.StartTime != nil {
		s.StartTime, _ = calendar.ParseTimeOfDay(*uu.StartTime)
	}
	if uu.EndTime != nil {
		s.EndTime, _ = calendar.ParseTimeOfDay(*uu.EndTime)
	}
	if uu.Section != nil {
		s.Section = *uu.Section
	}
	if uu.Room != nil {
		s.Room = *uu.Room
	}
	if uu.Topic != nil {
		s.Topic = *uu.Topic
	}
	if uu.StudentCount != nil {
		s.StudentCount = *uu.StudentCount
	}
	if uu.Instructor != nil {
		s.Instructor = *uu.Instructor
	}
	if uu.Module != nil {
		s.Module = *uu.Module
	}
	if uu.Level != nil {
		s.Level = *uu.Level
	}
	if uu.Resources != nil {
		s.Resources = append([]Resource{}, uu.Resources...)
	}
}

// Reschedule moves a session to a new slot.
type Reschedule struct {
	Date      string `json:"date" validate:"required,date"`
	StartTime string `json:"start_time" validate:"required,clock"`
	EndTime   string `json:"end_time" validate:"required,clock"`
}

// ConflictCheck asks which sessions would clash with a candidate slot.
type ConflictCheck struct {
	Date      string `json:"date" validate:"required,date"`
	StartTime string `json:"start_time" validate:"required,clock"`
	EndTime   string `json:"end_time" validate:"required,clock"`
	Room      string `json:"room" validate:"required"`
	ExcludeID string `json:"exclude_id"`
}

// registerValidators adds the interval check to every slot-bearing input.
func registerValidators(v *validation.Validator) {
	v.RegisterStructValidation(intervalStructValidation, NewSession{}, Reschedule{}, ConflictCheck{})
}

// intervalStructValidation reports end_time when it does not come after start_time.
// Unparseable times are left to the field level "clock" tag.
func intervalStructValidation(sl validator.StructLevel) {
	var start, end string
	switch in := sl.Current().Interface().(type) {
	case NewSession:
		start, end = in.StartTime, in.EndTime
	case Reschedule:
		start, end = in.StartTime, in.EndTime
	case ConflictCheck:
		start, end = in.StartTime, in.EndTime
	default:
		return
	}
	s, err := calendar.ParseTimeOfDay(start)
	if err != nil {
		return
	}
	e, err := calendar.ParseTimeOfDay(end)
	if err != nil {
		return
	}
	if e <= s {
		sl.ReportError(end, "end_time", "EndTime", validation.TagAfterStart, "")
	}
}

// slot is a parsed date/time range.
type slot struct {
	date       calendar.Date
	start, end calendar.TimeOfDay
}

// parseSlot parses already validated date and time strings.
func parseSlot(date, start, end string) (slot, error) {
	var (
		sl  slot
		err error
	)
	if sl.date, err = calendar.ParseDate(date); err != nil {
		return slot{}, err
	}
	if sl.start, err = calendar.ParseTimeOfDay(start); err != nil {
		return slot{}, err
	}
	if sl.end, err = calendar.ParseTimeOfDay(end); err != nil {
		return slot{}, err
	}
	if sl.end <= sl.start {
		return slot{}, ErrInvalidInterval
	}
	return sl, nil
}
