package session

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/oneany574/eduflow-calendar-hub/internal/attendance"
	"github.com/oneany574/eduflow-calendar-hub/internal/calendar"
	"github.com/oneany574/eduflow-calendar-hub/internal/metrics"
	"github.com/oneany574/eduflow-calendar-hub/internal/queue"
	"github.com/oneany574/eduflow-calendar-hub/internal/validation"
)

const publishTimeout = time.Second

// Result is a stored session together with the sessions it clashes with.
// Conflicts are advisory and never prevent the change.
type Result struct {
	Session   Session   `json:"session"`
	Conflicts []Session `json:"conflicts"`
}

// Service coordinates the session store, the attendance book and event publishing.
type Service struct {
	repo      *Repository
	book      *attendance.Book
	validator *validation.Validator
	events    queue.Publisher
	log       *zap.Logger
	now       func() time.Time
}

// NewService wires a service. A nil publisher discards events and a nil logger is a no-op.
func NewService(repo *Repository, book *attendance.Book, v *validation.Validator, events queue.Publisher, log *zap.Logger) *Service {
	if events == nil {
		events = queue.Discard{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	registerValidators(v)
	return &Service{
		repo:      repo,
		book:      book,
		validator: v,
		events:    events,
		log:       log,
		now:       time.Now,
	}
}

// Add creates a scheduled session and reports the sessions it clashes with.
func (svc *Service) Add(ctx context.Context, ns NewSession) (Result, error) {
	ns.clean()
	if err := svc.validator.Struct(ns); err != nil {
		svc.observe("add", err)
		return Result{}, err
	}
	sl, err := parseSlot(ns.Date, ns.StartTime, ns.EndTime)
	if err != nil {
		svc.observe("add", err)
		return Result{}, err
	}

	var conflicts []Session
	s, err := svc.repo.InsertChecked(func(others []Session) (Session, error) {
		conflicts = Conflicts(others, ConflictQuery{Date: sl.date, Start: sl.start, End: sl.end, Room: ns.Room})
		return Session{
			Title:        ns.Title,
			Description:  ns.Description,
			Status:       StatusScheduled,
			Date:         sl.date,
			StartTime:    sl.start,
			EndTime:      sl.end,
			Section:      ns.Section,
			Room:         ns.Room,
			Topic:        ns.Topic,
			StudentCount: ns.StudentCount,
			Instructor:   ns.Instructor,
			Module:       ns.Module,
			Level:        ns.Level,
			ConflictWith: conflictWith(conflicts),
			Resources:    ns.Resources,
		}, nil
	})
	svc.observe("add", err)
	if err != nil {
		return Result{}, err
	}
	svc.reportConflicts(s, conflicts)
	svc.publish(ctx, EventCreated, newSessionEvent(s, len(conflicts), svc.now()))
	return Result{Session: s, Conflicts: nonNil(conflicts)}, nil
}

// Update edits the fields set in uu. Status is not editable here. Cancelled
// sessions clash with nothing, so their conflict is cleared.
func (svc *Service) Update(ctx context.Context, id string, uu UpdateSession) (Result, error) {
	uu.clean()
	if err := svc.validator.Struct(uu); err != nil {
		svc.observe("update", err)
		return Result{}, err
	}

	var conflicts []Session
	s, err := svc.repo.Mutate(id, func(s *Session, others []Session) error {
		uu.apply(s)
		if s.EndTime <= s.StartTime {
			return ErrInvalidInterval
		}
		if s.Status != StatusCancelled {
			conflicts = Conflicts(others, ConflictQuery{Date: s.Date, Start: s.StartTime, End: s.EndTime, Room: s.Room, ExcludeID: s.ID})
		}
		s.ConflictWith = conflictWith(conflicts)
		return nil
	})
	svc.observe("update", err)
	if err != nil {
		return Result{}, errors.WithMessagef(err, "updating session %s", id)
	}
	svc.reportConflicts(s, conflicts)
	svc.publish(ctx, EventUpdated, newSessionEvent(s, len(conflicts), svc.now()))
	return Result{Session: s, Conflicts: nonNil(conflicts)}, nil
}

// Delete removes a session. Its attendance sheet stays in the book.
func (svc *Service) Delete(ctx context.Context, id string) error {
	s, err := svc.repo.Get(id)
	if err == nil {
		err = svc.repo.Delete(id)
	}
	svc.observe("delete", err)
	if err != nil {
		return errors.WithMessagef(err, "deleting session %s", id)
	}
	svc.publish(ctx, EventDeleted, newSessionEvent(s, 0, svc.now()))
	return nil
}

// Start moves a scheduled session in progress.
func (svc *Service) Start(ctx context.Context, id string) (Session, error) {
	return svc.transition(ctx, "start", id, StatusInProgress, EventStarted)
}

// End completes a session in progress.
func (svc *Service) End(ctx context.Context, id string) (Session, error) {
	return svc.transition(ctx, "end", id, StatusCompleted, EventEnded)
}

// Cancel cancels a scheduled or running session.
func (svc *Service) Cancel(ctx context.Context, id string) (Session, error) {
	return svc.transition(ctx, "cancel", id, StatusCancelled, EventCancelled)
}

func (svc *Service) transition(ctx context.Context, op, id string, next Status, event string) (Session, error) {
	s, err := svc.repo.Mutate(id, func(s *Session, _ []Session) error {
		if !s.Status.CanTransition(next) {
			return errors.Wrapf(ErrInvalidTransition, "%s -> %s", s.Status, next)
		}
		s.Status = next
		return nil
	})
	svc.observe(op, err)
	if err != nil {
		return Session{}, errors.WithMessagef(err, "%s session %s", op, id)
	}
	svc.publish(ctx, event, newSessionEvent(s, 0, svc.now()))
	return s, nil
}

// Reschedule moves a session to a new slot. The session returns to scheduled
// and its recorded conflict is cleared; clashes at the new slot are reported
// in the result only.
func (svc *Service) Reschedule(ctx context.Context, id string, in Reschedule) (Result, error) {
	if err := svc.validator.Struct(in); err != nil {
		svc.observe("reschedule", err)
		return Result{}, err
	}
	sl, err := parseSlot(in.Date, in.StartTime, in.EndTime)
	if err != nil {
		svc.observe("reschedule", err)
		return Result{}, err
	}

	var conflicts []Session
	s, err := svc.repo.Mutate(id, func(s *Session, others []Session) error {
		if !s.Status.Reschedulable() {
			return errors.Wrapf(ErrInvalidTransition, "cannot reschedule a %s session", s.Status)
		}
		s.Date, s.StartTime, s.EndTime = sl.date, sl.start, sl.end
		s.Status = StatusScheduled
		s.ConflictWith = ""
		conflicts = Conflicts(others, ConflictQuery{Date: sl.date, Start: sl.start, End: sl.end, Room: s.Room, ExcludeID: s.ID})
		return nil
	})
	svc.observe("reschedule", err)
	if err != nil {
		return Result{}, errors.WithMessagef(err, "rescheduling session %s", id)
	}
	svc.reportConflicts(s, conflicts)
	svc.publish(ctx, EventRescheduled, newSessionEvent(s, len(conflicts), svc.now()))
	return Result{Session: s, Conflicts: nonNil(conflicts)}, nil
}

func (svc *Service) Get(id string) (Session, error) {
	return svc.repo.Get(id)
}

// List returns the sessions matching f in insertion order.
func (svc *Service) List(f Filter) []Session {
	return f.Apply(svc.repo.All())
}

// CheckConflicts reports the sessions that would clash with the candidate slot.
func (svc *Service) CheckConflicts(in ConflictCheck) ([]Session, error) {
	if err := svc.validator.Struct(in); err != nil {
		return nil, err
	}
	sl, err := parseSlot(in.Date, in.StartTime, in.EndTime)
	if err != nil {
		return nil, err
	}
	cs := svc.repo.Conflicts(ConflictQuery{Date: sl.date, Start: sl.start, End: sl.end, Room: in.Room, ExcludeID: in.ExcludeID})
	metrics.ConflictsReported.Add(float64(len(cs)))
	return nonNil(cs), nil
}

// GetAttendance returns the saved sheet of a session or a default all-present sheet.
func (svc *Service) GetAttendance(id string) []attendance.Record {
	return svc.book.Get(id)
}

type sheet struct {
	Records []attendance.Record `json:"records" validate:"dive"`
}

// SaveAttendance replaces the sheet of a session and returns its summary.
// Sheets may be saved for unknown sessions.
func (svc *Service) SaveAttendance(ctx context.Context, id string, records []attendance.Record) (attendance.Summary, error) {
	if err := svc.validator.Struct(sheet{Records: records}); err != nil {
		svc.observe("save_attendance", err)
		return attendance.Summary{}, err
	}
	svc.book.Save(id, records)
	sum := attendance.Summarize(records)
	svc.observe("save_attendance", nil)
	metrics.AttendanceRate.Observe(float64(sum.Rate))
	svc.publish(ctx, EventAttendanceSaved, AttendanceEvent{SessionID: id, Summary: sum, At: svc.now().UTC()})
	return sum, nil
}

// AttendanceSummary summarises the current sheet of a session, saved or default.
func (svc *Service) AttendanceSummary(id string) attendance.Summary {
	return attendance.Summarize(svc.book.Get(id))
}

// DailyMetrics are the dashboard figures for one day.
type DailyMetrics struct {
	Date             calendar.Date `json:"date"`
	Sessions         int           `json:"sessions"`
	Active           int           `json:"active"` // not cancelled
	ScheduledMinutes int           `json:"scheduled_minutes"`
	ScheduledHours   float64       `json:"scheduled_hours"`
	WithAttendance   int           `json:"with_attendance"`
	AverageRate      int           `json:"average_rate"`
}

// DailyMetrics summarises the sessions held on date. The average attendance
// rate only counts sessions with a saved sheet.
func (svc *Service) DailyMetrics(date calendar.Date) DailyMetrics {
	m := DailyMetrics{Date: date}
	var rateSum int
	for _, s := range ForDate(svc.repo.All(), date) {
		m.Sessions++
		if s.Status != StatusCancelled {
			m.Active++
			m.ScheduledMinutes += int(s.Duration() / time.Minute)
		}
		if sum, ok := svc.book.Summary(s.ID); ok {
			m.WithAttendance++
			rateSum += sum.Rate
		}
	}
	m.ScheduledHours = float64(m.ScheduledMinutes) / 60
	if m.WithAttendance > 0 {
		m.AverageRate = attendance.Rate(rateSum, m.WithAttendance*100)
	}
	return m
}

func (svc *Service) publish(ctx context.Context, typ string, body interface{}) {
	msg, err := NewMessage(typ, body)
	if err != nil {
		svc.log.Error("encode event", zap.String("type", typ), zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := svc.events.Publish(ctx, msg); err != nil {
		svc.log.Warn("publish event", zap.String("type", typ), zap.Error(err))
	}
}

func (svc *Service) reportConflicts(s Session, cs []Session) {
	if len(cs) == 0 {
		return
	}
	metrics.ConflictsReported.Add(float64(len(cs)))
	svc.log.Info("session conflicts",
		zap.String("session_id", s.ID),
		zap.String("room", s.Room),
		zap.Stringer("date", s.Date),
		zap.Int("count", len(cs)),
	)
}

func (svc *Service) observe(op string, err error) {
	metrics.SessionOperations.WithLabelValues(op, resultLabel(err)).Inc()
}

func resultLabel(err error) string {
	var verr *validation.ValidationError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidTransition):
		return "rejected"
	case errors.As(err, &verr), errors.Is(err, ErrInvalidInterval):
		return "invalid"
	}
	return "error"
}

func nonNil(ss []Session) []Session {
	if ss == nil {
		return []Session{}
	}
	return ss
}
