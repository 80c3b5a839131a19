package session

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oneany574/eduflow-calendar-hub/internal/attendance"
	"github.com/oneany574/eduflow-calendar-hub/internal/calendar"
	"github.com/oneany574/eduflow-calendar-hub/internal/queue"
	"github.com/oneany574/eduflow-calendar-hub/internal/validation"
)

type recorder struct {
	mu   sync.Mutex
	msgs []queue.Message
}

func (r *recorder) Publish(_ context.Context, msg queue.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return nil
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.msgs))
	for i, m := range r.msgs {
		out[i] = m.Type
	}
	return out
}

type failing struct{}

func (failing) Publish(context.Context, queue.Message) error { return errors.New("queue down") }

func newTestService(t *testing.T) (*Service, *recorder) {
	t.Helper()
	repo := NewRepository()
	book := attendance.NewBook(attendance.DefaultRoster, repo.StudentCount)
	rec := &recorder{}
	return NewService(repo, book, validation.New(), rec, nil), rec
}

func newSession(title, date, start, end, room string) NewSession {
	return NewSession{Title: title, Date: date, StartTime: start, EndTime: end, Room: room, StudentCount: 5}
}

func fieldErrors(t *testing.T, err error) map[string]string {
	t.Helper()
	var verr *validation.ValidationError
	require.True(t, errors.As(err, &verr), "want validation error, got %v", err)
	out := map[string]string{}
	for _, f := range verr.Fields {
		out[f.Field] = f.Error
	}
	return out
}

func TestAdd(t *testing.T) {
	svc, rec := newTestService(t)
	ctx := context.Background()

	res, err := svc.Add(ctx, newSession(" Computer Science 101 ", "2024-10-24", "10:00", "11:30", "Room 101"))
	require.NoError(t, err)
	s := res.Session
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, "Computer Science 101", s.Title)
	assert.Equal(t, StatusScheduled, s.Status)
	assert.Equal(t, LevelIntermediate, s.Level)
	assert.Equal(t, 90*60, int(s.Duration().Seconds()))
	assert.Empty(t, s.ConflictWith)
	assert.NotNil(t, res.Conflicts)
	assert.Empty(t, res.Conflicts)
	assert.False(t, s.CreatedAt.IsZero())

	// overlapping slot in the same room is stored with a warning
	res, err = svc.Add(ctx, newSession("Physics", "2024-10-24", "10:30", "12:00", "Room 101"))
	require.NoError(t, err)
	assert.Equal(t, "Computer Science 101", res.Session.ConflictWith)
	assert.Equal(t, []string{s.ID}, ids(res.Conflicts))

	assert.Len(t, svc.List(Filter{}), 2)
	assert.Equal(t, []string{EventCreated, EventCreated}, rec.types())

	var evt SessionEvent
	require.NoError(t, json.Unmarshal(rec.msgs[1].Body, &evt))
	assert.Equal(t, res.Session.ID, evt.SessionID)
	assert.Equal(t, 1, evt.Conflicts)
	assert.Equal(t, calendar.MustParseDate("2024-10-24"), evt.Date)
}

func TestAddValidation(t *testing.T) {
	svc, rec := newTestService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, NewSession{Date: "2024-13-01", StartTime: "9:00", EndTime: "10:00"})
	assert.Equal(t, map[string]string{
		"title":      "title is required",
		"room":       "room is required",
		"date":       "date must be a date formatted as YYYY-MM-DD",
		"start_time": "start_time must be a time formatted as HH:MM",
	}, fieldErrors(t, err))

	for _, end := range []string{"10:00", "09:00"} {
		_, err = svc.Add(ctx, newSession("Zero", "2024-10-24", "10:00", end, "Room 101"))
		assert.Equal(t, map[string]string{"end_time": "end_time must be after the start time"}, fieldErrors(t, err))
	}

	_, err = svc.Add(ctx, NewSession{
		Title: "Links", Date: "2024-10-24", StartTime: "10:00", EndTime: "11:00", Room: "Room 1",
		Resources: []Resource{{Name: "slides", URL: "not a url"}},
	})
	assert.Contains(t, fieldErrors(t, err), "url")

	assert.Empty(t, svc.List(Filter{}))
	assert.Empty(t, rec.types())
}

func TestPublishFailureDoesNotFailOperation(t *testing.T) {
	repo := NewRepository()
	svc := NewService(repo, attendance.NewBook(nil, repo.StudentCount), validation.New(), failing{}, nil)
	_, err := svc.Add(context.Background(), newSession("A", "2024-10-24", "10:00", "11:00", "Room 1"))
	require.NoError(t, err)
	assert.Equal(t, 1, repo.Len())
}

func TestTransitions(t *testing.T) {
	tests := []struct {
		name    string
		actions []func(*Service, context.Context, string) (Session, error)
		want    Status
		wantErr error
	}{
		{name: "start", actions: ops((*Service).Start), want: StatusInProgress},
		{name: "start then end", actions: ops((*Service).Start, (*Service).End), want: StatusCompleted},
		{name: "cancel scheduled", actions: ops((*Service).Cancel), want: StatusCancelled},
		{name: "cancel running", actions: ops((*Service).Start, (*Service).Cancel), want: StatusCancelled},
		{name: "end scheduled", actions: ops((*Service).End), want: StatusScheduled, wantErr: ErrInvalidTransition},
		{name: "start twice", actions: ops((*Service).Start, (*Service).Start), want: StatusInProgress, wantErr: ErrInvalidTransition},
		{name: "start cancelled", actions: ops((*Service).Cancel, (*Service).Start), want: StatusCancelled, wantErr: ErrInvalidTransition},
		{name: "cancel completed", actions: ops((*Service).Start, (*Service).End, (*Service).Cancel), want: StatusCompleted, wantErr: ErrInvalidTransition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t)
			ctx := context.Background()
			res, err := svc.Add(ctx, newSession("A", "2024-10-24", "10:00", "11:00", "Room 1"))
			require.NoError(t, err)

			var last error
			for _, act := range tt.actions {
				_, last = act(svc, ctx, res.Session.ID)
			}
			if tt.wantErr != nil {
				assert.True(t, errors.Is(last, tt.wantErr), "got %v", last)
			} else {
				assert.NoError(t, last)
			}
			got, err := svc.Get(res.Session.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Status)
		})
	}
}

func ops(fns ...func(*Service, context.Context, string) (Session, error)) []func(*Service, context.Context, string) (Session, error) {
	return fns
}

func TestMissingSession(t *testing.T) {
	svc, rec := newTestService(t)
	ctx := context.Background()
	_, err := svc.Add(ctx, newSession("A", "2024-10-24", "10:00", "11:00", "Room 1"))
	require.NoError(t, err)
	before := svc.List(Filter{})

	title := "B"
	_, err = svc.Update(ctx, "nope", UpdateSession{Title: &title})
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = svc.Start(ctx, "nope")
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = svc.Reschedule(ctx, "nope", Reschedule{Date: "2024-10-25", StartTime: "10:00", EndTime: "11:00"})
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(svc.Delete(ctx, "nope"), ErrNotFound))

	assert.Equal(t, before, svc.List(Filter{}))
	assert.Equal(t, []string{EventCreated}, rec.types())
}

func TestUpdate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	a, err := svc.Add(ctx, newSession("A", "2024-10-24", "10:00", "11:00", "Room 1"))
	require.NoError(t, err)
	b, err := svc.Add(ctx, newSession("B", "2024-10-24", "12:00", "13:00", "Room 1"))
	require.NoError(t, err)

	// moving B onto A records the conflict, its own slot is never a clash
	start, end := "10:30", "11:30"
	res, err := svc.Update(ctx, b.Session.ID, UpdateSession{StartTime: &start, EndTime: &end})
	require.NoError(t, err)
	assert.Equal(t, "A", res.Session.ConflictWith)
	assert.Equal(t, []string{a.Session.ID}, ids(res.Conflicts))

	room := "Room 2"
	res, err = svc.Update(ctx, b.Session.ID, UpdateSession{Room: &room})
	require.NoError(t, err)
	assert.Empty(t, res.Session.ConflictWith)
	assert.Empty(t, res.Conflicts)
	assert.Equal(t, StatusScheduled, res.Session.Status)
	assert.True(t, !res.Session.UpdatedAt.Before(res.Session.CreatedAt))

	bad := "09:00"
	_, err = svc.Update(ctx, b.Session.ID, UpdateSession{EndTime: &bad})
	assert.True(t, errors.Is(err, ErrInvalidInterval))
	got, err := svc.Get(b.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, calendar.MustParseTimeOfDay("11:30"), got.EndTime)

	malformed := "25:00"
	_, err = svc.Update(ctx, b.Session.ID, UpdateSession{StartTime: &malformed})
	assert.Contains(t, fieldErrors(t, err), "start_time")

	// blank required fields are rejected like on create
	blank := "   "
	_, err = svc.Update(ctx, b.Session.ID, UpdateSession{Title: &blank, Room: &blank})
	fields := fieldErrors(t, err)
	assert.Contains(t, fields, "title")
	assert.Contains(t, fields, "room")
	assert.Equal(t, "   ", blank)
	got, err = svc.Get(b.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, "B", got.Title)
	assert.Equal(t, "Room 2", got.Room)

	padded := " Room 3 "
	res, err = svc.Update(ctx, b.Session.ID, UpdateSession{Room: &padded})
	require.NoError(t, err)
	assert.Equal(t, "Room 3", res.Session.Room)
}

func TestUpdateCancelledHasNoConflicts(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.Add(ctx, newSession("A", "2024-10-24", "10:00", "11:30", "Room 101"))
	require.NoError(t, err)
	b, err := svc.Add(ctx, newSession("B", "2024-10-24", "10:30", "12:00", "Room 101"))
	require.NoError(t, err)
	require.Equal(t, "A", b.Session.ConflictWith)

	_, err = svc.Cancel(ctx, b.Session.ID)
	require.NoError(t, err)

	topic := "Revision"
	res, err := svc.Update(ctx, b.Session.ID, UpdateSession{Topic: &topic})
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, res.Session.Status)
	assert.Empty(t, res.Conflicts)
	assert.Empty(t, res.Session.ConflictWith)
}

func TestRescheduleCancelledClearsConflict(t *testing.T) {
	svc, rec := newTestService(t)
	ctx := context.Background()
	_, err := svc.Add(ctx, newSession("A", "2024-10-24", "10:00", "11:30", "Room 101"))
	require.NoError(t, err)
	b, err := svc.Add(ctx, newSession("B", "2024-10-24", "10:30", "12:00", "Room 101"))
	require.NoError(t, err)
	require.Equal(t, "A", b.Session.ConflictWith)

	_, err = svc.Cancel(ctx, b.Session.ID)
	require.NoError(t, err)

	res, err := svc.Reschedule(ctx, b.Session.ID, Reschedule{Date: "2024-10-25", StartTime: "14:00", EndTime: "15:00"})
	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, res.Session.Status)
	assert.Empty(t, res.Session.ConflictWith)
	assert.Empty(t, res.Conflicts)
	assert.Equal(t, calendar.MustParseDate("2024-10-25"), res.Session.Date)
	assert.Equal(t, "14:00", res.Session.StartTime.String())
	assert.Equal(t, []string{EventCreated, EventCreated, EventCancelled, EventRescheduled}, rec.types())
}

func TestRescheduleRules(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	a, err := svc.Add(ctx, newSession("A", "2024-10-24", "10:00", "11:00", "Room 1"))
	require.NoError(t, err)
	b, err := svc.Add(ctx, newSession("B", "2024-10-25", "10:00", "11:00", "Room 1"))
	require.NoError(t, err)

	// clashes at the new slot are reported but not recorded
	res, err := svc.Reschedule(ctx, b.Session.ID, Reschedule{Date: "2024-10-24", StartTime: "10:30", EndTime: "11:30"})
	require.NoError(t, err)
	assert.Equal(t, []string{a.Session.ID}, ids(res.Conflicts))
	assert.Empty(t, res.Session.ConflictWith)

	_, err = svc.Reschedule(ctx, b.Session.ID, Reschedule{Date: "2024-10-24", StartTime: "12:00", EndTime: "11:00"})
	assert.Contains(t, fieldErrors(t, err), "end_time")

	_, err = svc.Start(ctx, a.Session.ID)
	require.NoError(t, err)
	_, err = svc.Reschedule(ctx, a.Session.ID, Reschedule{Date: "2024-10-26", StartTime: "10:00", EndTime: "11:00"})
	assert.True(t, errors.Is(err, ErrInvalidTransition))
}

func TestCheckConflicts(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	a, err := svc.Add(ctx, newSession("A", "2024-10-24", "10:00", "11:30", "Room 101"))
	require.NoError(t, err)

	cs, err := svc.CheckConflicts(ConflictCheck{Date: "2024-10-24", StartTime: "10:30", EndTime: "12:00", Room: "Room 101"})
	require.NoError(t, err)
	assert.Equal(t, []string{a.Session.ID}, ids(cs))

	cs, err = svc.CheckConflicts(ConflictCheck{Date: "2024-10-24", StartTime: "10:30", EndTime: "12:00", Room: "Room 101", ExcludeID: a.Session.ID})
	require.NoError(t, err)
	assert.Empty(t, cs)

	_, err = svc.CheckConflicts(ConflictCheck{Date: "2024-10-24", StartTime: "12:00", EndTime: "12:00", Room: "Room 101"})
	assert.Contains(t, fieldErrors(t, err), "end_time")
}

func TestAttendance(t *testing.T) {
	svc, rec := newTestService(t)
	ctx := context.Background()
	res, err := svc.Add(ctx, newSession("A", "2024-10-24", "10:00", "11:00", "Room 1"))
	require.NoError(t, err)
	id := res.Session.ID

	sheet := svc.GetAttendance(id)
	require.Len(t, sheet, 5)
	assert.Equal(t, attendance.Summary{Present: 5, Total: 5, Rate: 100}, svc.AttendanceSummary(id))
	assert.Len(t, svc.GetAttendance("unknown"), 10)

	sheet[0].Status = attendance.Absent
	sheet[1].Status = attendance.Late
	sum, err := svc.SaveAttendance(ctx, id, sheet)
	require.NoError(t, err)
	assert.Equal(t, attendance.Summary{Present: 3, Absent: 1, Late: 1, Total: 5, Rate: 60}, sum)
	assert.Equal(t, sheet, svc.GetAttendance(id))

	_, err = svc.SaveAttendance(ctx, id, []attendance.Record{{StudentID: "s1", Status: "sick"}})
	assert.Contains(t, fieldErrors(t, err), "status")
	assert.Equal(t, sheet, svc.GetAttendance(id))

	// deleting the session keeps its sheet
	require.NoError(t, svc.Delete(ctx, id))
	assert.Equal(t, sheet, svc.GetAttendance(id))
	assert.Contains(t, rec.types(), EventAttendanceSaved)
}

func TestDailyMetrics(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	a, err := svc.Add(ctx, newSession("A", "2024-10-24", "10:00", "11:30", "Room 1"))
	require.NoError(t, err)
	b, err := svc.Add(ctx, newSession("B", "2024-10-24", "13:00", "14:00", "Room 2"))
	require.NoError(t, err)
	c, err := svc.Add(ctx, newSession("C", "2024-10-24", "15:00", "16:00", "Room 3"))
	require.NoError(t, err)
	_, err = svc.Add(ctx, newSession("D", "2024-10-25", "15:00", "16:00", "Room 3"))
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, c.Session.ID)
	require.NoError(t, err)

	recs := svc.GetAttendance(a.Session.ID)
	recs[0].Status = attendance.Absent
	_, err = svc.SaveAttendance(ctx, a.Session.ID, recs) // 80%
	require.NoError(t, err)
	_, err = svc.SaveAttendance(ctx, b.Session.ID, svc.GetAttendance(b.Session.ID)) // 100%
	require.NoError(t, err)

	m := svc.DailyMetrics(calendar.MustParseDate("2024-10-24"))
	assert.Equal(t, 3, m.Sessions)
	assert.Equal(t, 2, m.Active)
	assert.Equal(t, 150, m.ScheduledMinutes)
	assert.Equal(t, 2.5, m.ScheduledHours)
	assert.Equal(t, 2, m.WithAttendance)
	assert.Equal(t, 90, m.AverageRate)

	assert.Equal(t, DailyMetrics{Date: calendar.MustParseDate("2024-11-01")}, svc.DailyMetrics(calendar.MustParseDate("2024-11-01")))
}

func TestDispatch(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	res, err := svc.Add(ctx, newSession("A", "2024-10-24", "10:00", "11:00", "Room 1"))
	require.NoError(t, err)
	id := res.Session.ID

	out, err := svc.Dispatch(ctx, Command{Action: ActionView, SessionID: id})
	require.NoError(t, err)
	assert.Equal(t, id, out.Session.ID)

	out, err = svc.Dispatch(ctx, Command{Action: ActionStart, SessionID: id})
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, out.Session.Status)

	_, err = svc.Dispatch(ctx, Command{Action: ActionEdit, SessionID: id})
	assert.Contains(t, fieldErrors(t, err), "update")

	topic := "Graphs"
	out, err = svc.Dispatch(ctx, Command{Action: ActionEdit, SessionID: id, Update: &UpdateSession{Topic: &topic}})
	require.NoError(t, err)
	assert.Equal(t, "Graphs", out.Session.Topic)

	_, err = svc.Dispatch(ctx, Command{Action: ActionReschedule, SessionID: id, Reschedule: &Reschedule{Date: "2024-10-25", StartTime: "10:00", EndTime: "11:00"}})
	assert.True(t, errors.Is(err, ErrInvalidTransition))

	out, err = svc.Dispatch(ctx, Command{Action: ActionEnd, SessionID: id})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, out.Session.Status)

	_, err = svc.Dispatch(ctx, Command{Action: "archive", SessionID: id})
	assert.True(t, errors.Is(err, ErrUnknownAction))

	out, err = svc.Dispatch(ctx, Command{Action: ActionDelete, SessionID: id})
	require.NoError(t, err)
	assert.True(t, out.Deleted)
	assert.Nil(t, out.Session)

	_, err = svc.Dispatch(ctx, Command{Action: ActionView, SessionID: id})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSeed(t *testing.T) {
	repo := NewRepository()
	ref := calendar.MustParseDate("2024-10-24")
	ss := Seed(repo, ref)
	assert.Len(t, ss, repo.Len())

	cs := repo.Conflicts(ConflictQuery{
		Date:  ref,
		Start: calendar.MustParseTimeOfDay("10:30"),
		End:   calendar.MustParseTimeOfDay("12:00"),
		Room:  "Room 101",
	})
	require.Len(t, cs, 1)
	assert.Equal(t, "Computer Science 101", cs[0].Title)

	// a session moved by an earlier import starts like a scheduled one
	svc := NewService(repo, attendance.NewBook(attendance.DefaultRoster, repo.StudentCount), validation.New(), nil, nil)
	moved := Filter{Status: string(StatusRescheduled)}.Apply(ss)
	require.Len(t, moved, 1)
	started, err := svc.Start(context.Background(), moved[0].ID)
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, started.Status)
}
