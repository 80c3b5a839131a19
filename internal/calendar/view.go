package calendar

import (
	"strings"
	"time"

	"github.com/pkg/errors"
)

// View is the calendar rendering mode.
type View string

const (
	Monthly View = "monthly"
	Weekly  View = "weekly"
	Daily   View = "daily"
)

var (
	ErrUnknownView    = errors.New("unknown calendar view")
	ErrUnknownWeekday = errors.New("unknown weekday")
)

// ParseView accepts "monthly", "weekly" or "daily"; empty means Monthly.
func ParseView(s string) (View, error) {
	switch v := View(strings.ToLower(strings.TrimSpace(s))); v {
	case "":
		return Monthly, nil
	case Monthly, Weekly, Daily:
		return v, nil
	}
	return "", errors.Wrapf(ErrUnknownView, "%q", s)
}

// ParseWeekday accepts English weekday names ("monday", "Mon").
func ParseWeekday(s string) (time.Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) >= 3 {
		for wd := time.Sunday; wd <= time.Saturday; wd++ {
			if strings.HasPrefix(strings.ToLower(wd.String()), s) {
				return wd, nil
			}
		}
	}
	return 0, errors.Wrapf(ErrUnknownWeekday, "%q", s)
}

// StartOfWeek returns the first day of the week containing d.
func StartOfWeek(d Date, weekStart time.Weekday) Date {
	diff := (int(d.Weekday()) - int(weekStart) + 7) % 7
	return d.AddDays(-diff)
}

// EndOfWeek returns the last day of the week containing d.
func EndOfWeek(d Date, weekStart time.Weekday) Date {
	return StartOfWeek(d, weekStart).AddDays(6)
}

// Range returns every day from start to end inclusive.
func Range(start, end Date) []Date {
	if end.Before(start) {
		return nil
	}
	days := make([]Date, 0, int(end.Time().Sub(start.Time()).Hours()/24)+1)
	for d := start; !d.After(end); d = d.AddDays(1) {
		days = append(days, d)
	}
	return days
}

// Days returns the ordered days to render for view around anchor.
//   - Monthly: whole weeks from the week holding the 1st to the week holding the last day.
//   - Weekly: the seven days of the week holding anchor.
//   - Daily: anchor itself.
func Days(view View, anchor Date, weekStart time.Weekday) ([]Date, error) {
	switch view {
	case Monthly:
		return Range(
			StartOfWeek(anchor.FirstOfMonth(), weekStart),
			EndOfWeek(anchor.LastOfMonth(), weekStart),
		), nil
	case Weekly:
		start := StartOfWeek(anchor, weekStart)
		return Range(start, start.AddDays(6)), nil
	case Daily:
		return []Date{anchor}, nil
	}
	return nil, errors.Wrapf(ErrUnknownView, "%q", view)
}

// Shift moves anchor by n units of view.
func Shift(view View, anchor Date, n int) Date {
	switch view {
	case Monthly:
		return anchor.AddMonths(n)
	case Weekly:
		return anchor.AddDays(7 * n)
	}
	return anchor.AddDays(n)
}
