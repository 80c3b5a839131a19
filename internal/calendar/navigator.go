package calendar

import "time"

// Clock tells the calendar what day it is.
type Clock interface {
	Today() Date
}

// SystemClock reads the wall clock in Location (UTC when nil).
type SystemClock struct {
	Location *time.Location
}

func (c SystemClock) Today() Date {
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	return DateOf(time.Now().In(loc))
}

// FixedClock always reports the same day. Handy for demos and tests.
type FixedClock Date

func (c FixedClock) Today() Date { return Date(c) }

// Navigator holds the calendar's view, anchor and selected day.
// It is not safe for concurrent use; build one per request or per UI.
type Navigator struct {
	clock     Clock
	weekStart time.Weekday
	view      View
	anchor    Date
	selected  Date
}

// NewNavigator starts a monthly view anchored and selected on today.
func NewNavigator(clock Clock, weekStart time.Weekday) *Navigator {
	today := clock.Today()
	return &Navigator{
		clock:     clock,
		weekStart: weekStart,
		view:      Monthly,
		anchor:    today,
		selected:  today,
	}
}

func (n *Navigator) View() View              { return n.view }
func (n *Navigator) Anchor() Date            { return n.anchor }
func (n *Navigator) Selected() Date          { return n.selected }
func (n *Navigator) WeekStart() time.Weekday { return n.weekStart }

// SetView switches the rendering mode without moving the anchor.
func (n *Navigator) SetView(v View) error {
	if _, err := Days(v, n.anchor, n.weekStart); err != nil {
		return err
	}
	n.view = v
	return nil
}

// Goto moves both the anchor and the selection to d.
func (n *Navigator) Goto(d Date) {
	n.anchor = d
	n.selected = d
}

// Select changes the selected day only.
func (n *Navigator) Select(d Date) { n.selected = d }

// Prev and Next move the anchor by one view. Monthly moves clamp the day to the
// target month, so Next then Prev from the 29th or later can land on an earlier day.
func (n *Navigator) Prev() { n.anchor = Shift(n.view, n.anchor, -1) }
func (n *Navigator) Next() { n.anchor = Shift(n.view, n.anchor, 1) }

// Today resets anchor and selection to the clock's day.
func (n *Navigator) Today() { n.Goto(n.clock.Today()) }

// Days returns the days to render for the current view.
func (n *Navigator) Days() []Date {
	days, _ := Days(n.view, n.anchor, n.weekStart)
	return days
}

func (n *Navigator) InMonth(d Date) bool    { return d.SameMonth(n.anchor) }
func (n *Navigator) IsToday(d Date) bool    { return d == n.clock.Today() }
func (n *Navigator) IsSelected(d Date) bool { return d == n.selected }
