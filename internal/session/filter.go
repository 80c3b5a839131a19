package session

import (
	"sort"
	"strings"

	"github.com/oneany574/eduflow-calendar-hub/internal/calendar"
)

// All is the filter value that matches everything.
const All = "all"

// Filter narrows a session list. Set fields are AND-combined; an empty value
// or "all" places no constraint.
type Filter struct {
	Class   string `form:"class" json:"class"` // matched against the title
	Section string `form:"section" json:"section"`
	Status  string `form:"status" json:"status"`
	Module  string `form:"module" json:"module"`
	Search  string `form:"search" json:"search"`
}

func unset(v string) bool {
	return v == "" || v == All
}

// Match reports whether s passes every set constraint of f.
func (f Filter) Match(s Session) bool {
	if !unset(f.Class) && s.Title != f.Class {
		return false
	}
	if !unset(f.Section) && s.Section != f.Section {
		return false
	}
	if !unset(f.Status) && string(s.Status) != f.Status {
		return false
	}
	if !unset(f.Module) && s.Module != f.Module {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		if !strings.Contains(strings.ToLower(s.Title), q) &&
			!strings.Contains(strings.ToLower(s.Instructor), q) &&
			!strings.Contains(strings.ToLower(s.Topic), q) {
			return false
		}
	}
	return true
}

// Apply returns the sessions of ss matching f, in order.
func (f Filter) Apply(ss []Session) []Session {
	out := make([]Session, 0, len(ss))
	for _, s := range ss {
		if f.Match(s) {
			out = append(out, s)
		}
	}
	return out
}

// ForDate returns the sessions of ss held on date.
func ForDate(ss []Session, date calendar.Date) []Session {
	var out []Session
	for _, s := range ss {
		if s.Date == date {
			out = append(out, s)
		}
	}
	return out
}

// GroupByDate buckets ss by date. Within a day sessions are ordered by start time,
// ties keeping their original order.
func GroupByDate(ss []Session) map[calendar.Date][]Session {
	out := make(map[calendar.Date][]Session)
	for _, s := range ss {
		out[s.Date] = append(out[s.Date], s)
	}
	for _, day := range out {
		sort.SliceStable(day, func(i, j int) bool { return day[i].StartTime < day[j].StartTime })
	}
	return out
}
