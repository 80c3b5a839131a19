package session

import (
	"github.com/oneany574/eduflow-calendar-hub/internal/calendar"
)

type demo struct {
	offset       int // days from the reference date
	title        string
	start, end   string
	room         string
	section      string
	topic        string
	instructor   string
	module       string
	level        Level
	studentCount int
	status       Status
}

var demoSessions = []demo{
	{-2, "Advanced Mathematics", "09:00", "10:30", "Room 101", "Section A", "Linear Algebra", "Dr. Sarah Mitchell", "Mathematics", LevelAdvanced, 28, StatusCompleted},
	{-1, "Physics Fundamentals", "11:00", "12:30", "Lab 2", "Section B", "Newtonian Mechanics", "Prof. James Carter", "Physics", LevelBeginner, 24, StatusCompleted},
	{0, "Computer Science 101", "10:00", "11:30", "Room 101", "Section A", "Data Structures", "Dr. Emily Zhang", "Computer Science", LevelIntermediate, 30, StatusScheduled},
	{0, "Organic Chemistry", "13:00", "14:30", "Lab 1", "Section C", "Reaction Mechanisms", "Dr. Robert Kim", "Chemistry", LevelAdvanced, 20, StatusScheduled},
	{0, "English Literature", "15:00", "16:00", "Room 204", "Section B", "Modernist Poetry", "Ms. Laura Bennett", "Humanities", LevelIntermediate, 18, StatusCancelled},
	{1, "Statistics Workshop", "09:30", "11:00", "Room 102", "Section A", "Hypothesis Testing", "Dr. Sarah Mitchell", "Mathematics", LevelIntermediate, 25, StatusScheduled},
	{2, "Biology Lab", "10:00", "12:00", "Lab 1", "Section A", "Cell Division", "Dr. Maria Lopez", "Biology", LevelIntermediate, 16, StatusRescheduled},
	{3, "World History", "14:00", "15:30", "Room 204", "Section C", "The Industrial Revolution", "Prof. Daniel Ortiz", "Humanities", LevelBeginner, 32, StatusScheduled},
}

// Seed fills repo with demo sessions around ref. The session on ref in
// Room 101 runs 10:00-11:30.
func Seed(repo *Repository, ref calendar.Date) []Session {
	out := make([]Session, 0, len(demoSessions))
	for _, d := range demoSessions {
		s := repo.Insert(Session{
			Title:        d.title,
			Status:       d.status,
			Date:         ref.AddDays(d.offset),
			StartTime:    calendar.MustParseTimeOfDay(d.start),
			EndTime:      calendar.MustParseTimeOfDay(d.end),
			Section:      d.section,
			Room:         d.room,
			Topic:        d.topic,
			StudentCount: d.studentCount,
			Instructor:   d.instructor,
			Module:       d.module,
			Level:        d.level,
		})
		out = append(out, s)
	}
	return out
}
