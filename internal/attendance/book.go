package attendance

import "sync"

// defaultClassSize is used when a session is unknown or has no student count.
const defaultClassSize = 10

// Student is a roster entry.
type Student struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// DefaultRoster is the demo class used to pre-fill attendance sheets.
var DefaultRoster = []Student{
	{ID: "s1", Name: "Alice Johnson"},
	{ID: "s2", Name: "Bob Williams"},
	{ID: "s3", Name: "Carlos Garcia"},
	{ID: "s4", Name: "Diana Chen"},
	{ID: "s5", Name: "Ethan Brown"},
	{ID: "s6", Name: "Fiona Davis"},
	{ID: "s7", Name: "George Martinez"},
	{ID: "s8", Name: "Hannah Lee"},
	{ID: "s9", Name: "Isaac Taylor"},
	{ID: "s10", Name: "Julia Wilson"},
}

// SizeFunc reports the expected student count of a session.
type SizeFunc func(sessionID string) (int, bool)

// Book holds saved attendance sheets keyed by session id.
// Sheets are never removed, so a deleted session keeps its sheet.
type Book struct {
	mu     sync.RWMutex
	sheets map[string][]Record
	roster []Student
	size   SizeFunc
}

// NewBook creates a book pre-filling unsaved sheets from roster.
func NewBook(roster []Student, size SizeFunc) *Book {
	if size == nil {
		size = func(string) (int, bool) { return 0, false }
	}
	return &Book{
		sheets: make(map[string][]Record),
		roster: roster,
		size:   size,
	}
}

// Get returns the saved sheet of a session, or a default sheet with every
// roster student present. The default sheet is not stored.
func (b *Book) Get(sessionID string) []Record {
	b.mu.RLock()
	saved, ok := b.sheets[sessionID]
	b.mu.RUnlock()
	if ok {
		return append([]Record(nil), saved...)
	}

	n, ok := b.size(sessionID)
	if !ok || n <= 0 {
		n = defaultClassSize
	}
	if n > len(b.roster) {
		n = len(b.roster)
	}
	out := make([]Record, n)
	for i, st := range b.roster[:n] {
		out[i] = Record{StudentID: st.ID, StudentName: st.Name, Status: Present}
	}
	return out
}

// Save replaces the sheet of a session.
func (b *Book) Save(sessionID string, records []Record) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sheets[sessionID] = append([]Record(nil), records...)
}

// Saved reports whether a sheet was saved for the session.
func (b *Book) Saved(sessionID string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.sheets[sessionID]
	return ok
}

// Summary summarises the saved sheet of a session.
func (b *Book) Summary(sessionID string) (Summary, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	sheet, ok := b.sheets[sessionID]
	if !ok {
		return Summary{}, false
	}
	return Summarize(sheet), true
}
