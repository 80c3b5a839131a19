package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository is the in-memory session store. Iteration follows insertion order.
type Repository struct {
	mutex sync.RWMutex
	order []string
	byID  map[string]*Session

	now func() time.Time
}

func NewRepository() *Repository {
	return &Repository{
		byID: make(map[string]*Session),
		now:  time.Now,
	}
}

// Insert stores s, assigning an id when it has none and stamping the timestamps.
func (r *Repository) Insert(s Session) Session {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	return r.insert(s)
}

func (r *Repository) insert(s Session) Session {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	now := r.now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now

	if _, exists := r.byID[s.ID]; !exists {
		r.order = append(r.order, s.ID)
	}
	stored := s.clone()
	r.byID[s.ID] = &stored
	return s.clone()
}

func (r *Repository) Get(id string) (Session, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if s, ok := r.byID[id]; ok {
		return s.clone(), nil
	}
	return Session{}, ErrNotFound
}

// All returns a snapshot of every session in insertion order.
func (r *Repository) All() []Session {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return r.all()
}

func (r *Repository) all() []Session {
	out := make([]Session, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id].clone())
	}
	return out
}

// Mutate applies fn to a copy of the session under the write lock. The copy
// replaces the stored session only when fn returns nil. fn also receives the
// other sessions so it can check conflicts atomically.
func (r *Repository) Mutate(id string, fn func(s *Session, others []Session) error) (Session, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	cur, ok := r.byID[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	next := cur.clone()
	if err := fn(&next, r.all()); err != nil {
		return Session{}, err
	}
	next.ID = cur.ID
	next.CreatedAt = cur.CreatedAt
	next.UpdatedAt = r.now().UTC()
	r.byID[id] = &next
	return next.clone(), nil
}

// InsertChecked builds a session with fn against the current sessions and
// stores it in the same critical section.
func (r *Repository) InsertChecked(fn func(others []Session) (Session, error)) (Session, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	s, err := fn(r.all())
	if err != nil {
		return Session{}, err
	}
	return r.insert(s), nil
}

// Delete removes a session unconditionally.
func (r *Repository) Delete(id string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, ok := r.byID[id]; !ok {
		return ErrNotFound
	}
	delete(r.byID, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// StudentCount reports the expected class size of a session.
func (r *Repository) StudentCount(id string) (int, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if s, ok := r.byID[id]; ok {
		return s.StudentCount, true
	}
	return 0, false
}

// Conflicts runs the conflict check against the current sessions.
func (r *Repository) Conflicts(q ConflictQuery) []Session {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return Conflicts(r.all(), q)
}

func (r *Repository) Len() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return len(r.order)
}
