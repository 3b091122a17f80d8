package timeline

import (
	"time"

	"github.com/kris790/Kaleidoscope/internal/domain"
)

// LogEntry is one progress message.
type LogEntry struct {
	At      time.Time `json:"at"`
	Message string    `json:"message"`
}

// activity is a fixed size ring of log entries.
type activity struct {
	entries []LogEntry
	next    int
	full    bool
}

func (a *activity) add(e LogEntry) {
	a.entries[a.next] = e
	a.next = (a.next + 1) % len(a.entries)
	if a.next == 0 {
		a.full = true
	}
}

func (a *activity) list() []LogEntry {
	if !a.full {
		return append([]LogEntry(nil), a.entries[:a.next]...)
	}
	out := make([]LogEntry, 0, len(a.entries))
	out = append(out, a.entries[a.next:]...)
	return append(out, a.entries[:a.next]...)
}

// AppendLog records a progress message for a project, dropping the oldest
// once the log is full. Unknown projects are ignored.
func (s *Store) AppendLog(id, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[id]; !ok {
		return
	}
	a, ok := s.logs[id]
	if !ok {
		a = &activity{entries: make([]LogEntry, s.logSize)}
		s.logs[id] = a
	}
	a.add(LogEntry{At: s.now(), Message: message})
}

// Log returns a project's recent messages, oldest first.
func (s *Store) Log(id string) ([]LogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.projects[id]; !ok {
		return nil, domain.ErrNotFound
	}
	a, ok := s.logs[id]
	if !ok {
		return []LogEntry{}, nil
	}
	return a.list(), nil
}
