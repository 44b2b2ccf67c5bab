package session

import (
	"sync"
	"time"

	"github.com/robert-malhotra/landcover/internal/query"
)

// Session serializes actions against one State.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu    sync.Mutex
	state State
}

// New creates an empty session.
func New(id string, policy Policy) *Session {
	return &Session{
		ID:        id,
		CreatedAt: time.Now().UTC(),
		state:     NewState(policy),
	}
}

// Dispatch applies a under the session lock.
func (s *Session) Dispatch(a Action) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, res := Reduce(s.state, a)
	s.state = next
	return res
}

// Issue hands out the next sequence number for a search on spec and records
// the submission.
func (s *Session) Issue(spec query.Spec) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq := s.state.Issued + 1
	s.state, _ = Reduce(s.state, SearchIssued{Seq: seq, Spec: spec, At: time.Now().UTC()})
	return seq
}

// Snapshot returns the current state. The stack is shared and must be
// treated as read-only.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.state
	snap.History = append([]Submission(nil), s.state.History...)
	return snap
}
