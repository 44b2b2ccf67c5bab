// Package session holds per-user search state: the loaded scene stack, its
// date labels, the selected date and the history of submitted queries.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/robert-malhotra/landcover/internal/query"
	"github.com/robert-malhotra/landcover/internal/raster"
	"github.com/robert-malhotra/landcover/internal/scene"
)

var (
	// ErrNoStack is returned when an action needs loaded scenes and there
	// are none.
	ErrNoStack = errors.New("no scenes loaded")

	// ErrUnknownDate is returned when a selected label is not in the index.
	ErrUnknownDate = errors.New("unknown date")

	// ErrStaleResult is returned when a search result arrives after a newer
	// search was issued.
	ErrStaleResult = errors.New("stale search result")

	// ErrNotFound is returned for unknown or expired session ids.
	ErrNotFound = errors.New("session not found")
)

// Status is the lifecycle stage of a session.
type Status int

const (
	StatusEmpty Status = iota
	StatusLoaded
	StatusSelected
)

func (s Status) String() string {
	switch s {
	case StatusLoaded:
		return "loaded"
	case StatusSelected:
		return "selected"
	default:
		return "empty"
	}
}

// MarshalText renders the status by name in JSON.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a status name written by MarshalText.
func (s *Status) UnmarshalText(text []byte) error {
	switch string(text) {
	case "empty":
		*s = StatusEmpty
	case "loaded":
		*s = StatusLoaded
	case "selected":
		*s = StatusSelected
	default:
		return fmt.Errorf("unknown session status %q", text)
	}
	return nil
}

// Policy holds the configurable transition rules.
type Policy struct {
	// RetainOnFailure keeps the previously loaded scenes when a search
	// fails. When false a failed search clears the session.
	RetainOnFailure bool
}

// DefaultPolicy retains loaded scenes on failure.
func DefaultPolicy() Policy {
	return Policy{RetainOnFailure: true}
}

// Submission records one issued search.
type Submission struct {
	Seq         uint64        `json:"seq"`
	SubmittedAt time.Time     `json:"submitted_at"`
	Query       query.Summary `json:"query"`
}

// State is an immutable snapshot of a session. Reduce returns new values
// and never mutates its input.
type State struct {
	Status   Status
	Stack    *raster.Stack
	Index    *scene.Index
	Selected int
	// Applied is the sequence number of the last search whose outcome was
	// applied; Issued is the highest sequence number handed out.
	Applied uint64
	Issued  uint64
	Notice  string
	History []Submission
	Policy  Policy
}

// NewState returns an empty state governed by policy.
func NewState(policy Policy) State {
	return State{Status: StatusEmpty, Policy: policy}
}

// Labels returns the date labels of the loaded stack.
func (s State) Labels() []string {
	return s.Index.Labels()
}

// Action is an input to Reduce.
type Action interface {
	action()
}

// SearchIssued records that a search with Seq was started for Spec.
type SearchIssued struct {
	Seq  uint64
	Spec query.Spec
	At   time.Time
}

// SearchCompleted delivers the scenes loaded by search Seq.
type SearchCompleted struct {
	Seq    uint64
	Stack  *raster.Stack
	Labels []string
}

// SearchFailed reports that search Seq ended without a usable stack.
type SearchFailed struct {
	Seq uint64
	Err error
}

// SelectDate picks the time step carrying Label.
type SelectDate struct {
	Label string
}

// Visualize asks which time step should be rendered. It never changes
// state.
type Visualize struct{}

func (SearchIssued) action()    {}
func (SearchCompleted) action() {}
func (SearchFailed) action()    {}
func (SelectDate) action()      {}
func (Visualize) action()       {}

// Result is the outcome of an action. Index is the time step selected by
// SelectDate or to be rendered by Visualize.
type Result struct {
	Index int
	Err   error
}

// Reduce applies a to s. When Result.Err is set the returned state equals s.
func Reduce(s State, a Action) (State, Result) {
	switch a := a.(type) {
	case SearchIssued:
		next := s
		if a.Seq > next.Issued {
			next.Issued = a.Seq
		}
		next.History = append(append([]Submission(nil), s.History...), Submission{
			Seq:         a.Seq,
			SubmittedAt: a.At,
			Query:       a.Spec.Summary(),
		})
		return next, Result{}

	case SearchCompleted:
		if a.Seq != s.Issued {
			return s, Result{Err: fmt.Errorf("%w: result %d, latest %d", ErrStaleResult, a.Seq, s.Issued)}
		}
		if a.Stack.Len() == 0 {
			return s, Result{Err: ErrNoStack}
		}
		if len(a.Labels) != a.Stack.Len() {
			return s, Result{Err: fmt.Errorf("%w: %d labels for %d time steps", scene.ErrLoad, len(a.Labels), a.Stack.Len())}
		}
		next := s
		next.Status = StatusLoaded
		next.Stack = a.Stack
		next.Index = scene.NewIndex(a.Labels)
		next.Selected = 0
		next.Applied = a.Seq
		next.Notice = ""
		return next, Result{}

	case SearchFailed:
		if a.Seq != s.Issued {
			return s, Result{Err: fmt.Errorf("%w: failure %d, latest %d", ErrStaleResult, a.Seq, s.Issued)}
		}
		next := s
		next.Applied = a.Seq
		if a.Err != nil {
			next.Notice = a.Err.Error()
		}
		if !s.Policy.RetainOnFailure {
			next.Status = StatusEmpty
			next.Stack = nil
			next.Index = nil
			next.Selected = 0
		}
		return next, Result{}

	case SelectDate:
		if s.Status == StatusEmpty {
			return s, Result{Err: ErrNoStack}
		}
		i, ok := s.Index.Lookup(a.Label)
		if !ok {
			return s, Result{Err: fmt.Errorf("%w: %q", ErrUnknownDate, a.Label)}
		}
		next := s
		next.Status = StatusSelected
		next.Selected = i
		next.Notice = ""
		return next, Result{Index: i}

	case Visualize:
		if s.Status == StatusEmpty {
			return s, Result{Err: ErrNoStack}
		}
		return s, Result{Index: s.Selected}

	default:
		return s, Result{Err: fmt.Errorf("unsupported action %T", a)}
	}
}
