package astar

import (
	"pathgrid/grid_world"

	"github.com/google/uuid"
)

// Step is what a single Session.Advance observed.
//   - InProgress: Costs is a snapshot of the cost map after expanding Current.
//   - Found: Path runs from start to goal inclusive.
//   - Unreachable: the frontier emptied; there is no Path.
type Step struct {
	Status   Status
	Current  string
	Costs    map[string]int
	Path     []string
	Expanded int
}

// Session is a resumable, step-wise search. It owns a full run state and a private snapshot of
// the grid taken when it was created, so wall edits made while it is live never reach it.
// A Session is not safe for concurrent use; callers drive it from one goroutine.
type Session struct {
	ID  string
	run *run
}

// NewSession validates the endpoints against grid and prepares a search without expanding anything.
func NewSession(grid *grid_world.Grid, start, goal string, options ...Option) (*Session, error) {
	r, err := newRun(grid.Snapshot(), start, goal, options...)
	if err != nil {
		return nil, err
	}
	return &Session{
		ID:  uuid.NewString(),
		run: r,
	}, nil
}

// Advance performs exactly one extract-and-expand cycle. After a terminal step, every further
// call returns that terminal step again and does no work.
func (session *Session) Advance() Step {
	terminal := session.Done()
	current, status := session.run.expand()

	step := Step{
		Status:   status,
		Expanded: len(session.run.visited),
	}
	if !terminal && status != Unreachable {
		step.Current = current.Name()
	}

	switch status {
	case InProgress:
		step.Costs = session.run.costs()
	case Found:
		step.Path = append([]string(nil), session.run.path...)
	}

	if status != InProgress && !terminal {
		observeSearch("step", session.run.result(), nil, 0)
	}
	return step
}

// Done reports whether the session reached Found or Unreachable.
func (session *Session) Done() bool {
	return session.run.status != InProgress
}

// Result returns the outcome so far, in the same form Search returns.
func (session *Session) Result() Result {
	return session.run.result()
}
