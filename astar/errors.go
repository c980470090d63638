package astar

import "errors"

var (
	// ErrNoStart and ErrNoGoal are precondition failures: the endpoint was never set, or was
	// cleared by a new graph.
	ErrNoStart = errors.New("start is not set")
	ErrNoGoal  = errors.New("goal is not set")
	// ErrNotFound means an endpoint names a cell that is not part of the current grid.
	ErrNotFound = errors.New("cell not found")
	// ErrUnreachable means the frontier emptied before the goal was reached.
	ErrUnreachable = errors.New("goal is unreachable")
	// ErrNoSession is returned when stepping before a step-wise session was started.
	ErrNoSession = errors.New("no step-wise session")
)
