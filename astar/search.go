package astar

import (
	"context"
	"fmt"
	"time"

	"pathgrid/frontier"
	"pathgrid/grid_world"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Status is the outcome tag of a search or of one session step.
type Status int

const (
	InProgress Status = iota
	Found
	Unreachable
)

func (status Status) String() string {
	switch status {
	case InProgress:
		return "in progress"
	case Found:
		return "found"
	case Unreachable:
		return "unreachable"
	}
	return "unknown"
}

// Result is the outcome of a batch search. Path is set only when Status is Found.
type Result struct {
	Status  Status
	Path    []string
	Cost    int
	Costs   map[string]int
	Visited []string
}

// Err maps the Unreachable outcome to ErrUnreachable, for callers that prefer an error.
func (result Result) Err() error {
	if result.Status == Unreachable {
		return ErrUnreachable
	}
	return nil
}

// Options holds the pluggable cost functions. A nil Heuristic means TieBreakManhattan for the
// dimensions of the grid being searched.
type Options struct {
	Heuristic Heuristic
	MoveCost  MoveCost
}

// Option is a function that modifies Options.
type Option func(*Options)

// WithHeuristic replaces the default tie-breaking Manhattan heuristic.
func WithHeuristic(heuristic Heuristic) Option {
	return func(options *Options) { options.Heuristic = heuristic }
}

// WithMoveCost replaces the uniform step cost.
func WithMoveCost(moveCost MoveCost) Option {
	return func(options *Options) { options.MoveCost = moveCost }
}

// noPredecessor marks the start cell in cameFrom. It can never be a cell name.
const noPredecessor = ""

// run is the complete state of one search. It is owned by exactly one Search call or Session.
type run struct {
	grid      *grid_world.Grid
	start     grid_world.Cell
	goal      grid_world.Cell
	heuristic Heuristic
	moveCost  MoveCost

	open      *frontier.Frontier[grid_world.Cell]
	costSoFar map[string]int
	cameFrom  map[string]string
	visited   []string

	status Status
	path   []string
}

// resolve turns endpoint names into cells of grid, or a precondition error.
func resolve(grid *grid_world.Grid, start, goal string) (startCell, goalCell grid_world.Cell, err error) {
	if start == "" {
		return startCell, goalCell, ErrNoStart
	}
	if goal == "" {
		return startCell, goalCell, ErrNoGoal
	}

	var ok bool
	if startCell, ok = grid.CellByName(start); !ok {
		return startCell, goalCell, fmt.Errorf("start %q: %w", start, ErrNotFound)
	}
	if goalCell, ok = grid.CellByName(goal); !ok {
		return startCell, goalCell, fmt.Errorf("goal %q: %w", goal, ErrNotFound)
	}
	return
}

func newRun(grid *grid_world.Grid, start, goal string, options ...Option) (*run, error) {
	startCell, goalCell, err := resolve(grid, start, goal)
	if err != nil {
		return nil, err
	}

	searchOptions := Options{MoveCost: UniformCost}
	for _, option := range options {
		option(&searchOptions)
	}
	if searchOptions.Heuristic == nil {
		searchOptions.Heuristic = TieBreakManhattan(grid.Size())
	}

	r := &run{
		grid:      grid,
		start:     startCell,
		goal:      goalCell,
		heuristic: searchOptions.Heuristic,
		moveCost:  searchOptions.MoveCost,
		open:      frontier.New[grid_world.Cell](),
		costSoFar: map[string]int{start: 0},
		cameFrom:  map[string]string{start: noPredecessor},
	}
	r.open.Insert(startCell, 0)
	return r, nil
}

// stale reports whether a popped entry was superseded by a cheaper insertion of the same cell.
// Each (cell, cost) pair is inserted at most once, so an entry is current exactly when its
// priority still matches the cell's best known cost.
func (r *run) stale(entry frontier.Entry[grid_world.Cell]) bool {
	name := entry.Item.Name()
	if name == r.start.Name() && entry.Priority == 0 {
		return false
	}
	return entry.Priority != r.costSoFar[name]+r.heuristic(entry.Item, r.goal)
}

// expand performs one extract-and-expand cycle and returns the cell it expanded.
// Once the run is terminal, expand does nothing and returns the terminal status again.
func (r *run) expand() (current grid_world.Cell, status Status) {
	if r.status != InProgress {
		return current, r.status
	}

	for {
		entry, ok := r.open.ExtractMin()
		if !ok {
			r.status = Unreachable
			return current, r.status
		}
		if !r.stale(entry) {
			current = entry.Item
			break
		}
	}

	name := current.Name()
	r.visited = append(r.visited, name)

	// The goal is never expanded.
	if name == r.goal.Name() {
		path, err := reconstructPath(r.cameFrom, name)
		if err != nil {
			r.status = Unreachable
			return current, r.status
		}
		r.path = path
		r.status = Found
		return current, r.status
	}

	for _, neighbour := range r.grid.Neighbours(current) {
		neighbourName := neighbour.Name()
		newCost := r.costSoFar[name] + r.moveCost(current, neighbour)
		if oldCost, seen := r.costSoFar[neighbourName]; seen && newCost >= oldCost {
			continue
		}
		r.costSoFar[neighbourName] = newCost
		r.cameFrom[neighbourName] = name
		r.open.Insert(neighbour, newCost+r.heuristic(neighbour, r.goal))
	}
	return current, InProgress
}

// costs returns a copy of the cost map, safe to hand to another goroutine.
func (r *run) costs() map[string]int {
	snapshot := make(map[string]int, len(r.costSoFar))
	for name, cost := range r.costSoFar {
		snapshot[name] = cost
	}
	return snapshot
}

func (r *run) result() Result {
	result := Result{
		Status:  r.status,
		Costs:   r.costs(),
		Visited: append([]string(nil), r.visited...),
	}
	if r.status == Found {
		result.Path = append([]string(nil), r.path...)
		result.Cost = r.costSoFar[r.goal.Name()]
	}
	return result
}

// reconstructPath walks cameFrom back from goal to the start sentinel. The walk is bounded by the
// size of the map, so a broken chain yields ErrUnreachable instead of looping.
func reconstructPath(cameFrom map[string]string, goal string) ([]string, error) {
	path := []string{}
	current := goal
	for steps := 0; steps <= len(cameFrom); steps++ {
		previous, ok := cameFrom[current]
		if !ok {
			return nil, ErrUnreachable
		}
		path = append(path, current)
		if previous == noPredecessor {
			for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
				path[i], path[j] = path[j], path[i]
			}
			return path, nil
		}
		current = previous
	}
	return nil, ErrUnreachable
}

// Search runs A* from start to goal over grid to completion. Precondition failures (unset or
// unknown endpoints) are returned as errors; an unreachable goal is a Result with Status
// Unreachable, never a reconstruction attempt. The grid must not be modified during the call.
func Search(
	ctx context.Context,
	grid *grid_world.Grid,
	start string,
	goal string,
	options ...Option,
) (result Result, err error) {
	ctx, span := otel.Tracer("pathgrid").Start(ctx, "astar.Search",
		trace.WithAttributes(
			attribute.String("start", start),
			attribute.String("goal", goal),
		))
	defer span.End()

	began := time.Now()
	defer func() {
		observeSearch("batch", result, err, time.Since(began))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return
		}
		span.SetAttributes(
			attribute.String("status", result.Status.String()),
			attribute.Int("visited", len(result.Visited)),
		)
	}()

	r, err := newRun(grid, start, goal, options...)
	if err != nil {
		return Result{}, err
	}

	for {
		if err = ctx.Err(); err != nil {
			return Result{}, err
		}
		if _, status := r.expand(); status != InProgress {
			return r.result(), nil
		}
	}
}
