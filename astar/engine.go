package astar

import (
	"context"
	"errors"

	"pathgrid/events"
	"pathgrid/grid_world"

	log "github.com/sirupsen/logrus"
)

// Engine is the search side of the events protocol. It owns the grid, the start and goal
// selection and at most one live step-wise session, and answers inbound events by publishing
// outbound ones to its publisher.
//
// Engine is single threaded: none of its methods may be called concurrently. Run serializes
// events from any number of producers onto one goroutine.
//
// Session policy: starting a new session supersedes (discards) the live one. A session searches
// a snapshot of the grid taken when it starts, so wall edits are always accepted and only affect
// searches started after them.
type Engine struct {
	grid      *grid_world.Grid
	start     string
	goal      string
	session   *Session
	publisher events.Handler
	options   []Option
}

// NewEngine returns an engine with an empty grid that publishes to publisher.
func NewEngine(publisher events.Handler, options ...Option) *Engine {
	if publisher == nil {
		publisher = events.HandlerFunc(func(events.Event) {})
	}
	return &Engine{
		grid:      grid_world.NewGrid(),
		publisher: publisher,
		options:   options,
	}
}

// Grid exposes the engine's grid for read-only inspection.
func (engine *Engine) Grid() *grid_world.Grid {
	return engine.grid
}

// SetStart assigns the start cell. The name is validated lazily, when a search begins.
func (engine *Engine) SetStart(name string) {
	engine.start = name
}

// SetGoal assigns the goal cell. The name is validated lazily, when a search begins.
func (engine *Engine) SetGoal(name string) {
	engine.goal = name
}

// Endpoints returns the current start and goal names.
func (engine *Engine) Endpoints() (start, goal string) {
	return engine.start, engine.goal
}

// NewGraph rebuilds the grid and clears start and goal. The live session, if any, is discarded:
// its cell names belong to a grid that no longer exists.
func (engine *Engine) NewGraph(columns, rows int) error {
	if err := engine.grid.Create(columns, rows); err != nil {
		return err
	}
	engine.start, engine.goal = "", ""
	engine.discardSession("discarded")
	log.WithFields(log.Fields{"columns": columns, "rows": rows}).Info("new graph")
	return nil
}

// SetWall applies a wall toggle batch. Skipped pairs are logged and returned; they never abort
// the rest of the batch.
func (engine *Engine) SetWall(names []string, isWall []bool) ([]grid_world.WallAnomaly, error) {
	anomalies, err := engine.grid.UpdateWall(names, isWall)
	if err != nil {
		return nil, err
	}
	for _, anomaly := range anomalies {
		wallAnomalyTotal.WithLabelValues(anomaly.Kind.String()).Inc()
		log.WithFields(log.Fields{"cell": anomaly.Name, "anomaly": anomaly.Kind.String()}).
			Warn("wall toggle skipped")
	}
	if log.IsLevelEnabled(log.DebugLevel) {
		log.Debugf("walls updated:\n%s", engine.grid)
	}
	return anomalies, nil
}

// FindPath runs a batch search between the current endpoints.
func (engine *Engine) FindPath(ctx context.Context) (Result, error) {
	return Search(ctx, engine.grid, engine.start, engine.goal, engine.options...)
}

// StepSearch starts a new step-wise session between the current endpoints, superseding the live
// one. On a precondition error the live session is kept.
func (engine *Engine) StepSearch() (*Session, error) {
	session, err := NewSession(engine.grid, engine.start, engine.goal, engine.options...)
	if err != nil {
		return nil, err
	}

	fields := log.Fields{"session": session.ID, "start": engine.start, "goal": engine.goal}
	if engine.session != nil {
		fields["superseded"] = engine.session.ID
		sessionTotal.WithLabelValues("superseded").Inc()
	}
	log.WithFields(fields).Info("step-wise session started")
	sessionTotal.WithLabelValues("started").Inc()

	engine.session = session
	return session, nil
}

// Advance steps the live session by one expansion.
func (engine *Engine) Advance() (Step, error) {
	if engine.session == nil {
		return Step{}, ErrNoSession
	}
	step := engine.session.Advance()
	log.WithFields(log.Fields{
		"session":  engine.session.ID,
		"status":   step.Status.String(),
		"current":  step.Current,
		"expanded": step.Expanded,
	}).Debug("session advanced")
	return step, nil
}

// Session returns the live session, or nil.
func (engine *Engine) Session() *Session {
	return engine.session
}

func (engine *Engine) discardSession(reason string) {
	if engine.session == nil {
		return
	}
	log.WithField("session", engine.session.ID).Infof("step-wise session %s", reason)
	sessionTotal.WithLabelValues(reason).Inc()
	engine.session = nil
}

// Handle dispatches one inbound event. Outbound events are ignored, so an engine may share a bus
// with its own output.
func (engine *Engine) Handle(ev events.Event) {
	engine.handle(context.Background(), ev)
}

func (engine *Engine) handle(ctx context.Context, ev events.Event) {
	switch e := events.Deref(ev).(type) {
	case events.NewGraph:
		if err := engine.NewGraph(e.Columns, e.Rows); err != nil {
			engine.fail(e.Type(), err)
		}

	case events.SetWall:
		if _, err := engine.SetWall(e.CellNames, e.IsWall); err != nil {
			engine.fail(e.Type(), err)
		}

	case events.SetStart:
		engine.SetStart(e.Start)

	case events.SetGoal:
		engine.SetGoal(e.Goal)

	case events.GetPath:
		result, err := engine.FindPath(ctx)
		if err != nil {
			engine.fail(e.Type(), err)
			return
		}
		engine.publisher.Handle(events.NewNeighbours{Costs: result.Costs})
		engine.publisher.Handle(events.PathFound{Path: result.Path, Found: result.Status == Found})

	case events.CanComputePath:
		if _, err := engine.StepSearch(); err != nil {
			engine.fail(e.Type(), err)
		}

	case events.Step:
		step, err := engine.Advance()
		if err != nil {
			engine.fail(e.Type(), err)
			return
		}
		switch step.Status {
		case InProgress:
			engine.publisher.Handle(events.NewNeighbours{Costs: step.Costs})
		case Found:
			engine.publisher.Handle(events.PathFound{Path: step.Path, Found: true})
		case Unreachable:
			engine.publisher.Handle(events.PathFound{Found: false})
		}

	default:
		log.WithField("type", ev.Type()).Debug("engine ignored event")
	}
}

func (engine *Engine) fail(request events.Type, err error) {
	requestFailedTotal.WithLabelValues(string(request)).Inc()
	log.WithFields(log.Fields{"request": request, "error": err}).Warn("request failed")
	engine.publisher.Handle(events.RequestFailed{Request: request, Reason: err.Error()})
}

// Run handles inbound events one at a time until ctx is done or inbound is closed.
// Cancelling ctx also aborts an in-flight batch search.
func (engine *Engine) Run(ctx context.Context, inbound <-chan events.Event) error {
	log.Info("engine loop starting")
	defer log.Info("engine loop stopped")

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case ev, ok := <-inbound:
			if !ok {
				return nil
			}
			engine.handle(ctx, ev)
		}
	}
}
