// Package events is the notification channel between the search engine and its UI collaborator:
// a closed set of typed events for each direction, a Handler role, and a Bus to fan events out.
package events

// Type is the string tag carried by every event on the wire.
type Type string

// Inbound, collaborator to engine.
const (
	TypeNewGraph       Type = "new-graph"
	TypeSetWall        Type = "set-wall"
	TypeSetStart       Type = "set-start"
	TypeSetGoal        Type = "set-goal"
	TypeGetPath        Type = "get-path"
	TypeCanComputePath Type = "can-compute-path"
	TypeStep           Type = "step"
)

// Outbound, engine to collaborator.
const (
	TypePathFound     Type = "path-found"
	TypeNewNeighbours Type = "new-neighbours"
	TypeRequestFailed Type = "request-failed"
)

// Event is implemented only by the types in this package; a type switch over them is exhaustive.
type Event interface {
	Type() Type
	event()
}

// Inbound reports whether t travels from the collaborator to the engine.
func (t Type) Inbound() bool {
	switch t {
	case TypeNewGraph, TypeSetWall, TypeSetStart, TypeSetGoal,
		TypeGetPath, TypeCanComputePath, TypeStep:
		return true
	}
	return false
}

// NewGraph rebuilds the grid and clears start and goal.
type NewGraph struct {
	Columns int `json:"columns" msgpack:"columns"`
	Rows    int `json:"rows" msgpack:"rows"`
}

// SetWall is a batch of index-aligned wall toggles.
type SetWall struct {
	CellNames []string `json:"cellNames" msgpack:"cellNames"`
	IsWall    []bool   `json:"isWall" msgpack:"isWall"`
}

type SetStart struct {
	Start string `json:"start" msgpack:"start"`
}

type SetGoal struct {
	Goal string `json:"goal" msgpack:"goal"`
}

// GetPath runs a batch search.
type GetPath struct{}

// CanComputePath (re)initializes the step-wise session.
type CanComputePath struct{}

// Step advances the step-wise session by one expansion.
type Step struct{}

// PathFound is the final result of a search. Found is false for the explicit "no path" outcome,
// in which case Path is empty.
type PathFound struct {
	Path  []string `json:"path" msgpack:"path"`
	Found bool     `json:"found" msgpack:"found"`
}

// NewNeighbours is a cost-map snapshot: cell name to best known cost from start.
type NewNeighbours struct {
	Costs map[string]int `json:"costs" msgpack:"costs"`
}

// RequestFailed tells the collaborator an inbound request was invalid and not carried out.
type RequestFailed struct {
	Request Type   `json:"request" msgpack:"request"`
	Reason  string `json:"reason" msgpack:"reason"`
}

func (NewGraph) Type() Type       { return TypeNewGraph }
func (SetWall) Type() Type        { return TypeSetWall }
func (SetStart) Type() Type       { return TypeSetStart }
func (SetGoal) Type() Type        { return TypeSetGoal }
func (GetPath) Type() Type        { return TypeGetPath }
func (CanComputePath) Type() Type { return TypeCanComputePath }
func (Step) Type() Type           { return TypeStep }
func (PathFound) Type() Type      { return TypePathFound }
func (NewNeighbours) Type() Type  { return TypeNewNeighbours }
func (RequestFailed) Type() Type  { return TypeRequestFailed }

func (NewGraph) event()       {}
func (SetWall) event()        {}
func (SetStart) event()       {}
func (SetGoal) event()        {}
func (GetPath) event()        {}
func (CanComputePath) event() {}
func (Step) event()           {}
func (PathFound) event()      {}
func (NewNeighbours) event()  {}
func (RequestFailed) event()  {}

// New returns a zero value of the event type t, for decoders to fill in.
func New(t Type) (Event, bool) {
	switch t {
	case TypeNewGraph:
		return &NewGraph{}, true
	case TypeSetWall:
		return &SetWall{}, true
	case TypeSetStart:
		return &SetStart{}, true
	case TypeSetGoal:
		return &SetGoal{}, true
	case TypeGetPath:
		return &GetPath{}, true
	case TypeCanComputePath:
		return &CanComputePath{}, true
	case TypeStep:
		return &Step{}, true
	case TypePathFound:
		return &PathFound{}, true
	case TypeNewNeighbours:
		return &NewNeighbours{}, true
	case TypeRequestFailed:
		return &RequestFailed{}, true
	}
	return nil, false
}

// Deref turns the pointer returned by New back into the value form that handlers switch on.
func Deref(ev Event) Event {
	switch e := ev.(type) {
	case *NewGraph:
		return *e
	case *SetWall:
		return *e
	case *SetStart:
		return *e
	case *SetGoal:
		return *e
	case *GetPath:
		return *e
	case *CanComputePath:
		return *e
	case *Step:
		return *e
	case *PathFound:
		return *e
	case *NewNeighbours:
		return *e
	case *RequestFailed:
		return *e
	}
	return ev
}

// Handler is the subscriber role: anything that reacts to events.
type Handler interface {
	Handle(Event)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(Event)

func (fn HandlerFunc) Handle(ev Event) { fn(ev) }
