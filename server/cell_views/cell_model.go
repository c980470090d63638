// cell_views contains views derived from the Board and Frame view-models.
package cell_views

import (
	"sort"

	"pathgrid/events"
	"pathgrid/grid_world"
)

// Cell is one grid cell as the page template needs it. Fields are immediately usable as view
// parameters; Name doubles as the element id, so browser clicks map straight back to cell names.
type Cell struct {
	X, Y int
	Name string
}

// CostId is the id of the element showing a cell's cost.
func (cell Cell) CostId() string {
	return CostId(cell.Name)
}

// CostId is the id of the element showing the named cell's cost.
func CostId(name string) string {
	return name + "-cost"
}

// Board is the initial page data: a columns x rows grid, in rows so that the page reads like the
// console rendering of the grid, y=0 at the top.
type Board struct {
	Columns, Rows int
	Cells         [][]Cell
}

// NewBoard lays out a columns x rows board.
func NewBoard(columns, rows int) Board {
	board := Board{Columns: columns, Rows: rows, Cells: make([][]Cell, rows)}
	for y := range board.Cells {
		board.Cells[y] = make([]Cell, columns)
		for x := range board.Cells[y] {
			board.Cells[y][x] = Cell{X: x, Y: y, Name: grid_world.Name(x, y)}
		}
	}
	return board
}

// Outcome classifies what a Frame reports.
type Outcome int

const (
	Ignored Outcome = iota
	Searching
	PathFound
	NoPath
	Failed
)

// Frame is the view-model for one outbound engine event.
type Frame struct {
	Outcome Outcome
	// Names of the costed cells in sorted order, and their costs.
	Costed []string
	Costs  map[string]int
	Path   []string
	// Failure describes a rejected request.
	Failure string
}

// Drawable reports whether any view has something to draw for the frame.
func (frame Frame) Drawable() bool {
	return frame.Outcome != Ignored
}

// Convert transforms an outbound event into a Frame. Inbound events convert to Ignored frames.
func Convert(ev events.Event) Frame {
	switch e := events.Deref(ev).(type) {
	case events.NewNeighbours:
		costed := make([]string, 0, len(e.Costs))
		for name := range e.Costs {
			costed = append(costed, name)
		}
		sort.Strings(costed)
		return Frame{Outcome: Searching, Costed: costed, Costs: e.Costs}
	case events.PathFound:
		if !e.Found {
			return Frame{Outcome: NoPath}
		}
		return Frame{Outcome: PathFound, Path: e.Path}
	case events.RequestFailed:
		return Frame{Outcome: Failed, Failure: string(e.Request) + ": " + e.Reason}
	}
	return Frame{Outcome: Ignored}
}
