package grid_world

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Cell is a single grid location. Its identity is its coordinates; Name is derived from them
// and is the key used for the cell everywhere else (maps, events, element ids in the page).
type Cell struct {
	X, Y int
	Wall bool
}

// Name returns the canonical "x-y" name of the cell.
func (c Cell) Name() string {
	return Name(c.X, c.Y)
}

// Name builds the canonical cell name for the passed coordinates.
func Name(x, y int) string {
	return strconv.Itoa(x) + "-" + strconv.Itoa(y)
}

// ParseName is the inverse of Name. Negative coordinates are never valid names.
func ParseName(name string) (x, y int, ok bool) {
	xs, ys, found := strings.Cut(name, "-")
	if !found {
		return 0, 0, false
	}
	var err error
	if x, err = strconv.Atoi(xs); err != nil || x < 0 {
		return 0, 0, false
	}
	if y, err = strconv.Atoi(ys); err != nil || y < 0 {
		return 0, 0, false
	}
	// Reject aliases such as "01-2" or "+1-2"; a cell has exactly one name.
	if Name(x, y) != name {
		return 0, 0, false
	}
	return x, y, true
}

// MaxDimension bounds each side of a grid. Sizes come from clients, so they are capped well
// below anything that could overflow sizeX*sizeY or exhaust memory.
const MaxDimension = 200

// ErrInvalidDimensions is returned by Create for sizes outside [1, MaxDimension].
var ErrInvalidDimensions = errors.New("grid dimensions must be in [1, 200]")

// ErrInvalidBatch is returned by UpdateWall when the name and flag slices are not index-aligned.
var ErrInvalidBatch = errors.New("wall batch names and flags differ in length")

// AnomalyKind describes why a single pair of a wall batch was not applied as requested.
type AnomalyKind int

const (
	// AnomalyNotFound: the name does not refer to a cell of the current grid.
	AnomalyNotFound AnomalyKind = iota + 1
	// AnomalyNotAWall: a wall removal was requested for a cell that is not a wall.
	AnomalyNotAWall
)

func (kind AnomalyKind) String() string {
	switch kind {
	case AnomalyNotFound:
		return "not found"
	case AnomalyNotAWall:
		return "not a wall"
	}
	return "unknown"
}

// WallAnomaly is a per-pair report from UpdateWall. The pair is skipped, the rest of the batch is not.
type WallAnomaly struct {
	Name string
	Kind AnomalyKind
}

func (anomaly WallAnomaly) String() string {
	return fmt.Sprintf("%s: %s", anomaly.Name, anomaly.Kind)
}

// Grid is the 4-connected rectangle [0,SizeX) x [0,SizeY). Cells are stored column-major,
// outer x and inner y, which matches the order they are created in.
// The cell's Wall flag is the only record of wall membership; there is no separate wall set
// to drift out of sync with it.
type Grid struct {
	sizeX, sizeY int
	cells        []Cell
}

// NewGrid returns an empty grid. Call Create to populate it.
func NewGrid() *Grid {
	return &Grid{}
}

// Create replaces the entire cell collection with a fresh, wall-free sizeX by sizeY rectangle.
// On error the previous grid is left untouched.
func (grid *Grid) Create(sizeX, sizeY int) error {
	if !ValidDimension(sizeX) || !ValidDimension(sizeY) {
		return fmt.Errorf("create %dx%d: %w", sizeX, sizeY, ErrInvalidDimensions)
	}

	cells := make([]Cell, 0, sizeX*sizeY)
	for x := 0; x < sizeX; x++ {
		for y := 0; y < sizeY; y++ {
			cells = append(cells, Cell{X: x, Y: y})
		}
	}

	grid.sizeX, grid.sizeY = sizeX, sizeY
	grid.cells = cells
	return nil
}

// ValidDimension reports whether n is an acceptable grid side length.
func ValidDimension(n int) bool {
	return n >= 1 && n <= MaxDimension
}

// Size returns the grid dimensions.
func (grid *Grid) Size() (sizeX, sizeY int) {
	return grid.sizeX, grid.sizeY
}

func (grid *Grid) inBounds(x, y int) bool {
	return x >= 0 && x < grid.sizeX && y >= 0 && y < grid.sizeY
}

func (grid *Grid) index(x, y int) int {
	return x*grid.sizeY + y
}

// Cell returns the cell at x/y, or false if it lies outside the grid.
func (grid *Grid) Cell(x, y int) (Cell, bool) {
	if !grid.inBounds(x, y) {
		return Cell{}, false
	}
	return grid.cells[grid.index(x, y)], true
}

// CellByName looks up a cell by its "x-y" name. Callers must check the bool.
func (grid *Grid) CellByName(name string) (Cell, bool) {
	x, y, ok := ParseName(name)
	if !ok {
		return Cell{}, false
	}
	return grid.Cell(x, y)
}

// IsWall reports whether the named cell exists and is a wall.
func (grid *Grid) IsWall(name string) bool {
	cell, ok := grid.CellByName(name)
	return ok && cell.Wall
}

// Neighbours returns the in-bounds, non-wall cardinal neighbours of cell, always in the order
// west, north, south, east. The order only matters for frontier ties.
func (grid *Grid) Neighbours(cell Cell) []Cell {
	offsets := [4][2]int{{-1, 0}, {0, -1}, {0, 1}, {1, 0}}
	neighbours := make([]Cell, 0, len(offsets))
	for _, offset := range offsets {
		neighbour, ok := grid.Cell(cell.X+offset[0], cell.Y+offset[1])
		if !ok || neighbour.Wall {
			continue
		}
		neighbours = append(neighbours, neighbour)
	}
	return neighbours
}

// UpdateWall applies a batch of index-aligned (name, isWall) toggles. Each pair is applied
// independently: an anomalous pair is reported and skipped, and processing continues with the
// next pair. A length mismatch rejects the whole batch before anything is applied.
func (grid *Grid) UpdateWall(names []string, isWall []bool) (anomalies []WallAnomaly, err error) {
	if len(names) != len(isWall) {
		return nil, fmt.Errorf("%d names, %d flags: %w", len(names), len(isWall), ErrInvalidBatch)
	}

	for i, name := range names {
		x, y, ok := ParseName(name)
		if !ok || !grid.inBounds(x, y) {
			anomalies = append(anomalies, WallAnomaly{Name: name, Kind: AnomalyNotFound})
			continue
		}

		cell := &grid.cells[grid.index(x, y)]
		if !isWall[i] && !cell.Wall {
			anomalies = append(anomalies, WallAnomaly{Name: name, Kind: AnomalyNotAWall})
			continue
		}
		cell.Wall = isWall[i]
	}
	return
}

// RemoveWalls clears the wall flag of every cell.
func (grid *Grid) RemoveWalls() {
	for i := range grid.cells {
		grid.cells[i].Wall = false
	}
}

// Walls returns the sorted names of all wall cells.
func (grid *Grid) Walls() []string {
	walls := []string{}
	for _, cell := range grid.cells {
		if cell.Wall {
			walls = append(walls, cell.Name())
		}
	}
	sort.Strings(walls)
	return walls
}

// Cells returns a copy of all cells, outer x and inner y.
func (grid *Grid) Cells() []Cell {
	cells := make([]Cell, len(grid.cells))
	copy(cells, grid.cells)
	return cells
}

// Snapshot returns a deep copy of the grid. Later wall edits or re-creation of the original
// do not affect the copy, which is what a step-wise search session runs against.
func (grid *Grid) Snapshot() *Grid {
	return &Grid{
		sizeX: grid.sizeX,
		sizeY: grid.sizeY,
		cells: grid.Cells(),
	}
}

// String renders the grid for the console, one text row per y: '#' for walls and '.' otherwise.
func (grid *Grid) String() string {
	var sb strings.Builder
	for y := 0; y < grid.sizeY; y++ {
		for x := 0; x < grid.sizeX; x++ {
			if grid.cells[grid.index(x, y)].Wall {
				sb.WriteByte('#')
			} else {
				sb.WriteByte('.')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
