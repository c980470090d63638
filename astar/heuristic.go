package astar

import (
	"math"

	"pathgrid/grid_world"
)

// Heuristic estimates the remaining cost from a cell to the goal.
type Heuristic func(from, to grid_world.Cell) int

// MoveCost is the cost of a single step between two adjacent cells.
type MoveCost func(from, to grid_world.Cell) int

// UniformCost charges 1 per cardinal step.
func UniformCost(from, to grid_world.Cell) int {
	return 1
}

// Manhattan is the plain taxicab distance.
func Manhattan(from, to grid_world.Cell) int {
	return abs(from.X-to.X) + abs(from.Y-to.Y)
}

// TieBreakManhattan scales the Manhattan distance by D = 1 + 1/sqrt(sizeX² + sizeY²) and rounds.
// The inflation is too small to change the cost of the path found on grids of practical size,
// but it breaks the many ties an open grid produces in favour of cells nearer the goal, so
// fewer cells get expanded.
func TieBreakManhattan(sizeX, sizeY int) Heuristic {
	d := 1.0
	if diagonal := math.Hypot(float64(sizeX), float64(sizeY)); diagonal > 0 {
		d += 1 / diagonal
	}
	return func(from, to grid_world.Cell) int {
		return int(math.Round(d * float64(Manhattan(from, to))))
	}
}

func abs(i int) int {
	if i < 0 {
		return -i
	}
	return i
}
