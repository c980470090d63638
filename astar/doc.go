// Package astar finds shortest paths over a grid_world.Grid.
//
// It exposes two ways to consume a search:
//
//   - Search: run A* to completion and get a Result.
//   - Session: advance the search one expansion at a time, observing the cost map in between,
//     to drive a visualization.
//
// Both share the same expansion step, so a session driven to completion yields exactly the path
// Search returns for the same inputs. Engine wraps both behind the events protocol.
package astar
