// Package track turns a character layout into a drivable surface.
//
// A track is a rectangular grid of square cells, cellSize world units wide.
// World point (x, y) falls in column floor(x/cellSize) and row
// floor(y/cellSize); anything outside the grid is ground. Track implements
// physics.SurfaceClassifier.
package track

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// CellType is the surface of one grid cell.
type CellType string

const (
	Road       CellType = "road"
	Ground     CellType = "ground"
	Start      CellType = "start"
	Checkpoint CellType = "checkpoint"
)

// Layout characters.
const (
	RoadChar       = 'R'
	GroundChar     = '.'
	StartChar      = 'S'
	CheckpointChar = 'C'
)

var ErrInvalidLayout = errors.New("invalid track layout")

// Cell is a grid coordinate.
type Cell struct {
	Col int `json:"col"`
	Row int `json:"row"`
}

// CheckpointInfo names a checkpoint cell.
type CheckpointInfo struct {
	ID   string `json:"id"`
	Cell Cell   `json:"cell"`
}

// Track is an immutable grid surface. It is safe for concurrent reads.
type Track struct {
	cellSize    float64
	cells       [][]CellType
	start       Cell
	checkpoints []CheckpointInfo
	byCell      map[Cell]string
}

// New parses layout rows into a track. Every row must have the same width and
// the layout must contain exactly one start cell.
func New(layout []string, cellSize float64) (*Track, error) {
	if !(cellSize > 0) || math.IsInf(cellSize, 0) {
		return nil, fmt.Errorf("%w: cell size must be positive, got %g", ErrInvalidLayout, cellSize)
	}
	if len(layout) == 0 {
		return nil, fmt.Errorf("%w: layout is empty", ErrInvalidLayout)
	}

	width := len(layout[0])
	if width == 0 {
		return nil, fmt.Errorf("%w: row 1 is empty", ErrInvalidLayout)
	}

	t := &Track{
		cellSize: cellSize,
		cells:    make([][]CellType, len(layout)),
		byCell:   make(map[Cell]string),
	}

	starts := 0
	for row, line := range layout {
		if len(line) != width {
			return nil, fmt.Errorf("%w: row %d has %d cells, expected %d", ErrInvalidLayout, row+1, len(line), width)
		}
		t.cells[row] = make([]CellType, width)
		for col := 0; col < width; col++ {
			switch line[col] {
			case RoadChar:
				t.cells[row][col] = Road
			case GroundChar:
				t.cells[row][col] = Ground
			case StartChar:
				t.cells[row][col] = Start
				t.start = Cell{Col: col, Row: row}
				starts++
			case CheckpointChar:
				t.cells[row][col] = Checkpoint
				id := fmt.Sprintf("checkpoint_%d", len(t.checkpoints))
				c := Cell{Col: col, Row: row}
				t.checkpoints = append(t.checkpoints, CheckpointInfo{ID: id, Cell: c})
				t.byCell[c] = id
			default:
				return nil, fmt.Errorf("%w: invalid character '%c' at row %d, col %d", ErrInvalidLayout, line[col], row+1, col+1)
			}
		}
	}

	if starts != 1 {
		return nil, fmt.Errorf("%w: layout must contain exactly one start (S) cell, found %d", ErrInvalidLayout, starts)
	}

	return t, nil
}

// IsInside reports whether position lies on a road, start or checkpoint cell.
func (t *Track) IsInside(position mgl64.Vec2) bool {
	switch t.CellTypeAt(position) {
	case Road, Start, Checkpoint:
		return true
	}
	return false
}

// CellAt maps a world position to its grid cell. ok is false outside the grid.
func (t *Track) CellAt(position mgl64.Vec2) (cell Cell, ok bool) {
	x, y := position.X()/t.cellSize, position.Y()/t.cellSize
	if math.IsNaN(x) || math.IsNaN(y) {
		return Cell{}, false
	}
	fx, fy := math.Floor(x), math.Floor(y)
	if fx < 0 || fy < 0 || fx >= float64(t.Width()) || fy >= float64(t.Height()) {
		return Cell{}, false
	}
	return Cell{Col: int(fx), Row: int(fy)}, true
}

// CellTypeAt returns the surface under position, Ground outside the grid.
func (t *Track) CellTypeAt(position mgl64.Vec2) CellType {
	cell, ok := t.CellAt(position)
	if !ok {
		return Ground
	}
	return t.cells[cell.Row][cell.Col]
}

// CheckpointAt returns the id of the checkpoint under position, if any.
func (t *Track) CheckpointAt(position mgl64.Vec2) (string, bool) {
	cell, ok := t.CellAt(position)
	if !ok {
		return "", false
	}
	id, ok := t.byCell[cell]
	return id, ok
}

// CheckpointsAlong returns the checkpoints whose cells the segment from→to
// passes through, in the order they are crossed. The segment is walked
// cell by cell so a fast car cannot jump over a checkpoint between frames.
func (t *Track) CheckpointsAlong(from, to mgl64.Vec2) []string {
	x0, y0 := from.X()/t.cellSize, from.Y()/t.cellSize
	x1, y1 := to.X()/t.cellSize, to.Y()/t.cellSize
	for _, v := range []float64{x0, y0, x1, y1} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			if id, ok := t.CheckpointAt(to); ok {
				return []string{id}
			}
			return nil
		}
	}

	w, h := float64(t.Width()), float64(t.Height())
	lo, hi, ok := clipSegment(x0, y0, x1, y1, w, h)
	if !ok {
		return nil
	}
	dx, dy := x1-x0, y1-y0
	x0, y0, x1, y1 = x0+lo*dx, y0+lo*dy, x0+hi*dx, y0+hi*dy

	var ids []string
	visit := func(c Cell) {
		id, ok := t.byCell[c]
		if !ok {
			return
		}
		for _, seen := range ids {
			if seen == id {
				return
			}
		}
		ids = append(ids, id)
	}

	cell := Cell{Col: clampIndex(x0, t.Width()), Row: clampIndex(y0, t.Height())}
	end := Cell{Col: clampIndex(x1, t.Width()), Row: clampIndex(y1, t.Height())}
	stepCol, nextX, deltaX := lineStep(x0, x1)
	stepRow, nextY, deltaY := lineStep(y0, y1)

	n := min(abs(end.Col-cell.Col)+abs(end.Row-cell.Row), t.Width()+t.Height())
	visit(cell)
	for i := 0; i < n; i++ {
		if nextX < nextY {
			cell.Col += stepCol
			nextX += deltaX
		} else {
			cell.Row += stepRow
			nextY += deltaY
		}
		visit(cell)
	}
	return ids
}

// clipSegment clips the parametric segment (x0,y0)→(x1,y1) to the box
// [0,w]×[0,h] and returns the parameter range kept, ok is false when the
// segment misses the box.
func clipSegment(x0, y0, x1, y1, w, h float64) (lo, hi float64, ok bool) {
	lo, hi = 0, 1
	dx, dy := x1-x0, y1-y0
	edges := [4][2]float64{{-dx, x0}, {dx, w - x0}, {-dy, y0}, {dy, h - y0}}
	for _, e := range edges {
		p, q := e[0], e[1]
		if p == 0 {
			if q < 0 {
				return 0, 0, false
			}
			continue
		}
		r := q / p
		if p < 0 {
			lo = math.Max(lo, r)
		} else {
			hi = math.Min(hi, r)
		}
		if lo > hi {
			return 0, 0, false
		}
	}
	return lo, hi, true
}

// clampIndex floors v into a cell index within [0,n).
func clampIndex(v float64, n int) int {
	i := int(math.Floor(v))
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// lineStep returns the cell step along one axis, the segment parameter of
// the first cell boundary crossed and the parameter distance between
// boundaries.
func lineStep(a, b float64) (step int, next, delta float64) {
	d := b - a
	switch {
	case d > 0:
		return 1, (math.Floor(a) + 1 - a) / d, 1 / d
	case d < 0:
		return -1, (a - math.Floor(a)) / -d, 1 / -d
	}
	return 0, math.Inf(1), math.Inf(1)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Type returns the surface of a grid cell, Ground outside the grid.
func (t *Track) Type(cell Cell) CellType {
	if cell.Row < 0 || cell.Row >= t.Height() || cell.Col < 0 || cell.Col >= t.Width() {
		return Ground
	}
	return t.cells[cell.Row][cell.Col]
}

// Start returns the world position of the centre of the start cell.
func (t *Track) Start() mgl64.Vec2 {
	return t.Center(t.start)
}

// StartCell returns the grid cell of the start.
func (t *Track) StartCell() Cell {
	return t.start
}

// Center returns the world position of the centre of cell.
func (t *Track) Center(cell Cell) mgl64.Vec2 {
	return mgl64.Vec2{
		(float64(cell.Col) + 0.5) * t.cellSize,
		(float64(cell.Row) + 0.5) * t.cellSize,
	}
}

// Checkpoints returns the checkpoints in row-major order.
func (t *Track) Checkpoints() []CheckpointInfo {
	out := make([]CheckpointInfo, len(t.checkpoints))
	copy(out, t.checkpoints)
	return out
}

func (t *Track) Width() int {
	return len(t.cells[0])
}

func (t *Track) Height() int {
	return len(t.cells)
}

func (t *Track) CellSize() float64 {
	return t.cellSize
}

// Bounds returns the world-space extent of the grid.
func (t *Track) Bounds() (min, max mgl64.Vec2) {
	return mgl64.Vec2{0, 0}, mgl64.Vec2{float64(t.Width()) * t.cellSize, float64(t.Height()) * t.cellSize}
}

// CountType returns how many cells have the given surface.
func (t *Track) CountType(cellType CellType) int {
	count := 0
	for _, row := range t.cells {
		for _, c := range row {
			if c == cellType {
				count++
			}
		}
	}
	return count
}

// Char returns the layout character for a cell type.
func Char(cellType CellType) byte {
	switch cellType {
	case Road:
		return RoadChar
	case Start:
		return StartChar
	case Checkpoint:
		return CheckpointChar
	default:
		return GroundChar
	}
}
