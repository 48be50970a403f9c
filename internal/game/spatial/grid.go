// Package spatial provides the uniform grid used for melee hit-testing,
// proximity interaction and viewport culling.
//
// Entities are tracked by id, never by pointer. An entity is a member of
// every cell its bounding box overlaps, so a range query can return the
// same id several times.
package spatial

import (
	"math"
)

// Box is an axis-aligned bounding box in world pixels. X,Y is the top-left corner.
type Box struct {
	X, Y, W, H float64
}

// Right returns the far x edge.
func (b Box) Right() float64 { return b.X + b.W }

// Bottom returns the far y edge.
func (b Box) Bottom() float64 { return b.Y + b.H }

// Intersects reports whether two boxes overlap (edges touching do not count).
func (b Box) Intersects(o Box) bool {
	return b.X < o.Right() && o.X < b.Right() && b.Y < o.Bottom() && o.Y < b.Bottom()
}

// CellRange is an inclusive window of rows and columns.
type CellRange struct {
	RowMin, RowMax int
	ColMin, ColMax int
}

// Empty reports whether the window selects no cell.
func (r CellRange) Empty() bool {
	return r.RowMin > r.RowMax || r.ColMin > r.ColMax
}

// Grid buckets entity ids by the cells their boxes overlap.
//
// Memory layout: cells are stored in row-major order (cells[row*cols+col]).
// Grid is not safe for concurrent use; the world engine owns it.
type Grid struct {
	cellSize    float64
	invCellSize float64 // 1/cellSize for faster division
	cols, rows  int
	cells       [][]uint32
	members     map[uint32]CellRange
}

// NewGrid creates a grid covering the given world bounds.
func NewGrid(worldWidth, worldHeight, cellSize float64) *Grid {
	if cellSize <= 0 {
		cellSize = 1
	}
	cols := int(math.Ceil(worldWidth / cellSize))
	rows := int(math.Ceil(worldHeight / cellSize))

	// Ensure at least 1x1 grid
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}

	cells := make([][]uint32, cols*rows)
	for i := range cells {
		cells[i] = make([]uint32, 0, 4)
	}

	return &Grid{
		cellSize:    cellSize,
		invCellSize: 1.0 / cellSize,
		cols:        cols,
		rows:        rows,
		cells:       cells,
		members:     make(map[uint32]CellRange),
	}
}

// Insert registers id in every cell overlapped by box. Inserting an id
// that is already present relocates it.
func (g *Grid) Insert(id uint32, box Box) {
	if _, ok := g.members[id]; ok {
		g.Relocate(id, box)
		return
	}
	r := g.CellRange(box)
	g.add(id, r)
	g.members[id] = r
}

// Remove drops id from every cell. Unknown ids are ignored.
func (g *Grid) Remove(id uint32) {
	r, ok := g.members[id]
	if !ok {
		return
	}
	g.drop(id, r)
	delete(g.members, id)
}

// Relocate updates the membership of id after its box changed. Membership
// is only rewritten when the covered cell window actually differs.
func (g *Grid) Relocate(id uint32, box Box) {
	old, ok := g.members[id]
	if !ok {
		g.Insert(id, box)
		return
	}
	r := g.CellRange(box)
	if r == old {
		return
	}
	g.drop(id, old)
	g.add(id, r)
	g.members[id] = r
}

// Contains reports whether id is currently indexed.
func (g *Grid) Contains(id uint32) bool {
	_, ok := g.members[id]
	return ok
}

// Cells returns the cell window id currently occupies.
func (g *Grid) Cells(id uint32) (CellRange, bool) {
	r, ok := g.members[id]
	return r, ok
}

// Len returns the number of indexed ids.
func (g *Grid) Len() int { return len(g.members) }

// CellRange converts a world box into the clamped window of cells it
// overlaps. The cell holding the far edge is included.
func (g *Grid) CellRange(box Box) CellRange {
	return g.Clamp(CellRange{
		RowMin: g.floorCell(box.Y),
		RowMax: g.floorCell(box.Bottom()),
		ColMin: g.floorCell(box.X),
		ColMax: g.floorCell(box.Right()),
	})
}

// Clamp trims a window to the grid bounds. A window lying completely
// outside the grid comes back empty.
func (g *Grid) Clamp(r CellRange) CellRange {
	if r.RowMin < 0 {
		r.RowMin = 0
	}
	if r.ColMin < 0 {
		r.ColMin = 0
	}
	if r.RowMax >= g.rows {
		r.RowMax = g.rows - 1
	}
	if r.ColMax >= g.cols {
		r.ColMax = g.cols - 1
	}
	return r
}

// Query returns the ids whose membership intersects the window. An id
// occupying several cells in the window appears once per cell; callers
// that need exactly-once semantics deduplicate.
func (g *Grid) Query(r CellRange) []uint32 {
	return g.AppendQuery(nil, r)
}

// AppendQuery is Query appending into dst.
func (g *Grid) AppendQuery(dst []uint32, r CellRange) []uint32 {
	r = g.Clamp(r)
	if r.Empty() {
		return dst
	}
	for row := r.RowMin; row <= r.RowMax; row++ {
		for col := r.ColMin; col <= r.ColMax; col++ {
			dst = append(dst, g.cells[row*g.cols+col]...)
		}
	}
	return dst
}

// QueryBox returns the ids in every cell overlapped by box.
func (g *Grid) QueryBox(box Box) []uint32 {
	return g.Query(g.CellRange(box))
}

func (g *Grid) floorCell(v float64) int {
	return int(math.Floor(v * g.invCellSize))
}

func (g *Grid) add(id uint32, r CellRange) {
	if r.Empty() {
		return
	}
	for row := r.RowMin; row <= r.RowMax; row++ {
		for col := r.ColMin; col <= r.ColMax; col++ {
			idx := row*g.cols + col
			g.cells[idx] = append(g.cells[idx], id)
		}
	}
}

func (g *Grid) drop(id uint32, r CellRange) {
	if r.Empty() {
		return
	}
	for row := r.RowMin; row <= r.RowMax; row++ {
		for col := r.ColMin; col <= r.ColMax; col++ {
			idx := row*g.cols + col
			cell := g.cells[idx]
			for i, v := range cell {
				if v == id {
					last := len(cell) - 1
					cell[i] = cell[last]
					g.cells[idx] = cell[:last]
					break
				}
			}
		}
	}
}

// Stats returns grid statistics for debugging/profiling.
func (g *Grid) Stats() GridStats {
	var memberships, maxInCell, nonEmpty int
	for _, cell := range g.cells {
		count := len(cell)
		memberships += count
		if count > maxInCell {
			maxInCell = count
		}
		if count > 0 {
			nonEmpty++
		}
	}

	avgPerCell := 0.0
	if nonEmpty > 0 {
		avgPerCell = float64(memberships) / float64(nonEmpty)
	}

	return GridStats{
		TotalCells:     len(g.cells),
		NonEmptyCells:  nonEmpty,
		Entities:       len(g.members),
		Memberships:    memberships,
		MaxInCell:      maxInCell,
		AvgPerNonEmpty: avgPerCell,
	}
}

// GridStats contains grid statistics for debugging.
type GridStats struct {
	TotalCells     int     `json:"totalCells"`
	NonEmptyCells  int     `json:"nonEmptyCells"`
	Entities       int     `json:"entities"`
	Memberships    int     `json:"memberships"`
	MaxInCell      int     `json:"maxInCell"`
	AvgPerNonEmpty float64 `json:"avgPerNonEmpty"`
}

// Dimensions returns the grid dimensions.
func (g *Grid) Dimensions() (cols, rows int, cellSize float64) {
	return g.cols, g.rows, g.cellSize
}
