package game

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Terrain tiles.
const (
	TileAir      = '.'
	TileSolid    = '#'
	TilePlatform = '-'
)

// Motion limits shared by every falling object.
const (
	DefaultGravity = 1.0
	MaxFallSpeed   = 24.0
)

// TileMap is the static terrain grid.
type TileMap struct {
	Rows, Cols int
	TileSize   float64
	tiles      [][]byte
}

// LoadTileMap reads a map file: a "rows cols" header followed by one line
// of tiles per row.
func LoadTileMap(path string, tileSize float64) (*TileMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening map: %w", err)
	}
	defer f.Close()
	return ReadTileMap(f, tileSize)
}

// ReadTileMap parses the map format from r.
func ReadTileMap(r io.Reader, tileSize float64) (*TileMap, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	if !sc.Scan() {
		return nil, fmt.Errorf("map header missing")
	}
	header := strings.Fields(sc.Text())
	if len(header) != 2 {
		return nil, fmt.Errorf("map header %q: want rows and cols", sc.Text())
	}
	rows, err := strconv.Atoi(header[0])
	if err != nil || rows <= 0 {
		return nil, fmt.Errorf("map rows %q invalid", header[0])
	}
	cols, err := strconv.Atoi(header[1])
	if err != nil || cols <= 0 {
		return nil, fmt.Errorf("map cols %q invalid", header[1])
	}

	m := &TileMap{Rows: rows, Cols: cols, TileSize: tileSize, tiles: make([][]byte, rows)}
	for row := 0; row < rows; row++ {
		if !sc.Scan() {
			return nil, fmt.Errorf("map truncated at row %d", row)
		}
		line := sc.Text()
		if len(line) != cols {
			return nil, fmt.Errorf("map row %d has %d tiles, want %d", row, len(line), cols)
		}
		for i := 0; i < len(line); i++ {
			switch line[i] {
			case TileAir, TileSolid, TilePlatform:
			default:
				return nil, fmt.Errorf("map row %d col %d: unknown tile %q", row, i, line[i])
			}
		}
		m.tiles[row] = []byte(line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading map: %w", err)
	}
	return m, nil
}

// GenerateTileMap builds the default battlefield: flat ground with a few
// floating platforms between the castles.
func GenerateTileMap(rows, cols int, tileSize float64) *TileMap {
	m := &TileMap{Rows: rows, Cols: cols, TileSize: tileSize, tiles: make([][]byte, rows)}
	ground := rows - 6
	for row := 0; row < rows; row++ {
		line := make([]byte, cols)
		for col := range line {
			if row >= ground {
				line[col] = TileSolid
			} else {
				line[col] = TileAir
			}
		}
		m.tiles[row] = line
	}

	// Platforms in the middle third, alternating heights.
	for i, start := 0, cols/3; start+8 < cols*2/3; i, start = i+1, start+16 {
		row := ground - 5
		if i%2 == 1 {
			row = ground - 9
		}
		for col := start; col < start+8; col++ {
			m.tiles[row][col] = TilePlatform
		}
	}
	return m
}

// Width returns the map width in pixels.
func (m *TileMap) Width() float64 { return float64(m.Cols) * m.TileSize }

// Height returns the map height in pixels.
func (m *TileMap) Height() float64 { return float64(m.Rows) * m.TileSize }

// Tile returns the tile at row, col. Outside the sides and below the map
// everything is solid; above the map is air.
func (m *TileMap) Tile(row, col int) byte {
	if row < 0 {
		return TileAir
	}
	if row >= m.Rows || col < 0 || col >= m.Cols {
		return TileSolid
	}
	return m.tiles[row][col]
}

// Solid reports whether the tile blocks movement from every side.
func (m *TileMap) Solid(row, col int) bool {
	return m.Tile(row, col) == TileSolid
}

// Lines returns the rows as strings for the handshake.
func (m *TileMap) Lines() []string {
	out := make([]string, m.Rows)
	for i, row := range m.tiles {
		out[i] = string(row)
	}
	return out
}

// GroundY returns the y of the first standable surface in the column
// containing x, scanning down from the top.
func (m *TileMap) GroundY(x float64) float64 {
	col := int(x / m.TileSize)
	for row := 0; row < m.Rows; row++ {
		if m.Solid(row, col) {
			return float64(row) * m.TileSize
		}
	}
	return m.Height()
}

// SurfaceRow reports whether a building w pixels wide can stand on row
// starting at col: solid tiles under the whole width and air above.
func (m *TileMap) SurfaceRow(row, col int, w float64) bool {
	last := col + int(w/m.TileSize)
	for c := col; c <= last; c++ {
		if !m.Solid(row, c) || m.Solid(row-1, c) {
			return false
		}
	}
	return true
}

const edge = 0.001

// Move advances e by its velocity against the terrain. Gravity is applied
// first. Platforms only stop a falling object whose feet were above them
// and that is not dropping through. It reports whether a wall or floor
// stopped the object.
func (m *TileMap) Move(e *Entity, dropping bool) (blocked bool) {
	ts := m.TileSize
	if e.Gravity > 0 {
		e.VY += e.Gravity
		if e.VY > MaxFallSpeed {
			e.VY = MaxFallSpeed
		}
	}

	if e.VX != 0 {
		nx := e.X + e.VX
		top := int(e.Y / ts)
		bottom := int((e.Y + e.H - edge) / ts)
		if e.VX > 0 {
			col := int((nx + e.W - edge) / ts)
			if m.columnBlocked(col, top, bottom) {
				nx = float64(col)*ts - e.W
				e.VX = 0
				blocked = true
			}
		} else {
			col := int(floorDiv(nx, ts))
			if m.columnBlocked(col, top, bottom) {
				nx = float64(col+1) * ts
				e.VX = 0
				blocked = true
			}
		}
		e.X = nx
	}

	e.OnSurface = false
	ny := e.Y + e.VY
	left := int(floorDiv(e.X, ts))
	right := int((e.X + e.W - edge) / ts)
	if e.VY >= 0 {
		feet := e.Y + e.H
		row := int((ny + e.H) / ts)
		if m.rowStops(row, left, right, feet, dropping) {
			ny = float64(row)*ts - e.H
			e.VY = 0
			e.OnSurface = true
			blocked = true
		}
	} else {
		row := int(floorDiv(ny, ts))
		if m.rowBlocked(row, left, right) {
			ny = float64(row+1) * ts
			e.VY = 0
			blocked = true
		}
	}
	e.Y = ny
	return blocked
}

func (m *TileMap) columnBlocked(col, top, bottom int) bool {
	for row := top; row <= bottom; row++ {
		if m.Solid(row, col) {
			return true
		}
	}
	return false
}

func (m *TileMap) rowBlocked(row, left, right int) bool {
	for col := left; col <= right; col++ {
		if m.Solid(row, col) {
			return true
		}
	}
	return false
}

func (m *TileMap) rowStops(row, left, right int, feet float64, dropping bool) bool {
	top := float64(row) * m.TileSize
	for col := left; col <= right; col++ {
		switch m.Tile(row, col) {
		case TileSolid:
			return true
		case TilePlatform:
			if !dropping && feet <= top+edge {
				return true
			}
		}
	}
	return false
}

func floorDiv(v, d float64) float64 {
	q := v / d
	if q < 0 && q != float64(int(q)) {
		return float64(int(q) - 1)
	}
	return float64(int(q))
}
