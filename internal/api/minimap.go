package api

import (
	"io"

	"github.com/fogleman/gg"

	"castle-wars/internal/game"
)

// Minimap size limits in pixels.
const (
	DefaultMinimapWidth = 600
	MaxMinimapWidth     = 2400
	minDotSize          = 2.0
)

type rgb struct{ r, g, b float64 }

var (
	skyColour     = rgb{0.53, 0.75, 0.92}
	groundColour  = rgb{0.36, 0.26, 0.16}
	neutralColour = rgb{0.85, 0.75, 0.2}
	teamColours   = map[game.Team]rgb{
		game.Red:  {0.86, 0.16, 0.16},
		game.Blue: {0.16, 0.35, 0.9},
	}
)

// renderMinimap draws the terrain and every visible entity as a dot
// coloured by team, scaled to width pixels.
func renderMinimap(w io.Writer, m *game.TileMap, dots []game.DotSnapshot, width int) error {
	if width <= 0 {
		width = DefaultMinimapWidth
	}
	width = min(width, MaxMinimapWidth)
	scale := float64(width) / m.Width()
	height := max(int(m.Height()*scale), 1)

	dc := gg.NewContext(width, height)
	dc.SetRGB(skyColour.r, skyColour.g, skyColour.b)
	dc.Clear()

	// Ground and platform tiles, merged into horizontal runs
	ts := m.TileSize * scale
	dc.SetRGB(groundColour.r, groundColour.g, groundColour.b)
	for row := 0; row < m.Rows; row++ {
		start := -1
		for col := 0; col <= m.Cols; col++ {
			solid := col < m.Cols && m.Tile(row, col) != game.TileAir
			switch {
			case solid && start < 0:
				start = col
			case !solid && start >= 0:
				dc.DrawRectangle(float64(start)*ts, float64(row)*ts, float64(col-start)*ts, ts)
				start = -1
			}
		}
	}
	dc.Fill()

	for _, d := range dots {
		c, ok := teamColours[d.Team]
		if !ok {
			c = neutralColour
		}
		dc.SetRGB(c.r, c.g, c.b)
		dc.DrawRectangle(d.X*scale, d.Y*scale, max(d.W*scale, minDotSize), max(d.H*scale, minDotSize))
		dc.Fill()
	}

	return dc.EncodePNG(w)
}
