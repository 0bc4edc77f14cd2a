package render

import (
	"fmt"
	"strings"

	"github.com/TFMV/dollargraph/models"
)

// Cell classifies what occupies a grid position
type Cell int

// Cell kinds, in increasing drawing priority
const (
	CellEmpty Cell = iota
	CellBorder
	CellEdge
	CellPathEdge
	CellWeight
	CellLabel
	CellVertex
	CellSelected
	CellPathVertex
	CellSource
	CellDestination
)

// IsVertex reports whether the cell holds a vertex glyph
func (c Cell) IsVertex() bool {
	return c >= CellVertex
}

// GridOptions configure Rasterize
type GridOptions struct {
	Columns     int
	Rows        int
	ShowLabels  bool
	ShowWeights bool
}

// Grid is a character raster of a board. Kinds parallels Runes so callers can
// style each cell.
type Grid struct {
	Columns int
	Rows    int
	Runes   [][]rune
	Kinds   [][]Cell
	width   float64
	height  float64
}

// Rasterize draws the board onto a character grid with a border. The grid is
// at least 20x10.
func Rasterize(graph *models.Graph, hl Highlight, opts GridOptions) *Grid {
	g := &Grid{
		Columns: max(opts.Columns, 20),
		Rows:    max(opts.Rows, 10),
		width:   graph.Width,
		height:  graph.Height,
	}
	if g.width <= 0 {
		g.width = models.DefaultWidth
	}
	if g.height <= 0 {
		g.height = models.DefaultHeight
	}

	g.Runes = make([][]rune, g.Rows)
	g.Kinds = make([][]Cell, g.Rows)
	for i := range g.Runes {
		g.Runes[i] = make([]rune, g.Columns)
		g.Kinds[i] = make([]Cell, g.Columns)
		for j := range g.Runes[i] {
			g.Runes[i][j] = ' '
		}
	}
	g.drawBorder()

	positions := make(map[int64]models.Vertex, len(graph.Vertices))
	for _, v := range graph.Vertices {
		positions[v.ID] = v
	}

	for _, e := range graph.Edges {
		a, okA := positions[e.Source]
		b, okB := positions[e.Target]
		if !okA || !okB {
			continue
		}
		kind, glyph := CellEdge, '·'
		if hl.onPath(e) {
			kind, glyph = CellPathEdge, '#'
		}
		x1, y1 := g.CellOf(a.X, a.Y)
		x2, y2 := g.CellOf(b.X, b.Y)
		g.drawLine(x1, y1, x2, y2, glyph, kind)
	}

	if opts.ShowWeights {
		for _, e := range graph.Edges {
			a, okA := positions[e.Source]
			b, okB := positions[e.Target]
			if !okA || !okB {
				continue
			}
			col, row := g.CellOf((a.X+b.X)/2, (a.Y+b.Y)/2)
			g.writeText(col, row, fmt.Sprintf("%d", e.Weight), CellWeight)
		}
	}

	for _, v := range graph.Vertices {
		col, row := g.CellOf(v.X, v.Y)
		kind, glyph := CellVertex, 'O'
		switch hl.vertexRole(v.ID) {
		case roleSelected:
			kind, glyph = CellSelected, '@'
		case rolePath:
			kind, glyph = CellPathVertex, '*'
		case roleSource:
			kind, glyph = CellSource, 'S'
		case roleDestination:
			kind, glyph = CellDestination, 'D'
		}
		g.set(col, row, glyph, kind)

		if opts.ShowLabels {
			label := fmt.Sprintf("%d:%d", v.ID, v.Tokens)
			g.writeText(col+1, row, label, CellLabel)
		}
	}

	return g
}

// CellOf maps canvas coordinates to the grid cell containing them
func (g *Grid) CellOf(x, y float64) (col, row int) {
	innerCols := float64(g.Columns - 2)
	innerRows := float64(g.Rows - 2)
	col = clamp(int(x*innerCols/g.width)+1, 1, g.Columns-2)
	row = clamp(int(y*innerRows/g.height)+1, 1, g.Rows-2)
	return col, row
}

// PointOf maps a grid cell to the canvas coordinates of its centre
func (g *Grid) PointOf(col, row int) (x, y float64) {
	col = clamp(col, 1, g.Columns-2)
	row = clamp(row, 1, g.Rows-2)
	x = (float64(col-1) + 0.5) * g.width / float64(g.Columns-2)
	y = (float64(row-1) + 0.5) * g.height / float64(g.Rows-2)
	return x, y
}

// CellSize returns the canvas distance covered by one cell horizontally and vertically
func (g *Grid) CellSize() (float64, float64) {
	return g.width / float64(g.Columns-2), g.height / float64(g.Rows-2)
}

// String joins the rows with newlines
func (g *Grid) String() string {
	var b strings.Builder
	for _, row := range g.Runes {
		b.WriteString(string(row))
		b.WriteRune('\n')
	}
	return b.String()
}

func (g *Grid) drawBorder() {
	last, bottom := g.Columns-1, g.Rows-1
	for i := 0; i < g.Columns; i++ {
		g.set(i, 0, '-', CellBorder)
		g.set(i, bottom, '-', CellBorder)
	}
	for i := 0; i < g.Rows; i++ {
		g.set(0, i, '|', CellBorder)
		g.set(last, i, '|', CellBorder)
	}
	for _, corner := range [][2]int{{0, 0}, {last, 0}, {0, bottom}, {last, bottom}} {
		g.set(corner[0], corner[1], '+', CellBorder)
	}
}

// set writes a glyph unless a higher priority kind already holds the cell
func (g *Grid) set(col, row int, glyph rune, kind Cell) {
	if row < 0 || row >= g.Rows || col < 0 || col >= g.Columns {
		return
	}
	if g.Kinds[row][col] > kind && kind != CellBorder {
		return
	}
	g.Runes[row][col] = glyph
	g.Kinds[row][col] = kind
}

// writeText writes a label inside the border, skipping cells it cannot overwrite
func (g *Grid) writeText(col, row int, text string, kind Cell) {
	for i, r := range text {
		c := col + i
		if c >= g.Columns-1 {
			return
		}
		if row <= 0 || row >= g.Rows-1 || c <= 0 {
			continue
		}
		g.set(c, row, r, kind)
	}
}

// Draw a line on the grid using Bresenham's algorithm
func (g *Grid) drawLine(x1, y1, x2, y2 int, glyph rune, kind Cell) {
	dx := abs(x2 - x1)
	dy := -abs(y2 - y1)
	sx := 1
	if x1 >= x2 {
		sx = -1
	}
	sy := 1
	if y1 >= y2 {
		sy = -1
	}
	err := dx + dy

	for {
		g.set(x1, y1, glyph, kind)

		if x1 == x2 && y1 == y2 {
			break
		}

		e2 := 2 * err
		if e2 >= dy {
			if x1 == x2 {
				break
			}
			err += dy
			x1 += sx
		}
		if e2 <= dx {
			if y1 == y2 {
				break
			}
			err += dx
			y1 += sy
		}
	}
}

// Clamp a value between lo and hi
func clamp(val, lo, hi int) int {
	if val < lo {
		return lo
	}
	if val > hi {
		return hi
	}
	return val
}

// Absolute value of an integer
func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
