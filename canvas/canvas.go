// Package canvas enforces the geometric rules of the drawing surface: where a
// vertex may be placed, which vertex sits under the pointer, and whether a new
// edge would run through a third vertex.
//
// Vertex discs are kept in an R-tree so every rule is a bounding-box query
// followed by an exact check on the few candidates.
package canvas

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/TFMV/dollargraph/models"
	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Default canvas geometry.
const (
	DefaultRadius = 25.0
	// HitTolerance is how far outside a disc a click still selects it.
	HitTolerance = 3.0
	// borderGap is the extra room kept between a disc and the canvas border.
	borderGap = 13.0
	// spacingGap is the extra room kept between two discs.
	spacingGap = 25.0
	// edgeClearance is how close an edge may pass to a third disc's rim.
	edgeClearance = 5.0
)

var (
	// ErrOutOfBounds indicates a placement too close to the canvas border.
	ErrOutOfBounds = errors.New("canvas: too close to edge of canvas")

	// ErrTooClose indicates a placement overlapping the space around another vertex.
	ErrTooClose = errors.New("canvas: too close to another vertex")

	// ErrEdgeBlocked indicates an edge that would pass through another vertex.
	ErrEdgeBlocked = errors.New("canvas: edge would intersect another vertex")
)

// disc is a vertex stored in the spatial index
type disc struct {
	id     int64
	center orb.Point
	bbox   rtreego.Rect
}

// Bounds implements rtreego.Spatial interface
func (d *disc) Bounds() rtreego.Rect {
	return d.bbox
}

// Canvas tracks vertex positions for placement and hit-testing queries
type Canvas struct {
	bounds orb.Bound
	radius float64
	tree   *rtreego.Rtree
	discs  map[int64]*disc
}

// New creates an empty canvas of the given size. A non-positive radius selects DefaultRadius.
func New(width, height, radius float64) *Canvas {
	if radius <= 0 {
		radius = DefaultRadius
	}
	return &Canvas{
		bounds: orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{width, height}},
		radius: radius,
		tree:   rtreego.NewTree(2, 25, 50), // 2D, min 25, max 50 entries per node
		discs:  make(map[int64]*disc),
	}
}

// FromGraph creates a canvas sized to the board and indexes all its vertices
func FromGraph(g *models.Graph, radius float64) *Canvas {
	c := New(g.Width, g.Height, radius)
	c.Reset(g)
	return c
}

// Radius returns the vertex radius used by the rules
func (c *Canvas) Radius() float64 {
	return c.radius
}

// Size returns the canvas width and height
func (c *Canvas) Size() (float64, float64) {
	return c.bounds.Max[0] - c.bounds.Min[0], c.bounds.Max[1] - c.bounds.Min[1]
}

// Len returns the number of indexed vertices
func (c *Canvas) Len() int {
	return c.tree.Size()
}

// Reset drops the index and rebuilds it from the board
func (c *Canvas) Reset(g *models.Graph) {
	c.bounds = orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{g.Width, g.Height}}
	c.tree = rtreego.NewTree(2, 25, 50)
	c.discs = make(map[int64]*disc, len(g.Vertices))
	for _, v := range g.Vertices {
		c.Insert(v.ID, v.X, v.Y)
	}
}

// Insert indexes a vertex disc centred at (x, y), replacing any previous entry for id
func (c *Canvas) Insert(id int64, x, y float64) {
	c.Remove(id)
	bbox, err := box(x, y, c.radius)
	if err != nil {
		return
	}
	d := &disc{id: id, center: orb.Point{x, y}, bbox: bbox}
	c.tree.Insert(d)
	c.discs[id] = d
}

// Remove drops a vertex from the index
func (c *Canvas) Remove(id int64) {
	if d, ok := c.discs[id]; ok {
		c.tree.Delete(d)
		delete(c.discs, id)
	}
}

// CanPlace checks whether a new vertex may be centred at (x, y)
func (c *Canvas) CanPlace(x, y float64) error {
	inner := c.bounds.Pad(-(c.radius + borderGap))
	if !inner.Contains(orb.Point{x, y}) {
		return fmt.Errorf("%w: (%.0f, %.0f)", ErrOutOfBounds, x, y)
	}

	query, err := box(x, y, c.radius+spacingGap)
	if err != nil {
		return err
	}
	if hits := c.tree.SearchIntersect(query); len(hits) > 0 {
		return fmt.Errorf("%w: vertex %d", ErrTooClose, hits[0].(*disc).id)
	}
	return nil
}

// VertexAt returns the vertex under the pointer, preferring the closest centre
func (c *Canvas) VertexAt(x, y float64) (int64, bool) {
	// rtreego ignores rectangles that only touch; widen so a click exactly
	// HitTolerance outside a disc still finds it.
	query, err := box(x, y, HitTolerance+touchSlack)
	if err != nil {
		return 0, false
	}

	p := orb.Point{x, y}
	best, bestDist := int64(0), math.Inf(1)
	for _, item := range c.tree.SearchIntersect(query) {
		d := item.(*disc)
		dist := planar.Distance(p, d.center)
		if dist > c.radius+HitTolerance {
			continue
		}
		if dist < bestDist {
			best, bestDist = d.id, dist
		}
	}
	return best, bestDist <= c.radius+HitTolerance
}

// Blocking returns the vertices, other than the endpoints, that a straight edge
// from a to b would pass through. The result is sorted by id.
func (c *Canvas) Blocking(a, b int64) ([]int64, error) {
	da, ok := c.discs[a]
	if !ok {
		return nil, fmt.Errorf("%w: %d", models.ErrVertexNotFound, a)
	}
	db, ok := c.discs[b]
	if !ok {
		return nil, fmt.Errorf("%w: %d", models.ErrVertexNotFound, b)
	}

	reach := c.radius + edgeClearance
	minX, maxX := math.Min(da.center[0], db.center[0]), math.Max(da.center[0], db.center[0])
	minY, maxY := math.Min(da.center[1], db.center[1]), math.Max(da.center[1], db.center[1])
	query, err := rtreego.NewRect(
		rtreego.Point{minX - reach, minY - reach},
		[]float64{maxX - minX + 2*reach, maxY - minY + 2*reach},
	)
	if err != nil {
		return nil, err
	}

	segment := orb.LineString{da.center, db.center}
	var blocking []int64
	for _, item := range c.tree.SearchIntersect(query) {
		d := item.(*disc)
		if d.id == a || d.id == b {
			continue
		}
		if planar.DistanceFrom(segment, d.center) <= reach {
			blocking = append(blocking, d.id)
		}
	}
	sort.Slice(blocking, func(i, j int) bool { return blocking[i] < blocking[j] })
	return blocking, nil
}

// CheckEdge returns ErrEdgeBlocked when an edge from a to b would cross another vertex
func (c *Canvas) CheckEdge(a, b int64) error {
	blocking, err := c.Blocking(a, b)
	if err != nil {
		return err
	}
	if len(blocking) > 0 {
		return fmt.Errorf("%w: %v", ErrEdgeBlocked, blocking)
	}
	return nil
}

// Clamp moves a point inside the placement area
func (c *Canvas) Clamp(x, y float64) (float64, float64) {
	inner := c.bounds.Pad(-(c.radius + borderGap))
	x = math.Max(inner.Min[0], math.Min(inner.Max[0], x))
	y = math.Max(inner.Min[1], math.Min(inner.Max[1], y))
	return x, y
}

// box returns the square of half-size half centred at (x, y)
const touchSlack = 1e-6

func box(x, y, half float64) (rtreego.Rect, error) {
	return rtreego.NewRect(
		rtreego.Point{x - half, y - half},
		[]float64{2 * half, 2 * half},
	)
}
