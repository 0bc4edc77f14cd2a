// Package physics arranges board vertices on the canvas.
package physics

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/TFMV/dollargraph/models"
	opensimplex "github.com/ojrac/opensimplex-go"
)

// ErrUnknownLayout is returned by GetLayoutAlgorithm for an unsupported name
var ErrUnknownLayout = errors.New("physics: unknown layout")

// DefaultMargin keeps arranged vertices clear of the canvas border.
const DefaultMargin = 38.0

// LayoutAlgorithm defines an interface for layout algorithms
type LayoutAlgorithm interface {
	Initialize(graph *models.Graph)
	Step() bool // Returns true if stable, false if needs more steps
	Apply(graph *models.Graph)
	GetName() string
}

// Options tune a layout run
type Options struct {
	MaxIterations int
	Margin        float64 // Minimum distance between a vertex centre and the border
	Seed          int64   // Seeds the noise used for unplaced vertices
}

// DefaultOptions returns the options used when none are given
func DefaultOptions() Options {
	return Options{MaxIterations: 500, Margin: DefaultMargin, Seed: 1}
}

func (o Options) normalized() Options {
	d := DefaultOptions()
	if o.MaxIterations <= 0 {
		o.MaxIterations = d.MaxIterations
	}
	if o.Margin <= 0 {
		o.Margin = d.Margin
	}
	return o
}

// Position coordinates
type position struct {
	x, y float64
}

// Force vector components
type force struct {
	fx, fy float64
}

// Velocity vector components
type velocity struct {
	vx, vy float64
}

// spring is an edge pulling its endpoints together
type spring struct {
	a, b   int64
	weight int64
}

// bounds is the area vertex centres may occupy
type bounds struct {
	minX, minY, maxX, maxY float64
}

func boundsFor(graph *models.Graph, margin float64) bounds {
	b := bounds{minX: margin, minY: margin, maxX: graph.Width - margin, maxY: graph.Height - margin}
	if b.maxX < b.minX {
		b.minX, b.maxX = graph.Width/2, graph.Width/2
	}
	if b.maxY < b.minY {
		b.minY, b.maxY = graph.Height/2, graph.Height/2
	}
	return b
}

func (b bounds) clamp(p position) position {
	return position{
		x: math.Max(b.minX, math.Min(b.maxX, p.x)),
		y: math.Max(b.minY, math.Min(b.maxY, p.y)),
	}
}

// seeder places vertices that have no position yet using simplex noise, so the
// same board always starts from the same picture.
type seeder struct {
	noise opensimplex.Noise
}

func newSeeder(seed int64) seeder {
	return seeder{noise: opensimplex.New(seed)}
}

// at maps a vertex id to a point inside b
func (s seeder) at(id int64, b bounds) position {
	t := float64(id)*0.618 + 0.5
	nx := (s.noise.Eval2(t, 0.25) + 1) / 2
	ny := (s.noise.Eval2(0.75, t) + 1) / 2
	return position{
		x: b.minX + nx*(b.maxX-b.minX),
		y: b.minY + ny*(b.maxY-b.minY),
	}
}

// ForceDirectedLayout implements a Fruchterman-Reingold force-directed layout
type ForceDirectedLayout struct {
	area            bounds
	width           float64
	height          float64
	ids             []int64 // Sorted vertex ids, fixes the iteration order
	positions       map[int64]position
	velocities      map[int64]velocity
	forces          map[int64]force
	springs         []spring
	temperature     float64
	k               float64 // optimal distance
	iterations      int
	maxIterations   int
	stable          bool
	energyThreshold float64
	margin          float64
	seeder          seeder
	mu              sync.Mutex
	gravity         float64 // Gravity factor
	repulsionForce  float64 // Repulsion strength
	dampingFactor   float64 // Damping for velocity
	springConstant  float64 // Spring stiffness
}

// NewForceDirectedLayout creates a new force-directed layout
func NewForceDirectedLayout(opts Options) *ForceDirectedLayout {
	opts = opts.normalized()
	return &ForceDirectedLayout{
		positions:       make(map[int64]position),
		velocities:      make(map[int64]velocity),
		forces:          make(map[int64]force),
		temperature:     10.0,
		maxIterations:   opts.MaxIterations,
		energyThreshold: 0.01,
		margin:          opts.Margin,
		seeder:          newSeeder(opts.Seed),
		gravity:         0.05,
		repulsionForce:  100.0,
		dampingFactor:   0.9,
		springConstant:  0.04,
	}
}

// GetName returns the name of the layout algorithm
func (fd *ForceDirectedLayout) GetName() string {
	return "Force-Directed Layout"
}

// Initialize sets up the layout algorithm
func (fd *ForceDirectedLayout) Initialize(graph *models.Graph) {
	fd.mu.Lock()
	defer fd.mu.Unlock()

	fd.width = graph.Width
	fd.height = graph.Height
	fd.area = boundsFor(graph, fd.margin)
	fd.iterations = 0
	fd.stable = false

	// Optimal distance between vertices
	n := math.Max(1, float64(len(graph.Vertices)))
	fd.k = math.Sqrt((fd.width * fd.height) / n)

	fd.ids = fd.ids[:0]
	for _, v := range graph.Vertices {
		fd.ids = append(fd.ids, v.ID)
		if v.X == 0 && v.Y == 0 {
			fd.positions[v.ID] = fd.seeder.at(v.ID, fd.area)
		} else {
			fd.positions[v.ID] = fd.area.clamp(position{x: v.X, y: v.Y})
		}
		fd.velocities[v.ID] = velocity{}
		fd.forces[v.ID] = force{}
	}
	sort.Slice(fd.ids, func(i, j int) bool { return fd.ids[i] < fd.ids[j] })

	fd.springs = fd.springs[:0]
	for _, e := range graph.Edges {
		_, okA := fd.positions[e.Source]
		_, okB := fd.positions[e.Target]
		if okA && okB {
			fd.springs = append(fd.springs, spring{a: e.Source, b: e.Target, weight: e.Weight})
		}
	}
}

// Step performs one iteration of the layout algorithm
func (fd *ForceDirectedLayout) Step() bool {
	fd.mu.Lock()
	defer fd.mu.Unlock()

	if len(fd.ids) == 0 {
		fd.stable = true
	}
	if fd.iterations >= fd.maxIterations || fd.stable {
		return true
	}

	for _, id := range fd.ids {
		fd.forces[id] = force{}
	}

	centerX := fd.width / 2
	centerY := fd.height / 2
	for i, id1 := range fd.ids {
		pos1 := fd.positions[id1]

		// Gravity towards the centre, stronger from far away
		dx := centerX - pos1.x
		dy := centerY - pos1.y
		distance := math.Max(0.1, math.Sqrt(dx*dx+dy*dy))
		gravityFactor := fd.gravity * (distance / math.Min(fd.width, fd.height))
		fd.addForce(id1, dx*gravityFactor, dy*gravityFactor)

		// Repulsion: F = k^2 / distance
		for _, id2 := range fd.ids[i+1:] {
			pos2 := fd.positions[id2]
			dx := pos1.x - pos2.x
			dy := pos1.y - pos2.y
			distance := math.Sqrt(dx*dx + dy*dy)
			if distance < 0.1 {
				// Coincident vertices: push apart along a fixed diagonal
				dx, dy, distance = 0.1, 0.1, 0.1*math.Sqrt2
			}
			repulsive := (fd.k * fd.k / distance) * fd.repulsionForce / 100.0
			dx /= distance
			dy /= distance
			fd.addForce(id1, dx*repulsive, dy*repulsive)
			fd.addForce(id2, -dx*repulsive, -dy*repulsive)
		}
	}

	// Attraction along edges: F = distance^2 / k
	for _, s := range fd.springs {
		pos1 := fd.positions[s.a]
		pos2 := fd.positions[s.b]
		dx := pos2.x - pos1.x
		dy := pos2.y - pos1.y
		distance := math.Max(0.1, math.Sqrt(dx*dx+dy*dy))

		// Heavier edges pull slightly harder
		attractive := distance * distance / fd.k * fd.springConstant
		attractive *= 1.0 + math.Log1p(float64(s.weight))*0.1

		dx /= distance
		dy /= distance
		fd.addForce(s.a, dx*attractive, dy*attractive)
		fd.addForce(s.b, -dx*attractive, -dy*attractive)
	}

	// Apply forces with temperature limiting (simulated annealing)
	totalEnergy := 0.0
	for _, id := range fd.ids {
		f := fd.forces[id]
		magnitude := math.Sqrt(f.fx*f.fx + f.fy*f.fy)
		if magnitude > 0 {
			scale := math.Min(magnitude, fd.temperature) / magnitude
			f.fx *= scale
			f.fy *= scale
		}

		v := fd.velocities[id]
		v.vx = (v.vx + f.fx) * fd.dampingFactor
		v.vy = (v.vy + f.fy) * fd.dampingFactor
		fd.velocities[id] = v

		pos := fd.positions[id]
		pos.x += v.vx
		pos.y += v.vy
		fd.positions[id] = fd.area.clamp(pos)

		totalEnergy += math.Sqrt(v.vx*v.vx + v.vy*v.vy)
	}

	fd.temperature *= 0.95

	avgEnergy := totalEnergy / float64(len(fd.ids))
	fd.stable = avgEnergy < fd.energyThreshold

	fd.iterations++
	return fd.stable || fd.iterations >= fd.maxIterations
}

func (fd *ForceDirectedLayout) addForce(id int64, fx, fy float64) {
	f := fd.forces[id]
	f.fx += fx
	f.fy += fy
	fd.forces[id] = f
}

// Apply updates vertex positions in the graph
func (fd *ForceDirectedLayout) Apply(graph *models.Graph) {
	fd.mu.Lock()
	defer fd.mu.Unlock()
	applyPositions(graph, fd.positions)
}

// CircleLayout places vertices evenly on a circle in id order
type CircleLayout struct {
	margin    float64
	positions map[int64]position
	mu        sync.Mutex
}

// NewCircleLayout creates a new circle layout
func NewCircleLayout(opts Options) *CircleLayout {
	opts = opts.normalized()
	return &CircleLayout{
		margin:    opts.Margin,
		positions: make(map[int64]position),
	}
}

// GetName returns the name of the layout algorithm
func (cl *CircleLayout) GetName() string {
	return "Circle Layout"
}

// Initialize computes the final positions; the layout needs no iteration
func (cl *CircleLayout) Initialize(graph *models.Graph) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	area := boundsFor(graph, cl.margin)
	centerX := (area.minX + area.maxX) / 2
	centerY := (area.minY + area.maxY) / 2
	radius := math.Min(area.maxX-area.minX, area.maxY-area.minY) * 0.45

	ids := make([]int64, 0, len(graph.Vertices))
	for _, v := range graph.Vertices {
		ids = append(ids, v.ID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	total := float64(len(ids))
	for i, id := range ids {
		// Start at the top and go clockwise on screen
		angle := (2*math.Pi*float64(i))/total - math.Pi/2
		cl.positions[id] = position{
			x: centerX + radius*math.Cos(angle),
			y: centerY + radius*math.Sin(angle),
		}
	}
}

// Step always reports the layout as stable
func (cl *CircleLayout) Step() bool {
	return true
}

// Apply updates vertex positions in the graph
func (cl *CircleLayout) Apply(graph *models.Graph) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	applyPositions(graph, cl.positions)
}

func applyPositions(graph *models.Graph, positions map[int64]position) {
	for _, v := range graph.Vertices {
		if pos, ok := positions[v.ID]; ok {
			// MoveVertex only fails for unknown ids, which cannot happen here
			_ = graph.MoveVertex(v.ID, pos.x, pos.y)
		}
	}
}

// GetLayoutAlgorithm returns a layout algorithm by name
func GetLayoutAlgorithm(name string, opts Options) (LayoutAlgorithm, error) {
	switch name {
	case "force", "":
		return NewForceDirectedLayout(opts), nil
	case "circle":
		return NewCircleLayout(opts), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownLayout, name)
	}
}

// Layouts lists the names accepted by GetLayoutAlgorithm
func Layouts() []string {
	return []string{"force", "circle"}
}

// Arrange runs the named layout on the graph until it is stable, the iteration
// budget is spent, or the context is done. Positions reached so far are always
// applied. The returned int is the number of steps taken.
func Arrange(ctx context.Context, graph *models.Graph, name string, opts Options) (int, error) {
	layout, err := GetLayoutAlgorithm(name, opts)
	if err != nil {
		return 0, err
	}

	layout.Initialize(graph)
	steps := 0
	for {
		if err := ctx.Err(); err != nil {
			layout.Apply(graph)
			return steps, err
		}
		steps++
		if layout.Step() {
			break
		}
	}
	layout.Apply(graph)
	return steps, nil
}

// Unplaced reports whether any vertex still sits at the origin, the position
// importers leave for vertices without coordinates.
func Unplaced(graph *models.Graph) bool {
	for _, v := range graph.Vertices {
		if v.X == 0 && v.Y == 0 {
			return true
		}
	}
	return false
}
