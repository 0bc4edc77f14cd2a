package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NewGraph creates a new empty board with a unique ID and timestamps
func NewGraph(name string) *Graph {
	now := time.Now()
	return &Graph{
		ID:        uuid.New().String(),
		Name:      name,
		Vertices:  []Vertex{},
		Edges:     []Edge{},
		Width:     DefaultWidth,
		Height:    DefaultHeight,
		NextID:    1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewVertex creates a vertex with the given id, position and token balance
func NewVertex(id int64, x, y float64, tokens int) *Vertex {
	now := time.Now()
	return &Vertex{
		ID:        id,
		Tokens:    tokens,
		X:         x,
		Y:         y,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewEdge creates a new edge with a unique ID
func NewEdge(source, target int64, weight int64) *Edge {
	return &Edge{
		ID:        uuid.New().String(),
		Source:    source,
		Target:    target,
		Weight:    weight,
		CreatedAt: time.Now(),
	}
}

// Other returns the endpoint of the edge that is not id
func (e Edge) Other(id int64) int64 {
	if e.Source == id {
		return e.Target
	}
	return e.Source
}

// Touches reports whether id is one of the edge endpoints
func (e Edge) Touches(id int64) bool {
	return e.Source == id || e.Target == id
}

// AddVertices adds any number of vertices at once. Nothing is added if one of
// them has an invalid or already used id.
func (g *Graph) AddVertices(vertices ...*Vertex) error {
	seen := make(map[int64]bool, len(vertices))
	for _, v := range vertices {
		if v.ID <= 0 {
			return fmt.Errorf("%w: %d", ErrInvalidVertexID, v.ID)
		}
		if seen[v.ID] || g.HasVertex(v.ID) {
			return fmt.Errorf("%w: %d", ErrDuplicateVertex, v.ID)
		}
		seen[v.ID] = true
	}

	for _, v := range vertices {
		g.Vertices = append(g.Vertices, *v)
		if v.ID >= g.NextID {
			g.NextID = v.ID + 1
		}
	}
	g.touch()
	return nil
}

// PlaceVertex adds a vertex at (x, y) under the next free id and returns a copy of it
func (g *Graph) PlaceVertex(x, y float64, tokens int) Vertex {
	if g.NextID <= 0 {
		g.NextID = 1
	}
	v := NewVertex(g.NextID, x, y, tokens)
	g.NextID++
	g.Vertices = append(g.Vertices, *v)
	g.touch()
	return *v
}

// RemoveVertex removes a vertex and every edge incident to it
func (g *Graph) RemoveVertex(id int64) error {
	idx := g.indexOf(id)
	if idx < 0 {
		return fmt.Errorf("%w: %d", ErrVertexNotFound, id)
	}

	g.Vertices = append(g.Vertices[:idx], g.Vertices[idx+1:]...)

	kept := g.Edges[:0]
	for _, e := range g.Edges {
		if !e.Touches(id) {
			kept = append(kept, e)
		}
	}
	g.Edges = kept

	g.touch()
	return nil
}

// Connect creates an undirected edge between two existing, non-adjacent vertices
func (g *Graph) Connect(a, b int64, weight int64) (Edge, error) {
	if !g.HasVertex(a) {
		return Edge{}, fmt.Errorf("%w: %d", ErrVertexNotFound, a)
	}
	if !g.HasVertex(b) {
		return Edge{}, fmt.Errorf("%w: %d", ErrVertexNotFound, b)
	}
	if a == b {
		return Edge{}, fmt.Errorf("%w: %d", ErrSelfLoop, a)
	}
	if weight < 0 {
		return Edge{}, fmt.Errorf("%w: %d", ErrNegativeWeight, weight)
	}
	if g.edgeIndex(a, b) >= 0 {
		return Edge{}, fmt.Errorf("%w: %d - %d", ErrDuplicateEdge, a, b)
	}

	e := NewEdge(a, b, weight)
	g.Edges = append(g.Edges, *e)
	g.touch()
	return *e, nil
}

// Disconnect removes the edge between two vertices
func (g *Graph) Disconnect(a, b int64) error {
	if err := g.requireBoth(a, b); err != nil {
		return err
	}
	idx := g.edgeIndex(a, b)
	if idx < 0 {
		return fmt.Errorf("%w: %d - %d", ErrNotAdjacent, a, b)
	}
	g.Edges = append(g.Edges[:idx], g.Edges[idx+1:]...)
	g.touch()
	return nil
}

// SetWeight changes the weight of an existing edge
func (g *Graph) SetWeight(a, b int64, weight int64) error {
	if weight < 0 {
		return fmt.Errorf("%w: %d", ErrNegativeWeight, weight)
	}
	if err := g.requireBoth(a, b); err != nil {
		return err
	}
	idx := g.edgeIndex(a, b)
	if idx < 0 {
		return fmt.Errorf("%w: %d - %d", ErrNotAdjacent, a, b)
	}
	g.Edges[idx].Weight = weight
	g.touch()
	return nil
}

// SetTokens overwrites the token balance of a vertex
func (g *Graph) SetTokens(id int64, tokens int) error {
	v, err := g.FindVertex(id)
	if err != nil {
		return err
	}
	v.Tokens = tokens
	v.UpdatedAt = time.Now()
	g.touch()
	return nil
}

// MoveVertex sets the position of a vertex
func (g *Graph) MoveVertex(id int64, x, y float64) error {
	v, err := g.FindVertex(id)
	if err != nil {
		return err
	}
	v.X = x
	v.Y = y
	v.UpdatedAt = time.Now()
	g.touch()
	return nil
}

// Give moves one token from the vertex to each of its neighbors.
// The giver may go into debt.
func (g *Graph) Give(id int64) error {
	return g.transfer(id, -1)
}

// Take moves one token from each neighbor to the vertex.
// Neighbors may go into debt.
func (g *Graph) Take(id int64) error {
	return g.transfer(id, 1)
}

// transfer applies delta to the vertex once per neighbor and the opposite delta
// to every neighbor, so the board total never changes.
func (g *Graph) transfer(id int64, delta int) error {
	idx := g.indexOf(id)
	if idx < 0 {
		return fmt.Errorf("%w: %d", ErrVertexNotFound, id)
	}

	now := time.Now()
	for _, n := range g.Neighbors(id) {
		ni := g.indexOf(n)
		g.Vertices[idx].Tokens += delta
		g.Vertices[ni].Tokens -= delta
		g.Vertices[ni].UpdatedAt = now
	}
	g.Vertices[idx].UpdatedAt = now
	g.touch()
	return nil
}

// SetDimensions sets the width and height of the canvas
func (g *Graph) SetDimensions(width, height float64) {
	g.Width = width
	g.Height = height
	g.touch()
}

// Clone returns a deep copy of the board
func (g *Graph) Clone() *Graph {
	c := *g
	c.Vertices = append([]Vertex(nil), g.Vertices...)
	c.Edges = append([]Edge(nil), g.Edges...)
	if c.Vertices == nil {
		c.Vertices = []Vertex{}
	}
	if c.Edges == nil {
		c.Edges = []Edge{}
	}
	return &c
}

// Summarize returns the listing entry for this board
func (g *Graph) Summarize() Summary {
	return Summary{
		ID:        g.ID,
		Name:      g.Name,
		Vertices:  len(g.Vertices),
		Edges:     len(g.Edges),
		UpdatedAt: g.UpdatedAt,
	}
}

func (g *Graph) requireBoth(a, b int64) error {
	if !g.HasVertex(a) {
		return fmt.Errorf("%w: %d", ErrVertexNotFound, a)
	}
	if !g.HasVertex(b) {
		return fmt.Errorf("%w: %d", ErrVertexNotFound, b)
	}
	return nil
}

func (g *Graph) touch() {
	g.UpdatedAt = time.Now()
}
