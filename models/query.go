package models

import (
	"fmt"
	"sort"
)

// VertexFilter is a function type used to filter vertices in queries
type VertexFilter func(v *Vertex) bool

// FindVertex returns the vertex with the given id
func (g *Graph) FindVertex(id int64) (*Vertex, error) {
	idx := g.indexOf(id)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %d", ErrVertexNotFound, id)
	}
	return &g.Vertices[idx], nil
}

// HasVertex reports whether the board contains a vertex with the given id
func (g *Graph) HasVertex(id int64) bool {
	return g.indexOf(id) >= 0
}

// Coordinates returns the position of a vertex
func (g *Graph) Coordinates(id int64) (float64, float64, error) {
	v, err := g.FindVertex(id)
	if err != nil {
		return 0, 0, err
	}
	return v.X, v.Y, nil
}

// EdgeBetween returns the edge joining two vertices, in either orientation
func (g *Graph) EdgeBetween(a, b int64) (*Edge, error) {
	idx := g.edgeIndex(a, b)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %d - %d", ErrNotAdjacent, a, b)
	}
	return &g.Edges[idx], nil
}

// Adjacent reports whether two vertices share an edge. Unknown vertices are never adjacent.
func (g *Graph) Adjacent(a, b int64) bool {
	return g.edgeIndex(a, b) >= 0
}

// Weight returns the weight of the edge between two vertices
func (g *Graph) Weight(a, b int64) (int64, error) {
	if err := g.requireBoth(a, b); err != nil {
		return 0, err
	}
	e, err := g.EdgeBetween(a, b)
	if err != nil {
		return 0, err
	}
	return e.Weight, nil
}

// Neighbors returns the ids of all vertices adjacent to id, in edge creation order
func (g *Graph) Neighbors(id int64) []int64 {
	var result []int64
	for _, e := range g.Edges {
		if e.Touches(id) {
			result = append(result, e.Other(id))
		}
	}
	return result
}

// EdgesOf returns every edge incident to a vertex
func (g *Graph) EdgesOf(id int64) []Edge {
	var result []Edge
	for _, e := range g.Edges {
		if e.Touches(id) {
			result = append(result, e)
		}
	}
	return result
}

// Degree returns the number of edges incident to a vertex
func (g *Graph) Degree(id int64) int {
	degree := 0
	for _, e := range g.Edges {
		if e.Touches(id) {
			degree++
		}
	}
	return degree
}

// MinDegree returns the smallest vertex degree, or 0 for an empty board
func (g *Graph) MinDegree() int {
	if len(g.Vertices) == 0 {
		return 0
	}
	degrees := g.degrees()
	min := degrees[g.Vertices[0].ID]
	for _, v := range g.Vertices {
		if degrees[v.ID] < min {
			min = degrees[v.ID]
		}
	}
	return min
}

// MaxDegree returns the largest vertex degree, or 0 for an empty board
func (g *Graph) MaxDegree() int {
	max := 0
	for _, d := range g.degrees() {
		if d > max {
			max = d
		}
	}
	return max
}

// TotalTokens returns the sum of all vertex balances
func (g *Graph) TotalTokens() int {
	total := 0
	for _, v := range g.Vertices {
		total += v.Tokens
	}
	return total
}

// Debtors returns the ids of vertices with a negative balance, in ascending order
func (g *Graph) Debtors() []int64 {
	result := []int64{}
	for _, v := range g.Vertices {
		if v.Tokens < 0 {
			result = append(result, v.ID)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

// IsWinning reports whether no vertex is in debt
func (g *Graph) IsWinning() bool {
	return len(g.Debtors()) == 0
}

// Components returns the number of connected components
func (g *Graph) Components() int {
	adj := g.AdjacencyList()
	seen := make(map[int64]bool, len(g.Vertices))
	count := 0
	for _, v := range g.Vertices {
		if seen[v.ID] {
			continue
		}
		count++
		stack := []int64{v.ID}
		seen[v.ID] = true
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for n := range adj[cur] {
				if !seen[n] {
					seen[n] = true
					stack = append(stack, n)
				}
			}
		}
	}
	return count
}

// Genus returns the cycle rank |E| - |V| + components. A dollar-game
// configuration whose total is at least the genus can always be won.
func (g *Graph) Genus() int {
	return len(g.Edges) - len(g.Vertices) + g.Components()
}

// AdjacencyList returns, for every vertex, its neighbors mapped to edge weights
func (g *Graph) AdjacencyList() map[int64]map[int64]int64 {
	adj := make(map[int64]map[int64]int64, len(g.Vertices))
	for _, v := range g.Vertices {
		adj[v.ID] = make(map[int64]int64)
	}
	for _, e := range g.Edges {
		if adj[e.Source] == nil || adj[e.Target] == nil {
			continue
		}
		adj[e.Source][e.Target] = e.Weight
		adj[e.Target][e.Source] = e.Weight
	}
	return adj
}

// FilterVertices returns vertices that match the provided filter function
func (g *Graph) FilterVertices(filter VertexFilter) []Vertex {
	var result []Vertex
	for i := range g.Vertices {
		if filter(&g.Vertices[i]) {
			result = append(result, g.Vertices[i])
		}
	}
	return result
}

// Stats returns the board summary shown next to the canvas
func (g *Graph) Stats() Stats {
	debtors := g.Debtors()
	return Stats{
		Vertices:    len(g.Vertices),
		Edges:       len(g.Edges),
		MinDegree:   g.MinDegree(),
		MaxDegree:   g.MaxDegree(),
		TotalTokens: g.TotalTokens(),
		Genus:       g.Genus(),
		Debtors:     debtors,
		Winning:     len(debtors) == 0,
	}
}

// Validate checks the board invariants. Imported boards go through it before use.
func (g *Graph) Validate() error {
	ids := make(map[int64]bool, len(g.Vertices))
	for _, v := range g.Vertices {
		if v.ID <= 0 {
			return fmt.Errorf("%w: %d", ErrInvalidVertexID, v.ID)
		}
		if ids[v.ID] {
			return fmt.Errorf("%w: %d", ErrDuplicateVertex, v.ID)
		}
		ids[v.ID] = true
	}

	type pair struct{ a, b int64 }
	edges := make(map[pair]bool, len(g.Edges))
	for _, e := range g.Edges {
		if !ids[e.Source] {
			return fmt.Errorf("%w: %d", ErrVertexNotFound, e.Source)
		}
		if !ids[e.Target] {
			return fmt.Errorf("%w: %d", ErrVertexNotFound, e.Target)
		}
		if e.Source == e.Target {
			return fmt.Errorf("%w: %d", ErrSelfLoop, e.Source)
		}
		if e.Weight < 0 {
			return fmt.Errorf("%w: %d", ErrNegativeWeight, e.Weight)
		}
		key := pair{e.Source, e.Target}
		if key.a > key.b {
			key.a, key.b = key.b, key.a
		}
		if edges[key] {
			return fmt.Errorf("%w: %d - %d", ErrDuplicateEdge, e.Source, e.Target)
		}
		edges[key] = true
	}
	return nil
}

func (g *Graph) degrees() map[int64]int {
	degrees := make(map[int64]int, len(g.Vertices))
	for _, e := range g.Edges {
		degrees[e.Source]++
		degrees[e.Target]++
	}
	return degrees
}

func (g *Graph) indexOf(id int64) int {
	for i := range g.Vertices {
		if g.Vertices[i].ID == id {
			return i
		}
	}
	return -1
}

func (g *Graph) edgeIndex(a, b int64) int {
	for i, e := range g.Edges {
		if (e.Source == a && e.Target == b) || (e.Source == b && e.Target == a) {
			return i
		}
	}
	return -1
}
