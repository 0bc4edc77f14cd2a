// Package pathfind computes shortest paths on a board with Dijkstra's algorithm.
//
// The frontier is a binary min-heap keyed on tentative distance. Improved
// distances are pushed as new entries and stale entries are skipped when popped
// (lazy decrease-key). Edge weights are non-negative by construction of the
// board, so the first time a vertex is popped its distance is final.
package pathfind

import (
	"container/heap"
	"errors"
	"fmt"
	"math"

	"github.com/TFMV/dollargraph/models"
)

// Sentinel errors returned by the shortest-path queries.
var (
	// ErrNilGraph indicates a nil board was passed in.
	ErrNilGraph = errors.New("pathfind: graph is nil")

	// ErrVertexNotFound indicates that the source or destination is not on the board.
	ErrVertexNotFound = errors.New("pathfind: vertex not found")

	// ErrNoPath indicates the destination cannot be reached from the source.
	ErrNoPath = errors.New("pathfind: no path found")

	// ErrNegativeWeight indicates a negative edge weight, which Dijkstra cannot handle.
	ErrNegativeWeight = errors.New("pathfind: negative edge weight")
)

// Unreachable is the distance reported for vertices the source cannot reach.
const Unreachable int64 = math.MaxInt64

// Path is a shortest route between two vertices
type Path struct {
	Vertices []int64       `json:"vertices"` // Source first, destination last
	Edges    []models.Edge `json:"edges"`    // Edges[i] joins Vertices[i] and Vertices[i+1]
	Total    int64         `json:"total"`    // Sum of edge weights
}

// Source returns the first vertex of the path
func (p *Path) Source() int64 { return p.Vertices[0] }

// Destination returns the last vertex of the path
func (p *Path) Destination() int64 { return p.Vertices[len(p.Vertices)-1] }

// Contains reports whether the vertex lies on the path
func (p *Path) Contains(id int64) bool {
	for _, v := range p.Vertices {
		if v == id {
			return true
		}
	}
	return false
}

// UsesEdge reports whether the path walks the edge between a and b, in either direction
func (p *Path) UsesEdge(a, b int64) bool {
	for i := 0; i+1 < len(p.Vertices); i++ {
		u, v := p.Vertices[i], p.Vertices[i+1]
		if (u == a && v == b) || (u == b && v == a) {
			return true
		}
	}
	return false
}

// ShortestPath returns a minimum-weight path from source to dest.
// It returns ErrNoPath when dest is unreachable; no partial path is ever returned.
func ShortestPath(g *models.Graph, source, dest int64) (*Path, error) {
	if g == nil {
		return nil, ErrNilGraph
	}
	if !g.HasVertex(dest) {
		return nil, fmt.Errorf("%w: %d", ErrVertexNotFound, dest)
	}

	r, err := newRunner(g, source)
	if err != nil {
		return nil, err
	}
	r.run(dest)

	if r.dist[dest] == Unreachable {
		return nil, fmt.Errorf("%w: %d -> %d", ErrNoPath, source, dest)
	}
	return r.reconstruct(dest)
}

// Distances returns the shortest distance from source to every vertex on the board.
// Unreachable vertices map to Unreachable.
func Distances(g *models.Graph, source int64) (map[int64]int64, error) {
	if g == nil {
		return nil, ErrNilGraph
	}
	r, err := newRunner(g, source)
	if err != nil {
		return nil, err
	}
	r.run(0)
	return r.dist, nil
}

// runner holds the state of one Dijkstra execution.
type runner struct {
	g       *models.Graph
	source  int64
	adj     map[int64]map[int64]int64
	dist    map[int64]int64
	prev    map[int64]int64
	visited map[int64]bool
	pq      frontier
}

func newRunner(g *models.Graph, source int64) (*runner, error) {
	if !g.HasVertex(source) {
		return nil, fmt.Errorf("%w: %d", ErrVertexNotFound, source)
	}
	for _, e := range g.Edges {
		if e.Weight < 0 {
			return nil, fmt.Errorf("%w: edge %d-%d weight=%d", ErrNegativeWeight, e.Source, e.Target, e.Weight)
		}
	}

	n := len(g.Vertices)
	r := &runner{
		g:       g,
		source:  source,
		adj:     g.AdjacencyList(),
		dist:    make(map[int64]int64, n),
		prev:    make(map[int64]int64, n),
		visited: make(map[int64]bool, n),
		pq:      make(frontier, 0, n),
	}
	for _, v := range g.Vertices {
		r.dist[v.ID] = Unreachable
	}
	r.dist[source] = 0
	heap.Push(&r.pq, &frontierItem{id: source, dist: 0})
	return r, nil
}

// run settles vertices in distance order. A positive stop id ends the search as
// soon as that vertex is settled.
func (r *runner) run(stop int64) {
	for r.pq.Len() > 0 {
		item := heap.Pop(&r.pq).(*frontierItem)
		u := item.id
		if r.visited[u] {
			continue
		}
		r.visited[u] = true
		if u == stop {
			return
		}

		for v, w := range r.adj[u] {
			if r.visited[v] {
				continue
			}
			// a sum past Unreachable would wrap negative
			if w >= Unreachable-r.dist[u] {
				continue
			}
			nd := r.dist[u] + w
			if nd < r.dist[v] {
				r.dist[v] = nd
				r.prev[v] = u
				heap.Push(&r.pq, &frontierItem{id: v, dist: nd})
			}
		}
	}
}

// reconstruct follows predecessor pointers back from dest to the source.
func (r *runner) reconstruct(dest int64) (*Path, error) {
	vertices := []int64{dest}
	for cur := dest; cur != r.source; {
		p, ok := r.prev[cur]
		if !ok {
			return nil, fmt.Errorf("%w: %d -> %d", ErrNoPath, r.source, dest)
		}
		vertices = append(vertices, p)
		cur = p
	}
	for i, j := 0, len(vertices)-1; i < j; i, j = i+1, j-1 {
		vertices[i], vertices[j] = vertices[j], vertices[i]
	}

	path := &Path{Vertices: vertices, Edges: make([]models.Edge, 0, len(vertices)-1)}
	for i := 0; i+1 < len(vertices); i++ {
		e, err := r.g.EdgeBetween(vertices[i], vertices[i+1])
		if err != nil {
			return nil, err
		}
		path.Edges = append(path.Edges, *e)
		path.Total += e.Weight
	}
	return path, nil
}

// frontierItem is a vertex with its tentative distance from the source.
type frontierItem struct {
	id   int64
	dist int64
}

// frontier is a min-heap of frontierItem ordered by dist.
type frontier []*frontierItem

func (pq frontier) Len() int { return len(pq) }

func (pq frontier) Less(i, j int) bool { return pq[i].dist < pq[j].dist }

func (pq frontier) Swap(i, j int) { pq[i], pq[j] = pq[j], pq[i] }

func (pq *frontier) Push(x interface{}) { *pq = append(*pq, x.(*frontierItem)) }

func (pq *frontier) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*pq = old[:n-1]
	return item
}
