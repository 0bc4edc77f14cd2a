// Package models provides the board data structures for the dollargraph application.
// A board is an undirected, weighted graph whose vertices hold integer token
// balances for the dollar game.
package models

import (
	"context"
	"time"
)

// Default canvas dimensions for a new board.
const (
	DefaultWidth  = 1000.0
	DefaultHeight = 800.0
)

// Vertex represents a vertex on the board
type Vertex struct {
	ID        int64     `json:"id" yaml:"id"`
	Label     string    `json:"label,omitempty" yaml:"label,omitempty"`
	Tokens    int       `json:"tokens" yaml:"tokens"` // Dollar-game balance, may be negative
	X         float64   `json:"x" yaml:"x"`
	Y         float64   `json:"y" yaml:"y"`
	CreatedAt time.Time `json:"created_at" yaml:"-"`
	UpdatedAt time.Time `json:"updated_at" yaml:"-"`
}

// Edge represents an undirected edge between two vertices
type Edge struct {
	ID        string    `json:"id" yaml:"-"`
	Source    int64     `json:"source" yaml:"source"`
	Target    int64     `json:"target" yaml:"target"`
	Weight    int64     `json:"weight" yaml:"weight"` // Non-negative, used by shortest-path queries
	CreatedAt time.Time `json:"created_at" yaml:"-"`
}

// Graph represents a board: a collection of vertices and edges drawn on a canvas.
//
// Vertices and Edges are exported for rendering and encoding. Mutate them only
// through the Graph methods, which keep the invariants: every edge references
// existing vertices, there are no self-loops and no duplicate edges.
type Graph struct {
	ID        string    `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	Vertices  []Vertex  `json:"vertices" yaml:"vertices"`
	Edges     []Edge    `json:"edges" yaml:"edges"`
	Width     float64   `json:"width" yaml:"width"`
	Height    float64   `json:"height" yaml:"height"`
	NextID    int64     `json:"next_id" yaml:"next_id"` // Id handed to the next placed vertex
	CreatedAt time.Time `json:"created_at" yaml:"-"`
	UpdatedAt time.Time `json:"updated_at" yaml:"-"`
}

// Summary is a short description of a stored board
type Summary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Vertices  int       `json:"vertices"`
	Edges     int       `json:"edges"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Stats describes the current shape of a board
type Stats struct {
	Vertices    int     `json:"vertices"`
	Edges       int     `json:"edges"`
	MinDegree   int     `json:"min_degree"`
	MaxDegree   int     `json:"max_degree"`
	TotalTokens int     `json:"total_tokens"`
	Genus       int     `json:"genus"`
	Debtors     []int64 `json:"debtors"`
	Winning     bool    `json:"winning"`
}

// GraphRepository defines operations for persisting boards
type GraphRepository interface {
	FindByID(ctx context.Context, id string) (*Graph, error)
	List(ctx context.Context) ([]Summary, error)
	Save(ctx context.Context, graph *Graph) error
	Delete(ctx context.Context, id string) error
}
