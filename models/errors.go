package models

import "errors"

// Sentinel errors returned by graph operations. Callers match them with errors.Is;
// operations wrap them with the offending ids.
var (
	// ErrVertexNotFound indicates an operation referenced a vertex that is not on the board.
	ErrVertexNotFound = errors.New("models: vertex not found")

	// ErrDuplicateVertex indicates a vertex id is already taken.
	ErrDuplicateVertex = errors.New("models: duplicate vertex id")

	// ErrInvalidVertexID indicates a vertex id that is zero or negative.
	ErrInvalidVertexID = errors.New("models: vertex id must be positive")

	// ErrSelfLoop indicates an attempt to connect a vertex to itself.
	ErrSelfLoop = errors.New("models: self-loop not allowed")

	// ErrDuplicateEdge indicates the two vertices are already adjacent.
	ErrDuplicateEdge = errors.New("models: vertices already adjacent")

	// ErrNotAdjacent indicates there is no edge between the two vertices.
	ErrNotAdjacent = errors.New("models: vertices are not adjacent")

	// ErrNegativeWeight indicates an edge weight below zero.
	ErrNegativeWeight = errors.New("models: edge weight must be non-negative")
)
