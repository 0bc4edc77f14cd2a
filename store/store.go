// Package store persists boards. Both stores implement models.GraphRepository.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/TFMV/dollargraph/models"
)

var (
	// ErrBoardNotFound indicates no board is stored under the requested id.
	ErrBoardNotFound = errors.New("store: board not found")

	// ErrMissingID indicates an attempt to save a board without an id.
	ErrMissingID = errors.New("store: board id is required")
)

var (
	_ models.GraphRepository = (*MemoryStore)(nil)
	_ models.GraphRepository = (*SQLiteStore)(nil)
)

func checkSavable(graph *models.Graph) error {
	if graph == nil || graph.ID == "" {
		return ErrMissingID
	}
	if err := graph.Validate(); err != nil {
		return fmt.Errorf("store: refusing invalid board %s: %w", graph.ID, err)
	}
	return nil
}

// sortSummaries orders the most recently updated boards first
func sortSummaries(list []models.Summary) {
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].UpdatedAt.Equal(list[j].UpdatedAt) {
			return list[i].UpdatedAt.After(list[j].UpdatedAt)
		}
		return list[i].ID < list[j].ID
	})
}

// MemoryStore keeps boards in process memory
type MemoryStore struct {
	mu     sync.RWMutex
	boards map[string]*models.Graph
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{boards: make(map[string]*models.Graph)}
}

// FindByID returns a copy of the stored board
func (m *MemoryStore) FindByID(ctx context.Context, id string) (*models.Graph, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	g, ok := m.boards[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBoardNotFound, id)
	}
	return g.Clone(), nil
}

// List returns a summary of every stored board
func (m *MemoryStore) List(ctx context.Context) ([]models.Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := make([]models.Summary, 0, len(m.boards))
	for _, g := range m.boards {
		list = append(list, g.Summarize())
	}
	sortSummaries(list)
	return list, nil
}

// Save stores a copy of the board, replacing any previous version
func (m *MemoryStore) Save(ctx context.Context, graph *models.Graph) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkSavable(graph); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.boards[graph.ID] = graph.Clone()
	return nil
}

// Delete removes a board
func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.boards[id]; !ok {
		return fmt.Errorf("%w: %s", ErrBoardNotFound, id)
	}
	delete(m.boards, id)
	return nil
}
