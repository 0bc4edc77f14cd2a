package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/TFMV/dollargraph/models"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore keeps boards in a SQLite database, one row per board with the
// full board as a JSON document.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path.
// It enables WAL mode and creates the schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite db: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("schema migration failed: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS boards (
		board_id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		vertex_count INTEGER NOT NULL,
		edge_count INTEGER NOT NULL,
		updated_at TEXT NOT NULL,
		payload JSON NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_boards_updated_at ON boards(updated_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create boards table: %w", err)
	}
	return nil
}

// FindByID loads a board
func (s *SQLiteStore) FindByID(ctx context.Context, id string) (*models.Graph, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM boards WHERE board_id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrBoardNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load board %s: %w", id, err)
	}

	var g models.Graph
	if err := json.Unmarshal(payload, &g); err != nil {
		return nil, fmt.Errorf("failed to decode board %s: %w", id, err)
	}
	return &g, nil
}

// List returns a summary of every stored board, most recently updated first
func (s *SQLiteStore) List(ctx context.Context) ([]models.Summary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT board_id, name, vertex_count, edge_count, updated_at FROM boards`)
	if err != nil {
		return nil, fmt.Errorf("failed to list boards: %w", err)
	}
	defer rows.Close()

	list := []models.Summary{}
	for rows.Next() {
		var sum models.Summary
		var updated string
		if err := rows.Scan(&sum.ID, &sum.Name, &sum.Vertices, &sum.Edges, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan board row: %w", err)
		}
		if sum.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
			return nil, fmt.Errorf("board %s has a malformed timestamp: %w", sum.ID, err)
		}
		list = append(list, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sortSummaries(list)
	return list, nil
}

// Save inserts or replaces a board
func (s *SQLiteStore) Save(ctx context.Context, graph *models.Graph) error {
	if err := checkSavable(graph); err != nil {
		return err
	}
	payload, err := json.Marshal(graph)
	if err != nil {
		return fmt.Errorf("failed to encode board %s: %w", graph.ID, err)
	}

	_, err = s.db.ExecContext(ctx, `
	INSERT INTO boards (board_id, name, vertex_count, edge_count, updated_at, payload)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(board_id) DO UPDATE SET
		name = excluded.name,
		vertex_count = excluded.vertex_count,
		edge_count = excluded.edge_count,
		updated_at = excluded.updated_at,
		payload = excluded.payload`,
		graph.ID,
		graph.Name,
		len(graph.Vertices),
		len(graph.Edges),
		graph.UpdatedAt.UTC().Format(time.RFC3339Nano),
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("failed to save board %s: %w", graph.ID, err)
	}
	return nil
}

// Delete removes a board
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM boards WHERE board_id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete board %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrBoardNotFound, id)
	}
	return nil
}
