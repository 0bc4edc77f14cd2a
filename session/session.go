// Package session holds the active board together with the interaction state
// of the canvas: the selected tool, the pending vertex selection and the
// highlighted shortest path. Every front end (HTTP, terminal) drives the board
// through a Session.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/TFMV/dollargraph/canvas"
	"github.com/TFMV/dollargraph/models"
	"github.com/TFMV/dollargraph/observability"
	"github.com/TFMV/dollargraph/pathfind"
	"github.com/TFMV/dollargraph/physics"
	"go.uber.org/zap"
)

var (
	// ErrModeUnavailable indicates a tool that the current board cannot use,
	// such as edge deletion on a board without edges.
	ErrModeUnavailable = errors.New("session: mode unavailable")

	// ErrUnknownMode indicates an unrecognised mode name or value.
	ErrUnknownMode = errors.New("session: unknown mode")
)

// Action describes what a click did
type Action string

// Actions reported in a Result
const (
	ActionNone         Action = "none"
	ActionPlaced       Action = "placed"
	ActionRemoved      Action = "removed"
	ActionSelected     Action = "selected"
	ActionDeselected   Action = "deselected"
	ActionConnected    Action = "connected"
	ActionDisconnected Action = "disconnected"
	ActionGave         Action = "gave"
	ActionTook         Action = "took"
	ActionPath         Action = "path"
)

// Click is a pointer press on the canvas. Value carries the number typed into
// the prompt: the token balance for a new vertex or the weight of a new edge.
type Click struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Secondary bool    `json:"secondary"`
	Value     int64   `json:"value"`
}

// Result reports the outcome of a click
type Result struct {
	Action   Action         `json:"action"`
	Mode     Mode           `json:"mode"`
	Vertex   int64          `json:"vertex,omitempty"`
	Selected []int64        `json:"selected"`
	Edge     *models.Edge   `json:"edge,omitempty"`
	Path     *pathfind.Path `json:"path,omitempty"`
}

// HoverInfo describes the vertex under the pointer
type HoverInfo struct {
	ID     int64   `json:"id"`
	Label  string  `json:"label,omitempty"`
	Tokens int     `json:"tokens"`
	Degree int     `json:"degree"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

// Info is the side panel: board statistics plus the tool state
type Info struct {
	models.Stats
	Mode      Mode   `json:"mode"`
	Available []Mode `json:"available"`
}

// View is everything a front end needs to draw the canvas
type View struct {
	Board     *models.Graph  `json:"board"`
	Mode      Mode           `json:"mode"`
	Selected  []int64        `json:"selected"`
	Path      *pathfind.Path `json:"path,omitempty"`
	Available []Mode         `json:"available"`
	Stats     models.Stats   `json:"stats"`
	Radius    float64        `json:"radius"`
}

// Options configure a Session
type Options struct {
	Radius  float64 // Vertex radius, canvas.DefaultRadius when zero
	Layout  physics.Options
	Logger  *zap.Logger
	Metrics *observability.Metrics
}

// Session is safe for concurrent use
type Session struct {
	mu       sync.RWMutex
	graph    *models.Graph
	canvas   *canvas.Canvas
	mode     Mode
	selected []int64
	path     *pathfind.Path
	layout   physics.Options
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// New creates a session around a copy of g. A nil board starts an empty one.
func New(g *models.Graph, opts Options) (*Session, error) {
	if g == nil {
		g = models.NewGraph("untitled")
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	board := g.Clone()
	s := &Session{
		graph:   board,
		canvas:  canvas.FromGraph(board, opts.Radius),
		layout:  opts.Layout,
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
	s.metrics.SetBoardSize(len(board.Vertices), len(board.Edges))
	return s, nil
}

// Mode returns the selected tool
func (s *Session) Mode() Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// Available returns the tools the board currently supports
func (s *Session) Available() []Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.availableModes()
}

// IsAvailable reports whether a tool can be selected on the current board
func (s *Session) IsAvailable(m Mode) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.available(m)
}

// SetMode selects a tool, dropping any pending selection and highlight
func (s *Session) SetMode(m Mode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := modeNames[m]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownMode, int(m))
	}
	if !s.available(m) {
		return fmt.Errorf("%w: %s", ErrModeUnavailable, m)
	}
	s.mode = m
	s.selected = nil
	s.path = nil
	s.logger.Debug("mode selected", zap.Stringer("mode", m))
	return nil
}

// Cancel returns to Idle and clears the selection and highlight
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = Idle
	s.selected = nil
	s.path = nil
}

// Click applies the selected tool at the pointer position
func (s *Session) Click(c Click) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.mode {
	case NewVertex:
		v, err := s.addVertex(c.X, c.Y, int(c.Value))
		if err != nil {
			return s.result(ActionNone), err
		}
		r := s.result(ActionPlaced)
		r.Vertex = v.ID
		return r, nil

	case DeleteVertex:
		id, ok := s.canvas.VertexAt(c.X, c.Y)
		if !ok {
			return s.result(ActionNone), nil
		}
		if err := s.deleteVertex(id); err != nil {
			return s.result(ActionNone), err
		}
		r := s.result(ActionRemoved)
		r.Vertex = id
		return r, nil

	case GiveTake:
		id, ok := s.canvas.VertexAt(c.X, c.Y)
		if !ok {
			return s.result(ActionNone), nil
		}
		action := ActionGave
		var err error
		if c.Secondary {
			action = ActionTook
			err = s.take(id)
		} else {
			err = s.give(id)
		}
		if err != nil {
			return s.result(ActionNone), err
		}
		r := s.result(action)
		r.Vertex = id
		return r, nil

	case NewEdge, DeleteEdge, ShortestPath:
		return s.selectAt(c)

	default:
		return s.result(ActionNone), nil
	}
}

// selectAt handles the tools that act on a pair of vertices
func (s *Session) selectAt(c Click) (Result, error) {
	id, ok := s.canvas.VertexAt(c.X, c.Y)
	if !ok {
		return s.result(ActionNone), nil
	}

	if len(s.selected) == 0 {
		s.selected = []int64{id}
		s.path = nil
		r := s.result(ActionSelected)
		r.Vertex = id
		return r, nil
	}

	first := s.selected[0]
	s.selected = nil
	if id == first {
		r := s.result(ActionDeselected)
		r.Vertex = id
		return r, nil
	}

	switch s.mode {
	case NewEdge:
		e, err := s.connect(first, id, c.Value)
		if err != nil {
			return s.result(ActionNone), err
		}
		r := s.result(ActionConnected)
		r.Edge = &e
		return r, nil

	case DeleteEdge:
		if err := s.disconnect(first, id); err != nil {
			return s.result(ActionNone), err
		}
		return s.result(ActionDisconnected), nil

	default:
		p, err := s.shortestPath(first, id)
		if err != nil {
			return s.result(ActionNone), err
		}
		r := s.result(ActionPath)
		r.Path = p
		return r, nil
	}
}

// Hover describes the vertex under the pointer, if any
func (s *Session) Hover(x, y float64) (HoverInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.canvas.VertexAt(x, y)
	if !ok {
		return HoverInfo{}, false
	}
	v, err := s.graph.FindVertex(id)
	if err != nil {
		return HoverInfo{}, false
	}
	return HoverInfo{
		ID:     v.ID,
		Label:  v.Label,
		Tokens: v.Tokens,
		Degree: s.graph.Degree(v.ID),
		X:      v.X,
		Y:      v.Y,
	}, true
}

// Info returns the side panel contents
func (s *Session) Info() Info {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Info{Stats: s.graph.Stats(), Mode: s.mode, Available: s.availableModes()}
}

// View returns a consistent copy of the board and the tool state
func (s *Session) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return View{
		Board:     s.graph.Clone(),
		Mode:      s.mode,
		Selected:  s.selection(),
		Path:      copyPath(s.path),
		Available: s.availableModes(),
		Stats:     s.graph.Stats(),
		Radius:    s.canvas.Radius(),
	}
}

// Snapshot returns a copy of the board
func (s *Session) Snapshot() *models.Graph {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.graph.Clone()
}

// Selected returns the pending selection
func (s *Session) Selected() []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selection()
}

// LastPath returns the highlighted shortest path, or nil
func (s *Session) LastPath() *pathfind.Path {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyPath(s.path)
}

// Radius returns the vertex radius used for hit-testing
func (s *Session) Radius() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.canvas.Radius()
}

// AddVertex places a vertex at (x, y) if the canvas rules allow it
func (s *Session) AddVertex(x, y float64, tokens int) (models.Vertex, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addVertex(x, y, tokens)
}

// DeleteVertex removes a vertex and its edges
func (s *Session) DeleteVertex(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteVertex(id)
}

// Connect joins two vertices with an edge of the given weight
func (s *Session) Connect(a, b int64, weight int64) (models.Edge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connect(a, b, weight)
}

// Disconnect removes the edge between two vertices
func (s *Session) Disconnect(a, b int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disconnect(a, b)
}

// Give moves one token from the vertex to each neighbor
func (s *Session) Give(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.give(id)
}

// Take moves one token from each neighbor to the vertex
func (s *Session) Take(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.take(id)
}

// ShortestPath computes and highlights the shortest path between two vertices
func (s *Session) ShortestPath(a, b int64) (*pathfind.Path, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shortestPath(a, b)
}

// Arrange repositions every vertex with the named layout. The board is left
// untouched if the layout fails or the context ends first.
func (s *Session) Arrange(ctx context.Context, layout string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	arranged := s.graph.Clone()
	steps, err := physics.Arrange(ctx, arranged, layout, s.layout)
	s.metrics.Operation("arrange", err)
	if err != nil {
		s.logger.Warn("layout aborted", zap.String("layout", layout), zap.Error(err))
		return err
	}

	s.graph = arranged
	s.canvas.Reset(arranged)
	s.logger.Info("board arranged",
		zap.String("layout", layout),
		zap.Int("steps", steps),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// Load swaps in a new board like Replace, laying it out first when some
// vertices have no position. The active board is kept if the layout fails.
func (s *Session) Load(ctx context.Context, g *models.Graph, layout string) error {
	if g == nil {
		return errors.New("session: nil board")
	}
	if err := g.Validate(); err != nil {
		return err
	}

	board := g.Clone()
	if physics.Unplaced(board) {
		steps, err := physics.Arrange(ctx, board, layout, s.layout)
		s.metrics.Operation("arrange", err)
		if err != nil {
			s.logger.Warn("layout of loaded board aborted", zap.String("layout", layout), zap.Error(err))
			return err
		}
		s.logger.Debug("loaded board laid out", zap.String("layout", layout), zap.Int("steps", steps))
	}
	return s.Replace(board)
}

// Replace swaps in a new board, resetting the tool state
func (s *Session) Replace(g *models.Graph) error {
	if g == nil {
		return errors.New("session: nil board")
	}
	if err := g.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.graph = g.Clone()
	s.canvas.Reset(s.graph)
	s.mode = Idle
	s.selected = nil
	s.path = nil
	s.metrics.Operation("replace", nil)
	s.metrics.SetBoardSize(len(s.graph.Vertices), len(s.graph.Edges))
	s.logger.Info("board replaced",
		zap.String("board_id", s.graph.ID),
		zap.Int("vertices", len(s.graph.Vertices)),
		zap.Int("edges", len(s.graph.Edges)),
	)
	return nil
}

func (s *Session) addVertex(x, y float64, tokens int) (models.Vertex, error) {
	if err := s.canvas.CanPlace(x, y); err != nil {
		s.metrics.Operation("place_vertex", err)
		return models.Vertex{}, err
	}
	v := s.graph.PlaceVertex(x, y, tokens)
	s.canvas.Insert(v.ID, v.X, v.Y)
	s.changed("place_vertex")
	s.logger.Info("vertex placed",
		zap.Int64("id", v.ID),
		zap.Float64("x", x),
		zap.Float64("y", y),
		zap.Int("tokens", tokens),
	)
	return v, nil
}

func (s *Session) deleteVertex(id int64) error {
	if err := s.graph.RemoveVertex(id); err != nil {
		s.metrics.Operation("delete_vertex", err)
		return err
	}
	s.canvas.Remove(id)
	for _, sel := range s.selected {
		if sel == id {
			s.selected = nil
			break
		}
	}
	s.changed("delete_vertex")
	s.logger.Info("vertex deleted", zap.Int64("id", id))
	return nil
}

func (s *Session) connect(a, b int64, weight int64) (models.Edge, error) {
	e, err := s.tryConnect(a, b, weight)
	if err != nil {
		s.metrics.Operation("connect", err)
		return models.Edge{}, err
	}
	s.changed("connect")
	s.logger.Info("edge created", zap.Int64("source", a), zap.Int64("target", b), zap.Int64("weight", weight))
	return e, nil
}

func (s *Session) tryConnect(a, b int64, weight int64) (models.Edge, error) {
	if weight < 0 {
		return models.Edge{}, fmt.Errorf("%w: %d", models.ErrNegativeWeight, weight)
	}
	if s.graph.Adjacent(a, b) {
		return models.Edge{}, fmt.Errorf("%w: %d - %d", models.ErrDuplicateEdge, a, b)
	}
	if a != b {
		if err := s.canvas.CheckEdge(a, b); err != nil {
			return models.Edge{}, err
		}
	}
	return s.graph.Connect(a, b, weight)
}

func (s *Session) disconnect(a, b int64) error {
	if err := s.graph.Disconnect(a, b); err != nil {
		s.metrics.Operation("disconnect", err)
		return err
	}
	s.changed("disconnect")
	s.logger.Info("edge deleted", zap.Int64("source", a), zap.Int64("target", b))
	return nil
}

func (s *Session) give(id int64) error {
	err := s.graph.Give(id)
	s.metrics.Operation("give", err)
	if err == nil {
		s.logger.Debug("tokens given", zap.Int64("id", id))
	}
	return err
}

func (s *Session) take(id int64) error {
	err := s.graph.Take(id)
	s.metrics.Operation("take", err)
	if err == nil {
		s.logger.Debug("tokens taken", zap.Int64("id", id))
	}
	return err
}

func (s *Session) shortestPath(a, b int64) (*pathfind.Path, error) {
	start := time.Now()
	p, err := pathfind.ShortestPath(s.graph, a, b)
	s.metrics.ObservePath(time.Since(start))
	s.metrics.Operation("shortest_path", err)
	if err != nil {
		s.path = nil
		return nil, err
	}
	s.path = p
	s.logger.Debug("shortest path",
		zap.Int64("source", a),
		zap.Int64("target", b),
		zap.Int64s("vertices", p.Vertices),
		zap.Int64("total", p.Total),
	)
	return copyPath(p), nil
}

// changed runs after every structural edit: the highlight no longer matches
// the board and the current tool may have become unavailable.
func (s *Session) changed(op string) {
	s.path = nil
	if !s.available(s.mode) {
		s.mode = Idle
		s.selected = nil
	}
	s.metrics.Operation(op, nil)
	s.metrics.SetBoardSize(len(s.graph.Vertices), len(s.graph.Edges))
}

func (s *Session) available(m Mode) bool {
	switch m {
	case Idle, NewVertex:
		return true
	case DeleteVertex:
		return len(s.graph.Vertices) >= 1
	case NewEdge:
		return len(s.graph.Vertices) >= 2
	case DeleteEdge, GiveTake, ShortestPath:
		return len(s.graph.Edges) >= 1
	default:
		return false
	}
}

func (s *Session) availableModes() []Mode {
	var modes []Mode
	for _, m := range Modes() {
		if s.available(m) {
			modes = append(modes, m)
		}
	}
	return modes
}

func (s *Session) selection() []int64 {
	return append([]int64{}, s.selected...)
}

func (s *Session) result(action Action) Result {
	return Result{Action: action, Mode: s.mode, Selected: s.selection()}
}

func copyPath(p *pathfind.Path) *pathfind.Path {
	if p == nil {
		return nil
	}
	return &pathfind.Path{
		Vertices: append([]int64(nil), p.Vertices...),
		Edges:    append([]models.Edge(nil), p.Edges...),
		Total:    p.Total,
	}
}
