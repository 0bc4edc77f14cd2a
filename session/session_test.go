package session

import (
	"context"
	"sync"
	"testing"

	"github.com/TFMV/dollargraph/canvas"
	"github.com/TFMV/dollargraph/models"
	"github.com/TFMV/dollargraph/observability"
	"github.com/TFMV/dollargraph/pathfind"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type point struct{ x, y float64 }

// newTestSession places one vertex per point; ids follow the order given.
func newTestSession(t *testing.T, points ...point) *Session {
	t.Helper()
	s, err := New(nil, Options{Metrics: observability.NewMetrics()})
	require.NoError(t, err)
	for _, p := range points {
		_, err := s.AddVertex(p.x, p.y, 0)
		require.NoError(t, err)
	}
	return s
}

func clickOn(t *testing.T, s *Session, id int64, secondary bool, value int64) Result {
	t.Helper()
	x, y, err := s.Snapshot().Coordinates(id)
	require.NoError(t, err)
	r, err := s.Click(Click{X: x, Y: y, Secondary: secondary, Value: value})
	require.NoError(t, err)
	return r
}

func TestAvailability(t *testing.T) {
	s := newTestSession(t)
	assert.Equal(t, []Mode{Idle, NewVertex}, s.Available())
	assert.ErrorIs(t, s.SetMode(DeleteVertex), ErrModeUnavailable)
	assert.ErrorIs(t, s.SetMode(Mode(42)), ErrUnknownMode)

	_, err := s.AddVertex(100, 100, 0)
	require.NoError(t, err)
	assert.Equal(t, []Mode{Idle, NewVertex, DeleteVertex}, s.Available())

	_, err = s.AddVertex(300, 100, 0)
	require.NoError(t, err)
	assert.True(t, s.IsAvailable(NewEdge))
	assert.False(t, s.IsAvailable(GiveTake))

	_, err = s.Connect(1, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, Modes(), s.Available())
}

func TestClick_NewVertex(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.SetMode(NewVertex))

	r, err := s.Click(Click{X: 100, Y: 100, Value: 3})
	require.NoError(t, err)
	assert.Equal(t, ActionPlaced, r.Action)
	assert.Equal(t, int64(1), r.Vertex)

	_, err = s.Click(Click{X: 120, Y: 100})
	assert.ErrorIs(t, err, canvas.ErrTooClose)

	_, err = s.Click(Click{X: 10, Y: 10})
	assert.ErrorIs(t, err, canvas.ErrOutOfBounds)

	board := s.Snapshot()
	require.Len(t, board.Vertices, 1)
	assert.Equal(t, 3, board.Vertices[0].Tokens)
	assert.Equal(t, NewVertex, s.Mode())
}

func TestClick_NewEdgeSelection(t *testing.T) {
	s := newTestSession(t, point{100, 100}, point{300, 100}, point{200, 300})
	require.NoError(t, s.SetMode(NewEdge))

	r := clickOn(t, s, 1, false, 0)
	assert.Equal(t, ActionSelected, r.Action)
	assert.Equal(t, []int64{1}, r.Selected)

	r = clickOn(t, s, 1, false, 0)
	assert.Equal(t, ActionDeselected, r.Action)
	assert.Empty(t, r.Selected)

	clickOn(t, s, 1, false, 0)
	r = clickOn(t, s, 2, false, 7)
	assert.Equal(t, ActionConnected, r.Action)
	require.NotNil(t, r.Edge)
	assert.Equal(t, int64(7), r.Edge.Weight)
	assert.Empty(t, r.Selected)

	w, err := s.Snapshot().Weight(2, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(7), w)

	clickOn(t, s, 2, false, 0)
	x, y, _ := s.Snapshot().Coordinates(1)
	_, err = s.Click(Click{X: x, Y: y, Value: 1})
	assert.ErrorIs(t, err, models.ErrDuplicateEdge)
	assert.Empty(t, s.Selected(), "a failed action still clears the selection")

	clickOn(t, s, 1, false, 0)
	x, y, _ = s.Snapshot().Coordinates(3)
	_, err = s.Click(Click{X: x, Y: y, Value: -4})
	assert.ErrorIs(t, err, models.ErrNegativeWeight)
}

func TestClick_EmptyCanvasIsNoop(t *testing.T) {
	s := newTestSession(t, point{100, 100}, point{300, 100})
	require.NoError(t, s.SetMode(NewEdge))

	r, err := s.Click(Click{X: 600, Y: 600})
	require.NoError(t, err)
	assert.Equal(t, ActionNone, r.Action)

	require.NoError(t, s.SetMode(Idle))
	r, err = s.Click(Click{X: 100, Y: 100})
	require.NoError(t, err)
	assert.Equal(t, ActionNone, r.Action)
}

func TestConnect_BlockedByThirdVertex(t *testing.T) {
	s := newTestSession(t, point{100, 100}, point{500, 100}, point{300, 110})

	_, err := s.Connect(1, 2, 1)
	assert.ErrorIs(t, err, canvas.ErrEdgeBlocked)
	assert.Empty(t, s.Snapshot().Edges)

	_, err = s.Connect(1, 3, 1)
	assert.NoError(t, err)
}

func TestClick_GiveTake(t *testing.T) {
	s := newTestSession(t, point{300, 300}, point{100, 100}, point{500, 100}, point{300, 600})
	for _, leaf := range []int64{2, 3, 4} {
		_, err := s.Connect(1, leaf, 1)
		require.NoError(t, err)
	}
	require.NoError(t, s.SetMode(GiveTake))

	r := clickOn(t, s, 1, false, 0)
	assert.Equal(t, ActionGave, r.Action)
	r = clickOn(t, s, 2, true, 0)
	assert.Equal(t, ActionTook, r.Action)

	board := s.Snapshot()
	tokens := map[int64]int{}
	for _, v := range board.Vertices {
		tokens[v.ID] = v.Tokens
	}
	assert.Equal(t, map[int64]int{1: -4, 2: 2, 3: 1, 4: 1}, tokens)
	assert.Equal(t, 0, board.TotalTokens())
	assert.Equal(t, []int64{1}, s.Info().Debtors)
}

func TestClick_ShortestPath(t *testing.T) {
	s := newTestSession(t, point{100, 100}, point{300, 100}, point{200, 300})
	_, err := s.Connect(1, 2, 10)
	require.NoError(t, err)
	_, err = s.Connect(1, 3, 2)
	require.NoError(t, err)
	_, err = s.Connect(3, 2, 3)
	require.NoError(t, err)

	require.NoError(t, s.SetMode(ShortestPath))
	clickOn(t, s, 1, false, 0)
	r := clickOn(t, s, 2, false, 0)

	assert.Equal(t, ActionPath, r.Action)
	require.NotNil(t, r.Path)
	assert.Equal(t, []int64{1, 3, 2}, r.Path.Vertices)
	assert.Equal(t, int64(5), r.Path.Total)
	assert.Equal(t, r.Path, s.View().Path)

	// Structural edits drop the highlight.
	require.NoError(t, s.Disconnect(1, 2))
	assert.Nil(t, s.LastPath())
}

func TestShortestPath_Disconnected(t *testing.T) {
	s := newTestSession(t, point{100, 100}, point{300, 100}, point{100, 400}, point{300, 400})
	_, err := s.Connect(1, 2, 1)
	require.NoError(t, err)
	_, err = s.Connect(3, 4, 1)
	require.NoError(t, err)

	p, err := s.ShortestPath(1, 4)
	assert.ErrorIs(t, err, pathfind.ErrNoPath)
	assert.Nil(t, p)
	assert.Nil(t, s.LastPath())
}

func TestClick_DeleteVertexDropsUnavailableMode(t *testing.T) {
	s := newTestSession(t, point{100, 100}, point{300, 100})
	_, err := s.Connect(1, 2, 1)
	require.NoError(t, err)

	require.NoError(t, s.SetMode(DeleteVertex))
	r := clickOn(t, s, 1, false, 0)
	assert.Equal(t, ActionRemoved, r.Action)
	assert.Equal(t, int64(1), r.Vertex)
	assert.Empty(t, s.Snapshot().Edges)
	assert.Equal(t, DeleteVertex, s.Mode())

	clickOn(t, s, 2, false, 0)
	assert.Equal(t, Idle, s.Mode(), "no vertices left to delete")

	// The canvas index follows the board.
	_, err = s.AddVertex(110, 100, 0)
	assert.NoError(t, err)
}

func TestDeleteVertex_ClearsPendingSelection(t *testing.T) {
	s := newTestSession(t, point{100, 100}, point{300, 100}, point{200, 300})
	require.NoError(t, s.SetMode(NewEdge))

	clickOn(t, s, 3, false, 0)
	require.NoError(t, s.DeleteVertex(2))
	assert.Equal(t, []int64{3}, s.Selected(), "an unrelated delete keeps the selection")

	require.NoError(t, s.DeleteVertex(3))
	assert.Equal(t, NewEdge, s.Mode())
	assert.Empty(t, s.Selected())
	assert.Empty(t, s.View().Selected)

	_, err := s.AddVertex(300, 300, 0)
	require.NoError(t, err)
	r := clickOn(t, s, 1, false, 0)
	assert.Equal(t, ActionSelected, r.Action)
	r = clickOn(t, s, 4, false, 2)
	assert.Equal(t, ActionConnected, r.Action)
	assert.True(t, s.Snapshot().Adjacent(1, 4))
}

func TestCancel(t *testing.T) {
	s := newTestSession(t, point{100, 100}, point{300, 100})
	require.NoError(t, s.SetMode(NewEdge))
	clickOn(t, s, 1, false, 0)

	s.Cancel()
	assert.Equal(t, Idle, s.Mode())
	assert.Empty(t, s.Selected())
}

func TestHoverAndInfo(t *testing.T) {
	s := newTestSession(t, point{100, 100}, point{300, 100})
	_, err := s.Connect(1, 2, 4)
	require.NoError(t, err)

	h, ok := s.Hover(105, 98)
	require.True(t, ok)
	assert.Equal(t, HoverInfo{ID: 1, Tokens: 0, Degree: 1, X: 100, Y: 100}, h)

	_, ok = s.Hover(700, 700)
	assert.False(t, ok)

	info := s.Info()
	assert.Equal(t, 2, info.Vertices)
	assert.Equal(t, 1, info.Edges)
	assert.Equal(t, 1, info.MinDegree)
	assert.Equal(t, 1, info.MaxDegree)
	assert.Equal(t, Idle, info.Mode)
}

func TestArrange(t *testing.T) {
	s := newTestSession(t, point{100, 100}, point{150, 400}, point{900, 700})
	_, err := s.Connect(1, 2, 1)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	before := s.Snapshot()
	assert.ErrorIs(t, s.Arrange(ctx, "force"), context.Canceled)
	assert.Equal(t, before.Vertices, s.Snapshot().Vertices)

	assert.Error(t, s.Arrange(context.Background(), "spiral"))

	require.NoError(t, s.Arrange(context.Background(), "circle"))
	after := s.Snapshot()
	assert.Len(t, after.Vertices, 3)
	assert.Equal(t, before.Edges, after.Edges)

	// Hit-testing uses the new positions.
	h, ok := s.Hover(after.Vertices[0].X, after.Vertices[0].Y)
	require.True(t, ok)
	assert.Equal(t, int64(1), h.ID)
}

func TestReplace(t *testing.T) {
	s := newTestSession(t, point{100, 100})
	require.NoError(t, s.SetMode(DeleteVertex))

	bad := models.NewGraph("bad")
	bad.Edges = append(bad.Edges, models.Edge{Source: 1, Target: 2})
	assert.ErrorIs(t, s.Replace(bad), models.ErrVertexNotFound)
	assert.Len(t, s.Snapshot().Vertices, 1)

	g := models.NewGraph("fresh")
	g.PlaceVertex(500, 500, 2)
	require.NoError(t, s.Replace(g))

	assert.Equal(t, Idle, s.Mode())
	assert.Equal(t, g.ID, s.Snapshot().ID)
	_, ok := s.Hover(500, 500)
	assert.True(t, ok)
	_, ok = s.Hover(100, 100)
	assert.False(t, ok)

	// The session keeps its own copy.
	g.PlaceVertex(700, 500, 0)
	assert.Len(t, s.Snapshot().Vertices, 1)
}

func TestLoad_LaysOutUnplacedBoards(t *testing.T) {
	s := newTestSession(t, point{100, 100})

	g := models.NewGraph("imported")
	require.NoError(t, g.AddVertices(models.NewVertex(1, 0, 0, 1), models.NewVertex(2, 0, 0, -1)))
	_, err := g.Connect(1, 2, 3)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Load(ctx, g, "circle"), context.Canceled)
	assert.NotEqual(t, g.ID, s.Snapshot().ID, "an aborted layout keeps the active board")
	assert.Len(t, s.Snapshot().Vertices, 1)

	require.NoError(t, s.Load(context.Background(), g, "circle"))
	board := s.Snapshot()
	assert.Equal(t, g.ID, board.ID)
	for _, v := range board.Vertices {
		assert.False(t, v.X == 0 && v.Y == 0)
	}
	assert.Equal(t, 0.0, g.Vertices[0].X, "the caller's board is not modified")
}

func TestConcurrentMoves_ConserveTokens(t *testing.T) {
	s := newTestSession(t, point{100, 100}, point{300, 100}, point{200, 300})
	for _, pair := range [][2]int64{{1, 2}, {2, 3}, {1, 3}} {
		_, err := s.Connect(pair[0], pair[1], 1)
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				id := int64(1 + (w+i)%3)
				if i%2 == 0 {
					assert.NoError(t, s.Give(id))
				} else {
					assert.NoError(t, s.Take(id))
				}
				_ = s.View()
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, 0, s.Snapshot().TotalTokens())
}

func TestParseMode(t *testing.T) {
	for _, m := range Modes() {
		parsed, err := ParseMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, parsed)
	}

	m, err := ParseMode("Give-Take")
	require.NoError(t, err)
	assert.Equal(t, GiveTake, m)

	_, err = ParseMode("teleport")
	assert.ErrorIs(t, err, ErrUnknownMode)
}
