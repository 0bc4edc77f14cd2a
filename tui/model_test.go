package tui

import (
	"testing"

	"github.com/TFMV/dollargraph/session"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newModel(t *testing.T) (Model, *session.Session) {
	t.Helper()
	sess, err := session.New(nil, session.Options{})
	require.NoError(t, err)
	return New(sess, Options{Columns: 60, Rows: 20, Layout: "circle"}), sess
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "backspace":
		return tea.KeyMsg{Type: tea.KeyBackspace}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
}

// press feeds keys to the model; repeated keys are written as separate entries
func press(t *testing.T, m Model, keys ...string) Model {
	t.Helper()
	for _, k := range keys {
		next, _ := m.Update(keyMsg(k))
		var ok bool
		m, ok = next.(Model)
		require.True(t, ok)
	}
	return m
}

func repeat(k string, n int) []string {
	keys := make([]string, n)
	for i := range keys {
		keys[i] = k
	}
	return keys
}

func TestPlaceVertexWithValue(t *testing.T) {
	m, sess := newModel(t)

	m = press(t, m, "v", "1", "2", "backspace", "3")
	assert.Equal(t, int64(13), m.Value())
	m = press(t, m, "enter")

	board := sess.Snapshot()
	require.Len(t, board.Vertices, 1)
	assert.Equal(t, 13, board.Vertices[0].Tokens)
	x, y := m.Cursor()
	assert.Equal(t, x, board.Vertices[0].X)
	assert.Equal(t, y, board.Vertices[0].Y)
	assert.Equal(t, int64(0), m.Value(), "the prompt resets after placing")
	assert.Contains(t, m.entries, "placed vertex 1")
}

func TestEdgeGiveTakeAndPath(t *testing.T) {
	m, sess := newModel(t)

	m = press(t, m, "v", "3", "enter")
	m = press(t, m, repeat("right", 20)...)
	m = press(t, m, "-", "3", "enter")
	require.Len(t, sess.Snapshot().Vertices, 2)

	m = press(t, m, "e")
	m = press(t, m, repeat("left", 20)...)
	m = press(t, m, "enter")
	assert.Equal(t, []int64{1}, sess.Selected())

	m = press(t, m, "5")
	m = press(t, m, repeat("right", 20)...)
	m = press(t, m, "enter")
	require.NoError(t, m.err)
	w, err := sess.Snapshot().Weight(1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), w)

	m = press(t, m, "g")
	m = press(t, m, repeat("left", 20)...)
	m = press(t, m, "enter")
	v, err := sess.Snapshot().FindVertex(1)
	require.NoError(t, err)
	assert.Equal(t, 2, v.Tokens)

	m = press(t, m, "t")
	v, err = sess.Snapshot().FindVertex(1)
	require.NoError(t, err)
	assert.Equal(t, 3, v.Tokens)

	m = press(t, m, "p", "enter")
	m = press(t, m, repeat("right", 20)...)
	m = press(t, m, "enter")
	require.NotNil(t, sess.LastPath())
	assert.Contains(t, m.View(), "path 1 - 2 (total 5)")
}

func TestUnavailableModeAndCancel(t *testing.T) {
	m, sess := newModel(t)

	m = press(t, m, "d")
	require.ErrorIs(t, m.err, session.ErrModeUnavailable)
	assert.Contains(t, m.View(), "mode unavailable")

	m = press(t, m, "v", "7", "esc")
	assert.Nil(t, m.err)
	assert.Equal(t, session.Idle, sess.Mode())
	assert.Equal(t, int64(0), m.Value())
}

func TestMouseClick(t *testing.T) {
	m, sess := newModel(t)
	m = press(t, m, "v")

	next, _ := m.Update(tea.MouseMsg{X: 10, Y: 6, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	m = next.(Model)

	board := sess.Snapshot()
	require.Len(t, board.Vertices, 1)
	col, row := m.grid().CellOf(board.Vertices[0].X, board.Vertices[0].Y)
	assert.Equal(t, 10, col)
	assert.Equal(t, 5, row)

	// Clicks on the border are ignored
	next, _ = m.Update(tea.MouseMsg{X: 0, Y: 6, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	m = next.(Model)
	assert.Len(t, sess.Snapshot().Vertices, 1)
}

func TestResizeAndView(t *testing.T) {
	m, _ := newModel(t)
	m = press(t, m, "v", "enter")

	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m = next.(Model)
	assert.Equal(t, 120-sidebarWidth, m.columns)
	assert.Equal(t, 40-headerHeight-footerHeight, m.rows)

	view := m.View()
	assert.Contains(t, view, "mode: New vertex")
	assert.Contains(t, view, "Vertices: 1")
	assert.Contains(t, view, "Vertex 1: 0 tokens, degree 0", "the cursor still sits on the new vertex")
	assert.Contains(t, view, "1:0")
}

func TestArrangeAndQuit(t *testing.T) {
	m, sess := newModel(t)
	m = press(t, m, "v", "enter", "right", "right", "right", "right", "right", "right", "enter")
	before := sess.Snapshot()

	next, cmd := m.Update(keyMsg("a"))
	m = next.(Model)
	require.NotNil(t, cmd)
	msg := cmd()
	require.IsType(t, arrangedMsg{}, msg)

	next, _ = m.Update(msg)
	m = next.(Model)
	assert.Contains(t, m.entries, "arranged (circle)")
	assert.NotEqual(t, before.Vertices[0].X, sess.Snapshot().Vertices[0].X)

	_, cmd = m.Update(keyMsg("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}
