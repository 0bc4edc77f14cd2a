// Package tui is the terminal canvas: the board drawn on a character grid with
// a cursor standing in for the pointer.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/TFMV/dollargraph/render"
	"github.com/TFMV/dollargraph/session"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	sidebarWidth  = 34
	headerHeight  = 1
	footerHeight  = 3
	maxLogEntries = 50
	arrangeLimit  = 10 * time.Second
)

// Options configure the terminal canvas
type Options struct {
	Layout  string // Layout run by the arrange key
	Columns int    // Initial grid size, replaced on the first resize
	Rows    int
}

type arrangedMsg struct {
	layout string
	err    error
}

// Model is the bubbletea model of the terminal canvas
type Model struct {
	session *session.Session
	layout  string
	keys    keyMap
	help    help.Model
	log     viewport.Model
	entries []string

	columns   int
	rows      int
	cursorCol int
	cursorRow int
	value     string
	err       error
}

// New creates the model around a session
func New(sess *session.Session, opts Options) Model {
	if opts.Layout == "" {
		opts.Layout = "force"
	}
	m := Model{
		session: sess,
		layout:  opts.Layout,
		keys:    defaultKeyMap(),
		help:    help.New(),
		log:     viewport.New(sidebarWidth-4, 8),
	}
	m.resize(max(opts.Columns, 20), max(opts.Rows, 10))
	m.cursorCol, m.cursorRow = m.columns/2, m.rows/2
	return m
}

// Run starts the program and blocks until the user quits or ctx ends
func Run(ctx context.Context, sess *session.Session, opts Options) error {
	p := tea.NewProgram(New(sess, opts),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return nil
}

// Cursor returns the canvas coordinates under the cursor
func (m Model) Cursor() (float64, float64) {
	return m.grid().PointOf(m.cursorCol, m.cursorRow)
}

// Value returns the number typed so far, zero when empty
func (m Model) Value() int64 {
	v, err := strconv.ParseInt(m.value, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		// The cursor keeps pointing at the same spot of the canvas
		x, y := m.Cursor()
		m.resize(msg.Width-sidebarWidth, msg.Height-headerHeight-footerHeight)
		m.cursorCol, m.cursorRow = m.grid().CellOf(x, y)
		m.help.Width = msg.Width

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		if msg.Action != tea.MouseActionPress {
			break
		}
		if msg.Button != tea.MouseButtonLeft && msg.Button != tea.MouseButtonRight {
			break
		}
		col, row := msg.X, msg.Y-headerHeight
		if col < 1 || col > m.columns-2 || row < 1 || row > m.rows-2 {
			break
		}
		m.cursorCol, m.cursorRow = col, row
		m.click(msg.Button == tea.MouseButtonRight)

	case arrangedMsg:
		if msg.err != nil {
			m.fail(msg.err)
		} else {
			m.record(fmt.Sprintf("arranged (%s)", msg.layout))
		}
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if mode, ok := m.keys.modeFor(msg); ok {
		if err := m.session.SetMode(mode); err != nil {
			m.fail(err)
		} else {
			m.err = nil
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.Up):
		m.cursorRow = max(m.cursorRow-1, 1)
	case key.Matches(msg, m.keys.Down):
		m.cursorRow = min(m.cursorRow+1, m.rows-2)
	case key.Matches(msg, m.keys.Left):
		m.cursorCol = max(m.cursorCol-1, 1)
	case key.Matches(msg, m.keys.Right):
		m.cursorCol = min(m.cursorCol+1, m.columns-2)
	case key.Matches(msg, m.keys.Primary):
		m.click(false)
	case key.Matches(msg, m.keys.Secondary):
		m.click(true)
	case key.Matches(msg, m.keys.Erase):
		if m.value != "" {
			m.value = m.value[:len(m.value)-1]
		}
	case key.Matches(msg, m.keys.Cancel):
		m.session.Cancel()
		m.value = ""
		m.err = nil
	case key.Matches(msg, m.keys.Arrange):
		return m, m.arrange()
	default:
		m.typeValue(msg)
	}
	return m, nil
}

// typeValue appends digits, or a leading minus sign, to the value prompt
func (m *Model) typeValue(msg tea.KeyMsg) {
	if msg.Type != tea.KeyRunes || len(msg.Runes) != 1 {
		return
	}
	r := msg.Runes[0]
	switch {
	case r >= '0' && r <= '9':
		if len(m.value) < 18 {
			m.value += string(r)
		}
	case r == '-' && m.value == "":
		m.value = "-"
	}
}

func (m *Model) click(secondary bool) {
	x, y := m.Cursor()
	result, err := m.session.Click(session.Click{X: x, Y: y, Secondary: secondary, Value: m.Value()})
	if err != nil {
		m.fail(err)
		return
	}
	m.err = nil
	if line := describe(result); line != "" {
		m.record(line)
	}
	if result.Action == session.ActionPlaced || result.Action == session.ActionConnected {
		m.value = ""
	}
}

func (m Model) arrange() tea.Cmd {
	sess, layout := m.session, m.layout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), arrangeLimit)
		defer cancel()
		return arrangedMsg{layout: layout, err: sess.Arrange(ctx, layout)}
	}
}

func describe(r session.Result) string {
	switch r.Action {
	case session.ActionPlaced:
		return fmt.Sprintf("placed vertex %d", r.Vertex)
	case session.ActionRemoved:
		return fmt.Sprintf("removed vertex %d", r.Vertex)
	case session.ActionSelected:
		return fmt.Sprintf("selected %d", r.Vertex)
	case session.ActionDeselected:
		return fmt.Sprintf("deselected %d", r.Vertex)
	case session.ActionConnected:
		return fmt.Sprintf("connected %d - %d (%d)", r.Edge.Source, r.Edge.Target, r.Edge.Weight)
	case session.ActionDisconnected:
		return "edge deleted"
	case session.ActionGave:
		return fmt.Sprintf("%d gave to its neighbors", r.Vertex)
	case session.ActionTook:
		return fmt.Sprintf("%d took from its neighbors", r.Vertex)
	case session.ActionPath:
		return "path " + pathText(r.Path.Vertices, r.Path.Total)
	default:
		return ""
	}
}

func pathText(vertices []int64, total int64) string {
	ids := make([]string, len(vertices))
	for i, v := range vertices {
		ids[i] = strconv.FormatInt(v, 10)
	}
	return fmt.Sprintf("%s (total %d)", strings.Join(ids, " - "), total)
}

func (m *Model) fail(err error) {
	m.err = err
	m.record("error: " + err.Error())
}

func (m *Model) record(line string) {
	m.entries = append(m.entries, line)
	if len(m.entries) > maxLogEntries {
		m.entries = m.entries[len(m.entries)-maxLogEntries:]
	}
	m.log.SetContent(strings.Join(m.entries, "\n"))
	m.log.GotoBottom()
}

func (m *Model) resize(columns, rows int) {
	m.columns, m.rows = max(columns, 20), max(rows, 10)
	m.cursorCol = min(max(m.cursorCol, 1), m.columns-2)
	m.cursorRow = min(max(m.cursorRow, 1), m.rows-2)
	m.log.Width = sidebarWidth - 4
	m.log.Height = max(m.rows-16, 3)
}

func (m Model) grid() *render.Grid {
	return m.gridFor(m.session.View())
}

func (m Model) gridFor(view session.View) *render.Grid {
	return render.Rasterize(view.Board, render.Highlight{Path: view.Path, Selected: view.Selected}, render.GridOptions{
		Columns:     m.columns,
		Rows:        m.rows,
		ShowLabels:  true,
		ShowWeights: true,
	})
}

// View implements tea.Model
func (m Model) View() string {
	view := m.session.View()
	grid := m.gridFor(view)

	header := titleStyle.Render(fmt.Sprintf("dollargraph · %s", view.Board.Name)) +
		subtleStyle.Render(fmt.Sprintf("  mode: %s", view.Mode.Label()))
	board := lipgloss.JoinHorizontal(lipgloss.Top, m.drawGrid(grid), m.sidebar(view))

	var status string
	switch {
	case m.err != nil:
		status = errorStyle.Render(m.err.Error())
	case view.Path != nil:
		status = okStyle.Render("path " + pathText(view.Path.Vertices, view.Path.Total))
	default:
		status = subtleStyle.Render(fmt.Sprintf("value: %s", valueText(m.value)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, board, status, m.help.View(m.keys))
}

func valueText(v string) string {
	if v == "" {
		return "0"
	}
	return v
}

// drawGrid styles runs of cells of the same kind, with the cursor reversed
func (m Model) drawGrid(grid *render.Grid) string {
	var b strings.Builder
	for row := 0; row < grid.Rows; row++ {
		start := 0
		for col := 1; col <= grid.Columns; col++ {
			boundary := col == grid.Columns ||
				grid.Kinds[row][col] != grid.Kinds[row][start] ||
				m.isCursor(col, row) || m.isCursor(start, row)
			if !boundary {
				continue
			}
			text := string(grid.Runes[row][start:col])
			if m.isCursor(start, row) {
				b.WriteString(cursorStyle.Render(text))
			} else {
				b.WriteString(styleFor(grid.Kinds[row][start]).Render(text))
			}
			start = col
		}
		if row < grid.Rows-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func (m Model) isCursor(col, row int) bool {
	return col == m.cursorCol && row == m.cursorRow
}

func (m Model) sidebar(view session.View) string {
	s := view.Stats
	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Underline(true).Render("Board") + "\n")
	fmt.Fprintf(&b, "Vertices: %d\n", s.Vertices)
	fmt.Fprintf(&b, "Edges: %d\n", s.Edges)
	fmt.Fprintf(&b, "Min degree: %d\n", s.MinDegree)
	fmt.Fprintf(&b, "Max degree: %d\n", s.MaxDegree)
	fmt.Fprintf(&b, "Total tokens: %d\n", s.TotalTokens)
	fmt.Fprintf(&b, "Genus: %d\n", s.Genus)
	if len(s.Debtors) == 0 {
		b.WriteString("Debtors: none\n")
	} else {
		fmt.Fprintf(&b, "Debtors: %s\n", strings.Trim(fmt.Sprint(s.Debtors), "[]"))
	}

	x, y := m.Cursor()
	if info, ok := m.session.Hover(x, y); ok {
		fmt.Fprintf(&b, "\nVertex %d: %d tokens, degree %d\n", info.ID, info.Tokens, info.Degree)
	} else {
		fmt.Fprintf(&b, "\nCursor: %.0f, %.0f\n", x, y)
	}

	b.WriteString("\n" + m.log.View())
	return paneStyle.Width(sidebarWidth - 2).Render(b.String())
}
