package tui

import (
	"github.com/TFMV/dollargraph/render"
	"github.com/charmbracelet/lipgloss"
)

var (
	subtleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	cursorStyle = lipgloss.NewStyle().Reverse(true)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)

	paneStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)

	// Cell styles follow the classic palette of the SVG renderer
	cellStyles = map[render.Cell]lipgloss.Style{
		render.CellEmpty:       lipgloss.NewStyle(),
		render.CellBorder:      subtleStyle,
		render.CellEdge:        lipgloss.NewStyle().Foreground(lipgloss.Color("33")),
		render.CellPathEdge:    lipgloss.NewStyle().Foreground(lipgloss.Color("129")).Bold(true),
		render.CellWeight:      lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		render.CellLabel:       lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		render.CellVertex:      lipgloss.NewStyle().Foreground(lipgloss.Color("34")).Bold(true),
		render.CellSelected:    lipgloss.NewStyle().Foreground(lipgloss.Color("21")).Bold(true),
		render.CellPathVertex:  lipgloss.NewStyle().Foreground(lipgloss.Color("129")).Bold(true),
		render.CellSource:      lipgloss.NewStyle().Foreground(lipgloss.Color("51")).Bold(true),
		render.CellDestination: lipgloss.NewStyle().Foreground(lipgloss.Color("226")).Bold(true),
	}
)

func styleFor(c render.Cell) lipgloss.Style {
	if s, ok := cellStyles[c]; ok {
		return s
	}
	return lipgloss.NewStyle()
}
