package session

import (
	"fmt"
	"strings"
)

// Mode is the tool currently selected on the canvas
type Mode int

// Modes
const (
	Idle Mode = iota
	NewVertex
	DeleteVertex
	NewEdge
	DeleteEdge
	GiveTake
	ShortestPath
)

var modeNames = map[Mode]string{
	Idle:         "idle",
	NewVertex:    "new_vertex",
	DeleteVertex: "delete_vertex",
	NewEdge:      "new_edge",
	DeleteEdge:   "delete_edge",
	GiveTake:     "give_take",
	ShortestPath: "shortest_path",
}

// Modes lists every mode in toolbar order
func Modes() []Mode {
	return []Mode{Idle, NewVertex, DeleteVertex, NewEdge, DeleteEdge, GiveTake, ShortestPath}
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// Label is the human readable toolbar caption
func (m Mode) Label() string {
	switch m {
	case NewVertex:
		return "New vertex"
	case DeleteVertex:
		return "Delete vertex"
	case NewEdge:
		return "New edge"
	case DeleteEdge:
		return "Delete edge"
	case GiveTake:
		return "Give / take"
	case ShortestPath:
		return "Shortest path"
	default:
		return "Idle"
	}
}

// selects reports whether the mode works on a pair of selected vertices
func (m Mode) selects() bool {
	return m == NewEdge || m == DeleteEdge || m == ShortestPath
}

// ParseMode converts a mode name back into a Mode
func ParseMode(s string) (Mode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("-", "_", " ", "_").Replace(s)
	for m, name := range modeNames {
		if name == s {
			return m, nil
		}
	}
	return Idle, fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// MarshalText encodes the mode by name
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText decodes a mode name
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
