// Package render draws boards as SVG, ASCII art, JSON or Graphviz DOT.
package render

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/TFMV/dollargraph/models"
	"github.com/TFMV/dollargraph/pathfind"
	"github.com/TFMV/dollargraph/physics"
)

// ErrUnsupportedFormat is returned by GetRenderer for an unknown format
var ErrUnsupportedFormat = errors.New("render: unsupported output format")

// Highlight marks vertices and edges that are drawn in accent colours
type Highlight struct {
	Path     *pathfind.Path // Source, destination and the edges in between
	Selected []int64        // Pending selection on the canvas
}

func (h Highlight) selected(id int64) bool {
	for _, s := range h.Selected {
		if s == id {
			return true
		}
	}
	return false
}

// role is how a vertex is drawn
type role int

const (
	rolePlain role = iota
	roleSelected
	rolePath
	roleSource
	roleDestination
)

func (h Highlight) vertexRole(id int64) role {
	if h.Path != nil && len(h.Path.Vertices) > 0 {
		switch {
		case h.Path.Source() == id:
			return roleSource
		case h.Path.Destination() == id:
			return roleDestination
		case h.Path.Contains(id):
			return rolePath
		}
	}
	if h.selected(id) {
		return roleSelected
	}
	return rolePlain
}

func (h Highlight) onPath(e models.Edge) bool {
	return h.Path != nil && h.Path.UsesEdge(e.Source, e.Target)
}

// Palette provides the colour scheme for a rendering
type Palette struct {
	Background  string
	Vertex      string
	Outline     string
	Selected    string
	Edge        string
	Path        string
	Source      string
	Destination string
	WeightBox   string
	Text        string
	Debt        string
}

// ClassicPalette is the light canvas palette used by the web page
func ClassicPalette() *Palette {
	return &Palette{
		Background:  "#ffffff",
		Vertex:      "green",
		Outline:     "black",
		Selected:    "blue",
		Edge:        "blue",
		Path:        "purple",
		Source:      "cyan",
		Destination: "yellow",
		WeightBox:   "#908b8b",
		Text:        "black",
		Debt:        "red",
	}
}

// DarkPalette is a high-contrast scheme for dark backgrounds
func DarkPalette() *Palette {
	return &Palette{
		Background:  "#212121",
		Vertex:      "#00E676",
		Outline:     "#f8f8f8",
		Selected:    "#2979FF",
		Edge:        "#00B0FF",
		Path:        "#651FFF",
		Source:      "#00BCD4",
		Destination: "#FBBC05",
		WeightBox:   "#424242",
		Text:        "#f8f8f8",
		Debt:        "#FF5722",
	}
}

// GetPalette returns a palette by name, defaulting to the classic scheme
func GetPalette(name string) *Palette {
	if strings.ToLower(name) == "dark" {
		return DarkPalette()
	}
	return ClassicPalette()
}

func (p *Palette) vertexFill(r role) string {
	switch r {
	case roleSelected:
		return p.Selected
	case rolePath:
		return p.Path
	case roleSource:
		return p.Source
	case roleDestination:
		return p.Destination
	default:
		return p.Vertex
	}
}

// OutputOptions defines rendering configuration options
type OutputOptions struct {
	Format       string  // Output format (svg, ascii, json, dot)
	Width        float64 // Width of the output, the board width when zero
	Height       float64 // Height of the output, the board height when zero
	VertexRadius float64
	FontSize     float64
	ShowLabels   bool // Vertex ids
	ShowTokens   bool // Token balances above vertices
	ShowWeights  bool // Edge weights at edge midpoints
	Timestamp    bool
	Columns      int              // ASCII grid width
	Rows         int              // ASCII grid height
	Layout       string           // Layout applied before rendering, none when empty
	Physics      *physics.Options // Layout tuning, physics defaults when nil
	Palette      *Palette
	Highlight    Highlight
}

// NewDefaultOptions creates a default set of output options
func NewDefaultOptions(format string) *OutputOptions {
	return &OutputOptions{
		Format:       format,
		VertexRadius: 25,
		FontSize:     14,
		ShowLabels:   true,
		ShowTokens:   true,
		ShowWeights:  true,
		Columns:      100,
		Rows:         40,
		Palette:      ClassicPalette(),
	}
}

// resolved fills unset options from the board
func (o OutputOptions) resolved(graph *models.Graph) *OutputOptions {
	d := NewDefaultOptions(o.Format)
	if o.Width <= 0 {
		o.Width = graph.Width
	}
	if o.Height <= 0 {
		o.Height = graph.Height
	}
	if o.VertexRadius <= 0 {
		o.VertexRadius = d.VertexRadius
	}
	if o.FontSize <= 0 {
		o.FontSize = d.FontSize
	}
	if o.Columns <= 0 {
		o.Columns = d.Columns
	}
	if o.Rows <= 0 {
		o.Rows = d.Rows
	}
	if o.Palette == nil {
		o.Palette = d.Palette
	}
	return &o
}

// Renderer interface defines methods that all rendering backends must implement
type Renderer interface {
	// Render creates a visualization of the graph using the provided options
	Render(graph *models.Graph, options *OutputOptions) ([]byte, error)

	// Name returns the name of the renderer
	Name() string

	// Description returns a description of the renderer
	Description() string
}

// GetRenderer returns the appropriate renderer based on format
func GetRenderer(format string) (Renderer, error) {
	switch strings.ToLower(format) {
	case "svg":
		return &SVGRenderer{}, nil
	case "ascii", "text":
		return &ASCIIRenderer{}, nil
	case "json":
		return &JSONRenderer{}, nil
	case "dot":
		return &DOTRenderer{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// Formats lists the formats accepted by GetRenderer
func Formats() []string {
	return []string{"svg", "ascii", "json", "dot"}
}

// ContentType returns the MIME type of a format
func ContentType(format string) string {
	switch strings.ToLower(format) {
	case "svg":
		return "image/svg+xml"
	case "json":
		return "application/json"
	case "dot":
		return "text/vnd.graphviz"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Generate renders a copy of the board, running the requested layout first.
// Work is abandoned when ctx ends.
func Generate(ctx context.Context, graph *models.Graph, options *OutputOptions) ([]byte, error) {
	if options == nil {
		options = NewDefaultOptions("svg")
	}
	renderer, err := GetRenderer(options.Format)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("rendering aborted: %w", err)
	}

	type outcome struct {
		data []byte
		err  error
	}
	done := make(chan outcome, 1)

	go func() {
		board := graph.Clone()
		if options.Layout != "" {
			tuning := physics.DefaultOptions()
			if options.Physics != nil {
				tuning = *options.Physics
			}
			if _, err := physics.Arrange(ctx, board, options.Layout, tuning); err != nil {
				done <- outcome{err: err}
				return
			}
		}
		data, err := renderer.Render(board, options)
		done <- outcome{data: data, err: err}
	}()

	select {
	case out := <-done:
		return out.data, out.err
	case <-ctx.Done():
		return nil, fmt.Errorf("rendering aborted: %w", ctx.Err())
	}
}

// SVGRenderer outputs SVG format
type SVGRenderer struct{}

// Name returns the name of the renderer
func (r *SVGRenderer) Name() string {
	return "SVG Renderer"
}

// Description returns a description of the renderer
func (r *SVGRenderer) Description() string {
	return "Renders boards as Scalable Vector Graphics (SVG)"
}

// Render creates an SVG representation of the graph
func (r *SVGRenderer) Render(graph *models.Graph, options *OutputOptions) ([]byte, error) {
	opts := options.resolved(graph)
	p := opts.Palette
	var buf bytes.Buffer

	fmt.Fprintf(&buf, `<?xml version="1.0" encoding="UTF-8" standalone="no"?>
<svg width="%g" height="%g" viewBox="0 0 %g %g" xmlns="http://www.w3.org/2000/svg">
<rect width="100%%" height="100%%" fill="%s"/>
`, opts.Width, opts.Height, opts.Width, opts.Height, p.Background)

	positions := make(map[int64]models.Vertex, len(graph.Vertices))
	for _, v := range graph.Vertices {
		positions[v.ID] = v
	}

	// Edges below vertices
	for _, e := range graph.Edges {
		a, okA := positions[e.Source]
		b, okB := positions[e.Target]
		if !okA || !okB {
			continue
		}
		stroke := p.Edge
		if opts.Highlight.onPath(e) {
			stroke = p.Path
		}
		fmt.Fprintf(&buf, `<line class="edge" x1="%g" y1="%g" x2="%g" y2="%g" stroke="%s" stroke-width="3"/>
`, a.X, a.Y, b.X, b.Y, stroke)
	}

	if opts.ShowWeights {
		for _, e := range graph.Edges {
			a, okA := positions[e.Source]
			b, okB := positions[e.Target]
			if !okA || !okB {
				continue
			}
			midX, midY := (a.X+b.X)/2, (a.Y+b.Y)/2
			label := fmt.Sprintf("%d", e.Weight)
			half := float64(len(label))*opts.FontSize*0.3 + 3
			fmt.Fprintf(&buf, `<rect class="weight" x="%g" y="%g" width="%g" height="%g" fill="%s"/>
<text x="%g" y="%g" font-family="sans-serif" font-size="%g" fill="%s" text-anchor="middle" dominant-baseline="central">%s</text>
`, midX-half, midY-opts.FontSize*0.6, 2*half, opts.FontSize*1.2, p.WeightBox,
				midX, midY, opts.FontSize, p.Text, label)
		}
	}

	for _, v := range graph.Vertices {
		fill := p.vertexFill(opts.Highlight.vertexRole(v.ID))
		fmt.Fprintf(&buf, `<circle class="vertex" data-id="%d" cx="%g" cy="%g" r="%g" fill="%s" stroke="%s" stroke-width="2"/>
`, v.ID, v.X, v.Y, opts.VertexRadius, fill, p.Outline)

		if opts.ShowLabels {
			label := fmt.Sprintf("%d", v.ID)
			if v.Label != "" {
				label = v.Label
			}
			fmt.Fprintf(&buf, `<text x="%g" y="%g" font-family="sans-serif" font-size="%g" fill="%s" text-anchor="middle" dominant-baseline="central">%s</text>
`, v.X, v.Y, opts.FontSize, p.Outline, html.EscapeString(label))
		}

		if opts.ShowTokens {
			color := p.Text
			if v.Tokens < 0 {
				color = p.Debt
			}
			fmt.Fprintf(&buf, `<text class="tokens" x="%g" y="%g" font-family="sans-serif" font-size="%g" fill="%s" text-anchor="middle">%d</text>
`, v.X, v.Y-opts.VertexRadius-9, opts.FontSize, color, v.Tokens)
		}
	}

	if opts.Timestamp {
		fmt.Fprintf(&buf, `<text x="5" y="%g" font-family="sans-serif" font-size="8" fill="#808080">%s</text>
`, opts.Height-5, time.Now().Format("2006-01-02 15:04:05"))
	}

	buf.WriteString("</svg>\n")
	return buf.Bytes(), nil
}

// ASCIIRenderer outputs ASCII art format
type ASCIIRenderer struct{}

// Name returns the name of the renderer
func (r *ASCIIRenderer) Name() string {
	return "ASCII Renderer"
}

// Description returns a description of the renderer
func (r *ASCIIRenderer) Description() string {
	return "Renders boards as ASCII art for terminal or text-based output"
}

// Render creates an ASCII representation of the graph followed by a legend
func (r *ASCIIRenderer) Render(graph *models.Graph, options *OutputOptions) ([]byte, error) {
	opts := options.resolved(graph)
	grid := Rasterize(graph, opts.Highlight, GridOptions{
		Columns:     opts.Columns,
		Rows:        opts.Rows,
		ShowLabels:  opts.ShowLabels,
		ShowWeights: opts.ShowWeights,
	})

	var out strings.Builder
	out.WriteString(grid.String())

	stats := graph.Stats()
	fmt.Fprintf(&out, "vertices: %d  edges: %d  degree: %d..%d  tokens: %d  genus: %d\n",
		stats.Vertices, stats.Edges, stats.MinDegree, stats.MaxDegree, stats.TotalTokens, stats.Genus)
	if opts.ShowTokens {
		for _, v := range graph.Vertices {
			fmt.Fprintf(&out, "  %d: %d\n", v.ID, v.Tokens)
		}
	}
	if path := opts.Highlight.Path; path != nil {
		ids := make([]string, len(path.Vertices))
		for i, id := range path.Vertices {
			ids[i] = fmt.Sprintf("%d", id)
		}
		fmt.Fprintf(&out, "path: %s (total %d)\n", strings.Join(ids, " - "), path.Total)
	}
	if opts.Timestamp {
		out.WriteString(time.Now().Format("2006-01-02 15:04") + "\n")
	}
	return []byte(out.String()), nil
}

// JSONRenderer outputs the board document. The output can be imported again.
type JSONRenderer struct{}

// Name returns the name of the renderer
func (r *JSONRenderer) Name() string {
	return "JSON Renderer"
}

// Description returns a description of the renderer
func (r *JSONRenderer) Description() string {
	return "Renders the board as JSON for export or custom visualizations"
}

// Render creates a JSON representation of the graph
func (r *JSONRenderer) Render(graph *models.Graph, options *OutputOptions) ([]byte, error) {
	opts := options.resolved(graph)
	doc := struct {
		*models.Graph
		Stats models.Stats   `json:"stats"`
		Path  *pathfind.Path `json:"path,omitempty"`
	}{
		Graph: graph,
		Stats: graph.Stats(),
		Path:  opts.Highlight.Path,
	}
	return json.MarshalIndent(doc, "", "  ")
}

// DOTRenderer outputs Graphviz DOT format
type DOTRenderer struct{}

// Name returns the name of the renderer
func (r *DOTRenderer) Name() string {
	return "DOT Renderer"
}

// Description returns a description of the renderer
func (r *DOTRenderer) Description() string {
	return "Renders the board in Graphviz DOT format for compatibility with Graphviz tools"
}

// Render creates a DOT representation of the graph. Positions are pinned so
// neato reproduces the canvas.
func (r *DOTRenderer) Render(graph *models.Graph, options *OutputOptions) ([]byte, error) {
	opts := options.resolved(graph)
	p := opts.Palette
	var buf bytes.Buffer

	name := graph.Name
	if name == "" {
		name = "G"
	}
	fmt.Fprintf(&buf, "graph %q {\n", name)
	fmt.Fprintf(&buf, "  graph [bgcolor=%q];\n", p.Background)
	buf.WriteString("  node [shape=circle, style=filled];\n")

	for _, v := range graph.Vertices {
		label := fmt.Sprintf("%d", v.ID)
		if v.Label != "" {
			label = v.Label
		}
		if opts.ShowTokens {
			label = fmt.Sprintf("%s\\n$%d", label, v.Tokens)
		}
		fill := p.vertexFill(opts.Highlight.vertexRole(v.ID))
		// DOT's y axis points up
		fmt.Fprintf(&buf, "  %d [label=\"%s\", fillcolor=%q, pos=\"%g,%g!\"];\n",
			v.ID, strings.ReplaceAll(label, `"`, `\"`), fill, v.X, opts.Height-v.Y)
	}

	for _, e := range graph.Edges {
		attrs := []string{fmt.Sprintf("color=%q", p.Edge)}
		if opts.Highlight.onPath(e) {
			attrs = []string{fmt.Sprintf("color=%q", p.Path), "penwidth=3"}
		}
		if opts.ShowWeights {
			attrs = append(attrs, fmt.Sprintf("label=\"%d\"", e.Weight))
		}
		fmt.Fprintf(&buf, "  %d -- %d [%s];\n", e.Source, e.Target, strings.Join(attrs, ", "))
	}

	buf.WriteString("}\n")
	return buf.Bytes(), nil
}
