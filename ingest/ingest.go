// Package ingest turns board files into validated boards.
package ingest

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/TFMV/dollargraph/models"
	"gopkg.in/yaml.v3"
)

// ErrUnsupportedFormat is returned by GetProcessor for an unknown format
var ErrUnsupportedFormat = errors.New("ingest: unsupported format")

// DataProcessor defines the interface that all data processors must implement
type DataProcessor interface {
	// ProcessData takes raw data bytes and returns a board
	ProcessData(data []byte) (*models.Graph, error)

	// GetName returns the name of the processor
	GetName() string
}

// document is the board file layout shared by the JSON and YAML processors.
// Vertices without coordinates are left at the origin for the layout to place.
type document struct {
	Name     string        `json:"name" yaml:"name"`
	Width    float64       `json:"width" yaml:"width"`
	Height   float64       `json:"height" yaml:"height"`
	Vertices []vertexEntry `json:"vertices" yaml:"vertices"`
	Edges    []edgeEntry   `json:"edges" yaml:"edges"`
}

type vertexEntry struct {
	ID     int64   `json:"id" yaml:"id"`
	Label  string  `json:"label" yaml:"label"`
	Tokens int     `json:"tokens" yaml:"tokens"`
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
}

type edgeEntry struct {
	Source int64 `json:"source" yaml:"source"`
	Target int64 `json:"target" yaml:"target"`
	Weight int64 `json:"weight" yaml:"weight"`
}

// build creates the board described by the document
func (d document) build(fallbackName string) (*models.Graph, error) {
	name := d.Name
	if name == "" {
		name = fallbackName
	}
	graph := models.NewGraph(name)
	if d.Width > 0 && d.Height > 0 {
		graph.SetDimensions(d.Width, d.Height)
	}

	vertices := make([]*models.Vertex, 0, len(d.Vertices))
	for _, v := range d.Vertices {
		vertex := models.NewVertex(v.ID, v.X, v.Y, v.Tokens)
		vertex.Label = v.Label
		vertices = append(vertices, vertex)
	}
	if err := graph.AddVertices(vertices...); err != nil {
		return nil, err
	}

	for i, e := range d.Edges {
		if _, err := graph.Connect(e.Source, e.Target, e.Weight); err != nil {
			return nil, fmt.Errorf("edge %d: %w", i+1, err)
		}
	}
	return graph, graph.Validate()
}

// JSONProcessor handles JSON board documents
type JSONProcessor struct{}

// NewJSONProcessor creates a new JSON processor
func NewJSONProcessor() *JSONProcessor {
	return &JSONProcessor{}
}

// GetName returns the name of the processor
func (p *JSONProcessor) GetName() string {
	return "JSON Processor"
}

// ProcessData processes JSON data
func (p *JSONProcessor) ProcessData(data []byte) (*models.Graph, error) {
	var doc document
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return fallbackJSON(data, err)
	}
	return doc.build("JSON Import")
}

// fallbackJSON accepts a full board as written by the JSON renderer, which
// carries extra fields such as ids and timestamps.
func fallbackJSON(data []byte, cause error) (*models.Graph, error) {
	var g models.Graph
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("error parsing JSON: %w", cause)
	}
	if g.ID == "" {
		return nil, fmt.Errorf("error parsing JSON: %w", cause)
	}
	if g.Vertices == nil {
		g.Vertices = []models.Vertex{}
	}
	if g.Edges == nil {
		g.Edges = []models.Edge{}
	}
	if g.Width <= 0 || g.Height <= 0 {
		g.Width, g.Height = models.DefaultWidth, models.DefaultHeight
	}
	for _, v := range g.Vertices {
		if v.ID >= g.NextID {
			g.NextID = v.ID + 1
		}
	}
	if g.NextID <= 0 {
		g.NextID = 1
	}
	return &g, g.Validate()
}

// YAMLProcessor handles YAML board documents
type YAMLProcessor struct{}

// NewYAMLProcessor creates a new YAML processor
func NewYAMLProcessor() *YAMLProcessor {
	return &YAMLProcessor{}
}

// GetName returns the name of the processor
func (p *YAMLProcessor) GetName() string {
	return "YAML Processor"
}

// ProcessData processes YAML data
func (p *YAMLProcessor) ProcessData(data []byte) (*models.Graph, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("error parsing YAML: %w", err)
	}
	return doc.build("YAML Import")
}

// names assigns sequential vertex ids to the vertex names found in edge lists
type names struct {
	graph *models.Graph
	ids   map[string]int64
}

func newNames(graph *models.Graph) *names {
	return &names{graph: graph, ids: make(map[string]int64)}
}

func (n *names) id(name string, tokens int) int64 {
	if id, ok := n.ids[name]; ok {
		return id
	}
	v := n.graph.PlaceVertex(0, 0, tokens)
	n.graph.Vertices[len(n.graph.Vertices)-1].Label = name
	n.ids[name] = v.ID
	return v.ID
}

// CSVProcessor handles CSV edge lists
type CSVProcessor struct{}

// NewCSVProcessor creates a new CSV processor
func NewCSVProcessor() *CSVProcessor {
	return &CSVProcessor{}
}

// GetName returns the name of the processor
func (p *CSVProcessor) GetName() string {
	return "CSV Processor"
}

// ProcessData processes CSV data. Each row is an edge; the header must name a
// source and a target column and may name weight and token columns. A row with
// an empty target declares an isolated vertex.
func (p *CSVProcessor) ProcessData(data []byte) (*models.Graph, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("error reading CSV header: %w", err)
	}

	sourceIdx, targetIdx, weightIdx := -1, -1, -1
	sourceTokensIdx, targetTokensIdx := -1, -1
	for i, col := range header {
		switch strings.ToLower(strings.TrimSpace(col)) {
		case "source", "from", "src":
			sourceIdx = i
		case "target", "to", "dst":
			targetIdx = i
		case "weight", "cost", "distance":
			weightIdx = i
		case "source_tokens":
			sourceTokensIdx = i
		case "target_tokens":
			targetTokensIdx = i
		}
	}
	if sourceIdx == -1 || targetIdx == -1 {
		return nil, fmt.Errorf("CSV must contain source and target columns")
	}

	graph := models.NewGraph("CSV Import")
	vertices := newNames(graph)

	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV row: %w", err)
		}
		line++

		source := field(row, sourceIdx)
		target := field(row, targetIdx)
		if source == "" {
			return nil, fmt.Errorf("line %d: missing source", line)
		}

		sourceTokens, err := intField(row, sourceTokensIdx, 0)
		if err != nil {
			return nil, fmt.Errorf("line %d: source_tokens: %w", line, err)
		}
		a := vertices.id(source, sourceTokens)
		if target == "" {
			continue
		}

		targetTokens, err := intField(row, targetTokensIdx, 0)
		if err != nil {
			return nil, fmt.Errorf("line %d: target_tokens: %w", line, err)
		}
		b := vertices.id(target, targetTokens)

		weight, err := intField(row, weightIdx, 1)
		if err != nil {
			return nil, fmt.Errorf("line %d: weight: %w", line, err)
		}
		if _, err := graph.Connect(a, b, int64(weight)); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
	}

	return graph, graph.Validate()
}

func field(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func intField(row []string, idx int, fallback int) (int, error) {
	s := field(row, idx)
	if s == "" {
		return fallback, nil
	}
	return strconv.Atoi(s)
}

// TextProcessor handles plain-text edge lists, one relationship per line,
// e.g. "a - b", "a -> b = 6" or "a connected to b". The optional "= n" suffix
// sets the weight; lines starting with # are comments.
type TextProcessor struct{}

// NewTextProcessor creates a new text processor
func NewTextProcessor() *TextProcessor {
	return &TextProcessor{}
}

// GetName returns the name of the processor
func (p *TextProcessor) GetName() string {
	return "Text Processor"
}

// Edges are undirected, so every separator means the same thing.
var textSeparators = []string{" -> ", " => ", " -- ", " connected to ", " linked to ", " - "}

// ProcessData processes edge-list text
func (p *TextProcessor) ProcessData(data []byte) (*models.Graph, error) {
	graph := models.NewGraph("Text Import")
	vertices := newNames(graph)

	for n, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		weight := int64(1)
		if i := strings.LastIndex(line, "="); i >= 0 && !strings.Contains(line[i:], ">") {
			w, err := strconv.ParseInt(strings.TrimSpace(line[i+1:]), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: weight: %w", n+1, err)
			}
			weight = w
			line = strings.TrimSpace(line[:i])
		}

		var source, target string
		found := false
		for _, sep := range textSeparators {
			parts := strings.Split(line, sep)
			if len(parts) == 2 {
				source = strings.TrimSpace(parts[0])
				target = strings.TrimSpace(parts[1])
				found = source != "" && target != ""
				break
			}
		}
		if !found {
			// A bare name declares an isolated vertex
			if !strings.ContainsAny(line, " ") {
				vertices.id(line, 0)
				continue
			}
			return nil, fmt.Errorf("line %d: unrecognised relationship %q", n+1, line)
		}

		a := vertices.id(source, 0)
		b := vertices.id(target, 0)
		if _, err := graph.Connect(a, b, weight); err != nil {
			return nil, fmt.Errorf("line %d: %w", n+1, err)
		}
	}

	return graph, graph.Validate()
}

// GetProcessor returns the appropriate processor for the given format
func GetProcessor(format string) (DataProcessor, error) {
	switch strings.ToLower(format) {
	case "json":
		return NewJSONProcessor(), nil
	case "yaml", "yml":
		return NewYAMLProcessor(), nil
	case "csv":
		return NewCSVProcessor(), nil
	case "text", "txt", "log":
		return NewTextProcessor(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// FormatFromPath guesses the input format from a file extension
func FormatFromPath(path string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	switch ext {
	case "yml":
		return "yaml"
	case "txt", "log":
		return "text"
	case "":
		return "json"
	default:
		return ext
	}
}

// Process parses data in the given format
func Process(format string, data []byte) (*models.Graph, error) {
	processor, err := GetProcessor(format)
	if err != nil {
		return nil, err
	}
	return processor.ProcessData(data)
}
