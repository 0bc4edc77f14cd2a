package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/TFMV/dollargraph/models"
	"github.com/TFMV/dollargraph/observability"
	"github.com/TFMV/dollargraph/pathfind"
	"github.com/TFMV/dollargraph/session"
	"github.com/TFMV/dollargraph/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	handler http.Handler
	session *session.Session
	boards  *store.MemoryStore
	metrics *observability.Metrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	metrics := observability.NewMetrics()
	sess, err := session.New(nil, session.Options{Metrics: metrics})
	require.NoError(t, err)
	boards := store.NewMemoryStore()
	srv := New(Config{Addr: ":0", EnableMetrics: true}, sess, boards, zap.NewNop(), metrics)
	return &fixture{handler: srv.Handler(), session: sess, boards: boards, metrics: metrics}
}

func (f *fixture) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

// triangle builds 1-2 (10), 1-3 (2), 3-2 (3) through the API
func (f *fixture) triangle(t *testing.T) {
	t.Helper()
	for _, v := range []vertexRequest{{X: 100, Y: 100, Tokens: 2}, {X: 300, Y: 100, Tokens: -1}, {X: 200, Y: 300}} {
		rec := f.do(t, http.MethodPost, "/api/vertices", v)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}
	for _, e := range []edgeRequest{{Source: 1, Target: 2, Weight: 10}, {Source: 1, Target: 3, Weight: 2}, {Source: 3, Target: 2, Weight: 3}} {
		rec := f.do(t, http.MethodPost, "/api/edges", e)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}
}

func TestHealthAndIndex(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), `<canvas id="board"`)
}

func TestBoardOperations(t *testing.T) {
	f := newFixture(t)
	f.triangle(t)

	rec := f.do(t, http.MethodGet, "/api/path?from=1&to=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var p pathfind.Path
	decodeBody(t, rec, &p)
	assert.Equal(t, []int64{1, 3, 2}, p.Vertices)
	assert.Equal(t, int64(5), p.Total)

	rec = f.do(t, http.MethodPost, "/api/vertices/1/give", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var info session.Info
	decodeBody(t, rec, &info)
	assert.Equal(t, 1, info.TotalTokens, "give conserves the total")

	v, err := f.session.Snapshot().FindVertex(1)
	require.NoError(t, err)
	assert.Equal(t, 0, v.Tokens)

	rec = f.do(t, http.MethodPost, "/api/vertices/1/take", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodDelete, "/api/edges/2/1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, f.session.Snapshot().Adjacent(1, 2))

	rec = f.do(t, http.MethodDelete, "/api/vertices/3", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/info", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &info)
	assert.Equal(t, 2, info.Vertices)
	assert.Equal(t, 0, info.Edges)
	assert.Equal(t, []session.Mode{session.Idle, session.NewVertex, session.DeleteVertex, session.NewEdge}, info.Available)
}

func TestErrorStatuses(t *testing.T) {
	f := newFixture(t)
	f.triangle(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		status int
	}{
		{"duplicate edge", http.MethodPost, "/api/edges", edgeRequest{Source: 2, Target: 1, Weight: 1}, http.StatusConflict},
		{"self loop", http.MethodPost, "/api/edges", edgeRequest{Source: 2, Target: 2}, http.StatusBadRequest},
		{"negative weight", http.MethodPost, "/api/edges", `{"source": 1, "target": 4, "weight": -1}`, http.StatusUnprocessableEntity},
		{"missing vertex", http.MethodPost, "/api/edges", edgeRequest{Source: 1, Target: 9}, http.StatusNotFound},
		{"out of bounds", http.MethodPost, "/api/vertices", vertexRequest{X: 10, Y: 500}, http.StatusUnprocessableEntity},
		{"too close", http.MethodPost, "/api/vertices", vertexRequest{X: 120, Y: 110}, http.StatusConflict},
		{"bad json", http.MethodPost, "/api/vertices", `{"x":`, http.StatusBadRequest},
		{"bad id", http.MethodDelete, "/api/vertices/abc", nil, http.StatusBadRequest},
		{"unknown vertex", http.MethodPost, "/api/vertices/42/give", nil, http.StatusNotFound},
		{"not adjacent", http.MethodDelete, "/api/edges/2/9", nil, http.StatusNotFound},
		{"path without to", http.MethodGet, "/api/path?from=1", nil, http.StatusBadRequest},
		{"unknown mode", http.MethodPost, "/api/mode", modeRequest{Mode: "paint"}, http.StatusBadRequest},
		{"unknown layout", http.MethodPost, "/api/arrange", arrangeRequest{Layout: "spiral"}, http.StatusBadRequest},
		{"unknown export", http.MethodGet, "/api/export?format=png", nil, http.StatusBadRequest},
		{"unknown board", http.MethodPost, "/api/boards/nope/load", nil, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())

			var body errorResponse
			decodeBody(t, rec, &body)
			assert.True(t, body.Error)
			assert.Equal(t, tt.status, body.Code)
			assert.NotEmpty(t, body.Message)
		})
	}
}

func TestModeAndClicks(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/mode", modeRequest{Mode: "delete_edge"})
	assert.Equal(t, http.StatusConflict, rec.Code, "no edges yet")

	rec = f.do(t, http.MethodPost, "/api/mode", modeRequest{Mode: "new-vertex"})
	require.Equal(t, http.StatusOK, rec.Code)

	for _, c := range []clickRequest{{X: 100, Y: 100, Value: 3}, {X: 400, Y: 100, Value: -3}} {
		rec = f.do(t, http.MethodPost, "/api/click", c)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var resp clickResponse
		decodeBody(t, rec, &resp)
		assert.Equal(t, session.ActionPlaced, resp.Result.Action)
	}

	rec = f.do(t, http.MethodPost, "/api/mode", modeRequest{Mode: "new_edge"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/click", clickRequest{X: 101, Y: 99})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp clickResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, session.ActionSelected, resp.Result.Action)
	assert.Equal(t, []int64{1}, resp.View.Selected)

	rec = f.do(t, http.MethodPost, "/api/click", clickRequest{X: 400, Y: 100, Value: 7})
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &resp)
	assert.Equal(t, session.ActionConnected, resp.Result.Action)
	require.NotNil(t, resp.Result.Edge)
	assert.Equal(t, int64(7), resp.Result.Edge.Weight)
	assert.Empty(t, resp.View.Selected)

	rec = f.do(t, http.MethodGet, "/api/hover?x=399&y=102", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var hover hoverResponse
	decodeBody(t, rec, &hover)
	require.True(t, hover.Found)
	assert.Equal(t, int64(2), hover.Vertex.ID)
	assert.Equal(t, -3, hover.Vertex.Tokens)
	assert.Equal(t, 1, hover.Vertex.Degree)

	rec = f.do(t, http.MethodGet, "/api/hover?x=700&y=700", nil)
	decodeBody(t, rec, &hover)
	assert.False(t, hover.Found)

	rec = f.do(t, http.MethodPost, "/api/cancel", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, session.Idle, f.session.Mode())
}

func TestExport(t *testing.T) {
	f := newFixture(t)
	f.triangle(t)
	_, err := f.session.ShortestPath(1, 2)
	require.NoError(t, err)

	rec := f.do(t, http.MethodGet, "/api/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `fill="cyan"`)

	rec = f.do(t, http.MethodGet, "/api/export?format=dot&download=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "board.dot")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "graph "))
}

func TestExportWithLayout(t *testing.T) {
	f := newFixture(t)
	f.triangle(t)
	before := f.session.Snapshot()

	rec := f.do(t, http.MethodGet, "/api/export?format=json&layout=circle", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var exported models.Graph
	decodeBody(t, rec, &exported)
	require.Len(t, exported.Vertices, 3)
	assert.NotEqual(t, before.Vertices[0].X, exported.Vertices[0].X, "the exported copy is laid out")
	assert.Equal(t, before.Vertices, f.session.Snapshot().Vertices, "the live board keeps its positions")

	rec = f.do(t, http.MethodGet, "/api/export?layout=spiral", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImportKeepsBoardWhenLayoutAborts(t *testing.T) {
	f := newFixture(t)
	f.triangle(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/import?format=csv", strings.NewReader("source,target\na,b\n")).WithContext(ctx)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	board := f.session.Snapshot()
	assert.Len(t, board.Vertices, 3)
	assert.Len(t, board.Edges, 3)
}

func TestImportAndArrange(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/import?format=csv", "source,target,weight\na,b,2\nb,c,3\nc,d,1\n")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var view session.View
	decodeBody(t, rec, &view)
	require.Len(t, view.Board.Vertices, 4)
	for _, v := range view.Board.Vertices {
		assert.False(t, v.X == 0 && v.Y == 0, "imported vertices are laid out")
	}

	rec = f.do(t, http.MethodPost, "/api/arrange", arrangeRequest{Layout: "circle"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/import?format=csv", "source,target\na,a\n")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Len(t, f.session.Snapshot().Vertices, 4, "a rejected import keeps the board")

	rec = f.do(t, http.MethodPost, "/api/import?format=xml", "<board/>")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBoards(t *testing.T) {
	f := newFixture(t)
	f.triangle(t)

	rec := f.do(t, http.MethodPost, "/api/boards", map[string]string{"name": "triangle"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var saved models.Summary
	decodeBody(t, rec, &saved)
	assert.Equal(t, "triangle", saved.Name)
	assert.Equal(t, 3, saved.Vertices)

	rec = f.do(t, http.MethodGet, "/api/boards", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []models.Summary
	decodeBody(t, rec, &list)
	require.Len(t, list, 1)
	assert.Equal(t, saved.ID, list[0].ID)

	require.NoError(t, f.session.Replace(models.NewGraph("blank")))
	rec = f.do(t, http.MethodPost, "/api/boards/"+saved.ID+"/load", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, f.session.Snapshot().Edges, 3)

	rec = f.do(t, http.MethodDelete, "/api/boards/"+saved.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = f.do(t, http.MethodDelete, "/api/boards/"+saved.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodGet, "/api/board", nil)

	rec := f.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `dollargraph_http_requests_total{method="GET",route="/api/board",status="200"} 1`)
	assert.Contains(t, body, "dollargraph_board_vertices")
}

func TestMetricsDisabled(t *testing.T) {
	sess, err := session.New(nil, session.Options{})
	require.NoError(t, err)
	srv := New(Config{}, sess, store.NewMemoryStore(), nil, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/board", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
