// Package server exposes the dollar-game canvas over HTTP: an HTML page that
// draws the board and forwards clicks, plus a JSON API over the session and
// the board store.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/TFMV/dollargraph/ingest"
	"github.com/TFMV/dollargraph/models"
	"github.com/TFMV/dollargraph/observability"
	"github.com/TFMV/dollargraph/render"
	"github.com/TFMV/dollargraph/session"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Config for the server
type Config struct {
	Addr           string
	AllowedOrigins []string // Any origin when empty
	EnableMetrics  bool
	Layout         string // Layout for imported boards without coordinates
	Format         string // Default export format
	Palette        string
}

// Server serves one session and a board store
type Server struct {
	cfg     Config
	session *session.Session
	boards  models.GraphRepository
	logger  *zap.Logger
	metrics *observability.Metrics
	router  chi.Router
}

// New creates a server. A nil logger discards logs; nil metrics disable /metrics.
func New(cfg Config, sess *session.Session, boards models.GraphRepository, logger *zap.Logger, metrics *observability.Metrics) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Format == "" {
		cfg.Format = "svg"
	}
	if cfg.Layout == "" {
		cfg.Layout = "force"
	}
	s := &Server{
		cfg:     cfg,
		session: sess,
		boards:  boards,
		logger:  logger,
		metrics: metrics,
	}
	s.router = s.routes()
	return s
}

// Handler returns the configured router
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(requestLogger(s.logger, s.metrics))

	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	router.Get("/", s.handleIndex)
	router.Get("/health", s.handleHealth)
	if s.cfg.EnableMetrics && s.metrics != nil {
		router.Handle("/metrics", s.metrics.Handler())
	}

	router.Route("/api", func(r chi.Router) {
		r.Get("/board", s.handleBoard)
		r.Get("/info", s.handleInfo)
		r.Get("/hover", s.handleHover)
		r.Post("/mode", s.handleMode)
		r.Post("/cancel", s.handleCancel)
		r.Post("/click", s.handleClick)

		r.Route("/vertices", func(r chi.Router) {
			r.Post("/", s.handleAddVertex)
			r.Delete("/{id}", s.handleDeleteVertex)
			r.Post("/{id}/give", s.handleGive)
			r.Post("/{id}/take", s.handleTake)
		})
		r.Route("/edges", func(r chi.Router) {
			r.Post("/", s.handleConnect)
			r.Delete("/{a}/{b}", s.handleDisconnect)
		})

		r.Get("/path", s.handlePath)
		r.Post("/arrange", s.handleArrange)
		r.Get("/export", s.handleExport)
		r.Post("/import", s.handleImport)

		r.Route("/boards", func(r chi.Router) {
			r.Get("/", s.handleListBoards)
			r.Post("/", s.handleSaveBoard)
			r.Post("/{id}/load", s.handleLoadBoard)
			r.Delete("/{id}", s.handleDeleteBoard)
		})
	})

	return router
}

// Start listens on the configured address until ctx ends, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting server", zap.String("addr", s.cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.session.View())
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.session.Info())
}

// hoverResponse is empty when the pointer is not over a vertex
type hoverResponse struct {
	Found  bool               `json:"found"`
	Vertex *session.HoverInfo `json:"vertex,omitempty"`
}

func (s *Server) handleHover(w http.ResponseWriter, r *http.Request) {
	x, err := queryFloat(r, "x")
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	y, err := queryFloat(r, "y")
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	info, ok := s.session.Hover(x, y)
	if !ok {
		s.respondJSON(w, http.StatusOK, hoverResponse{})
		return
	}
	s.respondJSON(w, http.StatusOK, hoverResponse{Found: true, Vertex: &info})
}

type modeRequest struct {
	Mode string `json:"mode" validate:"required"`
}

func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	var req modeRequest
	if err := decode(w, r, &req); err != nil {
		s.respondErr(w, r, err)
		return
	}
	mode, err := session.ParseMode(req.Mode)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	if err := s.session.SetMode(mode); err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, s.session.View())
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	s.session.Cancel()
	s.respondJSON(w, http.StatusOK, s.session.View())
}

type clickRequest struct {
	X         float64 `json:"x" validate:"gte=0"`
	Y         float64 `json:"y" validate:"gte=0"`
	Secondary bool    `json:"secondary"`
	Value     int64   `json:"value"`
}

// clickResponse pairs the click outcome with the redrawn board
type clickResponse struct {
	Result session.Result `json:"result"`
	View   session.View   `json:"view"`
}

func (s *Server) handleClick(w http.ResponseWriter, r *http.Request) {
	var req clickRequest
	if err := decode(w, r, &req); err != nil {
		s.respondErr(w, r, err)
		return
	}
	result, err := s.session.Click(session.Click{
		X:         req.X,
		Y:         req.Y,
		Secondary: req.Secondary,
		Value:     req.Value,
	})
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, clickResponse{Result: result, View: s.session.View()})
}

type vertexRequest struct {
	X      float64 `json:"x" validate:"gte=0"`
	Y      float64 `json:"y" validate:"gte=0"`
	Tokens int     `json:"tokens"`
}

func (s *Server) handleAddVertex(w http.ResponseWriter, r *http.Request) {
	var req vertexRequest
	if err := decode(w, r, &req); err != nil {
		s.respondErr(w, r, err)
		return
	}
	v, err := s.session.AddVertex(req.X, req.Y, req.Tokens)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, v)
}

func (s *Server) handleDeleteVertex(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	if err := s.session.DeleteVertex(id); err != nil {
		s.respondErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGive(w http.ResponseWriter, r *http.Request) {
	s.transfer(w, r, s.session.Give)
}

func (s *Server) handleTake(w http.ResponseWriter, r *http.Request) {
	s.transfer(w, r, s.session.Take)
}

func (s *Server) transfer(w http.ResponseWriter, r *http.Request, move func(int64) error) {
	id, err := idParam(r, "id")
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	if err := move(id); err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, s.session.Info())
}

type edgeRequest struct {
	Source int64 `json:"source" validate:"required"`
	Target int64 `json:"target" validate:"required,nefield=Source"`
	Weight int64 `json:"weight"`
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	var req edgeRequest
	if err := decode(w, r, &req); err != nil {
		s.respondErr(w, r, err)
		return
	}
	e, err := s.session.Connect(req.Source, req.Target, req.Weight)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, e)
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	a, err := idParam(r, "a")
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	b, err := idParam(r, "b")
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	if err := s.session.Disconnect(a, b); err != nil {
		s.respondErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePath(w http.ResponseWriter, r *http.Request) {
	from, err := queryInt(r, "from")
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	to, err := queryInt(r, "to")
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	p, err := s.session.ShortestPath(from, to)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, p)
}

type arrangeRequest struct {
	Layout string `json:"layout" validate:"omitempty,oneof=force circle"`
}

func (s *Server) handleArrange(w http.ResponseWriter, r *http.Request) {
	var req arrangeRequest
	if err := decode(w, r, &req); err != nil {
		s.respondErr(w, r, err)
		return
	}
	if req.Layout == "" {
		req.Layout = s.cfg.Layout
	}
	if err := s.session.Arrange(r.Context(), req.Layout); err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, s.session.View())
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = s.cfg.Format
	}
	palette := r.URL.Query().Get("palette")
	if palette == "" {
		palette = s.cfg.Palette
	}

	view := s.session.View()
	opts := render.NewDefaultOptions(format)
	opts.VertexRadius = view.Radius
	opts.Palette = render.GetPalette(palette)
	opts.Highlight = render.Highlight{Path: view.Path, Selected: view.Selected}
	// Lays out the exported copy only; the live board keeps its positions
	opts.Layout = r.URL.Query().Get("layout")

	out, err := render.Generate(r.Context(), view.Board, opts)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	w.Header().Set("Content-Type", render.ContentType(format))
	if r.URL.Query().Get("download") != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "board."+format))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(out); err != nil {
		s.logger.Warn("Failed to write export", zap.Error(err))
	}
}

// handleImport replaces the board with one parsed from the request body. The
// format comes from the format query parameter, JSON by default.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	processor, err := ingest.GetProcessor(format)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		s.respondErr(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	board, err := processor.ProcessData(data)
	if err != nil {
		s.respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := s.load(r.Context(), board); err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, s.session.View())
}

// load makes board the active one, laying it out first when some vertices
// have no position.
func (s *Server) load(ctx context.Context, board *models.Graph) error {
	return s.session.Load(ctx, board, s.cfg.Layout)
}

func (s *Server) handleListBoards(w http.ResponseWriter, r *http.Request) {
	list, err := s.boards.List(r.Context())
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, list)
}

type saveBoardRequest struct {
	Name string `json:"name" validate:"max=200"`
}

// handleSaveBoard stores a snapshot of the active board, renamed when a name
// is given.
func (s *Server) handleSaveBoard(w http.ResponseWriter, r *http.Request) {
	var req saveBoardRequest
	if r.ContentLength != 0 {
		if err := decode(w, r, &req); err != nil {
			s.respondErr(w, r, err)
			return
		}
	}

	board := s.session.Snapshot()
	if req.Name != "" {
		board.Name = req.Name
	}
	if err := s.boards.Save(r.Context(), board); err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.logger.Info("board saved", zap.String("board_id", board.ID), zap.String("name", board.Name))
	s.respondJSON(w, http.StatusCreated, board.Summarize())
}

func (s *Server) handleLoadBoard(w http.ResponseWriter, r *http.Request) {
	board, err := s.boards.FindByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	if err := s.load(r.Context(), board); err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, s.session.View())
}

func (s *Server) handleDeleteBoard(w http.ResponseWriter, r *http.Request) {
	if err := s.boards.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
