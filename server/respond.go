package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/TFMV/dollargraph/canvas"
	"github.com/TFMV/dollargraph/ingest"
	"github.com/TFMV/dollargraph/models"
	"github.com/TFMV/dollargraph/pathfind"
	"github.com/TFMV/dollargraph/physics"
	"github.com/TFMV/dollargraph/render"
	"github.com/TFMV/dollargraph/session"
	"github.com/TFMV/dollargraph/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// maxBodySize bounds request bodies, imported boards included
const maxBodySize = 1 << 20

var validate = validator.New()

// errorResponse is the body of every failed request
type errorResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, errorResponse{Error: true, Message: message, Code: status})
}

// respondErr maps a domain error to its status code
func (s *Server) respondErr(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	s.respondError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrVertexNotFound),
		errors.Is(err, models.ErrNotAdjacent),
		errors.Is(err, pathfind.ErrVertexNotFound),
		errors.Is(err, pathfind.ErrNoPath),
		errors.Is(err, store.ErrBoardNotFound):
		return http.StatusNotFound

	case errors.Is(err, models.ErrDuplicateEdge),
		errors.Is(err, models.ErrDuplicateVertex),
		errors.Is(err, session.ErrModeUnavailable),
		errors.Is(err, canvas.ErrTooClose),
		errors.Is(err, canvas.ErrEdgeBlocked):
		return http.StatusConflict

	case errors.Is(err, models.ErrSelfLoop),
		errors.Is(err, models.ErrNegativeWeight),
		errors.Is(err, models.ErrInvalidVertexID),
		errors.Is(err, pathfind.ErrNegativeWeight),
		errors.Is(err, canvas.ErrOutOfBounds):
		return http.StatusUnprocessableEntity

	case errors.Is(err, session.ErrUnknownMode),
		errors.Is(err, ingest.ErrUnsupportedFormat),
		errors.Is(err, render.ErrUnsupportedFormat),
		errors.Is(err, physics.ErrUnknownLayout),
		errors.Is(err, store.ErrMissingID),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

var errBadRequest = errors.New("bad request")

// decode reads a JSON body into dst and checks its validation tags
func decode(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	body := http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", errBadRequest, err)
	}
	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %s", errBadRequest, formatValidationError(err))
	}
	return nil
}

func formatValidationError(err error) string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err.Error()
	}
	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		field := strings.ToLower(e.Field())
		switch e.Tag() {
		case "required":
			messages = append(messages, fmt.Sprintf("%s is required", field))
		case "oneof":
			messages = append(messages, fmt.Sprintf("%s must be one of: %s", field, e.Param()))
		case "nefield":
			messages = append(messages, fmt.Sprintf("%s must differ from %s", field, strings.ToLower(e.Param())))
		default:
			messages = append(messages, fmt.Sprintf("%s is invalid", field))
		}
	}
	return "validation error: " + strings.Join(messages, "; ")
}

// idParam reads a vertex id from the route
func idParam(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid vertex id %q", errBadRequest, raw)
	}
	return id, nil
}

func queryInt(r *http.Request, name string) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, fmt.Errorf("%w: %s is required", errBadRequest, name)
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s %q", errBadRequest, name, raw)
	}
	return v, nil
}

func queryFloat(r *http.Request, name string) (float64, error) {
	raw := r.URL.Query().Get(name)
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s %q", errBadRequest, name, raw)
	}
	return v, nil
}
