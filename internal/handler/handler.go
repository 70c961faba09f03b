// Package handler exposes the assessment engine over HTTP/JSON.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pavelanni/mcqengine/internal/apperr"
	"github.com/pavelanni/mcqengine/internal/assessment"
	appI18n "github.com/pavelanni/mcqengine/internal/i18n"
	"github.com/pavelanni/mcqengine/internal/model"
	"github.com/pavelanni/mcqengine/internal/store"
	"github.com/pavelanni/mcqengine/internal/validate"
)

// Config holds the tunables of the HTTP layer.
type Config struct {
	RetakePolicy   model.RetakePolicy
	RequestTimeout time.Duration
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store      *store.Store
	registry   *assessment.Registry
	resolver   *assessment.Resolver
	catalog    *assessment.Catalog
	grader     *assessment.Grader
	aggregator *assessment.Aggregator
	validator  *validate.Validator
	config     Config
}

// New creates a Handler. announcer may be nil to skip test announcements.
func New(s *store.Store, announcer assessment.Announcer, cfg Config) (*Handler, error) {
	grader, err := assessment.NewGrader(s, cfg.RetakePolicy)
	if err != nil {
		return nil, err
	}
	return &Handler{
		store:      s,
		registry:   assessment.NewRegistry(s),
		resolver:   assessment.NewResolver(s),
		catalog:    assessment.NewCatalog(s, announcer),
		grader:     grader,
		aggregator: assessment.NewAggregator(s),
		validator:  validate.New(),
		config:     cfg,
	}, nil
}

// Router builds the complete HTTP handler with middleware.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if h.config.RequestTimeout > 0 {
		r.Use(middleware.Timeout(h.config.RequestTimeout))
	}
	r.Use(appI18n.Middleware)
	h.Routes(r)
	return r
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, apperr.NotFound("no route for %s %s", r.Method, r.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: errorBody{
			Code:    "method_not_allowed",
			Message: http.StatusText(http.StatusMethodNotAllowed),
		}})
	})

	r.Get("/healthz", h.handleHealth)

	r.Route("/institutions/{institutionID}", func(r chi.Router) {
		r.Get("/batches", h.handleListInstitutionBatches)
		r.Post("/batches", h.handleCreateBatch)
		r.Post("/batches/{batchCode}/students", h.handleInstitutionAddStudents)
		r.Get("/announcements", h.handleListAnnouncements)

		r.Get("/tests", h.handleListInstitutionTests)
		r.Post("/tests", h.handleCreateTest)
		r.Put("/tests/{testID}/assign", h.handleAssign)
		r.Delete("/tests/{testID}", h.handleDeleteTest)
		r.Get("/tests/{testID}/results", h.handleInstitutionResults)
		r.Get("/students/{studentID}/tests", h.handleListStudentTests)
	})

	r.Route("/faculty/{facultyID}", func(r chi.Router) {
		r.Get("/batches", h.handleListFacultyBatches)
		r.Post("/batches/{batchCode}/assign", h.handleFacultyAddStudents)
		r.Get("/tests", h.handleListFacultyTests)
		r.Get("/tests/{testID}/results", h.handleFacultyResults)
	})

	r.Route("/students/{studentID}", func(r chi.Router) {
		r.Get("/tests/{testID}", h.handleGetStudentTest)
		r.Post("/tests/{testID}/submit", h.handleSubmit)
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		slog.Error("health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": appI18n.T(r.Context(), "StatusOK")})
}

type errorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Detail  string            `json:"detail,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

var messageIDs = map[apperr.Kind]string{
	apperr.KindValidation:        "ErrValidation",
	apperr.KindConflict:          "ErrConflict",
	apperr.KindNotFound:          "ErrNotFound",
	apperr.KindForbidden:         "ErrForbiddenCrossTenant",
	apperr.KindInvalidIdentifier: "ErrInvalidIdentifier",
	apperr.KindEmptyParticipants: "ErrEmptyParticipants",
}

// writeError maps err to its status and a localized body. Internal errors
// are logged and their text is not returned.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	status := apperr.Status(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(ctx),
			"error", err,
		)
		writeJSON(w, status, errorResponse{Error: errorBody{
			Code:    "internal",
			Message: appI18n.T(ctx, "ErrInternal"),
		}})
		return
	}

	kind := apperr.KindOf(err)
	body := errorBody{
		Code:    string(kind),
		Message: appI18n.T(ctx, messageIDs[kind]),
		Detail:  err.Error(),
	}
	var ae *apperr.Error
	if errors.As(err, &ae) && len(ae.Fields) > 0 {
		body.Fields = ae.Fields
		body.Message += " " + appI18n.Tp(ctx, "ErrInvalidFields", len(ae.Fields))
	}
	slog.Debug("request rejected", "path", r.URL.Path, "code", kind, "error", err)
	writeJSON(w, status, errorResponse{Error: body})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}
