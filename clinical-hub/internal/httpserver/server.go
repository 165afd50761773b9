package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/herdline/reprohub/clinical-hub/internal/models"
	"github.com/herdline/reprohub/clinical-hub/internal/store"
	"github.com/herdline/reprohub/clinical-hub/internal/workflow"
)

type Server struct {
	engine  *workflow.Engine
	logger  *zap.Logger
	metrics http.Handler
	now     func() time.Time
}

// New builds the HTTP surface of the engine. metrics may be nil, in which
// case /metrics is not mounted.
func New(engine *workflow.Engine, logger *zap.Logger, metrics http.Handler) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{engine: engine, logger: logger, metrics: metrics, now: time.Now}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/workflows", func(r chi.Router) {
		r.Post("/assign", s.handleAssign)
		r.Post("/bulk", s.handleBulk)
		r.Get("/decisions", s.handleDecisions)
		r.Get("/decisions/{id}/status", s.handleStatus)
		r.Get("/animals/{animalId}/decisions", s.handleAnimalDecisions)
		r.Get("/actions", s.handleActions)
		r.Get("/export", s.handleExport)
	})

	return r
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("requestId", middleware.GetReqID(r.Context())))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	status := map[string]interface{}{
		"ok":   true,
		"time": time.Now().UTC(),
	}
	if err := s.engine.Ping(ctx); err != nil {
		status["ok"] = false
		status["db"] = err.Error()
		respondJSON(w, http.StatusServiceUnavailable, status)
		return
	}
	respondJSON(w, http.StatusOK, status)
}

func (s *Server) handleAssign(w http.ResponseWriter, r *http.Request) {
	var req models.DecisionInput
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := s.engine.AssignWorkflow(r.Context(), req)
	if err != nil {
		if result.Decision.ID != uuid.Nil {
			// the decision is recorded; report what was dispatched before the failure
			respondJSON(w, http.StatusInternalServerError, map[string]interface{}{
				"error":    err.Error(),
				"decision": result.Decision,
				"actions":  result.Actions,
			})
			return
		}
		s.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, result)
}

func (s *Server) handleBulk(w http.ResponseWriter, r *http.Request) {
	var req models.BulkWorkflowAssignment
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := s.engine.AssignBulkWorkflow(r.Context(), req)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	status := http.StatusCreated
	if len(result.Failures) > 0 {
		status = http.StatusMultiStatus
	}
	respondJSON(w, status, result)
}

func (s *Server) handleDecisions(w http.ResponseWriter, r *http.Request) {
	decisions, err := s.filteredDecisions(r)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, decisions)
}

// filteredDecisions applies the search, status, decisionType, animalId and
// range query parameters.
func (s *Server) filteredDecisions(r *http.Request) ([]models.WorkflowDecision, error) {
	q := r.URL.Query()
	since, err := workflow.SinceForRange(s.now(), q.Get("range"))
	if err != nil {
		return nil, err
	}
	filter := store.DecisionFilter{
		Search:       strings.TrimSpace(q.Get("search")),
		Status:       models.DecisionStatus(strings.ToUpper(q.Get("status"))),
		DecisionType: models.DecisionType(strings.ToUpper(q.Get("decisionType"))),
		AnimalID:     q.Get("animalId"),
		Since:        since,
	}
	if filter == (store.DecisionFilter{}) {
		return s.engine.GetDecisionHistory(r.Context())
	}
	return s.engine.SearchDecisions(r.Context(), filter)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid decision id")
		return
	}
	status, err := s.engine.GetWorkflowStatus(r.Context(), id)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, status)
}

func (s *Server) handleAnimalDecisions(w http.ResponseWriter, r *http.Request) {
	decisions, err := s.engine.GetDecisionsByAnimal(r.Context(), chi.URLParam(r, "animalId"))
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, decisions)
}

func (s *Server) handleActions(w http.ResponseWriter, r *http.Request) {
	actions, err := s.engine.GetAutomatedActions(r.Context())
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, actions)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var (
		buf      bytes.Buffer
		filename string
	)
	switch kind := r.URL.Query().Get("kind"); kind {
	case "", "decisions":
		decisions, err := s.filteredDecisions(r)
		if err != nil {
			s.respondServiceError(w, err)
			return
		}
		if err := workflow.ExportDecisionsCSV(&buf, decisions); err != nil {
			s.respondServiceError(w, err)
			return
		}
		filename = "clinical-decisions"
	case "actions":
		actions, err := s.engine.GetAutomatedActions(r.Context())
		if err != nil {
			s.respondServiceError(w, err)
			return
		}
		if err := workflow.ExportActionsCSV(&buf, actions); err != nil {
			s.respondServiceError(w, err)
			return
		}
		filename = "automated-actions"
	default:
		respondError(w, http.StatusBadRequest, "kind must be decisions or actions")
		return
	}
	filename += "-" + s.now().UTC().Format("2006-01-02") + ".csv"
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, workflow.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	default:
		s.logger.Error("request failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
