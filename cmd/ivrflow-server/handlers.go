package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/flowgraph/ivrflow/internal/app/dto"
	"github.com/flowgraph/ivrflow/internal/app/services"
	"github.com/flowgraph/ivrflow/internal/app/usecases"
	"github.com/flowgraph/ivrflow/internal/core/catalog"
	"github.com/flowgraph/ivrflow/internal/core/flow"
	"github.com/flowgraph/ivrflow/internal/infrastructure/metrics"
	"github.com/flowgraph/ivrflow/pkg/validation"
)

// server exposes editing sessions and saved flows over HTTP
type server struct {
	sessions *services.SessionManager
	flows    usecases.FlowRepository
	validate *validation.Middleware
	logger   *slog.Logger
}

func newServer(sessions *services.SessionManager, flows usecases.FlowRepository, logger *slog.Logger) *server {
	return &server{
		sessions: sessions,
		flows:    flows,
		validate: validation.NewMiddleware(nil),
		logger:   logger,
	}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("POST /sessions", s.validate.ValidateJSON(dto.CreateSessionRequest{})(http.HandlerFunc(s.createSession)))
	mux.HandleFunc("GET /sessions/{id}", s.getSession)
	mux.HandleFunc("DELETE /sessions/{id}", s.closeSession)
	mux.Handle("POST /sessions/{id}/nodes", s.validate.ValidateJSON(dto.PlaceNodeRequest{})(http.HandlerFunc(s.placeNode)))
	mux.HandleFunc("DELETE /sessions/{id}/nodes/{node}", s.removeNode)
	mux.Handle("PUT /sessions/{id}/nodes/{node}/config", s.validate.ValidateJSON(dto.SaveConfigRequest{})(http.HandlerFunc(s.saveConfig)))
	mux.Handle("POST /sessions/{id}/edges", s.validate.ValidateJSON(dto.ConnectRequest{})(http.HandlerFunc(s.connect)))
	mux.HandleFunc("DELETE /sessions/{id}/edges/{edge}", s.removeEdge)
	mux.Handle("POST /sessions/{id}/finalize", s.validate.ValidateJSON(dto.FinalizeRequest{})(http.HandlerFunc(s.finalize)))

	mux.HandleFunc("GET /flows", s.listFlows)
	mux.HandleFunc("GET /flows/{id}", s.getFlow)
	mux.HandleFunc("DELETE /flows/{id}", s.deleteFlow)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	mux.Handle("/debug/pprof/", http.DefaultServeMux)

	return s.logRequests(mux)
}

func (s *server) createSession(w http.ResponseWriter, r *http.Request) {
	req, _ := validation.Body[dto.CreateSessionRequest](r)
	resp, err := s.sessions.Create(r.Context(), *req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *server) getSession(w http.ResponseWriter, r *http.Request) {
	resp, err := s.sessions.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) closeSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Close(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) placeNode(w http.ResponseWriter, r *http.Request) {
	req, _ := validation.Body[dto.PlaceNodeRequest](r)
	var n flow.GraphNode
	err := s.sessions.Do(r.Context(), r.PathValue("id"), func(fc *usecases.FlowController) error {
		var err error
		n, err = fc.PlaceCatalogItem(req.Module, req.ExternalID, req.Position)
		return err
	})
	s.writeNode(w, r, http.StatusCreated, n, err)
}

func (s *server) removeNode(w http.ResponseWriter, r *http.Request) {
	err := s.sessions.Do(r.Context(), r.PathValue("id"), func(fc *usecases.FlowController) error {
		return fc.RemoveNode(flow.NodeID(r.PathValue("node")))
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) saveConfig(w http.ResponseWriter, r *http.Request) {
	req, _ := validation.Body[dto.SaveConfigRequest](r)
	var n flow.GraphNode
	err := s.sessions.Do(r.Context(), r.PathValue("id"), func(fc *usecases.FlowController) error {
		var err error
		n, err = fc.SaveNodeConfig(flow.NodeID(r.PathValue("node")), req.Data)
		return err
	})
	s.writeNode(w, r, http.StatusOK, n, err)
}

func (s *server) connect(w http.ResponseWriter, r *http.Request) {
	req, _ := validation.Body[dto.ConnectRequest](r)
	var e flow.Edge
	err := s.sessions.Do(r.Context(), r.PathValue("id"), func(fc *usecases.FlowController) error {
		var err error
		e, err = fc.Connect(req.Source, req.Target)
		return err
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (s *server) removeEdge(w http.ResponseWriter, r *http.Request) {
	err := s.sessions.Do(r.Context(), r.PathValue("id"), func(fc *usecases.FlowController) error {
		return fc.RemoveEdge(flow.EdgeID(r.PathValue("edge")))
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) finalize(w http.ResponseWriter, r *http.Request) {
	req, _ := validation.Body[dto.FinalizeRequest](r)
	resp, err := s.sessions.Finalize(r.Context(), r.PathValue("id"), req.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) listFlows(w http.ResponseWriter, r *http.Request) {
	flows, err := s.flows.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, flows)
}

func (s *server) getFlow(w http.ResponseWriter, r *http.Request) {
	rec, err := s.flows.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *server) deleteFlow(w http.ResponseWriter, r *http.Request) {
	if err := s.flows.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) writeNode(w http.ResponseWriter, r *http.Request, status int, n flow.GraphNode, err error) {
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	payload, err := dto.NewNodePayload(n)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, status, payload)
}

// writeError maps violations to 422, unknown ids to 404 and malformed
// input to 400. Anything else is logged and reported as a 500.
func (s *server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if v, ok := validation.AsViolation(err); ok {
		resp := dto.ErrorResponse{
			Code:    "violation",
			Message: v.Message,
			Kind:    string(v.Kind),
			Rule:    string(v.Rule),
			NodeID:  string(v.NodeID),
		}
		if len(v.Fields) > 0 {
			resp.Fields = v.Fields
		}
		writeJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}

	status, code := errorStatus(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, status, dto.ErrorResponse{Code: code, Message: "internal error"})
		return
	}
	writeJSON(w, status, dto.ErrorResponse{Code: code, Message: err.Error()})
}

func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, dto.ErrSessionNotFound),
		errors.Is(err, dto.ErrFlowNotFound),
		errors.Is(err, flow.ErrNodeNotFound),
		errors.Is(err, flow.ErrEdgeNotFound),
		errors.Is(err, catalog.ErrExperienceNotFound),
		errors.Is(err, catalog.ErrCategoryNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, flow.ErrStartNodeImmutable),
		errors.Is(err, flow.ErrInvalidModule),
		errors.Is(err, flow.ErrConfigTypeMismatch),
		errors.Is(err, dto.ErrInvalidConfig),
		errors.Is(err, dto.ErrUnknownNodeType),
		errors.Is(err, dto.ErrMissingFlowID),
		errors.Is(err, dto.ErrMissingSessionID),
		errors.Is(err, validation.ErrMalformedDocument):
		return http.StatusBadRequest, "bad_request"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start))
	})
}
