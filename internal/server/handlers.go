package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/ringside-dev/ringside/internal/app/capacity"
	"github.com/ringside-dev/ringside/internal/app/finish"
	"github.com/ringside-dev/ringside/internal/app/kill"
	"github.com/ringside-dev/ringside/internal/app/list"
	"github.com/ringside-dev/ringside/internal/app/logs"
	"github.com/ringside-dev/ringside/internal/app/start"
	"github.com/ringside-dev/ringside/internal/app/status"
	"github.com/ringside-dev/ringside/internal/model"
)

// validQueryID limits IDs to characters safe for file names and URLs. The
// start route creates the query log under the ID, everything else treats it
// as an opaque key.
var validQueryID = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

type coordinatorQueryRequest struct {
	CommitHash        string `json:"commit_hash"`
	Size              int    `json:"size"`
	MaxBreakdownKey   int    `json:"max_breakdown_key"`
	MaxTriggerValue   int    `json:"max_trigger_value"`
	PerUserCreditCap  int    `json:"per_user_credit_cap"`
	MaliciousSecurity bool   `json:"malicious_security"`
}

type helperQueryRequest struct {
	CommitHash        string `json:"commit_hash"`
	GateType          string `json:"gate_type"`
	StallDetection    bool   `json:"stall_detection"`
	MultiThreading    bool   `json:"multi_threading"`
	DisableMetrics    bool   `json:"disable_metrics"`
	RevealAggregation bool   `json:"reveal_aggregation"`
}

type demoQueryRequest struct {
	Lines          int `json:"lines"`
	RuntimeSeconds int `json:"runtime_seconds"`
}

type queryStatusResponse struct {
	Status         model.Status `json:"status"`
	StartedAt      *time.Time   `json:"started_at,omitempty"`
	EndedAt        *time.Time   `json:"ended_at,omitempty"`
	CPUPercent     float64      `json:"cpu_percent,omitempty"`
	MemoryRSSBytes uint64       `json:"memory_rss_bytes,omitempty"`
}

type startResponse struct {
	QueryID string `json:"query_id"`
}

type signalResponse struct {
	QueryID string       `json:"query_id"`
	Status  model.Status `json:"status,omitempty"`
}

type runningQueriesResponse struct {
	RunningQueries []string `json:"running_queries"`
}

type capacityResponse struct {
	CapacityAvailable bool `json:"capacity_available"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// startQuery admits a new query: POST /api/v1/queries/{kind}/{queryID}.
func (s *Server) startQuery(w http.ResponseWriter, r *http.Request) {
	queryID := r.PathValue("queryID")
	if !validQueryID.MatchString(queryID) {
		s.writeError(w, fmt.Errorf("query ID %q is not valid: %w", queryID, model.ErrNotValid))
		return
	}

	req := start.Request{
		QueryID: queryID,
		Kind:    model.QueryKind(r.PathValue("kind")),
	}

	switch req.Kind {
	case model.QueryKindIPACoordinator:
		var body coordinatorQueryRequest
		if !s.decodeBody(w, r, &body) {
			return
		}
		req.Coordinator = &model.CoordinatorParams{
			CommitHash:        body.CommitHash,
			Size:              body.Size,
			MaxBreakdownKey:   body.MaxBreakdownKey,
			MaxTriggerValue:   body.MaxTriggerValue,
			PerUserCreditCap:  body.PerUserCreditCap,
			MaliciousSecurity: body.MaliciousSecurity,
		}
	case model.QueryKindIPAHelper:
		var body helperQueryRequest
		if !s.decodeBody(w, r, &body) {
			return
		}
		req.Helper = &model.HelperParams{
			CommitHash:        body.CommitHash,
			GateType:          model.GateType(body.GateType),
			StallDetection:    body.StallDetection,
			MultiThreading:    body.MultiThreading,
			DisableMetrics:    body.DisableMetrics,
			RevealAggregation: body.RevealAggregation,
		}
	case model.QueryKindDemoLog:
		var body demoQueryRequest
		if !s.decodeBody(w, r, &body) {
			return
		}
		req.Demo = &model.DemoParams{
			Lines:   body.Lines,
			Runtime: time.Duration(body.RuntimeSeconds) * time.Second,
		}
	default:
		s.writeError(w, fmt.Errorf("query kind %q is not supported: %w", req.Kind, model.ErrNotValid))
		return
	}

	resp, err := s.start.Run(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, startResponse{QueryID: resp.QueryID})
}

// queryStatus answers a status lookup: GET /api/v1/queries/{queryID}/status.
// Unknown IDs answer 404 with a regular status payload so pollers can decode
// every answer the same way.
func (s *Server) queryStatus(w http.ResponseWriter, r *http.Request) {
	resp, err := s.status.Run(r.Context(), status.Request{QueryID: r.PathValue("queryID")})
	if err != nil {
		s.writeError(w, err)
		return
	}

	code := http.StatusOK
	if resp.Event.Status == model.StatusNotFound {
		code = http.StatusNotFound
	}

	writeJSON(w, code, queryStatusResponse{
		Status:         resp.Event.Status,
		StartedAt:      resp.Event.StartedAt,
		EndedAt:        resp.Event.EndedAt,
		CPUPercent:     resp.Usage.CPUPercent,
		MemoryRSSBytes: resp.Usage.RSSBytes,
	})
}

// queryLog streams the reformatted query log: GET /api/v1/queries/{queryID}/log.
func (s *Server) queryLog(w http.ResponseWriter, r *http.Request) {
	queryID := r.PathValue("queryID")

	resp, err := s.logs.Run(r.Context(), logs.Request{QueryID: queryID})
	if err != nil {
		s.writeError(w, err)
		return
	}
	defer resp.Log.Close()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if _, err := io.Copy(w, resp.Log); err != nil {
		s.logger.Warningf("Log stream of query %s interrupted: %s", queryID, err)
	}
}

// killQuery stops a running query: POST /api/v1/queries/{queryID}/kill.
func (s *Server) killQuery(w http.ResponseWriter, r *http.Request) {
	queryID := r.PathValue("queryID")

	if err := s.kill.Run(r.Context(), kill.Request{QueryID: queryID}); err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, signalResponse{QueryID: queryID, Status: model.StatusKilled})
}

// finishQuery ends a running query gracefully: POST /api/v1/queries/{queryID}/finish.
func (s *Server) finishQuery(w http.ResponseWriter, r *http.Request) {
	queryID := r.PathValue("queryID")

	if err := s.finish.Run(r.Context(), finish.Request{QueryID: queryID}); err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, signalResponse{QueryID: queryID})
}

// runningQueries lists the IDs running on this node: GET /api/v1/queries.
func (s *Server) runningQueries(w http.ResponseWriter, r *http.Request) {
	queries, err := s.list.Run(r.Context(), list.Request{})
	if err != nil {
		s.writeError(w, err)
		return
	}

	ids := make([]string, 0, len(queries))
	for _, q := range queries {
		ids = append(ids, q.ID)
	}

	writeJSON(w, http.StatusOK, runningQueriesResponse{RunningQueries: ids})
}

// capacityAvailable answers the admission probe: GET /api/v1/capacity.
func (s *Server) capacityAvailable(w http.ResponseWriter, r *http.Request) {
	resp, err := s.capacity.Run(r.Context(), capacity.Request{})
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, capacityResponse{CapacityAvailable: resp.Available})
}

// healthz is the liveness probe.
func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, out any) bool {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("could not decode request body: %s", err)})
		return false
	}
	return true
}

// writeError maps the model sentinel errors to their API codes. Everything
// unmapped answers 500 with the detail kept out of the response.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var code int
	switch {
	case errors.Is(err, model.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, model.ErrAlreadyExists):
		code = http.StatusConflict
	case errors.Is(err, model.ErrAtCapacity):
		code = http.StatusServiceUnavailable
	case errors.Is(err, model.ErrWrongRole):
		code = http.StatusForbidden
	case errors.Is(err, model.ErrNotValid):
		code = http.StatusUnprocessableEntity
	default:
		s.logger.Errorf("Unhandled API error: %s", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}

	writeJSON(w, code, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
