package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Himanshu040604/PregelFlow"
	"github.com/Himanshu040604/PregelFlow/internal/logging"
	"github.com/Himanshu040604/PregelFlow/pkg/domain"
	"github.com/Himanshu040604/PregelFlow/pkg/graph"
	"github.com/Himanshu040604/PregelFlow/pkg/merge"
	"github.com/Himanshu040604/PregelFlow/pkg/runner"
	"github.com/go-chi/chi/v5"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Engine is the part of pregelflow.Engine the HTTP surface drives.
type Engine interface {
	Invoke(ctx context.Context, sessionID string, seed domain.Update) (*pregelflow.Result, error)
	Resume(ctx context.Context, sessionID string) (*pregelflow.Result, error)
	Pending(ctx context.Context, sessionID string) (bool, error)
	Latest(ctx context.Context, sessionID string) (*domain.Checkpoint, error)
	History(ctx context.Context, sessionID string) ([]*domain.Checkpoint, error)
	Sessions(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, sessionID string) error
	Graph() *graph.Graph
	Output(state map[string]any) string
}

var _ Engine = (*pregelflow.Engine)(nil)

// Server serves the REST and SSE routes for one engine.
type Server struct {
	Engine  Engine
	Streams *StreamManager
	Metrics http.Handler
	Logger  *slog.Logger
}

// Option configures the handler.
type Option func(*Server)

// WithStreams shares a StreamManager whose Hooks are registered on the
// engine, so that /sessions/{id}/events sees its commits.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) { s.Streams = sm }
}

// WithMetrics mounts h on GET /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) { s.Metrics = h }
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.Logger = logger }
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine Engine, opts ...Option) http.Handler {
	s := &Server{Engine: engine}
	for _, opt := range opts {
		opt(s)
	}
	if s.Streams == nil {
		s.Streams = NewStreamManager(s.Logger)
	}
	if s.Logger == nil {
		s.Logger = logging.NewNop()
	}
	return enableCORS(s.Routes())
}

// Routes builds the chi router without middleware.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/healthz", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/graph", s.GetGraph)
	if s.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.Metrics)
	}
	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", s.ListSessions)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.GetSession)
			r.Delete("/", s.DeleteSession)
			r.Get("/checkpoints", s.ListCheckpoints)
			r.Post("/runs", s.Run)
			r.Post("/resume", s.Resume)
			r.Get("/events", s.SubscribeEvents)
		})
	})
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RunRequest is the body of POST /sessions/{id}/runs.
type RunRequest struct {
	Input map[string]any `json:"input"`
}

// CheckpointView is the wire form of a checkpoint.
type CheckpointView struct {
	SessionID string         `json:"session_id"`
	Sequence  int64          `json:"seq"`
	RunID     string         `json:"run_id"`
	Status    string         `json:"status"`
	Wavefront int            `json:"wavefront"`
	Completed []string       `json:"completed"`
	State     map[string]any `json:"state"`
	CreatedAt string         `json:"created_at"`
}

// RunResponse is returned by the run and resume routes.
type RunResponse struct {
	CheckpointView
	Output string `json:"output"`
}

// SessionResponse is returned by GET /sessions/{id}.
type SessionResponse struct {
	Latest  CheckpointView `json:"latest"`
	Pending bool           `json:"pending"`
	Output  string         `json:"output"`
}

// GraphResponse describes the compiled topology.
type GraphResponse struct {
	Fields     []FieldView `json:"fields"`
	Nodes      []NodeView  `json:"nodes"`
	Edges      []EdgeView  `json:"edges"`
	Wavefronts [][]string  `json:"wavefronts"`
}

type FieldView struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Policy string `json:"policy"`
	Scope  string `json:"scope"`
}

type NodeView struct {
	ID       string   `json:"id"`
	Level    int      `json:"level"`
	Writes   []string `json:"writes"`
	Optional bool     `json:"optional"`
}

type EdgeView struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Run handles POST /sessions/{id}/runs.
func (s *Server) Run(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	var body RunRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	seed, err := sanitizeInput(body.Input)
	if err != nil {
		s.Logger.Warn("Run: input rejected", "session_id", sessionID, "error", err)
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	res, err := s.Engine.Invoke(r.Context(), sessionID, seed)
	if err != nil {
		s.fail(w, "Run", sessionID, err)
		return
	}
	s.writeJSON(w, http.StatusOK, RunResponse{CheckpointView: viewOf(res.Checkpoint), Output: res.Output})
}

// Resume handles POST /sessions/{id}/resume.
func (s *Server) Resume(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	res, err := s.Engine.Resume(r.Context(), sessionID)
	if err != nil {
		s.fail(w, "Resume", sessionID, err)
		return
	}
	s.writeJSON(w, http.StatusOK, RunResponse{CheckpointView: viewOf(res.Checkpoint), Output: res.Output})
}

// ListSessions handles GET /sessions.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Engine.Sessions(r.Context())
	if err != nil {
		s.fail(w, "ListSessions", "", err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	s.writeJSON(w, http.StatusOK, map[string][]string{"sessions": ids})
}

// GetSession handles GET /sessions/{id}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	cp, err := s.Engine.Latest(r.Context(), sessionID)
	if err != nil {
		s.fail(w, "GetSession", sessionID, err)
		return
	}
	s.writeJSON(w, http.StatusOK, SessionResponse{
		Latest:  viewOf(cp),
		Pending: !cp.IsComplete(),
		Output:  s.Engine.Output(cp.State),
	})
}

// ListCheckpoints handles GET /sessions/{id}/checkpoints.
func (s *Server) ListCheckpoints(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	history, err := s.Engine.History(r.Context(), sessionID)
	if err != nil {
		s.fail(w, "ListCheckpoints", sessionID, err)
		return
	}
	if len(history) == 0 {
		s.fail(w, "ListCheckpoints", sessionID, domain.ErrNoHistory)
		return
	}
	views := make([]CheckpointView, len(history))
	for i, cp := range history {
		views[i] = viewOf(cp)
	}
	s.writeJSON(w, http.StatusOK, map[string][]CheckpointView{"checkpoints": views})
}

// DeleteSession handles DELETE /sessions/{id}.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	if err := s.Engine.Delete(r.Context(), sessionID); err != nil {
		s.fail(w, "DeleteSession", sessionID, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetGraph handles the GET /graph request.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, describeGraph(s.Engine.Graph()))
}

// GetHealth handles the GET /healthz request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "pregelflow-http",
		"version": strings.TrimSpace(pregelflow.Version),
	})
}

// StatusFor maps engine errors onto HTTP status codes.
func StatusFor(err error) int {
	var me *merge.Error
	var pe *domain.PersistenceError
	var ee *domain.ExecutionError
	switch {
	case errors.Is(err, domain.ErrInvalidSessionID),
		errors.Is(err, pregelflow.ErrInvalidInput),
		errors.As(err, &me):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNoHistory):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrSequenceConflict):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &pe):
		return http.StatusServiceUnavailable
	case errors.As(err, &ee):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(w http.ResponseWriter, op, sessionID string, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		s.Logger.Error(op+" failed", "session_id", sessionID, "error", err)
	} else {
		s.Logger.Debug(op+" rejected", "session_id", sessionID, "status", status, "error", err)
	}
	s.writeError(w, status, err)
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Error("Response encode failed", "error", err)
	}
}

// -- Helpers --

// sanitizeInput applies the REPL's input policy to every string value and
// turns JSON numbers back into int64 or float64.
func sanitizeInput(in map[string]any) (domain.Update, error) {
	out := make(domain.Update, len(in))
	for k, v := range in {
		clean, err := sanitizeValue(v)
		if err != nil {
			return nil, fmt.Errorf("%w: field %q: %w", pregelflow.ErrInvalidInput, k, err)
		}
		out[k] = clean
	}
	return out, nil
}

func sanitizeValue(v any) (any, error) {
	switch t := v.(type) {
	case string:
		return runner.SanitizeInput(t, runner.DefaultMaxInputSize)
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i, nil
		}
		return t.Float64()
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			clean, err := sanitizeValue(e)
			if err != nil {
				return nil, err
			}
			out[i] = clean
		}
		return out, nil
	}
	return v, nil
}

func viewOf(cp *domain.Checkpoint) CheckpointView {
	completed := cp.Completed
	if completed == nil {
		completed = []string{}
	}
	return CheckpointView{
		SessionID: cp.SessionID,
		Sequence:  cp.Sequence,
		RunID:     cp.RunID,
		Status:    string(cp.Status),
		Wavefront: cp.Wavefront,
		Completed: completed,
		State:     cp.State,
		CreatedAt: cp.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}
}

func describeGraph(g *graph.Graph) GraphResponse {
	resp := GraphResponse{Wavefronts: g.Wavefronts()}
	for _, f := range g.Schema().Fields() {
		resp.Fields = append(resp.Fields, FieldView{
			Name:   f.Name,
			Type:   f.Type.Name(),
			Policy: f.Policy.String(),
			Scope:  f.Scope.String(),
		})
	}
	for _, n := range g.Nodes() {
		writes := n.Writes
		if writes == nil {
			writes = []string{}
		}
		resp.Nodes = append(resp.Nodes, NodeView{
			ID:       n.ID,
			Level:    g.Level(n.ID),
			Writes:   writes,
			Optional: n.Optional,
		})
	}
	for _, e := range g.Edges() {
		resp.Edges = append(resp.Edges, EdgeView{From: e.From, To: e.To})
	}
	return resp
}
