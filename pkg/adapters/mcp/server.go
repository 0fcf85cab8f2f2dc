package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Himanshu040604/PregelFlow"
	"github.com/Himanshu040604/PregelFlow/internal/logging"
	presentation "github.com/Himanshu040604/PregelFlow/internal/presentation/graph"
	"github.com/Himanshu040604/PregelFlow/pkg/domain"
	"github.com/Himanshu040604/PregelFlow/pkg/graph"
	"github.com/Himanshu040604/PregelFlow/pkg/runner"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// GraphURI is the resource holding the Mermaid diagram of the graph.
const GraphURI = "pregelflow://graph"

// ResearchResponse is the structured result of research_topic.
type ResearchResponse struct {
	SessionID string `json:"session_id" jsonschema_description:"Session the turn ran in"`
	RunID     string `json:"run_id" jsonschema_description:"Identifier of the run"`
	Sequence  int64  `json:"seq" jsonschema_description:"Sequence number of the final checkpoint"`
	Report    string `json:"report" jsonschema_description:"The synthesized intelligence report"`
}

// HistoryResponse is the structured result of session_history.
type HistoryResponse struct {
	SessionID   string              `json:"session_id"`
	Checkpoints []CheckpointSummary `json:"checkpoints" jsonschema_description:"Checkpoints oldest first"`
}

// CheckpointSummary leaves out the state record.
type CheckpointSummary struct {
	Sequence  int64    `json:"seq"`
	RunID     string   `json:"run_id"`
	Status    string   `json:"status"`
	Wavefront int      `json:"wavefront"`
	Completed []string `json:"completed"`
}

type researchArgs struct {
	Topic     string `json:"topic"`
	SessionID string `json:"session_id"`
}

type historyArgs struct {
	SessionID string `json:"session_id"`
}

// Engine defines the engine surface exposed as MCP tools.
type Engine interface {
	Invoke(ctx context.Context, sessionID string, seed domain.Update) (*pregelflow.Result, error)
	Latest(ctx context.Context, sessionID string) (*domain.Checkpoint, error)
	History(ctx context.Context, sessionID string) ([]*domain.Checkpoint, error)
	Graph() *graph.Graph
}

// Server wraps the engine and exposes it as an MCP Server.
type Server struct {
	engine         Engine
	inputField     string
	defaultSession string
	logger         *slog.Logger
	mcpServer      *server.MCPServer
}

// Option configures the server.
type Option func(*Server)

// WithInputField names the state field research_topic seeds.
func WithInputField(name string) Option {
	return func(s *Server) { s.inputField = name }
}

// WithDefaultSession is used when a tool call leaves session_id out.
func WithDefaultSession(id string) Option {
	return func(s *Server) { s.defaultSession = id }
}

// WithLogger sets the server logger. Logs must not go to stdout, which
// carries the protocol.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// NewServer creates a new MCP Server instance.
func NewServer(engine Engine, opts ...Option) *Server {
	s := &Server{
		engine:         engine,
		inputField:     "topic",
		defaultSession: domain.DefaultSessionID,
		mcpServer:      server.NewMCPServer("pregelflow-mcp", strings.TrimSpace(pregelflow.Version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.NewNop()
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer exposes the underlying server, e.g. for in-process transports.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the SSE transport on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		// Create a timeout context for the graceful shutdown
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	// TOOL: research_topic
	researchTool := mcp.NewTool("research_topic",
		mcp.WithDescription("Run one research turn: fetch weather, news and market data for a topic and return the synthesized report."),
		mcp.WithString("topic", mcp.Required(), mcp.Description("City, company, ticker or subject to research")),
		mcp.WithString("session_id", mcp.Description("Session to run in (optional)")),
		mcp.WithOutputSchema[ResearchResponse](),
	)
	s.mcpServer.AddTool(researchTool, mcp.NewStructuredToolHandler(s.handleResearch))

	// TOOL: session_history
	historyTool := mcp.NewTool("session_history",
		mcp.WithDescription("List the checkpoints committed for a session."),
		mcp.WithString("session_id", mcp.Description("Session to inspect (optional)")),
		mcp.WithOutputSchema[HistoryResponse](),
	)
	s.mcpServer.AddTool(historyTool, mcp.NewStructuredToolHandler(s.handleHistory))

	// TOOL: get_graph
	s.mcpServer.AddTool(mcp.NewTool("get_graph",
		mcp.WithDescription("Get the graph as a Mermaid flowchart. With session_id, the latest checkpoint is overlaid."),
		mcp.WithString("session_id", mcp.Description("Session whose progress to overlay (optional)")),
	), s.handleGraph)
}

func (s *Server) sessionOr(id string) string {
	if id == "" {
		return s.defaultSession
	}
	return id
}

func (s *Server) handleResearch(ctx context.Context, _ mcp.CallToolRequest, args researchArgs) (ResearchResponse, error) {
	topic, err := runner.SanitizeInput(args.Topic, runner.DefaultMaxInputSize)
	if err != nil {
		s.logger.Warn("MCP research_topic: Input rejected", "error", err, "size", len(args.Topic))
		return ResearchResponse{}, fmt.Errorf("input rejected: %w", err)
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return ResearchResponse{}, errors.New("topic is required")
	}

	sessionID := s.sessionOr(args.SessionID)
	res, err := s.engine.Invoke(ctx, sessionID, domain.Update{s.inputField: topic})
	if err != nil {
		s.logger.Error("MCP research_topic failed", "session_id", sessionID, "error", err)
		return ResearchResponse{}, fmt.Errorf("research failed: %w", err)
	}
	return ResearchResponse{
		SessionID: sessionID,
		RunID:     res.Checkpoint.RunID,
		Sequence:  res.Checkpoint.Sequence,
		Report:    res.Output,
	}, nil
}

func (s *Server) handleHistory(ctx context.Context, _ mcp.CallToolRequest, args historyArgs) (HistoryResponse, error) {
	sessionID := s.sessionOr(args.SessionID)
	history, err := s.engine.History(ctx, sessionID)
	if err != nil {
		return HistoryResponse{}, fmt.Errorf("history failed: %w", err)
	}
	resp := HistoryResponse{SessionID: sessionID, Checkpoints: make([]CheckpointSummary, len(history))}
	for i, cp := range history {
		resp.Checkpoints[i] = CheckpointSummary{
			Sequence:  cp.Sequence,
			RunID:     cp.RunID,
			Status:    string(cp.Status),
			Wavefront: cp.Wavefront,
			Completed: cp.Completed,
		}
	}
	return resp, nil
}

func (s *Server) handleGraph(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var overlay *presentation.GraphOverlay
	if id := request.GetString("session_id", ""); id != "" {
		cp, err := s.engine.Latest(ctx, id)
		switch {
		case err == nil:
			overlay = presentation.OverlayFor(s.engine.Graph(), cp)
		case errors.Is(err, domain.ErrNoHistory):
		default:
			return mcp.NewToolResultError(fmt.Sprintf("load session failed: %v", err)), nil
		}
	}
	return mcp.NewToolResultText(presentation.GenerateMermaid(s.engine.Graph(), overlay)), nil
}

func (s *Server) registerResources() {
	// EXPOSE: pregelflow://graph
	s.mcpServer.AddResource(mcp.NewResource(GraphURI, "Research Graph",
		mcp.WithMIMEType("text/vnd.mermaid"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      GraphURI,
				MIMEType: "text/vnd.mermaid",
				Text:     presentation.GenerateMermaid(s.engine.Graph(), nil),
			},
		}, nil
	})
}

// HandleMessage processes one raw JSON-RPC message, for in-process use.
func (s *Server) HandleMessage(ctx context.Context, msg []byte) ([]byte, error) {
	reply := s.mcpServer.HandleMessage(ctx, json.RawMessage(msg))
	if reply == nil {
		return nil, nil
	}
	return json.Marshal(reply)
}
