// Package mcp exposes an agent's tool registry as an MCP server, so any
// MCP-speaking LLM host can drive the conversation tools over stdio or SSE.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/parley-ai/parley"
	"github.com/parley-ai/parley/internal/logging"
)

// Server wraps one agent and exposes it as an MCP server.
type Server struct {
	agent     parley.Agent
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the diagnostics logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates an MCP server for the given agent.
func NewServer(agent parley.Agent, opts ...Option) *Server {
	s := &Server{
		agent:     agent,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("parley-"+agent.Name(), parley.Version),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr, "agent", s.agent.Name())
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
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
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	for _, tool := range s.agent.Registry().Tools() {
		rawSchema := json.RawMessage(`{"type":"object","properties":{}}`)
		if tool.Schema != nil {
			data, err := json.Marshal(tool.Schema)
			if err != nil {
				s.logger.Error("failed to marshal tool schema", "tool", tool.Name, "err", err)
				continue
			}
			rawSchema = data
		}

		name := tool.Name
		mcpTool := mcp.NewToolWithRawSchema(name, tool.Description, rawSchema)
		s.mcpServer.AddTool(mcpTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()
			result, err := s.agent.Registry().Dispatch(ctx, name, args)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("%s failed: %v", name, err)), nil
			}
			return mcp.NewToolResultText(result), nil
		})
	}
}

func (s *Server) registerResources() {
	uri := fmt.Sprintf("parley://%s/instructions", s.agent.Name())
	s.mcpServer.AddResource(mcp.NewResource(uri, "Agent Instructions",
		mcp.WithMIMEType("text/plain"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      uri,
				MIMEType: "text/plain",
				Text:     s.agent.Instructions(),
			},
		}, nil
	})
}
