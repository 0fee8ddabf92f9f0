// Package mcp exposes the task and dispute boards to agent clients as
// Model Context Protocol tools over streamable HTTP.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/hivemind-swarm/hivemind/internal/domain/address"
	"github.com/hivemind-swarm/hivemind/internal/domain/board"
	"github.com/hivemind-swarm/hivemind/internal/domain/task"
)

// BoardReader answers board queries. *service.ReadModel implements it.
type BoardReader interface {
	Stats() board.Stats
	TaskList(status *task.Status) []task.Task
	Task(id uint64) (task.Task, error)
	Subtasks(id uint64) []task.Task
	DisputeList() []board.Case
	TaskActions(ctx context.Context, id uint64, caller address.Address) (task.Task, []task.Option, error)
}

// ServerConfig holds the listen address, advertised identity and the
// optional API key.
type ServerConfig struct {
	Addr    string
	Name    string
	Version string
	APIKey  string
	// APIKeySource, when set, replaces APIKey and is consulted per request.
	APIKeySource func() string
}

// ServerDeps are the read sides the tools query. A nil Board makes every
// tool return an error result.
type ServerDeps struct {
	Board BoardReader
}

// Server serves MCP over streamable HTTP on /mcp.
type Server struct {
	cfg        ServerConfig
	deps       ServerDeps
	mcpServer  *mcpserver.MCPServer
	httpServer *http.Server
}

// NewServer creates a server with all tools and resources registered.
func NewServer(cfg ServerConfig, deps ServerDeps) *Server {
	s := &Server{
		cfg:  cfg,
		deps: deps,
		mcpServer: mcpserver.NewMCPServer(cfg.Name, cfg.Version,
			mcpserver.WithToolCapabilities(false),
			mcpserver.WithResourceCapabilities(false, false),
			mcpserver.WithRecovery(),
		),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *mcpserver.MCPServer { return s.mcpServer }

// Handler returns the authenticated HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/mcp", AuthMiddleware(s.apiKey, mcpserver.NewStreamableHTTPServer(s.mcpServer)))
	return mux
}

func (s *Server) apiKey() string {
	if s.cfg.APIKeySource != nil {
		return s.cfg.APIKeySource()
	}
	return s.cfg.APIKey
}

// Start listens on cfg.Addr and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("mcp listen %s: %w", s.cfg.Addr, err)
	}
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("mcp server error", "error", err)
		}
	}()
	slog.Info("mcp server started", "addr", ln.Addr().String())
	return nil
}

// Stop shuts the HTTP listener down.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
