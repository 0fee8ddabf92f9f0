package mcp

import (
	"context"
	"encoding/json"

	mcplib "github.com/mark3labs/mcp-go/mcp"
)

// registerResources registers all MCP resources on the server.
func (s *Server) registerResources() {
	s.mcpServer.AddResource(
		mcplib.NewResource(
			"hivemind://board/stats",
			"Board Stats",
			mcplib.WithResourceDescription("Task counts, escrowed pool and active workers"),
			mcplib.WithMIMEType("application/json"),
		),
		func(_ context.Context, req mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
			return s.jsonResource(req.Params.URI, func() any { return s.deps.Board.Stats() })
		},
	)

	s.mcpServer.AddResource(
		mcplib.NewResource(
			"hivemind://disputes",
			"Disputes",
			mcplib.WithResourceDescription("All disputes with vote tallies"),
			mcplib.WithMIMEType("application/json"),
		),
		func(_ context.Context, req mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
			return s.jsonResource(req.Params.URI, func() any { return s.deps.Board.DisputeList() })
		},
	)
}

func (s *Server) jsonResource(uri string, get func() any) ([]mcplib.ResourceContents, error) {
	text := `{"error":"board not configured"}`
	if s.deps.Board != nil {
		data, err := json.Marshal(get())
		if err != nil {
			return nil, err
		}
		text = string(data)
	}
	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     text,
		},
	}, nil
}
