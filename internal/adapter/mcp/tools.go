package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/hivemind-swarm/hivemind/internal/domain/address"
	"github.com/hivemind-swarm/hivemind/internal/domain/task"
)

// registerTools registers all MCP tools on the server.
func (s *Server) registerTools() {
	s.mcpServer.AddTools(
		s.listTasksTool(),
		s.getTaskTool(),
		s.taskActionsTool(),
		s.boardStatsTool(),
		s.listDisputesTool(),
	)
}

func (s *Server) listTasksTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("list_tasks",
		mcplib.WithDescription("List tasks on the board, newest first"),
		mcplib.WithString("status",
			mcplib.Description("Only return tasks in this status"),
			mcplib.Enum("open", "claimed", "submitted", "disputed", "completed", "cancelled"),
		),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleListTasks}
}

func (s *Server) getTaskTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("get_task",
		mcplib.WithDescription("Get one task and its sub-tasks by ID"),
		mcplib.WithNumber("task_id",
			mcplib.Required(),
			mcplib.Description("The task ID to look up"),
		),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleGetTask}
}

func (s *Server) taskActionsTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("task_actions",
		mcplib.WithDescription("List the actions an account may take on a task, read fresh from the ledger"),
		mcplib.WithNumber("task_id",
			mcplib.Required(),
			mcplib.Description("The task ID"),
		),
		mcplib.WithString("account",
			mcplib.Required(),
			mcplib.Description("The 0x-prefixed account address"),
		),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleTaskActions}
}

func (s *Server) boardStatsTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("board_stats",
		mcplib.WithDescription("Get task counts, the escrowed reward pool and active workers"),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleBoardStats}
}

func (s *Server) listDisputesTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("list_disputes",
		mcplib.WithDescription("List disputes with their vote tallies, newest first"),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleListDisputes}
}

func (s *Server) handleListTasks(_ context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Board == nil {
		return mcplib.NewToolResultError("board not configured"), nil
	}
	var filter *task.Status
	if raw, _ := req.GetArguments()["status"].(string); raw != "" {
		st, err := task.ParseStatus(raw)
		if err != nil {
			return mcplib.NewToolResultErrorFromErr("invalid status", err), nil
		}
		filter = &st
	}
	return marshalResult("tasks", s.deps.Board.TaskList(filter))
}

func (s *Server) handleGetTask(_ context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Board == nil {
		return mcplib.NewToolResultError("board not configured"), nil
	}
	id, ok := idArg(req, "task_id")
	if !ok {
		return mcplib.NewToolResultError("task_id is required"), nil
	}
	t, err := s.deps.Board.Task(id)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr(fmt.Sprintf("failed to get task %d", id), err), nil
	}
	return marshalResult("task", struct {
		task.Task
		Subtasks []task.Task `json:"subtasks"`
	}{t, s.deps.Board.Subtasks(id)})
}

func (s *Server) handleTaskActions(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Board == nil {
		return mcplib.NewToolResultError("board not configured"), nil
	}
	id, ok := idArg(req, "task_id")
	if !ok {
		return mcplib.NewToolResultError("task_id is required"), nil
	}
	raw, _ := req.GetArguments()["account"].(string)
	account, err := address.Parse(raw)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("invalid account", err), nil
	}
	t, opts, err := s.deps.Board.TaskActions(ctx, id, account)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr(fmt.Sprintf("failed to read task %d", id), err), nil
	}
	if opts == nil {
		opts = []task.Option{}
	}
	return marshalResult("actions", map[string]any{
		"task_id": t.ID,
		"status":  t.Status,
		"account": account,
		"actions": opts,
	})
}

func (s *Server) handleBoardStats(_ context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Board == nil {
		return mcplib.NewToolResultError("board not configured"), nil
	}
	return marshalResult("stats", s.deps.Board.Stats())
}

func (s *Server) handleListDisputes(_ context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Board == nil {
		return mcplib.NewToolResultError("board not configured"), nil
	}
	return marshalResult("disputes", s.deps.Board.DisputeList())
}

// idArg reads a positive integer argument. JSON numbers arrive as float64.
func idArg(req mcplib.CallToolRequest, name string) (uint64, bool) { //nolint:gocritic // hugeParam: mcp-go request type
	v, ok := req.GetArguments()[name].(float64)
	if !ok || v < 1 || v != float64(uint64(v)) {
		return 0, false
	}
	return uint64(v), true
}

func marshalResult(what string, v any) (*mcplib.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal "+what, err), nil
	}
	return mcplib.NewToolResultText(string(data)), nil
}
