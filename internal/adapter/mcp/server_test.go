package mcp_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	hmmcp "github.com/hivemind-swarm/hivemind/internal/adapter/mcp"
	"github.com/hivemind-swarm/hivemind/internal/domain"
	"github.com/hivemind-swarm/hivemind/internal/domain/address"
	"github.com/hivemind-swarm/hivemind/internal/domain/board"
	"github.com/hivemind-swarm/hivemind/internal/domain/task"
)

// --- Mocks ---

type mockBoard struct {
	tasks    []task.Task
	cases    []board.Case
	lastUser address.Address
}

func (m *mockBoard) Stats() board.Stats { return board.Summarize(m.tasks) }

func (m *mockBoard) TaskList(status *task.Status) []task.Task {
	if status == nil {
		return board.Newest(m.tasks)
	}
	return board.Newest(board.Filter(m.tasks, board.WithStatus(*status)))
}

func (m *mockBoard) Task(id uint64) (task.Task, error) {
	if t, ok := board.Find(m.tasks, id); ok {
		return t, nil
	}
	return task.Task{}, domain.ErrNotFound
}

func (m *mockBoard) Subtasks(uint64) []task.Task { return nil }

func (m *mockBoard) DisputeList() []board.Case { return m.cases }

func (m *mockBoard) TaskActions(_ context.Context, id uint64, caller address.Address) (task.Task, []task.Option, error) {
	m.lastUser = caller
	t, err := m.Task(id)
	if err != nil {
		return task.Task{}, nil, err
	}
	return t, task.Actions(t, caller, nil), nil
}

var (
	creator = address.MustParse("0x000000000000000000000000000000000000a11c")
	worker  = address.MustParse("0x0000000000000000000000000000000000000b0b")
)

func newBoard() *mockBoard {
	return &mockBoard{tasks: []task.Task{
		{ID: 1, Creator: creator, Status: task.StatusOpen, Reward: 10_000_000, BondAmount: 1_000_000},
		{ID: 2, Creator: creator, Assignee: &worker, Status: task.StatusClaimed, Reward: 5_000_000},
	}}
}

func callTool(t *testing.T, s *hmmcp.Server, name string, args map[string]any) *mcplib.CallToolResult {
	t.Helper()
	tools := s.MCPServer().ListTools()
	tool, ok := tools[name]
	if !ok {
		t.Fatalf("%s tool not found", name)
	}
	result, err := tool.Handler(context.Background(), mcplib.CallToolRequest{
		Params: mcplib.CallToolParams{Name: name, Arguments: args},
	})
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	return result
}

func resultText(t *testing.T, result *mcplib.CallToolResult) string {
	t.Helper()
	if result.IsError {
		t.Fatalf("tool returned error: %v", result.Content)
	}
	text, ok := result.Content[0].(mcplib.TextContent)
	if !ok {
		t.Fatal("expected TextContent")
	}
	return text.Text
}

// --- Tests ---

func TestServerStartStop(t *testing.T) {
	s := hmmcp.NewServer(hmmcp.ServerConfig{Addr: "127.0.0.1:0", Name: "test", Version: "0.1.0"}, hmmcp.ServerDeps{})
	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
}

func TestToolRegistration(t *testing.T) {
	s := hmmcp.NewServer(hmmcp.ServerConfig{Name: "test", Version: "0.1.0"}, hmmcp.ServerDeps{Board: newBoard()})

	tools := s.MCPServer().ListTools()
	expected := []string{"list_tasks", "get_task", "task_actions", "board_stats", "list_disputes"}
	if len(tools) != len(expected) {
		t.Fatalf("expected %d tools, got %d", len(expected), len(tools))
	}
	for _, name := range expected {
		if _, ok := tools[name]; !ok {
			t.Errorf("expected tool %q not registered", name)
		}
	}
}

func TestHandleListTasks(t *testing.T) {
	s := hmmcp.NewServer(hmmcp.ServerConfig{Name: "test", Version: "0.1.0"}, hmmcp.ServerDeps{Board: newBoard()})

	tests := []struct {
		name string
		args map[string]any
		ids  []uint64
	}{
		{"all", nil, []uint64{2, 1}},
		{"filtered", map[string]any{"status": "open"}, []uint64{1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []task.Task
			if err := json.Unmarshal([]byte(resultText(t, callTool(t, s, "list_tasks", tt.args))), &got); err != nil {
				t.Fatalf("unmarshal error: %v", err)
			}
			if len(got) != len(tt.ids) {
				t.Fatalf("expected %d tasks, got %d", len(tt.ids), len(got))
			}
			for i, id := range tt.ids {
				if got[i].ID != id {
					t.Errorf("tasks[%d] = %d, want %d", i, got[i].ID, id)
				}
			}
		})
	}

	if r := callTool(t, s, "list_tasks", map[string]any{"status": "lost"}); !r.IsError {
		t.Error("expected error result for unknown status")
	}
}

func TestHandleGetTask(t *testing.T) {
	s := hmmcp.NewServer(hmmcp.ServerConfig{Name: "test", Version: "0.1.0"}, hmmcp.ServerDeps{Board: newBoard()})

	var got task.Task
	if err := json.Unmarshal([]byte(resultText(t, callTool(t, s, "get_task", map[string]any{"task_id": float64(2)}))), &got); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if got.ID != 2 || got.Status != task.StatusClaimed {
		t.Errorf("unexpected task: %+v", got)
	}

	for _, args := range []map[string]any{nil, {"task_id": float64(0)}, {"task_id": 1.5}, {"task_id": float64(9)}} {
		if r := callTool(t, s, "get_task", args); !r.IsError {
			t.Errorf("args %v: expected error result", args)
		}
	}
}

func TestHandleTaskActions(t *testing.T) {
	b := newBoard()
	s := hmmcp.NewServer(hmmcp.ServerConfig{Name: "test", Version: "0.1.0"}, hmmcp.ServerDeps{Board: b})

	text := resultText(t, callTool(t, s, "task_actions", map[string]any{
		"task_id": float64(1),
		"account": worker.String(),
	}))
	var got struct {
		Actions []task.Option `json:"actions"`
	}
	if err := json.Unmarshal([]byte(text), &got); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if len(got.Actions) != 1 || got.Actions[0].Action != task.ActionClaim || got.Actions[0].RequiredAllowance != 1_000_000 {
		t.Errorf("unexpected actions: %+v", got.Actions)
	}
	if !b.lastUser.Equal(worker) {
		t.Errorf("caller = %s, want %s", b.lastUser, worker)
	}

	if r := callTool(t, s, "task_actions", map[string]any{"task_id": float64(1), "account": "bob"}); !r.IsError {
		t.Error("expected error result for bad account")
	}
}

func TestHandleBoardStats(t *testing.T) {
	s := hmmcp.NewServer(hmmcp.ServerConfig{Name: "test", Version: "0.1.0"}, hmmcp.ServerDeps{Board: newBoard()})
	var got board.Stats
	if err := json.Unmarshal([]byte(resultText(t, callTool(t, s, "board_stats", nil))), &got); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	want := board.Stats{TotalCount: 2, OpenCount: 1, Pool: 15_000_000, ActiveWorkers: 1}
	if got != want {
		t.Errorf("stats = %+v, want %+v", got, want)
	}
}

func TestHandleNilDeps(t *testing.T) {
	s := hmmcp.NewServer(hmmcp.ServerConfig{Name: "test", Version: "0.1.0"}, hmmcp.ServerDeps{})
	for _, name := range []string{"list_tasks", "board_stats", "list_disputes"} {
		if r := callTool(t, s, name, nil); !r.IsError {
			t.Errorf("%s: expected error result when board is nil", name)
		}
	}
}

func TestAuthMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	tests := []struct {
		name   string
		key    string
		header string
		want   int
	}{
		{"disabled", "", "", http.StatusOK},
		{"missing", "secret", "", http.StatusUnauthorized},
		{"bearer", "secret", "Bearer secret", http.StatusOK},
		{"plain", "secret", "secret", http.StatusOK},
		{"wrong", "secret", "Bearer nope", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/mcp", http.NoBody)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			hmmcp.AuthMiddleware(func() string { return tt.key }, ok).ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, w.Code)
			}
		})
	}
}


func TestAuthMiddleware_RotatedKey(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	key := "first"
	h := hmmcp.AuthMiddleware(func() string { return key }, ok)

	call := func(header string) int {
		req := httptest.NewRequest(http.MethodPost, "/mcp", http.NoBody)
		req.Header.Set("Authorization", header)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w.Code
	}

	if got := call("Bearer first"); got != http.StatusOK {
		t.Fatalf("before rotation: %d", got)
	}
	key = "second"
	if got := call("Bearer first"); got != http.StatusForbidden {
		t.Fatalf("old key after rotation: %d", got)
	}
	if got := call("Bearer second"); got != http.StatusOK {
		t.Fatalf("new key after rotation: %d", got)
	}
}
