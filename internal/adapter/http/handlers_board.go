package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hivemind-swarm/hivemind/internal/domain/address"
	"github.com/hivemind-swarm/hivemind/internal/domain/board"
	"github.com/hivemind-swarm/hivemind/internal/domain/task"
	"github.com/hivemind-swarm/hivemind/internal/service"
)

// viewState is attached to every board listing so clients can tell an empty
// board from one that failed to load.
type viewState struct {
	Loading     bool      `json:"loading"`
	Error       string    `json:"error,omitempty"`
	RefreshedAt time.Time `json:"refreshed_at"`
}

func stateOf[T any](s service.Snapshot[T]) viewState {
	return viewState{Loading: s.Loading, Error: s.Error(), RefreshedAt: s.RefreshedAt}
}

type statsResponse struct {
	board.Stats
	viewState
}

type taskListResponse struct {
	Tasks []task.Task `json:"tasks"`
	viewState
}

type taskResponse struct {
	task.Task
	Subtasks []task.Task `json:"subtasks"`
}

type actionsResponse struct {
	Task    task.Task     `json:"task"`
	Account string        `json:"account"`
	Actions []task.Option `json:"actions"`
}

type disputeListResponse struct {
	Disputes []board.Case `json:"disputes"`
	viewState
}

// GetStats handles GET /api/v1/stats
func (h *Handlers) GetStats(w http.ResponseWriter, _ *http.Request) {
	snap := h.Model.Tasks.Snapshot()
	writeJSON(w, http.StatusOK, statsResponse{Stats: board.Summarize(snap.Items), viewState: stateOf(snap)})
}

// ListTasks handles GET /api/v1/tasks
func (h *Handlers) ListTasks(w http.ResponseWriter, r *http.Request) {
	var filter *task.Status
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		s, err := task.ParseStatus(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid status")
			return
		}
		filter = &s
	}
	writeJSON(w, http.StatusOK, taskListResponse{
		Tasks:     nonNil(h.Model.TaskList(filter)),
		viewState: stateOf(h.Model.Tasks.Snapshot()),
	})
}

// GetTask handles GET /api/v1/tasks/{id}
func (h *Handlers) GetTask(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	t, err := h.Model.Task(id)
	if err != nil {
		writeDomainError(w, err, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, taskResponse{Task: t, Subtasks: nonNil(h.Model.Subtasks(id))})
}

// TaskActions handles GET /api/v1/tasks/{id}/actions
//
// The task is read fresh from the ledger. Without ?account= the configured
// wallet is used.
func (h *Handlers) TaskActions(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	account, ok := accountParam(w, r, "account")
	if !ok {
		return
	}
	if account.IsZero() {
		account = h.Actions.Account()
	}
	t, opts, err := h.Model.TaskActions(r.Context(), id, account)
	if err != nil {
		writeDomainError(w, err, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, actionsResponse{Task: t, Account: account.String(), Actions: nonNil(opts)})
}

// GetAccount handles GET /api/v1/accounts/{address}
func (h *Handlers) GetAccount(w http.ResponseWriter, r *http.Request) {
	a, err := address.Parse(chi.URLParam(r, "address"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid address")
		return
	}
	acct, err := h.Model.Account(r.Context(), a)
	if err != nil {
		writeDomainError(w, err, "account not found")
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

// ListJournal handles GET /api/v1/accounts/{address}/journal
func (h *Handlers) ListJournal(w http.ResponseWriter, r *http.Request) {
	if h.Journal == nil {
		writeError(w, http.StatusNotFound, "journal disabled")
		return
	}
	a, err := address.Parse(chi.URLParam(r, "address"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid address")
		return
	}
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	entries, err := h.Journal.ListByAccount(r.Context(), a.String(), limit)
	if err != nil {
		writeDomainError(w, err, "journal not found")
		return
	}
	writeJSON(w, http.StatusOK, nonNil(entries))
}

// ListDisputes handles GET /api/v1/disputes
func (h *Handlers) ListDisputes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, disputeListResponse{
		Disputes:  nonNil(h.Model.DisputeList()),
		viewState: stateOf(h.Model.Disputes.Snapshot()),
	})
}

// GetDispute handles GET /api/v1/disputes/{id}
func (h *Handlers) GetDispute(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	viewer, ok := accountParam(w, r, "account")
	if !ok {
		return
	}
	d, err := h.Model.Dispute(id, viewer)
	if err != nil {
		writeDomainError(w, err, "dispute not found")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// GetJury handles GET /api/v1/jury
func (h *Handlers) GetJury(w http.ResponseWriter, r *http.Request) {
	viewer, ok := accountParam(w, r, "account")
	if !ok {
		return
	}
	if viewer.IsZero() {
		viewer = h.Actions.Account()
	}
	jury, err := h.Model.Jury(r.Context(), viewer)
	if err != nil {
		writeDomainError(w, err, "jury not found")
		return
	}
	writeJSON(w, http.StatusOK, jury)
}

// Refresh handles POST /api/v1/refresh
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := service.RequestRefresh(r.Context(), h.Queue, h.Instance, "api", h.Model); err != nil {
		writeDomainError(w, err, "refresh failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tasks":    len(h.Model.Tasks.Items()),
		"disputes": len(h.Model.Disputes.Items()),
	})
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
