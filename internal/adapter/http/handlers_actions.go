package http

import (
	"net/http"

	"github.com/hivemind-swarm/hivemind/internal/domain/task"
)

type submitRequest struct {
	ProofHash string `json:"proof_hash"`
}

type voteRequest struct {
	InFavorOfAssignee *bool `json:"in_favor_of_assignee"`
}

// CreateTask handles POST /api/v1/tasks
func (h *Handlers) CreateTask(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[task.CreateRequest](w, r, maxBodySize)
	if !ok {
		return
	}
	res, err := h.Actions.Create(r.Context(), req)
	writeTxResult(w, res, err)
}

// ClaimTask handles POST /api/v1/tasks/{id}/claim
func (h *Handlers) ClaimTask(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	res, err := h.Actions.Claim(r.Context(), id)
	writeTxResult(w, res, err)
}

// SubmitWork handles POST /api/v1/tasks/{id}/submit
func (h *Handlers) SubmitWork(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	req, ok := readJSON[submitRequest](w, r, maxBodySize)
	if !ok {
		return
	}
	if req.ProofHash == "" {
		writeError(w, http.StatusBadRequest, "proof_hash is required")
		return
	}
	res, err := h.Actions.SubmitWork(r.Context(), id, req.ProofHash)
	writeTxResult(w, res, err)
}

// ApproveWork handles POST /api/v1/tasks/{id}/approve
func (h *Handlers) ApproveWork(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	res, err := h.Actions.ApproveWork(r.Context(), id)
	writeTxResult(w, res, err)
}

// CancelTask handles POST /api/v1/tasks/{id}/cancel
func (h *Handlers) CancelTask(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	res, err := h.Actions.Cancel(r.Context(), id)
	writeTxResult(w, res, err)
}

// OpenDispute handles POST /api/v1/tasks/{id}/dispute
func (h *Handlers) OpenDispute(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	res, err := h.Actions.OpenDispute(r.Context(), id)
	writeTxResult(w, res, err)
}

// CastVote handles POST /api/v1/disputes/{id}/vote
func (h *Handlers) CastVote(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	req, ok := readJSON[voteRequest](w, r, maxBodySize)
	if !ok {
		return
	}
	if req.InFavorOfAssignee == nil {
		writeError(w, http.StatusBadRequest, "in_favor_of_assignee is required")
		return
	}
	res, err := h.Actions.CastVote(r.Context(), id, *req.InFavorOfAssignee)
	writeTxResult(w, res, err)
}

// RegisterJuror handles POST /api/v1/jurors
func (h *Handlers) RegisterJuror(w http.ResponseWriter, r *http.Request) {
	res, err := h.Actions.RegisterJuror(r.Context())
	writeTxResult(w, res, err)
}
