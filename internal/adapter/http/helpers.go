package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hivemind-swarm/hivemind/internal/domain"
	"github.com/hivemind-swarm/hivemind/internal/domain/address"
	"github.com/hivemind-swarm/hivemind/internal/domain/task"
	"github.com/hivemind-swarm/hivemind/internal/domain/tx"
	"github.com/hivemind-swarm/hivemind/internal/port/ledger"
	"github.com/hivemind-swarm/hivemind/internal/service"
)

// ---------------------------------------------------------------------------
// Request helpers
// ---------------------------------------------------------------------------

// readJSON decodes a JSON request body with a size limit.
func readJSON[T any](w http.ResponseWriter, r *http.Request, bodyLimit int64) (T, bool) {
	var v T
	r.Body = http.MaxBytesReader(w, r.Body, bodyLimit)
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		} else {
			writeError(w, http.StatusBadRequest, "invalid request body")
		}
		return v, false
	}
	return v, true
}

// idParam parses a positive integer URL parameter, writing a 400 on failure.
func idParam(w http.ResponseWriter, r *http.Request, name string) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, name), 10, 64)
	if err != nil || id == 0 {
		writeError(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

// accountParam parses an optional address from the query string. An absent
// value yields the zero address.
func accountParam(w http.ResponseWriter, r *http.Request, name string) (address.Address, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return "", true
	}
	a, err := address.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid "+name)
		return "", false
	}
	return a, true
}

// ---------------------------------------------------------------------------
// Response helpers
// ---------------------------------------------------------------------------

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to write JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func writeDomainError(w http.ResponseWriter, err error, fallbackMsg string) {
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, ledger.ErrOutOfRange):
		writeError(w, http.StatusNotFound, fallbackMsg)
	case errors.Is(err, domain.ErrValidation):
		msg := strings.TrimPrefix(err.Error(), domain.ErrValidation.Error()+": ")
		writeError(w, http.StatusBadRequest, msg)
	default:
		slog.Error("ledger read failed", "error", err)
		writeError(w, http.StatusBadGateway, "ledger unavailable")
	}
}

// writeTxResult writes the tri-state result of a write with a status code
// derived from err.
func writeTxResult(w http.ResponseWriter, res tx.Result, err error) {
	status := http.StatusOK
	switch {
	case err == nil:
		if res.Outcome == tx.OutcomePending {
			status = http.StatusAccepted
		}
	case errors.Is(err, domain.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, ledger.ErrNoSigner):
		status = http.StatusServiceUnavailable
	case errors.Is(err, service.ErrInFlight):
		status = http.StatusConflict
	case errors.Is(err, task.ErrActionNotAllowed):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrTxFailed), errors.Is(err, service.ErrNeedsApproval),
		errors.Is(err, service.ErrNotConfirmed):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, ledger.ErrOutOfRange):
		status = http.StatusNotFound
	default:
		slog.Error("write failed before submission", "step", res.Step, "error", err)
		status = http.StatusBadGateway
	}
	writeJSON(w, status, res)
}
