package http

import (
	"net/http"

	"github.com/hivemind-swarm/hivemind/internal/port/journal"
	"github.com/hivemind-swarm/hivemind/internal/port/messagequeue"
	"github.com/hivemind-swarm/hivemind/internal/service"
)

// maxBodySize bounds JSON request bodies.
const maxBodySize = 64 << 10

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	Model   *service.ReadModel
	Actions *service.ActionService
	// Queue and Instance broadcast explicit refreshes to other instances.
	// Queue may be nil.
	Queue    messagequeue.Queue
	Instance string
	Journal  journal.Store // nil disables the journal endpoint
}

// Health handles GET /health
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	status := map[string]any{
		"status":  "ok",
		"signer":  !h.Actions.Account().IsZero(),
		"journal": h.Journal != nil,
	}
	if h.Queue != nil {
		status["nats"] = h.Queue.IsConnected()
	}
	tasks := h.Model.Tasks.Snapshot()
	if tasks.Err != nil {
		status["status"] = "degraded"
		status["error"] = tasks.Error()
	}
	writeJSON(w, http.StatusOK, status)
}
