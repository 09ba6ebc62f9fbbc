package frontend

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/nabaztag-core/nabd/internal/protocol"
	"github.com/nabaztag-core/nabd/internal/writer"
)

// hooksAdapter implements scheduler.Hooks in terms of the writer registry
// and a shutdown callback supplied by the command that started the server.
type hooksAdapter struct {
	registry   *writer.Registry
	log        *zap.Logger
	shutdownFn func(protocol.ShutdownMode)
}

func (h *hooksAdapter) Respond(origin writer.ID, resp protocol.ResponsePacket) {
	payload, err := json.Marshal(resp)
	if err != nil {
		h.log.Warn("response marshal failed", zap.Error(err))
		return
	}
	h.registry.SendTo(origin, payload)
}

func (h *hooksAdapter) BroadcastState(state protocol.State) {
	payload, err := json.Marshal(protocol.StatePacket{Type: "state", State: state})
	if err != nil {
		h.log.Warn("state marshal failed", zap.Error(err))
		return
	}
	h.registry.Broadcast(payload)
}

func (h *hooksAdapter) GrantInteractive(origin writer.ID) {
	h.registry.GrantInteractive(origin)
}

func (h *hooksAdapter) ReleaseInteractive(origin writer.ID) {
	h.registry.ReleaseInteractive(origin)
}

func (h *hooksAdapter) Shutdown(mode protocol.ShutdownMode) {
	if h.shutdownFn != nil {
		h.shutdownFn(mode)
	}
}
