package hub

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mattxander12/forex-trader/internal/types"
)

// HeartbeatPayload is the payload of heartbeat events.
type HeartbeatPayload struct {
	Time time.Time `json:"time"`
}

// Start runs the heartbeat until ctx is done or Stop is called. Calling Start
// on a running hub is a no-op.
func (h *Hub) Start(ctx context.Context) {
	h.heartbeatMu.Lock()
	defer h.heartbeatMu.Unlock()

	if h.stop != nil {
		return
	}

	stop := make(chan struct{})
	h.stop = stop

	h.wg.Add(1)

	go func() {
		defer h.wg.Done()

		ticker := time.NewTicker(h.cfg.Heartbeat)
		defer ticker.Stop()

		h.log.Debug("Heartbeat started", zap.Duration("interval", h.cfg.Heartbeat))

		for {
			select {
			case <-ctx.Done():
				h.heartbeatMu.Lock()
				if h.stop == stop {
					h.stop = nil
				}
				h.heartbeatMu.Unlock()

				return
			case <-stop:
				return
			case <-ticker.C:
				h.beat()
			}
		}
	}()
}

// Stop ends the heartbeat and waits for it to exit.
func (h *Hub) Stop() {
	h.heartbeatMu.Lock()
	stop := h.stop
	h.stop = nil
	h.heartbeatMu.Unlock()

	if stop != nil {
		close(stop)
	}

	h.wg.Wait()
}

// beat sends a heartbeat to every live subscriber. Heartbeats are not
// buffered for replay.
func (h *Hub) beat() {
	event := types.Event{Name: types.EventHeartbeat, EmittedAt: h.now()}
	event.Payload = HeartbeatPayload{Time: event.EmittedAt}

	for jobID, s := range h.snapshot() {
		s.mu.Lock()
		h.deliverLocked(s, event)
		dropped := s.subscriber == nil
		s.mu.Unlock()

		if dropped {
			h.forget(jobID)
		}
	}
}
