package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mattxander12/forex-trader/internal/types"
	"github.com/mattxander12/forex-trader/pkg/errors"
)

const wsWriteTimeout = 10 * time.Second

func streamJobID(r *http.Request) string {
	if jobID := mux.Vars(r)["jobId"]; jobID != "" {
		return jobID
	}

	return r.URL.Query().Get("jobId")
}

// streamSSE relays a job's events as Server-Sent Events until the job
// completes, the subscriber is replaced or the client goes away.
func (s *Server) streamSSE(w http.ResponseWriter, r *http.Request) {
	jobID := streamJobID(r)
	if jobID == "" {
		writeError(w, errors.New(errors.ErrCodeInvalidRequest, "jobId is required"))

		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, errors.New(errors.ErrCodeStreamUnsupported, "streaming is not supported by this connection"))

		return
	}

	sub := s.hub.Connect(jobID)
	defer s.hub.Disconnect(sub)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	log := s.log.ForJob(jobID)
	log.Debug("SSE stream opened")

	for {
		select {
		case <-r.Context().Done():
			log.Debug("SSE client went away")

			return
		case event, ok := <-sub.Events():
			if !ok {
				return
			}

			if err := writeSSE(w, event); err != nil {
				log.Debug("SSE write failed", zap.Error(err))

				return
			}

			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, event types.Event) error {
	data, err := json.Marshal(event.Payload)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Name, data)

	return err
}

// streamWebSocket relays a job's events as JSON frames.
func (s *Server) streamWebSocket(w http.ResponseWriter, r *http.Request) {
	jobID := streamJobID(r)

	if jobID == "" {
		writeError(w, errors.New(errors.ErrCodeInvalidRequest, "jobId is required"))

		return
	}

	sub := s.hub.Connect(jobID)
	defer s.hub.Disconnect(sub)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the client.
		s.log.Debug("WebSocket upgrade failed", zap.String("job_id", jobID), zap.Error(err))

		return
	}
	defer conn.Close()

	log := s.log.ForJob(jobID)
	log.Debug("WebSocket stream opened")

	// Reads only detect the client closing the connection.
	closed := make(chan struct{})

	go func() {
		defer close(closed)

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			log.Debug("WebSocket client went away")

			return
		case <-r.Context().Done():
			return
		case event, ok := <-sub.Events():
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "stream finished"),
					time.Now().Add(wsWriteTimeout))

				return
			}

			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))

			if err := conn.WriteJSON(event); err != nil {
				log.Debug("WebSocket write failed", zap.Error(err))

				return
			}
		}
	}
}
