package main

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mattxander12/forex-trader/pkg/errors"
)

// Frame is one event as sent by the server.
type Frame struct {
	Name      string          `json:"name"`
	Payload   json.RawMessage `json:"payload"`
	EmittedAt time.Time       `json:"emittedAt"`
}

// StreamURL builds the WebSocket URL of jobID on an http(s) or ws(s) server
// address.
func StreamURL(server, jobID string) (string, error) {
	u, err := url.Parse(strings.TrimRight(server, "/"))
	if err != nil {
		return "", errors.Wrapf(errors.ErrCodeInvalidParameter, err, "invalid server address %q", server)
	}

	switch u.Scheme {
	case "http", "":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", errors.Newf(errors.ErrCodeInvalidParameter, "unsupported server scheme %q", u.Scheme)
	}

	u.Path += "/api/v1/ws/" + url.PathEscape(jobID)

	return u.String(), nil
}

// streamJob reads frames from streamURL and hands them to send until the
// server closes the stream or ctx is cancelled.
func streamJob(ctx context.Context, streamURL string, send func(any)) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, streamURL, nil)
	if err != nil {
		send(StreamErrorMsg{Err: errors.Wrap(errors.ErrCodeUpgradeFailed, "failed to connect to job stream", err)})

		return
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	send(StreamStartedMsg{})

	for {
		var frame Frame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				send(StreamClosedMsg{})
			} else if ctx.Err() == nil {
				send(StreamErrorMsg{Err: err})
			}

			return
		}

		send(EventMsg{Frame: frame})
	}
}
