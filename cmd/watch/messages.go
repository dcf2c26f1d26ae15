package main

import "context"

// EventMsg carries one decoded frame from the job stream.
type EventMsg struct {
	Frame Frame
}

// StreamErrorMsg indicates an error in the job stream.
type StreamErrorMsg struct {
	Err error
}

// StreamConnectingMsg carries the cancel func of a stream being dialed.
type StreamConnectingMsg struct {
	Cancel context.CancelFunc
}

// StreamStartedMsg signals that the stream is connected.
type StreamStartedMsg struct{}

// StreamClosedMsg signals that the server closed the stream.
type StreamClosedMsg struct{}
