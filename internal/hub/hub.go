// Package hub fans run events out to live subscribers.
//
// Each job has a small replay buffer and at most one live subscriber. A new
// subscriber replaces the previous one and first receives the buffered
// events. Sends never block the run: a subscriber that cannot keep up, or
// that outlived its lifetime, is dropped and the run carries on.
package hub

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mattxander12/forex-trader/internal/backtest/engine"
	"github.com/mattxander12/forex-trader/internal/logger"
	"github.com/mattxander12/forex-trader/internal/types"
)

// Config tunes the hub.
type Config struct {
	// ReplayLimit is the number of events kept per job for late subscribers.
	ReplayLimit int
	// Heartbeat is the interval of keep-alive events to live subscribers.
	Heartbeat time.Duration
	// SubscriberTimeout bounds how long a subscriber stays connected.
	SubscriberTimeout time.Duration
	// CompleteGrace is the delay between Complete and the "done" event.
	CompleteGrace time.Duration
	// SubscriberBuffer is the capacity of a subscriber's event channel.
	SubscriberBuffer int
}

func DefaultConfig() Config {
	return Config{
		ReplayLimit:       32,
		Heartbeat:         10 * time.Second,
		SubscriberTimeout: 30 * time.Minute,
		CompleteGrace:     500 * time.Millisecond,
		SubscriberBuffer:  256,
	}
}

// Observer is notified of hub activity.
type Observer interface {
	EventEmitted(name string)
	SubscriberConnected()
	SubscriberDropped()
}

type nopObserver struct{}

func (nopObserver) EventEmitted(string)  {}
func (nopObserver) SubscriberConnected() {}
func (nopObserver) SubscriberDropped()   {}

// Hub is safe for concurrent use. The registry lock only guards the job map;
// each job's buffer and subscriber are guarded by the job's own lock.
type Hub struct {
	cfg      Config
	observer Observer
	log      *logger.Logger
	now      func() time.Time

	mu      sync.Mutex
	streams map[string]*stream

	heartbeatMu sync.Mutex
	stop        chan struct{}
	wg          sync.WaitGroup
}

func NewHub(cfg Config, observer Observer, log *logger.Logger) *Hub {
	defaults := DefaultConfig()

	if cfg.ReplayLimit <= 0 {
		cfg.ReplayLimit = defaults.ReplayLimit
	}

	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = defaults.Heartbeat
	}

	if cfg.SubscriberTimeout <= 0 {
		cfg.SubscriberTimeout = defaults.SubscriberTimeout
	}

	if cfg.CompleteGrace < 0 {
		cfg.CompleteGrace = 0
	}

	if cfg.SubscriberBuffer < cfg.ReplayLimit+1 {
		cfg.SubscriberBuffer = max(defaults.SubscriberBuffer, cfg.ReplayLimit+1)
	}

	if observer == nil {
		observer = nopObserver{}
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Hub{
		cfg:      cfg,
		observer: observer,
		log:      log,
		now:      time.Now,
		streams:  make(map[string]*stream),
	}
}

// Connect subscribes to jobID, replacing any current subscriber. Buffered
// events are delivered first.
func (h *Hub) Connect(jobID string) *Subscription {
	s := h.acquire(jobID, true)
	defer s.mu.Unlock()

	if s.subscriber != nil {
		h.log.Debug("Replacing subscriber", zap.String("job_id", jobID))
		h.dropLocked(s)
	}

	sub := newSubscription(jobID, h.cfg.SubscriberBuffer, h.now().Add(h.cfg.SubscriberTimeout))
	for _, event := range s.buffer {
		sub.events <- event
	}

	s.subscriber = sub
	h.observer.SubscriberConnected()

	h.log.Debug("Subscriber connected", zap.String("job_id", jobID), zap.Int("replayed", len(s.buffer)))

	return sub
}

// Disconnect removes sub if it is still the job's subscriber. A job left
// with no subscriber and nothing buffered is forgotten.
func (h *Hub) Disconnect(sub *Subscription) {
	if sub == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.streams[sub.jobID]
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.subscriber == sub {
		h.dropLocked(s)
	}

	h.forgetIdleLocked(sub.jobID, s)
}

// Emit buffers an event for jobID and forwards it to the live subscriber.
func (h *Hub) Emit(jobID, name string, payload any) {
	event := types.Event{Name: name, Payload: payload, EmittedAt: h.now()}

	s := h.acquire(jobID, true)
	defer s.mu.Unlock()

	s.buffer = append(s.buffer, event)
	if len(s.buffer) > h.cfg.ReplayLimit {
		s.buffer = append(s.buffer[:0:0], s.buffer[len(s.buffer)-h.cfg.ReplayLimit:]...)
	}

	h.observer.EventEmitted(name)
	h.deliverLocked(s, event)
}

// Emitter returns an engine.Emitter bound to jobID.
func (h *Hub) Emitter(jobID string) engine.Emitter {
	return engine.EmitterFunc(func(name string, payload any) {
		h.Emit(jobID, name, payload)
	})
}

// Last returns the most recent buffered event of jobID.
func (h *Hub) Last(jobID string) (types.Event, bool) {
	s := h.acquire(jobID, false)
	if s == nil {
		return types.Event{}, false
	}
	defer s.mu.Unlock()

	if len(s.buffer) == 0 {
		return types.Event{}, false
	}

	return s.buffer[len(s.buffer)-1], true
}

// GetLast returns the payload of the most recent buffered event of jobID, or
// an empty object.
func (h *Hub) GetLast(jobID string) any {
	if event, ok := h.Last(jobID); ok {
		return event.Payload
	}

	return map[string]any{}
}

// Complete finishes jobID after the grace period: the subscriber gets a
// "done" event and is closed, and the buffer is discarded. The returned
// channel is closed once that has happened.
func (h *Hub) Complete(jobID string) <-chan struct{} {
	finished := make(chan struct{})

	time.AfterFunc(h.cfg.CompleteGrace, func() {
		defer close(finished)

		h.mu.Lock()
		s := h.streams[jobID]
		delete(h.streams, jobID)
		h.mu.Unlock()

		if s == nil {
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()

		if s.subscriber != nil {
			h.deliverLocked(s, types.Event{Name: types.EventDone, Payload: map[string]any{}, EmittedAt: h.now()})
			h.dropLocked(s)
		}

		s.buffer = nil

		h.log.Debug("Stream completed", zap.String("job_id", jobID))
	})

	return finished
}

// Subscribers returns the number of live subscribers.
func (h *Hub) Subscribers() int {
	count := 0

	for _, s := range h.snapshot() {
		s.mu.Lock()
		if s.subscriber != nil {
			count++
		}
		s.mu.Unlock()
	}

	return count
}

// Jobs returns the number of jobs the hub is tracking.
func (h *Hub) Jobs() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.streams)
}

// acquire returns the stream of jobID with its lock held, or nil when it does
// not exist and create is false. The stream is locked before the registry is
// released so it cannot be forgotten in between.
func (h *Hub) acquire(jobID string, create bool) *stream {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.streams[jobID]
	if !ok {
		if !create {
			return nil
		}

		s = &stream{}
		h.streams[jobID] = s
	}

	s.mu.Lock()

	return s
}

// forget removes jobID when it has become idle.
func (h *Hub) forget(jobID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.streams[jobID]
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	h.forgetIdleLocked(jobID, s)
}

// forgetIdleLocked deletes s when it has no subscriber and no buffered events.
// h.mu and s.mu must be held.
func (h *Hub) forgetIdleLocked(jobID string, s *stream) {
	if s.subscriber != nil || len(s.buffer) > 0 {
		return
	}

	if h.streams[jobID] == s {
		delete(h.streams, jobID)
	}
}

func (h *Hub) snapshot() map[string]*stream {
	h.mu.Lock()
	defer h.mu.Unlock()

	streams := make(map[string]*stream, len(h.streams))
	for jobID, s := range h.streams {
		streams[jobID] = s
	}

	return streams
}

// deliverLocked sends event to the live subscriber, dropping it when it has
// expired or its channel is full. s.mu must be held.
func (h *Hub) deliverLocked(s *stream, event types.Event) {
	sub := s.subscriber
	if sub == nil {
		return
	}

	if h.now().After(sub.expires) {
		h.log.Debug("Subscriber expired", zap.String("job_id", sub.jobID))
		h.dropLocked(s)

		return
	}

	select {
	case sub.events <- event:
	default:
		h.log.Warn("Subscriber is not keeping up, dropping it", zap.String("job_id", sub.jobID))
		h.dropLocked(s)
	}
}

// dropLocked closes and removes the live subscriber. s.mu must be held.
func (h *Hub) dropLocked(s *stream) {
	if s.subscriber == nil {
		return
	}

	s.subscriber.close()
	s.subscriber = nil
	h.observer.SubscriberDropped()
}

type stream struct {
	mu         sync.Mutex
	buffer     []types.Event
	subscriber *Subscription
}
