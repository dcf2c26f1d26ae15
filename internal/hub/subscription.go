package hub

import (
	"sync"
	"time"

	"github.com/mattxander12/forex-trader/internal/types"
)

// Subscription is one live subscriber of a job. Its channel is closed when
// the hub drops it: on replacement, expiry, completion or a full buffer.
type Subscription struct {
	jobID     string
	events    chan types.Event
	expires   time.Time
	closeOnce sync.Once
}

func newSubscription(jobID string, buffer int, expires time.Time) *Subscription {
	return &Subscription{
		jobID:   jobID,
		events:  make(chan types.Event, buffer),
		expires: expires,
	}
}

// JobID returns the job the subscription follows.
func (s *Subscription) JobID() string {
	return s.jobID
}

// Events returns the event channel.
func (s *Subscription) Events() <-chan types.Event {
	return s.events
}

// Expires returns when the hub stops serving the subscription.
func (s *Subscription) Expires() time.Time {
	return s.expires
}

func (s *Subscription) close() {
	s.closeOnce.Do(func() {
		close(s.events)
	})
}
