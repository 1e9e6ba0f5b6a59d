// Package events fans job state transitions out to per-job subscribers.
// The workflow manager publishes a snapshot after every persisted change;
// the daemon's WebSocket endpoint drains a Subscription per client. The
// hub itself is transport-agnostic.
package events

import (
	"log/slog"
	"sync"

	"skald/internal/jobs"
	"skald/internal/logging"
)

// subscriptionBuffer bounds how far a slow consumer may lag before events
// are dropped for it. Jobs emit at most a few dozen transitions, so a
// healthy reader never comes close.
const subscriptionBuffer = 32

// Event is one job state transition as pushed to subscribers.
type Event struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
	Phase  string `json:"phase,omitempty"`
	Detail string `json:"detail,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Terminal reports whether the event describes a final job state.
func (e Event) Terminal() bool {
	return jobs.Status(e.Status).IsTerminal()
}

// FromJob converts a job snapshot into its event form.
func FromJob(job *jobs.Job) Event {
	return Event{
		JobID:  job.ID,
		Status: string(job.Status),
		Phase:  job.Phase,
		Detail: job.PhaseDetail,
		Error:  job.ErrorMessage,
	}
}

// Subscription receives the events for a single job. The channel closes
// after the job's terminal event has been delivered, or when the hub shuts
// down.
type Subscription struct {
	hub   *Hub
	jobID string
	ch    chan Event
	once  sync.Once
}

// Events returns the subscriber's delivery channel.
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// Close detaches the subscription. Safe to call more than once and after
// the hub has already closed the channel.
func (s *Subscription) Close() {
	s.hub.detach(s)
}

// closeLocked runs with the hub lock held so a close can never race a
// Publish send on the same channel.
func (s *Subscription) closeLocked() {
	s.once.Do(func() { close(s.ch) })
}

// Hub is the in-process registry of job event subscribers.
type Hub struct {
	logger *slog.Logger

	mu     sync.Mutex
	subs   map[string]map[*Subscription]struct{}
	closed bool
}

// NewHub constructs an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger: logging.NewComponentLogger(logger, "events-hub"),
		subs:   make(map[string]map[*Subscription]struct{}),
	}
}

// Subscribe registers for one job's transitions. Subscribing to an unknown
// or already-finished job is allowed; the caller is expected to replay the
// current store snapshot itself before waiting on the channel.
func (h *Hub) Subscribe(jobID string) *Subscription {
	sub := &Subscription{hub: h, jobID: jobID, ch: make(chan Event, subscriptionBuffer)}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		sub.closeLocked()
		return sub
	}
	set := h.subs[jobID]
	if set == nil {
		set = make(map[*Subscription]struct{})
		h.subs[jobID] = set
	}
	set[sub] = struct{}{}
	return sub
}

// Publish delivers the job's current state to its subscribers. Delivery
// never blocks: a subscriber that has fallen subscriptionBuffer events
// behind loses this one. After a terminal event every subscription for the
// job is closed.
func (h *Hub) Publish(job *jobs.Job) {
	if job == nil {
		return
	}
	event := FromJob(job)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	set := h.subs[job.ID]
	for sub := range set {
		select {
		case sub.ch <- event:
		default:
			h.logger.Warn("dropping job event for slow subscriber",
				logging.String(logging.FieldJobID, job.ID),
				logging.String("status", event.Status),
			)
		}
	}
	if event.Terminal() && set != nil {
		for sub := range set {
			sub.closeLocked()
		}
		delete(h.subs, job.ID)
	}
}

// Close shuts the hub down, closing every open subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, set := range h.subs {
		for sub := range set {
			sub.closeLocked()
		}
		delete(h.subs, id)
	}
}

func (h *Hub) detach(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set := h.subs[sub.jobID]; set != nil {
		delete(set, sub)
		if len(set) == 0 {
			delete(h.subs, sub.jobID)
		}
	}
	sub.closeLocked()
}
