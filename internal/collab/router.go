package collab

import (
	"errors"

	"codeberg.org/docsuite/server/internal/logger"
	"codeberg.org/docsuite/server/internal/metrics"
)

// fans session events out to participant connections
// callers hold the session lock, so every recipient sees publish order
type Router struct {
	documentID string
	presence   *Presence
	seq        uint64
}

func NewRouter(documentID string, presence *Presence) *Router {
	return &Router{
		documentID: documentID,
		presence:   presence,
	}
}

// stamps the next sequence number and enqueues ev on every participant connection
func (r *Router) Publish(ev *Event, origin Conn, excludeOrigin bool) {
	r.seq++
	ev.Sequence = r.seq

	metrics.EventsPublished.WithLabelValues(ev.Type).Inc()

	for _, conn := range r.presence.conns() {
		if excludeOrigin && origin != nil && conn.ID() == origin.ID() {
			continue
		}

		r.Deliver(conn, ev)
	}
}

// enqueues ev on a single connection without blocking
func (r *Router) Deliver(conn Conn, ev *Event) {
	err := conn.Send(ev)
	if err == nil || errors.Is(err, ErrConnClosed) {
		return
	}

	if errors.Is(err, ErrSlowConsumer) {
		metrics.DroppedDeliveries.Inc()

		logger.Warn("dropped event for slow consumer",
			"document_id", r.documentID,
			"client_id", conn.ID(),
			"event_type", ev.Type,
		)

		return
	}

	logger.ErrorErr(err, "failed to send event",
		"document_id", r.documentID,
		"client_id", conn.ID(),
		"event_type", ev.Type,
	)
}

// dispatches a command result event according to its scope
func (r *Router) route(out Outbound, origin Conn) {
	switch out.Scope {
	case ScopeOrigin:
		if origin != nil {
			r.Deliver(origin, out.Event)
		}
	case ScopeOthers:
		r.Publish(out.Event, origin, true)
	default:
		r.Publish(out.Event, origin, false)
	}
}

// returns the last sequence number published
func (r *Router) Sequence() uint64 {
	return r.seq
}
