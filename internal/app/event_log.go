/**
 * @description
 * This file contains the in-process committed-event log. The ledger hands
 * every committed event to the log while still holding its lock, which is
 * what guarantees the log sees events exactly once and in commit order. The
 * log assigns the commit sequence, retains the ordered history, and feeds a
 * dispatcher channel that the application service drains to RabbitMQ and the
 * Postgres archive.
 *
 * @dependencies
 * - log, sync: Standard Go libraries.
 * - internal/domain: For the Event model.
 */

package app

import (
	"log"
	"sync"

	"github.com/openfund/campaign-service/internal/domain"
)

// SequencedEvent is a committed event stamped with its commit sequence.
type SequencedEvent struct {
	Seq   uint64
	Event domain.Event
}

// EventLog is the append-only, ordered record of committed ledger events.
type EventLog struct {
	mu      sync.Mutex
	entries []SequencedEvent
	feed    chan SequencedEvent
}

// NewEventLog creates an event log with a buffered dispatcher feed.
func NewEventLog() *EventLog {
	return &EventLog{
		feed: make(chan SequencedEvent, 1024),
	}
}

// Append records a committed event under the next commit sequence. It is
// called from the ledger's commit path and must not block: if the dispatcher
// has fallen more than a full buffer behind, delivery to the feed is skipped
// and logged, but the in-memory history keeps the event.
func (e *EventLog) Append(event domain.Event) {
	e.mu.Lock()
	entry := SequencedEvent{Seq: uint64(len(e.entries) + 1), Event: event}
	e.entries = append(e.entries, entry)
	e.mu.Unlock()

	select {
	case e.feed <- entry:
	default:
		log.Printf("level=error component=event_log msg=\"dispatcher feed full; event not dispatched\" seq=%d type=%s campaign_id=%d",
			entry.Seq, event.Type, event.CampaignID)
	}
}

// Feed returns the channel the dispatcher drains. Events arrive in commit order.
func (e *EventLog) Feed() <-chan SequencedEvent {
	return e.feed
}

// History returns a copy of all committed events in commit order.
func (e *EventLog) History() []SequencedEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]SequencedEvent(nil), e.entries...)
}

// Close stops the feed. Append must not be called afterwards.
func (e *EventLog) Close() {
	close(e.feed)
}
