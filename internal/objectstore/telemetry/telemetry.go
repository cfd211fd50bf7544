// Package telemetry adapts this codebase's internal/log event-collector
// (Event/Collector/Publish/FileSink) to the ObjectStore's own event
// vocabulary, rather than inventing a second logging mechanism.
package telemetry

import (
	"encoding/json"
	"io"
	"sync"
	"time"
)

// EventType classifies an ObjectStore lifecycle event.
type EventType string

const (
	RequestSent      EventType = "REQUEST_SENT"
	ResponseReceived EventType = "RESPONSE_RECEIVED"
	GCQueued         EventType = "GC_QUEUED"
	GCSyncRound      EventType = "GC_SYNC_ROUND"
	IDReleased       EventType = "ID_RELEASED"
	ProtocolError    EventType = "PROTOCOL_ERROR"
	StoreClosed      EventType = "STORE_CLOSED"
)

// Event is one emitted occurrence, JSON-encodable for FileSink.
type Event struct {
	Time      time.Time   `json:"ts"`
	EventType EventType   `json:"eventtype"`
	Payload   interface{} `json:"p"`
}

// Collector fans out published events to subscribers without blocking the
// publisher (a full subscriber channel simply drops the event).
type Collector struct {
	mu   sync.RWMutex
	subs []chan Event
}

// Default is the package-level collector used by Publish.
var Default = &Collector{}

// Publish sends an event to Default's subscribers.
func Publish(eventType EventType, payload interface{}) {
	Default.Publish(Event{Time: time.Now(), EventType: eventType, Payload: payload})
}

// Publish sends an event to this collector's subscribers.
func (c *Collector) Publish(e Event) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, ch := range c.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Subscribe returns a receive-only channel of future events. buf sizes the
// channel; a subscriber that falls behind simply misses events rather than
// blocking the store.
func (c *Collector) Subscribe(buf int) <-chan Event {
	ch := make(chan Event, buf)
	c.mu.Lock()
	c.subs = append(c.subs, ch)
	c.mu.Unlock()
	return ch
}

// FileSink writes every event (JSON encoded, one per line) to w, optionally
// filtered to a subset of event types.
func FileSink(w io.Writer, filters ...EventType) {
	want := map[EventType]bool{}
	for _, f := range filters {
		want[f] = true
	}
	go func() {
		enc := json.NewEncoder(w)
		for ev := range Default.Subscribe(100) {
			if len(want) > 0 && !want[ev.EventType] {
				continue
			}
			_ = enc.Encode(ev)
		}
	}()
}
