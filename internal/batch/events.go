package batch

import (
	"sync"
	"time"

	"audio-transcriptor/internal/domain"
)

// EventType classifies entries in the batch run journal.
type EventType string

const (
	EventTypeStatus EventType = "status"
	EventTypeFile   EventType = "file"
	EventTypeResult EventType = "result"
	EventTypeError  EventType = "error"
)

// Event is a sequenced journal entry describing batch progress.
type Event struct {
	Seq       int64
	Timestamp time.Time
	Type      EventType
	Status    domain.BatchStatus
	File      string
	Message   string
	Words     int
	Seconds   int
}

// Journal stores recent events and provides incremental reads.
type Journal struct {
	mu        sync.RWMutex
	nextSeq   int64
	maxEvents int
	events    []Event
}

// NewJournal creates a bounded in-memory event buffer.
func NewJournal(maxEvents int) *Journal {
	if maxEvents <= 0 {
		maxEvents = 500
	}

	return &Journal{
		maxEvents: maxEvents,
		events:    make([]Event, 0, maxEvents),
	}
}

// Publish appends one event and assigns sequence and timestamp.
func (j *Journal) Publish(event Event) Event {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.nextSeq++
	event.Seq = j.nextSeq
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	j.events = append(j.events, event)
	if len(j.events) > j.maxEvents {
		trim := len(j.events) - j.maxEvents
		j.events = append([]Event(nil), j.events[trim:]...)
	}

	return event
}

// Since returns events with sequence strictly greater than seq.
func (j *Journal) Since(seq int64) []Event {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if len(j.events) == 0 {
		return nil
	}

	out := make([]Event, 0, len(j.events))
	for _, event := range j.events {
		if event.Seq > seq {
			out = append(out, event)
		}
	}
	return out
}
