package batch

import "testing"

// TestJournalSince verifies incremental event reads by sequence.
func TestJournalSince(t *testing.T) {
	journal := NewJournal(3)
	journal.Publish(Event{Type: EventTypeStatus, Message: "1"})
	journal.Publish(Event{Type: EventTypeStatus, Message: "2"})
	journal.Publish(Event{Type: EventTypeStatus, Message: "3"})

	events := journal.Since(1)
	if len(events) != 2 {
		t.Fatalf("len = %d, want 2", len(events))
	}
	if events[0].Seq != 2 || events[1].Seq != 3 {
		t.Fatalf("unexpected seqs: %+v", events)
	}
}

// TestJournalCapsHistory verifies buffer limit trimming behavior.
func TestJournalCapsHistory(t *testing.T) {
	journal := NewJournal(2)
	journal.Publish(Event{Message: "1"})
	journal.Publish(Event{Message: "2"})
	journal.Publish(Event{Message: "3"})

	events := journal.Since(0)
	if len(events) != 2 {
		t.Fatalf("len = %d, want 2", len(events))
	}
	if events[0].Message != "2" || events[1].Message != "3" {
		t.Fatalf("unexpected events: %+v", events)
	}
}

// TestJournalAssignsTimestamps verifies publish fills missing timestamps.
func TestJournalAssignsTimestamps(t *testing.T) {
	journal := NewJournal(0)
	event := journal.Publish(Event{Type: EventTypeFile, File: "a.wav"})
	if event.Timestamp.IsZero() {
		t.Fatal("expected timestamp to be assigned")
	}
	if event.Seq != 1 {
		t.Fatalf("seq = %d, want 1", event.Seq)
	}
}
