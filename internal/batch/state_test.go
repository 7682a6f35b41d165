package batch

import (
	"testing"

	"audio-transcriptor/internal/domain"
)

// TestStateLifecycle verifies normal progression to done state.
func TestStateLifecycle(t *testing.T) {
	s := NewState()
	if s.IsRunning() {
		t.Fatal("new state should be idle")
	}

	if err := s.Start("run-1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !s.IsRunning() {
		t.Fatal("expected running after start")
	}

	for _, status := range []domain.BatchStatus{
		domain.BatchStatusLoadingModel,
		domain.BatchStatusProcessing,
		domain.BatchStatusSummarizing,
		domain.BatchStatusDone,
	} {
		if err := s.Transition(status); err != nil {
			t.Fatalf("transition to %s: %v", status, err)
		}
	}

	if s.Current() != domain.BatchStatusDone {
		t.Fatalf("current status = %s, want done", s.Current())
	}
}

// TestStateEmptyBatchSkipsModelLoad verifies the short-circuit path when no
// input files are discovered.
func TestStateEmptyBatchSkipsModelLoad(t *testing.T) {
	s := NewState()
	if err := s.Start("run-1"); err != nil {
		t.Fatalf("start: %v", err)
	}

	if err := s.Transition(domain.BatchStatusSummarizing); err != nil {
		t.Fatalf("transition to summarizing: %v", err)
	}
	if err := s.Transition(domain.BatchStatusDone); err != nil {
		t.Fatalf("transition to done: %v", err)
	}
}

// TestStateRejectsInvalidTransition checks state machine constraints.
func TestStateRejectsInvalidTransition(t *testing.T) {
	s := NewState()
	if err := s.Start("run-1"); err != nil {
		t.Fatalf("start: %v", err)
	}

	if err := s.Transition(domain.BatchStatusDone); err == nil {
		t.Fatal("expected invalid transition error")
	}
}

// TestStateRejectsSecondStart verifies single active batch enforcement.
func TestStateRejectsSecondStart(t *testing.T) {
	s := NewState()
	if err := s.Start("run-1"); err != nil {
		t.Fatalf("start: %v", err)
	}

	if err := s.Start("run-2"); err != ErrBatchAlreadyRunning {
		t.Fatalf("second start error = %v, want %v", err, ErrBatchAlreadyRunning)
	}
	if s.RunID() != "run-1" {
		t.Fatalf("run id = %s, want run-1", s.RunID())
	}
}

// TestStateReset verifies reset returns the tracker to idle.
func TestStateReset(t *testing.T) {
	s := NewState()
	if err := s.Start("run-1"); err != nil {
		t.Fatalf("start: %v", err)
	}

	s.Reset()
	if s.IsRunning() {
		t.Fatal("expected idle after reset")
	}
	if s.RunID() != "" {
		t.Fatalf("run id = %q, want empty", s.RunID())
	}
}
