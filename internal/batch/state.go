package batch

import (
	"errors"
	"fmt"
	"sync"

	"audio-transcriptor/internal/domain"
)

// ErrBatchAlreadyRunning is returned when starting a second active batch.
var ErrBatchAlreadyRunning = errors.New("batch already running")

// State tracks the single allowed active batch and its transitions.
type State struct {
	mu      sync.RWMutex
	runID   string
	current domain.BatchStatus
}

// NewState creates a tracker in idle state.
func NewState() *State {
	return &State{current: domain.BatchStatusIdle}
}

// Start records a new batch and moves it to discovering state.
func (s *State) Start(runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if isRunning(s.current) {
		return ErrBatchAlreadyRunning
	}

	s.runID = runID
	s.current = domain.BatchStatusDiscovering
	return nil
}

// Transition validates and applies state transitions for the current batch.
func (s *State) Transition(status domain.BatchStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.runID == "" && status != domain.BatchStatusIdle {
		return fmt.Errorf("cannot transition without an active batch")
	}
	if status == s.current {
		return nil
	}
	if !isValidTransition(s.current, status) {
		return fmt.Errorf("invalid transition: %s -> %s", s.current, status)
	}

	s.current = status
	return nil
}

// Current returns the current batch status.
func (s *State) Current() domain.BatchStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// RunID returns the identifier of the current batch.
func (s *State) RunID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.runID
}

// Reset clears batch metadata and returns the tracker to idle.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runID = ""
	s.current = domain.BatchStatusIdle
}

// IsRunning reports whether the current state is an active stage.
func (s *State) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return isRunning(s.current)
}

// isRunning checks if a status represents active batch execution.
func isRunning(status domain.BatchStatus) bool {
	switch status {
	case domain.BatchStatusDiscovering, domain.BatchStatusLoadingModel,
		domain.BatchStatusProcessing, domain.BatchStatusSummarizing:
		return true
	default:
		return false
	}
}

// isValidTransition enforces the allowed batch state machine edges.
func isValidTransition(from, to domain.BatchStatus) bool {
	switch from {
	case domain.BatchStatusIdle:
		return to == domain.BatchStatusDiscovering
	case domain.BatchStatusDiscovering:
		// A batch with no input files skips model loading entirely.
		return to == domain.BatchStatusLoadingModel || to == domain.BatchStatusSummarizing ||
			to == domain.BatchStatusFailed
	case domain.BatchStatusLoadingModel:
		return to == domain.BatchStatusProcessing || to == domain.BatchStatusFailed
	case domain.BatchStatusProcessing:
		return to == domain.BatchStatusSummarizing || to == domain.BatchStatusFailed
	case domain.BatchStatusSummarizing:
		return to == domain.BatchStatusDone || to == domain.BatchStatusFailed
	case domain.BatchStatusDone, domain.BatchStatusFailed:
		return to == domain.BatchStatusDiscovering || to == domain.BatchStatusIdle
	default:
		return false
	}
}
