// Package retry tracks retry attempts for mutations.
//
// Each mutation run is identified by an operation key such as
// "complete_step:3f2a". The manager records how many attempts were made,
// whether the operation eventually succeeded, and the last error, so the
// query layer can decide whether another attempt is allowed and the
// status command can report what gave up.
package retry

import (
	"sort"
	"sync"
	"time"
)

// OperationState tracks retry attempts for one operation key.
type OperationState struct {
	Key        string    `json:"key"`
	Attempts   int       `json:"attempts"`    // Attempts made so far, including the first
	MaxRetries int       `json:"max_retries"` // Extra attempts allowed after the first
	LastError  string    `json:"last_error,omitempty"`
	Succeeded  bool      `json:"succeeded,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Exhausted reports whether the operation failed and has no retries left.
func (s OperationState) Exhausted() bool {
	return !s.Succeeded && s.Attempts > s.MaxRetries
}

// Manager manages retry state for operations.
// It is thread-safe and can be used concurrently.
type Manager struct {
	mu     sync.RWMutex
	states map[string]*OperationState
	now    func() time.Time
}

// NewManager creates a new retry manager.
func NewManager() *Manager {
	return &Manager{
		states: make(map[string]*OperationState),
		now:    time.Now,
	}
}

// GetOrCreateState returns or creates retry state for an operation.
// If the state doesn't exist, it creates one with the given maxRetries.
func (m *Manager) GetOrCreateState(key string, maxRetries int) OperationState {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, exists := m.states[key]
	if !exists {
		state = &OperationState{
			Key:        key,
			MaxRetries: maxRetries,
			UpdatedAt:  m.now(),
		}
		m.states[key] = state
	}
	return *state
}

// GetState returns a copy of the retry state for an operation.
func (m *Manager) GetState(key string) (OperationState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.states[key]
	if !ok {
		return OperationState{}, false
	}
	return *state, true
}

// ShouldRetry returns whether another attempt is allowed: at least one
// attempt failed, none succeeded, and fewer than 1+MaxRetries were made.
func (m *Manager) ShouldRetry(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, exists := m.states[key]
	if !exists {
		return false
	}
	return state.Attempts > 0 && !state.Succeeded && state.Attempts <= state.MaxRetries
}

// RecordAttempt records the outcome of one attempt.
func (m *Manager) RecordAttempt(key string, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, exists := m.states[key]
	if !exists {
		return
	}

	state.Attempts++
	state.Succeeded = success
	if success {
		state.LastError = ""
	}
	state.UpdatedAt = m.now()
}

// SetLastError sets the last error message for an operation.
func (m *Manager) SetLastError(key string, errMsg string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if state, exists := m.states[key]; exists {
		state.LastError = errMsg
	}
}

// Failed returns the keys of all operations that exhausted their retries
// without succeeding, sorted.
func (m *Manager) Failed() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var failed []string
	for key, state := range m.states {
		if state.Exhausted() {
			failed = append(failed, key)
		}
	}
	sort.Strings(failed)
	return failed
}

// Reset clears the retry state for an operation.
func (m *Manager) Reset(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.states, key)
}

// ResetAll clears all retry state.
func (m *Manager) ResetAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.states = make(map[string]*OperationState)
}

// Snapshot returns a copy of all operation states.
func (m *Manager) Snapshot() map[string]OperationState {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]OperationState, len(m.states))
	for k, v := range m.states {
		result[k] = *v
	}
	return result
}
