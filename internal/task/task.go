// Package task defines the data model shared by the API client, the query
// cache and the views: tasks, their ordered steps, client-local sub-steps
// and the mood context that biases a breakdown.
package task

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Iron-Ham/gentle/internal/errors"
)

// MaxTitleLength is the longest accepted task title, in characters.
const MaxTitleLength = 200

// State is the server-driven lifecycle state of a task.
type State string

// Task states.
const (
	StatePending  State = "pending"
	StateActive   State = "active"
	StateDone     State = "done"
	StateArchived State = "archived"
)

// Label returns the display text for a task state.
func (s State) Label() string {
	switch s {
	case StatePending:
		return "Not started"
	case StateActive:
		return "In progress"
	case StateDone:
		return "Complete"
	case StateArchived:
		return "Archived"
	default:
		return string(s)
	}
}

// StepState is the lifecycle state of a step. The only transition is
// pending to done.
type StepState string

// Step states.
const (
	StepPending StepState = "pending"
	StepDone    StepState = "done"
)

// Task is a user-submitted goal as returned by the task list and create
// endpoints.
type Task struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	State     State     `json:"state"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Step is one ordered, server-generated sub-action of a task.
type Step struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id"`
	Content   string    `json:"content"`
	Order     int       `json:"order"`
	State     StepState `json:"state"`
	CreatedAt time.Time `json:"created_at"`
}

// Done reports whether the step is complete.
func (s Step) Done() bool { return s.State == StepDone }

// Detail is a task together with its steps, in display order.
type Detail struct {
	Task
	Steps []Step `json:"steps"`
}

// Progress returns the completion percentage of the task's steps.
func (d Detail) Progress() int { return Progress(d.Steps) }

// NextStep returns the first pending step, if any.
func (d Detail) NextStep() (Step, bool) { return NextPending(d.Steps) }

// SubStep is a client-local decomposition of a step that felt too big.
type SubStep struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	Rationale string `json:"rationale,omitempty"`
}

// Progress returns done/total*100 rounded down, or 0 when there are no steps.
func Progress(steps []Step) int {
	if len(steps) == 0 {
		return 0
	}
	done := 0
	for _, s := range steps {
		if s.Done() {
			done++
		}
	}
	return done * 100 / len(steps)
}

// NextPending returns the first step in order whose state is pending.
// steps is assumed to be sorted by Order, as the backend returns it.
func NextPending(steps []Step) (Step, bool) {
	for _, s := range steps {
		if !s.Done() {
			return s, true
		}
	}
	return Step{}, false
}

// NormalizeTitle trims surrounding whitespace from a title.
func NormalizeTitle(title string) string {
	return strings.TrimSpace(title)
}

// ValidateTitle checks a title after trimming. It returns the trimmed title.
func ValidateTitle(title string) (string, error) {
	trimmed := NormalizeTitle(title)
	if trimmed == "" {
		return "", errors.NewValidationError("Please enter what feels big today").
			WithField("task").WithValue(title)
	}
	if utf8.RuneCountInString(trimmed) > MaxTitleLength {
		return "", errors.NewValidationError("Let's keep it under 200 characters").
			WithField("task").WithValue(title)
	}
	return trimmed, nil
}
