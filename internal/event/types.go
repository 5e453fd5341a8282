package event

import "time"

// Event is the interface that all events must implement.
type Event interface {
	// EventType returns a string identifier for this event type.
	// Convention: "category.action" (e.g., "query.invalidated", "step.completed")
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Event type identifiers.
const (
	TypeQueryInvalidated    = "query.invalidated"
	TypeQueryUpdated        = "query.updated"
	TypeTaskCreated         = "task.created"
	TypeTaskDeleted         = "task.deleted"
	TypeStepCompleted       = "step.completed"
	TypeSubStepsReplaced    = "substeps.replaced"
	TypeMutationFailed      = "mutation.failed"
	TypeRouteChanged        = "route.changed"
	TypeCelebrationReceived = "celebration.received"
	TypeAuthChanged         = "auth.changed"
)

// baseEvent provides common fields for all events.
// Embed this in concrete event types to satisfy the Event interface.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// -----------------------------------------------------------------------------
// Query Cache Events
// -----------------------------------------------------------------------------

// QueryInvalidatedEvent is emitted when cache entries matching Key are marked stale.
type QueryInvalidatedEvent struct {
	baseEvent
	Key     []string // Prefix that was invalidated, e.g. ["tasks"]
	Matched int      // Number of cache entries the prefix matched
}

// NewQueryInvalidatedEvent creates a QueryInvalidatedEvent.
func NewQueryInvalidatedEvent(key []string, matched int) QueryInvalidatedEvent {
	return QueryInvalidatedEvent{
		baseEvent: newBaseEvent(TypeQueryInvalidated),
		Key:       key,
		Matched:   matched,
	}
}

// QueryUpdatedEvent is emitted when a cache entry has been (re)fetched.
// Err is set when the fetch failed; the previous data is kept in that case.
type QueryUpdatedEvent struct {
	baseEvent
	Key []string
	Err error
}

// NewQueryUpdatedEvent creates a QueryUpdatedEvent.
func NewQueryUpdatedEvent(key []string, err error) QueryUpdatedEvent {
	return QueryUpdatedEvent{
		baseEvent: newBaseEvent(TypeQueryUpdated),
		Key:       key,
		Err:       err,
	}
}

// -----------------------------------------------------------------------------
// Task and Step Events
// -----------------------------------------------------------------------------

// TaskCreatedEvent is emitted after the backend accepted a new task.
type TaskCreatedEvent struct {
	baseEvent
	TaskID string
	Title  string
}

// NewTaskCreatedEvent creates a TaskCreatedEvent.
func NewTaskCreatedEvent(taskID, title string) TaskCreatedEvent {
	return TaskCreatedEvent{
		baseEvent: newBaseEvent(TypeTaskCreated),
		TaskID:    taskID,
		Title:     title,
	}
}

// TaskDeletedEvent is emitted after a confirmed delete succeeded.
type TaskDeletedEvent struct {
	baseEvent
	TaskID string
}

// NewTaskDeletedEvent creates a TaskDeletedEvent.
func NewTaskDeletedEvent(taskID string) TaskDeletedEvent {
	return TaskDeletedEvent{
		baseEvent: newBaseEvent(TypeTaskDeleted),
		TaskID:    taskID,
	}
}

// StepCompletedEvent is emitted after the backend confirmed a step (or
// sub-step) as done.
type StepCompletedEvent struct {
	baseEvent
	StepID        string
	TaskID        string // Owning task, empty when the caller did not know it
	TaskCompleted bool   // Whether this completion finished the whole task
}

// NewStepCompletedEvent creates a StepCompletedEvent.
func NewStepCompletedEvent(stepID, taskID string, taskCompleted bool) StepCompletedEvent {
	return StepCompletedEvent{
		baseEvent:     newBaseEvent(TypeStepCompleted),
		StepID:        stepID,
		TaskID:        taskID,
		TaskCompleted: taskCompleted,
	}
}

// SubStepsReplacedEvent is emitted when a too-big request replaced the
// sub-step list of a parent step.
type SubStepsReplacedEvent struct {
	baseEvent
	ParentStepID string
	Count        int
}

// NewSubStepsReplacedEvent creates a SubStepsReplacedEvent.
func NewSubStepsReplacedEvent(parentStepID string, count int) SubStepsReplacedEvent {
	return SubStepsReplacedEvent{
		baseEvent:    newBaseEvent(TypeSubStepsReplaced),
		ParentStepID: parentStepID,
		Count:        count,
	}
}

// MutationFailedEvent is emitted when a mutation gave up after its retries.
type MutationFailedEvent struct {
	baseEvent
	Operation string // e.g. "complete_step", "too_big"
	Attempts  int
	Err       error
}

// NewMutationFailedEvent creates a MutationFailedEvent.
func NewMutationFailedEvent(operation string, attempts int, err error) MutationFailedEvent {
	return MutationFailedEvent{
		baseEvent: newBaseEvent(TypeMutationFailed),
		Operation: operation,
		Attempts:  attempts,
		Err:       err,
	}
}

// -----------------------------------------------------------------------------
// Navigation, Session and Realtime Events
// -----------------------------------------------------------------------------

// RouteChangedEvent is emitted whenever the router moves to a new screen.
type RouteChangedEvent struct {
	baseEvent
	Kind          string // Route kind, e.g. "celebrate"
	TaskID        string
	TaskCompleted bool
}

// NewRouteChangedEvent creates a RouteChangedEvent.
func NewRouteChangedEvent(kind, taskID string, taskCompleted bool) RouteChangedEvent {
	return RouteChangedEvent{
		baseEvent:     newBaseEvent(TypeRouteChanged),
		Kind:          kind,
		TaskID:        taskID,
		TaskCompleted: taskCompleted,
	}
}

// CelebrationReceivedEvent is emitted for each inbound celebration on the
// realtime channel. Message already has the default text applied.
type CelebrationReceivedEvent struct {
	baseEvent
	UserID  string
	Message string
}

// NewCelebrationReceivedEvent creates a CelebrationReceivedEvent.
func NewCelebrationReceivedEvent(userID, message string) CelebrationReceivedEvent {
	return CelebrationReceivedEvent{
		baseEvent: newBaseEvent(TypeCelebrationReceived),
		UserID:    userID,
		Message:   message,
	}
}

// AuthChangedEvent is emitted when the stored session appears, changes or
// goes away.
type AuthChangedEvent struct {
	baseEvent
	UserID   string // Empty when signed out
	Email    string
	SignedIn bool
}

// NewAuthChangedEvent creates an AuthChangedEvent.
func NewAuthChangedEvent(userID, email string, signedIn bool) AuthChangedEvent {
	return AuthChangedEvent{
		baseEvent: newBaseEvent(TypeAuthChanged),
		UserID:    userID,
		Email:     email,
		SignedIn:  signedIn,
	}
}
