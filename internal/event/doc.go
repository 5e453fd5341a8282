// Package event provides a pub-sub event bus for decoupled communication
// between the query cache, the workflow controllers, the realtime listener
// and the TUI.
//
// Producers publish without knowing who listens. The TUI forwards the
// celebration and session events into the bubbletea program with typed
// Subscribe handlers, and the application context logs every event at debug
// level through a SubscribeAll handler.
//
// # Main Types
//
//   - [Event]: Interface that all events implement, providing EventType() and Timestamp()
//   - [Bus]: Synchronous pub-sub dispatcher, safe for concurrent use
//   - [Handler]: Function type for event handlers (func(Event))
//
// # Event Categories
//
// Cache:
//   - [QueryInvalidatedEvent], [QueryUpdatedEvent]
//
// Tasks and steps:
//   - [TaskCreatedEvent], [TaskDeletedEvent]
//   - [StepCompletedEvent], [SubStepsReplacedEvent], [MutationFailedEvent]
//
// Navigation, session and realtime:
//   - [RouteChangedEvent], [AuthChangedEvent], [CelebrationReceivedEvent]
//
// # Thread Safety
//
// Handlers are called synchronously on the publishing goroutine and are
// protected against panics: a panicking handler is logged and the remaining
// handlers still run.
//
// # Basic Usage
//
//	bus := event.NewBus(logger)
//
//	bus.Subscribe(event.TypeStepCompleted, func(e event.Event) {
//	    done := e.(event.StepCompletedEvent)
//	    logger.Info("step done", "step_id", done.StepID)
//	})
//
//	bus.Publish(event.NewStepCompletedEvent(stepID, taskID, false))
package event
