// Package workflow holds the view models of the decomposition flow.
//
// A user enters a task that feels big, says how they feel, and the backend
// splits the task into steps. Steps are completed one by one or broken down
// further when they still feel too big. The controllers here own that state
// machine; the TUI and CLI only render their snapshots and forward input.
//
// # Controllers
//
//   - Wizard: the inline flow MoodCheckIn → TaskInput → BreakdownResults
//   - TaskDetail: one persisted task with its steps, progress and next step
//   - TaskList: all tasks, with two-phase delete
//   - Celebration: the screen shown after a task is finished
//
// Step completion and too-big expansion are shared by the wizard and the
// detail view through StepCompleter and SubStepBreaker.
//
// # Lifetimes
//
// Every controller owns a Scope. Closing it cancels in-flight requests and
// turns late results into ErrViewClosed so a torn-down view is never
// updated. Server state lives in the query cache; controllers read it when
// building snapshots and only mutation successes invalidate it.
package workflow
