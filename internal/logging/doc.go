// Package logging provides structured logging for gentle.
//
// It wraps log/slog with a JSON handler. The TUI writes to
// {config dir}/gentle.log because the alternate screen owns the terminal;
// one-shot CLI commands write to stderr.
//
// # Context Propagation
//
// Child loggers carry persistent attributes:
//
//	logger.WithView("task_detail").WithTask(taskID).Info("step completed", "step_id", stepID)
//
// Output:
//
//	{"time":"...","level":"INFO","msg":"step completed","view":"task_detail","task_id":"...","step_id":"..."}
//
// # Testing
//
// Use [NopLogger] to discard output, or [NewWriterLogger] with a
// bytes.Buffer to assert on emitted entries.
//
// # Configuration
//
//	logging:
//	  enabled: true
//	  level: info
package logging
