package workflow

import (
	"context"
	"sync"

	"github.com/Iron-Ham/gentle/internal/api"
	"github.com/Iron-Ham/gentle/internal/errors"
	"github.com/Iron-Ham/gentle/internal/event"
	"github.com/Iron-Ham/gentle/internal/logging"
	"github.com/Iron-Ham/gentle/internal/query"
	"github.com/Iron-Ham/gentle/internal/task"
)

// Stage is a step of the inline decompose flow.
type Stage int

const (
	StageMoodCheckIn Stage = iota
	StageTaskInput
	StageBreakdownResults
)

// String returns the stage name.
func (s Stage) String() string {
	switch s {
	case StageMoodCheckIn:
		return "mood_check_in"
	case StageTaskInput:
		return "task_input"
	case StageBreakdownResults:
		return "breakdown_results"
	default:
		return "unknown"
	}
}

// Field names carried by validation errors.
const (
	FieldEmotion = "emotion"
	FieldTask    = "task"
)

// StepView is a step as a view shows it.
type StepView struct {
	task.Step
	// Done is true when the server reported the step done, or when a
	// completion for it succeeded in this view.
	Done     bool
	SubSteps []SubStepView
}

// SubStepView is a sub-step as a view shows it.
type SubStepView struct {
	task.SubStep
	Done bool
}

// WizardView is a snapshot of the Wizard.
type WizardView struct {
	Stage       Stage
	Mood        task.Mood
	Title       string
	FieldErrors map[string]string
	Message     string
	TaskID      string
	Steps       []StepView
	Busy        bool
}

// Wizard drives MoodCheckIn → TaskInput → BreakdownResults.
type Wizard struct {
	deps      Deps
	scope     *Scope
	logger    *logging.Logger
	completer *StepCompleter
	breaker   *SubStepBreaker

	mu          sync.Mutex
	stage       Stage
	mood        task.Mood
	title       string
	fieldErrors map[string]string
	message     string
	submitting  bool
	taskID      string
	steps       []task.Step
	// completed holds local done flips, kept apart from server state.
	completed map[string]bool
}

// NewWizard creates a wizard at the mood check-in with the given default
// energy.
func NewWizard(parent context.Context, deps Deps, defaultEnergy int) *Wizard {
	return &Wizard{
		deps:        deps,
		scope:       NewScope(parent),
		logger:      deps.logger().WithView("decompose"),
		completer:   NewStepCompleter(deps),
		breaker:     NewSubStepBreaker(deps, NewSubStepMap()),
		mood:        task.Mood{Energy: task.ClampEnergy(defaultEnergy)},
		fieldErrors: make(map[string]string),
		completed:   make(map[string]bool),
	}
}

// Close tears the wizard down. Results that arrive afterwards are dropped.
func (w *Wizard) Close() {
	w.scope.Close()
}

// Busy reports whether any request started by the wizard is in flight.
func (w *Wizard) Busy() bool {
	w.mu.Lock()
	submitting := w.submitting
	w.mu.Unlock()
	return submitting || w.completer.Busy() || w.breaker.Busy()
}

// SetEmotion selects the emotion and clears its field error.
func (w *Wizard) SetEmotion(e task.Emotion) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.mood.Emotion = e
	delete(w.fieldErrors, FieldEmotion)
}

// SetEnergy sets the energy level, clamped to the valid range.
func (w *Wizard) SetEnergy(level int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.mood.Energy = task.ClampEnergy(level)
}

// SetTitle updates the task title and clears its field error.
func (w *Wizard) SetTitle(title string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.title = title
	delete(w.fieldErrors, FieldTask)
}

// SubmitMood moves to TaskInput when an emotion is selected. Otherwise the
// stage is unchanged and a field error is recorded.
func (w *Wizard) SubmitMood() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stage != StageMoodCheckIn {
		return errors.NewValidationError("mood check-in is not active")
	}
	if err := w.mood.Validate(); err != nil {
		w.recordFieldErrorLocked(err)
		return err
	}
	w.stage = StageTaskInput
	w.message = ""
	return nil
}

// Back returns from TaskInput to the mood check-in.
func (w *Wizard) Back() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stage != StageTaskInput || w.submitting {
		return false
	}
	w.stage = StageMoodCheckIn
	w.message = ""
	return true
}

// StartOver resets the wizard to an empty mood check-in, keeping the mood.
func (w *Wizard) StartOver() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stage = StageMoodCheckIn
	w.title = ""
	w.message = ""
	w.taskID = ""
	w.steps = nil
	w.fieldErrors = make(map[string]string)
	w.completed = make(map[string]bool)
	w.breaker.SubSteps().Clear()
}

// SubmitTask validates the title, creates the task and then asks for its
// breakdown. The two requests run strictly in order. Any failure leaves the
// wizard at TaskInput with a message; a task created before a failed
// breakdown is not remembered, so the user resubmits.
func (w *Wizard) SubmitTask() error {
	w.mu.Lock()
	if w.stage != StageTaskInput {
		w.mu.Unlock()
		return errors.NewValidationError("task input is not active")
	}
	if w.submitting {
		w.mu.Unlock()
		return errors.ErrMutationPending
	}
	title, err := task.ValidateTitle(w.title)
	if err != nil {
		w.recordFieldErrorLocked(err)
		w.mu.Unlock()
		return err
	}
	mood := w.mood
	w.submitting = true
	w.message = ""
	w.mu.Unlock()

	ctx := w.scope.Context()
	steps, created, err := w.createAndBreakdown(ctx, title, mood)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.submitting = false

	if !w.scope.Alive() {
		return errors.ErrViewClosed
	}
	if err != nil {
		w.message = errors.UserMessage(err, GenericFailure)
		w.logger.Error("create and breakdown failed", "error", err.Error())
		return err
	}

	w.taskID = created.ID
	w.steps = steps
	w.completed = make(map[string]bool)
	w.breaker.SubSteps().Clear()
	w.stage = StageBreakdownResults
	w.logger.Info("task broken down", "task_id", created.ID, "steps", len(steps))
	return nil
}

func (w *Wizard) createAndBreakdown(ctx context.Context, title string, mood task.Mood) ([]task.Step, task.Task, error) {
	created, err := w.deps.Backend.CreateTask(ctx, title)
	if err != nil {
		return nil, task.Task{}, err
	}
	w.deps.publish(event.NewTaskCreatedEvent(created.ID, title))
	if w.deps.Cache != nil {
		w.deps.Cache.Invalidate(context.WithoutCancel(ctx), query.KeyTasks)
	}

	steps, err := w.deps.Backend.BreakdownTask(ctx, created.ID, mood)
	if err != nil {
		return nil, task.Task{}, err
	}
	return steps, created, nil
}

// CompleteStep completes a step or a sub-step shown in the results. The id
// is flipped to done locally once the server confirmed it.
func (w *Wizard) CompleteStep(stepID string) (api.CompleteResult, error) {
	w.mu.Lock()
	taskID := w.taskID
	w.mu.Unlock()

	result, err := w.completer.Complete(w.scope.Context(), stepID, taskID)
	if err != nil {
		w.setMessage(err)
		return result, err
	}

	w.mu.Lock()
	w.completed[stepID] = true
	w.message = ""
	w.mu.Unlock()
	return result, nil
}

// TooBig replaces the sub-steps shown under stepID.
func (w *Wizard) TooBig(stepID string) ([]task.SubStep, error) {
	subs, err := w.breaker.Expand(w.scope.Context(), stepID)
	if err != nil {
		w.setMessage(err)
		return nil, err
	}
	w.mu.Lock()
	w.message = ""
	w.mu.Unlock()
	return subs, nil
}

func (w *Wizard) setMessage(err error) {
	if errors.Is(err, errors.ErrViewClosed) {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.scope.Alive() {
		w.message = errors.UserMessage(err, GenericFailure)
	}
}

func (w *Wizard) recordFieldErrorLocked(err error) {
	var verr *errors.ValidationError
	if errors.As(err, &verr) {
		w.fieldErrors[verr.Field] = verr.Message()
	}
}

// Snapshot returns the current state for rendering.
func (w *Wizard) Snapshot() WizardView {
	busy := w.completer.Busy() || w.breaker.Busy()

	w.mu.Lock()
	defer w.mu.Unlock()

	view := WizardView{
		Stage:       w.stage,
		Mood:        w.mood,
		Title:       w.title,
		FieldErrors: make(map[string]string, len(w.fieldErrors)),
		Message:     w.message,
		TaskID:      w.taskID,
		Busy:        busy || w.submitting,
	}
	for k, v := range w.fieldErrors {
		view.FieldErrors[k] = v
	}
	view.Steps = stepViews(w.steps, w.completed, w.breaker.SubSteps())
	return view
}

func stepViews(steps []task.Step, completed map[string]bool, subs *SubStepMap) []StepView {
	views := make([]StepView, 0, len(steps))
	for _, s := range steps {
		v := StepView{Step: s, Done: s.Done() || completed[s.ID]}
		list, _ := subs.Get(s.ID)
		for _, sub := range list {
			v.SubSteps = append(v.SubSteps, SubStepView{SubStep: sub, Done: completed[sub.ID]})
		}
		views = append(views, v)
	}
	return views
}
