package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Iron-Ham/gentle/internal/errors"
	"github.com/Iron-Ham/gentle/internal/task"
)

// CompleteResult is the response of POST /v1/steps/{id}/complete.
type CompleteResult struct {
	TaskCompleted bool   `json:"taskCompleted"`
	Kind          string `json:"kind,omitempty"`
	Message       string `json:"message,omitempty"`
}

// CheckinResult is the tiny step suggested by a mood check-in.
type CheckinResult struct {
	StepID    string `json:"step_id"`
	Content   string `json:"content"`
	Rationale string `json:"rationale"`
}

func taskPath(id string) string { return "/v1/tasks/" + url.PathEscape(id) }
func stepPath(id string) string { return "/v1/steps/" + url.PathEscape(id) }

// notFound turns a 404 into a NotFoundError for the named resource, keeping
// the HTTPError as its cause.
func notFound(err error, resourceType, id string) error {
	if errors.StatusCode(err) == http.StatusNotFound {
		return errors.NewNotFoundError(resourceType, id).WithCause(err)
	}
	return err
}

// CreateTask creates a task with the given title.
func (c *Client) CreateTask(ctx context.Context, title string) (task.Task, error) {
	var created task.Task
	if err := c.Post(ctx, "/v1/tasks", map[string]string{"title": title}, &created); err != nil {
		return task.Task{}, err
	}
	if created.ID == "" {
		return task.Task{}, errors.NewFormatError("create task", errors.New("missing id"))
	}
	return created, nil
}

// BreakdownTask asks the backend to split a task into ordered steps, biased
// by the mood context.
func (c *Client) BreakdownTask(ctx context.Context, taskID string, mood task.Mood) ([]task.Step, error) {
	q := url.Values{}
	q.Set("energy", strconv.Itoa(mood.Energy))
	q.Set("emotion", string(mood.Emotion))

	var steps []task.Step
	if err := c.Post(ctx, taskPath(taskID)+"/breakdown?"+q.Encode(), nil, &steps); err != nil {
		return nil, notFound(err, "task", taskID)
	}
	return steps, nil
}

// ListTasks returns the current user's tasks, newest first.
func (c *Client) ListTasks(ctx context.Context) ([]task.Task, error) {
	var tasks []task.Task
	if err := c.Get(ctx, "/v1/tasks", &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// GetTask returns one task with its steps.
func (c *Client) GetTask(ctx context.Context, taskID string) (task.Detail, error) {
	var detail task.Detail
	if err := c.Get(ctx, taskPath(taskID), &detail); err != nil {
		return task.Detail{}, notFound(err, "task", taskID)
	}
	return detail, nil
}

// DeleteTask deletes a task.
func (c *Client) DeleteTask(ctx context.Context, taskID string) error {
	return notFound(c.Delete(ctx, taskPath(taskID), nil), "task", taskID)
}

// CompleteStep marks a step (or sub-step) as done.
func (c *Client) CompleteStep(ctx context.Context, stepID string) (CompleteResult, error) {
	var result CompleteResult
	if err := c.Post(ctx, stepPath(stepID)+"/complete", nil, &result); err != nil {
		return CompleteResult{}, notFound(err, "step", stepID)
	}
	return result, nil
}

// TooBig asks the backend to split a step into smaller sub-steps. The
// response is normalized by DecodeSubSteps.
func (c *Client) TooBig(ctx context.Context, stepID string) ([]task.SubStep, error) {
	var raw json.RawMessage
	if err := c.Post(ctx, stepPath(stepID)+"/too-big", nil, &raw); err != nil {
		return nil, notFound(err, "step", stepID)
	}
	return DecodeSubSteps(raw)
}

// MoodCheckin records a mood check-in and returns one tiny suggested step.
func (c *Client) MoodCheckin(ctx context.Context, mood task.Mood, note string) (CheckinResult, error) {
	body := struct {
		Energy  int    `json:"energy"`
		Emotion string `json:"emotion"`
		Note    string `json:"note,omitempty"`
	}{mood.Energy, string(mood.Emotion), note}

	var result CheckinResult
	if err := c.Post(ctx, "/v1/mood/checkin", body, &result); err != nil {
		return CheckinResult{}, err
	}
	return result, nil
}
