package workflow

import (
	"context"
	"net/http"
	"testing"

	"github.com/Iron-Ham/gentle/internal/errors"
	"github.com/Iron-Ham/gentle/internal/task"
)

func listBackend(tasks []task.Task, deleteErr error) *stubBackend {
	b := &stubBackend{}
	b.listTasks = func() ([]task.Task, error) {
		b.mu.Lock()
		defer b.mu.Unlock()
		return append([]task.Task(nil), tasks...), nil
	}
	b.deleteTask = func(id string) error {
		if deleteErr != nil {
			return deleteErr
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, t := range tasks {
			if t.ID == id {
				tasks = append(tasks[:i], tasks[i+1:]...)
				break
			}
		}
		return nil
	}
	return b
}

func taskIDs(tasks []task.Task) []string {
	ids := make([]string, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	return ids
}

func TestTaskList_DeleteRemovesFromNextRead(t *testing.T) {
	backend := listBackend([]task.Task{{ID: "t1"}, {ID: "t2"}}, nil)
	deps := newDeps(backend, nil)
	l := NewTaskList(context.Background(), deps)
	defer l.Close()
	if err := l.Load(); err != nil {
		t.Fatal(err)
	}

	l.RequestDelete("t1")
	if got := l.Snapshot().Confirming; got != "t1" {
		t.Fatalf("Confirming = %q, want t1", got)
	}
	if calls := backend.Calls(); len(calls) != 1 {
		t.Errorf("requesting confirmation must not call the backend, calls = %v", calls)
	}

	if err := l.ConfirmDelete(); err != nil {
		t.Fatalf("ConfirmDelete() error = %v", err)
	}
	view := l.Snapshot()
	if view.Confirming != "" {
		t.Error("confirmation should be dismissed")
	}
	for _, id := range taskIDs(view.Tasks) {
		if id == "t1" {
			t.Errorf("tasks = %v, deleted task still listed", taskIDs(view.Tasks))
		}
	}

	// A fresh reader of the same cache sees the post-delete list too.
	other := NewTaskList(context.Background(), Deps{Backend: backend, Cache: deps.Cache})
	defer other.Close()
	if err := other.Load(); err != nil {
		t.Fatal(err)
	}
	if ids := taskIDs(other.Snapshot().Tasks); len(ids) != 1 || ids[0] != "t2" {
		t.Errorf("tasks = %v, want [t2]", ids)
	}
}

func TestTaskList_DeleteFailureDismissesConfirmation(t *testing.T) {
	backend := listBackend([]task.Task{{ID: "t1"}}, errors.NewHTTPError(http.StatusInternalServerError, ""))
	l := NewTaskList(context.Background(), newDeps(backend, nil))
	defer l.Close()
	if err := l.Load(); err != nil {
		t.Fatal(err)
	}

	l.RequestDelete("t1")
	if err := l.ConfirmDelete(); err == nil {
		t.Fatal("ConfirmDelete() should fail")
	}
	view := l.Snapshot()
	if view.Confirming != "" {
		t.Error("confirmation should be dismissed on failure")
	}
	if view.Message != GenericFailure {
		t.Errorf("Message = %q, want %q", view.Message, GenericFailure)
	}
	if ids := taskIDs(view.Tasks); len(ids) != 1 {
		t.Errorf("tasks = %v, nothing should be removed", ids)
	}
}

func TestTaskList_CancelAndConfirmWithoutSelection(t *testing.T) {
	backend := listBackend(nil, nil)
	l := NewTaskList(context.Background(), newDeps(backend, nil))
	defer l.Close()

	l.RequestDelete("t1")
	l.CancelDelete()
	if l.Snapshot().Confirming != "" {
		t.Error("CancelDelete() should dismiss")
	}
	if err := l.ConfirmDelete(); !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("ConfirmDelete() error = %v, want validation error", err)
	}
	for _, c := range backend.Calls() {
		if c == "delete t1" {
			t.Error("no delete should be sent")
		}
	}
}

func TestTaskList_Open(t *testing.T) {
	nav := &recordingNav{}
	l := NewTaskList(context.Background(), newDeps(listBackend(nil, nil), nav))
	defer l.Close()

	l.Open("t9")
	if routes := nav.Routes(); len(routes) != 1 || routes[0] != TaskDetailRoute("t9") {
		t.Errorf("routes = %v", routes)
	}
}
