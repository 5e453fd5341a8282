package task

import (
	"strings"
	"testing"

	"github.com/Iron-Ham/gentle/internal/errors"
)

func steps(states ...StepState) []Step {
	out := make([]Step, len(states))
	for i, s := range states {
		out[i] = Step{ID: string(rune('a' + i)), Order: i + 1, State: s}
	}
	return out
}

func TestProgress(t *testing.T) {
	tests := []struct {
		name  string
		steps []Step
		want  int
	}{
		{"no steps", nil, 0},
		{"half done", steps(StepDone, StepDone, StepPending, StepPending), 50},
		{"all done", steps(StepDone, StepDone), 100},
		{"none done", steps(StepPending, StepPending, StepPending), 0},
		{"one of three rounds down", steps(StepDone, StepPending, StepPending), 33},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Progress(tt.steps); got != tt.want {
				t.Errorf("Progress() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestNextPending(t *testing.T) {
	tests := []struct {
		name   string
		steps  []Step
		wantID string
		wantOK bool
	}{
		{"empty", nil, "", false},
		{"first pending", steps(StepPending, StepPending), "a", true},
		{"skips done", steps(StepDone, StepDone, StepPending, StepPending), "c", true},
		{"pending after gap", steps(StepDone, StepPending, StepDone, StepPending), "b", true},
		{"all done", steps(StepDone, StepDone), "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NextPending(tt.steps)
			if ok != tt.wantOK || got.ID != tt.wantID {
				t.Errorf("NextPending() = (%q, %v), want (%q, %v)", got.ID, ok, tt.wantID, tt.wantOK)
			}
		})
	}
}

func TestDetailHelpers(t *testing.T) {
	d := Detail{
		Task:  Task{ID: "t-1", Title: "Tidy desk", State: StateActive},
		Steps: steps(StepDone, StepPending),
	}
	if d.Progress() != 50 {
		t.Errorf("Progress() = %d, want 50", d.Progress())
	}
	next, ok := d.NextStep()
	if !ok || next.ID != "b" {
		t.Errorf("NextStep() = (%q, %v), want (b, true)", next.ID, ok)
	}
}

func TestValidateTitle(t *testing.T) {
	tests := []struct {
		name    string
		title   string
		want    string
		wantErr bool
	}{
		{"simple", "Clean the kitchen", "Clean the kitchen", false},
		{"trimmed", "  Do taxes \n", "Do taxes", false},
		{"single char", "x", "x", false},
		{"exactly max", strings.Repeat("a", MaxTitleLength), strings.Repeat("a", MaxTitleLength), false},
		{"max after trim", " " + strings.Repeat("a", MaxTitleLength) + " ", strings.Repeat("a", MaxTitleLength), false},
		{"multibyte counts runes", strings.Repeat("é", MaxTitleLength), strings.Repeat("é", MaxTitleLength), false},
		{"empty", "", "", true},
		{"whitespace only", " \t\n ", "", true},
		{"too long", strings.Repeat("a", MaxTitleLength+1), "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateTitle(tt.title)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateTitle() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ValidateTitle() = %q, want %q", got, tt.want)
			}
			if err != nil {
				var v *errors.ValidationError
				if !errors.As(err, &v) || v.Field != "task" {
					t.Errorf("error = %v, want ValidationError on field task", err)
				}
			}
		})
	}
}

func TestValidateTitle_EmptyMessage(t *testing.T) {
	_, err := ValidateTitle("   ")
	if got := errors.UserMessage(err, "fallback"); got != "Please enter what feels big today" {
		t.Errorf("UserMessage() = %q", got)
	}
}

func TestStateLabel(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StatePending, "Not started"},
		{StateActive, "In progress"},
		{StateDone, "Complete"},
		{StateArchived, "Archived"},
		{State("weird"), "weird"},
	}
	for _, tt := range tests {
		if got := tt.state.Label(); got != tt.want {
			t.Errorf("State(%q).Label() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
