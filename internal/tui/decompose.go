package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Iron-Ham/gentle/internal/task"
	"github.com/Iron-Ham/gentle/internal/tui/keymap"
	"github.com/Iron-Ham/gentle/internal/tui/msg"
	"github.com/Iron-Ham/gentle/internal/tui/styles"
	"github.com/Iron-Ham/gentle/internal/util"
	"github.com/Iron-Ham/gentle/internal/workflow"
)

// moodRow is the focused row of the mood check-in.
type moodRow int

const (
	rowEmotion moodRow = iota
	rowEnergy
)

// decomposeScreen runs the inline decompose flow: mood check-in, task
// input, then the breakdown results.
type decomposeScreen struct {
	wizard  *workflow.Wizard
	title   textinput.Model
	row     moodRow
	emotion int
	cursor  int
	pending bool
}

func newDecomposeScreen(ctx context.Context, deps workflow.Deps, defaultEnergy int) *decomposeScreen {
	return &decomposeScreen{
		wizard:  workflow.NewWizard(ctx, deps, defaultEnergy),
		emotion: -1,
	}
}

func (s *decomposeScreen) Init(m *Model) tea.Cmd {
	s.title = m.newInput("e.g. Clean the kitchen", task.MaxTitleLength)
	s.title.Prompt = "› "
	return nil
}

func (s *decomposeScreen) Busy() bool { return s.pending || s.wizard.Busy() }
func (s *decomposeScreen) Close()     { s.wizard.Close() }

func (s *decomposeScreen) Typing() bool {
	return s.wizard.Snapshot().Stage == workflow.StageTaskInput
}

func (s *decomposeScreen) Update(m *Model, message tea.Msg) tea.Cmd {
	switch message := message.(type) {
	case msg.SubmittedMsg:
		s.pending = false
		if message.Err == nil {
			s.title.Blur()
			s.cursor = 0
		}
		return nil
	case msg.CompletedMsg:
		s.pending = false
		return nil
	case msg.ExpandedMsg:
		s.pending = false
		return nil
	case tea.KeyMsg:
		switch s.wizard.Snapshot().Stage {
		case workflow.StageMoodCheckIn:
			return s.updateMood(m, message)
		case workflow.StageTaskInput:
			return s.updateInput(m, message)
		default:
			return s.updateResults(m, message)
		}
	}
	return nil
}

func (s *decomposeScreen) updateMood(m *Model, k tea.KeyMsg) tea.Cmd {
	emotions := task.Emotions()
	view := s.wizard.Snapshot()
	switch {
	case key.Matches(k, m.keys.Up):
		s.row = rowEmotion
	case key.Matches(k, m.keys.Down):
		s.row = rowEnergy
	case key.Matches(k, m.keys.Left):
		if s.row == rowEnergy {
			s.wizard.SetEnergy(view.Mood.Energy - 1)
		} else {
			s.emotion = max(0, s.emotion-1)
			s.wizard.SetEmotion(emotions[s.emotion])
		}
	case key.Matches(k, m.keys.Right):
		if s.row == rowEnergy {
			s.wizard.SetEnergy(view.Mood.Energy + 1)
		} else {
			s.emotion = min(len(emotions)-1, s.emotion+1)
			s.wizard.SetEmotion(emotions[s.emotion])
		}
	case key.Matches(k, m.keys.Select):
		if err := s.wizard.SubmitMood(); err != nil {
			return nil
		}
		s.title.SetValue(view.Title)
		return s.title.Focus()
	case key.Matches(k, m.keys.Back):
		m.back()
	}
	return nil
}

func (s *decomposeScreen) updateInput(m *Model, k tea.KeyMsg) tea.Cmd {
	switch {
	case k.Type == tea.KeyEnter:
		s.wizard.SetTitle(s.title.Value())
		s.pending = true
		return msg.Submit(s.wizard.SubmitTask)
	case key.Matches(k, m.keys.Back):
		if s.wizard.Back() {
			s.title.Blur()
		}
		return nil
	}
	var cmd tea.Cmd
	s.title, cmd = s.title.Update(k)
	s.wizard.SetTitle(s.title.Value())
	return cmd
}

func (s *decomposeScreen) updateResults(m *Model, k tea.KeyMsg) tea.Cmd {
	rows := stepRows(s.wizard.Snapshot().Steps)
	s.cursor = clampCursor(s.cursor, len(rows))
	switch {
	case key.Matches(k, m.keys.Up):
		s.cursor = clampCursor(s.cursor-1, len(rows))
	case key.Matches(k, m.keys.Down):
		s.cursor = clampCursor(s.cursor+1, len(rows))
	case key.Matches(k, m.keys.Select):
		if len(rows) == 0 || rows[s.cursor].done {
			return nil
		}
		s.pending = true
		return msg.Complete(s.wizard.CompleteStep, rows[s.cursor].id)
	case key.Matches(k, m.keys.TooBig):
		if len(rows) == 0 || rows[s.cursor].sub() || rows[s.cursor].done {
			return nil
		}
		s.pending = true
		return msg.TooBig(s.wizard.TooBig, rows[s.cursor].id)
	case key.Matches(k, m.keys.Restart):
		s.wizard.StartOver()
		s.emotion = -1
		s.row = rowEmotion
		s.cursor = 0
		s.title.Reset()
	case key.Matches(k, m.keys.Tasks):
		m.navigate(workflow.TaskListRoute())
	case key.Matches(k, m.keys.Back):
		m.back()
	}
	return nil
}

func (s *decomposeScreen) View(m *Model) string {
	view := s.wizard.Snapshot()
	var b strings.Builder

	switch view.Stage {
	case workflow.StageMoodCheckIn:
		b.WriteString(styles.Title.Render("How are you feeling right now?"))
		b.WriteString("\n")
		b.WriteString(s.rowLabel(rowEmotion, "Feeling"))
		for _, e := range task.Emotions() {
			if e == view.Mood.Emotion {
				b.WriteString(styles.ChoiceActive.Render(e.Label()))
			} else {
				b.WriteString(styles.Choice.Render(e.Label()))
			}
		}
		b.WriteString("\n")
		if ferr := view.FieldErrors[workflow.FieldEmotion]; ferr != "" {
			b.WriteString(styles.FieldError.Render("  " + ferr))
			b.WriteString("\n")
		}
		b.WriteString(s.rowLabel(rowEnergy, "Energy "))
		b.WriteString(energyMeter(view.Mood.Energy))
		b.WriteString(" " + styles.Muted.Render(task.EnergyLabel(view.Mood.Energy)))
		b.WriteString("\n")

	case workflow.StageTaskInput:
		b.WriteString(styles.Title.Render("What feels big today?"))
		b.WriteString("\n")
		b.WriteString(s.title.View())
		b.WriteString("\n")
		b.WriteString(styles.Muted.Render(util.Counter(s.title.Value(), task.MaxTitleLength)))
		b.WriteString("\n")
		if ferr := view.FieldErrors[workflow.FieldTask]; ferr != "" {
			b.WriteString(styles.FieldError.Render(ferr))
			b.WriteString("\n")
		}

	default:
		b.WriteString(styles.Title.Render("Here's a gentle way through: " + view.Title))
		b.WriteString("\n")
		rows := stepRows(view.Steps)
		if len(rows) == 0 {
			b.WriteString(styles.Muted.Render("No steps came back. Try starting over."))
			b.WriteString("\n")
		}
		next, _ := task.NextPending(stepsOf(view.Steps))
		b.WriteString(renderSteps(rows, stepListStyle{
			cursor:        clampCursor(s.cursor, len(rows)),
			nextID:        next.ID,
			showRationale: m.env.Config.TUI.ShowRationale,
			width:         m.width,
		}))
	}

	if view.Message != "" {
		b.WriteString(styles.Message.Render(view.Message))
		b.WriteString("\n")
	}
	return b.String()
}

func (s *decomposeScreen) rowLabel(row moodRow, label string) string {
	if s.row == row {
		return styles.Cursor.Render("› "+label) + " "
	}
	return "  " + styles.Muted.Render(label) + " "
}

// stepsOf returns the steps of views with the locally completed ones
// marked done.
func stepsOf(views []workflow.StepView) []task.Step {
	steps := make([]task.Step, 0, len(views))
	for _, v := range views {
		s := v.Step
		if v.Done {
			s.State = task.StepDone
		}
		steps = append(steps, s)
	}
	return steps
}

func energyMeter(level int) string {
	filled := strings.Repeat("●", level)
	empty := strings.Repeat("○", task.MaxEnergy-level)
	return styles.Secondary.Render(filled) + styles.Muted.Render(empty)
}

func (s *decomposeScreen) Help(km keymap.KeyMap) keymap.Help {
	switch s.wizard.Snapshot().Stage {
	case workflow.StageMoodCheckIn:
		return keymap.Help{km.Left, km.Right, km.Up, km.Down, km.Select, km.Back, km.Quit}
	case workflow.StageTaskInput:
		submit := key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "break it down"))
		return keymap.Help{submit, km.Back}
	default:
		done := key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "done"))
		return keymap.Help{km.Up, km.Down, done, km.TooBig, km.Restart, km.Tasks, km.Quit}
	}
}
