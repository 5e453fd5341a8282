package tui

import (
	"context"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Iron-Ham/gentle/internal/tui/keymap"
	"github.com/Iron-Ham/gentle/internal/tui/msg"
	"github.com/Iron-Ham/gentle/internal/tui/styles"
	"github.com/Iron-Ham/gentle/internal/util"
	"github.com/Iron-Ham/gentle/internal/workflow"
)

// detailScreen shows one task with its steps and progress.
type detailScreen struct {
	detail  *workflow.TaskDetail
	bar     progress.Model
	cursor  int
	pending bool
}

func newDetailScreen(ctx context.Context, deps workflow.Deps, taskID string) *detailScreen {
	return &detailScreen{
		detail: workflow.NewTaskDetail(ctx, deps, taskID),
		bar:    progress.New(progress.WithGradient(styles.ProgressFrom, styles.ProgressTo), progress.WithWidth(40)),
	}
}

func (s *detailScreen) Init(*Model) tea.Cmd {
	s.pending = true
	return msg.Load(s.detail.Load)
}

func (s *detailScreen) Busy() bool   { return s.pending || s.detail.Snapshot().Busy }
func (s *detailScreen) Typing() bool { return false }
func (s *detailScreen) Close()       { s.detail.Close() }

func (s *detailScreen) Update(m *Model, message tea.Msg) tea.Cmd {
	switch message := message.(type) {
	case msg.LoadedMsg, msg.CompletedMsg, msg.ExpandedMsg:
		s.pending = false
		return nil
	case tea.KeyMsg:
		view := s.detail.Snapshot()
		if view.Err != nil && !view.Loaded {
			switch {
			case key.Matches(message, m.keys.Select), key.Matches(message, m.keys.NewTask):
				s.detail.Recover()
			case key.Matches(message, m.keys.Back):
				m.back()
			}
			return nil
		}

		rows := stepRows(view.Steps)
		s.cursor = clampCursor(s.cursor, len(rows))
		switch {
		case key.Matches(message, m.keys.Up):
			s.cursor = clampCursor(s.cursor-1, len(rows))
		case key.Matches(message, m.keys.Down):
			s.cursor = clampCursor(s.cursor+1, len(rows))
		case key.Matches(message, m.keys.Select):
			if len(rows) == 0 || rows[s.cursor].done {
				return nil
			}
			s.pending = true
			return msg.Complete(s.detail.CompleteStep, rows[s.cursor].id)
		case key.Matches(message, m.keys.TooBig):
			if len(rows) == 0 || rows[s.cursor].sub() || rows[s.cursor].done {
				return nil
			}
			s.pending = true
			return msg.TooBig(s.detail.TooBig, rows[s.cursor].id)
		case key.Matches(message, m.keys.Back):
			m.back()
		}
	}
	return nil
}

func (s *detailScreen) View(m *Model) string {
	view := s.detail.Snapshot()
	var b strings.Builder

	if view.Err != nil && !view.Loaded {
		b.WriteString(styles.Error.Render("We couldn't load this task."))
		b.WriteString("\n")
		b.WriteString(styles.Muted.Render("Press enter to start a new breakdown instead."))
		b.WriteString("\n")
		return b.String()
	}
	if !view.Loaded {
		b.WriteString(styles.Muted.Render("Loading…"))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(styles.Title.Render(view.Task.Title) + " " + styles.StateBadge(string(view.Task.State), view.Task.State.Label()))
	b.WriteString("\n")
	b.WriteString(s.bar.ViewAs(float64(view.Progress) / 100))
	b.WriteString("\n")
	doneCount := 0
	for _, st := range view.Steps {
		if st.Done {
			doneCount++
		}
	}
	b.WriteString(styles.Muted.Render(strconv.Itoa(doneCount) + " of " + util.Plural(len(view.Steps), "step") + " done"))
	b.WriteString("\n\n")

	if view.HasNext {
		b.WriteString(styles.Secondary.Render("Next: ") + util.Truncate(view.Next.Content, max(20, m.width-8)))
		b.WriteString("\n\n")
	} else if len(view.Steps) > 0 {
		b.WriteString(styles.CelebrateTitle.Render("Every step is done. Lovely work."))
		b.WriteString("\n\n")
	}

	rows := stepRows(view.Steps)
	b.WriteString(renderSteps(rows, stepListStyle{
		cursor:        clampCursor(s.cursor, len(rows)),
		nextID:        view.Next.ID,
		justCompleted: view.JustCompleted,
		showRationale: m.env.Config.TUI.ShowRationale,
		width:         m.width,
	}))

	if view.Message != "" {
		b.WriteString(styles.Message.Render(view.Message))
		b.WriteString("\n")
	}
	return b.String()
}

func (s *detailScreen) Help(km keymap.KeyMap) keymap.Help {
	view := s.detail.Snapshot()
	if view.Err != nil && !view.Loaded {
		fresh := key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "new breakdown"))
		return keymap.Help{fresh, km.Back, km.Quit}
	}
	done := key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "done"))
	return keymap.Help{km.Up, km.Down, done, km.TooBig, km.Back, km.Quit}
}
