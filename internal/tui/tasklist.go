package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Iron-Ham/gentle/internal/tui/keymap"
	"github.com/Iron-Ham/gentle/internal/tui/msg"
	"github.com/Iron-Ham/gentle/internal/tui/styles"
	"github.com/Iron-Ham/gentle/internal/util"
	"github.com/Iron-Ham/gentle/internal/workflow"
)

// taskListScreen lists the user's tasks, newest first.
type taskListScreen struct {
	list    *workflow.TaskList
	cursor  int
	pending bool
}

func newTaskListScreen(ctx context.Context, deps workflow.Deps) *taskListScreen {
	return &taskListScreen{list: workflow.NewTaskList(ctx, deps)}
}

func (s *taskListScreen) Init(*Model) tea.Cmd { return s.load() }

func (s *taskListScreen) load() tea.Cmd {
	s.pending = true
	return msg.Load(s.list.Load)
}

func (s *taskListScreen) Busy() bool   { return s.pending || s.list.Snapshot().Busy }
func (s *taskListScreen) Typing() bool { return false }
func (s *taskListScreen) Close()       { s.list.Close() }

func (s *taskListScreen) Update(m *Model, message tea.Msg) tea.Cmd {
	switch message := message.(type) {
	case msg.LoadedMsg, msg.DeletedMsg:
		s.pending = false
		return nil
	case tea.KeyMsg:
		view := s.list.Snapshot()
		if view.Confirming != "" {
			return s.updateConfirm(m, message)
		}
		n := len(view.Tasks)
		switch {
		case key.Matches(message, m.keys.Up):
			s.cursor = clampCursor(s.cursor-1, n)
		case key.Matches(message, m.keys.Down):
			s.cursor = clampCursor(s.cursor+1, n)
		case key.Matches(message, m.keys.Select):
			if n > 0 {
				s.list.Open(view.Tasks[clampCursor(s.cursor, n)].ID)
			}
		case key.Matches(message, m.keys.Delete):
			if n > 0 {
				s.list.RequestDelete(view.Tasks[clampCursor(s.cursor, n)].ID)
			}
		case key.Matches(message, m.keys.NewTask):
			m.navigate(workflow.DecomposeRoute())
		case key.Matches(message, m.keys.Refresh):
			return s.load()
		case key.Matches(message, m.keys.Back):
			m.back()
		}
	}
	return nil
}

func (s *taskListScreen) updateConfirm(m *Model, k tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(k, m.keys.Confirm):
		s.pending = true
		return msg.Delete(s.list.ConfirmDelete, s.list.Snapshot().Confirming)
	case key.Matches(k, m.keys.Cancel):
		s.list.CancelDelete()
	}
	return nil
}

func (s *taskListScreen) View(m *Model) string {
	view := s.list.Snapshot()
	var b strings.Builder
	b.WriteString(styles.Title.Render("Your tasks"))
	b.WriteString("\n")

	switch {
	case view.Err != nil && !view.Loaded:
		b.WriteString(styles.Error.Render("We couldn't load your tasks."))
		b.WriteString("\n")
		b.WriteString(styles.Muted.Render("Press ctrl+r to try again, or n to start a new breakdown."))
		b.WriteString("\n")
		return b.String()
	case !view.Loaded:
		b.WriteString(styles.Muted.Render("Loading…"))
		b.WriteString("\n")
		return b.String()
	case len(view.Tasks) == 0:
		b.WriteString(styles.Muted.Render("Nothing here yet. Press n to break something down."))
		b.WriteString("\n")
		return b.String()
	}

	width := m.width
	if width <= 0 {
		width = 80
	}
	cursor := clampCursor(s.cursor, len(view.Tasks))
	for i, t := range view.Tasks {
		prefix := "  "
		if i == cursor {
			prefix = styles.Cursor.Render("› ")
		}
		badge := styles.StateBadge(string(t.State), t.State.Label())
		title := util.Truncate(t.Title, width-len(t.State.Label())-8)
		b.WriteString(prefix + title + " " + badge)
		b.WriteString("\n")

		if t.ID == view.Confirming {
			b.WriteString(styles.Confirm.Render("Delete \"" + util.Truncate(t.Title, 40) + "\"? y / n"))
			b.WriteString("\n")
		}
	}

	if view.Message != "" {
		b.WriteString(styles.Message.Render(view.Message))
		b.WriteString("\n")
	}
	return b.String()
}

func (s *taskListScreen) Help(km keymap.KeyMap) keymap.Help {
	if s.list.Snapshot().Confirming != "" {
		return keymap.Help{km.Confirm, km.Cancel}
	}
	open := key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open"))
	return keymap.Help{km.Up, km.Down, open, km.Delete, km.NewTask, km.Refresh, km.Back, km.Quit}
}
