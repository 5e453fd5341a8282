package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Iron-Ham/gentle/internal/tui/keymap"
	"github.com/Iron-Ham/gentle/internal/tui/styles"
	"github.com/Iron-Ham/gentle/internal/util"
	"github.com/Iron-Ham/gentle/internal/workflow"
)

type celebrateScreen struct {
	celebration workflow.Celebration
}

func newCelebrateScreen(c workflow.Celebration) *celebrateScreen {
	return &celebrateScreen{celebration: c}
}

func (s *celebrateScreen) Init(*Model) tea.Cmd { return nil }
func (s *celebrateScreen) Busy() bool          { return false }
func (s *celebrateScreen) Typing() bool        { return false }
func (s *celebrateScreen) Close()              {}

func (s *celebrateScreen) Update(m *Model, message tea.Msg) tea.Cmd {
	k, ok := message.(tea.KeyMsg)
	if !ok {
		return nil
	}
	switch {
	case key.Matches(k, m.keys.Select):
		m.navigate(s.celebration.NextRoute())
	case key.Matches(k, m.keys.NewTask):
		m.navigate(workflow.DecomposeRoute())
	case key.Matches(k, m.keys.Tasks):
		m.navigate(workflow.TaskListRoute())
	}
	return nil
}

func (s *celebrateScreen) View(m *Model) string {
	c := s.celebration.Cheer
	var b strings.Builder
	if m.env.Config.TUI.ReducedMotion {
		b.WriteString(styles.CelebrateTitle.Render(c.Title))
	} else {
		b.WriteString(styles.CelebrateTitle.Render(c.Emoji + "  " + c.Title + "  " + c.Emoji))
	}
	b.WriteString("\n")
	b.WriteString(styles.Subtitle.Render(c.Subtitle))
	b.WriteString("\n\n")
	if s.celebration.Completed {
		b.WriteString(styles.Secondary.Render("You finished the whole task."))
		b.WriteString("\n\n")
	}
	width := m.width
	if width <= 0 {
		width = 60
	}
	b.WriteString(styles.Quote.Render(util.Wrap(c.Quote, min(width, 70)-4)))
	b.WriteString("\n")
	return b.String()
}

func (s *celebrateScreen) Help(km keymap.KeyMap) keymap.Help {
	next := key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "continue"))
	return keymap.Help{next, km.NewTask, km.Tasks, km.Quit}
}
