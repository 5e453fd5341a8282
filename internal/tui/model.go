package tui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Iron-Ham/gentle/internal/config"
	"github.com/Iron-Ham/gentle/internal/logging"
	"github.com/Iron-Ham/gentle/internal/realtime"
	"github.com/Iron-Ham/gentle/internal/tui/keymap"
	"github.com/Iron-Ham/gentle/internal/tui/msg"
	"github.com/Iron-Ham/gentle/internal/tui/styles"
	"github.com/Iron-Ham/gentle/internal/workflow"
)

// TickInterval is how often time-based state is re-rendered.
const TickInterval = 250 * time.Millisecond

// BannerSource provides the realtime celebration banner.
// *realtime.Listener implements it.
type BannerSource interface {
	Banner() realtime.Banner
	Dismiss()
}

// Env is everything the UI needs from the application context.
type Env struct {
	Deps   workflow.Deps
	Router *workflow.Router
	Auth   msg.Authenticator
	Banner BannerSource
	Config *config.Config
}

// screen is the UI of one route. A screen owns its view model and closes it
// when the route changes.
type screen interface {
	Init(m *Model) tea.Cmd
	Update(m *Model, message tea.Msg) tea.Cmd
	View(m *Model) string
	Help(km keymap.KeyMap) keymap.Help
	// Busy reports a request in flight; keys are ignored meanwhile.
	Busy() bool
	// Typing reports that a text input has focus, so letter shortcuts are
	// delivered to it.
	Typing() bool
	Close()
}

// Model is the bubbletea model. Screens keep their state behind pointers,
// so copies of Model share it.
type Model struct {
	ctx     context.Context
	env     Env
	logger  *logging.Logger
	keys    keymap.KeyMap
	help    help.Model
	spinner spinner.Model

	route  workflow.Route
	screen screen

	email    string
	signedIn bool

	width    int
	height   int
	quitting bool
}

// NewModel creates the model at the router's current route.
func NewModel(ctx context.Context, env Env) Model {
	if env.Config == nil {
		env.Config = config.Default()
	}
	logger := env.Deps.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}
	m := Model{
		ctx:     ctx,
		env:     env,
		logger:  logger.WithView("tui"),
		keys:    keymap.Default(),
		help:    help.New(),
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.Primary)),
	}
	if session, err := env.Auth.GetSession(ctx); err != nil {
		m.logger.Warn("read session failed", "error", err.Error())
	} else if session != nil {
		m.signedIn = true
		m.email = session.User.Email
	}
	if !m.signedIn && env.Router.Current().Kind != workflow.RouteWelcome {
		env.Router.Reset(workflow.WelcomeRoute())
	}
	m.route = env.Router.Current()
	m.screen = m.newScreen(m.route)
	return m
}

// Init starts the tick loop and the first screen.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{msg.Tick(TickInterval), m.screen.Init(&m)}
	if !m.env.Config.TUI.ReducedMotion {
		cmds = append(cmds, m.spinner.Tick)
	}
	return tea.Batch(cmds...)
}

// Update handles messages and updates the model.
func (m Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch message := message.(type) {
	case tea.WindowSizeMsg:
		m.width = message.Width
		m.height = message.Height
		m.help.Width = message.Width
		return m, nil

	case spinner.TickMsg:
		m.spinner, cmd = m.spinner.Update(message)
		return m, cmd

	case msg.TickMsg:
		return m, tea.Batch(msg.Tick(TickInterval), m.sync())

	case msg.CelebrationMsg:
		return m, nil

	case msg.AuthChangedMsg:
		m.signedIn = message.SignedIn
		m.email = message.Email
		cmd = m.screen.Update(&m, message)

	case tea.KeyMsg:
		if message.Type == tea.KeyCtrlC {
			return m.quit()
		}
		if m.screen.Busy() {
			return m, nil
		}
		if key.Matches(message, m.keys.Dismiss) && m.env.Banner != nil && m.env.Banner.Banner().Visible {
			m.env.Banner.Dismiss()
			return m, nil
		}
		if !m.screen.Typing() && key.Matches(message, m.keys.Quit) {
			return m.quit()
		}
		cmd = m.screen.Update(&m, message)

	default:
		cmd = m.screen.Update(&m, message)
	}
	return m, tea.Batch(cmd, m.sync())
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	m.screen.Close()
	return m, tea.Quit
}

// sync follows the router. A signed-out user is always sent back to the
// welcome screen.
func (m *Model) sync() tea.Cmd {
	current := m.env.Router.Current()
	if !m.signedIn && current.Kind != workflow.RouteWelcome {
		m.env.Router.Reset(workflow.WelcomeRoute())
		current = m.env.Router.Current()
	}
	if current == m.route {
		return nil
	}
	m.logger.Debug("screen changed", "from", m.route.String(), "to", current.String())
	m.screen.Close()
	m.route = current
	m.screen = m.newScreen(current)
	return m.screen.Init(m)
}

func (m *Model) newScreen(r workflow.Route) screen {
	switch r.Kind {
	case workflow.RouteTaskList:
		return newTaskListScreen(m.ctx, m.env.Deps)
	case workflow.RouteTaskDetail:
		return newDetailScreen(m.ctx, m.env.Deps, r.TaskID)
	case workflow.RouteDecompose:
		return newDecomposeScreen(m.ctx, m.env.Deps, m.env.Config.Decompose.DefaultEnergy)
	case workflow.RouteCelebrate:
		return newCelebrateScreen(workflow.NewCelebration(r))
	default:
		return newWelcomeScreen()
	}
}

// navigate moves to r through the router; the screen follows on sync.
func (m *Model) navigate(r workflow.Route) {
	m.env.Router.Navigate(r)
}

// back returns to the previous route, or the welcome screen.
func (m *Model) back() {
	if _, ok := m.env.Router.Back(); !ok {
		m.env.Router.Navigate(workflow.WelcomeRoute())
	}
}

// newInput returns a text input styled for the app. Blinking follows the
// reduced-motion setting.
func (m *Model) newInput(placeholder string, limit int) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = limit
	ti.Width = 50
	ti.PromptStyle = styles.Primary
	if m.env.Config.TUI.ReducedMotion {
		ti.Cursor.SetMode(cursor.CursorStatic)
	}
	return ti
}

// View renders the current screen.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	header := "gentle"
	if m.signedIn && m.email != "" {
		header += styles.Muted.Render("  " + m.email)
	}
	b.WriteString(styles.Header.Render(header))
	b.WriteString("\n")

	if m.env.Banner != nil {
		if banner := m.env.Banner.Banner(); banner.Visible {
			b.WriteString(styles.Banner.Render("🎉 " + banner.Message))
			b.WriteString("\n\n")
		}
	}

	b.WriteString(m.screen.View(&m))

	if m.screen.Busy() {
		b.WriteString("\n")
		if m.env.Config.TUI.ReducedMotion {
			b.WriteString(styles.Muted.Render("Working…"))
		} else {
			b.WriteString(m.spinner.View() + styles.Muted.Render(" Working…"))
		}
	}

	helpKeys := m.screen.Help(m.keys)
	if m.env.Banner != nil && m.env.Banner.Banner().Visible {
		helpKeys = append(helpKeys, m.keys.Dismiss)
	}
	b.WriteString("\n")
	b.WriteString(styles.HelpBar.Render(m.help.View(helpKeys)))

	out := b.String()
	if m.width > 0 {
		out = lipgloss.NewStyle().MaxWidth(m.width).Render(out)
	}
	return out
}
