package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Iron-Ham/gentle/internal/errors"
	"github.com/Iron-Ham/gentle/internal/tui/keymap"
	"github.com/Iron-Ham/gentle/internal/tui/msg"
	"github.com/Iron-Ham/gentle/internal/tui/styles"
	"github.com/Iron-Ham/gentle/internal/workflow"
)

type signInPhase int

const (
	phaseEmail signInPhase = iota
	phaseCode
)

type menuItem struct {
	label string
	route workflow.Route
	// signOut items end the session instead of navigating.
	signOut bool
}

var welcomeMenu = []menuItem{
	{label: "Break down something new", route: workflow.DecomposeRoute()},
	{label: "My tasks", route: workflow.TaskListRoute()},
	{label: "Sign out", signOut: true},
}

// welcomeScreen is the home screen. Signed out, it collects an email and
// the one-time code sent to it; signed in, it offers the main actions.
type welcomeScreen struct {
	phase   signInPhase
	email   textinput.Model
	code    textinput.Model
	sentTo  string
	cursor  int
	pending bool
	message string
	ready   bool
}

func newWelcomeScreen() *welcomeScreen {
	return &welcomeScreen{}
}

func (s *welcomeScreen) Init(m *Model) tea.Cmd {
	if !s.ready {
		s.email = m.newInput("you@example.com", 254)
		s.email.Prompt = "Email: "
		s.code = m.newInput("123456", 10)
		s.code.Prompt = "Code:  "
		s.ready = true
	}
	if m.signedIn {
		return nil
	}
	return s.focus()
}

func (s *welcomeScreen) focus() tea.Cmd {
	if s.phase == phaseCode {
		s.email.Blur()
		return s.code.Focus()
	}
	s.code.Blur()
	return s.email.Focus()
}

func (s *welcomeScreen) Busy() bool   { return s.pending }
func (s *welcomeScreen) Close()       {}
func (s *welcomeScreen) Typing() bool { return s.email.Focused() || s.code.Focused() }

func (s *welcomeScreen) Update(m *Model, message tea.Msg) tea.Cmd {
	switch message := message.(type) {
	case msg.CodeSentMsg:
		s.pending = false
		if message.Err != nil {
			s.message = errors.UserMessage(message.Err, "We couldn't send a code. Let's try again.")
			m.logger.Error("send sign-in code failed", "error", message.Err.Error())
			return nil
		}
		s.sentTo = message.Email
		s.phase = phaseCode
		s.message = ""
		s.code.Reset()
		return s.focus()

	case msg.SignedInMsg:
		s.pending = false
		if message.Err != nil {
			s.message = errors.UserMessage(message.Err, "That code didn't work. Let's try again.")
			m.logger.Error("verify sign-in code failed", "error", message.Err.Error())
			return nil
		}
		m.signedIn = true
		if message.Session != nil {
			m.email = message.Session.User.Email
		}
		s.reset()
		return nil

	case msg.SignedOutMsg:
		s.pending = false
		if message.Err != nil {
			m.logger.Warn("sign out failed", "error", message.Err.Error())
		}
		m.signedIn = false
		m.email = ""
		s.reset()
		return s.focus()

	case msg.AuthChangedMsg:
		if !message.SignedIn {
			return s.focus()
		}
		s.reset()
		return nil

	case tea.KeyMsg:
		if m.signedIn {
			return s.updateMenu(m, message)
		}
		return s.updateSignIn(m, message)
	}
	return nil
}

func (s *welcomeScreen) reset() {
	s.phase = phaseEmail
	s.sentTo = ""
	s.message = ""
	s.cursor = 0
	s.email.Blur()
	s.code.Blur()
	s.code.Reset()
}

func (s *welcomeScreen) updateMenu(m *Model, k tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(k, m.keys.Up):
		s.cursor = max(0, s.cursor-1)
	case key.Matches(k, m.keys.Down):
		s.cursor = min(len(welcomeMenu)-1, s.cursor+1)
	case key.Matches(k, m.keys.NewTask):
		m.navigate(workflow.DecomposeRoute())
	case key.Matches(k, m.keys.Tasks):
		m.navigate(workflow.TaskListRoute())
	case key.Matches(k, m.keys.SignOut):
		return s.signOut(m)
	case key.Matches(k, m.keys.Select):
		item := welcomeMenu[s.cursor]
		if item.signOut {
			return s.signOut(m)
		}
		m.navigate(item.route)
	}
	return nil
}

func (s *welcomeScreen) signOut(m *Model) tea.Cmd {
	s.pending = true
	return msg.SignOut(m.ctx, m.env.Auth)
}

func (s *welcomeScreen) updateSignIn(m *Model, k tea.KeyMsg) tea.Cmd {
	switch {
	case k.Type == tea.KeyEnter && s.phase == phaseEmail:
		email := strings.TrimSpace(s.email.Value())
		if email == "" {
			s.message = "Please enter your email address."
			return nil
		}
		s.pending = true
		s.message = ""
		return msg.SendCode(m.ctx, m.env.Auth, email, m.env.Config.Auth.RedirectURL)

	case k.Type == tea.KeyEnter && s.phase == phaseCode:
		code := strings.TrimSpace(s.code.Value())
		if code == "" {
			s.message = "Please enter the code from your email."
			return nil
		}
		s.pending = true
		s.message = ""
		return msg.VerifyCode(m.ctx, m.env.Auth, s.sentTo, code)

	case key.Matches(k, m.keys.Back) && s.phase == phaseCode:
		s.phase = phaseEmail
		s.message = ""
		return s.focus()
	}

	var cmd tea.Cmd
	if s.phase == phaseCode {
		s.code, cmd = s.code.Update(k)
	} else {
		s.email, cmd = s.email.Update(k)
	}
	return cmd
}

func (s *welcomeScreen) View(m *Model) string {
	var b strings.Builder
	b.WriteString(styles.Title.Render("Hi there. Let's make today a little lighter."))
	b.WriteString("\n")

	if m.signedIn {
		for i, item := range welcomeMenu {
			if i == s.cursor {
				b.WriteString(styles.Cursor.Render("› ") + styles.ChoiceActive.Render(item.label))
			} else {
				b.WriteString("  " + styles.Choice.Render(item.label))
			}
			b.WriteString("\n")
		}
		return b.String()
	}

	b.WriteString(styles.Subtitle.Render("Sign in with a one-time code sent to your email."))
	b.WriteString("\n\n")
	b.WriteString(s.email.View())
	b.WriteString("\n")
	if s.phase == phaseCode {
		b.WriteString(styles.Muted.Render("We sent a code to " + s.sentTo + "."))
		b.WriteString("\n")
		b.WriteString(s.code.View())
		b.WriteString("\n")
	}
	if s.message != "" {
		b.WriteString(styles.Message.Render(s.message))
		b.WriteString("\n")
	}
	return b.String()
}

func (s *welcomeScreen) Help(km keymap.KeyMap) keymap.Help {
	if !s.Typing() {
		return keymap.Help{km.Up, km.Down, km.Select, km.NewTask, km.Tasks, km.SignOut, km.Quit}
	}
	submit := key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "continue"))
	if s.phase == phaseCode {
		return keymap.Help{submit, km.Back}
	}
	return keymap.Help{submit}
}
