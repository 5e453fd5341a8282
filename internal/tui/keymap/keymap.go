// Package keymap defines the key bindings of the terminal UI.
//
// Each screen enables the subset of bindings it handles; Help returns the
// enabled ones for the help bar.
package keymap

import "github.com/charmbracelet/bubbles/key"

// KeyMap is every binding used by the UI.
type KeyMap struct {
	Up      key.Binding
	Down    key.Binding
	Left    key.Binding
	Right   key.Binding
	Select  key.Binding
	Back    key.Binding
	Quit    key.Binding
	NewTask key.Binding
	Tasks   key.Binding
	SignOut key.Binding
	TooBig  key.Binding
	Delete  key.Binding
	Confirm key.Binding
	Cancel  key.Binding
	Restart key.Binding
	Refresh key.Binding
	Dismiss key.Binding
}

// Default returns the default bindings.
func Default() KeyMap {
	return KeyMap{
		Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Left:    key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "less")),
		Right:   key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "more")),
		Select:  key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "select")),
		Back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		Quit:    key.NewBinding(key.WithKeys("ctrl+c", "q"), key.WithHelp("q", "quit")),
		NewTask: key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new breakdown")),
		Tasks:   key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "my tasks")),
		SignOut: key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "sign out")),
		TooBig:  key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "too big")),
		Delete:  key.NewBinding(key.WithKeys("d", "x"), key.WithHelp("d", "delete")),
		Confirm: key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "yes, delete")),
		Cancel:  key.NewBinding(key.WithKeys("n", "esc"), key.WithHelp("n", "keep it")),
		Restart: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "start over")),
		Refresh: key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "refresh")),
		Dismiss: key.NewBinding(key.WithKeys("ctrl+x"), key.WithHelp("ctrl+x", "dismiss")),
	}
}

// Help is a list of bindings that satisfies help.KeyMap.
type Help []key.Binding

// ShortHelp returns the enabled bindings.
func (h Help) ShortHelp() []key.Binding {
	out := make([]key.Binding, 0, len(h))
	for _, b := range h {
		if b.Enabled() {
			out = append(out, b)
		}
	}
	return out
}

// FullHelp returns the enabled bindings as a single column.
func (h Help) FullHelp() [][]key.Binding {
	return [][]key.Binding{h.ShortHelp()}
}
