package keymap

import (
	"testing"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

func TestDefault_Matches(t *testing.T) {
	km := Default()
	tests := []struct {
		name    string
		msg     tea.KeyMsg
		binding key.Binding
	}{
		{"enter selects", tea.KeyMsg{Type: tea.KeyEnter}, km.Select},
		{"space selects", tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}, km.Select},
		{"j moves down", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}}, km.Down},
		{"esc goes back", tea.KeyMsg{Type: tea.KeyEsc}, km.Back},
		{"ctrl+c quits", tea.KeyMsg{Type: tea.KeyCtrlC}, km.Quit},
		{"b is too big", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'b'}}, km.TooBig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !key.Matches(tt.msg, tt.binding) {
				t.Errorf("%q does not match %v", tt.msg.String(), tt.binding.Keys())
			}
		})
	}
}

func TestHelp_SkipsDisabled(t *testing.T) {
	km := Default()
	km.Delete.SetEnabled(false)
	h := Help{km.Select, km.Delete, km.Quit}

	short := h.ShortHelp()
	if len(short) != 2 {
		t.Fatalf("ShortHelp() len = %d, want 2", len(short))
	}
	for _, b := range short {
		if b.Help().Desc == "delete" {
			t.Error("ShortHelp() returned a disabled binding")
		}
	}
	if full := h.FullHelp(); len(full) != 1 || len(full[0]) != 2 {
		t.Errorf("FullHelp() = %v", full)
	}
}
