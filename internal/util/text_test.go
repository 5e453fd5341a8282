package util

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxWidth int
		want     string
	}{
		{"short unchanged", "water plants", 20, "water plants"},
		{"exact unchanged", "hello", 5, "hello"},
		{"long truncated", "hello world", 8, "hello w…"},
		{"width one", "hello", 1, "…"},
		{"zero width", "hello", 0, ""},
		{"wide runes", "日本語テキスト", 7, "日本語…"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Truncate(tt.input, tt.maxWidth); got != tt.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.input, tt.maxWidth, got, tt.want)
			}
		})
	}
}

func TestTruncate_KeepsStyling(t *testing.T) {
	styled := lipgloss.NewStyle().Bold(true).Render("a rather long step description")
	got := Truncate(styled, 10)
	if w := lipgloss.Width(got); w > 10 {
		t.Errorf("Truncate() width = %d, want <= 10", w)
	}
	if !strings.HasSuffix(ansi.Strip(got), Ellipsis) {
		t.Errorf("Truncate() = %q, want ellipsis suffix", got)
	}
}

func TestWrap(t *testing.T) {
	got := Wrap("put the dishes in the sink", 10)
	for _, line := range strings.Split(got, "\n") {
		if lipgloss.Width(line) > 10 {
			t.Errorf("Wrap() line %q wider than 10", line)
		}
	}
	if Wrap("unchanged", 0) != "unchanged" {
		t.Error("Wrap() with zero width should return the input")
	}
}

func TestCounter(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", "0/200"},
		{"laundry", "7/200"},
		{"café", "4/200"},
	}
	for _, tt := range tests {
		if got := Counter(tt.input, 200); got != tt.want {
			t.Errorf("Counter(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestPlural(t *testing.T) {
	if got := Plural(1, "step"); got != "1 step" {
		t.Errorf("Plural(1) = %q", got)
	}
	if got := Plural(3, "step"); got != "3 steps" {
		t.Errorf("Plural(3) = %q", got)
	}
}
