// Package styles holds the lipgloss palette of the terminal UI.
package styles

import "github.com/charmbracelet/lipgloss"

var (
	// Colors. Soft on purpose: the app is for people who feel overwhelmed.
	PrimaryColor   = lipgloss.Color("#A78BFA") // Lavender
	SecondaryColor = lipgloss.Color("#34D399") // Mint
	WarningColor   = lipgloss.Color("#FBBF24") // Amber
	ErrorColor     = lipgloss.Color("#F87171") // Red
	MutedColor     = lipgloss.Color("#9CA3AF") // Gray
	SurfaceColor   = lipgloss.Color("#1F2937") // Dark surface
	TextColor      = lipgloss.Color("#F9FAFB") // Light text
	BorderColor    = lipgloss.Color("#6B7280") // Gray
	CelebrateColor = lipgloss.Color("#F472B6") // Pink

	// Progress bar gradient endpoints.
	ProgressFrom = "#A78BFA"
	ProgressTo   = "#34D399"

	// Convenience styles for colors
	Primary   = lipgloss.NewStyle().Foreground(PrimaryColor)
	Secondary = lipgloss.NewStyle().Foreground(SecondaryColor)
	Warning   = lipgloss.NewStyle().Foreground(WarningColor)
	Error     = lipgloss.NewStyle().Foreground(ErrorColor)
	Muted     = lipgloss.NewStyle().Foreground(MutedColor)
	Text      = lipgloss.NewStyle().Foreground(TextColor)

	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(PrimaryColor).
		MarginBottom(1)

	Subtitle = lipgloss.NewStyle().
			Foreground(MutedColor).
			Italic(true)

	Header = lipgloss.NewStyle().
		Bold(true).
		Foreground(PrimaryColor).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(BorderColor).
		MarginBottom(1)

	ContentBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(BorderColor).
			Padding(1, 2)

	HelpBar = lipgloss.NewStyle().
		Foreground(MutedColor).
		MarginTop(1)

	// Choice is an unselected option; ChoiceActive the one under the cursor.
	Choice = lipgloss.NewStyle().
		Foreground(TextColor).
		Padding(0, 1)

	ChoiceActive = lipgloss.NewStyle().
			Bold(true).
			Foreground(SurfaceColor).
			Background(PrimaryColor).
			Padding(0, 1)

	// Step rows.
	StepPending = lipgloss.NewStyle().Foreground(TextColor)
	StepDone    = lipgloss.NewStyle().
			Foreground(MutedColor).
			Strikethrough(true)
	StepNext = lipgloss.NewStyle().
			Bold(true).
			Foreground(SecondaryColor)
	StepJustDone = lipgloss.NewStyle().
			Bold(true).
			Foreground(CelebrateColor)
	Rationale = lipgloss.NewStyle().
			Foreground(MutedColor).
			Italic(true).
			PaddingLeft(4)

	Cursor = lipgloss.NewStyle().Foreground(PrimaryColor).Bold(true)

	FieldError = lipgloss.NewStyle().Foreground(ErrorColor)
	Message    = lipgloss.NewStyle().
			Foreground(WarningColor).
			MarginTop(1)

	Confirm = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(WarningColor).
		Padding(0, 1)

	Banner = lipgloss.NewStyle().
		Bold(true).
		Foreground(SurfaceColor).
		Background(CelebrateColor).
		Padding(0, 2)

	CelebrateTitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(CelebrateColor)

	Quote = lipgloss.NewStyle().
		Foreground(MutedColor).
		Italic(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(PrimaryColor).
		PaddingLeft(1)

	Badge = lipgloss.NewStyle().
		Padding(0, 1).
		Foreground(SurfaceColor)
)

// StateBadge renders a task state label with a color per state.
func StateBadge(state, label string) string {
	bg := MutedColor
	switch state {
	case "active":
		bg = WarningColor
	case "done":
		bg = SecondaryColor
	case "archived":
		bg = BorderColor
	}
	return Badge.Background(bg).Render(label)
}
