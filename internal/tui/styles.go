package tui

import "github.com/charmbracelet/lipgloss"

// Color palette
var (
	Primary    = lipgloss.Color("#7C3AED") // Purple
	Error      = lipgloss.Color("#EF4444") // Red
	TextNormal = lipgloss.Color("#F9FAFB")
	TextMuted  = lipgloss.Color("#6B7280")
	BgSelected = lipgloss.Color("#374151")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Primary).
			MarginBottom(1)

	itemStyle = lipgloss.NewStyle().
			Foreground(TextNormal).
			PaddingLeft(2)

	selectedStyle = lipgloss.NewStyle().
			Foreground(TextNormal).
			Background(BgSelected).
			PaddingLeft(1).
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(Primary)

	activeStyle = lipgloss.NewStyle().Bold(true).Foreground(Primary)

	pathStyle = lipgloss.NewStyle().Foreground(TextMuted)

	statusStyle = lipgloss.NewStyle().Foreground(TextMuted).MarginTop(1)

	errorStyle = lipgloss.NewStyle().Foreground(Error).MarginTop(1)

	helpStyle = lipgloss.NewStyle().Foreground(TextMuted)
)
