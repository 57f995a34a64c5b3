package tui

import "github.com/charmbracelet/lipgloss"

// Styles used throughout the TUI.
var (
	styleStatusBar = lipgloss.NewStyle().
			Background(lipgloss.Color("58")).
			Foreground(lipgloss.Color("230")).
			Bold(true)

	styleInputPrompt = lipgloss.NewStyle().
				Foreground(lipgloss.Color("178"))

	styleSpinner = lipgloss.NewStyle().
			Foreground(lipgloss.Color("178"))

	styleNarration = lipgloss.NewStyle().
			Foreground(lipgloss.Color("230"))

	styleBanner = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("220")).
			Align(lipgloss.Center)

	stylePlayerInput = lipgloss.NewStyle().
				Foreground(lipgloss.Color("34"))

	styleSystem = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	styleError = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	styleSettlement = lipgloss.NewStyle().
			Foreground(lipgloss.Color("180")).
			Italic(true)

	styleCheck = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("178")).
			Padding(0, 1)

	styleCheckTitle = lipgloss.NewStyle().
			Bold(true)

	styleDice = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214"))

	styleHint = lipgloss.NewStyle().
			Foreground(lipgloss.Color("178")).
			Italic(true)

	styleOption = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	styleOptionChosen = lipgloss.NewStyle().
				Foreground(lipgloss.Color("220")).
				Bold(true)

	styleFaint = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	styleVitalLow = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)
)
