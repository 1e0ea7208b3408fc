package tui

import "github.com/charmbracelet/lipgloss"

// Color palette.
var (
	colorRed       = lipgloss.Color("#ff5555")
	colorGreen     = lipgloss.Color("#50fa7b")
	colorYellow    = lipgloss.Color("#f1fa8c")
	colorBlue      = lipgloss.Color("#8be9fd")
	colorPurple    = lipgloss.Color("#bd93f9")
	colorDim       = lipgloss.Color("#6272a4")
	colorFg        = lipgloss.Color("#f8f8f2")
	colorOrange    = lipgloss.Color("#ffb86c")
	colorBorder    = lipgloss.Color("#44475a")
	colorHighlight = lipgloss.Color("#44475a")
)

// Style definitions.
var (
	// Tree panel styles
	treePanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)

	agentRowStyle = lipgloss.NewStyle().
			Foreground(colorFg)

	agentRowSelectedStyle = lipgloss.NewStyle().
				Foreground(colorFg).
				Background(colorHighlight).
				Bold(true)

	toolRowStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	agentToolRowStyle = lipgloss.NewStyle().
				Foreground(colorPurple)

	// Detail panel styles
	detailPanelStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(colorBorder).
				Padding(0, 1)

	detailLabelStyle = lipgloss.NewStyle().
				Foreground(colorDim)

	// Timeline styles
	laneBlockStyle = lipgloss.NewStyle().
			Foreground(colorBlue)

	laneBlockFailedStyle = lipgloss.NewStyle().
				Foreground(colorRed)

	laneBlockRunningStyle = lipgloss.NewStyle().
				Foreground(colorYellow)

	// Status colors
	statusCompletedStyle = lipgloss.NewStyle().Foreground(colorGreen)
	statusFailedStyle    = lipgloss.NewStyle().Foreground(colorRed)
	statusRunningStyle   = lipgloss.NewStyle().Foreground(colorYellow)
	statusPendingStyle   = lipgloss.NewStyle().Foreground(colorOrange)

	// Chrome
	statusBarStyle = lipgloss.NewStyle().
			Foreground(colorFg).
			Background(colorBorder).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	errStyle = lipgloss.NewStyle().
			Foreground(colorRed)
)
