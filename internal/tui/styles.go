package tui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	colorWhite     = lipgloss.Color("#FFFFFF")
	colorLightGray = lipgloss.Color("#CCCCCC")
	colorGray      = lipgloss.Color("#888888")
	colorDarkGray  = lipgloss.Color("#444444")
	colorGreen     = lipgloss.Color("#00FF00")
	colorYellow    = lipgloss.Color("#FFFF00")
	colorRed       = lipgloss.Color("#FF0000")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorWhite)

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorLightGray).
			MarginTop(1)

	participantStyle = lipgloss.NewStyle().
				Foreground(colorWhite).
				PaddingLeft(2)

	lockStyle = lipgloss.NewStyle().
			Foreground(colorYellow).
			Bold(true)

	onlineStyle = lipgloss.NewStyle().
			Foreground(colorGreen)

	offlineStyle = lipgloss.NewStyle().
			Foreground(colorRed)

	chatAuthorStyle = lipgloss.NewStyle().
			Foreground(colorWhite).
			Bold(true)

	chatTextStyle = lipgloss.NewStyle().
			Foreground(colorLightGray)

	promptStyle = lipgloss.NewStyle().
			Foreground(colorLightGray)

	borderStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(colorGray).
			Padding(0, 1)

	infoStyle = lipgloss.NewStyle().
			Foreground(colorGray).
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorRed).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(colorDarkGray).
			Italic(true)
)

const logo = `
  ┌┬┐┌─┐┌─┐┌─┐┬ ┬┬┌┬┐┌─┐
   │││ ││  └─┐│ ││ │ ├┤
  ─┴┘└─┘└─┘└─┘└─┘┴ ┴ └─┘
`
