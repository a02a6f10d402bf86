// Package tui provides a terminal dashboard for Smarther chronothermostats.
package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/casaops/go-smarther/sdk/smarther"
)

// Color palette
var (
	colorPrimary   = lipgloss.Color("#7C3AED") // violet
	colorSuccess   = lipgloss.Color("#22C55E") // green
	colorWarning   = lipgloss.Color("#EAB308") // yellow
	colorError     = lipgloss.Color("#EF4444") // red
	colorInfo      = lipgloss.Color("#3B82F6") // blue
	colorMuted     = lipgloss.Color("#6B7280") // gray
	colorSurface   = lipgloss.Color("#313244") // slightly lighter
	colorText      = lipgloss.Color("#CDD6F4") // light text
	colorSubtext   = lipgloss.Color("#A6ADC8") // dimmer text
	colorBorder    = lipgloss.Color("#45475A") // border
	colorHighlight = lipgloss.Color("#F5C2E7") // pink highlight
)

// Module selector bar styles
var (
	moduleActiveStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#FFFFFF")).
				Background(colorPrimary).
				Padding(0, 2)

	moduleInactiveStyle = lipgloss.NewStyle().
				Foreground(colorSubtext).
				Background(colorSurface).
				Padding(0, 2)

	moduleBarStyle = lipgloss.NewStyle().
			Background(colorSurface).
			PaddingLeft(1)
)

// Content styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorHighlight).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(colorSubtext).
			Italic(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(colorInfo).
			Bold(true).
			Width(18)

	valueStyle = lipgloss.NewStyle().
			Foreground(colorText)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1).
			Height(2)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorError).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(colorSuccess)

	warningStyle = lipgloss.NewStyle().
			Foreground(colorWarning)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(colorSubtext).
			Background(colorSurface).
			PaddingLeft(1).
			PaddingRight(1)

	helpStyle = lipgloss.NewStyle().
			Foreground(colorMuted)
)

// Activity feed styles
var (
	activityInfoStyle  = lipgloss.NewStyle().Foreground(colorMuted)
	activityWarnStyle  = lipgloss.NewStyle().Foreground(colorWarning)
	activityErrorStyle = lipgloss.NewStyle().Foreground(colorError)
)

// Operating mode styles
var (
	modeAutomaticStyle = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
	modeManualStyle    = lipgloss.NewStyle().Foreground(colorInfo).Bold(true)
	modeBoostStyle     = lipgloss.NewStyle().Foreground(colorWarning).Bold(true)
	modeOffStyle       = lipgloss.NewStyle().Foreground(colorMuted).Bold(true)
)

func modeStyle(mode smarther.ThermostatMode) lipgloss.Style {
	switch mode {
	case smarther.ModeAutomatic:
		return modeAutomaticStyle
	case smarther.ModeManual:
		return modeManualStyle
	case smarther.ModeBoost:
		return modeBoostStyle
	case smarther.ModeOff, smarther.ModeProtection:
		return modeOffStyle
	default:
		return valueStyle
	}
}
