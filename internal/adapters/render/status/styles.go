package status

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title       lipgloss.Style
	header      lipgloss.Style
	principal   lipgloss.Style
	detail      lipgloss.Style
	label       lipgloss.Style
	warning     lipgloss.Style
	section     lipgloss.Style
	empty       lipgloss.Style
	symbol      lipgloss.Style
	amount      lipgloss.Style
	unavailable lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:       lipgloss.NewStyle().Bold(true),
		header:      lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		principal:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		detail:      lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		label:       lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		warning:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		section:     lipgloss.NewStyle().MarginTop(1),
		empty:       lipgloss.NewStyle().Faint(true),
		symbol:      lipgloss.NewStyle().Bold(true).Width(8),
		amount:      lipgloss.NewStyle().Foreground(lipgloss.Color("159")).Width(24).Align(lipgloss.Right),
		unavailable: lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Width(24).Align(lipgloss.Right),
	}
}
