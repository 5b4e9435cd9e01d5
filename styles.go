package main

import "github.com/charmbracelet/lipgloss"

type styles struct {
	header lipgloss.Style
	label  lipgloss.Style
	addr   lipgloss.Style
	data   lipgloss.Style
	blank  lipgloss.Style
	ascii  lipgloss.Style
	ok     lipgloss.Style
	warn   lipgloss.Style
	err    lipgloss.Style
}

// ANSI Color reference
// 1	Red
// 2	Green
// 3	Yellow
// 4	Blue
// 6	Cyan
// 8	Bright Black (Gray)

func newStyles() styles {
	return styles{
		header: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.ANSIColor(4)),
		label:  lipgloss.NewStyle().Foreground(lipgloss.ANSIColor(6)),
		addr:   lipgloss.NewStyle().Foreground(lipgloss.ANSIColor(4)),
		data:   lipgloss.NewStyle().Bold(true),
		blank:  lipgloss.NewStyle().Foreground(lipgloss.ANSIColor(8)),
		ascii:  lipgloss.NewStyle().Foreground(lipgloss.ANSIColor(8)),
		ok:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.ANSIColor(2)),
		warn:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.ANSIColor(3)),
		err:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.ANSIColor(7)).Background(lipgloss.ANSIColor(1)),
	}
}
