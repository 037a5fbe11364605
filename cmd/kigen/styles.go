package main

import "github.com/charmbracelet/lipgloss"

var (
	moduleNameStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	providerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("36"))
	dimStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	staleStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203"))
	okStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)
