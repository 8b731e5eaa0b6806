// Package report выводит итоги пакетных задач в консоль и в XLSX.
package report

import "github.com/charmbracelet/lipgloss"

var (
	success = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	warning = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	failure = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	info    = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	dim     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	heading = lipgloss.NewStyle().Bold(true).Underline(true)

	successPrefix = success.Render("✓")
	warningPrefix = warning.Render("⚠")
	errorPrefix   = failure.Render("✗")
	arrowPrefix   = info.Render("→")
)
