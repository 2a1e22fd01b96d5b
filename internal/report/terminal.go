package report

import (
	"github.com/charmbracelet/lipgloss"

	"cryptoSignalBot/internal/domain"
)

var (
	primaryColor   = lipgloss.Color("#0077cc")
	secondaryColor = lipgloss.Color("#333333")
	errorColor     = lipgloss.Color("#cc3300")
	successColor   = lipgloss.Color("#33cc33")
	warningColor   = lipgloss.Color("#cccc00")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ffffff")).
			Background(primaryColor).
			Padding(0, 1)
	sectionStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(secondaryColor).
			Padding(0, 1)
)

// labelStyle colors a section border by signal direction.
func labelStyle(label domain.SignalLabel) lipgloss.Style {
	switch label {
	case domain.LabelBuy:
		return sectionStyle.BorderForeground(successColor)
	case domain.LabelSell:
		return sectionStyle.BorderForeground(errorColor)
	default:
		return sectionStyle.BorderForeground(warningColor)
	}
}

// RenderTitle renders a highlighted heading line.
func RenderTitle(title string) string {
	return titleStyle.Render(title)
}

// RenderSection renders text in a bordered box.
func RenderSection(body string) string {
	return sectionStyle.Render(body)
}

// RenderSignal renders a signal message in a box colored by its label.
func RenderSignal(label domain.SignalLabel, body string) string {
	return labelStyle(label).Render(body)
}
