package output

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

var (
	changeNumberStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	dimStyle          = lipgloss.NewStyle().Faint(true)
	openStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	mergedStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("5"))
	abandonedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	currentStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
)

// ConfigureColors disables styling when stdout is not a terminal or NO_COLOR is set
func ConfigureColors() {
	fd := os.Stdout.Fd()
	if os.Getenv("NO_COLOR") != "" || !(isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)) {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

// ChangeNumber styles a change number
func ChangeNumber(number string) string {
	return changeNumberStyle.Render(number)
}

// Dim renders secondary text
func Dim(text string) string {
	return dimStyle.Render(text)
}

// Current marks the change at HEAD
func Current(text string) string {
	return currentStyle.Render(text + " (current)")
}

// Status renders a change status the way the review UI names it
func Status(status string, wip bool) string {
	switch status {
	case "MERGED":
		return mergedStyle.Render("merged")
	case "ABANDONED":
		return abandonedStyle.Render("closed")
	default:
		if wip {
			return dimStyle.Render("wip")
		}
		return openStyle.Render("open")
	}
}

// ChangeLabel formats `NUMBER (subject)`
func ChangeLabel(number string, subject string) string {
	if subject == "" {
		return ChangeNumber(number)
	}
	return ChangeNumber(number) + " " + Dim("("+subject+")")
}
