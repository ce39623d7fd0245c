package commands

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	iris  = lipgloss.Color("#8B5CF6")
	slate = lipgloss.Color("#667085")
	green = lipgloss.Color("#22A06B")
	red   = lipgloss.Color("#D93025")

	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(iris)
	mutedStyle   = lipgloss.NewStyle().Foreground(slate)
	successStyle = lipgloss.NewStyle().Foreground(green)
	warnStyle    = lipgloss.NewStyle().Foreground(red)
	bodyStyle    = lipgloss.NewStyle().PaddingLeft(2).Width(80)
)

const (
	check = "✓"
	cross = "✗"
)

func printSuccess(w io.Writer, msg string) {
	_, _ = fmt.Fprintln(w, successStyle.Render(check+" "+msg))
}

// printStale warns that the value shown is cached and its refresh failed.
func printStale(w io.Writer, err error) {
	_, _ = fmt.Fprintln(w, warnStyle.Render(cross+" showing cached data, refresh failed: "+err.Error()))
}
