package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
)

var (
	keyword = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#04B575")).
		Render

	paragraph = lipgloss.NewStyle().
			Width(78).
			Padding(0, 0, 0, 2).
			Render
)

// CLI output colors.
var (
	successColor = color.New(color.FgGreen, color.Bold)
	warnColor    = color.New(color.FgYellow)
	detailColor  = color.New(color.Faint)
)

func status(w io.Writer, format string, args ...any) {
	_, _ = successColor.Fprint(w, "● ")
	fmt.Fprintf(w, format+"\n", args...)
}

func warn(w io.Writer, format string, args ...any) {
	_, _ = warnColor.Fprintf(w, "● "+format+"\n", args...)
}

func detail(w io.Writer, format string, args ...any) {
	_, _ = detailColor.Fprintf(w, "  "+format+"\n", args...)
}
