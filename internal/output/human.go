package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/trackshift/trackshift/internal/render"
)

// writeHumanSuccess prints a success message. One-line confirmations get a
// checkmark prefix; multi-line content (run summaries, conversion
// previews) is printed as-is so table borders survive.
func writeHumanSuccess(w io.Writer, message string) {
	if message == "" {
		return
	}
	if strings.Contains(message, "\n") {
		fmt.Fprintln(w, message)
		return
	}
	if !render.ColorsEnabled() {
		fmt.Fprintln(w, message)
		return
	}
	icon := lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Render("✔")
	fmt.Fprintf(w, "%s %s\n", icon, message)
}

// writeHumanError prints the failure with an "Error: " prefix.
func writeHumanError(w io.Writer, err error) {
	if !render.ColorsEnabled() {
		fmt.Fprintf(w, "Error: %s\n", err)
		return
	}
	style := lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	fmt.Fprintf(w, "%s %s %s\n", style.Render("✘"), style.Render("Error:"), err)
}
