package render

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	humanize "github.com/dustin/go-humanize"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/trackshift/trackshift/internal/assemble"
)

// Truncate shortens a string to maxLen runes, appending an ellipsis if truncated.
func Truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// EmptyState renders a styled empty-state message with an optional contextual hint.
// When colors are enabled the message is rendered in dim gray and the hint is italic.
// When quiet is true the hint is suppressed.
func EmptyState(message, hint string, quiet bool) string {
	if !ColorsEnabled() {
		if quiet || hint == "" {
			return message
		}
		return message + "\n" + hint
	}

	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	hintStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)

	result := dimStyle.Render(message)
	if !quiet && hint != "" {
		result += "\n" + hintStyle.Render(hint)
	}
	return result
}

// RenderSummary renders the export run summary as a two-column table.
func RenderSummary(s *assemble.Summary) string {
	if s == nil || s.Issues == 0 {
		return EmptyState("No issues exported.", "Widen the query with: trackshift export --query 'status_id=*'", false)
	}

	rows := summaryRows(s)

	if !ColorsEnabled() {
		var b strings.Builder
		for _, row := range rows {
			fmt.Fprintf(&b, "%-16s %s\n", row[0], row[1])
		}
		return strings.TrimRight(b.String(), "\n")
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("8"))).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := lipgloss.NewStyle().PaddingLeft(1).PaddingRight(1)
			if col == 0 {
				return s.Bold(true).Foreground(lipgloss.Color("15"))
			}
			return s
		})

	return t.Render()
}

func summaryRows(s *assemble.Summary) [][]string {
	rows := [][]string{
		{"Issues", humanize.Comma(int64(s.Issues))},
		{"Projects", humanize.Comma(int64(s.Projects))},
		{"Comments", humanize.Comma(int64(s.Comments))},
		{"Inline links", humanize.Comma(int64(s.InlineLinks))},
		{"Deferred links", humanize.Comma(int64(s.ExternalLinks))},
	}
	if s.Unresolved > 0 {
		rows = append(rows, []string{"Unresolved", humanize.Comma(int64(s.Unresolved))})
	}
	rows = append(rows, []string{"Elapsed", s.Elapsed.Round(time.Millisecond).String()})
	return rows
}
