package render

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
)

// ColorsEnabled reports whether styled terminal output should be used.
// NO_COLOR (any value) and TERM=dumb both disable it.
func ColorsEnabled() bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	return true
}

// RenderPreview shows a source description next to its converted wiki
// form, so a mapping author can eyeball a conversion before running a
// full export. The source half is pretty-printed as markdown when the
// terminal supports it; the converted half is always the raw wiki markup
// that would land in the import document.
func RenderPreview(subject, source, converted string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n", Truncate(subject, 80))

	if source != "" {
		b.WriteString("\n")
		b.WriteString(renderMarkdown(source))
		b.WriteString("\n")
	}

	b.WriteString("\n--- converted ---\n")
	b.WriteString(converted)
	return b.String()
}

// renderMarkdown pretty-prints markdown for the terminal, falling back to
// the raw text when colors are off or rendering fails.
func renderMarkdown(content string) string {
	if content == "" || !ColorsEnabled() {
		return content
	}
	rendered, err := glamour.RenderWithEnvironmentConfig(content)
	if err != nil {
		return content
	}
	return strings.TrimSpace(rendered)
}
