package output

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/trackshift/trackshift/internal/render"
)

// Writer is the command output channel. Structured results go to Stdout,
// run diagnostics to Stderr, so piping the JSON envelope or the import
// document stays safe even when a run warns about unresolved values along
// the way.
type Writer struct {
	JSONMode  bool
	QuietMode bool
	Stdout    io.Writer
	Stderr    io.Writer
}

// New creates a Writer configured by the given mode flags.
func New(jsonMode, quietMode bool) *Writer {
	return &Writer{
		JSONMode:  jsonMode,
		QuietMode: quietMode,
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
	}
}

// Success renders a successful result: the JSON envelope in JSON mode, the
// human message otherwise.
func (w *Writer) Success(data any, message string) {
	if w.JSONMode {
		writeJSONSuccess(w.Stdout, data, message)
		return
	}
	writeHumanSuccess(w.Stdout, message)
}

// Error renders an error. In JSON mode the error is wrapped in an error
// envelope on Stdout; in human mode it goes to Stderr with an "Error: "
// prefix. The corresponding exit code is returned for the caller to pass
// to os.Exit.
func (w *Writer) Error(err error, code ErrorCode) int {
	if w.JSONMode {
		writeJSONError(w.Stdout, err, code)
	} else {
		writeHumanError(w.Stderr, err)
	}
	return ExitCodeForError(code)
}

// Info reports run progress: fetch counts, deferred-link notices. Quiet
// mode and JSON mode drop it.
func (w *Writer) Info(format string, args ...any) {
	if w.QuietMode || w.JSONMode {
		return
	}
	w.diag("8", false, "ℹ", "", fmt.Sprintf(format, args...))
}

// Warn reports a non-fatal anomaly: an unresolved value, a degraded
// conversion, a relation deferred to the side table. Warnings survive
// quiet mode but not JSON mode, where the envelope on Stdout is the sole
// output channel.
func (w *Writer) Warn(format string, args ...any) {
	if w.JSONMode {
		return
	}
	w.diag("3", true, "⚠", "Warning:", fmt.Sprintf(format, args...))
}

// diag writes one diagnostic line to Stderr, styled when the terminal
// allows it. An empty label styles the message itself instead.
func (w *Writer) diag(color string, bold bool, icon, label, msg string) {
	if !render.ColorsEnabled() {
		if label != "" {
			fmt.Fprintf(w.Stderr, "%s %s\n", label, msg)
			return
		}
		fmt.Fprintln(w.Stderr, msg)
		return
	}

	style := lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Bold(bold)
	if label != "" {
		fmt.Fprintf(w.Stderr, "%s %s %s\n", style.Render(icon), style.Render(label), msg)
		return
	}
	fmt.Fprintf(w.Stderr, "%s %s\n", style.Render(icon), style.Render(msg))
}
