package mapping

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
)

// ConsolePrompter collects mapping decisions interactively on the terminal.
// It implements Prompter with a huh form: a destination-type select when the
// resource type admits more than one, then a free-text value input. An empty
// value leaves the source value unmapped.
type ConsolePrompter struct{}

// ResolveValue blocks until the operator answers or aborts the form.
// Aborting the form (ctrl-c) is reported as an error so the run can stop
// without emitting partial output.
func (ConsolePrompter) ResolveValue(req Request) (Response, error) {
	dest := req.DestTypes[0]
	var value string

	scope := ""
	if req.ProjectKey != "" {
		scope = fmt.Sprintf(" (project %s)", req.ProjectKey)
	}
	title := fmt.Sprintf("Missing value mapping for %s %q%s", req.Resource, req.SourceValue, scope)

	fields := []huh.Field{}
	if len(req.DestTypes) > 1 {
		opts := make([]huh.Option[string], 0, len(req.DestTypes))
		for _, d := range req.DestTypes {
			opts = append(opts, huh.NewOption(d, d))
		}
		fields = append(fields, huh.NewSelect[string]().
			Title(title).
			Description("Choose a target resource type").
			Options(opts...).
			Value(&dest))
		fields = append(fields, huh.NewInput().
			Title("Destination value").
			Description("Leave empty to keep this value unmapped").
			Value(&value))
	} else {
		fields = append(fields, huh.NewInput().
			Title(title).
			Description(fmt.Sprintf("Destination value for %s (empty keeps it unmapped)", dest)).
			Value(&value))
	}

	form := huh.NewForm(huh.NewGroup(fields...))
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return Response{}, fmt.Errorf("resolution aborted by operator: %w", err)
		}
		return Response{}, fmt.Errorf("interactive form failed: %w", err)
	}

	if value == "" {
		return Response{Skip: true}, nil
	}
	return Response{Dest: dest, Value: value}, nil
}
