package render

import (
	"strings"
	"testing"
	"time"

	"github.com/trackshift/trackshift/internal/assemble"
)

func TestRenderSummaryPlain(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	s := &assemble.Summary{
		Issues:        1200,
		Projects:      3,
		Comments:      58,
		InlineLinks:   14,
		ExternalLinks: 2,
		Unresolved:    1,
		Elapsed:       1500 * time.Millisecond,
	}

	got := RenderSummary(s)

	for _, want := range []string{"Issues", "1,200", "Projects", "Deferred links", "Unresolved", "1.5s"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in output, got:\n%s", want, got)
		}
	}
}

func TestRenderSummaryOmitsUnresolvedWhenZero(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	got := RenderSummary(&assemble.Summary{Issues: 1})
	if strings.Contains(got, "Unresolved") {
		t.Errorf("expected no Unresolved row, got:\n%s", got)
	}
}

func TestRenderSummaryEmpty(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	got := RenderSummary(nil)
	if !strings.Contains(got, "No issues exported.") {
		t.Errorf("expected empty state, got:\n%s", got)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in     string
		maxLen int
		want   string
	}{
		{"short", 10, "short"},
		{"exactly-ten", 11, "exactly-ten"},
		{"this one is definitely too long", 10, "this on..."},
		{"ab", 2, "ab"},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.maxLen); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.maxLen, got, tt.want)
		}
	}
}
