package mapping

import (
	"errors"
	"testing"

	"github.com/trackshift/trackshift/internal/config"
)

// countingPrompter answers every request with a fixed response and counts
// how often it was consulted.
type countingPrompter struct {
	resp  Response
	err   error
	calls int
}

func (p *countingPrompter) ResolveValue(req Request) (Response, error) {
	p.calls++
	return p.resp, p.err
}

func testConfig() *config.Config {
	return &config.Config{
		Mappings: []config.ResourceMapping{
			{
				Resource: ResourceStatus,
				Dest:     DestStatus,
				Values:   map[string]string{"New": "Open"},
			},
			{
				Resource: ResourceCategory,
				Dest:     DestComponent,
				Values:   map[string]string{"Backend": "Server"},
				Projects: map[string]map[string]string{
					"acme": {"Backend": "Core"},
				},
			},
			{
				Resource: ResourceCategory,
				Dest:     DestLabel,
				Values:   map[string]string{"Misc": "misc"},
			},
		},
	}
}

func TestResolveGlobalStatic(t *testing.T) {
	r := NewResolver(testConfig(), nil, nil)

	d, err := r.Resolve(ResourceStatus, "New", "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if d.Value != "Open" || d.Dest != DestStatus {
		t.Errorf("decision = %+v, want Open/%s", d, DestStatus)
	}
}

func TestResolveProjectOverridesGlobal(t *testing.T) {
	r := NewResolver(testConfig(), nil, nil)

	d, err := r.Resolve(ResourceCategory, "Backend", "acme")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if d.Value != "Core" {
		t.Errorf("value = %q, want project override %q", d.Value, "Core")
	}

	d, err = r.Resolve(ResourceCategory, "Backend", "other")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if d.Value != "Server" {
		t.Errorf("value = %q, want global %q", d.Value, "Server")
	}
}

func TestResolveSecondDestType(t *testing.T) {
	r := NewResolver(testConfig(), nil, nil)

	// "Misc" only exists under the label dest; the component table misses.
	d, err := r.Resolve(ResourceCategory, "Misc", "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if d.Dest != DestLabel || d.Value != "misc" {
		t.Errorf("decision = %+v, want misc/%s", d, DestLabel)
	}
}

func TestResolveNoDestType(t *testing.T) {
	r := NewResolver(testConfig(), nil, nil)

	_, err := r.Resolve(ResourceUser, "jdoe", "")
	if !errors.Is(err, ErrNoDestType) {
		t.Errorf("err = %v, want ErrNoDestType", err)
	}
}

func TestResolveUnmappedWithoutPrompter(t *testing.T) {
	r := NewResolver(testConfig(), nil, nil)

	d, err := r.Resolve(ResourceStatus, "Weird", "")
	if !errors.Is(err, ErrUnmapped) {
		t.Fatalf("err = %v, want ErrUnmapped", err)
	}
	if !d.Unmapped {
		t.Error("decision not marked unmapped")
	}

	// The negative decision is cached; the second lookup takes the cache
	// path and still reports unmapped.
	if _, err := r.Resolve(ResourceStatus, "Weird", ""); !errors.Is(err, ErrUnmapped) {
		t.Errorf("second lookup err = %v, want ErrUnmapped", err)
	}
}

func TestResolvePromptsOncePerKey(t *testing.T) {
	p := &countingPrompter{resp: Response{Dest: DestStatus, Value: "Triage"}}
	r := NewResolver(testConfig(), p, nil)

	for i := 0; i < 3; i++ {
		d, err := r.Resolve(ResourceStatus, "Incoming", "")
		if err != nil {
			t.Fatalf("Resolve #%d: %v", i, err)
		}
		if d.Value != "Triage" {
			t.Errorf("value = %q, want Triage", d.Value)
		}
	}

	if p.calls != 1 {
		t.Errorf("prompter consulted %d times, want 1", p.calls)
	}
}

func TestResolveSkipCachedUnderAllDestTypes(t *testing.T) {
	p := &countingPrompter{resp: Response{Skip: true}}
	r := NewResolver(testConfig(), p, nil)

	if _, err := r.Resolve(ResourceCategory, "Odd", ""); !errors.Is(err, ErrUnmapped) {
		t.Fatalf("err = %v, want ErrUnmapped", err)
	}
	if _, err := r.Resolve(ResourceCategory, "Odd", ""); !errors.Is(err, ErrUnmapped) {
		t.Fatalf("second err = %v, want ErrUnmapped", err)
	}

	// The decline applies to both configured dest types; a second dest-type
	// pass must not re-prompt.
	if p.calls != 1 {
		t.Errorf("prompter consulted %d times, want 1", p.calls)
	}
}

func TestResolveDynamicDisabledNeverPrompts(t *testing.T) {
	cfg := testConfig()
	cfg.DynamicDisabled = []string{ResourceStatus}

	p := &countingPrompter{resp: Response{Dest: DestStatus, Value: "X"}}
	r := NewResolver(cfg, p, nil)

	if _, err := r.Resolve(ResourceStatus, "Incoming", ""); !errors.Is(err, ErrUnmapped) {
		t.Fatalf("err = %v, want ErrUnmapped", err)
	}
	if p.calls != 0 {
		t.Errorf("prompter consulted %d times, want 0", p.calls)
	}
}

func TestResolvePrompterErrorPropagates(t *testing.T) {
	p := &countingPrompter{err: errors.New("terminal gone")}
	r := NewResolver(testConfig(), p, nil)

	_, err := r.Resolve(ResourceStatus, "Incoming", "")
	if err == nil || errors.Is(err, ErrUnmapped) {
		t.Fatalf("err = %v, want prompt failure", err)
	}
}
