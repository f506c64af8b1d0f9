package mapping

import (
	"path/filepath"
	"testing"
)

func mustOpenStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenStore(filepath.Join(t.TempDir(), "decisions.db"))
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreRoundTrip(t *testing.T) {
	s := mustOpenStore(t)

	key := Key{Resource: ResourceStatus, Dest: DestStatus, SourceValue: "New"}
	if err := s.Save(key, Decision{Dest: DestStatus, Value: "Open"}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	unmappedKey := Key{Resource: ResourceUser, Dest: DestUser, ProjectKey: "acme", SourceValue: "ghost"}
	if err := s.Save(unmappedKey, Decision{Dest: DestUser, Unmapped: true}); err != nil {
		t.Fatalf("Save unmapped: %v", err)
	}

	entries, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Load returned %d entries, want 2", len(entries))
	}

	if d := entries[key]; d.Value != "Open" || d.Unmapped {
		t.Errorf("decision = %+v, want Open", d)
	}
	if d := entries[unmappedKey]; !d.Unmapped {
		t.Errorf("decision = %+v, want unmapped", d)
	}
}

func TestStoreUpsert(t *testing.T) {
	s := mustOpenStore(t)

	key := Key{Resource: ResourceStatus, Dest: DestStatus, SourceValue: "New"}
	if err := s.Save(key, Decision{Dest: DestStatus, Value: "Open"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Save(key, Decision{Dest: DestStatus, Value: "To Do"}); err != nil {
		t.Fatalf("Save again: %v", err)
	}

	entries, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Load returned %d entries, want 1", len(entries))
	}
	if d := entries[key]; d.Value != "To Do" {
		t.Errorf("value = %q, want updated %q", d.Value, "To Do")
	}
}

func TestResolverSeedsCacheFromStore(t *testing.T) {
	s := mustOpenStore(t)

	key := Key{Resource: ResourceStatus, Dest: DestStatus, SourceValue: "Incoming"}
	if err := s.Save(key, Decision{Dest: DestStatus, Value: "Triage"}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	p := &countingPrompter{resp: Response{Dest: DestStatus, Value: "never"}}
	r := NewResolver(testConfig(), p, s)
	if err := r.LoadStore(); err != nil {
		t.Fatalf("LoadStore: %v", err)
	}

	d, err := r.Resolve(ResourceStatus, "Incoming", "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if d.Value != "Triage" {
		t.Errorf("value = %q, want persisted Triage", d.Value)
	}
	if p.calls != 0 {
		t.Errorf("prompter consulted %d times, want 0", p.calls)
	}
}
