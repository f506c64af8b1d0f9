package assemble

import (
	"testing"
	"time"

	"github.com/trackshift/trackshift/internal/config"
	"github.com/trackshift/trackshift/internal/export"
	"github.com/trackshift/trackshift/internal/mapping"
	"github.com/trackshift/trackshift/internal/model"
	"github.com/trackshift/trackshift/internal/relations"
)

type fakeDirectory struct {
	users      map[int]string
	groups     map[int]string
	projects   map[int]string
	trackers   map[int]string
	statuses   map[int]string
	priorities map[int]string
	categories map[int]string
	versions   map[int]string
	fields     map[int]model.CustomFieldDef
}

func (d *fakeDirectory) UserLogin(id int) (string, bool)    { v, ok := d.users[id]; return v, ok }
func (d *fakeDirectory) GroupName(id int) (string, bool)    { v, ok := d.groups[id]; return v, ok }
func (d *fakeDirectory) ProjectKey(id int) (string, bool)   { v, ok := d.projects[id]; return v, ok }
func (d *fakeDirectory) TrackerName(id int) (string, bool)  { v, ok := d.trackers[id]; return v, ok }
func (d *fakeDirectory) StatusName(id int) (string, bool)   { v, ok := d.statuses[id]; return v, ok }
func (d *fakeDirectory) PriorityName(id int) (string, bool) { v, ok := d.priorities[id]; return v, ok }

func (d *fakeDirectory) CategoryName(projectID, id int) (string, bool) {
	v, ok := d.categories[id]
	return v, ok
}

func (d *fakeDirectory) VersionName(projectID, id int) (string, bool) {
	v, ok := d.versions[id]
	return v, ok
}

func (d *fakeDirectory) CustomField(id int) (model.CustomFieldDef, bool) {
	v, ok := d.fields[id]
	return v, ok
}

func testDirectory() *fakeDirectory {
	return &fakeDirectory{
		users:      map[int]string{1: "jdoe", 2: "asmith"},
		projects:   map[int]string{10: "acme"},
		trackers:   map[int]string{1: "Bug"},
		statuses:   map[int]string{1: "New", 2: "Closed"},
		priorities: map[int]string{2: "Normal"},
		categories: map[int]string{5: "Backend"},
		versions:   map[int]string{7: "1.0"},
		fields: map[int]model.CustomFieldDef{
			3: {ID: 3, Name: "Severity", FieldFormat: model.FormatList},
			4: {ID: 4, Name: "Regression", FieldFormat: model.FormatBool},
		},
	}
}

func staticMapping(resource, dest string, values map[string]string) config.ResourceMapping {
	return config.ResourceMapping{Resource: resource, Dest: dest, Values: values}
}

func testAssembleConfig() *config.Config {
	return &config.Config{
		Redmine: config.RedmineConfig{
			APIKey:     "secret",
			TextFormat: config.TextFormatMarkdown,
		},
		Export: config.ExportConfig{Issues: true, Links: true, Journals: true},
		Mappings: []config.ResourceMapping{
			staticMapping(mapping.ResourceProject, mapping.DestProject, map[string]string{"acme": "ACME"}),
			staticMapping(mapping.ResourceTracker, mapping.DestIssueType, map[string]string{"Bug": "Bug"}),
			staticMapping(mapping.ResourceStatus, mapping.DestStatus, map[string]string{"New": "Open", "Closed": "Done"}),
			staticMapping(mapping.ResourcePriority, mapping.DestPriority, map[string]string{"Normal": "Medium"}),
			staticMapping(mapping.ResourceUser, mapping.DestUser, map[string]string{"jdoe": "jdoe@corp", "asmith": "asmith@corp"}),
			staticMapping(mapping.ResourceCategory, mapping.DestComponent, map[string]string{"Backend": "Server"}),
			staticMapping(mapping.ResourceVersion, mapping.DestVersion, map[string]string{"1.0": "1.0.0"}),
			staticMapping(mapping.ResourceCustomField, mapping.DestCustomField, map[string]string{"Severity": "Severity"}),
			staticMapping(mapping.ResourceRelationType, mapping.DestLinkType, map[string]string{"relates": "Relates", "blocks": "Blocks"}),
		},
	}
}

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

func intPtr(i int) *int { return &i }

func testIssues() []model.Issue {
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	noted := created.Add(1 * time.Hour)
	closed := created.Add(2 * time.Hour)

	first := model.Issue{
		ID:             1,
		Project:        model.Ref{ID: 10, Name: "Acme"},
		Tracker:        model.Ref{ID: 1, Name: "Bug"},
		Status:         model.Ref{ID: 2, Name: "Closed"},
		Priority:       model.Ref{ID: 2, Name: "Normal"},
		Author:         model.Ref{ID: 1, Name: "John Doe"},
		AssignedTo:     &model.Ref{ID: 2, Name: "Anna Smith"},
		Category:       &model.Ref{ID: 5, Name: "Backend"},
		FixedVersion:   &model.Ref{ID: 7, Name: "1.0"},
		Subject:        "Crash on save",
		Description:    "It **crashes** on save.",
		EstimatedHours: floatPtr(7.5),
		CreatedOn:      created,
		UpdatedOn:      closed,
		CustomFields: []model.CustomFieldValue{
			{ID: 3, Name: "Severity", Value: "High"},
			{ID: 4, Name: "Regression", Value: "1"},
		},
		Journals: []model.Journal{
			{
				ID: 100, Sequence: 0,
				User:      model.Ref{ID: 1, Name: "John Doe"},
				Notes:     "Looks **bad**",
				CreatedOn: noted,
			},
			{
				ID: 101, Sequence: 1,
				User:      model.Ref{ID: 2, Name: "Anna Smith"},
				CreatedOn: closed,
				Details: []model.JournalDetail{
					{Property: model.PropertyAttr, Name: "status_id", OldValue: strPtr("1"), NewValue: strPtr("2")},
				},
			},
		},
		Attachments: []model.Attachment{
			{
				ID: 50, Filename: "trace.log",
				ContentURL: "https://redmine.example.com/attachments/download/50/trace.log",
				Author:     model.Ref{ID: 1, Name: "John Doe"},
				CreatedOn:  noted,
			},
		},
		Relations: []model.Relation{
			{ID: 1, IssueID: 1, IssueToID: 2, Type: "relates"},
			{ID: 2, IssueID: 1, IssueToID: 99, Type: "blocks"},
		},
		Watchers: []model.Ref{{ID: 2, Name: "Anna Smith"}},
		TimeEntries: []model.TimeEntry{
			{ID: 1, User: model.Ref{ID: 1}, Hours: 1.5},
			{ID: 2, User: model.Ref{ID: 2}, Hours: 0.5},
		},
	}

	second := model.Issue{
		ID:        2,
		Project:   model.Ref{ID: 10, Name: "Acme"},
		Tracker:   model.Ref{ID: 9, Name: "Feature"},
		Status:    model.Ref{ID: 1, Name: "New"},
		Priority:  model.Ref{ID: 2, Name: "Normal"},
		Author:    model.Ref{ID: 1, Name: "John Doe"},
		ParentID:  intPtr(1),
		Subject:   "Follow-up",
		CreatedOn: created,
		UpdatedOn: created,
		CustomFields: []model.CustomFieldValue{
			{ID: 99, Name: "Internal", Value: "x"},
		},
		// The server reports the same relation on both endpoint issues;
		// this is the reciprocal copy of the first issue's 1->2 relation.
		Relations: []model.Relation{
			{ID: 1, IssueID: 1, IssueToID: 2, Type: "relates"},
		},
	}

	return []model.Issue{first, second}
}

type runResult struct {
	doc     *export.Document
	side    *relations.SideTable
	summary *Summary
}

func mustRun(t *testing.T, cfg *config.Config, issues []model.Issue) runResult {
	t.Helper()
	asm := New(Deps{
		Config:    cfg,
		Resolver:  mapping.NewResolver(cfg, nil, nil),
		Directory: testDirectory(),
	})
	doc, side, summary, err := asm.Run(issues)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return runResult{doc, side, summary}
}

func TestRunAssemblesCompositeRecord(t *testing.T) {
	res := mustRun(t, testAssembleConfig(), testIssues())
	doc, side, summary := res.doc, res.side, res.summary

	if len(doc.Projects) != 1 || doc.Projects[0].Key != "ACME" {
		t.Fatalf("projects = %+v, want single ACME", doc.Projects)
	}
	project := doc.Projects[0]
	if len(project.Issues) != 2 {
		t.Fatalf("issues = %d, want 2", len(project.Issues))
	}

	rec := project.Issues[0]
	if rec.ExternalID != "1" || rec.Summary != "Crash on save" {
		t.Errorf("record identity = %s/%s", rec.ExternalID, rec.Summary)
	}
	if rec.Reporter != "jdoe@corp" || rec.Assignee != "asmith@corp" {
		t.Errorf("people = %s/%s, want mapped logins", rec.Reporter, rec.Assignee)
	}
	if rec.IssueType != "Bug" || rec.Status != "Done" || rec.Priority != "Medium" {
		t.Errorf("classification = %s/%s/%s", rec.IssueType, rec.Status, rec.Priority)
	}
	if rec.Description != "It *crashes* on save." {
		t.Errorf("description = %q, want converted wiki markup", rec.Description)
	}
	if rec.OriginalEstimate != "PT7H30M" {
		t.Errorf("estimate = %q, want PT7H30M", rec.OriginalEstimate)
	}
	if rec.TimeSpentSeconds != 7200 {
		t.Errorf("time spent = %d, want 7200", rec.TimeSpentSeconds)
	}

	if len(rec.Components) != 1 || rec.Components[0] != "Server" {
		t.Errorf("components = %v, want [Server]", rec.Components)
	}
	if len(project.Components) != 1 || project.Components[0] != "Server" {
		t.Errorf("project components = %v, want [Server]", project.Components)
	}
	if len(rec.Labels) != 1 || rec.Labels[0] != "1.0.0" {
		t.Errorf("labels = %v, want mapped version", rec.Labels)
	}
	if len(rec.Watchers) != 1 || rec.Watchers[0] != "asmith@corp" {
		t.Errorf("watchers = %v, want mapped watcher", rec.Watchers)
	}

	if len(rec.Attachments) != 1 {
		t.Fatalf("attachments = %d, want 1", len(rec.Attachments))
	}
	wantURI := "https://redmine.example.com/attachments/download/50/trace.log?key=secret"
	if rec.Attachments[0].URI != wantURI {
		t.Errorf("attachment URI = %q, want key appended", rec.Attachments[0].URI)
	}

	// One relation stays inline, the other defers to the side table.
	if len(rec.Links) != 1 || rec.Links[0].Name != "Relates" {
		t.Errorf("inline links = %+v, want single Relates", rec.Links)
	}
	if side.Len() != 1 {
		t.Fatalf("side table = %d rows, want 1", side.Len())
	}
	row := side.Rows()[0]
	if row.SourceID != 1 || row.TargetID != 99 || row.Type != "blocks" {
		t.Errorf("side row = %+v, want 1->99 blocks", row)
	}

	if summary.Issues != 2 || summary.InlineLinks != 1 || summary.ExternalLinks != 1 {
		t.Errorf("summary = %+v", summary)
	}

	// The second issue keeps its parent reference and drops the unmapped
	// tracker rather than failing.
	rec2 := project.Issues[1]
	if rec2.ParentExternalID != "1" {
		t.Errorf("parent = %q, want 1", rec2.ParentExternalID)
	}
	if rec2.IssueType != "" {
		t.Errorf("issue type = %q, want absent for unmapped tracker", rec2.IssueType)
	}
	if summary.Unresolved == 0 {
		t.Error("unresolved count = 0, want at least the unmapped tracker")
	}
}

func TestRunDeduplicatesReciprocalRelations(t *testing.T) {
	res := mustRun(t, testAssembleConfig(), testIssues())

	var links []export.Link
	for _, p := range res.doc.Projects {
		for _, rec := range p.Issues {
			links = append(links, rec.Links...)
		}
	}
	if len(links) != 1 {
		t.Fatalf("inline links = %+v, want the 1->2 relation exactly once", links)
	}
	if links[0].Name != "Relates" || links[0].SourceID != "1" || links[0].DestinationID != "2" {
		t.Errorf("link = %+v, want Relates 1->2", links[0])
	}
	if res.summary.InlineLinks != 1 {
		t.Errorf("inline link count = %d, want 1", res.summary.InlineLinks)
	}
}

func TestRunSplitsJournals(t *testing.T) {
	res := mustRun(t, testAssembleConfig(), testIssues())
	rec := res.doc.Projects[0].Issues[0]

	if len(rec.Comments) != 1 {
		t.Fatalf("comments = %d, want 1", len(rec.Comments))
	}
	if rec.Comments[0].Body != "Looks *bad*" {
		t.Errorf("comment body = %q, want converted markup", rec.Comments[0].Body)
	}
	if rec.Comments[0].Author != "jdoe@corp" {
		t.Errorf("comment author = %q", rec.Comments[0].Author)
	}

	if len(rec.History) != 1 {
		t.Fatalf("history events = %d, want 1", len(rec.History))
	}
	event := rec.History[0]
	if len(event.Items) != 1 {
		t.Fatalf("history items = %d, want 1", len(event.Items))
	}
	item := event.Items[0]
	if item.Field != "status" || item.FromString != "Open" || item.ToString != "Done" {
		t.Errorf("history item = %+v, want status Open->Done", item)
	}

	if len(rec.StatusHistory) != 1 || rec.StatusHistory[0].Status != "Done" {
		t.Errorf("status history = %+v, want single Done transition", rec.StatusHistory)
	}
}

func TestRunCustomFields(t *testing.T) {
	res := mustRun(t, testAssembleConfig(), testIssues())
	project := res.doc.Projects[0]

	rec := project.Issues[0]
	if len(rec.CustomFields) != 1 {
		t.Fatalf("custom fields = %+v, want only the mapped Severity", rec.CustomFields)
	}
	cf := rec.CustomFields[0]
	if cf.FieldName != "Severity" || cf.Value != "High" {
		t.Errorf("custom field = %+v", cf)
	}
	if cf.FieldType != "com.atlassian.jira.plugin.system.customfieldtypes:select" {
		t.Errorf("field type = %q, want select", cf.FieldType)
	}

	// A field with no name mapping is dropped entirely, not emitted empty.
	if len(project.Issues[1].CustomFields) != 0 {
		t.Errorf("unmapped custom field emitted: %+v", project.Issues[1].CustomFields)
	}
}

func TestRunBoolCustomFieldRendersYes(t *testing.T) {
	cfg := testAssembleConfig()
	for i := range cfg.Mappings {
		if cfg.Mappings[i].Resource == mapping.ResourceCustomField {
			cfg.Mappings[i].Values["Regression"] = "Regression"
		}
	}

	res := mustRun(t, cfg, testIssues())
	rec := res.doc.Projects[0].Issues[0]

	var regression any
	for _, cf := range rec.CustomFields {
		if cf.FieldName == "Regression" {
			regression = cf.Value
		}
	}
	if regression != "Yes" {
		t.Errorf("bool value = %v, want Yes", regression)
	}
}

func TestRunFailsWithoutCoreMappings(t *testing.T) {
	cfg := testAssembleConfig()
	cfg.Mappings = cfg.Mappings[:1] // project only

	asm := New(Deps{
		Config:    cfg,
		Resolver:  mapping.NewResolver(cfg, nil, nil),
		Directory: testDirectory(),
	})
	_, _, _, err := asm.Run(testIssues())
	if err == nil {
		t.Fatal("Run = nil error, want configuration failure")
	}
	if _, ok := err.(*config.ConfigurationError); !ok {
		t.Errorf("error type = %T, want *ConfigurationError", err)
	}
}

func TestIsoDuration(t *testing.T) {
	tests := []struct {
		hours float64
		want  string
	}{
		{7.5, "PT7H30M"},
		{2, "PT2H"},
		{0.25, "PT15M"},
		{0.5, "PT30M"},
	}
	for _, tt := range tests {
		if got := isoDuration(tt.hours); got != tt.want {
			t.Errorf("isoDuration(%v) = %q, want %q", tt.hours, got, tt.want)
		}
	}
}
