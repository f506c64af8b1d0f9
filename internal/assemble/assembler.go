// Package assemble orchestrates the export run: it resolves field values,
// converts rich text, classifies relations, and builds one composite record
// per source issue.
package assemble

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/trackshift/trackshift/internal/config"
	"github.com/trackshift/trackshift/internal/export"
	"github.com/trackshift/trackshift/internal/mapping"
	"github.com/trackshift/trackshift/internal/model"
	"github.com/trackshift/trackshift/internal/relations"
	"github.com/trackshift/trackshift/internal/wiki"
)

// Directory looks up source entities by ID. The retrieval layer implements
// it with lazy fetching; tests use in-memory fakes.
type Directory interface {
	UserLogin(id int) (string, bool)
	GroupName(id int) (string, bool)
	ProjectKey(id int) (string, bool)
	TrackerName(id int) (string, bool)
	StatusName(id int) (string, bool)
	PriorityName(id int) (string, bool)
	CategoryName(projectID, id int) (string, bool)
	VersionName(projectID, id int) (string, bool)
	CustomField(id int) (model.CustomFieldDef, bool)
}

// Deps are the collaborators an Assembler needs.
type Deps struct {
	Config    *config.Config
	Resolver  *mapping.Resolver
	Directory Directory
	// Warn receives non-fatal anomalies (unresolved values, degraded
	// conversions, dangling relation targets). May be nil.
	Warn func(format string, args ...any)
}

// Summary describes one finished run.
type Summary struct {
	Issues        int
	Projects      int
	Comments      int
	InlineLinks   int
	ExternalLinks int
	Unresolved    int
	Elapsed       time.Duration
}

// Assembler holds the run-scoped state: the output document, the relation
// side table, and the exported-subset membership set. All other components
// are pure functions over their inputs plus the resolver's cache.
type Assembler struct {
	deps    Deps
	subset  map[int]bool
	side    *relations.SideTable
	links   map[relations.Row]bool
	doc     *export.Document
	summary Summary
}

// New returns an Assembler over the given collaborators.
func New(deps Deps) *Assembler {
	if deps.Warn == nil {
		deps.Warn = func(string, ...any) {}
	}
	return &Assembler{
		deps:  deps,
		side:  relations.NewSideTable(),
		links: make(map[relations.Row]bool),
		doc:   &export.Document{},
	}
}

// Run assembles every issue and returns the export document, the relation
// side table, and the run summary. The exported-subset set is computed
// completely before any relation is classified. Partial output is never
// returned: any error discards what was built.
func (a *Assembler) Run(issues []model.Issue) (*export.Document, *relations.SideTable, *Summary, error) {
	start := time.Now()

	if err := a.checkConfigured(issues); err != nil {
		return nil, nil, nil, err
	}

	a.subset = make(map[int]bool, len(issues))
	for _, issue := range issues {
		a.subset[issue.ID] = true
	}

	for i := range issues {
		if err := a.assemble(&issues[i]); err != nil {
			return nil, nil, nil, fmt.Errorf("assembling issue #%d: %w", issues[i].ID, err)
		}
	}

	a.summary.Projects = len(a.doc.Projects)
	a.summary.ExternalLinks = a.side.Len()
	a.summary.Elapsed = time.Since(start)
	return a.doc, a.side, &a.summary, nil
}

// checkConfigured is the startup configuration check: the core resource
// types every issue references must have a destination type. This is the
// only fatal error class of a run.
func (a *Assembler) checkConfigured(issues []model.Issue) error {
	if len(issues) == 0 {
		return nil
	}
	for _, resource := range []string{
		mapping.ResourceProject,
		mapping.ResourceTracker,
		mapping.ResourceStatus,
		mapping.ResourcePriority,
	} {
		if len(a.deps.Config.DestTypes(resource)) == 0 {
			return &config.ConfigurationError{
				Msg: fmt.Sprintf("resource type %q has no destination type configured", resource),
			}
		}
	}
	return nil
}

// assemble builds one composite record. A value that fails to resolve is
// recorded as absent rather than aborting the issue; only operator aborts
// and unexpected prompt failures propagate.
func (a *Assembler) assemble(issue *model.Issue) error {
	projectKey, err := a.resolveRequired(mapping.ResourceProject, a.projectIdentifier(issue.Project), "")
	if err != nil {
		return err
	}
	if projectKey == "" {
		// An unmapped project makes every per-project lookup for the
		// issue meaningless; the record lands under the source identifier.
		projectKey = a.projectIdentifier(issue.Project)
		a.deps.Warn("issue #%d: project %q has no mapping, exporting under source identifier", issue.ID, projectKey)
	}

	project := a.doc.EnsureProject(projectKey)
	sourceProjectKey := a.projectIdentifier(issue.Project)

	rec := &export.Issue{
		ExternalID: strconv.Itoa(issue.ID),
		Summary:    issue.Subject,
		Created:    issue.CreatedOn.UTC().Format(time.RFC3339),
		Updated:    issue.UpdatedOn.UTC().Format(time.RFC3339),
	}

	rec.Reporter = a.resolveUser(issue.Author)
	rec.IssueType = a.resolveOptional(mapping.ResourceTracker, issue.Tracker.Name, "")
	rec.Status = a.resolveOptional(mapping.ResourceStatus, issue.Status.Name, "")
	rec.Priority = a.resolveOptional(mapping.ResourcePriority, issue.Priority.Name, "")

	if issue.Description != "" {
		rec.Description = a.convertText(issue.Description)
	}

	if issue.AssignedTo != nil {
		rec.Assignee = a.resolveAssignee(*issue.AssignedTo)
	}

	if issue.Category != nil {
		a.saveCategory(issue, project, rec, sourceProjectKey)
	}

	if issue.FixedVersion != nil {
		if v := a.resolveOptional(mapping.ResourceVersion, issue.FixedVersion.Name, sourceProjectKey); v != "" {
			rec.Labels = append(rec.Labels, v)
		}
	}

	if issue.ParentID != nil {
		rec.ParentExternalID = strconv.Itoa(*issue.ParentID)
	}

	if issue.EstimatedHours != nil {
		rec.OriginalEstimate = isoDuration(*issue.EstimatedHours)
	}

	a.saveCustomFields(issue, rec, sourceProjectKey)
	a.saveWatchers(issue, rec)
	a.saveAttachments(issue, rec)
	a.saveRelations(issue, rec)
	a.saveTimeEntries(issue, rec)

	if a.deps.Config.Export.Journals {
		if err := a.saveJournals(issue, rec, sourceProjectKey); err != nil {
			return err
		}
	}

	if a.deps.Config.Export.Issues {
		project.Issues = append(project.Issues, rec)
	}
	a.summary.Issues++
	return nil
}

func (a *Assembler) projectIdentifier(ref model.Ref) string {
	if key, ok := a.deps.Directory.ProjectKey(ref.ID); ok {
		return key
	}
	return ref.Name
}

// resolveRequired resolves a value and propagates non-unmapped errors
// (operator abort, prompt failure). Unmapped collapses to "".
func (a *Assembler) resolveRequired(resource, value, projectKey string) (string, error) {
	if value == "" {
		return "", nil
	}
	d, err := a.deps.Resolver.Resolve(resource, value, projectKey)
	if err != nil {
		if errors.Is(err, mapping.ErrUnmapped) {
			a.noteUnresolved(resource, value)
			return "", nil
		}
		return "", err
	}
	return d.Value, nil
}

// resolveOptional resolves a value, recording unmapped results as absent.
// Prompt-layer failures degrade the same way; the run keeps going.
func (a *Assembler) resolveOptional(resource, value, projectKey string) string {
	if value == "" {
		return ""
	}
	d, err := a.deps.Resolver.Resolve(resource, value, projectKey)
	if err != nil {
		if errors.Is(err, mapping.ErrUnmapped) {
			a.noteUnresolved(resource, value)
			return ""
		}
		a.deps.Warn("resolving %s %q: %v", resource, value, err)
		return ""
	}
	return d.Value
}

func (a *Assembler) noteUnresolved(resource, value string) {
	a.summary.Unresolved++
	a.deps.Warn("no mapping for %s %q, recorded as absent", resource, value)
}

func (a *Assembler) resolveUser(ref model.Ref) string {
	login, ok := a.deps.Directory.UserLogin(ref.ID)
	if !ok {
		login = ref.Name
	}
	return a.resolveOptional(mapping.ResourceUser, login, "")
}

// resolveAssignee handles the assignee ambiguity: when group assignment is
// allowed the referenced ID may be a group, not a user.
func (a *Assembler) resolveAssignee(ref model.Ref) string {
	if a.deps.Config.Export.AllowGroupAssignee {
		if name, ok := a.deps.Directory.GroupName(ref.ID); ok {
			return a.resolveOptional(mapping.ResourceGroup, name, "")
		}
	}
	return a.resolveUser(ref)
}

// saveCategory routes a category to components or labels depending on the
// destination type its mapping resolved to for this project.
func (a *Assembler) saveCategory(issue *model.Issue, project *export.Project, rec *export.Issue, sourceProjectKey string) {
	name, ok := a.deps.Directory.CategoryName(issue.Project.ID, issue.Category.ID)
	if !ok {
		name = issue.Category.Name
	}
	if name == "" {
		return
	}

	d, err := a.deps.Resolver.Resolve(mapping.ResourceCategory, name, sourceProjectKey)
	if err != nil {
		if errors.Is(err, mapping.ErrUnmapped) {
			a.noteUnresolved(mapping.ResourceCategory, name)
		} else {
			a.deps.Warn("resolving category %q: %v", name, err)
		}
		return
	}

	switch d.Dest {
	case mapping.DestLabel:
		rec.Labels = append(rec.Labels, d.Value)
	default:
		project.AddComponent(d.Value)
		rec.Components = append(rec.Components, d.Value)
	}
}

func (a *Assembler) saveWatchers(issue *model.Issue, rec *export.Issue) {
	for _, w := range issue.Watchers {
		if mapped := a.resolveUser(w); mapped != "" {
			rec.Watchers = append(rec.Watchers, mapped)
		}
	}
}

func (a *Assembler) saveAttachments(issue *model.Issue, rec *export.Issue) {
	for _, att := range issue.Attachments {
		uri := att.ContentURL
		if a.deps.Config.Redmine.APIKey != "" {
			uri += "?key=" + a.deps.Config.Redmine.APIKey
		}
		rec.Attachments = append(rec.Attachments, export.Attachment{
			Name:        att.Filename,
			Attacher:    a.resolveUser(att.Author),
			Created:     att.CreatedOn.UTC().Format(time.RFC3339),
			URI:         uri,
			Description: att.Description,
		})
	}
}

// saveRelations classifies each relation: inline links travel on the
// record, external ones go to the side table. The server reports the same
// relation on both endpoint issues, so both paths deduplicate by the
// (source, target, type) triple; every distinct relation ends up in
// exactly one of the two, exactly once.
func (a *Assembler) saveRelations(issue *model.Issue, rec *export.Issue) {
	if !a.deps.Config.Export.Links {
		return
	}
	for _, rel := range issue.Relations {
		switch relations.Classify(rel, a.subset) {
		case relations.Inline:
			row := relations.Row{SourceID: rel.IssueID, TargetID: rel.IssueToID, Type: rel.Type}
			if a.links[row] {
				continue
			}
			a.links[row] = true

			name := a.resolveOptional(mapping.ResourceRelationType, rel.Type, "")
			if name == "" {
				name = rel.Type
			}
			rec.Links = append(rec.Links, export.Link{
				Name:          name,
				SourceID:      strconv.Itoa(rel.IssueID),
				DestinationID: strconv.Itoa(rel.IssueToID),
			})
			a.summary.InlineLinks++
		case relations.External:
			if a.side.Add(rel) {
				a.deps.Warn("issue #%d: relation target #%d outside exported subset, deferred to side table", rel.IssueID, rel.IssueToID)
			}
		}
	}
}

func (a *Assembler) saveTimeEntries(issue *model.Issue, rec *export.Issue) {
	var hours float64
	for _, te := range issue.TimeEntries {
		hours += te.Hours
	}
	if hours > 0 {
		rec.TimeSpentSeconds = int64(hours * 3600)
	}
}

// convertText converts a rich-text body from the source dialect to Jira
// wiki markup. Conversion never fails; at worst the text passes through.
func (a *Assembler) convertText(s string) string {
	switch a.deps.Config.Redmine.TextFormat {
	case config.TextFormatMarkdown:
		return wiki.MarkdownToWiki(s)
	default:
		return s
	}
}

// isoDuration renders a fractional hour count as an ISO-8601 duration,
// e.g. 7.5 -> PT7H30M.
func isoDuration(hours float64) string {
	total := int(hours*60 + 0.5)
	h, m := total/60, total%60
	switch {
	case m == 0:
		return fmt.Sprintf("PT%dH", h)
	case h == 0:
		return fmt.Sprintf("PT%dM", m)
	default:
		return fmt.Sprintf("PT%dH%dM", h, m)
	}
}
