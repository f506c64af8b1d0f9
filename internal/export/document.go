// Package export holds the composite output records and their JSON/CSV
// serialization for the Jira bulk importer.
package export

// Document is the run's output collection: projects in first-encounter
// order, each holding its issues. Records are append-only during assembly
// and immutable once appended.
type Document struct {
	Projects []*Project
}

// Project groups the issues exported under one destination project key.
type Project struct {
	Key        string   `json:"key"`
	Components []string `json:"components,omitempty"`
	Issues     []*Issue `json:"issues"`
}

// EnsureProject returns the project with the given key, materializing it on
// first encounter. Issues must be children of a project entry, so the
// project is always saved before anything else about an issue.
func (d *Document) EnsureProject(key string) *Project {
	for _, p := range d.Projects {
		if p.Key == key {
			return p
		}
	}
	p := &Project{Key: key, Issues: []*Issue{}}
	d.Projects = append(d.Projects, p)
	return p
}

// AddComponent records a component on the project, once.
func (p *Project) AddComponent(name string) {
	for _, c := range p.Components {
		if c == name {
			return
		}
	}
	p.Components = append(p.Components, name)
}

// Issue is the composite per-issue record. Every destination value in it
// came from either a direct copy of an unmapped field or a successful
// resolution; unresolved fields are simply absent.
type Issue struct {
	ExternalID       string             `json:"externalId"`
	Summary          string             `json:"summary"`
	Reporter         string             `json:"reporter,omitempty"`
	Assignee         string             `json:"assignee,omitempty"`
	IssueType        string             `json:"issueType,omitempty"`
	Status           string             `json:"status,omitempty"`
	Priority         string             `json:"priority,omitempty"`
	Created          string             `json:"created"`
	Updated          string             `json:"updated"`
	Description      string             `json:"description,omitempty"`
	ParentExternalID string             `json:"parentExternalId,omitempty"`
	Components       []string           `json:"components,omitempty"`
	Labels           []string           `json:"labels,omitempty"`
	OriginalEstimate string             `json:"originalEstimate,omitempty"`
	TimeSpentSeconds int64              `json:"timeSpentSeconds,omitempty"`
	Watchers         []string           `json:"watchers,omitempty"`
	Attachments      []Attachment       `json:"attachments,omitempty"`
	Comments         []Comment          `json:"comments,omitempty"`
	History          []HistoryEvent     `json:"history,omitempty"`
	StatusHistory    []StatusTransition `json:"statusHistory,omitempty"`
	CustomFields     []CustomFieldValue `json:"customFieldValues,omitempty"`
	Links            []Link             `json:"-"`
}

// Attachment references an attached file by URL; the importer downloads it.
type Attachment struct {
	Name        string `json:"name"`
	Attacher    string `json:"attacher,omitempty"`
	Created     string `json:"created"`
	URI         string `json:"uri"`
	Description string `json:"description,omitempty"`
}

// Comment is a converted journal note.
type Comment struct {
	Author  string `json:"author,omitempty"`
	Body    string `json:"body"`
	Created string `json:"created"`
}

// HistoryEvent groups the field changes one author made at one instant.
type HistoryEvent struct {
	Author  string        `json:"author,omitempty"`
	Created string        `json:"created"`
	Items   []HistoryItem `json:"items"`
}

// HistoryItem is a single field-change delta.
type HistoryItem struct {
	Field      string `json:"field"`
	FieldType  string `json:"fieldType"`
	From       string `json:"from,omitempty"`
	FromString string `json:"fromString,omitempty"`
	To         string `json:"to,omitempty"`
	ToString   string `json:"toString,omitempty"`
}

// StatusTransition is one step of the issue's status history, derived from
// journal changes targeting the status field, in chronological order.
type StatusTransition struct {
	Status  string `json:"status"`
	Created string `json:"created"`
}

// CustomFieldValue carries a resolved custom field. Value is a string, a
// number, or a list depending on the destination field type.
type CustomFieldValue struct {
	FieldName string `json:"fieldName"`
	FieldType string `json:"fieldType"`
	Value     any    `json:"value"`
}

// Link is an inline relation between two exported issues.
type Link struct {
	Name          string `json:"name"`
	SourceID      string `json:"sourceId"`
	DestinationID string `json:"destinationId"`
}
