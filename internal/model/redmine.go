package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// redmineTime is the timestamp layout used by the Redmine REST API.
const redmineTime = "2006-01-02T15:04:05Z"

// redmineDate is the date-only layout used for spent_on and date fields.
const redmineDate = "2006-01-02"

// Ref is a reference to a named Redmine resource.
type Ref struct {
	ID   int    `json:"id"`
	Name string `json:"name,omitempty"`
}

// Issue is a parsed Redmine issue with all the child resources the export
// consumes. It is the input boundary of the pipeline: the retrieval layer
// produces it, the assembler only reads it.
type Issue struct {
	ID             int
	Project        Ref
	Tracker        Ref
	Status         Ref
	Priority       Ref
	Author         Ref
	AssignedTo     *Ref
	Category       *Ref
	FixedVersion   *Ref
	ParentID       *int
	Subject        string
	Description    string
	EstimatedHours *float64
	CreatedOn      time.Time
	UpdatedOn      time.Time
	CustomFields   []CustomFieldValue
	Journals       []Journal
	Attachments    []Attachment
	Relations      []Relation
	Watchers       []Ref
	TimeEntries    []TimeEntry
}

// CustomFieldValue is a custom field value as attached to one issue.
// Value holds the scalar form; Values holds the multi-value form. Exactly
// one of the two is populated, matching the Redmine API payload.
type CustomFieldValue struct {
	ID     int      `json:"id"`
	Name   string   `json:"name"`
	Value  string   `json:"-"`
	Values []string `json:"-"`
}

// customFieldValueJSON is the wire form; value may be a string or an array.
type customFieldValueJSON struct {
	ID    int             `json:"id"`
	Name  string          `json:"name"`
	Value json.RawMessage `json:"value"`
}

// UnmarshalJSON accepts both the scalar and the multi-value wire forms.
func (c *CustomFieldValue) UnmarshalJSON(data []byte) error {
	var j customFieldValueJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}

	c.ID = j.ID
	c.Name = j.Name

	if len(j.Value) == 0 || string(j.Value) == "null" {
		return nil
	}

	if j.Value[0] == '[' {
		if err := json.Unmarshal(j.Value, &c.Values); err != nil {
			return fmt.Errorf("parsing custom field %d values: %w", j.ID, err)
		}
		return nil
	}

	var s string
	if err := json.Unmarshal(j.Value, &s); err != nil {
		// Numeric and boolean values arrive unquoted; keep the raw text.
		c.Value = string(j.Value)
		return nil
	}
	c.Value = s
	return nil
}

// Journal is one entry of an issue's change log. A single journal may carry
// a user note, a list of property changes, or both.
type Journal struct {
	ID        int
	Sequence  int
	User      Ref
	Notes     string
	CreatedOn time.Time
	Details   []JournalDetail
}

// Journal detail property kinds.
const (
	PropertyAttr        = "attr"
	PropertyCustomField = "cf"
)

// JournalDetail records a single property change inside a journal entry.
// Nil pointers distinguish "absent" from "set to empty".
type JournalDetail struct {
	Property string
	Name     string
	OldValue *string
	NewValue *string
}

// Attachment is a file attached to an issue.
type Attachment struct {
	ID          int
	Filename    string
	ContentURL  string
	Description string
	Author      Ref
	CreatedOn   time.Time
}

// Relation links two issues. IssueID is always the issue the relation was
// collected from; IssueToID is the other endpoint.
type Relation struct {
	ID        int
	IssueID   int
	IssueToID int
	Type      string
}

// TimeEntry is a logged unit of work on an issue.
type TimeEntry struct {
	ID       int
	User     Ref
	Hours    float64
	SpentOn  time.Time
	Comments string
}

// User is a Redmine account. Login is the identifying field used in value
// mappings.
type User struct {
	ID     int    `json:"id"`
	Login  string `json:"login"`
	Name   string `json:"name"`
	Mail   string `json:"mail"`
	Status int    `json:"status"`
}

// Group is a Redmine user group; groups may appear as issue assignees.
type Group struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Project is a Redmine project. Identifier is the identifying field used in
// value mappings and per-project mapping tables.
type Project struct {
	ID         int    `json:"id"`
	Identifier string `json:"identifier"`
	Name       string `json:"name"`
}

// Custom field formats as reported by the Redmine API.
const (
	FormatBool    = "bool"
	FormatDate    = "date"
	FormatFloat   = "float"
	FormatInt     = "int"
	FormatLink    = "link"
	FormatList    = "list"
	FormatText    = "text"
	FormatString  = "string"
	FormatUser    = "user"
	FormatVersion = "version"
)

// CustomFieldDef is the definition of an issue custom field.
type CustomFieldDef struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	FieldFormat string `json:"field_format"`
	Multiple    bool   `json:"multiple"`
}

// issueJSON is the JSON wire format for Issue as served by the Redmine API.
type issueJSON struct {
	ID             int                `json:"id"`
	Project        Ref                `json:"project"`
	Tracker        Ref                `json:"tracker"`
	Status         Ref                `json:"status"`
	Priority       Ref                `json:"priority"`
	Author         Ref                `json:"author"`
	AssignedTo     *Ref               `json:"assigned_to,omitempty"`
	Category       *Ref               `json:"category,omitempty"`
	FixedVersion   *Ref               `json:"fixed_version,omitempty"`
	Parent         *parentJSON        `json:"parent,omitempty"`
	Subject        string             `json:"subject"`
	Description    string             `json:"description"`
	EstimatedHours *float64           `json:"estimated_hours,omitempty"`
	CreatedOn      string             `json:"created_on"`
	UpdatedOn      string             `json:"updated_on"`
	CustomFields   []CustomFieldValue `json:"custom_fields,omitempty"`
	Journals       []journalJSON      `json:"journals,omitempty"`
	Attachments    []attachmentJSON   `json:"attachments,omitempty"`
	Relations      []relationJSON     `json:"relations,omitempty"`
	Watchers       []Ref              `json:"watchers,omitempty"`
}

type parentJSON struct {
	ID int `json:"id"`
}

type journalJSON struct {
	ID        int                 `json:"id"`
	User      Ref                 `json:"user"`
	Notes     string              `json:"notes"`
	CreatedOn string              `json:"created_on"`
	Details   []journalDetailJSON `json:"details,omitempty"`
}

type journalDetailJSON struct {
	Property string  `json:"property"`
	Name     string  `json:"name"`
	OldValue *string `json:"old_value,omitempty"`
	NewValue *string `json:"new_value,omitempty"`
}

type attachmentJSON struct {
	ID          int    `json:"id"`
	Filename    string `json:"filename"`
	ContentURL  string `json:"content_url"`
	Description string `json:"description"`
	Author      Ref    `json:"author"`
	CreatedOn   string `json:"created_on"`
}

type relationJSON struct {
	ID           int    `json:"id"`
	IssueID      int    `json:"issue_id"`
	IssueToID    int    `json:"issue_to_id"`
	RelationType string `json:"relation_type"`
}

func parseRedmineTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(redmineTime, value); err == nil {
		return t, nil
	}
	return time.Parse(redmineDate, value)
}

// UnmarshalJSON implements custom JSON deserialization for Issue, converting
// the Redmine wire format into the in-memory record.
func (i *Issue) UnmarshalJSON(data []byte) error {
	var j issueJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}

	i.ID = j.ID
	i.Project = j.Project
	i.Tracker = j.Tracker
	i.Status = j.Status
	i.Priority = j.Priority
	i.Author = j.Author
	i.AssignedTo = j.AssignedTo
	i.Category = j.Category
	i.FixedVersion = j.FixedVersion
	i.Subject = j.Subject
	i.Description = j.Description
	i.EstimatedHours = j.EstimatedHours
	i.CustomFields = j.CustomFields
	i.Watchers = j.Watchers

	if j.Parent != nil {
		pid := j.Parent.ID
		i.ParentID = &pid
	}

	createdOn, err := parseRedmineTime(j.CreatedOn)
	if err != nil {
		return fmt.Errorf("issue %d: parsing created_on: %w", j.ID, err)
	}
	i.CreatedOn = createdOn

	updatedOn, err := parseRedmineTime(j.UpdatedOn)
	if err != nil {
		return fmt.Errorf("issue %d: parsing updated_on: %w", j.ID, err)
	}
	i.UpdatedOn = updatedOn

	i.Journals = make([]Journal, 0, len(j.Journals))
	for seq, jj := range j.Journals {
		createdOn, err := parseRedmineTime(jj.CreatedOn)
		if err != nil {
			return fmt.Errorf("issue %d: parsing journal %d created_on: %w", j.ID, jj.ID, err)
		}
		journal := Journal{
			ID:        jj.ID,
			Sequence:  seq,
			User:      jj.User,
			Notes:     jj.Notes,
			CreatedOn: createdOn,
		}
		for _, d := range jj.Details {
			journal.Details = append(journal.Details, JournalDetail{
				Property: d.Property,
				Name:     d.Name,
				OldValue: d.OldValue,
				NewValue: d.NewValue,
			})
		}
		i.Journals = append(i.Journals, journal)
	}

	i.Attachments = make([]Attachment, 0, len(j.Attachments))
	for _, a := range j.Attachments {
		createdOn, err := parseRedmineTime(a.CreatedOn)
		if err != nil {
			return fmt.Errorf("issue %d: parsing attachment %d created_on: %w", j.ID, a.ID, err)
		}
		i.Attachments = append(i.Attachments, Attachment{
			ID:          a.ID,
			Filename:    a.Filename,
			ContentURL:  a.ContentURL,
			Description: a.Description,
			Author:      a.Author,
			CreatedOn:   createdOn,
		})
	}

	i.Relations = make([]Relation, 0, len(j.Relations))
	for _, r := range j.Relations {
		i.Relations = append(i.Relations, Relation{
			ID:        r.ID,
			IssueID:   r.IssueID,
			IssueToID: r.IssueToID,
			Type:      r.RelationType,
		})
	}

	return nil
}
