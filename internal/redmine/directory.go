package redmine

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/trackshift/trackshift/internal/model"
)

// Directory resolves source entity IDs to their identifying values. Each
// enumeration is fetched lazily on first use and cached for the run, so an
// export that never touches versions never lists them.
type Directory struct {
	client *Client
	ctx    context.Context

	users        map[int]string
	groups       map[int]string
	projects     map[int]string
	trackers     map[int]string
	statuses     map[int]string
	priorities   map[int]string
	customFields map[int]model.CustomFieldDef

	// Versions and categories are project-scoped enumerations.
	versions   map[int]map[int]string
	categories map[int]map[int]string
}

// NewDirectory returns a Directory backed by the client. The context bounds
// every lazy fetch the directory performs.
func NewDirectory(ctx context.Context, client *Client) *Directory {
	return &Directory{
		client:     client,
		ctx:        ctx,
		versions:   make(map[int]map[int]string),
		categories: make(map[int]map[int]string),
	}
}

func (d *Directory) UserLogin(id int) (string, bool) {
	if d.users == nil {
		d.users = d.loadUsers()
	}
	v, ok := d.users[id]
	return v, ok
}

func (d *Directory) GroupName(id int) (string, bool) {
	if d.groups == nil {
		d.groups = d.loadRefs("/groups.json", "groups")
	}
	v, ok := d.groups[id]
	return v, ok
}

func (d *Directory) ProjectKey(id int) (string, bool) {
	if d.projects == nil {
		d.projects = d.loadProjects()
	}
	v, ok := d.projects[id]
	return v, ok
}

func (d *Directory) TrackerName(id int) (string, bool) {
	if d.trackers == nil {
		d.trackers = d.loadRefs("/trackers.json", "trackers")
	}
	v, ok := d.trackers[id]
	return v, ok
}

func (d *Directory) StatusName(id int) (string, bool) {
	if d.statuses == nil {
		d.statuses = d.loadRefs("/issue_statuses.json", "issue_statuses")
	}
	v, ok := d.statuses[id]
	return v, ok
}

func (d *Directory) PriorityName(id int) (string, bool) {
	if d.priorities == nil {
		d.priorities = d.loadRefs("/enumerations/issue_priorities.json", "issue_priorities")
	}
	v, ok := d.priorities[id]
	return v, ok
}

func (d *Directory) CategoryName(projectID, id int) (string, bool) {
	table, ok := d.categories[projectID]
	if !ok {
		table = d.loadRefs(fmt.Sprintf("/projects/%d/issue_categories.json", projectID), "issue_categories")
		d.categories[projectID] = table
	}
	v, ok := table[id]
	return v, ok
}

func (d *Directory) VersionName(projectID, id int) (string, bool) {
	table, ok := d.versions[projectID]
	if !ok {
		table = d.loadRefs(fmt.Sprintf("/projects/%d/versions.json", projectID), "versions")
		d.versions[projectID] = table
	}
	v, ok := table[id]
	return v, ok
}

func (d *Directory) CustomField(id int) (model.CustomFieldDef, bool) {
	if d.customFields == nil {
		d.customFields = d.loadCustomFields()
	}
	def, ok := d.customFields[id]
	return def, ok
}

// loadRefs lists a flat id/name enumeration. Listing failures leave an
// empty table: lookups then miss and the caller falls back to the raw
// reference, which is the degradation the pipeline already handles.
func (d *Directory) loadRefs(path, key string) map[int]string {
	out := make(map[int]string)
	err := d.client.paged(d.ctx, path, nil, func(raw json.RawMessage) (int, error) {
		var page map[string][]model.Ref
		if err := json.Unmarshal(raw, &page); err != nil {
			return 0, fmt.Errorf("parsing %s page: %w", key, err)
		}
		for _, ref := range page[key] {
			out[ref.ID] = ref.Name
		}
		return len(page[key]), nil
	})
	if err != nil {
		return map[int]string{}
	}
	return out
}

func (d *Directory) loadUsers() map[int]string {
	out := make(map[int]string)
	// status=* includes locked accounts; historical issues reference them.
	query := url.Values{"status": {"*"}}
	err := d.client.paged(d.ctx, "/users.json", query, func(raw json.RawMessage) (int, error) {
		var page struct {
			Users []model.User `json:"users"`
		}
		if err := json.Unmarshal(raw, &page); err != nil {
			return 0, fmt.Errorf("parsing users page: %w", err)
		}
		for _, u := range page.Users {
			out[u.ID] = u.Login
		}
		return len(page.Users), nil
	})
	if err != nil {
		return map[int]string{}
	}
	return out
}

func (d *Directory) loadProjects() map[int]string {
	out := make(map[int]string)
	err := d.client.paged(d.ctx, "/projects.json", nil, func(raw json.RawMessage) (int, error) {
		var page struct {
			Projects []model.Project `json:"projects"`
		}
		if err := json.Unmarshal(raw, &page); err != nil {
			return 0, fmt.Errorf("parsing projects page: %w", err)
		}
		for _, p := range page.Projects {
			out[p.ID] = p.Identifier
		}
		return len(page.Projects), nil
	})
	if err != nil {
		return map[int]string{}
	}
	return out
}

func (d *Directory) loadCustomFields() map[int]model.CustomFieldDef {
	out := make(map[int]model.CustomFieldDef)
	err := d.client.paged(d.ctx, "/custom_fields.json", nil, func(raw json.RawMessage) (int, error) {
		var page struct {
			CustomFields []model.CustomFieldDef `json:"custom_fields"`
		}
		if err := json.Unmarshal(raw, &page); err != nil {
			return 0, fmt.Errorf("parsing custom fields page: %w", err)
		}
		for _, def := range page.CustomFields {
			out[def.ID] = def
		}
		return len(page.CustomFields), nil
	})
	if err != nil {
		return map[int]model.CustomFieldDef{}
	}
	return out
}
