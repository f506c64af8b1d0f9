package assemble

import (
	"sort"
	"strconv"
	"time"

	"github.com/trackshift/trackshift/internal/config"
	"github.com/trackshift/trackshift/internal/export"
	"github.com/trackshift/trackshift/internal/mapping"
	"github.com/trackshift/trackshift/internal/model"
)

// attrFieldDests maps journaled attribute names to destination history
// fields. Entries here are the defaults; the configuration's field table
// overrides them, and an explicitly empty dest drops the attribute.
var attrFieldDests = map[string]string{
	"subject":          "summary",
	"description":      "description",
	"status_id":        "status",
	"priority_id":      "priority",
	"tracker_id":       "issuetype",
	"assigned_to_id":   "assignee",
	"fixed_version_id": "fixVersions",
	"category_id":      "components",
	"parent_id":        "parent",
	"estimated_hours":  "timeoriginalestimate",
}

// saveJournals splits each journal entry into its two halves: the user note
// becomes a comment, the property deltas become a history event. Entries
// are processed chronologically, with the retrieval sequence breaking
// timestamp ties.
func (a *Assembler) saveJournals(issue *model.Issue, rec *export.Issue, sourceProjectKey string) error {
	journals := make([]model.Journal, len(issue.Journals))
	copy(journals, issue.Journals)
	sort.SliceStable(journals, func(i, j int) bool {
		if !journals[i].CreatedOn.Equal(journals[j].CreatedOn) {
			return journals[i].CreatedOn.Before(journals[j].CreatedOn)
		}
		return journals[i].Sequence < journals[j].Sequence
	})

	for _, j := range journals {
		created := j.CreatedOn.UTC().Format(time.RFC3339)

		if j.Notes != "" {
			rec.Comments = append(rec.Comments, export.Comment{
				Author:  a.resolveUser(j.User),
				Body:    a.convertText(j.Notes),
				Created: created,
			})
			a.summary.Comments++
		}

		items := a.historyItems(issue, coalesceDetails(j.Details), sourceProjectKey)
		if len(items) == 0 {
			continue
		}
		rec.History = append(rec.History, export.HistoryEvent{
			Author:  a.resolveUser(j.User),
			Created: created,
			Items:   items,
		})

		for _, item := range items {
			if item.Field == "status" && item.ToString != "" {
				rec.StatusHistory = append(rec.StatusHistory, export.StatusTransition{
					Status:  item.ToString,
					Created: created,
				})
			}
		}
	}
	return nil
}

// coalesceDetails folds repeated changes to the same property within one
// journal entry into a single delta: first old value, last new value.
func coalesceDetails(details []model.JournalDetail) []model.JournalDetail {
	var out []model.JournalDetail
	index := make(map[[2]string]int)
	for _, d := range details {
		key := [2]string{d.Property, d.Name}
		if i, ok := index[key]; ok {
			out[i].NewValue = d.NewValue
			continue
		}
		index[key] = len(out)
		out = append(out, d)
	}
	return out
}

func (a *Assembler) historyItems(issue *model.Issue, details []model.JournalDetail, sourceProjectKey string) []export.HistoryItem {
	var items []export.HistoryItem
	for _, d := range details {
		var item export.HistoryItem
		var ok bool
		switch d.Property {
		case model.PropertyAttr:
			item, ok = a.attrHistoryItem(issue, d, sourceProjectKey)
		case model.PropertyCustomField:
			item, ok = a.customFieldHistoryItem(issue, d, sourceProjectKey)
		}
		if !ok {
			continue
		}
		// A change whose endpoints collapse to the same destination value
		// is a no-op after mapping; recording it would fabricate history.
		if item.FromString == item.ToString && item.From == item.To {
			continue
		}
		items = append(items, item)
	}
	return items
}

func (a *Assembler) attrHistoryItem(issue *model.Issue, d model.JournalDetail, sourceProjectKey string) (export.HistoryItem, bool) {
	field, configured := fieldOverride(a.deps.Config, d.Name)
	if configured {
		if field == "" {
			// Explicitly mapped to nothing: the field is dropped.
			return export.HistoryItem{}, false
		}
	} else {
		var ok bool
		field, ok = attrFieldDests[d.Name]
		if !ok {
			return export.HistoryItem{}, false
		}
	}

	item := export.HistoryItem{
		Field:      field,
		FieldType:  "jira",
		From:       deref(d.OldValue),
		To:         deref(d.NewValue),
		FromString: a.attrDisplay(issue, d.Name, deref(d.OldValue), sourceProjectKey),
		ToString:   a.attrDisplay(issue, d.Name, deref(d.NewValue), sourceProjectKey),
	}
	return item, true
}

// fieldOverride reports whether the config mentions the source field at
// all, distinguishing "drop explicitly" from "fall back to defaults".
func fieldOverride(cfg *config.Config, source string) (string, bool) {
	for _, f := range cfg.Fields {
		if f.Source == source {
			return f.Dest, true
		}
	}
	return "", false
}

func (a *Assembler) customFieldHistoryItem(issue *model.Issue, d model.JournalDetail, sourceProjectKey string) (export.HistoryItem, bool) {
	id, err := strconv.Atoi(d.Name)
	if err != nil {
		return export.HistoryItem{}, false
	}
	def, found := a.deps.Directory.CustomField(id)
	if !found {
		return export.HistoryItem{}, false
	}

	name := a.resolveOptional(mapping.ResourceCustomField, def.Name, sourceProjectKey)
	if name == "" {
		return export.HistoryItem{}, false
	}

	item := export.HistoryItem{
		Field:      name,
		FieldType:  "custom",
		From:       deref(d.OldValue),
		To:         deref(d.NewValue),
		FromString: a.customValueDisplay(issue, def, deref(d.OldValue)),
		ToString:   a.customValueDisplay(issue, def, deref(d.NewValue)),
	}
	return item, true
}

// attrDisplay produces the human-readable form of a journaled attribute
// value: ID-valued attributes are looked up and pushed through the value
// mappings, plain attributes pass through.
func (a *Assembler) attrDisplay(issue *model.Issue, attr, raw, sourceProjectKey string) string {
	if raw == "" {
		return ""
	}

	id, err := strconv.Atoi(raw)
	if err != nil {
		id = 0
	}

	switch attr {
	case "status_id":
		if name, ok := a.deps.Directory.StatusName(id); ok {
			return a.resolveOptional(mapping.ResourceStatus, name, "")
		}
	case "priority_id":
		if name, ok := a.deps.Directory.PriorityName(id); ok {
			return a.resolveOptional(mapping.ResourcePriority, name, "")
		}
	case "tracker_id":
		if name, ok := a.deps.Directory.TrackerName(id); ok {
			return a.resolveOptional(mapping.ResourceTracker, name, "")
		}
	case "assigned_to_id":
		return a.resolveAssignee(model.Ref{ID: id})
	case "fixed_version_id":
		if name, ok := a.deps.Directory.VersionName(issue.Project.ID, id); ok {
			return a.resolveOptional(mapping.ResourceVersion, name, sourceProjectKey)
		}
	case "category_id":
		if name, ok := a.deps.Directory.CategoryName(issue.Project.ID, id); ok {
			return a.resolveOptional(mapping.ResourceCategory, name, sourceProjectKey)
		}
	case "description":
		return a.convertText(raw)
	default:
		return raw
	}
	return raw
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
