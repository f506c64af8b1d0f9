package assemble

import (
	"strconv"

	"github.com/trackshift/trackshift/internal/export"
	"github.com/trackshift/trackshift/internal/mapping"
	"github.com/trackshift/trackshift/internal/model"
)

const customFieldTypePrefix = "com.atlassian.jira.plugin.system.customfieldtypes:"

// customFieldTypes maps a source field format to the destination custom
// field type key, for the single-value and multi-value variants. Formats
// with no multi-value variant leave it empty.
var customFieldTypes = map[string]struct {
	single   string
	multiple string
}{
	model.FormatBool:    {single: "radiobuttons"},
	model.FormatDate:    {single: "datepicker"},
	model.FormatFloat:   {single: "float"},
	model.FormatInt:     {single: "float"},
	model.FormatLink:    {single: "url"},
	model.FormatList:    {single: "select", multiple: "multiselect"},
	model.FormatText:    {single: "textarea"},
	model.FormatString:  {single: "textfield"},
	model.FormatUser:    {single: "userpicker", multiple: "multiuserpicker"},
	model.FormatVersion: {single: "version", multiple: "multiversion"},
}

func customFieldType(format string, multiple bool) string {
	entry, ok := customFieldTypes[format]
	if !ok {
		entry = customFieldTypes[model.FormatString]
	}
	if multiple && entry.multiple != "" {
		return customFieldTypePrefix + entry.multiple
	}
	return customFieldTypePrefix + entry.single
}

// saveCustomFields converts the issue's custom field values. A field whose
// name has no mapping is dropped entirely rather than emitted empty.
func (a *Assembler) saveCustomFields(issue *model.Issue, rec *export.Issue, sourceProjectKey string) {
	for _, cf := range issue.CustomFields {
		if cf.Value == "" && len(cf.Values) == 0 {
			continue
		}

		name := a.resolveOptional(mapping.ResourceCustomField, cf.Name, sourceProjectKey)
		if name == "" {
			continue
		}

		def, ok := a.deps.Directory.CustomField(cf.ID)
		if !ok {
			def = model.CustomFieldDef{ID: cf.ID, Name: cf.Name, FieldFormat: model.FormatString}
		}

		var value any
		if def.Multiple || len(cf.Values) > 0 {
			values := make([]any, 0, len(cf.Values))
			for _, v := range cf.Values {
				values = append(values, a.customValue(issue, def, v))
			}
			if len(values) == 0 {
				continue
			}
			value = values
		} else {
			value = a.customValue(issue, def, cf.Value)
		}

		rec.CustomFields = append(rec.CustomFields, export.CustomFieldValue{
			FieldName: name,
			FieldType: customFieldType(def.FieldFormat, def.Multiple),
			Value:     value,
		})
	}
}

// customValue converts one raw custom field value according to its format.
// Conversion is best effort: a value that fails to parse passes through
// as text rather than vanishing.
func (a *Assembler) customValue(issue *model.Issue, def model.CustomFieldDef, raw string) any {
	switch def.FieldFormat {
	case model.FormatBool:
		if raw == "1" {
			return "Yes"
		}
		return "No"
	case model.FormatFloat:
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return f
		}
	case model.FormatInt:
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return n
		}
	case model.FormatText:
		return a.convertText(raw)
	case model.FormatUser:
		if id, err := strconv.Atoi(raw); err == nil {
			if login, ok := a.deps.Directory.UserLogin(id); ok {
				if mapped := a.resolveOptional(mapping.ResourceUser, login, ""); mapped != "" {
					return mapped
				}
			}
		}
	case model.FormatVersion:
		if id, err := strconv.Atoi(raw); err == nil {
			if name, ok := a.deps.Directory.VersionName(issue.Project.ID, id); ok {
				return name
			}
		}
	}
	return raw
}

// customValueDisplay is the history-item rendering of a custom field value:
// the converted value flattened to a string.
func (a *Assembler) customValueDisplay(issue *model.Issue, def model.CustomFieldDef, raw string) string {
	if raw == "" {
		return ""
	}
	switch v := a.customValue(issue, def, raw).(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return raw
	}
}
