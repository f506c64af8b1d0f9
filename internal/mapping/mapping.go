// Package mapping resolves source resource values to destination-system
// identifiers using layered static configuration, a run-scoped cache, and
// on-demand interactive decisions.
package mapping

import (
	"errors"
	"fmt"
)

// Source resource types that support value mappings.
const (
	ResourceUser         = "user"
	ResourceGroup        = "group"
	ResourceProject      = "project"
	ResourceTracker      = "tracker"
	ResourceStatus       = "status"
	ResourcePriority     = "priority"
	ResourceCategory     = "category"
	ResourceVersion      = "version"
	ResourceCustomField  = "custom_field"
	ResourceRelationType = "relation_type"
)

// Destination resource types on the Jira side.
const (
	DestUser        = "jira_user"
	DestProject     = "jira_project"
	DestIssueType   = "jira_issue_type"
	DestStatus      = "jira_status"
	DestPriority    = "jira_priority"
	DestComponent   = "jira_component"
	DestLabel       = "jira_label"
	DestVersion     = "jira_version"
	DestCustomField = "jira_custom_field"
	DestLinkType    = "jira_link_type"
)

// ErrUnmapped reports that a value could not be resolved: no static mapping
// matched and dynamic resolution was disabled or the operator declined.
// Callers record the field as absent and continue; ErrUnmapped is never
// fatal to a run.
var ErrUnmapped = errors.New("no mapping for value")

// ErrNoDestType reports that a resource type in use has no destination type
// configured at all. This is the fatal configuration class.
var ErrNoDestType = errors.New("no destination type configured")

// Key identifies one resolution decision. ProjectKey is empty for global
// lookups. Dest is part of the key because a resource type may be mapped to
// different destination types in different projects; caching by source value
// alone would collide across them.
type Key struct {
	Resource    string
	Dest        string
	ProjectKey  string
	SourceValue string
}

func (k Key) String() string {
	if k.ProjectKey == "" {
		return fmt.Sprintf("%s->%s %q", k.Resource, k.Dest, k.SourceValue)
	}
	return fmt.Sprintf("%s->%s [%s] %q", k.Resource, k.Dest, k.ProjectKey, k.SourceValue)
}

// Decision is a resolved destination value. Unmapped decisions are cached
// like positive ones so a declined value never re-prompts within a run.
type Decision struct {
	Dest     string
	Value    string
	Unmapped bool
}

// Request describes a pending interactive resolution.
type Request struct {
	Resource    string
	SourceValue string
	ProjectKey  string
	DestTypes   []string
}

// Response is the operator's answer to a Request. Skip leaves the value
// unmapped.
type Response struct {
	Dest  string
	Value string
	Skip  bool
}

// Prompter obtains an interactive mapping decision from the operator. The
// console implementation lives in prompt.go; tests substitute fakes.
type Prompter interface {
	ResolveValue(req Request) (Response, error)
}
