// Package relations classifies issue-to-issue relations against the
// exported subset and accumulates the deferred side table.
package relations

import "github.com/trackshift/trackshift/internal/model"

// Locality says where a relation belongs in the export artifacts.
type Locality int

const (
	// Inline relations have both endpoints inside the exported subset and
	// travel with the main export document.
	Inline Locality = iota
	// External relations reference an issue outside the subset (or one
	// that no longer exists) and are deferred to the side table for a
	// second import pass.
	External
)

// Classify determines a relation's locality. The subset must be the
// complete exported issue ID set, computed before any classification:
// relations may reference issues exported later in processing order.
// Classification does not validate that the target exists at all; a
// dangling target is External and becomes an import-time no-op.
func Classify(rel model.Relation, subset map[int]bool) Locality {
	if subset[rel.IssueID] && subset[rel.IssueToID] {
		return Inline
	}
	return External
}

// Row is one side-table entry.
type Row struct {
	SourceID int
	TargetID int
	Type     string
}

// SideTable collects external relations in encounter order, deduplicated
// by the full (source, target, type) triple.
type SideTable struct {
	rows []Row
	seen map[Row]bool
}

// NewSideTable returns an empty side table.
func NewSideTable() *SideTable {
	return &SideTable{seen: make(map[Row]bool)}
}

// Add appends a relation unless the identical triple was already recorded.
// It reports whether the row was added.
func (t *SideTable) Add(rel model.Relation) bool {
	row := Row{SourceID: rel.IssueID, TargetID: rel.IssueToID, Type: rel.Type}
	if t.seen[row] {
		return false
	}
	t.seen[row] = true
	t.rows = append(t.rows, row)
	return true
}

// Rows returns the collected rows in encounter order.
func (t *SideTable) Rows() []Row {
	return t.rows
}

// Len returns the number of collected rows.
func (t *SideTable) Len() int {
	return len(t.rows)
}
