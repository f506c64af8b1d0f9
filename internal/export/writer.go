package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/trackshift/trackshift/internal/relations"
)

// documentJSON is the wire shape of the bulk-import document: a list of
// projects plus the inline links lifted to the top level, which is where
// the importer expects them.
type documentJSON struct {
	Projects []*Project `json:"projects"`
	Links    []Link     `json:"links,omitempty"`
}

// WriteDocument serializes the document as the bulk-import JSON artifact.
func WriteDocument(w io.Writer, doc *Document, pretty bool) error {
	wire := documentJSON{Projects: doc.Projects}
	if wire.Projects == nil {
		wire.Projects = []*Project{}
	}
	for _, p := range wire.Projects {
		for _, issue := range p.Issues {
			wire.Links = append(wire.Links, issue.Links...)
		}
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(wire); err != nil {
		return fmt.Errorf("encoding export document: %w", err)
	}
	return nil
}

// WriteSideTable serializes the deferred relations as a flat delimited
// table for a second import pass once all issues exist in the destination.
func WriteSideTable(w io.Writer, table *relations.SideTable) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"source_issue", "target_issue", "relation_type"}); err != nil {
		return fmt.Errorf("writing side table header: %w", err)
	}
	for _, row := range table.Rows() {
		record := []string{
			strconv.Itoa(row.SourceID),
			strconv.Itoa(row.TargetID),
			row.Type,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing side table row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing side table: %w", err)
	}
	return nil
}
