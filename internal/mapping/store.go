package mapping

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// storeDDL creates the decisions table. One row per resolution key; the
// unmapped flag records operator declines so they survive across runs.
const storeDDL = `
CREATE TABLE IF NOT EXISTS decisions (
	resource     TEXT NOT NULL,
	dest         TEXT NOT NULL,
	project_key  TEXT NOT NULL DEFAULT '',
	source_value TEXT NOT NULL,
	dest_value   TEXT,
	unmapped     INTEGER NOT NULL DEFAULT 0,
	decided_at   TEXT NOT NULL,
	PRIMARY KEY (resource, dest, project_key, source_value)
);
`

// Store persists interactive mapping decisions in a SQLite database so a
// re-run of the export does not re-prompt for values already decided.
type Store struct {
	db *sql.DB
}

// OpenStore opens or creates the decision database at path and ensures the
// schema exists.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening decision store: %w", err)
	}

	// SQLite is single-writer; one connection avoids lock contention.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	if _, err := db.Exec(storeDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating decision schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save upserts one decision.
func (s *Store) Save(key Key, d Decision) error {
	unmapped := 0
	if d.Unmapped {
		unmapped = 1
	}
	_, err := s.db.Exec(`
INSERT INTO decisions (resource, dest, project_key, source_value, dest_value, unmapped, decided_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (resource, dest, project_key, source_value)
DO UPDATE SET dest_value = excluded.dest_value, unmapped = excluded.unmapped, decided_at = excluded.decided_at`,
		key.Resource, key.Dest, key.ProjectKey, key.SourceValue,
		d.Value, unmapped, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("saving decision for %s: %w", key, err)
	}
	return nil
}

// Load returns all persisted decisions keyed by their resolution key.
func (s *Store) Load() (map[Key]Decision, error) {
	rows, err := s.db.Query(`SELECT resource, dest, project_key, source_value, dest_value, unmapped FROM decisions`)
	if err != nil {
		return nil, fmt.Errorf("querying decisions: %w", err)
	}
	defer rows.Close()

	entries := make(map[Key]Decision)
	for rows.Next() {
		var key Key
		var value sql.NullString
		var unmapped int
		if err := rows.Scan(&key.Resource, &key.Dest, &key.ProjectKey, &key.SourceValue, &value, &unmapped); err != nil {
			return nil, fmt.Errorf("scanning decision row: %w", err)
		}
		entries[key] = Decision{
			Dest:     key.Dest,
			Value:    value.String,
			Unmapped: unmapped != 0,
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating decisions: %w", err)
	}

	return entries, nil
}
