// Package state persists what an incremental build needs from the previous
// one: class digests, the active plugins and the classes each plugin
// affected.
package state

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"clasp/internal/graph"

	_ "modernc.org/sqlite"
)

const schemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS classes (
	name      TEXT PRIMARY KEY,
	container TEXT NOT NULL,
	digest    INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS plugins (
	name     TEXT PRIMARY KEY,
	position INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS affected (
	plugin TEXT NOT NULL,
	class  TEXT NOT NULL,
	PRIMARY KEY (plugin, class)
);
`

// Store is the SQLite-backed build state.
type Store struct {
	db *sql.DB
}

// Open opens or creates the state database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	var v int
	err := s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&v)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := s.db.Exec("INSERT INTO schema_version(version) VALUES(?)", schemaVersion); err != nil {
			return fmt.Errorf("set schema version: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("read schema version: %w", err)
	case v != schemaVersion:
		return fmt.Errorf("unknown schema version %d", v)
	}
	return nil
}

// Previous returns the digests saved by the last build, keyed by class name.
// It is empty when no build has been saved.
func (s *Store) Previous() (map[string]graph.Digest, error) {
	rows, err := s.db.Query("SELECT name, container, digest FROM classes")
	if err != nil {
		return nil, fmt.Errorf("query classes: %w", err)
	}
	defer rows.Close()
	out := make(map[string]graph.Digest)
	for rows.Next() {
		var d graph.Digest
		var sum int64
		if err := rows.Scan(&d.Name, &d.Container, &sum); err != nil {
			return nil, fmt.Errorf("scan class: %w", err)
		}
		d.Sum = uint64(sum)
		out[d.Name] = d
	}
	return out, rows.Err()
}

// Plugins returns the plugins of the last build in registration order.
func (s *Store) Plugins() ([]string, error) {
	return s.strings("SELECT name FROM plugins ORDER BY position")
}

// Affected returns the classes plugin affected in earlier builds, sorted.
func (s *Store) Affected(plugin string) ([]string, error) {
	return s.strings("SELECT class FROM affected WHERE plugin = ? ORDER BY class", plugin)
}

func (s *Store) strings(query string, args ...any) ([]string, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Snapshot is the state written at the end of a build.
type Snapshot struct {
	Digests  []graph.Digest
	Plugins  []string
	Affected map[string][]string
}

// Save replaces the stored state with snap in one transaction.
func (s *Store) Save(snap Snapshot) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range []string{"DELETE FROM classes", "DELETE FROM plugins", "DELETE FROM affected"} {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("reset state: %w", err)
		}
	}
	for _, d := range snap.Digests {
		if _, err := tx.Exec("INSERT INTO classes(name, container, digest) VALUES(?, ?, ?)", d.Name, d.Container, int64(d.Sum)); err != nil {
			return fmt.Errorf("save class %s: %w", d.Name, err)
		}
	}
	for i, p := range snap.Plugins {
		if _, err := tx.Exec("INSERT INTO plugins(name, position) VALUES(?, ?)", p, i); err != nil {
			return fmt.Errorf("save plugin %s: %w", p, err)
		}
	}
	plugins := make([]string, 0, len(snap.Affected))
	for p := range snap.Affected {
		plugins = append(plugins, p)
	}
	sort.Strings(plugins)
	for _, p := range plugins {
		for _, c := range snap.Affected[p] {
			if _, err := tx.Exec("INSERT OR IGNORE INTO affected(plugin, class) VALUES(?, ?)", p, c); err != nil {
				return fmt.Errorf("save affected %s/%s: %w", p, c, err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
