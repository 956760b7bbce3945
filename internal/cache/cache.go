// Package cache implements the build orchestrator's optional object cache:
// a shared directory of precompiled dependency objects with a SQLite index
// of what was built when. Objects are compiled inside each build's own
// workspace; the cache seeds them in beforehand and promotes them out
// afterwards, both serialized per Dir, so concurrent builds never touch
// the same object path and never observe a torn file.
package cache

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS objects (
	name        TEXT PRIMARY KEY,
	target      TEXT NOT NULL,
	size        INTEGER NOT NULL,
	modified_at TIMESTAMP NOT NULL,
	recorded_at TIMESTAMP NOT NULL
);`

// modelObject is the per-model generated object; it is never shared.
const modelObject = "model.o"

// Entry describes one cached object file.
type Entry struct {
	Name       string
	Target     string
	Size       int64
	ModifiedAt time.Time
	RecordedAt time.Time
}

// Dir is a directory-backed object cache. It satisfies build.ObjectCache.
// Use one Dir per cache directory; its mutex is what serializes access.
type Dir struct {
	mu     sync.Mutex // serializes Seed and Record
	root   string
	db     *sql.DB
	logger *slog.Logger
}

// Open creates (or reopens) a cache rooted at dir.
func Open(dir string, logger *slog.Logger) (*Dir, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Join(dir, "obj"), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, "index.db")+"?_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open cache index: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize cache index: %w", err)
	}

	return &Dir{root: dir, db: db, logger: logger}, nil
}

// ObjectDir returns the shared directory cached objects are stored in.
func (d *Dir) ObjectDir() string { return filepath.Join(d.root, "obj") }

// Seed copies every cached object into objDir so the build driver can
// skip recompiling shared dependencies. objDir must exist. A stale or
// missing entry simply means make recompiles that object.
func (d *Dir) Seed(objDir string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	entries, err := os.ReadDir(d.ObjectDir())
	if err != nil {
		return err
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".o" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(d.ObjectDir(), name))
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(objDir, name), data, 0o644); err != nil {
			return err
		}
	}
	return nil
}

// Record promotes the model-independent objects produced by a successful
// build of target from objDir into the cache and indexes them. Promotion
// writes to a temp name and renames, so a reader never sees a torn object.
func (d *Dir) Record(ctx context.Context, target, objDir string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	entries, err := os.ReadDir(objDir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".o" || name == modelObject {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return err
		}
		if err := d.promote(filepath.Join(objDir, name), name); err != nil {
			return err
		}
		_, err = d.db.ExecContext(ctx, `
			INSERT INTO objects (name, target, size, modified_at, recorded_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(name) DO UPDATE SET
				target = excluded.target,
				size = excluded.size,
				modified_at = excluded.modified_at,
				recorded_at = excluded.recorded_at`,
			name, target, info.Size(), info.ModTime().UTC(), time.Now().UTC())
		if err != nil {
			return err
		}
	}
	return nil
}

func (d *Dir) promote(src, name string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	tmp := filepath.Join(d.ObjectDir(), name+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, filepath.Join(d.ObjectDir(), name))
}

// Objects lists the indexed cache entries, newest first.
func (d *Dir) Objects(ctx context.Context) ([]Entry, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT name, target, size, modified_at, recorded_at
		 FROM objects ORDER BY recorded_at DESC, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Name, &e.Target, &e.Size, &e.ModifiedAt, &e.RecordedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Purge removes every cached object and its index entry.
func (d *Dir) Purge(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, err := d.db.ExecContext(ctx, `DELETE FROM objects`); err != nil {
		return err
	}
	if err := os.RemoveAll(d.ObjectDir()); err != nil {
		return err
	}
	return os.MkdirAll(d.ObjectDir(), 0o755)
}

// Close releases the index database.
func (d *Dir) Close() error { return d.db.Close() }
