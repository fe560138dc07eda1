package db

import (
	"embed"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/tgienger/annotate/internal/models"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migration is one versioned schema step
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// Migrations returns the embedded migrations ordered by version
func Migrations() ([]Migration, error) {
	entries, err := fs.ReadDir(migrationFS, "migrations")
	if err != nil {
		return nil, errors.WithStack(err)
	}

	var out []Migration
	for _, e := range entries {
		name := e.Name()
		prefix, _, ok := strings.Cut(name, "_")
		if !ok {
			return nil, errors.Errorf("migration %s has no version prefix", name)
		}
		version, err := strconv.Atoi(prefix)
		if err != nil {
			return nil, errors.Wrapf(err, "migration %s", name)
		}
		body, err := migrationFS.ReadFile(path.Join("migrations", name))
		if err != nil {
			return nil, errors.WithStack(err)
		}
		out = append(out, Migration{Version: version, Name: name, SQL: string(body)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

func (db *DB) ensureMigrationTable() error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at DATETIME NOT NULL
		)
	`)
	return errors.WithStack(err)
}

// SchemaVersion returns the highest applied migration version, 0 for a fresh database
func (db *DB) SchemaVersion() (int, error) {
	if err := db.ensureMigrationTable(); err != nil {
		return 0, err
	}
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	return version, errors.WithStack(err)
}

// Migrate applies every pending migration, each in its own transaction, and
// returns the migrations it applied.
func (db *DB) Migrate() ([]Migration, error) {
	all, err := Migrations()
	if err != nil {
		return nil, err
	}
	current, err := db.SchemaVersion()
	if err != nil {
		return nil, err
	}

	var applied []Migration
	for _, m := range all {
		if m.Version <= current {
			continue
		}
		tx, err := db.Begin()
		if err != nil {
			return applied, errors.WithStack(err)
		}
		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return applied, errors.Wrapf(err, "apply migration %s", m.Name)
		}
		if _, err := tx.Exec(
			"INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)",
			m.Version, m.Name, db.now(),
		); err != nil {
			tx.Rollback()
			return applied, errors.WithStack(err)
		}
		if err := tx.Commit(); err != nil {
			return applied, errors.WithStack(err)
		}
		applied = append(applied, m)
	}
	return applied, nil
}

// CheckSchema fails with models.ErrSchemaOutdated when migrations are pending
func (db *DB) CheckSchema() error {
	all, err := Migrations()
	if err != nil {
		return err
	}
	current, err := db.SchemaVersion()
	if err != nil {
		return err
	}
	if len(all) > 0 && current < all[len(all)-1].Version {
		return errors.Wrapf(models.ErrSchemaOutdated, "at version %d of %d", current, all[len(all)-1].Version)
	}
	return nil
}
