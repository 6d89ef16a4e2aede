package bank

import (
	"database/sql"
	"fmt"
	"os"
	"strings"

	_ "modernc.org/sqlite"

	cerrors "github.com/ironsheep/captcha-solver/internal/errors"
	"github.com/ironsheep/captcha-solver/internal/imaging"
)

const driverName = "sqlite"

const schema = `CREATE TABLE IF NOT EXISTS templates (
	position INTEGER PRIMARY KEY,
	label    TEXT NOT NULL UNIQUE,
	bitmap   TEXT NOT NULL
)`

// rowSeparator joins glyph rows in the bitmap column.
const rowSeparator = "/"

// LoadSQLite reads a bank from a SQLite database holding a templates table.
// Templates are read in position order; bitmap holds the glyph rows joined
// by "/".
func LoadSQLite(path string, rows, cols int) (*Bank, error) {
	// sql.Open would silently create a missing database.
	if _, err := os.Stat(path); err != nil {
		return nil, cerrors.NewModelLoadError(path, "failed to open bank", err)
	}

	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, cerrors.NewModelLoadError(path, "failed to open bank", err)
	}
	defer db.Close()

	rs, err := db.Query(`SELECT label, bitmap FROM templates ORDER BY position`)
	if err != nil {
		return nil, cerrors.NewModelLoadError(path, "failed to query templates", err)
	}
	defer rs.Close()

	var templates []Template
	for rs.Next() {
		var label, bitmap string
		if err := rs.Scan(&label, &bitmap); err != nil {
			return nil, cerrors.NewModelLoadError(path, "failed to read template", err)
		}
		glyph, err := imaging.ParseGrid(strings.Split(bitmap, rowSeparator))
		if err != nil {
			return nil, cerrors.NewModelLoadError(path,
				fmt.Sprintf("template %q", label), err)
		}
		templates = append(templates, Template{Label: label, Glyph: glyph})
	}
	if err := rs.Err(); err != nil {
		return nil, cerrors.NewModelLoadError(path, "failed to read templates", err)
	}

	return New(path, rows, cols, templates)
}

// WriteSQLite stores b in a new SQLite database at path, keeping bank order
// in the position column. An existing templates table is replaced.
func WriteSQLite(path string, b *Bank) error {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DROP TABLE IF EXISTS templates`); err != nil {
		return fmt.Errorf("failed to drop templates: %w", err)
	}
	if _, err := tx.Exec(schema); err != nil {
		return fmt.Errorf("failed to create templates: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO templates (position, label, bitmap) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, t := range b.templates {
		bitmap := strings.Join(t.Glyph.RowStrings(), rowSeparator)
		if _, err := stmt.Exec(i, t.Label, bitmap); err != nil {
			return fmt.Errorf("failed to insert template %q: %w", t.Label, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}
