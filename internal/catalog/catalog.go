// Package catalog exports bound classes and overload tables to SQLite so
// they can be inspected and queried outside the host process.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/substring/sqrat/internal/overload"
)

const schema = `
CREATE TABLE IF NOT EXISTS classes (
	token TEXT PRIMARY KEY,
	name  TEXT NOT NULL UNIQUE,
	base  TEXT
);
CREATE TABLE IF NOT EXISTS overloads (
	id        INTEGER PRIMARY KEY,
	scope     TEXT NOT NULL,
	name      TEXT NOT NULL,
	arity     INTEGER NOT NULL,
	keys      TEXT NOT NULL,
	signature TEXT NOT NULL,
	mode      TEXT NOT NULL,
	UNIQUE (scope, name, keys)
);
CREATE TABLE IF NOT EXISTS params (
	overload_id INTEGER NOT NULL REFERENCES overloads(id) ON DELETE CASCADE,
	position    INTEGER NOT NULL,
	key         TEXT NOT NULL,
	type_name   TEXT NOT NULL,
	PRIMARY KEY (overload_id, position)
);
`

// Scope is one overload table to export. Name is "" for globals and the
// class name for methods. Mode reports the return mode of a family and may
// be nil.
type Scope struct {
	Name  string
	Table *overload.Table
	Mode  func(name string) string
}

type Class struct {
	Token string
	Name  string
	Base  string // base class name, "" for roots
}

type Overload struct {
	Scope     string
	Name      string
	Arity     int
	Keys      string
	Signature string
	Mode      string
}

// Catalog is an open catalog database.
type Catalog struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open opens (creating if needed) the catalog at path. ":memory:" opens a
// private in-memory database.
func Open(ctx context.Context, path string, logger *zap.Logger) (*Catalog, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open catalog %s: %w", path, err)
	}
	// A single connection keeps ":memory:" databases shared across queries.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init catalog %s: %w", path, err)
	}
	return &Catalog{db: db, logger: logger}, nil
}

func (c *Catalog) Close() error { return c.db.Close() }

// Export replaces the catalog contents with classes and the overloads of
// every scope, in one transaction.
func (c *Catalog) Export(ctx context.Context, classes *overload.Registry, scopes []Scope) (err error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	for _, stmt := range []string{"DELETE FROM params", "DELETE FROM overloads", "DELETE FROM classes"} {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("export: clear: %w", err)
		}
	}

	for _, id := range classes.Classes() {
		var base sql.NullString
		if b := id.Base(); b != nil {
			base = sql.NullString{String: b.Token().String(), Valid: true}
		}
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO classes (token, name, base) VALUES (?, ?, ?)`,
			id.Token().String(), id.Name(), base); err != nil {
			return fmt.Errorf("export class %s: %w", id.Name(), err)
		}
	}

	n := 0
	for _, s := range scopes {
		for _, name := range s.Table.Names() {
			mode := ""
			if s.Mode != nil {
				mode = s.Mode(name)
			}
			for _, e := range s.Table.Entries(name) {
				if err = insertOverload(ctx, tx, classes, s.Name, mode, e); err != nil {
					return err
				}
				n++
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("export: commit: %w", err)
	}
	c.logger.Debug("catalog exported", zap.Int("classes", classes.Len()), zap.Int("overloads", n))
	return nil
}

func insertOverload(ctx context.Context, tx *sql.Tx, classes *overload.Registry, scope, mode string, e *overload.Entry) error {
	keys := make([]string, len(e.Keys))
	for i, k := range e.Keys {
		keys[i] = k.String()
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO overloads (scope, name, arity, keys, signature, mode) VALUES (?, ?, ?, ?, ?, ?)`,
		scope, e.Name, e.ArgCount(), strings.Join(keys, ","), e.Signature(classes), mode)
	if err != nil {
		return fmt.Errorf("export overload %s: %w", e.Signature(classes), err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("export overload %s: %w", e.Signature(classes), err)
	}
	for i, k := range e.Keys {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO params (overload_id, position, key, type_name) VALUES (?, ?, ?, ?)`,
			id, i+1, k.String(), classes.TypeName(k)); err != nil {
			return fmt.Errorf("export overload %s: parameter %d: %w", e.Signature(classes), i+1, err)
		}
	}
	return nil
}

// Classes lists the exported classes by name.
func (c *Catalog) Classes(ctx context.Context) ([]Class, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT c.token, c.name, COALESCE(b.name, '')
		FROM classes c LEFT JOIN classes b ON b.token = c.base
		ORDER BY c.name`)
	if err != nil {
		return nil, fmt.Errorf("query classes: %w", err)
	}
	defer rows.Close()

	var out []Class
	for rows.Next() {
		var cl Class
		if err := rows.Scan(&cl.Token, &cl.Name, &cl.Base); err != nil {
			return nil, fmt.Errorf("query classes: %w", err)
		}
		out = append(out, cl)
	}
	return out, rows.Err()
}

// Overloads lists exported overloads, optionally filtered by function name.
func (c *Catalog) Overloads(ctx context.Context, name string) ([]Overload, error) {
	q := `SELECT scope, name, arity, keys, signature, mode FROM overloads`
	var args []any
	if name != "" {
		q += ` WHERE name = ?`
		args = append(args, name)
	}
	q += ` ORDER BY scope, name, arity, id`
	return c.queryOverloads(ctx, q, args...)
}

// Accepting lists overloads with a parameter of the named type.
func (c *Catalog) Accepting(ctx context.Context, typeName string) ([]Overload, error) {
	return c.queryOverloads(ctx, `
		SELECT scope, name, arity, keys, signature, mode FROM overloads
		WHERE id IN (SELECT overload_id FROM params WHERE type_name = ?)
		ORDER BY scope, name, arity, id`, typeName)
}

func (c *Catalog) queryOverloads(ctx context.Context, q string, args ...any) ([]Overload, error) {
	rows, err := c.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query overloads: %w", err)
	}
	defer rows.Close()

	var out []Overload
	for rows.Next() {
		var o Overload
		if err := rows.Scan(&o.Scope, &o.Name, &o.Arity, &o.Keys, &o.Signature, &o.Mode); err != nil {
			return nil, fmt.Errorf("query overloads: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
