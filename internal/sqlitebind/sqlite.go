// Package sqlitebind backs the builtin "sqlite" module named in both
// §4.F's binding-registry example list and §4.K's built-in module table.
// It is a synchronous, in-process SQLite database binding in the spirit
// of Node's node:sqlite: open a file (or ":memory:"), execute statements
// with bound parameters, iterate result rows.
//
// Domain-stack wiring: github.com/glebarez/sqlite, a pure-Go (no cgo)
// SQLite driver used by the teacher (cryguy-worker) to back its D1
// storage binding; repurposed here directly as the spec's own named
// "sqlite" builtin rather than as Workers-specific D1 infrastructure.
package sqlitebind

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"jsrt/internal/core"
)

// DB wraps a single open SQLite database, identified by the handle
// registry the way every other native resource in this core is.
type DB struct {
	gdb *gorm.DB
	sdb *sql.DB
}

// Open opens path (or ":memory:") as a SQLite database.
func Open(path string) (*DB, error) {
	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, core.Wrap(core.ErrResource, "", err)
	}
	sdb, err := gdb.DB()
	if err != nil {
		return nil, core.Wrap(core.ErrResource, "", err)
	}
	return &DB{gdb: gdb, sdb: sdb}, nil
}

// Close releases the underlying connection.
func (d *DB) Close() error {
	return d.sdb.Close()
}

// Row is one result row, columns in select order.
type Row []any

// ExecResult mirrors what node:sqlite's StatementSync#run returns.
type ExecResult struct {
	Columns      []string
	Rows         []Row
	LastInsertID int64
	Changes      int64
}

// Exec runs sql with bindings and returns any result rows (for SELECT)
// plus insert/change metadata (for INSERT/UPDATE/DELETE).
func (d *DB) Exec(query string, bindings []any) (*ExecResult, error) {
	// Statements that yield no rows run through Exec so their insert/change
	// metadata is reported; Query would run them as well but drop it.
	head := strings.ToUpper(strings.TrimSpace(query))
	returnsRows := strings.HasPrefix(head, "SELECT") || strings.HasPrefix(head, "WITH") || strings.HasPrefix(head, "PRAGMA") || strings.Contains(head, "RETURNING")
	if !returnsRows {
		res, execErr := d.sdb.Exec(query, bindings...)
		if execErr != nil {
			return nil, core.Wrap(core.ErrProtocol, "", execErr)
		}
		lastID, _ := res.LastInsertId()
		changes, _ := res.RowsAffected()
		return &ExecResult{LastInsertID: lastID, Changes: changes}, nil
	}
	rows, err := d.sdb.Query(query, bindings...)
	if err != nil {
		return nil, core.Wrap(core.ErrProtocol, "", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, core.Wrap(core.ErrInternal, "", err)
	}

	result := &ExecResult{Columns: cols}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, core.Wrap(core.ErrInternal, "", err)
		}
		result.Rows = append(result.Rows, Row(vals))
	}
	if err := rows.Err(); err != nil {
		return nil, core.Wrap(core.ErrInternal, "", err)
	}
	return result, nil
}

// Placeholder returns the positional-parameter placeholder SQLite expects
// for the nth (1-indexed) bound value. Nothing in this module calls it
// outside its test; the sqlite binding passes queries through unchanged.
func Placeholder(n int) string {
	return fmt.Sprintf("?%d", n)
}
