// Package repository implements storage on top of database/sql.  Every
// query is written to run unchanged on MySQL and SQLite; missing rows are
// reported with the sentinel errors of the model package so handlers can
// map them to HTTP status codes.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/studyroom-seating/internal/database"
	"github.com/iliyamo/studyroom-seating/internal/model"
)

// ErrLoginExists is returned when a user is created with a login that is
// already taken.
var ErrLoginExists = errors.New("login already exists")

// ErrConflict aliases model.ErrConflict for callers that only import the
// repository package.
var ErrConflict = model.ErrConflict

// conflictOr maps unique-key violations to model.ErrConflict and returns
// any other error unchanged.
func conflictOr(err error) error {
	if database.IsDuplicate(err) {
		return model.ErrConflict
	}
	return err
}

// inTx runs fn inside a transaction.  The transaction is committed when fn
// returns nil and rolled back otherwise.
func inTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return conflictOr(err)
	}
	committed = true
	return nil
}

// queryer is implemented by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}
