package repository

import (
	"database/sql"
	"fmt"

	"github.com/NaN-tic/trytond-project-expenses/internal/application/port"
)

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// nullableID maps an optional id to a SQL NULL
func nullableID(id *int64) interface{} {
	if id == nil {
		return nil
	}
	return *id
}

// idPtr maps a nullable id column to an optional id
func idPtr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	id := v.Int64
	return &id
}

// expectOneRow returns port.ErrNotFound when result touched no row
func expectOneRow(result sql.Result, kind string, id int64) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%s %d: %w", kind, id, port.ErrNotFound)
	}
	return nil
}
