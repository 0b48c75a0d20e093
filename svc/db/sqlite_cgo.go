//go:build cgo

package db

import (
	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// isIDConflict reports whether err is the primary key rejecting a
// duplicate paste id.
func isIDConflict(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) || sqliteErr.Code != sqlite3.ErrConstraint {
		return false
	}
	switch sqliteErr.ExtendedCode {
	case sqlite3.ErrConstraintPrimaryKey, sqlite3.ErrConstraintUnique:
		return true
	}
	return false
}
