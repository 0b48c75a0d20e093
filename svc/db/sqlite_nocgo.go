//go:build !cgo

package db

import (
	// registers the sqlite3 driver; without cgo it is upstream's stub
	// whose connections always fail to open
	_ "github.com/mattn/go-sqlite3"
)

// isIDConflict reports whether err is the primary key rejecting a
// duplicate paste id. Without cgo the sqlite3 driver cannot open a
// connection, so no constraint error can ever reach this path and the
// typed sqlite3 error API this check needs is not compiled in.
func isIDConflict(err error) bool {
	return false
}
