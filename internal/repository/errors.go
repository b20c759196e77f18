// Package repository defines error types that are reused across multiple
// repositories.  These sentinel values let the service layer tell a
// definitive absence apart from an infrastructure failure, and a lost
// insert race apart from any other write error.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert collides with an existing row on
// its primary or unique key.  Callers that raced another writer can treat
// it as "the row exists now" and fall back to an update.
var ErrDuplicate = errors.New("duplicate key")

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// isDuplicateKey recognises unique-constraint violations from every engine
// the service can run on.
func isDuplicateKey(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDuplicateEntry
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return false
}
