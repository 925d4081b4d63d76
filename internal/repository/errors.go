// Package repository holds the MySQL-backed stores: user profiles and the
// activity journal.  The sentinel values below let callers distinguish
// failure scenarios without inspecting driver errors.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrConflict is returned when an insert collides with an existing row.  The
// journal consumer treats it as an already-processed delivery.
var ErrConflict = errors.New("conflict")

// isDuplicate reports whether err is MySQL error 1062 (duplicate entry).
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}
