// Package repository implements raw SQL data access for the booking
// service.  This file defines error values reused across multiple
// repositories so that handlers can distinguish failure scenarios:
// ErrForbidden maps to 403, ErrConflict to 409, and ErrRoomUnavailable
// is the first-class conflict raised when a reservation would overlap
// an already-occupied (room, date) pair.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a delete or update cannot proceed
// because of dependent records, such as removing a room type that
// rooms still reference.
var ErrConflict = errors.New("conflict")

// ErrRoomUnavailable is returned when a reservation's date range
// collides with an existing availability row.  The unique
// (room_id, stay_date) key makes the database the serialization point:
// two concurrent bookings for the same night cannot both commit.
var ErrRoomUnavailable = errors.New("room unavailable for requested dates")

const (
	mysqlDupEntry   = 1062 // ER_DUP_ENTRY
	mysqlRowIsRef   = 1451 // ER_ROW_IS_REFERENCED_2
	mysqlNoRefRow   = 1452 // ER_NO_REFERENCED_ROW_2
)

// mysqlErrNumber extracts the server error code, or 0 for non-MySQL errors.
func mysqlErrNumber(err error) uint16 {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number
	}
	return 0
}

func isDuplicate(err error) bool     { return mysqlErrNumber(err) == mysqlDupEntry }
func isReferenced(err error) bool    { return mysqlErrNumber(err) == mysqlRowIsRef }
func isMissingParent(err error) bool { return mysqlErrNumber(err) == mysqlNoRefRow }
