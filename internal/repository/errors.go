// Package repository holds the persistence layer: the MySQL store used in
// production, an in-process store with the same locking contract, and the
// account repositories.  Failures that callers need to branch on are
// reported as the sentinel errors below rather than driver errors.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

var (
	// ErrTrainNotFound is returned when the referenced train does not exist.
	ErrTrainNotFound = errors.New("train not found")

	// ErrDuplicateTrainNumber is returned when a train number is already taken.
	ErrDuplicateTrainNumber = errors.New("train number already exists")

	// ErrDuplicateReference is returned by InsertBooking when the PNR collides
	// with an existing booking.  It is the only insert failure callers retry.
	ErrDuplicateReference = errors.New("duplicate booking reference")

	// ErrLockTimeout is returned when the per-train lock could not be
	// acquired within the configured bound.
	ErrLockTimeout = errors.New("inventory lock wait timeout")

	// ErrNotLocked is returned when a unit of work writes a train it has not
	// locked first.
	ErrNotLocked = errors.New("train not locked by this unit of work")

	// ErrSeatsOutOfRange is returned when a seat count would leave
	// [0, total_seats].
	ErrSeatsOutOfRange = errors.New("available seats out of range")

	// ErrEmailExists is returned when registering an email that is taken.
	ErrEmailExists = errors.New("email already exists")

	// ErrUserNotFound is returned when no user matches the lookup.
	ErrUserNotFound = errors.New("user not found")

	// ErrTokenInvalid is returned for unknown, expired or revoked refresh tokens.
	ErrTokenInvalid = errors.New("refresh token invalid")
)

// MySQL server error numbers the store reacts to.
const (
	mysqlErrDuplicateEntry  = 1062
	mysqlErrLockWaitTimeout = 1205
	mysqlErrDeadlock        = 1213
	mysqlErrCheckViolated   = 3819
)

func mysqlErrorNumber(err error) uint16 {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number
	}
	return 0
}

func isDuplicateEntry(err error) bool {
	return mysqlErrorNumber(err) == mysqlErrDuplicateEntry
}

func isLockContention(err error) bool {
	switch mysqlErrorNumber(err) {
	case mysqlErrLockWaitTimeout, mysqlErrDeadlock:
		return true
	}
	return false
}
