// SPDX-License-Identifier: Apache-2.0

package db

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

// ErrUnknownDialect is returned by the factory for an unsupported dialect.
var ErrUnknownDialect = errors.New("database dialect not supported")

// Dialect error classes, mapped from driver error codes.

const (
	pqLockNotAvailable    pq.ErrorCode = "55P03"
	pqUniqueViolation     pq.ErrorCode = "23505"
	pqFKViolation         pq.ErrorCode = "23503"
	pqUndefinedObject     pq.ErrorCode = "42704"
	pqUndefinedTable      pq.ErrorCode = "42P01"
	myLockWaitTimeout     uint16       = 1205
	myDupEntry            uint16       = 1062
	myNoReferencedRow     uint16       = 1216
	myNoReferencedRow2    uint16       = 1452
	myCannotAddForeignKey uint16       = 1215
	myTriggerDoesNotExist uint16       = 1360
)

// IsLockTimeout reports whether err is a lock-wait timeout in either
// dialect. The mysql rename swap retries on these.
func IsLockTimeout(err error) bool {
	pqErr := &pq.Error{}
	if errors.As(err, &pqErr) {
		return pqErr.Code == pqLockNotAvailable
	}
	myErr := &mysql.MySQLError{}
	if errors.As(err, &myErr) {
		return myErr.Number == myLockWaitTimeout
	}
	return false
}

// IsIntegrityViolation reports whether err is a constraint or foreign key
// integrity failure. Constraint replay onto a shadow table logs and
// continues on these.
func IsIntegrityViolation(err error) bool {
	pqErr := &pq.Error{}
	if errors.As(err, &pqErr) {
		return pqErr.Code.Class() == "23" || pqErr.Code == "42710"
	}
	myErr := &mysql.MySQLError{}
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case myDupEntry, myNoReferencedRow, myNoReferencedRow2, myCannotAddForeignKey:
			return true
		}
	}
	return false
}

// IsMissingObject reports whether err means the dropped object was not
// there (idempotent teardown).
func IsMissingObject(err error) bool {
	pqErr := &pq.Error{}
	if errors.As(err, &pqErr) {
		return pqErr.Code == pqUndefinedObject || pqErr.Code == pqUndefinedTable
	}
	myErr := &mysql.MySQLError{}
	if errors.As(err, &myErr) {
		return myErr.Number == myTriggerDoesNotExist
	}
	return false
}

// ValueError reports that a row value could not be rendered as a SQL
// literal.
type ValueError struct {
	Value any
}

func (e ValueError) Error() string {
	return fmt.Sprintf("value %v, type %T not recognised as a number or string", e.Value, e.Value)
}
