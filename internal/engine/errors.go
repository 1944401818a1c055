package engine

import (
	"context"
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"

	"dynquery/internal/queryerr"
)

// Store error codes reported in queryerr.Error.Code.
const (
	CodeAccessDenied = "access_denied"
	CodeTimeout      = "timeout"
	CodeCanceled     = "canceled"
	CodeStoreError   = "store_error"
)

const (
	mysqlErrDBAccessDenied     = 1044 // Access denied for user to database
	mysqlErrTableAccessDenied  = 1142 // SELECT command denied to user for table
	mysqlErrColumnAccessDenied = 1143 // SELECT command denied to user for column
	mysqlErrQueryInterrupted   = 1317 // Query execution was interrupted
	mysqlErrQueryTimeout       = 3024 // max_execution_time exceeded
)

const (
	pqInsufficientPrivilege pq.ErrorCode = "42501"
	pqQueryCanceled         pq.ErrorCode = "57014"
)

// normalizeStoreError classifies a driver failure as a store error with a
// stable code. Engine errors pass through unchanged.
func normalizeStoreError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := queryerr.As(err); ok {
		return err
	}
	return queryerr.Store(storeErrorCode(err), err)
}

func storeErrorCode(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return CodeTimeout
	case errors.Is(err, context.Canceled):
		return CodeCanceled
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case mysqlErrDBAccessDenied, mysqlErrTableAccessDenied, mysqlErrColumnAccessDenied:
			return CodeAccessDenied
		case mysqlErrQueryTimeout:
			return CodeTimeout
		case mysqlErrQueryInterrupted:
			return CodeCanceled
		}
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqInsufficientPrivilege:
			return CodeAccessDenied
		case pqQueryCanceled:
			return CodeTimeout
		}
	}
	return CodeStoreError
}
