// Copyright (C) 2019 MINT Project Authors.
// See LICENSE for copying information.

// Package dbutil provides small helpers for working with PostgreSQL
// through database/sql: array parameter binding, error-code inspection
// and safe transaction encapsulation.
package dbutil

import (
	"database/sql/driver"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/lib/pq"
	"github.com/spacemonkeygo/monkit/v3"
	"github.com/zeebo/errs"
)

var mon = monkit.Package()

// Error is the default error class for dbutil.
var Error = errs.Class("dbutil")

// UUIDArray returns a driver value usable for passing a list of ids to a
// query as a text array. Queries compare against it with
// `column = ANY($n::uuid[])`.
func UUIDArray(ids []uuid.UUID) driver.Valuer {
	xs := make(pq.StringArray, len(ids))
	for i, id := range ids {
		xs[i] = id.String()
	}
	return xs
}

// TextArray returns a driver value for passing a list of strings to a
// query as a text array.
func TextArray(values []string) driver.Valuer {
	return pq.StringArray(values)
}

// ErrCode returns the PostgreSQL error code associated with any error in
// the chain walked by unwrapping, or an empty string.
func ErrCode(err error) (code string) {
	errs.IsFunc(err, func(err error) bool {
		switch pgerr := err.(type) {
		case *pgconn.PgError:
			code = pgerr.Code
			return true
		case *pq.Error:
			code = string(pgerr.Code)
			return true
		}
		return false
	})
	return code
}
