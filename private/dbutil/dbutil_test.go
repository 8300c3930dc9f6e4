// Copyright (C) 2019 MINT Project Authors.
// See LICENSE for copying information.

package dbutil_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"github.com/zeebo/errs"

	"github.com/mintproject/MINT-Data-Catalog/private/dbutil"
)

func TestUUIDArray(t *testing.T) {
	a := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	b := uuid.MustParse("22222222-2222-2222-2222-222222222222")

	value, err := dbutil.UUIDArray([]uuid.UUID{a, b}).Value()
	require.NoError(t, err)
	require.Equal(t,
		`{"11111111-1111-1111-1111-111111111111","22222222-2222-2222-2222-222222222222"}`,
		value)

	value, err = dbutil.UUIDArray(nil).Value()
	require.NoError(t, err)
	require.Equal(t, "{}", value)
}

func TestTextArray(t *testing.T) {
	value, err := dbutil.TextArray([]string{"rain", `with "quotes"`}).Value()
	require.NoError(t, err)
	require.Equal(t, `{"rain","with \"quotes\""}`, value)
}

func TestErrCode(t *testing.T) {
	require.Equal(t, "", dbutil.ErrCode(nil))
	require.Equal(t, "", dbutil.ErrCode(errs.New("plain error")))

	pgerr := &pgconn.PgError{Code: "23505"}
	require.Equal(t, "23505", dbutil.ErrCode(pgerr))
	require.Equal(t, "23505", dbutil.ErrCode(errs.Wrap(pgerr)))

	require.Equal(t, "40001", dbutil.ErrCode(&pq.Error{Code: "40001"}))
}
