// Copyright (C) 2019 MINT Project Authors.
// See LICENSE for copying information.

package catalogapi_test

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/mintproject/MINT-Data-Catalog/catalogapi"
)

func TestNewSessionToken(t *testing.T) {
	token := catalogapi.NewSessionToken()

	parts := strings.Split(token, ":")
	require.Len(t, parts, 3)
	require.Equal(t, "mint-data-catalog", parts[0])

	_, err := uuid.Parse(parts[1])
	require.NoError(t, err)
	_, err = uuid.Parse(parts[2])
	require.NoError(t, err)

	require.NotEqual(t, token, catalogapi.NewSessionToken())
}

func TestHeaderAuth(t *testing.T) {
	ctx := context.Background()
	auth := catalogapi.HeaderAuth{}

	request := func(key string) *http.Request {
		r, err := http.NewRequest(http.MethodPost, "/datasets/find", nil)
		require.NoError(t, err)
		if key != "" {
			r.Header.Set("X-Api-Key", key)
		}
		return r
	}

	require.NoError(t, auth.Authenticate(ctx, request(catalogapi.NewSessionToken())))

	for _, key := range []string{
		"",
		"mint-data-catalog",
		"mint-data-catalog:" + uuid.New().String(),
		"wrong-prefix:" + uuid.New().String() + ":" + uuid.New().String(),
		"mint-data-catalog:not-a-uuid:" + uuid.New().String(),
		"mint-data-catalog:" + uuid.New().String() + ":not-a-uuid",
	} {
		err := auth.Authenticate(ctx, request(key))
		require.Equal(t, catalogapi.ErrAuthorizationFailed, err, key)
	}
}
