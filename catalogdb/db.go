// Copyright (C) 2019 MINT Project Authors.
// See LICENSE for copying information.

package catalogdb

import (
	"context"
	"database/sql"
	"net/url"

	_ "github.com/jackc/pgx/v4/stdlib" // registers the pgx driver
	"github.com/zeebo/errs"
	"go.uber.org/zap"
)

// Config holds catalogdb connection options.
type Config struct {
	ApplicationName string
}

// DB is the catalog database.
type DB struct {
	log *zap.Logger
	db  *sql.DB
}

// Open connects to the catalog database at the given connection URL.
func Open(ctx context.Context, log *zap.Logger, databaseURL string, config Config) (*DB, error) {
	if config.ApplicationName != "" {
		withName, err := appendApplicationName(databaseURL, config.ApplicationName)
		if err != nil {
			return nil, Error.Wrap(err)
		}
		databaseURL = withName
	}

	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, Error.Wrap(errs.Combine(err, db.Close()))
	}

	return &DB{log: log, db: db}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return Error.Wrap(db.db.Close())
}

// Ping checks the database connection.
func (db *DB) Ping(ctx context.Context) error {
	return Error.Wrap(db.db.PingContext(ctx))
}

func appendApplicationName(databaseURL, name string) (string, error) {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	if q.Get("application_name") == "" {
		q.Set("application_name", name)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}
