// Copyright (C) 2019 MINT Project Authors.
// See LICENSE for copying information.

// Package migrate implements a simple versioned schema migration runner.
package migrate

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"github.com/mintproject/MINT-Data-Catalog/private/dbutil"
)

// Error is the default migrate errs class.
var Error = errs.Class("migrate")

// Migration describes migration steps.
type Migration struct {
	Table string
	Steps []*Step
}

// Step describes a single step in a migration.
type Step struct {
	Description string
	Version     int // Versions should start at 0
	Action      Action
}

// Action is something that needs to be done.
type Action interface {
	Run(ctx context.Context, log *zap.Logger, tx *sql.Tx) error
}

// SQL statements that are executed on the database.
type SQL []string

// Run runs the SQL statements.
func (sql SQL) Run(ctx context.Context, log *zap.Logger, tx *sql.Tx) error {
	for _, query := range sql {
		_, err := tx.ExecContext(ctx, query)
		if err != nil {
			return errs.Wrap(err)
		}
	}
	return nil
}

// Func is an arbitrary migration operation.
type Func func(ctx context.Context, log *zap.Logger, tx *sql.Tx) error

// Run runs the migration.
func (fn Func) Run(ctx context.Context, log *zap.Logger, tx *sql.Tx) error {
	return fn(ctx, log, tx)
}

// ValidTableName checks whether the specified version table name is valid.
func (migration *Migration) ValidTableName() error {
	matched, err := regexp.MatchString(`^[a-z_]+$`, migration.Table)
	if !matched || err != nil {
		return Error.New("invalid table name: %v", migration.Table)
	}
	return nil
}

// ValidateSteps checks that the version for each migration step increments in order.
func (migration *Migration) ValidateSteps() error {
	sorted := sort.SliceIsSorted(migration.Steps, func(i, j int) bool {
		return migration.Steps[i].Version <= migration.Steps[j].Version
	})
	if !sorted {
		return Error.New("steps have incorrect order")
	}
	return nil
}

// Run runs the migration steps that the database has not seen yet.
func (migration *Migration) Run(ctx context.Context, log *zap.Logger, db *sql.DB) error {
	err := migration.ValidTableName()
	if err != nil {
		return err
	}

	err = migration.ValidateSteps()
	if err != nil {
		return err
	}

	err = migration.ensureVersionTable(ctx, db)
	if err != nil {
		return Error.New("creating version table failed: %w", err)
	}

	version, err := migration.getLatestVersion(ctx, db)
	if err != nil {
		return Error.Wrap(err)
	}
	initialSetup := version < 0

	for _, step := range migration.Steps {
		if step.Version <= version {
			continue
		}

		stepLog := log.Named(strconv.Itoa(step.Version))
		if !initialSetup {
			stepLog.Info(step.Description)
		}

		err = dbutil.WithTx(ctx, db, nil, func(ctx context.Context, tx *sql.Tx) error {
			err := step.Action.Run(ctx, stepLog, tx)
			if err != nil {
				return err
			}
			return migration.addVersion(ctx, tx, step.Version)
		})
		if err != nil {
			return Error.Wrap(err)
		}
	}

	if len(migration.Steps) > 0 {
		last := migration.Steps[len(migration.Steps)-1]
		if initialSetup {
			log.Info("Database Created", zap.Int("version", last.Version))
		} else {
			log.Info("Database Version", zap.Int("version", last.Version))
		}
	} else {
		log.Info("No Versions")
	}

	return nil
}

// CurrentVersion finds the latest version for the db. It returns -1 when
// no migration has run yet.
func (migration *Migration) CurrentVersion(ctx context.Context, db *sql.DB) (int, error) {
	err := migration.ensureVersionTable(ctx, db)
	if err != nil {
		return -1, Error.Wrap(err)
	}
	return migration.getLatestVersion(ctx, db)
}

func (migration *Migration) ensureVersionTable(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+migration.Table+` (version int, committed_at text)`)
	return Error.Wrap(err)
}

func (migration *Migration) getLatestVersion(ctx context.Context, db *sql.DB) (int, error) {
	var version sql.NullInt64
	err := db.QueryRowContext(ctx, `SELECT MAX(version) FROM `+migration.Table).Scan(&version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return -1, nil
		}
		return -1, Error.Wrap(err)
	}
	if !version.Valid {
		return -1, nil
	}
	return int(version.Int64), nil
}

func (migration *Migration) addVersion(ctx context.Context, tx *sql.Tx, version int) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO `+migration.Table+` (version, committed_at) VALUES ($1, $2)`,
		version, time.Now().String(),
	)
	return err
}
