// Copyright (C) 2019 MINT Project Authors.
// See LICENSE for copying information.

package catalogdb

import (
	"context"

	"github.com/mintproject/MINT-Data-Catalog/private/migrate"
)

// MigrateToLatest migrates the catalog schema to the latest version.
func (db *DB) MigrateToLatest(ctx context.Context) (err error) {
	defer mon.Task()(&ctx)(&err)
	migration := db.Migration()
	if err := migration.ValidateSteps(); err != nil {
		return Error.Wrap(err)
	}
	return Error.Wrap(migration.Run(ctx, db.log.Named("migrate"), db.db))
}

// SchemaVersion returns the currently applied schema version.
func (db *DB) SchemaVersion(ctx context.Context) (int, error) {
	return db.Migration().CurrentVersion(ctx, db.db)
}

// Migration returns the ordered schema steps of the catalog database.
func (db *DB) Migration() *migrate.Migration {
	return &migrate.Migration{
		Table: "catalog_versions",
		Steps: []*migrate.Step{
			{
				Description: "Initial setup",
				Version:     0,
				Action: migrate.SQL{
					`CREATE EXTENSION IF NOT EXISTS postgis`,
					`CREATE TABLE provenance (
						id uuid NOT NULL,
						name text NOT NULL,
						provenance_type text NOT NULL,
						json_metadata jsonb NOT NULL DEFAULT '{}',

						PRIMARY KEY (id)
					)`,
					`CREATE TABLE datasets (
						id uuid NOT NULL,
						provenance_id uuid NOT NULL REFERENCES provenance (id),
						name text NOT NULL,
						description text NOT NULL,
						json_metadata jsonb NOT NULL DEFAULT '{}',
						spatial_coverage geometry(Geometry, 4326),
						temporal_coverage_start timestamp,
						temporal_coverage_end timestamp,
						created_at timestamp NOT NULL DEFAULT now(),
						updated_at timestamp NOT NULL DEFAULT now(),

						PRIMARY KEY (id)
					)`,
					`CREATE INDEX datasets_provenance_id_index ON datasets (provenance_id)`,
					`CREATE INDEX datasets_name_index ON datasets (name)`,
					`CREATE INDEX datasets_spatial_coverage_index ON datasets USING GIST (spatial_coverage)`,
					`CREATE TABLE standard_variables (
						id uuid NOT NULL,
						ontology text NOT NULL,
						name text NOT NULL,
						uri text NOT NULL,
						description text NOT NULL DEFAULT '',

						PRIMARY KEY (id),
						UNIQUE (uri)
					)`,
					`CREATE INDEX standard_variables_name_index ON standard_variables (name)`,
					`CREATE TABLE variables (
						id uuid NOT NULL,
						dataset_id uuid NOT NULL REFERENCES datasets (id),
						name text NOT NULL,
						json_metadata jsonb NOT NULL DEFAULT '{}',

						PRIMARY KEY (id),
						UNIQUE (dataset_id, name)
					)`,
					`CREATE TABLE variables_standard_variables (
						variable_id uuid NOT NULL REFERENCES variables (id),
						standard_variable_id uuid NOT NULL REFERENCES standard_variables (id),

						PRIMARY KEY (variable_id, standard_variable_id)
					)`,
					`CREATE TABLE resources (
						id uuid NOT NULL,
						dataset_id uuid NOT NULL REFERENCES datasets (id),
						provenance_id uuid NOT NULL REFERENCES provenance (id),
						name text NOT NULL,
						resource_type text NOT NULL,
						data_url text NOT NULL,
						json_metadata jsonb NOT NULL DEFAULT '{}',
						layout jsonb NOT NULL DEFAULT '{}',
						is_queryable boolean NOT NULL DEFAULT true,
						created_at timestamp NOT NULL DEFAULT now(),
						updated_at timestamp NOT NULL DEFAULT now(),

						PRIMARY KEY (id)
					)`,
					`CREATE INDEX resources_dataset_id_index ON resources (dataset_id)`,
					`CREATE TABLE resources_variables (
						resource_id uuid NOT NULL REFERENCES resources (id),
						variable_id uuid NOT NULL REFERENCES variables (id),

						PRIMARY KEY (resource_id, variable_id)
					)`,
				},
			},
			{
				Description: "Add polymorphic coverage index tables",
				Version:     1,
				Action: migrate.SQL{
					`CREATE TABLE spatial_coverage_index (
						indexed_type text NOT NULL,
						indexed_id uuid NOT NULL,
						spatial_coverage geometry(Geometry, 4326) NOT NULL,

						PRIMARY KEY (indexed_type, indexed_id)
					)`,
					`CREATE INDEX spatial_coverage_index_geometry_index ON spatial_coverage_index USING GIST (spatial_coverage)`,
					`CREATE TABLE temporal_coverage_index (
						indexed_type text NOT NULL,
						indexed_id uuid NOT NULL,
						start_time timestamp NOT NULL,
						end_time timestamp NOT NULL,

						PRIMARY KEY (indexed_type, indexed_id)
					)`,
					`CREATE INDEX temporal_coverage_index_start_time_index ON temporal_coverage_index (start_time)`,
					`CREATE INDEX temporal_coverage_index_end_time_index ON temporal_coverage_index (end_time)`,
				},
			},
			{
				Description: "Add full-text search column to datasets",
				Version:     2,
				Action: migrate.SQL{
					`ALTER TABLE datasets ADD COLUMN tsv tsvector`,
					`CREATE INDEX datasets_tsv_index ON datasets USING GIN (tsv)`,
					`CREATE TRIGGER datasets_tsv_update BEFORE INSERT OR UPDATE ON datasets
						FOR EACH ROW EXECUTE PROCEDURE
						tsvector_update_trigger(tsv, 'pg_catalog.english', name, description)`,
				},
			},
		},
	}
}
