// Copyright (C) 2019 MINT Project Authors.
// See LICENSE for copying information.

package catalogdb

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/zeebo/errs"

	"github.com/mintproject/MINT-Data-Catalog/private/dbutil"
	"github.com/mintproject/MINT-Data-Catalog/query"
)

// DatasetVariables contains arguments for DatasetVariables.
type DatasetVariables struct {
	DatasetID uuid.UUID
}

// Verify verifies the request fields.
func (opts DatasetVariables) Verify() error {
	if opts.DatasetID == uuid.Nil {
		return ErrValidation.New("dataset_id missing")
	}
	return nil
}

// DatasetVariables lists all variables of a dataset with the standard
// variables each is annotated with. Variables without annotations are
// returned with an empty standard variable list.
func (db *DB) DatasetVariables(ctx context.Context, opts DatasetVariables) (_ []DatasetVariableRecord, err error) {
	defer mon.Task()(&ctx)(&err)

	if err := opts.Verify(); err != nil {
		return nil, err
	}

	rows, err := db.db.QueryContext(ctx, `
		SELECT
			variables.id, variables.name, variables.dataset_id, variables.json_metadata,
			standard_variables.id, standard_variables.name, standard_variables.ontology,
			standard_variables.uri, standard_variables.description
		FROM variables
		LEFT JOIN variables_standard_variables ON variables_standard_variables.variable_id = variables.id
		LEFT JOIN standard_variables ON standard_variables.id = variables_standard_variables.standard_variable_id
		WHERE variables.dataset_id = $1
	`, opts.DatasetID)
	if err != nil {
		return nil, Error.New("unable to query dataset variables: %w", err)
	}
	defer func() { err = errs.Combine(err, rows.Close()) }()

	variables := newFold[uuid.UUID, DatasetVariableRecord]()
	for rows.Next() {
		var record DatasetVariableRecord
		var standardVariableID uuid.NullUUID
		var name, ontology, uri, description sql.NullString

		err := rows.Scan(
			&record.VariableID, &record.VariableName, &record.DatasetID, &record.VariableMetadata,
			&standardVariableID, &name, &ontology, &uri, &description,
		)
		if err != nil {
			return nil, Error.New("unable to scan dataset variable: %w", err)
		}

		if existing, ok := variables.Get(record.VariableID); ok {
			record = existing
		} else {
			record.StandardVariables = []StandardVariableRecord{}
		}

		// Unannotated variables produce a row with null standard
		// variable columns from the outer join.
		if standardVariableID.Valid {
			record.StandardVariables = append(record.StandardVariables, StandardVariableRecord{
				StandardVariableID: standardVariableID.UUID,
				Name:               name.String,
				Ontology:           ontology.String,
				URI:                uri.String,
				Description:        description.String,
			})
		}
		variables.Set(record.VariableID, record)
	}
	if err := rows.Err(); err != nil {
		return nil, Error.Wrap(err)
	}

	return variables.Values(), nil
}

// GetDatasetStandardVariables contains arguments for
// DatasetStandardVariables.
type GetDatasetStandardVariables struct {
	DatasetID uuid.UUID
}

// Verify verifies the request fields.
func (opts GetDatasetStandardVariables) Verify() error {
	if opts.DatasetID == uuid.Nil {
		return ErrValidation.New("dataset_id missing")
	}
	return nil
}

// DatasetStandardVariables lists the distinct standard variables
// reachable from a dataset through its variables.
func (db *DB) DatasetStandardVariables(ctx context.Context, opts GetDatasetStandardVariables) (_ DatasetStandardVariables, err error) {
	defer mon.Task()(&ctx)(&err)

	if err := opts.Verify(); err != nil {
		return DatasetStandardVariables{}, err
	}

	rows, err := db.db.QueryContext(ctx, `
		SELECT DISTINCT
			datasets.id, datasets.name,
			standard_variables.id, standard_variables.name, standard_variables.uri
		FROM datasets
		JOIN variables ON variables.dataset_id = datasets.id
		JOIN variables_standard_variables ON variables_standard_variables.variable_id = variables.id
		JOIN standard_variables ON standard_variables.id = variables_standard_variables.standard_variable_id
		WHERE datasets.id = $1
	`, opts.DatasetID)
	if err != nil {
		return DatasetStandardVariables{}, Error.New("unable to query dataset standard variables: %w", err)
	}
	defer func() { err = errs.Combine(err, rows.Close()) }()

	record := DatasetStandardVariables{
		StandardVariables: []StandardVariableShortcut{},
	}
	for rows.Next() {
		var datasetID uuid.UUID
		var datasetName string
		var shortcut StandardVariableShortcut
		err := rows.Scan(&datasetID, &datasetName,
			&shortcut.StandardVariableID, &shortcut.StandardVariableName, &shortcut.StandardVariableURI)
		if err != nil {
			return DatasetStandardVariables{}, Error.New("unable to scan dataset standard variable: %w", err)
		}
		id := datasetID.String()
		record.DatasetID = &id
		record.DatasetName = &datasetName
		record.StandardVariables = append(record.StandardVariables, shortcut)
	}
	if err := rows.Err(); err != nil {
		return DatasetStandardVariables{}, Error.Wrap(err)
	}

	return record, nil
}

var variableLookupGrammar = query.Grammar{
	DefaultLimit: 20,
	Fields: []query.Field{
		{Name: "variable_ids", Kind: query.UUIDList, Operators: []query.Operator{query.OpIn}},
	},
}

// VariablesStandardVariables contains arguments for
// VariablesStandardVariables.
type VariablesStandardVariables struct {
	Definition map[string]interface{}
}

// VariablesStandardVariables looks up variables by id and returns each
// with its standard variable annotations.
func (db *DB) VariablesStandardVariables(ctx context.Context, opts VariablesStandardVariables) (_ []VariableRecord, err error) {
	defer mon.Task()(&ctx)(&err)

	filter, err := variableLookupGrammar.Parse(opts.Definition)
	if err != nil {
		return nil, err
	}

	b := query.Select(
		"variables.id", "variables.name", "variables.dataset_id", "variables.json_metadata",
		"standard_variables.id", "standard_variables.name", "standard_variables.ontology",
		"standard_variables.uri", "standard_variables.description",
	).From("variables")
	b.Join("variables_standard_variables",
		"LEFT JOIN variables_standard_variables ON variables_standard_variables.variable_id = variables.id")
	b.Join("standard_variables",
		"LEFT JOIN standard_variables ON standard_variables.id = variables_standard_variables.standard_variable_id")

	if filter.Has("variable_ids") {
		b.Where("variables.id = ANY(" + b.Bind(dbutil.UUIDArray(filter.Get("variable_ids").IDs)) + "::uuid[])")
	}
	b.Limit(filter.Limit)
	b.Offset(filter.Offset)

	rows, err := db.db.QueryContext(ctx, b.SQL(), b.Args()...)
	if err != nil {
		return nil, Error.New("unable to query variables: %w", err)
	}
	defer func() { err = errs.Combine(err, rows.Close()) }()

	variables := newFold[uuid.UUID, VariableRecord]()
	for rows.Next() {
		var record VariableRecord
		var standardVariableID uuid.NullUUID
		var name, ontology, uri, description sql.NullString

		err := rows.Scan(
			&record.VariableID, &record.VariableName, &record.DatasetID, &record.Metadata,
			&standardVariableID, &name, &ontology, &uri, &description,
		)
		if err != nil {
			return nil, Error.New("unable to scan variable: %w", err)
		}

		if existing, ok := variables.Get(record.VariableID); ok {
			record = existing
		} else {
			record.StandardVariables = []StandardVariableRecord{}
		}
		if standardVariableID.Valid {
			record.StandardVariables = append(record.StandardVariables, StandardVariableRecord{
				StandardVariableID: standardVariableID.UUID,
				Name:               name.String,
				Ontology:           ontology.String,
				URI:                uri.String,
				Description:        description.String,
			})
		}
		variables.Set(record.VariableID, record)
	}
	if err := rows.Err(); err != nil {
		return nil, Error.Wrap(err)
	}

	return variables.Values(), nil
}
