// Copyright (C) 2019 MINT Project Authors.
// See LICENSE for copying information.

// Package catalogdb implements the PostgreSQL-backed catalog store. It
// owns the schema, translates validated query definitions into SQL via
// the query package and assembles flat join rows into the nested records
// the API returns.
package catalogdb

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/spacemonkeygo/monkit/v3"
	"github.com/zeebo/errs"

	"github.com/mintproject/MINT-Data-Catalog/query"
)

var (
	mon = monkit.Package()

	// Error is the default error class for catalogdb.
	Error = errs.Class("catalogdb")
	// ErrValidation is returned for malformed record definitions.
	ErrValidation = errs.Class("invalid record definition")
	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errs.Class("record not found")
)

// maxBatchSize caps the number of record definitions per register call.
const maxBatchSize = 500

// Coverage index rows are shared between record kinds and keyed by the
// kind tag alongside the record id.
const (
	indexedTypeDataset  = "dataset"
	indexedTypeResource = "resource"
)

// Metadata is a free-form JSONB document attached to catalog records.
type Metadata map[string]interface{}

// Value implements driver.Valuer.
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	return data, nil
}

// Scan implements sql.Scanner.
func (m *Metadata) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*m = nil
		return nil
	case []byte:
		*m = nil
		return Error.Wrap(json.Unmarshal(v, m))
	case string:
		*m = nil
		return Error.Wrap(json.Unmarshal([]byte(v), m))
	default:
		return Error.New("unable to scan %T into Metadata", value)
	}
}

// Clone returns a shallow copy of the metadata document.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	clone := make(Metadata, len(m))
	for k, v := range m {
		clone[k] = v
	}
	return clone
}

// TemporalCoverage is the time extent of a record.
type TemporalCoverage struct {
	StartTime time.Time
	EndTime   time.Time
}

// DatasetSummary is a single dataset row returned by dataset search.
type DatasetSummary struct {
	DatasetID          uuid.UUID `json:"dataset_id"`
	DatasetName        string    `json:"dataset_name"`
	DatasetDescription string    `json:"dataset_description"`
	DatasetMetadata    Metadata  `json:"dataset_metadata"`
}

// StandardVariableRecord is a standard variable row.
type StandardVariableRecord struct {
	StandardVariableID uuid.UUID `json:"standard_variable_id"`
	Name               string    `json:"name"`
	Ontology           string    `json:"ontology"`
	URI                string    `json:"uri"`
	Description        string    `json:"description"`
}

// DatasetVariableRecord is a variable of a dataset together with the
// standard variables it is annotated with.
type DatasetVariableRecord struct {
	VariableID        uuid.UUID                `json:"variable_id"`
	VariableName      string                   `json:"variable_name"`
	DatasetID         uuid.UUID                `json:"dataset_id"`
	VariableMetadata  Metadata                 `json:"variable_metadata"`
	StandardVariables []StandardVariableRecord `json:"standard_variables"`
}

// VariableRecord mirrors DatasetVariableRecord for variable-keyed
// lookups, whose wire shape names the metadata key differently.
type VariableRecord struct {
	VariableID        uuid.UUID                `json:"variable_id"`
	VariableName      string                   `json:"variable_name"`
	DatasetID         uuid.UUID                `json:"dataset_id"`
	Metadata          Metadata                 `json:"metadata"`
	StandardVariables []StandardVariableRecord `json:"standard_variables"`
}

// DatasetStandardVariables groups the standard variables reachable from
// a dataset through its variables. Both identifiers are null when the
// dataset has no annotated variables.
type DatasetStandardVariables struct {
	DatasetID         *string                    `json:"dataset_id"`
	DatasetName       *string                    `json:"dataset_name"`
	StandardVariables []StandardVariableShortcut `json:"standard_variables"`
}

// StandardVariableShortcut is the abbreviated standard variable shape
// used inside dataset-keyed responses.
type StandardVariableShortcut struct {
	StandardVariableID   uuid.UUID `json:"standard_variable_id"`
	StandardVariableName string    `json:"standard_variable_name"`
	StandardVariableURI  string    `json:"standard_variable_uri"`
}

// ResourceRecord is a resource row of a dataset.
type ResourceRecord struct {
	ResourceID        uuid.UUID `json:"resource_id"`
	ResourceName      string    `json:"resource_name"`
	ResourceDataURL   string    `json:"resource_data_url"`
	ResourceCreatedAt string    `json:"resource_created_at"`
	ResourceType      string    `json:"resource_type"`
	ResourceMetadata  Metadata  `json:"resource_metadata"`
}

// DatasetResourcesRecord groups a dataset's resources under its id.
type DatasetResourcesRecord struct {
	DatasetID uuid.UUID        `json:"dataset_id"`
	Resources []ResourceRecord `json:"resources"`
}

// TemporalCoverageRecord is the aggregated time extent of a dataset's
// resources. The bounds are null when no resource carries an index row.
type TemporalCoverageRecord struct {
	DatasetID             uuid.UUID `json:"dataset_id"`
	TemporalCoverageStart *string   `json:"temporal_coverage_start"`
	TemporalCoverageEnd   *string   `json:"temporal_coverage_end"`
}

// SearchVariableRecord is the variable shape nested inside full-text
// search results.
type SearchVariableRecord struct {
	VariableID        uuid.UUID                  `json:"variable_id"`
	VariableName      string                     `json:"variable_name"`
	VariableMetadata  Metadata                   `json:"variable_metadata"`
	StandardVariables []StandardVariableShortcut `json:"standard_variables"`
}

// SearchDatasetRecord is a full-text search hit with its variables and
// spatial coverage.
type SearchDatasetRecord struct {
	DatasetID              uuid.UUID              `json:"dataset_id"`
	DatasetName            string                 `json:"dataset_name"`
	DatasetDescription     string                 `json:"dataset_description"`
	DatasetMetadata        Metadata               `json:"dataset_metadata"`
	DatasetSpatialCoverage json.RawMessage        `json:"dataset_spatial_coverage"`
	Variables              []SearchVariableRecord `json:"variables"`
}

func formatTime(t time.Time) *string {
	s := t.Format(query.TimeFormat)
	return &s
}
