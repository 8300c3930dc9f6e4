// Copyright (C) 2019 MINT Project Authors.
// See LICENSE for copying information.

package catalogdb_test

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mintproject/MINT-Data-Catalog/catalogdb"
)

// openTestDB connects to the database named by DCAT_TEST_POSTGRES and
// migrates it to the latest schema. The database must have PostGIS
// available.
func openTestDB(ctx context.Context, t *testing.T) *catalogdb.DB {
	databaseURL := os.Getenv("DCAT_TEST_POSTGRES")
	if databaseURL == "" {
		t.Skip("DCAT_TEST_POSTGRES not set, example: postgres://postgres@localhost/catalogtest?sslmode=disable")
	}

	db, err := catalogdb.Open(ctx, zaptest.NewLogger(t), databaseURL, catalogdb.Config{
		ApplicationName: "catalogdb-test",
	})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, db.Close()) })

	require.NoError(t, db.MigrateToLatest(ctx))
	return db
}

func TestCatalogRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(ctx, t)

	provenance, err := db.RegisterProvenance(ctx, catalogdb.ProvenanceDefinition{
		Name:           "test_provenance",
		ProvenanceType: "user",
		Metadata:       catalogdb.Metadata{"contact": "someone@example.org"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, provenance.RecordID)

	datasetName := "test_dataset_" + uuid.New().String()
	datasets, err := db.RegisterDatasets(ctx, []catalogdb.DatasetDefinition{{
		ProvenanceID: provenance.RecordID,
		Name:         datasetName,
		Description:  "rainfall observations",
		Metadata:     catalogdb.Metadata{"units": "mm"},
		SpatialCoverage: &catalogdb.SpatialCoverageDefinition{
			Type: "BoundingBox",
			Value: map[string]interface{}{
				"xmin": -118.0, "ymin": 33.0, "xmax": -117.0, "ymax": 34.0,
			},
		},
		TemporalCoverage: &catalogdb.TemporalCoverageDefinition{
			StartTime: "2018-01-01T00:00:00",
			EndTime:   "2018-12-31T23:59:59",
		},
	}})
	require.NoError(t, err)
	require.Len(t, datasets, 1)
	datasetID := datasets[0].RecordID

	standardVariables, err := db.RegisterStandardVariables(ctx, []catalogdb.StandardVariableDefinition{{
		Ontology: "ScientificVariablesOntology",
		Name:     "precipitation_rate",
		URI:      "http://www.geoscienceontology.org/svo/svl/variable#precipitation_rate_" + uuid.New().String(),
	}})
	require.NoError(t, err)
	require.Len(t, standardVariables, 1)

	variables, err := db.RegisterVariables(ctx, []catalogdb.VariableDefinition{{
		DatasetID:           datasetID,
		Name:                "rainfall",
		Metadata:            catalogdb.Metadata{"units": "mm"},
		StandardVariableIDs: []string{standardVariables[0].RecordID},
	}})
	require.NoError(t, err)
	require.Len(t, variables, 1)

	unannotated, err := db.RegisterVariables(ctx, []catalogdb.VariableDefinition{{
		DatasetID:           datasetID,
		Name:                "gauge_station_id",
		StandardVariableIDs: []string{standardVariables[0].RecordID},
	}})
	require.NoError(t, err)
	require.Len(t, unannotated, 1)

	// Annotations cannot be registered empty, so strip them afterwards to
	// model a variable whose standard variable links were removed.
	rawdb, err := sql.Open("pgx", os.Getenv("DCAT_TEST_POSTGRES"))
	require.NoError(t, err)
	defer func() { require.NoError(t, rawdb.Close()) }()
	_, err = rawdb.ExecContext(ctx, `
		DELETE FROM variables_standard_variables WHERE variable_id = $1
	`, unannotated[0].RecordID)
	require.NoError(t, err)

	resources, err := db.RegisterResources(ctx, []catalogdb.ResourceDefinition{{
		DatasetID:    datasetID,
		ProvenanceID: provenance.RecordID,
		Name:         "rainfall-2018.nc",
		ResourceType: "NetCDF",
		DataURL:      "https://data.example.org/rainfall-2018.nc",
		VariableIDs:  []string{variables[0].RecordID},
		SpatialCoverage: &catalogdb.SpatialCoverageDefinition{
			Type:  "Point",
			Value: map[string]interface{}{"x": -117.5, "y": 33.5},
		},
		TemporalCoverage: &catalogdb.TemporalCoverageDefinition{
			StartTime: "2018-01-01T00:00:00",
			EndTime:   "2018-12-31T23:59:59",
		},
	}})
	require.NoError(t, err)
	require.Len(t, resources, 1)

	t.Run("find by name", func(t *testing.T) {
		found, err := db.FindDatasets(ctx, catalogdb.FindDatasets{
			Definition: map[string]interface{}{
				"dataset_names__in": []interface{}{datasetName},
			},
		})
		require.NoError(t, err)
		require.Len(t, found, 1)
		require.Equal(t, datasetID, found[0].DatasetID.String())
	})

	t.Run("find by standard variable", func(t *testing.T) {
		found, err := db.FindDatasets(ctx, catalogdb.FindDatasets{
			Definition: map[string]interface{}{
				"dataset_ids__in":           []interface{}{datasetID},
				"standard_variable_ids__in": []interface{}{standardVariables[0].RecordID},
			},
		})
		require.NoError(t, err)
		require.Len(t, found, 1)
	})

	t.Run("dataset variables", func(t *testing.T) {
		records, err := db.DatasetVariables(ctx, catalogdb.DatasetVariables{
			DatasetID: uuid.MustParse(datasetID),
		})
		require.NoError(t, err)
		require.Len(t, records, 2)

		byName := map[string]catalogdb.DatasetVariableRecord{}
		for _, record := range records {
			byName[record.VariableName] = record
		}
		require.Len(t, byName["rainfall"].StandardVariables, 1)
		require.Equal(t, "precipitation_rate", byName["rainfall"].StandardVariables[0].Name)
		require.NotNil(t, byName["gauge_station_id"].StandardVariables)
		require.Empty(t, byName["gauge_station_id"].StandardVariables)
	})

	t.Run("dataset resources with temporal filter", func(t *testing.T) {
		record, err := db.DatasetResources(ctx, catalogdb.DatasetResources{
			DatasetID: uuid.MustParse(datasetID),
			Filter: map[string]interface{}{
				"start_time__gte": "2018-06-01T00:00:00",
				"end_time__lte":   "2019-01-01T00:00:00",
			},
		})
		require.NoError(t, err)
		require.Len(t, record.Resources, 1)
	})

	t.Run("temporal coverage", func(t *testing.T) {
		coverage, err := db.DatasetTemporalCoverage(ctx, catalogdb.GetDatasetTemporalCoverage{
			DatasetID: uuid.MustParse(datasetID),
		})
		require.NoError(t, err)
		require.NotNil(t, coverage.TemporalCoverageStart)
		require.Equal(t, "2018-01-01T00:00:00", *coverage.TemporalCoverageStart)
	})

	t.Run("update dataset", func(t *testing.T) {
		newName := datasetName + "_renamed"
		changes, err := db.UpdateDataset(ctx, catalogdb.UpdateDataset{
			DatasetID: uuid.MustParse(datasetID),
			Name:      &newName,
			Metadata:  catalogdb.Metadata{"version": 2.0, "units": nil},
		})
		require.NoError(t, err)
		require.Contains(t, changes, "name")

		info, err := db.GetDataset(ctx, uuid.MustParse(datasetID))
		require.NoError(t, err)
		require.Equal(t, newName, info.Name)
		require.NotContains(t, info.Metadata, "units")
	})

	t.Run("delete", func(t *testing.T) {
		err := db.DeleteResource(ctx, catalogdb.DeleteResource{
			ResourceID:   uuid.MustParse(resources[0].RecordID),
			ProvenanceID: uuid.MustParse(provenance.RecordID),
		})
		require.NoError(t, err)

		err = db.DeleteDataset(ctx, catalogdb.DeleteDataset{
			DatasetID:    uuid.MustParse(datasetID),
			ProvenanceID: uuid.MustParse(provenance.RecordID),
		})
		require.NoError(t, err)

		_, err = db.GetDataset(ctx, uuid.MustParse(datasetID))
		require.True(t, catalogdb.ErrNotFound.Has(err))
	})
}

func TestSpatialFiltering(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(ctx, t)

	provenance, err := db.RegisterProvenance(ctx, catalogdb.ProvenanceDefinition{
		Name:           "test_provenance",
		ProvenanceType: "user",
	})
	require.NoError(t, err)

	datasets, err := db.RegisterDatasets(ctx, []catalogdb.DatasetDefinition{{
		ProvenanceID: provenance.RecordID,
		Name:         "station_inside_" + uuid.New().String(),
		Description:  "station in the study area",
		SpatialCoverage: &catalogdb.SpatialCoverageDefinition{
			Type:  "Point",
			Value: map[string]interface{}{"x": -117.5, "y": 33.5},
		},
	}, {
		ProvenanceID: provenance.RecordID,
		Name:         "station_outside_" + uuid.New().String(),
		Description:  "station far away",
		SpatialCoverage: &catalogdb.SpatialCoverageDefinition{
			Type:  "Point",
			Value: map[string]interface{}{"x": 10.0, "y": 10.0},
		},
	}})
	require.NoError(t, err)
	require.Len(t, datasets, 2)
	insideID, outsideID := datasets[0].RecordID, datasets[1].RecordID
	bothIDs := []interface{}{insideID, outsideID}

	bbox := []interface{}{-118.0, 33.0, -117.0, 34.0}

	t.Run("datasets within bounding box", func(t *testing.T) {
		found, err := db.FindDatasets(ctx, catalogdb.FindDatasets{
			Definition: map[string]interface{}{
				"dataset_ids__in":          bothIDs,
				"spatial_coverage__within": bbox,
			},
		})
		require.NoError(t, err)
		require.Len(t, found, 1)
		require.Equal(t, insideID, found[0].DatasetID.String())
	})

	t.Run("datasets intersecting geometry", func(t *testing.T) {
		found, err := db.FindDatasets(ctx, catalogdb.FindDatasets{
			Definition: map[string]interface{}{
				"dataset_ids__in": bothIDs,
				"spatial_coverage__intersects": map[string]interface{}{
					"type": "Polygon",
					"coordinates": []interface{}{[]interface{}{
						[]interface{}{-118.0, 33.0},
						[]interface{}{-118.0, 34.0},
						[]interface{}{-117.0, 34.0},
						[]interface{}{-117.0, 33.0},
						[]interface{}{-118.0, 33.0},
					}},
				},
			},
		})
		require.NoError(t, err)
		require.Len(t, found, 1)
		require.Equal(t, insideID, found[0].DatasetID.String())
	})

	resources, err := db.RegisterResources(ctx, []catalogdb.ResourceDefinition{{
		DatasetID:    insideID,
		ProvenanceID: provenance.RecordID,
		Name:         "station-inside.csv",
		ResourceType: "CSV",
		DataURL:      "https://data.example.org/station-inside.csv",
		SpatialCoverage: &catalogdb.SpatialCoverageDefinition{
			Type:  "Point",
			Value: map[string]interface{}{"x": -117.5, "y": 33.5},
		},
	}, {
		DatasetID:    insideID,
		ProvenanceID: provenance.RecordID,
		Name:         "station-outside.csv",
		ResourceType: "CSV",
		DataURL:      "https://data.example.org/station-outside.csv",
		SpatialCoverage: &catalogdb.SpatialCoverageDefinition{
			Type:  "Point",
			Value: map[string]interface{}{"x": 10.0, "y": 10.0},
		},
	}})
	require.NoError(t, err)
	require.Len(t, resources, 2)

	t.Run("resources within bounding box", func(t *testing.T) {
		record, err := db.DatasetResources(ctx, catalogdb.DatasetResources{
			DatasetID: uuid.MustParse(insideID),
			Filter: map[string]interface{}{
				"spatial_coverage__within": bbox,
			},
		})
		require.NoError(t, err)
		require.Len(t, record.Resources, 1)
		require.Equal(t, "station-inside.csv", record.Resources[0].ResourceName)
	})
}

func TestDeleteRequiresMatchingProvenance(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(ctx, t)

	provenance, err := db.RegisterProvenance(ctx, catalogdb.ProvenanceDefinition{
		Name:           "test_provenance",
		ProvenanceType: "user",
	})
	require.NoError(t, err)

	datasets, err := db.RegisterDatasets(ctx, []catalogdb.DatasetDefinition{{
		ProvenanceID: provenance.RecordID,
		Name:         "owned_dataset",
		Description:  "d",
	}})
	require.NoError(t, err)

	err = db.DeleteDataset(ctx, catalogdb.DeleteDataset{
		DatasetID:    uuid.MustParse(datasets[0].RecordID),
		ProvenanceID: uuid.New(),
	})
	require.Error(t, err)
	require.True(t, catalogdb.ErrValidation.Has(err))
}
