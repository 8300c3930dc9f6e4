// Copyright (C) 2019 MINT Project Authors.
// See LICENSE for copying information.

package catalogapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mintproject/MINT-Data-Catalog/catalogapi"
	"github.com/mintproject/MINT-Data-Catalog/catalogdb"
	"github.com/mintproject/MINT-Data-Catalog/query"
)

// stubStore implements catalogapi.Store with overridable methods.
type stubStore struct {
	findDatasets             func(opts catalogdb.FindDatasets) ([]catalogdb.DatasetSummary, error)
	datasetVariables         func(opts catalogdb.DatasetVariables) ([]catalogdb.DatasetVariableRecord, error)
	datasetStandardVariables func(opts catalogdb.GetDatasetStandardVariables) (catalogdb.DatasetStandardVariables, error)
	getDataset               func(id uuid.UUID) (catalogdb.DatasetInfo, error)
	registerProvenance       func(def catalogdb.ProvenanceDefinition) (catalogdb.ProvenanceDefinition, error)
	registerDatasets         func(defs []catalogdb.DatasetDefinition) ([]catalogdb.DatasetDefinition, error)
	updateDataset            func(opts catalogdb.UpdateDataset) (catalogdb.Changes, error)
	deleteResource           func(opts catalogdb.DeleteResource) error
}

func (s *stubStore) FindDatasets(ctx context.Context, opts catalogdb.FindDatasets) ([]catalogdb.DatasetSummary, error) {
	return s.findDatasets(opts)
}

func (s *stubStore) FindStandardVariables(ctx context.Context, opts catalogdb.FindStandardVariables) ([]catalogdb.StandardVariableRecord, error) {
	return nil, nil
}

func (s *stubStore) DatasetVariables(ctx context.Context, opts catalogdb.DatasetVariables) ([]catalogdb.DatasetVariableRecord, error) {
	return s.datasetVariables(opts)
}

func (s *stubStore) DatasetStandardVariables(ctx context.Context, opts catalogdb.GetDatasetStandardVariables) (catalogdb.DatasetStandardVariables, error) {
	return s.datasetStandardVariables(opts)
}

func (s *stubStore) VariablesStandardVariables(ctx context.Context, opts catalogdb.VariablesStandardVariables) ([]catalogdb.VariableRecord, error) {
	return nil, nil
}

func (s *stubStore) DatasetResources(ctx context.Context, opts catalogdb.DatasetResources) (catalogdb.DatasetResourcesRecord, error) {
	return catalogdb.DatasetResourcesRecord{DatasetID: opts.DatasetID, Resources: []catalogdb.ResourceRecord{}}, nil
}

func (s *stubStore) DatasetTemporalCoverage(ctx context.Context, opts catalogdb.GetDatasetTemporalCoverage) (catalogdb.TemporalCoverageRecord, error) {
	return catalogdb.TemporalCoverageRecord{DatasetID: opts.DatasetID}, nil
}

func (s *stubStore) SearchDatasets(ctx context.Context, opts catalogdb.SearchDatasets) ([]catalogdb.SearchDatasetRecord, error) {
	return nil, nil
}

func (s *stubStore) GetDataset(ctx context.Context, id uuid.UUID) (catalogdb.DatasetInfo, error) {
	return s.getDataset(id)
}

func (s *stubStore) GetResource(ctx context.Context, id uuid.UUID) (catalogdb.ResourceInfo, error) {
	return catalogdb.ResourceInfo{}, nil
}

func (s *stubStore) GetVariable(ctx context.Context, id uuid.UUID) (catalogdb.VariableInfo, error) {
	return catalogdb.VariableInfo{}, nil
}

func (s *stubStore) GetStandardVariable(ctx context.Context, id uuid.UUID) (catalogdb.StandardVariableRecord, error) {
	return catalogdb.StandardVariableRecord{}, nil
}

func (s *stubStore) RegisterProvenance(ctx context.Context, def catalogdb.ProvenanceDefinition) (catalogdb.ProvenanceDefinition, error) {
	return s.registerProvenance(def)
}

func (s *stubStore) RegisterDatasets(ctx context.Context, defs []catalogdb.DatasetDefinition) ([]catalogdb.DatasetDefinition, error) {
	return s.registerDatasets(defs)
}

func (s *stubStore) RegisterStandardVariables(ctx context.Context, defs []catalogdb.StandardVariableDefinition) ([]catalogdb.StandardVariableDefinition, error) {
	return defs, nil
}

func (s *stubStore) RegisterVariables(ctx context.Context, defs []catalogdb.VariableDefinition) ([]catalogdb.VariableDefinition, error) {
	return defs, nil
}

func (s *stubStore) RegisterResources(ctx context.Context, defs []catalogdb.ResourceDefinition) ([]catalogdb.ResourceDefinition, error) {
	return defs, nil
}

func (s *stubStore) UpdateDataset(ctx context.Context, opts catalogdb.UpdateDataset) (catalogdb.Changes, error) {
	return s.updateDataset(opts)
}

func (s *stubStore) UpdateResource(ctx context.Context, opts catalogdb.UpdateResource) (catalogdb.Changes, error) {
	return catalogdb.Changes{}, nil
}

func (s *stubStore) UpdateVariable(ctx context.Context, opts catalogdb.UpdateVariable) (catalogdb.Changes, error) {
	return catalogdb.Changes{}, nil
}

func (s *stubStore) UpdateStandardVariable(ctx context.Context, opts catalogdb.UpdateStandardVariable) (catalogdb.Changes, error) {
	return catalogdb.Changes{}, nil
}

func (s *stubStore) DeleteResource(ctx context.Context, opts catalogdb.DeleteResource) error {
	return s.deleteResource(opts)
}

func (s *stubStore) DeleteDataset(ctx context.Context, opts catalogdb.DeleteDataset) error {
	return nil
}

func testServer(t *testing.T, store *stubStore) *catalogapi.Server {
	server, err := catalogapi.NewServer(zaptest.NewLogger(t), store, catalogapi.HeaderAuth{}, "localhost:0")
	require.NoError(t, err)
	return server
}

func doRequest(t *testing.T, server *catalogapi.Server, method, path, apiKey, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	r := httptest.NewRequest(method, path, reader)
	if apiKey != "" {
		r.Header.Set("X-Api-Key", apiKey)
	}
	w := httptest.NewRecorder()
	server.Handler.ServeHTTP(w, r)
	return w
}

func TestGetSessionToken(t *testing.T) {
	server := testServer(t, &stubStore{})

	w := doRequest(t, server, http.MethodGet, "/get_session_token", "", "")
	require.Equal(t, http.StatusOK, w.Code)

	var response map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Contains(t, response["X-Api-Key"], "mint-data-catalog:")
}

func TestAuthentication(t *testing.T) {
	server := testServer(t, &stubStore{
		findDatasets: func(opts catalogdb.FindDatasets) ([]catalogdb.DatasetSummary, error) {
			return nil, nil
		},
	})

	body := `{"dataset_names": ["temperature"]}`

	w := doRequest(t, server, http.MethodPost, "/datasets/find", "", body)
	require.Equal(t, http.StatusForbidden, w.Code)
	require.JSONEq(t, `{"error": "Invalid X-Api-Key"}`, w.Body.String())

	w = doRequest(t, server, http.MethodPost, "/datasets/find", "garbage", body)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = doRequest(t, server, http.MethodPost, "/datasets/find", catalogapi.NewSessionToken(), body)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestFindDatasets(t *testing.T) {
	datasetID := uuid.New()
	server := testServer(t, &stubStore{
		findDatasets: func(opts catalogdb.FindDatasets) ([]catalogdb.DatasetSummary, error) {
			require.Equal(t, []interface{}{"temperature"}, opts.Definition["dataset_names"])
			return []catalogdb.DatasetSummary{{
				DatasetID:   datasetID,
				DatasetName: "temperature",
			}}, nil
		},
	})

	w := doRequest(t, server, http.MethodPost, "/datasets/find",
		catalogapi.NewSessionToken(), `{"dataset_names": ["temperature"]}`)
	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Result   string                     `json:"result"`
		Datasets []catalogdb.DatasetSummary `json:"datasets"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Equal(t, "success", response.Result)
	require.Len(t, response.Datasets, 1)
	require.Equal(t, datasetID, response.Datasets[0].DatasetID)
}

func TestFindDatasetsEmptyResult(t *testing.T) {
	server := testServer(t, &stubStore{
		findDatasets: func(opts catalogdb.FindDatasets) ([]catalogdb.DatasetSummary, error) {
			return nil, nil
		},
	})

	w := doRequest(t, server, http.MethodPost, "/datasets/find",
		catalogapi.NewSessionToken(), `{"dataset_names": ["temperature"]}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"result": "success", "datasets": []}`, w.Body.String())
}

func TestInvalidDefinition(t *testing.T) {
	server := testServer(t, &stubStore{
		findDatasets: func(opts catalogdb.FindDatasets) ([]catalogdb.DatasetSummary, error) {
			return nil, query.ErrInvalidDefinition.New("invalid search field(s)")
		},
	})

	w := doRequest(t, server, http.MethodPost, "/datasets/find",
		catalogapi.NewSessionToken(), `{"bogus": ["x"]}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var response map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Contains(t, response["error"], "invalid search field(s)")
}

func TestDatasetVariablesRequiresID(t *testing.T) {
	datasetID := uuid.New()
	server := testServer(t, &stubStore{
		datasetVariables: func(opts catalogdb.DatasetVariables) ([]catalogdb.DatasetVariableRecord, error) {
			require.Equal(t, datasetID, opts.DatasetID)
			return nil, nil
		},
	})
	apiKey := catalogapi.NewSessionToken()

	w := doRequest(t, server, http.MethodPost, "/datasets/dataset_variables", apiKey, `{}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.JSONEq(t, `{"error": "Missing required key 'dataset_id'"}`, w.Body.String())

	w = doRequest(t, server, http.MethodPost, "/datasets/dataset_variables", apiKey,
		`{"dataset_id": "not-a-uuid"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "must be a valid UUID v4")

	w = doRequest(t, server, http.MethodPost, "/datasets/dataset_variables", apiKey,
		`{"dataset_id": "`+datasetID.String()+`"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"result": "success", "dataset": {"variables": []}}`, w.Body.String())
}

func TestDatasetStandardVariablesEmpty(t *testing.T) {
	server := testServer(t, &stubStore{
		datasetStandardVariables: func(opts catalogdb.GetDatasetStandardVariables) (catalogdb.DatasetStandardVariables, error) {
			return catalogdb.DatasetStandardVariables{
				StandardVariables: []catalogdb.StandardVariableShortcut{},
			}, nil
		},
	})

	w := doRequest(t, server, http.MethodPost, "/datasets/dataset_standard_variables",
		catalogapi.NewSessionToken(), `{"dataset_id": "`+uuid.New().String()+`"}`)
	require.Equal(t, http.StatusOK, w.Code)

	// a dataset without annotated variables reports null identifiers
	require.JSONEq(t, `{
		"result": "success",
		"dataset": {"dataset_id": null, "dataset_name": null, "standard_variables": []}
	}`, w.Body.String())
}

func TestDatasetTemporalCoverageUnauthenticated(t *testing.T) {
	datasetID := uuid.New()
	server := testServer(t, &stubStore{})

	w := doRequest(t, server, http.MethodPost, "/datasets/get_dataset_temporal_coverage", "",
		`{"dataset_id": "`+datasetID.String()+`"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{
		"result": "success",
		"dataset": {
			"dataset_id": "`+datasetID.String()+`",
			"temporal_coverage_start": null,
			"temporal_coverage_end": null
		}
	}`, w.Body.String())
}

func TestGetDatasetInfo(t *testing.T) {
	datasetID := uuid.New()
	server := testServer(t, &stubStore{
		getDataset: func(id uuid.UUID) (catalogdb.DatasetInfo, error) {
			if id != datasetID {
				return catalogdb.DatasetInfo{}, catalogdb.ErrNotFound.New("dataset: %s", id)
			}
			return catalogdb.DatasetInfo{DatasetID: datasetID, Name: "temperature"}, nil
		},
	})

	w := doRequest(t, server, http.MethodPost, "/datasets/get_dataset_info", "",
		`{"dataset_id": "`+datasetID.String()+`"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"temperature"`)

	// unknown records yield an empty object, not an error
	w = doRequest(t, server, http.MethodPost, "/datasets/get_dataset_info", "",
		`{"dataset_id": "`+uuid.New().String()+`"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{}`, w.Body.String())
}

func TestRegisterProvenance(t *testing.T) {
	server := testServer(t, &stubStore{
		registerProvenance: func(def catalogdb.ProvenanceDefinition) (catalogdb.ProvenanceDefinition, error) {
			require.Equal(t, "test_provenance", def.Name)
			def.RecordID = uuid.New().String()
			return def, nil
		},
	})

	w := doRequest(t, server, http.MethodPost, "/provenance/register_provenance",
		catalogapi.NewSessionToken(),
		`{"provenance": {"name": "test_provenance", "provenance_type": "user"}}`)
	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Provenance catalogdb.ProvenanceDefinition `json:"provenance"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Equal(t, "test_provenance", response.Provenance.Name)
	require.NotEmpty(t, response.Provenance.RecordID)
}

func TestRegisterDatasets(t *testing.T) {
	server := testServer(t, &stubStore{
		registerDatasets: func(defs []catalogdb.DatasetDefinition) ([]catalogdb.DatasetDefinition, error) {
			require.Len(t, defs, 1)
			return defs, nil
		},
	})

	w := doRequest(t, server, http.MethodPost, "/datasets/register_datasets",
		catalogapi.NewSessionToken(),
		`{"datasets": [{"provenance_id": "`+uuid.New().String()+`", "name": "temperature", "description": "d", "metadata": {}}]}`)
	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Result   string                        `json:"result"`
		Datasets []catalogdb.DatasetDefinition `json:"datasets"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Equal(t, "success", response.Result)
	require.Len(t, response.Datasets, 1)
}

func TestRegisterDatasetsValidationError(t *testing.T) {
	server := testServer(t, &stubStore{
		registerDatasets: func(defs []catalogdb.DatasetDefinition) ([]catalogdb.DatasetDefinition, error) {
			return nil, catalogdb.ErrValidation.New("missing parameter or its value is empty: %q", "datasets")
		},
	})

	w := doRequest(t, server, http.MethodPost, "/datasets/register_datasets",
		catalogapi.NewSessionToken(), `{"datasets": []}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "missing parameter")
}

func TestUpdateDataset(t *testing.T) {
	datasetID := uuid.New()
	server := testServer(t, &stubStore{
		updateDataset: func(opts catalogdb.UpdateDataset) (catalogdb.Changes, error) {
			require.Equal(t, datasetID, opts.DatasetID)
			require.NotNil(t, opts.Name)
			require.Equal(t, "renamed", *opts.Name)
			require.Nil(t, opts.Description)
			return catalogdb.Changes{
				"name": {From: "temperature", To: "renamed"},
			}, nil
		},
	})

	w := doRequest(t, server, http.MethodPost, "/datasets/update_dataset", "",
		`{"dataset_id": "`+datasetID.String()+`", "name": "renamed"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Success   bool                       `json:"success"`
		DatasetID uuid.UUID                  `json:"dataset_id"`
		Changes   map[string]json.RawMessage `json:"changes"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.True(t, response.Success)
	require.Equal(t, datasetID, response.DatasetID)
	require.Contains(t, response.Changes, "name")
}

func TestDeleteResource(t *testing.T) {
	resourceID := uuid.New()
	provenanceID := uuid.New()
	server := testServer(t, &stubStore{
		deleteResource: func(opts catalogdb.DeleteResource) error {
			require.Equal(t, resourceID, opts.ResourceID)
			require.Equal(t, provenanceID, opts.ProvenanceID)
			return nil
		},
	})

	w := doRequest(t, server, http.MethodPost, "/resources/delete_resource", "",
		`{"resource_id": "`+resourceID.String()+`", "provenance_id": "`+provenanceID.String()+`"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"result": "success"}`, w.Body.String())

	w = doRequest(t, server, http.MethodPost, "/resources/delete_resource", "",
		`{"resource_id": "`+resourceID.String()+`"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.JSONEq(t, `{"error": "Missing required key 'provenance_id'"}`, w.Body.String())
}

func TestInternalErrorIsOpaque(t *testing.T) {
	server := testServer(t, &stubStore{
		findDatasets: func(opts catalogdb.FindDatasets) ([]catalogdb.DatasetSummary, error) {
			return nil, catalogdb.Error.New("connection refused")
		},
	})

	w := doRequest(t, server, http.MethodPost, "/datasets/find",
		catalogapi.NewSessionToken(), `{"dataset_names": ["x"]}`)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.JSONEq(t, `{"error": "internal error"}`, w.Body.String())
}

func TestUnknownRoute(t *testing.T) {
	server := testServer(t, &stubStore{})

	w := doRequest(t, server, http.MethodPost, "/nope", "", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	require.JSONEq(t, `{"error": "Not Found"}`, w.Body.String())
}
