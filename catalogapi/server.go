// Copyright (C) 2019 MINT Project Authors.
// See LICENSE for copying information.

// Package catalogapi implements the REST API of the data catalog.
package catalogapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/mintproject/MINT-Data-Catalog/catalogdb"
	"github.com/mintproject/MINT-Data-Catalog/query"
)

// Store is the catalog persistence layer the API serves from.
type Store interface {
	FindDatasets(ctx context.Context, opts catalogdb.FindDatasets) ([]catalogdb.DatasetSummary, error)
	FindStandardVariables(ctx context.Context, opts catalogdb.FindStandardVariables) ([]catalogdb.StandardVariableRecord, error)
	DatasetVariables(ctx context.Context, opts catalogdb.DatasetVariables) ([]catalogdb.DatasetVariableRecord, error)
	DatasetStandardVariables(ctx context.Context, opts catalogdb.GetDatasetStandardVariables) (catalogdb.DatasetStandardVariables, error)
	VariablesStandardVariables(ctx context.Context, opts catalogdb.VariablesStandardVariables) ([]catalogdb.VariableRecord, error)
	DatasetResources(ctx context.Context, opts catalogdb.DatasetResources) (catalogdb.DatasetResourcesRecord, error)
	DatasetTemporalCoverage(ctx context.Context, opts catalogdb.GetDatasetTemporalCoverage) (catalogdb.TemporalCoverageRecord, error)
	SearchDatasets(ctx context.Context, opts catalogdb.SearchDatasets) ([]catalogdb.SearchDatasetRecord, error)

	GetDataset(ctx context.Context, id uuid.UUID) (catalogdb.DatasetInfo, error)
	GetResource(ctx context.Context, id uuid.UUID) (catalogdb.ResourceInfo, error)
	GetVariable(ctx context.Context, id uuid.UUID) (catalogdb.VariableInfo, error)
	GetStandardVariable(ctx context.Context, id uuid.UUID) (catalogdb.StandardVariableRecord, error)

	RegisterProvenance(ctx context.Context, def catalogdb.ProvenanceDefinition) (catalogdb.ProvenanceDefinition, error)
	RegisterDatasets(ctx context.Context, defs []catalogdb.DatasetDefinition) ([]catalogdb.DatasetDefinition, error)
	RegisterStandardVariables(ctx context.Context, defs []catalogdb.StandardVariableDefinition) ([]catalogdb.StandardVariableDefinition, error)
	RegisterVariables(ctx context.Context, defs []catalogdb.VariableDefinition) ([]catalogdb.VariableDefinition, error)
	RegisterResources(ctx context.Context, defs []catalogdb.ResourceDefinition) ([]catalogdb.ResourceDefinition, error)

	UpdateDataset(ctx context.Context, opts catalogdb.UpdateDataset) (catalogdb.Changes, error)
	UpdateResource(ctx context.Context, opts catalogdb.UpdateResource) (catalogdb.Changes, error)
	UpdateVariable(ctx context.Context, opts catalogdb.UpdateVariable) (catalogdb.Changes, error)
	UpdateStandardVariable(ctx context.Context, opts catalogdb.UpdateStandardVariable) (catalogdb.Changes, error)

	DeleteResource(ctx context.Context, opts catalogdb.DeleteResource) error
	DeleteDataset(ctx context.Context, opts catalogdb.DeleteDataset) error
}

// Server implements the REST API of the data catalog.
type Server struct {
	Logger   *zap.Logger
	Store    Store
	Auth     Auth
	Endpoint string
	Handler  http.Handler
}

// NewServer creates a new catalog API server.
func NewServer(log *zap.Logger, store Store, auth Auth, endpoint string) (*Server, error) {
	s := &Server{
		Logger:   log,
		Store:    store,
		Auth:     auth,
		Endpoint: endpoint,
	}

	router := mux.NewRouter()

	router.HandleFunc("/get_session_token", s.HandleGetSessionToken).Methods(http.MethodGet)

	// search operations
	router.HandleFunc("/datasets/find", s.HandleFindDatasets).Methods(http.MethodPost)
	router.HandleFunc("/knowledge_graph/find_standard_variables", s.HandleFindStandardVariables).Methods(http.MethodPost)
	router.HandleFunc("/datasets/dataset_variables", s.HandleDatasetVariables).Methods(http.MethodPost)
	router.HandleFunc("/datasets/dataset_standard_variables", s.HandleDatasetStandardVariables).Methods(http.MethodPost)
	router.HandleFunc("/variables/variables_standard_variables", s.HandleVariablesStandardVariables).Methods(http.MethodPost)
	router.HandleFunc("/datasets/dataset_resources", s.HandleDatasetResources).Methods(http.MethodPost)
	router.HandleFunc("/datasets/get_dataset_temporal_coverage", s.HandleDatasetTemporalCoverage).Methods(http.MethodPost)
	router.HandleFunc("/datasets/search", s.HandleSearchDatasets).Methods(http.MethodPost)

	// record lookups
	router.HandleFunc("/datasets/get_dataset_info", s.HandleGetDatasetInfo).Methods(http.MethodPost)
	router.HandleFunc("/resources/get_resource_info", s.HandleGetResourceInfo).Methods(http.MethodPost)
	router.HandleFunc("/variables/get_variable_info", s.HandleGetVariableInfo).Methods(http.MethodPost)
	router.HandleFunc("/standard_variables/get_standard_variable_info", s.HandleGetStandardVariableInfo).Methods(http.MethodPost)

	// registration
	router.HandleFunc("/provenance/register_provenance", s.HandleRegisterProvenance).Methods(http.MethodPost)
	router.HandleFunc("/datasets/register_datasets", s.HandleRegisterDatasets).Methods(http.MethodPost)
	router.HandleFunc("/knowledge_graph/register_standard_variables", s.HandleRegisterStandardVariables).Methods(http.MethodPost)
	router.HandleFunc("/datasets/register_variables", s.HandleRegisterVariables).Methods(http.MethodPost)
	router.HandleFunc("/datasets/register_resources", s.HandleRegisterResources).Methods(http.MethodPost)

	// updates
	router.HandleFunc("/datasets/update_dataset", s.HandleUpdateDataset).Methods(http.MethodPost)
	router.HandleFunc("/resources/update_resource", s.HandleUpdateResource).Methods(http.MethodPost)
	router.HandleFunc("/variables/update_variable", s.HandleUpdateVariable).Methods(http.MethodPost)
	router.HandleFunc("/standard_variables/update_standard_variable", s.HandleUpdateStandardVariable).Methods(http.MethodPost)

	// deletion
	router.HandleFunc("/resources/delete_resource", s.HandleDeleteResource).Methods(http.MethodPost)
	router.HandleFunc("/datasets/delete_dataset", s.HandleDeleteDataset).Methods(http.MethodPost)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.errorResponse(w, ErrNotFound)
	})
	s.Handler = router

	return s, nil
}

// Run starts the catalog API server.
func (s *Server) Run() error {
	return http.ListenAndServe(s.Endpoint, s.Handler)
}

func (s *Server) validateRequest(ctx context.Context, r *http.Request, body interface{}) error {
	if err := s.Auth.Authenticate(ctx, r); err != nil {
		return err
	}
	return decodeBody(r, body)
}

func decodeBody(r *http.Request, body interface{}) error {
	if body == nil || r.Body == nil {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(body); err != nil {
		return fmt.Errorf("%w: error decoding request body: %w", ErrBadRequest, err)
	}
	return nil
}

func (s *Server) HandleGetSessionToken(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"X-Api-Key": NewSessionToken()})
}

// HandleFindDatasets serves dataset search over the declarative filter
// grammar.
func (s *Server) HandleFindDatasets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var definition map[string]interface{}

	if err := s.validateRequest(ctx, r, &definition); err != nil {
		s.errorResponse(w, err)
		return
	}

	datasets, err := s.Store.FindDatasets(ctx, catalogdb.FindDatasets{Definition: definition})
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	if datasets == nil {
		datasets = []catalogdb.DatasetSummary{}
	}

	s.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"result":   "success",
		"datasets": datasets,
	})
}

func (s *Server) HandleFindStandardVariables(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var definition map[string]interface{}

	if err := s.validateRequest(ctx, r, &definition); err != nil {
		s.errorResponse(w, err)
		return
	}

	records, err := s.Store.FindStandardVariables(ctx, catalogdb.FindStandardVariables{Definition: definition})
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	if records == nil {
		records = []catalogdb.StandardVariableRecord{}
	}

	s.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"result":             "success",
		"standard_variables": records,
	})
}

func (s *Server) HandleDatasetVariables(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var definition map[string]interface{}

	if err := s.validateRequest(ctx, r, &definition); err != nil {
		s.errorResponse(w, err)
		return
	}

	datasetID, err := requiredID(definition, "dataset_id")
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	variables, err := s.Store.DatasetVariables(ctx, catalogdb.DatasetVariables{DatasetID: datasetID})
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	if variables == nil {
		variables = []catalogdb.DatasetVariableRecord{}
	}

	s.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"result": "success",
		"dataset": map[string]interface{}{
			"variables": variables,
		},
	})
}

func (s *Server) HandleDatasetStandardVariables(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var definition map[string]interface{}

	if err := s.validateRequest(ctx, r, &definition); err != nil {
		s.errorResponse(w, err)
		return
	}

	datasetID, err := requiredID(definition, "dataset_id")
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	record, err := s.Store.DatasetStandardVariables(ctx, catalogdb.GetDatasetStandardVariables{DatasetID: datasetID})
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"result":  "success",
		"dataset": record,
	})
}

func (s *Server) HandleVariablesStandardVariables(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var definition map[string]interface{}

	if err := s.validateRequest(ctx, r, &definition); err != nil {
		s.errorResponse(w, err)
		return
	}

	variables, err := s.Store.VariablesStandardVariables(ctx, catalogdb.VariablesStandardVariables{Definition: definition})
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	if variables == nil {
		variables = []catalogdb.VariableRecord{}
	}

	s.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"result":    "success",
		"variables": variables,
	})
}

func (s *Server) HandleDatasetResources(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var definition map[string]interface{}

	if err := s.validateRequest(ctx, r, &definition); err != nil {
		s.errorResponse(w, err)
		return
	}

	datasetID, err := requiredID(definition, "dataset_id")
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	opts := catalogdb.DatasetResources{DatasetID: datasetID}
	if raw, ok := definition["filter"]; ok && raw != nil {
		filter, ok := raw.(map[string]interface{})
		if !ok {
			s.errorResponse(w, badRequestf("'filter' value must be a JSON object; received %v", raw))
			return
		}
		opts.Filter = filter
	}
	if raw, ok := definition["limit"]; ok {
		limit, err := query.ParseInt(raw)
		if err != nil {
			s.errorResponse(w, badRequestf("invalid value for 'limit': %v", raw))
			return
		}
		opts.Limit = limit
	}

	record, err := s.Store.DatasetResources(ctx, opts)
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"result":     "success",
		"dataset":    record,
		"dataset_id": record.DatasetID,
		"resources":  record.Resources,
	})
}

func (s *Server) HandleDatasetTemporalCoverage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var definition map[string]interface{}

	if err := decodeBody(r, &definition); err != nil {
		s.errorResponse(w, err)
		return
	}

	datasetID, err := requiredID(definition, "dataset_id")
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	record, err := s.Store.DatasetTemporalCoverage(ctx, catalogdb.GetDatasetTemporalCoverage{DatasetID: datasetID})
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"result":  "success",
		"dataset": record,
	})
}

// HandleSearchDatasets serves full-text dataset search.
func (s *Server) HandleSearchDatasets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var definition map[string]interface{}

	if err := decodeBody(r, &definition); err != nil {
		s.errorResponse(w, err)
		return
	}

	datasets, err := s.Store.SearchDatasets(ctx, catalogdb.SearchDatasets{Definition: definition})
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	if datasets == nil {
		datasets = []catalogdb.SearchDatasetRecord{}
	}

	s.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"result":   "success",
		"datasets": datasets,
	})
}

func (s *Server) HandleGetDatasetInfo(w http.ResponseWriter, r *http.Request) {
	s.handleGetInfo(w, r, "dataset_id", func(ctx context.Context, id uuid.UUID) (interface{}, error) {
		return s.Store.GetDataset(ctx, id)
	})
}

func (s *Server) HandleGetResourceInfo(w http.ResponseWriter, r *http.Request) {
	s.handleGetInfo(w, r, "resource_id", func(ctx context.Context, id uuid.UUID) (interface{}, error) {
		return s.Store.GetResource(ctx, id)
	})
}

func (s *Server) HandleGetVariableInfo(w http.ResponseWriter, r *http.Request) {
	s.handleGetInfo(w, r, "variable_id", func(ctx context.Context, id uuid.UUID) (interface{}, error) {
		return s.Store.GetVariable(ctx, id)
	})
}

func (s *Server) HandleGetStandardVariableInfo(w http.ResponseWriter, r *http.Request) {
	s.handleGetInfo(w, r, "standard_variable_id", func(ctx context.Context, id uuid.UUID) (interface{}, error) {
		return s.Store.GetStandardVariable(ctx, id)
	})
}

// handleGetInfo looks up a single record by id. Unknown ids yield an
// empty object rather than an error.
func (s *Server) handleGetInfo(w http.ResponseWriter, r *http.Request, field string, get func(context.Context, uuid.UUID) (interface{}, error)) {
	ctx := r.Context()
	var definition map[string]interface{}

	if err := decodeBody(r, &definition); err != nil {
		s.errorResponse(w, err)
		return
	}

	id, err := requiredID(definition, field)
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	record, err := get(ctx, id)
	if catalogdb.ErrNotFound.Has(err) {
		s.jsonResponse(w, http.StatusOK, map[string]interface{}{})
		return
	}
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, record)
}

func (s *Server) HandleRegisterProvenance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var request struct {
		Provenance catalogdb.ProvenanceDefinition `json:"provenance"`
	}

	if err := s.validateRequest(ctx, r, &request); err != nil {
		s.errorResponse(w, err)
		return
	}

	provenance, err := s.Store.RegisterProvenance(ctx, request.Provenance)
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"provenance": provenance,
	})
}

func (s *Server) HandleRegisterDatasets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var request struct {
		Datasets []catalogdb.DatasetDefinition `json:"datasets"`
	}

	if err := s.validateRequest(ctx, r, &request); err != nil {
		s.errorResponse(w, err)
		return
	}

	datasets, err := s.Store.RegisterDatasets(ctx, request.Datasets)
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"result":   "success",
		"datasets": datasets,
	})
}

func (s *Server) HandleRegisterStandardVariables(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var request struct {
		StandardVariables []catalogdb.StandardVariableDefinition `json:"standard_variables"`
	}

	if err := s.validateRequest(ctx, r, &request); err != nil {
		s.errorResponse(w, err)
		return
	}

	records, err := s.Store.RegisterStandardVariables(ctx, request.StandardVariables)
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"result":             "success",
		"standard_variables": records,
	})
}

func (s *Server) HandleRegisterVariables(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var request struct {
		Variables []catalogdb.VariableDefinition `json:"variables"`
	}

	if err := s.validateRequest(ctx, r, &request); err != nil {
		s.errorResponse(w, err)
		return
	}

	variables, err := s.Store.RegisterVariables(ctx, request.Variables)
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"result":    "success",
		"variables": variables,
	})
}

func (s *Server) HandleRegisterResources(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var request struct {
		Resources []catalogdb.ResourceDefinition `json:"resources"`
	}

	if err := s.validateRequest(ctx, r, &request); err != nil {
		s.errorResponse(w, err)
		return
	}

	resources, err := s.Store.RegisterResources(ctx, request.Resources)
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"result":    "success",
		"resources": resources,
	})
}

func (s *Server) HandleUpdateDataset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var definition map[string]interface{}

	if err := decodeBody(r, &definition); err != nil {
		s.errorResponse(w, err)
		return
	}

	opts := catalogdb.UpdateDataset{}
	var err error
	if opts.DatasetID, err = requiredID(definition, "dataset_id"); err != nil {
		s.errorResponse(w, err)
		return
	}
	if opts.Name, err = optionalString(definition, "name"); err != nil {
		s.errorResponse(w, err)
		return
	}
	if opts.Description, err = optionalString(definition, "description"); err != nil {
		s.errorResponse(w, err)
		return
	}
	if opts.Metadata, err = optionalMetadata(definition); err != nil {
		s.errorResponse(w, err)
		return
	}

	changes, err := s.Store.UpdateDataset(ctx, opts)
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"dataset_id": opts.DatasetID,
		"changes":    changes,
	})
}

func (s *Server) HandleUpdateResource(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var definition map[string]interface{}

	if err := decodeBody(r, &definition); err != nil {
		s.errorResponse(w, err)
		return
	}

	opts := catalogdb.UpdateResource{}
	var err error
	if opts.ResourceID, err = requiredID(definition, "resource_id"); err != nil {
		s.errorResponse(w, err)
		return
	}
	if opts.Name, err = optionalString(definition, "name"); err != nil {
		s.errorResponse(w, err)
		return
	}
	if opts.ResourceType, err = optionalString(definition, "resource_type"); err != nil {
		s.errorResponse(w, err)
		return
	}
	if opts.DataURL, err = optionalString(definition, "data_url"); err != nil {
		s.errorResponse(w, err)
		return
	}
	if opts.Metadata, err = optionalMetadata(definition); err != nil {
		s.errorResponse(w, err)
		return
	}

	changes, err := s.Store.UpdateResource(ctx, opts)
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"resource_id": opts.ResourceID,
		"changes":     changes,
	})
}

func (s *Server) HandleUpdateVariable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var definition map[string]interface{}

	if err := decodeBody(r, &definition); err != nil {
		s.errorResponse(w, err)
		return
	}

	opts := catalogdb.UpdateVariable{}
	var err error
	if opts.VariableID, err = requiredID(definition, "variable_id"); err != nil {
		s.errorResponse(w, err)
		return
	}
	if opts.Name, err = optionalString(definition, "name"); err != nil {
		s.errorResponse(w, err)
		return
	}
	if opts.Metadata, err = optionalMetadata(definition); err != nil {
		s.errorResponse(w, err)
		return
	}

	changes, err := s.Store.UpdateVariable(ctx, opts)
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"variable_id": opts.VariableID,
		"changes":     changes,
	})
}

func (s *Server) HandleUpdateStandardVariable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var definition map[string]interface{}

	if err := decodeBody(r, &definition); err != nil {
		s.errorResponse(w, err)
		return
	}

	opts := catalogdb.UpdateStandardVariable{}
	var err error
	if opts.StandardVariableID, err = requiredID(definition, "standard_variable_id"); err != nil {
		s.errorResponse(w, err)
		return
	}
	if opts.Name, err = optionalString(definition, "name"); err != nil {
		s.errorResponse(w, err)
		return
	}
	if opts.Ontology, err = optionalString(definition, "ontology"); err != nil {
		s.errorResponse(w, err)
		return
	}
	if opts.URI, err = optionalString(definition, "uri"); err != nil {
		s.errorResponse(w, err)
		return
	}
	if opts.Description, err = optionalString(definition, "description"); err != nil {
		s.errorResponse(w, err)
		return
	}

	changes, err := s.Store.UpdateStandardVariable(ctx, opts)
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"success":              true,
		"standard_variable_id": opts.StandardVariableID,
		"changes":              changes,
	})
}

func (s *Server) HandleDeleteResource(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var definition map[string]interface{}

	if err := decodeBody(r, &definition); err != nil {
		s.errorResponse(w, err)
		return
	}

	opts := catalogdb.DeleteResource{}
	var err error
	if opts.ResourceID, err = requiredID(definition, "resource_id"); err != nil {
		s.errorResponse(w, err)
		return
	}
	if opts.ProvenanceID, err = requiredID(definition, "provenance_id"); err != nil {
		s.errorResponse(w, err)
		return
	}

	if err := s.Store.DeleteResource(ctx, opts); err != nil {
		s.errorResponse(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]interface{}{"result": "success"})
}

func (s *Server) HandleDeleteDataset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var definition map[string]interface{}

	if err := decodeBody(r, &definition); err != nil {
		s.errorResponse(w, err)
		return
	}

	opts := catalogdb.DeleteDataset{}
	var err error
	if opts.DatasetID, err = requiredID(definition, "dataset_id"); err != nil {
		s.errorResponse(w, err)
		return
	}
	if opts.ProvenanceID, err = requiredID(definition, "provenance_id"); err != nil {
		s.errorResponse(w, err)
		return
	}

	if err := s.Store.DeleteDataset(ctx, opts); err != nil {
		s.errorResponse(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]interface{}{"result": "success"})
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, body interface{}) {
	jsonBytes, err := json.Marshal(body)
	if err != nil {
		s.errorResponse(w, fmt.Errorf("%w: %v", ErrInternalError, err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(jsonBytes)
}

func (s *Server) errorResponse(w http.ResponseWriter, err error) {
	s.Logger.Warn("error during API request", zap.Error(err))

	var e *ErrorResponse
	if !errors.As(err, &e) {
		switch {
		case query.ErrInvalidDefinition.Has(err), catalogdb.ErrValidation.Has(err):
			e = &ErrorResponse{StatusCode: http.StatusBadRequest, Message: err.Error()}
		default:
			e = ErrInternalError
		}
	}

	resp, _ := json.Marshal(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	_, _ = w.Write(resp)
}

func badRequestf(format string, args ...interface{}) error {
	return &ErrorResponse{StatusCode: http.StatusBadRequest, Message: fmt.Sprintf(format, args...)}
}

// requiredID extracts and validates a UUID field from a request body.
func requiredID(body map[string]interface{}, field string) (uuid.UUID, error) {
	raw, ok := body[field]
	if !ok {
		return uuid.Nil, badRequestf("Missing required key '%s'", field)
	}
	id, err := uuid.Parse(fmt.Sprint(raw))
	if err != nil {
		return uuid.Nil, badRequestf("'%s' value must be a valid UUID v4; received %v", field, raw)
	}
	return id, nil
}

func optionalString(body map[string]interface{}, field string) (*string, error) {
	raw, ok := body[field]
	if !ok || raw == nil {
		return nil, nil
	}
	value, ok := raw.(string)
	if !ok {
		return nil, badRequestf("'%s' value must be a string; received %v", field, raw)
	}
	return &value, nil
}

func optionalMetadata(body map[string]interface{}) (catalogdb.Metadata, error) {
	raw, ok := body["metadata"]
	if !ok || raw == nil {
		return nil, nil
	}
	value, ok := raw.(map[string]interface{})
	if !ok {
		return nil, badRequestf("'metadata' value must be a JSON object; received %v", raw)
	}
	return catalogdb.Metadata(value), nil
}
