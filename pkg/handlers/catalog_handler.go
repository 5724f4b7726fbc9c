package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/sageql/sage/pkg/models"
)

// CatalogHandler serves live schema introspection endpoints.
type CatalogHandler interface {
	ListTables(w http.ResponseWriter, r *http.Request)
	ListColumns(w http.ResponseWriter, r *http.Request)
}

type catalogHandler struct {
	catalog CatalogService
	logger  zerolog.Logger
}

// NewCatalogHandler creates the catalog endpoints handler.
func NewCatalogHandler(catalog CatalogService, logger zerolog.Logger) CatalogHandler {
	return &catalogHandler{catalog: catalog, logger: logger}
}

type tablesResponse struct {
	Tables []models.TableRef `json:"tables"`
}

// ListTables handles GET /api/v1/catalog/tables.
func (h *catalogHandler) ListTables(w http.ResponseWriter, r *http.Request) {
	tables, err := h.catalog.ListTables(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list tables")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tablesResponse{Tables: tables})
}

type columnsResponse struct {
	Schema  string          `json:"schema"`
	Table   string          `json:"table"`
	Columns []models.Column `json:"columns"`
}

// ListColumns handles GET /api/v1/catalog/tables/{schema}/{table}/columns.
func (h *catalogHandler) ListColumns(w http.ResponseWriter, r *http.Request) {
	schema := chi.URLParam(r, "schema")
	table := chi.URLParam(r, "table")

	columns, err := h.catalog.ListColumns(r.Context(), table, schema)
	if err != nil {
		h.logger.Error().Err(err).
			Str("schema", schema).
			Str("table", table).
			Msg("Failed to list columns")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, columnsResponse{Schema: schema, Table: table, Columns: columns})
}
