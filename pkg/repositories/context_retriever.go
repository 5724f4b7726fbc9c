package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/sageql/sage/pkg/models"
)

const (
	maxSchemaTables  = 8
	maxSchemaColumns = 10
)

// catalogContextRetriever builds generation context from the live
// catalog: a compact schema summary plus table hints matched against
// the request text.
type catalogContextRetriever struct {
	catalog CatalogRepository
	logger  zerolog.Logger
}

// NewCatalogContextRetriever creates a ContextRetriever backed by
// catalog introspection.
func NewCatalogContextRetriever(catalog CatalogRepository, logger zerolog.Logger) ContextRetriever {
	return &catalogContextRetriever{
		catalog: catalog,
		logger:  logger,
	}
}

// FetchContext returns schema and context text for the request. Errors
// degrade to empty strings; the caller proceeds schema-less.
func (r *catalogContextRetriever) FetchContext(ctx context.Context, naturalLanguageQuery string, nResults int) models.ContextBundle {
	tables, err := r.catalog.ListTables(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("Context retrieval failed, proceeding without schema")
		return models.ContextBundle{}
	}

	var schemaParts []string
	var contextLines []string
	queryWords := tokenize(naturalLanguageQuery)

	for i, ref := range tables {
		if i >= maxSchemaTables {
			break
		}
		columns, err := r.catalog.ListColumns(ctx, ref.Table, ref.Schema)
		if err != nil {
			r.logger.Warn().Err(err).Str("table", ref.Table).Msg("Skipping table in schema summary")
			continue
		}

		header := fmt.Sprintf("[%s]", ref.String())
		var colParts []string
		for j, col := range columns {
			if j >= maxSchemaColumns {
				break
			}
			part := fmt.Sprintf("%s %s", col.Name, col.Type)
			if !col.Nullable {
				part += " NOT NULL"
			}
			colParts = append(colParts, part)
		}
		block := header
		if len(colParts) > 0 {
			block += "\n  - " + strings.Join(colParts, "\n  - ")
		}
		schemaParts = append(schemaParts, block)

		if len(contextLines) < nResults && matchesRequest(ref, columns, queryWords) {
			contextLines = append(contextLines, fmt.Sprintf("%s - columns: %s", header, columnNames(columns)))
		}
	}

	return models.ContextBundle{
		ContextText: strings.Join(contextLines, "\n"),
		SchemaText:  strings.Join(schemaParts, "\n\n"),
	}
}

func tokenize(text string) map[string]bool {
	words := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,!?;:'\"")
		if len(w) > 2 {
			words[w] = true
			// naive singularization so "customers" matches table "customer"
			words[strings.TrimSuffix(w, "s")] = true
		}
	}
	return words
}

func matchesRequest(ref models.TableRef, columns []models.Column, queryWords map[string]bool) bool {
	name := strings.ToLower(ref.Table)
	if queryWords[name] || queryWords[strings.TrimSuffix(name, "s")] {
		return true
	}
	for _, col := range columns {
		if queryWords[strings.ToLower(col.Name)] {
			return true
		}
	}
	return false
}

func columnNames(columns []models.Column) string {
	names := make([]string, 0, len(columns))
	for _, col := range columns {
		names = append(names, col.Name)
	}
	return strings.Join(names, ", ")
}
