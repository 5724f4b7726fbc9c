// Package models provides data structures used throughout the SQL assistant.
package models

// TableRef identifies a table within a schema.
type TableRef struct {
	Schema string `json:"schema"`
	Table  string `json:"table"`
}

// String returns the qualified table name.
func (t TableRef) String() string {
	if t.Schema == "" {
		return t.Table
	}
	return t.Schema + "." + t.Table
}

// Column describes one column of a cataloged table.
type Column struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
}

// CatalogEntry is the live ground truth for one table, sourced from the
// database catalog at validation time and never cached across calls.
type CatalogEntry struct {
	Schema  string   `json:"schema"`
	Table   string   `json:"table"`
	Columns []Column `json:"columns"`
}

// ContextBundle is what context retrieval hands the generator: descriptive
// snippets plus a compact schema summary. Either may be empty when retrieval
// degrades.
type ContextBundle struct {
	ContextText string `json:"context_text"`
	SchemaText  string `json:"schema_text"`
}
