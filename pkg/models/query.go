package models

import "time"

// QueryResult holds the outcome of executing a SQL statement.
// Row-returning statements populate Rows; DML statements populate
// RowsAffected.
type QueryResult struct {
	Rows          []Row
	RowCount      int
	RowsAffected  int64
	ExecutionTime time.Duration
}
