package datasource

import "context"

// QueryExecutor runs read-only queries against a configured datasource.
type QueryExecutor interface {
	// Query opens a connection, runs sqlQuery, reads every row and closes
	// the connection before returning.
	Query(ctx context.Context, sqlQuery string) (*QueryResult, error)
}

// QueryResult holds the rows of one query. Columns follow the driver's
// result column order even when no rows are returned.
type QueryResult struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"data"`
	Count   int              `json:"count"`
}
