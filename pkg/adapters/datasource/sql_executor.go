package datasource

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// SQLExecutor runs queries through a database/sql driver. Every call opens
// its own connection and closes it before returning, so no connection is
// held between requests.
type SQLExecutor struct {
	driverName string
	dsn        string
}

// NewSQLExecutor creates an executor for a registered database/sql driver.
func NewSQLExecutor(driverName, dsn string) *SQLExecutor {
	return &SQLExecutor{driverName: driverName, dsn: dsn}
}

var _ QueryExecutor = (*SQLExecutor)(nil)

func (e *SQLExecutor) Query(ctx context.Context, sqlQuery string) (*QueryResult, error) {
	db, err := sqlx.Open(e.driverName, e.dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s connection: %w", e.driverName, err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	rows, err := db.QueryxContext(ctx, sqlQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return ScanRows(rows)
}

// ScanRows reads all rows into column-keyed maps. Byte slices are returned
// as strings so text columns from drivers that report them as []byte
// encode as JSON strings.
func ScanRows(rows *sqlx.Rows) (*QueryResult, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	result := &QueryResult{Columns: columns, Rows: make([]map[string]any, 0)}
	for rows.Next() {
		row := make(map[string]any, len(columns))
		if err := rows.MapScan(row); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		for k, v := range row {
			if b, ok := v.([]byte); ok {
				row[k] = string(b)
			}
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	result.Count = len(result.Rows)
	return result, nil
}
