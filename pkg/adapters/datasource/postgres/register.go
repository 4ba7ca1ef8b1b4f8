// Package postgres registers the PostgreSQL query adapter.
package postgres

import (
	"fmt"

	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/ekaya-inc/ekaya-biotools/pkg/adapters/datasource"
)

func init() {
	datasource.Register(datasource.AdapterRegistration{
		Info: datasource.AdapterInfo{
			Type:        "postgres",
			DisplayName: "PostgreSQL",
		},
		Factory: NewQueryExecutor,
	})
}

// NewQueryExecutor validates a PostgreSQL URL or keyword/value DSN.
func NewQueryExecutor(dsn string) (datasource.QueryExecutor, error) {
	if _, err := pgx.ParseConfig(dsn); err != nil {
		return nil, fmt.Errorf("invalid postgres DSN: %w", err)
	}
	return datasource.NewSQLExecutor("pgx", dsn), nil
}
