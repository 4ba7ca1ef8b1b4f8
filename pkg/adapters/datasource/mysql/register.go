// Package mysql registers the MySQL query adapter.
package mysql

import (
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/ekaya-inc/ekaya-biotools/pkg/adapters/datasource"
)

func init() {
	datasource.Register(datasource.AdapterRegistration{
		Info: datasource.AdapterInfo{
			Type:        "mysql",
			DisplayName: "MySQL",
		},
		Factory: NewQueryExecutor,
	})
}

// NewQueryExecutor validates a go-sql-driver DSN (user:pass@tcp(host:3306)/db)
// and returns an executor for it. Time columns are parsed into time.Time.
func NewQueryExecutor(dsn string) (datasource.QueryExecutor, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid mysql DSN: %w", err)
	}
	cfg.ParseTime = true
	return datasource.NewSQLExecutor("mysql", cfg.FormatDSN()), nil
}
