// Package sqlite registers the SQLite query adapter, backed by the pure-Go
// modernc.org/sqlite driver. The DSN is a file path or a file: URI.
package sqlite

import (
	_ "modernc.org/sqlite"

	"github.com/ekaya-inc/ekaya-biotools/pkg/adapters/datasource"
)

func init() {
	datasource.Register(datasource.AdapterRegistration{
		Info: datasource.AdapterInfo{
			Type:        "sqlite",
			DisplayName: "SQLite",
		},
		Factory: func(dsn string) (datasource.QueryExecutor, error) {
			return datasource.NewSQLExecutor("sqlite", dsn), nil
		},
	})
}
