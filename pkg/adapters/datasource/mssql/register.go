// Package mssql registers the Microsoft SQL Server query adapter.
package mssql

import (
	"strings"

	_ "github.com/microsoft/go-mssqldb"         // SQL Server driver
	_ "github.com/microsoft/go-mssqldb/azuread" // Azure AD support

	"github.com/ekaya-inc/ekaya-biotools/pkg/adapters/datasource"
)

func init() {
	datasource.Register(datasource.AdapterRegistration{
		Info: datasource.AdapterInfo{
			Type:        "mssql",
			DisplayName: "Microsoft SQL Server",
		},
		Factory: NewQueryExecutor,
	})
}

// NewQueryExecutor accepts a sqlserver:// URL. A DSN carrying a fedauth
// parameter is routed to the Azure AD driver.
func NewQueryExecutor(dsn string) (datasource.QueryExecutor, error) {
	return datasource.NewSQLExecutor(driverFor(dsn), dsn), nil
}

func driverFor(dsn string) string {
	if strings.Contains(strings.ToLower(dsn), "fedauth=") {
		return "azuresql"
	}
	return "sqlserver"
}
