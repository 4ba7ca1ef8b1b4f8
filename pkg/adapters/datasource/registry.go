// Package datasource holds the drivers the ad-hoc query endpoint can use.
// Each driver package registers itself in init; main selects one by name.
package datasource

import (
	"fmt"
	"sort"
	"sync"
)

// AdapterInfo describes a registered adapter.
type AdapterInfo struct {
	Type        string `json:"type"`         // "mysql", "postgres", "mssql", "sqlite"
	DisplayName string `json:"display_name"` // "MySQL", "Microsoft SQL Server"
}

// AdapterRegistration contains info and the factory that builds an executor
// for a DSN. Factories validate the DSN but do not connect.
type AdapterRegistration struct {
	Info    AdapterInfo
	Factory func(dsn string) (QueryExecutor, error)
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]AdapterRegistration)
)

// Register is called by each adapter's init() function.
func Register(reg AdapterRegistration) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[reg.Info.Type] = reg
}

// RegisteredAdapters returns info for all registered adapters, sorted by type.
func RegisteredAdapters() []AdapterInfo {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]AdapterInfo, 0, len(registry))
	for _, reg := range registry {
		result = append(result, reg.Info)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Type < result[j].Type })
	return result
}

// IsRegistered checks if an adapter type is available.
func IsRegistered(dsType string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[dsType]
	return ok
}

// NewQueryExecutor builds an executor for the named adapter.
func NewQueryExecutor(dsType, dsn string) (QueryExecutor, error) {
	registryMu.RLock()
	reg, ok := registry[dsType]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unsupported datasource type: %s", dsType)
	}
	if dsn == "" {
		return nil, fmt.Errorf("%s: empty DSN", dsType)
	}
	return reg.Factory(dsn)
}
