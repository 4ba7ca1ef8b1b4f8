package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	_ "github.com/ekaya-inc/ekaya-biotools/pkg/adapters/datasource/mssql"
	_ "github.com/ekaya-inc/ekaya-biotools/pkg/adapters/datasource/mysql"
	_ "github.com/ekaya-inc/ekaya-biotools/pkg/adapters/datasource/postgres"
	_ "github.com/ekaya-inc/ekaya-biotools/pkg/adapters/datasource/sqlite"
)

// chdirTemp switches into a fresh directory so Load() sees only the files the test writes.
func chdirTemp(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	originalDir, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("failed to change directory: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Chdir(originalDir)
	})
	t.Setenv("CONFIG_PATH", "")
	return tmpDir
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	tmpDir := chdirTemp(t)

	yamlContent := `
port: "3001"
env: "test"
data:
  root: "/srv/biodata"
  tmp_dir: "/srv/scratch"
database:
  host: "db.example.com"
  port: 5432
  user: "testuser"
  database: "testdb"
query:
  driver: "postgres"
tools:
  execute_bash:
    allowed_commands: ["bedtools", "awk"]
`
	if err := os.WriteFile(filepath.Join(tmpDir, "config.yaml"), []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	t.Setenv("PORT", "4001")
	t.Setenv("BIOTOOLS_TMP_DIR", "/var/tmp/bio")
	t.Setenv("PGPASSWORD", "s3cret")

	cfg, err := Load("test-version")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Port != "4001" {
		t.Errorf("expected Port=4001 (from env), got %s", cfg.Port)
	}
	if cfg.Data.TmpDir != "/var/tmp/bio" {
		t.Errorf("expected TmpDir from env, got %s", cfg.Data.TmpDir)
	}
	if cfg.Data.Root != "/srv/biodata" {
		t.Errorf("expected Root from yaml, got %s", cfg.Data.Root)
	}
	if cfg.Database.Host != "db.example.com" {
		t.Errorf("expected Database.Host=db.example.com (from yaml), got %s", cfg.Database.Host)
	}
	if cfg.Database.Password != "s3cret" {
		t.Errorf("expected password from env, got %q", cfg.Database.Password)
	}
	if cfg.Query.Driver != "postgres" {
		t.Errorf("expected Query.Driver=postgres, got %s", cfg.Query.Driver)
	}
	if got := cfg.Tools.ExecuteBash.AllowedCommands; len(got) != 2 || got[0] != "bedtools" {
		t.Errorf("unexpected allowed commands: %v", got)
	}
	if cfg.Version != "test-version" {
		t.Errorf("expected Version=test-version, got %s", cfg.Version)
	}
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load("dev")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Port != "3001" {
		t.Errorf("expected default port 3001, got %s", cfg.Port)
	}
	if cfg.MCP.Path != "/biotools" {
		t.Errorf("expected default MCP path /biotools, got %s", cfg.MCP.Path)
	}
	if cfg.Data.Root != "/data" || cfg.Data.TmpDir != "/tmp" {
		t.Errorf("unexpected data defaults: %+v", cfg.Data)
	}
	if !cfg.Tools.ExecuteBash.Enabled {
		t.Error("execute_bash should be enabled by default")
	}
	if cfg.Tools.ExecuteBash.DefaultTimeoutSeconds != 6000 {
		t.Errorf("expected default timeout 6000, got %v", cfg.Tools.ExecuteBash.DefaultTimeoutSeconds)
	}
	if cfg.Materializer.CollisionCheck {
		t.Error("collision check should be off by default")
	}
	if !cfg.Database.Enabled {
		t.Error("database should be enabled by default")
	}
	if cfg.Query.Timeout != 30*time.Second {
		t.Errorf("expected default query timeout 30s, got %v", cfg.Query.Timeout)
	}
	if cfg.Addr() != "0.0.0.0:3001" {
		t.Errorf("unexpected addr %s", cfg.Addr())
	}
}

func TestLoad_DotEnv(t *testing.T) {
	tmpDir := chdirTemp(t)
	if err := os.WriteFile(filepath.Join(tmpDir, ".env"), []byte("MCP_TRANSPORT=stdio\n"), 0644); err != nil {
		t.Fatalf("failed to write .env: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("MCP_TRANSPORT") })

	cfg, err := Load("dev")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.MCP.Transport != "stdio" {
		t.Errorf("expected transport from .env, got %s", cfg.MCP.Transport)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "unknown transport", env: map[string]string{"MCP_TRANSPORT": "grpc"}},
		{name: "unknown query driver", env: map[string]string{"QUERY_DRIVER": "oracle"}},
		{name: "relative mcp path", env: map[string]string{"MCP_PATH": "biotools"}},
		{name: "negative query timeout", env: map[string]string{"QUERY_TIMEOUT": "-1s"}},
		{name: "auth without jwks", env: map[string]string{"AUTH_ENABLE_VERIFICATION": "true"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chdirTemp(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load("dev"); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoad_QueryDriverFromAdapterRegistry(t *testing.T) {
	for _, driver := range []string{"mssql", "mysql", "postgres", "sqlite"} {
		t.Run(driver, func(t *testing.T) {
			chdirTemp(t)
			t.Setenv("QUERY_DRIVER", driver)
			cfg, err := Load("dev")
			if err != nil {
				t.Fatalf("Load() failed: %v", err)
			}
			if cfg.Query.Driver != driver {
				t.Errorf("expected driver %s, got %s", driver, cfg.Query.Driver)
			}
		})
	}

	chdirTemp(t)
	t.Setenv("QUERY_DRIVER", "oracle")
	_, err := Load("dev")
	if err == nil {
		t.Fatal("expected validation error for unregistered driver")
	}
	if !strings.Contains(err.Error(), "mssql, mysql, postgres, sqlite") {
		t.Errorf("expected registered drivers in error, got %v", err)
	}
}

func TestParseJWKSEndpoints(t *testing.T) {
	got := parseJWKSEndpoints("https://a.example=https://a.example/jwks.json, https://b.example=https://b.example/keys")
	if len(got) != 2 {
		t.Fatalf("expected 2 endpoints, got %d", len(got))
	}
	if got["https://b.example"] != "https://b.example/keys" {
		t.Errorf("unexpected endpoint: %v", got)
	}
	if len(parseJWKSEndpoints("")) != 0 {
		t.Error("expected empty map for empty input")
	}
}

func TestDatabaseConfig_ConnectionString(t *testing.T) {
	cfg := DatabaseConfig{Host: "db", Port: 5432, User: "bio", Password: "p@ss", Database: "biotools", SSLMode: "disable"}
	want := "postgres://bio:p%40ss@db:5432/biotools?sslmode=disable"
	if got := cfg.ConnectionString(); got != want {
		t.Errorf("ConnectionString() = %q, want %q", got, want)
	}
}
