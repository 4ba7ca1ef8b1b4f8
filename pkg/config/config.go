package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"github.com/ekaya-inc/ekaya-biotools/pkg/adapters/datasource"
)

// Config holds all configuration for ekaya-biotools.
// Configuration can come from a YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, DSNs) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"0.0.0.0"`
	Port     string `yaml:"port" env:"PORT" env-default:"3001"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	Data         DataConfig         `yaml:"data"`
	Materializer MaterializerConfig `yaml:"materializer"`
	MCP          MCPConfig          `yaml:"mcp"`
	Tools        ToolsConfig        `yaml:"tools"`
	Database     DatabaseConfig     `yaml:"database"`
	Query        QueryConfig        `yaml:"query"`
	Auth         AuthConfig         `yaml:"auth"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// DataConfig locates the read-only reference dataset tree and the scratch
// directory where materialized results are written.
type DataConfig struct {
	Root    string `yaml:"root" env:"BIOTOOLS_DATA_ROOT" env-default:"/data"`
	TmpDir  string `yaml:"tmp_dir" env:"BIOTOOLS_TMP_DIR" env-default:"/tmp"`
	Workdir string `yaml:"workdir" env:"BIOTOOLS_WORKDIR" env-default:"/app"`
	// ManifestPath optionally points at a YAML catalogue that overrides the
	// built-in annotation and expression tables.
	ManifestPath string `yaml:"manifest_path" env:"BIOTOOLS_MANIFEST" env-default:""`
}

// MaterializerConfig controls how result files are written.
type MaterializerConfig struct {
	// CollisionCheck rejects a write when a file with the same digest name
	// already exists with different content.
	CollisionCheck bool `yaml:"collision_check" env:"BIOTOOLS_COLLISION_CHECK" env-default:"false"`
}

// MCPConfig holds settings for the tool-calling endpoint.
type MCPConfig struct {
	ServerName string `yaml:"server_name" env:"MCP_SERVER_NAME" env-default:"biotools"`
	Path       string `yaml:"path" env:"MCP_PATH" env-default:"/biotools"`
	// Transport is "http" (streamable HTTP on Path) or "stdio".
	Transport string `yaml:"transport" env:"MCP_TRANSPORT" env-default:"http"`
	// LogRequests enables JSON-RPC request/response logging at DEBUG level.
	LogRequests bool `yaml:"log_requests" env:"MCP_LOG_REQUESTS" env-default:"true"`
}

// ToolsConfig holds per-tool settings.
type ToolsConfig struct {
	ExecuteBash ExecuteBashConfig `yaml:"execute_bash"`
}

// ExecuteBashConfig scopes the host command execution tool.
// An empty AllowedCommands list leaves execution unrestricted.
type ExecuteBashConfig struct {
	Enabled               bool     `yaml:"enabled" env:"BASH_ENABLED" env-default:"true"`
	AllowedCommands       []string `yaml:"allowed_commands" env:"BASH_ALLOWED_COMMANDS" env-separator:","`
	DefaultTimeoutSeconds float64  `yaml:"default_timeout_seconds" env:"BASH_DEFAULT_TIMEOUT" env-default:"6000"`
	PromptFile            string   `yaml:"prompt_file" env:"BASH_PROMPT_FILE" env-default:"cli_prompt.md"`
}

// DatabaseConfig holds PostgreSQL configuration for the conversation store.
type DatabaseConfig struct {
	// Enabled turns off the collection store and tool-call audit persistence when false.
	Enabled        bool   `yaml:"enabled" env:"DATABASE_ENABLED" env-default:"true"`
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"biotools"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"biotools"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"10"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MigrationsPath string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"migrations"`
}

// QueryConfig configures the read-only ad-hoc query endpoint.
type QueryConfig struct {
	// Driver selects the datasource adapter: mysql, postgres, mssql or sqlite.
	Driver string `yaml:"driver" env:"QUERY_DRIVER" env-default:"mysql"`
	DSN    string `yaml:"-" env:"QUERY_DSN"` // Secret - not in YAML
	// RejectMultipleStatements adds a multi-statement check on top of the SELECT prefix check.
	RejectMultipleStatements bool `yaml:"reject_multiple_statements" env:"QUERY_REJECT_MULTIPLE_STATEMENTS" env-default:"false"`
	// Timeout bounds one query including connection setup. Zero means no limit.
	Timeout time.Duration `yaml:"timeout" env:"QUERY_TIMEOUT" env-default:"30s"`
}

// AuthConfig holds authentication-related configuration.
type AuthConfig struct {
	// EnableVerification requires a valid bearer JWT on every route except health checks.
	EnableVerification bool `yaml:"enable_verification" env:"AUTH_ENABLE_VERIFICATION" env-default:"false"`

	// JWKSEndpointsStr is a comma-separated list of issuer=jwks_url pairs.
	JWKSEndpointsStr string `yaml:"jwks_endpoints" env:"JWKS_ENDPOINTS" env-default:""`

	// JWKSEndpoints is the parsed map from JWKSEndpointsStr (not from config file).
	JWKSEndpoints map[string]string `yaml:"-"`

	// Audience, when set, must appear in the token's aud claim.
	Audience string `yaml:"audience" env:"AUTH_AUDIENCE" env-default:""`
}

// LoggingConfig controls the zap logger.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// Load reads configuration from config.yaml (or CONFIG_PATH) with environment
// variable overrides. A .env file in the working directory is loaded first when present.
// A missing config file is not an error: defaults and environment variables apply.
func Load(version string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	cfg := &Config{
		Version: version,
	}

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	cfg.Auth.JWKSEndpoints = parseJWKSEndpoints(cfg.Auth.JWKSEndpointsStr)
	cfg.Database.Host = ResolveHostForDocker(cfg.Database.Host)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Port == "" {
		return fmt.Errorf("port must not be empty")
	}
	switch c.MCP.Transport {
	case "http", "stdio":
	default:
		return fmt.Errorf("mcp.transport must be http or stdio, got %q", c.MCP.Transport)
	}
	if !strings.HasPrefix(c.MCP.Path, "/") {
		return fmt.Errorf("mcp.path must start with '/', got %q", c.MCP.Path)
	}
	if !datasource.IsRegistered(c.Query.Driver) {
		return fmt.Errorf("query.driver must be one of %s, got %q", strings.Join(registeredDrivers(), ", "), c.Query.Driver)
	}
	if c.Tools.ExecuteBash.DefaultTimeoutSeconds < 0 {
		return fmt.Errorf("tools.execute_bash.default_timeout_seconds must not be negative")
	}
	if c.Query.Timeout < 0 {
		return fmt.Errorf("query.timeout must not be negative")
	}
	if c.Auth.EnableVerification && len(c.Auth.JWKSEndpoints) == 0 {
		return fmt.Errorf("auth.jwks_endpoints is required when verification is enabled")
	}
	return nil
}

// registeredDrivers lists the adapters linked into the binary.
func registeredDrivers() []string {
	adapters := datasource.RegisteredAdapters()
	names := make([]string, len(adapters))
	for i, a := range adapters {
		names[i] = a.Type
	}
	return names
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return c.BindAddr + ":" + c.Port
}

// parseJWKSEndpoints parses the JWKS endpoints string into a map.
// Format: "issuer1=url1,issuer2=url2"
func parseJWKSEndpoints(value string) map[string]string {
	endpoints := make(map[string]string)
	if value == "" {
		return endpoints
	}

	for _, pair := range strings.Split(value, ",") {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) == 2 {
			endpoints[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		}
	}
	return endpoints
}

// ConnectionString returns a PostgreSQL connection URL.
func (c *DatabaseConfig) ConnectionString() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     c.Database,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}
