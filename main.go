package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ekaya-inc/ekaya-biotools/pkg/adapters/datasource"
	_ "github.com/ekaya-inc/ekaya-biotools/pkg/adapters/datasource/mssql"
	_ "github.com/ekaya-inc/ekaya-biotools/pkg/adapters/datasource/mysql"
	_ "github.com/ekaya-inc/ekaya-biotools/pkg/adapters/datasource/postgres"
	_ "github.com/ekaya-inc/ekaya-biotools/pkg/adapters/datasource/sqlite"
	"github.com/ekaya-inc/ekaya-biotools/pkg/audit"
	"github.com/ekaya-inc/ekaya-biotools/pkg/auth"
	"github.com/ekaya-inc/ekaya-biotools/pkg/catalog"
	"github.com/ekaya-inc/ekaya-biotools/pkg/config"
	"github.com/ekaya-inc/ekaya-biotools/pkg/database"
	"github.com/ekaya-inc/ekaya-biotools/pkg/handlers"
	"github.com/ekaya-inc/ekaya-biotools/pkg/logging"
	"github.com/ekaya-inc/ekaya-biotools/pkg/mcp"
	"github.com/ekaya-inc/ekaya-biotools/pkg/mcp/tools"
	"github.com/ekaya-inc/ekaya-biotools/pkg/middleware"
	"github.com/ekaya-inc/ekaya-biotools/pkg/repositories"
	"github.com/ekaya-inc/ekaya-biotools/pkg/services"
	"github.com/ekaya-inc/ekaya-biotools/pkg/tables"
)

// Version is set at build time via ldflags
var Version = "dev"

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Server exited with error", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("Configuration loaded",
		zap.String("version", cfg.Version),
		zap.String("env", cfg.Env),
		zap.String("data_root", cfg.Data.Root),
		zap.String("transport", cfg.MCP.Transport),
		zap.Bool("database", cfg.Database.Enabled),
		zap.Bool("auth_verification", cfg.Auth.EnableVerification),
		zap.String("query_driver", cfg.Query.Driver))

	registry := catalog.Load(catalog.Options{Root: cfg.Data.Root, ManifestPath: cfg.Data.ManifestPath}, logger)
	materializer := tables.NewMaterializer(cfg.Data.TmpDir, cfg.Materializer.CollisionCheck, logger)

	deps := &tools.Deps{
		Registry: registry,
		Datasets: services.NewDatasetService(registry, materializer, logger),
		Shell: services.NewShellService(services.ShellConfig{
			Enabled:         cfg.Tools.ExecuteBash.Enabled,
			AllowedCommands: cfg.Tools.ExecuteBash.AllowedCommands,
			DefaultTimeout:  time.Duration(cfg.Tools.ExecuteBash.DefaultTimeoutSeconds * float64(time.Second)),
			Workdir:         cfg.Data.Workdir,
		}, logger),
		BashPrompt:            readPrompt(cfg.Tools.ExecuteBash.PromptFile, logger),
		DefaultTimeoutSeconds: cfg.Tools.ExecuteBash.DefaultTimeoutSeconds,
		Version:               cfg.Version,
		Logger:                logger,
	}

	var (
		db            *database.DB
		recorder      mcp.ToolCallRecorder
		conversations handlers.ConversationStore
	)
	if cfg.Database.Enabled {
		var err error
		db, err = database.NewConnection(ctx, &database.Config{
			URL:            cfg.Database.ConnectionString(),
			MaxConnections: cfg.Database.MaxConnections,
			Logger:         logger,
		})
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer db.Close()

		if err := database.MigratePool(db.Pool, cfg.Database.MigrationsPath, logger); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		logger.Info("Database ready",
			zap.String("host", cfg.Database.Host),
			zap.String("database", cfg.Database.Database))

		recorder = repositories.NewToolCallRepository(db)
		conversations = repositories.NewConversationRepository(db)
	}

	toolAudit := mcp.NewAuditLogger(recorder, logger)
	defer toolAudit.Wait()

	mcpServer := mcp.NewServer(cfg.MCP.ServerName, cfg.Version, toolAudit.Hooks(), logger)
	tools.RegisterAll(mcpServer.MCP(), deps)

	validator, err := auth.NewJWKSClient(ctx, &auth.JWKSConfig{
		EnableVerification: cfg.Auth.EnableVerification,
		JWKSEndpoints:      cfg.Auth.JWKSEndpoints,
		Audience:           cfg.Auth.Audience,
	})
	if err != nil {
		return fmt.Errorf("create JWKS client: %w", err)
	}
	defer validator.Close()
	authMW := auth.NewMiddleware(validator, cfg.Auth.EnableVerification, logger)

	var executor datasource.QueryExecutor
	if cfg.Query.DSN != "" {
		executor, err = datasource.NewQueryExecutor(cfg.Query.Driver, cfg.Query.DSN)
		if err != nil {
			return fmt.Errorf("configure query datasource: %w", err)
		}
	} else {
		logger.Warn("QUERY_DSN is not set; the query endpoint will reject requests")
	}

	var pinger handlers.Pinger
	if db != nil {
		pinger = db
	}

	web := webHandlers{
		health:     handlers.NewHealthHandler(cfg, registry, pinger, logger),
		collection: handlers.NewCollectionHandler(conversations, logger),
		query:      handlers.NewQueryHandler(executor, cfg.Query, audit.NewSecurityAuditor(logger), logger),
	}
	if cfg.MCP.Transport == "http" {
		web.mcp = handlers.NewMCPHandler(mcpServer, logger, cfg.MCP)
	}
	mux := newMux(web, authMW.RequireAuth)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           middleware.RequestLogger(logger)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	if cfg.MCP.Transport == "stdio" {
		g.Go(func() error {
			// The process ends when the stdio client closes stdin.
			defer cancel()
			err := mcpServer.ServeStdio(gctx, os.Stdin, os.Stdout)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}
	g.Go(func() error {
		logger.Info("Starting ekaya-biotools",
			zap.String("addr", srv.Addr),
			zap.String("mcp_path", cfg.MCP.Path),
			zap.Int("tr_beds", registry.TRCount()),
			zap.Int("dataset_warnings", len(registry.Warnings())))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// webHandlers are the HTTP surfaces. mcp is nil when tools are served over
// stdio; the web routes are mounted in both transports.
type webHandlers struct {
	health     *handlers.HealthHandler
	mcp        *handlers.MCPHandler
	collection *handlers.CollectionHandler
	query      *handlers.QueryHandler
}

func newMux(h webHandlers, requireAuth func(http.Handler) http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	h.health.RegisterRoutes(mux)
	if h.mcp != nil {
		h.mcp.RegisterRoutes(mux, requireAuth)
	}
	h.collection.RegisterRoutes(mux, requireAuth)
	h.query.RegisterRoutes(mux, requireAuth)
	return mux
}

// readPrompt loads the execute_bash description preamble. A missing file
// leaves the tool with its built-in description.
func readPrompt(path string, logger *zap.Logger) string {
	if path == "" {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("Failed to read execute_bash prompt file", zap.String("path", path), zap.Error(err))
		return ""
	}
	return string(data)
}
