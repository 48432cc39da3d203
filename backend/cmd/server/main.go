package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
	"socialgraph/backend/internal/api"
	"socialgraph/backend/internal/graph"
	"socialgraph/backend/internal/metrics"
	"socialgraph/backend/pkg/config"
	"socialgraph/backend/pkg/logger"
	"go.uber.org/zap"
)

var version = "dev"

func main() {
	if err := serverCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func serverCommand() *cli.Command {
	return &cli.Command{
		Name:    "socialgraph",
		Version: version,
		Usage:   "HTTP API over the users and groups graph",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Usage: "listen host (HOST)"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "listen port (PORT)"},
			&cli.StringFlag{Name: "env", Usage: "development or production (ENV)"},
			&cli.StringFlag{Name: "neo4j-uri", Usage: "bolt or neo4j URI (NEO4J_URI)"},
			&cli.StringFlag{Name: "neo4j-user", Usage: "database user (NEO4J_USER)"},
			&cli.StringFlag{Name: "neo4j-password", Usage: "database password (NEO4J_PASSWORD)"},
			&cli.StringFlag{Name: "neo4j-database", Usage: "database name, empty for the default (NEO4J_DATABASE)"},
			&cli.StringFlag{Name: "auth-token", Usage: "bearer token for POST and DELETE routes (AUTH_TOKEN)"},
			&cli.BoolFlag{Name: "auth", Usage: "require the bearer token on mutating routes (AUTH_ENABLED)"},
			&cli.BoolFlag{Name: "metrics", Usage: "serve /metrics (METRICS_ENABLED)"},
			&cli.BoolFlag{Name: "ensure-schema", Usage: "create id constraints before serving (ENSURE_SCHEMA)"},
		},
		Action: runServer,
	}
}

// loadConfig layers explicitly set flags over the environment
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg := config.FromEnv()

	if cmd.IsSet("host") {
		cfg.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		cfg.Port = int(cmd.Int("port"))
	}
	if cmd.IsSet("env") {
		cfg.Env = cmd.String("env")
	}
	if cmd.IsSet("neo4j-uri") {
		cfg.Neo4jURI = cmd.String("neo4j-uri")
	}
	if cmd.IsSet("neo4j-user") {
		cfg.Neo4jUser = cmd.String("neo4j-user")
	}
	if cmd.IsSet("neo4j-password") {
		cfg.Neo4jPassword = cmd.String("neo4j-password")
	}
	if cmd.IsSet("neo4j-database") {
		cfg.Neo4jDatabase = cmd.String("neo4j-database")
	}
	if cmd.IsSet("auth-token") {
		cfg.AuthToken = cmd.String("auth-token")
	}
	if cmd.IsSet("auth") {
		cfg.AuthEnabled = cmd.Bool("auth")
	}
	if cmd.IsSet("metrics") {
		cfg.MetricsEnabled = cmd.Bool("metrics")
	}
	if cmd.IsSet("ensure-schema") {
		cfg.EnsureSchema = cmd.Bool("ensure-schema")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func runServer(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// Initialize logger
	if err := logger.Init(cfg.Env); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting HTTP API server...", zap.String("version", version))

	// Initialize Neo4j driver
	driver, err := graph.Connect(ctx, cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword)
	if err != nil {
		log.Error("Failed to connect to Neo4j", zap.String("uri", cfg.Neo4jURI), zap.Error(err))
		return err
	}
	defer driver.Close(context.Background())

	var collector *metrics.Collector
	if cfg.MetricsEnabled {
		collector = metrics.NewCollector("socialgraph")
	}

	neo := graph.NewNeo4jExecutor(driver, cfg.Neo4jDatabase)
	exec := graph.Instrument(neo, collector)

	if cfg.EnsureSchema {
		if err := graph.EnsureSchema(ctx, exec, log); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}

	repo := graph.NewRepository(exec, log, graph.WithMetrics(collector))

	opts := []api.ServerOption{api.WithPinger(neo)}
	if collector != nil {
		opts = append(opts, api.WithMetrics(collector))
	}
	server, err := api.NewServer(cfg, repo, log, opts...)
	if err != nil {
		return fmt.Errorf("failed to build server: %w", err)
	}

	// Start server
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
		close(serveErr)
	}()

	log.Info("Server started",
		zap.String("addr", cfg.Addr()),
		zap.Bool("auth_enabled", cfg.AuthEnabled),
		zap.Bool("metrics_enabled", cfg.MetricsEnabled),
	)

	// Wait for interrupt signal or a listener failure
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err, ok := <-serveErr:
		if ok {
			log.Error("Failed to start server", zap.Error(err))
			return err
		}
	}

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
	return nil
}
