// Command seed creates the id constraints and bulk-loads a YAML or JSON
// dataset of users, groups, follows and subscriptions.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v3"
	"socialgraph/backend/internal/graph"
	"socialgraph/backend/internal/importer"
	"socialgraph/backend/pkg/config"
	"socialgraph/backend/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	if err := seedCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func seedCommand() *cli.Command {
	return &cli.Command{
		Name:      "seed",
		Usage:     "Create constraints and import a dataset into Neo4j",
		ArgsUsage: "[dataset.yaml]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "file",
				Aliases: []string{"f"},
				Usage:   "dataset to import; only the schema is created when empty",
				Sources: cli.EnvVars("SEED_FILE"),
			},
			&cli.IntFlag{
				Name:    "concurrency",
				Aliases: []string{"c"},
				Value:   importer.DefaultConcurrency,
				Usage:   "maximum concurrent writes",
				Sources: cli.EnvVars("SEED_CONCURRENCY"),
			},
			&cli.BoolFlag{
				Name:  "skip-schema",
				Usage: "do not create the id constraints",
			},
			&cli.StringFlag{
				Name:    "neo4j-uri",
				Usage:   "bolt or neo4j URI",
				Sources: cli.EnvVars("NEO4J_URI"),
			},
			&cli.StringFlag{
				Name:    "neo4j-user",
				Usage:   "database user",
				Sources: cli.EnvVars("NEO4J_USER"),
			},
			&cli.StringFlag{
				Name:    "neo4j-password",
				Usage:   "database password",
				Sources: cli.EnvVars("NEO4J_PASSWORD"),
			},
		},
		Action: runSeed,
	}
}

// datasetPath prefers --file and falls back to the first argument
func datasetPath(cmd *cli.Command) string {
	if path := cmd.String("file"); path != "" {
		return path
	}
	return cmd.Args().First()
}

func runSeed(ctx context.Context, cmd *cli.Command) error {
	cfg := config.FromEnv()
	if cmd.IsSet("neo4j-uri") {
		cfg.Neo4jURI = cmd.String("neo4j-uri")
	}
	if cmd.IsSet("neo4j-user") {
		cfg.Neo4jUser = cmd.String("neo4j-user")
	}
	if cmd.IsSet("neo4j-password") {
		cfg.Neo4jPassword = cmd.String("neo4j-password")
	}

	// Initialize logger
	if err := logger.Init(cfg.Env); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting database seeding...")

	// Parse before connecting so a bad file fails fast
	var ds *importer.Dataset
	path := datasetPath(cmd)
	if path != "" {
		var err error
		ds, err = importer.LoadFile(path)
		if err != nil {
			return fmt.Errorf("failed to load dataset %s: %w", path, err)
		}
	}

	driver, err := graph.Connect(ctx, cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword)
	if err != nil {
		log.Error("Failed to connect to Neo4j", zap.String("uri", cfg.Neo4jURI), zap.Error(err))
		return err
	}
	defer driver.Close(context.Background())

	exec := graph.NewNeo4jExecutor(driver, cfg.Neo4jDatabase)

	if !cmd.Bool("skip-schema") {
		log.Info("Creating constraints...")
		if err := graph.EnsureSchema(ctx, exec, log); err != nil {
			return fmt.Errorf("failed to create constraints: %w", err)
		}
	}

	if ds == nil {
		log.Info("No dataset given, schema only")
		return nil
	}

	start := time.Now()
	repo := graph.NewRepository(exec, log)
	stats, err := importer.New(repo, int(cmd.Int("concurrency")), log).Import(ctx, ds)
	if err != nil {
		log.Error("Import failed", zap.String("file", path), zap.Error(err))
		return err
	}

	log.Info("Database seeding completed",
		zap.String("file", path),
		zap.Int64("users", stats.Users),
		zap.Int64("groups", stats.Groups),
		zap.Int64("follows", stats.Follows),
		zap.Int64("subscriptions", stats.Subscriptions),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}
