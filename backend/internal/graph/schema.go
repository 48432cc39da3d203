package graph

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

var schemaStatements = []string{
	"CREATE CONSTRAINT user_id_unique IF NOT EXISTS FOR (u:User) REQUIRE u.id IS UNIQUE",
	"CREATE CONSTRAINT group_id_unique IF NOT EXISTS FOR (g:Group) REQUIRE g.id IS UNIQUE",
}

// EnsureSchema creates the id uniqueness constraints. Every statement is
// attempted; failures are logged and returned joined.
func EnsureSchema(ctx context.Context, exec Executor, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	var errs []error
	for _, stmt := range schemaStatements {
		if _, err := exec.Execute(ctx, Statement{Cypher: stmt, Write: true}); err != nil {
			logger.Warn("Failed to apply schema statement", zap.String("statement", stmt), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		logger.Debug("Schema statement applied", zap.String("statement", stmt))
	}
	return errors.Join(errs...)
}
