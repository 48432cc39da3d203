package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"socialgraph/backend/internal/metrics"
	apperrors "socialgraph/backend/pkg/errors"
)

// Statement is a single Cypher statement with its bound parameters
type Statement struct {
	Cypher string
	Params map[string]any
	Write  bool
}

// Record is one result row keyed by return alias. Values keep the driver's
// types: int64, float64, string, bool, []any, map[string]any, dbtype.Node,
// dbtype.Relationship or nil.
type Record map[string]any

// Executor runs one statement and returns every result row in order
type Executor interface {
	Execute(ctx context.Context, stmt Statement) ([]Record, error)
}

// Neo4jExecutor executes statements against Neo4j, one session per call
type Neo4jExecutor struct {
	driver   neo4j.DriverWithContext
	database string
}

// NewNeo4jExecutor wraps an existing driver. An empty database selects the
// server's default.
func NewNeo4jExecutor(driver neo4j.DriverWithContext, database string) *Neo4jExecutor {
	return &Neo4jExecutor{
		driver:   driver,
		database: database,
	}
}

// Connect creates a driver for uri and verifies it can reach the server
func Connect(ctx context.Context, uri, user, password string) (neo4j.DriverWithContext, error) {
	auth := neo4j.NoAuth()
	if user != "" {
		auth = neo4j.BasicAuth(user, password, "")
	}

	driver, err := neo4j.NewDriverWithContext(uri, auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create Neo4j driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("failed to verify Neo4j connectivity: %w", err)
	}

	return driver, nil
}

// Execute implements Executor
func (e *Neo4jExecutor) Execute(ctx context.Context, stmt Statement) ([]Record, error) {
	mode := neo4j.AccessModeRead
	if stmt.Write {
		mode = neo4j.AccessModeWrite
	}

	session := e.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   mode,
		DatabaseName: e.database,
	})
	defer session.Close(ctx)

	result, err := session.Run(ctx, stmt.Cypher, stmt.Params)
	if err != nil {
		return nil, apperrors.NewGraphQueryFailed(stmt.Cypher, err)
	}

	records, err := result.Collect(ctx)
	if err != nil {
		return nil, apperrors.NewGraphQueryFailed(stmt.Cypher, err)
	}

	rows := make([]Record, 0, len(records))
	for _, record := range records {
		rows = append(rows, toRecord(record))
	}
	return rows, nil
}

// Ping checks that the server is reachable
func (e *Neo4jExecutor) Ping(ctx context.Context) error {
	return e.driver.VerifyConnectivity(ctx)
}

// Close closes the underlying driver
func (e *Neo4jExecutor) Close(ctx context.Context) error {
	return e.driver.Close(ctx)
}

func toRecord(record *neo4j.Record) Record {
	row := make(Record, len(record.Keys))
	for i, key := range record.Keys {
		row[key] = record.Values[i]
	}
	return row
}

// instrumentedExecutor records statement counts and latency
type instrumentedExecutor struct {
	next    Executor
	metrics *metrics.Collector
}

// Instrument decorates next with Prometheus query metrics. A nil collector
// returns next unchanged.
func Instrument(next Executor, c *metrics.Collector) Executor {
	if c == nil {
		return next
	}
	return &instrumentedExecutor{next: next, metrics: c}
}

func (e *instrumentedExecutor) Execute(ctx context.Context, stmt Statement) ([]Record, error) {
	mode := "read"
	if stmt.Write {
		mode = "write"
	}

	start := time.Now()
	rows, err := e.next.Execute(ctx, stmt)
	e.metrics.ObserveQuery(mode, err, time.Since(start))
	return rows, err
}
