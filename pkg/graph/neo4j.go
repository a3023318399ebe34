// Package graph executes Cypher against Neo4j and administers the logistics graph.
package graph

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/config"
	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/logging"
	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/retry"
)

// QueryService executes a query string against the graph store.
// Failures are returned as *apperrors.QueryExecutionError.
type QueryService interface {
	Execute(ctx context.Context, query string) ([]map[string]any, error)
}

// SchemaProvider returns the graph schema used to ground few-shot prompts.
type SchemaProvider interface {
	GetSchema(ctx context.Context) (*Schema, error)
}

// NewDriver connects to Neo4j and verifies connectivity. The connection pool is
// sized from cfg.MaxConnections so every evaluation worker can hold a session.
// The caller owns the returned driver and must close it.
func NewDriver(ctx context.Context, cfg config.Neo4jConfig, logger *zap.Logger) (neo4j.DriverWithContext, error) {
	uri := config.ResolveURIForDocker(cfg.URI)

	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(cfg.User, cfg.Password, ""), func(c *neo4j.Config) {
		if cfg.MaxConnections > 0 {
			c.MaxConnectionPoolSize = cfg.MaxConnections
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	retryCfg := retry.Transient()
	retryCfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		logger.Warn("Neo4j not reachable yet, retrying",
			zap.String("uri", logging.SanitizeURI(uri)),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err))
	}
	if err := retry.Run(ctx, retryCfg, driver.VerifyConnectivity); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("failed to connect to neo4j at %s: %w", logging.SanitizeURI(uri), err)
	}

	logger.Info("Connected to Neo4j",
		zap.String("uri", logging.SanitizeURI(uri)),
		zap.Int("max_connections", cfg.MaxConnections))
	return driver, nil
}

// Neo4jService runs generated queries in read-only transactions and
// administrative statements in write transactions.
type Neo4jService struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *zap.Logger
}

// NewNeo4jService wraps an existing driver. The service does not close it.
func NewNeo4jService(driver neo4j.DriverWithContext, database string, logger *zap.Logger) *Neo4jService {
	return &Neo4jService{
		driver:   driver,
		database: database,
		logger:   logger.Named("graph"),
	}
}

// Execute runs query in a read transaction and returns the records with
// graph values converted to plain Go values.
func (s *Neo4jService) Execute(ctx context.Context, query string) ([]map[string]any, error) {
	start := time.Now()

	records, err := s.read(ctx, query, nil)
	if err != nil {
		timedOut := errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded)
		s.logger.Debug("Query failed",
			zap.String("query", logging.SanitizeQuery(query)),
			zap.Bool("timeout", timedOut),
			zap.Error(err))
		return nil, &apperrors.QueryExecutionError{Query: query, Cause: err, Timeout: timedOut}
	}

	s.logger.Debug("Query executed",
		zap.String("query", logging.SanitizeQuery(query)),
		zap.Int("rows", len(records)),
		zap.Duration("elapsed", time.Since(start)))
	return records, nil
}

func (s *Neo4jService) read(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: s.database,
	})
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		records, err := result.Collect(ctx)
		if err != nil {
			return nil, err
		}
		return recordsToMaps(records), nil
	})
	if err != nil {
		return nil, err
	}
	return out.([]map[string]any), nil
}

func (s *Neo4jService) write(ctx context.Context, work func(tx neo4j.ManagedTransaction) error) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: s.database,
	})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return nil, work(tx)
	})
	return err
}

func recordsToMaps(records []*neo4j.Record) []map[string]any {
	rows := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		row := make(map[string]any, len(rec.Keys))
		for i, key := range rec.Keys {
			row[key] = NormalizeValue(rec.Values[i])
		}
		rows = append(rows, row)
	}
	return rows
}

var (
	_ QueryService   = (*Neo4jService)(nil)
	_ SchemaProvider = (*Neo4jService)(nil)
)

// Ping verifies the driver can reach the server.
func (s *Neo4jService) Ping(ctx context.Context) error {
	return s.driver.VerifyConnectivity(ctx)
}
