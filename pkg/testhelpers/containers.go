// Package testhelpers provides shared containers for integration tests.
package testhelpers

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/database"
)

const (
	PostgresImage = "postgres:16-alpine"
	Neo4jImage    = "neo4j:5.26-community"
	RedisImage    = "redis/redis-stack-server:7.2.0-v18"

	neo4jTestPassword = "test_password"
)

// TestDB holds the shared PostgreSQL container with migrations applied.
type TestDB struct {
	Container testcontainers.Container
	DB        *database.DB
	ConnStr   string
}

// TestGraph holds the shared Neo4j container and a driver connected to it.
type TestGraph struct {
	Container testcontainers.Container
	Driver    neo4j.DriverWithContext
	URI       string
}

// TestRedis holds the shared Redis Stack container.
type TestRedis struct {
	Container testcontainers.Container
	Client    *redis.Client
	Addr      string
}

var (
	sharedDB     *TestDB
	sharedDBOnce sync.Once
	sharedDBErr  error

	sharedGraph     *TestGraph
	sharedGraphOnce sync.Once
	sharedGraphErr  error

	sharedRedis     *TestRedis
	sharedRedisOnce sync.Once
	sharedRedisErr  error
)

func skipShort(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}
}

// GetTestDB returns a shared PostgreSQL container for integration tests.
// The container is created once, migrated, and reused across the test run.
func GetTestDB(t *testing.T) *TestDB {
	t.Helper()
	skipShort(t)

	sharedDBOnce.Do(func() {
		sharedDB, sharedDBErr = setupTestDB()
	})
	if sharedDBErr != nil {
		t.Fatalf("Failed to setup test database: %v", sharedDBErr)
	}
	return sharedDB
}

func setupTestDB() (*TestDB, error) {
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        PostgresImage,
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_DB":       "cypher_eval_test",
				"POSTGRES_USER":     "ekaya",
				"POSTGRES_PASSWORD": "test_password",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	endpoint, err := hostPort(ctx, container, "5432")
	if err != nil {
		return nil, err
	}
	connStr := fmt.Sprintf("postgres://ekaya:test_password@%s/cypher_eval_test?sslmode=disable", endpoint)

	db, err := database.NewConnection(ctx, &database.Config{URL: connStr, MaxConnections: 5}, zap.NewNop())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to test database: %w", err)
	}
	if err := database.MigrateURL(connStr, zap.NewNop()); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &TestDB{Container: container, DB: db, ConnStr: connStr}, nil
}

// GetTestGraph returns a shared Neo4j container for integration tests.
func GetTestGraph(t *testing.T) *TestGraph {
	t.Helper()
	skipShort(t)

	sharedGraphOnce.Do(func() {
		sharedGraph, sharedGraphErr = setupTestGraph()
	})
	if sharedGraphErr != nil {
		t.Fatalf("Failed to setup test graph: %v", sharedGraphErr)
	}
	return sharedGraph
}

func setupTestGraph() (*TestGraph, error) {
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        Neo4jImage,
			ExposedPorts: []string{"7687/tcp"},
			Env: map[string]string{
				"NEO4J_AUTH": "neo4j/" + neo4jTestPassword,
			},
			WaitingFor: wait.ForLog("Started.").WithStartupTimeout(120 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start neo4j container: %w", err)
	}

	endpoint, err := hostPort(ctx, container, "7687")
	if err != nil {
		return nil, err
	}
	uri := "bolt://" + endpoint

	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth("neo4j", neo4jTestPassword, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	var verifyErr error
	for i := 0; i < 20; i++ {
		if verifyErr = driver.VerifyConnectivity(ctx); verifyErr == nil {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}
	if verifyErr != nil {
		return nil, fmt.Errorf("neo4j not reachable: %w", verifyErr)
	}

	return &TestGraph{Container: container, Driver: driver, URI: uri}, nil
}

// GetTestRedis returns a shared Redis Stack container (with the search module)
// and flushes its database so each caller starts empty.
func GetTestRedis(t *testing.T) *TestRedis {
	t.Helper()
	skipShort(t)

	sharedRedisOnce.Do(func() {
		sharedRedis, sharedRedisErr = setupTestRedis()
	})
	if sharedRedisErr != nil {
		t.Fatalf("Failed to setup test redis: %v", sharedRedisErr)
	}
	if err := sharedRedis.Client.FlushDB(context.Background()).Err(); err != nil {
		t.Fatalf("Failed to flush test redis: %v", err)
	}
	return sharedRedis
}

func setupTestRedis() (*TestRedis, error) {
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        RedisImage,
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start redis container: %w", err)
	}

	addr, err := hostPort(ctx, container, "6379")
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(&redis.Options{Addr: addr, Protocol: 2})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis not reachable: %w", err)
	}

	return &TestRedis{Container: container, Client: client, Addr: addr}, nil
}

func hostPort(ctx context.Context, container testcontainers.Container, port string) (string, error) {
	host, err := container.Host(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get container host: %w", err)
	}
	mapped, err := container.MappedPort(ctx, port)
	if err != nil {
		return "", fmt.Errorf("failed to get container port: %w", err)
	}
	return fmt.Sprintf("%s:%s", host, mapped.Port()), nil
}
