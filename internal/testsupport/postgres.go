// Package testsupport provides helper functions for spinning up ephemeral
// Docker containers (PostgreSQL, Redis) for integration testing.
package testsupport

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/mveiga/cohort/internal/config"
	"github.com/mveiga/cohort/internal/database"
)

// PostgresContainer is an ephemeral postgres with the schema applied and a
// ready pgx pool.
type PostgresContainer struct {
	Container        testcontainers.Container
	DB               *pgxpool.Pool
	ConnectionString string
}

// Terminate closes the pool and removes the container.
func (c *PostgresContainer) Terminate(ctx context.Context) error {
	c.DB.Close()
	return c.Container.Terminate(ctx)
}

// StartPostgresContainer runs postgres:15-alpine with every .sql file from
// migrationsDir applied as an init script, in filename order, so the test
// schema tracks migrations/ without a copy in test code. The pool goes
// through database.NewPostgresPool, the same path production takes.
func StartPostgresContainer(ctx context.Context, migrationsDir string) (*PostgresContainer, error) {
	// Glob returns matches already sorted, which is the migration order.
	migrations, err := filepath.Glob(filepath.Join(migrationsDir, "*.sql"))
	if err != nil {
		return nil, fmt.Errorf("scanning %s for migrations: %w", migrationsDir, err)
	}
	if len(migrations) == 0 {
		return nil, fmt.Errorf("no .sql files under %s", migrationsDir)
	}

	container, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("cohort_test"),
		postgres.WithUsername("cohort"),
		postgres.WithPassword("cohort"),
		postgres.WithInitScripts(migrations...),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(10*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("starting postgres container: %w", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, fmt.Errorf("reading container connection string: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, &config.DatabaseConfig{
		URL:             connStr,
		MaxConns:        4,
		MinConns:        1,
		MaxConnLifetime: 30 * time.Minute,
		MaxConnIdleTime: 5 * time.Minute,
		ConnectTimeout:  5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to test postgres: %w", err)
	}

	return &PostgresContainer{
		Container:        container,
		DB:               pool,
		ConnectionString: connStr,
	}, nil
}
