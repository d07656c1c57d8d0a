package testutils

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
)

type PostgresTestContainer struct {
	Pool     *dockertest.Pool
	Resource *dockertest.Resource
	URL      string
}

func newPool() (*dockertest.Pool, error) {
	pool, err := dockertest.NewPool("")
	if err != nil {
		return nil, fmt.Errorf("could not construct pool: %w", err)
	}

	if err := pool.Client.Ping(); err != nil {
		pool, err = dockertest.NewPool("unix:///var/run/docker.sock")
		if err != nil {
			return nil, fmt.Errorf("could not construct pool with explicit endpoint: %w", err)
		}
		if err := pool.Client.Ping(); err != nil {
			return nil, fmt.Errorf("could not connect to Docker: %w", err)
		}
	}
	return pool, nil
}

func SetupTestPostgres() (*PostgresTestContainer, error) {
	pool, err := newPool()
	if err != nil {
		return nil, err
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "17-alpine",
		Env: []string{
			"POSTGRES_PASSWORD=postgres",
			"POSTGRES_USER=postgres",
			"POSTGRES_DB=farmstore_test",
			"listen_addresses = '*'",
		},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		return nil, fmt.Errorf("could not start resource: %w", err)
	}

	hostAndPort := resource.GetHostPort("5432/tcp")
	databaseURL := fmt.Sprintf("postgres://postgres:postgres@%s/farmstore_test?sslmode=disable", hostAndPort)

	resource.Expire(180)

	pool.MaxWait = 180 * time.Second

	if err = pool.Retry(func() error {
		db, err := sql.Open("pgx", databaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		return db.Ping()
	}); err != nil {
		pool.Purge(resource)
		return nil, fmt.Errorf("could not connect to database: %w", err)
	}

	return &PostgresTestContainer{
		Pool:     pool,
		Resource: resource,
		URL:      databaseURL,
	}, nil
}

func (c *PostgresTestContainer) Cleanup() error {
	if err := c.Pool.Purge(c.Resource); err != nil {
		return fmt.Errorf("could not purge resource: %w", err)
	}
	return nil
}
