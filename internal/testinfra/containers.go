// Package testinfra starts throwaway PostgreSQL servers for integration tests.
package testinfra

import (
	"context"
	"fmt"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	Image    = "postgres:17-alpine"
	User     = "postgres"
	Password = "postgres"
	Database = "pgdal_test"
)

// Server is a running container and the URI that reaches it.
type Server struct {
	container *postgres.PostgresContainer
	URI       string
}

// StartPostgres runs a plain-TCP server. Extra customizers are applied
// after the defaults, e.g. postgres.WithInitScripts for fixtures.
func StartPostgres(ctx context.Context, extra ...testcontainers.ContainerCustomizer) (*Server, error) {
	opts := []testcontainers.ContainerCustomizer{
		postgres.WithUsername(User),
		postgres.WithPassword(Password),
		postgres.WithDatabase(Database),
		// the entrypoint restarts the server once after initdb
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	}
	ctr, err := postgres.Run(ctx, Image, append(opts, extra...)...)
	if err != nil {
		return nil, fmt.Errorf("start %s: %w", Image, err)
	}

	uri, err := ctr.ConnectionString(ctx, "sslmode=disable", "application_name=pgdal_test")
	if err != nil {
		_ = ctr.Terminate(ctx)
		return nil, fmt.Errorf("resolve connection string: %w", err)
	}
	return &Server{container: ctr, URI: uri}, nil
}

// Stop terminates the container.
func (s *Server) Stop(ctx context.Context) error {
	return s.container.Terminate(ctx)
}
