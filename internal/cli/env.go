package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/vvka-141/pgdal/internal/config"
	"github.com/vvka-141/pgdal/internal/db"
	"github.com/vvka-141/pgdal/internal/logging"
	"github.com/vvka-141/pgdal/internal/retry"
	"github.com/vvka-141/pgdal/internal/services"
	"github.com/vvka-141/pgdal/pkg/pgdal"
)

// commandEnv is everything a command needs before it touches the database.
type commandEnv struct {
	runID      string
	logger     pgdal.Logger
	project    *config.ProjectConfig
	connConfig *pgdal.ConnectionConfig
	timeout    time.Duration

	// released by close, after the pools they opened
	connectors []*db.StandardConnector
}

// newCommandEnv loads .env and pgdal.yaml from the working directory,
// builds the logger and resolves the connection.
func newCommandEnv(cmd *cobra.Command) (*commandEnv, error) {
	_ = godotenv.Load()

	runID := uuid.NewString()
	logger, err := logging.New(globalFlags.logFormat, getVerboseFlag(cmd), map[string]string{
		"run_id":  runID,
		"command": cmd.Name(),
	})
	if err != nil {
		return nil, fmt.Errorf("invalid --log-format %q: %w: %w", globalFlags.logFormat, pgdal.ErrInvalidConfig, err)
	}

	projectCfg, err := config.LoadOptional(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w: %w", config.ConfigFileName, pgdal.ErrInvalidConfig, err)
	}

	connConfig, err := resolveConnectionFromFlags(globalFlags.conn, projectCfg, db.LoadFromEnvironment())
	if err != nil {
		return nil, err
	}
	if connConfig.AppName == "" {
		connConfig.AppName = pgdal.ApplicationName + "-" + runID[:8]
	}

	timeout, err := resolveEffectiveTimeout(cmd, projectCfg, globalFlags.timeout)
	if err != nil {
		return nil, err
	}

	logger.Verbose("Connection resolved: %s (auth %s)", db.RedactedConnectionString(connConfig), connConfig.AuthMethod)
	logger.Verbose("Run %s, timeout %s", runID, timeout)

	return &commandEnv{
		runID:      runID,
		logger:     logger,
		project:    projectCfg,
		connConfig: connConfig,
		timeout:    timeout,
	}, nil
}

// resolveEffectiveTimeout returns the effective timeout, preferring pgdal.yaml if flag wasn't set.
func resolveEffectiveTimeout(cmd *cobra.Command, projectCfg *config.ProjectConfig, flagTimeout time.Duration) (time.Duration, error) {
	if projectCfg != nil && projectCfg.Timeout != "" && !cmd.Flags().Changed("timeout") {
		parsed, err := projectCfg.ParsedTimeout()
		if err != nil {
			return 0, fmt.Errorf("%s: %w: %w", config.ConfigFileName, pgdal.ErrInvalidConfig, err)
		}
		return parsed, nil
	}
	if flagTimeout <= 0 {
		return 0, fmt.Errorf("--timeout must be positive: %w", pgdal.ErrInvalidConfig)
	}
	return flagTimeout, nil
}

// resolveBatchSize prefers an explicit flag, then pgdal.yaml, then the default.
func (e *commandEnv) resolveBatchSize(cmd *cobra.Command, flagValue int) (int, error) {
	if cmd.Flags().Changed("batch-size") {
		if flagValue <= 0 {
			return 0, fmt.Errorf("--batch-size must be positive: %w", pgdal.ErrInvalidConfig)
		}
		return flagValue, nil
	}
	if e.project.BatchSize > 0 {
		return e.project.BatchSize, nil
	}
	return pgdal.DefaultBatchSize, nil
}

// commandContext bounds the command by the timeout and cancels it on Ctrl+C or SIGTERM.
func (e *commandEnv) commandContext() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

func (e *commandEnv) retrier() *retry.Executor {
	return retry.NewConnectExecutor(globalFlags.connectRetries, e.logger)
}

// connect opens a pool, retrying transient failures. The caller closes it.
func (e *commandEnv) connect(ctx context.Context) (*pgxpool.Pool, error) {
	connector, err := db.NewConnector(e.connConfig, e.logger)
	if err != nil {
		return nil, err
	}
	e.connectors = append(e.connectors, connector)

	var pool *pgxpool.Pool
	err = e.retrier().Execute(ctx, func(ctx context.Context) error {
		p, err := connector.Connect(ctx)
		if err != nil {
			return err
		}
		pool = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pool, nil
}

// copySessions is services.DirectCopySessions with connection retries.
func (e *commandEnv) copySessions() services.CopySessionFactory {
	direct := services.DirectCopySessions(e.logger)
	return func(ctx context.Context, cfg *pgdal.ConnectionConfig) (pgdal.CopySession, error) {
		var session pgdal.CopySession
		err := e.retrier().Execute(ctx, func(ctx context.Context) error {
			s, err := direct(ctx, cfg)
			if err != nil {
				return err
			}
			session = s
			return nil
		})
		return session, err
	}
}

// close releases connectors and flushes buffered structured logs.
func (e *commandEnv) close() {
	for _, c := range e.connectors {
		if err := c.Close(); err != nil {
			e.logger.Verbose("Failed to release connector: %v", err)
		}
	}
	if zl, ok := e.logger.(*logging.ZapLogger); ok {
		_ = zl.Sync()
	}
}
