package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vvka-141/pgdal/internal/config"
	"github.com/vvka-141/pgdal/internal/db"
	"github.com/vvka-141/pgdal/internal/logging"
	"github.com/vvka-141/pgdal/pkg/pgdal"
)

func testEnv(project *config.ProjectConfig) *commandEnv {
	if project == nil {
		project = &config.ProjectConfig{}
	}
	return &commandEnv{logger: logging.NewNullLogger(), project: project, timeout: time.Minute}
}

func writeParamsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "params.env")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestBuildQueryRequest_Layering(t *testing.T) {
	env := testEnv(&config.ProjectConfig{
		Params:      map[string]string{"region": "us", "limit": "5", "day": "2024-01-01"},
		Identifiers: map[string]string{"table": "sales.orders", "col": "amount"},
	})
	base := writeParamsFile(t, "region=eu\nlimit=10\n")
	override := writeParamsFile(t, "# later file wins\nlimit=20\n")

	req, err := buildQueryRequest(env, "report.sql", execFlagValues{
		identifiers: []string{"table=archive.orders"},
		params:      []string{"day=2024-01-31", "label='42'"},
		paramsFiles: []string{base, override},
		fetch:       "all",
	})
	require.NoError(t, err)

	assert.Equal(t, "report.sql", req.TemplatePath)
	assert.Equal(t, pgdal.FetchAll, req.Mode)
	assert.Equal(t, map[string]string{"table": "archive.orders", "col": "amount"}, req.Identifiers)
	assert.Equal(t, map[string]any{
		"region": "eu",
		"limit":  int64(20),
		"day":    "2024-01-31",
		"label":  "42",
	}, req.Params)
}

func TestBuildQueryRequest_Errors(t *testing.T) {
	env := testEnv(nil)

	t.Run("bad fetch mode", func(t *testing.T) {
		_, err := buildQueryRequest(env, "q.sql", execFlagValues{fetch: "many"})
		assert.ErrorIs(t, err, pgdal.ErrInvalidConfig)
	})

	t.Run("param without equals", func(t *testing.T) {
		_, err := buildQueryRequest(env, "q.sql", execFlagValues{params: []string{"region"}})
		assert.ErrorIs(t, err, pgdal.ErrInvalidConfig)
	})

	t.Run("identifier without equals", func(t *testing.T) {
		_, err := buildQueryRequest(env, "q.sql", execFlagValues{identifiers: []string{"table"}})
		assert.ErrorIs(t, err, pgdal.ErrInvalidConfig)
	})

	t.Run("missing params file", func(t *testing.T) {
		_, err := buildQueryRequest(env, "q.sql", execFlagValues{
			paramsFiles: []string{filepath.Join(t.TempDir(), "absent.env")},
		})
		assert.ErrorIs(t, err, pgdal.ErrNotFound)
	})
}

func newTimeoutCmd() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Flags().Duration("timeout", 5*time.Minute, "")
	cmd.Flags().Int("batch-size", pgdal.DefaultBatchSize, "")
	return cmd
}

func TestResolveEffectiveTimeout(t *testing.T) {
	t.Run("yaml wins over default", func(t *testing.T) {
		got, err := resolveEffectiveTimeout(newTimeoutCmd(), &config.ProjectConfig{Timeout: "90s"}, 5*time.Minute)
		require.NoError(t, err)
		assert.Equal(t, 90*time.Second, got)
	})

	t.Run("explicit flag wins over yaml", func(t *testing.T) {
		cmd := newTimeoutCmd()
		require.NoError(t, cmd.Flags().Set("timeout", "2m"))
		got, err := resolveEffectiveTimeout(cmd, &config.ProjectConfig{Timeout: "90s"}, 2*time.Minute)
		require.NoError(t, err)
		assert.Equal(t, 2*time.Minute, got)
	})

	t.Run("non-positive flag", func(t *testing.T) {
		_, err := resolveEffectiveTimeout(newTimeoutCmd(), &config.ProjectConfig{}, 0)
		assert.ErrorIs(t, err, pgdal.ErrInvalidConfig)
	})
}

func TestResolveBatchSize(t *testing.T) {
	t.Run("default", func(t *testing.T) {
		got, err := testEnv(nil).resolveBatchSize(newTimeoutCmd(), pgdal.DefaultBatchSize)
		require.NoError(t, err)
		assert.Equal(t, pgdal.DefaultBatchSize, got)
	})

	t.Run("yaml", func(t *testing.T) {
		got, err := testEnv(&config.ProjectConfig{BatchSize: 250}).resolveBatchSize(newTimeoutCmd(), pgdal.DefaultBatchSize)
		require.NoError(t, err)
		assert.Equal(t, 250, got)
	})

	t.Run("flag", func(t *testing.T) {
		cmd := newTimeoutCmd()
		require.NoError(t, cmd.Flags().Set("batch-size", "50"))
		got, err := testEnv(&config.ProjectConfig{BatchSize: 250}).resolveBatchSize(cmd, 50)
		require.NoError(t, err)
		assert.Equal(t, 50, got)
	})

	t.Run("zero flag", func(t *testing.T) {
		cmd := newTimeoutCmd()
		require.NoError(t, cmd.Flags().Set("batch-size", "0"))
		_, err := testEnv(nil).resolveBatchSize(cmd, 0)
		assert.ErrorIs(t, err, pgdal.ErrInvalidConfig)
	})
}

func TestResolveConnectionFromFlags(t *testing.T) {
	t.Run("connection string with database override", func(t *testing.T) {
		cfg, err := resolveConnectionFromFlags(connectionFlags{
			connection: "postgresql://app@db.internal:6432/main",
			database:   "reporting",
		}, &config.ProjectConfig{}, &db.EnvVars{})
		require.NoError(t, err)
		assert.Equal(t, "db.internal", cfg.Host)
		assert.Equal(t, 6432, cfg.Port)
		assert.Equal(t, "reporting", cfg.Database)
	})

	t.Run("connection string and host conflict", func(t *testing.T) {
		_, err := resolveConnectionFromFlags(connectionFlags{
			connection: "postgresql://app@db.internal/main",
			host:       "other",
		}, &config.ProjectConfig{}, &db.EnvVars{})
		assert.ErrorIs(t, err, pgdal.ErrInvalidConfig)
	})

	t.Run("pgdal.yaml supplies granular settings", func(t *testing.T) {
		cfg, err := resolveConnectionFromFlags(connectionFlags{}, &config.ProjectConfig{
			Connection: config.ConnectionConfig{Host: "yaml-host", Port: 5433, Database: "yamldb"},
		}, &db.EnvVars{})
		require.NoError(t, err)
		assert.Equal(t, "yaml-host", cfg.Host)
		assert.Equal(t, 5433, cfg.Port)
		assert.Equal(t, "yamldb", cfg.Database)
	})

	t.Run("cloud auth from flags and environment", func(t *testing.T) {
		cfg, err := resolveConnectionFromFlags(connectionFlags{
			host: "main.abc123.eu-west-1.rds.amazonaws.com", username: "loader", database: "app",
			auth: "aws-iam",
		}, &config.ProjectConfig{}, &db.EnvVars{AWS_REGION: "eu-west-1"})
		require.NoError(t, err)
		assert.Equal(t, pgdal.AuthAWSIAM, cfg.AuthMethod)
		assert.Equal(t, "eu-west-1", cfg.AWSRegion)
	})

	t.Run("cloud auth missing settings", func(t *testing.T) {
		_, err := resolveConnectionFromFlags(connectionFlags{host: "h", database: "d", auth: "google-iam", username: "sa"},
			&config.ProjectConfig{}, &db.EnvVars{})
		assert.ErrorIs(t, err, pgdal.ErrInvalidConfig)
		assert.Contains(t, err.Error(), "google-instance")
	})

	t.Run("invalid port", func(t *testing.T) {
		_, err := resolveConnectionFromFlags(connectionFlags{host: "h", port: 70000, database: "d"},
			&config.ProjectConfig{}, &db.EnvVars{})
		assert.ErrorIs(t, err, pgdal.ErrInvalidConfig)
	})
}
