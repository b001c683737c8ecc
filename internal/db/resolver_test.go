package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vvka-141/pgdal/internal/config"
	"github.com/vvka-141/pgdal/pkg/pgdal"
)

func TestGranularConnFlags_IsEmpty(t *testing.T) {
	assert.True(t, (&GranularConnFlags{}).IsEmpty())
	assert.True(t, (&GranularConnFlags{Database: "d", SSLRootCert: "/ca"}).IsEmpty())
	assert.False(t, (&GranularConnFlags{Host: "h"}).IsEmpty())
	assert.False(t, (&GranularConnFlags{Port: 5432}).IsEmpty())
	assert.False(t, (&GranularConnFlags{Username: "u"}).IsEmpty())
	assert.False(t, (&GranularConnFlags{SSLMode: "require"}).IsEmpty())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PGHOST", "envhost")
	t.Setenv("PGPORT", "6543")
	t.Setenv("PGSSLROOTCERT", "/env/ca.crt")
	t.Setenv("DATABASE_URL", "postgresql://x/y")

	env := LoadFromEnvironment()
	assert.Equal(t, "envhost", env.PGHOST)
	assert.Equal(t, "6543", env.PGPORT)
	assert.Equal(t, "/env/ca.crt", env.PGSSLROOTCERT)
	assert.Equal(t, "postgresql://x/y", env.DATABASE_URL)
}

func TestResolveConnectionParams_Conflict(t *testing.T) {
	_, err := ResolveConnectionParams("postgresql://h/db", &GranularConnFlags{Host: "other"}, nil, nil)
	require.ErrorIs(t, err, pgdal.ErrInvalidConfig)
	assert.Contains(t, err.Error(), "cannot specify both")
}

func TestResolveConnectionParams_ConnectionString(t *testing.T) {
	env := &EnvVars{PGSSLROOTCERT: "/env/ca.crt", PGHOST: "ignored"}
	flags := &GranularConnFlags{Database: "override", SSLCert: "/flag/c.crt"}

	cfg, err := ResolveConnectionParams("postgresql://u@h:5433/db", flags, env, nil)
	require.NoError(t, err)

	assert.Equal(t, "h", cfg.Host)
	assert.Equal(t, 5433, cfg.Port)
	assert.Equal(t, "override", cfg.Database)
	assert.Equal(t, "/env/ca.crt", cfg.SSLRootCert)
	assert.Equal(t, "/flag/c.crt", cfg.SSLCert)
}

func TestResolveConnectionParams_DatabaseURL(t *testing.T) {
	cfg, err := ResolveConnectionParams("", nil, &EnvVars{DATABASE_URL: "postgresql://u@heroku:5432/app"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "heroku", cfg.Host)
	assert.Equal(t, "app", cfg.Database)
}

func TestResolveConnectionParams_DatabaseURLIgnoredWithFlags(t *testing.T) {
	cfg, err := ResolveConnectionParams("", &GranularConnFlags{Host: "flaghost"},
		&EnvVars{DATABASE_URL: "postgresql://u@heroku:5432/app"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "flaghost", cfg.Host)
}

func TestResolveConnectionParams_Precedence(t *testing.T) {
	project := &config.ProjectConfig{Connection: config.ConnectionConfig{
		Host: "yamlhost", Port: 7000, Username: "yamluser", Database: "yamldb",
		SSLMode: "require", SSLRootCert: "/yaml/ca.crt",
	}}

	t.Run("flag beats env beats yaml", func(t *testing.T) {
		cfg, err := ResolveConnectionParams("",
			&GranularConnFlags{Host: "flaghost"},
			&EnvVars{PGHOST: "envhost", PGPORT: "6000", PGPASSWORD: "pw"},
			project)
		require.NoError(t, err)

		assert.Equal(t, "flaghost", cfg.Host)
		assert.Equal(t, 6000, cfg.Port)
		assert.Equal(t, "yamluser", cfg.Username)
		assert.Equal(t, "yamldb", cfg.Database)
		assert.Equal(t, "require", cfg.SSLMode)
		assert.Equal(t, "/yaml/ca.crt", cfg.SSLRootCert)
		assert.Equal(t, "pw", cfg.Password)
	})

	t.Run("defaults", func(t *testing.T) {
		t.Setenv("USER", "osuser")
		cfg, err := ResolveConnectionParams("", nil, &EnvVars{}, nil)
		require.NoError(t, err)

		assert.Equal(t, "localhost", cfg.Host)
		assert.Equal(t, 5432, cfg.Port)
		assert.Equal(t, "postgres", cfg.Database)
		assert.Equal(t, "prefer", cfg.SSLMode)
		assert.Equal(t, "osuser", cfg.Username)
	})

	t.Run("invalid PGPORT", func(t *testing.T) {
		_, err := ResolveConnectionParams("", nil, &EnvVars{PGPORT: "abc"}, nil)
		require.ErrorIs(t, err, pgdal.ErrInvalidConfig)
	})
}

func TestApplyCloudAuth(t *testing.T) {
	project := &config.ProjectConfig{Connection: config.ConnectionConfig{
		Auth:          "aws-iam",
		AWSRegion:     "us-east-1",
		AzureTenantID: "yaml-tenant",
	}}

	t.Run("pgdal.yaml when nothing else is set", func(t *testing.T) {
		cfg := &pgdal.ConnectionConfig{}
		require.NoError(t, ApplyCloudAuth(cfg, nil, nil, project))
		assert.Equal(t, pgdal.AuthAWSIAM, cfg.AuthMethod)
		assert.Equal(t, "us-east-1", cfg.AWSRegion)
	})

	t.Run("environment over pgdal.yaml", func(t *testing.T) {
		cfg := &pgdal.ConnectionConfig{}
		env := &EnvVars{PGDAL_AUTH: "azure", AZURE_TENANT_ID: "env-tenant", AZURE_CLIENT_SECRET: "s3cret", AWS_DEFAULT_REGION: "eu-central-1"}
		require.NoError(t, ApplyCloudAuth(cfg, nil, env, project))
		assert.Equal(t, pgdal.AuthAzureEntraID, cfg.AuthMethod)
		assert.Equal(t, "env-tenant", cfg.AzureTenantID)
		assert.Equal(t, "s3cret", cfg.AzureClientSecret)
		assert.Equal(t, "eu-central-1", cfg.AWSRegion)
	})

	t.Run("flags over environment", func(t *testing.T) {
		cfg := &pgdal.ConnectionConfig{}
		flags := &CloudAuthFlags{Method: "google-iam", GoogleInstance: "p:r:i", AWSRegion: "ap-south-1"}
		env := &EnvVars{PGDAL_AUTH: "azure", AWS_REGION: "us-west-2"}
		require.NoError(t, ApplyCloudAuth(cfg, flags, env, project))
		assert.Equal(t, pgdal.AuthGoogleIAM, cfg.AuthMethod)
		assert.Equal(t, "p:r:i", cfg.GoogleInstance)
		assert.Equal(t, "ap-south-1", cfg.AWSRegion)
	})

	t.Run("defaults to password", func(t *testing.T) {
		cfg := &pgdal.ConnectionConfig{}
		require.NoError(t, ApplyCloudAuth(cfg, nil, nil, nil))
		assert.Equal(t, pgdal.AuthPassword, cfg.AuthMethod)
	})

	t.Run("unknown method", func(t *testing.T) {
		err := ApplyCloudAuth(&pgdal.ConnectionConfig{}, &CloudAuthFlags{Method: "ldap"}, nil, nil)
		assert.ErrorIs(t, err, pgdal.ErrInvalidConfig)
	})
}
