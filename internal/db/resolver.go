package db

import (
	"fmt"
	"os"
	"strconv"

	"github.com/vvka-141/pgdal/internal/config"
	"github.com/vvka-141/pgdal/pkg/pgdal"
)

// GranularConnFlags represents connection parameters from CLI flags.
// These follow PostgreSQL standard flag conventions (-h, -p, -U, -d).
//
// Password is not a flag. Use $PGPASSWORD or a connection string instead.
type GranularConnFlags struct {
	Host        string
	Port        int
	Username    string
	Database    string
	SSLMode     string
	SSLCert     string
	SSLKey      string
	SSLRootCert string
}

// IsEmpty returns true if no server-selecting flag was provided.
// Database and TLS file flags are excluded: they may refine a connection string.
func (g *GranularConnFlags) IsEmpty() bool {
	return g.Host == "" && g.Port == 0 && g.Username == "" && g.SSLMode == ""
}

// EnvVars represents PostgreSQL standard environment variables.
// See: https://www.postgresql.org/docs/current/libpq-envars.html
type EnvVars struct {
	PGHOST        string
	PGPORT        string
	PGUSER        string
	PGPASSWORD    string
	PGDATABASE    string
	PGSSLMODE     string
	PGSSLCERT     string
	PGSSLKEY      string
	PGSSLROOTCERT string
	PGAPPNAME     string
	DATABASE_URL  string // Full connection string (Heroku/Rails convention)

	PGDAL_AUTH          string // Auth method when --auth is not given
	AWS_REGION          string
	AWS_DEFAULT_REGION  string
	AZURE_TENANT_ID     string
	AZURE_CLIENT_ID     string
	AZURE_CLIENT_SECRET string // Service principal secret; never a flag
}

// LoadFromEnvironment reads the libpq environment variables.
func LoadFromEnvironment() *EnvVars {
	return &EnvVars{
		PGHOST:        os.Getenv("PGHOST"),
		PGPORT:        os.Getenv("PGPORT"),
		PGUSER:        os.Getenv("PGUSER"),
		PGPASSWORD:    os.Getenv("PGPASSWORD"),
		PGDATABASE:    os.Getenv("PGDATABASE"),
		PGSSLMODE:     os.Getenv("PGSSLMODE"),
		PGSSLCERT:     os.Getenv("PGSSLCERT"),
		PGSSLKEY:      os.Getenv("PGSSLKEY"),
		PGSSLROOTCERT: os.Getenv("PGSSLROOTCERT"),
		PGAPPNAME:     os.Getenv("PGAPPNAME"),
		DATABASE_URL:  os.Getenv("DATABASE_URL"),

		PGDAL_AUTH:          os.Getenv("PGDAL_AUTH"),
		AWS_REGION:          os.Getenv("AWS_REGION"),
		AWS_DEFAULT_REGION:  os.Getenv("AWS_DEFAULT_REGION"),
		AZURE_TENANT_ID:     os.Getenv("AZURE_TENANT_ID"),
		AZURE_CLIENT_ID:     os.Getenv("AZURE_CLIENT_ID"),
		AZURE_CLIENT_SECRET: os.Getenv("AZURE_CLIENT_SECRET"),
	}
}

// ResolveConnectionParams resolves connection parameters using PostgreSQL-standard precedence:
//
//  1. Connection string flag (--connection)
//  2. DATABASE_URL, when no granular flag is given
//  3. Granular flags (-h, -p, -U, -d), then PG* environment variables,
//     then pgdal.yaml, then defaults (localhost:5432, prefer SSL)
//
// Giving both --connection and granular flags is an error.
// The -d flag and TLS file flags override the connection string when set.
func ResolveConnectionParams(
	connStringFlag string,
	flags *GranularConnFlags,
	envVars *EnvVars,
	projectConfig *config.ProjectConfig,
) (*pgdal.ConnectionConfig, error) {
	if flags == nil {
		flags = &GranularConnFlags{}
	}
	if envVars == nil {
		envVars = &EnvVars{}
	}

	if connStringFlag != "" && !flags.IsEmpty() {
		return nil, fmt.Errorf(
			"cannot specify both --connection and granular flags (-h, -p, -U)\n"+
				"Choose one approach:\n"+
				"  1. Connection string: --connection \"postgresql://user@localhost:5432/postgres\"\n"+
				"  2. Granular flags: -h localhost -p 5432 -U myuser -d mydb\n"+
				"  3. Environment variables: export PGHOST=localhost PGPORT=5432 PGUSER=myuser: %w",
			pgdal.ErrInvalidConfig,
		)
	}

	var cfg *pgdal.ConnectionConfig
	var err error

	switch {
	case connStringFlag != "":
		cfg, err = resolveFromConnectionString(connStringFlag, envVars)
	case flags.IsEmpty() && envVars.DATABASE_URL != "":
		cfg, err = resolveFromConnectionString(envVars.DATABASE_URL, envVars)
	default:
		cfg, err = resolveFromGranularParams(flags, envVars, projectConfig)
	}
	if err != nil {
		return nil, err
	}

	if flags.Database != "" {
		cfg.Database = flags.Database
	}
	if flags.SSLCert != "" {
		cfg.SSLCert = flags.SSLCert
	}
	if flags.SSLKey != "" {
		cfg.SSLKey = flags.SSLKey
	}
	if flags.SSLRootCert != "" {
		cfg.SSLRootCert = flags.SSLRootCert
	}

	return cfg, nil
}

// resolveFromConnectionString parses a connection string. Environment
// variables fill TLS settings the string leaves out, as libpq does.
func resolveFromConnectionString(connStr string, envVars *EnvVars) (*pgdal.ConnectionConfig, error) {
	cfg, err := ParseConnectionString(connStr)
	if err != nil {
		return nil, fmt.Errorf("invalid connection string: %w", err)
	}

	firstNonEmpty(&cfg.SSLCert, envVars.PGSSLCERT)
	firstNonEmpty(&cfg.SSLKey, envVars.PGSSLKEY)
	firstNonEmpty(&cfg.SSLRootCert, envVars.PGSSLROOTCERT)
	firstNonEmpty(&cfg.AppName, envVars.PGAPPNAME)

	return cfg, nil
}

// resolveFromGranularParams builds a ConnectionConfig parameter by parameter:
// flag > environment variable > pgdal.yaml > default.
func resolveFromGranularParams(
	flags *GranularConnFlags,
	envVars *EnvVars,
	projectConfig *config.ProjectConfig,
) (*pgdal.ConnectionConfig, error) {
	cfg := &pgdal.ConnectionConfig{
		AdditionalParams: make(map[string]string),
	}

	var pc config.ConnectionConfig
	if projectConfig != nil {
		pc = projectConfig.Connection
	}

	firstNonEmpty(&cfg.Host, flags.Host, envVars.PGHOST, pc.Host, defaultHost)

	switch {
	case flags.Port != 0:
		cfg.Port = flags.Port
	case envVars.PGPORT != "":
		port, err := strconv.Atoi(envVars.PGPORT)
		if err != nil {
			return nil, fmt.Errorf("invalid $PGPORT value '%s': must be an integer: %w", envVars.PGPORT, pgdal.ErrInvalidConfig)
		}
		cfg.Port = port
	case pc.Port != 0:
		cfg.Port = pc.Port
	default:
		cfg.Port = defaultPort
	}

	// Username falls back to the OS user like psql does
	firstNonEmpty(&cfg.Username, flags.Username, envVars.PGUSER, pc.Username, os.Getenv("USER"), os.Getenv("USERNAME"))
	cfg.Password = envVars.PGPASSWORD
	firstNonEmpty(&cfg.Database, flags.Database, envVars.PGDATABASE, pc.Database, defaultDatabase)
	firstNonEmpty(&cfg.SSLMode, flags.SSLMode, envVars.PGSSLMODE, pc.SSLMode, defaultSSLMode)
	firstNonEmpty(&cfg.SSLCert, envVars.PGSSLCERT, pc.SSLCert)
	firstNonEmpty(&cfg.SSLKey, envVars.PGSSLKEY, pc.SSLKey)
	firstNonEmpty(&cfg.SSLRootCert, envVars.PGSSLROOTCERT, pc.SSLRootCert)
	firstNonEmpty(&cfg.AppName, envVars.PGAPPNAME)

	return cfg, nil
}

// CloudAuthFlags are the authentication flags. Empty fields fall back to
// environment variables, then pgdal.yaml.
type CloudAuthFlags struct {
	Method         string
	AWSRegion      string
	GoogleInstance string
	AzureTenantID  string
	AzureClientID  string
}

// ApplyCloudAuth resolves the auth method and its settings onto cfg with
// flag > environment variable > pgdal.yaml precedence. It applies to every
// connection source, connection strings included.
func ApplyCloudAuth(cfg *pgdal.ConnectionConfig, flags *CloudAuthFlags, envVars *EnvVars, projectConfig *config.ProjectConfig) error {
	if flags == nil {
		flags = &CloudAuthFlags{}
	}
	if envVars == nil {
		envVars = &EnvVars{}
	}
	var pc config.ConnectionConfig
	if projectConfig != nil {
		pc = projectConfig.Connection
	}

	var method string
	firstNonEmpty(&method, flags.Method, envVars.PGDAL_AUTH, pc.Auth)
	auth, err := pgdal.ParseAuthMethod(method)
	if err != nil {
		return err
	}
	cfg.AuthMethod = auth

	firstNonEmpty(&cfg.AWSRegion, flags.AWSRegion, envVars.AWS_REGION, envVars.AWS_DEFAULT_REGION, pc.AWSRegion)
	firstNonEmpty(&cfg.GoogleInstance, flags.GoogleInstance, pc.GoogleInstance)
	firstNonEmpty(&cfg.AzureTenantID, flags.AzureTenantID, envVars.AZURE_TENANT_ID, pc.AzureTenantID)
	firstNonEmpty(&cfg.AzureClientID, flags.AzureClientID, envVars.AZURE_CLIENT_ID, pc.AzureClientID)
	firstNonEmpty(&cfg.AzureClientSecret, envVars.AZURE_CLIENT_SECRET)
	return nil
}

// firstNonEmpty sets *dst to the first non-empty candidate when *dst is empty.
func firstNonEmpty(dst *string, candidates ...string) {
	if *dst != "" {
		return
	}
	for _, c := range candidates {
		if c != "" {
			*dst = c
			return
		}
	}
}
