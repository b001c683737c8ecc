package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vvka-141/pgdal/internal/config"
	"github.com/vvka-141/pgdal/internal/db"
	"github.com/vvka-141/pgdal/pkg/pgdal"
)

var sslModes = []string{"disable", "allow", "prefer", "require", "verify-ca", "verify-full"}

var authMethods = []string{"password", "aws-iam", "google-iam", "azure"}

// connectionFlags holds the common connection-related flag values.
type connectionFlags struct {
	connection  string
	host        string
	port        int
	username    string
	database    string
	sslMode     string
	sslCert     string
	sslKey      string
	sslRootCert string

	auth           string
	awsRegion      string
	googleInstance string
	azureTenantID  string
	azureClientID  string
}

func registerConnectionFlags(cmd *cobra.Command) {
	f := &globalFlags.conn
	pf := cmd.PersistentFlags()

	// Connection string flag (mutually exclusive with granular flags)
	pf.StringVar(&f.connection, "connection", "",
		"PostgreSQL connection string (URI or ADO.NET format).\n"+
			"Mutually exclusive with --host, --port, --username and --sslmode.\n"+
			"Alternative: DATABASE_URL environment variable.\n"+
			"Example: postgresql://user@localhost:5432/analytics")

	// Granular connection flags (PostgreSQL standard)
	// Precedence: flag > environment variable > pgdal.yaml > default
	pf.StringVarP(&f.host, "host", "h", "",
		"PostgreSQL server host\n"+
			"Precedence: --host > $PGHOST > pgdal.yaml > localhost")
	pf.IntVarP(&f.port, "port", "p", 0,
		"PostgreSQL server port\n"+
			"Precedence: --port > $PGPORT > pgdal.yaml > 5432")
	pf.StringVarP(&f.username, "username", "U", "",
		"PostgreSQL user (default: $PGUSER or current OS user)")
	pf.StringVarP(&f.database, "database", "d", "",
		"Database name; overrides the database of a connection string\n"+
			"Precedence: --database > $PGDATABASE > pgdal.yaml > postgres")
	pf.StringVar(&f.sslMode, "sslmode", "",
		"SSL mode: disable|allow|prefer|require|verify-ca|verify-full\n"+
			"(default: prefer, or $PGSSLMODE)")

	// Certificate flags refine any connection source
	pf.StringVar(&f.sslCert, "sslcert", "", "Client certificate file (or $PGSSLCERT)")
	pf.StringVar(&f.sslKey, "sslkey", "", "Client private key file (or $PGSSLKEY)")
	pf.StringVar(&f.sslRootCert, "sslrootcert", "", "CA certificate to verify the server (or $PGSSLROOTCERT)")

	// Managed PostgreSQL authentication
	pf.StringVar(&f.auth, "auth", "",
		"Authentication: password|aws-iam|google-iam|azure\n"+
			"(default: $PGDAL_AUTH, pgdal.yaml connection.auth, or password)")
	pf.StringVar(&f.awsRegion, "aws-region", "", "AWS region for aws-iam (or $AWS_REGION)")
	pf.StringVar(&f.googleInstance, "google-instance", "",
		"Cloud SQL instance connection name for google-iam (project:region:instance)")
	pf.StringVar(&f.azureTenantID, "azure-tenant-id", "", "Entra ID tenant for azure (or $AZURE_TENANT_ID)")
	pf.StringVar(&f.azureClientID, "azure-client-id", "",
		"Entra ID application for azure (or $AZURE_CLIENT_ID)\n"+
			"With $AZURE_CLIENT_SECRET a service principal is used, otherwise DefaultAzureCredential")
}

// resolveConnectionFromFlags turns flags, environment and pgdal.yaml into a
// validated ConnectionConfig.
func resolveConnectionFromFlags(flags connectionFlags, projectCfg *config.ProjectConfig, env *db.EnvVars) (*pgdal.ConnectionConfig, error) {
	granularFlags := &db.GranularConnFlags{
		Host:        flags.host,
		Port:        flags.port,
		Username:    flags.username,
		Database:    flags.database,
		SSLMode:     flags.sslMode,
		SSLCert:     flags.sslCert,
		SSLKey:      flags.sslKey,
		SSLRootCert: flags.sslRootCert,
	}

	connConfig, err := db.ResolveConnectionParams(flags.connection, granularFlags, env, projectCfg)
	if err != nil {
		return nil, err
	}

	authFlags := &db.CloudAuthFlags{
		Method:         flags.auth,
		AWSRegion:      flags.awsRegion,
		GoogleInstance: flags.googleInstance,
		AzureTenantID:  flags.azureTenantID,
		AzureClientID:  flags.azureClientID,
	}
	if err := db.ApplyCloudAuth(connConfig, authFlags, env, projectCfg); err != nil {
		return nil, err
	}
	if err := connConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid connection settings: %w", err)
	}
	return connConfig, nil
}
