package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "pgdal",
	Short: "PostgreSQL data access from SQL templates and CSV files",
	Long: `pgdal runs parameterized SQL templates, checks and materializes tables,
and moves tabular data in and out of PostgreSQL.

Every statement runs in its own transaction. Bulk loads stream through COPY
and are all-or-nothing per file.

Connection:
  --connection, $DATABASE_URL, granular flags (-h -p -U -d), $PG* variables
  and the connection block of pgdal.yaml, in that order of precedence.
  Passwords come from $PGPASSWORD, ~/.pgpass or the connection string.
  --auth aws-iam, google-iam or azure use short-lived cloud credentials.

Exit Codes:
  0  - Success
  1  - General error
  2  - CLI usage error (invalid arguments or flags)
  3  - Panic or unexpected system error
  10 - Invalid configuration or parameters
  11 - Database connection failed
  13 - SQL execution, COPY or bulk insert failed
  14 - Template, file or table not found
  15 - Data rejected before reaching the database`,
	SilenceUsage: true,
}

// globalFlagValues holds the persistent flags shared by every command.
type globalFlagValues struct {
	verbose        bool
	logFormat      string
	connectRetries int
	timeout        time.Duration
	conn           connectionFlags
}

var globalFlags globalFlagValues

// Execute runs the root command
func Execute() error {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		printVersionInfo()
		return nil
	}
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.Bool("help", false, "Help for pgdal")
	pf.BoolVarP(&globalFlags.verbose, "verbose", "v", false, "Enable verbose output for all commands")
	pf.StringVar(&globalFlags.logFormat, "log-format", "text",
		"Log output: text (plain stderr), console or json (structured)")
	pf.IntVar(&globalFlags.connectRetries, "connect-retries", 3,
		"Retries for transient connection failures (0 disables)")
	pf.DurationVar(&globalFlags.timeout, "timeout", 5*time.Minute,
		"Upper bound for the whole command, including connecting\n"+
			"Precedence: --timeout > pgdal.yaml timeout > 5m\n"+
			"For statement-level limits, use SET statement_timeout in SQL")
	registerConnectionFlags(rootCmd)

	_ = rootCmd.RegisterFlagCompletionFunc("log-format", fixedCompletions("text", "console", "json"))
	_ = rootCmd.RegisterFlagCompletionFunc("sslmode", fixedCompletions(sslModes...))
	_ = rootCmd.RegisterFlagCompletionFunc("auth", fixedCompletions(authMethods...))
}

// getVerboseFlag safely retrieves the verbose flag value
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to get verbose flag: %v\n", err)
		return false
	}
	return verbose
}
