package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/vvka-141/pgdal/internal/db"
	"github.com/vvka-141/pgdal/internal/files/filesystem"
	"github.com/vvka-141/pgdal/internal/params"
	"github.com/vvka-141/pgdal/internal/services"
	"github.com/vvka-141/pgdal/pkg/pgdal"
)

var execCmd = &cobra.Command{
	Use:   "exec <template.sql>",
	Short: "Run a SQL template in one transaction",
	Long: `Exec reads a SQL template, substitutes identifiers, binds parameters and
runs it in a single transaction. Any failure rolls the whole template back.

Template syntax:
  {{ name }}   Replaced verbatim by --ident name=value (trusted input only)
  :name        Bound as a query parameter from --param name=value

Parameter values are typed: 42 binds as an integer, 1.5 as a float,
true/false as booleans, null as NULL. Quote a value ('42') to keep it text.

A template may hold several statements separated by semicolons. They run
in order in the same transaction; --fetch applies to the last one.

Examples:
  # Run a DDL script
  pgdal exec schema.sql -d analytics

  # Parameterized query, all rows as JSON
  pgdal exec top_customers.sql --ident table=sales.orders \
    --param region=EU --param limit=10 --fetch all --format json

  # Layered parameters (CLI overrides files, files override pgdal.yaml)
  pgdal exec report.sql --params-file base.env --params-file prod.env \
    --param day=2024-01-31 --fetch all`,
	Args: cobra.ExactArgs(1),
	RunE: runExec,
}

type execFlagValues struct {
	identifiers []string
	params      []string
	paramsFiles []string
	fetch       string
	format      string
}

var execFlags execFlagValues

func init() {
	rootCmd.AddCommand(execCmd)

	execCmd.Flags().StringArrayVar(&execFlags.identifiers, "ident", nil,
		"Identifier substitution as name=value for {{ name }} (can be repeated)\n"+
			"Values are inserted verbatim; never pass untrusted input")
	execCmd.Flags().StringArrayVar(&execFlags.params, "param", nil,
		"Parameter as name=value for :name (can be repeated)")
	execCmd.Flags().StringArrayVar(&execFlags.paramsFiles, "params-file", nil,
		"Load parameters from .env files (can be repeated)\n"+
			"Later files override earlier ones, --param overrides all")
	execCmd.Flags().StringVar(&execFlags.fetch, "fetch", "none",
		"What to return: none (rows affected), one (first row) or all")
	execCmd.Flags().StringVar(&execFlags.format, "format", "",
		"Output format for fetched rows: table, json or csv\n"+
			"(default: table on a terminal, csv otherwise)")

	_ = execCmd.RegisterFlagCompletionFunc("fetch", fixedCompletions("none", "one", "all"))
	_ = execCmd.RegisterFlagCompletionFunc("format", fixedCompletions(outputFormats...))
}

// buildQueryRequest merges identifiers and parameters from pgdal.yaml,
// params files and flags into a QueryRequest.
func buildQueryRequest(env *commandEnv, templatePath string, flags execFlagValues) (pgdal.QueryRequest, error) {
	mode, err := pgdal.ParseFetchMode(flags.fetch)
	if err != nil {
		return pgdal.QueryRequest{}, err
	}

	cliIdents, err := params.ParseKeyValuePairs(flags.identifiers)
	if err != nil {
		return pgdal.QueryRequest{}, fmt.Errorf("invalid --ident: %w", err)
	}

	layers := []map[string]string{env.project.Params}
	for _, path := range flags.paramsFiles {
		env.logger.Verbose("Loading parameters from file: %s", path)
		fileParams, err := params.LoadEnvFile(path)
		if err != nil {
			return pgdal.QueryRequest{}, err
		}
		layers = append(layers, fileParams)
	}
	cliParams, err := params.ParseKeyValuePairs(flags.params)
	if err != nil {
		return pgdal.QueryRequest{}, fmt.Errorf("invalid --param: %w", err)
	}
	layers = append(layers, cliParams)

	merged := params.Merge(layers...)
	if len(cliParams) > 0 {
		env.logger.Verbose("CLI parameters override %d value(s)", len(cliParams))
	}

	return pgdal.QueryRequest{
		TemplatePath: templatePath,
		Identifiers:  params.Merge(env.project.Identifiers, cliIdents),
		Params:       params.InferAll(merged),
		Mode:         mode,
	}, nil
}

func runExec(cmd *cobra.Command, args []string) error {
	format, err := resolveOutputFormat(execFlags.format, os.Stdout)
	if err != nil {
		return err
	}

	env, err := newCommandEnv(cmd)
	if err != nil {
		return err
	}
	defer env.close()

	req, err := buildQueryRequest(env, args[0], execFlags)
	if err != nil {
		return err
	}

	ctx, cancel := env.commandContext()
	defer cancel()

	pool, err := env.connect(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	executor := services.NewQueryExecutor(filesystem.NewOSFileSystemProvider(), db.NewPoolAdapter(pool), env.logger)
	result, err := executor.Execute(ctx, req)
	if err != nil {
		return err
	}

	switch result.Mode {
	case pgdal.FetchNone:
		env.logger.Info("%d row(s) affected", result.RowsAffected)
		return nil
	case pgdal.FetchOne:
		if result.Row == nil {
			env.logger.Info("No row returned")
			if format == formatJSON {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "null")
				return err
			}
			return nil
		}
	}
	return writeTable(cmd.OutOrStdout(), resultTable(result), format)
}
