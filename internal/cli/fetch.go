package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vvka-141/pgdal/internal/compression"
	"github.com/vvka-141/pgdal/internal/db"
	"github.com/vvka-141/pgdal/internal/db/catalog"
	"github.com/vvka-141/pgdal/internal/files/filesystem"
	"github.com/vvka-141/pgdal/internal/services"
	"github.com/vvka-141/pgdal/internal/tabular"
	"github.com/vvka-141/pgdal/pkg/pgdal"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <schema.table>",
	Short: "Read a whole table",
	Long: `Fetch reads every row of a table. A missing table exits with code 14.

With --out the rows are written as CSV to a file, compressed when the name
ends in .gz, .xz or .zst. Otherwise they are printed in --format.

--require fails with code 15 unless every listed column is present, for
consumers that depend on specific columns.

Examples:
  pgdal fetch sales.orders --format json
  pgdal fetch sensors.readings --out readings.csv.zst
  pgdal fetch metrics.daily --require day,value --format csv`,
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

type fetchFlagValues struct {
	out     string
	require []string
	format  string
}

var fetchFlags fetchFlagValues

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().StringVarP(&fetchFlags.out, "out", "o", "",
		"Write CSV to this file instead of stdout (.gz, .xz, .zst compress)")
	fetchCmd.Flags().StringSliceVar(&fetchFlags.require, "require", nil,
		"Columns that must be present (comma-separated)")
	fetchCmd.Flags().StringVar(&fetchFlags.format, "format", "",
		"Output format when printing: table, json or csv\n"+
			"(default: table on a terminal, csv otherwise)")

	_ = fetchCmd.RegisterFlagCompletionFunc("format", fixedCompletions(outputFormats...))
}

func runFetch(cmd *cobra.Command, args []string) error {
	ref, err := pgdal.ParseTableRef(args[0])
	if err != nil {
		return err
	}
	format, err := resolveOutputFormat(fetchFlags.format, os.Stdout)
	if err != nil {
		return err
	}

	env, err := newCommandEnv(cmd)
	if err != nil {
		return err
	}
	defer env.close()

	ctx, cancel := env.commandContext()
	defer cancel()

	pool, err := env.connect(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	transfer := services.NewTabularTransfer(catalog.New(), db.NewPoolAdapter(pool), 0, env.logger)
	table, err := transfer.FetchTable(ctx, ref)
	if err != nil {
		return err
	}

	if len(fetchFlags.require) > 0 {
		if err := table.RequireColumns(trimAll(fetchFlags.require)...); err != nil {
			return fmt.Errorf("table %s: %w", ref, err)
		}
	}

	if fetchFlags.out == "" {
		return writeTable(cmd.OutOrStdout(), table, format)
	}

	if err := exportCSV(filesystem.NewOSFileSystemProvider(), fetchFlags.out, table); err != nil {
		return err
	}
	env.logger.Info("Wrote %d row(s) from %s to %s", table.NumRows(), ref, fetchFlags.out)
	return nil
}

// exportCSV writes table to path, compressing by extension.
func exportCSV(fsProvider filesystem.FileSystemProvider, path string, table *pgdal.Table) (err error) {
	codec := compression.Detect(path)

	file, err := fsProvider.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := file.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()

	w, err := compression.NewWriter(file, codec)
	if err != nil {
		return fmt.Errorf("cannot write %s: %w: %w", path, pgdal.ErrInvalidConfig, err)
	}
	if err := tabular.WriteCSV(w, table); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
