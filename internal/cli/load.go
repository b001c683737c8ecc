package cli

import (
	"github.com/spf13/cobra"
	"github.com/vvka-141/pgdal/internal/files/filesystem"
	"github.com/vvka-141/pgdal/internal/services"
	"github.com/vvka-141/pgdal/pkg/pgdal"
)

var loadCmd = &cobra.Command{
	Use:   "load <file.csv> <schema.table>",
	Short: "Stream a CSV file into an existing table with COPY",
	Long: `Load streams a CSV file into an existing table over a dedicated
connection using COPY. The file must have a header row and use commas.

The load is all-or-nothing: if any row is rejected, no row from the file
is kept. Files ending in .gz, .bz2, .xz or .zst are decompressed on the fly.

Examples:
  pgdal load measurements.csv sensors.readings
  pgdal load export-2024-01.csv.zst archive.events -d warehouse`,
	Args: cobra.ExactArgs(2),
	RunE: runLoad,
}

func init() {
	rootCmd.AddCommand(loadCmd)
}

func runLoad(cmd *cobra.Command, args []string) error {
	path := args[0]
	ref, err := pgdal.ParseTableRef(args[1])
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

	loader := services.NewBulkLoader(filesystem.NewOSFileSystemProvider(), env.copySessions(), env.logger)
	rows, err := loader.LoadCSV(ctx, path, ref, env.connConfig)
	if err != nil {
		return err
	}

	env.logger.Info("Loaded %d row(s) into %s", rows, ref)
	return nil
}
