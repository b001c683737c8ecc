package cli

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"
	"github.com/vvka-141/pgdal/internal/compression"
	"github.com/vvka-141/pgdal/internal/db"
	"github.com/vvka-141/pgdal/internal/db/catalog"
	"github.com/vvka-141/pgdal/internal/files/filesystem"
	"github.com/vvka-141/pgdal/internal/services"
	"github.com/vvka-141/pgdal/internal/tabular"
	"github.com/vvka-141/pgdal/pkg/pgdal"
)

var insertCmd = &cobra.Command{
	Use:   "insert <file.csv> <schema.table>",
	Short: "Insert a CSV file through an in-memory table",
	Long: `Insert reads a CSV file into memory, types each column from its values
and writes the rows with batched INSERTs.

Modes:
  fail     Error if the table exists, otherwise create it (default)
  replace  Drop and recreate the table, then insert
  append   Insert into the table, creating it if missing

Each batch commits on its own. If a batch fails, earlier batches stay.
For all-or-nothing loads into an existing table, use 'pgdal load'.

Examples:
  pgdal insert survey.csv research.survey
  pgdal insert daily.csv.gz metrics.daily --mode append --batch-size 5000`,
	Args: cobra.ExactArgs(2),
	RunE: runInsert,
}

type insertFlagValues struct {
	mode      string
	batchSize int
}

var insertFlags insertFlagValues

func init() {
	rootCmd.AddCommand(insertCmd)

	insertCmd.Flags().StringVar(&insertFlags.mode, "mode", "fail", "Existing table handling: fail, replace or append")
	insertCmd.Flags().IntVar(&insertFlags.batchSize, "batch-size", pgdal.DefaultBatchSize,
		"Rows per INSERT batch\n"+
			"Precedence: --batch-size > pgdal.yaml batch_size > 1000")

	_ = insertCmd.RegisterFlagCompletionFunc("mode", fixedCompletions("fail", "replace", "append"))
}

// readCSVFile reads a possibly compressed CSV file into a Table.
func readCSVFile(fsProvider filesystem.FileSystemProvider, path string) (*pgdal.Table, error) {
	file, err := fsProvider.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("csv file %s: %w: %w", path, pgdal.ErrNotFound, err)
		}
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	r, err := compression.NewReader(file, compression.Detect(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w: %w", path, pgdal.ErrValidation, err)
	}
	defer r.Close()

	table, err := tabular.ReadCSV(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return table, nil
}

func runInsert(cmd *cobra.Command, args []string) error {
	path := args[0]
	ref, err := pgdal.ParseTableRef(args[1])
	if err != nil {
		return err
	}
	mode, err := pgdal.ParseInsertMode(insertFlags.mode)
	if err != nil {
		return err
	}

	env, err := newCommandEnv(cmd)
	if err != nil {
		return err
	}
	defer env.close()

	batchSize, err := env.resolveBatchSize(cmd, insertFlags.batchSize)
	if err != nil {
		return err
	}

	table, err := readCSVFile(filesystem.NewOSFileSystemProvider(), path)
	if err != nil {
		return err
	}
	env.logger.Verbose("Read %d row(s) x %d column(s) from %s", table.NumRows(), len(table.Columns), path)

	ctx, cancel := env.commandContext()
	defer cancel()

	pool, err := env.connect(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	transfer := services.NewTabularTransfer(catalog.New(), db.NewPoolAdapter(pool), batchSize, env.logger)
	rows, err := transfer.BulkInsert(ctx, table, ref, mode)
	if err != nil {
		if rows > 0 {
			env.logger.Error("%d row(s) were inserted before the failure", rows)
		}
		return err
	}

	env.logger.Info("Inserted %d row(s) into %s (mode %s)", rows, ref, mode)
	return nil
}
