package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vvka-141/pgdal/internal/db"
	"github.com/vvka-141/pgdal/internal/db/catalog"
	"github.com/vvka-141/pgdal/pkg/pgdal"
)

var existsCmd = &cobra.Command{
	Use:   "exists <schema.table>",
	Short: "Report whether a table exists",
	Long: `Exists prints true or false. A missing schema counts as a missing table.
The schema defaults to public.

With --strict a missing table exits with code 14 instead of printing false.

Examples:
  pgdal exists sales.orders
  pgdal exists staging.import --strict || pgdal exec create_staging.sql`,
	Args: cobra.ExactArgs(1),
	RunE: runExists,
}

var existsStrict bool

func init() {
	rootCmd.AddCommand(existsCmd)
	existsCmd.Flags().BoolVar(&existsStrict, "strict", false, "Exit with code 14 when the table does not exist")
}

func runExists(cmd *cobra.Command, args []string) error {
	ref, err := pgdal.ParseTableRef(args[0])
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

	exists, err := catalog.New().TableExists(ctx, db.NewPoolAdapter(pool), ref)
	if err != nil {
		return err
	}
	if !exists && existsStrict {
		return fmt.Errorf("table %s: %w", ref, pgdal.ErrNotFound)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), exists)
	return err
}
