package cli

import (
	"fmt"

	"github.com/bjarke-xyz/fmh/internal/repository/db"
	"github.com/spf13/cobra"
)

func migrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down]",
		Short:     "Run database migrations (default up)",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down"},
		RunE: func(cmd *cobra.Command, args []string) error {
			direction := "up"
			if len(args) == 1 {
				direction = args[0]
			}
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			conn, err := db.Open(cfg)
			if err != nil {
				return fmt.Errorf("error opening db: %w", err)
			}
			defer db.Close(cfg)
			if err := db.Migrate(direction, conn.DB); err != nil {
				return fmt.Errorf("failed to migrate %v: %w", direction, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrated %v\n", direction)
			return nil
		},
	}
}
