package app

import (
	"github.com/spf13/cobra"

	"github.com/vobridge/vobridge/internal/daemon"
)

func init() { //nolint: gochecknoinits
	rootCmd.AddCommand(syncCmd)
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one bulk sync over all known identities",
	RunE: func(cmd *cobra.Command, _ []string) error {
		d, err := daemon.New(&cfg)
		if err != nil {
			return err
		}

		summary, err := d.SyncAll(cmd.Context())
		if err != nil {
			return err
		}

		return printJSON(summary)
	},
}
