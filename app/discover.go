package app

import (
	"github.com/spf13/cobra"

	"github.com/vobridge/vobridge/internal/daemon"
)

func init() { //nolint: gochecknoinits
	rootCmd.AddCommand(discoverCmd)
}

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Backfill directory member ids for identities that predate id-based sync",
	RunE: func(cmd *cobra.Command, _ []string) error {
		d, err := daemon.New(&cfg)
		if err != nil {
			return err
		}

		found, err := d.DiscoverExternalIDs(cmd.Context())
		if err != nil {
			return err
		}

		return printJSON(found)
	},
}
