package app

import (
	"github.com/spf13/cobra"

	"github.com/vobridge/vobridge/internal/daemon"
)

func init() { //nolint: gochecknoinits
	rootCmd.AddCommand(scanCmd)
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Report duplicate account sets grouped by normalized uid",
	RunE: func(_ *cobra.Command, _ []string) error {
		d, err := daemon.New(&cfg)
		if err != nil {
			return err
		}

		report, err := d.Scan()
		if err != nil {
			return err
		}

		return printJSON(report)
	},
}
