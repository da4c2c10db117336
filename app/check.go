package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vobridge/vobridge/internal/daemon"
)

func init() { //nolint: gochecknoinits
	rootCmd.AddCommand(checkCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Test the directory API connection and credentials",
	RunE: func(cmd *cobra.Command, _ []string) error {
		d, err := daemon.New(&cfg)
		if err != nil {
			return err
		}

		if err := d.TestDirectory(cmd.Context()); err != nil {
			return fmt.Errorf("directory check failed: %w", err)
		}

		fmt.Println("directory connection ok")

		return nil
	},
}
