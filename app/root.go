// Package app implements the main application commands.
package app

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vobridge/vobridge/internal/config"
	"github.com/vobridge/vobridge/internal/logger"
)

var (
	configPath string // Path to the configuration directory
	cfg        config.Config
)

var rootCmd = &cobra.Command{
	Use:   "vobridge",
	Short: "vobridge connects a platform's logins to a VereinOnline member directory",
	Long: `vobridge authenticates users against a VereinOnline membership
directory, keeps a local identity mirror in sync with it and gives
operators a duplicate scan over historical account casings.`,
	Args: cobra.OnlyValidArgs,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		var err error
		if cfg, err = config.ReadConfig(configPath); err != nil {
			return err
		}

		return logger.Init(cfg.Log)
	},
}

func init() { //nolint: gochecknoinits
	rootCmd.PersistentFlags().StringVar(
		&configPath,
		"config",
		"",
		"path to the configuration directory (default ./etc/)",
	)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// printJSON writes v to stdout for one-shot command output.
func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	fmt.Println(string(data))

	return nil
}
