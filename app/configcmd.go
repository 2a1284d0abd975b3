package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stoatbridge/stoatbridge/internal/config"
)

func init() { //nolint: gochecknoinits
	configCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the configuration directory")

	configCmd.AddCommand(configDumpCmd)
	rootCmd.AddCommand(configCmd)
}

var (
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Inspect the active configuration",
	}

	configDumpCmd = &cobra.Command{
		Use:   "dump",
		Short: "Print the active configuration as TOML",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.ReadConfig(configPath)
			if err != nil {
				return err
			}

			out, err := config.DumpConfig(&cfg)
			if err != nil {
				return err
			}

			fmt.Print(out)

			return nil
		},
	}
)
