// Package app implements the main application commands.
package app

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "stoatbridge",
	Short: "StoatBridge migrates Discord servers to Stoat",
	Long: `StoatBridge is a web-based migration wizard that scans a Discord
server and rebuilds its channels, roles, permissions and emojis on a Stoat
instance.`,
	Args: cobra.OnlyValidArgs,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
