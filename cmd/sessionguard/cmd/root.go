// Package cmd provides the CLI commands for sessionguard.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/TanmoySin/sessionguard/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "sessionguard",
	Short: "sessionguard - session lifecycle client for the task service",
	Long: `sessionguard manages an authenticated session against the task service:
it logs in or resumes a persisted session, keeps the local view of the
idle budget converged with the server, warns before idle expiry, and
tears the session down cleanly when it ends for any reason.

Quick start:
  1. Create a config file: sessionguard.yaml with server.base_url
  2. Run: sessionguard run --email you@example.com --password ...

Configuration:
  Config is loaded from sessionguard.yaml in the current directory,
  $HOME/.sessionguard/, or /etc/sessionguard/.

  Environment variables can override config values with the SESSIONGUARD_ prefix.
  Example: SESSIONGUARD_SERVER_BASE_URL=https://api.example.com

Commands:
  run         Log in (or resume) and hold the session until it ends
  status      Show the current session state
  logout      End the persisted session
  version     Print version information`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./sessionguard.yaml)")
}

func initConfig() {
	config.InitViper(cfgFile)
}
