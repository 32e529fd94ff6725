// Package cmd implements the boardctl commands.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/JonMunkholm/clueboard/internal/app"
	"github.com/JonMunkholm/clueboard/internal/config"
	"github.com/JonMunkholm/clueboard/internal/logging"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// NewRootCmd builds the boardctl command tree.
func NewRootCmd() *cobra.Command {
	var (
		envFile string
		a       *app.App
	)

	root := &cobra.Command{
		Use:   "boardctl",
		Short: "Maintain a clue board from the command line",
		Long: `boardctl works directly on the board's database using the same
configuration as the server (environment variables, optionally loaded
from an env file).

It can export and import boards, list clues and connections, reset the
board and change the administrator password.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Skip initialization for help commands
			if cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}
			if envFile != "" {
				if err := godotenv.Load(envFile); err != nil {
					return fmt.Errorf("load env file: %w", err)
				}
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			slog.SetDefault(logging.New(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format))

			a, err = app.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			return a.EnsureAdmin(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a == nil {
				return nil
			}
			return a.Close()
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", "", "load environment variables from this file")

	getApp := func() *app.App { return a }
	root.AddCommand(
		newExportCmd(getApp),
		newImportCmd(getApp),
		newCluesCmd(getApp),
		newConnectionsCmd(getApp),
		newResetCmd(getApp),
		newPasswdCmd(getApp),
	)
	return root
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
