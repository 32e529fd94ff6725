package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/clueboard/internal/admin"
	"github.com/JonMunkholm/clueboard/internal/app"
	"github.com/spf13/cobra"
)

func newResetCmd(getApp func() *app.App) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every clue and connection",
		Long: `Delete every clue and connection. Accounts are kept.

Warning: This operation cannot be undone. Export the board first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to reset without --yes")
			}
			res, err := admin.ResetBoard(cmd.Context(), getApp().Store)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d clues and %d connections\n", res.Clues, res.Connections)
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the reset")
	return cmd
}

func newPasswdCmd(getApp func() *app.App) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "passwd <username>",
		Short: "Change an account password",
		Long: `Change an account password and end all of its sessions.

The password is read from the first line of stdin unless --password is set.

Examples:
  echo 'n3w-secret' | boardctl passwd admin`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return errors.New("no password given on stdin")
				}
				password = strings.TrimRight(line, "\r\n")
			}
			if err := getApp().Auth.ChangePassword(cmd.Context(), args[0], password); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "password changed for %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "new password (visible in shell history)")
	return cmd
}
