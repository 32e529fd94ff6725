package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/JonMunkholm/clueboard/internal/app"
	"github.com/JonMunkholm/clueboard/internal/board"
	"github.com/spf13/cobra"
)

func newCluesCmd(getApp func() *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "clues",
		Short: "List all clues",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			clues, err := getApp().Board.ListClues(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tPOSITION\tTIMESTAMP")
			for _, c := range clues {
				ts := "-"
				if c.Timestamp != nil {
					ts = board.FormatTimestamp(*c.Timestamp)
				}
				fmt.Fprintf(w, "%d\t%s\t%g,%g\t%s\n", c.ID, c.Title, c.PosX, c.PosY, ts)
			}
			return w.Flush()
		},
	}
}

func newConnectionsCmd(getApp func() *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "connections",
		Short: "List all connections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conns, err := getApp().Board.ListConnections(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSOURCE\tTARGET\tCOMMENT")
			for _, c := range conns {
				comment := ""
				if c.Comment != nil {
					comment = *c.Comment
				}
				fmt.Fprintf(w, "%d\t%d\t%d\t%s\n", c.ID, c.SourceID, c.TargetID, comment)
			}
			return w.Flush()
		},
	}
}
