package cmd

import (
	"fmt"
	"os"

	"github.com/JonMunkholm/clueboard/internal/app"
	"github.com/JonMunkholm/clueboard/internal/board"
	"github.com/spf13/cobra"
)

func newExportCmd(getApp func() *app.App) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the board as a JSON document",
		Long: `Write every clue and connection as the same JSON document the web
export produces.

Examples:
  boardctl export
  boardctl export -o board.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := getApp().Board.Export(cmd.Context())
			if err != nil {
				return err
			}
			if output == "" {
				return board.WriteDocument(cmd.OutOrStdout(), doc)
			}

			f, err := os.Create(output)
			if err != nil {
				return err
			}
			if err := board.WriteDocument(f, doc); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d clues and %d connections to %s\n",
				len(doc.Clues), len(doc.Connections), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	return cmd
}

func newImportCmd(getApp func() *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the board with a JSON document",
		Long: `Replace every clue and connection with the contents of a JSON
document. Connections are remapped to the new clue ids.

Warning: the current board is deleted first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			res, err := getApp().Board.Import(cmd.Context(), data)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d clues (%d skipped), %d connections (%d skipped)\n",
				res.CluesImported, res.CluesSkipped, res.ConnectionsImported, res.ConnectionsSkipped)
			return nil
		},
	}
}
