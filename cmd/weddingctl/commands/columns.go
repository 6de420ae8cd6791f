package commands

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"wedding-planner/cmd/weddingctl/output"
	"wedding-planner/internal/models"
)

var columnType string

// columnsCmd lists guest list columns
var columnsCmd = &cobra.Command{
	Use:     "columns",
	Aliases: []string{"categories"},
	Short:   "List and manage guest list columns",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStore()

		snap := store.Snapshot()
		if jsonOutput {
			return printJSON(snap.Categories)
		}
		if len(snap.Categories) == 0 {
			output.Info("No columns yet")
			return nil
		}

		rows := make([][]string, 0, len(snap.Categories))
		for _, c := range snap.Categories {
			checked := 0
			for _, g := range snap.Guests {
				if snap.Checks[models.CheckKey(g.ID, c.ID)] {
					checked++
				}
			}
			rows = append(rows, []string{idString(c.ID), c.Name, string(c.Type), itoa(checked)})
		}
		output.Table([]string{"ID", "NAME", "TYPE", "CHECKED"}, rows)
		return nil
	},
}

var columnsAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a column",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStore()

		c, err := store.AddCategory(cmd.Context(), strings.Join(args, " "), models.ColumnType(columnType))
		return report(err, "Column %s added (id %s)", c.Name, idString(c.ID))
	},
}

var columnsRenameCmd = &cobra.Command{
	Use:   "rename <column> <name>",
	Short: "Rename a column, optionally changing its type",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStore()

		id, err := resolveCategory(store, args[0])
		if err != nil {
			return err
		}
		c, err := store.UpdateCategory(cmd.Context(), id, strings.Join(args[1:], " "), models.ColumnType(columnType))
		return report(err, "Column renamed to %s (%s)", c.Name, c.Type)
	},
}

var columnsRmCmd = &cobra.Command{
	Use:     "rm <column>",
	Aliases: []string{"delete"},
	Short:   "Delete a column and all of its checks",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStore()

		id, err := resolveCategory(store, args[0])
		if err != nil {
			return err
		}
		return report(store.DeleteCategory(cmd.Context(), id), "Column deleted")
	},
}

func init() {
	rootCmd.AddCommand(columnsCmd)
	columnsCmd.AddCommand(columnsAddCmd, columnsRenameCmd, columnsRmCmd)

	columnsAddCmd.Flags().StringVar(&columnType, "type", "checkbox", "Column type: checkbox or text")
	columnsRenameCmd.Flags().StringVar(&columnType, "type", "", "New column type, unchanged when empty")
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
