package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"wedding-planner/cmd/weddingctl/output"
)

// citiesCmd lists cities
var citiesCmd = &cobra.Command{
	Use:   "cities",
	Short: "List and manage cities",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStore()

		snap := store.Snapshot()
		if jsonOutput {
			return printJSON(snap.Cities)
		}
		if len(snap.Cities) == 0 {
			output.Info("No cities yet")
			return nil
		}

		counts := map[int64]int{}
		for _, g := range snap.Guests {
			if g.CityID != nil {
				counts[*g.CityID]++
			}
		}
		rows := make([][]string, 0, len(snap.Cities))
		for _, c := range snap.Cities {
			rows = append(rows, []string{idString(c.ID), c.Name, itoa(counts[c.ID])})
		}
		output.Table([]string{"ID", "NAME", "GUESTS"}, rows)
		return nil
	},
}

var citiesAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a city",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStore()

		c, err := store.AddCity(cmd.Context(), strings.Join(args, " "))
		return report(err, "City %s added (id %s)", c.Name, idString(c.ID))
	},
}

var citiesRenameCmd = &cobra.Command{
	Use:   "rename <city> <name>",
	Short: "Rename a city",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStore()

		id, err := resolveCity(store, args[0])
		if err != nil {
			return err
		}
		c, err := store.RenameCity(cmd.Context(), id, strings.Join(args[1:], " "))
		return report(err, "City renamed to %s", c.Name)
	},
}

var citiesRmCmd = &cobra.Command{
	Use:     "rm <city>",
	Aliases: []string{"delete"},
	Short:   "Delete a city, its guests stay without a city",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStore()

		id, err := resolveCity(store, args[0])
		if err != nil {
			return err
		}
		return report(store.DeleteCity(cmd.Context(), id), "City deleted")
	},
}

func init() {
	rootCmd.AddCommand(citiesCmd)
	citiesCmd.AddCommand(citiesAddCmd, citiesRenameCmd, citiesRmCmd)
}
