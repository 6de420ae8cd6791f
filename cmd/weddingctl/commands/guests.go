package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"wedding-planner/cmd/weddingctl/output"
	"wedding-planner/internal/apperr"
	"wedding-planner/internal/guestlist"
	"wedding-planner/internal/models"
)

var (
	// Guest flags
	guestCity string
	noCity    bool
	showAll   bool
)

// guestsCmd lists guests through the applied filters
var guestsCmd = &cobra.Command{
	Use:   "guests",
	Short: "List and manage guests",
	Long: `List guests through the applied filters, or manage them with a subcommand.

Examples:
  weddingctl guests                         # Guests passing the applied filters
  weddingctl guests --all                   # Every guest
  weddingctl guests add "Dana Levi" --city Haifa
  weddingctl guests rename 12 "Dana Cohen"
  weddingctl guests move 12 --city Eilat
  weddingctl guests rm 12`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStore()

		guests := store.VisibleGuests()
		if showAll {
			guests = store.Guests()
		}
		return printGuests(store, guests)
	},
}

var guestsAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a guest",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStore()

		var cityID *int64
		if guestCity != "" {
			id, err := resolveCity(store, guestCity)
			if err != nil {
				return err
			}
			cityID = &id
		}

		g, err := store.AddGuest(cmd.Context(), strings.Join(args, " "), cityID)
		return report(err, "Guest %s added (id %s)", g.Name, idString(g.ID))
	},
}

var guestsRenameCmd = &cobra.Command{
	Use:   "rename <id> <name>",
	Short: "Rename a guest",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		store, closeStore, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStore()

		current, err := findGuest(store, id)
		if err != nil {
			return err
		}
		name := strings.Join(args[1:], " ")
		g, err := store.UpdateGuest(cmd.Context(), id, &name, current.CityID)
		return report(err, "Guest renamed to %s", g.Name)
	},
}

var guestsMoveCmd = &cobra.Command{
	Use:   "move <id>",
	Short: "Move a guest to another city, or to none with --none",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		if guestCity == "" && !noCity {
			return apperr.New(apperr.Validation, "--city or --none is required")
		}
		store, closeStore, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStore()

		var cityID *int64
		if !noCity {
			cid, err := resolveCity(store, guestCity)
			if err != nil {
				return err
			}
			cityID = &cid
		}
		g, err := store.UpdateGuest(cmd.Context(), id, nil, cityID)
		return report(err, "Guest %s moved to %s", g.Name, cityName(store.Cities(), g.CityID))
	},
}

var guestsRmCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"delete"},
	Short:   "Delete a guest",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		store, closeStore, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStore()

		return report(store.DeleteGuest(cmd.Context(), id), "Guest %d deleted", id)
	},
}

// checkCmd sets a check cell
var checkCmd = &cobra.Command{
	Use:   "check <guest-id> <column> [on|off]",
	Short: "Tick or untick a guest in a checkbox column",
	Long: `Tick or untick a guest in a checkbox column. The column may be given by
id or name. The value defaults to on.

Examples:
  weddingctl check 12 Invited
  weddingctl check 12 Invited off`,
	Args: cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		guestID, err := parseID(args[0])
		if err != nil {
			return err
		}
		checked := true
		if len(args) == 3 {
			switch strings.ToLower(args[2]) {
			case "on", "yes", "true", "1":
			case "off", "no", "false", "0":
				checked = false
			default:
				return apperr.Newf(apperr.Validation, "invalid value %q, use on or off", args[2])
			}
		}

		store, closeStore, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStore()

		categoryID, err := resolveCategory(store, args[1])
		if err != nil {
			return err
		}
		state := "off"
		if checked {
			state = "on"
		}
		return report(store.ToggleCheck(cmd.Context(), guestID, categoryID, checked), "Guest %d set %s", guestID, state)
	},
}

func init() {
	rootCmd.AddCommand(guestsCmd, checkCmd)
	guestsCmd.AddCommand(guestsAddCmd, guestsRenameCmd, guestsMoveCmd, guestsRmCmd)

	guestsCmd.Flags().BoolVar(&showAll, "all", false, "Ignore the applied filters")
	guestsAddCmd.Flags().StringVar(&guestCity, "city", "", "City id or name")
	guestsMoveCmd.Flags().StringVar(&guestCity, "city", "", "City id or name")
	guestsMoveCmd.Flags().BoolVar(&noCity, "none", false, "Remove the guest from any city")
}

func findGuest(store *guestlist.Store, id int64) (models.Guest, error) {
	for _, g := range store.Guests() {
		if g.ID == id {
			return g, nil
		}
	}
	return models.Guest{}, apperr.New(apperr.NotFound, "guest not found")
}

func printGuests(store *guestlist.Store, guests []models.Guest) error {
	snap := store.Snapshot()
	if jsonOutput {
		return printJSON(guests)
	}
	if len(guests) == 0 {
		output.Info("No guests found")
		return nil
	}

	header := []string{"ID", "NAME", "CITY"}
	for _, c := range snap.Categories {
		header = append(header, strings.ToUpper(c.Name))
	}
	rows := make([][]string, 0, len(guests))
	for _, g := range guests {
		row := []string{idString(g.ID), g.Name, cityName(snap.Cities, g.CityID)}
		for _, c := range snap.Categories {
			cell := ""
			if c.Type == models.ColumnCheckbox {
				cell = "[ ]"
				if snap.Checks[models.CheckKey(g.ID, c.ID)] {
					cell = "[x]"
				}
			}
			row = append(row, cell)
		}
		rows = append(rows, row)
	}
	output.Table(header, rows)
	if !snap.Applied.Empty() && !showAll {
		output.Muted("%d of %d guests shown, filters applied", len(guests), len(snap.Guests))
	}
	return nil
}
