package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"wedding-planner/cmd/weddingctl/output"
	"wedding-planner/internal/apperr"
	"wedding-planner/internal/guestlist"
)

var (
	// Filter flags
	filterSearch  string
	filterCities  []string
	filterColumns []string
	filterApply   bool
)

// filterCmd shows the draft and applied filters
var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "Stage and apply guest list filters",
	Long: `Filters are staged in a draft and only change the guest list once applied.

Examples:
  weddingctl filter set --search levi --city Haifa
  weddingctl filter set --column Invited=checked --column Meal=unchecked
  weddingctl filter apply
  weddingctl filter clear`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStore()

		if jsonOutput {
			return printJSON(map[string]guestlist.Filters{"draft": store.Draft(), "applied": store.Applied()})
		}
		printFilters(store, "Draft", store.Draft())
		printFilters(store, "Applied", store.Applied())
		return nil
	},
}

var filterSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Replace the draft filters",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStore()

		f := guestlist.Filters{Search: filterSearch}
		for _, arg := range filterCities {
			id, err := resolveCity(store, arg)
			if err != nil {
				return err
			}
			f.CityIDs = append(f.CityIDs, id)
		}
		for _, arg := range filterColumns {
			name, value, ok := strings.Cut(arg, "=")
			if !ok {
				return apperr.Newf(apperr.Validation, "invalid column filter %q, use <column>=checked|unchecked|any", arg)
			}
			id, err := resolveCategory(store, name)
			if err != nil {
				return err
			}
			want := guestlist.ColumnFilter(strings.ToLower(value))
			switch want {
			case guestlist.Checked, guestlist.Unchecked:
			case "any":
				want = guestlist.Any
			default:
				return apperr.Newf(apperr.Validation, "invalid column filter value %q", value)
			}
			if f.Columns == nil {
				f.Columns = map[int64]guestlist.ColumnFilter{}
			}
			f.Columns[id] = want
		}

		store.SetDraft(f)
		if filterApply {
			store.ApplyFilters()
			output.Success("Filters applied, %d guests visible", len(store.VisibleGuests()))
			return nil
		}
		output.Success("Draft saved, run `weddingctl filter apply` to use it")
		return nil
	},
}

var filterApplyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply the draft filters",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStore()

		store.ApplyFilters()
		output.Success("Filters applied, %d guests visible", len(store.VisibleGuests()))
		return nil
	},
}

var filterClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the draft and applied filters",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStore()

		store.ClearFilters()
		output.Success("Filters cleared")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(filterCmd)
	filterCmd.AddCommand(filterSetCmd, filterApplyCmd, filterClearCmd)

	filterSetCmd.Flags().StringVar(&filterSearch, "search", "", "Case-insensitive name search")
	filterSetCmd.Flags().StringSliceVar(&filterCities, "city", nil, "City id or name, repeatable")
	filterSetCmd.Flags().StringSliceVar(&filterColumns, "column", nil, "<column>=checked|unchecked|any, repeatable")
	filterSetCmd.Flags().BoolVar(&filterApply, "apply", false, "Apply right away")
}

func printFilters(store *guestlist.Store, label string, f guestlist.Filters) {
	if f.Empty() {
		output.Primary("%s: none", label)
		return
	}
	output.Primary("%s:", label)
	if f.Search != "" {
		output.Info("search %q", f.Search)
	}
	cities := store.Cities()
	for _, id := range f.CityIDs {
		output.Info("city %s", cityName(cities, &id))
	}
	for id, want := range f.Columns {
		if want == guestlist.Any {
			continue
		}
		name := idString(id)
		for _, c := range store.Categories() {
			if c.ID == id {
				name = c.Name
			}
		}
		output.Info("%s is %s", name, want)
	}
}
