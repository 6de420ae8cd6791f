package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"wedding-planner/cmd/weddingctl/output"
	"wedding-planner/internal/api"
	"wedding-planner/internal/apperr"
	"wedding-planner/internal/config"
	"wedding-planner/internal/guestlist"
	"wedding-planner/internal/localstore"
	"wedding-planner/internal/models"
	"wedding-planner/internal/netwatch"
	"wedding-planner/internal/offline"
	"wedding-planner/internal/session"
)

var (
	// Global flags
	apiURL     string
	stateDir   string
	verbose    bool
	jsonOutput bool
)

// env is what every command works with, built once per invocation
type env struct {
	cfg      *config.ClientConfig
	log      zerolog.Logger
	blobs    *localstore.Store
	sessions *session.Store
	client   *api.Client
}

var app *env

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "weddingctl",
	Short: "Manage a wedding guest list from the terminal",
	Long: `weddingctl manages a wedding guest list identified by a short code.

Changes are applied locally first and sent to the server. When the server
cannot be reached, guest and check changes are kept and synced later.

Getting started:
  weddingctl create                 # Create a wedding and remember its code
  weddingctl open ABC234            # Open an existing wedding
  weddingctl guests add "Dana Levi" --city Haifa`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup()
	},
}

// Execute runs the root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		output.Error("%s", describe(err))
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "", "API base URL (default $WEDDING_API_URL)")
	rootCmd.PersistentFlags().StringVar(&stateDir, "state-dir", "", "Directory for local state (default $WEDDING_STATE_DIR)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
}

func setup() error {
	cfg := config.LoadClientConfig()
	if apiURL != "" {
		cfg.APIURL = strings.TrimRight(apiURL, "/")
	}
	if stateDir != "" {
		cfg.StateDir = stateDir
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	log := config.NewLogger(os.Stderr, cfg.LogLevel, cfg.LogPretty)

	blobs, err := localstore.New(filepath.Join(cfg.StateDir, "state.json"))
	if err != nil {
		return err
	}

	app = &env{
		cfg:      cfg,
		log:      log,
		blobs:    blobs,
		sessions: session.New(blobs, session.WithTTL(cfg.SessionTTL)),
		client:   api.New(cfg.APIURL, cfg.HTTPTimeout, api.WithLogger(log)),
	}
	return nil
}

// openStore bootstraps the guest list of the current session. The returned
// close function must be called before exiting.
func openStore(ctx context.Context) (*guestlist.Store, func(), error) {
	sess, err := app.sessions.Load()
	if err != nil {
		return nil, nil, err
	}
	if sess == nil {
		return nil, nil, errors.New("no wedding open, run `weddingctl open <code>` or `weddingctl create`")
	}

	client := app.client.Scoped(sess.Code)
	queue := offline.New(app.blobs, client, app.log)
	monitor := netwatch.New(client.Health, app.cfg.ProbeInterval, app.log)
	store := guestlist.New(client, app.blobs, queue,
		guestlist.WithConnectivity(monitor),
		guestlist.WithLogger(app.log),
	)

	err = store.Bootstrap(ctx)
	switch {
	case err != nil && apperr.KindOf(err) == apperr.Transient:
		output.Warning("Server unreachable, showing cached data")
	case err != nil:
		store.Close()
		return nil, nil, err
	case !store.Found():
		store.Close()
		if err := app.sessions.Clear(); err != nil {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("wedding %s not found or expired", sess.Code)
	}
	return store, store.Close, nil
}

// forgetIfMissing clears the saved session when err says the wedding is gone.
// A failure to clear is reported as a warning; err is returned unchanged.
func forgetIfMissing(err error) error {
	if apperr.KindOf(err) != apperr.NotFound {
		return err
	}
	if cerr := app.sessions.Clear(); cerr != nil {
		output.Warning("Could not forget the saved wedding: %s", cerr)
	}
	return err
}

// report prints the outcome of a write and hides queued writes from the exit code
func report(err error, format string, args ...interface{}) error {
	switch {
	case err == nil:
		output.Success(format, args...)
		return nil
	case guestlist.Queued(err):
		output.Warning(format+" (offline, will sync later)", args...)
		return nil
	default:
		return err
	}
}

func describe(err error) string {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return fmt.Sprintf("%s (%s)", apperr.Message(err), ae.Kind)
	}
	return err.Error()
}

func printJSON(v any) error {
	enc := json.NewEncoder(output.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Newf(apperr.Validation, "invalid id %q", arg)
	}
	return id, nil
}

// resolveCity accepts a city id or a case-insensitive city name
func resolveCity(store *guestlist.Store, arg string) (int64, error) {
	if id, err := strconv.ParseInt(arg, 10, 64); err == nil {
		return id, nil
	}
	for _, c := range store.Cities() {
		if strings.EqualFold(c.Name, arg) {
			return c.ID, nil
		}
	}
	return 0, apperr.Newf(apperr.NotFound, "city %q not found", arg)
}

// resolveCategory accepts a column id or a case-insensitive column name
func resolveCategory(store *guestlist.Store, arg string) (int64, error) {
	if id, err := strconv.ParseInt(arg, 10, 64); err == nil {
		return id, nil
	}
	for _, c := range store.Categories() {
		if strings.EqualFold(c.Name, arg) {
			return c.ID, nil
		}
	}
	return 0, apperr.Newf(apperr.NotFound, "column %q not found", arg)
}

func cityName(cities []models.City, id *int64) string {
	if id == nil {
		return "-"
	}
	for _, c := range cities {
		if c.ID == *id {
			return c.Name
		}
	}
	return "?"
}

func idString(id int64) string {
	if id < 0 {
		return strconv.FormatInt(id, 10) + " (pending)"
	}
	return strconv.FormatInt(id, 10)
}
