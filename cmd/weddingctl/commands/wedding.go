package commands

import (
	"time"

	"github.com/spf13/cobra"

	"wedding-planner/cmd/weddingctl/output"
	"wedding-planner/internal/apperr"
	"wedding-planner/internal/code"
	"wedding-planner/internal/models"
)

var sharePhone string

// createCmd creates a wedding
var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a wedding and open it",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := app.client.CreateWedding(cmd.Context())
		if err != nil {
			return err
		}
		return remember(w, "Wedding created")
	},
}

// openCmd opens an existing wedding
var openCmd = &cobra.Command{
	Use:   "open <code>",
	Short: "Open an existing wedding by its code",
	Long: `Open an existing wedding by its code. Dashes, spaces and lowercase
letters are ignored, so "abc-234" opens ABC234.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		wcode := code.Normalize(args[0])
		if !code.IsValid(wcode) {
			return apperr.New(apperr.Validation, "invalid code")
		}
		w, err := app.client.OpenWedding(cmd.Context(), wcode)
		if err != nil {
			return forgetIfMissing(err)
		}
		return remember(w, "Wedding opened")
	},
}

// renewCmd extends the wedding expiry
var renewCmd = &cobra.Command{
	Use:   "renew",
	Short: "Extend the expiry of the open wedding",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		wcode, err := currentCode()
		if err != nil {
			return err
		}
		w, err := app.client.RenewWedding(cmd.Context(), wcode)
		if err != nil {
			return err
		}
		if _, err := app.sessions.Save(w.Code); err != nil {
			return err
		}
		output.Success("Wedding %s renewed until %s", w.Code, w.ExpiresAt.Local().Format(time.DateTime))
		return nil
	},
}

// deleteCmd deletes the open wedding
var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete the open wedding and all of its data",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		wcode, err := currentCode()
		if err != nil {
			return err
		}
		if err := app.client.DeleteWedding(cmd.Context(), wcode); err != nil {
			return err
		}
		if err := app.sessions.Clear(); err != nil {
			return err
		}
		output.Success("Wedding %s and related data deleted", wcode)
		return nil
	},
}

// logoutCmd forgets the open wedding
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the open wedding on this machine",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.sessions.Clear(); err != nil {
			return err
		}
		output.Success("Logged out")
		return nil
	},
}

// statusCmd shows the session and sync state
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the open wedding and pending changes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := app.sessions.Load()
		if err != nil {
			return err
		}
		if sess == nil {
			output.Info("No wedding open")
			return nil
		}

		store, closeStore, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStore()

		snap := store.Snapshot()
		if jsonOutput {
			return printJSON(map[string]any{
				"code":       sess.Code,
				"expireAt":   sess.ExpireAt,
				"guests":     len(snap.Guests),
				"cities":     len(snap.Cities),
				"categories": len(snap.Categories),
				"pending":    store.Pending(),
			})
		}

		output.Code(sess.Code)
		output.Muted("Remembered on this machine until %s", sess.ExpireAt.Local().Format(time.DateTime))
		output.Info("%d guests, %d cities, %d columns", len(snap.Guests), len(snap.Cities), len(snap.Categories))
		if n := store.Pending(); n > 0 {
			output.Warning("%d changes waiting to sync", n)
		}
		return nil
	},
}

// shareCmd sends the code over WhatsApp
var shareCmd = &cobra.Command{
	Use:   "share",
	Short: "Send the wedding code to a phone over WhatsApp",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		wcode, err := currentCode()
		if err != nil {
			return err
		}
		if sharePhone == "" {
			return apperr.New(apperr.Validation, "--phone is required")
		}
		if err := app.client.ShareWedding(cmd.Context(), wcode, sharePhone); err != nil {
			return err
		}
		output.Success("Code %s sent to %s", wcode, sharePhone)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(createCmd, openCmd, renewCmd, deleteCmd, logoutCmd, statusCmd, shareCmd)

	shareCmd.Flags().StringVar(&sharePhone, "phone", "", "Phone number, local or international format")
}

func remember(w models.Wedding, msg string) error {
	if _, err := app.sessions.Save(w.Code); err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(w)
	}
	output.Success("%s, expires %s", msg, w.ExpiresAt.Local().Format(time.DateTime))
	output.Code(w.Code)
	return nil
}

func currentCode() (string, error) {
	sess, err := app.sessions.Load()
	if err != nil {
		return "", err
	}
	if sess == nil {
		return "", apperr.New(apperr.Validation, "no wedding open")
	}
	return sess.Code, nil
}
