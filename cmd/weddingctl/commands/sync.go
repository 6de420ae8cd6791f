package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"wedding-planner/cmd/weddingctl/output"
	"wedding-planner/internal/guestlist"
	"wedding-planner/internal/netwatch"
	"wedding-planner/internal/offline"
)

// syncCmd replays pending changes and reloads
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Send pending changes and reload the guest list",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStore()

		if err := store.SyncNow(cmd.Context()); err != nil {
			if n := store.Pending(); n > 0 {
				output.Warning("%d changes still waiting to sync", n)
			}
			return err
		}
		output.Success("In sync, %d guests", len(store.Guests()))
		return nil
	},
}

// queueCmd shows pending changes
var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Show changes waiting to sync",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		list, err := offline.New(app.blobs, app.client, app.log).List()
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(list)
		}
		if len(list) == 0 {
			output.Info("Nothing waiting to sync")
			return nil
		}
		rows := make([][]string, 0, len(list))
		for _, m := range list {
			id := m.ID
			if len(id) > 8 {
				id = id[:8]
			}
			rows = append(rows, []string{id, m.Code, m.Method, m.URL, string(m.Body)})
		}
		output.Table([]string{"ID", "CODE", "METHOD", "PATH", "BODY"}, rows)
		return nil
	},
}

var queueListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show changes waiting to sync",
	Args:  cobra.NoArgs,
}

var queueClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop every change waiting to sync",
	Long: `Drop every change waiting to sync. Use this when the server rejected a
queued change and the queue cannot make progress.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		q := offline.New(app.blobs, app.client, app.log)
		n := q.Len()
		if err := q.Clear(); err != nil {
			return err
		}
		output.Success("Dropped %d pending changes", n)
		return nil
	},
}

// watchCmd keeps the store open and syncs on reconnect
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stay connected, sync whenever the server becomes reachable",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		sess, err := app.sessions.Load()
		if err != nil {
			return err
		}
		if sess == nil {
			return errors.New("no wedding open")
		}

		client := app.client.Scoped(sess.Code)
		monitor := netwatch.New(client.Health, app.cfg.ProbeInterval, app.log)
		store := guestlist.New(client, app.blobs, offline.New(app.blobs, client, app.log),
			guestlist.WithConnectivity(monitor),
			guestlist.WithLogger(app.log),
		)
		defer store.Close()

		last := ""
		cancel := store.Subscribe(func(s guestlist.Snapshot) {
			line := fmt.Sprintf("%d guests, %d cities, %d columns, %d pending",
				len(s.Guests), len(s.Cities), len(s.Categories), store.Pending())
			if line != last {
				last = line
				output.Muted("[%s] %s", time.Now().Format(time.TimeOnly), line)
			}
		})
		defer cancel()

		if err := store.Bootstrap(ctx); err != nil {
			output.Warning("Server unreachable, waiting for it: %s", describe(err))
		}
		output.Info("Watching %s, press Ctrl+C to stop", sess.Code)

		stopSync := monitor.OnOnline(func() {
			output.Success("Back online, syncing")
			go func() {
				if err := store.SyncNow(ctx); err != nil && !errors.Is(err, guestlist.ErrSyncBusy) {
					output.Warning("Sync failed: %s", describe(err))
				}
			}()
		})
		defer stopSync()
		monitor.Run(ctx)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(syncCmd, queueCmd, watchCmd)
	queueListCmd.RunE = queueCmd.RunE
	queueCmd.AddCommand(queueListCmd, queueClearCmd)
}
