package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	syncpkg "github.com/stevoh213/cragbook/internal/sync"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the background sync scheduler until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		sched := syncpkg.NewScheduler(a.coord, a.owner, syncpkg.SchedulerConfig{
			Interval: a.cfg.SyncInterval,
			Logger:   a.log,
		})
		sched.Start(ctx)
		sched.TriggerSync(ctx)

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig

		a.log.Info().Msg("shutting down")
		cancel()
		sched.Stop()
		return nil
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one sync pass and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
		defer cancel()

		if err := a.coord.PerformSync(ctx, a.owner); err != nil {
			return err
		}

		state, err := a.coord.State(ctx, a.owner)
		if err != nil {
			return err
		}
		fmt.Printf("Synced at %s; %d change(s) still pending\n",
			state.LastSyncAt.Format(time.RFC3339), state.PendingOps)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show sync health: watermark, pending and failed changes",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		state, err := a.coord.State(cmd.Context(), a.owner)
		if err != nil {
			return err
		}

		lastSync := "never"
		if !state.LastSyncAt.IsZero() {
			lastSync = state.LastSyncAt.Format(time.RFC3339)
		}
		fmt.Printf("Last sync:       %s\n", lastSync)
		fmt.Printf("Dirty records:   %d\n", state.DirtyCount)
		fmt.Printf("Pending changes: %d\n", state.PendingOps)
		fmt.Printf("Failed changes:  %d\n", state.DeadOps)
		if state.LastError != nil {
			fmt.Printf("Last error:      %v\n", state.LastError)
		}
		return nil
	},
}

var retryCmd = &cobra.Command{
	Use:   "retry",
	Short: "Requeue failed changes and push them",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
		defer cancel()

		revived, err := a.coord.RequeueDead(ctx)
		if err != nil {
			return err
		}
		if revived == 0 {
			fmt.Println("No failed changes to retry")
			return nil
		}

		fmt.Printf("Requeued %d change(s), pushing...\n", revived)
		return a.coord.PushPendingChanges(ctx, a.owner)
	},
}
