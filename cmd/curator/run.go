package main

import (
	"fmt"
	"io"
	"log"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/stickerpress/curator/internal/alerts"
	"github.com/stickerpress/curator/internal/assets"
	"github.com/stickerpress/curator/internal/classifier"
	"github.com/stickerpress/curator/internal/config"
	"github.com/stickerpress/curator/internal/dashboard"
	"github.com/stickerpress/curator/internal/queue"
	"github.com/stickerpress/curator/internal/reprocess"
	"github.com/stickerpress/curator/internal/scanner"
	"github.com/stickerpress/curator/internal/scheduler"
)

func newRunCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the curator daemon",
		Long:  "Starts the cycle scheduler and the ops dashboard, then blocks until SIGINT or SIGTERM.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "curator.yaml", "path to curator config file")
	return cmd
}

func runDaemon(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	gdb, cfg, err := openDatabase(configPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Connected to %s database %q\n", cfg.Database.Driver, databaseName(cfg))

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := queue.NewStore(gdb)
	storage := assets.NewDir(cfg.AssetRoot)
	client := classifier.NewClient(cfg.Classifier.BaseURL, cfg.ClassifierTimeout())

	sched := scheduler.New(cfg,
		store,
		scanner.New(gdb, store, cfg, out),
		reprocess.NewWorker(gdb, store, storage, client, cfg, out),
		reprocess.NewPendingPool(gdb, storage, client, cfg, out),
		reprocess.NewBatchReprocessor(gdb, cfg, out),
		buildDispatcher(cfg, out),
		out)

	schedDone := make(chan error, 1)
	go func() { schedDone <- sched.Run(ctx) }()

	if cfg.Dashboard.Enabled {
		go func() {
			err := dashboard.Start(ctx, dashboard.StartOpts{
				Store: store,
				Sched: sched,
				Port:  cfg.Dashboard.Port,
				Out:   out,
			})
			if err != nil {
				log.Printf("dashboard: %v", err)
			}
		}()
	}

	<-ctx.Done()
	fmt.Fprintln(out, "Shutting down...")
	sched.Stop()
	if err := <-schedDone; err != nil {
		return err
	}
	fmt.Fprintln(out, "Curator stopped.")
	return nil
}

// buildDispatcher wires the configured alert destinations. Misconfigured
// destinations are logged and skipped rather than blocking startup.
func buildDispatcher(cfg *config.Config, out io.Writer) *alerts.Dispatcher {
	var targets []alerts.Notifier

	if cfg.Alerts.Slack.Token != "" {
		slack, err := alerts.NewSlack(cfg.Alerts.Slack.Token, cfg.Alerts.Slack.Channel)
		if err != nil {
			log.Printf("alerts: slack disabled: %v", err)
		} else {
			targets = append(targets, slack)
		}
	}
	if cfg.Alerts.Discord.Token != "" {
		discord, err := alerts.NewDiscord(cfg.Alerts.Discord.Token, cfg.Alerts.Discord.Channel)
		if err != nil {
			log.Printf("alerts: discord disabled: %v", err)
		} else {
			targets = append(targets, discord)
		}
	}

	if len(targets) == 0 {
		return nil
	}
	return alerts.NewDispatcher(out, targets...)
}
