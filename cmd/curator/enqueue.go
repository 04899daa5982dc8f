package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/stickerpress/curator/internal/models"
	"github.com/stickerpress/curator/internal/queue"
)

func newEnqueueCmd() *cobra.Command {
	var configPath string
	var reason string
	var priority int

	cmd := &cobra.Command{
		Use:   "enqueue <asset-id> [asset-id...]",
		Short: "Enqueue reprocess jobs for specific assets",
		Long:  "Inserts a reprocess job per asset unless one is already active for the same reason. Reasons: MODEL_UPGRADE, LOW_CONFIDENCE, TREND_SHIFT, NSFW_REVIEW.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnqueue(cmd, configPath, reason, priority, args)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "curator.yaml", "path to curator config file")
	cmd.Flags().StringVarP(&reason, "reason", "r", models.ReasonModelUpgrade, "job reason")
	cmd.Flags().IntVarP(&priority, "priority", "p", 50, "job priority (1-100)")
	return cmd
}

func runEnqueue(cmd *cobra.Command, configPath, reason string, priority int, assetIDs []string) error {
	out := cmd.OutOrStdout()

	reason = strings.ToUpper(reason)
	if !models.ValidReason(reason) {
		return fmt.Errorf("unknown reason %q", reason)
	}

	gdb, cfg, err := openDatabase(configPath)
	if err != nil {
		return err
	}
	store := queue.NewStore(gdb)

	inserted := 0
	for _, id := range assetIDs {
		ok, err := store.Enqueue(id, reason, queue.EnqueueOpts{
			Priority:    priority,
			MaxAttempts: cfg.Queue.MaxAttempts,
		})
		if err != nil {
			return err
		}
		if ok {
			inserted++
			fmt.Fprintf(out, "Enqueued %s (%s, priority %d)\n", id, reason, priority)
		} else {
			fmt.Fprintf(out, "Skipped %s: job already active\n", id)
		}
	}

	fmt.Fprintf(out, "%d of %d jobs inserted\n", inserted, len(assetIDs))
	return nil
}
