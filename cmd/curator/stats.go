package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/stickerpress/curator/internal/models"
	"github.com/stickerpress/curator/internal/queue"
)

func newStatsCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show reprocess queue depth by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "curator.yaml", "path to curator config file")
	return cmd
}

func runStats(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	gdb, _, err := openDatabase(configPath)
	if err != nil {
		return err
	}

	counts, err := queue.NewStore(gdb).Counts()
	if err != nil {
		return err
	}

	total := int64(0)
	for _, status := range []string{
		models.JobStatusPending, models.JobStatusProcessing,
		models.JobStatusCompleted, models.JobStatusFailed,
	} {
		fmt.Fprintf(out, "%-12s %d\n", status, counts[status])
		total += counts[status]
	}
	fmt.Fprintf(out, "%-12s %d\n", "total", total)
	return nil
}
