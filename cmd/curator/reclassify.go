package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/stickerpress/curator/internal/reprocess"
)

func newReclassifyCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "reclassify",
		Short: "Run one deterministic reclassification sweep in the foreground",
		Long:  "Re-derives subtags, dominant theme, and cohesion for existing classification records. No classifier calls are made; only records whose derived state drifted are written.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReclassify(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "curator.yaml", "path to curator config file")
	return cmd
}

func runReclassify(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	gdb, cfg, err := openDatabase(configPath)
	if err != nil {
		return err
	}

	stats, err := reprocess.NewBatchReprocessor(gdb, cfg, cmd.ErrOrStderr()).Run()
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Sweep complete: processed=%d updated=%d skipped=%d failed=%d batches=%d\n",
		stats.Processed, stats.Updated, stats.Skipped, stats.Failed, stats.Batches)
	return nil
}
