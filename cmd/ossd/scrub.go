package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sagarc03/ossd/config"
)

var scrubCmd = &cobra.Command{
	Use:   "scrub <bucket>",
	Short: "Remove unindexed files from a bucket",
	Long: `Reconcile a bucket's filesystem contents against the metadata index.

Files present on disk without a matching index row are unreachable
through the API. They appear when a process dies between publishing
content and committing metadata. This command walks the bucket and
removes them.

Run this periodically to reclaim space from interrupted writes.`,
	Args: cobra.ExactArgs(1),
	RunE: runScrub,
}

func init() {
	rootCmd.AddCommand(scrubCmd)
}

func runScrub(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	bucket := args[0]

	cfg, err := config.FromContext(ctx)
	if err != nil {
		return err
	}

	engine, cleanup, err := buildEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	slog.Info("starting scrub", "bucket", bucket)

	removed, err := engine.Scrub(ctx, bucket)
	if err != nil {
		return fmt.Errorf("scrub: %w", err)
	}

	slog.Info("scrub complete", "bucket", bucket, "files_removed", removed)
	return nil
}
