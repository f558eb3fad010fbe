package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nguyentantai21042004/vidscribe/internal/mediastore"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Evict expired artifacts from the media store once",
	Long: `Run one eviction pass over public_media.dir, deleting artifacts older than
ttl_seconds + grace_seconds. The server does this on its own every
cleanup_interval; this command is for cron jobs and manual recovery.`,
	RunE: runCleanup,
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
}

func runCleanup(cmd *cobra.Command, args []string) error {
	cfg, err := GetConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	store, err := mediastore.New(cfg.PublicMedia.Dir, cfg.PublicMedia.Retention(), cfg.PublicMedia.CleanupInterval, log)
	if err != nil {
		return err
	}
	n, err := store.Cleanup(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "removed %d expired artifacts from %s\n", n, cfg.PublicMedia.Dir)
	return nil
}
