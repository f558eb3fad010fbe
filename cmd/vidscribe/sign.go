package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nguyentantai21042004/vidscribe/internal/mediastore"
	"github.com/nguyentantai21042004/vidscribe/internal/signedurl"
)

var signTTL time.Duration

var signCmd = &cobra.Command{
	Use:   "sign <fileId>",
	Short: "Mint a signed public media URL",
	Long: `Mint a signed URL for an artifact in the media store, to check that the
public base URL (tunnel) reaches this server.

The secret must be set in the config or PUBLIC_MEDIA_SECRET, otherwise the
link will not verify against a running server.

Example:
  vidscribe sign 3f2a9c0e5b7d41e8a6c2f1d09b8e7a65.wav --ttl 30m`,
	Args: cobra.ExactArgs(1),
	RunE: runSign,
}

func init() {
	rootCmd.AddCommand(signCmd)
	signCmd.Flags().DurationVar(&signTTL, "ttl", 0, "link lifetime (default is public_media.ttl_seconds)")
}

func runSign(cmd *cobra.Command, args []string) error {
	cfg, err := GetConfig()
	if err != nil {
		return err
	}

	fileID := args[0]
	if !mediastore.ValidID(fileID) {
		return fmt.Errorf("invalid file id %q: want 32 hex chars and .wav", fileID)
	}
	if cfg.PublicMedia.SecretGenerated {
		return fmt.Errorf("public_media.secret is not configured; a random secret would not match the server")
	}

	ttl := signTTL
	if ttl == 0 {
		ttl = cfg.PublicMedia.TTL()
	}

	codec, err := signedurl.New(cfg.PublicMedia.Secret, cfg.PublicMedia.BaseURL)
	if err != nil {
		return err
	}
	u, expires, err := codec.Mint(fileID, ttl)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), u)
	fmt.Fprintf(cmd.ErrOrStderr(), "expires at %s\n", expires.Format(time.RFC3339))
	return nil
}
