package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nguyentantai21042004/vidscribe/internal/config"
	"github.com/nguyentantai21042004/vidscribe/internal/logger"
)

const defaultConfigPath = "config.yaml"

var (
	cfgFile string
	cfg     *config.Config
	cfgErr  error
)

var rootCmd = &cobra.Command{
	Use:   "vidscribe",
	Short: "Turn video links into transcripts and summaries",
	Long: `vidscribe accepts a video URL and an instruction, runs them through one
of several transcription or summarization engines and lets callers poll for
the result.

  - Local speech models (whisper, qwen3_asr) on downloaded audio
  - Remote ASR that fetches published audio (doubao_asr)
  - Direct-link services (tingwu, gemini)

Example:
  vidscribe serve --config config.yaml`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
}

// initConfig loads the config file, falling back to defaults plus the
// environment when the default file does not exist.
func initConfig() {
	path := cfgFile
	if path == "" {
		path = defaultConfigPath
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			cfg, cfgErr = config.Default()
			return
		}
	}
	cfg, cfgErr = config.Load(path)
}

// GetConfig returns the loaded configuration
func GetConfig() (*config.Config, error) {
	if cfgErr != nil {
		return nil, fmt.Errorf("load configuration: %w", cfgErr)
	}
	if cfg == nil {
		return nil, errors.New("configuration not loaded")
	}
	return cfg, nil
}

func newLogger(c *config.Config) logger.Logger {
	return logger.NewWithFormat(c.Logging.Level, c.Logging.Format, os.Stderr)
}
