package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/nguyentantai21042004/vidscribe/internal/acquisition"
	"github.com/nguyentantai21042004/vidscribe/internal/httpapi"
	"github.com/nguyentantai21042004/vidscribe/internal/llm"
	"github.com/nguyentantai21042004/vidscribe/internal/mediastore"
	"github.com/nguyentantai21042004/vidscribe/internal/processor"
	"github.com/nguyentantai21042004/vidscribe/internal/signedurl"
	"github.com/nguyentantai21042004/vidscribe/internal/summarizer"
	"github.com/nguyentantai21042004/vidscribe/internal/task"
	"github.com/nguyentantai21042004/vidscribe/pkg/executor"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the worker pool",
	Long: `Start the HTTP API, the task workers, the media janitor and the task
sweeper. Stops gracefully on SIGINT or SIGTERM.

Example:
  vidscribe serve --config config.yaml`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := GetConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info(ctx, "========================================")
	log.Info(ctx, "vidscribe starting")
	log.Info(ctx, "========================================")
	log.Info(ctx, "System: %s/%s, CPU cores: %d", runtime.GOOS, runtime.GOARCH, runtime.NumCPU())
	if cfg.PublicMedia.SecretGenerated {
		log.Warn(ctx, "public_media.secret is not set, using a random secret: links die with this process")
	}

	if err := os.MkdirAll(cfg.Paths.Temp, 0o755); err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}

	exec := executor.New()
	converter := acquisition.NewConverter(acquisition.WithFFmpegPath(cfg.FFmpeg.BinaryPath), acquisition.WithExecutor(exec))
	if err := converter.VerifyInstalled(ctx); err != nil {
		log.Warn(ctx, "Tasks that need local media will fail: %v", err)
	}

	store, err := mediastore.New(cfg.PublicMedia.Dir, cfg.PublicMedia.Retention(), cfg.PublicMedia.CleanupInterval, log)
	if err != nil {
		return err
	}
	codec, err := signedurl.New(cfg.PublicMedia.Secret, cfg.PublicMedia.BaseURL)
	if err != nil {
		return err
	}
	pub, err := newPublisher(cfg, codec)
	if err != nil {
		return err
	}

	registry, err := buildRegistry(cfg, exec, log)
	if err != nil {
		return err
	}

	eventPub := newEvents(ctx, cfg, log)
	defer eventPub.Close()

	manager := task.New(registry, cfg.Workers.QueueSize, log,
		task.WithDefaultEngine(defaultEngine(registry)),
		task.WithObserver(func(s task.Snapshot) { eventPub.Publish(ctx, toEvent(s)) }),
	)

	procOpts := []processor.Option{}
	if cfg.Summarizer.Enabled {
		client := llm.New(cfg.Summarizer.APIKeys, cfg.Summarizer.Model, log)
		procOpts = append(procOpts, processor.WithSummarizer(summarizer.New(client, log)))
	}
	proc := processor.New(manager, registry, acquisition.New(cfg, store, exec, log), pub, store, log, procOpts...)

	// Workers outlive the HTTP server so in-flight tasks can finish while
	// the listener drains.
	workCtx, stopWork := context.WithCancel(context.WithoutCancel(ctx))
	defer stopWork()

	pool := task.NewPool(manager, cfg.Workers.Count, proc.Process, log)
	pool.Start(workCtx)

	go store.Run(workCtx)
	go func() {
		if err := store.Watch(workCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Warn(ctx, "Media watcher stopped: %v", err)
		}
	}()
	go task.RunSweeper(workCtx, manager, cfg.Workers.TaskRetention, cfg.Workers.SweepInterval, log)
	go eventPub.Run(workCtx)

	gin.SetMode(gin.ReleaseMode)
	handler := httpapi.NewHandler(httpapi.Deps{
		Tasks:   manager,
		Store:   store,
		Codec:   codec,
		Engines: registry.Names,
		TempDir: cfg.Paths.Temp,
		Logger:  log,
	})
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           httpapi.NewRouter(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	log.Info(ctx, "========================================")
	log.Info(ctx, "vidscribe is ready on %s", cfg.Server.Addr)
	log.Info(ctx, "Engines: %v (default: %s)", registry.Names(), defaultEngine(registry))
	log.Info(ctx, "Public media: %s (ttl %s, backend %s)", cfg.PublicMedia.BaseURL, cfg.PublicMedia.TTL(), cfg.Publish.Backend)
	log.Info(ctx, "Workers: %d, queue: %d", cfg.Workers.Count, cfg.Workers.QueueSize)
	log.Info(ctx, "========================================")

	var serveErr error
	select {
	case <-ctx.Done():
		log.Info(ctx, "Shutdown signal received")
	case serveErr = <-errChan:
		log.Error(ctx, "HTTP server error: %v", serveErr)
	}

	log.Info(ctx, "Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn(shutdownCtx, "HTTP shutdown: %v", err)
	}

	stopWork()
	done := make(chan struct{})
	go func() {
		pool.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		log.Warn(shutdownCtx, "Workers did not stop within %s", cfg.Server.ShutdownTimeout)
	}

	log.Info(context.Background(), "vidscribe stopped")
	return serveErr
}
