package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/use-agent/shelfprobe/api"
	"github.com/use-agent/shelfprobe/cache"
	"github.com/use-agent/shelfprobe/models"
	"github.com/use-agent/shelfprobe/scraper"
	"github.com/use-agent/shelfprobe/webhook"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the extraction HTTP service.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// ── 1. Load configuration ───────────────────────────────────
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		// ── 2. Initialise structured logging ────────────────────────
		level := cfg.Log.Level
		if verbose {
			level = "debug"
		}
		logger := initLogger(os.Stdout, level, cfg.Log.Format)
		logger.Info("shelfprobe starting",
			"host", cfg.Server.Host,
			"port", cfg.Server.Port,
			"mode", cfg.Server.Mode,
			"maxPages", cfg.Browser.MaxPages,
			"fetchMode", cfg.Engine.Mode,
		)

		// ── 3. Initialise scraper (browser launches on first use) ───
		metrics := scraper.NewMetrics()
		sc, err := scraper.NewScraper(cfg, metrics, logger)
		if err != nil {
			return fmt.Errorf("initialise scraper: %w", err)
		}
		defer sc.Close()

		// ── 4. Setup router ─────────────────────────────────────────
		router := api.NewRouter(sc, cfg, api.Deps{
			ProductCache: cache.New[*models.ProductResponse](cfg.Cache.MaxEntries, cfg.Cache.TTL),
			CatalogCache: cache.New[*models.CatalogResponse](cfg.Cache.MaxEntries, cfg.Cache.TTL),
			Notifier:     webhook.NewNotifier(cfg.Webhook.Secret, logger),
			Registry:     metrics.Registry,
		})

		// ── 5. Start HTTP server ────────────────────────────────────
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		srv := &http.Server{
			Addr:    addr,
			Handler: router,
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Info("HTTP server listening", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		// ── 6. Graceful shutdown ────────────────────────────────────
		select {
		case err := <-errCh:
			return fmt.Errorf("HTTP server: %w", err)
		case <-cmd.Context().Done():
			logger.Info("shutdown signal received")
		}

		// Give in-flight requests 5 seconds to complete.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("HTTP server forced shutdown", "error", err)
		} else {
			logger.Info("HTTP server drained gracefully")
		}

		// sc.Close() runs via defer: drains the page pool and kills Chrome.
		logger.Info("shelfprobe stopped")
		return nil
	},
}
