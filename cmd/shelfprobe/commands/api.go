package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/use-agent/shelfprobe/config"
	"github.com/use-agent/shelfprobe/models"
	"github.com/use-agent/shelfprobe/output"
	"github.com/use-agent/shelfprobe/scraper"
	"github.com/use-agent/shelfprobe/webhook"
)

var (
	apiFetchMode string
	apiOutDir    string
	apiWebhook   string
)

func init() {
	apiCmd.Flags().StringVar(&apiFetchMode, "fetch-mode", "", `How to fetch the page: "auto", "http" or "browser" (default from configuration).`)
	apiCmd.Flags().StringVar(&apiOutDir, "out-dir", "", "Directory for products-api.txt.")
	apiCmd.Flags().StringVar(&apiWebhook, "webhook", "", "POST a catalog.extracted or catalog.failed event to this URL.")
	rootCmd.AddCommand(apiCmd)
}

var apiCmd = &cobra.Command{
	Use:   "api-parser <url>",
	Short: "Parse a category page from its embedded product data.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		url := args[0]
		if err := validateURL(url); err != nil {
			return err
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := cliLogger(cfg.Log)

		res, err := runAPIParser(cmd.Context(), cfg, logger, url, apiOptions{
			FetchMode: apiFetchMode,
			OutDir:    apiOutDir,
			Webhook:   apiWebhook,
		})
		if err != nil {
			return err
		}

		if verbose {
			fmt.Printf("\nAPI parsing completed successfully: %d products.\n", len(res.Entries))
		}
		return nil
	},
}

// apiOptions are the api-parser flags.
type apiOptions struct {
	FetchMode string
	OutDir    string
	Webhook   string
}

// runAPIParser fetches and parses one category page and writes
// products-api.txt. A failed run writes nothing.
func runAPIParser(ctx context.Context, cfg *config.Config, logger *slog.Logger, url string, opts apiOptions) (*scraper.CatalogResult, error) {
	sc, err := scraper.NewScraper(cfg, nil, logger)
	if err != nil {
		return nil, err
	}
	defer sc.Close()

	var notifier *webhook.Notifier
	if opts.Webhook != "" {
		notifier = webhook.NewNotifier(cfg.Webhook.Secret, logger)
	}

	res, err := sc.ScrapeCatalog(ctx, &models.CatalogRequest{URL: url, FetchMode: opts.FetchMode})
	if err != nil {
		if notifier != nil {
			detail := &models.ErrorDetail{Code: models.ErrCodeInternal, Message: err.Error()}
			var se *models.ScrapeError
			if errors.As(err, &se) {
				detail = se.ToDetail()
			}
			if werr := notifier.DeliverRetry(ctx, opts.Webhook,
				webhook.NewEvent(webhook.EventCatalogFailed, "", url, detail)); werr != nil {
				logger.Warn("webhook not delivered", "error", werr)
			}
		}
		return nil, err
	}

	if _, err := output.NewWriter(opts.OutDir, cfg.Output).WriteCatalog(res.Text); err != nil {
		return nil, err
	}

	if notifier != nil {
		if err := notifier.DeliverRetry(ctx, opts.Webhook,
			webhook.NewEvent(webhook.EventCatalogExtracted, res.RunID, url, res.Entries)); err != nil {
			logger.Warn("webhook not delivered", "error", err)
		}
	}
	return res, nil
}
