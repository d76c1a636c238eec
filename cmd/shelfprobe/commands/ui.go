package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/use-agent/shelfprobe/browser"
	"github.com/use-agent/shelfprobe/config"
	"github.com/use-agent/shelfprobe/models"
	"github.com/use-agent/shelfprobe/output"
	"github.com/use-agent/shelfprobe/scraper"
	"github.com/use-agent/shelfprobe/webhook"
)

var (
	uiRegion   string
	uiSize     string
	uiOutDir   string
	uiSnapshot string
	uiWebhook  string
	uiHeaded   bool
)

func init() {
	uiCmd.Flags().StringVarP(&uiRegion, "region", "r", "", "Delivery region name (default from configuration).")
	uiCmd.Flags().StringVarP(&uiSize, "size", "s", "", `Browser viewport size, e.g. "1920x1080" (default from configuration).`)
	uiCmd.Flags().StringVar(&uiOutDir, "out-dir", "", "Directory for product.txt, screenshot.jpg and page.html.")
	uiCmd.Flags().StringVar(&uiSnapshot, "snapshot", "", "Extract from a saved HTML file instead of launching a browser.")
	uiCmd.Flags().StringVar(&uiWebhook, "webhook", "", "POST a product.extracted event to this URL.")
	uiCmd.Flags().BoolVar(&uiHeaded, "headed", false, "Show the browser window.")
	rootCmd.AddCommand(uiCmd)
}

var uiCmd = &cobra.Command{
	Use:   "ui-parser <url>",
	Short: "Parse a product page in a headless browser.",
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

		req, err := productRequest(cfg, url)
		if err != nil {
			return err
		}
		cfg.Browser.Headless = !uiHeaded

		var res *scraper.ProductResult
		if uiSnapshot != "" {
			res, err = replaySnapshot(cmd.Context(), cfg, logger, uiSnapshot, url)
		} else {
			res, err = scrapeLive(cmd.Context(), cfg, logger, req)
		}
		if err != nil {
			return err
		}

		w := output.NewWriter(uiOutDir, cfg.Output)
		if _, err := w.WriteProduct(res.Text); err != nil {
			return err
		}
		if len(res.Screenshot) > 0 {
			if _, err := w.WriteScreenshot(res.Screenshot); err != nil {
				return err
			}
		}
		if res.HTML != "" {
			if _, err := w.WriteHTML(res.HTML); err != nil {
				return err
			}
		}

		if uiWebhook != "" {
			n := webhook.NewNotifier(cfg.Webhook.Secret, logger)
			ev := webhook.NewEvent(webhook.EventProductExtracted, res.RunID, url, res.Record)
			if err := n.DeliverRetry(cmd.Context(), uiWebhook, ev); err != nil {
				logger.Warn("webhook not delivered", "error", err)
			}
		}

		if verbose {
			fmt.Println("\nUI parsing completed successfully.")
		}
		return nil
	},
}

// productRequest validates the region and size flags against cfg.
func productRequest(cfg *config.Config, url string) (*models.ProductRequest, error) {
	region := uiRegion
	if region == "" {
		region = cfg.Regions.Default
	}
	if _, ok := cfg.RegionID(region); !ok {
		return nil, fmt.Errorf("unknown region %q, choose one of: %s", region, strings.Join(cfg.RegionNames(), ", "))
	}

	width, height := cfg.Browser.ViewportWidth, cfg.Browser.ViewportHeight
	if uiSize != "" {
		var err error
		if width, height, err = config.ParseViewport(uiSize); err != nil {
			return nil, err
		}
	}
	return &models.ProductRequest{URL: url, Region: region, Width: width, Height: height, Screenshot: true}, nil
}

// scrapeLive drives a real browser and captures the screenshot and HTML.
func scrapeLive(ctx context.Context, cfg *config.Config, logger *slog.Logger, req *models.ProductRequest) (*scraper.ProductResult, error) {
	sc, err := scraper.NewScraper(cfg, nil, logger)
	if err != nil {
		return nil, err
	}
	defer sc.Close()
	return sc.ScrapeProduct(ctx, req, scraper.RunOptions{Screenshot: true, HTML: true})
}

// replaySnapshot runs the extraction pipeline over a saved page.
func replaySnapshot(ctx context.Context, cfg *config.Config, logger *slog.Logger, path, url string) (*scraper.ProductResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeInvalidInput, fmt.Sprintf("cannot read snapshot %s", path), err)
	}
	page, err := browser.NewStaticPage(string(data))
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeInvalidInput, fmt.Sprintf("snapshot %s is not HTML", path), err)
	}
	_ = page.Navigate(ctx, url)

	runID := uuid.NewString()
	logger = logger.With("run_id", runID, "mode", "snapshot")
	x, err := scraper.NewExtractor(cfg, logger, nil)
	if err != nil {
		return nil, err
	}
	res := x.Run(ctx, page, scraper.RunOptions{})
	res.RunID = runID
	return res, nil
}
