package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/outreach/internal/loader"
	"github.com/spigell/outreach/internal/logger"
	"github.com/spigell/outreach/internal/outreach"
	"github.com/spigell/outreach/internal/scraper"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Collect startups from the configured listing pages into a csv file",
	PreRun: func(cmd *cobra.Command, _ []string) {
		viper.BindPFlag("scrape.output", cmd.Flags().Lookup("output"))
		viper.BindPFlag("scrape.keep-without-email", cmd.Flags().Lookup("keep-without-email"))
	},
	Run: func(_ *cobra.Command, _ []string) {
		scrape()
	},
}

func init() {
	rootCmd.AddCommand(scrapeCmd)

	scrapeCmd.Flags().StringP("output", "o", "", "csv file for scraped startups")
	scrapeCmd.Flags().Bool("keep-without-email", false, "keep startups without a contact email")
}

func scrape() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	log, config := setup()

	cfg := config.Scrape
	if cfg == nil || len(cfg.Sources) == 0 {
		log.Fatal("no scrape sources configured", zap.String("hint", "add entries under scrape.sources"))
	}

	var browser scraper.Fetcher
	for _, source := range cfg.Sources {
		if source.Render == scraper.RenderBrowser {
			browser = &scraper.BrowserFetcher{Timeout: cfg.Timeout}
			break
		}
	}

	s := scraper.New(scraper.Config{
		Delay:            cfg.Delay,
		KeepWithoutEmail: cfg.KeepWithoutEmail,
		ContactPaths:     cfg.ContactPaths,
	}, scraper.NewHTTPFetcher(cfg.Timeout), browser, logger.ForComponent(log, "scraper"))

	startups, err := s.Run(ctx, cfg.Sources)
	if err != nil {
		log.Warn("scraping interrupted, saving collected startups", zap.Error(err))
	}

	if len(startups) == 0 {
		log.Info("exiting", zap.String("reason", "no startups collected"))
		return
	}

	if err := writeStartups(cfg.Output, startups); err != nil {
		log.Fatal("saving startups", zap.Error(err))
	}
	log.Info("saved scraped startups", zap.String("filename", cfg.Output), zap.Int("count", len(startups)))
}

func writeStartups(path string, startups []outreach.Startup) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating directory for %s: %w", path, err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := loader.WriteStartups(f, startups); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
