package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"nitterscraper/pkg/config"
	"nitterscraper/pkg/logger"
	"nitterscraper/pkg/metrics"
	"nitterscraper/pkg/models"
	"nitterscraper/pkg/report"
	"nitterscraper/pkg/scraper"
	"nitterscraper/pkg/storage"
	"nitterscraper/pkg/ui"
)

var (
	// Scrape flags
	outputPath  string
	outputFmt   string
	postCount   int
	accountWait time.Duration
	cooldown    time.Duration
	fetchMode   string
	accounts    []string
	endpoints   []string
	metricsFile string
	reportPath  string
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape [accounts...]",
	Short: "Scrape posts for the configured or given accounts",
	Example: `  # Scrape the configured accounts into dataset.csv
  nitterscraper

  # Scrape two accounts, 20 posts each, into a SQLite database
  nitterscraper scrape OCCRP @NOELreports --posts 20 --output posts.db

  # Use a specific mirror list
  nitterscraper --endpoint https://nitter.example.net --endpoint https://nitter.example.org

  # Export run metrics and a JSON report
  nitterscraper --metrics-file run.prom --report run.json`,
	Args: cobra.ArbitraryArgs,
	RunE: runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)
	addScrapeFlags(scrapeCmd)
}

func addScrapeFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&outputPath, "output", "o", "", "output file (default dataset.csv)")
	f.StringVar(&outputFmt, "format", "", "output format: csv or sqlite (default from the output extension)")
	f.IntVarP(&postCount, "posts", "n", config.DefaultPostsPerAccount, "posts to fetch per account")
	f.DurationVar(&accountWait, "delay", config.DefaultAccountDelay, "pause between accounts")
	f.DurationVar(&cooldown, "cooldown", config.DefaultFailureCooldown, "pause after a failing mirror")
	f.StringVar(&fetchMode, "mode", "", "mirror client: html or json")
	f.StringSliceVarP(&accounts, "account", "a", nil, "account to scrape (repeatable)")
	f.StringSliceVarP(&endpoints, "endpoint", "e", nil, "mirror base URL in fallback order (repeatable)")
	f.StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics to this file")
	f.StringVar(&reportPath, "report", "", "write a JSON run report to this file")
}

// collectFlags returns only the flags the user actually set
func collectFlags(cmd *cobra.Command, args []string) map[string]interface{} {
	flags := make(map[string]interface{})
	f := cmd.Flags()

	if f.Changed("account") || len(args) > 0 {
		list, _ := f.GetStringSlice("account")
		flags["account"] = append(append([]string{}, list...), args...)
	}
	if f.Changed("endpoint") {
		flags["endpoint"], _ = f.GetStringSlice("endpoint")
	}
	if f.Changed("posts") {
		flags["posts"], _ = f.GetInt("posts")
	}
	if f.Changed("delay") {
		flags["delay"], _ = f.GetDuration("delay")
	}
	if f.Changed("cooldown") {
		flags["cooldown"], _ = f.GetDuration("cooldown")
	}
	for _, name := range []string{"mode", "output", "format", "report", "metrics-file", "log-level"} {
		if f.Changed(name) {
			flags[name], _ = f.GetString(name)
		}
	}

	return flags
}

func runScrape(cmd *cobra.Command, args []string) error {
	flags := collectFlags(cmd, args)
	if quiet && !cmd.Flags().Changed("log-level") {
		flags["log-level"] = "error"
	}

	cfg, warnings, err := config.Load(configFile, flags)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.GetLogger()
	log.WithField("version", version).Info("nitterscraper starting")
	for _, w := range warnings {
		log.Warn(w)
	}

	ui.PrintInfo("Accounts", strings.Join(cfg.Accounts, ", "))
	ui.PrintInfo("Mirrors", fmt.Sprintf("%d", len(cfg.Endpoints)))
	ui.PrintInfo("Output", cfg.Output.Path)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rep, err := scrape(ctx, cfg, log)
	if err != nil {
		return err
	}

	ui.PrintSummary(rep)
	return nil
}

// scrape runs the whole pipeline: fetch, save, then report and metrics.
// Only a failure to start is returned as an error.
func scrape(ctx context.Context, cfg *config.Config, log logger.Logger) (*report.Report, error) {
	collector := metrics.NewCollector()
	tracker := ui.NewStatusTracker(len(cfg.Accounts))

	s, err := scraper.New(cfg,
		scraper.WithLogger(log),
		scraper.WithMetrics(collector),
		scraper.WithAccountHook(func(r scraper.AccountResult) {
			tracker.Complete(r.Account.String(), string(r.Status), len(r.Records))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize scraper: %w", err)
	}

	log.InfoWithFields("Starting scrape", map[string]interface{}{
		"accounts":          len(cfg.Accounts),
		"posts_per_account": cfg.PostsPerAccount,
		"delay":             cfg.AccountDelay.String(),
	})

	run, err := s.RunConfigured(ctx)
	if err != nil {
		return nil, err
	}
	if run.Interrupted {
		log.Info("Scraping process interrupted by user")
	}

	saveErr := saveRecords(ctx, cfg, log, run.Records)
	rep := report.FromRun(run, cfg.Output.Path, saveErr)

	if cfg.Output.Report != "" {
		if err := rep.Save(cfg.Output.Report); err != nil {
			log.WithError(err).Error("Failed to write run report")
		} else {
			log.WithField("path", cfg.Output.Report).Info("Run report written")
		}
	}
	if cfg.Metrics.File != "" {
		if err := collector.WriteTextfile(cfg.Metrics.File); err != nil {
			log.WithError(err).Error("Failed to write metrics")
		} else {
			log.WithField("path", cfg.Metrics.File).Info("Metrics written")
		}
	}

	return rep, nil
}

// saveRecords hands the aggregate to the configured sink. The save runs
// even after an interrupt so partial results are kept.
func saveRecords(ctx context.Context, cfg *config.Config, log logger.Logger, records []models.Record) error {
	if len(records) == 0 {
		log.Warn("No tweets were scraped successfully")
		log.Info("This could be due to:")
		log.Info("- Nitter instances being unavailable")
		log.Info("- User accounts being private or non-existent")
		log.Info("- Rate limiting or network issues")
	} else {
		summary := storage.Summarize(records)
		log.InfoWithFields(fmt.Sprintf("Dataset shape: (%d, %d)", summary.Rows, len(summary.Columns)), map[string]interface{}{
			"rows":    summary.Rows,
			"columns": len(summary.Columns),
		})
		log.Info("Columns: " + strings.Join(summary.Columns, ", "))
	}

	sink, err := storage.NewSink(cfg.Output.Format, cfg.Output.Path, cfg.Output.Table)
	if err != nil {
		log.WithError(err).Error("Failed to create output sink")
		return err
	}

	if err := sink.Save(context.WithoutCancel(ctx), records, cfg.Output.Path); err != nil {
		if errors.Is(err, storage.ErrNothingToSave) {
			log.Warn("No tweets to save")
		} else {
			log.WithError(err).Error("Failed to save tweets to file")
		}
		return err
	}

	log.Info(fmt.Sprintf("Successfully saved %d tweets to %s", len(records), cfg.Output.Path))
	log.Info("Scraping process completed successfully!")
	return nil
}
