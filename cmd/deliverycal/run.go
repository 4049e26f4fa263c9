package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/deliverycal/internal/browser"
	"github.com/nao1215/deliverycal/internal/calendar"
	"github.com/nao1215/deliverycal/internal/config"
	"github.com/nao1215/deliverycal/internal/database"
	"github.com/nao1215/deliverycal/internal/datewindow"
	"github.com/nao1215/deliverycal/internal/model"
	"github.com/nao1215/deliverycal/internal/pipeline"
	"github.com/nao1215/deliverycal/internal/reconcile"
	"github.com/nao1215/deliverycal/internal/report"
	"github.com/nao1215/deliverycal/internal/retailer"
)

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Track deliveries and rewrite the calendar on a schedule",
		Long: `Run signs in to every retailer with credentials, reads the pending orders,
and rewrites the calendar file. It repeats every --interval hours until it
receives SIGINT or SIGTERM; a run in progress is allowed to finish first.

A retailer that fails is reported in the run summary and retried on the
next run. Its previous events are not kept.

Examples:
  # Run every 24 hours (default)
  deliverycal run

  # Run once and exit, e.g. from cron
  deliverycal run --once -o /srv/www/deliveries.ics

  # Run every 6 hours with a Markdown summary
  deliverycal run --interval 6 --format markdown

  # Use an explicit configuration file
  deliverycal run -c ~/.config/deliverycal/config.yaml`,
		Args: cobra.NoArgs,
		RunE: runRunCmd,
	}

	cmd.Flags().Bool("once", false, "Run a single pass and exit")
	cmd.Flags().IntP("interval", "i", config.DefaultIntervalHours, "Hours between runs")
	cmd.Flags().StringP("output", "o", "", "Calendar file to write (default: <XDG data>/deliverycal/deliveries.ics)")
	cmd.Flags().DurationP("timeout", "t", config.DefaultSessionTimeout, "Time budget of one retailer session")
	cmd.Flags().Int("grace-days", config.DefaultGraceDays,
		"Days a year-less date may lie in the past before it is read as next year")
	cmd.Flags().StringP("format", "f", config.DefaultReportFormat, "Run summary format: text, json or markdown")
	cmd.Flags().Bool("json-log", false, "Write logs as JSON")

	return cmd
}

func runRunCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildRunConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd)
	if jsonLog, _ := cmd.Flags().GetBool("json-log"); jsonLog {
		logger = newJSONLogger(cmd)
	}
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, finishing the current run...")
			cancel()
		case <-ctx.Done():
		}
	}()

	launcher := browser.NewRodLauncher(browser.RodConfig{
		RemoteURL: cfg.Browser.RemoteURL,
		Bin:       cfg.Browser.Bin,
		Headless:  cfg.Browser.Headless,
		NoSandbox: cfg.Browser.NoSandbox,
	}, browser.WithLogger(logger))

	return runTracker(ctx, cmd, cfg, launcher, logger)
}

// buildRunConfig loads the configuration and applies the flags the user set.
func buildRunConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if cfg.Once, err = flags.GetBool("once"); err != nil {
		return nil, err
	}
	if flags.Changed("interval") {
		if cfg.IntervalHours, err = flags.GetInt("interval"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("output") {
		if cfg.OutputPath, err = flags.GetString("output"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("timeout") {
		if cfg.SessionTimeout, err = flags.GetDuration("timeout"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("grace-days") {
		if cfg.GraceDays, err = flags.GetInt("grace-days"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("format") {
		if cfg.ReportFormat, err = flags.GetString("format"); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// runTracker builds the pipeline over launcher and runs it once or on
// the configured schedule.
func runTracker(ctx context.Context, cmd *cobra.Command, cfg *config.Config, launcher browser.Launcher, logger *slog.Logger) error {
	loc, err := cfg.Location()
	if err != nil {
		return fmt.Errorf("configuration error: %w", config.ErrInvalidTimezone)
	}

	db, err := database.Open(cfg.DBDir, database.Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
		Location:          loc,
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	reporter, err := report.NewWriter(cfg.ReportFormat, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	p := newPipeline(cfg, loc, launcher, db, logger)
	logger.Info("tracker started",
		"retailers", p.Retailers(),
		"calendar", cfg.OutputPath,
		"database", db.Path(),
		"once", cfg.Once,
	)

	onSummary := func(s *model.RunSummary) {
		if _, err := reporter.Write(s); err != nil {
			logger.Error("failed to write run summary", "error", err)
		}
	}

	if cfg.Once {
		s := p.Run(ctx)
		onSummary(s)
		if s.Error != "" {
			return errors.New(s.Error)
		}
		return nil
	}

	runs := pipeline.NewScheduler(p,
		pipeline.WithInterval(cfg.Interval()),
		pipeline.WithSchedulerLogger(logger),
		pipeline.WithSummaryHandler(onSummary),
	).Start(ctx)
	logger.Info("tracker stopped", "runs", runs)
	return nil
}

// newPipeline wires the configured retailers, calendar and store.
func newPipeline(cfg *config.Config, loc *time.Location, launcher browser.Launcher, store pipeline.EventStore, logger *slog.Logger) *pipeline.Pipeline {
	parser := datewindow.NewParser(datewindow.WithGraceDays(cfg.GraceDays))
	cal := calendar.NewWriter(cfg.OutputPath,
		calendar.WithName(cfg.CalendarName),
		calendar.WithLocation(loc),
		calendar.WithLogger(logger),
	)
	return pipeline.New(launcher, cal, newSources(cfg, logger),
		pipeline.WithLogger(logger),
		pipeline.WithSessionTimeout(cfg.SessionTimeout),
		pipeline.WithStore(store),
		pipeline.WithLocation(loc),
		pipeline.WithReconciler(reconcile.New(
			reconcile.WithParser(parser),
			reconcile.WithLogger(logger),
		)),
	)
}

// newSources returns a source for every retailer with credentials.
func newSources(cfg *config.Config, logger *slog.Logger) []pipeline.Source {
	opts := []retailer.Option{
		retailer.WithLogger(logger),
		retailer.WithNavigationRetries(cfg.NavigationRetries),
		retailer.WithDiagnostics(retailer.NewDiagnostics(cfg.DiagnosticsDir)),
	}

	var sources []pipeline.Source
	for _, r := range cfg.Retailers.Enabled() {
		switch r {
		case model.RetailerAmazon:
			amazon := cfg.Retailers.Amazon
			sources = append(sources, pipeline.Source{
				Retailer: r,
				Open: func(b browser.Browser) retailer.Session {
					return retailer.NewAmazonSession(b, amazon.Credentials(), retailer.AmazonOptions{
						BaseURL:  amazon.BaseURL,
						MaxPages: amazon.MaxPages,
					}, opts...)
				},
			})
		case model.RetailerIKEA:
			ikea := cfg.Retailers.IKEA
			sources = append(sources, pipeline.Source{
				Retailer: r,
				Open: func(b browser.Browser) retailer.Session {
					return retailer.NewIKEASession(b, ikea.Credentials(), retailer.IKEAOptions{
						BaseURL: ikea.BaseURL,
						Locale:  ikea.Locale,
					}, opts...)
				},
			})
		}
	}
	return sources
}
