package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/deliverycal/internal/browser"
	"github.com/nao1215/deliverycal/internal/config"
	"github.com/nao1215/deliverycal/internal/datewindow"
	"github.com/nao1215/deliverycal/internal/model"
	"github.com/nao1215/deliverycal/internal/reconcile"
	"github.com/nao1215/deliverycal/internal/report"
	"github.com/nao1215/deliverycal/internal/retailer"
)

// NewReplayCmd creates the replay command.
func NewReplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay <snapshot.html>",
		Short: "Extract deliveries from a saved order page",
		Long: `Replay runs order extraction against a saved page, without a browser or
network access. Snapshots of failed scrapes are written to the diagnostics
directory; replaying one shows which orders the current selectors find and
how their delivery text is read.

Examples:
  deliverycal replay --retailer amazon ~/.cache/deliverycal/diagnostics/amazon-layout_changed-20240310T090000.000.html
  deliverycal replay --retailer ikea --format json purchases.html`,
		Args: cobra.ExactArgs(1),
		RunE: runReplayCmd,
	}

	cmd.Flags().StringP("retailer", "r", "", "Retailer the page belongs to: amazon or ikea")
	cmd.Flags().String("ref", "", "Reference date as YYYY-MM-DD (default: today)")
	cmd.Flags().StringP("format", "f", report.FormatText, "Output format: text, json or markdown")
	_ = cmd.MarkFlagRequired("retailer")

	return cmd
}

func runReplayCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return fmt.Errorf("configuration error: %w", config.ErrInvalidTimezone)
	}

	name, err := cmd.Flags().GetString("retailer")
	if err != nil {
		return err
	}
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	ref := time.Now().In(loc)
	if refText, _ := cmd.Flags().GetString("ref"); refText != "" {
		if ref, err = time.ParseInLocation(dateLayout, refText, loc); err != nil {
			return fmt.Errorf("invalid reference date %q: use YYYY-MM-DD", refText)
		}
	}

	writer, err := report.NewWriter(format, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	content, err := os.ReadFile(args[0]) //nolint:gosec // user-provided snapshot path is intentional
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}

	logger := setupLogger(cmd)
	b := browser.NewStaticBrowser(nil)
	defer b.Close()

	extractor, pageURL, err := newExtractor(cfg, model.Retailer(name), b, logger)
	if err != nil {
		return err
	}
	if err := b.LoadHTML(pageURL, string(content)); err != nil {
		return fmt.Errorf("failed to parse snapshot: %w", err)
	}

	records, err := extractor.ExtractOrders(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to extract orders: %w", err)
	}
	logger.Info("extracted records", "retailer", name, "records", len(records))

	res := reconcile.New(
		reconcile.WithParser(datewindow.NewParser(datewindow.WithGraceDays(cfg.GraceDays))),
		reconcile.WithLogger(logger),
	).Reconcile(nil, records, ref)

	_, err = writer.WriteExtraction(res.Events, res.Failures)
	return err
}

// newExtractor returns the extractor for r over b and the URL the snapshot
// is loaded at, so relative links resolve against the storefront.
func newExtractor(cfg *config.Config, r model.Retailer, b browser.Browser, logger *slog.Logger) (retailer.Extractor, string, error) {
	opts := []retailer.Option{retailer.WithLogger(logger)}
	switch r {
	case model.RetailerAmazon:
		s := retailer.NewAmazonSession(b, model.Credentials{}, retailer.AmazonOptions{
			BaseURL:  cfg.Retailers.Amazon.BaseURL,
			MaxPages: cfg.Retailers.Amazon.MaxPages,
		}, opts...)
		return s, s.OrdersURL(), nil
	case model.RetailerIKEA:
		s := retailer.NewIKEASession(b, model.Credentials{}, retailer.IKEAOptions{
			BaseURL: cfg.Retailers.IKEA.BaseURL,
			Locale:  cfg.Retailers.IKEA.Locale,
		}, opts...)
		return s, s.PurchasesURL(), nil
	default:
		return nil, "", fmt.Errorf("unknown retailer %q: use %s or %s", r, model.RetailerAmazon, model.RetailerIKEA)
	}
}
