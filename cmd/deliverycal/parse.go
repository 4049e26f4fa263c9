package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/deliverycal/internal/config"
	"github.com/nao1215/deliverycal/internal/datewindow"
)

const dateLayout = "2006-01-02"

// NewParseCmd creates the parse command.
func NewParseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse <text>",
		Short: "Normalize delivery text into a delivery window",
		Long: `Parse shows how a delivery estimate copied from an order page is read.
Use it to diagnose texts reported as unparseable in a run summary.

Examples:
  deliverycal parse "Arriving 12-15 March"
  deliverycal parse --ref 2024-12-28 "Arriving 2 January"
  deliverycal parse --timezone Asia/Kolkata "Arriving today 10am - 2pm"`,
		Args: cobra.MinimumNArgs(1),
		RunE: runParseCmd,
	}

	cmd.Flags().String("ref", "", "Reference date as YYYY-MM-DD (default: today)")
	cmd.Flags().Int("grace-days", config.DefaultGraceDays,
		"Days a year-less date may lie in the past before it is read as next year")
	cmd.Flags().String("timezone", config.DefaultTimezone, "IANA time zone of the reference date, or Local")

	return cmd
}

func runParseCmd(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")

	tz, err := cmd.Flags().GetString("timezone")
	if err != nil {
		return err
	}
	cfg := &config.Config{Timezone: tz}
	loc, err := cfg.Location()
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", tz, err)
	}

	ref := time.Now().In(loc)
	refText, err := cmd.Flags().GetString("ref")
	if err != nil {
		return err
	}
	if refText != "" {
		if ref, err = time.ParseInLocation(dateLayout, refText, loc); err != nil {
			return fmt.Errorf("invalid reference date %q: use YYYY-MM-DD", refText)
		}
	}

	grace, err := cmd.Flags().GetInt("grace-days")
	if err != nil {
		return err
	}

	w, err := datewindow.NewParser(datewindow.WithGraceDays(grace)).Parse(text, ref)
	if err != nil {
		return err
	}

	const instant = "2006-01-02 15:04 MST"
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Input:      %s\n", text)
	fmt.Fprintf(out, "Reference:  %s\n", ref.Format(dateLayout))
	fmt.Fprintf(out, "Window:     %s\n", w)
	fmt.Fprintf(out, "Starts:     %s\n", w.Start(loc).Format(instant))
	fmt.Fprintf(out, "Ends:       %s\n", w.End(loc).Format(instant))
	return nil
}
