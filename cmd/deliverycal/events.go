package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/deliverycal/internal/database"
	"github.com/nao1215/deliverycal/internal/report"
)

// NewEventsCmd creates the events command.
func NewEventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "List the delivery events of the last run",
		Long: `Events prints the event set stored by the last completed run, which is
also the content of the calendar file.

Examples:
  deliverycal events
  deliverycal events --format markdown`,
		Args: cobra.NoArgs,
		RunE: runEventsCmd,
	}

	cmd.Flags().StringP("format", "f", report.FormatText, "Output format: text, json or markdown")

	return cmd
}

func runEventsCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	writer, err := report.NewWriter(format, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	db, err := database.Open(cfg.DBDir, database.Options{Location: loc})
	if err != nil {
		return fmt.Errorf("no events stored yet (run 'deliverycal run' first): %w", err)
	}
	defer db.Close()

	events, err := db.LoadEvents(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to load events: %w", err)
	}
	_, err = writer.WriteEvents(events)
	return err
}
