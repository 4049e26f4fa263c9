package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for deliverycal.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deliverycal",
		Short: "Publish expected order deliveries as an iCalendar file",
		Long: `deliverycal tracks pending deliveries from Amazon and IKEA.

It signs in with a headless browser, reads the delivery estimate of every
pending order, and writes one calendar event per item. The calendar file is
rewritten on every run, so subscribed calendar clients always show the
current estimates and delivered orders disappear.

Credentials are read from the configuration file or from the
AMAZON_EMAIL, AMAZON_PASSWORD, AMAZON_TOTP_SECRET, IKEA_EMAIL,
IKEA_PASSWORD and IKEA_TOTP_SECRET environment variables.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .deliverycal in current or home directory)")

	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewParseCmd())
	cmd.AddCommand(NewReplayCmd())
	cmd.AddCommand(NewEventsCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
