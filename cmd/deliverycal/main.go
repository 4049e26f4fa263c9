// Package main provides the entry point for the deliverycal CLI.
//
// deliverycal signs in to online stores with a headless browser, reads the
// expected delivery dates of pending orders and publishes them as an
// iCalendar file that calendar clients can subscribe to.
//
// Usage:
//
//	deliverycal run
//	deliverycal run --once -o deliveries.ics
//
// See --help for all available options.
package main

func main() {
	Execute()
}
