package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/nao1215/deliverycal/internal/browser"
)

const amazonBase = "https://www.amazon.test"

// newTestCmd returns the named subcommand of a fresh root with args parsed,
// including the root's persistent flags.
func newTestCmd(t *testing.T, name string, args ...string) *cobra.Command {
	t.Helper()

	root := NewRootCmd()
	cmd, _, err := root.Find([]string{name})
	if err != nil {
		t.Fatalf("failed to find %s command: %v", name, err)
	}
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("failed to parse flags: %v", err)
	}
	return cmd
}

// writeConfig writes a configuration file with an Amazon account into dir.
func writeConfig(t *testing.T, dir string, extra ...string) string {
	t.Helper()

	lines := []string{
		"output: " + filepath.Join(dir, "out", "deliveries.ics"),
		"dbDir: " + filepath.Join(dir, "db"),
		"diagnosticsDir: " + filepath.Join(dir, "diagnostics"),
		"timezone: UTC",
		"retailers:",
		"  amazon:",
		"    email: buyer@example.com",
		"    password: hunter2-secret",
		"    baseURL: " + amazonBase,
	}
	path := filepath.Join(dir, "deliverycal.yaml")
	content := strings.Join(append(lines, extra...), "\n") + "\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

// amazonPages serves a sign-in flow ending on the order history snapshot.
func amazonPages(t *testing.T) browser.StaticPages {
	t.Helper()

	orders, err := os.ReadFile(filepath.Join("testdata", "amazon-orders.html"))
	if err != nil {
		t.Fatalf("failed to read fixture: %v", err)
	}
	return browser.StaticPages{
		amazonBase + "/ap/signin": `<html><body>
<form action="/ap/signin/password">
  <input type="email" id="ap_email">
  <input type="submit" id="continue" value="Continue">
</form></body></html>`,
		amazonBase + "/ap/signin/password": `<html><body>
<form action="/your-orders/orders">
  <input type="password" id="ap_password">
  <input type="submit" id="signInSubmit" value="Sign in">
</form></body></html>`,
		amazonBase + "/your-orders/orders": string(orders),
	}
}
