package retailer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/deliverycal/internal/browser"
	"github.com/nao1215/deliverycal/internal/model"
)

func TestDiagnosticsCapture(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "diag")
	d := NewDiagnostics(dir)
	d.now = func() time.Time { return time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC) }

	b := browser.NewStaticBrowser(nil)
	if err := b.LoadHTML("https://shop.test/orders", `<html><body><input value="hunter2"><p>Hello me@example.com</p></body></html>`); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	got, err := d.Capture(ctx, b, model.RetailerAmazon, "layout_changed", "hunter2", "me@example.com", "")
	if err != nil {
		t.Fatalf("Capture() error = %v", err)
	}
	want := filepath.Join(dir, "amazon-layout_changed-20240301T093000.000.png")
	if got != want {
		t.Errorf("Capture() = %s, want %s", got, want)
	}

	png, err := os.ReadFile(got)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(png), "\x89PNG") {
		t.Error("screenshot is not a PNG")
	}
	dom, err := os.ReadFile(strings.TrimSuffix(got, ".png") + ".html")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(dom), "hunter2") || strings.Contains(string(dom), "me@example.com") {
		t.Errorf("DOM snapshot leaks secrets: %s", dom)
	}
	info, err := os.Stat(got)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}
}

func TestDiagnosticsDisabled(t *testing.T) {
	t.Parallel()

	var nilDiag *Diagnostics
	for _, d := range []*Diagnostics{nilDiag, NewDiagnostics("")} {
		got, err := d.Capture(context.Background(), browser.NewStaticBrowser(nil), model.RetailerIKEA, "x")
		if err != nil || got != "" {
			t.Errorf("Capture() = %q, %v; want no capture", got, err)
		}
	}
}
