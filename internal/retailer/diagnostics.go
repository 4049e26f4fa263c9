package retailer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nao1215/deliverycal/internal/browser"
	"github.com/nao1215/deliverycal/internal/model"
)

// captureTimeout bounds a capture. It runs on a context detached from the
// session so an expired session can still be captured.
const captureTimeout = 10 * time.Second

// Diagnostics stores a screenshot and a DOM snapshot of the page a session
// failed on.
type Diagnostics struct {
	dir string
	now func() time.Time
}

// NewDiagnostics returns a Diagnostics writing into dir. An empty dir
// disables capturing.
func NewDiagnostics(dir string) *Diagnostics {
	return &Diagnostics{dir: dir, now: time.Now}
}

// Dir returns the output directory.
func (d *Diagnostics) Dir() string {
	return d.dir
}

// Capture writes <retailer>-<reason>-<timestamp>.png and .html and returns
// the screenshot path. Every string in secrets is removed from the DOM
// snapshot before it is written.
func (d *Diagnostics) Capture(ctx context.Context, b browser.Browser, retailer model.Retailer, reason string, secrets ...string) (string, error) {
	if d == nil || d.dir == "" {
		return "", nil
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), captureTimeout)
	defer cancel()

	if err := os.MkdirAll(d.dir, 0750); err != nil {
		return "", fmt.Errorf("failed to create diagnostics directory: %w", err)
	}
	base := filepath.Join(d.dir, fmt.Sprintf("%s-%s-%s", retailer, reason, d.now().UTC().Format("20060102T150405.000")))

	shot, err := b.Screenshot(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to capture screenshot: %w", err)
	}
	pngPath := base + ".png"
	if err := os.WriteFile(pngPath, shot, 0600); err != nil {
		return "", fmt.Errorf("failed to write screenshot: %w", err)
	}

	dom, err := b.HTML(ctx)
	if err != nil {
		return pngPath, fmt.Errorf("failed to capture page source: %w", err)
	}
	if err := os.WriteFile(base+".html", []byte(scrub(dom, secrets)), 0600); err != nil {
		return pngPath, fmt.Errorf("failed to write page source: %w", err)
	}
	return pngPath, nil
}

func scrub(s string, secrets []string) string {
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		s = strings.ReplaceAll(s, secret, "***REDACTED***")
	}
	return s
}
