package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestNewConfig documents the defaults.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	if cfg.IntervalHours != 24 {
		t.Errorf("IntervalHours = %d, want 24", cfg.IntervalHours)
	}
	if cfg.Interval() != 24*time.Hour {
		t.Errorf("Interval() = %v, want 24h", cfg.Interval())
	}
	if cfg.SessionTimeout != 5*time.Minute {
		t.Errorf("SessionTimeout = %v, want 5m", cfg.SessionTimeout)
	}
	if cfg.GraceDays != 3 {
		t.Errorf("GraceDays = %d, want 3", cfg.GraceDays)
	}
	if cfg.NavigationRetries != 2 {
		t.Errorf("NavigationRetries = %d, want 2", cfg.NavigationRetries)
	}
	if filepath.Base(cfg.OutputPath) != DefaultCalendarFile {
		t.Errorf("OutputPath = %q, want file %q", cfg.OutputPath, DefaultCalendarFile)
	}
	if cfg.Retailers.Amazon.MaxPages != 3 {
		t.Errorf("Amazon.MaxPages = %d, want 3", cfg.Retailers.Amazon.MaxPages)
	}
	if cfg.Retailers.IKEA.Locale != "in/en" {
		t.Errorf("IKEA.Locale = %q, want in/en", cfg.Retailers.IKEA.Locale)
	}
	if !cfg.Browser.Headless {
		t.Error("expected headless browser by default")
	}
	if len(cfg.Retailers.Enabled()) != 0 {
		t.Error("expected no retailer enabled without credentials")
	}
}

// TestConfigValidate checks one rule per case.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	valid := func() *Config {
		cfg := NewConfig()
		cfg.Retailers.Amazon.Email = "a@example.com"
		cfg.Retailers.Amazon.Password = "pw"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "zero interval", mutate: func(c *Config) { c.IntervalHours = 0 }, wantErr: ErrInvalidInterval},
		{name: "empty output", mutate: func(c *Config) { c.OutputPath = "" }, wantErr: ErrEmptyOutputPath},
		{name: "zero timeout", mutate: func(c *Config) { c.SessionTimeout = 0 }, wantErr: ErrInvalidSessionTimeout},
		{name: "negative grace", mutate: func(c *Config) { c.GraceDays = -1 }, wantErr: ErrInvalidGraceDays},
		{name: "zero grace is fine", mutate: func(c *Config) { c.GraceDays = 0 }},
		{name: "negative retries", mutate: func(c *Config) { c.NavigationRetries = -1 }, wantErr: ErrInvalidNavigationRetries},
		{name: "unknown timezone", mutate: func(c *Config) { c.Timezone = "Mars/Olympus" }, wantErr: ErrInvalidTimezone},
		{name: "utc timezone", mutate: func(c *Config) { c.Timezone = "UTC" }},
		{name: "unknown format", mutate: func(c *Config) { c.ReportFormat = "xml" }, wantErr: ErrInvalidReportFormat},
		{name: "zero pages", mutate: func(c *Config) { c.Retailers.Amazon.MaxPages = 0 }, wantErr: ErrInvalidMaxPages},
		{name: "no credentials", mutate: func(c *Config) { c.Retailers.Amazon.Password = "" }, wantErr: ErrNoRetailers},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := valid()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("file values override defaults", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), DefaultConfigFile)
		content := `intervalHours: 6
output: /tmp/out.ics
timezone: Asia/Kolkata
sessionTimeout: 90s
graceDays: 0
browser:
  headless: false
  remoteURL: ws://127.0.0.1:9222/devtools/browser/abc
retailers:
  amazon:
    email: me@example.com
    password: pw
    totpSecret: JBSWY3DPEHPK3PXP
  ikea:
    locale: gb/en
`
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}

		cfg := NewConfig()
		if err := LoadConfigFile(path, cfg); err != nil {
			t.Fatalf("LoadConfigFile() error = %v", err)
		}

		if cfg.IntervalHours != 6 {
			t.Errorf("IntervalHours = %d, want 6", cfg.IntervalHours)
		}
		if cfg.OutputPath != "/tmp/out.ics" {
			t.Errorf("OutputPath = %q", cfg.OutputPath)
		}
		if cfg.SessionTimeout != 90*time.Second {
			t.Errorf("SessionTimeout = %v, want 90s", cfg.SessionTimeout)
		}
		if cfg.GraceDays != 0 {
			t.Errorf("GraceDays = %d, want 0", cfg.GraceDays)
		}
		if cfg.Browser.Headless {
			t.Error("expected headless to be disabled")
		}
		if cfg.Retailers.Amazon.TOTPSecret != "JBSWY3DPEHPK3PXP" {
			t.Error("expected TOTP secret from file")
		}
		if cfg.Retailers.Amazon.BaseURL != DefaultAmazonBaseURL {
			t.Errorf("Amazon.BaseURL = %q, want default", cfg.Retailers.Amazon.BaseURL)
		}
		if cfg.Retailers.IKEA.Locale != "gb/en" {
			t.Errorf("IKEA.Locale = %q, want gb/en", cfg.Retailers.IKEA.Locale)
		}
		if cfg.Retailers.IKEA.BaseURL != DefaultIKEABaseURL {
			t.Errorf("IKEA.BaseURL = %q, want default", cfg.Retailers.IKEA.BaseURL)
		}
		if cfg.NavigationRetries != DefaultNavigationRetries {
			t.Errorf("NavigationRetries = %d, want default", cfg.NavigationRetries)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		err := LoadConfigFile(filepath.Join(t.TempDir(), "nope"), NewConfig())
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("LoadConfigFile() = %v, want ErrConfigNotFound", err)
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "bad.yaml")
		if err := os.WriteFile(path, []byte("intervalHours: [1, 2"), 0600); err != nil {
			t.Fatal(err)
		}
		if err := LoadConfigFile(path, NewConfig()); err == nil {
			t.Error("expected parse error")
		}
	})
}

func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	if err := os.WriteFile(path, []byte("{}"), 0600); err != nil {
		t.Fatal(err)
	}

	if got := FindConfigFile(path); got != path {
		t.Errorf("FindConfigFile(explicit) = %q, want %q", got, path)
	}
	if got := FindConfigFile(filepath.Join(dir, "missing.yaml")); got != "" {
		t.Errorf("FindConfigFile(missing) = %q, want empty", got)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Parallel()

	env := map[string]string{
		EnvAmazonEmail:    "env@example.com",
		EnvAmazonPassword: "env-pw",
		EnvIKEAEmail:      "",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := NewConfig()
	cfg.Retailers.Amazon.Email = "file@example.com"
	cfg.Retailers.IKEA.Email = "file-ikea@example.com"
	cfg.Retailers.IKEA.Password = "file-ikea-pw"
	ApplyEnv(cfg, lookup)

	if cfg.Retailers.Amazon.Email != "env@example.com" {
		t.Errorf("Amazon.Email = %q, want env value", cfg.Retailers.Amazon.Email)
	}
	if cfg.Retailers.Amazon.Password != "env-pw" {
		t.Error("expected Amazon password from env")
	}
	if cfg.Retailers.IKEA.Email != "file-ikea@example.com" {
		t.Error("empty env value must not clear the file value")
	}

	got := cfg.Retailers.Enabled()
	if len(got) != 2 {
		t.Errorf("Enabled() = %v, want amazon and ikea", got)
	}
}
