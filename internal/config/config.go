package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is used for XDG directory names.
	AppName = "deliverycal"

	// DefaultIntervalHours is the time between two scheduled runs.
	DefaultIntervalHours = 24

	// DefaultSessionTimeout bounds one retailer session, from browser launch
	// to the last order page.
	DefaultSessionTimeout = 5 * time.Minute

	// DefaultGraceDays is how far in the past a year-less delivery date may
	// be before it is read as next year's date.
	DefaultGraceDays = 3

	// DefaultNavigationRetries is the number of retries after a failed page load.
	DefaultNavigationRetries = 2

	// DefaultCalendarName is the X-WR-CALNAME of the generated calendar.
	DefaultCalendarName = "Deliveries"

	// DefaultCalendarFile is the calendar file name inside the data directory.
	DefaultCalendarFile = "deliveries.ics"

	// DefaultTimezone is used for timed delivery windows.
	DefaultTimezone = "Local"

	// DefaultReportFormat is the format of the per-run summary.
	DefaultReportFormat = ReportFormatText

	// DefaultAmazonBaseURL is the Amazon storefront.
	DefaultAmazonBaseURL = "https://www.amazon.in"

	// DefaultAmazonMaxPages bounds order-history pagination.
	DefaultAmazonMaxPages = 3

	// DefaultIKEABaseURL is the IKEA storefront.
	DefaultIKEABaseURL = "https://www.ikea.com"

	// DefaultIKEALocale is the country/language path segment of IKEA URLs.
	DefaultIKEALocale = "in/en"
)

// Report formats accepted by ReportFormat.
const (
	ReportFormatText     = "text"
	ReportFormatJSON     = "json"
	ReportFormatMarkdown = "markdown"
)

// Config holds all options for a deliverycal process. Fields tagged for
// YAML can be set in the configuration file; the rest come from flags.
type Config struct {
	// IntervalHours is the time between scheduled runs.
	IntervalHours int `yaml:"intervalHours,omitempty"`

	// Once runs a single pass and exits instead of scheduling.
	Once bool `yaml:"-"`

	// OutputPath is the calendar file to (over)write on every run.
	OutputPath string `yaml:"output,omitempty"`

	// CalendarName is shown by calendar clients for the subscription.
	CalendarName string `yaml:"calendarName,omitempty"`

	// Timezone is an IANA zone name, or "Local", used to interpret
	// delivery dates and times.
	Timezone string `yaml:"timezone,omitempty"`

	// SessionTimeout bounds each retailer session.
	SessionTimeout time.Duration `yaml:"sessionTimeout,omitempty"`

	// GraceDays is the year rollover grace window of the date parser.
	GraceDays int `yaml:"graceDays"`

	// NavigationRetries is how often a failed page load is retried.
	NavigationRetries int `yaml:"navigationRetries"`

	// DiagnosticsDir receives screenshots and DOM snapshots of failed scrapes.
	DiagnosticsDir string `yaml:"diagnosticsDir,omitempty"`

	// DBDir holds the SQLite database with the current event set.
	DBDir string `yaml:"dbDir,omitempty"`

	// ReportFormat selects the run summary format printed after each run.
	ReportFormat string `yaml:"reportFormat,omitempty"`

	// Verbose enables debug logging.
	Verbose bool `yaml:"-"`

	// ConfigFilePath is the configuration file given with --config.
	ConfigFilePath string `yaml:"-"`

	// Browser configures the automated browser.
	Browser BrowserConfig `yaml:"browser"`

	// Retailers holds per-retailer credentials and settings.
	Retailers Retailers `yaml:"retailers"`
}

// BrowserConfig configures how browsers are obtained.
type BrowserConfig struct {
	// RemoteURL is a DevTools websocket URL of an already running browser.
	// When empty, a local Chromium is launched for every session.
	RemoteURL string `yaml:"remoteURL,omitempty"`

	// Bin is the browser executable. Empty lets the launcher find or
	// download one.
	Bin string `yaml:"bin,omitempty"`

	// Headless hides the browser window.
	Headless bool `yaml:"headless"`

	// NoSandbox disables the Chromium sandbox, required in some containers.
	NoSandbox bool `yaml:"noSandbox"`
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		IntervalHours:     DefaultIntervalHours,
		OutputPath:        filepath.Join(XDGDataDir(), DefaultCalendarFile),
		CalendarName:      DefaultCalendarName,
		Timezone:          DefaultTimezone,
		SessionTimeout:    DefaultSessionTimeout,
		GraceDays:         DefaultGraceDays,
		NavigationRetries: DefaultNavigationRetries,
		DiagnosticsDir:    filepath.Join(XDGCacheDir(), "diagnostics"),
		DBDir:             XDGDataDir(),
		ReportFormat:      DefaultReportFormat,
		Browser: BrowserConfig{
			Headless: true,
		},
		Retailers: Retailers{
			Amazon: AmazonConfig{
				BaseURL:  DefaultAmazonBaseURL,
				MaxPages: DefaultAmazonMaxPages,
			},
			IKEA: IKEAConfig{
				BaseURL: DefaultIKEABaseURL,
				Locale:  DefaultIKEALocale,
			},
		},
	}
}

// Interval returns IntervalHours as a duration.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.IntervalHours) * time.Hour
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == DefaultTimezone {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// XDGDataDir returns the data directory, e.g. ~/.local/share/deliverycal.
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the config directory, e.g. ~/.config/deliverycal.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGCacheDir returns the cache directory, e.g. ~/.cache/deliverycal.
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// Validate checks the configuration needed by the run command and returns
// the first problem found.
func (c *Config) Validate() error {
	if c.IntervalHours <= 0 {
		return ErrInvalidInterval
	}
	if c.OutputPath == "" {
		return ErrEmptyOutputPath
	}
	if c.SessionTimeout <= 0 {
		return ErrInvalidSessionTimeout
	}
	if c.GraceDays < 0 {
		return ErrInvalidGraceDays
	}
	if c.NavigationRetries < 0 {
		return ErrInvalidNavigationRetries
	}
	if _, err := c.Location(); err != nil {
		return ErrInvalidTimezone
	}
	switch c.ReportFormat {
	case ReportFormatText, ReportFormatJSON, ReportFormatMarkdown:
	default:
		return ErrInvalidReportFormat
	}
	if c.Retailers.Amazon.MaxPages <= 0 {
		return ErrInvalidMaxPages
	}
	if len(c.Retailers.Enabled()) == 0 {
		return ErrNoRetailers
	}
	return nil
}
