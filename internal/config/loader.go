package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the configuration file name.
const DefaultConfigFile = ".deliverycal"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// Environment variables that override credentials from the file.
const (
	EnvAmazonEmail      = "AMAZON_EMAIL"
	EnvAmazonPassword   = "AMAZON_PASSWORD"
	EnvAmazonTOTPSecret = "AMAZON_TOTP_SECRET"
	EnvIKEAEmail        = "IKEA_EMAIL"
	EnvIKEAPassword     = "IKEA_PASSWORD"
	EnvIKEATOTPSecret   = "IKEA_TOTP_SECRET"
)

// LoadConfigFile reads the YAML file at path into cfg. Keys absent from the
// file keep the values already in cfg, so cfg should hold the defaults.
func LoadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path) //nolint:gosec // user-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return ErrConfigNotFound
		}
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// FindConfigFile returns the configuration file to use, or "" if none:
//  1. configPath, when given and present
//  2. .deliverycal in the current directory
//  3. .deliverycal in the home directory
//  4. config.yaml in the XDG config directory
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	var candidates []string
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, DefaultConfigFile))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, DefaultConfigFile))
	}
	candidates = append(candidates, filepath.Join(XDGConfigDir(), "config.yaml"))

	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}

// ApplyEnv overrides retailer credentials with non-empty environment
// variables. lookup is usually os.LookupEnv.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) {
	set := func(dst *string, key string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	set(&cfg.Retailers.Amazon.Email, EnvAmazonEmail)
	set(&cfg.Retailers.Amazon.Password, EnvAmazonPassword)
	set(&cfg.Retailers.Amazon.TOTPSecret, EnvAmazonTOTPSecret)
	set(&cfg.Retailers.IKEA.Email, EnvIKEAEmail)
	set(&cfg.Retailers.IKEA.Password, EnvIKEAPassword)
	set(&cfg.Retailers.IKEA.TOTPSecret, EnvIKEATOTPSecret)
}
