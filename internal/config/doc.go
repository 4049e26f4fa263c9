// Package config holds the run configuration of deliverycal: scheduling
// interval, output locations, per-retailer credentials and browser
// settings. Values come from NewConfig defaults, then the optional
// .deliverycal YAML file, then retailer environment variables, then CLI
// flags.
package config
