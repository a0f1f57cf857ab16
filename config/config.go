// Package config holds scrape run configuration.
package config

import (
	"fmt"
	"net/url"
	"time"
)

// Config holds the knobs for one source's scrape run.
type Config struct {
	Source  string
	BaseURL string

	// Search targets. States drives per-state searches on sources that
	// support them; TotalRecordTarget stops the run early once met.
	States            []string
	MaxPages          int
	TotalRecordTarget int

	// Politeness controls.
	RequestsPerMinute int
	RequestsPerHour   int
	SettleDelayMin    time.Duration
	SettleDelayMax    time.Duration
	TargetDelay       time.Duration

	// Request execution.
	MaxRetries      int
	RetryBackoff    time.Duration
	RetryBackoffMax time.Duration
	Timeout         time.Duration

	// Session identity. Headless selects the hardened automation profile
	// (anti-detection transport plus rotated fingerprint headers).
	Headless bool

	// Proxy pool.
	UseProxy      bool
	ProxyListURL  string
	ProxyListFile string

	// Output. Format is sqlite, csv, json, or dual.
	OutputFile   string
	OutputFormat string

	MetricsAddr string
	Verbose     bool
}

// DefaultConfig returns conservative defaults for a polite scrape.
func DefaultConfig() *Config {
	return &Config{
		Source:            "usaswimming",
		BaseURL:           "https://data.usaswimming.org",
		States:            []string{"CA", "TX", "FL", "IL", "OH", "PA"},
		MaxPages:          10,
		RequestsPerMinute: 10,
		RequestsPerHour:   100,
		SettleDelayMin:    1 * time.Second,
		SettleDelayMax:    3 * time.Second,
		TargetDelay:       2 * time.Second,
		MaxRetries:        3,
		RetryBackoff:      500 * time.Millisecond,
		RetryBackoffMax:   5 * time.Second,
		Timeout:           30 * time.Second,
		Headless:          true,
		UseProxy:          false,
		OutputFile:        "output/swim_times.db",
		OutputFormat:      "sqlite",
		Verbose:           false,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.Source == "" {
		return fmt.Errorf("source cannot be empty")
	}
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}

	if c.MaxPages <= 0 {
		return fmt.Errorf("max pages must be positive")
	}
	if c.TotalRecordTarget < 0 {
		return fmt.Errorf("total record target cannot be negative")
	}
	if c.RequestsPerMinute <= 0 {
		return fmt.Errorf("requests per minute must be positive")
	}
	if c.RequestsPerHour <= 0 {
		return fmt.Errorf("requests per hour must be positive")
	}
	if c.RequestsPerHour < c.RequestsPerMinute {
		return fmt.Errorf("requests per hour (%d) cannot be lower than requests per minute (%d)", c.RequestsPerHour, c.RequestsPerMinute)
	}
	if c.SettleDelayMin < 0 || c.SettleDelayMax < 0 {
		return fmt.Errorf("settle delays cannot be negative")
	}
	if c.SettleDelayMax > 0 && c.SettleDelayMin > c.SettleDelayMax {
		return fmt.Errorf("settle delay min (%s) cannot exceed max (%s)", c.SettleDelayMin, c.SettleDelayMax)
	}
	if c.TargetDelay < 0 {
		return fmt.Errorf("target delay cannot be negative")
	}
	if c.MaxRetries <= 0 {
		return fmt.Errorf("max retries must be positive")
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("retry backoff cannot be negative")
	}
	if c.RetryBackoffMax < 0 {
		return fmt.Errorf("retry backoff max cannot be negative")
	}
	if c.RetryBackoffMax > 0 && c.RetryBackoff > c.RetryBackoffMax {
		return fmt.Errorf("retry backoff (%s) cannot exceed retry backoff max (%s)", c.RetryBackoff, c.RetryBackoffMax)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.UseProxy && c.ProxyListURL == "" && c.ProxyListFile == "" {
		return fmt.Errorf("proxying enabled but no proxy list URL or file configured")
	}
	if c.OutputFile == "" {
		return fmt.Errorf("output file cannot be empty")
	}
	switch c.OutputFormat {
	case "sqlite", "csv", "json", "dual":
	default:
		return fmt.Errorf("output format must be sqlite, csv, json, or dual")
	}

	return nil
}
