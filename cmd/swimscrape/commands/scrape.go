package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/swimdata/go-scrape-swim/config"
	"github.com/swimdata/go-scrape-swim/models"
	"github.com/swimdata/go-scrape-swim/proxy"
	"github.com/swimdata/go-scrape-swim/scraper"
	"github.com/swimdata/go-scrape-swim/session"
	"github.com/swimdata/go-scrape-swim/sources/nisca"
	"github.com/swimdata/go-scrape-swim/sources/usaswimming"
	"github.com/swimdata/go-scrape-swim/store"
)

type adapterFactory func(cfg *config.Config) scraper.SourceAdapter

var adapterFactories = map[string]adapterFactory{
	"usaswimming": func(cfg *config.Config) scraper.SourceAdapter { return usaswimming.New(cfg) },
	"nisca":       func(cfg *config.Config) scraper.SourceAdapter { return nisca.New(cfg) },
}

var scrapeFlags struct {
	source       string
	baseURL      string
	states       []string
	pages        int
	recordTarget int
	rpm          int
	rph          int
	maxRetries   int
	timeout      time.Duration
	headless     bool
	useProxy     bool
	proxyURL     string
	proxyFile    string
	output       string
	format       string
	metricsAddr  string
}

func init() {
	defaults := config.DefaultConfig()
	applyEnvDefaults(defaults)

	f := scrapeCmd.Flags()
	f.StringVar(&scrapeFlags.source, "source", defaults.Source, "Source to scrape: usaswimming or nisca")
	f.StringVar(&scrapeFlags.baseURL, "base-url", defaults.BaseURL, "Base URL of the source site")
	f.StringSliceVar(&scrapeFlags.states, "states", defaults.States, "States to search, for sources that search per state")
	f.IntVar(&scrapeFlags.pages, "pages", defaults.MaxPages, "Maximum result pages per target")
	f.IntVar(&scrapeFlags.recordTarget, "record-target", defaults.TotalRecordTarget, "Stop the run once this many records are collected (0 = no cap)")
	f.IntVar(&scrapeFlags.rpm, "rpm", defaults.RequestsPerMinute, "Request ceiling per rolling minute")
	f.IntVar(&scrapeFlags.rph, "rph", defaults.RequestsPerHour, "Request ceiling per rolling hour")
	f.IntVar(&scrapeFlags.maxRetries, "max-retries", defaults.MaxRetries, "Attempts per navigation before giving up")
	f.DurationVar(&scrapeFlags.timeout, "timeout", defaults.Timeout, "Per-request timeout")
	f.BoolVar(&scrapeFlags.headless, "headless", defaults.Headless, "Use the hardened automation profile")
	f.BoolVar(&scrapeFlags.useProxy, "use-proxy", defaults.UseProxy, "Route requests through the proxy pool")
	f.StringVar(&scrapeFlags.proxyURL, "proxy-url", defaults.ProxyListURL, "URL serving a proxy list, plain text or HTML table")
	f.StringVar(&scrapeFlags.proxyFile, "proxy-file", defaults.ProxyListFile, "File holding one proxy host:port per line")
	f.StringVar(&scrapeFlags.output, "output", defaults.OutputFile, "Output file path")
	f.StringVar(&scrapeFlags.format, "format", defaults.OutputFormat, "Output format: sqlite, csv, json, or dual")
	f.StringVar(&scrapeFlags.metricsAddr, "metrics-addr", defaults.MetricsAddr, "Prometheus metrics listen address (e.g. :9090)")

	rootCmd.AddCommand(scrapeCmd)
}

func applyEnvDefaults(cfg *config.Config) {
	if value, ok := config.EnvString("SWIMSCRAPE_OUTPUT"); ok {
		cfg.OutputFile = value
	}
	if value, ok := config.EnvString("SWIMSCRAPE_METRICS_ADDR"); ok {
		cfg.MetricsAddr = value
	}
	if value, ok, err := config.EnvInt("SWIMSCRAPE_PAGES"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid SWIMSCRAPE_PAGES: %v\n", err)
		os.Exit(1)
	} else if ok {
		cfg.MaxPages = value
	}
	if value, ok, err := config.EnvBool("SWIMSCRAPE_USE_PROXY"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid SWIMSCRAPE_USE_PROXY: %v\n", err)
		os.Exit(1)
	} else if ok {
		cfg.UseProxy = value
	}
	if value, ok, err := config.EnvDuration("SWIMSCRAPE_TIMEOUT"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid SWIMSCRAPE_TIMEOUT: %v\n", err)
		os.Exit(1)
	} else if ok {
		cfg.Timeout = value
	}
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scrapes one source and writes the results to the configured output.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := buildConfig()
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		factory, ok := adapterFactories[cfg.Source]
		if !ok {
			return fmt.Errorf("unknown source %q, see 'swimscrape sources'", cfg.Source)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		go func() {
			<-ctx.Done()
			slog.Info("shutdown signal received, finishing in-flight work")
		}()

		return runScrape(ctx, cfg, factory(cfg))
	},
}

func buildConfig() *config.Config {
	cfg := config.DefaultConfig()
	applyEnvDefaults(cfg)

	cfg.Source = strings.ToLower(scrapeFlags.source)
	cfg.BaseURL = scrapeFlags.baseURL
	cfg.States = scrapeFlags.states
	cfg.MaxPages = scrapeFlags.pages
	cfg.TotalRecordTarget = scrapeFlags.recordTarget
	cfg.RequestsPerMinute = scrapeFlags.rpm
	cfg.RequestsPerHour = scrapeFlags.rph
	cfg.MaxRetries = scrapeFlags.maxRetries
	cfg.Timeout = scrapeFlags.timeout
	cfg.Headless = scrapeFlags.headless
	cfg.UseProxy = scrapeFlags.useProxy
	cfg.ProxyListURL = scrapeFlags.proxyURL
	cfg.ProxyListFile = scrapeFlags.proxyFile
	cfg.OutputFile = scrapeFlags.output
	cfg.OutputFormat = strings.ToLower(scrapeFlags.format)
	cfg.MetricsAddr = scrapeFlags.metricsAddr
	cfg.Verbose = verbose
	return cfg
}

func runScrape(ctx context.Context, cfg *config.Config, adapter scraper.SourceAdapter) error {
	metrics := scraper.NewMetrics()

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	pool, err := buildProxyPool(cfg)
	if err != nil {
		return err
	}

	sink, err := store.Open(cfg)
	if err != nil {
		return fmt.Errorf("opening output: %w", err)
	}
	defer func() {
		if err := sink.Close(); err != nil {
			slog.Error("closing output", slog.Any("error", err))
		}
	}()

	slog.Info("starting scrape",
		slog.String("source", cfg.Source),
		slog.String("base_url", cfg.BaseURL),
		slog.Int("pages", cfg.MaxPages),
		slog.Int("rpm", cfg.RequestsPerMinute))

	orch := scraper.NewOrchestrator(cfg, pool, metrics, session.Factory(cfg, pool))
	records, summary, err := orch.Run(ctx, adapter)
	if err != nil {
		return fmt.Errorf("scrape failed: %w", err)
	}

	saved, err := sink.Save(context.Background(), records)
	if err != nil {
		return fmt.Errorf("saving records: %w", err)
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	printSummary(summary, saved, cfg.OutputFile)
	if summary.TargetsSucceeded == 0 && summary.TargetsAttempted > 0 {
		return fmt.Errorf("every target failed")
	}
	return nil
}

func buildProxyPool(cfg *config.Config) (*proxy.Pool, error) {
	if !cfg.UseProxy {
		return nil, nil
	}

	pool := proxy.NewPool()
	if cfg.ProxyListFile != "" {
		if _, err := pool.LoadFromFile(cfg.ProxyListFile); err != nil {
			return nil, fmt.Errorf("loading proxy file: %w", err)
		}
	}
	if cfg.ProxyListURL != "" {
		if strings.Contains(cfg.ProxyListURL, ".html") || strings.HasSuffix(cfg.ProxyListURL, "/") {
			if _, err := pool.DiscoverFromHTML(cfg.ProxyListURL); err != nil {
				return nil, fmt.Errorf("discovering proxies: %w", err)
			}
		} else if _, err := pool.LoadFromURL(cfg.ProxyListURL); err != nil {
			return nil, fmt.Errorf("loading proxy list: %w", err)
		}
	}
	slog.Info("proxy pool loaded", slog.Int("size", pool.Len()))
	return pool, nil
}

func printSummary(summary *models.Summary, saved int, outputFile string) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Scrape complete")
	fmt.Printf("  Source:        %s\n", summary.Source)
	fmt.Printf("  Targets:       %d attempted, %d succeeded\n", summary.TargetsAttempted, summary.TargetsSucceeded)
	fmt.Printf("  Errors:        %d\n", summary.ErrorCount)
	fmt.Printf("  Records:       %d collected, %d newly saved\n", summary.TotalRecords, saved)
	for _, target := range summary.Targets {
		line := fmt.Sprintf("  - %-14s %4d records, %d pages (%s)", target.Target, target.Records, target.Pages, target.State)
		if target.Err != "" {
			line += ": " + target.Err
		}
		fmt.Println(line)
	}
	fmt.Printf("  Duration:      %v\n", summary.EndTime.Sub(summary.StartTime).Round(time.Millisecond))
	fmt.Printf("  Output file:   %s\n", outputFile)
	fmt.Println(separator)
}
