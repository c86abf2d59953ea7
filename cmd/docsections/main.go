package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/docsections/internal/app"
	"github.com/hyperifyio/docsections/internal/extract"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if err := app.LoadEnvFiles(".env"); err != nil {
		log.Warn().Err(err).Msg("load .env")
	}

	cfg, showVersion, err := buildConfig(os.Args[1:], os.Stderr)
	if err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		log.Error().Err(err).Msg("invalid arguments")
		os.Exit(2)
	}
	if showVersion {
		fmt.Printf("docsections %s (%s, %s)\n", app.BuildVersion, app.BuildCommit, app.BuildDate)
		return
	}

	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if err := app.ValidateConfig(cfg); err != nil {
		log.Error().Err(err).Msg("invalid configuration")
		os.Exit(2)
	}
	if err := run(cfg); err != nil {
		log.Error().Err(err).Msg("run failed")
		os.Exit(1)
	}
}

// buildConfig resolves settings with precedence flags > env > config file >
// defaults. Only flags given on the command line count as explicit.
func buildConfig(args []string, out io.Writer) (app.Config, bool, error) {
	fs := flag.NewFlagSet("docsections", flag.ContinueOnError)
	fs.SetOutput(out)

	var (
		f           app.Config
		configPath  string
		types       string
		showVersion bool
	)
	fs.StringVar(&configPath, "config", os.Getenv("DOCSECTIONS_CONFIG"), "Path to a YAML or JSON config file")
	fs.StringVar(&f.DBPath, "db", app.DefaultDBPath, "SQLite catalogue path")
	fs.StringVar(&f.SeedPath, "seed", "", "Load catalogue rows from a YAML seed file before running")
	fs.StringVar(&f.ListenAddr, "addr", app.DefaultListenAddr, "Listen address for -serve")
	fs.BoolVar(&f.Serve, "serve", false, "Serve the product documents API")
	fs.StringVar(&f.URL, "url", "", "Extract and segment a single document URL")
	fs.StringVar(&f.Product, "product", "", "Aggregate the documents of one product model number")
	fs.StringVar(&f.OutputPath, "out", "", "Write JSON output to this path instead of stdout")
	fs.StringVar(&f.PDFPath, "pdf", "", "Also render the formatted sections to this PDF path")
	fs.StringVar(&f.Backend, "backend", extract.DefaultBackend, "Extraction backend: "+strings.Join(extract.BackendNames(), ", "))
	fs.DurationVar(&f.FetchTimeout, "timeout", 0, "Per-document download timeout (default 30s)")
	fs.Int64Var(&f.MaxBodyBytes, "max-body", 0, "Maximum document size in bytes (default 100 MiB)")
	fs.StringVar(&f.UserAgent, "ua", app.DefaultUserAgent, "User-Agent for document downloads")
	fs.StringVar(&f.RulesPath, "rules", "", "Segmentation rules file (YAML or JSON)")
	fs.IntVar(&f.Representatives, "representatives", 0, "Documents segmented per type (default 1)")
	fs.IntVar(&f.MaxConcurrent, "concurrency", 0, "Parallel extractions per request (default 4)")
	fs.StringVar(&types, "types", "", "Comma-separated type slugs to extract; empty means all")
	fs.StringVar(&f.CacheDir, "cache.dir", app.DefaultCacheDir, "Cache directory path; empty disables caching")
	fs.DurationVar(&f.CacheMaxAge, "cache.maxAge", 0, "Max age for cache entries before purge (e.g. 24h); 0 disables")
	fs.BoolVar(&f.CacheClear, "cache.clear", false, "Clear cache directory before run")
	fs.BoolVar(&f.CacheStrictPerms, "cache.strictPerms", false, "Restrict cache permissions (0700 dirs, 0600 files)")
	fs.Int64Var(&f.CacheMaxBytes, "cache.maxBytes", 0, "Evict least recently used cache entries above this size; 0 disables")
	fs.IntVar(&f.CacheMaxEntries, "cache.maxEntries", 0, "Evict least recently used cache entries above this count; 0 disables")
	fs.BoolVar(&f.Verbose, "v", false, "Verbose logging")
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	if err := fs.Parse(args); err != nil {
		return app.Config{}, false, err
	}
	f.ExtractTypes = splitList(types)

	set := map[string]bool{}
	fs.Visit(func(fl *flag.Flag) { set[fl.Name] = true })

	var cfg app.Config
	if configPath != "" {
		fc, err := app.LoadConfigFile(configPath)
		if err != nil {
			return cfg, false, fmt.Errorf("config file: %w", err)
		}
		app.ApplyFileConfig(&cfg, fc)
		app.ApplyEnvOverrides(&cfg)
	}

	// explicit flags
	if set["db"] {
		cfg.DBPath = f.DBPath
	}
	if set["seed"] {
		cfg.SeedPath = f.SeedPath
	}
	if set["addr"] {
		cfg.ListenAddr = f.ListenAddr
	}
	if set["backend"] {
		cfg.Backend = f.Backend
	}
	if set["timeout"] {
		cfg.FetchTimeout = f.FetchTimeout
	}
	if set["max-body"] {
		cfg.MaxBodyBytes = f.MaxBodyBytes
	}
	if set["ua"] {
		cfg.UserAgent = f.UserAgent
	}
	if set["rules"] {
		cfg.RulesPath = f.RulesPath
	}
	if set["representatives"] {
		cfg.Representatives = f.Representatives
	}
	if set["concurrency"] {
		cfg.MaxConcurrent = f.MaxConcurrent
	}
	if set["types"] {
		cfg.ExtractTypes = f.ExtractTypes
	}
	if set["cache.dir"] {
		cfg.CacheDir = f.CacheDir
	}
	if set["cache.maxAge"] {
		cfg.CacheMaxAge = f.CacheMaxAge
	}
	if set["cache.clear"] {
		cfg.CacheClear = f.CacheClear
	}
	if set["cache.strictPerms"] {
		cfg.CacheStrictPerms = f.CacheStrictPerms
	}
	if set["cache.maxBytes"] {
		cfg.CacheMaxBytes = f.CacheMaxBytes
	}
	if set["cache.maxEntries"] {
		cfg.CacheMaxEntries = f.CacheMaxEntries
	}
	if set["v"] {
		cfg.Verbose = f.Verbose
	}
	cfg.Serve = f.Serve
	cfg.URL = f.URL
	cfg.Product = f.Product
	cfg.OutputPath = f.OutputPath
	cfg.PDFPath = f.PDFPath

	app.ApplyEnvToConfig(&cfg)

	// defaults for whatever is still unset
	if cfg.DBPath == "" {
		cfg.DBPath = f.DBPath
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = f.ListenAddr
	}
	if cfg.Backend == "" {
		cfg.Backend = f.Backend
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = f.UserAgent
	}
	if cfg.CacheDir == "" && !set["cache.dir"] {
		cfg.CacheDir = f.CacheDir
	}
	return cfg, showVersion, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func run(cfg app.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer a.Close()

	return a.Run(ctx)
}
