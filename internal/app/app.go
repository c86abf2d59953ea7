// Package app wires configuration into the extraction, segmentation and
// catalogue services and runs one of the command modes.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/docsections/internal/aggregate"
	"github.com/hyperifyio/docsections/internal/cache"
	"github.com/hyperifyio/docsections/internal/catalog"
	"github.com/hyperifyio/docsections/internal/extract"
	"github.com/hyperifyio/docsections/internal/fetch"
	"github.com/hyperifyio/docsections/internal/segment"
	"github.com/hyperifyio/docsections/internal/server"
)

// ErrExtractionFailed is returned by the -url mode when the document could
// not be fetched or parsed. The JSON report is still written.
var ErrExtractionFailed = errors.New("extraction failed")

type App struct {
	cfg       Config
	httpCache *cache.HTTPCache
	sections  *cache.SectionCache
	extractor *extract.Extractor
	segmenter *segment.Segmenter
	store     *catalog.SQLiteStore
	service   *aggregate.Service
}

// DocumentReport is the -url mode output.
type DocumentReport struct {
	URL string `json:"url"`
	extract.ExtractionResult
	Strategy          segment.Kind      `json:"strategy,omitempty"`
	FormattedSections []segment.Section `json:"formatted_sections"`
}

func New(ctx context.Context, cfg Config) (*App, error) {
	a := &App{cfg: cfg}
	if cfg.CacheDir != "" {
		a.prepareCache()
	}

	timeout := cfg.FetchTimeout
	if timeout <= 0 {
		timeout = fetch.DefaultTimeout
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	client := &fetch.Client{
		HTTPClient:        newDocumentHTTPClient(timeout),
		UserAgent:         ua,
		MaxAttempts:       1,
		PerRequestTimeout: timeout,
		MaxBodyBytes:      cfg.MaxBodyBytes,
		Cache:             a.httpCache,
		RedirectMaxHops:   5,
	}
	ex, err := extract.New(client, cfg.Backend)
	if err != nil {
		return nil, fmt.Errorf("extractor: %w", err)
	}
	a.extractor = ex

	rules, err := loadRules(cfg.RulesPath)
	if err != nil {
		return nil, fmt.Errorf("segment rules: %w", err)
	}
	var opts []segment.Option
	if a.sections != nil {
		opts = append(opts, segment.WithMemo(segment.DiskMemo{Cache: a.sections}))
	}
	if a.segmenter, err = segment.New(rules, opts...); err != nil {
		return nil, fmt.Errorf("segmenter: %w", err)
	}
	// The rules were tuned against one backend's line framing; log the pair
	// so a changed result can be traced to either side.
	log.Info().
		Str("backend", ex.Backend.Name()).
		Str("rules", rules.Fingerprint()).
		Interface("strategies", a.segmenter.Kinds()).
		Msg("pipeline configured")

	if a.needsStore() {
		if a.store, err = catalog.OpenSQLite(ctx, cfg.DBPath); err != nil {
			return nil, fmt.Errorf("open catalogue: %w", err)
		}
		a.service = &aggregate.Service{
			Store: a.store,
			Aggregator: &aggregate.Aggregator{
				Extractor:       ex,
				Segmenter:       a.segmenter,
				Representatives: cfg.Representatives,
				MaxConcurrent:   cfg.MaxConcurrent,
				ExtractSlugs:    cfg.ExtractTypes,
			},
		}
	}
	return a, nil
}

func (a *App) needsStore() bool {
	return a.cfg.Serve || a.cfg.Product != "" || a.cfg.SeedPath != ""
}

// prepareCache applies the invalidation controls and limits, then opens
// both caches. Cache problems never fail startup.
func (a *App) prepareCache() {
	dir := a.cfg.CacheDir
	httpDir := filepath.Join(dir, "http")
	secDir := filepath.Join(dir, "sections")
	if a.cfg.CacheClear {
		if err := cache.ClearDir(dir); err != nil {
			log.Warn().Err(err).Str("dir", dir).Msg("cache clear failed")
		}
	}
	if a.cfg.CacheMaxAge > 0 {
		n1, _ := cache.PurgeHTTPCacheByAge(httpDir, a.cfg.CacheMaxAge)
		n2, _ := cache.PurgeSectionCacheByAge(secDir, a.cfg.CacheMaxAge)
		if n1+n2 > 0 {
			log.Debug().Int("http", n1).Int("sections", n2).Msg("purged stale cache entries")
		}
	}
	if a.cfg.CacheMaxBytes > 0 || a.cfg.CacheMaxEntries > 0 {
		if _, err := cache.EnforceHTTPCacheLimits(httpDir, a.cfg.CacheMaxBytes, a.cfg.CacheMaxEntries); err != nil {
			log.Warn().Err(err).Msg("http cache limit enforcement failed")
		}
		if _, err := cache.EnforceSectionCacheLimits(secDir, a.cfg.CacheMaxBytes, a.cfg.CacheMaxEntries); err != nil {
			log.Warn().Err(err).Msg("section cache limit enforcement failed")
		}
	}
	a.httpCache = &cache.HTTPCache{Dir: httpDir, StrictPerms: a.cfg.CacheStrictPerms}
	a.sections = &cache.SectionCache{Dir: secDir, StrictPerms: a.cfg.CacheStrictPerms}
}

func (a *App) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			log.Warn().Err(err).Msg("close catalogue")
		}
	}
}

// Run executes the configured mode. Seeding runs first so a single
// invocation can load a catalogue and serve or query it.
func (a *App) Run(ctx context.Context) error {
	if a.cfg.SeedPath != "" {
		if err := a.seed(ctx); err != nil {
			return err
		}
	}
	switch {
	case a.cfg.Serve:
		return a.serve(ctx)
	case strings.TrimSpace(a.cfg.URL) != "":
		return a.runURL(ctx, strings.TrimSpace(a.cfg.URL))
	case strings.TrimSpace(a.cfg.Product) != "":
		return a.runProduct(ctx, strings.TrimSpace(a.cfg.Product))
	}
	return nil
}

func (a *App) seed(ctx context.Context) error {
	s, err := catalog.LoadSeed(a.cfg.SeedPath)
	if err != nil {
		return err
	}
	n, err := a.store.Import(ctx, s)
	if err != nil {
		return fmt.Errorf("import seed: %w", err)
	}
	log.Info().Str("seed", a.cfg.SeedPath).Int("types", len(s.Types)).Int("documents", n).Msg("catalogue seeded")
	return nil
}

// Handler is the HTTP API bound to this app's catalogue.
func (a *App) Handler() http.Handler {
	return server.New(a.service, log.Logger)
}

func (a *App) serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.ListenAddr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	log.Info().Str("addr", a.cfg.ListenAddr).Str("version", BuildVersion).Msg("listening")

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Info().Msg("shutting down")
	return srv.Shutdown(shutdownCtx)
}

// ExtractURL extracts and segments one document.
func (a *App) ExtractURL(ctx context.Context, url string) DocumentReport {
	rep := DocumentReport{URL: url, ExtractionResult: a.extractor.ExtractResult(ctx, url)}
	rep.FormattedSections = []segment.Section{}
	if rep.Success {
		rep.Strategy = a.segmenter.Plan(rep.Text)
		if secs := a.segmenter.Segment(rep.Text); secs != nil {
			rep.FormattedSections = secs
		}
	}
	return rep
}

func (a *App) runURL(ctx context.Context, url string) error {
	rep := a.ExtractURL(ctx, url)
	if err := writeJSONOutput(a.cfg.OutputPath, rep); err != nil {
		return err
	}
	if !rep.Success {
		return fmt.Errorf("%w: %s", ErrExtractionFailed, rep.Error)
	}
	log.Info().Str("url", url).Str("strategy", string(rep.Strategy)).Int("sections", len(rep.FormattedSections)).Msg("document segmented")
	if a.cfg.PDFPath != "" {
		title := filepath.Base(url)
		if err := writeSectionsPDF(title, []pdfPart{{Sections: rep.FormattedSections, Bulleted: rep.Strategy == segment.KindBullets}}, a.cfg.PDFPath); err != nil {
			return fmt.Errorf("write pdf: %w", err)
		}
		log.Info().Str("out", a.cfg.PDFPath).Msg("wrote pdf")
	}
	return nil
}

func (a *App) runProduct(ctx context.Context, model string) error {
	resp, err := a.service.ProductDocuments(ctx, model)
	if err != nil {
		return err
	}
	if err := writeJSONOutput(a.cfg.OutputPath, resp); err != nil {
		return err
	}
	log.Info().Str("model_number", model).Int("documents", resp.TotalDocuments).Int("types", len(resp.DocumentsByType)).Msg("product aggregated")
	if a.cfg.PDFPath != "" {
		parts := make([]pdfPart, 0, len(resp.DocumentsByType))
		for _, g := range resp.DocumentsByType {
			if len(g.FormattedSections) == 0 {
				continue
			}
			parts = append(parts, pdfPart{
				Heading:  g.TypeName,
				Sections: g.FormattedSections,
				Bulleted: g.DisplayFormat == catalog.FormatBullets,
			})
		}
		if err := writeSectionsPDF(model, parts, a.cfg.PDFPath); err != nil {
			return fmt.Errorf("write pdf: %w", err)
		}
		log.Info().Str("out", a.cfg.PDFPath).Msg("wrote pdf")
	}
	return nil
}

// writeJSONOutput writes v to path, or to stdout when path is empty or "-".
func writeJSONOutput(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	if path == "" || path == "-" {
		_, err = os.Stdout.Write(b)
		return err
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
