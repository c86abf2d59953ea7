package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"

	"github.com/hyperifyio/docsections/internal/extract"
	"github.com/hyperifyio/docsections/internal/segment"
)

// FileConfig represents the single-file configuration schema.
type FileConfig struct {
	DB     string `yaml:"db" json:"db"`
	Seed   string `yaml:"seed" json:"seed"`
	Listen string `yaml:"listen" json:"listen"`

	Extract struct {
		Backend      string        `yaml:"backend" json:"backend"`
		Timeout      time.Duration `yaml:"timeout" json:"timeout"`
		MaxBodyBytes int64         `yaml:"maxBodyBytes" json:"maxBodyBytes"`
		UserAgent    string        `yaml:"userAgent" json:"userAgent"`
		Types        []string      `yaml:"types" json:"types"`
	} `yaml:"extract" json:"extract"`

	Segment struct {
		Rules           string `yaml:"rules" json:"rules"`
		Representatives int    `yaml:"representatives" json:"representatives"`
		MaxConcurrent   int    `yaml:"maxConcurrent" json:"maxConcurrent"`
	} `yaml:"segment" json:"segment"`

	Cache struct {
		Dir         string        `yaml:"dir" json:"dir"`
		MaxAge      time.Duration `yaml:"maxAge" json:"maxAge"`
		Clear       bool          `yaml:"clear" json:"clear"`
		StrictPerms bool          `yaml:"strictPerms" json:"strictPerms"`
		MaxBytes    int64         `yaml:"maxBytes" json:"maxBytes"`
		MaxEntries  int           `yaml:"maxEntries" json:"maxEntries"`
	} `yaml:"cache" json:"cache"`

	Verbose bool `yaml:"verbose" json:"verbose"`
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFileConfig overlays values from fc into cfg for any fields that are
// unset or still at their flag default.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
	if cfg == nil {
		return
	}
	if (cfg.DBPath == "" || cfg.DBPath == DefaultDBPath) && fc.DB != "" {
		cfg.DBPath = fc.DB
	}
	if cfg.SeedPath == "" && fc.Seed != "" {
		cfg.SeedPath = fc.Seed
	}
	if (cfg.ListenAddr == "" || cfg.ListenAddr == DefaultListenAddr) && fc.Listen != "" {
		cfg.ListenAddr = fc.Listen
	}

	if (cfg.Backend == "" || cfg.Backend == extract.DefaultBackend) && fc.Extract.Backend != "" {
		cfg.Backend = fc.Extract.Backend
	}
	if cfg.FetchTimeout == 0 && fc.Extract.Timeout > 0 {
		cfg.FetchTimeout = fc.Extract.Timeout
	}
	if cfg.MaxBodyBytes == 0 && fc.Extract.MaxBodyBytes > 0 {
		cfg.MaxBodyBytes = fc.Extract.MaxBodyBytes
	}
	if (cfg.UserAgent == "" || cfg.UserAgent == DefaultUserAgent) && fc.Extract.UserAgent != "" {
		cfg.UserAgent = fc.Extract.UserAgent
	}
	if len(cfg.ExtractTypes) == 0 && len(fc.Extract.Types) > 0 {
		cfg.ExtractTypes = append([]string{}, fc.Extract.Types...)
	}

	if cfg.RulesPath == "" && fc.Segment.Rules != "" {
		cfg.RulesPath = fc.Segment.Rules
	}
	if cfg.Representatives == 0 && fc.Segment.Representatives > 0 {
		cfg.Representatives = fc.Segment.Representatives
	}
	if cfg.MaxConcurrent == 0 && fc.Segment.MaxConcurrent > 0 {
		cfg.MaxConcurrent = fc.Segment.MaxConcurrent
	}

	if (cfg.CacheDir == "" || cfg.CacheDir == DefaultCacheDir) && fc.Cache.Dir != "" {
		cfg.CacheDir = fc.Cache.Dir
	}
	if cfg.CacheMaxAge == 0 && fc.Cache.MaxAge > 0 {
		cfg.CacheMaxAge = fc.Cache.MaxAge
	}
	if !cfg.CacheClear && fc.Cache.Clear {
		cfg.CacheClear = true
	}
	if !cfg.CacheStrictPerms && fc.Cache.StrictPerms {
		cfg.CacheStrictPerms = true
	}
	if cfg.CacheMaxBytes == 0 && fc.Cache.MaxBytes > 0 {
		cfg.CacheMaxBytes = fc.Cache.MaxBytes
	}
	if cfg.CacheMaxEntries == 0 && fc.Cache.MaxEntries > 0 {
		cfg.CacheMaxEntries = fc.Cache.MaxEntries
	}
	if !cfg.Verbose && fc.Verbose {
		cfg.Verbose = true
	}
}

// ValidateConfig checks settings before anything is opened. The backend and
// the rules are validated together because the rules only make sense for the
// line framing the backend produces.
func ValidateConfig(cfg Config) error {
	if !cfg.Serve && strings.TrimSpace(cfg.URL) == "" && strings.TrimSpace(cfg.Product) == "" && cfg.SeedPath == "" {
		return errors.New("config: nothing to do (use -serve, -url, -product or -seed)")
	}
	if cfg.Serve && strings.TrimSpace(cfg.ListenAddr) == "" {
		return errors.New("config: listen address is required to serve")
	}
	if (cfg.Serve || cfg.Product != "" || cfg.SeedPath != "") && strings.TrimSpace(cfg.DBPath) == "" {
		return errors.New("config: db path is required")
	}
	if cfg.FetchTimeout < 0 || cfg.MaxBodyBytes < 0 || cfg.CacheMaxAge < 0 {
		return errors.New("config: negative durations or sizes are not allowed")
	}
	if cfg.Representatives < 0 || cfg.MaxConcurrent < 0 || cfg.CacheMaxBytes < 0 || cfg.CacheMaxEntries < 0 {
		return errors.New("config: negative limits are not allowed")
	}
	if _, err := extract.NewBackend(cfg.Backend); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := loadRules(cfg.RulesPath); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// loadRules returns the default rules when path is empty.
func loadRules(path string) (segment.Rules, error) {
	if strings.TrimSpace(path) == "" {
		return segment.DefaultRules(), nil
	}
	r, err := segment.LoadRules(path)
	if err != nil {
		return r, err
	}
	return r, r.Validate()
}
