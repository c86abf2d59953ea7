package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvToConfig populates unset fields of cfg from environment variables.
// Explicit cfg values take precedence over env.
func ApplyEnvToConfig(cfg *Config) {
	if cfg == nil {
		return
	}
	if cfg.DBPath == "" {
		cfg.DBPath = os.Getenv(EnvDBPath)
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = os.Getenv(EnvListenAddr)
	}
	if cfg.Backend == "" {
		cfg.Backend = os.Getenv(EnvBackend)
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = os.Getenv(EnvCacheDir)
	}
	if cfg.RulesPath == "" {
		cfg.RulesPath = os.Getenv(EnvRulesPath)
	}
	if len(cfg.ExtractTypes) == 0 {
		cfg.ExtractTypes = splitList(os.Getenv(EnvExtractTypes))
	}
	if cfg.FetchTimeout == 0 {
		cfg.FetchTimeout = envDuration(EnvFetchTimeout)
	}
	if cfg.CacheMaxAge == 0 {
		cfg.CacheMaxAge = envDuration(EnvCacheMaxAge)
	}
	if cfg.Representatives == 0 {
		cfg.Representatives = envInt(EnvRepresentatives)
	}
	if cfg.MaxConcurrent == 0 {
		cfg.MaxConcurrent = envInt(EnvMaxConcurrent)
	}

	setBool := func(dst *bool, envKey string) {
		if *dst {
			return
		}
		if s := strings.ToLower(strings.TrimSpace(os.Getenv(envKey))); s != "" {
			if s == "1" || s == "true" || s == "yes" || s == "on" {
				*dst = true
			}
		}
	}
	setBool(&cfg.Verbose, EnvVerbose)
	setBool(&cfg.CacheClear, EnvCacheClear)
	setBool(&cfg.CacheStrictPerms, EnvCacheStrictPerms)
}

// ApplyEnvOverrides forcefully overrides cfg fields with environment variables
// when they are set. Env wins over the config file; flags stay highest.
func ApplyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}
	if v := os.Getenv(EnvDBPath); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv(EnvListenAddr); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv(EnvBackend); v != "" {
		cfg.Backend = v
	}
	if v := os.Getenv(EnvCacheDir); v != "" {
		cfg.CacheDir = v
	}
	if v := os.Getenv(EnvRulesPath); v != "" {
		cfg.RulesPath = v
	}
	if l := splitList(os.Getenv(EnvExtractTypes)); len(l) > 0 {
		cfg.ExtractTypes = l
	}
	if d := envDuration(EnvFetchTimeout); d > 0 {
		cfg.FetchTimeout = d
	}
	if d := envDuration(EnvCacheMaxAge); d > 0 {
		cfg.CacheMaxAge = d
	}
	if n := envInt(EnvRepresentatives); n > 0 {
		cfg.Representatives = n
	}
	if n := envInt(EnvMaxConcurrent); n > 0 {
		cfg.MaxConcurrent = n
	}

	setBool := func(dst *bool, envKey string) {
		if s := strings.ToLower(strings.TrimSpace(os.Getenv(envKey))); s != "" {
			switch s {
			case "1", "true", "yes", "on":
				*dst = true
			case "0", "false", "no", "off":
				*dst = false
			}
		}
	}
	setBool(&cfg.Verbose, EnvVerbose)
	setBool(&cfg.CacheClear, EnvCacheClear)
	setBool(&cfg.CacheStrictPerms, EnvCacheStrictPerms)
}

func envDuration(key string) time.Duration {
	if s := strings.TrimSpace(os.Getenv(key)); s != "" {
		if d, err := time.ParseDuration(s); err == nil && d > 0 {
			return d
		}
	}
	return 0
}

func envInt(key string) int {
	if s := strings.TrimSpace(os.Getenv(key)); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 0
}

// splitList parses a comma-separated list, dropping empty items.
func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
