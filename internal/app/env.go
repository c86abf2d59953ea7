package app

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
)

// Environment keys read by ApplyEnvToConfig and ApplyEnvOverrides.
const (
	EnvDBPath           = "DB_PATH"            // catalog SQLite file
	EnvListenAddr       = "LISTEN_ADDR"        // HTTP listen address
	EnvBackend          = "EXTRACT_BACKEND"    // plain, streams, runs
	EnvCacheDir         = "CACHE_DIR"          // fetch and segment cache root
	EnvRulesPath        = "SEGMENT_RULES"      // YAML or JSON rules file
	EnvExtractTypes     = "EXTRACT_TYPES"      // comma-separated document type tags
	EnvFetchTimeout     = "FETCH_TIMEOUT"      // Go duration
	EnvCacheMaxAge      = "CACHE_MAX_AGE"      // Go duration
	EnvRepresentatives  = "REPRESENTATIVES"    // documents sampled per type
	EnvMaxConcurrent    = "MAX_CONCURRENT"     // parallel extractions
	EnvVerbose          = "VERBOSE"            // bool
	EnvCacheClear       = "CACHE_CLEAR"        // bool
	EnvCacheStrictPerms = "CACHE_STRICT_PERMS" // bool
)

var knownEnvKeys = map[string]bool{
	EnvDBPath: true, EnvListenAddr: true, EnvBackend: true, EnvCacheDir: true,
	EnvRulesPath: true, EnvExtractTypes: true, EnvFetchTimeout: true,
	EnvCacheMaxAge: true, EnvRepresentatives: true, EnvMaxConcurrent: true,
	EnvVerbose: true, EnvCacheClear: true, EnvCacheStrictPerms: true,
}

// LoadEnvFiles loads dotenv files into the process environment. A variable
// already set to a non-empty value before the call is left alone, so the
// real environment wins over files. Among files, later ones override earlier
// ones. Missing files are skipped.
func LoadEnvFiles(paths ...string) error {
	fromFile := map[string]bool{}
	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			continue
		}
		vals, err := readEnvFile(p)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return err
		}
		for _, kv := range vals {
			if !knownEnvKeys[kv.key] {
				log.Debug().Str("file", p).Str("key", kv.key).Msg("dotenv: key not used by docsections")
			}
			if os.Getenv(kv.key) != "" && !fromFile[kv.key] {
				log.Debug().Str("file", p).Str("key", kv.key).Msg("dotenv: environment wins")
				continue
			}
			if err := os.Setenv(kv.key, kv.val); err != nil {
				return fmt.Errorf("dotenv %s: %w", p, err)
			}
			fromFile[kv.key] = true
		}
	}
	return nil
}

type envPair struct{ key, val string }

func readEnvFile(path string) ([]envPair, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	vals, err := parseEnv(f)
	if err != nil {
		return nil, fmt.Errorf("dotenv %s: %w", path, err)
	}
	return vals, nil
}

// parseEnv reads KEY=VALUE lines in file order. Comments, blank lines and an
// optional "export " prefix are accepted; one level of matching quotes is
// stripped. Values are not expanded.
func parseEnv(r io.Reader) ([]envPair, error) {
	var out []envPair
	sc := bufio.NewScanner(r)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		key, val, ok := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" || strings.ContainsAny(key, " \t") {
			log.Debug().Int("line", n).Msg("dotenv: skipping malformed line")
			continue
		}
		out = append(out, envPair{key: key, val: unquote(strings.TrimSpace(val))})
	}
	return out, sc.Err()
}

func unquote(v string) string {
	if len(v) >= 2 && (v[0] == '"' || v[0] == '\'') && v[len(v)-1] == v[0] {
		return v[1 : len(v)-1]
	}
	return v
}
