package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"time"
)

// SectionCache stores segmentation results keyed by a digest of the rule set
// fingerprint and the normalized text.
type SectionCache struct {
	Dir         string
	StrictPerms bool
}

func (c *SectionCache) ensureDir() error {
	if c == nil || c.Dir == "" {
		return errors.New("cache dir not configured")
	}
	return ensureDir(c.Dir, c.StrictPerms)
}

// KeyFrom builds a cache key from a scope (rule set fingerprint) and content.
func KeyFrom(scope string, content string) string {
	h := sha256.Sum256([]byte(scope + "\n\n" + content))
	return hex.EncodeToString(h[:])
}

func (c *SectionCache) pathFor(key string) string {
	return filepath.Join(c.Dir, key+sectionSuffix)
}

// Get returns cached bytes if present. A miss is not an error.
func (c *SectionCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	if err := c.ensureDir(); err != nil {
		return nil, false, err
	}
	p := c.pathFor(key)
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, false, nil
	}
	now := time.Now()
	_ = os.Chtimes(p, now, now)
	return b, true, nil
}

// Save writes bytes to cache.
func (c *SectionCache) Save(_ context.Context, key string, data []byte) error {
	if err := c.ensureDir(); err != nil {
		return err
	}
	return writeAtomic(c.pathFor(key), data, fileMode(c.StrictPerms))
}
