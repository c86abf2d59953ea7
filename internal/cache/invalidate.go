package cache

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	metaSuffix    = ".meta.json"
	bodySuffix    = ".body"
	sectionSuffix = ".sections.json"
)

// ClearDir removes the directory and all contents. It recreates the directory
// afterwards to leave a valid empty cache location.
func ClearDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return errors.New("empty dir")
	}
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o755)
}

// PurgeHTTPCacheByAge removes document cache entries older than maxAge.
// It inspects <key>.meta.json for the SavedAt timestamp and deletes both meta
// and the corresponding <key>.body when expired.
func PurgeHTTPCacheByAge(dir string, maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		return 0, nil
	}
	now := time.Now().UTC()
	removed := 0
	err := walkFiles(dir, func(path string, d fs.DirEntry) {
		if !strings.HasSuffix(d.Name(), metaSuffix) {
			return
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return
		}
		var e HTTPEntry
		if err := json.Unmarshal(b, &e); err != nil {
			return
		}
		if now.Sub(e.SavedAt) <= maxAge {
			return
		}
		removed++
		_ = os.Remove(path)
		_ = os.Remove(strings.TrimSuffix(path, metaSuffix) + bodySuffix)
	})
	return removed, err
}

// PurgeSectionCacheByAge removes section cache entries whose modification
// time is older than maxAge. Get touches entries, so this is age since last
// use.
func PurgeSectionCacheByAge(dir string, maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		return 0, nil
	}
	now := time.Now().UTC()
	removed := 0
	err := walkFiles(dir, func(path string, d fs.DirEntry) {
		if !strings.HasSuffix(d.Name(), sectionSuffix) {
			return
		}
		info, err := d.Info()
		if err != nil {
			return
		}
		if now.Sub(info.ModTime().UTC()) <= maxAge {
			return
		}
		removed++
		_ = os.Remove(path)
	})
	return removed, err
}

// entry is one evictable cache item made of one or more files.
type entry struct {
	paths   []string
	size    int64
	lastUse time.Time
}

// EnforceHTTPCacheLimits evicts least recently used document entries until
// the cache holds at most maxCount entries and maxBytes bytes. A zero limit
// is not enforced.
func EnforceHTTPCacheLimits(dir string, maxBytes int64, maxCount int) (int, error) {
	byKey := map[string]*entry{}
	err := walkFiles(dir, func(path string, d fs.DirEntry) {
		name := d.Name()
		var key string
		switch {
		case strings.HasSuffix(name, metaSuffix):
			key = strings.TrimSuffix(path, metaSuffix)
		case strings.HasSuffix(name, bodySuffix):
			key = strings.TrimSuffix(path, bodySuffix)
		default:
			return
		}
		info, err := d.Info()
		if err != nil {
			return
		}
		e := byKey[key]
		if e == nil {
			e = &entry{}
			byKey[key] = e
		}
		e.paths = append(e.paths, path)
		e.size += info.Size()
		if info.ModTime().After(e.lastUse) {
			e.lastUse = info.ModTime()
		}
	})
	if err != nil {
		return 0, err
	}
	entries := make([]*entry, 0, len(byKey))
	for _, e := range byKey {
		entries = append(entries, e)
	}
	return evict(entries, maxBytes, maxCount), nil
}

// EnforceSectionCacheLimits is EnforceHTTPCacheLimits for the section cache.
func EnforceSectionCacheLimits(dir string, maxBytes int64, maxCount int) (int, error) {
	var entries []*entry
	err := walkFiles(dir, func(path string, d fs.DirEntry) {
		if !strings.HasSuffix(d.Name(), sectionSuffix) {
			return
		}
		info, err := d.Info()
		if err != nil {
			return
		}
		entries = append(entries, &entry{paths: []string{path}, size: info.Size(), lastUse: info.ModTime()})
	})
	if err != nil {
		return 0, err
	}
	return evict(entries, maxBytes, maxCount), nil
}

func evict(entries []*entry, maxBytes int64, maxCount int) int {
	if maxBytes <= 0 && maxCount <= 0 {
		return 0
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].lastUse.Before(entries[j].lastUse) })
	var total int64
	for _, e := range entries {
		total += e.size
	}
	count := len(entries)
	removed := 0
	for _, e := range entries {
		overCount := maxCount > 0 && count > maxCount
		overBytes := maxBytes > 0 && total > maxBytes
		if !overCount && !overBytes {
			break
		}
		for _, p := range e.paths {
			_ = os.Remove(p)
		}
		count--
		total -= e.size
		removed++
	}
	return removed
}

func walkFiles(dir string, fn func(path string, d fs.DirEntry)) error {
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			fn(path, d)
		}
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
