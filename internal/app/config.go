package app

import "time"

// Flag defaults. ApplyFileConfig treats a value equal to its default as unset.
const (
	DefaultDBPath     = "docsections.db"
	DefaultListenAddr = ":8080"
	DefaultCacheDir   = ".docsections-cache"
	DefaultUserAgent  = "docsections/1.0 (+https://github.com/hyperifyio/docsections)"
)

// Config holds runtime configuration for the application.
type Config struct {
	// Catalogue
	DBPath     string
	SeedPath   string
	ListenAddr string

	// Extraction
	Backend      string
	FetchTimeout time.Duration
	MaxBodyBytes int64
	UserAgent    string

	// Segmentation
	RulesPath       string
	Representatives int
	MaxConcurrent   int
	ExtractTypes    []string

	// Cache
	CacheDir         string
	CacheMaxAge      time.Duration
	CacheClear       bool
	CacheStrictPerms bool
	CacheMaxBytes    int64
	CacheMaxEntries  int

	// Modes
	Serve      bool
	URL        string
	Product    string
	OutputPath string
	PDFPath    string

	Verbose bool
}
