package extract

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hyperifyio/docsections/internal/normalize"
)

// Framing says how the strings of one page relate to each other.
type Framing int

const (
	// FrameRuns: page strings are text runs of unknown line membership and
	// are joined by a space.
	FrameRuns Framing = iota
	// FrameLines: page strings are whole visual lines and are joined by a
	// newline, which the header strategy depends on.
	FrameLines
)

// Parsed is the raw output of a backend: text runs or lines per page.
type Parsed struct {
	Pages     [][]string
	PageCount int
	Framing   Framing
}

// Backend turns document bytes into per-page text runs. Implementations are
// stateless and safe for concurrent use.
type Backend interface {
	Name() string
	Parse(data []byte) (Parsed, error)
}

// Backend names accepted by NewBackend.
const (
	BackendStreams = "streams"
	BackendRuns    = "runs"
	BackendPlain   = "plain"
	BackendHTML    = "html"
)

// DefaultBackend is used when no backend is configured. The default
// segmentation thresholds were tuned on line-framed text, which only the
// plain backend produces for PDFs.
const DefaultBackend = BackendPlain

var backends = map[string]func() Backend{
	BackendStreams: func() Backend { return StreamsBackend{} },
	BackendRuns:    func() Backend { return RunsBackend{} },
	BackendPlain:   func() Backend { return PlainBackend{} },
	BackendHTML:    func() Backend { return HTMLBackend{} },
}

// NewBackend returns the backend registered under name. An empty name
// selects DefaultBackend.
func NewBackend(name string) (Backend, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = DefaultBackend
	}
	mk, ok := backends[name]
	if !ok {
		return nil, fmt.Errorf("unknown extraction backend %q (have %s)", name, strings.Join(BackendNames(), ", "))
	}
	return mk(), nil
}

// BackendNames lists the registered backends in sorted order.
func BackendNames() []string {
	names := make([]string, 0, len(backends))
	for n := range backends {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Flatten is the one downstream framing for every backend: runs are joined
// by a space (lines by a newline), pages by a newline, and the result is
// line-normalized. No page markers are inserted.
func Flatten(p Parsed) string {
	sep := " "
	if p.Framing == FrameLines {
		sep = "\n"
	}
	pages := make([]string, 0, len(p.Pages))
	for _, runs := range p.Pages {
		pages = append(pages, strings.Join(runs, sep))
	}
	return normalize.LinesText(strings.Join(pages, "\n"))
}
