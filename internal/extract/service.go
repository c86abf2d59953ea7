package extract

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Fetcher downloads a document body. fetch.Client implements it.
type Fetcher interface {
	Get(ctx context.Context, url string) ([]byte, string, error)
}

// Result is the text of one document after flattening.
type Result struct {
	Text      string
	PageCount int
	Backend   string
}

// ExtractionResult is the never-failing envelope around Extract.
type ExtractionResult struct {
	Success   bool   `json:"success"`
	Text      string `json:"text,omitempty"`
	PageCount int    `json:"pages,omitempty"`
	Backend   string `json:"backend,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Extractor fetches documents and runs them through exactly one backend. It
// holds no mutable state and is safe for concurrent use.
type Extractor struct {
	Fetcher Fetcher
	Backend Backend
}

// New builds an Extractor for the named backend.
func New(f Fetcher, backend string) (*Extractor, error) {
	b, err := NewBackend(backend)
	if err != nil {
		return nil, err
	}
	return &Extractor{Fetcher: f, Backend: b}, nil
}

// Extract downloads url and returns its flattened text. Failures wrap
// ErrFetch or ErrParse.
func (e *Extractor) Extract(ctx context.Context, url string) (Result, error) {
	if e.Fetcher == nil {
		return Result{}, fetchError(url, errors.New("no fetcher configured"))
	}
	body, ct, err := e.Fetcher.Get(ctx, url)
	if err != nil {
		return Result{}, fetchError(url, err)
	}
	log.Debug().Str("url", url).Str("content_type", ct).Int("bytes", len(body)).Msg("document fetched")
	res, err := e.ExtractBytes(body)
	if err != nil {
		var xe *Error
		if errors.As(err, &xe) {
			xe.URL = url
		}
		return Result{}, err
	}
	log.Debug().Str("url", url).Str("backend", res.Backend).Int("pages", res.PageCount).Int("chars", len(res.Text)).Msg("document parsed")
	return res, nil
}

// ExtractBytes parses an already downloaded body.
func (e *Extractor) ExtractBytes(body []byte) (res Result, err error) {
	b := e.Backend
	if b == nil {
		if b, err = NewBackend(""); err != nil {
			return Result{}, err
		}
	}
	defer func() {
		// the PDF libraries panic on some malformed input
		if r := recover(); r != nil {
			res, err = Result{}, parseError("", fmt.Errorf("%s backend: %v", b.Name(), r))
		}
	}()
	parsed, err := b.Parse(body)
	if err != nil {
		return Result{}, parseError("", fmt.Errorf("%s backend: %w", b.Name(), err))
	}
	return Result{Text: Flatten(parsed), PageCount: parsed.PageCount, Backend: b.Name()}, nil
}

// ExtractResult is Extract reported as an ExtractionResult.
func (e *Extractor) ExtractResult(ctx context.Context, url string) ExtractionResult {
	res, err := e.Extract(ctx, url)
	if err != nil {
		return ExtractionResult{Success: false, Error: err.Error()}
	}
	return ExtractionResult{Success: true, Text: res.Text, PageCount: res.PageCount, Backend: res.Backend}
}
