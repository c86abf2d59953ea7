// Package segment reorganizes layout-free extracted text into titled
// sections. There is no markup to rely on, so the document shape is guessed
// from surface patterns by an ordered list of strategies; the first strategy
// whose trigger matches consumes the text. Segmentation never fails: when
// nothing useful is recognized the whole text becomes one untitled section.
package segment

import (
	"fmt"

	"github.com/hyperifyio/docsections/internal/cache"
	"github.com/hyperifyio/docsections/internal/normalize"
)

// Section is one titled block of content. Title may be empty; Content always
// has at least one non-empty entry.
type Section struct {
	Title   string   `json:"title"`
	Content []string `json:"content"`
}

// Memo stores segmentation results by key. Implementations must be safe for
// concurrent use.
type Memo interface {
	Load(key string) ([]Section, bool)
	Store(key string, sections []Section)
}

// Segmenter applies a compiled rule set. It holds no mutable state and is
// safe for concurrent use.
type Segmenter struct {
	rules       Rules
	registry    *Registry
	memo        Memo
	fingerprint string
}

// Option customizes a Segmenter.
type Option func(*Segmenter) error

// WithMemo memoizes results by content hash.
func WithMemo(m Memo) Option {
	return func(s *Segmenter) error {
		s.memo = m
		return nil
	}
}

// Versioned is implemented by custom strategies whose behaviour depends on
// more than their type, so memoized results are keyed by that version too.
type Versioned interface {
	Version() string
}

// WithStrategy appends a custom strategy after the rule-configured ones.
func WithStrategy(st Strategy) Option {
	return func(s *Segmenter) error {
		if err := s.registry.Register(st); err != nil {
			return err
		}
		s.fingerprint += "+" + strategyIdentity(st)
		return nil
	}
}

func strategyIdentity(st Strategy) string {
	id := fmt.Sprintf("%s:%T", st.Kind(), st)
	if v, ok := st.(Versioned); ok {
		id += "@" + v.Version()
	}
	return id
}

// New compiles rules into a Segmenter.
func New(r Rules, opts ...Option) (*Segmenter, error) {
	c, err := r.compile()
	if err != nil {
		return nil, err
	}
	reg, err := newRegistry(c)
	if err != nil {
		return nil, err
	}
	s := &Segmenter{rules: c.Rules, registry: reg, fingerprint: c.Rules.Fingerprint()}
	for _, o := range opts {
		if err := o(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

var defaultSegmenter = func() *Segmenter {
	s, err := New(DefaultRules())
	if err != nil {
		panic(err)
	}
	return s
}()

// Segment splits text with the default rules.
func Segment(text string) []Section {
	return defaultSegmenter.Segment(text)
}

// Plan reports the strategy the default rules would pick for text.
func Plan(text string) Kind {
	return defaultSegmenter.Plan(text)
}

// Rules returns the effective rule set.
func (s *Segmenter) Rules() Rules { return s.rules }

// Kinds lists the strategies in priority order.
func (s *Segmenter) Kinds() []Kind { return s.registry.Kinds() }

// Plan names the strategy that would consume text, or KindFallback.
func (s *Segmenter) Plan(text string) Kind {
	st, _ := s.plan(text)
	if st == nil {
		return KindFallback
	}
	return st.Kind()
}

func (s *Segmenter) plan(text string) (Strategy, string) {
	for _, st := range s.registry.strategies {
		t := normalize.Normalize(text, st.Policy())
		if t != "" && st.Match(t) {
			return st, t
		}
	}
	return nil, normalize.CollapseText(text)
}

// Segment splits text into sections. Empty (or whitespace-only) text yields
// an empty list; anything else yields at least one section.
func (s *Segmenter) Segment(text string) []Section {
	if s.memo == nil {
		return s.segment(text)
	}
	key := cache.KeyFrom(s.fingerprint, text)
	if secs, ok := s.memo.Load(key); ok {
		return secs
	}
	secs := s.segment(text)
	s.memo.Store(key, secs)
	return secs
}

func (s *Segmenter) segment(text string) (out []Section) {
	defer func() {
		// a misbehaving custom strategy must not take the caller down
		if r := recover(); r != nil {
			out = fallback(normalize.CollapseText(text))
		}
	}()
	st, normalized := s.plan(text)
	if st == nil {
		return fallback(normalized)
	}
	if secs := st.Split(normalized); len(secs) > 0 {
		return secs
	}
	return fallback(normalized)
}

func fallback(text string) []Section {
	if text == "" {
		return nil
	}
	return []Section{{Title: "", Content: []string{text}}}
}
