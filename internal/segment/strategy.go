package segment

import (
	"fmt"

	"github.com/hyperifyio/docsections/internal/normalize"
)

// Kind tags a strategy. It is the stable name used in rules files and logs.
type Kind string

const (
	KindBullets      Kind = "bullets"
	KindHeaders      Kind = "headers"
	KindProductCodes Kind = "product_codes"
	KindStamps       Kind = "stamps"
	// KindFallback is reported by Plan when no strategy matches.
	KindFallback Kind = "fallback"
)

func (k Kind) builtin() bool {
	switch k {
	case KindBullets, KindHeaders, KindProductCodes, KindStamps:
		return true
	}
	return false
}

// Strategy is one self-contained rule of the decision list. Match and Split
// receive text already normalized with Policy. Split may return no sections;
// the segmenter then falls back to a single untitled section.
type Strategy interface {
	Kind() Kind
	Policy() normalize.Policy
	Match(text string) bool
	Split(text string) []Section
}

// Registry is the ordered decision list. The first matching strategy
// consumes the text.
type Registry struct {
	strategies []Strategy
}

// Register appends s at the lowest priority. Kinds are unique.
func (r *Registry) Register(s Strategy) error {
	if s == nil {
		return fmt.Errorf("register: nil strategy")
	}
	for _, have := range r.strategies {
		if have.Kind() == s.Kind() {
			return fmt.Errorf("register: strategy %q already registered", s.Kind())
		}
	}
	r.strategies = append(r.strategies, s)
	return nil
}

// Kinds lists registered strategies in priority order.
func (r *Registry) Kinds() []Kind {
	out := make([]Kind, len(r.strategies))
	for i, s := range r.strategies {
		out[i] = s.Kind()
	}
	return out
}

func newRegistry(c *compiled) (*Registry, error) {
	reg := &Registry{}
	for _, k := range c.Strategies {
		var s Strategy
		switch k {
		case KindBullets:
			s = bulletStrategy{glyphs: c.BulletGlyphs, minChars: c.MinBulletChars}
		case KindHeaders:
			s = headerStrategy{minLen: c.HeaderMinLen, maxLen: c.HeaderMaxLen}
		case KindProductCodes:
			s = productCodeStrategy{split: c.productRe, title: c.titleRe, minChars: c.MinBlockChars}
		case KindStamps:
			s = stampStrategy{re: c.stampRe, minChars: c.MinBlockChars}
		}
		if err := reg.Register(s); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
