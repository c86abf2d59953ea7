package segment

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	yaml "gopkg.in/yaml.v3"
)

// Thresholds carried over from the tuned formatter output. They are defaults,
// every one of them can be overridden through Rules.
const (
	DefaultMinBulletChars = 10
	DefaultHeaderMinLen   = 2
	DefaultHeaderMaxLen   = 60
	DefaultMinBlockChars  = 50

	DefaultBulletGlyphs = "•●○▪▫■□"
	DefaultCodePattern  = `[A-Z0-9-]+`
	DefaultStampPattern = `www\.[A-Za-z0-9-]+\.com\s+\d{4}\s+\d{2}\s+\d{2}`
)

// DefaultCategoryLabels is the device/accessory vocabulary that prefixes a
// product code in accessory sheets.
var DefaultCategoryLabels = []string{
	"Vehicle Dock",
	"Office Dock",
	"VESA Cradle",
	"Battery Charger",
	"Desk Stand",
	"Battery Pack",
}

// DefaultOrder is the priority order of the built-in strategies, most
// specific signal first.
var DefaultOrder = []Kind{KindBullets, KindHeaders, KindProductCodes, KindStamps}

// Rules is the data half of the segmenter: vocabulary, patterns and
// thresholds. Zero values mean "use the default".
type Rules struct {
	Strategies     []Kind   `yaml:"strategies" json:"strategies"`
	BulletGlyphs   string   `yaml:"bulletGlyphs" json:"bulletGlyphs"`
	CategoryLabels []string `yaml:"categoryLabels" json:"categoryLabels"`
	CodePattern    string   `yaml:"codePattern" json:"codePattern"`
	StampPattern   string   `yaml:"stampPattern" json:"stampPattern"`

	// MinBulletChars drops bullet fragments shorter than this many runes.
	MinBulletChars int `yaml:"minBulletChars" json:"minBulletChars"`
	// A header line is strictly longer than HeaderMinLen and strictly
	// shorter than HeaderMaxLen runes.
	HeaderMinLen int `yaml:"headerMinLen" json:"headerMinLen"`
	HeaderMaxLen int `yaml:"headerMaxLen" json:"headerMaxLen"`
	// MinBlockChars is the length a product-code or stamp block must exceed.
	MinBlockChars int `yaml:"minBlockChars" json:"minBlockChars"`
}

// DefaultRules returns the built-in rule set.
func DefaultRules() Rules {
	return Rules{
		Strategies:     append([]Kind(nil), DefaultOrder...),
		BulletGlyphs:   DefaultBulletGlyphs,
		CategoryLabels: append([]string(nil), DefaultCategoryLabels...),
		CodePattern:    DefaultCodePattern,
		StampPattern:   DefaultStampPattern,
		MinBulletChars: DefaultMinBulletChars,
		HeaderMinLen:   DefaultHeaderMinLen,
		HeaderMaxLen:   DefaultHeaderMaxLen,
		MinBlockChars:  DefaultMinBlockChars,
	}
}

// LoadRules reads a YAML (or JSON, which is valid YAML) rules file. Keys
// missing from the file keep their default values.
func LoadRules(path string) (Rules, error) {
	r := DefaultRules()
	b, err := os.ReadFile(path)
	if err != nil {
		return r, err
	}
	if err := yaml.Unmarshal(b, &r); err != nil {
		return r, fmt.Errorf("parse rules %s: %w", path, err)
	}
	r.withDefaults()
	return r, nil
}

func (r *Rules) withDefaults() {
	d := DefaultRules()
	if len(r.Strategies) == 0 {
		r.Strategies = d.Strategies
	}
	if r.BulletGlyphs == "" {
		r.BulletGlyphs = d.BulletGlyphs
	}
	if len(r.CategoryLabels) == 0 {
		r.CategoryLabels = d.CategoryLabels
	}
	if r.CodePattern == "" {
		r.CodePattern = d.CodePattern
	}
	if r.StampPattern == "" {
		r.StampPattern = d.StampPattern
	}
	if r.MinBulletChars == 0 {
		r.MinBulletChars = d.MinBulletChars
	}
	if r.HeaderMinLen == 0 {
		r.HeaderMinLen = d.HeaderMinLen
	}
	if r.HeaderMaxLen == 0 {
		r.HeaderMaxLen = d.HeaderMaxLen
	}
	if r.MinBlockChars == 0 {
		r.MinBlockChars = d.MinBlockChars
	}
}

// Validate reports the first problem that would make Compile fail.
func (r Rules) Validate() error {
	_, err := r.compile()
	return err
}

// Fingerprint identifies the effective rule set. Memo keys include it so a
// rules change never serves sections computed under the old rules.
func (r Rules) Fingerprint() string {
	r.withDefaults()
	b, _ := json.Marshal(r)
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:8])
}

// compiled holds the regular expressions derived from Rules.
type compiled struct {
	Rules
	productRe *regexp.Regexp
	titleRe   *regexp.Regexp
	stampRe   *regexp.Regexp
}

func (r Rules) compile() (*compiled, error) {
	r.withDefaults()
	if r.MinBulletChars < 0 || r.MinBlockChars < 0 || r.HeaderMinLen < 0 {
		return nil, errors.New("rules: thresholds must not be negative")
	}
	if r.HeaderMaxLen <= r.HeaderMinLen+1 {
		return nil, fmt.Errorf("rules: headerMaxLen %d leaves no room above headerMinLen %d", r.HeaderMaxLen, r.HeaderMinLen)
	}
	seen := map[Kind]bool{}
	for _, k := range r.Strategies {
		if !k.builtin() {
			return nil, fmt.Errorf("rules: unknown strategy %q", k)
		}
		if seen[k] {
			return nil, fmt.Errorf("rules: strategy %q listed twice", k)
		}
		seen[k] = true
	}

	c := &compiled{Rules: r}

	labels := make([]string, 0, len(r.CategoryLabels))
	for _, l := range r.CategoryLabels {
		l = strings.Join(strings.Fields(l), " ")
		if l == "" {
			continue
		}
		labels = append(labels, strings.ReplaceAll(regexp.QuoteMeta(l), " ", `\s+`))
	}
	if len(labels) == 0 {
		return nil, errors.New("rules: categoryLabels is empty")
	}
	code := fmt.Sprintf(`(?i:%s)\s+(?:%s)`, strings.Join(labels, "|"), r.CodePattern)
	var err error
	// a code must end at a token boundary, otherwise the capital of the
	// next prose word ("Vehicle Dock The ...") reads as a one-letter code
	if c.productRe, err = regexp.Compile(code + `(?:\s|$)`); err != nil {
		return nil, fmt.Errorf("rules: codePattern: %w", err)
	}
	c.titleRe = regexp.MustCompile(`^(?:` + code + `)$`)
	if c.stampRe, err = regexp.Compile(r.StampPattern); err != nil {
		return nil, fmt.Errorf("rules: stampPattern: %w", err)
	}
	return c, nil
}
