package segment

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/hyperifyio/docsections/internal/cache"
	"github.com/hyperifyio/docsections/internal/normalize"
)

const paragraph = "Rugged in-vehicle charging cradle with locking latch and pass-through USB for forklifts."

func TestSegment_Bullets(t *testing.T) {
	got := Segment("A. •First item here• Second item here•Short•")
	want := []Section{{Title: "", Content: []string{"First item here", "Second item here"}}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v, want %#v", got, want)
	}
}

func TestSegment_BulletsAllShortFallsBack(t *testing.T) {
	got := Segment("•a•b•c")
	if len(got) != 1 || got[0].Title != "" || got[0].Content[0] != "•a•b•c" {
		t.Fatalf("expected single fallback section, got %#v", got)
	}
}

func TestSegment_Headers(t *testing.T) {
	got := Segment("FEATURES:\nLine one\nLine two\nSPECS:\nLine three")
	want := []Section{
		{Title: "FEATURES", Content: []string{"Line one", "Line two"}},
		{Title: "SPECS", Content: []string{"Line three"}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v, want %#v", got, want)
	}
}

func TestSegment_HeadersSkipBlankLinesAndEmptySections(t *testing.T) {
	got := Segment("OVERVIEW\n\n\nDIMENSIONS:\n\n  Width 10 cm  \n\nHeight 20 cm\n")
	want := []Section{{Title: "DIMENSIONS", Content: []string{"Width 10 cm", "Height 20 cm"}}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v, want %#v", got, want)
	}
}

func TestSegment_HeadersOnlyFallsBack(t *testing.T) {
	got := Segment("FEATURES:\nSPECS:")
	if len(got) != 1 || got[0].Title != "" {
		t.Fatalf("expected untitled fallback, got %#v", got)
	}
	if got[0].Content[0] != "FEATURES:\nSPECS:" {
		t.Fatalf("fallback should carry the line-normalized text, got %q", got[0].Content[0])
	}
}

func TestHeaderStrategy_LengthBounds(t *testing.T) {
	h := headerStrategy{minLen: DefaultHeaderMinLen, maxLen: DefaultHeaderMaxLen}
	cases := map[string]bool{
		"AB":                    false,
		"ABC":                   true,
		"Ok:":                   true,
		"mixed case line":       false,
		strings.Repeat("A", 59): true,
		strings.Repeat("A", 60): false,
		"2024":                  true,
	}
	for line, want := range cases {
		if got := h.isHeader(line); got != want {
			t.Errorf("isHeader(%q) = %v, want %v", line, got, want)
		}
	}
}

func TestSegment_ProductCodes(t *testing.T) {
	text := "Accessories guide Vehicle Dock OPM-T016-A3 " + paragraph + " VESA Cradle VC-200 short tail only"
	got := Segment(text)
	want := []Section{{Title: "Vehicle Dock OPM-T016-A3", Content: []string{paragraph}}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v, want %#v", got, want)
	}
}

func TestSegment_ProductCodesAcrossLines(t *testing.T) {
	text := "Battery Charger\nBC-4 " + paragraph + "\nDesk Stand DS-1\n" + paragraph
	got := Segment(text)
	if len(got) != 2 {
		t.Fatalf("expected 2 sections, got %#v", got)
	}
	if got[0].Title != "Battery Charger BC-4" || got[1].Title != "Desk Stand DS-1" {
		t.Fatalf("unexpected titles %q, %q", got[0].Title, got[1].Title)
	}
}

func TestSegment_ProductCodeNeedsTokenBoundary(t *testing.T) {
	text := "Vehicle Dock The vehicle dock holds the terminal securely in place on rough roads."
	if got := Plan(text); got != KindFallback {
		t.Fatalf("plan = %s, want fallback", got)
	}
	want := []Section{{Title: "", Content: []string{text}}}
	if got := Segment(text); !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v, want %#v", got, want)
	}

	// a code at the very end of the text still counts
	got := Segment(paragraph + " Desk Stand DS-1")
	if len(got) != 1 || got[0].Title != "" {
		t.Fatalf("trailing code without block: %#v", got)
	}
	if Plan(paragraph+" Desk Stand DS-1") != KindProductCodes {
		t.Fatalf("trailing code not recognized")
	}
}

func TestSegment_ProductCodesNoLongPartFallsBack(t *testing.T) {
	got := Segment("Office Dock OD-9 tiny")
	want := []Section{{Title: "", Content: []string{"Office Dock OD-9 tiny"}}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v, want %#v", got, want)
	}
}

func TestSegment_Stamps(t *testing.T) {
	a := "First page body text that clearly runs past the fifty character mark."
	b := "Second page body text that also runs well beyond fifty characters here."
	text := a + " www.example.com 2023 04 05 " + b + " www.example.com 2023 04 05 p2"
	got := Segment(text)
	want := []Section{
		{Title: "", Content: []string{a}},
		{Title: "", Content: []string{b}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v, want %#v", got, want)
	}
}

func TestSegment_Fallback(t *testing.T) {
	text := "Plain prose without any recognizable   structure at all."
	got := Segment(text)
	want := []Section{{Title: "", Content: []string{"Plain prose without any recognizable structure at all."}}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v, want %#v", got, want)
	}
}

func TestSegment_EmptyInput(t *testing.T) {
	for _, in := range []string{"", "   ", "\n\n\t"} {
		if got := Segment(in); len(got) != 0 {
			t.Fatalf("Segment(%q) = %#v, want empty", in, got)
		}
	}
}

func TestSegment_NonEmptyAlwaysYieldsContent(t *testing.T) {
	inputs := []string{
		"x",
		"•",
		"A:",
		"www.example.com 2023 04 05",
		"Vehicle Dock VD-1",
		"lower\ncase\nlines",
	}
	for _, in := range inputs {
		secs := Segment(in)
		if len(secs) == 0 {
			t.Fatalf("Segment(%q) returned no sections", in)
		}
		for _, s := range secs {
			if len(s.Content) == 0 || s.Content[0] == "" {
				t.Fatalf("Segment(%q) produced empty section %#v", in, s)
			}
		}
	}
}

func TestSegment_Deterministic(t *testing.T) {
	text := "FEATURES:\nLine one\nSPECS:\nLine two"
	first := Segment(text)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got := Segment(text); !reflect.DeepEqual(got, first) {
				t.Errorf("non-deterministic output: %#v vs %#v", got, first)
			}
		}()
	}
	wg.Wait()
}

func TestPlan_ReportsStrategy(t *testing.T) {
	s, err := New(DefaultRules())
	if err != nil {
		t.Fatal(err)
	}
	cases := map[string]Kind{
		"• one two three four five":         KindBullets,
		"SPECS:\nWeight 1 kg":                KindHeaders,
		"Vehicle Dock VD-1 " + paragraph:     KindProductCodes,
		"text www.acme.com 2020 01 02 more":  KindStamps,
		"nothing to see here":                KindFallback,
		"":                                   KindFallback,
	}
	for in, want := range cases {
		if got := s.Plan(in); got != want {
			t.Errorf("Plan(%q) = %s, want %s", in, got, want)
		}
	}
}

// Extraction backends frame the same document differently: run
// reconstruction joins runs with spaces and pages with newlines, so a
// single-page sheet loses the line structure header detection relies on.
func TestPlan_BackendFramingChangesStrategy(t *testing.T) {
	lineFramed := "FEATURES:\nWaterproof housing\nSPECS:\nWeight 1 kg"
	runFramed := strings.Join([]string{"FEATURES:", "Waterproof housing", "SPECS:", "Weight 1 kg"}, " ")
	if got := Plan(lineFramed); got != KindHeaders {
		t.Fatalf("line framed text planned as %s", got)
	}
	if got := Plan(runFramed); got != KindFallback {
		t.Fatalf("run framed text planned as %s", got)
	}
	// Page boundaries restore enough structure for headers.
	pageFramed := "FEATURES: Waterproof housing\nSPECS:\nWeight 1 kg"
	if got := Plan(pageFramed); got != KindHeaders {
		t.Fatalf("page framed text planned as %s", got)
	}
}

func TestRules_OverrideFromYAML(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "rules.yaml")
	yml := "strategies: [product_codes, headers]\ncategoryLabels: [\"Wall Mount\"]\nminBlockChars: 10\n"
	if err := os.WriteFile(p, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	r, err := LoadRules(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if r.HeaderMaxLen != DefaultHeaderMaxLen || r.BulletGlyphs != DefaultBulletGlyphs {
		t.Fatalf("defaults not kept: %+v", r)
	}
	s, err := New(r)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if !reflect.DeepEqual(s.Kinds(), []Kind{KindProductCodes, KindHeaders}) {
		t.Fatalf("kinds = %v", s.Kinds())
	}
	got := s.Segment("• Wall Mount WM-2 holds the tablet firmly")
	want := []Section{{Title: "Wall Mount WM-2", Content: []string{"holds the tablet firmly"}}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v, want %#v", got, want)
	}
	if r.Fingerprint() == DefaultRules().Fingerprint() {
		t.Fatalf("fingerprint must change with rules")
	}
}

func TestRules_Invalid(t *testing.T) {
	bad := []Rules{
		{Strategies: []Kind{"tables"}},
		{Strategies: []Kind{KindBullets, KindBullets}},
		{CodePattern: "[unclosed"},
		{StampPattern: "(?P<"},
		{HeaderMinLen: 10, HeaderMaxLen: 11},
		{MinBlockChars: -1},
	}
	for i, r := range bad {
		if err := r.Validate(); err == nil {
			t.Errorf("case %d: expected error for %+v", i, r)
		}
		if _, err := New(r); err == nil {
			t.Errorf("case %d: New accepted invalid rules", i)
		}
	}
	if err := DefaultRules().Validate(); err != nil {
		t.Fatalf("default rules invalid: %v", err)
	}
}

type countingMemo struct {
	mu     sync.Mutex
	m      map[string][]Section
	loads  int
	stores int
}

func (c *countingMemo) Load(key string) ([]Section, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loads++
	s, ok := c.m[key]
	return s, ok
}

func (c *countingMemo) Store(key string, s []Section) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stores++
	c.m[key] = s
}

func TestSegmenter_Memo(t *testing.T) {
	memo := &countingMemo{m: map[string][]Section{}}
	s, err := New(DefaultRules(), WithMemo(memo))
	if err != nil {
		t.Fatal(err)
	}
	text := "FEATURES:\nLine one"
	a := s.Segment(text)
	b := s.Segment(text)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("memo changed result")
	}
	if memo.stores != 1 || memo.loads != 2 {
		t.Fatalf("loads=%d stores=%d", memo.loads, memo.stores)
	}
}

func TestDiskMemo_RoundTripsThroughSectionCache(t *testing.T) {
	dc := &cache.SectionCache{Dir: t.TempDir()}
	s1, err := New(DefaultRules(), WithMemo(DiskMemo{Cache: dc}))
	if err != nil {
		t.Fatal(err)
	}
	text := "FEATURES:\nLine one\nSPECS:\nLine two"
	want := s1.Segment(text)
	key := cache.KeyFrom(DefaultRules().Fingerprint(), text)
	if _, ok, _ := dc.Get(context.Background(), key); !ok {
		t.Fatalf("expected cached entry under %s", key)
	}
	s2, _ := New(DefaultRules(), WithMemo(DiskMemo{Cache: dc}))
	if got := s2.Segment(text); !reflect.DeepEqual(got, want) {
		t.Fatalf("disk memo got %#v want %#v", got, want)
	}
}

type panicky struct{}

func (panicky) Kind() Kind               { return "panicky" }
func (panicky) Policy() normalize.Policy { return normalize.Collapse }
func (panicky) Match(string) bool        { panic("boom") }
func (panicky) Split(string) []Section   { return nil }

type shouting struct{}

func (shouting) Kind() Kind               { return "shouting" }
func (shouting) Policy() normalize.Policy { return normalize.Collapse }
func (shouting) Match(t string) bool      { return strings.HasSuffix(t, "!") }
func (shouting) Split(t string) []Section {
	return []Section{{Title: "SHOUT", Content: []string{t}}}
}

func TestWithStrategy_CustomAndPanicking(t *testing.T) {
	r := DefaultRules()
	r.Strategies = []Kind{KindBullets}
	s, err := New(r, WithStrategy(shouting{}), WithStrategy(panicky{}))
	if err != nil {
		t.Fatal(err)
	}
	if got := s.Segment("hey there!"); len(got) != 1 || got[0].Title != "SHOUT" {
		t.Fatalf("custom strategy not applied: %#v", got)
	}
	got := s.Segment("calm  words")
	want := []Section{{Title: "", Content: []string{"calm words"}}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("panic not recovered into fallback: %#v", got)
	}
	if _, err := New(r, WithStrategy(shouting{}), WithStrategy(shouting{})); err == nil {
		t.Fatalf("duplicate custom kind accepted")
	}
}

type whisper struct{ version string }

func (whisper) Kind() Kind               { return "shouting" }
func (whisper) Policy() normalize.Policy { return normalize.Collapse }
func (whisper) Match(t string) bool      { return strings.HasSuffix(t, "!") }
func (w whisper) Split(t string) []Section {
	return []Section{{Title: "whisper" + w.version, Content: []string{t}}}
}
func (w whisper) Version() string { return w.version }

// Custom strategies sharing a kind must not share memo entries.
func TestWithStrategy_MemoKeyedByStrategyIdentity(t *testing.T) {
	r := DefaultRules()
	r.Strategies = []Kind{KindBullets}
	memo := &countingMemo{m: map[string][]Section{}}
	build := func(st Strategy) *Segmenter {
		s, err := New(r, WithMemo(memo), WithStrategy(st))
		if err != nil {
			t.Fatal(err)
		}
		return s
	}
	text := "hey there!"
	titles := []string{
		build(shouting{}).Segment(text)[0].Title,
		build(whisper{version: "1"}).Segment(text)[0].Title,
		build(whisper{version: "2"}).Segment(text)[0].Title,
		build(whisper{version: "2"}).Segment(text)[0].Title,
	}
	want := []string{"SHOUT", "whisper1", "whisper2", "whisper2"}
	if !reflect.DeepEqual(titles, want) {
		t.Fatalf("titles = %q, want %q", titles, want)
	}
	if memo.stores != 3 {
		t.Fatalf("stores = %d, want 3 (one per strategy identity)", memo.stores)
	}
}
