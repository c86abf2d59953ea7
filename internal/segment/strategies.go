package segment

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/hyperifyio/docsections/internal/normalize"
)

// bulletStrategy handles key-feature sheets: one flat list of bullet items.
type bulletStrategy struct {
	glyphs   string
	minChars int
}

func (bulletStrategy) Kind() Kind               { return KindBullets }
func (bulletStrategy) Policy() normalize.Policy { return normalize.Collapse }

func (s bulletStrategy) Match(text string) bool {
	return strings.ContainsAny(text, s.glyphs)
}

func (s bulletStrategy) Split(text string) []Section {
	fragments := strings.FieldsFunc(text, func(r rune) bool {
		return strings.ContainsRune(s.glyphs, r)
	})
	items := make([]string, 0, len(fragments))
	for _, f := range fragments {
		f = strings.TrimSpace(f)
		if utf8.RuneCountInString(f) < s.minChars {
			continue
		}
		items = append(items, f)
	}
	if len(items) == 0 {
		return nil
	}
	return []Section{{Title: "", Content: items}}
}

// headerStrategy handles sheets whose headings sit on their own line, either
// in capitals or terminated by a colon.
type headerStrategy struct {
	minLen, maxLen int
}

func (headerStrategy) Kind() Kind               { return KindHeaders }
func (headerStrategy) Policy() normalize.Policy { return normalize.Lines }

func (s headerStrategy) isHeader(line string) bool {
	n := utf8.RuneCountInString(line)
	if n <= s.minLen || n >= s.maxLen {
		return false
	}
	return strings.ToUpper(line) == line || strings.HasSuffix(line, ":")
}

func (s headerStrategy) Match(text string) bool {
	if !strings.Contains(text, "\n") {
		return false
	}
	for _, line := range strings.Split(text, "\n") {
		if s.isHeader(strings.TrimSpace(line)) {
			return true
		}
	}
	return false
}

func (s headerStrategy) Split(text string) []Section {
	var out []Section
	cur := Section{}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if s.isHeader(line) {
			if len(cur.Content) > 0 {
				out = append(out, cur)
			}
			cur = Section{Title: strings.TrimSpace(strings.TrimSuffix(line, ":"))}
			continue
		}
		cur.Content = append(cur.Content, line)
	}
	if len(cur.Content) > 0 {
		out = append(out, cur)
	}
	return out
}

// productCodeStrategy handles accessory sheets where each block is
// introduced by "<category label> <product code>".
type productCodeStrategy struct {
	split    *regexp.Regexp
	title    *regexp.Regexp
	minChars int
}

func (productCodeStrategy) Kind() Kind               { return KindProductCodes }
func (productCodeStrategy) Policy() normalize.Policy { return normalize.Collapse }

func (s productCodeStrategy) Match(text string) bool {
	return s.split.MatchString(text)
}

func (s productCodeStrategy) Split(text string) []Section {
	var out []Section
	pending := ""
	for _, part := range splitKeep(s.split, text) {
		part = strings.TrimSpace(part)
		switch {
		case part == "":
		case s.title.MatchString(part):
			pending = part
		case pending != "" && utf8.RuneCountInString(part) > s.minChars:
			out = append(out, Section{Title: pending, Content: []string{part}})
			pending = ""
		}
	}
	return out
}

// splitKeep splits text around every match of re and keeps the matches,
// interleaved with the surrounding parts.
func splitKeep(re *regexp.Regexp, text string) []string {
	locs := re.FindAllStringIndex(text, -1)
	parts := make([]string, 0, 2*len(locs)+1)
	prev := 0
	for _, loc := range locs {
		parts = append(parts, text[prev:loc[0]], text[loc[0]:loc[1]])
		prev = loc[1]
	}
	return append(parts, text[prev:])
}

// stampStrategy handles documents whose blocks are separated by a
// "www.<domain>.com YYYY MM DD" page footer.
type stampStrategy struct {
	re       *regexp.Regexp
	minChars int
}

func (stampStrategy) Kind() Kind               { return KindStamps }
func (stampStrategy) Policy() normalize.Policy { return normalize.Collapse }

func (s stampStrategy) Match(text string) bool {
	return s.re.MatchString(text)
}

func (s stampStrategy) Split(text string) []Section {
	var out []Section
	for _, part := range s.re.Split(text, -1) {
		part = strings.TrimSpace(part)
		if utf8.RuneCountInString(part) > s.minChars {
			out = append(out, Section{Title: "", Content: []string{part}})
		}
	}
	return out
}
