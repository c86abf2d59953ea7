// Package normalize cleans the whitespace noise produced by raw text
// extraction. Two policies exist because the segmenter strategies disagree on
// what a newline means: header scanning needs line structure, pattern scanning
// does not.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Policy selects how whitespace is collapsed.
type Policy int

const (
	// Lines keeps line structure: 3+ newlines become a paragraph break and
	// horizontal whitespace runs become a single space.
	Lines Policy = iota
	// Collapse turns every whitespace run, newlines included, into one space.
	Collapse
)

func (p Policy) String() string {
	switch p {
	case Lines:
		return "lines"
	case Collapse:
		return "collapse"
	default:
		return "unknown"
	}
}

// Normalize applies the policy to raw. It never fails; empty in, empty out.
func Normalize(raw string, p Policy) string {
	if p == Collapse {
		return CollapseText(raw)
	}
	return LinesText(raw)
}

// LinesText normalizes raw while keeping its newline structure.
func LinesText(raw string) string {
	s := clean(raw)
	if s == "" {
		return ""
	}
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := 0
	for _, line := range lines {
		line = collapseSpaces(line)
		if line == "" {
			blank++
			// at most one empty line, i.e. two consecutive newlines
			if blank > 1 {
				continue
			}
		} else {
			blank = 0
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// CollapseText normalizes raw into a single line.
func CollapseText(raw string) string {
	return strings.TrimSpace(collapseSpaces(strings.ReplaceAll(clean(raw), "\n", " ")))
}

// privateBullets maps private-use code points emitted by Symbol and Wingdings
// fonts to the bullet glyphs the segmenter recognizes.
var privateBullets = map[rune]rune{
	0xF0B7: '•',
	0xF06C: '●',
	0xF06E: '■',
	0xF0A7: '▪',
	0xF0FC: '•',
}

// clean composes the text to NFC, unifies line endings and Unicode spaces,
// maps private-use bullets and drops control and replacement runes.
func clean(raw string) string {
	if raw == "" {
		return ""
	}
	s := norm.NFC.String(raw)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\n' || r == '\r' || r == '\f' || r == '\v' || r == 0x2028 || r == 0x2029:
			b.WriteByte('\n')
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		case privateBullets[r] != 0:
			b.WriteRune(privateBullets[r])
		case r == unicode.ReplacementChar, unicode.IsControl(r), r >= 0xE000 && r <= 0xF8FF:
			continue
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func collapseSpaces(s string) string {
	var b strings.Builder
	lastSpace := false
	for _, r := range s {
		if r == ' ' || r == '\t' {
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
			continue
		}
		b.WriteRune(r)
		lastSpace = false
	}
	return strings.TrimSpace(b.String())
}
