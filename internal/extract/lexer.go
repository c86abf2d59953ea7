package extract

import "bytes"

type tokKind int

const (
	tokString tokKind = iota
	tokNumber
	tokArrayOpen
	tokArrayClose
	tokOperator
	tokOther
)

type token struct {
	kind tokKind
	val  []byte
}

// lexer splits a PDF content stream into tokens. Operators are not bound to
// line boundaries: a whole text object often sits on one line.
type lexer struct {
	data []byte
	pos  int
}

func isWhite(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\f', 0:
		return true
	}
	return false
}

func isDelim(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func (l *lexer) next() (token, bool) {
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		switch {
		case isWhite(c):
			l.pos++
		case c == '%':
			for l.pos < len(l.data) && l.data[l.pos] != '\n' && l.data[l.pos] != '\r' {
				l.pos++
			}
		case c == '(':
			return token{kind: tokString, val: l.literal()}, true
		case c == '<':
			if l.pos+1 < len(l.data) && l.data[l.pos+1] == '<' {
				l.pos += 2
				return token{kind: tokOther}, true
			}
			return token{kind: tokString, val: l.hex()}, true
		case c == '>':
			l.pos++
			if l.pos < len(l.data) && l.data[l.pos] == '>' {
				l.pos++
			}
			return token{kind: tokOther}, true
		case c == '[':
			l.pos++
			return token{kind: tokArrayOpen}, true
		case c == ']':
			l.pos++
			return token{kind: tokArrayClose}, true
		case c == '/':
			l.pos++
			l.word()
			return token{kind: tokOther}, true
		case c == '{' || c == '}' || c == ')':
			l.pos++
		default:
			w := l.word()
			if len(w) == 0 {
				l.pos++
				continue
			}
			if isNumber(w) {
				return token{kind: tokNumber, val: w}, true
			}
			if bytes.Equal(w, []byte("true")) || bytes.Equal(w, []byte("false")) || bytes.Equal(w, []byte("null")) {
				return token{kind: tokOther}, true
			}
			return token{kind: tokOperator, val: w}, true
		}
	}
	return token{}, false
}

func (l *lexer) word() []byte {
	start := l.pos
	for l.pos < len(l.data) && !isWhite(l.data[l.pos]) && !isDelim(l.data[l.pos]) {
		l.pos++
	}
	return l.data[start:l.pos]
}

func isNumber(w []byte) bool {
	digits := 0
	for i, c := range w {
		switch {
		case c >= '0' && c <= '9':
			digits++
		case c == '.':
		case (c == '-' || c == '+') && i == 0:
		default:
			return false
		}
	}
	return digits > 0
}

// literal reads a (...) string with balanced parentheses and escapes.
func (l *lexer) literal() []byte {
	l.pos++ // (
	var out []byte
	depth := 1
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		l.pos++
		switch c {
		case '\\':
			if l.pos >= len(l.data) {
				return out
			}
			e := l.data[l.pos]
			l.pos++
			switch e {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'b':
				out = append(out, '\b')
			case 'f':
				out = append(out, '\f')
			case '\r':
				// line continuation
				if l.pos < len(l.data) && l.data[l.pos] == '\n' {
					l.pos++
				}
			case '\n':
			default:
				if e >= '0' && e <= '7' {
					v := int(e - '0')
					for k := 0; k < 2 && l.pos < len(l.data) && l.data[l.pos] >= '0' && l.data[l.pos] <= '7'; k++ {
						v = v*8 + int(l.data[l.pos]-'0')
						l.pos++
					}
					out = append(out, byte(v))
				} else {
					out = append(out, e)
				}
			}
		case '(':
			depth++
			out = append(out, c)
		case ')':
			depth--
			if depth == 0 {
				return out
			}
			out = append(out, c)
		default:
			out = append(out, c)
		}
	}
	return out
}

// hex reads a <...> string. An odd final digit is padded with zero.
func (l *lexer) hex() []byte {
	l.pos++ // <
	var out []byte
	hi, half := byte(0), false
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		l.pos++
		if c == '>' {
			break
		}
		v, ok := hexVal(c)
		if !ok {
			continue
		}
		if half {
			out = append(out, hi<<4|v)
			half = false
		} else {
			hi, half = v, true
		}
	}
	if half {
		out = append(out, hi<<4)
	}
	return out
}

func hexVal(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

// skipInlineImage moves past the binary data of an inline image up to and
// including its EI operator.
func (l *lexer) skipInlineImage() {
	for l.pos+2 < len(l.data) {
		if l.data[l.pos] == 'E' && l.data[l.pos+1] == 'I' && isWhite(l.data[l.pos-1]) &&
			(l.pos+2 == len(l.data) || isWhite(l.data[l.pos+2])) {
			l.pos += 2
			return
		}
		l.pos++
	}
	l.pos = len(l.data)
}
