package extract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// StreamsBackend reads the document with pdfcpu and rebuilds text runs from
// the text-showing operators of each page's content stream. A run ends at
// every text object boundary and positioning operator.
type StreamsBackend struct{}

func (StreamsBackend) Name() string { return BackendStreams }

func (StreamsBackend) Parse(data []byte) (Parsed, error) {
	if err := sniffPDF(data); err != nil {
		return Parsed{}, err
	}
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return Parsed{}, fmt.Errorf("pdfcpu read: %w", err)
	}
	out := Parsed{PageCount: ctx.PageCount, Pages: make([][]string, 0, ctx.PageCount)}
	for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
		r, err := pdfcpu.ExtractPageContent(ctx, pageNr)
		if err != nil {
			return Parsed{}, fmt.Errorf("page %d content: %w", pageNr, err)
		}
		var content []byte
		if r != nil {
			if content, err = io.ReadAll(r); err != nil {
				return Parsed{}, fmt.Errorf("page %d content: %w", pageNr, err)
			}
		}
		out.Pages = append(out.Pages, contentRuns(content))
	}
	return out, nil
}

var errNotPDF = errors.New("not a PDF document")

// sniffPDF accepts data whose "%PDF-" header sits within the first KiB, as
// readers tolerate leading garbage.
func sniffPDF(data []byte) error {
	head := data
	if len(head) > 1024 {
		head = head[:1024]
	}
	if !bytes.Contains(head, []byte("%PDF-")) {
		return errNotPDF
	}
	return nil
}

// tjSpaceThreshold is the TJ displacement (thousandths of an em) beyond
// which a gap is read as a word break.
const tjSpaceThreshold = 200

type operand struct {
	str   []byte
	isStr bool
	num   float64
	isNum bool
	arr   []operand
	isArr bool
}

// contentRuns interprets a decoded content stream. Only text operators
// matter; everything else is skipped.
func contentRuns(content []byte) []string {
	var (
		runs  []string
		cur   []byte
		stack []operand
	)
	flush := func() {
		if len(bytes.TrimSpace(cur)) > 0 {
			runs = append(runs, decodeText(cur))
		}
		cur = cur[:0]
	}
	show := func(o operand) {
		if o.isStr {
			cur = append(cur, o.str...)
		}
	}
	lx := &lexer{data: content}
	var arr *[]operand
	for {
		tok, ok := lx.next()
		if !ok {
			break
		}
		switch tok.kind {
		case tokString:
			o := operand{str: tok.val, isStr: true}
			if arr != nil {
				*arr = append(*arr, o)
			} else {
				stack = append(stack, o)
			}
		case tokArrayOpen:
			a := []operand{}
			arr = &a
		case tokArrayClose:
			if arr != nil {
				stack = append(stack, operand{arr: *arr, isArr: true})
				arr = nil
			}
		case tokNumber:
			n, _ := strconv.ParseFloat(string(tok.val), 64)
			o := operand{num: n, isNum: true}
			if arr != nil {
				*arr = append(*arr, o)
			} else {
				stack = append(stack, o)
			}
		case tokOther:
			// names, dictionaries and booleans are operands we never read
			stack = append(stack, operand{})
		case tokOperator:
			switch string(tok.val) {
			case "BT", "ET", "Td", "TD", "Tm", "T*":
				flush()
			case "Tj":
				if len(stack) > 0 {
					show(stack[len(stack)-1])
				}
			case "'", "\"":
				flush()
				if len(stack) > 0 {
					show(stack[len(stack)-1])
				}
			case "TJ":
				if len(stack) > 0 && stack[len(stack)-1].isArr {
					for _, el := range stack[len(stack)-1].arr {
						if el.isNum && el.num < -tjSpaceThreshold {
							cur = append(cur, ' ')
							continue
						}
						show(el)
					}
				}
			case "ID":
				lx.skipInlineImage()
			}
			stack = stack[:0]
		}
	}
	flush()
	return runs
}

var utf16BE = unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM)

// decodeText turns PDF string bytes into UTF-8. Strings carrying a UTF-16
// byte order mark are decoded as such; everything else is read as
// WinAnsiEncoding, the encoding of the standard fonts.
func decodeText(b []byte) string {
	if len(b) >= 2 && b[0] == 0xFE && b[1] == 0xFF {
		if s, err := utf16BE.NewDecoder().Bytes(b); err == nil {
			return string(s)
		}
	}
	s, err := charmap.Windows1252.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(s)
}
