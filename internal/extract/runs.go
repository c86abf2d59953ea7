package extract

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

const (
	// baselineTolerance is how far (in points) glyphs may drift vertically
	// and still share a run.
	baselineTolerance = 3.0
	// gapFactor scales the font size into the largest horizontal gap inside
	// a run.
	gapFactor = 0.3
)

// RunsBackend reconstructs runs from positioned glyphs: consecutive glyphs on
// one baseline without a wide gap form a run.
type RunsBackend struct{}

func (RunsBackend) Name() string { return BackendRuns }

func (RunsBackend) Parse(data []byte) (Parsed, error) {
	return readPages(data, func(p pdf.Page) ([]string, error) {
		return glyphRuns(p.Content().Text), nil
	})
}

// PlainBackend returns each page as the library groups it into rows: one
// line per baseline, left to right. Labeled headers stay on their own line.
type PlainBackend struct{}

func (PlainBackend) Name() string { return BackendPlain }

func (PlainBackend) Parse(data []byte) (Parsed, error) {
	out, err := readPages(data, func(p pdf.Page) ([]string, error) {
		rows, err := p.GetTextByRow()
		if err != nil {
			return nil, err
		}
		return rowLines(rows), nil
	})
	if err != nil {
		return Parsed{}, err
	}
	out.Framing = FrameLines
	return out, nil
}

// rowLines renders rows top to bottom. Pieces of one TJ array share an X
// and are glued; separate show operations on a row get a space.
func rowLines(rows pdf.Rows) []string {
	rows = append(pdf.Rows(nil), rows...)
	// PDF y grows upwards
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Position > rows[j].Position })
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		texts := append(pdf.TextHorizontal(nil), row.Content...)
		sort.SliceStable(texts, func(i, j int) bool { return texts[i].X < texts[j].X })
		var b strings.Builder
		for i, t := range texts {
			if i > 0 && t.X != texts[i-1].X {
				b.WriteByte(' ')
			}
			b.WriteString(t.S)
		}
		if s := strings.TrimSpace(b.String()); s != "" {
			lines = append(lines, s)
		}
	}
	return lines
}

func readPages(data []byte, page func(pdf.Page) ([]string, error)) (Parsed, error) {
	if err := sniffPDF(data); err != nil {
		return Parsed{}, err
	}
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Parsed{}, fmt.Errorf("pdf read: %w", err)
	}
	n := r.NumPage()
	out := Parsed{PageCount: n, Pages: make([][]string, 0, n)}
	for i := 1; i <= n; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			out.Pages = append(out.Pages, nil)
			continue
		}
		runs, err := page(p)
		if err != nil {
			return Parsed{}, fmt.Errorf("page %d: %w", i, err)
		}
		out.Pages = append(out.Pages, runs)
	}
	return out, nil
}

func glyphRuns(texts []pdf.Text) []string {
	var (
		runs []string
		cur  strings.Builder
		prev *pdf.Text
	)
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			runs = append(runs, s)
		}
		cur.Reset()
	}
	for i := range texts {
		t := &texts[i]
		if prev != nil && breaksRun(prev, t) {
			flush()
		}
		cur.WriteString(t.S)
		prev = t
	}
	flush()
	return runs
}

func breaksRun(prev, t *pdf.Text) bool {
	if math.Abs(t.Y-prev.Y) > baselineTolerance {
		return true
	}
	size := t.FontSize
	if size <= 0 {
		size = 10
	}
	gap := t.X - (prev.X + prev.W)
	return gap > size*gapFactor || gap < -size
}
