package extract

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/hyperifyio/docsections/internal/fetch"
)

// buildPDF renders one text line per cell, ASCII only, uncompressed.
func buildPDF(t *testing.T, pages ...[]string) []byte {
	t.Helper()
	doc := gofpdf.New("P", "mm", "A4", "")
	doc.SetCompression(false)
	for _, lines := range pages {
		doc.AddPage()
		doc.SetFont("Helvetica", "", 12)
		for _, l := range lines {
			doc.Cell(0, 8, l)
			doc.Ln(8)
		}
	}
	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		t.Fatalf("build pdf: %v", err)
	}
	return buf.Bytes()
}

var sheet = [][]string{
	{"FEATURES:", "Waterproof housing"},
	{"SPECS:", "Weight 1 kg"},
}

func TestStreamsBackend_GofpdfDocument(t *testing.T) {
	data := buildPDF(t, sheet...)
	x := &Extractor{Backend: StreamsBackend{}}
	res, err := x.ExtractBytes(data)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if res.PageCount != 2 || res.Backend != BackendStreams {
		t.Fatalf("unexpected result meta: %+v", res)
	}
	want := "FEATURES: Waterproof housing\nSPECS: Weight 1 kg"
	if res.Text != want {
		t.Fatalf("text = %q, want %q", res.Text, want)
	}
}

func TestRunsBackend_GofpdfDocument(t *testing.T) {
	data := buildPDF(t, sheet...)
	x := &Extractor{Backend: RunsBackend{}}
	res, err := x.ExtractBytes(data)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if res.PageCount != 2 {
		t.Fatalf("page count = %d", res.PageCount)
	}
	for _, w := range []string{"FEATURES:", "Waterproof housing", "Weight 1 kg"} {
		if !strings.Contains(res.Text, w) {
			t.Fatalf("expected %q in %q", w, res.Text)
		}
	}
	if strings.Count(res.Text, "\n") != 1 {
		t.Fatalf("expected exactly one page break in %q", res.Text)
	}
}

func TestPlainBackend_GofpdfDocument(t *testing.T) {
	data := buildPDF(t, sheet...)
	x := &Extractor{Backend: PlainBackend{}}
	res, err := x.ExtractBytes(data)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if res.PageCount != 2 {
		t.Fatalf("page count = %d", res.PageCount)
	}
	want := "FEATURES:\nWaterproof housing\nSPECS:\nWeight 1 kg"
	if res.Text != want {
		t.Fatalf("text = %q, want %q", res.Text, want)
	}
}

func TestBackends_RejectNonPDFAndTruncated(t *testing.T) {
	data := buildPDF(t, sheet...)
	inputs := map[string][]byte{
		"html":      []byte("<html><body>not a pdf</body></html>"),
		"truncated": data[:len(data)/3],
	}
	for _, b := range []Backend{StreamsBackend{}, RunsBackend{}, PlainBackend{}} {
		x := &Extractor{Backend: b}
		for name, in := range inputs {
			_, err := x.ExtractBytes(in)
			if !errors.Is(err, ErrParse) {
				t.Fatalf("%s/%s: expected ErrParse, got %v", b.Name(), name, err)
			}
			if errors.Is(err, ErrFetch) {
				t.Fatalf("%s/%s: parse error must not match ErrFetch", b.Name(), name)
			}
		}
	}
}

type panicBackend struct{}

func (panicBackend) Name() string                 { return "panic" }
func (panicBackend) Parse([]byte) (Parsed, error) { panic("malformed xref") }

func TestExtractBytes_RecoversBackendPanic(t *testing.T) {
	x := &Extractor{Backend: panicBackend{}}
	_, err := x.ExtractBytes([]byte("%PDF-1.4"))
	if !errors.Is(err, ErrParse) || !strings.Contains(err.Error(), "malformed xref") {
		t.Fatalf("expected recovered ErrParse, got %v", err)
	}
}

func TestExtractor_OverHTTP(t *testing.T) {
	data := buildPDF(t, sheet...)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sheet.pdf":
			w.Header().Set("Content-Type", "application/pdf")
			_, _ = w.Write(data)
		case "/page.html":
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("<html><body><p>not a pdf</p></body></html>"))
		case "/slow.pdf":
			select {
			case <-time.After(2 * time.Second):
			case <-r.Context().Done():
			}
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	x, err := New(&fetch.Client{PerRequestTimeout: 200 * time.Millisecond}, BackendStreams)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	res, err := x.Extract(ctx, srv.URL+"/sheet.pdf")
	if err != nil || res.PageCount != 2 || !strings.Contains(res.Text, "Waterproof housing") {
		t.Fatalf("extract ok: res=%+v err=%v", res, err)
	}

	_, err = x.Extract(ctx, srv.URL+"/missing.pdf")
	if !errors.Is(err, ErrFetch) {
		t.Fatalf("404: expected ErrFetch, got %v", err)
	}
	var xe *Error
	if !errors.As(err, &xe) || xe.URL != srv.URL+"/missing.pdf" || xe.Op != "fetch" {
		t.Fatalf("expected *Error carrying the url, got %#v", err)
	}

	start := time.Now()
	_, err = x.Extract(ctx, srv.URL+"/slow.pdf")
	if !errors.Is(err, ErrFetch) {
		t.Fatalf("timeout: expected ErrFetch, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("timeout not honoured: %s", time.Since(start))
	}

	_, err = x.Extract(ctx, srv.URL+"/page.html")
	if !errors.Is(err, ErrParse) || !errors.As(err, &xe) || xe.URL != srv.URL+"/page.html" {
		t.Fatalf("non-pdf: expected ErrParse with url, got %v", err)
	}

	env := x.ExtractResult(ctx, srv.URL+"/missing.pdf")
	if env.Success || env.Error == "" || env.Text != "" {
		t.Fatalf("unexpected failure envelope %+v", env)
	}
	env = x.ExtractResult(ctx, srv.URL+"/sheet.pdf")
	if !env.Success || env.PageCount != 2 || env.Backend != BackendStreams {
		t.Fatalf("unexpected success envelope %+v", env)
	}
}

func TestNewBackend(t *testing.T) {
	for _, name := range []string{"", "streams", "RUNS", " plain ", "html"} {
		if _, err := NewBackend(name); err != nil {
			t.Fatalf("NewBackend(%q): %v", name, err)
		}
	}
	if _, err := NewBackend("ocr"); err == nil {
		t.Fatalf("expected unknown backend error")
	}
	if b, _ := NewBackend(""); b.Name() != DefaultBackend {
		t.Fatalf("default backend = %s", b.Name())
	}
}

func TestFlatten(t *testing.T) {
	p := Parsed{Pages: [][]string{{"FEATURES:", "Waterproof  housing"}, nil, {"SPECS:"}}, PageCount: 3}
	got := Flatten(p)
	want := "FEATURES: Waterproof housing\n\nSPECS:"
	if got != want {
		t.Fatalf("Flatten = %q, want %q", got, want)
	}

	p.Framing = FrameLines
	got = Flatten(p)
	want = "FEATURES:\nWaterproof housing\n\nSPECS:"
	if got != want {
		t.Fatalf("Flatten lines = %q, want %q", got, want)
	}
}
