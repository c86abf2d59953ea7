package extract

import (
	"bytes"
	"errors"
	"strings"

	"golang.org/x/net/html"

	"github.com/hyperifyio/docsections/internal/normalize"
)

// Document is the readable content of an HTML spec sheet.
type Document struct {
	Title string
	Text  string
}

// FromHTML extracts readable text from HTML, preferring <main> or <article>,
// falling back to <body>. Block elements and table cells become line breaks
// so header detection still sees one heading per line; navigation, footers
// and consent banners are skipped.
func FromHTML(input []byte) Document {
	node, err := html.Parse(bytes.NewReader(input))
	if err != nil || node == nil {
		return Document{}
	}

	title := strings.TrimSpace(findTitle(node))
	content := findFirst(node, "main")
	if content == nil {
		content = findFirst(node, "article")
	}
	if content == nil {
		content = findFirst(node, "body")
	}
	var b strings.Builder
	if content != nil {
		collectText(&b, content, false)
	}
	return Document{Title: title, Text: normalize.LinesText(b.String())}
}

// HTMLBackend reads HTML spec sheets published next to the PDFs. The whole
// document is one page with one run per text line.
type HTMLBackend struct{}

func (HTMLBackend) Name() string { return BackendHTML }

func (HTMLBackend) Parse(data []byte) (Parsed, error) {
	doc := FromHTML(data)
	if doc.Text == "" {
		return Parsed{}, errors.New("no readable text in html")
	}
	return Parsed{Pages: [][]string{strings.Split(doc.Text, "\n")}, PageCount: 1}, nil
}

func findTitle(n *html.Node) string {
	head := findFirst(n, "head")
	if head == nil {
		return ""
	}
	t := findFirst(head, "title")
	if t == nil || t.FirstChild == nil {
		return ""
	}
	return t.FirstChild.Data
}

func findFirst(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && strings.EqualFold(n.Data, tag) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if res := findFirst(c, tag); res != nil {
			return res
		}
	}
	return nil
}

func collectText(b *strings.Builder, n *html.Node, inPre bool) {
	if n.Type == html.ElementNode {
		if isBoilerplateContainer(n) {
			return
		}
		switch strings.ToLower(n.Data) {
		case "script", "style", "noscript", "nav", "footer", "aside", "iframe", "header":
			return
		case "pre":
			inPre = true
		case "br", "hr", "p", "h1", "h2", "h3", "h4", "h5", "h6", "li", "ul", "ol", "tr", "dt", "dd", "div":
			b.WriteString("\n")
		case "td", "th":
			b.WriteString(" ")
		}
	}

	if n.Type == html.TextNode {
		data := n.Data
		if !inPre {
			data = strings.NewReplacer("\t", " ", "\r", " ", "\n", " ").Replace(data)
		}
		b.WriteString(data)
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(b, c, inPre)
	}

	if n.Type == html.ElementNode {
		switch strings.ToLower(n.Data) {
		case "p", "h1", "h2", "h3", "h4", "h5", "h6":
			b.WriteString("\n\n")
		case "li", "tr", "dt", "dd", "pre", "div":
			b.WriteString("\n")
		}
	}
}

// isBoilerplateContainer reports elements that look like cookie or consent
// banners.
func isBoilerplateContainer(n *html.Node) bool {
	for _, attr := range n.Attr {
		key := strings.ToLower(attr.Key)
		if key != "id" && key != "class" && !strings.HasPrefix(key, "data-") && key != "aria-label" && key != "role" {
			continue
		}
		val := strings.ToLower(attr.Val)
		for _, marker := range []string{"cookie", "consent", "gdpr"} {
			if strings.Contains(val, marker) {
				return true
			}
		}
	}
	return false
}
