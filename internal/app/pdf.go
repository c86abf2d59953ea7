package app

import (
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/hyperifyio/docsections/internal/segment"
)

// pdfPart is one headed block of a sections export. Bulleted parts render
// each content entry as a list item.
type pdfPart struct {
	Heading  string
	Sections []segment.Section
	Bulleted bool
}

// writeSectionsPDF renders formatted sections as a plain A4 document. Core
// fonts only cover Windows-1252, so text is translated and anything outside
// that code page is lost.
func writeSectionsPDF(title string, parts []pdfPart, outPath string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(title, true)
	pdf.SetCreator("docsections "+BuildVersion, true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.MultiCell(0, 9, tr(title), "", "L", false)
	pdf.Ln(3)

	for _, part := range parts {
		if h := strings.TrimSpace(part.Heading); h != "" {
			pdf.SetFont("Helvetica", "B", 14)
			pdf.CellFormat(0, 8, tr(h), "", 1, "L", false, 0, "")
		}
		for _, s := range part.Sections {
			if s.Title != "" {
				pdf.SetFont("Helvetica", "B", 12)
				pdf.CellFormat(0, 7, tr(s.Title), "", 1, "L", false, 0, "")
			}
			pdf.SetFont("Helvetica", "", 11)
			for _, c := range s.Content {
				if part.Bulleted {
					c = "• " + c
				}
				pdf.MultiCell(0, 5, tr(c), "", "L", false)
			}
			pdf.Ln(2)
		}
		pdf.Ln(4)
	}
	return pdf.OutputFileAndClose(outPath)
}
