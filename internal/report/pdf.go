package report

import (
	"bufio"
	"regexp"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

var codeSpanRe = regexp.MustCompile("`([^`]*)`")

// WritePDF renders the Markdown summary of s as a simple A4 PDF. Headings
// keep their level, list items keep their bullet and code spans are set in
// Courier. Core fonts cover cp1252 only, so other scripts degrade.
func WritePDF(s Scan, opts Options, outPath string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetFont("Helvetica", "", 11)
	pdf.AddPage()

	sc := bufio.NewScanner(strings.NewReader(Markdown(s, opts)))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			pdf.Ln(4)
			continue
		}
		if strings.HasPrefix(line, "#") {
			level := 0
			for level < len(line) && line[level] == '#' {
				level++
			}
			text := strings.TrimSpace(line[level:])
			size := 16.0
			switch level {
			case 2:
				size = 13
			case 3:
				size = 11.5
			}
			pdf.SetFont("Helvetica", "B", size)
			pdf.CellFormat(0, 8, tr(text), "", 1, "L", false, 0, "")
			pdf.SetFont("Helvetica", "", 11)
			continue
		}
		if strings.HasPrefix(line, "- ") {
			pdf.Write(5, tr("• "))
			line = line[2:]
		}
		writeInline(pdf, tr, line)
		pdf.Ln(6)
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return pdf.OutputFileAndClose(outPath)
}

func writeInline(pdf *gofpdf.Fpdf, tr func(string) string, s string) {
	pos := 0
	for _, m := range codeSpanRe.FindAllStringSubmatchIndex(s, -1) {
		if m[0] > pos {
			pdf.Write(5, tr(s[pos:m[0]]))
		}
		pdf.SetFont("Courier", "", 10)
		pdf.Write(5, tr(s[m[2]:m[3]]))
		pdf.SetFont("Helvetica", "", 11)
		pos = m[1]
	}
	if pos < len(s) {
		pdf.Write(5, tr(s[pos:]))
	}
}
