package export

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"mealcrafter/internal/recipe"
)

// PDF renders the record's Markdown document as a styled PDF. Headings get
// larger bold fonts, list items keep their markers, inline Markdown is
// stripped.
func PDF(rec recipe.Record) ([]byte, error) {
	markdown := Markdown(rec)

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	numberedRe := regexp.MustCompile(`^\d+\.\s`)

	for _, line := range strings.Split(markdown, "\n") {
		if strings.TrimSpace(line) == "" {
			pdf.Ln(3)
			continue
		}

		if strings.HasPrefix(line, "#") {
			level := 0
			for _, ch := range line {
				if ch != '#' {
					break
				}
				level++
			}
			text := strings.TrimSpace(strings.TrimLeft(line, "# "))
			writeHeading(pdf, text, level)
			continue
		}

		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* "):
			pdf.SetFont("Helvetica", "", 10)
			pdf.MultiCell(0, 5, cleanInline("• "+trimmed[2:]), "", "L", false)
		case numberedRe.MatchString(trimmed):
			pdf.SetFont("Helvetica", "", 10)
			pdf.MultiCell(0, 5, cleanInline(trimmed), "", "L", false)
		default:
			pdf.SetFont("Helvetica", "", 10)
			pdf.MultiCell(0, 5, cleanInline(line), "", "L", false)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeHeading(pdf *gofpdf.Fpdf, text string, level int) {
	sizes := map[int]float64{1: 18, 2: 15, 3: 13, 4: 12}
	size, ok := sizes[level]
	if !ok {
		size = 10
	}
	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", size)
	pdf.MultiCell(0, size*0.6, cleanInline(text), "", "L", false)
	pdf.Ln(2)
}

var italicRe = regexp.MustCompile(`(?:^|\s)\*([^*]+)\*(?:\s|$)`)

// cleanInline strips inline Markdown markers and characters outside the
// core-font range. The health breakdown uses emoji section markers that the
// built-in PDF fonts cannot encode.
func cleanInline(text string) string {
	text = strings.ReplaceAll(text, "**", "")
	text = strings.ReplaceAll(text, "__", "")
	text = italicRe.ReplaceAllString(text, " $1 ")

	var b strings.Builder
	for _, r := range text {
		if r <= 0xFF || r == '•' {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
