// Package export renders the weekly summary for sharing outside the app.
package export

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/pkg/errors"

	"menusemanal/internal/summary"
)

const whatsAppBase = "https://wa.me/?text="

// WhatsAppURL is a share link that opens WhatsApp with text prefilled.
func WhatsAppURL(text string) string {
	return whatsAppBase + strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
}

// PDF lays the filtered summary out on A4 pages: one block per day with
// its counts, day total and notes, then the grand total.
func PDF(s *summary.Summary, today time.Time) ([]byte, error) {
	f := s.Filtered()

	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(tr("Resumen de Pedidos"), false)
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.SetTextColor(37, 99, 235)
	pdf.CellFormat(0, 10, tr("Resumen de Pedidos"), "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(100, 100, 100)
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Semana del %s - Fecha: %s", s.WeekKey, today.Format("02/01/06"))), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	for _, d := range f.Days {
		pdf.SetFont("Helvetica", "B", 13)
		pdf.SetTextColor(0, 0, 0)
		pdf.SetFillColor(239, 246, 255)
		pdf.CellFormat(0, 8, tr(strings.ToUpper(d.Day)), "", 1, "L", true, 0, "")

		pdf.SetFont("Helvetica", "", 11)
		for _, c := range d.Counts {
			label := c.Option
			if c.Retired {
				label += " (fuera de menú)"
			}
			pdf.CellFormat(150, 6, tr("  "+label), "", 0, "L", false, 0, "")
			pdf.CellFormat(0, 6, fmt.Sprint(c.Count), "", 1, "R", false, 0, "")
		}

		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(150, 6, tr("  Total del día"), "T", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, fmt.Sprint(d.Total()), "T", 1, "R", false, 0, "")

		if len(d.Comments) > 0 {
			pdf.SetFont("Helvetica", "I", 10)
			pdf.SetTextColor(80, 80, 80)
			pdf.CellFormat(0, 6, tr("  Notas especiales:"), "", 1, "L", false, 0, "")
			for _, c := range d.Comments {
				pdf.MultiCell(0, 5, tr("    - "+c), "", "L", false)
			}
		}
		pdf.Ln(3)
	}

	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, 10, tr(fmt.Sprintf("TOTAL GENERAL: %d pedidos", f.Total())), "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, errors.Wrap(err, "render pdf")
	}
	return buf.Bytes(), nil
}
