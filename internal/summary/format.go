package summary

import (
	"fmt"
	"strings"
	"time"
)

// FormatMessage renders the shareable plain-text summary. Zero counts
// are left out; today is printed as dd/mm/yy.
func FormatMessage(s *Summary, today time.Time) string {
	header := "► Resumen de Pedidos"
	if s.User != "" && s.User != General {
		header += " - " + s.User
	}

	f := s.Filtered()
	blocks := []string{
		header,
		"► Fecha: " + today.Format("02/01/06"),
		"",
	}

	for _, d := range f.Days {
		lines := []string{"► " + strings.ToUpper(d.Day)}
		for _, c := range d.Counts {
			lines = append(lines, fmt.Sprintf("  • %s: %d", c.Option, c.Count))
		}
		lines = append(lines, fmt.Sprintf("  ► Total del día: %d", d.Total()))

		if len(d.Comments) > 0 {
			lines = append(lines, "", "  ► Notas especiales:")
			for _, c := range d.Comments {
				lines = append(lines, "    • "+c)
			}
		}
		blocks = append(blocks, strings.Join(lines, "\n"))
	}

	blocks = append(blocks, "", fmt.Sprintf("► TOTAL GENERAL: %d pedidos", f.Total()))
	return strings.Join(blocks, "\n\n")
}
