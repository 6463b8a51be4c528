package notify

import (
	"bytes"
	"html/template"

	"github.com/pkg/errors"

	"menusemanal/internal/summary"
)

var layout = template.Must(template.New("summary").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h1 style="color: #2563eb; text-align: center; margin-bottom: 20px;">Resumen de Pedidos - Semana del {{.WeekKey}}</h1>
  <p style="text-align: center; color: #666; margin-bottom: 30px;">A continuación se presenta el resumen de los pedidos para esta semana.</p>
  {{range .Days}}
  <h2 style="color: #1f2937; border-bottom: 1px solid #e5e7eb;">{{.Day}}</h2>
  <table style="width: 100%; border-collapse: collapse;">
    <thead>
      <tr><th style="text-align: left;">Opción</th><th style="text-align: right;">Cantidad</th></tr>
    </thead>
    <tbody>
      {{range .Counts}}<tr><td>{{.Option}}{{if .Retired}} <em>(fuera de menú)</em>{{end}}</td><td style="text-align: right;">{{.Count}}</td></tr>
      {{end}}<tr><td><strong>Total del día</strong></td><td style="text-align: right;"><strong>{{.Total}}</strong></td></tr>
    </tbody>
  </table>
  {{if .Comments}}
  <h3>Comentarios:</h3>
  <ul>{{range .Comments}}<li>{{.}}</li>{{end}}</ul>
  {{end}}
  {{end}}
  <p style="text-align: center; font-size: 18px;"><strong>TOTAL GENERAL: {{.Total}} pedidos</strong></p>
  <p style="text-align: center; color: #9ca3af; font-size: 14px; margin-top: 30px;">
    Este correo fue enviado automáticamente por el Sistema de Pedidos de Comida.
  </p>
</div>
`))

// RenderHTML renders the filtered summary with days in week order.
func RenderHTML(s *summary.Summary) (string, error) {
	var buf bytes.Buffer
	if err := layout.Execute(&buf, s.Filtered()); err != nil {
		return "", errors.Wrap(err, "render summary email")
	}
	return buf.String(), nil
}
