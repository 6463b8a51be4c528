package menu

import (
	"bytes"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func workbook(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestParseSheet(t *testing.T) {
	buf := workbook(t, [][]any{
		{"Menú semanal"},
		{"Día", "Opción A", "Opción B"},
		{"Lunes", "Milanesa", "Ensalada"},
		{"", "Pollo"},
		{"MIÉRCOLES", "Tarta", " "},
		{"Jueves"},
		{"Viernes", "Pescado"},
	})

	raw, err := ParseSheet(buf)
	require.NoError(t, err)

	got, err := Normalize(raw)
	require.NoError(t, err)

	assert.Equal(t, Canonical{
		"Lunes":     {"Milanesa", "Ensalada"},
		"Martes":    {"Pollo"},
		"Miércoles": {"Tarta"},
		"Viernes":   {"Pescado"},
	}, got)
}

func TestParseCSV(t *testing.T) {
	in := strings.Join([]string{
		"Menu",
		"Dia,A,B",
		"Lunes,Guiso,",
		"Martes,Fideos,Sopa",
	}, "\n")

	raw, err := ParseCSV(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []string{"Guiso"}, raw["Lunes"])
	assert.Equal(t, []string{"Fideos", "Sopa"}, raw["Martes"])
}

func TestParseFile_RejectsExtension(t *testing.T) {
	_, err := ParseFile("menu.pdf", strings.NewReader(""))
	assert.True(t, errors.Is(err, ErrFileExtension))

	assert.NoError(t, ValidateFileExtension("MENU.XLSX"))
	assert.Error(t, ValidateFileExtension("menu"))
}

func TestParseCSV_Empty(t *testing.T) {
	_, err := ParseCSV(strings.NewReader(""))
	assert.True(t, errors.Is(err, ErrEmptySheet))
}
