package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Headers: []string{"Niño", "Tipo", "Hora"},
		Rows: []map[string]string{
			{"Niño": "Ana Muñoz", "Tipo": "entrada", "Hora": "08:00:00"},
			{"Niño": "Ana Muñoz", "Tipo": "salida", "Hora": "18:00:00"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)
	assert.Equal(t, []byte{0xEF, 0xBB, 0xBF}, out[:3], "UTF-8 byte order mark")
	lines := strings.Split(strings.TrimSpace(strings.TrimPrefix(string(out), "\ufeff")), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Niño,Tipo,Hora", lines[0])
	assert.Equal(t, "Ana Muñoz,salida,18:00:00", lines[2])
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.ErrorIs(t, err, ErrNoHeaders)
}

func TestCSVExporterEscapesFormulas(t *testing.T) {
	data := Dataset{
		Headers: []string{"Niño", "Autorizado"},
		Rows:    []map[string]string{{"Niño": "=HYPERLINK(\"x\")", "Autorizado": "-"}},
	}
	out, err := NewCSVExporter().Render(data)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(strings.TrimPrefix(string(out), "\ufeff")), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, `"'=HYPERLINK(""x"")",-`, lines[1])

	plain := &CSVExporter{Comma: ';'}
	out, err = plain.Render(data)
	require.NoError(t, err)
	assert.False(t, bytes.HasPrefix(out, []byte("\ufeff")))
	assert.Contains(t, string(out), `"=HYPERLINK(""x"")";-`)
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleDataset(), PDFHeader{
		Title:    "Asistencia diaria",
		Subtitle: "2024-03-01",
		Facility: "Guardería Central",
		Printed:  time.Date(2024, 3, 1, 18, 5, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestPDFExporterEmptyDataset(t *testing.T) {
	out, err := NewPDFExporter().Render(Dataset{Headers: []string{"Niño"}}, PDFHeader{})
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}
