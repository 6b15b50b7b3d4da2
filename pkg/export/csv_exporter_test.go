package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVExporterRender(t *testing.T) {
	exporter := NewCSVExporter()

	payload, err := exporter.Render(Dataset{
		Headers: []string{"Day", "Class", "Subject"},
		Rows: []map[string]string{
			{"Day": "Monday", "Class": "10A", "Subject": "Mathematics"},
			{"Day": "Tuesday", "Class": "10A"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Day,Class,Subject\nMonday,10A,Mathematics\nTuesday,10A,\n", string(payload))
}

func TestCSVExporterQuotesCommas(t *testing.T) {
	exporter := NewCSVExporter()

	payload, err := exporter.Render(Dataset{
		Headers: []string{"Subject"},
		Rows:    []map[string]string{{"Subject": "Art, Design"}},
	})
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"Art, Design"`)
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	exporter := NewCSVExporter()

	_, err := exporter.Render(Dataset{})
	assert.Error(t, err)
}
