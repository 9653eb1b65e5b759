package export

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset(rows int) Dataset {
	data := Dataset{Headers: []string{"Teacher", "Hours"}}
	for i := 0; i < rows; i++ {
		data.Rows = append(data.Rows, map[string]string{"Teacher": fmt.Sprintf("T%02d", i), "Hours": "1,5"})
	}
	return data
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset(1))
	require.NoError(t, err)
	assert.Equal(t, "Teacher,Hours\nT00,\"1,5\"\n", string(out))
}

func TestCSVExporterSemicolonWithBOM(t *testing.T) {
	out, err := NewCSVExporter(WithDelimiter(';'), WithBOM()).Render(sampleDataset(1))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("\xef\xbb\xbf")))
	assert.Equal(t, "Teacher;Hours\nT00;1,5\n", string(out[3:]))
}

func TestExportersRequireHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
	_, err = NewPDFExporter().Render(Dataset{}, "x")
	assert.Error(t, err)
}

func TestPDFExporterRenderSpansPages(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleDataset(80), "Teaching Workload")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}
