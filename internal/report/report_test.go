package report

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/neurovol/internal/roi"
)

func TestWriteHTML(t *testing.T) {
	t.Parallel()

	before := []roi.LabelStats{
		{Label: 1, Voxels: 125},
		{Label: 2, Voxels: 64},
	}

	t.Run("single series", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		require.NoError(t, WriteHTML(&buf, "labels", before, nil))

		html := buf.String()
		assert.Contains(t, html, "<html")
		assert.Contains(t, html, "labels")
		assert.Contains(t, html, "input")
		assert.Contains(t, html, "125")
		assert.NotContains(t, html, "output")
	})

	t.Run("before and after", func(t *testing.T) {
		t.Parallel()
		after := []roi.LabelStats{
			{Label: 1, Voxels: 98},
			{Label: 2, Voxels: 56},
		}

		var buf bytes.Buffer
		require.NoError(t, WriteHTML(&buf, "drain report", before, after))

		html := buf.String()
		assert.Contains(t, html, "drain report")
		assert.Contains(t, html, "output")
		assert.Contains(t, html, "98")
	})

	t.Run("no labels still renders", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		require.NoError(t, WriteHTML(&buf, "empty", nil, nil))
		assert.NotZero(t, buf.Len())
	})
}
