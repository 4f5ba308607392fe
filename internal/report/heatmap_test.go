package report

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/neurovol/internal/volume"
)

func testVolume(t *testing.T) *volume.Volume {
	t.Helper()
	v, err := volume.New([]int{8, 8, 4}, volume.DTFloat32)
	require.NoError(t, err)
	for i := range v.Data {
		v.Data[i] = float64(i % 7)
	}
	return v
}

func TestWriteHeatmap(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteHeatmap(&buf, testVolume(t), 2))

	// PNG signature.
	require.Greater(t, buf.Len(), 8)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, buf.Bytes()[:4])
}

func TestWriteHeatmapMiddleSlice(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteHeatmap(&buf, testVolume(t), -1))
	assert.NotZero(t, buf.Len())
}

func TestWriteHeatmapSliceOutOfRange(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := WriteHeatmap(&buf, testVolume(t), 99)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestWriteHeatmap4DUsesFirstVolume(t *testing.T) {
	t.Parallel()

	v, err := volume.New([]int{6, 6, 3, 2}, volume.DTFloat32)
	require.NoError(t, err)
	for i := range v.Data {
		v.Data[i] = float64(i % 5)
	}

	var buf bytes.Buffer
	require.NoError(t, WriteHeatmap(&buf, v, 1))
	assert.NotZero(t, buf.Len())
}
