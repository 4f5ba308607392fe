package roi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/neurovol/internal/fsutil"
	"github.com/banshee-data/neurovol/internal/volume"
)

// fillBox sets every voxel of the given inclusive box to label.
func fillBox(v *volume.Volume, x0, y0, z0, x1, y1, z1 int, label float64) {
	for z := z0; z <= z1; z++ {
		for y := y0; y <= y1; y++ {
			for x := x0; x <= x1; x++ {
				v.Set(x, y, z, label)
			}
		}
	}
}

func TestDrainCube(t *testing.T) {
	t.Parallel()

	// A 3x3x3 cube of label 1 centred in a 5x5x5 grid. Only the cube's
	// single centre voxel has all 26 neighbours inside the cube.
	v, err := volume.New([]int{5, 5, 5}, volume.DTUint8)
	require.NoError(t, err)
	fillBox(v, 1, 1, 1, 3, 3, 3, 1)

	out, err := Drain(v)
	require.NoError(t, err)

	assert.Equal(t, 0.0, out.At(2, 2, 2), "interior voxel should be emptied")
	for z := 0; z < 5; z++ {
		for y := 0; y < 5; y++ {
			for x := 0; x < 5; x++ {
				if x == 2 && y == 2 && z == 2 {
					continue
				}
				assert.Equal(t, v.At(x, y, z), out.At(x, y, z),
					"voxel (%d,%d,%d) should be unchanged", x, y, z)
			}
		}
	}

	// The input must not be modified.
	assert.Equal(t, 1.0, v.At(2, 2, 2))
}

func TestDrainLargerCube(t *testing.T) {
	t.Parallel()

	v, err := volume.New([]int{9, 9, 9}, volume.DTInt16)
	require.NoError(t, err)
	fillBox(v, 1, 1, 1, 7, 7, 7, 3)

	out, err := Drain(v)
	require.NoError(t, err)

	for z := 1; z <= 7; z++ {
		for y := 1; y <= 7; y++ {
			for x := 1; x <= 7; x++ {
				onShell := x == 1 || x == 7 || y == 1 || y == 7 || z == 1 || z == 7
				if onShell {
					assert.Equal(t, 3.0, out.At(x, y, z), "shell voxel (%d,%d,%d)", x, y, z)
				} else {
					assert.Equal(t, 0.0, out.At(x, y, z), "interior voxel (%d,%d,%d)", x, y, z)
				}
			}
		}
	}
	assert.Equal(t, volume.DTInt16, out.DType)
	assert.Equal(t, v.Spacing, out.Spacing)
	assert.Equal(t, v.Affine, out.Affine)
}

func TestDrainGridEdge(t *testing.T) {
	t.Parallel()

	// A volume filled entirely with one label. No voxel has a complete
	// in-bounds neighbourhood except the strict interior, so the grid's
	// outermost shell survives.
	v, err := volume.New([]int{4, 4, 4}, volume.DTUint8)
	require.NoError(t, err)
	fillBox(v, 0, 0, 0, 3, 3, 3, 7)

	out, err := Drain(v)
	require.NoError(t, err)

	for z := 0; z < 4; z++ {
		for y := 0; y < 4; y++ {
			for x := 0; x < 4; x++ {
				onEdge := x == 0 || x == 3 || y == 0 || y == 3 || z == 0 || z == 3
				if onEdge {
					assert.Equal(t, 7.0, out.At(x, y, z), "edge voxel (%d,%d,%d)", x, y, z)
				} else {
					assert.Equal(t, 0.0, out.At(x, y, z), "interior voxel (%d,%d,%d)", x, y, z)
				}
			}
		}
	}
}

func TestDrainAdjacentLabels(t *testing.T) {
	t.Parallel()

	// Two labels sharing a face. A neighbour with a different label is not
	// background, but it still breaks the same-label neighbourhood, so
	// voxels along the shared face survive for both ROIs.
	v, err := volume.New([]int{8, 5, 5}, volume.DTUint8)
	require.NoError(t, err)
	fillBox(v, 1, 1, 1, 3, 3, 3, 1)
	fillBox(v, 4, 1, 1, 6, 3, 3, 2)

	out, err := Drain(v)
	require.NoError(t, err)

	// Both centres are strictly inside their own cube.
	assert.Equal(t, 0.0, out.At(2, 2, 2))
	assert.Equal(t, 0.0, out.At(5, 2, 2))

	// The shared face keeps both labels.
	assert.Equal(t, 1.0, out.At(3, 2, 2))
	assert.Equal(t, 2.0, out.At(4, 2, 2))
}

func TestDrainThinRegions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		shape []int
		fill  func(v *volume.Volume)
	}{
		{
			name:  "single voxel",
			shape: []int{3, 3, 3},
			fill:  func(v *volume.Volume) { v.Set(1, 1, 1, 1) },
		},
		{
			name:  "one voxel thick plane",
			shape: []int{5, 5, 5},
			fill:  func(v *volume.Volume) { fillBox(v, 1, 1, 2, 3, 3, 2, 1) },
		},
		{
			name:  "one voxel thick line",
			shape: []int{7, 3, 3},
			fill:  func(v *volume.Volume) { fillBox(v, 1, 1, 1, 5, 1, 1, 1) },
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			v, err := volume.New(tt.shape, volume.DTUint8)
			require.NoError(t, err)
			tt.fill(v)

			out, err := Drain(v)
			require.NoError(t, err)

			// Nothing is thick enough to have an interior.
			assert.Equal(t, v.Data, out.Data)
		})
	}
}

func TestDrainEmptyVolume(t *testing.T) {
	t.Parallel()

	v, err := volume.New([]int{4, 4, 4}, volume.DTUint8)
	require.NoError(t, err)

	out, err := Drain(v)
	require.NoError(t, err)
	assert.Equal(t, 0, out.CountNonzero())
}

func TestDrainRejects4D(t *testing.T) {
	t.Parallel()

	v, err := volume.New([]int{3, 3, 3, 2}, volume.DTUint8)
	require.NoError(t, err)

	_, err = Drain(v)
	assert.Error(t, err)
}

func TestDrainImage(t *testing.T) {
	t.Parallel()

	t.Run("in-memory volume", func(t *testing.T) {
		t.Parallel()
		v, err := volume.New([]int{5, 5, 5}, volume.DTUint8)
		require.NoError(t, err)
		fillBox(v, 1, 1, 1, 3, 3, 3, 1)

		out, err := DrainImage(fsutil.NewMemoryFileSystem(), volume.FromVolume(v))
		require.NoError(t, err)
		assert.Equal(t, 0.0, out.At(2, 2, 2))
		assert.Equal(t, 1.0, out.At(1, 1, 1))
	})

	t.Run("path input", func(t *testing.T) {
		t.Parallel()
		fsys := fsutil.NewMemoryFileSystem()

		v, err := volume.New([]int{5, 5, 5}, volume.DTUint8)
		require.NoError(t, err)
		fillBox(v, 1, 1, 1, 3, 3, 3, 1)
		require.NoError(t, volume.Save(fsys, "rois.nii", v))

		out, err := DrainImage(fsys, volume.FromPath("rois.nii"))
		require.NoError(t, err)
		assert.Equal(t, 0.0, out.At(2, 2, 2))
		assert.Equal(t, 1.0, out.At(3, 3, 3))
	})

	t.Run("4D input uses first volume", func(t *testing.T) {
		t.Parallel()
		v, err := volume.New([]int{5, 5, 5, 2}, volume.DTUint8)
		require.NoError(t, err)
		fillBox(v, 1, 1, 1, 3, 3, 3, 1)

		out, err := DrainImage(fsutil.NewMemoryFileSystem(), volume.FromVolume(v))
		require.NoError(t, err)
		assert.False(t, out.Is4D())
		assert.Equal(t, 0.0, out.At(2, 2, 2))
	})

	t.Run("empty input", func(t *testing.T) {
		t.Parallel()
		_, err := DrainImage(fsutil.NewMemoryFileSystem(), volume.Input{})
		assert.ErrorIs(t, err, volume.ErrEmptyInput)
	})
}
