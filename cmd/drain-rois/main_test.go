package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/neurovol/internal/catalog"
	"github.com/banshee-data/neurovol/internal/fsutil"
	"github.com/banshee-data/neurovol/internal/monitoring"
	"github.com/banshee-data/neurovol/internal/volume"
)

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	m.Run()
}

// cubeVolume returns a 5x5x5 volume with a 3x3x3 cube of label 1 in the
// middle.
func cubeVolume(t *testing.T) *volume.Volume {
	t.Helper()
	v, err := volume.New([]int{5, 5, 5}, volume.DTUint8)
	require.NoError(t, err)
	for z := 1; z <= 3; z++ {
		for y := 1; y <= 3; y++ {
			for x := 1; x <= 3; x++ {
				v.Set(x, y, z, 1)
			}
		}
	}
	return v
}

func TestRunMissingArguments(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()

	tests := []struct {
		name string
		args []string
	}{
		{"no args", nil},
		{"input only", []string{"-i", "in.nii"}},
		{"output only", []string{"-o", "out.nii"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := run(tt.args, fsys)
			require.Error(t, err)
			assert.True(t, isUsageError(err), "want usage error, got %v", err)
			// Nothing may be written on a usage error.
			assert.False(t, fsys.Exists("out.nii"))
		})
	}
}

func TestRunUnknownFlag(t *testing.T) {
	err := run([]string{"-bogus"}, fsutil.NewMemoryFileSystem())
	assert.Error(t, err)
}

func TestRunMissingInputFile(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	err := run([]string{"-i", "absent.nii", "-o", "out.nii"}, fsys)
	require.Error(t, err)
	assert.False(t, isUsageError(err))
	assert.False(t, fsys.Exists("out.nii"))
}

func TestRunDrainsCube(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	require.NoError(t, volume.Save(fsys, "rois.nii.gz", cubeVolume(t)))

	require.NoError(t, run([]string{"-i", "rois.nii.gz", "-o", "drained.nii.gz"}, fsys))

	out, err := volume.Open(fsys, "drained.nii.gz")
	require.NoError(t, err)

	// The cube's single interior voxel is emptied; everything else is
	// untouched.
	assert.Equal(t, 0.0, out.At(2, 2, 2))
	assert.Equal(t, 26, out.CountNonzero())
	assert.Equal(t, 1.0, out.At(1, 1, 1))
	assert.Equal(t, 1.0, out.At(3, 3, 3))
	assert.Equal(t, 0.0, out.At(0, 0, 0))
	assert.Equal(t, volume.DTUint8, out.DType)
}

func TestRunLongFlagNames(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	require.NoError(t, volume.Save(fsys, "rois.nii", cubeVolume(t)))

	require.NoError(t, run([]string{"--input", "rois.nii", "--output", "drained.nii"}, fsys))
	assert.True(t, fsys.Exists("drained.nii"))
}

func TestRunMetaImageOutput(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	require.NoError(t, volume.Save(fsys, "rois.nii", cubeVolume(t)))

	require.NoError(t, run([]string{"-i", "rois.nii", "-o", "drained.mhd"}, fsys))
	assert.True(t, fsys.Exists("drained.mhd"))
	assert.True(t, fsys.Exists("drained.raw"))

	out, err := volume.Open(fsys, "drained.mhd")
	require.NoError(t, err)
	assert.Equal(t, 0.0, out.At(2, 2, 2))
	assert.Equal(t, 26, out.CountNonzero())
}

func TestRun4DInput(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()

	v, err := volume.New([]int{5, 5, 5, 2}, volume.DTUint8)
	require.NoError(t, err)
	// Put the cube in the second 3D volume only.
	nvox := v.NVoxels()
	cube := cubeVolume(t)
	copy(v.Data[nvox:], cube.Data)
	require.NoError(t, volume.Save(fsys, "series.nii", v))

	require.NoError(t, run([]string{"-i", "series.nii", "-o", "out.nii", "-vol", "1"}, fsys))

	out, err := volume.Open(fsys, "out.nii")
	require.NoError(t, err)
	assert.False(t, out.Is4D())
	assert.Equal(t, 26, out.CountNonzero())

	// Volume 0 is empty, so draining it yields an empty output.
	require.NoError(t, run([]string{"-i", "series.nii", "-o", "empty.nii", "-vol", "0"}, fsys))
	out, err = volume.Open(fsys, "empty.nii")
	require.NoError(t, err)
	assert.Equal(t, 0, out.CountNonzero())

	// An out-of-range index is an error.
	assert.Error(t, run([]string{"-i", "series.nii", "-o", "x.nii", "-vol", "5"}, fsys))
}

func TestRunWritesReport(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	require.NoError(t, volume.Save(fsys, "rois.nii", cubeVolume(t)))

	require.NoError(t, run([]string{"-i", "rois.nii", "-o", "out.nii", "-report", "report.html"}, fsys))

	html, err := fsys.ReadFile("report.html")
	require.NoError(t, err)
	assert.Contains(t, string(html), "input")
	assert.Contains(t, string(html), "output")
	// 27 voxels in, 26 after draining.
	assert.Contains(t, string(html), "27")
	assert.Contains(t, string(html), "26")
}

func TestRunRecordsCatalog(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	require.NoError(t, volume.Save(fsys, "rois.nii", cubeVolume(t)))

	dbPath := filepath.Join(t.TempDir(), "catalog.db")
	require.NoError(t, run([]string{"-i", "rois.nii", "-o", "out.nii", "-catalog", dbPath}, fsys))

	c, err := catalog.Open(dbPath)
	require.NoError(t, err)
	defer c.Close()

	runs, err := c.List(0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "drain-rois", runs[0].Operation)
	assert.Equal(t, "rois.nii", runs[0].InputPath)
	assert.Equal(t, "out.nii", runs[0].OutputPath)
	assert.Equal(t, "5x5x5", runs[0].Shape)
	assert.Equal(t, 1, runs[0].LabelCount)
}
