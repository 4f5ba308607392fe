// Package roi implements operations over labelled regions of interest in a
// volume: draining interiors, connected components, partitioning and
// per-label statistics. Background is always voxel value 0.
package roi

import (
	"fmt"

	"github.com/banshee-data/neurovol/internal/fsutil"
	"github.com/banshee-data/neurovol/internal/volume"
)

// Drain empties every ROI in the volume, keeping only its border voxels.
//
// A voxel is interior when all 26 neighbours of its 3x3x3 neighbourhood
// carry the same label; neighbourhoods reaching past the grid edge count as
// outside, so voxels on the edge of the grid always survive. Interior voxels
// are set to 0, every other labelled voxel keeps its label. Useful for
// seeding tractography from ROI shells.
func Drain(v *volume.Volume) (*volume.Volume, error) {
	if v.Is4D() {
		return nil, fmt.Errorf("drain expects a 3D label volume, got shape %v", v.Shape)
	}

	out := v.EmptyLike()
	nx, ny, nz := v.NX(), v.NY(), v.NZ()

	for z := 0; z < nz; z++ {
		for y := 0; y < ny; y++ {
			for x := 0; x < nx; x++ {
				label := v.At(x, y, z)
				if label == 0 {
					continue
				}
				if !interior(v, x, y, z, label) {
					out.Set(x, y, z, label)
				}
			}
		}
	}
	return out, nil
}

// interior reports whether every voxel of the full 3x3x3 neighbourhood of
// (x, y, z) carries the given label. Out-of-bounds neighbours count as
// background.
func interior(v *volume.Volume, x, y, z int, label float64) bool {
	for dz := -1; dz <= 1; dz++ {
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				nx, ny, nz := x+dx, y+dy, z+dz
				if !v.InBounds(nx, ny, nz) {
					return false
				}
				if v.At(nx, ny, nz) != label {
					return false
				}
			}
		}
	}
	return true
}

// DrainImage adapts Drain to a path-or-volume input: a path is loaded
// first, an in-memory volume is used as-is, and the drained result is
// always returned as a loaded volume. 4D inputs are reduced to their first
// 3D volume.
func DrainImage(fsys fsutil.FileSystem, in volume.Input) (*volume.Volume, error) {
	v, err := in.Resolve(fsys)
	if err != nil {
		return nil, err
	}
	if v.Is4D() {
		if v, err = v.VolumeAt(0); err != nil {
			return nil, err
		}
	}
	return Drain(v)
}
