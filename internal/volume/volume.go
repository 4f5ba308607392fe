// Package volume holds the in-memory representation of a volumetric image:
// a dense regular grid of scalar voxel values plus the spatial metadata
// (spacing, affine) needed to write it back out. It also owns the format
// registry that maps file extensions to codecs.
package volume

import (
	"fmt"
	"math"
	"sort"
)

// affineTolerance is the maximum per-element difference allowed when two
// volumes are compared for spatial compatibility.
const affineTolerance = 1e-4

// Volume is a 3D or 4D regular grid of scalar voxel values.
//
// Data is stored flat with x varying fastest, then y, z and t, the order
// NIfTI and MetaImage store voxels on disk. Values are held as float64;
// DType records the element type the volume had on disk so a load/transform/
// save round-trip preserves it.
type Volume struct {
	Shape   []int     // len 3 or 4: nx, ny, nz[, nt]
	Spacing []float64 // voxel size per axis, typically millimetres
	Affine  [4][4]float64
	DType   DType
	Data    []float64
}

// New allocates a zero-filled volume with unit spacing and identity affine.
func New(shape []int, dt DType) (*Volume, error) {
	if len(shape) != 3 && len(shape) != 4 {
		return nil, fmt.Errorf("volume must have 3 or 4 dimensions, got %d", len(shape))
	}
	n := 1
	for _, s := range shape {
		if s <= 0 {
			return nil, fmt.Errorf("invalid shape %v: all dimensions must be positive", shape)
		}
		n *= s
	}

	v := &Volume{
		Shape:   append([]int(nil), shape...),
		Spacing: make([]float64, len(shape)),
		DType:   dt,
		Data:    make([]float64, n),
	}
	for i := range v.Spacing {
		v.Spacing[i] = 1
	}
	for i := 0; i < 4; i++ {
		v.Affine[i][i] = 1
	}
	return v, nil
}

// NX, NY, NZ return the spatial dimensions.
func (v *Volume) NX() int { return v.Shape[0] }
func (v *Volume) NY() int { return v.Shape[1] }
func (v *Volume) NZ() int { return v.Shape[2] }

// NT returns the number of 3D volumes; 1 for 3D images.
func (v *Volume) NT() int {
	if len(v.Shape) == 4 {
		return v.Shape[3]
	}
	return 1
}

// Is4D reports whether the volume has a fourth dimension.
func (v *Volume) Is4D() bool { return len(v.Shape) == 4 }

// NVoxels returns the number of voxels in one 3D volume.
func (v *Volume) NVoxels() int { return v.Shape[0] * v.Shape[1] * v.Shape[2] }

// Index returns the flat index of spatial coordinate (x, y, z).
func (v *Volume) Index(x, y, z int) int {
	return x + v.Shape[0]*(y+v.Shape[1]*z)
}

// Coord is the inverse of Index.
func (v *Volume) Coord(idx int) (x, y, z int) {
	x = idx % v.Shape[0]
	idx /= v.Shape[0]
	y = idx % v.Shape[1]
	z = idx / v.Shape[1]
	return x, y, z
}

// At returns the voxel value at (x, y, z). For 4D volumes this addresses
// the first 3D volume.
func (v *Volume) At(x, y, z int) float64 {
	return v.Data[v.Index(x, y, z)]
}

// Set stores a voxel value at (x, y, z).
func (v *Volume) Set(x, y, z int, value float64) {
	v.Data[v.Index(x, y, z)] = value
}

// At4 returns the voxel value at (x, y, z) in 3D volume t.
func (v *Volume) At4(x, y, z, t int) float64 {
	return v.Data[v.Index(x, y, z)+t*v.NVoxels()]
}

// InBounds reports whether (x, y, z) is a valid spatial coordinate.
func (v *Volume) InBounds(x, y, z int) bool {
	return x >= 0 && x < v.Shape[0] &&
		y >= 0 && y < v.Shape[1] &&
		z >= 0 && z < v.Shape[2]
}

// Clone returns a deep copy.
func (v *Volume) Clone() *Volume {
	out := &Volume{
		Shape:   append([]int(nil), v.Shape...),
		Spacing: append([]float64(nil), v.Spacing...),
		Affine:  v.Affine,
		DType:   v.DType,
		Data:    append([]float64(nil), v.Data...),
	}
	return out
}

// EmptyLike returns a zero-filled volume with the same shape and metadata.
func (v *Volume) EmptyLike() *Volume {
	out := v.Clone()
	for i := range out.Data {
		out.Data[i] = 0
	}
	return out
}

// SameShape reports whether two volumes have identical shapes.
func (v *Volume) SameShape(other *Volume) bool {
	if len(v.Shape) != len(other.Shape) {
		return false
	}
	for i := range v.Shape {
		if v.Shape[i] != other.Shape[i] {
			return false
		}
	}
	return true
}

// SameGrid reports whether two volumes have identical spatial (3D) shapes,
// ignoring any time dimension.
func (v *Volume) SameGrid(other *Volume) bool {
	return v.Shape[0] == other.Shape[0] &&
		v.Shape[1] == other.Shape[1] &&
		v.Shape[2] == other.Shape[2]
}

// CheckCompatible returns an error when two volumes do not share a spatial
// grid. When spatialOnly is false the affines must also match within
// tolerance, so voxel coordinates refer to the same physical location.
func (v *Volume) CheckCompatible(other *Volume, spatialOnly bool) error {
	if !v.SameGrid(other) {
		return fmt.Errorf("volumes are not compatible: shape %v vs %v", v.Shape, other.Shape)
	}
	if spatialOnly {
		return nil
	}
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			if math.Abs(v.Affine[i][j]-other.Affine[i][j]) > affineTolerance {
				return fmt.Errorf("volumes are not compatible: affines differ at [%d][%d] (%g vs %g)",
					i, j, v.Affine[i][j], other.Affine[i][j])
			}
		}
	}
	return nil
}

// UniqueNonzeros returns the sorted distinct non-zero values in the volume.
// Zero is the background value and is never reported.
func (v *Volume) UniqueNonzeros() []float64 {
	seen := make(map[float64]struct{})
	for _, val := range v.Data {
		if val != 0 {
			seen[val] = struct{}{}
		}
	}
	out := make([]float64, 0, len(seen))
	for val := range seen {
		out = append(out, val)
	}
	sort.Float64s(out)
	return out
}

// CountNonzero returns the number of non-zero voxels.
func (v *Volume) CountNonzero() int {
	n := 0
	for _, val := range v.Data {
		if val != 0 {
			n++
		}
	}
	return n
}

// VolumeAt extracts 3D volume t from a 4D image. The result shares spacing
// and affine with the source but drops the time dimension.
func (v *Volume) VolumeAt(t int) (*Volume, error) {
	if !v.Is4D() {
		return nil, fmt.Errorf("volume does not have 4 dimensions, shape is %v", v.Shape)
	}
	if t < 0 || t >= v.Shape[3] {
		return nil, fmt.Errorf("4th dimension has %d volumes, not %d", v.Shape[3], t)
	}

	out := &Volume{
		Shape:   []int{v.Shape[0], v.Shape[1], v.Shape[2]},
		Spacing: append([]float64(nil), v.Spacing[:3]...),
		Affine:  v.Affine,
		DType:   v.DType,
		Data:    make([]float64, v.NVoxels()),
	}
	copy(out.Data, v.Data[t*v.NVoxels():(t+1)*v.NVoxels()])
	return out, nil
}
