// Package mask builds and applies binary voxel masks.
package mask

import (
	"errors"
	"fmt"

	"github.com/banshee-data/neurovol/internal/fsutil"
	"github.com/banshee-data/neurovol/internal/volume"
)

// ErrAllBackground is returned by Load when a mask selects nothing and the
// caller did not allow empty masks.
var ErrAllBackground = errors.New("mask is empty: every voxel is background")

// Binarise returns a uint8 0/1 volume marking voxels strictly above
// threshold.
func Binarise(v *volume.Volume, threshold float64) *volume.Volume {
	out := v.EmptyLike()
	out.DType = volume.DTUint8
	for i, val := range v.Data {
		if val > threshold {
			out.Data[i] = 1
		}
	}
	return out
}

// Load reads a mask volume and validates it: a mask may contain at most two
// distinct values and its background must be 0. A constant non-zero volume
// is accepted as a full mask. The result is a uint8 0/1 volume.
func Load(fsys fsutil.FileSystem, in volume.Input, allowEmpty bool) (*volume.Volume, error) {
	v, err := in.Resolve(fsys)
	if err != nil {
		return nil, err
	}
	if v.Is4D() {
		if v, err = v.VolumeAt(0); err != nil {
			return nil, err
		}
	}

	values := v.UniqueNonzeros()
	switch {
	case len(values) == 0:
		if !allowEmpty {
			return nil, ErrAllBackground
		}
	case len(values) > 1:
		// More than one non-zero value cannot be interpreted as true/false.
		return nil, fmt.Errorf("mask is not binary: non-zero values %v", values)
	}

	return Binarise(v, 0), nil
}

// Union combines inputs into one mask: a voxel is set when any input has a
// non-zero value there. All inputs must share the first input's grid.
func Union(fsys fsutil.FileSystem, inputs []volume.Input) (*volume.Volume, error) {
	if len(inputs) == 0 {
		return nil, errors.New("no mask inputs given")
	}

	first, err := inputs[0].Resolve(fsys)
	if err != nil {
		return nil, err
	}
	out := Binarise(first, 0)

	for _, in := range inputs[1:] {
		v, err := in.Resolve(fsys)
		if err != nil {
			return nil, err
		}
		if err := first.CheckCompatible(v, false); err != nil {
			return nil, fmt.Errorf("joining masks: %w", err)
		}
		for i, val := range v.Data {
			if val != 0 {
				out.Data[i] = 1
			}
		}
	}
	return out, nil
}

// Apply returns the values of the 3D data volume at the mask's set voxels,
// in flat index order.
func Apply(data, m *volume.Volume) ([]float64, error) {
	if data.Is4D() {
		return nil, errors.New("data volume is 4D, use Apply4D")
	}
	if err := data.CheckCompatible(m, false); err != nil {
		return nil, err
	}

	out := make([]float64, 0, m.CountNonzero())
	for i, val := range m.Data {
		if val != 0 {
			out = append(out, data.Data[i])
		}
	}
	return out, nil
}

// Apply4D returns one value series per set mask voxel: out[i][t] is the
// value of masked voxel i in 3D volume t.
func Apply4D(data, m *volume.Volume) ([][]float64, error) {
	if err := data.CheckCompatible(m, true); err != nil {
		return nil, err
	}

	nvox := data.NVoxels()
	nt := data.NT()
	out := make([][]float64, 0, m.CountNonzero())
	for i, val := range m.Data[:nvox] {
		if val == 0 {
			continue
		}
		series := make([]float64, nt)
		for t := 0; t < nt; t++ {
			series[t] = data.Data[i+t*nvox]
		}
		out = append(out, series)
	}
	return out, nil
}

// VectorToVolume scatters values back into a volume at the mask's set
// voxels, the inverse of Apply.
func VectorToVolume(values []float64, m *volume.Volume) (*volume.Volume, error) {
	n := m.CountNonzero()
	if len(values) != n {
		return nil, fmt.Errorf("got %d values for a mask with %d set voxels", len(values), n)
	}

	out := m.EmptyLike()
	out.DType = volume.DTFloat64
	j := 0
	for i, val := range m.Data {
		if val != 0 {
			out.Data[i] = values[j]
			j++
		}
	}
	return out, nil
}
