package roi

import (
	"errors"
	"fmt"

	"github.com/banshee-data/neurovol/internal/volume"
)

// ErrNoComponents is returned when an operation needs at least one
// connected component and the volume has no non-zero voxels.
var ErrNoComponents = errors.New("no non-zero values: no connected components found")

// face-adjacent neighbour offsets (6-connectivity)
var faceNeighbours = [6][3]int{
	{-1, 0, 0}, {1, 0, 0},
	{0, -1, 0}, {0, 1, 0},
	{0, 0, -1}, {0, 0, 1},
}

// Components labels the 6-connected components of the volume's non-zero
// voxels. It returns an int32 volume where component i is filled with value
// i (1-based), and the number of components.
func Components(v *volume.Volume) (*volume.Volume, int, error) {
	if v.Is4D() {
		return nil, 0, fmt.Errorf("component labelling expects a 3D volume, got shape %v", v.Shape)
	}

	labels := v.EmptyLike()
	labels.DType = volume.DTInt32

	next := 0
	queue := make([]int, 0, 1024)
	for start, val := range v.Data {
		if val == 0 || labels.Data[start] != 0 {
			continue
		}
		next++
		labels.Data[start] = float64(next)
		queue = append(queue[:0], start)

		for len(queue) > 0 {
			idx := queue[len(queue)-1]
			queue = queue[:len(queue)-1]
			x, y, z := v.Coord(idx)

			for _, d := range faceNeighbours {
				nx, ny, nz := x+d[0], y+d[1], z+d[2]
				if !v.InBounds(nx, ny, nz) {
					continue
				}
				nidx := v.Index(nx, ny, nz)
				if v.Data[nidx] != 0 && labels.Data[nidx] == 0 {
					labels.Data[nidx] = float64(next)
					queue = append(queue, nidx)
				}
			}
		}
	}
	return labels, next, nil
}

// LargestComponent returns a 0/1 mask of the largest 6-connected component
// of the volume's non-zero voxels. A volume with no non-zero voxels is an
// error.
func LargestComponent(v *volume.Volume) (*volume.Volume, error) {
	labels, n, err := Components(v)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrNoComponents
	}

	counts := make([]int, n+1)
	for _, l := range labels.Data {
		counts[int(l)]++
	}
	largest := 1
	for l := 2; l <= n; l++ {
		if counts[l] > counts[largest] {
			largest = l
		}
	}

	out := v.EmptyLike()
	out.DType = volume.DTUint8
	for i, l := range labels.Data {
		if int(l) == largest {
			out.Data[i] = 1
		}
	}
	return out, nil
}

// LargeClustersMask returns a 0/1 mask keeping only the 6-connected
// components with at least minVoxels voxels.
func LargeClustersMask(v *volume.Volume, minVoxels int) (*volume.Volume, error) {
	labels, n, err := Components(v)
	if err != nil {
		return nil, err
	}

	counts := make([]int, n+1)
	for _, l := range labels.Data {
		counts[int(l)]++
	}

	out := v.EmptyLike()
	out.DType = volume.DTUint8
	for i, l := range labels.Data {
		if l != 0 && counts[int(l)] >= minVoxels {
			out.Data[i] = 1
		}
	}
	return out, nil
}
