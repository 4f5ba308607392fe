package roi

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/neurovol/internal/volume"
)

// LabelStats summarises the data values inside one ROI.
type LabelStats struct {
	Label  float64
	Voxels int
	Mean   float64
	Stddev float64
	Min    float64
	Max    float64
}

// Stats computes per-label statistics of the data volume over the ROIs in
// the label volume, ordered by ascending label. When data is nil the label
// volume doubles as the data source, which reduces the statistics to voxel
// counts per label.
func Stats(data, rois *volume.Volume) ([]LabelStats, error) {
	if data == nil {
		data = rois
	}
	if err := data.CheckCompatible(rois, true); err != nil {
		return nil, err
	}

	labels := rois.UniqueNonzeros()
	out := make([]LabelStats, 0, len(labels))
	for _, label := range labels {
		values := make([]float64, 0, 256)
		for i, l := range rois.Data[:rois.NVoxels()] {
			if l == label {
				values = append(values, data.Data[i])
			}
		}
		s := LabelStats{
			Label:  label,
			Voxels: len(values),
			Mean:   stat.Mean(values, nil),
			Min:    floats.Min(values),
			Max:    floats.Max(values),
		}
		if len(values) > 1 {
			s.Stddev = stat.StdDev(values, nil)
		}
		out = append(out, s)
	}
	return out, nil
}

// CenterOfMass is the value-weighted centroid of one ROI, in voxel
// coordinates.
type CenterOfMass struct {
	Label   float64
	X, Y, Z float64
}

// CentersOfMass computes the value-weighted centre of mass of each ROI in
// the volume, ordered by ascending label. Within a single-label ROI the
// weights are constant, so this is the voxel centroid.
func CentersOfMass(v *volume.Volume) ([]CenterOfMass, error) {
	if v.Is4D() {
		return nil, fmt.Errorf("centers of mass expects a 3D volume, got shape %v", v.Shape)
	}

	type acc struct {
		wx, wy, wz, w float64
	}
	sums := make(map[float64]*acc)

	for i, label := range v.Data {
		if label == 0 {
			continue
		}
		a := sums[label]
		if a == nil {
			a = &acc{}
			sums[label] = a
		}
		x, y, z := v.Coord(i)
		a.wx += label * float64(x)
		a.wy += label * float64(y)
		a.wz += label * float64(z)
		a.w += label
	}

	out := make([]CenterOfMass, 0, len(sums))
	for _, label := range v.UniqueNonzeros() {
		a := sums[label]
		out = append(out, CenterOfMass{
			Label: label,
			X:     a.wx / a.w,
			Y:     a.wy / a.w,
			Z:     a.wz / a.w,
		})
	}
	return out, nil
}
