package roi

import (
	"fmt"

	"github.com/banshee-data/neurovol/internal/volume"
)

// Series holds the data values extracted for one ROI label. Values has one
// row per in-ROI voxel; each row is that voxel's value series over the 4th
// dimension (length 1 for 3D data).
type Series struct {
	Label  float64
	Values [][]float64
}

// Partition extracts the data values inside each ROI of the label volume.
//
// data may be 3D or 4D; rois must be a 3D label volume on the same grid.
// mask, when non-nil, excludes voxels outside it. labels, when non-nil,
// fixes which ROIs are extracted and in what order, and every requested
// label must occur in rois; otherwise all non-zero labels are used in
// ascending order.
//
// For 4D data, voxels whose whole series is zero are pruned. An ROI left
// with no voxels yields a single all-zero series so callers keep positional
// alignment with the label order.
func Partition(data, rois, mask *volume.Volume, labels []float64) ([]Series, error) {
	if rois.Is4D() {
		return nil, fmt.Errorf("roi volume must be 3D, got shape %v", rois.Shape)
	}
	if err := data.CheckCompatible(rois, true); err != nil {
		return nil, fmt.Errorf("data and roi volumes: %w", err)
	}
	if mask != nil {
		if err := data.CheckCompatible(mask, true); err != nil {
			return nil, fmt.Errorf("data and mask volumes: %w", err)
		}
	}

	if labels == nil {
		labels = rois.UniqueNonzeros()
	} else {
		present := make(map[float64]bool)
		for _, l := range rois.Data {
			if l != 0 {
				present[l] = true
			}
		}
		for _, l := range labels {
			if !present[l] {
				return nil, fmt.Errorf("label %g not present in roi volume", l)
			}
		}
	}

	nvox := data.NVoxels()
	nt := data.NT()

	out := make([]Series, 0, len(labels))
	for _, label := range labels {
		s := Series{Label: label}
		for i := 0; i < nvox; i++ {
			if rois.Data[i] != label {
				continue
			}
			if mask != nil && mask.Data[i] == 0 {
				continue
			}
			series := make([]float64, nt)
			sum := 0.0
			for t := 0; t < nt; t++ {
				series[t] = data.Data[i+t*nvox]
				sum += series[t]
			}
			// Prune zeroed series from timeseries data.
			if data.Is4D() && sum == 0 {
				continue
			}
			s.Values = append(s.Values, series)
		}
		if len(s.Values) == 0 {
			s.Values = [][]float64{make([]float64, nt)}
		}
		out = append(out, s)
	}
	return out, nil
}
