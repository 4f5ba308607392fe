// Package smooth applies Gaussian smoothing to volumes. Kernel widths are
// given as Full-Width at Half Maximum in millimetres and scaled per axis by
// the volume's voxel spacing.
package smooth

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/neurovol/internal/volume"
)

// fwhmSigmaRatio converts between FWHM and sigma: fwhm = sigma * 2*sqrt(2*ln 2).
var fwhmSigmaRatio = math.Sqrt(8 * math.Ln2)

// FWHMToSigma converts a Full-Width at Half Maximum value to the sigma of
// the corresponding Gaussian.
func FWHMToSigma(fwhm float64) float64 { return fwhm / fwhmSigmaRatio }

// SigmaToFWHM converts a Gaussian sigma to its Full-Width at Half Maximum.
func SigmaToFWHM(sigma float64) float64 { return sigma * fwhmSigmaRatio }

// Gaussian smooths the volume with a separable Gaussian kernel of the given
// FWHM in millimetres, applied along the three spatial axes and scaled by
// the per-axis voxel spacing. For 4D volumes each 3D volume is smoothed
// independently. Non-finite input values are zeroed before smoothing.
// Integer volumes widen to float32. fwhmMM <= 0 returns a cleaned copy.
func Gaussian(v *volume.Volume, fwhmMM float64) (*volume.Volume, error) {
	if fwhmMM < 0 {
		return nil, fmt.Errorf("negative FWHM %g", fwhmMM)
	}

	out := v.Clone()
	if out.DType.Integer() {
		out.DType = volume.DTFloat32
	}
	for i, val := range out.Data {
		if !isFinite(val) {
			out.Data[i] = 0
		}
	}
	if fwhmMM == 0 {
		return out, nil
	}

	nvox := v.NVoxels()
	dims := [3]int{v.NX(), v.NY(), v.NZ()}
	strides := [3]int{1, v.NX(), v.NX() * v.NY()}

	for axis := 0; axis < 3; axis++ {
		spacing := v.Spacing[axis]
		if spacing <= 0 {
			spacing = 1
		}
		kernel := gaussianKernel(FWHMToSigma(fwhmMM) / spacing)
		if len(kernel) == 1 {
			continue
		}
		for t := 0; t < v.NT(); t++ {
			convolveAxis(out.Data[t*nvox:(t+1)*nvox], dims, strides, axis, kernel)
		}
	}
	return out, nil
}

// gaussianKernel builds a normalised 1D Gaussian truncated at 4 sigma.
// A zero sigma collapses to the identity kernel.
func gaussianKernel(sigma float64) []float64 {
	radius := int(math.Ceil(4 * sigma))
	if radius < 1 {
		return []float64{1}
	}
	k := make([]float64, 2*radius+1)
	for i := range k {
		d := float64(i - radius)
		k[i] = math.Exp(-d * d / (2 * sigma * sigma))
	}
	floats.Scale(1/floats.Sum(k), k)
	return k
}

// convolveAxis convolves data in place along one axis, treating values
// outside the grid as zero.
func convolveAxis(data []float64, dims, strides [3]int, axis int, kernel []float64) {
	radius := len(kernel) / 2
	n := dims[axis]
	stride := strides[axis]

	// Iterate every line along the axis.
	otherA, otherB := (axis+1)%3, (axis+2)%3
	line := make([]float64, n)
	for a := 0; a < dims[otherA]; a++ {
		for b := 0; b < dims[otherB]; b++ {
			base := a*strides[otherA] + b*strides[otherB]
			for i := 0; i < n; i++ {
				line[i] = data[base+i*stride]
			}
			for i := 0; i < n; i++ {
				sum := 0.0
				for j, w := range kernel {
					src := i + j - radius
					if src >= 0 && src < n {
						sum += w * line[src]
					}
				}
				data[base+i*stride] = sum
			}
		}
	}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
