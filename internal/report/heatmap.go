package report

import (
	"fmt"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/neurovol/internal/volume"
)

// sliceGrid adapts one axial slice of a volume to plotter.GridXYZ.
// X/Y are reported in physical units so anisotropic voxels keep their
// proportions.
type sliceGrid struct {
	vol *volume.Volume
	z   int
}

func (g sliceGrid) Dims() (c, r int)   { return g.vol.NX(), g.vol.NY() }
func (g sliceGrid) Z(c, r int) float64 { return g.vol.At(c, r, g.z) }
func (g sliceGrid) X(c int) float64    { return float64(c) * g.vol.Spacing[0] }
func (g sliceGrid) Y(r int) float64    { return float64(r) * g.vol.Spacing[1] }

// WriteHeatmap renders one axial slice of the volume as a PNG heatmap.
// z < 0 selects the middle slice.
func WriteHeatmap(w io.Writer, v *volume.Volume, z int) error {
	if v.Is4D() {
		var err error
		if v, err = v.VolumeAt(0); err != nil {
			return err
		}
	}
	if z < 0 {
		z = v.NZ() / 2
	}
	if z >= v.NZ() {
		return fmt.Errorf("slice %d out of range: volume has %d slices", z, v.NZ())
	}

	h := plotter.NewHeatMap(sliceGrid{vol: v, z: z}, palette.Heat(16, 1))

	p := plot.New()
	p.Title.Text = fmt.Sprintf("axial slice z=%d", z)
	p.X.Label.Text = "x (mm)"
	p.Y.Label.Text = "y (mm)"
	p.Add(h)

	wt, err := p.WriterTo(6*vg.Inch, 6*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("render heatmap: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write heatmap: %w", err)
	}
	return nil
}
