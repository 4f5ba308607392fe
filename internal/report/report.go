// Package report renders summaries of label volumes: an HTML report with
// per-label voxel counts and an optional PNG slice heatmap.
package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/neurovol/internal/roi"
)

// WriteHTML renders a bar chart of per-label voxel counts. after may be nil
// for a single-volume report; when set (e.g. the drained volume's stats),
// both series are plotted so shrinking ROIs are visible at a glance.
func WriteHTML(w io.Writer, title string, before, after []roi.LabelStats) error {
	x := make([]string, len(before))
	beforeData := make([]opts.BarData, len(before))
	for i, s := range before {
		x[i] = fmt.Sprintf("%g", s.Label)
		beforeData[i] = opts.BarData{Value: s.Voxels}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "720px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: "voxels per label"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(x).
		AddSeries("input", beforeData,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	if after != nil {
		afterByLabel := make(map[float64]int, len(after))
		for _, s := range after {
			afterByLabel[s.Label] = s.Voxels
		}
		afterData := make([]opts.BarData, len(before))
		for i, s := range before {
			afterData[i] = opts.BarData{Value: afterByLabel[s.Label]}
		}
		bar.AddSeries("output", afterData)
	}

	page := components.NewPage()
	page.AddCharts(bar)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}
