package main

import (
	"bytes"
	"flag"
	"fmt"
	"strings"

	"github.com/banshee-data/neurovol/internal/config"
	"github.com/banshee-data/neurovol/internal/fsutil"
	"github.com/banshee-data/neurovol/internal/mask"
	"github.com/banshee-data/neurovol/internal/report"
	"github.com/banshee-data/neurovol/internal/roi"
	"github.com/banshee-data/neurovol/internal/smooth"
	"github.com/banshee-data/neurovol/internal/volume"
)

// loadConfig reads the optional config file; an empty path yields defaults.
func loadConfig(path string) (*config.ToolConfig, error) {
	if path == "" {
		return config.Empty(), nil
	}
	return config.Load(path)
}

// runInfo prints header information for each given volume file.
func runInfo(args []string, fsys fsutil.FileSystem) error {
	fs := flag.NewFlagSet("voltool info", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return usageError{err.Error()}
	}
	if fs.NArg() == 0 {
		return usageError{"usage: voltool info <file>..."}
	}

	for _, path := range fs.Args() {
		v, err := volume.Open(fsys, path)
		if err != nil {
			return err
		}
		labels := v.UniqueNonzeros()
		fmt.Printf("%s: shape=%v spacing=%v dtype=%s labels=%d nonzero=%d\n",
			path, v.Shape, v.Spacing, v.DType, len(labels), v.CountNonzero())
	}
	return nil
}

// runMask binarises a volume into a 0/1 mask.
func runMask(args []string, fsys fsutil.FileSystem) error {
	fs := flag.NewFlagSet("voltool mask", flag.ContinueOnError)
	input := fs.String("i", "", "input volume (required)")
	output := fs.String("o", "", "output mask volume (required)")
	threshold := fs.Float64("threshold", 0, "voxels strictly above this value are kept")
	if err := fs.Parse(args); err != nil {
		return usageError{err.Error()}
	}
	if *input == "" || *output == "" {
		return usageError{"usage: voltool mask -i <in> -o <out> [-threshold N]"}
	}

	v, err := volume.Open(fsys, *input)
	if err != nil {
		return err
	}
	return volume.Save(fsys, *output, mask.Binarise(v, *threshold))
}

// runSmooth applies Gaussian smoothing.
func runSmooth(args []string, fsys fsutil.FileSystem) error {
	fs := flag.NewFlagSet("voltool smooth", flag.ContinueOnError)
	input := fs.String("i", "", "input volume (required)")
	output := fs.String("o", "", "output volume (required)")
	fwhm := fs.Float64("fwhm", -1, "kernel width as FWHM in millimetres (default from config)")
	cfgPath := fs.String("config", "", "path to a JSON tool config")
	if err := fs.Parse(args); err != nil {
		return usageError{err.Error()}
	}
	if *input == "" || *output == "" {
		return usageError{"usage: voltool smooth -i <in> -o <out> [-fwhm MM]"}
	}

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	width := *fwhm
	if width < 0 {
		width = cfg.GetSmoothFWHM()
	}

	v, err := volume.Open(fsys, *input)
	if err != nil {
		return err
	}
	smoothed, err := smooth.Gaussian(v, width)
	if err != nil {
		return err
	}
	return volume.Save(fsys, *output, smoothed)
}

// runMerge unions several mask volumes into one.
func runMerge(args []string, fsys fsutil.FileSystem) error {
	fs := flag.NewFlagSet("voltool merge", flag.ContinueOnError)
	output := fs.String("o", "", "output mask volume (required)")
	names := fs.String("names", "", "comma-separated ROI name patterns to select from the input files")
	if err := fs.Parse(args); err != nil {
		return usageError{err.Error()}
	}
	if *output == "" || fs.NArg() == 0 {
		return usageError{"usage: voltool merge -o <out> [-names a,b] <file>..."}
	}

	var merged *volume.Volume
	var err error
	if *names != "" {
		merged, err = roi.MaskFromNames(fsys, strings.Split(*names, ","), fs.Args())
	} else {
		inputs := make([]volume.Input, fs.NArg())
		for i, path := range fs.Args() {
			inputs[i] = volume.FromPath(path)
		}
		merged, err = mask.Union(fsys, inputs)
	}
	if err != nil {
		return err
	}
	return volume.Save(fsys, *output, merged)
}

// runComponents filters a mask by connected-component size.
func runComponents(args []string, fsys fsutil.FileSystem) error {
	fs := flag.NewFlagSet("voltool components", flag.ContinueOnError)
	input := fs.String("i", "", "input volume (required)")
	output := fs.String("o", "", "output mask volume (required)")
	largest := fs.Bool("largest", false, "keep only the largest connected component")
	minSize := fs.Int("min-size", 0, "drop components smaller than this many voxels (default from config)")
	cfgPath := fs.String("config", "", "path to a JSON tool config")
	if err := fs.Parse(args); err != nil {
		return usageError{err.Error()}
	}
	if *input == "" || *output == "" {
		return usageError{"usage: voltool components -i <in> -o <out> [-largest | -min-size N]"}
	}

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}

	v, err := volume.Open(fsys, *input)
	if err != nil {
		return err
	}

	var out *volume.Volume
	if *largest {
		out, err = roi.LargestComponent(v)
	} else {
		size := *minSize
		if size <= 0 {
			size = cfg.GetMinClusterVoxels()
		}
		out, err = roi.LargeClustersMask(v, size)
	}
	if err != nil {
		return err
	}
	return volume.Save(fsys, *output, out)
}

// runReport writes an HTML label report and optionally a PNG slice heatmap.
func runReport(args []string, fsys fsutil.FileSystem) error {
	fs := flag.NewFlagSet("voltool report", flag.ContinueOnError)
	input := fs.String("i", "", "input label volume (required)")
	htmlPath := fs.String("html", "", "output HTML report path")
	heatmapPath := fs.String("heatmap", "", "output PNG heatmap path")
	slice := fs.Int("slice", -1, "axial slice for the heatmap (default: middle, or config)")
	cfgPath := fs.String("config", "", "path to a JSON tool config")
	if err := fs.Parse(args); err != nil {
		return usageError{err.Error()}
	}
	if *input == "" || (*htmlPath == "" && *heatmapPath == "") {
		return usageError{"usage: voltool report -i <in> [-html out.html] [-heatmap out.png]"}
	}

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}

	v, err := volume.Open(fsys, *input)
	if err != nil {
		return err
	}

	if *htmlPath != "" {
		stats, err := roi.Stats(nil, v)
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		if err := report.WriteHTML(&buf, *input, stats, nil); err != nil {
			return err
		}
		if err := fsys.WriteFile(*htmlPath, buf.Bytes(), 0644); err != nil {
			return err
		}
	}

	if *heatmapPath != "" {
		z := *slice
		if z < 0 {
			z = cfg.GetReportSlice()
		}
		var buf bytes.Buffer
		if err := report.WriteHeatmap(&buf, v, z); err != nil {
			return err
		}
		if err := fsys.WriteFile(*heatmapPath, buf.Bytes(), 0644); err != nil {
			return err
		}
	}
	return nil
}
