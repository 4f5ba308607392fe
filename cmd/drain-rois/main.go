// Command drain-rois empties the interior of every labelled ROI in a
// volumetric image, keeping only boundary voxels, and writes the result to
// a new volume file.
//
// Usage:
//
//	drain-rois -i atlas.nii.gz -o atlas_drained.nii.gz
package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/banshee-data/neurovol/internal/mhd"

	"github.com/banshee-data/neurovol/internal/catalog"
	"github.com/banshee-data/neurovol/internal/fsutil"
	"github.com/banshee-data/neurovol/internal/monitoring"
	"github.com/banshee-data/neurovol/internal/report"
	"github.com/banshee-data/neurovol/internal/roi"
	"github.com/banshee-data/neurovol/internal/version"
	"github.com/banshee-data/neurovol/internal/volume"
)

func main() {
	err := run(os.Args[1:], fsutil.OSFileSystem{})
	if err != nil {
		if errors.Is(err, flag.ErrHelp) || isUsageError(err) {
			os.Exit(2)
		}
		log.Fatalf("drain-rois: %v", err)
	}
}

type usageError struct{ err error }

func (u usageError) Error() string { return u.err.Error() }

func isUsageError(err error) bool {
	var u usageError
	return errors.As(err, &u)
}

func run(args []string, fsys fsutil.FileSystem) error {
	fs := flag.NewFlagSet("drain-rois", flag.ContinueOnError)

	var input, output, catalogPath, reportPath string
	var volIdx int
	var showVersion bool
	fs.BoolVar(&showVersion, "version", false, "print version and exit")
	fs.StringVar(&input, "i", "", "path to the input volume file (required)")
	fs.StringVar(&input, "input", "", "path to the input volume file (required)")
	fs.StringVar(&output, "o", "", "path for the drained output volume (required)")
	fs.StringVar(&output, "output", "", "path for the drained output volume (required)")
	fs.StringVar(&catalogPath, "catalog", "", "record this run in the provenance catalog at the given path")
	fs.StringVar(&reportPath, "report", "", "write an HTML before/after label report to the given path")
	fs.IntVar(&volIdx, "vol", 0, "3D volume index to drain when the input is 4D")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if showVersion {
		fmt.Println("drain-rois", version.String())
		return nil
	}
	if input == "" || output == "" {
		fmt.Fprintln(os.Stderr, "drain-rois: both -i/--input and -o/--output are required")
		fs.Usage()
		return usageError{errors.New("missing required arguments")}
	}

	start := time.Now()

	vol, err := volume.Open(fsys, input)
	if err != nil {
		return err
	}
	if vol.Is4D() {
		monitoring.Logf("input is 4D %v; draining volume %d", vol.Shape, volIdx)
		if vol, err = vol.VolumeAt(volIdx); err != nil {
			return err
		}
	}

	drained, err := roi.DrainImage(fsys, volume.FromVolume(vol))
	if err != nil {
		return err
	}

	if err := volume.Save(fsys, output, drained); err != nil {
		return err
	}

	labels := vol.UniqueNonzeros()
	monitoring.Logf("drained %d rois: %d labelled voxels in, %d boundary voxels out",
		len(labels), vol.CountNonzero(), drained.CountNonzero())

	if reportPath != "" {
		if err := writeReport(fsys, reportPath, input, vol, drained); err != nil {
			return err
		}
	}

	if catalogPath != "" {
		c, err := catalog.Open(catalogPath)
		if err != nil {
			return err
		}
		defer c.Close()

		runRec := catalog.NewRun("drain-rois", input, output, drained)
		runRec.Duration = time.Since(start)
		if _, err := c.Record(runRec); err != nil {
			return err
		}
	}

	return nil
}

func writeReport(fsys fsutil.FileSystem, path, title string, before, after *volume.Volume) error {
	beforeStats, err := roi.Stats(nil, before)
	if err != nil {
		return err
	}
	afterStats, err := roi.Stats(nil, after)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := report.WriteHTML(&buf, title, beforeStats, afterStats); err != nil {
		return err
	}
	return fsys.WriteFile(path, buf.Bytes(), 0644)
}
