// Command voltool bundles the volume housekeeping operations around
// drain-rois: inspecting headers, building masks, smoothing, merging,
// filtering connected components, rendering reports and listing the
// provenance catalog.
//
// Usage:
//
//	voltool <command> [flags]
//
// Commands: info, mask, smooth, merge, components, report, catalog, version
package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	_ "github.com/banshee-data/neurovol/internal/mhd"

	"github.com/banshee-data/neurovol/internal/fsutil"
	"github.com/banshee-data/neurovol/internal/version"
)

var commands = map[string]func(args []string, fsys fsutil.FileSystem) error{
	"info":       runInfo,
	"mask":       runMask,
	"smooth":     runSmooth,
	"merge":      runMerge,
	"components": runComponents,
	"report":     runReport,
	"catalog":    runCatalog,
	"version": func([]string, fsutil.FileSystem) error {
		fmt.Println("voltool", version.String())
		return nil
	},
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: voltool <command> [flags]")
	fmt.Fprintln(os.Stderr, "commands: info, mask, smooth, merge, components, report, catalog, version")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd, ok := commands[os.Args[1]]
	if !ok {
		fmt.Fprintf(os.Stderr, "voltool: unknown command %q\n", os.Args[1])
		usage()
		os.Exit(2)
	}

	if err := cmd(os.Args[2:], fsutil.OSFileSystem{}); err != nil {
		var u usageError
		if errors.As(err, &u) {
			os.Exit(2)
		}
		log.Fatalf("voltool %s: %v", os.Args[1], err)
	}
}

type usageError struct{ msg string }

func (u usageError) Error() string { return u.msg }
