package main

import (
	"flag"
	"fmt"

	"github.com/banshee-data/neurovol/internal/catalog"
	"github.com/banshee-data/neurovol/internal/fsutil"
)

// runCatalog lists or inspects provenance catalog entries.
func runCatalog(args []string, _ fsutil.FileSystem) error {
	fs := flag.NewFlagSet("voltool catalog", flag.ContinueOnError)
	dbPath := fs.String("db", "", "catalog database path (default from config)")
	limit := fs.Int("limit", 20, "maximum number of runs to list (0 = all)")
	id := fs.String("id", "", "show one run by id instead of listing")
	cfgPath := fs.String("config", "", "path to a JSON tool config")
	if err := fs.Parse(args); err != nil {
		return usageError{err.Error()}
	}

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	path := *dbPath
	if path == "" {
		path = cfg.GetCatalogPath()
	}

	c, err := catalog.Open(path)
	if err != nil {
		return err
	}
	defer c.Close()

	if *id != "" {
		run, err := c.Get(*id)
		if err != nil {
			return err
		}
		printRun(run)
		return nil
	}

	runs, err := c.List(*limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("catalog is empty")
		return nil
	}
	for _, run := range runs {
		printRun(run)
	}
	return nil
}

func printRun(r catalog.Run) {
	fmt.Printf("%s  %-12s %s -> %s  shape=%s dtype=%s labels=%d took=%s at=%s\n",
		r.ID, r.Operation, r.InputPath, r.OutputPath,
		r.Shape, r.ElementType, r.LabelCount, r.Duration, r.CreatedAt.Format("2006-01-02 15:04:05"))
}
