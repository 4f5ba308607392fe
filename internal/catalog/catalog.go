// Package catalog records provenance for processed volumes in a local
// sqlite database: which file went in, what was done to it, and what came
// out. Tools append a row per run so earlier outputs can be traced back to
// their inputs.
package catalog

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/neurovol/internal/volume"
)

// ErrNotFound is returned when a run id has no catalog row.
var ErrNotFound = errors.New("catalog: run not found")

// Catalog wraps the provenance database.
type Catalog struct {
	*sql.DB
}

// Run is one recorded volume operation.
type Run struct {
	ID          string
	Operation   string
	InputPath   string
	OutputPath  string
	Shape       string
	ElementType string
	LabelCount  int
	Duration    time.Duration
	CreatedAt   time.Time
}

// Open opens (creating if needed) the catalog at path and migrates its
// schema to the latest version.
func Open(path string) (*Catalog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open catalog %s: %w", path, err)
	}

	c := &Catalog{db}
	if err := c.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

// NewRun builds a Run for an operation on the given volume. The caller
// fills Duration before recording.
func NewRun(operation, inputPath, outputPath string, v *volume.Volume) Run {
	r := Run{
		ID:         uuid.New().String(),
		Operation:  operation,
		InputPath:  inputPath,
		OutputPath: outputPath,
	}
	if v != nil {
		r.Shape = shapeString(v.Shape)
		r.ElementType = v.DType.String()
		r.LabelCount = len(v.UniqueNonzeros())
	}
	return r
}

// Record inserts a run. An empty ID is assigned a fresh uuid.
func (c *Catalog) Record(r Run) (string, error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}

	_, err := c.Exec(`
		INSERT INTO runs (run_id, operation, input_path, output_path, shape, element_type, label_count, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.Operation, r.InputPath, r.OutputPath, r.Shape, r.ElementType, r.LabelCount, r.Duration.Milliseconds())
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}
	return r.ID, nil
}

// Get returns the run with the given id.
func (c *Catalog) Get(id string) (Run, error) {
	row := c.QueryRow(`
		SELECT run_id, operation, input_path, output_path, shape, element_type, label_count, duration_ms, created_at
		FROM runs WHERE run_id = ?
	`, id)

	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrNotFound
	}
	return r, err
}

// List returns up to limit runs, newest first. limit <= 0 means no limit.
func (c *Catalog) List(limit int) ([]Run, error) {
	query := `
		SELECT run_id, operation, input_path, output_path, shape, element_type, label_count, duration_ms, created_at
		FROM runs ORDER BY created_at DESC, run_id
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := c.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (Run, error) {
	var r Run
	var durationMS int64
	err := s.Scan(&r.ID, &r.Operation, &r.InputPath, &r.OutputPath, &r.Shape,
		&r.ElementType, &r.LabelCount, &durationMS, &r.CreatedAt)
	if err != nil {
		return Run{}, err
	}
	r.Duration = time.Duration(durationMS) * time.Millisecond
	return r, nil
}

func shapeString(shape []int) string {
	parts := make([]string, len(shape))
	for i, s := range shape {
		parts[i] = fmt.Sprintf("%d", s)
	}
	return strings.Join(parts, "x")
}
