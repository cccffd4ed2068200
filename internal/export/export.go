//-------------------------------------------------------------------------
//
// pgEdge Basket Insights
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package export renders analysis results as CSV files and a JSON document.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pgEdge/pgedge-basketinsights/internal/analysis"
	"github.com/pgEdge/pgedge-basketinsights/internal/logging"
	"github.com/pgEdge/pgedge-basketinsights/pkg/version"
)

// Output formats.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// DocumentFile is the name of the JSON document written to the export
// directory.
const DocumentFile = "results.json"

// Meta identifies the run that produced an export.
type Meta struct {
	RunID      string    `json:"run_id"`
	Version    string    `json:"version"`
	ComputedAt time.Time `json:"computed_at"`
	MinSample  int       `json:"min_sample"`
	Precision  int       `json:"precision"`
}

// NewMeta stamps a new run with a random id and the current time.
func NewMeta(opts analysis.Options) Meta {
	return Meta{
		RunID:      uuid.NewString(),
		Version:    version.Short(),
		ComputedAt: time.Now().UTC().Truncate(time.Second),
		MinSample:  opts.MinSample,
		Precision:  opts.Precision,
	}
}

// Fields returns the meta as string key/values for the metadata table.
func (m Meta) Fields() map[string]string {
	return map[string]string{
		"run_id":      m.RunID,
		"version":     m.Version,
		"computed_at": m.ComputedAt.Format(time.RFC3339),
		"min_sample":  fmt.Sprint(m.MinSample),
		"precision":   fmt.Sprint(m.Precision),
	}
}

// Document is the JSON form of a run: meta plus every result set rounded
// to the run's precision.
type Document struct {
	Meta    Meta              `json:"meta"`
	Results *analysis.Results `json:"results"`
}

// NewDocument rounds res to meta.Precision.
func NewDocument(res *analysis.Results, meta Meta) Document {
	return Document{Meta: meta, Results: res.Rounded(meta.Precision)}
}

// EncodeJSON writes the document as indented JSON.
func EncodeJSON(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// EncodeCSV writes one table with its header row.
func EncodeCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	return cw.Error()
}

// Exporter writes result files into a directory.
type Exporter struct {
	dir string
	log zerolog.Logger
}

// New creates an exporter for dir. The directory is created on first write.
func New(dir string) *Exporter {
	return &Exporter{
		dir: dir,
		log: logging.Component("export"),
	}
}

// Write renders res in each requested format and returns the written paths.
func (e *Exporter) Write(res *analysis.Results, meta Meta, formats []string) ([]string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}

	var paths []string
	for _, format := range formats {
		switch format {
		case FormatCSV:
			for _, t := range Tables(res, meta.Precision) {
				path, err := e.writeFile(t.Name+".csv", func(w io.Writer) error {
					return EncodeCSV(w, t)
				})
				if err != nil {
					return paths, err
				}
				paths = append(paths, path)
			}
		case FormatJSON:
			path, err := e.writeFile(DocumentFile, func(w io.Writer) error {
				return EncodeJSON(w, NewDocument(res, meta))
			})
			if err != nil {
				return paths, err
			}
			paths = append(paths, path)
		default:
			return paths, fmt.Errorf("unknown export format %q", format)
		}
	}

	e.log.Info().
		Str("dir", e.dir).
		Str("run_id", meta.RunID).
		Int("files", len(paths)).
		Msg("Export complete")

	return paths, nil
}

// writeFile writes through a temporary file and renames it into place so
// readers never see a partial export.
func (e *Exporter) writeFile(name string, encode func(io.Writer) error) (string, error) {
	path := filepath.Join(e.dir, name)

	tmp, err := os.CreateTemp(e.dir, "."+name+".*")
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", name, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := encode(tmp); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("failed to chmod %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("failed to rename %s: %w", name, err)
	}

	e.log.Debug().Str("path", path).Msg("Wrote file")
	return path, nil
}
