// Package output writes processed, error and unified record files.
package output

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"eligibility/internal/models"
	"eligibility/pkg/metadata"

	"github.com/spf13/afero"
)

// Writer writes comma-delimited record files.
type Writer struct {
	fs afero.Fs
}

// NewWriter creates a writer on the given filesystem.
func NewWriter(fs afero.Fs) *Writer {
	return &Writer{fs: fs}
}

// WriteProcessed writes canonical records with the canonical header.
func (w *Writer) WriteProcessed(path, kind string, records []models.Record) (metadata.FileEntry, error) {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, rec.Values())
	}

	return w.write(path, kind, models.CanonicalColumns, rows)
}

// WriteErrors writes error records with the error_reason column appended.
func (w *Writer) WriteErrors(path string, records []models.ErrorRecord) (metadata.FileEntry, error) {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, rec.Values())
	}

	return w.write(path, metadata.KindErrors, models.ErrorColumns, rows)
}

// Remove deletes path if it exists.
func (w *Writer) Remove(path string) error {
	if err := w.fs.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}

	return nil
}

func (w *Writer) write(path, kind string, header []string, rows [][]string) (metadata.FileEntry, error) {
	var buf bytes.Buffer

	cw := csv.NewWriter(&buf)
	if err := cw.Write(header); err != nil {
		return metadata.FileEntry{}, fmt.Errorf("failed to encode header: %w", err)
	}

	if err := cw.WriteAll(rows); err != nil {
		return metadata.FileEntry{}, fmt.Errorf("failed to encode rows: %w", err)
	}

	if err := w.fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return metadata.FileEntry{}, fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := afero.WriteFile(w.fs, path, buf.Bytes(), 0644); err != nil {
		return metadata.FileEntry{}, fmt.Errorf("failed to write %s: %w", path, err)
	}

	return metadata.FileEntry{
		Path:   path,
		Kind:   kind,
		Rows:   len(rows),
		SHA256: metadata.CalculateHash(buf.Bytes()),
	}, nil
}
