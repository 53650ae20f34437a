// Package ingest reads partner record files into raw batches.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"eligibility/internal/models"

	"github.com/spf13/afero"
)

// Ingestion errors.
var (
	ErrFileNotFound    = errors.New("input file not found")
	ErrEmptyFile       = errors.New("input file is empty")
	ErrDuplicateColumn = errors.New("duplicate column in header")
	ErrRowTooWide      = errors.New("row has more fields than the header")
)

const utf8BOM = "\ufeff"

// Reader reads delimited partner files.
type Reader struct {
	fs afero.Fs
}

// NewReader creates a reader on the given filesystem.
func NewReader(fs afero.Fs) *Reader {
	return &Reader{fs: fs}
}

// Read loads a delimited file with a header row. Every value is kept as a
// string; short rows are padded with empty values.
func (r *Reader) Read(path string, delimiter rune) (*models.RawBatch, error) {
	info, err := r.fs.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}

		return nil, fmt.Errorf("failed to stat input file: %w", err)
	}

	if info.Size() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyFile, path)
	}

	f, err := r.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer f.Close()

	return parse(f, delimiter)
}

func parse(src io.Reader, delimiter rune) (*models.RawBatch, error) {
	cr := csv.NewReader(src)
	cr.Comma = delimiter
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return &models.RawBatch{}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	header, err = cleanHeader(header)
	if err != nil {
		return nil, err
	}

	batch := &models.RawBatch{Header: header}

	for {
		fields, readErr := cr.Read()
		if errors.Is(readErr, io.EOF) {
			break
		}

		if readErr != nil {
			return nil, fmt.Errorf("failed to read row: %w", readErr)
		}

		if len(fields) > len(header) {
			line, _ := cr.FieldPos(0)

			return nil, fmt.Errorf("%w: line %d has %d fields, header has %d", ErrRowTooWide, line, len(fields), len(header))
		}

		row := make(models.RawRecord, len(header))
		for i, col := range header {
			if i < len(fields) {
				row[col] = fields[i]
			} else {
				row[col] = ""
			}
		}

		batch.Rows = append(batch.Rows, row)
	}

	return batch, nil
}

func cleanHeader(header []string) ([]string, error) {
	cleaned := make([]string, len(header))
	seen := make(map[string]bool, len(header))

	for i, col := range header {
		if i == 0 {
			col = strings.TrimPrefix(col, utf8BOM)
		}

		col = strings.TrimSpace(col)
		if seen[col] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, col)
		}

		seen[col] = true
		cleaned[i] = col
	}

	return cleaned, nil
}
