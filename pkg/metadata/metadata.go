// Package metadata records what a pipeline run produced and verifies output
// files against their recorded hashes.
package metadata

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Manifest verification errors.
var (
	ErrFileMissing  = errors.New("output file missing")
	ErrNoHashFound  = errors.New("no hash recorded for file")
	ErrHashMismatch = errors.New("hash mismatch")
)

// FileEntry describes one written output file.
type FileEntry struct {
	Path   string `yaml:"path"`
	Kind   string `yaml:"kind"`
	Rows   int    `yaml:"rows"`
	SHA256 string `yaml:"sha256"`
}

// Output file kinds.
const (
	KindProcessed = "processed"
	KindErrors    = "errors"
	KindUnified   = "unified"
)

// PartnerEntry summarizes one partner in a run.
type PartnerEntry struct {
	PartnerCode string `yaml:"partner_code"`
	FilePath    string `yaml:"file_path,omitempty"`
	Received    int    `yaml:"received"`
	Processed   int    `yaml:"processed"`
	Errors      int    `yaml:"errors"`
	Failure     string `yaml:"failure,omitempty"`
}

// Manifest is the record of a pipeline run.
type Manifest struct {
	RunID       string         `yaml:"run_id"`
	GeneratedAt time.Time      `yaml:"generated_at"`
	Partners    []PartnerEntry `yaml:"partners"`
	Files       []FileEntry    `yaml:"files"`
}

// CalculateHash computes the hex SHA-256 of content.
func CalculateHash(content []byte) string {
	hash := sha256.Sum256(content)

	return hex.EncodeToString(hash[:])
}

// Save writes the manifest as YAML.
func Save(fs afero.Fs, path string, m *Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	if err := afero.WriteFile(fs, path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	return nil
}

// Load reads a manifest written by Save.
func Load(fs afero.Fs, path string) (*Manifest, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	return &m, nil
}

// Verify checks that the file still matches its recorded hash.
func Verify(fs afero.Fs, entry FileEntry) error {
	if entry.SHA256 == "" {
		return fmt.Errorf("%w: %s", ErrNoHashFound, entry.Path)
	}

	data, err := afero.ReadFile(fs, entry.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrFileMissing, entry.Path)
		}

		return fmt.Errorf("failed to read %s: %w", entry.Path, err)
	}

	calculated := CalculateHash(data)
	if calculated != entry.SHA256 {
		return fmt.Errorf("%w: %s: expected %s, got %s", ErrHashMismatch, entry.Path, entry.SHA256, calculated)
	}

	return nil
}

// VerifyAll checks every file in the manifest and returns one error per bad file.
func (m *Manifest) VerifyAll(fs afero.Fs) []error {
	var errs []error

	for _, entry := range m.Files {
		if err := Verify(fs, entry); err != nil {
			errs = append(errs, err)
		}
	}

	return errs
}
