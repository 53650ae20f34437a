package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Partner configuration errors.
var (
	ErrPartnersDirUnreadable = errors.New("cannot read partners directory")
	ErrNoPartnerConfigs      = errors.New("no partner configuration files found")
	ErrInvalidPartnerConfig  = errors.New("invalid partner configuration")
	ErrDuplicatePartnerCode  = errors.New("duplicate partner_code")
)

var validate = newPartnerValidator()

// PartnerConfig describes one partner feed.
type PartnerConfig struct {
	PartnerCode string `yaml:"partner_code" validate:"required"`
	FilePath    string `yaml:"file_path" validate:"required"`
	Delimiter   string `yaml:"delimiter" validate:"required,len=1"`
	// ColumnMapping maps partner column names to canonical column names.
	ColumnMapping map[string]string `yaml:"column_mapping" validate:"required,min=1,unique,dive,keys,required,endkeys,oneof=external_id first_name last_name dob email phone partner_code"`
	Enabled       *bool             `yaml:"enabled,omitempty"`

	// Source is the file the partner was loaded from.
	Source string `yaml:"-"`
}

// IsEnabled reports whether the partner should be processed. Partners are
// enabled unless the file says otherwise.
func (p *PartnerConfig) IsEnabled() bool {
	return p.Enabled == nil || *p.Enabled
}

// Comma returns the delimiter as a rune.
func (p *PartnerConfig) Comma() rune {
	r, _ := utf8.DecodeRuneInString(p.Delimiter)

	return r
}

// ResolvePath returns the input file path, relative paths being taken from root.
func (p *PartnerConfig) ResolvePath(root string) string {
	if filepath.IsAbs(p.FilePath) || root == "" {
		return p.FilePath
	}

	return filepath.Join(root, p.FilePath)
}

// ProcessedFileName is <code>_processed.csv in lower case.
func (p *PartnerConfig) ProcessedFileName() string {
	return strings.ToLower(p.PartnerCode) + "_processed.csv"
}

// ErrorFileName is <code>_errors.csv in lower case.
func (p *PartnerConfig) ErrorFileName() string {
	return strings.ToLower(p.PartnerCode) + "_errors.csv"
}

// Validate checks the struct tags of the partner configuration.
func (p *PartnerConfig) Validate() error {
	err := validate.Struct(p)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", ErrInvalidPartnerConfig, err)
	}

	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		problems = append(problems, describeFieldError(fe))
	}

	return fmt.Errorf("%w: %s", ErrInvalidPartnerConfig, strings.Join(problems, "; "))
}

func describeFieldError(fe validator.FieldError) string {
	field := fe.Field()

	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "len":
		return field + " must be a single character"
	case "min":
		return field + " must not be empty"
	case "unique":
		return field + " maps two columns to the same canonical name"
	case "oneof":
		return fmt.Sprintf("%s target %q is not a canonical column", field, fe.Value())
	default:
		return fmt.Sprintf("%s failed %q", field, fe.Tag())
	}
}

func newPartnerValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}

		return name
	})

	return v
}

// LoadPartner loads and validates one partner configuration file.
func LoadPartner(fs afero.Fs, path string) (*PartnerConfig, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read partner config: %w", err)
	}

	var p PartnerConfig
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	p.Source = path

	if err := p.Validate(); err != nil {
		return &p, err
	}

	return &p, nil
}

// PartnerError records a partner configuration that could not be used.
type PartnerError struct {
	File        string
	PartnerCode string
	Err         error
}

func (e *PartnerError) Error() string {
	return fmt.Sprintf("%s: %v", e.File, e.Err)
}

func (e *PartnerError) Unwrap() error {
	return e.Err
}

// PartnerSet is the result of loading a partners directory.
type PartnerSet struct {
	Partners []*PartnerConfig
	Invalid  []*PartnerError
}

// LoadPartners loads every *.yaml and *.yml file in dir in lexical order.
// Files that fail to load are collected in Invalid so the remaining partners
// can still run.
func LoadPartners(fs afero.Fs, dir string) (*PartnerSet, error) {
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPartnersDirUnreadable, err)
	}

	set := &PartnerSet{}
	seen := make(map[string]string)

	for _, entry := range entries {
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if entry.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}

		path := filepath.Join(dir, entry.Name())

		p, loadErr := LoadPartner(fs, path)
		if loadErr != nil {
			pe := &PartnerError{File: path, Err: loadErr}
			if p != nil {
				pe.PartnerCode = p.PartnerCode
			}

			set.Invalid = append(set.Invalid, pe)

			continue
		}

		key := strings.ToLower(p.PartnerCode)
		if first, dup := seen[key]; dup {
			set.Invalid = append(set.Invalid, &PartnerError{
				File:        path,
				PartnerCode: p.PartnerCode,
				Err:         fmt.Errorf("%w: %s already defined in %s", ErrDuplicatePartnerCode, p.PartnerCode, first),
			})

			continue
		}

		seen[key] = path
		set.Partners = append(set.Partners, p)
	}

	if len(set.Partners) == 0 && len(set.Invalid) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoPartnerConfigs, dir)
	}

	return set, nil
}

// Enabled returns the partners that are switched on.
func (s *PartnerSet) Enabled() []*PartnerConfig {
	var enabled []*PartnerConfig

	for _, p := range s.Partners {
		if p.IsEnabled() {
			enabled = append(enabled, p)
		}
	}

	return enabled
}

// Filter keeps only the partners whose code is in codes (case-insensitive).
// An empty codes list returns the set unchanged.
func (s *PartnerSet) Filter(codes []string) *PartnerSet {
	if len(codes) == 0 {
		return s
	}

	wanted := make(map[string]bool, len(codes))
	for _, c := range codes {
		wanted[strings.ToLower(strings.TrimSpace(c))] = true
	}

	out := &PartnerSet{}

	for _, p := range s.Partners {
		if wanted[strings.ToLower(p.PartnerCode)] {
			out.Partners = append(out.Partners, p)
		}
	}

	for _, pe := range s.Invalid {
		if pe.PartnerCode == "" || wanted[strings.ToLower(pe.PartnerCode)] {
			out.Invalid = append(out.Invalid, pe)
		}
	}

	return out
}

func joinPath(dir, name string) string {
	return filepath.Join(dir, name)
}
