// Package normalizer turns raw partner rows into canonical records and sorts
// them into the processed and error streams.
package normalizer

import (
	"fmt"

	"eligibility/internal/models"
)

// Processor runs standardization followed by validation.
type Processor struct {
	validator   *Validator
	transformer *Transformer
}

// NewProcessor creates a new processor instance.
func NewProcessor(opts ...TransformerOption) *Processor {
	return &Processor{
		validator:   NewValidator(),
		transformer: NewTransformer(opts...),
	}
}

// Process standardizes the raw batch and classifies the result.
func (p *Processor) Process(raw *models.RawBatch, m Mapping) (*models.Result, error) {
	batch, err := p.transformer.Standardize(raw, m)
	if err != nil {
		return nil, fmt.Errorf("standardization failed: %w", err)
	}

	return p.validator.Validate(batch), nil
}
