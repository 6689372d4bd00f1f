package validator

import (
	"context"

	"sheet-reconciler/core/mapping"
	"sheet-reconciler/core/schema"

	"go.uber.org/zap"
)

// SheetSummary describes one resolved sheet.
type SheetSummary struct {
	Name      string   `json:"name"`
	Dataset   string   `json:"dataset"`
	Entity    string   `json:"entity"`
	IndexKey  []string `json:"index_key"`
	Columns   []string `json:"columns"`
	DependsOn []string `json:"depends_on,omitempty"`
	ReadOnly  bool     `json:"read_only"`
}

// Result is the outcome of validating a mapping document.
type Result struct {
	Source string         `json:"source"`
	Valid  bool           `json:"valid"`
	Order  []string       `json:"order"`
	Sheets []SheetSummary `json:"sheets"`
	// Labels lists the error labels in the order they were found.
	Labels []string                          `json:"labels"`
	Errors map[string][]*mapping.ConfigError `json:"errors"`
}

// Summarize describes a resolved model.
func Summarize(model *schema.Model, source string) *Result {
	r := &Result{
		Source: source,
		Valid:  model.Valid(),
		Order:  model.Order,
		Sheets: make([]SheetSummary, 0, len(model.Sheets)),
		Labels: []string{},
		Errors: map[string][]*mapping.ConfigError{},
	}
	if r.Order == nil {
		r.Order = []string{}
	}
	for _, s := range model.Sheets {
		r.Sheets = append(r.Sheets, SheetSummary{
			Name:      s.Name,
			Dataset:   s.Dataset.Name,
			Entity:    s.Dataset.Entity.Name,
			IndexKey:  s.Dataset.IndexKey,
			Columns:   s.Dataset.FieldNames(),
			DependsOn: s.DependsOn,
			ReadOnly:  s.Format.ReadOnly,
		})
	}
	if model.Errors != nil {
		r.Labels = append(r.Labels, model.Errors.Labels()...)
		for label, errs := range model.Errors.Grouped() {
			r.Errors[label] = errs
		}
	}
	return r
}

// Service validates the configured mapping document.
type Service struct {
	models schema.ModelSource
	path   string
	logger *zap.Logger
}

// NewService creates a validation service for the document at path.
func NewService(models schema.ModelSource, path string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{models: models, path: path, logger: logger}
}

// Validate resolves the document and summarizes the result.
// The error is reserved for unreadable documents and store failures.
func (s *Service) Validate(ctx context.Context) (*Result, error) {
	model, err := s.models.Get(ctx, s.path)
	if err != nil {
		return nil, err
	}
	r := Summarize(model, s.path)
	if !r.Valid {
		s.logger.Warn("Mapping document has errors",
			zap.String("source", s.path),
			zap.Strings("labels", r.Labels))
	}
	return r, nil
}
