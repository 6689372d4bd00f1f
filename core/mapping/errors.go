package mapping

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfigNotFound is returned when the mapping document does not exist.
	ErrConfigNotFound = errors.New("mapping document not found")
	// ErrInvalidConfig wraps the aggregated configuration errors of a document.
	ErrInvalidConfig = errors.New("invalid mapping document")
)

// ConfigError is a single configuration problem, attributed to a label (usually a sheet name)
// and the dotted path of the offending field.
type ConfigError struct {
	Label   string         `json:"label"`
	Field   string         `json:"field"`
	Message string         `json:"message"`
	Extra   map[string]any `json:"extra,omitempty"`
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("[%s] %s", e.Label, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Label, e.Field, e.Message)
}

// ErrorCollector aggregates configuration errors per label, preserving insertion order.
// It is passed by reference through parsing and resolution so one bad sheet never hides the rest.
type ErrorCollector struct {
	labels []string
	errors map[string][]*ConfigError
}

// NewErrorCollector creates an empty collector.
func NewErrorCollector() *ErrorCollector {
	return &ErrorCollector{errors: make(map[string][]*ConfigError)}
}

// Add records an error under label.
func (c *ErrorCollector) Add(label, field, msg string) *ConfigError {
	e := &ConfigError{Label: label, Field: field, Message: msg}
	if _, ok := c.errors[label]; !ok {
		c.labels = append(c.labels, label)
	}
	c.errors[label] = append(c.errors[label], e)
	return e
}

// Addf records a formatted error under label.
func (c *ErrorCollector) Addf(label, field, format string, args ...any) *ConfigError {
	return c.Add(label, field, fmt.Sprintf(format, args...))
}

// With attaches extra context to the error and returns it.
func (e *ConfigError) With(key string, value any) *ConfigError {
	if e.Extra == nil {
		e.Extra = make(map[string]any)
	}
	e.Extra[key] = value
	return e
}

// HasErrors reports whether anything was collected.
func (c *ErrorCollector) HasErrors() bool {
	return len(c.labels) > 0
}

// Len returns the number of collected errors.
func (c *ErrorCollector) Len() int {
	n := 0
	for _, errs := range c.errors {
		n += len(errs)
	}
	return n
}

// Labels returns the labels that have errors, in first-seen order.
func (c *ErrorCollector) Labels() []string {
	return append([]string(nil), c.labels...)
}

// ByLabel returns the errors recorded under label.
func (c *ErrorCollector) ByLabel(label string) []*ConfigError {
	return c.errors[label]
}

// Errors returns every collected error, grouped by label.
func (c *ErrorCollector) Errors() []*ConfigError {
	var all []*ConfigError
	for _, label := range c.labels {
		all = append(all, c.errors[label]...)
	}
	return all
}

// Grouped returns the errors keyed by label.
func (c *ErrorCollector) Grouped() map[string][]*ConfigError {
	out := make(map[string][]*ConfigError, len(c.errors))
	for k, v := range c.errors {
		out[k] = v
	}
	return out
}

// Err returns nil when nothing was collected, otherwise an error wrapping ErrInvalidConfig.
func (c *ErrorCollector) Err() error {
	if !c.HasErrors() {
		return nil
	}
	msgs := make([]string, 0, c.Len())
	for _, e := range c.Errors() {
		msgs = append(msgs, e.Error())
	}
	return fmt.Errorf("%w: %d error(s): %s", ErrInvalidConfig, len(msgs), strings.Join(msgs, "; "))
}
