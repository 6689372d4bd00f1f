package mapping

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// WildcardSheet is the sheet name that fans a multi-model dataset out into one sheet per model.
const WildcardSheet = "*"

// Document is the parsed mapping document.
type Document struct {
	Datasets map[string]DatasetSpec `yaml:"datasets"`
	Sheets   []SheetSpec            `yaml:"sheets"`
	Filters  map[string]ViewSpec    `yaml:"filters"`
	Defaults Defaults               `yaml:"defaults"`

	// Source is the file the document was loaded from, if any.
	Source string `yaml:"-"`
}

// DatasetSpec declares a logical table bound to one or more entities.
type DatasetSpec struct {
	ModelName  string        `yaml:"model_name"`
	ModelNames []string      `yaml:"model_names"`
	IndexKey   []string      `yaml:"index_key"`
	Data       []ColumnBlock `yaml:"data"`
}

// Models returns the declared entity names with any dotted module prefix removed.
func (d DatasetSpec) Models() []string {
	names := d.ModelNames
	if len(names) == 0 && d.ModelName != "" {
		names = []string{d.ModelName}
	}
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if i := strings.LastIndex(n, "."); i >= 0 {
			n = n[i+1:]
		}
		if n != "" {
			out = append(out, n)
		}
	}
	return out
}

// ColumnBlock is one entry of a dataset's data list.
type ColumnBlock struct {
	// Columns holds patterns: "*", "prefix*" or an exact field name.
	Columns []string `yaml:"columns"`
	// References holds "$model.<path>" or "<entity>.<path>" expressions.
	References []string `yaml:"references"`
}

// SheetSpec is a named view over one dataset.
type SheetSpec struct {
	SheetName  string      `yaml:"sheet_name"`
	Dataset    string      `yaml:"dataset"`
	View       string      `yaml:"view"`
	Formatting *Formatting `yaml:"formatting"`
}

// IsWildcard reports whether the sheet fans out per model.
func (s SheetSpec) IsWildcard() bool {
	return strings.TrimSpace(s.SheetName) == WildcardSheet
}

// ViewSpec narrows and orders the rows of a sheet.
type ViewSpec struct {
	// Column and Filter form an equality condition, both or neither must be set.
	Column string   `yaml:"column"`
	Filter string   `yaml:"filter"`
	Sort   []string `yaml:"sort"`
	// Order is "asc" (default) or "desc".
	Order string `yaml:"order"`
}

// Descending reports whether the view sorts in reverse.
func (v ViewSpec) Descending() bool {
	return strings.EqualFold(v.Order, "desc")
}

// Load reads and parses the mapping document at path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to read mapping document: %w", err)
	}
	doc, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	doc.Source = path
	return doc, nil
}

// Parse decodes a mapping document. Unknown keys are rejected.
func Parse(r io.Reader) (*Document, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to parse mapping document: empty document")
		}
		return nil, fmt.Errorf("failed to parse mapping document: %w", err)
	}
	return &doc, nil
}

// Dataset looks up a dataset by name, ignoring case.
func (d *Document) Dataset(name string) (string, DatasetSpec, bool) {
	for k, v := range d.Datasets {
		if strings.EqualFold(k, name) {
			return k, v, true
		}
	}
	return "", DatasetSpec{}, false
}

// View looks up a filter by name, ignoring case.
func (d *Document) View(name string) (ViewSpec, bool) {
	for k, v := range d.Filters {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return ViewSpec{}, false
}

// DatasetNames returns dataset names sorted for stable reporting.
func (d *Document) DatasetNames() []string {
	names := make([]string, 0, len(d.Datasets))
	for k := range d.Datasets {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
