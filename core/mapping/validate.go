package mapping

import (
	"fmt"
	"sort"
	"strings"
)

// DocumentLabel is the error label used for problems not tied to a single sheet.
const DocumentLabel = "mapper"

// Validate checks the document structure and records every problem in errs.
// Entity-dependent checks happen during resolution.
func (d *Document) Validate(errs *ErrorCollector) {
	if len(d.Sheets) == 0 {
		errs.Add(DocumentLabel, "sheets", "no sheets declared")
	}

	checkUnique(errs, "datasets", mapKeys(d.Datasets))
	checkUnique(errs, "filters", mapKeys(d.Filters))

	var sheetNames []string
	for _, s := range d.Sheets {
		if !s.IsWildcard() {
			sheetNames = append(sheetNames, s.SheetName)
		}
	}
	checkUnique(errs, "sheets", sheetNames)

	for _, name := range d.DatasetNames() {
		d.Datasets[name].validate(errs, name)
	}

	for _, name := range sortedKeys(d.Filters) {
		v := d.Filters[name]
		field := fmt.Sprintf("mapper.filters[%s]", name)
		if (v.Column == "") != (v.Filter == "") {
			errs.Add(DocumentLabel, field, "column and filter must be set together")
		}
		if v.Order != "" && !strings.EqualFold(v.Order, "asc") && !strings.EqualFold(v.Order, "desc") {
			errs.Addf(DocumentLabel, field+".order", "unsupported order %q, expected asc or desc", v.Order)
		}
	}

	for i, s := range d.Sheets {
		label := s.SheetName
		if strings.TrimSpace(label) == "" {
			label = fmt.Sprintf("sheets[%d]", i)
			errs.Add(label, "mapper.sheets.sheet_name", "sheet_name is missing")
		}
		if s.Formatting != nil {
			s.Formatting.validate(errs, label)
		}
	}
}

func (ds DatasetSpec) validate(errs *ErrorCollector, name string) {
	field := fmt.Sprintf("mapper.datasets[%s]", name)
	if ds.ModelName == "" && len(ds.ModelNames) == 0 {
		errs.Add(DocumentLabel, field, "model_name or model_names is required")
	}
	if ds.ModelName != "" && len(ds.ModelNames) > 0 {
		errs.Add(DocumentLabel, field, "model_name and model_names are mutually exclusive")
	}
	if len(ds.IndexKey) == 0 {
		errs.Add(DocumentLabel, field+".index_key", "index_key is missing")
	}
	if len(ds.Data) == 0 {
		errs.Add(DocumentLabel, field+".data", "data is missing")
	}
	for i, block := range ds.Data {
		if len(block.Columns) == 0 {
			errs.Addf(DocumentLabel, fmt.Sprintf("%s.data[%d]", field, i), "columns field isn't defined")
		}
	}
}

func checkUnique(errs *ErrorCollector, namespace string, names []string) {
	sort.Strings(names)
	seen := make(map[string]string, len(names))
	for _, n := range names {
		key := strings.ToLower(strings.TrimSpace(n))
		if prev, ok := seen[key]; ok {
			errs.Addf(DocumentLabel, "mapper."+namespace, "name %q collides with %q (names are case-insensitive)", n, prev)
			continue
		}
		seen[key] = n
	}
}

func mapKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	out := mapKeys(m)
	sort.Strings(out)
	return out
}
