package tabular

import (
	"errors"
	"strings"
)

// ErrSheetNotFound is returned when a workbook has no sheet by the requested name.
var ErrSheetNotFound = errors.New("sheet not found")

// ErrSheetExists is returned when a table is written twice to the same sheet.
var ErrSheetExists = errors.New("sheet already exists")

// Table is the normalized content of one sheet: a header row and the data rows under it.
// Every row has exactly len(Headers) cells.
type Table struct {
	Name    string
	Headers []string
	Rows    [][]string
}

// Reader reads named tables.
type Reader interface {
	Sheets() []string
	ReadTable(name string) (*Table, error)
}

// Writer writes named tables.
type Writer interface {
	WriteTable(name string, headers []string, rows [][]string, hints Hints) error
}

// Hints carry presentation for a written table. Zero values mean no styling.
type Hints struct {
	TabColor     string
	Style        TableStyle
	FreezeHeader bool
	Columns      []ColumnHint
}

// TableStyle names the built-in table style and its banding options.
type TableStyle struct {
	Name              string
	ShowFirstColumn   bool
	ShowLastColumn    bool
	ShowRowStripes    bool
	ShowColumnStripes bool
}

// ColumnHint is the presentation of one column, matched to headers by position.
type ColumnHint struct {
	Width    float64
	Wrap     bool
	ReadOnly bool
	Comment  Comment
	// ListSource is a sheet-qualified range offered as a drop-down list, e.g. 'Tags'!$A$2:$A$9.
	ListSource string
}

// Comment is a header cell note. An empty Text means none.
type Comment struct {
	Author string
	Text   string
}

// Column returns the position of header name, ignoring case, or -1.
func (t *Table) Column(name string) int {
	for i, h := range t.Headers {
		if strings.EqualFold(h, name) {
			return i
		}
	}
	return -1
}

// NewTable normalizes raw cell rows. The first row is the header row, trailing blank headers
// are dropped, and reading stops at the first row whose first cell is blank.
func NewTable(name string, raw [][]string) *Table {
	t := &Table{Name: name}
	if len(raw) == 0 {
		return t
	}

	headers := make([]string, len(raw[0]))
	for i, h := range raw[0] {
		headers[i] = strings.TrimSpace(h)
	}
	for len(headers) > 0 && headers[len(headers)-1] == "" {
		headers = headers[:len(headers)-1]
	}
	t.Headers = headers

	for _, row := range raw[1:] {
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			break
		}
		cells := make([]string, len(headers))
		copy(cells, row)
		t.Rows = append(t.Rows, cells)
	}
	return t
}

func findSheet(names []string, name string) (string, bool) {
	for _, n := range names {
		if strings.EqualFold(n, name) {
			return n, true
		}
	}
	return "", false
}
