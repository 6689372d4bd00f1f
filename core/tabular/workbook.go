package tabular

import (
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"
)

const defaultStyle = "TableStyleMedium2"

var (
	tableNameChars = regexp.MustCompile(`[^A-Za-z0-9_]`)
	styleIndex     = regexp.MustCompile(`\d+$`)
)

// Workbook is an xlsx document backed by excelize. It is safe for concurrent use.
type Workbook struct {
	mu   sync.Mutex
	file *excelize.File
	// pristine is set while the default sheet of a new workbook is still unused.
	pristine string
}

// NewWorkbook creates an empty workbook for writing.
func NewWorkbook() *Workbook {
	f := excelize.NewFile()
	return &Workbook{file: f, pristine: f.GetSheetName(0)}
}

// OpenWorkbook opens the workbook at path.
func OpenWorkbook(path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	return &Workbook{file: f}, nil
}

// ReadWorkbook reads a workbook from r.
func ReadWorkbook(r io.Reader) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read workbook: %w", err)
	}
	return &Workbook{file: f}, nil
}

// Sheets returns the sheet names in workbook order.
func (w *Workbook) Sheets() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pristine != "" {
		return nil
	}
	return w.file.GetSheetList()
}

// ReadTable reads and normalizes the named sheet. Names match ignoring case.
func (w *Workbook) ReadTable(name string) (*Table, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	sheet, ok := findSheet(w.file.GetSheetList(), name)
	if !ok || sheet == w.pristine {
		return nil, fmt.Errorf("%w: %s", ErrSheetNotFound, name)
	}
	rows, err := w.file.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	return NewTable(sheet, rows), nil
}

// WriteTable writes headers and rows to a new sheet and applies hints.
func (w *Workbook) WriteTable(name string, headers []string, rows [][]string, hints Hints) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	f := w.file
	if err := w.createSheet(name); err != nil {
		return err
	}

	header := make([]any, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	if err := f.SetSheetRow(name, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header of %s: %w", name, err)
	}
	for i, r := range rows {
		cells := make([]any, len(headers))
		for j := range cells {
			cells[j] = ""
			if j < len(r) {
				cells[j] = r[j]
			}
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(name, cell, &cells); err != nil {
			return fmt.Errorf("failed to write row %d of %s: %w", i+2, name, err)
		}
	}

	for i, hint := range hints.Columns {
		if i >= len(headers) {
			break
		}
		if err := w.formatColumn(name, i+1, len(rows), hint); err != nil {
			return err
		}
	}

	if hints.TabColor != "" {
		color := strings.TrimPrefix(hints.TabColor, "#")
		if err := f.SetSheetProps(name, &excelize.SheetPropsOptions{TabColorRGB: &color}); err != nil {
			return fmt.Errorf("failed to set tab color of %s: %w", name, err)
		}
	}

	if len(headers) == 0 {
		return nil
	}
	if len(rows) == 0 {
		return f.AddComment(name, excelize.Comment{Cell: "A1", Author: "exporter", Text: "No data available for insert"})
	}

	last, _ := excelize.CoordinatesToCellName(len(headers), len(rows)+1)
	stripes := hints.Style.ShowRowStripes
	if err := f.AddTable(name, &excelize.Table{
		Range:             "A1:" + last,
		Name:              tableName(name),
		StyleName:         styleName(hints.Style.Name),
		ShowFirstColumn:   hints.Style.ShowFirstColumn,
		ShowLastColumn:    hints.Style.ShowLastColumn,
		ShowRowStripes:    &stripes,
		ShowColumnStripes: hints.Style.ShowColumnStripes,
	}); err != nil {
		return fmt.Errorf("failed to add table to %s: %w", name, err)
	}

	if hints.FreezeHeader {
		if err := f.SetPanes(name, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
			return fmt.Errorf("failed to freeze header of %s: %w", name, err)
		}
	}
	return nil
}

func (w *Workbook) createSheet(name string) error {
	if w.pristine != "" {
		if err := w.file.SetSheetName(w.pristine, name); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", name, err)
		}
		w.pristine = ""
		return nil
	}
	if _, ok := findSheet(w.file.GetSheetList(), name); ok {
		return fmt.Errorf("%w: %s", ErrSheetExists, name)
	}
	if _, err := w.file.NewSheet(name); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", name, err)
	}
	return nil
}

func (w *Workbook) formatColumn(sheet string, col, rows int, hint ColumnHint) error {
	f := w.file
	colName, err := excelize.ColumnNumberToName(col)
	if err != nil {
		return err
	}

	if hint.Width > 0 {
		if err := f.SetColWidth(sheet, colName, colName, hint.Width); err != nil {
			return fmt.Errorf("failed to set width of %s!%s: %w", sheet, colName, err)
		}
	}

	if hint.Wrap || hint.ReadOnly {
		style := &excelize.Style{}
		if hint.Wrap {
			style.Alignment = &excelize.Alignment{WrapText: true, Vertical: "top"}
		}
		if hint.ReadOnly {
			style.Fill = excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"EDEDED"}}
			style.Protection = &excelize.Protection{Locked: true}
		}
		id, err := f.NewStyle(style)
		if err != nil {
			return fmt.Errorf("failed to create style for %s!%s: %w", sheet, colName, err)
		}
		if err := f.SetColStyle(sheet, colName, id); err != nil {
			return fmt.Errorf("failed to style %s!%s: %w", sheet, colName, err)
		}
	}

	if hint.Comment.Text != "" {
		if err := f.AddComment(sheet, excelize.Comment{
			Cell:   colName + "1",
			Author: hint.Comment.Author,
			Text:   hint.Comment.Text,
		}); err != nil {
			return fmt.Errorf("failed to comment %s!%s1: %w", sheet, colName, err)
		}
	}

	if hint.ListSource != "" && rows > 0 {
		dv := excelize.NewDataValidation(true)
		dv.Sqref = fmt.Sprintf("%s2:%s%d", colName, colName, rows+1)
		dv.SetSqrefDropList(hint.ListSource)
		if err := f.AddDataValidation(sheet, dv); err != nil {
			return fmt.Errorf("failed to add drop-down to %s!%s: %w", sheet, colName, err)
		}
	}
	return nil
}

// SaveAs writes the workbook to path.
func (w *Workbook) SaveAs(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.file.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	return nil
}

// Write streams the workbook to out.
func (w *Workbook) Write(out io.Writer) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.file.Write(out); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// Close releases the workbook's temporary resources.
func (w *Workbook) Close() error {
	return w.file.Close()
}

// tableName derives a valid table identifier from a sheet name.
func tableName(sheet string) string {
	return "Table_" + tableNameChars.ReplaceAllString(sheet, "_")
}

// styleName maps a style family such as "TableStyleMedium" to a concrete built-in style.
func styleName(name string) string {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return defaultStyle
	case styleIndex.MatchString(name):
		return name
	default:
		return name + "2"
	}
}

// CellRange returns the absolute range of column col (1-based) over rows data rows,
// qualified by sheet, for use as a drop-down source.
func CellRange(sheet string, col, rows int) string {
	top, _ := excelize.CoordinatesToCellName(col, 2, true)
	bottom, _ := excelize.CoordinatesToCellName(col, rows+1, true)
	return fmt.Sprintf("'%s'!%s:%s", strings.ReplaceAll(sheet, "'", "''"), top, bottom)
}
