package mapping

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/creasty/defaults"
)

var hexColor = regexp.MustCompile(`^[0-9A-Fa-f]{6}$`)

// Formatting is the sheet-level formatting block of a mapping document.
type Formatting struct {
	ReadOnly   *bool              `yaml:"read_only"`
	TabColor   string             `yaml:"tab_color"`
	TableStyle TableStyleSpec     `yaml:"table_style"`
	Data       []ColumnFormatSpec `yaml:"data"`
}

// TableStyleSpec overrides table styling. Unset fields inherit.
type TableStyleSpec struct {
	Name              string `yaml:"name"`
	ShowFirstColumn   *bool  `yaml:"show_first_column"`
	ShowLastColumn    *bool  `yaml:"show_last_column"`
	ShowRowStripes    *bool  `yaml:"show_row_stripes"`
	ShowColumnStripes *bool  `yaml:"show_column_stripes"`
}

// ColumnFormatSpec overrides formatting for every field matching one of Columns by prefix.
type ColumnFormatSpec struct {
	Columns   []string     `yaml:"columns"`
	CharsWrap *int         `yaml:"chars_wrap"`
	ReadOnly  *bool        `yaml:"read_only"`
	Comment   *CommentSpec `yaml:"comment"`
}

// CommentSpec overrides a header comment.
type CommentSpec struct {
	Text      *string `yaml:"text"`
	Author    *string `yaml:"author"`
	HeightLen *int    `yaml:"height_len"`
	WidthLen  *int    `yaml:"width_len"`
}

// Defaults is the document-wide defaults block.
type Defaults struct {
	Formatting DefaultFormatting `yaml:"formatting"`
}

// DefaultFormatting overrides the built-in formatting defaults.
type DefaultFormatting struct {
	ReadOnly   *bool          `yaml:"read_only"`
	TabColor   string         `yaml:"tab_color"`
	TableStyle TableStyleSpec `yaml:"table_style"`
	Data       struct {
		CharsWrap *int         `yaml:"chars_wrap"`
		Comment   *CommentSpec `yaml:"comment"`
	} `yaml:"data"`
}

// TableFormat is resolved sheet formatting.
type TableFormat struct {
	ReadOnly bool       `json:"read_only" default:"false"`
	TabColor string     `json:"tab_color" default:"D9D9D9"`
	Style    TableStyle `json:"table_style"`
}

// TableStyle is resolved table styling.
type TableStyle struct {
	Name              string `json:"name" default:"TableStyleMedium"`
	ShowFirstColumn   bool   `json:"show_first_column" default:"false"`
	ShowLastColumn    bool   `json:"show_last_column" default:"false"`
	ShowRowStripes    bool   `json:"show_row_stripes" default:"true"`
	ShowColumnStripes bool   `json:"show_column_stripes" default:"true"`
}

// ColumnFormat is resolved per-field formatting.
type ColumnFormat struct {
	CharsWrap int     `json:"chars_wrap" default:"20"`
	ReadOnly  bool    `json:"read_only" default:"false"`
	Comment   Comment `json:"comment"`
}

// Comment is a resolved header comment. An empty Text means no comment.
type Comment struct {
	Text      string `json:"text" default:""`
	Author    string `json:"author" default:"admin@github.com"`
	HeightLen int    `json:"height_len" default:"110"`
	WidthLen  int    `json:"width_len" default:"230"`
}

// TableDefaults returns the built-in table formatting overlaid with the document defaults.
func (d Defaults) TableDefaults() TableFormat {
	var f TableFormat
	if err := defaults.Set(&f); err != nil {
		panic(fmt.Sprintf("mapping: invalid table defaults: %v", err))
	}
	df := d.Formatting
	if df.ReadOnly != nil {
		f.ReadOnly = *df.ReadOnly
	}
	if df.TabColor != "" {
		f.TabColor = df.TabColor
	}
	f.Style = overlayStyle(f.Style, df.TableStyle)
	return f
}

// ColumnDefaults returns the built-in column formatting overlaid with the document defaults.
func (d Defaults) ColumnDefaults() ColumnFormat {
	var f ColumnFormat
	if err := defaults.Set(&f); err != nil {
		panic(fmt.Sprintf("mapping: invalid column defaults: %v", err))
	}
	if cw := d.Formatting.Data.CharsWrap; cw != nil {
		f.CharsWrap = *cw
	}
	if c := d.Formatting.Data.Comment; c != nil {
		f.Comment = overlayComment(f.Comment, *c)
	}
	return f
}

// ResolveTableFormat applies a sheet's overrides to base.
func ResolveTableFormat(base TableFormat, ow *Formatting) TableFormat {
	if ow == nil {
		return base
	}
	f := base
	if ow.ReadOnly != nil {
		f.ReadOnly = *ow.ReadOnly
	}
	if ow.TabColor != "" {
		f.TabColor = ow.TabColor
	}
	f.Style = overlayStyle(f.Style, ow.TableStyle)
	return f
}

// ResolveColumnFormat applies every matching column override, in order, to base.
// A later match overrides an earlier one, so "*" followed by an explicit name refines.
func ResolveColumnFormat(base ColumnFormat, field string, specs []ColumnFormatSpec) ColumnFormat {
	f := base
	for _, spec := range specs {
		for _, pattern := range spec.Columns {
			if !MatchPrefix(pattern, field) {
				continue
			}
			if spec.CharsWrap != nil {
				f.CharsWrap = *spec.CharsWrap
			}
			if spec.ReadOnly != nil {
				f.ReadOnly = *spec.ReadOnly
			}
			if spec.Comment != nil {
				f.Comment = overlayComment(base.Comment, *spec.Comment)
			}
		}
	}
	return f
}

// MatchPrefix reports whether field starts with pattern, ignoring case and a trailing "*".
func MatchPrefix(pattern, field string) bool {
	prefix := strings.TrimSuffix(strings.TrimSpace(pattern), "*")
	return strings.HasPrefix(strings.ToLower(field), strings.ToLower(prefix))
}

func overlayStyle(s TableStyle, ow TableStyleSpec) TableStyle {
	if ow.Name != "" {
		s.Name = ow.Name
	}
	if ow.ShowFirstColumn != nil {
		s.ShowFirstColumn = *ow.ShowFirstColumn
	}
	if ow.ShowLastColumn != nil {
		s.ShowLastColumn = *ow.ShowLastColumn
	}
	if ow.ShowRowStripes != nil {
		s.ShowRowStripes = *ow.ShowRowStripes
	}
	if ow.ShowColumnStripes != nil {
		s.ShowColumnStripes = *ow.ShowColumnStripes
	}
	return s
}

func overlayComment(c Comment, ow CommentSpec) Comment {
	if ow.Text != nil {
		c.Text = *ow.Text
	}
	if ow.Author != nil {
		c.Author = *ow.Author
	}
	if ow.HeightLen != nil {
		c.HeightLen = *ow.HeightLen
	}
	if ow.WidthLen != nil {
		c.WidthLen = *ow.WidthLen
	}
	return c
}

func (f *Formatting) validate(errs *ErrorCollector, label string) {
	if f.TabColor != "" && !hexColor.MatchString(f.TabColor) {
		errs.Addf(label, "mapper.sheets.formatting.tab_color", "expected a 6 digit hex color, got %q", f.TabColor)
	}
	for i, d := range f.Data {
		field := fmt.Sprintf("mapper.sheets.formatting.data[%d]", i)
		if len(d.Columns) == 0 {
			errs.Add(label, field, "columns field isn't defined")
		}
		if d.CharsWrap != nil && *d.CharsWrap <= 0 {
			errs.Addf(label, field+".chars_wrap", "must be positive, got %d", *d.CharsWrap)
		}
	}
}
