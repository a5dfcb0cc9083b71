package render

import (
	"encoding/csv"
	"html/template"
	"io"
	"regexp"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/microcosm-cc/bluemonday"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"

	"querypad/internal/model"
)

const TableCSSClass = "result-table"

// Formats accepted by Renderer.Format.
var Formats = []string{"text", "csv", "markdown", "html"}

// Renderer turns result sets into tables. All output methods are pure
// functions of the result set; an empty result set produces no output at all.
type Renderer struct {
	policy    Policy
	sanitizer *bluemonday.Policy
}

func New(policy Policy) *Renderer {
	return &Renderer{
		policy:    policy,
		sanitizer: newTablePolicy(),
	}
}

func (r *Renderer) Policy() Policy {
	return r.policy
}

// newTablePolicy only lets table markup through.
func newTablePolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("table", "thead", "tbody", "tfoot", "tr", "th", "td", "br")
	p.AllowAttrs("class").Matching(regexp.MustCompile(`^[a-zA-Z0-9_\- ]+$`)).OnElements("table")
	p.AllowAttrs("align").Matching(regexp.MustCompile(`^(left|right|center)$`)).OnElements("th", "td")
	return p
}

func (r *Renderer) layout(rs model.ResultSet) ([]string, [][]string) {
	columns := Columns(rs, r.policy)
	if len(columns) == 0 {
		return nil, nil
	}

	rows := make([][]string, 0, len(rs))
	for _, row := range rs {
		rows = append(rows, Cells(row, columns))
	}
	return columns, rows
}

func (r *Renderer) newTable(columns []string, rows [][]string) table.Writer {
	header := make(table.Row, 0, len(columns))
	for _, c := range columns {
		header = append(header, c)
	}

	t := table.NewWriter()
	t.AppendHeader(header)
	for _, cells := range rows {
		row := make(table.Row, 0, len(cells))
		for _, c := range cells {
			row = append(row, c)
		}
		t.AppendRow(row)
	}
	t.SetStyle(table.StyleLight)
	t.Style().Format = table.FormatOptions{
		Footer: text.FormatDefault,
		Header: text.FormatDefault,
		Row:    text.FormatDefault,
	}
	t.Style().HTML = table.HTMLOptions{
		CSSClass:    TableCSSClass,
		EmptyColumn: "&nbsp;",
		EscapeText:  true,
		Newline:     "<br/>",
	}
	return t
}

// HTML renders rs as a single <table>, or nothing when rs has no columns.
func (r *Renderer) HTML(rs model.ResultSet) template.HTML {
	columns, rows := r.layout(rs)
	if columns == nil {
		return ""
	}
	rendered := r.newTable(columns, rows).RenderHTML()
	return template.HTML(r.sanitizer.Sanitize(rendered))
}

// CSV renders rs as RFC 4180 records, header first, each line terminated.
func (r *Renderer) CSV(rs model.ResultSet) string {
	columns, rows := r.layout(rs)
	if columns == nil {
		return ""
	}

	var b strings.Builder
	w := csv.NewWriter(&b)
	// Writes to a strings.Builder cannot fail.
	_ = w.Write(columns)
	_ = w.WriteAll(rows)
	return b.String()
}

func (r *Renderer) Markdown(rs model.ResultSet) string {
	columns, rows := r.layout(rs)
	if columns == nil {
		return ""
	}
	return r.newTable(columns, rows).RenderMarkdown()
}

// Text writes a boxed text table to out.
func (r *Renderer) Text(rs model.ResultSet, out io.Writer) {
	columns, rows := r.layout(rs)
	if columns == nil {
		return
	}

	t := tablewriter.NewWriter(out)
	t.SetHeader(columns)
	t.SetAutoFormatHeaders(false)
	t.SetAutoWrapText(false)
	t.AppendBulk(rows)
	t.Render()
}

// Format writes rs to out in the named format.
func (r *Renderer) Format(format string, rs model.ResultSet, out io.Writer) error {
	var rendered string
	switch format {
	case "text", "":
		r.Text(rs, out)
		return nil
	case "csv":
		_, err := io.WriteString(out, r.CSV(rs))
		return errors.Wrap(err, "write table")
	case "markdown", "md":
		rendered = r.Markdown(rs)
	case "html":
		rendered = string(r.HTML(rs))
	default:
		return errors.Errorf("unknown format %q", format)
	}

	if rendered == "" {
		return nil
	}
	_, err := io.WriteString(out, rendered+"\n")
	return errors.Wrap(err, "write table")
}
