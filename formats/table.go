package formats

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Tabular is implemented by results that can be shown as rows
type Tabular interface {
	Header() []string
	Rows() [][]string
}

// Rows is a ready-made Tabular value
type Rows struct {
	Columns []string
	Data    [][]string
}

func (r Rows) Header() []string { return r.Columns }
func (r Rows) Rows() [][]string { return r.Data }

// Table writes aligned columns with a title-cased header line.
// Header names such as "field_kind" are shown as "Field Kind".
var Table = &OutputFormat{
	Name:      "table",
	Extension: ".txt",
	Render: func(w io.Writer, v any) error {
		t, ok := v.(Tabular)
		if !ok {
			return fmt.Errorf("table format cannot render %T", v)
		}

		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		header := t.Header()
		cells := make([]string, len(header))
		for i, h := range header {
			cells[i] = headerName(h)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))

		for _, row := range t.Rows() {
			fmt.Fprintln(tw, strings.Join(row, "\t"))
		}
		return tw.Flush()
	},
}

func headerName(h string) string {
	h = strings.NewReplacer("_", " ", "-", " ").Replace(h)
	return cases.Title(language.English).String(h)
}
