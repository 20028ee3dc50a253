package diff

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/olekukonko/tablewriter"
)

// Render writes the report as a bordered table with one row per entity.
// The reported attributes of an entity share a single multi-line cell, and
// so do their values in each snapshot column. Nothing is written when the
// report has no differences.
func (r *Report) Render(w io.Writer) error {
	if !r.HasDifferences() {
		return nil
	}

	if _, err := fmt.Fprintf(w, "\n%s:\n", r.Title); err != nil {
		return err
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader(append([]string{r.Header[0], r.Header[1]}, r.Snapshots...))
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetRowLine(true)

	for _, row := range r.Rows {
		table.Append(r.cells(row))
	}
	table.Render()

	return nil
}

// cells lays out one entity. A leading presence line marks the snapshots
// lacking the entity entirely.
func (r *Report) cells(row Row) []string {
	var attributes []string
	values := make([][]string, len(r.Snapshots))

	if len(row.Absent) > 0 {
		attributes = append(attributes, "")
		for i, name := range r.Snapshots {
			values[i] = append(values[i], presenceMark(!slices.Contains(row.Absent, name)))
		}
	}

	for _, change := range row.Changes {
		attributes = append(attributes, change.Attribute)
		for i, name := range r.Snapshots {
			values[i] = append(values[i], change.Values[name])
		}
	}

	cells := []string{row.Entity, strings.Join(attributes, "\n")}
	for _, lines := range values {
		cells = append(cells, strings.Join(lines, "\n"))
	}
	return cells
}

// RenderAll renders every report in order.
func RenderAll(w io.Writer, reports []*Report) error {
	for _, report := range reports {
		if err := report.Render(w); err != nil {
			return fmt.Errorf("failed to render %s report: %w", report.Kind, err)
		}
	}
	return nil
}

func presenceMark(present bool) string {
	if present {
		return "+"
	}
	return "-"
}
