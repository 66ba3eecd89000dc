package main

import (
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// pathWidth caps columns holding file paths; longer paths wrap.
const pathWidth = 64

// column is one output column. A Width above zero wraps longer cells.
type column struct {
	Title string
	Align text.Align
	Width int
}

func textColumn(title string) column   { return column{Title: title, Align: text.AlignLeft} }
func numberColumn(title string) column { return column{Title: title, Align: text.AlignRight} }
func pathColumn(title string) column {
	return column{Title: title, Align: text.AlignLeft, Width: pathWidth}
}

// renderTable draws a rounded table. Missing and empty cells show "-", and rows
// are ruled apart once any cell spans several lines.
func renderTable(cols []column, rows [][]string) string {
	if len(cols) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(cols))
	configs := make([]table.ColumnConfig, len(cols))
	for i, c := range cols {
		header[i] = c.Title
		configs[i] = table.ColumnConfig{Number: i + 1, Align: c.Align, AlignHeader: text.AlignLeft}
		if c.Width > 0 {
			configs[i].WidthMax = c.Width
			configs[i].WidthMaxEnforcer = text.WrapHard
		}
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	multiline := false
	for _, row := range rows {
		r := make(table.Row, len(cols))
		for i := range r {
			cell := "-"
			if i < len(row) && row[i] != "" {
				cell = row[i]
			}
			multiline = multiline || strings.Contains(cell, "\n")
			r[i] = cell
		}
		tw.AppendRow(r)
	}
	tw.Style().Options.SeparateRows = multiline

	return tw.Render()
}
