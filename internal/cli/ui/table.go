package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Table renders rows under aligned, highlighted headers. Column widths
// come from the widest cell.
type Table struct {
	w       io.Writer
	headers []string
	rows    [][]string
	noColor bool
}

func NewTable(w io.Writer, headers []string, noColor bool) *Table {
	return &Table{w: w, headers: headers, noColor: noColor}
}

func (t *Table) AddRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

func (t *Table) Render() {
	if len(t.headers) == 0 {
		return
	}

	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = len(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	head := color.New(color.Bold, color.FgCyan)
	rule := color.New(color.FgHiBlack)
	if t.noColor {
		head.DisableColor()
		rule.DisableColor()
	}

	for i, h := range t.headers {
		if i == len(t.headers)-1 {
			head.Fprint(t.w, h)
			break
		}
		head.Fprint(t.w, padRight(h, widths[i]))
		fmt.Fprint(t.w, "  ")
	}
	fmt.Fprintln(t.w)

	for i, width := range widths {
		rule.Fprint(t.w, strings.Repeat("─", width))
		if i < len(widths)-1 {
			fmt.Fprint(t.w, "  ")
		}
	}
	fmt.Fprintln(t.w)

	for _, row := range t.rows {
		for i, cell := range row {
			if i >= len(widths) {
				break
			}
			if i == len(row)-1 || i == len(widths)-1 {
				fmt.Fprint(t.w, cell)
				break
			}
			fmt.Fprint(t.w, padRight(cell, widths[i]))
			fmt.Fprint(t.w, "  ")
		}
		fmt.Fprintln(t.w)
	}
}

// KeyValueTable lines up "key: value" pairs on the colon.
type KeyValueTable struct {
	w       io.Writer
	keys    []string
	values  []string
	noColor bool
}

func NewKeyValueTable(w io.Writer, noColor bool) *KeyValueTable {
	return &KeyValueTable{w: w, noColor: noColor}
}

func (t *KeyValueTable) AddRow(key, value string) {
	t.keys = append(t.keys, key)
	t.values = append(t.values, value)
}

func (t *KeyValueTable) Render() {
	width := 0
	for _, k := range t.keys {
		if len(k) > width {
			width = len(k)
		}
	}
	cyan := color.New(color.FgCyan)
	if t.noColor {
		cyan.DisableColor()
	}
	for i, k := range t.keys {
		cyan.Fprint(t.w, padRight(k+":", width+1))
		fmt.Fprintf(t.w, " %s\n", t.values[i])
	}
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
