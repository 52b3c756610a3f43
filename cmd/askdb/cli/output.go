package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/askdb/askdb/internal/model"
)

// Table rendering limits.
const (
	tableMaxRows  = 20
	tableMaxWidth = 50
)

// formatTable renders the first rows of result as a plain-text table. Cell
// values are cut to tableMaxWidth characters and the rows past tableMaxRows
// are counted in a trailing line.
func formatTable(result *model.QueryResult) string {
	if result == nil || len(result.Rows) == 0 {
		return "Sonuç bulunamadı."
	}

	rows := result.Rows
	if len(rows) > tableMaxRows {
		rows = rows[:tableMaxRows]
	}

	cells := make([][]string, len(rows))
	widths := make([]int, len(result.Columns))
	for i, col := range result.Columns {
		widths[i] = utf8.RuneCountInString(col)
	}
	for r, row := range rows {
		cells[r] = make([]string, len(result.Columns))
		for i, col := range result.Columns {
			v := truncateRunes(cellString(row, col), tableMaxWidth)
			cells[r][i] = v
			widths[i] = max(widths[i], utf8.RuneCountInString(v))
		}
	}

	var b strings.Builder
	header := make([]string, len(result.Columns))
	sep := make([]string, len(result.Columns))
	for i, col := range result.Columns {
		header[i] = pad(col, widths[i])
		sep[i] = strings.Repeat("-", widths[i])
	}
	b.WriteString(strings.Join(header, " | "))
	b.WriteString("\n")
	b.WriteString(strings.Join(sep, "-+-"))
	for _, row := range cells {
		line := make([]string, len(row))
		for i, v := range row {
			line[i] = pad(v, widths[i])
		}
		b.WriteString("\n")
		b.WriteString(strings.Join(line, " | "))
	}
	if extra := len(result.Rows) - tableMaxRows; extra > 0 {
		fmt.Fprintf(&b, "\n... ve %d satır daha", extra)
	}
	return b.String()
}

func cellString(row map[string]interface{}, col string) string {
	v, ok := row[col]
	if !ok {
		return ""
	}
	if v == nil {
		return "None"
	}
	return fmt.Sprint(v)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func pad(s string, width int) string {
	if n := utf8.RuneCountInString(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}

// printJSON writes v as indented JSON with non-ASCII text and SQL operators
// left unescaped.
func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
