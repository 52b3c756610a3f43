package service

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/askdb/askdb/internal/model"
)

var greetings = []string{"merhaba", "selam", "hey", "hi", "hello", "günaydın", "iyi günler"}

// IsGreeting reports whether question is a short greeting (at most three
// words, one of which is a greeting word or phrase).
func IsGreeting(question string) bool {
	words := strings.Fields(strings.ToLower(question))
	if len(words) == 0 || len(words) > 3 {
		return false
	}
	for i, w := range words {
		words[i] = strings.Trim(w, ".,!?;:")
	}
	joined := " " + strings.Join(words, " ") + " "
	for _, g := range greetings {
		if strings.Contains(joined, " "+g+" ") {
			return true
		}
	}
	return false
}

// Summarize renders a one-line Turkish answer for result. A single row with
// at most three columns is spelled out; anything larger is counted.
func Summarize(result *model.QueryResult) string {
	if result == nil || len(result.Rows) == 0 {
		return "Sonuç bulunamadı."
	}
	if len(result.Rows) == 1 && len(result.Rows[0]) <= 3 {
		row := result.Rows[0]
		p := message.NewPrinter(language.Turkish)

		cols := rowColumns(result.Columns, row)
		parts := make([]string, 0, len(cols))
		for _, col := range cols {
			parts = append(parts, fmt.Sprintf("**%s**: %s", col, formatValue(p, row[col])))
		}
		return strings.Join(parts, " | ")
	}
	return fmt.Sprintf("%d kayıt bulundu.", len(result.Rows))
}

// rowColumns returns the keys of row in result column order, without
// duplicates, followed by any remaining keys in sorted order.
func rowColumns(columns []string, row map[string]interface{}) []string {
	cols := make([]string, 0, len(row))
	seen := make(map[string]bool, len(row))
	for _, c := range columns {
		if _, ok := row[c]; ok && !seen[c] {
			seen[c] = true
			cols = append(cols, c)
		}
	}
	var rest []string
	for k := range row {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(cols, rest...)
}

func formatValue(p *message.Printer, v interface{}) string {
	switch n := v.(type) {
	case int:
		return p.Sprintf("%.2f", float64(n))
	case int32:
		return p.Sprintf("%.2f", float64(n))
	case int64:
		return p.Sprintf("%.2f", float64(n))
	case float32:
		return p.Sprintf("%.2f", float64(n))
	case float64:
		return p.Sprintf("%.2f", n)
	case nil:
		return "None"
	default:
		return fmt.Sprint(v)
	}
}
