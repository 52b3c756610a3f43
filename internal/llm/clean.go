package llm

import (
	"regexp"
	"strings"
)

// commentaryPrefixes end the SQL when a line starts with one of them
// (case-insensitive).
var commentaryPrefixes = []string{"bu sorgu", "açıklama", "not:", "this query", "explanation", "note:"}

var (
	selectFallback = regexp.MustCompile(`(?is)SELECT\s+.+`)
	whitespaceRun  = regexp.MustCompile(`\s+`)
)

// CleanSQL extracts a single SELECT statement from raw model output. It
// strips markdown fences, starts at the first line beginning with SELECT,
// skips comment lines and stops at the first commentary line. The second
// return value is false when no SELECT could be found.
func CleanSQL(raw string) (string, bool) {
	if strings.TrimSpace(raw) == "" {
		return "", false
	}

	text := strings.ReplaceAll(raw, "```sql", "")
	text = strings.ReplaceAll(text, "```SQL", "")
	text = strings.ReplaceAll(text, "```", "")

	var lines []string
	started := false
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if !started && strings.HasPrefix(strings.ToUpper(line), "SELECT") {
			started = true
		}
		if !started {
			continue
		}
		if strings.HasPrefix(line, "--") || strings.HasPrefix(line, "#") {
			continue
		}
		if isCommentary(line) {
			break
		}
		if line != "" {
			lines = append(lines, line)
		}
	}

	var sql string
	if len(lines) == 0 {
		m := selectFallback.FindString(text)
		if m == "" {
			return "", false
		}
		sql = m
	} else {
		sql = strings.Join(lines, " ")
	}

	sql = whitespaceRun.ReplaceAllString(sql, " ")
	sql = strings.TrimRight(strings.TrimSpace(sql), ";")
	sql = strings.TrimSpace(sql)

	if !strings.HasPrefix(strings.ToUpper(sql), "SELECT") {
		return "", false
	}
	return sql, true
}

func isCommentary(line string) bool {
	l := strings.ToLower(line)
	for _, p := range commentaryPrefixes {
		if strings.HasPrefix(l, p) {
			return true
		}
	}
	return false
}
