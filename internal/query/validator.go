// Package query is the safety gate in front of the query database. Every
// statement, whether generated by the language model or typed by a reviewer,
// passes Validate before it is executed.
//
// Only single SELECT statements are accepted. The whitelist check on the
// leading token is the boundary; the keyword and function blocklists that
// follow are defense in depth and are not assumed to be complete.
package query

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrValidationRejected is matched by every ValidationError.
var ErrValidationRejected = errors.New("query rejected by validator")

// AllowedOperations are the statement types that may be executed.
var AllowedOperations = []string{"SELECT"}

// BlockedKeywords must not appear as whole words anywhere in a statement.
var BlockedKeywords = []string{"DROP", "DELETE", "UPDATE", "INSERT", "TRUNCATE", "ALTER", "CREATE", "EXEC"}

// DangerousPatterns are matched case-insensitively as plain substrings.
var DangerousPatterns = []string{"xp_cmdshell", "sp_execute", "exec(", "execute("}

// blockedKeywordRegexes holds one word-boundary pattern per blocked keyword,
// so CREATEDATE or UPDATED_AT inside an identifier does not match.
var blockedKeywordRegexes = compileKeywordRegexes(BlockedKeywords)

var whitespaceRegex = regexp.MustCompile(`\s+`)

func compileKeywordRegexes(keywords []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(keywords))
	for i, kw := range keywords {
		out[i] = regexp.MustCompile(`\b` + regexp.QuoteMeta(kw) + `\b`)
	}
	return out
}

// Rejection reasons. They are shown to the user as-is.
const (
	ReasonEmpty             = "empty query"
	ReasonMultipleStatement = "multiple statements detected"
	ReasonComments          = "comments not allowed"
)

// ValidationError describes why a statement was rejected.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// Is reports whether target is ErrValidationRejected.
func (e *ValidationError) Is(target error) bool { return target == ErrValidationRejected }

// Result is the outcome of Validate.
type Result struct {
	IsValid      bool   `json:"is_valid"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// Err returns nil for a valid result and a *ValidationError otherwise.
func (r Result) Err() error {
	if r.IsValid {
		return nil
	}
	return &ValidationError{Reason: r.ErrorMessage}
}

func reject(reason string) Result {
	return Result{IsValid: false, ErrorMessage: reason}
}

// Validate applies the safety checks in order and reports the first failure.
func Validate(sql string) Result {
	upper := strings.ToUpper(strings.TrimSpace(sql))
	if upper == "" {
		return reject(ReasonEmpty)
	}

	// 1. Whitelist on the leading token.
	first := strings.Fields(upper)[0]
	if !contains(AllowedOperations, first) {
		return reject(fmt.Sprintf("%s statements are not allowed: only %s statements can be executed",
			first, strings.Join(AllowedOperations, ", ")))
	}

	// 2. Blocked keywords as whole words.
	for i, re := range blockedKeywordRegexes {
		if re.MatchString(upper) {
			return reject("blocked keyword not allowed: " + BlockedKeywords[i])
		}
	}

	// 3. Stacked statements. One trailing semicolon is tolerated.
	if strings.Count(strings.TrimSuffix(strings.TrimSpace(sql), ";"), ";") > 0 {
		return reject(ReasonMultipleStatement)
	}

	// 4. Comments can hide a second statement from the checks above.
	if strings.Contains(sql, "--") || strings.Contains(sql, "/*") {
		return reject(ReasonComments)
	}

	// 5. Procedure and dynamic-execution calls.
	lower := strings.ToLower(sql)
	for _, p := range DangerousPatterns {
		if strings.Contains(lower, strings.ToLower(p)) {
			return reject("dangerous function not allowed: " + p)
		}
	}

	return Result{IsValid: true}
}

// Sanitize normalizes a statement for execution: it drops trailing
// semicolons and collapses whitespace runs to single spaces. It performs no
// safety checks and must only be applied to statements that passed Validate.
func Sanitize(sql string) string {
	sql = strings.TrimRight(sql, "; \t\r\n")
	sql = whitespaceRegex.ReplaceAllString(sql, " ")
	return strings.TrimSpace(sql)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
