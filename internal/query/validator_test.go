package query

import (
	"errors"
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		sql    string
		valid  bool
		errMsg string
	}{
		{"simple select", "SELECT 1", true, ""},
		{"lowercase select", "select * from TOHOM_SIPARIS", true, ""},
		{"trailing semicolon", "SELECT * FROM TOHOM_SIPARIS;", true, ""},
		{"leading whitespace", "  \n SELECT 1", true, ""},
		{"erp filter", "SELECT * FROM TOHOM_SIPARIS WHERE TIP = 0", true, ""},
		{"identifier containing CREATE", "SELECT * FROM ORDERS_CREATEDATE", true, ""},
		{"identifier containing UPDATE", "SELECT UPDATED_AT FROM t", true, ""},
		{"identifier containing EXEC", "SELECT EXECUTOR FROM t", true, ""},
		{"turkish literal", "SELECT * FROM t WHERE UNVAN = 'Çağrı İnşaat'", true, ""},

		{"empty", "", false, ReasonEmpty},
		{"whitespace only", "   \t\n", false, ReasonEmpty},
		{"drop", "DROP TABLE x", false, "DROP statements are not allowed"},
		{"update", "UPDATE users SET name = 'x'", false, "UPDATE statements are not allowed"},
		{"with cte", "WITH x AS (SELECT 1) SELECT * FROM x", false, "only SELECT"},
		{"blocked keyword in subquery", "SELECT * FROM (DELETE FROM t) x", false, "blocked keyword not allowed: DELETE"},
		{"blocked keyword lowercase", "select * from t where x = 1 or drop", false, "blocked keyword not allowed: DROP"},
		{"stacked query", "SELECT * FROM t; DELETE FROM t", false, "blocked keyword not allowed: DELETE"},
		{"stacked select", "SELECT 1; SELECT 2", false, ReasonMultipleStatement},
		{"two trailing semicolons", "SELECT 1;;", false, ReasonMultipleStatement},
		{"line comment", "SELECT * FROM t -- drop later", false, "blocked keyword not allowed: DROP"},
		{"line comment only", "SELECT * FROM t -- later", false, ReasonComments},
		{"block comment", "SELECT /* x */ 1", false, ReasonComments},
		{"xp_cmdshell", "SELECT * FROM OPENQUERY(x, 'xp_cmdshell dir')", false, "dangerous function not allowed: xp_cmdshell"},
		{"sp_executesql", "SELECT sp_executesql", false, "dangerous function not allowed: sp_execute"},
		{"execute call", "SELECT EXECUTE('x')", false, "dangerous function not allowed: execute("},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Validate(tt.sql)
			if got.IsValid != tt.valid {
				t.Fatalf("Validate(%q).IsValid = %v, want %v (message %q)", tt.sql, got.IsValid, tt.valid, got.ErrorMessage)
			}
			if tt.valid {
				if got.ErrorMessage != "" {
					t.Errorf("valid result carries message %q", got.ErrorMessage)
				}
				return
			}
			if !strings.Contains(got.ErrorMessage, tt.errMsg) {
				t.Errorf("message = %q, want it to contain %q", got.ErrorMessage, tt.errMsg)
			}
		})
	}
}

func TestValidateRejectsEveryBlockedKeyword(t *testing.T) {
	for _, kw := range BlockedKeywords {
		for _, sql := range []string{
			"SELECT * FROM t WHERE " + kw,
			"SELECT " + strings.ToLower(kw) + " FROM t",
			"SELECT a FROM t WHERE (" + kw + ")",
		} {
			if res := Validate(sql); res.IsValid {
				t.Errorf("Validate(%q) accepted blocked keyword %s", sql, kw)
			}
		}
	}
}

func TestResultErr(t *testing.T) {
	if err := Validate("SELECT 1").Err(); err != nil {
		t.Errorf("valid result Err() = %v, want nil", err)
	}

	err := Validate("SELECT 1; SELECT 2").Err()
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, ErrValidationRejected) {
		t.Errorf("errors.Is(%v, ErrValidationRejected) = false", err)
	}
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("errors.As failed for %T", err)
	}
	if ve.Reason != ReasonMultipleStatement {
		t.Errorf("Reason = %q, want %q", ve.Reason, ReasonMultipleStatement)
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"SELECT 1", "SELECT 1"},
		{"SELECT 1;", "SELECT 1"},
		{"SELECT 1 ; ;", "SELECT 1"},
		{"  SELECT\n\t*   FROM t  ", "SELECT * FROM t"},
		{"", ""},
		{";", ""},
	}
	for _, tt := range tests {
		if got := Sanitize(tt.in); got != tt.want {
			t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeIdempotent(t *testing.T) {
	inputs := []string{
		"SELECT 1",
		"SELECT 1;;",
		" SELECT   a ,\tb\nFROM t ; ",
		"SELECT ';' FROM t;",
		"\t;\n",
		"SELECT 'a  b'   FROM t",
	}
	for _, in := range inputs {
		once := Sanitize(in)
		if twice := Sanitize(once); twice != once {
			t.Errorf("Sanitize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}
