package query

import (
	"strings"
	"testing"
)

func TestValidateIdentifier(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
		errMsg  string
	}{
		{"valid simple", "name", false, ""},
		{"valid underscore prefix", "_id", false, ""},
		{"valid with numbers", "col123", false, ""},
		{"valid mixed", "user_name_2", false, ""},
		{"empty", "", true, "cannot be empty"},
		{"starts with number", "1col", true, "must match"},
		{"contains space", "col name", true, "must match"},
		{"contains dash", "col-name", true, "must match"},
		{"contains semicolon", "col;name", true, "must match"},
		{"SQL injection attempt", "1; DROP TABLE--", true, "must match"},
		{"erp table name", "TOHOM_SIPARIS_SATIRI", false, ""},
		{"reserved word SELECT", "SELECT", true, "reserved word"},
		{"reserved word drop", "drop", true, "reserved word"},
		{"reserved word Union", "Union", true, "reserved word"},
		{"too long", strings.Repeat("a", 129), true, "too long"},
		{"max length ok", strings.Repeat("a", 128), false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateIdentifier(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error for %q, got nil", tt.input)
				} else if tt.errMsg != "" && !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("expected error containing %q, got %q", tt.errMsg, err.Error())
				}
			} else {
				if err != nil {
					t.Errorf("unexpected error for %q: %v", tt.input, err)
				}
			}
		})
	}
}
