package llm

import "testing"

func TestCleanSQL(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
		ok   bool
	}{
		{"fenced with commentary", "```sql\nSELECT 1\n```\nBu sorgu basit.", "SELECT 1", true},
		{"plain", "SELECT * FROM TOHOM_SIPARIS", "SELECT * FROM TOHOM_SIPARIS", true},
		{"multiline collapsed", "SELECT COUNT(*) AS SiparisAdedi\n  FROM TOHOM_SIPARIS\n  WHERE TIP = 0;", "SELECT COUNT(*) AS SiparisAdedi FROM TOHOM_SIPARIS WHERE TIP = 0", true},
		{"preamble skipped", "İşte sorgu:\n\nselect a\nfrom t", "select a from t", true},
		{"comment lines dropped", "SELECT a\n-- firma adı\nFROM t\n# not\nWHERE b = 1", "SELECT a FROM t WHERE b = 1", true},
		{"turkish explanation stops", "SELECT a FROM t\nAçıklama: a kolonunu getirir\nSELECT b", "SELECT a FROM t", true},
		{"not prefix stops", "SELECT a FROM t\nNot: tarih filtresi yok", "SELECT a FROM t", true},
		{"english note stops", "SELECT a FROM t\nThis query returns a", "SELECT a FROM t", true},
		{"explanation stops", "SELECT a FROM t\nExplanation: none", "SELECT a FROM t", true},
		{"note stops", "SELECT a FROM t\nNote: none", "SELECT a FROM t", true},
		{"trailing semicolons", "SELECT 1;;", "SELECT 1", true},
		{"inline select fallback", "Sorgu şu: SELECT a FROM t;", "SELECT a FROM t", true},
		{"empty", "", "", false},
		{"whitespace", "   \n  ", "", false},
		{"no select", "Bu soruyu anlayamadım.", "", false},
		{"only fences", "```sql\n```", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CleanSQL(tt.raw)
			if ok != tt.ok {
				t.Fatalf("CleanSQL(%q) ok = %v, want %v (got %q)", tt.raw, ok, tt.ok, got)
			}
			if got != tt.want {
				t.Errorf("CleanSQL(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}
