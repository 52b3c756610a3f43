package learning

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/askdb/askdb/internal/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var fixedNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func newTestMemory(t *testing.T) (*Memory, string) {
	t.Helper()
	dir := t.TempDir()
	m, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	m.now = func() time.Time { return fixedNow }
	t.Cleanup(func() { m.Close() })
	return m, dir
}

func TestSaveCorrectionAssignsIDs(t *testing.T) {
	m, _ := newTestMemory(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		c, err := m.SaveCorrection(ctx, fmt.Sprintf("soru %d", i), "SELECT 1", "SELECT 2", "")
		if err != nil {
			t.Fatalf("SaveCorrection: %v", err)
		}
		if c.ID != i {
			t.Errorf("ID = %d, want %d", c.ID, i)
		}
		if c.UsedCount != 0 || !c.Timestamp.Equal(fixedNow) {
			t.Errorf("unexpected correction %+v", c)
		}
	}

	all, err := m.AllCorrections(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[2].Question != "soru 3" {
		t.Errorf("AllCorrections = %+v", all)
	}
}

func TestSaveCorrectionConcurrent(t *testing.T) {
	m, dir := newTestMemory(t)
	ctx := context.Background()

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := m.SaveCorrection(ctx, fmt.Sprintf("soru %d", i), "a", "b", ""); err != nil {
				t.Errorf("SaveCorrection: %v", err)
			}
		}(i)
	}
	wg.Wait()

	all, err := m.AllCorrections(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != n {
		t.Fatalf("len = %d, want %d", len(all), n)
	}
	seen := make(map[int]bool)
	for _, c := range all {
		seen[c.ID] = true
	}
	for id := 1; id <= n; id++ {
		if !seen[id] {
			t.Errorf("missing id %d", id)
		}
	}

	if _, err := os.Stat(filepath.Join(dir, CorrectionsFile)); err != nil {
		t.Errorf("corrections file: %v", err)
	}
}

func TestSimilarCorrections(t *testing.T) {
	m, _ := newTestMemory(t)
	ctx := context.Background()

	mustCorrect := func(q string) {
		t.Helper()
		if _, err := m.SaveCorrection(ctx, q, "wrong", "right", ""); err != nil {
			t.Fatal(err)
		}
	}
	mustCorrect("kaç sipariş var")
	mustCorrect("firma listesi")
	mustCorrect("bugün kaç sipariş girildi")
	mustCorrect("sipariş sayısı")

	got, err := m.SimilarCorrections(ctx, "bugün kaç sipariş var", 0)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"kaç sipariş var", "bugün kaç sipariş girildi", "sipariş sayısı"}
	if len(got) != len(want) {
		t.Fatalf("got %d corrections, want %d: %+v", len(got), len(want), got)
	}
	for i, q := range want {
		if got[i].Question != q {
			t.Errorf("got[%d] = %q, want %q", i, got[i].Question, q)
		}
	}

	got, err = m.SimilarCorrections(ctx, "bugün kaç sipariş var", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Errorf("limit not applied: %d", len(got))
	}
}

func TestSimilarCorrectionsOrderAndOverlap(t *testing.T) {
	m, _ := newTestMemory(t)
	ctx := context.Background()
	m.SaveCorrection(ctx, "kaç sipariş var", "a", "b", "")
	m.SaveCorrection(ctx, "firma listesi", "a", "b", "")

	got, _ := m.SimilarCorrections(ctx, "bugün kaç sipariş var", 3)
	if len(got) != 1 || got[0].Question != "kaç sipariş var" {
		t.Errorf("got %+v, want only \"kaç sipariş var\"", got)
	}

	got, _ = m.SimilarCorrections(ctx, "stok durumu", 3)
	if len(got) != 0 {
		t.Errorf("got %+v, want none", got)
	}
}

func TestSimilarCorrectionsTurkishCase(t *testing.T) {
	m, _ := newTestMemory(t)
	ctx := context.Background()
	m.SaveCorrection(ctx, "İPTAL edilen siparişler", "a", "b", "")

	got, _ := m.SimilarCorrections(ctx, "iptal sayısı", 3)
	if len(got) != 1 {
		t.Errorf("Turkish dotted capital I should fold to i: %+v", got)
	}

	m.SaveCorrection(ctx, "KAÇ SIPARIS VAR", "a", "b", "")
	got, _ = m.SimilarCorrections(ctx, "kaç siparis", 3)
	if len(got) != 1 || got[0].Question != "KAÇ SIPARIS VAR" {
		t.Errorf("ASCII capital I should fold to i: %+v", got)
	}
}

func TestLowerFoldsEveryI(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"INVOICE LIST", "invoice list"},
		{"İPTAL", "iptal"},
		{"SIPARIS", "siparis"},
		{"sayısı", "sayisi"},
		{"ÇOK ŞÜPHELİ ĞÖ", "çok şüpheli ğö"},
	}
	for _, tt := range tests {
		if got := lower(tt.in); got != tt.want {
			t.Errorf("lower(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAddLearnedExampleUpsert(t *testing.T) {
	m, _ := newTestMemory(t)
	ctx := context.Background()

	first, err := m.AddLearnedExample(ctx, "Dün kaç sipariş girildi", "SELECT 1", "ilk")
	if err != nil {
		t.Fatal(err)
	}
	if first.ID != 1 || first.SuccessCount != 1 || first.UpdatedAt != nil {
		t.Errorf("first = %+v", first)
	}

	second, err := m.AddLearnedExample(ctx, "dün KAÇ sipariş girildi", "SELECT 2", "ikinci")
	if err != nil {
		t.Fatal(err)
	}
	if second.ID != 1 || second.SQL != "SELECT 2" || second.UpdatedAt == nil {
		t.Errorf("second = %+v", second)
	}
	if second.Description != "ilk" || second.Question != "Dün kaç sipariş girildi" {
		t.Errorf("upsert should only replace sql and updated_at: %+v", second)
	}

	all, err := m.LearnedExamples(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 {
		t.Fatalf("len = %d, want 1", len(all))
	}
}

func TestAddLearnedExampleUpsertASCIICapitals(t *testing.T) {
	m, _ := newTestMemory(t)
	ctx := context.Background()

	if _, err := m.AddLearnedExample(ctx, "SIPARIS LISTESI", "SELECT 1", ""); err != nil {
		t.Fatal(err)
	}
	got, err := m.AddLearnedExample(ctx, "siparis listesi", "SELECT 2", "")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != 1 || got.SQL != "SELECT 2" {
		t.Errorf("got = %+v, want record 1 updated", got)
	}

	all, err := m.LearnedExamples(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 {
		t.Fatalf("len = %d, want 1", len(all))
	}
}

func TestLearnedExamplesOrder(t *testing.T) {
	m, _ := newTestMemory(t)
	ctx := context.Background()

	err := m.examples.Update(ctx, func([]model.LearnedExample) ([]model.LearnedExample, error) {
		return []model.LearnedExample{
			{ID: 1, Question: "a", SuccessCount: 1},
			{ID: 2, Question: "b", SuccessCount: 5},
			{ID: 3, Question: "c", SuccessCount: 1},
			{ID: 4, Question: "d", SuccessCount: 3},
		}, nil
	})
	if err != nil {
		t.Fatal(err)
	}

	got, err := m.LearnedExamples(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	var ids []int
	for _, ex := range got {
		ids = append(ids, ex.ID)
	}
	if fmt.Sprint(ids) != "[2 4 1]" {
		t.Errorf("order = %v, want [2 4 1]", ids)
	}
}

func TestFeedbackStats(t *testing.T) {
	m, _ := newTestMemory(t)
	ctx := context.Background()

	stats, err := m.FeedbackStats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats != (model.FeedbackStats{}) {
		t.Errorf("empty stats = %+v", stats)
	}

	for _, ok := range []bool{true, true, false, true} {
		if _, err := m.SaveFeedback(ctx, "q", "SELECT 1", ok, ""); err != nil {
			t.Fatal(err)
		}
	}
	stats, err = m.FeedbackStats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := model.FeedbackStats{Total: 4, Correct: 3, Incorrect: 1, Accuracy: 75}
	if stats != want {
		t.Errorf("stats = %+v, want %+v", stats, want)
	}
}

func TestFormatCorrectionsForPrompt(t *testing.T) {
	if got := FormatCorrectionsForPrompt(nil); got != "" {
		t.Errorf("empty list = %q", got)
	}
	got := FormatCorrectionsForPrompt([]model.Correction{
		{Question: "dün kaç sipariş", WrongSQL: "SELECT 1", CorrectSQL: "SELECT 2", Explanation: "P.UNVAN kullan"},
	})
	for _, want := range []string{"DÜZELTMELER", "Soru: dün kaç sipariş", "YANLIŞ: SELECT 1", "DOĞRU: SELECT 2", "P.UNVAN kullan"} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in:\n%s", want, got)
		}
	}
}

func TestFormatExamplesForPrompt(t *testing.T) {
	if got := FormatExamplesForPrompt(nil); got != "" {
		t.Errorf("empty list = %q", got)
	}
	got := FormatExamplesForPrompt([]model.LearnedExample{{Question: "firma listesi", SQL: "SELECT UNVAN FROM TOHOM_PARTI"}})
	if !strings.Contains(got, "ÖĞRENİLMİŞ") || !strings.Contains(got, "SQL: SELECT UNVAN FROM TOHOM_PARTI") {
		t.Errorf("unexpected block:\n%s", got)
	}
}

func TestReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	m, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	m.SaveCorrection(ctx, "soru", "a", "b", "")
	m.SaveFeedback(ctx, "soru", "b", true, "")
	m.Close()

	m2, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer m2.Close()
	all, _ := m2.AllCorrections(ctx)
	if len(all) != 1 {
		t.Errorf("corrections after reopen = %d", len(all))
	}
	c, _ := m2.SaveCorrection(ctx, "soru 2", "a", "b", "")
	if c.ID != 2 {
		t.Errorf("ID after reopen = %d, want 2", c.ID)
	}
}
