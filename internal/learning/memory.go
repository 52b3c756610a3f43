// Package learning keeps the human feedback that steers future generations:
// corrections of wrong queries, confirmed-good learned examples, and the
// feedback audit log. Each lives in its own JSON collection in the data
// directory.
package learning

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/askdb/askdb/internal/jsonstore"
	"github.com/askdb/askdb/internal/model"
)

// Collection file names inside the data directory.
const (
	CorrectionsFile = "corrections.json"
	ExamplesFile    = "learned_examples.json"
	FeedbackFile    = "feedback.json"
)

// Default limits.
const (
	DefaultCorrectionLimit = 3
	DefaultExampleLimit    = 10
)

// Memory owns the three learning collections.
type Memory struct {
	corrections *jsonstore.Collection[model.Correction]
	examples    *jsonstore.Collection[model.LearnedExample]
	feedback    *jsonstore.Collection[model.Feedback]

	now func() time.Time
}

// Open opens (or creates on first write) the collections under dataDir.
func Open(dataDir string) (*Memory, error) {
	corrections, err := jsonstore.Open[model.Correction](filepath.Join(dataDir, CorrectionsFile))
	if err != nil {
		return nil, fmt.Errorf("open corrections: %w", err)
	}
	examples, err := jsonstore.Open[model.LearnedExample](filepath.Join(dataDir, ExamplesFile))
	if err != nil {
		corrections.Close()
		return nil, fmt.Errorf("open learned examples: %w", err)
	}
	feedback, err := jsonstore.Open[model.Feedback](filepath.Join(dataDir, FeedbackFile))
	if err != nil {
		corrections.Close()
		examples.Close()
		return nil, fmt.Errorf("open feedback: %w", err)
	}

	return &Memory{
		corrections: corrections,
		examples:    examples,
		feedback:    feedback,
		now:         time.Now,
	}, nil
}

// Close stops the collection writers.
func (m *Memory) Close() error {
	return errors.Join(m.corrections.Close(), m.examples.Close(), m.feedback.Close())
}

// dotlessI maps the Turkish I variants to plain "i" so questions typed with
// a Turkish or an English keyboard fold to the same key.
var dotlessI = strings.NewReplacer("İ", "i", "I", "i", "ı", "i")

// lower folds s case-insensitively. "I", "İ" and "ı" all become "i". A
// Caser is not safe for concurrent use.
func lower(s string) string {
	return cases.Lower(language.Und).String(dotlessI.Replace(s))
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(lower(s)) {
		set[w] = struct{}{}
	}
	return set
}
