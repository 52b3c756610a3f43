// Package retrieval selects the schema fragments relevant to a question.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/askdb/askdb/internal/index"
	"github.com/askdb/askdb/internal/model"
)

// ErrRetrievalUnavailable wraps any failure to search the index.
var ErrRetrievalUnavailable = errors.New("retrieval unavailable")

// DefaultMinScore is the relevance floor. Only results scoring strictly above
// it contribute to the context.
const DefaultMinScore = 0.3

// contextSeparator joins document texts in Context.Text.
const contextSeparator = "\n\n---\n\n"

// Searcher is the part of *index.Index the retriever needs.
type Searcher interface {
	Search(ctx context.Context, query string, topK int) ([]index.Result, error)
}

// Context is the retrieved material for one question.
type Context struct {
	// Text is the texts of the relevant documents in rank order.
	Text string `json:"context"`
	// Tables names the relevant table documents, sorted, without duplicates.
	Tables []string `json:"tables"`
	// Results holds every ranked hit, including those below the floor.
	Results []index.Result `json:"results"`
	// Keywords are the content words of the question.
	Keywords []string `json:"keywords"`
}

// Retriever thresholds index results into a prompt context.
type Retriever struct {
	searcher Searcher
	topK     int
	minScore float64
}

// New creates a Retriever. topK <= 0 selects index.DefaultTopK; a negative
// minScore selects DefaultMinScore.
func New(searcher Searcher, topK int, minScore float64) *Retriever {
	if topK <= 0 {
		topK = index.DefaultTopK
	}
	if minScore < 0 {
		minScore = DefaultMinScore
	}
	return &Retriever{searcher: searcher, topK: topK, minScore: minScore}
}

// GetRelevantContext searches for question and keeps the results scoring
// above the relevance floor. topK <= 0 uses the retriever default.
func (r *Retriever) GetRelevantContext(ctx context.Context, question string, topK int) (*Context, error) {
	if topK <= 0 {
		topK = r.topK
	}

	results, err := r.searcher.Search(ctx, question, topK)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRetrievalUnavailable, err)
	}

	var parts []string
	seen := make(map[string]bool)
	tables := []string{}
	for _, res := range results {
		if res.Score <= r.minScore {
			continue
		}
		parts = append(parts, res.Document.Text)
		if res.Document.Kind == model.KindTable && !seen[res.Document.Name] {
			seen[res.Document.Name] = true
			tables = append(tables, res.Document.Name)
		}
	}
	sort.Strings(tables)

	return &Context{
		Text:     strings.Join(parts, contextSeparator),
		Tables:   tables,
		Results:  results,
		Keywords: Keywords(question),
	}, nil
}
