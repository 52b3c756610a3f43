// Package index holds the schema documents, their embeddings and metadata,
// and answers nearest-neighbour queries over them.
//
// An Index is built once (Build or Load) and never mutated afterwards, so a
// single handle is safe to share between goroutines.
package index

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/askdb/askdb/internal/embedding"
	"github.com/askdb/askdb/internal/model"
)

// ErrIndexUnavailable is returned when the index artifacts are missing or
// inconsistent, or when a query vector does not match the index dimension.
var ErrIndexUnavailable = errors.New("embedding index unavailable")

// DefaultTopK is used when Search is called with topK <= 0.
const DefaultTopK = 5

// Result is one ranked search hit.
type Result struct {
	Document model.Document `json:"-"`
	Text     string         `json:"document"`
	Score    float64        `json:"score"`
	Metadata model.Metadata `json:"metadata"`
}

// Index is an immutable set of documents with parallel embedding vectors.
type Index struct {
	engine  embedding.Engine
	docs    []model.Document
	vectors [][]float32
	dim     int
}

// Build embeds every document with engine in one batch.
func Build(ctx context.Context, engine embedding.Engine, docs []model.Document) (*Index, error) {
	if len(docs) == 0 {
		return nil, fmt.Errorf("build index: no documents")
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
	}

	vectors, err := engine.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}
	return newIndex(engine, docs, vectors)
}

func newIndex(engine embedding.Engine, docs []model.Document, vectors [][]float32) (*Index, error) {
	if len(docs) != len(vectors) {
		return nil, fmt.Errorf("%w: %d documents but %d vectors", ErrIndexUnavailable, len(docs), len(vectors))
	}
	dim := 0
	for i, v := range vectors {
		if i == 0 {
			dim = len(v)
		}
		if len(v) == 0 || len(v) != dim {
			return nil, fmt.Errorf("%w: vector %d has dimension %d, want %d", ErrIndexUnavailable, i, len(v), dim)
		}
	}
	return &Index{engine: engine, docs: docs, vectors: vectors, dim: dim}, nil
}

// Len returns the number of indexed documents.
func (ix *Index) Len() int { return len(ix.docs) }

// Dim returns the embedding dimension.
func (ix *Index) Dim() int { return ix.dim }

// Documents returns a copy of the indexed documents in insertion order.
func (ix *Index) Documents() []model.Document {
	out := make([]model.Document, len(ix.docs))
	copy(out, ix.docs)
	return out
}

// MissingTables returns the indexed table names that are not in existing,
// compared case-insensitively, in insertion order.
func (ix *Index) MissingTables(existing []string) []string {
	have := make(map[string]bool, len(existing))
	for _, name := range existing {
		have[strings.ToUpper(name)] = true
	}
	var missing []string
	for _, d := range ix.docs {
		if d.Kind == model.KindTable && !have[strings.ToUpper(d.Name)] {
			missing = append(missing, d.Name)
		}
	}
	return missing
}

// Search embeds query and returns the topK most similar documents, highest
// score first. Equal scores keep insertion order.
func (ix *Index) Search(ctx context.Context, query string, topK int) ([]Result, error) {
	if ix.engine == nil {
		return nil, fmt.Errorf("%w: no embedding engine attached", ErrIndexUnavailable)
	}
	vec, err := ix.engine.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return ix.SearchVector(vec, topK)
}

// SearchVector ranks the index against an already embedded query.
func (ix *Index) SearchVector(vec []float32, topK int) ([]Result, error) {
	if len(vec) != ix.dim {
		return nil, fmt.Errorf("%w: query dimension %d, index dimension %d", ErrIndexUnavailable, len(vec), ix.dim)
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	results := make([]Result, len(ix.docs))
	for i, d := range ix.docs {
		score, err := embedding.CosineSimilarity(vec, ix.vectors[i])
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
		}
		results[i] = Result{Document: d, Text: d.Text, Score: score, Metadata: d.Metadata()}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}
