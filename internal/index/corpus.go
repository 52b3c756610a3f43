package index

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/askdb/askdb/internal/model"
	"github.com/askdb/askdb/internal/query"
)

// Layout of a schema directory.
const (
	TablesDir    = "tables"
	PatternsFile = "query_patterns.txt"

	patternSeparator = "##"
)

// LoadDocuments reads the schema corpus under dir: one table document per
// tables/*.txt file, named after the file stem, followed by one pattern
// document per "##"-separated block of query_patterns.txt. A missing tables
// directory or patterns file is skipped, and so is a table file whose stem is
// not a valid identifier (logged as a warning).
func LoadDocuments(dir string, logger *slog.Logger) ([]model.Document, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var docs []model.Document

	tables, err := loadTables(filepath.Join(dir, TablesDir), logger)
	if err != nil {
		return nil, err
	}
	docs = append(docs, tables...)

	patterns, err := loadPatterns(filepath.Join(dir, PatternsFile))
	if err != nil {
		return nil, err
	}
	docs = append(docs, patterns...)

	if len(docs) == 0 {
		return nil, fmt.Errorf("no schema documents found in %s", dir)
	}
	return docs, nil
}

func loadTables(dir string, logger *slog.Logger) ([]model.Document, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read tables directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".txt" {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	docs := make([]model.Document, 0, len(names))
	for _, name := range names {
		table := strings.TrimSuffix(name, ".txt")
		if err := query.ValidateIdentifier(table); err != nil {
			logger.Warn("skipping table file", "file", name, "error", err)
			continue
		}
		content, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read table file: %w", err)
		}
		docs = append(docs, model.TableDocument(table, string(content)))
	}
	return docs, nil
}

func loadPatterns(path string) ([]model.Document, error) {
	content, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read patterns file: %w", err)
	}
	return SplitPatterns(string(content)), nil
}

// SplitPatterns splits a patterns file on "##" and returns one pattern
// document per non-empty trimmed block.
func SplitPatterns(content string) []model.Document {
	var docs []model.Document
	for _, block := range strings.Split(content, patternSeparator) {
		if block = strings.TrimSpace(block); block != "" {
			docs = append(docs, model.PatternDocument(block))
		}
	}
	return docs
}
