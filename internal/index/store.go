package index

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"

	"github.com/askdb/askdb/internal/embedding"
	"github.com/askdb/askdb/internal/model"
)

// Artifact file names inside an index directory.
const (
	DocumentsFile  = "documents.json"
	MetadataFile   = "metadata.json"
	EmbeddingsFile = "embeddings.bin"
)

// maxVectors bounds the header of embeddings.bin so a corrupt file cannot
// trigger a huge allocation.
const maxVectors = 1 << 24

// Save writes the three index artifacts to dir, creating it if needed.
func (ix *Index) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create index directory: %w", err)
	}

	texts := make([]string, len(ix.docs))
	meta := make([]model.Metadata, len(ix.docs))
	for i, d := range ix.docs {
		texts[i] = d.Text
		meta[i] = d.Metadata()
	}

	if err := writeJSON(filepath.Join(dir, DocumentsFile), texts); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(dir, MetadataFile), meta); err != nil {
		return err
	}
	return writeVectors(filepath.Join(dir, EmbeddingsFile), ix.vectors, ix.dim)
}

// Load reads an index saved by Save. engine embeds queries at search time and
// must be the engine the index was built with.
func Load(dir string, engine embedding.Engine) (*Index, error) {
	var texts []string
	if err := readJSON(filepath.Join(dir, DocumentsFile), &texts); err != nil {
		return nil, err
	}
	var meta []model.Metadata
	if err := readJSON(filepath.Join(dir, MetadataFile), &meta); err != nil {
		return nil, err
	}
	vectors, err := readVectors(filepath.Join(dir, EmbeddingsFile))
	if err != nil {
		return nil, err
	}

	if len(texts) != len(meta) || len(texts) != len(vectors) {
		return nil, fmt.Errorf("%w: artifact lengths disagree: %d documents, %d metadata, %d vectors",
			ErrIndexUnavailable, len(texts), len(meta), len(vectors))
	}

	docs := make([]model.Document, len(texts))
	for i, m := range meta {
		d, err := m.Document(texts[i])
		if err != nil {
			return nil, fmt.Errorf("%w: metadata %d: %v", ErrIndexUnavailable, i, err)
		}
		docs[i] = d
	}
	return newIndex(engine, docs, vectors)
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s not found", ErrIndexUnavailable, filepath.Base(path))
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: parse %s: %v", ErrIndexUnavailable, filepath.Base(path), err)
	}
	return nil
}

// writeVectors stores count and dim as little-endian uint32 followed by the
// float32 values row by row.
func writeVectors(path string, vectors [][]float32, dim int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", EmbeddingsFile, err)
	}
	w := bufio.NewWriter(f)

	header := [2]uint32{uint32(len(vectors)), uint32(dim)}
	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", EmbeddingsFile, err)
	}
	for _, v := range vectors {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			f.Close()
			return fmt.Errorf("write %s: %w", EmbeddingsFile, err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", EmbeddingsFile, err)
	}
	return f.Close()
}

func readVectors(path string) ([][]float32, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s not found", ErrIndexUnavailable, EmbeddingsFile)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", EmbeddingsFile, err)
	}
	defer f.Close()
	r := bufio.NewReader(f)

	var header [2]uint32
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("%w: read %s header: %v", ErrIndexUnavailable, EmbeddingsFile, err)
	}
	count, dim := int(header[0]), int(header[1])
	if count > maxVectors || dim > maxVectors || (count > 0 && dim == 0) {
		return nil, fmt.Errorf("%w: implausible %s header: count=%d dim=%d", ErrIndexUnavailable, EmbeddingsFile, count, dim)
	}

	vectors := make([][]float32, count)
	for i := range vectors {
		v := make([]float32, dim)
		if err := binary.Read(r, binary.LittleEndian, v); err != nil {
			return nil, fmt.Errorf("%w: %s truncated at vector %d: %v", ErrIndexUnavailable, EmbeddingsFile, i, err)
		}
		for _, x := range v {
			if math.IsNaN(float64(x)) {
				return nil, fmt.Errorf("%w: %s vector %d contains NaN", ErrIndexUnavailable, EmbeddingsFile, i)
			}
		}
		vectors[i] = v
	}
	if _, err := r.ReadByte(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data in %s", ErrIndexUnavailable, EmbeddingsFile)
	}
	return vectors, nil
}
