package model

import "fmt"

// DocKind is the closed set of schema document kinds held by the index.
type DocKind int

const (
	// KindTable documents describe one table and carry its name.
	KindTable DocKind = iota + 1
	// KindPattern documents hold one block of query idioms.
	KindPattern
)

// String returns the persisted name of the kind.
func (k DocKind) String() string {
	switch k {
	case KindTable:
		return "table"
	case KindPattern:
		return "pattern"
	default:
		return fmt.Sprintf("DocKind(%d)", int(k))
	}
}

// Document is a unit of schema knowledge indexed for retrieval. Documents are
// immutable once an index has been built from them.
type Document struct {
	Text string
	Kind DocKind
	Name string // table name, empty for patterns
}

// TableDocument returns a document describing the named table.
func TableDocument(name, text string) Document {
	return Document{Text: text, Kind: KindTable, Name: name}
}

// PatternDocument returns a query-pattern document.
func PatternDocument(text string) Document {
	return Document{Text: text, Kind: KindPattern}
}

// Metadata is the persisted form of a document's kind.
type Metadata struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
}

// Metadata returns the persisted metadata for d.
func (d Document) Metadata() Metadata {
	m := Metadata{Type: d.Kind.String()}
	if d.Kind == KindTable {
		m.Name = d.Name
	}
	return m
}

// Document rebuilds a document from its text and persisted metadata. An
// unknown type is an error so that every loaded document has a known kind.
func (m Metadata) Document(text string) (Document, error) {
	switch m.Type {
	case "table":
		if m.Name == "" {
			return Document{}, fmt.Errorf("table document without a name")
		}
		return TableDocument(m.Name, text), nil
	case "pattern":
		return PatternDocument(text), nil
	default:
		return Document{}, fmt.Errorf("unknown document type %q", m.Type)
	}
}
