// Package datadoc models the structured data document a page is bound against:
// a recursive tree of ordered mappings, sequences and scalars.
package datadoc

import (
	"math"
	"strconv"
	"strings"
)

// Document is one of Scalar, *Mapping or Sequence.
type Document interface {
	isDocument()
}

// ScalarKind is the resolved type of a scalar leaf.
type ScalarKind int

const (
	KindString ScalarKind = iota
	KindInt
	KindFloat
	KindBool
	KindNull
)

func (k ScalarKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindNull:
		return "null"
	}
	return "unknown"
}

// Scalar is a leaf value. Text holds the normalized textual form.
type Scalar struct {
	Kind ScalarKind
	Text string
}

func (Scalar) isDocument() {}

// String returns the visible text form of the scalar. Null renders empty.
func (s Scalar) String() string {
	if s.Kind == KindNull {
		return ""
	}
	return s.Text
}

// String, Int, Float, Bool and Null build scalars.
func String(s string) Scalar { return Scalar{Kind: KindString, Text: s} }

func Int(n int64) Scalar { return Scalar{Kind: KindInt, Text: strconv.FormatInt(n, 10)} }

func Float(f float64) Scalar { return Scalar{Kind: KindFloat, Text: formatFloat(f)} }

func Bool(b bool) Scalar { return Scalar{Kind: KindBool, Text: strconv.FormatBool(b)} }

func Null() Scalar { return Scalar{Kind: KindNull} }

// Entry is one key/value pair of a Mapping.
type Entry struct {
	Key   string
	Value Document
}

// Mapping is an insertion-ordered string-keyed map.
type Mapping struct {
	entries []Entry
	index   map[string]int
}

func (*Mapping) isDocument() {}

// NewMapping builds a mapping from entries. A repeated key keeps its first
// position and takes the last value.
func NewMapping(entries ...Entry) *Mapping {
	m := &Mapping{index: make(map[string]int, len(entries))}
	for _, e := range entries {
		m.Set(e.Key, e.Value)
	}
	return m
}

// Set inserts or replaces key.
func (m *Mapping) Set(key string, v Document) {
	if m.index == nil {
		m.index = make(map[string]int)
	}
	if i, ok := m.index[key]; ok {
		m.entries[i].Value = v
		return
	}
	m.index[key] = len(m.entries)
	m.entries = append(m.entries, Entry{Key: key, Value: v})
}

// Get returns the value stored under key.
func (m *Mapping) Get(key string) (Document, bool) {
	if m == nil {
		return nil, false
	}
	i, ok := m.index[key]
	if !ok {
		return nil, false
	}
	return m.entries[i].Value, true
}

// Prepend inserts entries before all existing ones. Keys already present are
// moved to the front with the new value.
func (m *Mapping) Prepend(entries ...Entry) {
	rest := make([]Entry, 0, len(m.entries))
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		seen[e.Key] = true
	}
	for _, e := range m.entries {
		if !seen[e.Key] {
			rest = append(rest, e)
		}
	}
	m.entries = append(append([]Entry{}, entries...), rest...)
	m.reindex()
}

// Entries returns the entries in order. The slice must not be modified.
func (m *Mapping) Entries() []Entry {
	if m == nil {
		return nil
	}
	return m.entries
}

// Len returns the number of entries.
func (m *Mapping) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

func (m *Mapping) reindex() {
	m.index = make(map[string]int, len(m.entries))
	for i, e := range m.entries {
		m.index[e.Key] = i
	}
}

// Sequence is an ordered list of documents.
type Sequence []Document

func (Sequence) isDocument() {}

func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case math.IsNaN(f):
		return "NaN"
	}
	if a := math.Abs(f); a != 0 && (a >= 1e21 || a < 1e-6) {
		s := strconv.FormatFloat(f, 'g', -1, 64)
		return strings.Replace(s, "e-0", "e-", 1)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
