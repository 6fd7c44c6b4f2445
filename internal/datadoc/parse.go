package datadoc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format selects the decoder for a data document.
type Format int

const (
	FormatYAML Format = iota
	FormatJSON
)

func (f Format) String() string {
	if f == FormatJSON {
		return "json"
	}
	return "yaml"
}

// ErrEmpty is returned when the input holds no document.
var ErrEmpty = errors.New("empty document")

// FormatFor picks a format from a file name or URL path and an optional
// Content-Type. The extension wins; YAML is the fallback since it also
// accepts most JSON.
func FormatFor(name, contentType string) Format {
	switch strings.ToLower(path.Ext(name)) {
	case ".json":
		return FormatJSON
	case ".yml", ".yaml":
		return FormatYAML
	}
	if contentType != "" {
		if mt, _, err := mime.ParseMediaType(contentType); err == nil {
			if mt == "application/json" || strings.HasSuffix(mt, "+json") {
				return FormatJSON
			}
		}
	}
	return FormatYAML
}

var utf8BOM = []byte("\xef\xbb\xbf")

// Parse decodes one document from data. A leading UTF-8 byte order mark is
// ignored.
func Parse(data []byte, format Format) (Document, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmpty
	}
	if format == FormatJSON {
		return parseJSON(data)
	}
	return parseYAML(data)
}

func parseYAML(data []byte) (Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if root.Kind == 0 || (root.Kind == yaml.DocumentNode && len(root.Content) == 0) {
		return nil, ErrEmpty
	}
	return fromNode(&root, 0)
}

const maxAliasDepth = 64

func fromNode(n *yaml.Node, depth int) (Document, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return Null(), nil
		}
		return fromNode(n.Content[0], depth)
	case yaml.AliasNode:
		if depth >= maxAliasDepth {
			return nil, fmt.Errorf("parse yaml: alias nesting too deep at line %d", n.Line)
		}
		return fromNode(n.Alias, depth+1)
	case yaml.MappingNode:
		m := NewMapping()
		var explicit []Entry
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, v := n.Content[i], n.Content[i+1]
			if k.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("parse yaml: non-scalar key at line %d", k.Line)
			}
			if k.ShortTag() == "!!merge" {
				if err := mergeInto(m, v, depth); err != nil {
					return nil, err
				}
				continue
			}
			val, err := fromNode(v, depth)
			if err != nil {
				return nil, err
			}
			explicit = append(explicit, Entry{Key: k.Value, Value: val})
		}
		// Keys written out in the mapping override merged ones.
		for _, e := range explicit {
			m.Set(e.Key, e.Value)
		}
		return m, nil
	case yaml.SequenceNode:
		seq := make(Sequence, 0, len(n.Content))
		for _, c := range n.Content {
			val, err := fromNode(c, depth)
			if err != nil {
				return nil, err
			}
			seq = append(seq, val)
		}
		return seq, nil
	case yaml.ScalarNode:
		return yamlScalar(n), nil
	}
	return nil, fmt.Errorf("parse yaml: unexpected node kind %d", n.Kind)
}

// mergeInto applies a "<<" merge value: a mapping, an alias to one, or a
// sequence of those. Keys already in m win, so earlier sources take
// precedence over later ones.
func mergeInto(m *Mapping, v *yaml.Node, depth int) error {
	if v.Kind == yaml.SequenceNode {
		for _, c := range v.Content {
			if err := mergeInto(m, c, depth); err != nil {
				return err
			}
		}
		return nil
	}
	if v.Kind == yaml.AliasNode {
		if depth >= maxAliasDepth {
			return fmt.Errorf("parse yaml: alias nesting too deep at line %d", v.Line)
		}
		return mergeInto(m, v.Alias, depth+1)
	}
	if v.Kind != yaml.MappingNode {
		return fmt.Errorf("parse yaml: merge value at line %d is not a mapping", v.Line)
	}
	src, err := fromNode(v, depth)
	if err != nil {
		return err
	}
	for _, e := range src.(*Mapping).Entries() {
		if _, exists := m.Get(e.Key); !exists {
			m.Set(e.Key, e.Value)
		}
	}
	return nil
}

func yamlScalar(n *yaml.Node) Scalar {
	switch n.ShortTag() {
	case "!!null":
		return Null()
	case "!!bool":
		if b, err := strconv.ParseBool(strings.ToLower(n.Value)); err == nil {
			return Bool(b)
		}
	case "!!int":
		if i, err := strconv.ParseInt(strings.ReplaceAll(n.Value, "_", ""), 0, 64); err == nil {
			return Int(i)
		}
		return Scalar{Kind: KindInt, Text: n.Value}
	case "!!float":
		switch strings.ToLower(n.Value) {
		case ".inf", "+.inf":
			return Scalar{Kind: KindFloat, Text: "Infinity"}
		case "-.inf":
			return Scalar{Kind: KindFloat, Text: "-Infinity"}
		case ".nan":
			return Scalar{Kind: KindFloat, Text: "NaN"}
		}
		if f, err := strconv.ParseFloat(strings.ReplaceAll(n.Value, "_", ""), 64); err == nil {
			return Float(f)
		}
		return Scalar{Kind: KindFloat, Text: n.Value}
	}
	return String(n.Value)
}

func parseJSON(data []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	doc, err := decodeJSON(dec)
	if err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("parse json: trailing data after document")
	}
	return doc, nil
}

func decodeJSON(dec *json.Decoder) (Document, error) {
	tok, err := dec.Token()
	if err != nil {
		if err == io.EOF {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			m := NewMapping()
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := kt.(string)
				if !ok {
					return nil, fmt.Errorf("unexpected object key %v", kt)
				}
				v, err := decodeJSON(dec)
				if err != nil {
					return nil, err
				}
				m.Set(key, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return m, nil
		case '[':
			seq := Sequence{}
			for dec.More() {
				v, err := decodeJSON(dec)
				if err != nil {
					return nil, err
				}
				seq = append(seq, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return seq, nil
		}
		return nil, fmt.Errorf("unexpected delimiter %q", t)
	case string:
		return String(t), nil
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return Int(i), nil
		}
		// Out-of-range numbers keep the ±Inf ParseFloat reports with ErrRange.
		f, err := t.Float64()
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return nil, fmt.Errorf("invalid number %q", t.String())
		}
		return Float(f), nil
	case bool:
		return Bool(t), nil
	case nil:
		return Null(), nil
	}
	return nil, fmt.Errorf("unexpected token %v", tok)
}
