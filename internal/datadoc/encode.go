package datadoc

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Node converts doc into a yaml.Node tree, keeping mapping order.
func Node(doc Document) *yaml.Node {
	switch v := doc.(type) {
	case *Mapping:
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, e := range v.Entries() {
			n.Content = append(n.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: e.Key},
				Node(e.Value),
			)
		}
		return n
	case Sequence:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, c := range v {
			n.Content = append(n.Content, Node(c))
		}
		return n
	case Scalar:
		return scalarNode(v)
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
}

func scalarNode(s Scalar) *yaml.Node {
	n := &yaml.Node{Kind: yaml.ScalarNode, Value: s.Text}
	switch s.Kind {
	case KindNull:
		n.Tag, n.Value = "!!null", "null"
	case KindBool:
		n.Tag = "!!bool"
	case KindInt:
		n.Tag = "!!int"
	case KindFloat:
		n.Tag = "!!float"
		switch s.Text {
		case "Infinity":
			n.Value = ".inf"
		case "-Infinity":
			n.Value = "-.inf"
		case "NaN":
			n.Value = ".nan"
		}
	default:
		n.Tag = "!!str"
	}
	return n
}

// Encode writes doc as YAML.
func Encode(w io.Writer, doc Document) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(Node(doc)); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}
