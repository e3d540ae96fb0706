package parse

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/latool/internal/model"
)

// ToYAML converts a parsed tree to a YAML node, keeping property order.
// Literal objects (simple references kept unparsed) are emitted as mappings.
func ToYAML(n *model.Node) *yaml.Node {
	if n == nil {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	}

	m := &yaml.Node{Kind: yaml.MappingNode}
	add := func(key string, value *yaml.Node) {
		m.Content = append(m.Content, str(key), value)
	}

	add("type", str(string(n.Kind)))
	switch n.Kind {
	case model.KindLiteral:
		add("value", rawToYAML(n.Value))
	case model.KindArray:
		seq := &yaml.Node{Kind: yaml.SequenceNode}
		for _, item := range n.Items {
			seq.Content = append(seq.Content, ToYAML(item))
		}
		add("items", seq)
	case model.KindEntity:
		if n.ID != "" {
			add("id", str(n.ID))
		}
		add("entityType", str(n.EntityType))
		add("friendlyType", str(n.FriendlyType))
		if n.Label != "" {
			add("label", str(n.Label))
		}
		if n.GettyTerm != "" {
			add("gettyTerm", str(n.GettyTerm))
		}
		props := &yaml.Node{Kind: yaml.MappingNode}
		for _, p := range n.Properties {
			props.Content = append(props.Content, str(p.Key), ToYAML(p.Node))
		}
		add("properties", props)
		if n.Truncated {
			add("_truncated", &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: "true"})
		}
	}
	return m
}

// rawToYAML converts a raw entity value to a YAML node
func rawToYAML(v any) *yaml.Node {
	switch t := v.(type) {
	case nil:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	case string:
		return str(t)
	case bool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(t)}
	case *model.Object:
		m := &yaml.Node{Kind: yaml.MappingNode}
		t.Range(func(key string, value any) bool {
			m.Content = append(m.Content, str(key), rawToYAML(value))
			return true
		})
		return m
	case []any:
		seq := &yaml.Node{Kind: yaml.SequenceNode}
		for _, item := range t {
			seq.Content = append(seq.Content, rawToYAML(item))
		}
		return seq
	default:
		tag := "!!int"
		s := model.FormatScalar(t)
		if _, err := strconv.ParseInt(s, 10, 64); err != nil {
			tag = "!!float"
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: s}
	}
}

func str(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

// WriteYAML encodes a parsed tree to w
func WriteYAML(w io.Writer, n *model.Node) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(ToYAML(n)); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

// SaveYAML writes a parsed tree to path
func SaveYAML(path string, n *model.Node) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteYAML(f, n); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
