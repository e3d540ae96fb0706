package parse

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/ppiankov/latool/internal/model"
)

// Format renders a parsed tree as indented text. Entity properties are
// printed in sorted key order so output is stable across runs.
func Format(n *model.Node) string {
	var sb strings.Builder
	writeNode(&sb, n, 0)
	return strings.TrimRight(sb.String(), "\n")
}

func writeNode(sb *strings.Builder, n *model.Node, indent int) {
	prefix := strings.Repeat("  ", indent)

	if n == nil {
		fmt.Fprintf(sb, "%s[null]\n", prefix)
		return
	}

	switch n.Kind {
	case model.KindLiteral:
		fmt.Fprintf(sb, "%s%s\n", prefix, literalJSON(n.Value))
	case model.KindNull:
		fmt.Fprintf(sb, "%snull\n", prefix)
	case model.KindArray:
		if len(n.Items) == 0 {
			fmt.Fprintf(sb, "%s[]\n", prefix)
			return
		}
		fmt.Fprintf(sb, "%s[\n", prefix)
		for _, item := range n.Items {
			writeNode(sb, item, indent+1)
		}
		fmt.Fprintf(sb, "%s]\n", prefix)
	case model.KindEntity:
		kind := n.FriendlyType
		if kind == "" {
			kind = n.EntityType
		}
		label := n.Label
		if label == "" {
			label = "(unnamed)"
		}
		fmt.Fprintf(sb, "%s[%s] %s\n", prefix, kind, label)
		if n.ID != "" {
			fmt.Fprintf(sb, "%s  ID: %s\n", prefix, n.ID)
		}
		if n.GettyTerm != "" {
			fmt.Fprintf(sb, "%s  Getty Term: %s\n", prefix, n.GettyTerm)
		}
		if n.Truncated {
			fmt.Fprintf(sb, "%s  [... truncated by depth limit]\n", prefix)
		}

		props := make([]model.Property, len(n.Properties))
		copy(props, n.Properties)
		sort.SliceStable(props, func(i, j int) bool { return props[i].Key < props[j].Key })
		for _, p := range props {
			fmt.Fprintf(sb, "%s  %s:\n", prefix, p.Key)
			writeNode(sb, p.Node, indent+2)
		}
	}
}

func literalJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

// Stats summarizes the top level of a parsed entity
type Stats struct {
	Type              string   `json:"type" yaml:"type"`
	Label             string   `json:"label,omitempty" yaml:"label,omitempty"`
	ID                string   `json:"id,omitempty" yaml:"id,omitempty"`
	PropertyCount     int      `json:"propertyCount" yaml:"property_count"`
	PropertyNames     []string `json:"propertyNames" yaml:"property_names"`
	NestedEntityCount int      `json:"nestedEntityCount" yaml:"nested_entity_count"`
	HasReferences     bool     `json:"hasReferences" yaml:"has_references"`
}

// ComputeStats counts the direct properties and the entities one level
// down (directly or inside an array property). It returns nil when n is not
// an entity.
func ComputeStats(n *model.Node) *Stats {
	if n == nil || n.Kind != model.KindEntity {
		return nil
	}

	names := n.PropertyNames()
	sort.Strings(names)

	stats := &Stats{
		Type:          n.EntityType,
		Label:         n.Label,
		ID:            n.ID,
		PropertyCount: len(n.Properties),
		PropertyNames: names,
	}

	count := func(e *model.Node) {
		if e == nil || e.Kind != model.KindEntity {
			return
		}
		stats.NestedEntityCount++
		if strings.HasPrefix(e.ID, "http") {
			stats.HasReferences = true
		}
	}

	for _, p := range n.Properties {
		switch p.Node.Kind {
		case model.KindEntity:
			count(p.Node)
		case model.KindArray:
			for _, item := range p.Node.Items {
				count(item)
			}
		}
	}
	return stats
}
