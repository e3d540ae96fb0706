package model

// NodeKind is the variant tag of a parsed node
type NodeKind string

const (
	KindLiteral NodeKind = "literal"
	KindNull    NodeKind = "null"
	KindArray   NodeKind = "array"
	KindEntity  NodeKind = "entity"
)

// Node is one element of a parsed entity tree. Which fields are meaningful
// depends on Kind:
//   - literal: Value
//   - null:    nothing
//   - array:   Items
//   - entity:  ID, EntityType, FriendlyType, Label, GettyTerm, Properties, Truncated
type Node struct {
	Kind  NodeKind `json:"type"`
	Value any      `json:"value,omitempty"`
	Items []*Node  `json:"items,omitempty"`

	ID           string     `json:"id,omitempty"`
	EntityType   string     `json:"entityType,omitempty"`
	FriendlyType string     `json:"friendlyType,omitempty"`
	Label        string     `json:"label,omitempty"`
	GettyTerm    string     `json:"gettyTerm,omitempty"`
	Properties   []Property `json:"properties,omitempty"`
	Truncated    bool       `json:"_truncated,omitempty"`
}

// Property is a named child of an entity node. Properties keep source order.
type Property struct {
	Key  string `json:"key"`
	Node *Node  `json:"node"`
}

// Literal creates a literal node
func Literal(v any) *Node {
	return &Node{Kind: KindLiteral, Value: v}
}

// Null creates a null node
func Null() *Node {
	return &Node{Kind: KindNull}
}

// Property returns the child stored under key, or nil
func (n *Node) Property(key string) *Node {
	if n == nil {
		return nil
	}
	for _, p := range n.Properties {
		if p.Key == key {
			return p.Node
		}
	}
	return nil
}

// PropertyNames returns the property keys in source order
func (n *Node) PropertyNames() []string {
	if n == nil {
		return nil
	}
	names := make([]string, len(n.Properties))
	for i, p := range n.Properties {
		names[i] = p.Key
	}
	return names
}
