package graph

import (
	"slices"
	"strings"

	"github.com/ppiankov/latool/internal/model"
)

// GettyHost marks a URI as belonging to the Getty vocabularies
const GettyHost = "vocab.getty.edu"

// IterativeSearch walks the graph breadth first and calls visit on every
// object and array, root included. Scalars are never visited. Identity is not
// tracked, so visit must tolerate seeing shared subtrees more than once.
func IterativeSearch(root any, visit func(node any)) {
	queue := []any{root}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if !model.IsComposite(current) {
			continue
		}
		visit(current)

		switch t := current.(type) {
		case []any:
			queue = append(queue, t...)
		case *model.Object:
			t.Range(func(_ string, value any) bool {
				queue = append(queue, value)
				return true
			})
		}
	}
}

// FindClassifiedAs returns the first object, depth first, that holds one of
// targets as a direct string value, or whose classified_as/equivalent
// subtree does. It returns nil when nothing matches.
func FindClassifiedAs(node any, targets []string) *model.Object {
	switch t := node.(type) {
	case []any:
		for _, item := range t {
			if found := FindClassifiedAs(item, targets); found != nil {
				return found
			}
		}
	case *model.Object:
		var found *model.Object
		t.Range(func(key string, value any) bool {
			if s, ok := value.(string); ok && slices.Contains(targets, s) {
				found = t
				return false
			}
			if key == "classified_as" || key == "equivalent" {
				if nested := FindClassifiedAs(value, targets); nested != nil {
					found = nested
					return false
				}
			}
			return true
		})
		return found
	}
	return nil
}

// IsClassifiedAs reports whether FindClassifiedAs finds a match
func IsClassifiedAs(node any, targets ...string) bool {
	return FindClassifiedAs(node, targets) != nil
}

// FindGettyURI returns the first string, depth first, that contains the
// Getty vocabulary host, or "" when there is none.
func FindGettyURI(node any) string {
	switch t := node.(type) {
	case []any:
		for _, item := range t {
			if uri := FindGettyURI(item); uri != "" {
				return uri
			}
		}
	case *model.Object:
		var uri string
		t.Range(func(_ string, value any) bool {
			if s, ok := value.(string); ok && strings.Contains(s, GettyHost) {
				uri = s
				return false
			}
			if found := FindGettyURI(value); found != "" {
				uri = found
				return false
			}
			return true
		})
		return uri
	}
	return ""
}
