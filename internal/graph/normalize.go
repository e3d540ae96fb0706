package graph

import (
	"strings"

	"github.com/ppiankov/latool/internal/model"
)

// CompactIDMessage is logged once per run when compact vocabulary ids were expanded
const CompactIDMessage = "Numeric IDs used instead of full URIs."

var compactPrefixes = []struct {
	prefix  string
	baseURI string
}{
	{"aat:", "http://vocab.getty.edu/aat/"},
	{"tgn:", "http://vocab.getty.edu/tgn/"},
	{"ulan:", "http://vocab.getty.edu/ulan/"},
}

// ExpandURI expands a compact Getty identifier such as "aat:300404670" to its
// full URI. The second return value reports whether an expansion happened.
func ExpandURI(id string) (string, bool) {
	for _, p := range compactPrefixes {
		if strings.HasPrefix(id, p.prefix) {
			return p.baseURI + strings.TrimPrefix(id, p.prefix), true
		}
	}
	return id, false
}

// NormalizeIDs rewrites every string "id" property in the graph in place,
// expanding compact identifiers. It returns true when anything was expanded.
func NormalizeIDs(root any, log model.LogSink) bool {
	expanded := false

	var walk func(v any)
	walk = func(v any) {
		switch t := v.(type) {
		case []any:
			for _, item := range t {
				walk(item)
			}
		case *model.Object:
			t.Range(func(key string, value any) bool {
				if s, ok := value.(string); ok && key == "id" {
					if full, did := ExpandURI(s); did {
						t.Set(key, full)
						expanded = true
					}
					return true
				}
				walk(value)
				return true
			})
		}
	}
	walk(root)

	if expanded && log != nil {
		log.Add(CompactIDMessage)
	}
	return expanded
}
