// Package parse walks arbitrary Linked Art entities into a typed tree,
// optionally dereferencing bare references over the network.
package parse

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/latool/internal/fetch"
	"github.com/ppiankov/latool/internal/graph"
	"github.com/ppiankov/latool/internal/model"
	"github.com/ppiankov/latool/internal/vocab"
)

// maxSimpleKeys is the largest key count a simple object may have
const maxSimpleKeys = 5

// simpleKeys are the only keys a simple (reference-like) object may carry
var simpleKeys = map[string]bool{
	"id":            true,
	"type":          true,
	"_label":        true,
	"label":         true,
	"name":          true,
	"classified_as": true,
	"equivalent":    true,
}

// skipProperties are JSON-LD metadata never parsed as entity properties
var skipProperties = map[string]bool{
	"@context": true,
}

// Options controls one parse run
type Options struct {
	ResolveReferences bool
	MaxDepth          int
	CurrentDepth      int
	// Visited is shared by every branch of one run; nil starts a fresh set
	Visited *VisitedSet
	// MaxConcurrency bounds concurrent reference fetches; <= 0 means 8
	MaxConcurrency int
}

// DefaultOptions returns the options the CLI uses without flags
func DefaultOptions() Options {
	return Options{
		ResolveReferences: true,
		MaxDepth:          3,
		MaxConcurrency:    8,
	}
}

// VisitedSet records reference ids already dereferenced in one run.
// Add is the check-and-insert gate guaranteeing at most one fetch per id.
type VisitedSet struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

// NewVisitedSet creates an empty set
func NewVisitedSet() *VisitedSet {
	return &VisitedSet{ids: make(map[string]struct{})}
}

// Add inserts id and reports whether it was not present before
func (v *VisitedSet) Add(id string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, seen := v.ids[id]; seen {
		return false
	}
	v.ids[id] = struct{}{}
	return true
}

// Has reports whether id was added
func (v *VisitedSet) Has(id string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, seen := v.ids[id]
	return seen
}

// Len returns the number of ids
func (v *VisitedSet) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.ids)
}

// Parser turns raw entities into model.Node trees
type Parser struct {
	fetcher fetch.Fetcher
	terms   vocab.Terms
	log     model.LogSink
}

// New creates a parser. terms may be nil, in which case Type entities get
// no Getty term.
func New(fetcher fetch.Fetcher, terms vocab.Terms, log model.LogSink) *Parser {
	return &Parser{fetcher: fetcher, terms: terms, log: log}
}

// run carries the per-invocation state shared by all branches
type run struct {
	*Parser
	resolve  bool
	maxDepth int
	visited  *VisitedSet
	fetchSem chan struct{}
}

// Parse converts raw into a node tree. Reference fetch failures are logged
// and absorbed; the only error returned is the context's.
func (p *Parser) Parse(ctx context.Context, raw any, opts Options) (*model.Node, error) {
	if opts.Visited == nil {
		opts.Visited = NewVisitedSet()
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = 8
	}

	r := &run{
		Parser:   p,
		resolve:  opts.ResolveReferences && p.fetcher != nil,
		maxDepth: opts.MaxDepth,
		visited:  opts.Visited,
		fetchSem: make(chan struct{}, opts.MaxConcurrency),
	}

	node := r.parse(ctx, raw, opts.CurrentDepth)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	return node, nil
}

func (r *run) parse(ctx context.Context, raw any, depth int) *model.Node {
	switch v := raw.(type) {
	case nil:
		return model.Null()
	case []any:
		// array items stay at the depth of the array itself
		items := make([]*model.Node, len(v))
		var g errgroup.Group
		for i, item := range v {
			g.Go(func() error {
				items[i] = r.parse(ctx, item, depth)
				return nil
			})
		}
		_ = g.Wait()
		return &model.Node{Kind: model.KindArray, Items: items}
	case *model.Object:
		if v == nil {
			return model.Null()
		}
		return r.parseObject(ctx, v, depth)
	default:
		return model.Literal(v)
	}
}

func (r *run) parseObject(ctx context.Context, obj *model.Object, depth int) *model.Node {
	entityType := graph.EntityTypeOf(obj)
	node := &model.Node{
		Kind:         model.KindEntity,
		ID:           obj.ID(),
		EntityType:   entityType,
		FriendlyType: graph.FriendlyTypeName(entityType),
		Label:        graph.Label(obj),
	}

	if r.resolve && ShouldResolveReference(obj) && r.visited.Add(node.ID) {
		if full, ok := r.dereference(ctx, node.ID); ok {
			// a resolved reference is parsed at the depth of the reference
			return r.parse(ctx, full, depth)
		}
	}

	if depth >= r.maxDepth {
		node.Truncated = true
		return node
	}

	keys := make([]string, 0, obj.Len())
	obj.Range(func(key string, _ any) bool {
		if !skipProperties[key] {
			keys = append(keys, key)
		}
		return true
	})

	props := make([]model.Property, len(keys))
	var g errgroup.Group
	for i, key := range keys {
		value, _ := obj.Get(key)
		props[i].Key = key
		switch {
		case value == nil:
			props[i].Node = model.Null()
		case NeedsRecursion(value):
			g.Go(func() error {
				props[i].Node = r.parse(ctx, value, depth+1)
				return nil
			})
		default:
			props[i].Node = model.Literal(value)
		}
	}
	_ = g.Wait()
	node.Properties = props

	if r.resolve && r.terms != nil && entityType == "Type" && strings.Contains(node.ID, graph.GettyHost) {
		node.GettyTerm = r.terms.Term(ctx, node.ID, entityType, vocab.Preferred, r.log)
	}

	return node
}

// dereference fetches a referenced entity; failures are logged
func (r *run) dereference(ctx context.Context, id string) (any, bool) {
	select {
	case r.fetchSem <- struct{}{}:
	case <-ctx.Done():
		return nil, false
	}
	defer func() { <-r.fetchSem }()

	resp, err := r.fetcher.Fetch(ctx, id, nil)
	if err != nil {
		if ctx.Err() == nil {
			model.Logf(r.log, "Failed to resolve reference %s: %v", id, err)
		}
		return nil, false
	}
	if !resp.OK() {
		model.Logf(r.log, "Failed to resolve reference %s: HTTP %d", id, resp.StatusCode)
		return nil, false
	}

	full, err := resp.JSON()
	if err != nil {
		model.Logf(r.log, "Failed to resolve reference %s: %v", id, err)
		return nil, false
	}
	return full, true
}

// IsSimpleObject reports whether v is a small reference-like object: at
// most five keys, all drawn from id/type/_label/label/name/classified_as/
// equivalent, no non-empty array values, and nested objects simple themselves.
func IsSimpleObject(v any) bool {
	obj, ok := v.(*model.Object)
	if !ok || obj == nil {
		return false
	}
	if obj.Len() > maxSimpleKeys {
		return false
	}

	simple := true
	obj.Range(func(key string, value any) bool {
		if !simpleKeys[key] {
			simple = false
			return false
		}
		switch t := value.(type) {
		case []any:
			simple = len(t) == 0
		case *model.Object:
			simple = IsSimpleObject(value)
		}
		return simple
	})
	return simple
}

// NeedsRecursion reports whether a property value is parsed as a subtree.
// Arrays always are; objects are unless simple; scalars never are.
func NeedsRecursion(v any) bool {
	switch v.(type) {
	case []any:
		return true
	case *model.Object:
		return !IsSimpleObject(v)
	}
	return false
}

// ShouldResolveReference reports whether v is a bare reference: a simple
// object with an id and no label, name or _label.
func ShouldResolveReference(v any) bool {
	obj, ok := v.(*model.Object)
	if !ok || obj == nil {
		return false
	}
	for _, key := range []string{"_label", "label", "name"} {
		if v, _ := obj.Get(key); model.Truthy(v) {
			return false
		}
	}
	return obj.ID() != "" && IsSimpleObject(obj)
}
