package parse

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/ppiankov/latool/internal/fetch"
	"github.com/ppiankov/latool/internal/model"
	"github.com/ppiankov/latool/internal/vocab"
)

// fakeFetcher serves documents from memory and counts fetches per URL
type fakeFetcher struct {
	mu     sync.Mutex
	docs   map[string]string
	counts map[string]int
}

func newFakeFetcher(docs map[string]string) *fakeFetcher {
	return &fakeFetcher{docs: docs, counts: make(map[string]int)}
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string, headers map[string]string) (*fetch.Response, error) {
	f.mu.Lock()
	f.counts[url]++
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	body, ok := f.docs[url]
	if !ok {
		return &fetch.Response{URL: url, StatusCode: http.StatusNotFound}, nil
	}
	if body == "!error" {
		return nil, errors.New("connection refused")
	}
	return &fetch.Response{URL: url, StatusCode: http.StatusOK, Body: []byte(body)}, nil
}

func (f *fakeFetcher) count(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[url]
}

func decode(t *testing.T, doc string) any {
	t.Helper()
	v, err := model.DecodeJSON([]byte(doc))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func TestIsSimpleObject(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want bool
	}{
		{"id only", `{"id": "x"}`, true},
		{"reference with type and label", `{"id": "x", "type": "Person", "_label": "Z"}`, true},
		{"nested simple", `{"id": "x", "equivalent": {"id": "y", "type": "Type"}}`, true},
		{"too many keys", `{"id": "x", "type": "Y", "_label": "Z", "extra": "too many fields", "another": 1, "more": 2}`, false},
		{"six simple keys", `{"id": "x", "type": "Y", "_label": "Z", "label": "a", "name": "b", "equivalent": null}`, false},
		{"non simple key", `{"id": "x", "content": "text"}`, false},
		{"array value", `{"id": "x", "classified_as": [{"id": "y"}]}`, false},
		{"empty array value", `{"id": "x", "classified_as": []}`, true},
		{"nested complex", `{"id": "x", "equivalent": {"id": "y", "content": "z"}}`, false},
		{"empty object", `{}`, true},
		{"array", `[]`, false},
		{"string", `"x"`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsSimpleObject(decode(t, tt.doc)); got != tt.want {
				t.Errorf("IsSimpleObject(%s) = %v, want %v", tt.doc, got, tt.want)
			}
		})
	}
}

func TestShouldResolveReference(t *testing.T) {
	tests := []struct {
		doc  string
		want bool
	}{
		{`{"id": "x", "type": "Person"}`, true},
		{`{"id": "x"}`, true},
		{`{"id": "x", "type": "Person", "_label": "Jane"}`, false},
		{`{"id": "x", "label": "Jane"}`, false},
		{`{"id": "x", "name": "Jane"}`, false},
		{`{"id": "x", "_label": ""}`, true},
		{`{"type": "Person"}`, false},
		{`{"id": "x", "identified_by": []}`, false},
		{`[{"id": "x"}]`, false},
	}

	for _, tt := range tests {
		t.Run(tt.doc, func(t *testing.T) {
			if got := ShouldResolveReference(decode(t, tt.doc)); got != tt.want {
				t.Errorf("ShouldResolveReference(%s) = %v, want %v", tt.doc, got, tt.want)
			}
		})
	}
}

func TestNeedsRecursion(t *testing.T) {
	if !NeedsRecursion(decode(t, `[]`)) {
		t.Error("arrays always need recursion")
	}
	if NeedsRecursion(decode(t, `{"id": "x"}`)) {
		t.Error("simple objects do not need recursion")
	}
	if NeedsRecursion(decode(t, `{"id": "x", "classified_as": []}`)) {
		t.Error("an empty array keeps an object simple")
	}
	if !NeedsRecursion(decode(t, `{"id": "x", "content": "y"}`)) {
		t.Error("complex objects need recursion")
	}
	if NeedsRecursion("x") || NeedsRecursion(nil) {
		t.Error("scalars and null do not need recursion")
	}
}

func TestParse_Variants(t *testing.T) {
	p := New(nil, nil, nil)
	opts := DefaultOptions()

	tests := []struct {
		doc  string
		kind model.NodeKind
	}{
		{`null`, model.KindNull},
		{`"text"`, model.KindLiteral},
		{`42`, model.KindLiteral},
		{`true`, model.KindLiteral},
		{`[1, "a", null]`, model.KindArray},
		{`{"type": "Person"}`, model.KindEntity},
	}

	for _, tt := range tests {
		t.Run(tt.doc, func(t *testing.T) {
			n, err := p.Parse(context.Background(), decode(t, tt.doc), opts)
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if n.Kind != tt.kind {
				t.Errorf("expected %s, got %s", tt.kind, n.Kind)
			}
		})
	}
}

func TestParse_Entity(t *testing.T) {
	doc := `{
		"@context": "https://linked.art/ns/v1/linked-art.json",
		"id": "https://example.org/object/1",
		"type": "HumanMadeObject",
		"_label": "Mona Lisa",
		"note": null,
		"current_owner": {"id": "https://example.org/group/1", "type": "Group"},
		"identified_by": [
			{"type": "Name", "content": "Mona Lisa", "classified_as": [{"id": "http://vocab.getty.edu/aat/300404670"}]}
		]
	}`

	n, err := New(nil, nil, nil).Parse(context.Background(), decode(t, doc), DefaultOptions())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if n.ID != "https://example.org/object/1" || n.EntityType != "HumanMadeObject" || n.FriendlyType != "Physical Object" || n.Label != "Mona Lisa" {
		t.Errorf("unexpected entity header: %+v", n)
	}

	want := []string{"id", "type", "_label", "note", "current_owner", "identified_by"}
	got := n.PropertyNames()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("expected properties %v in source order, got %v", want, got)
	}

	if n.Property("note").Kind != model.KindNull {
		t.Error("expected null property node")
	}
	// a simple object property is kept as a literal
	if owner := n.Property("current_owner"); owner.Kind != model.KindLiteral {
		t.Errorf("expected simple object to stay literal, got %s", owner.Kind)
	}

	names := n.Property("identified_by")
	if names.Kind != model.KindArray || len(names.Items) != 1 {
		t.Fatalf("expected identified_by array, got %+v", names)
	}
	if names.Items[0].Kind != model.KindEntity || names.Items[0].EntityType != "Name" {
		t.Errorf("expected Name entity, got %+v", names.Items[0])
	}
}

func TestParse_DepthZero(t *testing.T) {
	doc := `{"id": "https://example.org/object/1", "type": "HumanMadeObject", "_label": "Vase",
		"identified_by": [{"type": "Name", "content": "Vase"}]}`

	opts := DefaultOptions()
	opts.MaxDepth = 0
	n, err := New(nil, nil, nil).Parse(context.Background(), decode(t, doc), opts)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if !n.Truncated {
		t.Error("expected root to be truncated")
	}
	if len(n.Properties) != 0 {
		t.Errorf("expected no properties, got %v", n.PropertyNames())
	}
	if n.ID != "https://example.org/object/1" || n.EntityType != "HumanMadeObject" || n.Label != "Vase" {
		t.Errorf("expected root header to be kept, got %+v", n)
	}
}

func TestParse_DepthCountsPropertyHops(t *testing.T) {
	// produced_by (depth 1) -> timespan (depth 2) is cut at maxDepth 2
	doc := `{"type": "HumanMadeObject", "produced_by": {"type": "Production", "timespan":
		{"type": "TimeSpan", "begin_of_the_begin": "1503-01-01T00:00:00Z", "end_of_the_end": "1506-12-31T23:59:59Z"}}}`

	opts := DefaultOptions()
	opts.MaxDepth = 2
	n, err := New(nil, nil, nil).Parse(context.Background(), decode(t, doc), opts)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	production := n.Property("produced_by")
	if production.Truncated {
		t.Fatal("production should be parsed at depth 1")
	}
	timespan := production.Property("timespan")
	if !timespan.Truncated || len(timespan.Properties) != 0 {
		t.Errorf("expected timespan truncated at depth 2, got %+v", timespan)
	}
}

func TestParse_ResolvesReferencesAtSameDepth(t *testing.T) {
	f := newFakeFetcher(map[string]string{
		"https://example.org/person/1": `{"id": "https://example.org/person/1", "type": "Person", "_label": "Jane Doe",
			"born": {"type": "Birth", "timespan": {"type": "TimeSpan", "begin_of_the_begin": "1900-01-01T00:00:00Z"}}}`,
	})
	doc := `{"type": "HumanMadeObject", "produced_by": {"type": "Production",
		"carried_out_by": [{"id": "https://example.org/person/1", "type": "Person"}]}}`

	opts := DefaultOptions()
	opts.MaxDepth = 3
	n, err := New(f, nil, nil).Parse(context.Background(), decode(t, doc), opts)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	actor := n.Property("produced_by").Property("carried_out_by").Items[0]
	if actor.Label != "Jane Doe" {
		t.Fatalf("expected resolved actor, got %+v", actor)
	}
	// actor resolved at depth 2 (no cost), born at depth 3 is truncated
	if actor.Truncated {
		t.Error("resolved reference should be parsed at the reference depth")
	}
	if born := actor.Property("born"); born == nil || !born.Truncated {
		t.Errorf("expected born truncated, got %+v", born)
	}
}

func TestParse_ResolvesReferenceWithEmptyArray(t *testing.T) {
	f := newFakeFetcher(map[string]string{
		"https://example.org/person/1": `{"id": "https://example.org/person/1", "type": "Person", "_label": "Jane Doe"}`,
	})
	doc := `{"type": "HumanMadeObject",
		"current_owner": [{"id": "https://example.org/person/1", "classified_as": []}]}`

	n, err := New(f, nil, nil).Parse(context.Background(), decode(t, doc), DefaultOptions())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got := f.count("https://example.org/person/1"); got != 1 {
		t.Errorf("expected one fetch of the reference, got %d", got)
	}
	owner := n.Property("current_owner").Items[0]
	if owner.Label != "Jane Doe" {
		t.Errorf("expected resolved owner, got %+v", owner)
	}
}

func TestParse_NoResolve(t *testing.T) {
	f := newFakeFetcher(map[string]string{"https://example.org/person/1": `{"_label": "Jane"}`})
	doc := `[{"id": "https://example.org/person/1", "type": "Person"}]`

	opts := DefaultOptions()
	opts.ResolveReferences = false
	n, err := New(f, nil, nil).Parse(context.Background(), decode(t, doc), opts)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if f.count("https://example.org/person/1") != 0 {
		t.Error("expected no fetch without reference resolution")
	}
	if n.Items[0].Label != "" {
		t.Errorf("expected unresolved reference, got %+v", n.Items[0])
	}
}

func TestParse_AtMostOneFetchPerID(t *testing.T) {
	f := newFakeFetcher(map[string]string{
		"https://example.org/place/1": `{"id": "https://example.org/place/1", "type": "Place", "_label": "Paris"}`,
	})
	doc := `{"type": "HumanMadeObject",
		"a": [{"id": "https://example.org/place/1", "type": "Place"}],
		"b": [{"id": "https://example.org/place/1", "type": "Place"}],
		"c": [{"id": "https://example.org/place/1"}, {"id": "https://example.org/place/1"}]}`

	visited := NewVisitedSet()
	opts := DefaultOptions()
	opts.Visited = visited
	if _, err := New(f, nil, nil).Parse(context.Background(), decode(t, doc), opts); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if got := f.count("https://example.org/place/1"); got != 1 {
		t.Errorf("expected exactly 1 fetch, got %d", got)
	}
	if !visited.Has("https://example.org/place/1") || visited.Len() != 1 {
		t.Error("expected the reference id in the visited set")
	}
}

func TestParse_FailedReferenceIsLogged(t *testing.T) {
	f := newFakeFetcher(map[string]string{"https://example.org/broken": "!error"})
	log := model.NewLogSet()

	doc := `[{"id": "https://example.org/broken", "type": "Person"}, {"id": "https://example.org/missing"}]`
	n, err := New(f, nil, log).Parse(context.Background(), decode(t, doc), DefaultOptions())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if n.Items[0].Kind != model.KindEntity || n.Items[0].ID != "https://example.org/broken" {
		t.Errorf("expected unresolved reference to be kept, got %+v", n.Items[0])
	}
	if !log.Contains("Failed to resolve reference https://example.org/broken: connection refused") {
		t.Errorf("expected failure log, got %v", log.Messages())
	}
	if !log.Contains("Failed to resolve reference https://example.org/missing: HTTP 404") {
		t.Errorf("expected HTTP failure log, got %v", log.Messages())
	}
}

type stubTerms map[string]string

func (s stubTerms) Term(ctx context.Context, uri, field string, kind vocab.TermType, log model.LogSink) string {
	return s[uri]
}

func TestParse_GettyTerm(t *testing.T) {
	doc := `[{"id": "http://vocab.getty.edu/aat/300015050", "type": "Type", "_label": "oil paint"},
		{"id": "https://example.org/type/1", "type": "Type", "_label": "local"}]`
	terms := stubTerms{"http://vocab.getty.edu/aat/300015050": "oil paint (paint)"}

	n, err := New(newFakeFetcher(nil), terms, nil).Parse(context.Background(), decode(t, doc), DefaultOptions())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if n.Items[0].GettyTerm != "oil paint (paint)" {
		t.Errorf("expected Getty term, got %q", n.Items[0].GettyTerm)
	}
	if n.Items[1].GettyTerm != "" {
		t.Errorf("expected no term for non-Getty type, got %q", n.Items[1].GettyTerm)
	}
}

func TestParse_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(newFakeFetcher(nil), nil, nil).Parse(ctx, decode(t, `[{"id": "https://example.org/x"}]`), DefaultOptions())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
