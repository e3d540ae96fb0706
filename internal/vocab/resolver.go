// Package vocab resolves Getty vocabulary URIs to display terms.
package vocab

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/ppiankov/latool/internal/fetch"
	"github.com/ppiankov/latool/internal/model"
)

// PreferredTermURI classifies the preferred name of a vocabulary concept
const PreferredTermURI = "http://vocab.getty.edu/aat/300404670"

// TermType selects which name of a concept is returned
type TermType int

const (
	Preferred TermType = iota
	Alternative
)

func (t TermType) String() string {
	if t == Alternative {
		return "alternative"
	}
	return "preferred"
}

// Terms resolves a vocabulary URI to a display term. An empty string means
// no term could be found; the reason is recorded in log.
type Terms interface {
	Term(ctx context.Context, uri, field string, kind TermType, log model.LogSink) string
}

// requestVariants are tried in this order. Some servers answer a JSON-LD
// Accept header with an error page, so the bare request goes first.
var requestVariants = []map[string]string{
	{},
	{"Accept": "application/ld+json"},
	{"Accept": "application/json"},
}

// outcome is the field-independent result of resolving one URI
type outcome struct {
	term        string
	labelSource string // "label" or "_label" when the term is a label fallback
	lastErr     string
	htmlTitle   string
	html        bool
}

// Resolver fetches vocabulary entities and extracts their terms. Outcomes,
// misses included, are memoized for the lifetime of the resolver, and
// concurrent lookups of the same URI share a single fetch.
type Resolver struct {
	fetcher fetch.Fetcher
	memo    *gocache.Cache
	group   singleflight.Group
	logger  *slog.Logger
}

// NewResolver creates a resolver; use one per analysis run
func NewResolver(fetcher fetch.Fetcher, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Resolver{
		fetcher: fetcher,
		memo:    gocache.New(gocache.NoExpiration, 0),
		logger:  logger,
	}
}

// Term returns the preferred or alternative term of uri. Failures never
// escape: they yield "" and a message in log naming field.
func (r *Resolver) Term(ctx context.Context, uri, field string, kind TermType, log model.LogSink) string {
	out, err := r.lookup(ctx, uri, kind)
	if err != nil {
		// cancelled: the run is being abandoned, nothing worth logging
		return ""
	}

	switch {
	case out.term != "" && out.labelSource != "":
		model.Logf(log, "No preferred term found for %s. %q retrieved instead.", uri, out.labelSource)
	case out.term == "" && out.html:
		if out.htmlTitle != "" {
			model.Logf(log, "Error retrieving %s data: %s returned HTML instead of JSON (possible fallback page: %q)", field, uri, out.htmlTitle)
		} else {
			model.Logf(log, "Error retrieving %s data: %s returned HTML instead of JSON (possible fallback page)", field, uri)
		}
	case out.term == "":
		model.Logf(log, "Error retrieving %s data: All fetch attempts failed for %s. Last error: %s", field, uri, out.lastErr)
	}
	return out.term
}

// TermsOf resolves uris concurrently and returns the terms in input order,
// "" where a URI did not resolve or was empty.
func TermsOf(ctx context.Context, r Terms, uris []string, field string, kind TermType, log model.LogSink) []string {
	terms := make([]string, len(uris))
	var g errgroup.Group
	for i, uri := range uris {
		if uri == "" {
			continue
		}
		g.Go(func() error {
			terms[i] = r.Term(ctx, uri, field, kind, log)
			return nil
		})
	}
	_ = g.Wait()
	return terms
}

func (r *Resolver) lookup(ctx context.Context, uri string, kind TermType) (outcome, error) {
	key := kind.String() + "|" + uri
	if v, ok := r.memo.Get(key); ok {
		return v.(outcome), nil
	}

	v, err, _ := r.group.Do(key, func() (any, error) {
		if v, ok := r.memo.Get(key); ok {
			return v, nil
		}
		out := r.resolve(ctx, uri, kind)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r.memo.Set(key, out, gocache.NoExpiration)
		return out, nil
	})
	if err != nil {
		return outcome{}, err
	}
	return v.(outcome), nil
}

// resolve runs the request variants until one yields a usable term
func (r *Resolver) resolve(ctx context.Context, uri string, kind TermType) outcome {
	var last outcome
	last.lastErr = "no usable term"

	found, ok := TryInOrder(requestVariants, func(headers map[string]string) (outcome, bool) {
		resp, err := r.fetcher.Fetch(ctx, uri, headers)
		if err != nil {
			last = outcome{lastErr: err.Error()}
			return outcome{}, false
		}
		if !resp.OK() {
			last = outcome{lastErr: fmt.Sprintf("HTTP %d", resp.StatusCode)}
			return outcome{}, false
		}

		doc, err := resp.JSON()
		if err != nil {
			if resp.LooksLikeHTML() {
				last = outcome{html: true, htmlTitle: PageTitle(resp.Body), lastErr: err.Error()}
			} else {
				last = outcome{lastErr: err.Error()}
			}
			r.logger.Debug("vocabulary response is not JSON", slog.String("uri", uri), slog.Any("headers", headers))
			return outcome{}, false
		}

		term, source := TermFromEntity(doc, kind)
		if term == "" {
			return outcome{}, false
		}
		return outcome{term: term, labelSource: source}, true
	})
	if ok {
		return found
	}
	return last
}

// TryInOrder calls attempt with each variant in turn and returns the first
// accepted value. Later variants are not tried once one succeeds.
func TryInOrder[V, T any](variants []V, attempt func(V) (T, bool)) (T, bool) {
	for _, v := range variants {
		if out, ok := attempt(v); ok {
			return out, true
		}
	}
	var zero T
	return zero, false
}

// TermFromEntity extracts a term from a fetched vocabulary entity. For the
// preferred term it falls back to the entity label; source then names the
// label property used.
func TermFromEntity(doc any, kind TermType) (term, source string) {
	obj, _ := doc.(*model.Object)
	if obj == nil {
		return "", ""
	}

	for _, raw := range obj.Array("identified_by") {
		item, _ := raw.(*model.Object)
		if item == nil {
			continue
		}
		classes := item.Array("classified_as")

		if kind == Preferred {
			if hasClass(classes, PreferredTermURI) || hasEquivalentClass(classes, PreferredTermURI) {
				v, _ := item.Get("content")
				return model.FormatScalar(v), ""
			}
			continue
		}

		if hasClass(classes, PreferredTermURI) {
			if alts := item.Array("alternative"); len(alts) > 0 {
				if alt, _ := alts[0].(*model.Object); alt != nil {
					v, _ := alt.Get("content")
					if s := model.FormatScalar(v); s != "" {
						return s, ""
					}
				}
			}
		}
	}

	if kind == Preferred {
		if label := obj.String("label"); label != "" {
			return label, "label"
		}
		if label := obj.String("_label"); label != "" {
			return label, "_label"
		}
	}
	return "", ""
}

func hasClass(classes []any, uri string) bool {
	for _, c := range classes {
		if obj, _ := c.(*model.Object); obj.ID() == uri {
			return true
		}
	}
	return false
}

func hasEquivalentClass(classes []any, uri string) bool {
	for _, c := range classes {
		obj, _ := c.(*model.Object)
		if hasClass(obj.Array("equivalent"), uri) {
			return true
		}
	}
	return false
}

// PageTitle returns the <title> text of an HTML page, or "" when there is none
func PageTitle(body []byte) string {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	var walk func(n *html.Node) string
	walk = func(n *html.Node) string {
		if n.Type == html.ElementNode && n.Data == "title" {
			var sb strings.Builder
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.TextNode {
					sb.WriteString(c.Data)
				}
			}
			return strings.Join(strings.Fields(sb.String()), " ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if t := walk(c); t != "" {
				return t
			}
		}
		return ""
	}
	return walk(doc)
}
