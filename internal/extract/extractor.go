// Package extract implements the catalogue of Linked Art pattern extractors.
// Extractors read raw entity graphs, resolve vocabulary URIs to labels and
// never fail: a field that cannot be filled is set to model.NotFound and the
// reason, if any, goes to the log sink.
package extract

import (
	"context"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"

	"github.com/ppiankov/latool/internal/fetch"
	"github.com/ppiankov/latool/internal/graph"
	"github.com/ppiankov/latool/internal/model"
	"github.com/ppiankov/latool/internal/vocab"
)

const (
	aat = "http://vocab.getty.edu/aat/"

	TitleURI           = aat + "300404670"
	ExhibitedTitleURI  = aat + "300417207"
	FormerTitleURI     = aat + "300417203"
	AccessionNumberURI = aat + "300312355"
	WorkTypeURI        = aat + "300435443"
	WebPageURI         = aat + "300264578"

	// ExcludedDimensionURI marks dimension entries that are never reported
	ExcludedDimensionURI = aat + "300010269"

	CreatorsMessage = "Multiple creators found. Please verify."
)

// fieldURI pairs a result field with the classification that selects it
type fieldURI struct {
	field string
	uri   string
}

var nameFields = []fieldURI{
	{"Title", TitleURI},
	{"Exhibited Title", ExhibitedTitleURI},
	{"Former Title", FormerTitleURI},
}

var identifierFields = []fieldURI{
	{"Accession Number", AccessionNumberURI},
}

// Extractor runs pattern extractors against raw entities
type Extractor struct {
	terms    vocab.Terms
	fetcher  fetch.Fetcher
	markdown *md.Converter
}

// Option configures an Extractor
type Option func(*Extractor)

// WithMarkdownStatements converts HTML in statement content to Markdown
func WithMarkdownStatements() Option {
	return func(e *Extractor) {
		e.markdown = md.NewConverter("", true, nil)
	}
}

// New creates an extractor. fetcher is only used for IIIF manifests.
func New(terms vocab.Terms, fetcher fetch.Fetcher, opts ...Option) *Extractor {
	e := &Extractor{terms: terms, fetcher: fetcher}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Names extracts Title, Exhibited Title and Former Title
func (e *Extractor) Names(ctx context.Context, data *model.Object, log model.LogSink) *model.Results {
	return classifiedContent(data, "Name", nameFields, log)
}

// Identifiers extracts the Accession Number
func (e *Extractor) Identifiers(ctx context.Context, data *model.Object, log model.LogSink) *model.Results {
	return classifiedContent(data, "Identifier", identifierFields, log)
}

// classifiedContent reads the content of identified_by entries of itemType
// classified by each field's URI.
func classifiedContent(data *model.Object, itemType string, fields []fieldURI, log model.LogSink) *model.Results {
	results := model.NewResults()
	for _, f := range fields {
		var values []string
		for _, item := range objects(data.Array("identified_by")) {
			if item.Type() != itemType {
				continue
			}
			if graph.FindClassifiedAs(valueOf(item, "classified_as"), []string{f.uri}) == nil {
				continue
			}
			if v := graph.ContentOrValue(item, f.field, log); v != "" {
				values = append(values, v)
			}
		}
		results.SetOrNotFound(f.field, values)
	}
	return results
}

// WorkType resolves the classifications that are themselves classified as a
// work type.
func (e *Extractor) WorkType(ctx context.Context, data *model.Object, log model.LogSink) *model.Results {
	const field = "Work Type (Classification)"

	var uris []string
	for _, item := range data.Array("classified_as") {
		if graph.FindClassifiedAs(item, []string{WorkTypeURI}) == nil {
			continue
		}
		if uri := graph.FindGettyURI(item); uri != "" {
			uris = append(uris, uri)
		}
	}

	results := model.NewResults()
	results.SetOrNotFound(field, e.resolveAll(ctx, uris, field, log))
	return results
}

// Creators resolves the actors carrying out the production (or, for
// digital objects, the creation) of the entity.
func (e *Extractor) Creators(ctx context.Context, data *model.Object, log model.LogSink) *model.Results {
	results := model.NewResults()

	activity := valueOf(data, "produced_by")
	if !model.Truthy(activity) {
		activity = valueOf(data, "created_by")
	}
	if !model.Truthy(activity) {
		results.Set("Creators", model.NotFound)
		return results
	}

	var ids []string
	graph.IterativeSearch(activity, func(node any) {
		obj, _ := node.(*model.Object)
		for _, actor := range objects(model.AsArray(valueOf(obj, "carried_out_by"))) {
			if id := actor.ID(); id != "" {
				ids = append(ids, id)
			}
		}
	})

	creators := e.resolveAll(ctx, ids, "Creator", log)
	results.SetOrNotFound("Creators", creators)
	if len(creators) > 1 {
		results.Set("CreatorsMessage", CreatorsMessage)
	}
	return results
}

// Timespan reports the display name and the structured range of the
// production timespan, falling back to creation and then to the entity's
// own timespan.
func (e *Extractor) Timespan(ctx context.Context, data *model.Object, log model.LogSink) *model.Results {
	results := model.NewResults()
	ts := timespanOf(data)

	var names []string
	for _, item := range objects(ts.Array("identified_by")) {
		if item.Type() != "Name" {
			continue
		}
		if v := graph.ContentOrValue(item, "Timespan Display", log); v != "" {
			names = append(names, v)
		}
	}
	results.SetOrNotFound("Timespan (Name)", names)

	if s := FormatTimespan(ts.String("begin_of_the_begin"), ts.String("end_of_the_end")); s != "" {
		results.Set("Timespan (Structured)", s)
	} else {
		results.Set("Timespan (Structured)", model.NotFound)
	}
	return results
}

func timespanOf(data *model.Object) *model.Object {
	for _, activity := range []string{"produced_by", "created_by"} {
		if ts := data.Object(activity).Object("timespan"); ts != nil {
			return ts
		}
	}
	return data.Object("timespan")
}

// Materials resolves made_of into a single comma separated value
func (e *Extractor) Materials(ctx context.Context, data *model.Object, log model.LogSink) *model.Results {
	var uris []string
	for _, material := range data.Array("made_of") {
		if uri := graph.FindGettyURI(material); uri != "" {
			uris = append(uris, uri)
		}
	}

	results := model.NewResults()
	if materials := e.resolveAll(ctx, uris, "Materials", log); len(materials) > 0 {
		results.Set("Materials (Structured)", strings.Join(materials, ", "))
	} else {
		results.Set("Materials (Structured)", model.NotFound)
	}
	return results
}

var referenceFields = []struct {
	property string
	field    string
}{
	{"current_location", "Location"},
	{"current_owner", "Owner"},
	{"member_of", "Set"},
}

// References resolves the location, owner and set memberships
func (e *Extractor) References(ctx context.Context, data *model.Object, log model.LogSink) *model.Results {
	results := model.NewResults()
	for _, ref := range referenceFields {
		value, _ := data.Get(ref.property)
		results.SetOrNotFound(ref.field, e.linkedTerms(ctx, value, ref.field, log))
	}
	return results
}

// linkedTerms resolves the id of every object in value (a single object or
// an array), dropping unresolved ones.
func (e *Extractor) linkedTerms(ctx context.Context, value any, field string, log model.LogSink) []string {
	var uris []string
	for _, obj := range objects(model.AsArray(value)) {
		if id := obj.ID(); id != "" {
			uris = append(uris, id)
		}
	}
	return e.resolveAll(ctx, uris, field, log)
}

// resolveAll resolves uris concurrently, keeping input order and dropping misses
func (e *Extractor) resolveAll(ctx context.Context, uris []string, field string, log model.LogSink) []string {
	if len(uris) == 0 {
		return nil
	}
	var out []string
	for _, term := range vocab.TermsOf(ctx, e.terms, uris, field, vocab.Preferred, log) {
		if term != "" {
			out = append(out, term)
		}
	}
	return out
}

// objects filters the objects out of an array
func objects(items []any) []*model.Object {
	out := make([]*model.Object, 0, len(items))
	for _, item := range items {
		if obj, ok := item.(*model.Object); ok && obj != nil {
			out = append(out, obj)
		}
	}
	return out
}

func valueOf(obj *model.Object, key string) any {
	v, _ := obj.Get(key)
	return v
}
