package extract

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/ppiankov/latool/internal/fetch"
	"github.com/ppiankov/latool/internal/model"
	"github.com/ppiankov/latool/internal/vocab"
)

// stubTerms resolves from a table and records every lookup
type stubTerms struct {
	mu     sync.Mutex
	terms  map[string]string
	alts   map[string]string
	lookup []string
}

func (s *stubTerms) Term(ctx context.Context, uri, field string, kind vocab.TermType, log model.LogSink) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookup = append(s.lookup, uri)
	if kind == vocab.Alternative {
		return s.alts[uri]
	}
	term, ok := s.terms[uri]
	if !ok {
		model.Logf(log, "Error retrieving %s data: All fetch attempts failed for %s. Last error: HTTP 404", field, uri)
	}
	return term
}

// docFetcher serves fixed documents
type docFetcher map[string]string

func (d docFetcher) Fetch(ctx context.Context, url string, headers map[string]string) (*fetch.Response, error) {
	body, ok := d[url]
	if !ok {
		return &fetch.Response{URL: url, StatusCode: http.StatusNotFound}, nil
	}
	return &fetch.Response{URL: url, StatusCode: http.StatusOK, Body: []byte(body)}, nil
}

func object(t *testing.T, doc string) *model.Object {
	t.Helper()
	obj, err := model.DecodeObject([]byte(doc))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return obj
}

func assertField(t *testing.T, r *model.Results, field string, want ...string) {
	t.Helper()
	got, ok := r.Get(field)
	if !ok {
		t.Fatalf("field %q not set", field)
	}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("%s = %q, want %q", field, got, want)
	}
}

func TestNames(t *testing.T) {
	doc := `{"identified_by": [
		{"type": "Name", "content": "Mona Lisa", "classified_as": [{"id": "http://vocab.getty.edu/aat/300404670"}]},
		{"type": "Name", "value": "La Joconde", "classified_as": [{"id": "http://vocab.getty.edu/aat/300417203"}]},
		{"type": "Identifier", "content": "779", "classified_as": [{"id": "http://vocab.getty.edu/aat/300404670"}]}
	]}`
	log := model.NewLogSet()

	r := New(&stubTerms{}, nil).Names(context.Background(), object(t, doc), log)

	assertField(t, r, "Title", "Mona Lisa")
	assertField(t, r, "Exhibited Title", model.NotFound)
	assertField(t, r, "Former Title", "La Joconde")
	if !log.Contains(`Former Title could not be retrieved using the "content" attribute. "value" attribute retrieved instead.`) {
		t.Errorf("expected value fallback log, got %v", log.Messages())
	}
}

func TestNames_NoMatch(t *testing.T) {
	r := New(&stubTerms{}, nil).Names(context.Background(), object(t, `{"type": "HumanMadeObject"}`), nil)
	assertField(t, r, "Title", model.NotFound)
}

func TestIdentifiers(t *testing.T) {
	doc := `{"identified_by": [
		{"type": "Identifier", "content": "SK-C-5", "classified_as": [{"id": "https://data.example.org/accession", "equivalent": [{"id": "http://vocab.getty.edu/aat/300312355"}]}]}
	]}`

	r := New(&stubTerms{}, nil).Identifiers(context.Background(), object(t, doc), nil)
	assertField(t, r, "Accession Number", "SK-C-5")
}

func TestWorkType(t *testing.T) {
	doc := `{"classified_as": [
		{"id": "http://vocab.getty.edu/aat/300033618", "type": "Type", "classified_as": [{"id": "http://vocab.getty.edu/aat/300435443"}]},
		{"id": "http://vocab.getty.edu/aat/300133025", "type": "Type"}
	]}`
	terms := &stubTerms{terms: map[string]string{"http://vocab.getty.edu/aat/300033618": "paintings (visual works)"}}

	r := New(terms, nil).WorkType(context.Background(), object(t, doc), nil)
	assertField(t, r, "Work Type (Classification)", "paintings (visual works)")
}

func TestCreators(t *testing.T) {
	terms := &stubTerms{terms: map[string]string{
		"https://example.org/person/A": "Jane Doe",
		"https://example.org/person/B": "John Roe",
	}}

	t.Run("single", func(t *testing.T) {
		doc := `{"produced_by": {"type": "Production", "carried_out_by": [{"id": "https://example.org/person/A"}]}}`
		r := New(terms, nil).Creators(context.Background(), object(t, doc), nil)
		assertField(t, r, "Creators", "Jane Doe")
		if _, ok := r.Get("CreatorsMessage"); ok {
			t.Error("expected no CreatorsMessage for a single creator")
		}
	})

	t.Run("multiple", func(t *testing.T) {
		doc := `{"produced_by": {"type": "Production", "carried_out_by": [
			{"id": "https://example.org/person/A"}, {"id": "https://example.org/person/B"}]}}`
		r := New(terms, nil).Creators(context.Background(), object(t, doc), nil)
		assertField(t, r, "Creators", "Jane Doe", "John Roe")
		assertField(t, r, "CreatorsMessage", CreatorsMessage)
	})

	t.Run("parts", func(t *testing.T) {
		doc := `{"produced_by": {"type": "Production", "part": [
			{"type": "Production", "carried_out_by": [{"id": "https://example.org/person/B"}]},
			{"type": "Production", "carried_out_by": [{"id": "https://example.org/person/A"}]}]}}`
		r := New(terms, nil).Creators(context.Background(), object(t, doc), nil)
		assertField(t, r, "Creators", "John Roe", "Jane Doe")
	})

	t.Run("created_by", func(t *testing.T) {
		doc := `{"type": "DigitalObject", "created_by": {"type": "Creation", "carried_out_by": [{"id": "https://example.org/person/B"}]}}`
		r := New(terms, nil).Creators(context.Background(), object(t, doc), nil)
		assertField(t, r, "Creators", "John Roe")
	})

	t.Run("unresolved", func(t *testing.T) {
		doc := `{"produced_by": {"carried_out_by": [{"id": "https://example.org/person/unknown"}]}}`
		log := model.NewLogSet()
		r := New(terms, nil).Creators(context.Background(), object(t, doc), log)
		assertField(t, r, "Creators", model.NotFound)
		if log.Len() != 1 {
			t.Errorf("expected one log message, got %v", log.Messages())
		}
	})

	t.Run("no production", func(t *testing.T) {
		r := New(terms, nil).Creators(context.Background(), object(t, `{}`), nil)
		assertField(t, r, "Creators", model.NotFound)
	})
}

func TestTimespan(t *testing.T) {
	doc := `{"produced_by": {"timespan": {
		"identified_by": [{"type": "Name", "content": "c. 1503-1506"}],
		"begin_of_the_begin": "1503-01-01T00:00:00Z",
		"end_of_the_end": "1506-12-31T23:59:59Z"}}}`

	r := New(&stubTerms{}, nil).Timespan(context.Background(), object(t, doc), nil)
	assertField(t, r, "Timespan (Name)", "c. 1503-1506")
	assertField(t, r, "Timespan (Structured)", "1503 to 1506")
}

func TestTimespan_OwnTimespan(t *testing.T) {
	doc := `{"type": "Group", "timespan": {"begin_of_the_begin": "1800-01-01T00:00:00Z", "end_of_the_end": "1800-12-31T00:00:00Z"}}`

	r := New(&stubTerms{}, nil).Timespan(context.Background(), object(t, doc), nil)
	assertField(t, r, "Timespan (Name)", model.NotFound)
	assertField(t, r, "Timespan (Structured)", "1800")
}

func TestTimespan_Missing(t *testing.T) {
	r := New(&stubTerms{}, nil).Timespan(context.Background(), object(t, `{"produced_by": {}}`), nil)
	assertField(t, r, "Timespan (Name)", model.NotFound)
	assertField(t, r, "Timespan (Structured)", model.NotFound)
}

var dimensionTerms = map[string]string{
	"http://vocab.getty.edu/aat/300055644": "height",
	"http://vocab.getty.edu/aat/300055647": "width",
	"http://vocab.getty.edu/aat/300379098": "centimeters",
	"http://vocab.getty.edu/aat/300010269": "excluded",
	"https://example.org/set/frame":        "frame",
	"http://vocab.getty.edu/aat/300072633": "unframed",
}

func TestDimensions_SetMembers(t *testing.T) {
	doc := `{"dimension": [
		{"type": "Dimension", "value": 77, "classified_as": [{"id": "http://vocab.getty.edu/aat/300055644"}],
		 "unit": {"id": "http://vocab.getty.edu/aat/300379098"}, "member_of": [{"id": "https://example.org/set/frame"}]},
		{"type": "Dimension", "value": 53.5, "classified_as": [{"id": "http://vocab.getty.edu/aat/300055647"}],
		 "unit": {"id": "http://vocab.getty.edu/aat/300379098"}, "member_of": [{"id": "https://example.org/set/frame"}]},
		{"type": "Dimension", "value": 3, "classified_as": [{"id": "http://vocab.getty.edu/aat/300010269"}],
		 "unit": {"id": "http://vocab.getty.edu/aat/300379098"}}
	]}`

	r := New(&stubTerms{terms: dimensionTerms}, nil).Dimensions(context.Background(), object(t, doc), nil)
	assertField(t, r, "Dimensions (Structured)", "frame: height: 77 centimeters; width: 53.5 centimeters")
}

func TestDimensions_AdditionalClassification(t *testing.T) {
	doc := `{"dimension": [
		{"type": "Dimension", "value": 10, "classified_as": [{"id": "http://vocab.getty.edu/aat/300055644"}],
		 "unit": {"id": "http://vocab.getty.edu/aat/300379098"},
		 "assigned_by": [{"type": "AttributeAssignment"}, {"type": "AttributeAssignment", "classified_as": [{"id": "http://vocab.getty.edu/aat/300072633"}]}]},
		{"type": "Dimension", "value": 20, "classified_as": [{"id": "http://vocab.getty.edu/aat/300055647"}, {"id": "http://vocab.getty.edu/aat/300072633"}],
		 "unit": {"id": "http://vocab.getty.edu/aat/300379098"}},
		{"type": "Dimension", "value": 30, "classified_as": [{"id": "http://vocab.getty.edu/aat/300055644"}],
		 "unit": {"id": "http://vocab.getty.edu/aat/300379098"}}
	]}`

	r := New(&stubTerms{terms: dimensionTerms}, nil).Dimensions(context.Background(), object(t, doc), nil)
	assertField(t, r, "Dimensions (Structured)",
		"unframed: height: 10 centimeters; width: 20 centimeters",
		"height: 30 centimeters")
}

func TestDimensions_MissingLabels(t *testing.T) {
	doc := `{"dimension": [
		{"type": "Dimension", "value": 10, "classified_as": [{"id": "https://example.org/type/depth"}]}
	]}`
	log := model.NewLogSet()

	r := New(&stubTerms{terms: dimensionTerms}, nil).Dimensions(context.Background(), object(t, doc), log)
	assertField(t, r, "Dimensions (Structured)", model.NotFound)
	for _, msg := range []string{
		"Unable to retrieve dimension type from https://example.org/type/depth",
		"Unable to retrieve dimension unit from unknown unit",
	} {
		if !log.Contains(msg) {
			t.Errorf("expected log %q, got %v", msg, log.Messages())
		}
	}
}

func TestMaterials(t *testing.T) {
	doc := `{"made_of": [
		{"id": "http://vocab.getty.edu/aat/300015050", "type": "Material"},
		{"id": "https://example.org/material/local", "type": "Material"},
		{"id": "http://vocab.getty.edu/aat/300014657", "type": "Material"}
	]}`
	terms := &stubTerms{terms: map[string]string{
		"http://vocab.getty.edu/aat/300015050": "oil paint",
		"http://vocab.getty.edu/aat/300014657": "poplar",
	}}

	r := New(terms, nil).Materials(context.Background(), object(t, doc), nil)
	assertField(t, r, "Materials (Structured)", "oil paint, poplar")

	r = New(terms, nil).Materials(context.Background(), object(t, `{}`), nil)
	assertField(t, r, "Materials (Structured)", model.NotFound)
}

func TestReferences(t *testing.T) {
	doc := `{
		"current_location": {"id": "https://example.org/place/gallery", "type": "Place"},
		"current_owner": {"type": "Group", "_label": "no id"},
		"member_of": [{"id": "https://example.org/set/1"}, {"id": "https://example.org/set/2"}, {"type": "Set"}]
	}`
	terms := &stubTerms{terms: map[string]string{
		"https://example.org/place/gallery": "Gallery 2.8",
		"https://example.org/set/1":         "Paintings",
		"https://example.org/set/2":         "Highlights",
	}}

	r := New(terms, nil).References(context.Background(), object(t, doc), nil)
	assertField(t, r, "Location", "Gallery 2.8")
	assertField(t, r, "Owner", model.NotFound)
	assertField(t, r, "Set", "Paintings", "Highlights")
	if got := r.Fields(); strings.Join(got, ",") != "Location,Owner,Set" {
		t.Errorf("unexpected field order %v", got)
	}
}

func TestStatements(t *testing.T) {
	doc := `{"referred_to_by": [
		{"type": "LinguisticObject", "content": "Gift of the artist", "classified_as": [{"id": "http://vocab.getty.edu/aat/300026687"}]},
		{"type": "LinguisticObject", "content": "A portrait.", "classified_as": [{"id": "http://vocab.getty.edu/aat/300435416"}]},
		{"type": "LinguisticObject", "content": "Old description", "classified_as": [{"id": "http://vocab.getty.edu/aat/300080091"}]},
		{"type": "Name", "content": "not a statement", "classified_as": [{"id": "http://vocab.getty.edu/aat/300311705"}]}
	]}`
	terms := &stubTerms{alts: map[string]string{"http://vocab.getty.edu/aat/300435418": "credit line"}}
	log := model.NewLogSet()

	r := New(terms, nil).Statements(context.Background(), object(t, doc), log)

	assertField(t, r, "Credit Line", "Gift of the artist")
	assertField(t, r, "Description", "A portrait.")
	assertField(t, r, "Citations", model.NotFound)
	assertField(t, r, "Social Media", model.NotFound)

	want := `Credit Line not found using http://vocab.getty.edu/aat/300435418 ("credit line"). http://vocab.getty.edu/aat/300026687 ("Secondary Term") used instead.`
	if !log.Contains(want) {
		t.Errorf("expected fallback log %q, got %v", want, log.Messages())
	}
	for _, msg := range log.Messages() {
		if strings.HasPrefix(msg, "Description not found") {
			t.Errorf("primary description present, unexpected fallback log %q", msg)
		}
	}
}

func TestStatements_SecondSecondaryURI(t *testing.T) {
	doc := `{"referred_to_by": [
		{"type": "LinguisticObject", "content": "Sold 1850", "classified_as": [{"id": "http://vocab.getty.edu/aat/300444174"}]}
	]}`
	log := model.NewLogSet()

	r := New(&stubTerms{}, nil).Statements(context.Background(), object(t, doc), log)
	assertField(t, r, "Provenance Description", "Sold 1850")
	want := `Provenance Description not found using http://vocab.getty.edu/aat/300435438 ("Primary Term"). http://vocab.getty.edu/aat/300444174 ("Secondary Term") used instead.`
	if !log.Contains(want) {
		t.Errorf("expected fallback log %q, got %v", want, log.Messages())
	}
}

func TestStatements_Markdown(t *testing.T) {
	doc := `{"referred_to_by": [
		{"type": "LinguisticObject", "content": "<p>Gift of <strong>Jane Doe</strong></p>", "classified_as": [{"id": "http://vocab.getty.edu/aat/300435418"}]},
		{"type": "LinguisticObject", "content": "Height < 10 cm", "classified_as": [{"id": "http://vocab.getty.edu/aat/300435430"}]}
	]}`

	r := New(&stubTerms{}, nil, WithMarkdownStatements()).Statements(context.Background(), object(t, doc), nil)
	assertField(t, r, "Credit Line", "Gift of **Jane Doe**")
	assertField(t, r, "Dimensions Statement", "Height < 10 cm")

	plain := New(&stubTerms{}, nil).Statements(context.Background(), object(t, doc), nil)
	assertField(t, plain, "Credit Line", "<p>Gift of <strong>Jane Doe</strong></p>")
}

func TestDigitalObjects(t *testing.T) {
	doc := `{
		"subject_of": [
			{"type": "LinguisticObject", "digitally_carried_by": [
				{"type": "DigitalObject", "classified_as": [{"id": "http://vocab.getty.edu/aat/300264578"}],
				 "access_point": [{"id": "https://example.org/page"}]}]},
			{"type": "DigitalObject", "id": "https://example.org/manifest-do",
			 "conforms_to": [{"id": "http://iiif.io/api/presentation/3/context.json"}],
			 "access_point": [{"id": "https://example.org/manifest.json"}]},
			{"type": "LinguisticObject", "digitally_carried_by": [
				{"type": "DigitalObject", "conforms_to": [{"id": "http://iiif.io/api/presentation/2/context.json"}],
				 "access_point": [{"id": "https://example.org/v2.json"}]}]}
		]
	}`
	log := model.NewLogSet()

	r := New(&stubTerms{}, nil).DigitalObjects(context.Background(), object(t, doc), log)

	assertField(t, r, "Web Pages", "https://example.org/page")
	assertField(t, r, "IIIF Manifest", "https://example.org/manifest.json")
	want := "Digital object https://example.org/manifest-do was not embedded in a digitally_carried_by property as expected."
	if !log.Contains(want) {
		t.Errorf("expected log %q, got %v", want, log.Messages())
	}
}

func TestDigitalObjects_AnyPresentationVersion(t *testing.T) {
	doc := `{"subject_of": [
		{"type": "LinguisticObject", "digitally_carried_by": [
			{"type": "DigitalObject", "conforms_to": [{"id": "http://iiif.io/api/presentation/2/context.json"}],
			 "access_point": [{"id": "https://example.org/v2.json"}]}]},
		{"type": "LinguisticObject", "digitally_carried_by": [
			{"type": "DigitalObject", "conforms_to": {"id": "http://iiif.io/api/presentation/3/context.json"},
			 "access_point": [{"id": "https://example.org/broken.json"}]}]}
	]}`
	log := model.NewLogSet()

	r := New(&stubTerms{}, nil).DigitalObjects(context.Background(), object(t, doc), log)

	assertField(t, r, "Web Pages", model.NotFound)
	assertField(t, r, "IIIF Manifest", "https://example.org/v2.json")
	want := `conforms_to is not an array: {"id":"http://iiif.io/api/presentation/3/context.json"}`
	if !log.Contains(want) {
		t.Errorf("expected log %q, got %v", want, log.Messages())
	}
}

func TestImagesFromIIIF(t *testing.T) {
	fetcher := docFetcher{
		"https://example.org/v2.json": `{
			"@context": "http://iiif.io/api/presentation/2/context.json",
			"thumbnail": {"@id": "https://example.org/thumb/0"},
			"sequences": [{"canvases": [
				{"images": [{"resource": {"@id": "https://example.org/img/1"}}], "thumbnail": {"@id": "https://example.org/thumb/1"}},
				{"images": [{"resource": {"@id": "https://example.org/img/2"}}]}
			]}]
		}`,
		"https://example.org/v3.json": `{
			"@context": ["http://www.w3.org/ns/anno.jsonld", "http://iiif.io/api/presentation/3/context.json"],
			"items": [
				{"items": [{"items": [{"body": {"id": "https://example.org/img/1"}}]}], "thumbnail": [{"id": "https://example.org/thumb/1"}]},
				{"items": [{"items": [{"body": {"id": "https://example.org/img/1"}}, {"body": {"id": "https://example.org/img/2"}}]}]}
			]
		}`,
	}
	e := New(&stubTerms{}, fetcher)

	t.Run("presentation 2", func(t *testing.T) {
		r := e.ImagesFromIIIF(context.Background(), "https://example.org/v2.json", nil)
		assertField(t, r, "Primary Image", "https://example.org/img/1")
		assertField(t, r, "Primary Thumbnail", "https://example.org/thumb/0")
		assertField(t, r, "All Images", "https://example.org/img/1", "https://example.org/img/2")
		assertField(t, r, "All Thumbnails", "https://example.org/thumb/0", "https://example.org/thumb/1")
	})

	t.Run("presentation 3", func(t *testing.T) {
		r := e.ImagesFromIIIF(context.Background(), "https://example.org/v3.json", nil)
		assertField(t, r, "Primary Image", "https://example.org/img/1")
		assertField(t, r, "All Images", "https://example.org/img/1", "https://example.org/img/2")
		assertField(t, r, "All Thumbnails", "https://example.org/thumb/1")
	})

	t.Run("fetch failure", func(t *testing.T) {
		log := model.NewLogSet()
		r := e.ImagesFromIIIF(context.Background(), "https://example.org/missing.json", log)
		for _, f := range ImageFields {
			assertField(t, r, f, model.NotFound)
		}
		if !log.Contains("Failed to fetch IIIF Manifest data from https://example.org/missing.json") {
			t.Errorf("unexpected log %v", log.Messages())
		}
	})
}

var placeTerms = map[string]string{
	"https://example.org/place/florence": "Florence",
	"https://example.org/place/amboise":  "Amboise",
	"https://example.org/place/tuscany":  "Tuscany",
	"https://example.org/person/A":       "Jane Doe",
	"https://example.org/person/B":       "John Roe",
}

func TestLife(t *testing.T) {
	doc := `{
		"type": "Person",
		"born_at": {"id": "https://example.org/place/florence"},
		"born": {"type": "Birth",
			"took_place_at": [{"id": "https://example.org/place/florence"}],
			"timespan": {"begin_of_the_begin": "1452-04-15T00:00:00Z", "end_of_the_end": "1452-04-15T23:59:59Z"}},
		"died": {"type": "Death", "took_place_at": [{"id": "https://example.org/place/amboise"}]}
	}`

	r := New(&stubTerms{terms: placeTerms}, nil).Life(context.Background(), object(t, doc), nil)
	assertField(t, r, "Birth Place", "Florence")
	assertField(t, r, "Birth Date", "15 to 15 April 1452")
	assertField(t, r, "Death Place", "Amboise")
	if _, ok := r.Get("Death Date"); ok {
		t.Error("Death Date should not be set without a timespan")
	}
}

func TestFoundersAndParticipants(t *testing.T) {
	doc := `{
		"formed_by": {"type": "Formation", "carried_out_by": [{"id": "https://example.org/person/A"}, {"id": "https://example.org/person/B"}]},
		"carried_out_by": [{"id": "https://example.org/person/B"}, {"id": "https://example.org/person/A"}],
		"part_of": [{"id": "https://example.org/place/tuscany"}]
	}`
	e := New(&stubTerms{terms: placeTerms}, nil)
	data := object(t, doc)

	assertField(t, e.Founders(context.Background(), data, nil), "Founded By", "Jane Doe")
	assertField(t, e.Participants(context.Background(), data, nil), "Participants", "John Roe", "Jane Doe")
	assertField(t, e.ParentPlaces(context.Background(), data, nil), "Part Of", "Tuscany")

	if r := e.Founders(context.Background(), object(t, `{}`), nil); r.Len() != 0 {
		t.Errorf("expected no fields, got %v", r.Fields())
	}
}

func TestVenues(t *testing.T) {
	doc := `{"type": "Activity", "took_place_at": [{"id": "https://example.org/place/amboise"}]}`
	e := New(&stubTerms{terms: placeTerms}, nil)

	current := model.NewResults()
	current.Set("Location", model.NotFound)
	assertField(t, e.Venues(context.Background(), object(t, doc), current, nil), "Location", "Amboise")

	current.Set("Location", "Florence")
	assertField(t, e.Venues(context.Background(), object(t, doc), current, nil), "Location", "Florence", "Amboise")

	current.Set("Location", "Amboise")
	assertField(t, e.Venues(context.Background(), object(t, doc), current, nil), "Location", "Amboise", "Amboise")

	twice := `{"type": "Event", "took_place_at": [
		{"id": "https://example.org/place/florence"}, {"id": "https://example.org/place/florence"}]}`
	current.Set("Location", model.NotFound)
	assertField(t, e.Venues(context.Background(), object(t, twice), current, nil), "Location", "Florence", "Florence")

	if r := e.Venues(context.Background(), object(t, `{}`), current, nil); r.Len() != 0 {
		t.Errorf("expected no fields, got %v", r.Fields())
	}
}
