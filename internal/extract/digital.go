package extract

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/ppiankov/latool/internal/graph"
	"github.com/ppiankov/latool/internal/model"
)

const (
	IIIFPresentation2Context = "http://iiif.io/api/presentation/2/context.json"
	IIIFPresentation3Context = "http://iiif.io/api/presentation/3/context.json"
	iiifPresentationPrefix   = "http://iiif.io/api/presentation"
)

// ImageFields are the fields filled from a IIIF manifest
var ImageFields = []string{"Primary Image", "Primary Thumbnail", "All Images", "All Thumbnails"}

// digitalCollector finds digital objects of one kind, sharing the set of
// already reported content ids across kinds.
type digitalCollector struct {
	seen map[string]bool
	log  model.LogSink
}

// contentID is the access point of a digital object, or its own id
func contentID(obj *model.Object) string {
	if points := obj.Array("access_point"); len(points) > 0 {
		if p, ok := points[0].(*model.Object); ok {
			return p.ID()
		}
		return ""
	}
	return obj.ID()
}

func (c *digitalCollector) collect(root any, match func(*model.Object) bool) []string {
	var out []string
	take := func(obj *model.Object) bool {
		id := contentID(obj)
		if !match(obj) || id == "" || c.seen[id] {
			return false
		}
		c.seen[id] = true
		out = append(out, id)
		return true
	}

	graph.IterativeSearch(root, func(node any) {
		obj, ok := node.(*model.Object)
		if !ok {
			return
		}
		if carriers := valueOf(obj, "digitally_carried_by"); model.Truthy(carriers) {
			for _, digital := range objects(model.AsArray(carriers)) {
				take(digital)
			}
			return
		}
		if take(obj) {
			model.Logf(c.log, "Digital object %s was not embedded in a digitally_carried_by property as expected.", obj.ID())
		}
	})
	return out
}

func (c *digitalCollector) conformsTo(obj *model.Object, prefix string) bool {
	value := valueOf(obj, "conforms_to")
	if !model.Truthy(value) {
		return false
	}
	items, ok := value.([]any)
	if !ok {
		raw, _ := json.Marshal(value)
		model.Logf(c.log, "conforms_to is not an array: %s", raw)
		return false
	}
	for _, item := range objects(items) {
		if strings.HasPrefix(item.ID(), prefix) {
			return true
		}
	}
	return false
}

// DigitalObjects finds web pages and IIIF manifests. Manifests conforming to
// Presentation API 3 are preferred; any IIIF presentation version is
// accepted when there are none.
func (e *Extractor) DigitalObjects(ctx context.Context, data *model.Object, log model.LogSink) *model.Results {
	c := &digitalCollector{seen: make(map[string]bool), log: log}

	webPages := c.collect(data, func(obj *model.Object) bool {
		classes := valueOf(obj, "classified_as")
		return model.Truthy(classes) && graph.FindClassifiedAs(classes, []string{WebPageURI}) != nil
	})

	manifests := c.collect(data, func(obj *model.Object) bool {
		return c.conformsTo(obj, IIIFPresentation3Context)
	})
	if len(manifests) == 0 {
		manifests = c.collect(data, func(obj *model.Object) bool {
			return c.conformsTo(obj, iiifPresentationPrefix)
		})
	}

	results := model.NewResults()
	results.SetOrNotFound("Web Pages", webPages)
	results.SetOrNotFound("IIIF Manifest", manifests)
	return results
}

// NoImages returns the image fields all set to model.NotFound
func NoImages() *model.Results {
	results := model.NewResults()
	for _, f := range ImageFields {
		results.Set(f, model.NotFound)
	}
	return results
}

// ImagesFromIIIF fetches a IIIF manifest and lists its images and
// thumbnails. Presentation API 2 and 3 layouts are understood; the primary
// image and thumbnail are the first of each found.
func (e *Extractor) ImagesFromIIIF(ctx context.Context, manifestURL string, log model.LogSink) *model.Results {
	results := NoImages()
	if e.fetcher == nil {
		return results
	}

	resp, err := e.fetcher.Fetch(ctx, manifestURL, nil)
	if err != nil {
		if ctx.Err() == nil {
			model.Logf(log, "Error processing IIIF manifest: %v", err)
		}
		return results
	}
	if !resp.OK() {
		model.Logf(log, "Failed to fetch IIIF Manifest data from %s", manifestURL)
		return results
	}
	doc, err := resp.JSON()
	if err != nil {
		model.Logf(log, "Error processing IIIF manifest: %v", err)
		return results
	}
	manifest, ok := doc.(*model.Object)
	if !ok {
		return results
	}

	var images, thumbnails orderedSet
	switch presentationVersion(manifest) {
	case 2:
		for _, thumb := range objects(model.AsArray(valueOf(manifest, "thumbnail"))) {
			thumbnails.add(thumb.String("@id"))
		}
		var canvases []any
		if sequences := manifest.Array("sequences"); len(sequences) > 0 {
			first, _ := sequences[0].(*model.Object)
			canvases = first.Array("canvases")
		}
		for _, canvas := range objects(canvases) {
			for _, image := range objects(canvas.Array("images")) {
				images.add(image.Object("resource").String("@id"))
			}
			for _, thumb := range objects(model.AsArray(valueOf(canvas, "thumbnail"))) {
				thumbnails.add(thumb.String("@id"))
			}
		}
	case 3:
		for _, thumb := range objects(manifest.Array("thumbnail")) {
			thumbnails.add(thumb.ID())
		}
		for _, canvas := range objects(manifest.Array("items")) {
			for _, page := range objects(canvas.Array("items")) {
				for _, annotation := range objects(page.Array("items")) {
					images.add(annotation.Object("body").ID())
				}
			}
			for _, thumb := range objects(canvas.Array("thumbnail")) {
				thumbnails.add(thumb.ID())
			}
		}
	}

	if len(images) > 0 {
		results.Set("Primary Image", images[0])
		results.Set("All Images", images...)
	}
	if len(thumbnails) > 0 {
		results.Set("Primary Thumbnail", thumbnails[0])
		results.Set("All Thumbnails", thumbnails...)
	}
	return results
}

// presentationVersion reads @context, which may be a string or a list
func presentationVersion(manifest *model.Object) int {
	for _, c := range model.AsArray(valueOf(manifest, "@context")) {
		switch c {
		case IIIFPresentation2Context:
			return 2
		case IIIFPresentation3Context:
			return 3
		}
	}
	return 0
}

// orderedSet keeps the first occurrence of each non-empty value
type orderedSet []string

func (s *orderedSet) add(v string) {
	if v == "" {
		return
	}
	for _, existing := range *s {
		if existing == v {
			return
		}
	}
	*s = append(*s, v)
}
