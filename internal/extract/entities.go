package extract

import (
	"context"

	"github.com/ppiankov/latool/internal/model"
)

// Life extracts birth and death places and dates of a Person. Places come
// from born_at/died_at and from the took_place_at of the Birth and Death
// events; fields are only set when something was found.
func (e *Extractor) Life(ctx context.Context, data *model.Object, log model.LogSink) *model.Results {
	results := model.NewResults()

	for _, ev := range []struct {
		shortcut, event, place, date string
	}{
		{"born_at", "born", "Birth Place", "Birth Date"},
		{"died_at", "died", "Death Place", "Death Date"},
	} {
		event := data.Object(ev.event)

		places := e.linkedTerms(ctx, valueOf(data, ev.shortcut), ev.place, log)
		for _, p := range e.linkedTerms(ctx, valueOf(event, "took_place_at"), ev.place, log) {
			places = appendUnique(places, p)
		}
		if len(places) > 0 {
			results.Set(ev.place, places...)
		}

		if ts := event.Object("timespan"); ts != nil {
			if s := FormatTimespan(ts.String("begin_of_the_begin"), ts.String("end_of_the_end")); s != "" {
				results.Set(ev.date, s)
			}
		}
	}
	return results
}

// Founders resolves the first actor of each formation of a Group
func (e *Extractor) Founders(ctx context.Context, data *model.Object, log model.LogSink) *model.Results {
	var uris []string
	for _, formation := range objects(model.AsArray(valueOf(data, "formed_by"))) {
		actors := objects(model.AsArray(valueOf(formation, "carried_out_by")))
		if len(actors) > 0 && actors[0].ID() != "" {
			uris = append(uris, actors[0].ID())
		}
	}

	results := model.NewResults()
	if founders := e.resolveAll(ctx, uris, "Founder", log); len(founders) > 0 {
		results.Set("Founded By", founders...)
	}
	return results
}

// ParentPlaces resolves part_of of a Place
func (e *Extractor) ParentPlaces(ctx context.Context, data *model.Object, log model.LogSink) *model.Results {
	results := model.NewResults()
	if places := e.linkedTerms(ctx, valueOf(data, "part_of"), "Parent Place", log); len(places) > 0 {
		results.Set("Part Of", places...)
	}
	return results
}

// Participants resolves carried_out_by of an Activity or Event
func (e *Extractor) Participants(ctx context.Context, data *model.Object, log model.LogSink) *model.Results {
	results := model.NewResults()
	if actors := e.linkedTerms(ctx, valueOf(data, "carried_out_by"), "Participant", log); len(actors) > 0 {
		results.Set("Participants", actors...)
	}
	return results
}

// Venues resolves took_place_at of an Activity or Event. The places are
// appended to an existing Location field as found, repeats included, and
// replace a NotFound sentinel.
func (e *Extractor) Venues(ctx context.Context, data *model.Object, current *model.Results, log model.LogSink) *model.Results {
	results := model.NewResults()
	places := e.linkedTerms(ctx, valueOf(data, "took_place_at"), "Location", log)
	if len(places) == 0 {
		return results
	}

	var merged []string
	if current.Found("Location") {
		merged, _ = current.Get("Location")
		merged = append([]string(nil), merged...)
	}
	results.Set("Location", append(merged, places...)...)
	return results
}

func appendUnique(values []string, v string) []string {
	for _, existing := range values {
		if existing == v {
			return values
		}
	}
	return append(values, v)
}
