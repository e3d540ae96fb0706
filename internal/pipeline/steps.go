package pipeline

import (
	"context"

	"github.com/ppiankov/latool/internal/extract"
	"github.com/ppiankov/latool/internal/model"
)

// step runs one extractor. current holds the fields merged so far.
type step func(ctx context.Context, e *extract.Extractor, data *model.Object, current *model.Results, log model.LogSink) *model.Results

type extractorMethod func(*extract.Extractor, context.Context, *model.Object, model.LogSink) *model.Results

// always runs m unconditionally
func always(m extractorMethod) step {
	return func(ctx context.Context, e *extract.Extractor, data *model.Object, _ *model.Results, log model.LogSink) *model.Results {
		return m(e, ctx, data, log)
	}
}

// when runs m only if the entity has a value for property
func when(property string, m extractorMethod) step {
	return func(ctx context.Context, e *extract.Extractor, data *model.Object, _ *model.Results, log model.LogSink) *model.Results {
		if v, _ := data.Get(property); !model.Truthy(v) {
			return nil
		}
		return m(e, ctx, data, log)
	}
}

// images reads the first IIIF manifest found, or reports no images
func images(ctx context.Context, e *extract.Extractor, _ *model.Object, current *model.Results, log model.LogSink) *model.Results {
	if !current.Found("IIIF Manifest") {
		return extract.NoImages()
	}
	return e.ImagesFromIIIF(ctx, current.First("IIIF Manifest"), log)
}

func venues(ctx context.Context, e *extract.Extractor, data *model.Object, current *model.Results, log model.LogSink) *model.Results {
	return e.Venues(ctx, data, current, log)
}

// genericSteps run for every entity, in this order
var genericSteps = []step{
	always((*extract.Extractor).Names),
	always((*extract.Extractor).Identifiers),
	always((*extract.Extractor).WorkType),
	always((*extract.Extractor).Statements),
	always((*extract.Extractor).References),
}

// typeSteps run after the generic ones, keyed by entity type
var typeSteps = map[string][]step{
	"HumanMadeObject": {
		always((*extract.Extractor).Creators),
		always((*extract.Extractor).Timespan),
		always((*extract.Extractor).Dimensions),
		always((*extract.Extractor).Materials),
		always((*extract.Extractor).DigitalObjects),
		images,
	},
	"DigitalObject": {
		always((*extract.Extractor).DigitalObjects),
		images,
		when("created_by", (*extract.Extractor).Creators),
	},
	"Person": {
		always((*extract.Extractor).Life),
		when("timespan", (*extract.Extractor).Timespan),
	},
	"Group": {
		when("timespan", (*extract.Extractor).Timespan),
		always((*extract.Extractor).Founders),
	},
	"Place": {
		always((*extract.Extractor).ParentPlaces),
	},
	"Activity": activitySteps,
	"Event":    activitySteps,
}

var activitySteps = []step{
	when("timespan", (*extract.Extractor).Timespan),
	always((*extract.Extractor).Participants),
	venues,
}
