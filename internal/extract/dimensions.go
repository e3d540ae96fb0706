package extract

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/latool/internal/graph"
	"github.com/ppiankov/latool/internal/model"
	"github.com/ppiankov/latool/internal/vocab"
)

// dimensionGroups collects statements per group label in first-seen order
type dimensionGroups struct {
	order      []string
	statements map[string][]string
}

func (g *dimensionGroups) add(label, statement string) {
	if g.statements == nil {
		g.statements = make(map[string][]string)
	}
	if _, ok := g.statements[label]; !ok {
		g.order = append(g.order, label)
	}
	g.statements[label] = append(g.statements[label], statement)
}

func (g *dimensionGroups) lines() []string {
	var out []string
	for _, label := range g.order {
		line := strings.Join(g.statements[label], "; ")
		if label != "" {
			line = label + ": " + line
		}
		out = append(out, strings.Split(line, "\n")...)
	}
	return out
}

// Dimensions builds "Dimensions (Structured)". Entries that are members of
// a set are grouped by the set label; others are grouped by an additional
// classification taken from their attribute assignment or from their second
// classification. Entries classified as excluded are skipped.
func (e *Extractor) Dimensions(ctx context.Context, data *model.Object, log model.LogSink) *model.Results {
	var groups dimensionGroups

	for _, dim := range objects(data.Array("dimension")) {
		if excludedDimension(dim) {
			continue
		}

		if members, ok := valueOf(dim, "member_of").([]any); ok {
			statement := e.dimensionStatement(ctx, dim, log)
			if statement == "" {
				continue
			}
			setLabel := ""
			for _, member := range objects(members) {
				if label := e.terms.Term(ctx, member.ID(), "Set Label", vocab.Preferred, log); label != "" {
					setLabel = label
					break
				}
			}
			groups.add(setLabel, statement)
			continue
		}

		statement := e.dimensionStatement(ctx, dim, log)
		classLabel := e.additionalClassification(ctx, dim, log)
		if statement != "" {
			groups.add(classLabel, statement)
		}
	}

	results := model.NewResults()
	results.SetOrNotFound("Dimensions (Structured)", groups.lines())
	return results
}

func excludedDimension(dim *model.Object) bool {
	for _, class := range dim.Array("classified_as") {
		if graph.FindGettyURI(class) == ExcludedDimensionURI {
			return true
		}
	}
	return false
}

// dimensionStatement renders "{type}: {value} {unit}", or "" when the
// value, the type label or the unit label is missing.
func (e *Extractor) dimensionStatement(ctx context.Context, dim *model.Object, log model.LogSink) string {
	classes := valueOf(dim, "classified_as")
	dimensionURI := graph.FindGettyURI(classes)
	unit := valueOf(dim, "unit")
	unitURI := ""
	if model.Truthy(unit) {
		unitURI = graph.FindGettyURI(unit)
	}

	var dimensionLabel, unitLabel string
	var g errgroup.Group
	if dimensionURI != "" {
		g.Go(func() error {
			dimensionLabel = e.terms.Term(ctx, dimensionURI, "Dimension", vocab.Preferred, log)
			return nil
		})
	}
	if unitURI != "" {
		g.Go(func() error {
			unitLabel = e.terms.Term(ctx, unitURI, "Unit", vocab.Preferred, log)
			return nil
		})
	}
	_ = g.Wait()

	if dimensionLabel == "" {
		source := dimensionURI
		if source == "" {
			var ids []string
			for _, class := range objects(model.AsArray(classes)) {
				ids = append(ids, class.ID())
			}
			source = strings.Join(ids, ", ")
		}
		model.Logf(log, "Unable to retrieve dimension type from %s", source)
	}
	if unitLabel == "" {
		source := unitURI
		if source == "" {
			source = "unknown unit"
			if u, ok := unit.(*model.Object); ok && u.ID() != "" {
				source = u.ID()
			}
		}
		model.Logf(log, "Unable to retrieve dimension unit from %s", source)
	}

	value := valueOf(dim, "value")
	if !model.Truthy(value) || dimensionLabel == "" || unitLabel == "" {
		return ""
	}
	return fmt.Sprintf("%s: %s %s", dimensionLabel, model.FormatScalar(value), unitLabel)
}

// additionalClassification resolves the grouping label of a dimension that
// is not a set member.
func (e *Extractor) additionalClassification(ctx context.Context, dim *model.Object, log model.LogSink) string {
	uri, ok := "", false
	if assignments, isArray := valueOf(dim, "assigned_by").([]any); isArray {
		for _, assignment := range objects(assignments) {
			classes := assignment.Array("classified_as")
			if len(classes) == 0 {
				continue
			}
			first, _ := classes[0].(*model.Object)
			uri, ok = first.ID(), true
			break
		}
	} else if classes := dim.Array("classified_as"); len(classes) > 1 {
		second, _ := classes[1].(*model.Object)
		uri, ok = second.ID(), true
	}
	if !ok {
		return ""
	}

	label := ""
	if uri != "" {
		label = e.terms.Term(ctx, uri, "Additional Classification", vocab.Preferred, log)
	}
	if label == "" {
		model.Logf(log, "Unable to retrieve additional classification label from %s", uri)
	}
	return label
}
