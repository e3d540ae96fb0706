package extract

import (
	"context"
	"regexp"
	"strings"

	"github.com/ppiankov/latool/internal/graph"
	"github.com/ppiankov/latool/internal/model"
	"github.com/ppiankov/latool/internal/vocab"
)

// statementURIs lists, per field, the current classification and the
// legacy ones older documents still use.
var statementURIs = []struct {
	field     string
	primary   string
	secondary []string
}{
	{"Credit Line", aat + "300435418", []string{aat + "300026687"}},
	{"Dimensions Statement", aat + "300435430", []string{aat + "300266036"}},
	{"Materials Statement", aat + "300435429", []string{aat + "300010358"}},
	{"Citations", aat + "300311705", nil},
	{"Access Statement", aat + "300133046", nil},
	{"Description", aat + "300435416", []string{aat + "300080091"}},
	{"Provenance Description", aat + "300435438", []string{aat + "300055863", aat + "300444174"}},
	{"Work Type (Statement)", aat + "300435443", nil},
	{"Social Media", aat + "300312269", nil},
}

var htmlTagRe = regexp.MustCompile(`<[a-zA-Z][^>]*>`)

// Statements extracts the referred_to_by statements. When no statement
// carries the current classification, the legacy ones are tried in order
// and the substitution is logged with the alternative terms of both URIs.
func (e *Extractor) Statements(ctx context.Context, data *model.Object, log model.LogSink) *model.Results {
	results := model.NewResults()
	for _, s := range statementURIs {
		statements := e.findStatements(data, s.primary, log)
		if len(statements) == 0 {
			for _, secondary := range s.secondary {
				statements = e.findStatements(data, secondary, log)
				if len(statements) == 0 {
					continue
				}
				primaryAlt := e.terms.Term(ctx, s.primary, s.field, vocab.Alternative, log)
				if primaryAlt == "" {
					primaryAlt = "Primary Term"
				}
				secondaryAlt := e.terms.Term(ctx, secondary, s.field, vocab.Alternative, log)
				if secondaryAlt == "" {
					secondaryAlt = "Secondary Term"
				}
				model.Logf(log, "%s not found using %s (\"%s\"). %s (\"%s\") used instead.", s.field, s.primary, primaryAlt, secondary, secondaryAlt)
				break
			}
		}
		results.SetOrNotFound(s.field, statements)
	}
	return results
}

func (e *Extractor) findStatements(data *model.Object, uri string, log model.LogSink) []string {
	var out []string
	for _, item := range objects(data.Array("referred_to_by")) {
		if item.Type() != "LinguisticObject" {
			continue
		}
		if graph.FindClassifiedAs(valueOf(item, "classified_as"), []string{uri}) == nil {
			continue
		}
		if v := graph.ContentOrValue(item, "Statement", log); v != "" {
			out = append(out, e.renderStatement(v))
		}
	}
	return out
}

// renderStatement converts HTML statement content to Markdown when enabled.
// Content that fails to convert is returned unchanged.
func (e *Extractor) renderStatement(content string) string {
	if e.markdown == nil || !htmlTagRe.MatchString(content) {
		return content
	}
	out, err := e.markdown.ConvertString(content)
	if err != nil {
		return content
	}
	return strings.TrimSpace(out)
}
