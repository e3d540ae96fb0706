// Package pipeline runs one Linked Art analysis end to end: fetch, ID
// normalization, entity-type dispatch over the pattern extractors and the
// optional link check and description steps.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/latool/internal/extract"
	"github.com/ppiankov/latool/internal/fetch"
	"github.com/ppiankov/latool/internal/graph"
	"github.com/ppiankov/latool/internal/model"
	"github.com/ppiankov/latool/internal/parse"
	"github.com/ppiankov/latool/internal/validate"
	"github.com/ppiankov/latool/internal/vocab"
)

// CancelledMessage is the Result error of a cancelled run
const CancelledMessage = "Request cancelled"

var (
	// ErrCancelled marks a run aborted by the caller
	ErrCancelled = errors.New("request cancelled")

	// ErrNotEntity is returned when the document is JSON but not an object
	ErrNotEntity = errors.New("document is not a JSON object")
)

// LinkChecker checks the URLs an analysis reports
type LinkChecker interface {
	Check(ctx context.Context, links []validate.Link) []model.LinkStatus
}

// Describer writes the optional description of a successful analysis
type Describer interface {
	Describe(ctx context.Context, result *model.Result) (*model.Description, error)
}

// Option configures an Analyzer
type Option func(*Analyzer)

// WithLinkChecker enables the link check step
func WithLinkChecker(c LinkChecker) Option {
	return func(a *Analyzer) { a.links = c }
}

// WithDescriber enables the description step
func WithDescriber(d Describer) Option {
	return func(a *Analyzer) { a.describer = d }
}

// Analyzer runs analyses. It holds no per-run state and is safe for
// concurrent use; every run gets its own log set and term memo.
type Analyzer struct {
	fetcher   fetch.Fetcher
	cfg       *model.Config
	logger    *slog.Logger
	links     LinkChecker
	describer Describer
}

// NewAnalyzer creates an analyzer
func NewAnalyzer(fetcher fetch.Fetcher, cfg *model.Config, logger *slog.Logger, opts ...Option) *Analyzer {
	if cfg == nil {
		cfg = model.DefaultConfig()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	a := &Analyzer{fetcher: fetcher, cfg: cfg, logger: logger}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze fetches url and extracts the catalogue fields of the entity.
// Fetch and JSON failures end the run with Success false; a cancelled ctx
// ends it with Cancelled true.
func (a *Analyzer) Analyze(ctx context.Context, url string) *model.Result {
	runID := uuid.NewString()
	logger := a.logger.With(slog.String("run_id", runID), slog.String("url", url))
	start := time.Now()
	log := model.NewLogSet()

	data, err := a.fetchEntity(ctx, url)
	if err != nil {
		return a.failure(ctx, logger, runID, url, err)
	}
	graph.NormalizeIDs(data, log)

	terms := vocab.NewResolver(a.fetcher, logger)
	var extractOpts []extract.Option
	if a.cfg.Output.MarkdownStatements {
		extractOpts = append(extractOpts, extract.WithMarkdownStatements())
	}
	e := extract.New(terms, a.fetcher, extractOpts...)

	entityType := graph.EntityTypeOf(data)
	results := model.NewResults()
	results.Set("Entity Type", graph.FriendlyTypeName(entityType))
	entityID := data.ID()
	if entityID == "" {
		entityID = url
	}
	results.Set("Entity ID", entityID)

	for _, s := range genericSteps {
		results.Merge(s(ctx, e, data, results, log))
	}
	for _, s := range typeSteps[entityType] {
		results.Merge(s(ctx, e, data, results, log))
	}

	if ctx.Err() != nil {
		return a.failure(ctx, logger, runID, url, ctx.Err())
	}

	result := &model.Result{
		RunID:       runID,
		SourceURL:   url,
		AnalyzedAt:  time.Now().UTC(),
		Success:     true,
		EntityType:  graph.FriendlyTypeName(entityType),
		Results:     results,
		LogMessages: log.Messages(),
	}
	logger.Info("analysis complete",
		slog.String("entity_type", entityType),
		slog.Int("fields", results.Len()),
		slog.Int("log_messages", log.Len()),
		slog.Duration("elapsed", time.Since(start)))

	a.enrich(ctx, logger, result)
	return result
}

// enrich runs the optional steps. They only add to the result.
func (a *Analyzer) enrich(ctx context.Context, logger *slog.Logger, result *model.Result) {
	if a.links != nil {
		if links := validate.LinksFromResults(result.Results); len(links) > 0 {
			result.Links = a.links.Check(ctx, links)
		}
	}
	if a.describer != nil {
		desc, err := a.describer.Describe(ctx, result)
		if err != nil {
			logger.Warn("description failed", slog.String("error", err.Error()))
		} else {
			result.Description = desc
		}
	}
}

// Parse fetches url and builds the recursive entity tree. The log set
// collects the parser's diagnostics.
func (a *Analyzer) Parse(ctx context.Context, url string, opts parse.Options) (*model.Node, *model.LogSet, error) {
	log := model.NewLogSet()

	data, err := a.fetchEntity(ctx, url)
	if err != nil {
		if cancelled(ctx) {
			return nil, log, fmt.Errorf("parse %s: %w", url, ErrCancelled)
		}
		return nil, log, err
	}
	graph.NormalizeIDs(data, log)

	var terms vocab.Terms
	if opts.ResolveReferences {
		terms = vocab.NewResolver(a.fetcher, a.logger)
	}
	node, err := parse.New(a.fetcher, terms, log).Parse(ctx, data, opts)
	if err != nil {
		if cancelled(ctx) {
			return nil, log, fmt.Errorf("parse %s: %w", url, ErrCancelled)
		}
		return nil, log, fmt.Errorf("parse %s: %w", url, err)
	}
	return node, log, nil
}

// fetchEntity fetches and decodes the root document
func (a *Analyzer) fetchEntity(ctx context.Context, url string) (*model.Object, error) {
	resp, err := a.fetcher.Fetch(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("error fetching data from %s: %w", url, err)
	}
	if !resp.OK() {
		return nil, fmt.Errorf("error fetching data from %s: HTTP %d: %s", url, resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	doc, err := resp.JSON()
	if err != nil {
		return nil, fmt.Errorf("error fetching data from %s: %w", url, err)
	}
	obj, ok := doc.(*model.Object)
	if !ok {
		return nil, fmt.Errorf("error fetching data from %s: %w", url, ErrNotEntity)
	}
	return obj, nil
}

// failure reports a run that stopped early. Only a caller's cancellation is
// a cancelled result; a passed deadline is an ordinary failure.
func (a *Analyzer) failure(ctx context.Context, logger *slog.Logger, runID, url string, err error) *model.Result {
	if cancelled(ctx) {
		logger.Info("analysis cancelled")
		result := model.Failure(runID, url, ErrCancelled)
		result.Cancelled = true
		result.Error = CancelledMessage
		return result
	}
	logger.Warn("analysis failed", slog.String("error", err.Error()))
	return model.Failure(runID, url, err)
}

func cancelled(ctx context.Context) bool {
	return errors.Is(ctx.Err(), context.Canceled)
}
