// Package agent orchestrates a full run: fetch feeds, filter and dedupe,
// enrich, select the day's top stories, assemble the summary.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"newsagent/internal/feeds"
	"newsagent/internal/metrics"
	"newsagent/internal/news"
	"newsagent/internal/rank"
)

const (
	defaultTopN         = 5
	defaultMaxPerSource = 2
	defaultWindowDays   = 7
	defaultEnrichLimit  = 100

	dateFormat = "January 2, 2006"
)

// Enricher turns raw articles into scored summaries. The heuristic and
// AI-backed implementations are interchangeable here.
type Enricher interface {
	EnrichBatch(ctx context.Context, articles []feeds.RawArticle) []news.ArticleSummary
}

// Selector picks the final articles out of the enriched pool. Implementations
// decide their own diversity strategy.
type Selector interface {
	Select(ctx context.Context, summaries []news.ArticleSummary, n int) []news.ArticleSummary
}

// ProgressFunc receives human-readable stage notifications during a run.
type ProgressFunc func(stage string)

// Options tune a run. Zero values take the defaults above.
type Options struct {
	TopN         int
	MaxPerSource int
	WindowDays   int
	EnrichLimit  int
}

func (o *Options) fill() {
	if o.TopN <= 0 {
		o.TopN = defaultTopN
	}
	if o.MaxPerSource <= 0 {
		o.MaxPerSource = defaultMaxPerSource
	}
	if o.WindowDays <= 0 {
		o.WindowDays = defaultWindowDays
	}
	if o.EnrichLimit <= 0 {
		o.EnrichLimit = defaultEnrichLimit
	}
}

// Agent wires the pipeline stages together.
type Agent struct {
	fetcher  *feeds.Fetcher
	sources  []feeds.Source
	enricher Enricher
	selector Selector
	opts     Options
}

func New(fetcher *feeds.Fetcher, sources []feeds.Source, enricher Enricher, selector Selector, opts Options) *Agent {
	opts.fill()
	if enricher == nil {
		enricher = HeuristicEnricher{}
	}
	if selector == nil {
		selector = CapSelector{MaxPerSource: opts.MaxPerSource}
	}
	return &Agent{
		fetcher:  fetcher,
		sources:  sources,
		enricher: enricher,
		selector: selector,
		opts:     opts,
	}
}

// Run executes the full pipeline and always returns a well-formed summary.
// An empty fetch produces an empty article list, not an error.
func (a *Agent) Run(ctx context.Context, progress ProgressFunc) (news.DailySummary, error) {
	start := time.Now()
	defer func() { metrics.Global.RecordRun(time.Since(start)) }()

	report(progress, fmt.Sprintf("Fetching articles from %d sources...", len(a.sources)))
	raw := a.fetcher.FetchAll(ctx, a.sources)
	totalFetched := len(raw)
	metrics.Global.AddArticlesFetched(totalFetched)

	raw = feeds.FilterByWindow(raw, a.opts.WindowDays)
	raw = feeds.Deduplicate(raw)
	slog.Info("articles after filtering", "fetched", totalFetched, "remaining", len(raw))

	if len(raw) == 0 {
		report(progress, "No articles found.")
		return news.DailySummary{
			Date:         time.Now().Format(dateFormat),
			Articles:     []news.ArticleSummary{},
			TotalFetched: totalFetched,
			SourcesUsed:  []string{},
		}, nil
	}

	if len(raw) > a.opts.EnrichLimit {
		raw = raw[:a.opts.EnrichLimit]
	}

	report(progress, fmt.Sprintf("Analyzing %d articles...", len(raw)))
	summaries := a.enricher.EnrichBatch(ctx, raw)
	metrics.Global.AddArticlesEnriched(len(summaries))

	report(progress, fmt.Sprintf("Selecting top %d stories...", a.opts.TopN))
	selected := a.selector.Select(ctx, summaries, a.opts.TopN)

	return news.DailySummary{
		Date:         time.Now().Format(dateFormat),
		Articles:     selected,
		TotalFetched: totalFetched,
		TotalParsed:  len(summaries),
		SourcesUsed:  news.DistinctSources(selected),
	}, nil
}

// report invokes the progress callback if set. A panicking callback must not
// take the run down with it.
func report(progress ProgressFunc, stage string) {
	if progress == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("progress callback panicked", "panic", r)
		}
	}()
	progress(stage)
}

// HeuristicEnricher scores articles without any network calls.
type HeuristicEnricher struct{}

func (HeuristicEnricher) EnrichBatch(ctx context.Context, articles []feeds.RawArticle) []news.ArticleSummary {
	summaries := make([]news.ArticleSummary, len(articles))
	for i, a := range articles {
		summaries[i] = news.Enrich(a)
	}
	return summaries
}

// CapSelector sorts by importance and enforces a per-source ceiling.
type CapSelector struct {
	MaxPerSource int
}

func (s CapSelector) Select(ctx context.Context, summaries []news.ArticleSummary, n int) []news.ArticleSummary {
	return rank.SelectDiverse(summaries, n, s.MaxPerSource)
}

// GreedySelector re-scores candidates against the growing selection,
// trading importance against source and category repetition.
type GreedySelector struct {
	Ranker *rank.Ranker
}

func (s GreedySelector) Select(ctx context.Context, summaries []news.ArticleSummary, n int) []news.ArticleSummary {
	r := s.Ranker
	if r == nil {
		r = rank.NewRanker()
	}
	return r.TopN(summaries, n)
}

// Reranker is the optional AI ranking capability of the summarizer.
type Reranker interface {
	RankTop(ctx context.Context, summaries []news.ArticleSummary, n int) []int
}

// AISelector delegates the final pick to the model, keeping whatever order
// the model returns. With a Shortlist set, the candidate pool is first
// narrowed to 2n by the shortlist selector so the prompt stays small and
// already diverse.
type AISelector struct {
	Reranker  Reranker
	Shortlist Selector
}

func (s AISelector) Select(ctx context.Context, summaries []news.ArticleSummary, n int) []news.ArticleSummary {
	pool := summaries
	if s.Shortlist != nil && len(pool) > 2*n {
		pool = s.Shortlist.Select(ctx, pool, 2*n)
	}

	indices := s.Reranker.RankTop(ctx, pool, n)
	selected := make([]news.ArticleSummary, 0, len(indices))
	for _, idx := range indices {
		if idx >= 0 && idx < len(pool) {
			selected = append(selected, pool[idx])
		}
	}
	return selected
}
