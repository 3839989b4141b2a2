// Package summarize is the AI-backed enrichment strategy. It asks the model
// for a JSON-shaped analysis of each article and degrades to the heuristic
// enricher whenever the budget runs out, the call fails or the response is
// unusable. A batch never aborts because of a single bad article.
package summarize

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"newsagent/internal/cache"
	"newsagent/internal/feeds"
	"newsagent/internal/metrics"
	"newsagent/internal/news"
	"newsagent/internal/ratelimit"
	"newsagent/internal/retry"
)

const (
	maxContentChars = 3000
	cacheTTL        = 12 * time.Hour

	defaultConcurrency = 3
	defaultDelay       = 500 * time.Millisecond
)

const summarizePrompt = `You are a tech news analyst. Analyze the following article and provide a structured response.

**Article Title:** %s
**Source:** %s
**Content:** %s

Provide your analysis in the following JSON format (no markdown, just pure JSON):
{
    "summary": "A concise 2-3 sentence summary of the article highlighting the key news",
    "key_points": ["Key point 1", "Key point 2", "Key point 3"],
    "importance_score": 7.5,
    "category": "Category name"
}

Guidelines for importance_score (1-10):
- 9-10: Major industry-changing news, breakthrough announcements
- 7-8: Significant tech news, important product launches
- 5-6: Noteworthy updates, interesting developments
- 3-4: Minor news, routine updates
- 1-2: Low priority, opinion pieces

Guidelines for category:
- AI/ML, Startups, Gadgets, Software, Hardware, Cybersecurity, Space/Science, Gaming, Business, Policy

Return ONLY the JSON object, no additional text.`

const rankPrompt = `You are a tech news curator. Given the following list of tech news articles with their importance scores,
re-evaluate and rank them to select the top %d most important and diverse stories for today.

Consider:
1. Overall importance and impact
2. Diversity of topics (avoid similar stories)
3. Timeliness and relevance
4. Interest to tech enthusiasts

Articles:
%s

Return a JSON array of the top %d article indices (0-based) in order of importance:
{"top_indices": [0, 3, 5, 2, 7]}

Return ONLY the JSON object, no additional text.`

// Generator is the text-generation capability the summarizer depends on.
// *gemini.Client satisfies it.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// TextFetcher is the optional deep-parse capability; empty string means
// "use the feed summary instead".
type TextFetcher interface {
	FetchMainText(ctx context.Context, url string) string
}

// Summarizer enriches articles through an AI provider.
type Summarizer struct {
	gen     Generator
	scraper TextFetcher
	limiter *ratelimit.Limiter
	cache   *cache.Cache

	retryCfg    retry.Config
	concurrency int
	delay       time.Duration
}

// Option customizes a Summarizer.
type Option func(*Summarizer)

// WithScraper enables full-text extraction before prompting.
func WithScraper(tf TextFetcher) Option {
	return func(s *Summarizer) { s.scraper = tf }
}

// WithBudget caps AI requests per run (0 = unlimited).
func WithBudget(maxRequests int) Option {
	return func(s *Summarizer) { s.limiter = ratelimit.New(maxRequests) }
}

// WithDelay overrides the pause after each AI call.
func WithDelay(d time.Duration) Option {
	return func(s *Summarizer) { s.delay = d }
}

// WithConcurrency overrides the batch fan-out width.
func WithConcurrency(n int) Option {
	return func(s *Summarizer) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

func New(gen Generator, opts ...Option) *Summarizer {
	s := &Summarizer{
		gen:         gen,
		limiter:     ratelimit.New(0),
		cache:       cache.New(),
		retryCfg:    retry.Config{MaxAttempts: 3, Delay: 2 * time.Second, Backoff: true},
		concurrency: defaultConcurrency,
		delay:       defaultDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Enrich summarizes one article via the AI provider, falling back to
// heuristic enrichment on any failure. Like the heuristic path it is total:
// it always returns a usable ArticleSummary.
func (s *Summarizer) Enrich(ctx context.Context, a feeds.RawArticle) news.ArticleSummary {
	if s.gen == nil || !s.limiter.Allow() {
		return news.Enrich(a)
	}

	content := s.articleContent(ctx, a)
	if content == "" {
		return news.Enrich(a)
	}

	key := cache.Key(a.Title, content)
	if cached, ok := s.cache.Get(key); ok {
		if summary, ok := cached.(news.ArticleSummary); ok {
			s.limiter.RecordCacheHit()
			return summary
		}
	}

	if err := s.limiter.Use(); err != nil {
		slog.Debug("ai budget exhausted", "title", a.Title)
		return news.Enrich(a)
	}

	prompt := fmt.Sprintf(summarizePrompt, a.Title, a.Source, content)

	var response string
	err := retry.Do(ctx, s.retryCfg, func() error {
		var genErr error
		response, genErr = s.gen.Generate(ctx, prompt)
		return genErr
	})
	if err != nil {
		slog.Warn("ai summarization failed, using heuristics", "title", a.Title, "error", err)
		metrics.Global.IncrementAICallsFailed()
		return news.Enrich(a)
	}
	metrics.Global.IncrementAICallsSucceeded()

	parsed, err := parseSummaryResponse(response)
	if err != nil {
		slog.Warn("unusable ai response, using heuristics", "title", a.Title, "error", err)
		return news.Enrich(a)
	}

	summary := s.merge(a, parsed)
	s.cache.Set(key, summary, cacheTTL)
	return summary
}

// EnrichBatch summarizes articles with bounded concurrency and a pause after
// each call so the provider is not hammered. Output order matches input.
func (s *Summarizer) EnrichBatch(ctx context.Context, articles []feeds.RawArticle) []news.ArticleSummary {
	results := make([]news.ArticleSummary, len(articles))
	sem := make(chan struct{}, s.concurrency)

	var wg sync.WaitGroup
	for i, a := range articles {
		wg.Add(1)
		go func(i int, a feeds.RawArticle) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results[i] = s.Enrich(ctx, a)
			if s.delay > 0 {
				select {
				case <-ctx.Done():
				case <-time.After(s.delay):
				}
			}
		}(i, a)
	}
	wg.Wait()
	return results
}

// RankTop asks the model to pick the n most important and diverse articles
// and returns their indices. Falls back to importance-descending order when
// the model is unavailable or its answer doesn't validate.
func (s *Summarizer) RankTop(ctx context.Context, summaries []news.ArticleSummary, n int) []int {
	if len(summaries) <= n {
		indices := make([]int, len(summaries))
		for i := range indices {
			indices[i] = i
		}
		return indices
	}

	if s.gen != nil && s.limiter.Allow() {
		if indices, err := s.rankViaModel(ctx, summaries, n); err == nil {
			return indices
		} else {
			slog.Warn("ai ranking failed, sorting by importance", "error", err)
		}
	}

	indices := make([]int, len(summaries))
	for i := range indices {
		indices[i] = i
	}
	sort.SliceStable(indices, func(a, b int) bool {
		return summaries[indices[a]].ImportanceScore > summaries[indices[b]].ImportanceScore
	})
	return indices[:n]
}

func (s *Summarizer) rankViaModel(ctx context.Context, summaries []news.ArticleSummary, n int) ([]int, error) {
	var b strings.Builder
	for i, sum := range summaries {
		fmt.Fprintf(&b, "%d. [%s] %s (Score: %.1f, Category: %s)\n",
			i, sum.Source, sum.Title, sum.ImportanceScore, sum.Category)
	}

	if err := s.limiter.Use(); err != nil {
		return nil, err
	}

	response, err := s.gen.Generate(ctx, fmt.Sprintf(rankPrompt, n, b.String(), n))
	if err != nil {
		metrics.Global.IncrementAICallsFailed()
		return nil, err
	}
	metrics.Global.IncrementAICallsSucceeded()

	match := jsonObjectRe.FindString(response)
	if match == "" {
		return nil, fmt.Errorf("no JSON object in ranking response")
	}
	var parsed struct {
		TopIndices []int `json:"top_indices"`
	}
	if err := json.Unmarshal([]byte(match), &parsed); err != nil {
		return nil, fmt.Errorf("decode ranking response: %w", err)
	}

	valid := make([]int, 0, n)
	seen := make(map[int]bool)
	for _, idx := range parsed.TopIndices {
		if idx >= 0 && idx < len(summaries) && !seen[idx] {
			valid = append(valid, idx)
			seen[idx] = true
		}
	}
	if len(valid) < n {
		return nil, fmt.Errorf("ranking response returned %d valid indices, need %d", len(valid), n)
	}
	return valid[:n], nil
}

// articleContent picks the text to summarize: scraped page body when
// available, otherwise the feed summary, truncated to the prompt budget.
func (s *Summarizer) articleContent(ctx context.Context, a feeds.RawArticle) string {
	content := a.Summary
	if s.scraper != nil {
		if text := s.scraper.FetchMainText(ctx, a.URL); text != "" {
			content = text
		}
	}
	if utf8.RuneCountInString(content) > maxContentChars {
		content = string([]rune(content)[:maxContentChars])
	}
	return content
}

func (s *Summarizer) merge(a feeds.RawArticle, parsed aiSummary) news.ArticleSummary {
	summary := strings.TrimSpace(parsed.Summary)
	if summary == "" {
		summary = a.Summary
	}

	keyPoints := parsed.KeyPoints
	if len(keyPoints) > 3 {
		keyPoints = keyPoints[:3]
	}
	if len(keyPoints) == 0 {
		keyPoints = news.ExtractKeyPoints(a.Summary)
	}

	category := strings.TrimSpace(parsed.Category)
	if category == "" {
		category = news.Categorize(a.Title)
	}

	return news.ArticleSummary{
		Title:           a.Title,
		URL:             a.URL,
		Source:          a.Source,
		Published:       a.Published,
		Summary:         summary,
		KeyPoints:       keyPoints,
		ImportanceScore: clampScore(parsed.ImportanceScore),
		Category:        category,
	}
}

type aiSummary struct {
	Summary         string   `json:"summary"`
	KeyPoints       []string `json:"key_points"`
	ImportanceScore float64  `json:"importance_score"`
	Category        string   `json:"category"`
}

var (
	jsonObjectRe = regexp.MustCompile(`(?s)\{[^{}]*\}`)
	summaryRe    = regexp.MustCompile(`"summary"\s*:\s*"([^"]+)"`)
	scoreRe      = regexp.MustCompile(`"importance_score"\s*:\s*(\d+(?:\.\d+)?)`)
)

// parseSummaryResponse decodes the model's JSON, tolerating markdown fences
// and stray prose around the object. If strict decoding fails it scrapes the
// summary and score fields out with regexes before giving up.
func parseSummaryResponse(response string) (aiSummary, error) {
	candidate := jsonObjectRe.FindString(response)
	if candidate == "" {
		candidate = response
	}

	var parsed aiSummary
	if err := json.Unmarshal([]byte(candidate), &parsed); err == nil {
		if strings.TrimSpace(parsed.Summary) != "" {
			return parsed, nil
		}
	}

	// Lenient pass: models sometimes emit broken JSON but intact fields.
	lenient := aiSummary{ImportanceScore: 5.0}
	found := false
	if m := summaryRe.FindStringSubmatch(response); m != nil {
		lenient.Summary = m[1]
		found = true
	}
	if m := scoreRe.FindStringSubmatch(response); m != nil {
		if score, err := strconv.ParseFloat(m[1], 64); err == nil {
			lenient.ImportanceScore = score
			found = true
		}
	}
	if !found {
		return aiSummary{}, fmt.Errorf("no usable fields in response")
	}
	return lenient, nil
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 10 {
		return 10
	}
	if score == 0 {
		return 5.0
	}
	return score
}
