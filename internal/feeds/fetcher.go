package feeds

import (
	"context"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/mmcdole/gofeed"

	"newsagent/internal/metrics"
)

// RawArticle is a single unprocessed feed entry. URL is the deduplication
// key; Title and URL are always non-empty (entries missing either are
// dropped during parsing).
type RawArticle struct {
	Title     string
	URL       string
	Source    string
	Published time.Time
	Summary   string
	Author    string
	Tags      []string
}

const (
	// Feed summaries are capped so enrichment never chews on full page dumps.
	maxSummaryLen = 500

	defaultTimeout = 15 * time.Second
)

var (
	htmlTagRe    = regexp.MustCompile(`<[^>]+>`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// Fetcher retrieves and parses RSS/Atom feeds. Failures are isolated per
// source: a dead feed contributes zero articles and is never retried.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a Fetcher with the given per-request timeout.
// A zero timeout falls back to the 15s default.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Fetcher{
		client: &http.Client{Timeout: timeout},
	}
}

// FetchAll retrieves every source concurrently and concatenates the results
// in registry order. Each source gets its own goroutine and its own result
// slot, so no locking is needed; the WaitGroup is the fan-in barrier.
func (f *Fetcher) FetchAll(ctx context.Context, sources []Source) []RawArticle {
	results := make([][]RawArticle, len(sources))

	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		go func(i int, src Source) {
			defer wg.Done()
			articles, err := f.fetchFeed(ctx, src)
			if err != nil {
				// Silent by design: one dead feed must not abort the run.
				slog.Debug("feed fetch failed", "source", src.Name, "error", err)
				metrics.Global.IncrementFeedsFailed()
				return
			}
			metrics.Global.IncrementFeedsFetched()
			results[i] = articles
		}(i, src)
	}
	wg.Wait()

	var all []RawArticle
	for _, articles := range results {
		all = append(all, articles...)
	}
	return all
}

// fetchFeed issues one GET for a source and parses the response as a feed.
func (f *Fetcher) fetchFeed(ctx context.Context, src Source) ([]RawArticle, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, err
	}

	// Browser-like headers: several feeds refuse default Go clients, and
	// asking for identity encoding sidesteps brotli negotiation failures.
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "application/rss+xml, application/xml, text/xml, */*")
	req.Header.Set("Accept-Encoding", "identity")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{code: resp.StatusCode, source: src.Name}
	}

	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	articles := make([]RawArticle, 0, len(feed.Items))
	for _, entry := range feed.Items {
		if a, ok := parseEntry(entry, src, now); ok {
			articles = append(articles, a)
		}
	}
	return articles, nil
}

type statusError struct {
	code   int
	source string
}

func (e *statusError) Error() string {
	return "unexpected HTTP status " + http.StatusText(e.code) + " from " + e.source
}

// parseEntry converts one feed entry into a RawArticle. Entries without a
// title or link are dropped.
func parseEntry(entry *gofeed.Item, src Source, fetchTime time.Time) (RawArticle, bool) {
	title := strings.TrimSpace(entry.Title)
	if title == "" || entry.Link == "" {
		return RawArticle{}, false
	}

	summary := entry.Description
	if summary == "" {
		summary = entry.Content
	}
	summary = CleanSummary(summary)

	author := ""
	if entry.Author != nil {
		author = entry.Author.Name
	}

	var tags []string
	if len(entry.Categories) > 0 {
		tags = append(tags, entry.Categories...)
	}

	return RawArticle{
		Title:     title,
		URL:       entry.Link,
		Source:    src.Name,
		Published: resolveDate(entry, fetchTime),
		Summary:   summary,
		Author:    author,
		Tags:      tags,
	}, true
}

// resolveDate picks the entry timestamp: published, then updated, then the
// Dublin Core created date, then a raw-string parse. Unparsable dates fall
// back to fetch time.
func resolveDate(entry *gofeed.Item, fetchTime time.Time) time.Time {
	if entry.PublishedParsed != nil {
		return *entry.PublishedParsed
	}
	if entry.UpdatedParsed != nil {
		return *entry.UpdatedParsed
	}
	if entry.DublinCoreExt != nil {
		for _, raw := range entry.DublinCoreExt.Date {
			if t, ok := parseRawDate(raw); ok {
				return t
			}
		}
	}
	if t, ok := parseRawDate(entry.Published); ok {
		return t
	}
	if t, ok := parseRawDate(entry.Updated); ok {
		return t
	}
	return fetchTime
}

var dateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseRawDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// CleanSummary strips HTML tags, collapses internal whitespace and truncates
// to the summary cap.
func CleanSummary(s string) string {
	s = htmlTagRe.ReplaceAllString(s, "")
	s = whitespaceRe.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) > maxSummaryLen {
		runes := []rune(s)
		s = string(runes[:maxSummaryLen])
	}
	return s
}

// FilterByWindow keeps articles published within the last `days` days.
// The window boundary is inclusive.
func FilterByWindow(articles []RawArticle, days int) []RawArticle {
	cutoff := time.Now().AddDate(0, 0, -days)
	kept := make([]RawArticle, 0, len(articles))
	for _, a := range articles {
		if !a.Published.Before(cutoff) {
			kept = append(kept, a)
		}
	}
	return kept
}

// Deduplicate keeps the first-seen article per distinct URL, preserving
// input order.
func Deduplicate(articles []RawArticle) []RawArticle {
	seen := make(map[string]struct{}, len(articles))
	unique := make([]RawArticle, 0, len(articles))
	for _, a := range articles {
		if _, dup := seen[a.URL]; dup {
			metrics.Global.IncrementDuplicatesFiltered()
			continue
		}
		seen[a.URL] = struct{}{}
		unique = append(unique, a)
	}
	return unique
}
