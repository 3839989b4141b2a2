// Package news holds the pipeline's domain types and the heuristic
// enrichment rules that score and categorize raw feed entries without any
// external service.
package news

import (
	"sort"
	"strings"
	"time"

	"newsagent/internal/feeds"
)

// ArticleSummary is an enriched article: scored, categorized and reduced to
// key points. Immutable once created.
type ArticleSummary struct {
	Title           string
	URL             string
	Source          string
	Published       time.Time
	Summary         string
	KeyPoints       []string
	ImportanceScore float64
	Category        string
}

// DailySummary is the terminal artifact of one pipeline run.
type DailySummary struct {
	Date         string
	Articles     []ArticleSummary
	TotalFetched int
	TotalParsed  int
	SourcesUsed  []string
}

const (
	baseImportance = 5.0
	maxImportance  = 10.0
	keywordBoost   = 0.5

	maxKeyPoints    = 3
	minKeyPointLen  = 20
	fallbackSummary = "Click to read the full article."
)

// Keywords that mark a title as likely important. Each distinct match adds
// half a point.
var importantKeywords = []string{
	"ai", "artificial intelligence", "breakthrough", "launch",
	"announce", "release", "new", "first", "major", "billion",
	"google", "apple", "microsoft", "openai", "meta", "amazon",
}

// categoryTable maps categories to their trigger keywords. Order matters:
// the first category with a match wins.
var categoryTable = []struct {
	name     string
	keywords []string
}{
	{"AI/ML", []string{"ai", "artificial intelligence", "machine learning", "gpt", "llm", "chatgpt", "neural"}},
	{"Startups", []string{"startup", "funding", "venture", "seed", "series a", "series b", "valuation"}},
	{"Gadgets", []string{"phone", "iphone", "android", "laptop", "tablet", "wearable", "headphone"}},
	{"Gaming", []string{"game", "gaming", "playstation", "xbox", "nintendo", "steam"}},
	{"Space", []string{"space", "nasa", "spacex", "rocket", "satellite", "mars", "moon"}},
	{"Security", []string{"security", "hack", "breach", "privacy", "cyber", "ransomware"}},
	{"Software", []string{"app", "software", "update", "feature", "version"}},
}

const defaultCategory = "Tech"

// Enrich derives an ArticleSummary from a raw article using heuristics only.
// It is pure and total: identical input always yields identical output, and
// empty input falls back to defaults rather than failing.
func Enrich(a feeds.RawArticle) ArticleSummary {
	summary := a.Summary
	if summary == "" {
		summary = fallbackSummary
	}

	return ArticleSummary{
		Title:           a.Title,
		URL:             a.URL,
		Source:          a.Source,
		Published:       a.Published,
		Summary:         summary,
		KeyPoints:       ExtractKeyPoints(a.Summary),
		ImportanceScore: CalculateImportance(a.Title),
		Category:        Categorize(a.Title),
	}
}

// ExtractKeyPoints splits a summary into sentence-like fragments and keeps
// up to three substantial ones. Ellipses are collapsed first so they don't
// produce empty fragments.
func ExtractKeyPoints(summary string) []string {
	if summary == "" {
		return nil
	}

	normalized := strings.ReplaceAll(summary, "...", ".")
	var points []string
	for _, frag := range strings.Split(normalized, ".") {
		frag = strings.TrimSpace(frag)
		if len(frag) <= minKeyPointLen {
			continue
		}
		points = append(points, frag)
		if len(points) == maxKeyPoints {
			break
		}
	}
	return points
}

// CalculateImportance scores a title from 5.0 upward: each distinct keyword
// found in the lowercased title adds 0.5, clamped to 10.0.
func CalculateImportance(title string) float64 {
	titleLower := strings.ToLower(title)

	score := baseImportance
	for _, kw := range importantKeywords {
		if strings.Contains(titleLower, kw) {
			score += keywordBoost
		}
	}
	if score > maxImportance {
		score = maxImportance
	}
	return score
}

// Categorize assigns the first category from the table whose keyword set
// matches the lowercased title, defaulting to "Tech".
func Categorize(title string) string {
	titleLower := strings.ToLower(title)

	for _, cat := range categoryTable {
		for _, kw := range cat.keywords {
			if strings.Contains(titleLower, kw) {
				return cat.name
			}
		}
	}
	return defaultCategory
}

// DistinctSources returns the sorted set of source names represented in the
// given articles.
func DistinctSources(articles []ArticleSummary) []string {
	seen := make(map[string]struct{}, len(articles))
	for _, a := range articles {
		seen[a.Source] = struct{}{}
	}
	sources := make([]string, 0, len(seen))
	for s := range seen {
		sources = append(sources, s)
	}
	sort.Strings(sources)
	return sources
}
