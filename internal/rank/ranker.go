// Package rank scores enriched articles and selects a diverse top-N subset.
//
// Two selection strategies coexist on purpose. TopN applies a soft,
// penalty-based notion of diversity: every candidate is re-scored against the
// growing selection, so articles from already-picked sources and categories
// sink gradually. SelectDiverse applies a hard per-source ceiling instead.
// They answer different product questions and neither supersedes the other.
package rank

import (
	"sort"
	"time"

	"newsagent/internal/news"
)

const (
	defaultImportanceWeight = 0.6
	defaultRecencyWeight    = 0.2
	defaultDiversityWeight  = 0.2

	sameSourcePenalty   = 2.0
	sameCategoryPenalty = 1.0

	neutralRecency = 5.0
)

// Ranker computes weighted article scores from importance, recency and a
// diversity penalty against the already-selected set.
type Ranker struct {
	ImportanceWeight float64
	RecencyWeight    float64
	DiversityWeight  float64

	// now is swappable for tests; defaults to time.Now.
	now func() time.Time
}

// NewRanker returns a Ranker with the default 0.6/0.2/0.2 weights.
func NewRanker() *Ranker {
	return &Ranker{
		ImportanceWeight: defaultImportanceWeight,
		RecencyWeight:    defaultRecencyWeight,
		DiversityWeight:  defaultDiversityWeight,
		now:              time.Now,
	}
}

// RecencyScore buckets elapsed hours since publication into a 1-10 score.
// A zero publication time means the date never parsed and scores neutral.
func (r *Ranker) RecencyScore(published time.Time) float64 {
	if published.IsZero() {
		return neutralRecency
	}

	hours := r.clock()().Sub(published).Hours()
	switch {
	case hours <= 1:
		return 10.0
	case hours <= 6:
		return 9.0
	case hours <= 12:
		return 7.0
	case hours <= 24:
		return 5.0
	default:
		score := 5.0 - (hours-24)/24
		if score < 1.0 {
			return 1.0
		}
		return score
	}
}

// DiversityPenalty sums 2.0 per already-selected article from the same
// source and 1.0 per shared category. Both apply when both match, and the
// penalty grows without bound as the selection accumulates lookalikes.
func (r *Ranker) DiversityPenalty(a news.ArticleSummary, selected []news.ArticleSummary) float64 {
	penalty := 0.0
	for _, sel := range selected {
		if a.Source == sel.Source {
			penalty += sameSourcePenalty
		}
		if a.Category == sel.Category {
			penalty += sameCategoryPenalty
		}
	}
	return penalty
}

// FinalScore computes the weighted score of an article against the current
// selection, floored at zero.
func (r *Ranker) FinalScore(a news.ArticleSummary, selected []news.ArticleSummary) float64 {
	score := r.ImportanceWeight*a.ImportanceScore +
		r.RecencyWeight*r.RecencyScore(a.Published) -
		r.DiversityWeight*r.DiversityPenalty(a, selected)
	if score < 0 {
		return 0
	}
	return score
}

// TopN greedily selects n articles: each round re-scores every remaining
// candidate against the selection so far and moves the single best one over.
// The re-scoring matters: a one-time sort would never see the diversity
// penalties grow. O(n * len(pool)); pools are small here.
func (r *Ranker) TopN(articles []news.ArticleSummary, n int) []news.ArticleSummary {
	if len(articles) <= n {
		return articles
	}

	selected := make([]news.ArticleSummary, 0, n)
	remaining := make([]news.ArticleSummary, len(articles))
	copy(remaining, articles)

	for len(selected) < n && len(remaining) > 0 {
		bestScore := -1.0
		bestIdx := 0
		for i, a := range remaining {
			if score := r.FinalScore(a, selected); score > bestScore {
				bestScore = score
				bestIdx = i
			}
		}
		selected = append(selected, remaining[bestIdx])
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}
	return selected
}

func (r *Ranker) clock() func() time.Time {
	if r.now == nil {
		return time.Now
	}
	return r.now
}

// SelectDiverse is the ceiling-based alternative: sort once by importance
// descending and admit articles while no source exceeds maxPerSource,
// stopping at n.
func SelectDiverse(articles []news.ArticleSummary, n, maxPerSource int) []news.ArticleSummary {
	sorted := make([]news.ArticleSummary, len(articles))
	copy(sorted, articles)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ImportanceScore > sorted[j].ImportanceScore
	})

	selected := make([]news.ArticleSummary, 0, n)
	perSource := make(map[string]int)
	for _, a := range sorted {
		if len(selected) >= n {
			break
		}
		if perSource[a.Source] < maxPerSource {
			selected = append(selected, a)
			perSource[a.Source]++
		}
	}
	return selected
}
