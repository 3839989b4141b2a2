package agent

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"newsagent/internal/feeds"
	"newsagent/internal/news"
	"newsagent/internal/rank"
)

func rssBody(source string, count int) string {
	body := `<?xml version="1.0" encoding="UTF-8"?><rss version="2.0"><channel><title>` + source + `</title>`
	for i := 0; i < count; i++ {
		body += fmt.Sprintf(`<item>
			<title>%s story %d about a new AI launch</title>
			<link>https://example.com/%s/%d</link>
			<description>A longer description of the story that gives the enricher something to chew on.</description>
			<pubDate>%s</pubDate>
		</item>`, source, i, source, i, time.Now().Add(-time.Duration(i+1)*time.Hour).Format(time.RFC1123Z))
	}
	return body + `</channel></rss>`
}

func testSources(t *testing.T, failOne bool) []feeds.Source {
	t.Helper()

	alpha := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(rssBody("alpha", 3)))
	}))
	beta := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(rssBody("beta", 2)))
	}))
	gamma := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failOne {
			http.Error(w, "down", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(rssBody("gamma", 2)))
	}))
	t.Cleanup(alpha.Close)
	t.Cleanup(beta.Close)
	t.Cleanup(gamma.Close)

	return []feeds.Source{
		{Name: "Alpha", URL: alpha.URL},
		{Name: "Beta", URL: beta.URL},
		{Name: "Gamma", URL: gamma.URL},
	}
}

func TestRunEndToEnd(t *testing.T) {
	sources := testSources(t, true)
	a := New(feeds.NewFetcher(5*time.Second), sources, nil, nil, Options{TopN: 3, MaxPerSource: 2})

	var stages []string
	summary, err := a.Run(context.Background(), func(stage string) {
		stages = append(stages, stage)
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if summary.TotalFetched != 5 {
		t.Errorf("TotalFetched = %d, want 5 (gamma is down)", summary.TotalFetched)
	}
	if summary.TotalParsed != 5 {
		t.Errorf("TotalParsed = %d, want 5", summary.TotalParsed)
	}
	if len(summary.Articles) != 3 {
		t.Fatalf("got %d articles, want 3", len(summary.Articles))
	}
	if summary.Date != time.Now().Format("January 2, 2006") {
		t.Errorf("Date = %q", summary.Date)
	}
	if len(summary.SourcesUsed) == 0 {
		t.Error("SourcesUsed is empty")
	}
	if len(stages) == 0 {
		t.Error("no progress stages reported")
	}

	perSource := make(map[string]int)
	for _, a := range summary.Articles {
		perSource[a.Source]++
	}
	for src, n := range perSource {
		if n > 2 {
			t.Errorf("source %s appears %d times, cap is 2", src, n)
		}
	}
}

func TestRunAllSourcesDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	sources := []feeds.Source{{Name: "Only", URL: srv.URL}}
	a := New(feeds.NewFetcher(5*time.Second), sources, nil, nil, Options{})

	summary, err := a.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(summary.Articles) != 0 {
		t.Errorf("got %d articles, want 0", len(summary.Articles))
	}
	if summary.TotalFetched != 0 || summary.TotalParsed != 0 {
		t.Errorf("counts = %d/%d, want 0/0", summary.TotalFetched, summary.TotalParsed)
	}
	if summary.Date == "" {
		t.Error("empty summary must still carry a date")
	}
	if summary.SourcesUsed == nil {
		t.Error("SourcesUsed should be an empty slice, not nil")
	}
}

func TestRunSurvivesPanickingCallback(t *testing.T) {
	sources := testSources(t, false)
	a := New(feeds.NewFetcher(5*time.Second), sources, nil, nil, Options{TopN: 2})

	summary, err := a.Run(context.Background(), func(stage string) {
		panic("observer bug")
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(summary.Articles) == 0 {
		t.Error("run produced no articles despite healthy sources")
	}
}

func TestRunEnrichLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(rssBody("bulk", 8)))
	}))
	t.Cleanup(srv.Close)

	sources := []feeds.Source{{Name: "Bulk", URL: srv.URL}}
	a := New(feeds.NewFetcher(5*time.Second), sources, nil, nil, Options{TopN: 3, EnrichLimit: 4})

	summary, err := a.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.TotalFetched != 8 {
		t.Errorf("TotalFetched = %d, want 8", summary.TotalFetched)
	}
	if summary.TotalParsed != 4 {
		t.Errorf("TotalParsed = %d, want the enrich limit of 4", summary.TotalParsed)
	}
}

func TestGreedySelector(t *testing.T) {
	articles := []news.ArticleSummary{
		{Title: "a", Source: "A", Category: "Tech", ImportanceScore: 9},
		{Title: "b", Source: "A", Category: "Tech", ImportanceScore: 8.9},
		{Title: "c", Source: "B", Category: "AI/ML", ImportanceScore: 7},
	}

	got := GreedySelector{Ranker: rank.NewRanker()}.Select(context.Background(), articles, 2)
	if len(got) != 2 {
		t.Fatalf("got %d articles, want 2", len(got))
	}
	if got[0].Title != "a" {
		t.Errorf("first pick = %q, want a", got[0].Title)
	}
}

type fixedReranker struct{ indices []int }

func (f fixedReranker) RankTop(ctx context.Context, summaries []news.ArticleSummary, n int) []int {
	return f.indices
}

func TestAISelector(t *testing.T) {
	articles := []news.ArticleSummary{{Title: "a"}, {Title: "b"}, {Title: "c"}}

	got := AISelector{Reranker: fixedReranker{indices: []int{2, 0, 99}}}.Select(context.Background(), articles, 2)
	if len(got) != 2 {
		t.Fatalf("got %d articles, want 2 (out-of-range index dropped)", len(got))
	}
	if got[0].Title != "c" || got[1].Title != "a" {
		t.Errorf("selection = %v, want model order", got)
	}
}

func TestAISelectorShortlistsBeforeReranking(t *testing.T) {
	articles := []news.ArticleSummary{
		{Title: "a", Source: "S1", Category: "C1", ImportanceScore: 9},
		{Title: "b", Source: "S2", Category: "C2", ImportanceScore: 8},
		{Title: "c", Source: "S3", Category: "C3", ImportanceScore: 7},
		{Title: "d", Source: "S4", Category: "C4", ImportanceScore: 6},
		{Title: "e", Source: "S5", Category: "C5", ImportanceScore: 5},
		{Title: "f", Source: "S6", Category: "C6", ImportanceScore: 4},
	}

	sel := AISelector{
		Reranker:  fixedReranker{indices: []int{1, 0}},
		Shortlist: GreedySelector{},
	}
	got := sel.Select(context.Background(), articles, 2)
	if len(got) != 2 {
		t.Fatalf("got %d articles, want 2", len(got))
	}
	// Indices resolve against the shortlisted pool, not the full input.
	if got[0].Title != "b" || got[1].Title != "a" {
		t.Errorf("selection = %v, want [b a]", got)
	}
}
