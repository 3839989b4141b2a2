package feeds

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"
)

var sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Test Feed</title>
    <item>
      <title>First article</title>
      <link>https://example.com/first</link>
      <description>Something happened in tech today that is worth reading about.</description>
      <pubDate>` + time.Now().Add(-2*time.Hour).Format(time.RFC1123Z) + `</pubDate>
    </item>
    <item>
      <title>Second article</title>
      <link>https://example.com/second</link>
      <description>Another development worth a look.</description>
      <pubDate>` + time.Now().Add(-3*time.Hour).Format(time.RFC1123Z) + `</pubDate>
    </item>
  </channel>
</rss>`

func feedServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchAllIsolatesFailures(t *testing.T) {
	good := feedServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(sampleRSS))
	})
	broken := feedServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	})
	garbage := feedServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("this is not xml at all"))
	})
	slow := feedServer(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(sampleRSS))
	})

	sources := []Source{
		{Name: "Good", URL: good.URL},
		{Name: "Broken", URL: broken.URL},
		{Name: "Garbage", URL: garbage.URL},
		{Name: "Slow", URL: slow.URL},
	}

	f := NewFetcher(5 * time.Second)
	articles := f.FetchAll(context.Background(), sources)

	if len(articles) != 4 {
		t.Fatalf("expected 4 articles from the healthy sources, got %d", len(articles))
	}
	for i, a := range articles {
		want := "Good"
		if i >= 2 {
			want = "Slow"
		}
		if a.Source != want {
			t.Errorf("article %d attributed to %q, want %q (registry order)", i, a.Source, want)
		}
	}
}

func TestFetchAllSendsBrowserHeaders(t *testing.T) {
	var gotUA, gotEncoding string
	srv := feedServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotEncoding = r.Header.Get("Accept-Encoding")
		w.Write([]byte(sampleRSS))
	})

	f := NewFetcher(5 * time.Second)
	f.FetchAll(context.Background(), []Source{{Name: "S", URL: srv.URL}})

	if !strings.Contains(gotUA, "Mozilla") {
		t.Errorf("User-Agent = %q, want a browser-like value", gotUA)
	}
	if gotEncoding != "identity" {
		t.Errorf("Accept-Encoding = %q, want identity", gotEncoding)
	}
}

func TestParseEntryDropsIncomplete(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name  string
		entry *gofeed.Item
		want  bool
	}{
		{"complete", &gofeed.Item{Title: "T", Link: "https://example.com/x"}, true},
		{"no title", &gofeed.Item{Link: "https://example.com/x"}, false},
		{"whitespace title", &gofeed.Item{Title: "   ", Link: "https://example.com/x"}, false},
		{"no link", &gofeed.Item{Title: "T"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := parseEntry(tt.entry, Source{Name: "S"}, now)
			if ok != tt.want {
				t.Errorf("parseEntry ok = %v, want %v", ok, tt.want)
			}
		})
	}
}

func TestParseEntryMetadata(t *testing.T) {
	now := time.Now()
	entry := &gofeed.Item{
		Title:      "T",
		Link:       "https://example.com/x",
		Author:     &gofeed.Person{Name: "Jordan"},
		Categories: []string{"tech", "ai"},
		Content:    "<p>Body text from content field.</p>",
	}

	a, ok := parseEntry(entry, Source{Name: "S"}, now)
	if !ok {
		t.Fatal("parseEntry rejected a complete entry")
	}
	if a.Author != "Jordan" {
		t.Errorf("Author = %q, want Jordan", a.Author)
	}
	if len(a.Tags) != 2 {
		t.Errorf("Tags = %v, want two entries", a.Tags)
	}
	if a.Summary != "Body text from content field." {
		t.Errorf("Summary = %q, content should back an empty description", a.Summary)
	}
}

func TestResolveDateFallbackChain(t *testing.T) {
	fetchTime := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	published := time.Date(2026, 8, 19, 10, 0, 0, 0, time.UTC)
	updated := time.Date(2026, 8, 19, 11, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		entry *gofeed.Item
		want  time.Time
	}{
		{
			"published wins",
			&gofeed.Item{PublishedParsed: &published, UpdatedParsed: &updated},
			published,
		},
		{
			"updated when no published",
			&gofeed.Item{UpdatedParsed: &updated},
			updated,
		},
		{
			"dublin core date",
			&gofeed.Item{DublinCoreExt: &ext.DublinCoreExtension{Date: []string{"2026-08-18T09:30:00Z"}}},
			time.Date(2026, 8, 18, 9, 30, 0, 0, time.UTC),
		},
		{
			"raw published string",
			&gofeed.Item{Published: "2026-08-17"},
			time.Date(2026, 8, 17, 0, 0, 0, 0, time.UTC),
		},
		{
			"fetch time fallback",
			&gofeed.Item{Published: "not a date"},
			fetchTime,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolveDate(tt.entry, fetchTime)
			if !got.Equal(tt.want) {
				t.Errorf("resolveDate = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCleanSummary(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"strips tags", "<p>Hello <b>world</b></p>", "Hello world"},
		{"collapses whitespace", "a\n\t  b", "a b"},
		{"trims", "  padded  ", "padded"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanSummary(tt.in); got != tt.want {
				t.Errorf("CleanSummary(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCleanSummaryTruncatesRunes(t *testing.T) {
	long := strings.Repeat("ä", 600)
	got := CleanSummary(long)
	if n := len([]rune(got)); n != 500 {
		t.Errorf("truncated length = %d runes, want 500", n)
	}
}

func TestFilterByWindow(t *testing.T) {
	now := time.Now()
	articles := []RawArticle{
		{Title: "fresh", Published: now.Add(-24 * time.Hour)},
		{Title: "edge", Published: now.AddDate(0, 0, -7).Add(time.Minute)},
		{Title: "stale", Published: now.AddDate(0, 0, -8)},
	}

	kept := FilterByWindow(articles, 7)
	if len(kept) != 2 {
		t.Fatalf("kept %d articles, want 2", len(kept))
	}
	for _, a := range kept {
		if a.Title == "stale" {
			t.Error("stale article survived the window filter")
		}
	}
}

func TestDeduplicateKeepsFirstSeen(t *testing.T) {
	articles := []RawArticle{
		{Title: "first", URL: "https://example.com/a", Source: "A"},
		{Title: "dup", URL: "https://example.com/a", Source: "B"},
		{Title: "other", URL: "https://example.com/b", Source: "A"},
	}

	unique := Deduplicate(articles)
	if len(unique) != 2 {
		t.Fatalf("got %d unique articles, want 2", len(unique))
	}
	if unique[0].Title != "first" || unique[1].Title != "other" {
		t.Errorf("dedup changed order or winner: %+v", unique)
	}
}
