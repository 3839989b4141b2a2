// Package scraper extracts the main text of an article page, best-effort.
// Every failure mode returns an empty string; callers fall back to the feed
// summary.
package scraper

import (
	"context"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const defaultTimeout = 30 * time.Second

var spacesRe = regexp.MustCompile(`\s+`)

// Containers tried in order before falling back to bare paragraphs.
var contentSelectors = []string{
	"article",
	"[class*=\"article-content\"]",
	"[class*=\"post-content\"]",
	"[class*=\"entry-content\"]",
	"main",
	"[role=\"main\"]",
}

type Scraper struct {
	client *http.Client
}

func New(timeout time.Duration) *Scraper {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Scraper{
		client: &http.Client{Timeout: timeout},
	}
}

// FetchMainText downloads a page and extracts its article body. Returns ""
// on any network, status or parse failure.
func (s *Scraper) FetchMainText(ctx context.Context, url string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")

	resp, err := s.client.Do(req)
	if err != nil {
		slog.Debug("scrape failed", "url", url, "error", err)
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return ""
	}
	return ExtractMainText(doc)
}

// ExtractMainText pulls paragraph text out of a parsed document, preferring
// recognizable article containers.
func ExtractMainText(doc *goquery.Document) string {
	doc.Find("script, style, nav, header, footer, aside").Remove()

	for _, selector := range contentSelectors {
		container := doc.Find(selector).First()
		if container.Length() == 0 {
			continue
		}
		if text := paragraphText(container); text != "" {
			return text
		}
	}

	// Last resort: the first ten paragraphs anywhere on the page.
	var parts []string
	doc.Find("p").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		if text := strings.TrimSpace(sel.Text()); text != "" {
			parts = append(parts, text)
		}
		return len(parts) < 10
	})
	return clean(strings.Join(parts, " "))
}

func paragraphText(container *goquery.Selection) string {
	var parts []string
	container.Find("p").Each(func(i int, sel *goquery.Selection) {
		if text := strings.TrimSpace(sel.Text()); text != "" {
			parts = append(parts, text)
		}
	})
	return clean(strings.Join(parts, " "))
}

func clean(text string) string {
	return strings.TrimSpace(spacesRe.ReplaceAllString(text, " "))
}
