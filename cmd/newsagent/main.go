package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"newsagent/internal/agent"
	"newsagent/internal/config"
	"newsagent/internal/feeds"
	"newsagent/internal/gemini"
	"newsagent/internal/logger"
	"newsagent/internal/metrics"
	"newsagent/internal/news"
	"newsagent/internal/scraper"
	"newsagent/internal/summarize"
)

func main() {
	topN := flag.Int("n", 0, "number of articles in the summary (overrides TOP_N_ARTICLES)")
	feedsPath := flag.String("feeds", "", "path to a feeds yaml file (overrides FEEDS_CONFIG_PATH)")
	flag.Parse()

	logger.Init()
	cfg := config.Load()
	if *topN > 0 {
		cfg.TopN = *topN
	}
	if *feedsPath != "" {
		cfg.FeedsConfigPath = *feedsPath
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	sources := feeds.TechFeeds()
	if cfg.FeedsConfigPath != "" {
		loaded, err := feeds.LoadSources(cfg.FeedsConfigPath)
		if err != nil {
			return fmt.Errorf("load feeds config: %w", err)
		}
		sources = loaded
	}

	fetcher := feeds.NewFetcher(cfg.RequestTimeout)
	opts := agent.Options{
		TopN:         cfg.TopN,
		MaxPerSource: cfg.MaxPerSource,
		WindowDays:   cfg.WindowDays,
		EnrichLimit:  cfg.EnrichLimit,
	}

	var (
		enricher agent.Enricher
		selector agent.Selector
	)
	if cfg.UseAISummarizer {
		client, err := gemini.NewClient(ctx, cfg.GeminiAPIKey)
		if err != nil {
			return fmt.Errorf("init gemini: %w", err)
		}
		defer client.Close()

		summarizer := summarize.New(client,
			summarize.WithScraper(scraper.New(0)),
			summarize.WithBudget(cfg.MaxAIRequests),
		)
		enricher = summarizer
		selector = agent.AISelector{Reranker: summarizer, Shortlist: agent.GreedySelector{}}
		logger.Info("using ai summarizer", "max_requests", cfg.MaxAIRequests)
	} else {
		enricher = agent.HeuristicEnricher{}
		selector = agent.CapSelector{MaxPerSource: cfg.MaxPerSource}
		logger.Info("using heuristic summarizer")
	}

	a := agent.New(fetcher, sources, enricher, selector, opts)
	summary, err := a.Run(ctx, func(stage string) {
		fmt.Fprintln(os.Stderr, stage)
	})
	if err != nil {
		return err
	}

	fmt.Print(render(summary))
	logger.Info("run complete", "stats", metrics.Global.Snapshot())
	return nil
}

func render(s news.DailySummary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Tech News Summary for %s\n", s.Date)
	fmt.Fprintf(&b, "%s\n\n", strings.Repeat("=", 60))

	if len(s.Articles) == 0 {
		b.WriteString("No articles found for today.\n")
		return b.String()
	}

	for i, a := range s.Articles {
		fmt.Fprintf(&b, "%d. %s\n", i+1, a.Title)
		fmt.Fprintf(&b, "   Source: %s | Category: %s | Score: %.1f\n", a.Source, a.Category, a.ImportanceScore)
		if !a.Published.IsZero() {
			fmt.Fprintf(&b, "   Published: %s\n", a.Published.Format(time.RFC1123))
		}
		fmt.Fprintf(&b, "   %s\n", a.Summary)
		for _, kp := range a.KeyPoints {
			fmt.Fprintf(&b, "   - %s\n", kp)
		}
		fmt.Fprintf(&b, "   %s\n\n", a.URL)
	}

	fmt.Fprintf(&b, "Fetched %d articles, analyzed %d, from sources: %s\n",
		s.TotalFetched, s.TotalParsed, strings.Join(s.SourcesUsed, ", "))
	return b.String()
}
