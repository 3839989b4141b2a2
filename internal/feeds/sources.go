package feeds

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Source is a named RSS/Atom endpoint with category and priority metadata.
// The registry is built once at startup and never mutated.
type Source struct {
	Name     string `yaml:"name"`
	URL      string `yaml:"url"`
	Category string `yaml:"category"`
	Priority int    `yaml:"priority"`
}

// TechFeeds returns the built-in registry of tech news sources.
func TechFeeds() []Source {
	return []Source{
		{Name: "TechCrunch", URL: "https://techcrunch.com/feed/", Category: "Startups", Priority: 5},
		{Name: "The Verge", URL: "https://www.theverge.com/rss/index.xml", Category: "Tech", Priority: 5},
		{Name: "Ars Technica", URL: "https://feeds.arstechnica.com/arstechnica/index", Category: "Tech", Priority: 5},
		{Name: "Hacker News", URL: "https://hnrss.org/frontpage", Category: "Tech", Priority: 5},
		{Name: "Engadget", URL: "https://www.engadget.com/rss.xml", Category: "Gadgets", Priority: 4},
		{Name: "CNET", URL: "https://www.cnet.com/rss/news/", Category: "Tech", Priority: 5},
		{Name: "VentureBeat", URL: "https://feeds.feedburner.com/venturebeat/SZYF", Category: "AI/Startups", Priority: 4},
		{Name: "ZDNet", URL: "https://www.zdnet.com/news/rss.xml", Category: "Enterprise", Priority: 4},
		{Name: "TechRadar", URL: "https://www.techradar.com/rss", Category: "Reviews", Priority: 4},
		{Name: "The Next Web", URL: "https://thenextweb.com/feed", Category: "Tech", Priority: 4},
		{Name: "9to5Mac", URL: "https://9to5mac.com/feed/", Category: "Apple", Priority: 4},
		{Name: "Android Authority", URL: "https://www.androidauthority.com/feed/", Category: "Android", Priority: 4},
		{Name: "Tom's Hardware", URL: "https://www.tomshardware.com/feeds/all", Category: "Hardware", Priority: 4},
		{Name: "Gizmodo", URL: "https://gizmodo.com/rss", Category: "Tech", Priority: 4},
		{Name: "PCMag", URL: "https://www.pcmag.com/rss", Category: "Reviews", Priority: 3},
		{Name: "Digital Trends", URL: "https://www.digitaltrends.com/feed/", Category: "Tech", Priority: 3},
		{Name: "How-To Geek", URL: "https://www.howtogeek.com/feed/", Category: "How-To", Priority: 3},
		{Name: "SlashGear", URL: "https://www.slashgear.com/feed/", Category: "Tech", Priority: 3},
		{Name: "Mashable", URL: "https://mashable.com/feeds/rss/all", Category: "Tech", Priority: 3},
	}
}

// sourcesConfig is the YAML structure for an external feed list:
//
// feeds:
//   - name: TechCrunch
//     url: https://techcrunch.com/feed/
//     category: Startups
//     priority: 5
type sourcesConfig struct {
	Feeds []Source `yaml:"feeds"`
}

// LoadSources reads a feed registry from a YAML file. Entries without a name
// or URL are rejected so the fetcher never sees a half-formed source.
func LoadSources(path string) ([]Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg sourcesConfig
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse feeds config: %w", err)
	}

	for i, s := range cfg.Feeds {
		if s.Name == "" || s.URL == "" {
			return nil, fmt.Errorf("feeds config entry %d: name and url are required", i)
		}
	}
	return cfg.Feeds, nil
}
