package feed

import (
	"context"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"PositiveNews/internal/domain"
	"PositiveNews/internal/ports"
)

const (
	userAgent = "PositiveNews/1.0"

	// maxEntriesPerSource bounds the contribution of noisy feeds.
	maxEntriesPerSource = 20

	maxTitleRunes       = 500
	maxDescriptionRunes = 1000
)

var tagExpr = regexp.MustCompile(`<[^>]+>`)

// Coordinator fetches and normalizes entries from every enabled feed
// and merges them into one URL-deduplicated candidate list.
type Coordinator struct {
	parser *gofeed.Parser
	logger *slog.Logger
}

var _ ports.CandidateSource = (*Coordinator)(nil)

// NewCoordinator wires a gofeed parser over the given HTTP client;
// a nil client gets a 15 second timeout default.
func NewCoordinator(client *http.Client, logger *slog.Logger) *Coordinator {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}

	parser := gofeed.NewParser()
	parser.Client = client
	parser.UserAgent = userAgent

	return &Coordinator{parser: parser, logger: logger}
}

// FetchAll pulls all sources sequentially. A failing source is logged
// and skipped; a single bad feed never aborts the run. The merged
// result keeps the first occurrence of each URL.
func (c *Coordinator) FetchAll(ctx context.Context, sources []domain.Source) []domain.Candidate {
	var merged []domain.Candidate
	seen := map[string]bool{}

	for _, src := range sources {
		if !src.Enabled {
			continue
		}

		candidates, err := c.fetchOne(ctx, src)
		if err != nil {
			c.logger.Warn("feed fetch failed, skipping source", "source", src.Name, "error", err)
			continue
		}
		c.logger.Info("feed fetched", "source", src.Name, "entries", len(candidates))

		for _, cand := range candidates {
			if seen[cand.URL] {
				continue
			}
			seen[cand.URL] = true
			merged = append(merged, cand)
		}
	}

	c.logger.Info("fetch complete", "unique_candidates", len(merged))
	return merged
}

func (c *Coordinator) fetchOne(ctx context.Context, src domain.Source) ([]domain.Candidate, error) {
	parsed, err := c.parser.ParseURLWithContext(src.URL, ctx)
	if err != nil {
		return nil, err
	}

	sourceName := strings.TrimSpace(parsed.Title)
	if sourceName == "" {
		sourceName = src.Name
	}

	items := parsed.Items
	if len(items) > maxEntriesPerSource {
		items = items[:maxEntriesPerSource]
	}

	candidates := make([]domain.Candidate, 0, len(items))
	for _, item := range items {
		title := stripMarkup(item.Title)
		if title == "" || item.Link == "" {
			continue
		}

		description := item.Description
		if description == "" {
			description = item.Content
		}

		candidates = append(candidates, domain.Candidate{
			Title:       truncateRunes(title, maxTitleRunes),
			Description: truncateRunes(stripMarkup(description), maxDescriptionRunes),
			URL:         item.Link,
			SourceName:  sourceName,
			Language:    src.Language,
			PublishedAt: publishedAt(item),
		})
	}
	return candidates, nil
}

// publishedAt prefers the feed's published timestamp, then updated,
// then the current time.
func publishedAt(item *gofeed.Item) time.Time {
	if item.PublishedParsed != nil {
		return *item.PublishedParsed
	}
	if item.UpdatedParsed != nil {
		return *item.UpdatedParsed
	}
	return time.Now().UTC()
}

// stripMarkup flattens an HTML fragment to its text content. Fragments
// goquery cannot parse fall back to a tag-stripping regexp.
func stripMarkup(fragment string) string {
	if fragment == "" {
		return ""
	}
	if !strings.Contains(fragment, "<") {
		return strings.TrimSpace(fragment)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.TrimSpace(tagExpr.ReplaceAllString(fragment, " "))
	}
	return strings.TrimSpace(strings.Join(strings.Fields(doc.Text()), " "))
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
