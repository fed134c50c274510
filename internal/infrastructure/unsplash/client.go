package unsplash

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"PositiveNews/internal/config"
	"PositiveNews/internal/domain"
	"PositiveNews/internal/ports"
)

const (
	fallbackQuery = "positive news happiness"

	fallbackImageURL = "https://images.unsplash.com/photo-1504711434969-e33886168f5c?w=800&q=80"
	fallbackImageAlt = "Positive news"
)

// Client resolves a short query to an illustration via the Unsplash
// search API. Find is a terminal error boundary: whatever goes wrong,
// the caller gets a usable image descriptor.
type Client struct {
	endpoint   string
	accessKey  string
	httpClient *http.Client
	logger     *slog.Logger
}

var _ ports.ImageSearcher = (*Client)(nil)

// NewClient builds a client from configuration.
func NewClient(cfg config.UnsplashConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		endpoint:   cfg.Endpoint,
		accessKey:  cfg.AccessKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// Find searches landscape, high-content-filter photos and takes the
// first hit. Misconfiguration, transport errors or zero results
// trigger one retry with a fixed generic query; after that it returns
// the built-in fallback descriptor. Find never returns an error.
func (c *Client) Find(ctx context.Context, query string) domain.Image {
	if c.accessKey == "" {
		c.logger.Warn("unsplash access key not set, using fallback image")
		return fallbackImage(query)
	}

	img, err := c.search(ctx, query)
	if err == nil {
		return img
	}
	c.logger.Warn("unsplash search failed, retrying with generic query", "query", query, "error", err)

	if query != fallbackQuery {
		if img, err = c.search(ctx, fallbackQuery); err == nil {
			return img
		}
		c.logger.Warn("unsplash generic query failed", "error", err)
	}

	return fallbackImage(query)
}

func (c *Client) search(ctx context.Context, query string) (domain.Image, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("per_page", "5")
	params.Set("orientation", "landscape")
	params.Set("content_filter", "high")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/search/photos?"+params.Encode(), nil)
	if err != nil {
		return domain.Image{}, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Client-ID "+c.accessKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Image{}, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Image{}, fmt.Errorf("unexpected status %s", resp.Status)
	}

	var payload struct {
		Results []struct {
			URLs struct {
				Regular string `json:"regular"`
			} `json:"urls"`
			AltDescription string `json:"alt_description"`
			User           struct {
				Name  string `json:"name"`
				Links struct {
					HTML string `json:"html"`
				} `json:"links"`
			} `json:"user"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.Image{}, fmt.Errorf("decode response: %w", err)
	}
	if len(payload.Results) == 0 {
		return domain.Image{}, fmt.Errorf("no results for %q", query)
	}

	photo := payload.Results[0]
	alt := photo.AltDescription
	if alt == "" {
		alt = query
	}

	return domain.Image{
		URL:             photo.URLs.Regular,
		Alt:             alt,
		Photographer:    photo.User.Name,
		PhotographerURL: photo.User.Links.HTML,
	}, nil
}

func fallbackImage(query string) domain.Image {
	alt := query
	if alt == "" {
		alt = fallbackImageAlt
	}
	return domain.Image{URL: fallbackImageURL, Alt: alt}
}
