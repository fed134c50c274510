package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"PositiveNews/internal/config"
	"PositiveNews/internal/domain"
	"PositiveNews/internal/ports"
)

const (
	anthropicVersion = "2023-06-01"

	judgeMaxTokens = 300
	writeMaxTokens = 1500
)

// Client implements both oracles against the Anthropic messages API.
// Callers treat it as an untrusted dependency: any transport error or
// unparsable reply surfaces as an error and the pipeline degrades the
// affected candidate.
type Client struct {
	endpoint   string
	apiKey     string
	judgeModel string
	writeModel string
	language   string
	httpClient *http.Client
}

var _ ports.JudgmentOracle = (*Client)(nil)
var _ ports.GenerationOracle = (*Client)(nil)

// NewClient builds a client from configuration.
func NewClient(cfg config.ClaudeConfig) *Client {
	return &Client{
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		judgeModel: cfg.JudgeModel,
		writeModel: cfg.WriteModel,
		language:   cfg.Language,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

const judgeSystemPrompt = `You rate the positivity of news items and assign each a category.

Rating scale:
1-2: very negative (tragedy, catastrophe, conflict)
3-4: negative or neutrally negative
5: neutral
6-7: mildly positive
8-9: positive, inspiring
10: exceptionally uplifting

The category must be exactly one of: economy, domestic, world, sport, animals, science, other.

Always answer with nothing but a valid JSON object in this format:
{"score": 7.5, "reason": "short explanation", "extracted_keywords": ["word1", "word2"], "category": "world"}`

// Evaluate sends one candidate to the judgment model and parses the
// structured verdict out of its reply.
func (c *Client) Evaluate(ctx context.Context, candidate domain.Candidate, ledgerContext string) (domain.Evaluation, error) {
	userPrompt := fmt.Sprintf(`Rate the positivity and category of this news item:

Language: %s
Title: %s
Summary: %s

%s

Return the JSON rating.`, candidate.Language, candidate.Title, candidate.Description, ledgerContext)

	raw, err := c.complete(ctx, c.judgeModel, judgeSystemPrompt, userPrompt, judgeMaxTokens)
	if err != nil {
		return domain.Evaluation{}, err
	}

	var verdict struct {
		Score    *float64 `json:"score"`
		Reason   string   `json:"reason"`
		Keywords []string `json:"extracted_keywords"`
		Category string   `json:"category"`
	}
	if err := json.Unmarshal([]byte(extractJSON(raw)), &verdict); err != nil {
		return domain.Evaluation{}, fmt.Errorf("parse verdict: %w", err)
	}

	// a reply that drops the score field still counts as neutral
	score := 5.0
	if verdict.Score != nil {
		score = *verdict.Score
	}

	return domain.Evaluation{
		Score:    score,
		Reason:   verdict.Reason,
		Keywords: verdict.Keywords,
		Category: verdict.Category,
	}, nil
}

// Generate rewrites a selected candidate into finished copy in the
// configured target language.
func (c *Client) Generate(ctx context.Context, candidate domain.Candidate) (domain.Draft, error) {
	systemPrompt := fmt.Sprintf(`You are an editor for a positive-news site writing warm, uplifting and factually grounded articles.

Always write in the target language %q, no matter what language the source item uses.
Always answer with nothing but a valid JSON object.`, c.language)

	keywordsLine := ""
	if len(candidate.Keywords) > 0 {
		keywordsLine = "Topic keywords: " + strings.Join(candidate.Keywords, ", ")
	}

	userPrompt := fmt.Sprintf(`Write a positive article based on this news item:

Original title: %s
Original summary: %s
Source: %s
%s

Return JSON in exactly this format:
{
  "headline": "catchy positive headline (max 100 characters)",
  "content": "full article text, 3-4 paragraphs, roughly 300-400 words, paragraphs separated by \n\n, factually grounded in the source item",
  "image_query": "short English keyword for an illustrative photo search (1-3 words)"
}`, candidate.Title, candidate.Description, candidate.SourceName, keywordsLine)

	raw, err := c.complete(ctx, c.writeModel, systemPrompt, userPrompt, writeMaxTokens)
	if err != nil {
		return domain.Draft{}, err
	}

	var draft struct {
		Headline   string `json:"headline"`
		Content    string `json:"content"`
		ImageQuery string `json:"image_query"`
	}
	if err := json.Unmarshal([]byte(extractJSON(raw)), &draft); err != nil {
		return domain.Draft{}, fmt.Errorf("parse draft: %w", err)
	}
	if draft.Headline == "" || draft.Content == "" {
		return domain.Draft{}, fmt.Errorf("draft missing headline or content")
	}

	return domain.Draft{
		Headline:   draft.Headline,
		Content:    draft.Content,
		ImageQuery: draft.ImageQuery,
	}, nil
}

func (c *Client) complete(ctx context.Context, model, system, user string, maxTokens int) (string, error) {
	if c.apiKey == "" || c.endpoint == "" || model == "" {
		return "", fmt.Errorf("claude client misconfigured")
	}

	body, err := json.Marshal(map[string]any{
		"model":      model,
		"max_tokens": maxTokens,
		"system":     system,
		"messages": []map[string]string{
			{"role": "user", "content": user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("claude error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var reply struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(reply.Content) == 0 {
		return "", fmt.Errorf("empty completion")
	}

	return strings.TrimSpace(reply.Content[0].Text), nil
}

// extractJSON tolerates prose around the model's JSON object by
// grabbing from the first '{' to the last '}'.
func extractJSON(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
