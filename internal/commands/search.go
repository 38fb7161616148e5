package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxSearchResults = 3

// SearchRelay asks a DuckDuckGo-compatible instant-answer endpoint and
// relays the top results as plain lines.
type SearchRelay struct {
	baseURL string
	client  *http.Client
}

func NewSearchRelay(baseURL string) *SearchRelay {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = "https://api.duckduckgo.com"
	}
	return &SearchRelay{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type instantAnswer struct {
	AbstractText  string `json:"AbstractText"`
	AbstractURL   string `json:"AbstractURL"`
	RelatedTopics []struct {
		Text     string `json:"Text"`
		FirstURL string `json:"FirstURL"`
	} `json:"RelatedTopics"`
}

func (s *SearchRelay) Query(ctx context.Context, terms string) ([]string, error) {
	if terms == "" {
		return nil, nil
	}

	u := fmt.Sprintf("%s/?q=%s&format=json&no_html=1", s.baseURL, url.QueryEscape(terms))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}

	res, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search status %d", res.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read search response: %w", err)
	}

	var answer instantAnswer
	if err := json.Unmarshal(body, &answer); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	var lines []string
	if answer.AbstractText != "" {
		lines = append(lines, answer.AbstractText+" — "+answer.AbstractURL)
	}
	for _, topic := range answer.RelatedTopics {
		if len(lines) >= maxSearchResults {
			break
		}
		if topic.Text == "" {
			continue
		}
		lines = append(lines, topic.Text+" — "+topic.FirstURL)
	}
	return lines, nil
}
