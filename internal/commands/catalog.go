package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Game is one catalog entry.
type Game struct {
	Title       string `json:"title"`
	Description string `json:"short_description"`
	URL         string `json:"game_url"`
}

// CatalogClient looks titles up in a FreeToGame-compatible catalog API.
type CatalogClient struct {
	baseURL string
	client  *http.Client
}

func NewCatalogClient(baseURL string) *CatalogClient {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = "https://www.freetogame.com/api"
	}
	return &CatalogClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Lookup returns the best title match, or nil when nothing matches.
func (c *CatalogClient) Lookup(ctx context.Context, title string) (*Game, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/games", nil)
	if err != nil {
		return nil, fmt.Errorf("create catalog request: %w", err)
	}

	res, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog status %d", res.StatusCode)
	}

	var games []Game
	if err := json.NewDecoder(res.Body).Decode(&games); err != nil {
		return nil, fmt.Errorf("decode catalog response: %w", err)
	}

	needle := strings.ToLower(strings.TrimSpace(title))
	if needle == "" {
		return nil, nil
	}
	for i := range games {
		if strings.ToLower(games[i].Title) == needle {
			return &games[i], nil
		}
	}
	for i := range games {
		if strings.Contains(strings.ToLower(games[i].Title), needle) {
			return &games[i], nil
		}
	}
	return nil, nil
}
