// Package llm talks to the remote completion service. The service is opaque:
// all history is sent inline on every call and nothing is kept remotely.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Request is one completion call. History is the pre-formatted context block,
// not a structured transcript.
type Request struct {
	System      string  `json:"system"`
	History     string  `json:"history,omitempty"`
	UserText    string  `json:"user_text"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

// Client produces a completion for a request. Implementations honor the
// context deadline; callers own timeout policy.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Config controls client construction.
type Config struct {
	Mode string // auto | http | mock
	URL  string
}

func NewClient(cfg Config) (Client, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "auto":
		if strings.TrimSpace(cfg.URL) != "" {
			return NewHTTPClient(cfg.URL), nil
		}
		return NewMockClient(), nil
	case "http":
		if strings.TrimSpace(cfg.URL) == "" {
			return nil, errors.New("completion service URL is required for http mode")
		}
		return NewHTTPClient(cfg.URL), nil
	case "mock":
		return NewMockClient(), nil
	default:
		return nil, fmt.Errorf("unsupported llm client mode %q", cfg.Mode)
	}
}
