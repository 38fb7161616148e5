package llm

import (
	"context"
	"strings"
)

// MockClient is the offline stand-in used for local development and tests.
type MockClient struct{}

func NewMockClient() *MockClient { return &MockClient{} }

func (m *MockClient) Complete(_ context.Context, req Request) (string, error) {
	text := strings.TrimSpace(req.UserText)
	if text == "" {
		return "I heard you.", nil
	}
	return "You said: " + text, nil
}
