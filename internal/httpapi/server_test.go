package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type fakeReplier struct {
	lastMessageID string
}

func (f *fakeReplier) GenerateReply(_ context.Context, text, _, _, messageID, _, _ string) string {
	f.lastMessageID = messageID
	return "echo: " + text
}

func TestHealth(t *testing.T) {
	srv := New(&fakeReplier{})
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status = %d", rec.Code)
	}
}

func TestReplyEndpoint(t *testing.T) {
	replier := &fakeReplier{}
	srv := New(replier)

	body := `{"text":"hello","channel_id":"c1","author_id":"u1","author_name":"alice"}`
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/reply", strings.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("reply status = %d, body %s", rec.Code, rec.Body.String())
	}
	var res replyResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if res.Reply != "echo: hello" {
		t.Fatalf("reply = %q", res.Reply)
	}
	if replier.lastMessageID == "" {
		t.Fatalf("no message id generated for the exchange")
	}
}

func TestReplyRejectsMissingFields(t *testing.T) {
	srv := New(&fakeReplier{})
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/reply", strings.NewReader(`{"text":""}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
