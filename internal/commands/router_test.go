package commands

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ent0n29/aria/internal/gateway"
	"github.com/ent0n29/aria/internal/spamguard"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []string
}

func (s *fakeSender) Send(_ context.Context, _, _, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, text)
	return nil
}

func (s *fakeSender) last(t *testing.T) string {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sent) == 0 {
		t.Fatalf("nothing sent")
	}
	return s.sent[len(s.sent)-1]
}

func event(author, text string) gateway.Stimulus {
	return gateway.Stimulus{
		MessageID:  "m1",
		Text:       text,
		AuthorID:   author,
		AuthorName: author,
		ChannelID:  "c1",
		GuildID:    "g1",
	}
}

type fakeReplier struct{}

func (fakeReplier) GenerateReply(_ context.Context, text, _, _, _, _, _ string) string {
	return "about " + text
}

func TestAskCommandUsesTheCore(t *testing.T) {
	sender := &fakeSender{}
	r := NewRouter(sender, fakeReplier{}, nil, nil, nil, nil, nil)

	if !r.Handle(context.Background(), event("alice", "!ask what is go")) {
		t.Fatalf("ask command not consumed")
	}
	if got := sender.last(t); got != "about what is go" {
		t.Fatalf("ask reply = %q", got)
	}
}

func TestRouterIgnoresPlainChat(t *testing.T) {
	sender := &fakeSender{}
	r := NewRouter(sender, nil, nil, nil, nil, nil, nil)

	if r.Handle(context.Background(), event("alice", "just chatting")) {
		t.Fatalf("plain chat consumed by the command router")
	}
	if len(sender.sent) != 0 {
		t.Fatalf("router replied to plain chat")
	}
}

func TestSearchCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "go testing" {
			t.Errorf("search query = %q, want %q", got, "go testing")
		}
		w.Write([]byte(`{"AbstractText":"Go testing package","AbstractURL":"https://example.org/go",
			"RelatedTopics":[{"Text":"table tests","FirstURL":"https://example.org/tables"}]}`))
	}))
	defer srv.Close()

	sender := &fakeSender{}
	r := NewRouter(sender, nil, NewSearchRelay(srv.URL), nil, nil, nil, nil)

	if !r.Handle(context.Background(), event("alice", "!search go testing")) {
		t.Fatalf("search command not consumed")
	}
	reply := sender.last(t)
	if !strings.Contains(reply, "Go testing package") || !strings.Contains(reply, "table tests") {
		t.Fatalf("search reply = %q", reply)
	}
}

func TestSearchCommandDegradesOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	sender := &fakeSender{}
	r := NewRouter(sender, nil, NewSearchRelay(srv.URL), nil, nil, nil, nil)

	r.Handle(context.Background(), event("alice", "!search anything"))
	if got := sender.last(t); got != "I could not find anything for that." {
		t.Fatalf("failure reply = %q", got)
	}
}

func TestGameCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`[{"title":"Star Drift","short_description":"Space racing.","game_url":"https://example.org/sd"},
			{"title":"Other","short_description":"x","game_url":"y"}]`))
	}))
	defer srv.Close()

	sender := &fakeSender{}
	r := NewRouter(sender, nil, nil, NewCatalogClient(srv.URL), nil, nil, nil)

	r.Handle(context.Background(), event("alice", "!game star drift"))
	reply := sender.last(t)
	if !strings.Contains(reply, "Star Drift") || !strings.Contains(reply, "Space racing.") {
		t.Fatalf("game reply = %q", reply)
	}
}

func TestGameCommandNoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	sender := &fakeSender{}
	r := NewRouter(sender, nil, nil, NewCatalogClient(srv.URL), nil, nil, nil)

	r.Handle(context.Background(), event("alice", "!game nothing"))
	if got := sender.last(t); got != "No game in the catalog matches that." {
		t.Fatalf("no-match reply = %q", got)
	}
}

func TestBirthdaySetAndForget(t *testing.T) {
	sender := &fakeSender{}
	book := NewBirthdayBook()
	r := NewRouter(sender, nil, nil, nil, book, nil, nil)

	r.Handle(context.Background(), event("alice", "!birthday set 03-14"))
	if got := sender.last(t); !strings.Contains(got, "03-14") {
		t.Fatalf("set reply = %q", got)
	}

	r.Handle(context.Background(), event("alice", "!birthday set 14-99"))
	if got := sender.last(t); !strings.Contains(got, "MM-DD") {
		t.Fatalf("invalid-date reply = %q", got)
	}

	r.Handle(context.Background(), event("alice", "!birthday forget"))
	if got := sender.last(t); got != "Forgotten." {
		t.Fatalf("forget reply = %q", got)
	}
}

func TestSpamNoticePreemptsCommands(t *testing.T) {
	sender := &fakeSender{}
	guard := spamguard.New(2, 10*time.Second)
	r := NewRouter(sender, nil, nil, nil, nil, guard, nil)

	r.Handle(context.Background(), event("mallory", "first"))
	if !r.Handle(context.Background(), event("mallory", "second")) {
		t.Fatalf("burst over threshold not consumed")
	}
	if got := sender.last(t); !strings.Contains(got, "spam") {
		t.Fatalf("spam notice = %q", got)
	}
}
