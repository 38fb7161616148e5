// Package httpapi is the bot's operational HTTP surface: health, metrics,
// and a reply endpoint so auxiliary tooling can exercise the conversational
// core without going through the chat gateway.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ent0n29/aria/internal/observability"
)

// Replier matches bot.Orchestrator.GenerateReply.
type Replier interface {
	GenerateReply(ctx context.Context, text, channelID, guildID, messageID, authorID, authorName string) string
}

type Server struct {
	replier Replier
}

func New(replier Replier) *Server {
	return &Server{replier: replier}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleHealth)
	r.Get("/metrics", func(w http.ResponseWriter, req *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, req)
	})
	r.Post("/v1/reply", s.handleReply)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type replyRequest struct {
	Text       string `json:"text"`
	ChannelID  string `json:"channel_id"`
	GuildID    string `json:"guild_id,omitempty"`
	MessageID  string `json:"message_id,omitempty"`
	AuthorID   string `json:"author_id"`
	AuthorName string `json:"author_name"`
}

type replyResponse struct {
	Reply string `json:"reply"`
}

func (s *Server) handleReply(w http.ResponseWriter, req *http.Request) {
	var body replyRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(body.Text) == "" || strings.TrimSpace(body.ChannelID) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "text and channel_id are required"})
		return
	}
	if body.MessageID == "" {
		// Callers without a platform message id still get a stable turn id
		// for the lifetime of this exchange.
		body.MessageID = uuid.NewString()
	}
	if body.AuthorName == "" {
		body.AuthorName = "operator"
	}

	reply := s.replier.GenerateReply(req.Context(), body.Text, body.ChannelID, body.GuildID, body.MessageID, body.AuthorID, body.AuthorName)
	writeJSON(w, http.StatusOK, replyResponse{Reply: reply})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
