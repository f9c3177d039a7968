// Package api wires the HTTP surface: chat, knowledge base, analytics.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"kbchat/internal/analytics"
	"kbchat/internal/chat"
	ports "kbchat/internal/chat/ports"
	"kbchat/internal/kb"
)

// Server holds the HTTP handlers and their collaborators.
type Server struct {
	orchestrator *chat.Orchestrator
	articles     *kb.Service
	analytics    *analytics.Service
	logger       zerolog.Logger
}

// New creates a new Server instance.
func New(orchestrator *chat.Orchestrator, articles *kb.Service, analyticsSvc *analytics.Service, logger zerolog.Logger) *Server {
	return &Server{
		orchestrator: orchestrator,
		articles:     articles,
		analytics:    analyticsSvc,
		logger:       logger,
	}
}

// Handler returns the fully wired route tree.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/chat", s.postChat)
	mux.HandleFunc("GET /api/chat/history/{sessionId}", s.getHistory)

	mux.HandleFunc("GET /api/kb", s.listArticles)
	mux.HandleFunc("POST /api/kb", s.createArticle)
	mux.HandleFunc("GET /api/kb/search", s.searchArticles)
	mux.HandleFunc("DELETE /api/kb/{id}", s.deleteArticle)

	mux.HandleFunc("GET /api/analytics", s.getAnalytics)

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("AI Knowledge Base Chatbot API Running"))
	})

	return s.withLogging(withCORS(mux))
}

func (s *Server) postChat(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SessionID string `json:"sessionId"`
		Message   string `json:"message"`
	}
	// Extra fields are ignored; only the two required ones matter.
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeErrorString(w, http.StatusBadRequest, "Session ID and message are required")
		return
	}

	answer, err := s.orchestrator.Handle(r.Context(), payload.SessionID, payload.Message)
	if err != nil {
		if errors.Is(err, chat.ErrBadRequest) {
			writeErrorString(w, http.StatusBadRequest, "Session ID and message are required")
			return
		}
		s.logger.Error().Err(err).Msg("chat request failed")
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"response": answer})
}

func (s *Server) getHistory(w http.ResponseWriter, r *http.Request) {
	turns := s.orchestrator.History(r.Context(), r.PathValue("sessionId"))
	if turns == nil {
		turns = []ports.Turn{}
	}
	writeJSON(w, http.StatusOK, turns)
}

func (s *Server) listArticles(w http.ResponseWriter, r *http.Request) {
	articles, err := s.articles.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if articles == nil {
		articles = []ports.Article{}
	}
	writeJSON(w, http.StatusOK, articles)
}

func (s *Server) createArticle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		writeErrorString(w, http.StatusBadRequest, "could not read request body")
		return
	}

	if err := kb.ValidateArticlePayload(body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var article ports.Article
	if err := json.Unmarshal(body, &article); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := s.articles.Create(r.Context(), &article); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusCreated, article)
}

func (s *Server) searchArticles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeErrorString(w, http.StatusBadRequest, "query parameter q is required")
		return
	}

	articles, err := s.articles.Search(r.Context(), q, 10)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if articles == nil {
		articles = []ports.Article{}
	}
	writeJSON(w, http.StatusOK, articles)
}

func (s *Server) deleteArticle(w http.ResponseWriter, r *http.Request) {
	if err := s.articles.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Article deleted"})
}

func (s *Server) getAnalytics(w http.ResponseWriter, r *http.Request) {
	report, err := s.analytics.Report(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"message": err.Error()})
}

func writeErrorString(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}
