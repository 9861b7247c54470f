// Package web serves the browser front ends: a classic ask-and-render form
// page and a chat page backed by a small JSON API. Both are thin views over
// the shared answer pipeline.
package web

import (
	"context"
	"encoding/json"
	"html/template"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"faqrag/internal/domain"
	"faqrag/internal/service"
)

// AssistantPort is the web-facing subset of the answer pipeline.
type AssistantPort interface {
	Answer(ctx context.Context, question string) (domain.Answer, error)
	History(ctx context.Context) []domain.HistoryEntry
}

// Server hosts the web front ends.
type Server struct {
	assistant AssistantPort
	addr      string
	templates *template.Template
}

// NewServer creates the web server for the given assistant.
func NewServer(assistant AssistantPort, addr string) *Server {
	return &Server{
		assistant: assistant,
		addr:      addr,
		templates: template.Must(template.New("pages").Parse(pageTemplates)),
	}
}

// Start runs the HTTP server until ctx is canceled.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleForm)
	mux.HandleFunc("/chat", s.handleChat)
	mux.HandleFunc("/history", s.handleHistory)
	mux.HandleFunc("/api/chat", s.handleAPIChat)
	mux.HandleFunc("/api/history", s.handleAPIHistory)

	server := &http.Server{
		Addr:         s.addr,
		Handler:      loggingMiddleware(mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 300 * time.Second, // generation can be slow
	}

	log.Printf("web front end listening on %s", s.addr)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()
	err := server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

type formData struct {
	Question string
	Answer   string
	Context  []string
	Failed   bool
	Asked    bool
}

// handleForm renders the form page and processes submissions synchronously.
func (s *Server) handleForm(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	data := formData{}
	if r.Method == http.MethodPost {
		r.ParseForm()
		question := strings.TrimSpace(r.FormValue("question"))
		if question == "" {
			data.Failed = true
			data.Answer = "Pertanyaan tidak boleh kosong."
		} else {
			data.Asked = true
			data.Question = question
			ans, err := s.assistant.Answer(r.Context(), question)
			if err != nil {
				log.Printf("answer failed: %v", err)
				data.Failed = true
				data.Answer = service.FailureMessage
			} else {
				data.Answer = ans.Text
				data.Context = ans.Context
			}
		}
	}
	s.render(w, "form", data)
}

// handleChat renders the chat page; the conversation itself goes through the
// JSON API.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	s.render(w, "chat", s.assistant.History(r.Context()))
}

// handleHistory renders the full conversation log.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	s.render(w, "history", s.assistant.History(r.Context()))
}

type chatRequest struct {
	Question string `json:"question"`
}

type chatResponse struct {
	Answer  string   `json:"answer,omitempty"`
	Context []string `json:"context,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// handleAPIChat answers one question per request.
func (s *Server) handleAPIChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	session := s.session(w, r)

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, chatResponse{Error: "invalid request body"})
		return
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		writeJSON(w, http.StatusBadRequest, chatResponse{Error: "question must not be empty"})
		return
	}

	ans, err := s.assistant.Answer(r.Context(), question)
	if err != nil {
		log.Printf("session %s: answer failed: %v", session, err)
		writeJSON(w, http.StatusOK, chatResponse{Error: service.FailureMessage})
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{Answer: ans.Text, Context: ans.Context})
}

// handleAPIHistory returns the conversation log as JSON.
func (s *Server) handleAPIHistory(w http.ResponseWriter, r *http.Request) {
	entries := s.assistant.History(r.Context())
	if entries == nil {
		entries = []domain.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

const sessionCookie = "faqrag_session"

// session returns the chat session ID, minting one on first contact.
func (s *Server) session(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
	})
	return id
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		log.Printf("rendering %s: %v", name, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %v", r.Method, r.URL.Path, time.Since(start))
	})
}
