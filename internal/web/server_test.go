package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"faqrag/internal/domain"
	"faqrag/internal/service"
)

type stubAssistant struct {
	answer       domain.Answer
	err          error
	entries      []domain.HistoryEntry
	lastQuestion string
}

func (s *stubAssistant) Answer(_ context.Context, question string) (domain.Answer, error) {
	s.lastQuestion = question
	return s.answer, s.err
}

func (s *stubAssistant) History(_ context.Context) []domain.HistoryEntry {
	return s.entries
}

func TestAPIChatAnswers(t *testing.T) {
	stub := &stubAssistant{answer: domain.Answer{
		Text:    "BPJS adalah program jaminan kesehatan nasional.",
		Context: []string{"Question: What is BPJS?\nAnswer: A national health insurance program."},
	}}
	srv := NewServer(stub, ":0")

	body := strings.NewReader(`{"question": "Apa itu BPJS?"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/chat", body)
	rec := httptest.NewRecorder()
	srv.handleAPIChat(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp chatResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Answer != stub.answer.Text || resp.Error != "" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if len(resp.Context) != 1 {
		t.Fatalf("context missing from response: %+v", resp)
	}
	if stub.lastQuestion != "Apa itu BPJS?" {
		t.Fatalf("question not forwarded: %q", stub.lastQuestion)
	}
}

func TestAPIChatRejectsEmptyQuestion(t *testing.T) {
	srv := NewServer(&stubAssistant{}, ":0")
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"question": "  "}`))
	rec := httptest.NewRecorder()
	srv.handleAPIChat(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAPIChatReportsOpaqueFailure(t *testing.T) {
	stub := &stubAssistant{err: errors.New("retrieval failed: index on fire")}
	srv := NewServer(stub, ":0")
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"question": "Apa itu BPJS?"}`))
	rec := httptest.NewRecorder()
	srv.handleAPIChat(rec, req)

	var resp chatResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Error != service.FailureMessage {
		t.Fatalf("expected the opaque failure message, got %q", resp.Error)
	}
	if strings.Contains(resp.Error, "index on fire") {
		t.Fatal("internal error detail leaked to the client")
	}
}

func TestAPIChatSetsSessionCookie(t *testing.T) {
	srv := NewServer(&stubAssistant{}, ":0")
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"question": "Apa itu BPJS?"}`))
	rec := httptest.NewRecorder()
	srv.handleAPIChat(rec, req)

	cookies := rec.Result().Cookies()
	found := false
	for _, c := range cookies {
		if c.Name == sessionCookie && c.Value != "" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected a session cookie on first contact")
	}
}

func TestAPIHistory(t *testing.T) {
	stub := &stubAssistant{entries: []domain.HistoryEntry{
		{Question: "q1", Answer: "a1"},
		{Question: "q2", Answer: "a2"},
	}}
	srv := NewServer(stub, ":0")
	req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
	rec := httptest.NewRecorder()
	srv.handleAPIHistory(rec, req)

	var entries []domain.HistoryEntry
	if err := json.NewDecoder(rec.Body).Decode(&entries); err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 || entries[0].Question != "q1" {
		t.Fatalf("unexpected history payload: %+v", entries)
	}
}

func TestFormPageRendersAnswer(t *testing.T) {
	stub := &stubAssistant{answer: domain.Answer{
		Text:    "BPJS adalah program jaminan kesehatan nasional.",
		Context: []string{"Question: What is BPJS?\nAnswer: A national health insurance program."},
	}}
	srv := NewServer(stub, ":0")

	form := url.Values{"question": {"Apa itu BPJS?"}}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	srv.handleForm(rec, req)

	page := rec.Body.String()
	if !strings.Contains(page, stub.answer.Text) {
		t.Fatal("answer missing from rendered page")
	}
	if !strings.Contains(page, "Lihat konteks") {
		t.Fatal("context disclosure missing from rendered page")
	}
}

func TestFormPageRejectsEmptyQuestion(t *testing.T) {
	srv := NewServer(&stubAssistant{}, ":0")
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("question="))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	srv.handleForm(rec, req)
	if !strings.Contains(rec.Body.String(), "Pertanyaan tidak boleh kosong") {
		t.Fatal("empty question should be rejected with a message")
	}
}
