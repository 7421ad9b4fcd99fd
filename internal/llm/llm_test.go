package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/starford/atlas/internal/apperr"
)

func TestNew_RejectsMissingOrPlaceholderKey(t *testing.T) {
	for _, key := range []string{"", "  ", "YOUR_API_KEY", "prefix-YOUR_API_KEY"} {
		_, err := New(Config{Provider: "gemini", APIKey: key})
		if !errors.Is(err, apperr.ErrConfig) {
			t.Errorf("key %q: err = %v, want ErrConfig", key, err)
		}
	}
}

func TestNew_UnknownProvider(t *testing.T) {
	_, err := New(Config{Provider: "openai"})
	if !errors.Is(err, apperr.ErrConfig) {
		t.Errorf("err = %v, want ErrConfig", err)
	}
}

func TestNew_Providers(t *testing.T) {
	g, err := New(Config{APIKey: "k"})
	if err != nil || g.Provider() != "gemini" {
		t.Fatalf("default provider = %v, %v", g, err)
	}
	o, err := New(Config{Provider: "Ollama"})
	if err != nil || o.Provider() != "ollama" {
		t.Fatalf("ollama provider = %v, %v", o, err)
	}
}

func TestIsErrorReply(t *testing.T) {
	if !IsErrorReply("Error: blocked") {
		t.Error("expected error reply")
	}
	if IsErrorReply(`{"title":"Error: in title"}`) {
		t.Error("JSON reply should not be an error reply")
	}
}

func TestGemini_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/test-model:generateContent" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("x-goog-api-key"); got != "secret" {
			t.Errorf("api key header = %q", got)
		}
		var req geminiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.GenerationConfig.ResponseMIMEType != "application/json" {
			t.Errorf("mime type = %q", req.GenerationConfig.ResponseMIMEType)
		}
		if len(req.Contents) != 1 || req.Contents[0].Parts[0].Text != "hello" {
			t.Errorf("contents = %+v", req.Contents)
		}
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"{\"title\":"},{"text":"\"T\"}"}]},"finishReason":"STOP"}]}`))
	}))
	defer srv.Close()

	g, err := New(Config{APIKey: "secret", Model: "test-model", BaseURL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	got, err := g.Generate(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != `{"title":"T"}` {
		t.Errorf("reply = %q", got)
	}
}

func TestGemini_BlockedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[],"promptFeedback":{"blockReason":"SAFETY"}}`))
	}))
	defer srv.Close()

	g, _ := New(Config{APIKey: "k", BaseURL: srv.URL})
	_, err := g.Generate(context.Background(), "p")
	if !errors.Is(err, ErrBlocked) {
		t.Fatalf("err = %v, want ErrBlocked", err)
	}
	if !strings.Contains(err.Error(), "Finish reason: SAFETY") {
		t.Errorf("err = %v, want finish reason", err)
	}
}

func TestGemini_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	g, _ := New(Config{APIKey: "k", BaseURL: srv.URL})
	_, err := g.Generate(context.Background(), "p")
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Errorf("err = %v, want status in message", err)
	}
}

func TestOllama_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req ollamaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Format != "json" || req.Stream || req.Model != "m" {
			t.Errorf("request = %+v", req)
		}
		_, _ = w.Write([]byte(`{"response":" {\"title\":\"T\"} "}`))
	}))
	defer srv.Close()

	g, _ := New(Config{Provider: "ollama", Model: "m", BaseURL: srv.URL})
	got, err := g.Generate(context.Background(), "p")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != `{"title":"T"}` {
		t.Errorf("reply = %q", got)
	}
}

func TestOllama_EmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response":""}`))
	}))
	defer srv.Close()

	g, _ := New(Config{Provider: "ollama", BaseURL: srv.URL})
	if _, err := g.Generate(context.Background(), "p"); !errors.Is(err, ErrBlocked) {
		t.Errorf("err = %v, want ErrBlocked", err)
	}
}
