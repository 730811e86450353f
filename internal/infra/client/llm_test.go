package client_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/carcashpro/carcash-bfa-go/internal/domain"
	"github.com/carcashpro/carcash-bfa-go/internal/infra/client"
	"github.com/carcashpro/carcash-bfa-go/internal/infra/resilience"
)

func newLLM(t *testing.T, handler http.HandlerFunc) *client.LLMClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return client.NewLLMClient(srv.Client(), srv.URL+"/", "sk-test", resilience.NewCircuitBreaker("llm-test", zap.NewNop()))
}

func request() *domain.CompletionRequest {
	return &domain.CompletionRequest{
		Model:       "gpt-4o-mini",
		Messages:    []domain.ChatMessage{{Role: "system", Content: "coach"}, {Role: "user", Content: "how am I doing?"}},
		Temperature: 0.7,
		MaxTokens:   300,
	}
}

func TestComplete_Success(t *testing.T) {
	llm := newLLM(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("missing bearer key")
		}
		raw, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(raw), `"max_tokens":300`) {
			t.Errorf("unexpected body: %s", raw)
		}
		_, _ = io.WriteString(w, `{"id":"c1","model":"gpt-4o-mini","choices":[{"index":0,"message":{"role":"assistant","content":"Keep pushing."}}],"usage":{"prompt_tokens":120,"completion_tokens":30,"total_tokens":150}}`)
	})

	resp, err := llm.Complete(context.Background(), request())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Answer() != "Keep pushing." {
		t.Errorf("unexpected answer %q", resp.Answer())
	}
	if resp.Usage.TotalTokens != 150 {
		t.Errorf("expected 150 tokens, got %d", resp.Usage.TotalTokens)
	}
}

func TestComplete_ErrorIsNotRetried(t *testing.T) {
	calls := 0
	llm := newLLM(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, `{"error":"overloaded"}`, http.StatusServiceUnavailable)
	})

	_, err := llm.Complete(context.Background(), request())
	var ext *domain.ErrExternalService
	if !errors.As(err, &ext) {
		t.Fatalf("expected ErrExternalService, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected a single attempt, got %d", calls)
	}
}

func TestComplete_EmptyChoices(t *testing.T) {
	llm := newLLM(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"id":"c1","choices":[]}`)
	})

	if _, err := llm.Complete(context.Background(), request()); err == nil {
		t.Fatal("expected error for empty choices")
	}
}

func TestComplete_Timeout(t *testing.T) {
	llm := newLLM(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := llm.Complete(ctx, request())
	var timeout *domain.ErrTimeout
	if !errors.As(err, &timeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestComplete_ContextDeadlineOverridesClientTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"late but fine"}}]}`)
	}))
	t.Cleanup(srv.Close)

	shared := &http.Client{Timeout: 100 * time.Millisecond}
	llm := client.NewLLMClient(shared, srv.URL, "sk-test", resilience.NewCircuitBreaker("llm-slow", zap.NewNop()))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	resp, err := llm.Complete(ctx, request())
	if err != nil {
		t.Fatalf("expected the context deadline to govern the call, got %v", err)
	}
	if resp.Choices[0].Message.Content != "late but fine" {
		t.Errorf("unexpected content %q", resp.Choices[0].Message.Content)
	}
	if shared.Timeout != 100*time.Millisecond {
		t.Errorf("caller's client was modified: %v", shared.Timeout)
	}
}
