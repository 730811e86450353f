// Package client holds outbound HTTP clients for third-party APIs.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carcashpro/carcash-bfa-go/internal/domain"
	"github.com/carcashpro/carcash-bfa-go/internal/infra/resilience"
)

var tracer = otel.Tracer("client")

// LLMClient calls an OpenAI-compatible chat completions endpoint.
// Calls go through the breaker and are never retried.
type LLMClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	cb         *gobreaker.CircuitBreaker
}

// NewLLMClient creates a new LLMClient. baseURL is the API root, e.g.
// https://api.openai.com. The client's own Timeout is dropped: the deadline
// of the context passed to Complete bounds each call.
func NewLLMClient(httpClient *http.Client, baseURL, apiKey string, cb *gobreaker.CircuitBreaker) *LLMClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	hc := *httpClient
	hc.Timeout = 0
	return &LLMClient{
		httpClient: &hc,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		cb:         cb,
	}
}

// Complete sends one completion request and returns the decoded reply.
func (c *LLMClient) Complete(ctx context.Context, req *domain.CompletionRequest) (*domain.CompletionResponse, error) {
	ctx, span := tracer.Start(ctx, "LLMClient.Complete")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.model", req.Model),
		attribute.Int("llm.messages", len(req.Messages)),
	)

	resp, err := resilience.Execute(ctx, c.cb, resilience.Config{}, func() (*domain.CompletionResponse, error) {
		return c.post(ctx, req)
	})
	if err == nil {
		span.SetAttributes(attribute.Int("llm.total_tokens", resp.Usage.TotalTokens))
		return resp, nil
	}

	span.RecordError(err)
	var open *domain.ErrCircuitOpen
	switch {
	case errors.As(err, &open):
		return nil, err
	case errors.Is(err, context.DeadlineExceeded):
		return nil, &domain.ErrTimeout{Operation: "llm completion"}
	}
	return nil, &domain.ErrExternalService{Service: "llm", Err: err}
}

func (c *LLMClient) post(ctx context.Context, req *domain.CompletionRequest) (*domain.CompletionResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/v1/chat/completions", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(httpResp.Body, 512))
		return nil, fmt.Errorf("llm API returned status %d: %s", httpResp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out domain.CompletionResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode llm response: %w", err)
	}
	if out.Answer() == "" {
		return nil, errors.New("llm response has no choices")
	}
	return &out, nil
}
