package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"rulecard-service/internal/config"
	appErr "rulecard-service/pkg/errors"

	"golang.org/x/sync/semaphore"
)

// Transport delivers a prompt to a model and returns its raw reply.
type Transport interface {
	Send(ctx context.Context, prompt string) (string, error)
}

const maxResponseBytes = 1 << 20

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

// GeminiTransport calls the generateContent endpoint. Concurrent calls are
// capped by a weighted semaphore shared by all sessions.
type GeminiTransport struct {
	url    string
	apiKey string
	client *http.Client
	sem    *semaphore.Weighted
}

func NewGeminiTransport(cfg config.AgentConfig) *GeminiTransport {
	limit := cfg.MaxConcurrent
	if limit <= 0 {
		limit = 1
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &GeminiTransport{
		url:    fmt.Sprintf("%s/%s:generateContent", strings.TrimRight(cfg.Endpoint, "/"), cfg.Model),
		apiKey: cfg.APIKey,
		client: &http.Client{Timeout: timeout},
		sem:    semaphore.NewWeighted(limit),
	}
}

func (t *GeminiTransport) Send(ctx context.Context, prompt string) (string, error) {
	if t.apiKey == "" {
		return "", appErr.ErrAgentNotConfigured
	}
	if err := t.sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("%w: %v", appErr.ErrAgentTransport, err)
	}
	defer t.sem.Release(1)

	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", appErr.ErrAgentTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", t.apiKey)

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", appErr.ErrAgentTransport, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("%w: read body: %v", appErr.ErrAgentTransport, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: status %d", appErr.ErrAgentTransport, resp.StatusCode)
	}
	return string(raw), nil
}
