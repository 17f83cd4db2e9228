package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/agent-platform/llm-gateway/services/providers"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Adapter implements providers.Provider against any backend speaking the
// OpenAI chat-completions protocol (OpenAI, DeepSeek, local llama.cpp/vLLM).
//
// The HTTP client is constructed lazily on first use so that an optional
// provider with missing credentials never prevents process startup. The
// client carries no timeout of its own: the gateway bounds each attempt
// through the request context, and cancellation releases the connection.
type Adapter struct {
	config providers.Config

	once       sync.Once
	httpClient *http.Client
}

// New creates an adapter for one configured backend.
func New(config providers.Config) *Adapter {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	return &Adapter{config: config}
}

// Name returns the provider name
func (a *Adapter) Name() string {
	return a.config.Name
}

// Model returns the bound model identifier
func (a *Adapter) Model() string {
	return a.config.Model
}

// client returns the shared transport client, building it on first call.
// The returned client is safe for concurrent use by many requests.
func (a *Adapter) client() *http.Client {
	a.once.Do(func() {
		a.httpClient = &http.Client{}
	})
	return a.httpClient
}

// Generate performs one chat-completion call. No retry, no internal timeout.
func (a *Adapter) Generate(ctx context.Context, in providers.GenerateInput) (string, error) {
	body := chatRequest{
		Model: a.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: in.SystemPrompt},
			{Role: "user", Content: in.UserPrompt},
		},
		Temperature: in.Temperature,
	}
	if in.JSONMode {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	reqBody, err := json.Marshal(body)
	if err != nil {
		return "", providers.NewInvocationError(a.Name(), "failed to marshal request", 0, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.BaseURL+"/chat/completions", bytes.NewReader(reqBody))
	if err != nil {
		return "", providers.NewInvocationError(a.Name(), "failed to create request", 0, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if a.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+a.config.APIKey)
	}

	httpResp, err := a.client().Do(httpReq)
	if err != nil {
		// Surface context cancellation untouched so the gateway can tell a
		// cancelled attempt apart from a transport failure.
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", providers.NewInvocationError(a.Name(), "HTTP request failed", 0, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", providers.NewInvocationError(a.Name(), "failed to read response", httpResp.StatusCode, err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return "", a.handleErrorResponse(httpResp.StatusCode, respBody)
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", providers.NewInvocationError(a.Name(), "failed to unmarshal response", httpResp.StatusCode, err)
	}
	if len(parsed.Choices) == 0 {
		return "", providers.NewInvocationError(a.Name(), "empty choices in response", httpResp.StatusCode, nil)
	}

	return parsed.Choices[0].Message.Content, nil
}

// handleErrorResponse converts a non-2xx body into an invocation error
func (a *Adapter) handleErrorResponse(statusCode int, body []byte) error {
	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error.Message == "" {
		return providers.NewInvocationError(a.Name(), fmt.Sprintf("unexpected status %d", statusCode), statusCode, errors.New(string(body)))
	}
	return providers.NewInvocationError(a.Name(), errResp.Error.Message, statusCode, nil)
}

// Wire types for the chat-completions protocol

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}
