package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	ports "kbchat/internal/chat/ports"
)

// OpenAIProvider calls an OpenAI-compatible /chat/completions endpoint.
// The same adapter serves both chain positions: api.openai.com for the
// primary and the Hugging Face router for the secondary, differing only
// in base URL, model, and credential.
type OpenAIProvider struct {
	name       string
	baseURL    string
	apiKey     string
	model      string
	maxTokens  int
	httpClient *http.Client
}

// NewOpenAIProvider creates a provider for one OpenAI-compatible backend.
// An empty or placeholder apiKey makes Complete fail immediately with
// FailureNotConfigured instead of going over the wire.
func NewOpenAIProvider(name, baseURL, apiKey, model string, maxTokens int) *OpenAIProvider {
	return &OpenAIProvider{
		name:       name,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     strings.TrimSpace(apiKey),
		model:      model,
		maxTokens:  maxTokens,
		httpClient: &http.Client{},
	}
}

// Name returns the provider's chain label.
func (p *OpenAIProvider) Name() string { return p.name }

type chatCompletionRequest struct {
	Model     string               `json:"model"`
	Messages  []ports.PromptMessage `json:"messages"`
	MaxTokens int                  `json:"max_tokens,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends one non-streaming chat completion request. Call
// deadlines come from ctx; the provider itself sets no timeout.
func (p *OpenAIProvider) Complete(ctx context.Context, messages []ports.PromptMessage) (string, error) {
	if p.apiKey == "" || strings.HasSuffix(p.apiKey, "placeholder-key") {
		return "", &ports.ProviderError{
			Provider: p.name,
			Kind:     ports.FailureNotConfigured,
			Err:      errors.New("API key not configured"),
		}
	}

	body, err := json.Marshal(chatCompletionRequest{
		Model:     p.model,
		Messages:  messages,
		MaxTokens: p.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", &ports.ProviderError{Provider: p.name, Kind: ports.FailureNetwork, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &ports.ProviderError{
			Provider: p.name,
			Kind:     classifyStatus(resp.StatusCode),
			Err:      fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload))),
		}
	}

	var parsed chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", &ports.ProviderError{Provider: p.name, Kind: ports.FailureBadResponse, Err: err}
	}
	if parsed.Error != nil {
		return "", &ports.ProviderError{
			Provider: p.name,
			Kind:     ports.FailureBadResponse,
			Err:      errors.New(parsed.Error.Message),
		}
	}
	if len(parsed.Choices) == 0 {
		return "", &ports.ProviderError{
			Provider: p.name,
			Kind:     ports.FailureBadResponse,
			Err:      errors.New("no choices in response"),
		}
	}

	return parsed.Choices[0].Message.Content, nil
}

func classifyStatus(status int) ports.FailureKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ports.FailureAuth
	case status == http.StatusTooManyRequests:
		return ports.FailureQuota
	case status >= 500:
		return ports.FailureNetwork
	default:
		return ports.FailureBadResponse
	}
}

// Ensure OpenAIProvider implements the Provider interface.
var _ ports.Provider = (*OpenAIProvider)(nil)
