package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/nshelia/worldcommits/internal/application/ports"
)

const (
	openAIDefaultBaseURL = "https://api.openai.com"
	openAIDefaultTimeout = 20 * time.Second

	rewriteTemperature = 0.4
	rewriteMaxTokens   = 180

	rewriteSystemPrompt = "You rewrite telemetry into safe short social copy. Output strict JSON only."
)

// OpenAIProvider generates copy through the OpenAI chat completions API.
type OpenAIProvider struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

type OpenAIOption func(*OpenAIProvider)

func WithOpenAIHTTPClient(client *http.Client) OpenAIOption {
	return func(p *OpenAIProvider) { p.client = client }
}

func WithOpenAIBaseURL(baseURL string) OpenAIOption {
	return func(p *OpenAIProvider) { p.baseURL = baseURL }
}

func NewOpenAIProvider(apiKey, model string, opts ...OpenAIOption) *OpenAIProvider {
	p := &OpenAIProvider{
		apiKey:  apiKey,
		model:   model,
		baseURL: openAIDefaultBaseURL,
		client:  &http.Client{Timeout: openAIDefaultTimeout},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *OpenAIProvider) Name() string { return "openai" }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (p *OpenAIProvider) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatCompletionRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "system", Content: rewriteSystemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: rewriteTemperature,
		MaxTokens:   rewriteMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("openai request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("openai status %d: %s", resp.StatusCode, snippet)
	}

	var decoded chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}
	return decoded.Choices[0].Message.Content, nil
}

// Ensure OpenAIProvider implements ports.CopyProvider.
var _ ports.CopyProvider = (*OpenAIProvider)(nil)
