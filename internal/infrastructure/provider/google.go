package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nshelia/worldcommits/internal/application/ports"
)

const (
	geminiDefaultBaseURL = "https://generativelanguage.googleapis.com"
	geminiDefaultTimeout = 20 * time.Second
)

// GeminiProvider generates copy through the Google Generative Language API.
type GeminiProvider struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

type GeminiOption func(*GeminiProvider)

func WithGeminiHTTPClient(client *http.Client) GeminiOption {
	return func(p *GeminiProvider) { p.client = client }
}

func WithGeminiBaseURL(baseURL string) GeminiOption {
	return func(p *GeminiProvider) { p.baseURL = baseURL }
}

func NewGeminiProvider(apiKey, model string, opts ...GeminiOption) *GeminiProvider {
	p := &GeminiProvider{
		apiKey:  apiKey,
		model:   model,
		baseURL: geminiDefaultBaseURL,
		client:  &http.Client{Timeout: geminiDefaultTimeout},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *GeminiProvider) Name() string { return "google" }

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiGenerateRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiGenerateResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func (p *GeminiProvider) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(geminiGenerateRequest{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: rewriteSystemPrompt + "\n\n" + prompt}}},
		},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     rewriteTemperature,
			MaxOutputTokens: rewriteMaxTokens,
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		p.baseURL, p.model, url.QueryEscape(p.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("gemini status %d: %s", resp.StatusCode, snippet)
	}

	var decoded geminiGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini returned no candidates")
	}
	// Long responses arrive split across parts; join them all.
	texts := make([]string, 0, len(decoded.Candidates[0].Content.Parts))
	for _, part := range decoded.Candidates[0].Content.Parts {
		texts = append(texts, part.Text)
	}
	return strings.Join(texts, " "), nil
}

// Ensure GeminiProvider implements ports.CopyProvider.
var _ ports.CopyProvider = (*GeminiProvider)(nil)
