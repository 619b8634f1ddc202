package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"career-bot/pkg/llm"

	"github.com/tidwall/gjson"
)

const (
	DefaultAPIURL  = "https://openrouter.ai/api/v1/chat/completions"
	DefaultTimeout = 60 * time.Second
)

type OpenRouterProvider struct {
	APIURL    string
	APIKey    string
	ModelName string
	// Referer and Title are OpenRouter's optional app attribution headers.
	Referer string
	Title   string
	Client  *http.Client
}

// Ensure OpenRouterProvider implements LLMProvider
var _ llm.LLMProvider = &OpenRouterProvider{}

func NewOpenRouterProvider(apiURL, apiKey, modelName string, timeout time.Duration) *OpenRouterProvider {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &OpenRouterProvider{
		APIURL:    apiURL,
		APIKey:    apiKey,
		ModelName: modelName,
		Client: &http.Client{
			Timeout: timeout,
		},
	}
}

// --- Request structs (Internal to this package) ---

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []llm.Message `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

// --- Interface Implementation ---

func (p *OpenRouterProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	options := &llm.Options{}
	for _, opt := range opts {
		opt(options)
	}

	model := p.ModelName
	if options.Model != "" {
		model = options.Model
	}

	reqPayload := chatRequest{
		Model:     model,
		Messages:  history,
		MaxTokens: options.MaxTokens,
	}
	if options.Temperature > 0 {
		reqPayload.Temperature = &options.Temperature
	}

	payloadBytes, err := json.Marshal(reqPayload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.APIURL, bytes.NewBuffer(payloadBytes))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.APIKey)
	req.Header.Set("Content-Type", "application/json")
	if p.Referer != "" {
		req.Header.Set("HTTP-Referer", p.Referer)
	}
	if p.Title != "" {
		req.Header.Set("X-Title", p.Title)
	}

	// Transport errors are returned unwrapped-by-type (*url.Error) so the
	// caller can tell timeouts from connection failures.
	resp, err := p.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &llm.StatusError{StatusCode: resp.StatusCode, Body: string(bodyBytes)}
	}

	content := gjson.GetBytes(bodyBytes, "choices.0.message.content")
	if !content.Exists() || content.Type != gjson.String {
		return "", fmt.Errorf("%w: %s", llm.ErrMalformedResponse, truncate(string(bodyBytes), 512))
	}

	return content.String(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
