package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
)

// Message represents a chat message.
type Message struct {
	Role    string // system, user, assistant
	Content string
}

// LLMCallStats represents statistics for a single completion call.
type LLMCallStats struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`

	// CacheReadTokens is the number of prompt tokens served from the provider cache.
	CacheReadTokens int `json:"cache_read_tokens,omitempty"`

	TotalDurationMs int64 `json:"total_duration_ms"`
}

// Params are the per-call completion parameters.
type Params struct {
	Model       string // empty means the service default
	MaxTokens   int
	Temperature float32
	N           int
}

// DefaultParams returns the parameters used for summaries and follow-up answers.
func DefaultParams() Params {
	return Params{
		MaxTokens:   2048,
		Temperature: 0.7,
		N:           1,
	}
}

// Provider is the completion capability: one prompt in, one text out.
type Provider interface {
	Complete(ctx context.Context, prompt string, params Params) (string, error)
}

// Service is the LLM service interface.
type Service interface {
	Provider

	// Chat performs a synchronous chat completion. Returns content, statistics, and error.
	Chat(ctx context.Context, messages []Message, params Params) (string, *LLMCallStats, error)

	// Warmup sends a lightweight ping request to establish and warm up the LLM connection.
	Warmup(ctx context.Context)
}

// CallRecorder observes finished completion calls.
type CallRecorder interface {
	RecordLLMCall(provider, model string, stats *LLMCallStats, duration time.Duration, err error)
}

// ProviderError is returned when the completion backend fails or returns nothing usable.
type ProviderError struct {
	Provider   string
	Model      string
	StatusCode int // 0 when no HTTP response was received
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("llm provider %s (%s): status %d: %v", e.Provider, e.Model, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("llm provider %s (%s): %v", e.Provider, e.Model, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// ErrEmptyResponse is wrapped in a ProviderError when the backend returns no choices.
var ErrEmptyResponse = errors.New("empty response from LLM")

// Config represents LLM service configuration.
type Config struct {
	Provider string // openai, deepseek, openrouter, ollama or any OpenAI-compatible name
	Model    string // gpt-4-turbo-preview, deepseek-chat, ...
	APIKey   string
	BaseURL  string
	Timeout  int // Request timeout in seconds (default: 120)
	Recorder CallRecorder
}

var defaultBaseURLs = map[string]string{
	"deepseek":    "https://api.deepseek.com",
	"siliconflow": "https://api.siliconflow.cn/v1",
	"openrouter":  "https://openrouter.ai/api/v1",
	"ollama":      "http://localhost:11434/v1",
}

type service struct {
	client   *openai.Client
	model    string
	provider string
	timeout  int
	recorder CallRecorder
}

// NewService creates a new LLM Service.
func NewService(cfg *Config) (Service, error) {
	if cfg == nil {
		return nil, errors.New("llm config is nil")
	}
	if cfg.Provider == "" {
		return nil, errors.New("llm provider is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.HTTPClient = newHTTPClient()

	switch baseURL, known := defaultBaseURLs[cfg.Provider]; {
	case cfg.BaseURL != "":
		clientConfig.BaseURL = cfg.BaseURL
	case known:
		clientConfig.BaseURL = baseURL
	case cfg.Provider != "openai":
		slog.Info("Using generic OpenAI-compatible provider", "provider", cfg.Provider)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120
	}

	return &service{
		client:   openai.NewClientWithConfig(clientConfig),
		model:    cfg.Model,
		provider: cfg.Provider,
		timeout:  timeout,
		recorder: cfg.Recorder,
	}, nil
}

// Complete sends prompt as a single user message.
func (s *service) Complete(ctx context.Context, prompt string, params Params) (string, error) {
	content, _, err := s.Chat(ctx, []Message{UserMessage(prompt)}, params)
	return content, err
}

func (s *service) Chat(ctx context.Context, messages []Message, params Params) (string, *LLMCallStats, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(s.timeout)*time.Second)
	defer cancel()

	model := params.Model
	if model == "" {
		model = s.model
	}

	slog.Debug("LLM: Chat request",
		"model", model,
		"messages_count", len(messages),
		"max_tokens", params.MaxTokens,
	)

	startTime := time.Now()

	req := openai.ChatCompletionRequest{
		Model:       model,
		MaxTokens:   params.MaxTokens,
		Temperature: params.Temperature,
		N:           params.N,
		Messages:    convertMessages(messages),
	}

	resp, err := s.client.CreateChatCompletion(ctx, req)
	totalDuration := time.Since(startTime)
	if err != nil {
		slog.Error("LLM: Chat request failed", "provider", s.provider, "model", model, "error", err)
		perr := s.providerError(model, err)
		s.record(model, nil, totalDuration, perr)
		return "", nil, perr
	}

	if len(resp.Choices) == 0 {
		slog.Warn("LLM: Empty response from LLM", "provider", s.provider, "model", model)
		perr := &ProviderError{Provider: s.provider, Model: model, Err: ErrEmptyResponse}
		s.record(model, nil, totalDuration, perr)
		return "", nil, perr
	}

	stats := &LLMCallStats{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
		TotalDurationMs:  totalDuration.Milliseconds(),
	}
	if resp.Usage.PromptTokensDetails != nil && resp.Usage.PromptTokensDetails.CachedTokens > 0 {
		stats.CacheReadTokens = resp.Usage.PromptTokensDetails.CachedTokens
	}

	slog.Debug("LLM: Chat response received",
		"content_length", len(resp.Choices[0].Message.Content),
		"total_tokens", stats.TotalTokens,
		"duration_ms", totalDuration.Milliseconds(),
	)

	s.record(model, stats, totalDuration, nil)
	return resp.Choices[0].Message.Content, stats, nil
}

func (s *service) Warmup(ctx context.Context) {
	warmupCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	slog.Info("LLM: starting connection warmup",
		"provider", s.provider,
		"model", s.model,
	)

	startTime := time.Now()

	req := openai.ChatCompletionRequest{
		Model:     s.model,
		MaxTokens: 1,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: "Hi"},
		},
	}

	_, err := s.client.CreateChatCompletion(warmupCtx, req)

	duration := time.Since(startTime)

	if err != nil {
		slog.Warn("LLM: warmup ping failed (service will still work, first request may be slower)",
			"provider", s.provider,
			"model", s.model,
			"error", err,
			"duration_ms", duration.Milliseconds(),
		)
		return
	}

	slog.Info("LLM: connection warmed up successfully",
		"provider", s.provider,
		"model", s.model,
		"duration_ms", duration.Milliseconds(),
	)
}

func (s *service) providerError(model string, err error) *ProviderError {
	perr := &ProviderError{Provider: s.provider, Model: model, Err: err}

	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		perr.StatusCode = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		perr.StatusCode = reqErr.HTTPStatusCode
	}
	return perr
}

func (s *service) record(model string, stats *LLMCallStats, d time.Duration, err error) {
	if s.recorder != nil {
		s.recorder.RecordLLMCall(s.provider, model, stats, d, err)
	}
}

func convertMessages(messages []Message) []openai.ChatCompletionMessage {
	llmMessages := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		role := openai.ChatMessageRoleUser
		switch m.Role {
		case "system":
			role = openai.ChatMessageRoleSystem
		case "assistant":
			role = openai.ChatMessageRoleAssistant
		}
		llmMessages[i] = openai.ChatCompletionMessage{Role: role, Content: m.Content}
	}
	return llmMessages
}

func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 180 * time.Second,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}

// UserMessage builds a user message.
func UserMessage(content string) Message {
	return Message{Role: "user", Content: content}
}
