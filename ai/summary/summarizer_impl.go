package summary

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/hrygo/summy/ai/core/llm"
	"github.com/hrygo/summy/ai/extract"
	"github.com/hrygo/summy/ai/format"
	"github.com/hrygo/summy/store"
)

// llmSummarizer issues exactly one completion per request; failures are not retried.
type llmSummarizer struct {
	provider llm.Provider
	params   llm.Params
}

// NewSummarizer creates a summarizer backed by provider.
func NewSummarizer(provider llm.Provider) Summarizer {
	return &llmSummarizer{
		provider: provider,
		params:   llm.DefaultParams(),
	}
}

func (s *llmSummarizer) Summarize(ctx context.Context, content *extract.ExtractedContent, cfg *store.BotConfig) (string, error) {
	prompt := BuildSummaryPrompt(content, cfg)
	return s.complete(ctx, "summarize", prompt, cfg)
}

func (s *llmSummarizer) Respond(ctx context.Context, lastArticle, question string, cfg *store.BotConfig) (string, error) {
	prompt := BuildRespondPrompt(lastArticle, question)
	return s.complete(ctx, "respond", prompt, cfg)
}

func (s *llmSummarizer) complete(ctx context.Context, op, prompt string, cfg *store.BotConfig) (string, error) {
	start := time.Now()
	raw, err := s.provider.Complete(ctx, prompt, s.params)
	if err != nil {
		slog.Error("summary: completion failed", "op", op, "prompt_chars", len(prompt), "error", err)
		return "", &SummarizationError{Op: op, Err: err}
	}

	reply := format.Format(strings.TrimSpace(raw), cfg.MessageCharLimit)
	slog.Debug("summary: completion formatted",
		"op", op,
		"raw_chars", len(raw),
		"reply_chars", len(reply),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return reply, nil
}
