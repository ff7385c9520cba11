package summary

import (
	"context"
	"fmt"

	"github.com/hrygo/summy/ai/extract"
	"github.com/hrygo/summy/store"
)

// Summarizer turns extracted text into a chat-ready reply.
type Summarizer interface {
	// Summarize produces a summary of content honoring the language and length settings of cfg.
	Summarize(ctx context.Context, content *extract.ExtractedContent, cfg *store.BotConfig) (string, error)

	// Respond answers a follow-up question about the last summarized article.
	Respond(ctx context.Context, lastArticle, question string, cfg *store.BotConfig) (string, error)
}

// SummarizationError wraps a completion failure.
type SummarizationError struct {
	Op  string // "summarize" or "respond"
	Err error
}

func (e *SummarizationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *SummarizationError) Unwrap() error {
	return e.Err
}
