package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hrygo/summy/ai/extract"
	"github.com/hrygo/summy/ai/observability/logging"
	"github.com/hrygo/summy/plugin/chat_apps"
	"github.com/hrygo/summy/store"
)

const pdfMimeType = "application/pdf"

// setConfig handles "/set <eng|heb> <words> [max chars]". A non-numeric third
// argument selects the platform ceiling.
func (b *Bot) setConfig(ctx context.Context, args string) (response, error) {
	fields := strings.Fields(args)
	if len(fields) < 2 || len(fields) > 3 {
		return plain(msgSetUsage), nil
	}
	lang := store.Language(fields[0])
	if lang != store.LanguageEnglish && lang != store.LanguageHebrew {
		return plain(msgSetUsage), nil
	}
	if !isDigits(fields[1]) {
		return plain(msgSetUsage), nil
	}
	words, err := strconv.Atoi(fields[1])
	if err != nil {
		return plain(msgSetUsage), nil
	}

	charLimit := store.MaxMessageCharLimit
	if len(fields) == 3 && isDigits(fields[2]) {
		if n, err := strconv.Atoi(fields[2]); err == nil {
			charLimit = n
		}
	}

	ok, err := b.store.UpdateBotConfig(ctx, &store.UpdateBotConfig{
		Language:         lang,
		WordLimit:        words,
		MessageCharLimit: charLimit,
	})
	if err != nil {
		return response{}, err
	}
	if !ok {
		return plain(msgSetFailed), nil
	}
	logging.FromContext(ctx).Info("bot: configuration updated",
		"language", lang,
		"word_limit", words,
		"message_char_limit", charLimit,
	)
	return plain(msgSetOK), nil
}

func (b *Bot) getConfig(ctx context.Context) (response, error) {
	cfg, err := b.store.ReadOrInitializeBotConfig(ctx)
	if err != nil {
		logging.FromContext(ctx).Error("bot: failed to read configuration", "error", err)
		return plain(msgGetFailed), nil
	}
	return plain(fmt.Sprintf("language: %s\nsummary words limit: %d\ntelegram_msg_limit: %d\n",
		cfg.Language, cfg.WordLimit, cfg.MessageCharLimit)), nil
}

func (b *Bot) summarizeArticle(ctx context.Context, args string) (response, error) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return plain(msgSummUsage), nil
	}
	if strings.EqualFold(fields[0], "pdf") {
		return plain(msgUploadPDF), nil
	}

	url := fields[0]
	start := time.Now()
	content, err := b.extractor.ExtractFromURL(ctx, url)
	b.recordExtraction("url", content, start, err)
	if err != nil {
		return response{}, err
	}
	logging.FromContext(ctx).Info("bot: extracted page",
		"url", url,
		"kind", content.Kind,
		"chars", len(content.Text),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return b.summarizeAndRemember(ctx, content)
}

func (b *Bot) summarizePDF(ctx context.Context, msg *chat_apps.IncomingMessage) (response, error) {
	if msg.FileID == "" || msg.MimeType != pdfMimeType {
		return plain(msgInvalidPDF), nil
	}

	data, detected, err := b.channel.DownloadMedia(ctx, msg.FileID)
	if err != nil {
		return response{}, err
	}
	logging.FromContext(ctx).Info("bot: downloaded document",
		"file_name", msg.FileName,
		"size", len(data),
		"detected_mime", detected,
	)

	start := time.Now()
	content, err := b.extractor.ExtractFromPDF(ctx, data)
	b.recordExtraction("pdf", content, start, err)
	if err != nil {
		return response{}, err
	}
	return b.summarizeAndRemember(ctx, content)
}

// summarizeAndRemember summarizes content with the current configuration and
// keeps its raw text for a later /resp. Failing to keep it does not fail the reply.
func (b *Bot) summarizeAndRemember(ctx context.Context, content *extract.ExtractedContent) (response, error) {
	cfg, err := b.store.ReadOrInitializeBotConfig(ctx)
	if err != nil {
		return response{}, err
	}

	text, err := b.summarizer.Summarize(ctx, content, cfg)
	if err != nil {
		return response{}, err
	}

	if err := b.store.StoreLastArticle(ctx, content.Text); err != nil {
		logging.FromContext(ctx).Error("bot: failed to store last article", "error", err)
	}
	return formatted(text), nil
}

func (b *Bot) respond(ctx context.Context, args string) (response, error) {
	question := strings.Join(strings.Fields(args), " ")
	if question == "" {
		return plain(msgRespUsage), nil
	}

	cfg, err := b.store.ReadOrInitializeBotConfig(ctx)
	if err != nil {
		return response{}, err
	}

	last, err := b.store.GetLastArticle(ctx)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			logging.FromContext(ctx).Error("bot: failed to read last article", "error", err)
		}
		return plain(msgNoLastArticle), nil
	}

	answer, err := b.summarizer.Respond(ctx, last, question, cfg)
	if err != nil {
		return response{}, err
	}
	return formatted(answer), nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
