// Package bot routes chat commands to the extraction and summarization pipeline.
package bot

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/hrygo/summy/ai/extract"
	"github.com/hrygo/summy/ai/observability/logging"
	"github.com/hrygo/summy/ai/summary"
	"github.com/hrygo/summy/internal/profile"
	"github.com/hrygo/summy/plugin/chat_apps"
	"github.com/hrygo/summy/store"
)

// ConfigStore is the persisted state the bot reads and writes.
type ConfigStore interface {
	ReadOrInitializeBotConfig(ctx context.Context) (*store.BotConfig, error)
	UpdateBotConfig(ctx context.Context, update *store.UpdateBotConfig) (bool, error)
	StoreLastArticle(ctx context.Context, text string) error
	GetLastArticle(ctx context.Context) (string, error)
}

// Channel delivers replies and fetches uploaded files.
type Channel interface {
	SendMessage(ctx context.Context, msg *chat_apps.OutgoingMessage) error
	DownloadMedia(ctx context.Context, fileID string) ([]byte, string, error)
}

// Recorder observes command and extraction outcomes.
type Recorder interface {
	RecordCommand(command string, latency time.Duration, success bool)
	RecordExtraction(source, kind string, latency time.Duration, success bool)
}

// Config wires the bot to its collaborators.
type Config struct {
	Profile    *profile.Profile
	Store      ConfigStore
	Extractor  extract.Extractor
	Summarizer summary.Summarizer
	Channel    Channel
	Recorder   Recorder // optional
	ParseMode  string

	// Shutdown is called after an authorized /shut has been acknowledged.
	Shutdown func()
}

// Bot handles one incoming message at a time.
type Bot struct {
	profile    *profile.Profile
	store      ConfigStore
	extractor  extract.Extractor
	summarizer summary.Summarizer
	channel    Channel
	recorder   Recorder
	parseMode  string
	shutdown   func()

	// mu keeps a single request in flight when updates arrive by webhook.
	mu sync.Mutex
}

// New creates a Bot.
func New(cfg Config) *Bot {
	return &Bot{
		profile:    cfg.Profile,
		store:      cfg.Store,
		extractor:  cfg.Extractor,
		summarizer: cfg.Summarizer,
		channel:    cfg.Channel,
		recorder:   cfg.Recorder,
		parseMode:  cfg.ParseMode,
		shutdown:   cfg.Shutdown,
	}
}

// Handle processes msg and sends the reply. It matches channels.Handler.
func (b *Bot) Handle(ctx context.Context, msg *chat_apps.IncomingMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()

	command := commandName(msg)
	ctx, logger := logging.WithInteraction(ctx, command, msg.UserID)
	start := time.Now()
	success := false

	defer func() {
		if r := recover(); r != nil {
			logger.Error("bot: panic in handler",
				"panic", r,
				"stack", string(debug.Stack()),
			)
			b.reply(ctx, msg, plain(msgInternalFailure))
		}
		if b.recorder != nil {
			b.recorder.RecordCommand(command, time.Since(start), success)
		}
	}()

	logger.Info("bot: handling message", "chat_id", msg.PlatformChatID, "type", msg.Type.String())

	if !b.authorized(command, msg.UserID) {
		logger.Warn("bot: unauthorized user")
		b.reply(ctx, msg, plain(msgUnauthorized))
		return
	}

	resp, err := b.dispatch(ctx, command, msg)
	if err != nil {
		logger.Error("bot: command failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
		resp = plain(userMessage(err))
	} else {
		success = true
	}

	b.reply(ctx, msg, resp)

	if command == "shut" && success {
		logger.Info("bot: shutdown requested")
		if b.shutdown != nil {
			b.shutdown()
		}
	}
}

// response is a reply body. Only formatted summarizer output is sent with the
// bot's parse mode.
type response struct {
	text      string
	formatted bool
}

func plain(text string) response { return response{text: text} }

func formatted(text string) response { return response{text: text, formatted: true} }

func (b *Bot) dispatch(ctx context.Context, command string, msg *chat_apps.IncomingMessage) (response, error) {
	switch command {
	case "start":
		return plain(msgWelcome), nil
	case "help":
		return plain(helpText), nil
	case "set":
		return b.setConfig(ctx, msg.CommandArgs)
	case "get":
		return b.getConfig(ctx)
	case "summ":
		return b.summarizeArticle(ctx, msg.CommandArgs)
	case "resp":
		return b.respond(ctx, msg.CommandArgs)
	case "shut":
		return plain(msgShutdown), nil
	case "document":
		return b.summarizePDF(ctx, msg)
	default:
		return plain(msgInvalidPDF), nil
	}
}

// authorized reports whether userID may run command. /start and /help are open to everyone.
func (b *Bot) authorized(command string, userID int64) bool {
	switch command {
	case "start", "help":
		return true
	}
	return b.profile != nil && b.profile.IsAuthorized(userID)
}

func (b *Bot) reply(ctx context.Context, msg *chat_apps.IncomingMessage, resp response) {
	out := &chat_apps.OutgoingMessage{
		PlatformChatID: msg.PlatformChatID,
		Content:        resp.text,
	}
	if resp.formatted {
		out.ParseMode = b.parseMode
	}
	err := b.channel.SendMessage(ctx, out)
	if err != nil {
		logging.FromContext(ctx).Error("bot: failed to send reply", "chat_id", msg.PlatformChatID, "error", err)
	}
}

func (b *Bot) recordExtraction(source string, content *extract.ExtractedContent, start time.Time, err error) {
	if b.recorder == nil {
		return
	}
	kind := "none"
	if content != nil {
		kind = string(content.Kind)
	}
	b.recorder.RecordExtraction(source, kind, time.Since(start), err == nil)
}

func commandName(msg *chat_apps.IncomingMessage) string {
	switch {
	case msg.IsCommand():
		return msg.Command
	case msg.Type == chat_apps.MessageTypeDocument:
		return "document"
	default:
		return fmt.Sprintf("message_%s", msg.Type)
	}
}
