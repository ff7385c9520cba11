// Package telegram implements the Telegram Bot channel.
package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"github.com/hrygo/summy/ai/format"
	"github.com/hrygo/summy/plugin/chat_apps"
	"github.com/hrygo/summy/plugin/chat_apps/channels"
)

const (
	MaxDownloadSizeMB = 20 // Bot API getFile limit
	DefaultParseMode  = tgbotapi.ModeHTML
	pollTimeout       = 60
)

// SendRecorder observes outgoing message deliveries.
type SendRecorder interface {
	RecordMessageSent(success bool)
}

// TelegramConfig holds configuration for the Telegram channel.
type TelegramConfig struct {
	BotToken string

	// APIEndpoint and FileEndpoint default to the public Bot API.
	APIEndpoint  string
	FileEndpoint string

	// SendRate bounds outgoing messages per second; Burst allows short spikes.
	SendRate float64
	Burst    int

	Recorder SendRecorder
}

// TelegramChannel implements ChatChannel for Telegram Bot API.
type TelegramChannel struct {
	bot      *tgbotapi.BotAPI
	config   *TelegramConfig
	client   *http.Client
	limiter  *rate.Limiter
	recorder SendRecorder
	stopOnce sync.Once
}

// NewTelegramChannel creates a new Telegram channel and verifies the token with getMe.
func NewTelegramChannel(config *TelegramConfig) (*TelegramChannel, error) {
	if config.APIEndpoint == "" {
		config.APIEndpoint = tgbotapi.APIEndpoint
	}
	if config.FileEndpoint == "" {
		config.FileEndpoint = tgbotapi.FileEndpoint
	}
	if config.SendRate <= 0 {
		config.SendRate = 1
	}
	if config.Burst <= 0 {
		config.Burst = 3
	}

	client := &http.Client{Timeout: 2 * pollTimeout * time.Second}
	bot, err := tgbotapi.NewBotAPIWithClient(config.BotToken, config.APIEndpoint, client)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	slog.Info("telegram: authorized", "username", bot.Self.UserName)

	return &TelegramChannel{
		bot:      bot,
		config:   config,
		client:   client,
		limiter:  rate.NewLimiter(rate.Limit(config.SendRate), config.Burst),
		recorder: config.Recorder,
	}, nil
}

// Name returns the platform name.
func (t *TelegramChannel) Name() chat_apps.Platform {
	return chat_apps.PlatformTelegram
}

// ParseMessage parses a JSON update into an IncomingMessage.
func (t *TelegramChannel) ParseMessage(_ context.Context, payload []byte) (*chat_apps.IncomingMessage, error) {
	var update tgbotapi.Update
	if err := json.Unmarshal(payload, &update); err != nil {
		slog.Warn("telegram: failed to parse update payload", "error", err)
		return nil, channels.ErrInvalidPayload.Wrap(err)
	}
	return convertUpdate(&update)
}

// Listen long-polls getUpdates and handles each message before reading the next.
func (t *TelegramChannel) Listen(ctx context.Context, handler channels.Handler) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeout

	updates := t.bot.GetUpdatesChan(u)
	slog.Info("telegram: polling for updates")

	for {
		select {
		case <-ctx.Done():
			t.stopPolling()
			slog.Info("telegram: stopped polling")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			msg, err := convertUpdate(&update)
			if err != nil {
				slog.Debug("telegram: skipping update", "update_id", update.UpdateID, "error", err)
				continue
			}
			handler(ctx, msg)
		}
	}
}

// SendMessage sends a text message, truncating it to the platform limit.
func (t *TelegramChannel) SendMessage(ctx context.Context, msg *chat_apps.OutgoingMessage) error {
	chatID, err := strconv.ParseInt(msg.PlatformChatID, 10, 64)
	if err != nil {
		slog.Error("telegram: invalid chat ID", "chat_id", msg.PlatformChatID, "error", err)
		return fmt.Errorf("invalid chat ID: %w", err)
	}

	if err := t.limiter.Wait(ctx); err != nil {
		return channels.ErrSendFailed.Wrap(err)
	}

	tgMsg := tgbotapi.NewMessage(chatID, format.Truncate(msg.Content, chat_apps.MessageSizeLimit))
	tgMsg.ParseMode = msg.ParseMode
	tgMsg.DisableWebPagePreview = true

	slog.Debug("telegram: sending message", "chat_id", chatID, "chars", len(tgMsg.Text))
	_, err = t.bot.Send(tgMsg)
	if t.recorder != nil {
		t.recorder.RecordMessageSent(err == nil)
	}
	if err != nil {
		slog.Error("telegram: send failed", "chat_id", chatID, "error", err)
		return channels.ErrSendFailed.Wrap(err)
	}
	return nil
}

// DownloadMedia downloads a file from Telegram.
func (t *TelegramChannel) DownloadMedia(ctx context.Context, fileID string) ([]byte, string, error) {
	file, err := t.bot.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		slog.Error("telegram: failed to get file info", "file_id", fileID, "error", err)
		return nil, "", channels.ErrMediaDownloadFailed.Wrap(err)
	}
	if file.FileSize > MaxDownloadSizeMB<<20 {
		return nil, "", channels.ErrMediaTooLarge.Wrap(fmt.Errorf("%d bytes", file.FileSize))
	}
	if file.FilePath == "" {
		return nil, "", channels.ErrMediaDownloadFailed.Wrap(fmt.Errorf("empty file path for %s", fileID))
	}

	fileURL := fmt.Sprintf(t.config.FileEndpoint, t.bot.Token, file.FilePath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		slog.Error("telegram: failed to download file", "file_id", fileID, "error", err)
		return nil, "", channels.ErrMediaDownloadFailed.Wrap(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Error("telegram: non-200 status downloading file", "status", resp.StatusCode)
		return nil, "", channels.ErrMediaDownloadFailed.Wrap(fmt.Errorf("status %d", resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxDownloadSizeMB<<20+1))
	if err != nil {
		return nil, "", channels.ErrMediaDownloadFailed.Wrap(err)
	}
	if len(data) > MaxDownloadSizeMB<<20 {
		return nil, "", channels.ErrMediaTooLarge
	}

	mimeType := http.DetectContentType(data)

	slog.Debug("telegram: downloaded media",
		"file_id", fileID,
		"size", len(data),
		"mime_type", mimeType,
	)
	return data, mimeType, nil
}

// Close stops any running poll loop.
func (t *TelegramChannel) Close() error {
	t.stopPolling()
	return nil
}

// stopPolling is safe to call more than once.
func (t *TelegramChannel) stopPolling() {
	t.stopOnce.Do(t.bot.StopReceivingUpdates)
}

func convertUpdate(update *tgbotapi.Update) (*chat_apps.IncomingMessage, error) {
	tgMsg := update.Message
	if tgMsg == nil {
		tgMsg = update.EditedMessage
	}
	if tgMsg == nil || tgMsg.From == nil || tgMsg.Chat == nil {
		return nil, channels.ErrUnsupportedUpdate
	}

	msg := &chat_apps.IncomingMessage{
		Platform:       chat_apps.PlatformTelegram,
		PlatformUserID: strconv.FormatInt(tgMsg.From.ID, 10),
		UserID:         tgMsg.From.ID,
		PlatformChatID: strconv.FormatInt(tgMsg.Chat.ID, 10),
		Content:        tgMsg.Text,
		Timestamp:      tgMsg.Time(),
		Metadata: map[string]string{
			"update_id": strconv.Itoa(update.UpdateID),
			"username":  tgMsg.From.UserName,
		},
	}

	switch {
	case tgMsg.Document != nil:
		msg.Type = chat_apps.MessageTypeDocument
		msg.Content = tgMsg.Caption
		msg.FileID = tgMsg.Document.FileID
		msg.FileName = tgMsg.Document.FileName
		msg.MimeType = tgMsg.Document.MimeType
		msg.FileSize = tgMsg.Document.FileSize
	case tgMsg.Text != "":
		msg.Type = chat_apps.MessageTypeText
		if tgMsg.IsCommand() {
			msg.Command = tgMsg.Command()
			msg.CommandArgs = tgMsg.CommandArguments()
		}
	default:
		msg.Type = chat_apps.MessageTypeOther
	}

	return msg, nil
}

// Ensure TelegramChannel implements ChatChannel
var _ channels.ChatChannel = (*TelegramChannel)(nil)
