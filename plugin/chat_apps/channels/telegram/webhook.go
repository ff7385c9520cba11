package telegram

import (
	"context"
	"crypto/subtle"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"github.com/hrygo/summy/plugin/chat_apps"
	"github.com/hrygo/summy/plugin/chat_apps/channels"
)

const (
	maxUpdateBytes = 1 << 20

	// SecretTokenHeader carries the secret_token given to setWebhook on every update.
	SecretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"
)

// WebhookHandler handles incoming Telegram webhooks.
type WebhookHandler struct {
	channel     *TelegramChannel
	secretToken string
}

// NewWebhookHandler creates a new webhook handler. An empty secretToken is
// replaced by a random one, which must then be registered with SetWebhook.
func NewWebhookHandler(channel *TelegramChannel, secretToken string) *WebhookHandler {
	if secretToken == "" {
		// Telegram accepts only A-Z, a-z, 0-9, _ and -.
		secretToken = strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	return &WebhookHandler{
		channel:     channel,
		secretToken: secretToken,
	}
}

// HandleWebhook decodes the update carried by r.
func (h *WebhookHandler) HandleWebhook(ctx context.Context, r *http.Request) (*chat_apps.IncomingMessage, error) {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxUpdateBytes))
	if err != nil {
		return nil, channels.ErrInvalidPayload.Wrap(err)
	}
	return h.channel.ParseMessage(ctx, body)
}

// SetWebhook registers webhookURL and the handler's secret token with Telegram.
// Polling stops receiving updates once set.
func (h *WebhookHandler) SetWebhook(_ context.Context, webhookURL string, dropPendingUpdates bool) error {
	parsedURL, err := url.Parse(webhookURL)
	if err != nil {
		return err
	}
	// tgbotapi's WebhookConfig has no secret_token field.
	params := tgbotapi.Params{}
	params.AddNonEmpty("url", parsedURL.String())
	params.AddNonEmpty("secret_token", h.secretToken)
	params.AddBool("drop_pending_updates", dropPendingUpdates)
	_, err = h.channel.bot.MakeRequest("setWebhook", params)
	if err == nil {
		slog.Info("telegram: webhook registered", "url", parsedURL.Redacted())
	}
	return err
}

// DeleteWebhook removes the webhook for the Telegram bot.
func (h *WebhookHandler) DeleteWebhook(_ context.Context) error {
	_, err := h.channel.bot.Request(tgbotapi.DeleteWebhookConfig{
		DropPendingUpdates: false,
	})
	return err
}

// VerifyRequest reports whether r is a POSTed JSON update carrying the
// registered secret token.
func (h *WebhookHandler) VerifyRequest(r *http.Request) bool {
	if r.Method != http.MethodPost {
		slog.Warn("telegram webhook: invalid method", "method", r.Method, "remote_addr", r.RemoteAddr)
		return false
	}

	token := r.Header.Get(SecretTokenHeader)
	if h.secretToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(h.secretToken)) != 1 {
		slog.Warn("telegram webhook: secret token mismatch", "remote_addr", r.RemoteAddr)
		return false
	}

	ct := r.Header.Get("Content-Type")
	if ct != "" && !strings.HasPrefix(ct, "application/json") {
		slog.Warn("telegram webhook: invalid content type", "content_type", ct, "remote_addr", r.RemoteAddr)
		return false
	}
	return true
}
