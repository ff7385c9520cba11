package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/summy/internal/profile"
	"github.com/hrygo/summy/plugin/chat_apps"
	"github.com/hrygo/summy/plugin/chat_apps/channels"
	"github.com/hrygo/summy/plugin/chat_apps/channels/telegram"
)

type fakeWebhook struct {
	msg *chat_apps.IncomingMessage
	err error
}

func (f *fakeWebhook) VerifyRequest(r *http.Request) bool {
	return r.Header.Get("Content-Type") == "application/json"
}

func (f *fakeWebhook) HandleWebhook(_ context.Context, r *http.Request) (*chat_apps.IncomingMessage, error) {
	_, _ = io.Copy(io.Discard, r.Body)
	return f.msg, f.err
}

func serve(s *Server, method, path, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(`{}`))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	s := NewServer(context.Background(), &profile.Profile{}, Options{})
	rec := serve(s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Service ready.", rec.Body.String())

	s = NewServer(context.Background(), &profile.Profile{}, Options{
		Healthy: func(context.Context) error { return errors.New("db down") },
	})
	rec = serve(s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsRoute(t *testing.T) {
	s := NewServer(context.Background(), &profile.Profile{}, Options{})
	assert.Equal(t, http.StatusNotFound, serve(s, http.MethodGet, "/metrics", "").Code)

	s = NewServer(context.Background(), &profile.Profile{}, Options{
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("summy_up 1\n"))
		}),
	})
	rec := serve(s, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "summy_up 1")
}

func TestTelegramWebhook(t *testing.T) {
	handled := make(chan *chat_apps.IncomingMessage, 1)
	msg := &chat_apps.IncomingMessage{Command: "get", UserID: 1}
	s := NewServer(context.Background(), &profile.Profile{}, Options{
		Webhook: &fakeWebhook{msg: msg},
		Handler: func(_ context.Context, m *chat_apps.IncomingMessage) { handled <- m },
	})

	rec := serve(s, http.MethodPost, WebhookPath, "application/json")
	assert.Equal(t, http.StatusOK, rec.Code)

	select {
	case got := <-handled:
		assert.Equal(t, msg, got)
	case <-time.After(2 * time.Second):
		t.Fatal("handler was not called")
	}

	s.Shutdown(context.Background())
}

func TestTelegramWebhook_Rejections(t *testing.T) {
	called := false
	handler := func(context.Context, *chat_apps.IncomingMessage) { called = true }

	s := NewServer(context.Background(), &profile.Profile{}, Options{
		Webhook: &fakeWebhook{},
		Handler: handler,
	})
	assert.Equal(t, http.StatusBadRequest, serve(s, http.MethodPost, WebhookPath, "text/plain").Code)

	s = NewServer(context.Background(), &profile.Profile{}, Options{
		Webhook: &fakeWebhook{err: channels.ErrInvalidPayload.Wrap(errors.New("bad json"))},
		Handler: handler,
	})
	assert.Equal(t, http.StatusBadRequest, serve(s, http.MethodPost, WebhookPath, "application/json").Code)

	s = NewServer(context.Background(), &profile.Profile{}, Options{
		Webhook: &fakeWebhook{err: channels.ErrUnsupportedUpdate},
		Handler: handler,
	})
	assert.Equal(t, http.StatusOK, serve(s, http.MethodPost, WebhookPath, "application/json").Code)

	s.Shutdown(context.Background())
	require.False(t, called)
}

func TestTelegramWebhook_SecretToken(t *testing.T) {
	handled := make(chan *chat_apps.IncomingMessage, 1)
	s := NewServer(context.Background(), &profile.Profile{}, Options{
		Webhook: telegram.NewWebhookHandler(&telegram.TelegramChannel{}, "s3cret"),
		Handler: func(_ context.Context, m *chat_apps.IncomingMessage) { handled <- m },
	})
	defer s.Shutdown(context.Background())

	update := `{"update_id":9,"message":{"message_id":1,"date":0,"from":{"id":8,"is_bot":false,"first_name":"C"},"chat":{"id":8,"type":"private"},"text":"/get","entities":[{"type":"bot_command","offset":0,"length":4}]}}`
	post := func(secret string) int {
		req := httptest.NewRequest(http.MethodPost, WebhookPath, strings.NewReader(update))
		req.Header.Set("Content-Type", "application/json")
		if secret != "" {
			req.Header.Set(telegram.SecretTokenHeader, secret)
		}
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusBadRequest, post(""))
	assert.Equal(t, http.StatusBadRequest, post("forged"))
	assert.Empty(t, handled)

	assert.Equal(t, http.StatusOK, post("s3cret"))
	select {
	case got := <-handled:
		assert.Equal(t, "get", got.Command)
	case <-time.After(2 * time.Second):
		t.Fatal("handler was not called")
	}
}

func TestWebhookRouteDisabledWithoutHandler(t *testing.T) {
	s := NewServer(context.Background(), &profile.Profile{}, Options{Webhook: &fakeWebhook{}})
	assert.NotEqual(t, http.StatusOK, serve(s, http.MethodPost, WebhookPath, "application/json").Code)
}
