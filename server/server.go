// Package server exposes the bot's HTTP surface: health, metrics and the Telegram webhook.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/hrygo/summy/internal/profile"
	"github.com/hrygo/summy/plugin/chat_apps"
	"github.com/hrygo/summy/plugin/chat_apps/channels"
)

// WebhookPath is where Telegram posts updates in webhook mode.
const WebhookPath = "/telegram/webhook"

// Webhook decodes pushed updates.
type Webhook interface {
	VerifyRequest(r *http.Request) bool
	HandleWebhook(ctx context.Context, r *http.Request) (*chat_apps.IncomingMessage, error)
}

// Options configures the routes a Server mounts.
type Options struct {
	// Metrics serves /metrics when set.
	Metrics http.Handler
	// Webhook and Handler enable WebhookPath.
	Webhook Webhook
	Handler channels.Handler
	// Healthy backs /healthz; nil means always healthy.
	Healthy func(ctx context.Context) error
}

type Server struct {
	Profile *profile.Profile

	echoServer *echo.Echo
	opts       Options

	// runCtx outlives individual webhook requests; handlers run on it.
	runCtx   context.Context
	inflight sync.WaitGroup
}

func NewServer(ctx context.Context, profile *profile.Profile, opts Options) *Server {
	s := &Server{
		Profile: profile,
		opts:    opts,
		runCtx:  context.WithoutCancel(ctx),
	}

	echoServer := echo.New()
	echoServer.HideBanner = true
	echoServer.HidePort = true
	echoServer.Use(middleware.Recover())
	echoServer.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{"method", v.Method, "uri", v.URI, "status", v.Status, "latency_ms", v.Latency.Milliseconds()}
			if v.Error != nil {
				slog.Warn("http: request failed", append(attrs, "error", v.Error)...)
				return nil
			}
			slog.Debug("http: request", attrs...)
			return nil
		},
	}))
	s.echoServer = echoServer

	echoServer.GET("/healthz", s.healthz)
	if opts.Metrics != nil {
		echoServer.GET("/metrics", echo.WrapHandler(opts.Metrics))
	}
	if opts.Webhook != nil && opts.Handler != nil {
		echoServer.POST(WebhookPath, s.telegramWebhook)
	}

	return s
}

func (s *Server) healthz(c echo.Context) error {
	if s.opts.Healthy != nil {
		if err := s.opts.Healthy(c.Request().Context()); err != nil {
			slog.Warn("health check failed", "error", err)
			return c.String(http.StatusServiceUnavailable, "Service unavailable.")
		}
	}
	return c.String(http.StatusOK, "Service ready.")
}

// telegramWebhook acknowledges the update immediately and handles it in the background.
func (s *Server) telegramWebhook(c echo.Context) error {
	r := c.Request()
	if !s.opts.Webhook.VerifyRequest(r) {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid webhook request")
	}

	msg, err := s.opts.Webhook.HandleWebhook(r.Context(), r)
	switch {
	case errors.Is(err, channels.ErrUnsupportedUpdate):
		// Telegram redelivers anything that is not acknowledged.
		return c.NoContent(http.StatusOK)
	case err != nil:
		return echo.NewHTTPError(http.StatusBadRequest, "failed to parse update").SetInternal(err)
	}

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		s.opts.Handler(s.runCtx, msg)
	}()
	return c.NoContent(http.StatusOK)
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.echoServer
}

func (s *Server) Start(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", address, err)
	}

	go func() {
		if err := s.echoServer.Server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("failed to start echo server", "error", err)
		}
	}()
	slog.Info("http server listening", "address", listener.Addr().String())
	return nil
}

// Shutdown stops accepting requests and waits for webhook handlers to finish.
func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	slog.Info("server shutting down")
	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}

	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		slog.Warn("server shutdown timed out with handlers still running")
	}
	slog.Info("server stopped properly")
}
