// Package logging builds the process logger and carries a per-interaction
// logger through context.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"
)

// Options configures the process logger.
type Options struct {
	// Mode "prod" selects JSON output; anything else selects text.
	Mode  string
	Level slog.Level
	// File, when set, receives a copy of every record.
	File string
	// Output defaults to os.Stderr.
	Output io.Writer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New builds a logger according to opts. The returned closer releases the log file, if any.
func New(opts Options) (*slog.Logger, io.Closer, error) {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	var closer io.Closer = nopCloser{}
	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
		if err != nil {
			return nil, nil, err
		}
		out = io.MultiWriter(out, f)
		closer = f
	}

	handlerOpts := &slog.HandlerOptions{Level: opts.Level}
	var handler slog.Handler
	if opts.Mode == "prod" {
		handler = slog.NewJSONHandler(out, handlerOpts)
	} else {
		handler = slog.NewTextHandler(out, handlerOpts)
	}
	return slog.New(handler), closer, nil
}

type loggerKey struct{}

// FromContext extracts the logger from context, falling back to slog.Default.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

// ToContext adds the logger to context.
func ToContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// NewRequestID returns a fresh identifier for one interaction.
func NewRequestID() string {
	return uuid.NewString()
}

// WithInteraction derives a logger tagged with a new request id, the command
// and the user, and stores it in the returned context.
func WithInteraction(ctx context.Context, command string, userID int64) (context.Context, *slog.Logger) {
	l := FromContext(ctx).With(
		"request_id", NewRequestID(),
		"command", command,
		"user_id", userID,
	)
	return ToContext(ctx, l), l
}
