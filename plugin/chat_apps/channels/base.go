// Package channels provides the ChatChannel interface for chat platform integrations.
package channels

import (
	"context"

	"github.com/hrygo/summy/plugin/chat_apps"
)

// Handler processes one incoming message.
type Handler func(ctx context.Context, msg *chat_apps.IncomingMessage)

// ChatChannel defines the interface for a chat platform integration.
type ChatChannel interface {
	// Name returns the platform name.
	Name() chat_apps.Platform

	// ParseMessage parses a raw update payload into an IncomingMessage.
	ParseMessage(ctx context.Context, payload []byte) (*chat_apps.IncomingMessage, error)

	// Listen receives updates until ctx is done and calls handler for each
	// message, one at a time.
	Listen(ctx context.Context, handler Handler) error

	// SendMessage sends a single text message to the chat platform.
	SendMessage(ctx context.Context, msg *chat_apps.OutgoingMessage) error

	// DownloadMedia downloads a file referenced by an incoming message.
	// Returns the media data, MIME type, and an error if any.
	DownloadMedia(ctx context.Context, fileID string) ([]byte, string, error)

	// Close releases any open connections.
	Close() error
}

// Errors
var (
	ErrInvalidPayload      = &ChannelError{Code: "INVALID_PAYLOAD", Message: "could not parse update payload"}
	ErrUnsupportedUpdate   = &ChannelError{Code: "UNSUPPORTED_UPDATE", Message: "update carries no user message"}
	ErrMediaDownloadFailed = &ChannelError{Code: "MEDIA_FAILED", Message: "failed to download media"}
	ErrMediaTooLarge       = &ChannelError{Code: "MEDIA_TOO_LARGE", Message: "media exceeds size limit"}
	ErrSendFailed          = &ChannelError{Code: "SEND_FAILED", Message: "failed to send message"}
)

// ChannelError represents an error in channel operations.
type ChannelError struct {
	Code    string
	Message string
	Err     error
}

func (e *ChannelError) Error() string {
	if e.Err != nil {
		return e.Code + ": " + e.Message + ": " + e.Err.Error()
	}
	return e.Code + ": " + e.Message
}

func (e *ChannelError) Unwrap() error {
	return e.Err
}

// Is matches channel errors by code so wrapped instances compare equal to the sentinels.
func (e *ChannelError) Is(target error) bool {
	t, ok := target.(*ChannelError)
	return ok && t.Code == e.Code
}

// Wrap returns a copy of e carrying err as its cause.
func (e *ChannelError) Wrap(err error) *ChannelError {
	return &ChannelError{Code: e.Code, Message: e.Message, Err: err}
}

// IsRetryable returns true if the error is transient and the operation can be retried.
func (e *ChannelError) IsRetryable() bool {
	switch e.Code {
	case "INVALID_PAYLOAD", "UNSUPPORTED_UPDATE", "MEDIA_TOO_LARGE":
		return false
	default:
		return true
	}
}
