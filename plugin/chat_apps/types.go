// Package chat_apps defines the platform-neutral message types exchanged with chat platforms.
package chat_apps

import "time"

// MessageSizeLimit is the maximum number of characters in one outgoing text message.
const MessageSizeLimit = 4096

// MessageType represents the type of message.
type MessageType int

const (
	MessageTypeText MessageType = iota
	MessageTypeDocument
	MessageTypeOther
)

// String returns the string representation of MessageType.
func (m MessageType) String() string {
	switch m {
	case MessageTypeText:
		return "text"
	case MessageTypeDocument:
		return "document"
	default:
		return "other"
	}
}

// Platform represents a supported chat platform.
type Platform string

const (
	PlatformTelegram Platform = "telegram"
)

// IncomingMessage represents a message from a chat platform.
type IncomingMessage struct {
	Platform       Platform
	PlatformUserID string
	UserID         int64
	PlatformChatID string
	Type           MessageType
	Content        string // Text or caption

	// Command is the bot command without the leading slash, empty for plain messages.
	Command     string
	CommandArgs string

	FileID   string // Platform file reference for documents
	FileName string
	MimeType string
	FileSize int

	Metadata  map[string]string
	Timestamp time.Time
}

// IsCommand reports whether the message is a bot command.
func (m *IncomingMessage) IsCommand() bool {
	return m.Command != ""
}

// OutgoingMessage represents a message to send to a chat platform.
type OutgoingMessage struct {
	PlatformChatID string
	Content        string
	ParseMode      string // Markdown/HTML parsing mode (optional)
}
