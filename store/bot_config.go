package store

import (
	"context"
	"fmt"
	"log/slog"
)

// Language selects the output language of summaries.
type Language string

const (
	LanguageEnglish Language = "eng"
	LanguageHebrew  Language = "heb"
)

const (
	// MaxWordLimit is the largest summary length a user may request.
	MaxWordLimit = 800
	// MaxMessageCharLimit is the platform ceiling for one outgoing message.
	MaxMessageCharLimit = 4096

	DefaultWordLimit = 300
)

// BotConfig is the singleton bot configuration.
type BotConfig struct {
	Language         Language
	WordLimit        int
	MessageCharLimit int
	UpdatedTs        int64
}

// UpdateBotConfig is the update request for the bot configuration.
type UpdateBotConfig struct {
	Language         Language
	WordLimit        int
	MessageCharLimit int
}

// DefaultBotConfig returns the configuration used when none has been stored.
func DefaultBotConfig() *BotConfig {
	return &BotConfig{
		Language:         LanguageEnglish,
		WordLimit:        DefaultWordLimit,
		MessageCharLimit: MaxMessageCharLimit,
	}
}

// ValidationError reports an update that violates the configuration bounds.
type ValidationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %v: %s", e.Field, e.Value, e.Reason)
}

// Validate checks the update against the configuration bounds.
func (u *UpdateBotConfig) Validate() error {
	switch u.Language {
	case LanguageEnglish, LanguageHebrew:
	default:
		return &ValidationError{Field: "language", Value: u.Language, Reason: "must be eng or heb"}
	}
	if u.WordLimit < 0 || u.WordLimit > MaxWordLimit {
		return &ValidationError{Field: "word_limit", Value: u.WordLimit, Reason: fmt.Sprintf("must be between 0 and %d", MaxWordLimit)}
	}
	if u.MessageCharLimit < 1 || u.MessageCharLimit > MaxMessageCharLimit {
		return &ValidationError{Field: "message_char_limit", Value: u.MessageCharLimit, Reason: fmt.Sprintf("must be between 1 and %d", MaxMessageCharLimit)}
	}
	return nil
}

// ReadOrInitializeBotConfig returns the stored configuration, persisting the
// default first when none exists.
func (s *Store) ReadOrInitializeBotConfig(ctx context.Context) (*BotConfig, error) {
	config, err := s.driver.GetBotConfig(ctx)
	if err != nil {
		return nil, &StorageError{Op: "read bot config", Err: err}
	}
	if config != nil {
		return config, nil
	}

	if err := s.driver.CreateBotConfig(ctx, DefaultBotConfig()); err != nil {
		return nil, &StorageError{Op: "initialize bot config", Err: err}
	}
	slog.Info("store: initialized default bot config")

	config, err = s.driver.GetBotConfig(ctx)
	if err != nil {
		return nil, &StorageError{Op: "read bot config", Err: err}
	}
	if config == nil {
		return nil, &StorageError{Op: "read bot config", Err: ErrNotFound}
	}
	return config, nil
}

// UpdateBotConfig validates and persists update. A validation failure is
// returned as *ValidationError and nothing is written. A persistence failure
// is logged and reported as false with a nil error.
func (s *Store) UpdateBotConfig(ctx context.Context, update *UpdateBotConfig) (bool, error) {
	if err := update.Validate(); err != nil {
		return false, err
	}

	err := s.driver.UpsertBotConfig(ctx, &BotConfig{
		Language:         update.Language,
		WordLimit:        update.WordLimit,
		MessageCharLimit: update.MessageCharLimit,
	})
	if err != nil {
		slog.Error("store: failed to update bot config",
			"language", update.Language,
			"word_limit", update.WordLimit,
			"error", err,
		)
		return false, nil
	}
	return true, nil
}
