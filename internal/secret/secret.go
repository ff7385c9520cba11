// Package secret resolves credentials at startup from the environment or the
// operating system keyring (Linux: Secret Service, macOS: Keychain,
// Windows: Credential Manager).
package secret

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

// KeyringService is the service name used in the OS keyring.
const KeyringService = "summy"

// Secret identifiers.
const (
	TelegramTokenID        = "Telegram_Token"
	OpenAITokenID          = "OpenAI_Token"
	TelegramAllowedUsersID = "Telegram_Allowed_Users_ID"
)

// ErrNotFound is returned when a secret is not set in the backend.
var ErrNotFound = errors.New("secret not found")

// Store reads named secrets.
type Store interface {
	GetSecret(ctx context.Context, id string) (string, error)
	GetJSONSecret(ctx context.Context, id string, v any) error
}

// New returns the store for backend: "env" or "keyring".
func New(backend string) (Store, error) {
	switch backend {
	case "", "env":
		return NewEnvStore(), nil
	case "keyring":
		return NewKeyringStore(KeyringService), nil
	default:
		return nil, fmt.Errorf("unknown secret backend %q", backend)
	}
}

// EnvStore reads secrets from environment variables. The identifier is tried
// verbatim and then upper-cased.
type EnvStore struct {
	lookup func(string) (string, bool)
}

func NewEnvStore() *EnvStore {
	return &EnvStore{lookup: os.LookupEnv}
}

func (s *EnvStore) GetSecret(_ context.Context, id string) (string, error) {
	for _, key := range []string{id, strings.ToUpper(id)} {
		if v, ok := s.lookup(key); ok && v != "" {
			return v, nil
		}
	}
	return "", fmt.Errorf("%s: %w", id, ErrNotFound)
}

func (s *EnvStore) GetJSONSecret(ctx context.Context, id string, v any) error {
	return getJSON(ctx, s, id, v)
}

// KeyringStore reads secrets from the OS keyring.
type KeyringStore struct {
	service string
}

func NewKeyringStore(service string) *KeyringStore {
	return &KeyringStore{service: service}
}

func (s *KeyringStore) GetSecret(_ context.Context, id string) (string, error) {
	v, err := keyring.Get(s.service, id)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("keyring get %s: %w", id, err)
	}
	return v, nil
}

func (s *KeyringStore) GetJSONSecret(ctx context.Context, id string, v any) error {
	return getJSON(ctx, s, id, v)
}

// Set saves a secret to the OS keyring.
func (s *KeyringStore) Set(id, value string) error {
	if err := keyring.Set(s.service, id, value); err != nil {
		return fmt.Errorf("keyring set %s: %w", id, err)
	}
	return nil
}

// Delete removes a secret from the OS keyring.
func (s *KeyringStore) Delete(id string) error {
	err := keyring.Delete(s.service, id)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("keyring delete %s: %w", id, err)
	}
	return nil
}

func getJSON(ctx context.Context, s Store, id string, v any) error {
	raw, err := s.GetSecret(ctx, id)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("decode secret %s: %w", id, err)
	}
	return nil
}
