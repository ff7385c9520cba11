package secret

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/hrygo/summy/internal/profile"
)

// Resolve fills credentials the profile does not already carry. The Telegram
// token and the allowed user list are required; the LLM key is optional for
// local providers.
func Resolve(ctx context.Context, s Store, p *profile.Profile) error {
	if p.TelegramToken == "" {
		token, err := s.GetSecret(ctx, TelegramTokenID)
		if err != nil {
			return err
		}
		p.TelegramToken = token
	}

	if p.LLMAPIKey == "" {
		key, err := s.GetSecret(ctx, OpenAITokenID)
		switch {
		case err == nil:
			p.LLMAPIKey = key
		case errors.Is(err, ErrNotFound):
			slog.Warn("secret: no LLM API key configured", "id", OpenAITokenID)
		default:
			return err
		}
	}

	if len(p.AllowedUsers) == 0 {
		ids, err := allowedUsers(ctx, s)
		if err != nil {
			return err
		}
		p.AllowedUsers = ids
	}
	return nil
}

// allowedUsers accepts either a JSON array or a comma separated list.
func allowedUsers(ctx context.Context, s Store) ([]int64, error) {
	raw, err := s.GetSecret(ctx, TelegramAllowedUsersID)
	if err != nil {
		return nil, err
	}
	if strings.HasPrefix(strings.TrimSpace(raw), "[") {
		var ids []int64
		if err := s.GetJSONSecret(ctx, TelegramAllowedUsersID, &ids); err != nil {
			return nil, err
		}
		return ids, nil
	}
	return profile.ParseAllowedUsers(raw)
}
