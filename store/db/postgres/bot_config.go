package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hrygo/summy/store"
)

func (d *DB) GetBotConfig(ctx context.Context) (*store.BotConfig, error) {
	var config store.BotConfig
	err := d.db.QueryRowContext(ctx, `
		SELECT language, word_limit, message_char_limit, updated_ts
		FROM bot_config
		WHERE id = 1
	`).Scan(
		&config.Language,
		&config.WordLimit,
		&config.MessageCharLimit,
		&config.UpdatedTs,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bot config: %w", err)
	}
	return &config, nil
}

func (d *DB) CreateBotConfig(ctx context.Context, create *store.BotConfig) error {
	query := `
		INSERT INTO bot_config (id, language, word_limit, message_char_limit)
		VALUES (1, $1, $2, $3)
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := d.db.ExecContext(ctx, query, create.Language, create.WordLimit, create.MessageCharLimit); err != nil {
		return fmt.Errorf("failed to create bot config: %w", err)
	}
	return nil
}

func (d *DB) UpsertBotConfig(ctx context.Context, upsert *store.BotConfig) error {
	query := `
		INSERT INTO bot_config (id, language, word_limit, message_char_limit)
		VALUES (1, $1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			language = EXCLUDED.language,
			word_limit = EXCLUDED.word_limit,
			message_char_limit = EXCLUDED.message_char_limit,
			updated_ts = EXTRACT(EPOCH FROM NOW())::BIGINT
	`
	if _, err := d.db.ExecContext(ctx, query, upsert.Language, upsert.WordLimit, upsert.MessageCharLimit); err != nil {
		return fmt.Errorf("failed to upsert bot config: %w", err)
	}
	return nil
}
