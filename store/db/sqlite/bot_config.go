package sqlite

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

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
		return nil, errors.Wrap(err, "failed to get bot config")
	}
	return &config, nil
}

func (d *DB) CreateBotConfig(ctx context.Context, create *store.BotConfig) error {
	stmt := `
		INSERT INTO bot_config (id, language, word_limit, message_char_limit)
		VALUES (1, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := d.db.ExecContext(ctx, stmt, create.Language, create.WordLimit, create.MessageCharLimit); err != nil {
		return errors.Wrap(err, "failed to create bot config")
	}
	return nil
}

func (d *DB) UpsertBotConfig(ctx context.Context, upsert *store.BotConfig) error {
	stmt := `
		INSERT INTO bot_config (id, language, word_limit, message_char_limit)
		VALUES (1, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			language = excluded.language,
			word_limit = excluded.word_limit,
			message_char_limit = excluded.message_char_limit,
			updated_ts = strftime('%s', 'now')
	`
	if _, err := d.db.ExecContext(ctx, stmt, upsert.Language, upsert.WordLimit, upsert.MessageCharLimit); err != nil {
		return errors.Wrap(err, "failed to upsert bot config")
	}
	return nil
}
