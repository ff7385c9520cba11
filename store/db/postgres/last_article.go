package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hrygo/summy/store"
)

func (d *DB) GetLastArticle(ctx context.Context) (*store.LastArticle, error) {
	var article store.LastArticle
	err := d.db.QueryRowContext(ctx, `SELECT text, updated_ts FROM last_article WHERE id = 1`).
		Scan(&article.Text, &article.UpdatedTs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last article: %w", err)
	}
	return &article, nil
}

func (d *DB) UpsertLastArticle(ctx context.Context, upsert *store.LastArticle) error {
	query := `
		INSERT INTO last_article (id, text)
		VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET
			text = EXCLUDED.text,
			updated_ts = EXTRACT(EPOCH FROM NOW())::BIGINT
	`
	if _, err := d.db.ExecContext(ctx, query, upsert.Text); err != nil {
		return fmt.Errorf("failed to upsert last article: %w", err)
	}
	return nil
}
