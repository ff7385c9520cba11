package sqlite

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

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
		return nil, errors.Wrap(err, "failed to get last article")
	}
	return &article, nil
}

func (d *DB) UpsertLastArticle(ctx context.Context, upsert *store.LastArticle) error {
	stmt := `
		INSERT INTO last_article (id, text)
		VALUES (1, ?)
		ON CONFLICT (id) DO UPDATE SET
			text = excluded.text,
			updated_ts = strftime('%s', 'now')
	`
	if _, err := d.db.ExecContext(ctx, stmt, upsert.Text); err != nil {
		return errors.Wrap(err, "failed to upsert last article")
	}
	return nil
}
