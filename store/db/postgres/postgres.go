package postgres

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/hrygo/summy/internal/profile"
	"github.com/hrygo/summy/store"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens a PostgreSQL connection pool for the profile DSN.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile == nil {
		return nil, errors.New("profile is nil")
	}
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	connector, err := pq.NewConnector(profile.DSN)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse postgres dsn")
	}
	db := sql.OpenDB(connector)

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to ping postgres")
	}

	return &DB{db: db, profile: profile}, nil
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS bot_config (
	id SMALLINT PRIMARY KEY CHECK (id = 1),
	language TEXT NOT NULL,
	word_limit INTEGER NOT NULL,
	message_char_limit INTEGER NOT NULL,
	updated_ts BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
);

CREATE TABLE IF NOT EXISTS last_article (
	id SMALLINT PRIMARY KEY CHECK (id = 1),
	text TEXT NOT NULL,
	updated_ts BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
);
`

// Migrate creates the bot tables if they do not exist yet.
func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			slog.Error("postgres: migration failed", "code", string(pqErr.Code), "detail", pqErr.Detail)
		}
		return errors.Wrap(err, "failed to migrate postgres schema")
	}
	return nil
}
