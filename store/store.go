package store

import (
	"context"
	"database/sql"

	"github.com/hrygo/summy/internal/profile"
)

// Driver is the persistence backend behind Store.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	// Migrate creates the schema if it does not exist yet.
	Migrate(ctx context.Context) error

	// GetBotConfig returns nil, nil when the singleton row is absent.
	GetBotConfig(ctx context.Context) (*BotConfig, error)
	// CreateBotConfig inserts the singleton row unless one already exists.
	CreateBotConfig(ctx context.Context, create *BotConfig) error
	UpsertBotConfig(ctx context.Context, upsert *BotConfig) error

	// GetLastArticle returns nil, nil when nothing has been stored.
	GetLastArticle(ctx context.Context) (*LastArticle, error)
	UpsertLastArticle(ctx context.Context, upsert *LastArticle) error
}

// Store provides access to the bot's persisted state.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

// Migrate prepares the schema of the underlying driver.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.driver.Migrate(ctx); err != nil {
		return &StorageError{Op: "migrate", Err: err}
	}
	return nil
}

func (s *Store) Close() error {
	return s.driver.Close()
}
