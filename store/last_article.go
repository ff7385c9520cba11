package store

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned when no article has been stored yet.
var ErrNotFound = errors.New("not found")

// LastArticle is the single slot holding the most recently extracted text.
type LastArticle struct {
	Text      string
	UpdatedTs int64
}

// StorageError wraps a failure of the persistence backend.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// StoreLastArticle overwrites the last article slot with text.
func (s *Store) StoreLastArticle(ctx context.Context, text string) error {
	if err := s.driver.UpsertLastArticle(ctx, &LastArticle{Text: text}); err != nil {
		return &StorageError{Op: "store last article", Err: err}
	}
	return nil
}

// GetLastArticle returns the text written by the most recent StoreLastArticle.
func (s *Store) GetLastArticle(ctx context.Context) (string, error) {
	article, err := s.driver.GetLastArticle(ctx)
	if err != nil {
		return "", &StorageError{Op: "get last article", Err: err}
	}
	if article == nil {
		return "", ErrNotFound
	}
	return article.Text, nil
}
