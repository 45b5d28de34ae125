// Package credentials persists the session credential (the bearer token)
// in the client's durable metadata store.
package credentials

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/learnhub/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/learnhub/internal/common"
	"github.com/dmitrijs2005/learnhub/internal/dbx"
)

// Store is the credential surface the dispatcher and session manager need.
// Token returns "" with a nil error when nothing is persisted.
type Store interface {
	Token(ctx context.Context) (string, error)
	SetToken(ctx context.Context, token string) error
	ClearToken(ctx context.Context) error
}

// MetadataStore implements Store on top of a metadata.Repository. When built
// with NewSQLiteStore it can also write several keys atomically.
type MetadataStore struct {
	repo metadata.Repository
	db   *sql.DB
}

// NewSQLiteStore returns a durable store backed by a migrated database.
func NewSQLiteStore(db *sql.DB) *MetadataStore {
	return &MetadataStore{repo: metadata.NewSQLiteRepository(db), db: db}
}

// NewMemoryStore returns a store that forgets everything on exit.
func NewMemoryStore() *MetadataStore {
	return &MetadataStore{repo: metadata.NewMemoryRepository()}
}

func (s *MetadataStore) Token(ctx context.Context) (string, error) {
	v, err := s.repo.Get(ctx, common.CredentialKey)
	if err != nil {
		return "", fmt.Errorf("read credential: %w", err)
	}
	return string(v), nil
}

func (s *MetadataStore) SetToken(ctx context.Context, token string) error {
	if err := s.repo.Set(ctx, common.CredentialKey, []byte(token)); err != nil {
		return fmt.Errorf("write credential: %w", err)
	}
	return nil
}

func (s *MetadataStore) ClearToken(ctx context.Context) error {
	if err := s.repo.Delete(ctx, common.CredentialKey); err != nil {
		return fmt.Errorf("clear credential: %w", err)
	}
	return nil
}

// SaveLogin stores the token together with the email it was issued for.
func (s *MetadataStore) SaveLogin(ctx context.Context, token, email string) error {
	write := func(ctx context.Context, repo metadata.Repository) error {
		if err := repo.Set(ctx, common.CredentialKey, []byte(token)); err != nil {
			return err
		}
		return repo.Set(ctx, common.LastEmailKey, []byte(email))
	}

	if s.db == nil {
		return write(ctx, s.repo)
	}
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return write(ctx, metadata.NewSQLiteRepository(tx))
	})
}

// LastEmail returns the identifier of the most recent successful login, so
// the CLI can offer it as a default.
func (s *MetadataStore) LastEmail(ctx context.Context) (string, error) {
	v, err := s.repo.Get(ctx, common.LastEmailKey)
	if err != nil {
		return "", err
	}
	return string(v), nil
}
