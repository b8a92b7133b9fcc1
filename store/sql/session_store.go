package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-vault/core"
	"github.com/uptrace/bun"
)

// SessionStore persists sign-in sessions keyed by their CSRF state.
// Consume deletes the row before inspecting it so a state value is
// validated exactly once even under concurrent callbacks.
type SessionStore struct {
	db  *bun.DB
	ttl time.Duration
}

func NewSessionStore(db *bun.DB, ttl time.Duration) (*SessionStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: session store requires a bun db")
	}
	if ttl <= 0 {
		ttl = core.DefaultSessionTTL
	}
	return &SessionStore{db: db, ttl: ttl}, nil
}

func (s *SessionStore) Save(ctx context.Context, session core.SignInSession) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: session store is not configured")
	}
	session.State = strings.TrimSpace(session.State)
	if session.State == "" {
		return fmt.Errorf("sqlstore: session state is required")
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	if session.Status == "" {
		session.Status = core.StatusInit
	}

	record := newSigninSessionRecord(session)
	_, err := s.db.NewInsert().
		Model(record).
		On("CONFLICT (state) DO UPDATE").
		Set("provider = EXCLUDED.provider").
		Set("client_id = EXCLUDED.client_id").
		Set("scopes = EXCLUDED.scopes").
		Set("target = EXCLUDED.target").
		Set("status = EXCLUDED.status").
		Set("created_at = EXCLUDED.created_at").
		Exec(ctx)
	return err
}

func (s *SessionStore) Consume(ctx context.Context, state string) (core.SignInSession, error) {
	if s == nil || s.db == nil {
		return core.SignInSession{}, fmt.Errorf("sqlstore: session store is not configured")
	}
	state = strings.TrimSpace(state)
	if state == "" {
		return core.SignInSession{}, fmt.Errorf("sqlstore: session state is required")
	}

	var session core.SignInSession
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record := &signinSessionRecord{}
		if err := tx.NewSelect().
			Model(record).
			Where("?TableAlias.state = ?", state).
			Scan(ctx); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return core.ErrSessionNotFound
			}
			return err
		}
		if _, err := tx.NewDelete().
			Model((*signinSessionRecord)(nil)).
			Where("state = ?", state).
			Exec(ctx); err != nil {
			return err
		}
		session = record.toDomain()
		return nil
	})
	if err != nil {
		return core.SignInSession{}, err
	}
	if session.Expired(time.Now(), s.ttl) {
		return core.SignInSession{}, core.NewSessionExpiredError(
			fmt.Sprintf("sqlstore: sign-in session expired after %s", s.ttl))
	}
	return session, nil
}

func (s *SessionStore) Delete(ctx context.Context, state string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: session store is not configured")
	}
	_, err := s.db.NewDelete().
		Model((*signinSessionRecord)(nil)).
		Where("state = ?", strings.TrimSpace(state)).
		Exec(ctx)
	return err
}

func (s *SessionStore) PruneExpired(ctx context.Context, now time.Time) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: session store is not configured")
	}
	if now.IsZero() {
		now = time.Now()
	}
	cutoff := now.UTC().Add(-s.ttl)
	deleted, err := s.db.NewDelete().
		Model((*signinSessionRecord)(nil)).
		Where("created_at <= ?", cutoff).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	affected, err := deleted.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}
